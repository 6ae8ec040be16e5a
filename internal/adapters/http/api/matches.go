package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/matchtag/internal/adapters/http/live"
	"github.com/okian/matchtag/internal/domain/model"
	"github.com/okian/matchtag/internal/domain/session"
)

const maxBodyBytes = 1 << 16

func matchID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	return decodeBody(w, r, v, false)
}

// decodeOptional is decode for bodies that may be absent. An empty body,
// chunked or not, leaves v untouched.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) error {
	return decodeBody(w, r, v, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	if r.Body == nil || r.Body == http.NoBody {
		if optional {
			return nil
		}
		return fmt.Errorf("%w: empty body", ErrBadRequest)
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

type timeRequest struct {
	Time *float64 `json:"time"`
}

func (t timeRequest) value() (float64, error) {
	if t.Time == nil {
		return 0, fmt.Errorf("%w: missing time", ErrBadRequest)
	}
	return *t.Time, nil
}

type startTagRequest struct {
	Time *float64 `json:"time"`
	Team string   `json:"team,omitempty"`
}

type tagPatchRequest struct {
	Time    *float64 `json:"time,omitempty"`
	Team    *string  `json:"team,omitempty"`
	Action  *string  `json:"action,omitempty"`
	Outcome *string  `json:"outcome,omitempty"`
}

func (p tagPatchRequest) partial() (model.PartialEvent, error) {
	var out model.PartialEvent
	out.Time = p.Time
	if p.Team != nil {
		t, err := model.ParseTeam(*p.Team)
		if err != nil {
			return out, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		out.Team = &t
	}
	if p.Action != nil {
		a, err := model.ParseAction(*p.Action)
		if err != nil {
			return out, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		out.Action = &a
	}
	if p.Outcome != nil {
		o, err := model.ParseOutcome(*p.Outcome)
		if err != nil {
			return out, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		out.Outcome = &o
	}
	return out, nil
}

type cardRequest struct {
	Card string  `json:"card"`
	Team *string `json:"team,omitempty"`
}

type saveTagRequest struct {
	Card                    *cardRequest `json:"card,omitempty"`
	ConfirmPossessionChange bool         `json:"confirmPossessionChange,omitempty"`
}

func (req saveTagRequest) options() (session.SaveOptions, error) {
	opts := session.SaveOptions{ConfirmPossessionChange: req.ConfirmPossessionChange}
	if req.Card == nil {
		return opts, nil
	}
	card, err := model.ParseAction(req.Card.Card)
	if err != nil {
		return opts, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	info := model.CardInfo{Card: card}
	if req.Card.Team != nil {
		t, err := model.ParseTeam(*req.Card.Team)
		if err != nil {
			return opts, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		info.Team = &t
	}
	opts.Card = &info
	return opts, nil
}

type teamRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type possessionRequest struct {
	Team string `json:"team"`
}

type deletedResponse struct {
	Deleted int `json:"deleted"`
	View    any `json:"view"`
}

type markersResponse struct {
	Available bool                    `json:"available"`
	Markers   *model.MatchTimeMarkers `json:"markers,omitempty"`
}

type nextMarkerResponse struct {
	Done  bool   `json:"done"`
	Label string `json:"label,omitempty"`
}

type flushResponse struct {
	Revision int64 `json:"revision"`
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Open(r.Context(), matchID(r))
	if err != nil {
		s.writeServiceError(w, r, "api.open_session", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Close(r.Context(), matchID(r)); err != nil {
		s.writeServiceError(w, r, "api.close_session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.View(r.Context(), matchID(r))
	if err != nil {
		s.writeServiceError(w, r, "api.view", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleStartTag(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_tag"
	var req startTagRequest
	if err := decode(w, r, &req); err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	t, err := timeRequest{Time: req.Time}.value()
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	var team model.Team
	if req.Team != "" {
		if team, err = model.ParseTeam(req.Team); err != nil {
			s.writeServiceError(w, r, op, WrapKind(op, ErrBadRequest, err))
			return
		}
	}
	v, err := s.deps.StartTag(r.Context(), matchID(r), t, team)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleUpdateTag(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_tag"
	var req tagPatchRequest
	if err := decode(w, r, &req); err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	patch, err := req.partial()
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	v, err := s.deps.UpdateTag(r.Context(), matchID(r), patch)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleCancelTag(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.CancelTag(r.Context(), matchID(r))
	if err != nil {
		s.writeServiceError(w, r, "api.cancel_tag", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleSaveTag answers 200 with the committed events, or 422 with the
// blocking issues.
func (s *Server) handleSaveTag(w http.ResponseWriter, r *http.Request) {
	const op = "api.save_tag"
	var req saveTagRequest
	if err := decodeOptional(w, r, &req); err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	opts, err := req.options()
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	res, err := s.deps.SaveTag(r.Context(), matchID(r), opts)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	if !res.Saved {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.DeleteEvent(r.Context(), matchID(r), mux.Vars(r)["eventID"])
	if err != nil {
		s.writeServiceError(w, r, "api.delete_event", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDeleteAllEvents(w http.ResponseWriter, r *http.Request) {
	n, v, err := s.deps.DeleteAllEvents(r.Context(), matchID(r))
	if err != nil {
		s.writeServiceError(w, r, "api.delete_events", err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Deleted: n, View: v})
}

func (s *Server) handleToggleHalf(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.ToggleSecondHalf(r.Context(), matchID(r))
	if err != nil {
		s.writeServiceError(w, r, "api.toggle_half", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleUpdateTeams(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_teams"
	var req map[string]teamRequest
	if err := decode(w, r, &req); err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	teams := make(map[model.Team]model.TeamInfo, len(req))
	for k, t := range req {
		team, err := model.ParseTeam(k)
		if err != nil || !team.Valid() {
			s.writeServiceError(w, r, op, NewKind(op, fmt.Errorf("%w: team %q", ErrBadRequest, k)))
			return
		}
		teams[team] = model.TeamInfo{ID: t.ID, Name: t.Name, Color: t.Color}
	}
	v, err := s.deps.UpdateTeams(r.Context(), matchID(r), teams)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleUpdatePossession(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_possession"
	var req possessionRequest
	if err := decode(w, r, &req); err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	var team model.Team
	if req.Team != "" {
		var err error
		if team, err = model.ParseTeam(req.Team); err != nil {
			s.writeServiceError(w, r, op, WrapKind(op, ErrBadRequest, err))
			return
		}
	}
	v, err := s.deps.UpdatePossession(r.Context(), matchID(r), team)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleSetClock(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_clock"
	var req timeRequest
	if err := decode(w, r, &req); err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	t, err := req.value()
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	v, err := s.deps.SetClock(r.Context(), matchID(r), t)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleSetMarker(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_marker"
	slot, err := model.ParseSlot(mux.Vars(r)["slot"])
	if err != nil {
		s.writeServiceError(w, r, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	var req timeRequest
	if err := decode(w, r, &req); err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	t, err := req.value()
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	v, err := s.deps.SetMarker(r.Context(), matchID(r), slot, t)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Timeline(r.Context(), matchID(r))
	if err != nil {
		s.writeServiceError(w, r, "api.timeline", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	m, ok, err := s.deps.Markers(r.Context(), matchID(r))
	if err != nil {
		s.writeServiceError(w, r, "api.markers", err)
		return
	}
	resp := markersResponse{Available: ok}
	if ok {
		resp.Markers = &m
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNextMarker(w http.ResponseWriter, r *http.Request) {
	label, ok, err := s.deps.NextRequired(r.Context(), matchID(r))
	if err != nil {
		s.writeServiceError(w, r, "api.next_marker", err)
		return
	}
	writeJSON(w, http.StatusOK, nextMarkerResponse{Done: !ok, Label: label})
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	rev, err := s.deps.Flush(r.Context(), matchID(r))
	if err != nil {
		s.writeServiceError(w, r, "api.flush", err)
		return
	}
	writeJSON(w, http.StatusAccepted, flushResponse{Revision: rev})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	id := matchID(r)
	if _, err := s.deps.View(r.Context(), id); err != nil {
		s.writeServiceError(w, r, "api.live", err)
		return
	}
	s.live.ServeWS(w, r, id, func(ctx context.Context) (live.Message, error) {
		v, err := s.deps.View(ctx, id)
		if err != nil {
			return live.Message{}, err
		}
		return live.Message{Type: "state", MatchID: id, Data: v}, nil
	})
}
