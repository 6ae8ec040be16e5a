package api

import (
	"bytes"
	"net/http"

	"github.com/okian/matchtag/internal/domain/dedupe"
)

const (
	idempotencyKeyHeader    = "Idempotency-Key"
	idempotentReplayHeader  = "Idempotent-Replay"
	maxIdempotencyKeyLength = 200
)

// captureWriter tees the response so it can be stored under the key.
type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.status == 0 {
		cw.status = http.StatusOK
	}
	cw.body.Write(b)
	return cw.ResponseWriter.Write(b)
}

// idempotent replays the stored response of a request retried with the same
// Idempotency-Key on the same match. Only 2xx answers are kept; any other
// answer releases the key so the client may retry.
func (s *Server) idempotent(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "api.idempotent"
		key := r.Header.Get(idempotencyKeyHeader)
		if key == "" {
			next(w, r)
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			s.writeServiceError(w, r, op, NewKind(op, ErrBadRequest))
			return
		}
		scoped := matchID(r) + ":" + key

		ctx := r.Context()
		if resp, seen := s.deps.SeenAndRecord(ctx, scoped); seen {
			if resp.Pending() {
				s.writeServiceError(w, r, op, NewKind(op, ErrInProgress))
				return
			}
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set(idempotentReplayHeader, "true")
			w.WriteHeader(resp.Status)
			_, _ = w.Write(resp.Body)
			return
		}

		cw := &captureWriter{ResponseWriter: w}
		next(cw, r)
		if cw.status >= 200 && cw.status < 300 {
			s.deps.CompleteIdempotent(ctx, scoped, dedupe.Response{Status: cw.status, Body: cw.body.Bytes()})
			return
		}
		s.deps.Unrecord(ctx, scoped)
	}
}
