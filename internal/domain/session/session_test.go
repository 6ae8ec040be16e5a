package session_test

import (
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/matchtag/internal/domain/model"
	"github.com/okian/matchtag/internal/domain/session"
	"github.com/okian/matchtag/internal/domain/tracker"
	"github.com/okian/matchtag/internal/domain/validation"
)

func newSession(opts ...session.Option) *session.Session {
	n := 0
	ids := func() string {
		n++
		return "ev-" + strconv.Itoa(n)
	}
	return session.New(append([]session.Option{session.WithIDFunc(ids)}, opts...)...)
}

// tagAndSave drives one full start/update/save cycle.
func tagAndSave(s *session.Session, t float64, team model.Team, action model.Action, outcome model.Outcome) session.SaveResult {
	s.CancelTag()
	s.StartTag(t, team)
	patch := model.PartialEvent{Time: model.Ptr(t), Action: model.Ptr(action)}
	if team != model.TeamNone {
		patch.Team = model.Ptr(team)
	}
	if outcome != "" {
		patch.Outcome = model.Ptr(outcome)
	}
	s.UpdateActiveTag(patch)
	return s.SaveTag(session.SaveOptions{})
}

type fakePlayer struct{ seeks []float64 }

func (p *fakePlayer) Seek(t float64) { p.seeks = append(p.seeks, t) }

func TestSession_OpeningThrowUp(t *testing.T) {
	Convey("Given an empty session", t, func() {
		s := newSession()

		Convey("When a tag is started at 0", func() {
			So(s.StartTag(0, model.TeamNone), ShouldBeTrue)

			Convey("Then it is pre-filled as a throw-up", func() {
				tag, ok := s.ActiveTag()
				So(ok, ShouldBeTrue)
				So(tag.ActionOr(""), ShouldEqual, model.ActionThrowUp)
				So(tag.ID, ShouldNotBeBlank)
			})

			Convey("And a second StartTag is refused", func() {
				So(s.StartTag(5, model.TeamBlue), ShouldBeFalse)
			})

			Convey("And saving red winning it commits and completes the first slot", func() {
				s.UpdateActiveTag(model.PartialEvent{Team: model.Ptr(model.TeamRed), Action: model.Ptr(model.ActionThrowUp), Outcome: model.Ptr(model.OutcomeWon)})
				res := s.SaveTag(session.SaveOptions{})

				So(res.Saved, ShouldBeTrue)
				st := s.State()
				So(st.History, ShouldHaveLength, 1)
				So(st.History[0].Time, ShouldEqual, 0)
				So(st.History[0].Team, ShouldEqual, model.TeamRed)
				So(st.History[0].Action, ShouldEqual, model.ActionThrowUp)
				So(st.History[0].Outcome, ShouldEqual, model.OutcomeWon)
				So(st.History[0].Validated, ShouldBeTrue)
				So(st.Possession, ShouldEqual, model.TeamRed)
				So(st.Progress.FirstHalfThrowUp.Completed, ShouldBeTrue)
				So(st.Progress.FirstHalfThrowUp.Time, ShouldEqual, 0)
				So(st.ActiveTag, ShouldBeNil)
			})
		})

		Convey("When no tag is active", func() {
			So(s.UpdateActiveTag(model.PartialEvent{Team: model.Ptr(model.TeamRed)}), ShouldBeFalse)
			So(s.SaveTag(session.SaveOptions{}).Saved, ShouldBeFalse)
			So(s.CancelTag(), ShouldBeFalse)
		})
	})
}

func TestSession_TurnoverLost(t *testing.T) {
	Convey("Given red in possession", t, func() {
		s := newSession()
		tagAndSave(s, 0, model.TeamRed, model.ActionThrowUp, model.OutcomeWon)

		Convey("When red loses a turnover at 120", func() {
			res := tagAndSave(s, 120, model.TeamRed, model.ActionTurnover, model.OutcomeLost)

			Convey("Then exactly one turnover won is generated for blue", func() {
				So(res.Saved, ShouldBeTrue)
				st := s.State()
				So(st.History, ShouldHaveLength, 3)
				auto := st.History[2]
				So(auto.Time, ShouldEqual, 120)
				So(auto.Team, ShouldEqual, model.TeamBlue)
				So(auto.Action, ShouldEqual, model.ActionTurnover)
				So(auto.Outcome, ShouldEqual, model.OutcomeWon)
				So(auto.AutoGenerated, ShouldBeTrue)
				So(st.Possession, ShouldEqual, model.TeamBlue)
				So(res.Committed, ShouldHaveLength, 2)
			})
		})
	})
}

func TestSession_ScoreSeedsKickout(t *testing.T) {
	Convey("Given red in possession", t, func() {
		s := newSession()
		tagAndSave(s, 0, model.TeamRed, model.ActionThrowUp, model.OutcomeWon)

		Convey("When red scores a goal at 300", func() {
			res := tagAndSave(s, 300, model.TeamRed, model.ActionShot, model.OutcomeGoal)

			Convey("Then the score, possession and pending kickout follow", func() {
				So(res.Saved, ShouldBeTrue)
				st := s.State()
				So(st.Score.Red.Total(), ShouldEqual, 3)
				So(st.Teams[model.TeamRed].Score.Goals, ShouldEqual, 1)
				So(st.Possession, ShouldEqual, model.TeamBlue)

				tag, ok := s.ActiveTag()
				So(ok, ShouldBeTrue)
				So(tag.TimeOr(0), ShouldEqual, 301)
				So(tag.TeamOr(""), ShouldEqual, model.TeamBlue)
				So(tag.ActionOr(""), ShouldEqual, model.ActionKickout)
				So(tag.Outcome, ShouldBeNil)
			})

			Convey("And the seeded kickout saves once its outcome is chosen", func() {
				s.UpdateActiveTag(model.PartialEvent{Outcome: model.Ptr(model.OutcomeWon)})
				res := s.SaveTag(session.SaveOptions{})
				So(res.Saved, ShouldBeTrue)
				So(res.Warnings, ShouldBeEmpty)
				So(s.State().Possession, ShouldEqual, model.TeamBlue)
			})
		})

		Convey("When red kicks a wide", func() {
			tagAndSave(s, 200, model.TeamRed, model.ActionShot, model.OutcomeWide)

			Convey("Then no score is added but a kickout is pending", func() {
				st := s.State()
				So(st.Score, ShouldResemble, model.Score{})
				So(st.ActiveTag, ShouldNotBeNil)
			})
		})
	})
}

func TestSession_WhistleBeforeThrowUp(t *testing.T) {
	Convey("Given an empty session", t, func() {
		s := newSession()

		Convey("When a half time whistle is saved first", func() {
			s.StartTag(10, model.TeamNone)
			s.UpdateActiveTag(model.PartialEvent{Action: model.Ptr(model.ActionHalfTimeWhistle)})
			res := s.SaveTag(session.SaveOptions{})

			Convey("Then it is in the history but no slot advances", func() {
				So(res.Saved, ShouldBeTrue)
				st := s.State()
				So(st.History, ShouldHaveLength, 1)
				So(st.History[0].Team, ShouldEqual, model.PlaceholderTeam)
				So(st.History[0].Outcome, ShouldEqual, model.OutcomeNA)
				So(st.Progress.HalfTimeWhistle.Completed, ShouldBeFalse)
				label, ok := s.NextRequiredMatchEvent()
				So(ok, ShouldBeTrue)
				So(label, ShouldEqual, "First Half Throw-up")
			})
		})
	})
}

func TestSession_ShotWithoutOutcome(t *testing.T) {
	Convey("Given red in possession", t, func() {
		s := newSession()
		tagAndSave(s, 0, model.TeamRed, model.ActionThrowUp, model.OutcomeWon)

		Convey("When a shot is saved with no outcome", func() {
			s.StartTag(50, model.TeamRed)
			s.UpdateActiveTag(model.PartialEvent{Action: model.Ptr(model.ActionShot)})
			before, _ := s.ActiveTag()
			res := s.SaveTag(session.SaveOptions{})

			Convey("Then it fails and the tag is retained unchanged", func() {
				So(res.Saved, ShouldBeFalse)
				st := s.State()
				So(st.ValidationErrors, ShouldHaveLength, 1)
				So(st.ValidationErrors[0].Message, ShouldEqual, "Shot events must specify outcome")
				after, ok := s.ActiveTag()
				So(ok, ShouldBeTrue)
				So(cmp.Diff(before, after), ShouldBeEmpty)
				So(st.History, ShouldHaveLength, 1)
			})

			Convey("And cancelling clears the errors", func() {
				So(s.CancelTag(), ShouldBeTrue)
				So(s.State().ValidationErrors, ShouldBeEmpty)
			})
		})
	})
}

func TestSession_FullMarkerSequence(t *testing.T) {
	Convey("Given a match tagged from throw-up to full time", t, func() {
		s := newSession()
		tagAndSave(s, 5, model.TeamRed, model.ActionThrowUp, model.OutcomeWon)
		tagAndSave(s, 1800, model.TeamNone, model.ActionHalfTimeWhistle, "")

		_, ok := s.MatchTimeMarkers()
		So(ok, ShouldBeFalse)

		s.SetCurrentTime(1850)
		So(s.ToggleSecondHalf(), ShouldBeTrue)
		st := s.State()
		So(st.IsSecondHalf, ShouldBeTrue)
		So(st.Possession, ShouldEqual, model.TeamNone)
		tag, _ := s.ActiveTag()
		So(tag.ActionOr(""), ShouldEqual, model.ActionThrowUp)
		So(tag.TimeOr(0), ShouldEqual, 1850)

		s.UpdateActiveTag(model.PartialEvent{Team: model.Ptr(model.TeamBlue), Outcome: model.Ptr(model.OutcomeWon)})
		So(s.SaveTag(session.SaveOptions{}).Saved, ShouldBeTrue)
		tagAndSave(s, 3600, model.TeamNone, model.ActionFullTimeWhistle, "")

		Convey("Then the markers are available", func() {
			m, ok := s.MatchTimeMarkers()
			So(ok, ShouldBeTrue)
			So(m, ShouldResemble, model.MatchTimeMarkers{FirstHalfStart: 5, HalfTime: 1800, SecondHalfStart: 1850, FullTime: 3600})
			_, open := s.NextRequiredMatchEvent()
			So(open, ShouldBeFalse)
		})

		Convey("And the timeline tags each milestone", func() {
			var marked []string
			for _, e := range s.CombinedEvents() {
				So(e.Synthetic, ShouldBeFalse)
				if e.Marker != "" {
					marked = append(marked, e.Marker)
				}
			}
			So(marked, ShouldResemble, []string{"firstHalfThrowUp", "halfTimeWhistle", "secondHalfThrowUp", "fullTimeWhistle"})
		})
	})
}

func TestSession_WhistleTeam(t *testing.T) {
	Convey("Given blue in possession after the throw-up", t, func() {
		s := newSession()
		tagAndSave(s, 5, model.TeamBlue, model.ActionThrowUp, model.OutcomeWon)
		So(s.State().Possession, ShouldEqual, model.TeamBlue)

		Convey("A whistle tagged during play is stored with the placeholder team", func() {
			So(s.StartTag(1800, model.TeamNone), ShouldBeTrue)
			tag, _ := s.ActiveTag()
			So(tag.TeamOr(model.TeamNone), ShouldEqual, model.TeamBlue)

			s.UpdateActiveTag(model.PartialEvent{Action: model.Ptr(model.ActionHalfTimeWhistle)})
			res := s.SaveTag(session.SaveOptions{})
			So(res.Saved, ShouldBeTrue)

			st := s.State()
			last := st.History[len(st.History)-1]
			So(last.Action, ShouldEqual, model.ActionHalfTimeWhistle)
			So(last.Team, ShouldEqual, model.PlaceholderTeam)
			So(st.Possession, ShouldEqual, model.TeamBlue)
		})

		Convey("An explicit team on a whistle is replaced as well", func() {
			res := tagAndSave(s, 1800, model.TeamBlue, model.ActionHalfTimeWhistle, "")
			So(res.Saved, ShouldBeTrue)
			st := s.State()
			So(st.History[len(st.History)-1].Team, ShouldEqual, model.PlaceholderTeam)
		})
	})
}

func TestSession_PossessionConfirm(t *testing.T) {
	Convey("Given red in possession", t, func() {
		s := newSession()
		tagAndSave(s, 0, model.TeamRed, model.ActionThrowUp, model.OutcomeWon)

		Convey("When blue shoots a point", func() {
			res := tagAndSave(s, 50, model.TeamBlue, model.ActionShot, model.OutcomeOnePoint)

			Convey("Then the save is rejected with a possession error", func() {
				So(res.Saved, ShouldBeFalse)
				So(res.Errors[0].Code, ShouldEqual, validation.CodePossession)
				So(s.State().History, ShouldHaveLength, 1)
			})

			Convey("And confirming the change commits a turnover first", func() {
				res := s.SaveTag(session.SaveOptions{ConfirmPossessionChange: true})
				So(res.Saved, ShouldBeTrue)
				So(res.Committed, ShouldHaveLength, 2)
				So(res.Committed[0].Action, ShouldEqual, model.ActionTurnover)
				So(res.Committed[0].Team, ShouldEqual, model.TeamBlue)
				So(res.Committed[0].AutoGenerated, ShouldBeTrue)
				So(res.Committed[1].Action, ShouldEqual, model.ActionShot)

				st := s.State()
				So(st.Score.Blue.Points, ShouldEqual, 1)
				So(st.Possession, ShouldEqual, model.TeamRed)
			})
		})

		Convey("When blue records a turnover won and confirms", func() {
			tagAndSave(s, 40, model.TeamBlue, model.ActionTurnover, model.OutcomeWon)
			res := s.SaveTag(session.SaveOptions{ConfirmPossessionChange: true})

			Convey("Then only the turnover is committed", func() {
				So(res.Saved, ShouldBeTrue)
				So(res.Committed, ShouldHaveLength, 1)
				So(s.State().Possession, ShouldEqual, model.TeamBlue)
			})
		})

		Convey("When the tag also breaks ordering", func() {
			tagAndSave(s, 100, model.TeamRed, model.ActionKickIn, model.OutcomeWon)
			tagAndSave(s, 60, model.TeamBlue, model.ActionShot, model.OutcomeGoal)
			res := s.SaveTag(session.SaveOptions{ConfirmPossessionChange: true})

			Convey("Then confirming does not bypass the other errors", func() {
				So(res.Saved, ShouldBeFalse)
				So(s.State().History, ShouldHaveLength, 2)
			})
		})
	})
}

func TestSession_FoulWithCard(t *testing.T) {
	Convey("Given red in possession", t, func() {
		s := newSession()
		tagAndSave(s, 0, model.TeamRed, model.ActionThrowUp, model.OutcomeWon)

		Convey("When a foul awarded to blue is saved with a yellow card", func() {
			s.StartTag(100, model.TeamBlue)
			s.UpdateActiveTag(model.PartialEvent{Action: model.Ptr(model.ActionFoul)})
			res := s.SaveTag(session.SaveOptions{Card: &model.CardInfo{Card: model.ActionYellowCard}})

			Convey("Then the foul chain and the card chain both commit", func() {
				So(res.Saved, ShouldBeTrue)
				got := make([]model.Action, 0, len(res.Committed))
				for _, e := range res.Committed {
					got = append(got, e.Action)
				}
				So(got, ShouldResemble, []model.Action{model.ActionFoul, model.ActionKickout, model.ActionYellowCard, model.ActionKickout})

				card := res.Committed[2]
				So(card.Team, ShouldEqual, model.TeamRed)
				So(card.Time, ShouldAlmostEqual, 100.1, 1e-9)
				So(s.State().Possession, ShouldEqual, model.TeamBlue)
			})
		})

		Convey("When the card is not a card", func() {
			s.StartTag(100, model.TeamBlue)
			s.UpdateActiveTag(model.PartialEvent{Action: model.Ptr(model.ActionFoul)})
			res := s.SaveTag(session.SaveOptions{Card: &model.CardInfo{Card: model.ActionShot}})

			Convey("Then nothing commits", func() {
				So(res.Saved, ShouldBeFalse)
				So(res.Errors[0].Code, ShouldEqual, validation.CodeIllegalCard)
				So(s.State().History, ShouldHaveLength, 1)
				_, ok := s.ActiveTag()
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When the carded team is explicit", func() {
			s.StartTag(100, model.TeamBlue)
			s.UpdateActiveTag(model.PartialEvent{Action: model.Ptr(model.ActionFoul)})
			res := s.SaveTag(session.SaveOptions{Card: &model.CardInfo{Card: model.ActionBlackCard, Team: model.Ptr(model.TeamBlue)}})

			Convey("Then the opponent of the carded team gets the kickout", func() {
				So(res.Saved, ShouldBeTrue)
				So(res.Committed[2].Team, ShouldEqual, model.TeamBlue)
				So(res.Committed[3].Team, ShouldEqual, model.TeamRed)
				So(s.State().Possession, ShouldEqual, model.TeamRed)
			})
		})
	})
}

func TestSession_DeleteReplays(t *testing.T) {
	Convey("Given a short history", t, func() {
		s := newSession()
		tagAndSave(s, 0, model.TeamRed, model.ActionThrowUp, model.OutcomeWon)
		tagAndSave(s, 30, model.TeamRed, model.ActionShot, model.OutcomeTwoPoint)
		s.CancelTag()
		tagAndSave(s, 40, model.TeamBlue, model.ActionKickout, model.OutcomeWon)
		first := s.State().History[0].ID
		shot := s.State().History[1].ID

		Convey("When the shot is deleted", func() {
			So(s.DeleteEvent(shot), ShouldBeTrue)

			Convey("Then the score is recomputed", func() {
				st := s.State()
				So(st.Score, ShouldResemble, model.Score{})
				So(st.Teams[model.TeamRed].Score, ShouldResemble, model.TeamScore{})
				So(st.Possession, ShouldEqual, model.TeamBlue)
			})
		})

		Convey("When the throw-up is deleted", func() {
			So(s.DeleteEvent(first), ShouldBeTrue)

			Convey("Then marker progress is recomputed", func() {
				So(s.State().Progress.FirstHalfThrowUp.Completed, ShouldBeFalse)
			})
		})

		Convey("When an unknown id is deleted", func() {
			So(s.DeleteEvent("nope"), ShouldBeFalse)
		})

		Convey("When everything is deleted", func() {
			So(s.DeleteAllEvents(), ShouldEqual, 3)
			st := s.State()
			So(st.History, ShouldBeEmpty)
			So(st.Possession, ShouldEqual, model.TeamNone)
			So(st.Score, ShouldResemble, model.Score{})
		})
	})
}

func TestSession_Load(t *testing.T) {
	Convey("Given persisted events out of order", t, func() {
		events := []model.Event{
			{ID: "b", Time: 120, Team: model.TeamRed, Action: model.ActionShot, Outcome: model.OutcomeGoal, Validated: true},
			{ID: "a", Time: 0, Team: model.TeamRed, Action: model.ActionThrowUp, Outcome: model.OutcomeWon, Validated: true},
			{Time: 1800, Team: model.TeamRed, Action: model.ActionHalfTimeWhistle, Outcome: model.OutcomeNA},
		}
		s := newSession()
		s.Load(events)

		Convey("Then history is sorted and derived state replayed", func() {
			st := s.State()
			So(st.History[0].ID, ShouldEqual, "a")
			So(st.History[1].ID, ShouldEqual, "b")
			So(st.History[2].ID, ShouldNotBeBlank)
			So(st.Score.Red.Goals, ShouldEqual, 1)
			So(st.Possession, ShouldEqual, model.TeamBlue)
			So(st.Progress.HalfTimeWhistle.Completed, ShouldBeTrue)
			So(events[0].ID, ShouldEqual, "b")
		})

		Convey("Then Events returns a copy", func() {
			out := s.Events()
			out[0].ID = "changed"
			So(s.State().History[0].ID, ShouldEqual, "a")
		})
	})
}

func TestSession_ManualMarkers(t *testing.T) {
	Convey("Given a first half throw-up", t, func() {
		s := newSession()
		tagAndSave(s, 5, model.TeamRed, model.ActionThrowUp, model.OutcomeWon)

		Convey("When half time is set manually", func() {
			So(s.SetMatchTimeMarker(model.SlotFullTimeWhistle, 3600), ShouldBeFalse)
			So(s.SetMatchTimeMarker(model.SlotHalfTimeWhistle, 1800), ShouldBeTrue)

			Convey("Then the timeline carries a synthetic whistle", func() {
				entries := s.CombinedEvents()
				So(entries, ShouldHaveLength, 2)
				So(entries[1].Synthetic, ShouldBeTrue)
				So(entries[1].Action, ShouldEqual, model.ActionHalfTimeWhistle)
				So(entries[1].Time, ShouldEqual, 1800)
				So(entries[1].Marker, ShouldEqual, "halfTimeWhistle")
			})

			Convey("And it survives a delete and replay", func() {
				tagAndSave(s, 1850, model.TeamBlue, model.ActionThrowUp, model.OutcomeWon)
				So(s.State().Progress.SecondHalfThrowUp.Completed, ShouldBeTrue)
				s.DeleteEvent(s.State().History[0].ID)
				st := s.State()
				So(st.Progress.FirstHalfThrowUp.Time, ShouldEqual, 1850)
				So(st.Progress.HalfTimeWhistle, ShouldResemble, model.SlotState{Completed: true, Time: 1800})
				So(st.Progress.SecondHalfThrowUp.Completed, ShouldBeFalse)
			})
		})
	})
}

func TestSession_PlayerAndOverrides(t *testing.T) {
	Convey("Given a session with a player", t, func() {
		p := &fakePlayer{}
		s := newSession(session.WithPlayer(p))

		So(s.RequestSeek(42), ShouldBeTrue)
		So(s.RequestSeek(-1), ShouldBeFalse)
		So(p.seeks, ShouldResemble, []float64{42})

		So(s.SetCurrentTime(-3), ShouldBeFalse)
		So(s.SetCurrentTime(12.5), ShouldBeTrue)
		So(s.State().CurrentTime, ShouldEqual, 12.5)

		So(s.UpdatePossession(model.TeamBlue), ShouldBeTrue)
		So(s.UpdatePossession(model.Team("green")), ShouldBeFalse)
		So(s.State().Possession, ShouldEqual, model.TeamBlue)

		s.UpdateTeams(map[model.Team]model.TeamInfo{model.TeamRed: {ID: "kerry", Name: "Kerry", Color: "green"}})
		So(s.State().Teams[model.TeamRed].Name, ShouldEqual, "Kerry")
		So(s.State().Teams[model.TeamBlue].Name, ShouldEqual, "Team B")

		Convey("And a tag started without a team takes the side in possession", func() {
			s.StartTag(20, model.TeamNone)
			tag, _ := s.ActiveTag()
			So(tag.TeamOr(""), ShouldEqual, model.TeamBlue)
		})
	})

	Convey("Given a session without a player", t, func() {
		So(newSession().RequestSeek(1), ShouldBeFalse)
	})
}

// Whatever order tags arrive in, only a monotone history is committed and
// every shot or turnover won was taken by the side in possession.
func TestSession_HistoryInvariants(t *testing.T) {
	type step struct {
		t       float64
		team    model.Team
		action  model.Action
		outcome model.Outcome
	}
	steps := []step{
		{0, model.TeamRed, model.ActionThrowUp, model.OutcomeWon},
		{30, model.TeamBlue, model.ActionShot, model.OutcomeGoal},
		{25, model.TeamRed, model.ActionShot, model.OutcomeOnePoint},
		{40, model.TeamRed, model.ActionShot, model.OutcomeOnePoint},
		{41, model.TeamBlue, model.ActionKickout, model.OutcomeLost},
		{60, model.TeamRed, model.ActionTurnover, model.OutcomeWon},
		{70, model.TeamBlue, model.ActionTurnover, model.OutcomeWon},
		{65, model.TeamBlue, model.ActionFoul, model.OutcomeAwardedTo},
		{80, model.TeamRed, model.ActionTurnover, model.OutcomeLost},
		{90, model.TeamBlue, model.ActionShot, model.OutcomeWide},
		{91, model.TeamRed, model.ActionKickout, model.OutcomeWon},
		{95, model.TeamBlue, model.ActionKickIn, model.OutcomeLost},
	}

	Convey("Given a noisy tag sequence", t, func() {
		s := newSession()
		for _, st := range steps {
			tagAndSave(s, st.t, st.team, st.action, st.outcome)
		}
		history := s.State().History
		So(len(history), ShouldBeGreaterThan, 5)

		Convey("Then times never decrease", func() {
			for i := 1; i < len(history); i++ {
				So(history[i].Time, ShouldBeGreaterThanOrEqualTo, history[i-1].Time)
			}
		})

		Convey("Then possession was held before each shot and turnover won", func() {
			for i, e := range history {
				if e.AutoGenerated {
					continue
				}
				if e.Action == model.ActionShot || (e.Action == model.ActionTurnover && e.Outcome == model.OutcomeWon) {
					So(tracker.Replay(history[:i]).Possession, ShouldEqual, e.Team)
				}
			}
		})

		Convey("Then each turnover lost is followed by exactly one generated turnover won", func() {
			for i, e := range history {
				if e.Action != model.ActionTurnover || e.Outcome != model.OutcomeLost {
					continue
				}
				So(i+1, ShouldBeLessThan, len(history))
				next := history[i+1]
				So(next.AutoGenerated, ShouldBeTrue)
				So(next.Team, ShouldEqual, e.Team.Opponent())
				So(next.Time, ShouldEqual, e.Time)
			}
		})

		Convey("Then replaying the history twice gives the same state", func() {
			So(tracker.Replay(history), ShouldResemble, tracker.Replay(history))
			st := s.State()
			So(tracker.Replay(history), ShouldResemble, tracker.State{Possession: st.Possession, Score: st.Score})
		})
	})
}
