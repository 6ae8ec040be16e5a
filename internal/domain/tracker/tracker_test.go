package tracker_test

import (
	"testing"

	"github.com/okian/matchtag/internal/domain/model"
	"github.com/okian/matchtag/internal/domain/tracker"
	. "github.com/smartystreets/goconvey/convey"
)

func ev(team model.Team, action model.Action, outcome model.Outcome) model.Event {
	return model.Event{Team: team, Action: action, Outcome: outcome}
}

func TestApply_Possession(t *testing.T) {
	Convey("Given red in possession", t, func() {
		start := tracker.State{Possession: model.TeamRed}

		cases := []struct {
			name string
			e    model.Event
			want model.Team
		}{
			{"throw-up won by blue", ev(model.TeamBlue, model.ActionThrowUp, model.OutcomeWon), model.TeamBlue},
			{"turnover won by blue", ev(model.TeamBlue, model.ActionTurnover, model.OutcomeWon), model.TeamBlue},
			{"turnover lost by red", ev(model.TeamRed, model.ActionTurnover, model.OutcomeLost), model.TeamBlue},
			{"kickout won by red", ev(model.TeamRed, model.ActionKickout, model.OutcomeWon), model.TeamRed},
			{"kickout lost by red", ev(model.TeamRed, model.ActionKickout, model.OutcomeLost), model.TeamBlue},
			{"kick-in lost by blue", ev(model.TeamBlue, model.ActionKickIn, model.OutcomeLost), model.TeamRed},
			{"foul awarded to blue", ev(model.TeamBlue, model.ActionFoul, model.OutcomeAwardedTo), model.TeamBlue},
			{"yellow card to red", ev(model.TeamRed, model.ActionYellowCard, model.OutcomeNA), model.TeamBlue},
			{"black card to blue", ev(model.TeamBlue, model.ActionBlackCard, model.OutcomeNA), model.TeamRed},
			{"red point", ev(model.TeamRed, model.ActionShot, model.OutcomeOnePoint), model.TeamBlue},
			{"red wide", ev(model.TeamRed, model.ActionShot, model.OutcomeWide), model.TeamBlue},
			{"red saved", ev(model.TeamRed, model.ActionShot, model.OutcomeSaved), model.TeamRed},
			{"half time whistle", ev(model.PlaceholderTeam, model.ActionHalfTimeWhistle, model.OutcomeNA), model.TeamRed},
		}

		for _, c := range cases {
			Convey("When applying "+c.name, func() {
				got := tracker.Apply(start, c.e)
				So(got.Possession, ShouldEqual, c.want)
			})
		}
	})
}

func TestApply_Score(t *testing.T) {
	Convey("Given an empty state", t, func() {
		s := tracker.State{}

		Convey("When red scores a goal, a two-pointer and a point and blue goes wide", func() {
			s = tracker.Apply(s, ev(model.TeamRed, model.ActionShot, model.OutcomeGoal))
			s = tracker.Apply(s, ev(model.TeamRed, model.ActionShot, model.OutcomeTwoPoint))
			s = tracker.Apply(s, ev(model.TeamRed, model.ActionShot, model.OutcomeOnePoint))
			s = tracker.Apply(s, ev(model.TeamBlue, model.ActionShot, model.OutcomeWide))

			Convey("Then only red's total moves", func() {
				So(s.Score.Red.Total(), ShouldEqual, 6)
				So(s.Score.Red.Goals, ShouldEqual, 1)
				So(s.Score.Blue.Total(), ShouldEqual, 0)
			})
		})

		Convey("When a non-shot carries a scoring outcome string", func() {
			s = tracker.Apply(s, ev(model.TeamRed, model.ActionTurnover, model.OutcomeGoal))

			Convey("Then the score is unchanged", func() {
				So(s.Score.Red.Total(), ShouldEqual, 0)
			})
		})
	})
}

func TestReplay_Deterministic(t *testing.T) {
	Convey("Given an ordered event list", t, func() {
		events := []model.Event{
			ev(model.TeamRed, model.ActionThrowUp, model.OutcomeWon),
			ev(model.TeamRed, model.ActionShot, model.OutcomeGoal),
			ev(model.TeamBlue, model.ActionKickout, model.OutcomeLost),
			ev(model.TeamRed, model.ActionTurnover, model.OutcomeWon),
			ev(model.TeamRed, model.ActionShot, model.OutcomeTwoPoint),
			ev(model.TeamBlue, model.ActionKickout, model.OutcomeWon),
			ev(model.TeamBlue, model.ActionShot, model.OutcomeOnePoint),
		}

		Convey("When replaying it twice", func() {
			first := tracker.Replay(events)
			second := tracker.Replay(events)

			Convey("Then both runs agree", func() {
				So(second, ShouldResemble, first)
				So(first.Possession, ShouldEqual, model.TeamRed)
				So(first.Score.Red.Total(), ShouldEqual, 5)
				So(first.Score.Blue.Total(), ShouldEqual, 1)
			})
		})
	})
}
