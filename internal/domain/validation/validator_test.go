package validation_test

import (
	"testing"

	"github.com/okian/matchtag/internal/domain/model"
	"github.com/okian/matchtag/internal/domain/validation"
	. "github.com/smartystreets/goconvey/convey"
)

func tag(t float64, team model.Team, action model.Action, outcome *model.Outcome) model.PartialEvent {
	return model.PartialEvent{ID: "cand", Time: model.Ptr(t), Team: model.Ptr(team), Action: model.Ptr(action), Outcome: outcome}
}

func codes(issues []model.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Code)
	}
	return out
}

func TestValidate_Temporal(t *testing.T) {
	Convey("Given an empty history", t, func() {
		state := model.MatchState{}

		Convey("When the opening throw-up is at time 0", func() {
			r := validation.Validate(tag(0, model.TeamRed, model.ActionThrowUp, model.Ptr(model.OutcomeWon)), nil, state)

			Convey("Then it is valid", func() {
				So(r.Valid, ShouldBeTrue)
				So(r.Errors, ShouldBeEmpty)
			})
		})

		Convey("When the time is negative", func() {
			r := validation.Validate(tag(-1, model.TeamRed, model.ActionThrowUp, nil), nil, state)

			Convey("Then it is rejected", func() {
				So(r.Valid, ShouldBeFalse)
				So(codes(r.Errors), ShouldContain, validation.CodeNegativeTime)
			})
		})
	})

	Convey("Given a history ending at 120s", t, func() {
		history := []model.Event{
			{ID: "a", Time: 0, Team: model.TeamRed, Action: model.ActionThrowUp, Outcome: model.OutcomeWon},
			{ID: "b", Time: 120, Team: model.TeamRed, Action: model.ActionTurnover, Outcome: model.OutcomeLost},
		}
		state := model.MatchState{Possession: model.TeamBlue}

		Convey("When a candidate is earlier than the last event", func() {
			r := validation.Validate(tag(100, model.TeamBlue, model.ActionKickIn, model.Ptr(model.OutcomeWon)), history, state)

			Convey("Then a temporal order error is reported", func() {
				So(r.Valid, ShouldBeFalse)
				So(codes(r.Errors), ShouldResemble, []string{validation.CodeTemporalOrder})
			})
		})

		Convey("When a candidate is at the same time as the last event", func() {
			r := validation.Validate(tag(120, model.TeamBlue, model.ActionKickIn, model.Ptr(model.OutcomeWon)), history, state)

			Convey("Then it is accepted", func() {
				So(r.Valid, ShouldBeTrue)
			})
		})

		Convey("When a second throw-up comes before the last event", func() {
			r := validation.Validate(tag(50, model.TeamBlue, model.ActionThrowUp, model.Ptr(model.OutcomeWon)), history, state)

			Convey("Then the throw-up exception does not apply", func() {
				So(codes(r.Errors), ShouldContain, validation.CodeTemporalOrder)
			})
		})
	})
}

func TestValidate_Completeness(t *testing.T) {
	Convey("Given red in possession", t, func() {
		state := model.MatchState{Possession: model.TeamRed}

		Convey("When a shot has no outcome", func() {
			r := validation.Validate(tag(10, model.TeamRed, model.ActionShot, nil), nil, state)

			Convey("Then it must specify an outcome", func() {
				So(r.Valid, ShouldBeFalse)
				So(r.Errors[0].Code, ShouldEqual, validation.CodeMissingOutcome)
				So(r.Errors[0].Message, ShouldEqual, "Shot events must specify outcome")
			})
		})

		Convey("When a kickout has no outcome", func() {
			r := validation.Validate(tag(10, model.TeamRed, model.ActionKickout, nil), nil, state)
			So(codes(r.Errors), ShouldContain, validation.CodeMissingOutcome)
		})

		Convey("When a foul has no outcome", func() {
			r := validation.Validate(tag(10, model.TeamRed, model.ActionFoul, nil), nil, state)

			Convey("Then the single legal outcome is implied", func() {
				So(r.Valid, ShouldBeTrue)
			})
		})

		Convey("When an outcome does not fit the action", func() {
			r := validation.Validate(tag(10, model.TeamRed, model.ActionKickout, model.Ptr(model.OutcomeGoal)), nil, state)
			So(codes(r.Errors), ShouldContain, validation.CodeIllegalOutcome)
		})

		Convey("When the action or team is missing", func() {
			r := validation.Validate(model.PartialEvent{Time: model.Ptr(1.0)}, nil, state)
			So(codes(r.Errors), ShouldResemble, []string{validation.CodeMissingAction})

			r = validation.Validate(model.PartialEvent{Time: model.Ptr(1.0), Action: model.Ptr(model.ActionFoul)}, nil, state)
			So(codes(r.Errors), ShouldContain, validation.CodeMissingTeam)
		})

		Convey("When a whistle has no team", func() {
			r := validation.Validate(model.PartialEvent{Time: model.Ptr(1800.0), Action: model.Ptr(model.ActionHalfTimeWhistle)}, nil, state)

			Convey("Then it is valid", func() {
				So(r.Valid, ShouldBeTrue)
			})
		})
	})
}

func TestValidate_Possession(t *testing.T) {
	Convey("Given red in possession", t, func() {
		state := model.MatchState{Possession: model.TeamRed}

		Convey("When blue shoots", func() {
			r := validation.Validate(tag(10, model.TeamBlue, model.ActionShot, model.Ptr(model.OutcomeGoal)), nil, state)

			Convey("Then a possession error with a suggestion is reported", func() {
				So(r.Valid, ShouldBeFalse)
				So(r.Errors[0].Code, ShouldEqual, validation.CodePossession)
				So(r.Errors[0].Suggestion, ShouldNotBeBlank)
			})
		})

		Convey("When red shoots", func() {
			r := validation.Validate(tag(10, model.TeamRed, model.ActionShot, model.Ptr(model.OutcomeGoal)), nil, state)
			So(r.Valid, ShouldBeTrue)
		})

		Convey("When blue records a turnover won", func() {
			r := validation.Validate(tag(10, model.TeamBlue, model.ActionTurnover, model.Ptr(model.OutcomeWon)), nil, state)
			So(codes(r.Errors), ShouldContain, validation.CodePossession)
		})

		Convey("When blue records a turnover lost", func() {
			r := validation.Validate(tag(10, model.TeamBlue, model.ActionTurnover, model.Ptr(model.OutcomeLost)), nil, state)
			So(r.Valid, ShouldBeTrue)
		})
	})

	Convey("Given no team in possession", t, func() {
		r := validation.Validate(tag(10, model.TeamRed, model.ActionShot, model.Ptr(model.OutcomeWide)), nil, model.MatchState{})
		So(codes(r.Errors), ShouldContain, validation.CodePossession)
	})
}

func TestValidate_KickoutSequence(t *testing.T) {
	Convey("Given blue in possession", t, func() {
		state := model.MatchState{Possession: model.TeamBlue}

		Convey("When a kickout follows a score", func() {
			history := []model.Event{{Time: 300, Team: model.TeamRed, Action: model.ActionShot, Outcome: model.OutcomeGoal}}
			r := validation.Validate(tag(301, model.TeamBlue, model.ActionKickout, model.Ptr(model.OutcomeWon)), history, state)

			Convey("Then there is no warning", func() {
				So(r.Valid, ShouldBeTrue)
				So(r.Warnings, ShouldBeEmpty)
			})
		})

		Convey("When a kickout follows nothing relevant", func() {
			history := []model.Event{{Time: 300, Team: model.TeamBlue, Action: model.ActionTurnover, Outcome: model.OutcomeWon}}
			r := validation.Validate(tag(301, model.TeamBlue, model.ActionKickout, model.Ptr(model.OutcomeWon)), history, state)

			Convey("Then a warning is raised but the save is not blocked", func() {
				So(r.Valid, ShouldBeTrue)
				So(codes(r.Warnings), ShouldResemble, []string{validation.CodeSuspiciousKickout})
				So(r.Warnings[0].Severity, ShouldEqual, model.SeverityWarning)
			})
		})

		Convey("When the score is outside the window", func() {
			history := []model.Event{{Time: 10, Team: model.TeamRed, Action: model.ActionShot, Outcome: model.OutcomeWide}}
			v := validation.New(validation.WithKickoutWindow(3, 30))
			r := v.Validate(tag(100, model.TeamBlue, model.ActionKickout, model.Ptr(model.OutcomeWon)), history, state)
			So(codes(r.Warnings), ShouldContain, validation.CodeSuspiciousKickout)
		})
	})
}

func TestValidateCard(t *testing.T) {
	Convey("Given a foul candidate", t, func() {
		foul := tag(10, model.TeamRed, model.ActionFoul, nil)

		So(validation.ValidateCard(model.CardInfo{Card: model.ActionYellowCard}, foul), ShouldBeEmpty)

		issues := validation.ValidateCard(model.CardInfo{Card: model.ActionShot}, foul)
		So(codes(issues), ShouldResemble, []string{validation.CodeIllegalCard})

		issues = validation.ValidateCard(model.CardInfo{Card: model.ActionRedCard}, tag(10, model.TeamRed, model.ActionShot, nil))
		So(codes(issues), ShouldResemble, []string{validation.CodeCardRequiresFoul})
	})
}
