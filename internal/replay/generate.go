package replay

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/okian/matchtag/internal/domain/model"
)

const (
	halfLength    = 35 * 60.0
	halfTimeBreak = 15 * 60.0
	maxPlays      = 200
)

// Generate builds a plausible match of roughly plays tags per half from a
// seeded faker. The same seed yields the same script.
func Generate(seed uint64, plays int) Script {
	plays = min(max(plays, 0), maxPlays)
	f := gofakeit.New(seed)
	g := generator{f: f}

	s := Script{
		MatchID: fmt.Sprintf("gen-%d", seed),
		Teams: map[string]Team{
			string(model.TeamRed):  {Name: f.Company(), Color: f.HexColor()},
			string(model.TeamBlue): {Name: f.Company(), Color: f.HexColor()},
		},
	}

	start := f.Float64Range(0, 30)
	s.Steps = append(s.Steps, g.half(start, plays)...)
	s.Steps = append(s.Steps, Step{Kind: StepTag, Time: start + halfLength, Action: string(model.ActionHalfTimeWhistle)})
	s.Steps = append(s.Steps, Step{Kind: StepHalf})

	second := start + halfLength + halfTimeBreak
	s.Steps = append(s.Steps, g.half(second, plays)...)
	s.Steps = append(s.Steps, Step{Kind: StepTag, Time: second + halfLength, Action: string(model.ActionFullTimeWhistle)})
	return s
}

type generator struct {
	f          *gofakeit.Faker
	possession model.Team
}

func (g *generator) team() model.Team {
	if g.f.Bool() {
		return model.TeamRed
	}
	return model.TeamBlue
}

// half opens with a throw-up at start and spreads plays over the half.
func (g *generator) half(start float64, plays int) []Step {
	g.possession = g.team()
	steps := []Step{{
		Kind: StepTag, Time: start, Team: string(g.possession),
		Action: string(model.ActionThrowUp), Outcome: string(model.OutcomeWon),
	}}
	if plays <= 0 {
		return steps
	}
	gap := (halfLength - 60) / float64(plays)
	t := start
	for i := 0; i < plays; i++ {
		t += g.f.Float64Range(gap/2, gap)
		steps = append(steps, g.play(t)...)
	}
	return steps
}

// play returns the tags of one passage of play at t. A score or wide is
// followed by the kickout it seeds.
func (g *generator) play(t float64) []Step {
	on := g.possession
	off := on.Opponent()
	step := Step{Kind: StepTag, Time: t, Confirm: true}

	switch g.f.Number(0, 9) {
	case 0, 1, 2, 3:
		shot := model.Outcome(g.f.RandomString([]string{
			string(model.OutcomeOnePoint), string(model.OutcomeOnePoint), string(model.OutcomeTwoPoint),
			string(model.OutcomeGoal), string(model.OutcomeWide), string(model.OutcomeSaved),
		}))
		step.Team, step.Action, step.Outcome = string(on), string(model.ActionShot), string(shot)
		g.possession = off
		if shot.EndsPossession() {
			kickout := Step{
				Kind: StepTag, Time: t + 1, Team: string(off), Confirm: true,
				Action: string(model.ActionKickout), Outcome: string(model.OutcomeWon),
			}
			return []Step{step, kickout}
		}
	case 4, 5, 6:
		step.Team, step.Action, step.Outcome = string(off), string(model.ActionTurnover), string(model.OutcomeWon)
		g.possession = off
	case 7, 8:
		// The foul's team is the side awarded the free.
		step.Team, step.Action, step.Outcome = string(off), string(model.ActionFoul), string(model.OutcomeAwardedTo)
		g.possession = off
		if g.f.Number(0, 4) == 0 {
			step.Card = g.f.RandomString([]string{
				string(model.ActionYellowCard), string(model.ActionYellowCard), string(model.ActionBlackCard), string(model.ActionRedCard),
			})
		}
	default:
		step.Team, step.Action, step.Outcome = string(on), string(model.ActionKickIn), string(model.OutcomeWon)
	}
	return []Step{step}
}
