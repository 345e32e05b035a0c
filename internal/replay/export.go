package replay

import (
	"fmt"

	"github.com/danielpatrickdp/laborguide/internal/engine"
	"github.com/danielpatrickdp/laborguide/internal/logging"
	"github.com/danielpatrickdp/laborguide/internal/stage"
	"github.com/danielpatrickdp/laborguide/internal/state"
)

// #region export

// FromAudit rebuilds a fixture from a session's audit trail. initial, when
// known, supplies the original assessment; otherwise one is synthesized that
// classifies into the recorded starting stage. Emergency steps carry an
// expectation and the fixture expects the session's last recorded state.
func FromAudit(events []logging.Event, initial *state.LaborState) (Fixture, error) {
	if len(events) == 0 || events[0].Kind != logging.EventSessionStarted {
		return Fixture{}, fmt.Errorf("audit trail does not start with %s", logging.EventSessionStarted)
	}
	start := events[0]

	f := Fixture{
		Description: fmt.Sprintf("exported from session %s", start.SessionID),
	}
	if initial != nil {
		f.Assessment = stage.Assessment{
			MonthsPregnant:     initial.MonthsPregnant,
			ContractionMinutes: initial.ContractionMinutes,
			WaterBroken:        initial.WaterBroken,
			UrgeToPush:         initial.UrgeToPush,
		}
	} else {
		f.Assessment = assessmentFor(state.Stage(start.Stage))
	}

	final := FinalState{Stage: state.Stage(start.Stage)}
	last := start.CreatedAt
	for _, ev := range events[1:] {
		if ev.Kind == logging.EventSessionEnded {
			break
		}
		if gap := ev.CreatedAt.Sub(last); gap > 0 {
			f.Steps = append(f.Steps, Step{Kind: StepWait, Minutes: gap.Minutes()})
		}
		last = ev.CreatedAt

		switch ev.Kind {
		case logging.EventDecisionRecorded:
			f.Steps = append(f.Steps, Step{
				Kind:     StepAnswer,
				Decision: state.DecisionID(ev.Decision),
				Response: ev.Response,
			})
			final.Decisions++
		case logging.EventEmergencyRaised:
			emergency := state.EmergencyType(ev.Emergency)
			f.Steps = append(f.Steps, Step{
				Kind:     StepAnswer,
				Decision: state.DecisionID(ev.Decision),
				Response: ev.Response,
				Expect:   &engine.NextAction{Action: engine.ActionEmergency, Emergency: emergency},
			})
			final.Decisions++
			final.EmergencyActive = true
			final.EmergencyType = emergency
		case logging.EventStageAdvanced:
			f.Steps = append(f.Steps, Step{Kind: StepAdvance, Stage: state.Stage(ev.Stage)})
		case logging.EventEmergencyCleared:
			f.Steps = append(f.Steps, Step{Kind: StepClear})
			final.EmergencyActive = false
			final.EmergencyType = state.EmergencyNone
		default:
			continue
		}
		if ev.Stage != "" {
			final.Stage = state.Stage(ev.Stage)
		}
	}

	for i := range f.Steps {
		f.Steps[i].ID = fmt.Sprintf("step-%02d", i+1)
	}
	f.ExpectFinal = &final
	return f, nil
}

// assessmentFor returns an assessment that classifies into s. Stages that
// are only reachable by advancing fall back to pushing.
func assessmentFor(s state.Stage) stage.Assessment {
	a := stage.Assessment{MonthsPregnant: 9}
	switch s {
	case state.StageEarly:
		a.ContractionMinutes = 10
	case state.StageActive:
		a.ContractionMinutes = 4
	case state.StageTransition:
		a.ContractionMinutes = 2
		a.WaterBroken = true
	default:
		a.ContractionMinutes = 2
		a.WaterBroken = true
		a.UrgeToPush = true
	}
	return a
}

// #endregion export
