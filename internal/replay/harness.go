// Package replay drives scripted sessions through a fresh engine and checks
// the resulting next actions against recorded expectations.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/danielpatrickdp/laborguide/internal/decision"
	"github.com/danielpatrickdp/laborguide/internal/engine"
	"github.com/danielpatrickdp/laborguide/internal/gate"
	"github.com/danielpatrickdp/laborguide/internal/state"
)

// Epoch is the fake clock's start time for every replay.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Error classes used in Step.ExpectError.
const (
	ErrClassInvalidTransition = "invalid_stage_transition"
	ErrClassInvalidResponse   = "invalid_response"
	ErrClassUnknownDecision   = "unknown_decision"
	ErrClassNoSession         = "no_active_session"
	ErrClassPersistence       = "persistence"
)

// #region types

// StepResult captures the outcome of replaying one step.
type StepResult struct {
	Index    int
	Step     Step
	Next     engine.NextAction
	Err      error
	Mismatch string
}

func (r StepResult) OK() bool { return r.Mismatch == "" }

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalSteps    int
	Matched       int
	Mismatched    int
	Errors        int
	Emergencies   int
	FinalMismatch string
	Final         state.LaborState
}

// #endregion types

// #region replay

// Run replays f on an in-memory store with a fake clock. The returned error
// covers setup failures only; per-step divergence is reported in the results.
func Run(ctx context.Context, f Fixture) ([]StepResult, state.LaborState, error) {
	if err := f.Validate(); err != nil {
		return nil, state.LaborState{}, err
	}

	now := Epoch
	clock := func() time.Time { return now }

	cfg := gate.DefaultConfig()
	if f.Config.RetainedPlacentaMinutes > 0 {
		cfg.RetainedPlacentaMinutes = f.Config.RetainedPlacentaMinutes
	}

	e := engine.New(state.NewMemoryStore(),
		engine.WithClock(clock),
		engine.WithGateConfig(cfg),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithSessionIDs(func() string { return "replay" }),
	)
	if _, err := e.InitializeSession(ctx, f.Assessment); err != nil {
		return nil, state.LaborState{}, fmt.Errorf("initialize session: %w", err)
	}

	results := make([]StepResult, 0, len(f.Steps))
	for i, step := range f.Steps {
		r := StepResult{Index: i, Step: step}

		switch step.Kind {
		case StepAnswer:
			r.Err = e.Answer(ctx, step.Decision, step.Response)
		case StepAdvance:
			r.Err = e.AdvanceToStage(ctx, step.Stage)
		case StepClear:
			r.Err = e.ClearEmergency(ctx)
		case StepWait:
			now = now.Add(time.Duration(step.Minutes * float64(time.Minute)))
		}

		next, err := e.NextAction(ctx)
		if err != nil {
			return results, state.LaborState{}, fmt.Errorf("step %d: next action: %w", i, err)
		}
		r.Next = next
		r.Mismatch = compare(step, r.Err, next)
		results = append(results, r)
	}

	final, err := e.CurrentState(ctx)
	if err != nil {
		return results, state.LaborState{}, err
	}
	return results, *final, nil
}

func compare(step Step, err error, next engine.NextAction) string {
	got := ErrorClass(err)
	if got != step.ExpectError {
		if step.ExpectError == "" {
			return fmt.Sprintf("unexpected error: %v", err)
		}
		return fmt.Sprintf("expected error %s, got %q", step.ExpectError, got)
	}
	if step.Expect != nil && *step.Expect != next {
		return fmt.Sprintf("expected next %s, got %s", FormatAction(*step.Expect), FormatAction(next))
	}
	return ""
}

// ErrorClass maps an engine error onto the names fixtures use.
func ErrorClass(err error) string {
	var transition *engine.InvalidStageTransitionError
	var invalid *decision.InvalidResponseError
	var persist *engine.PersistenceError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &transition):
		return ErrClassInvalidTransition
	case errors.As(err, &invalid):
		return ErrClassInvalidResponse
	case errors.Is(err, decision.ErrUnknownDecision):
		return ErrClassUnknownDecision
	case errors.Is(err, engine.ErrNoActiveSession):
		return ErrClassNoSession
	case errors.As(err, &persist):
		return ErrClassPersistence
	}
	return err.Error()
}

// FormatAction renders a next action as "ask:bleeding", "guide:pushing" or "emergency:breech".
func FormatAction(a engine.NextAction) string {
	switch a.Action {
	case engine.ActionAsk:
		return fmt.Sprintf("ask:%s", a.Decision)
	case engine.ActionGuide:
		return fmt.Sprintf("guide:%s", a.Stage)
	case engine.ActionEmergency:
		return fmt.Sprintf("emergency:%s", a.Emergency)
	}
	return string(a.Action)
}

// Summarize computes aggregate stats from replay results and checks the
// final state against expect, when given.
func Summarize(results []StepResult, final state.LaborState, expect *FinalState) Summary {
	s := Summary{
		TotalSteps: len(results),
		Final:      final,
	}
	for _, r := range results {
		if r.OK() {
			s.Matched++
		} else {
			s.Mismatched++
		}
		if r.Err != nil {
			s.Errors++
		}
		if r.Next.Action == engine.ActionEmergency {
			s.Emergencies++
		}
	}
	if expect != nil {
		got := FinalState{
			Stage:           final.Stage,
			EmergencyActive: final.EmergencyActive,
			EmergencyType:   final.EmergencyType,
			Decisions:       len(final.DecisionsMade),
		}
		if got != *expect {
			s.FinalMismatch = fmt.Sprintf("expected final %+v, got %+v", *expect, got)
		}
	}
	return s
}

// Passed reports whether every step and the final state matched.
func (s Summary) Passed() bool {
	return s.Mismatched == 0 && s.FinalMismatch == ""
}

// #endregion replay
