package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/danielpatrickdp/laborguide/internal/decision"
	"github.com/danielpatrickdp/laborguide/internal/logging"
	"github.com/danielpatrickdp/laborguide/internal/stage"
	"github.com/danielpatrickdp/laborguide/internal/state"
)

// #region handle-response
// HandleDecisionResponse appends the answer to the decisions-made log, then
// either escalates into an emergency or applies stage progression, and
// persists the result. The answer is recorded even when the decision is not
// currently applicable or was answered before.
func (e *Engine) HandleDecisionResponse(ctx context.Context, id state.DecisionID, r decision.Response) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, err := e.load(ctx)
	if err != nil {
		return err
	}
	p, ok := decision.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %q", decision.ErrUnknownDecision, id)
	}
	if !p.Accepts(r) {
		return &decision.InvalidResponseError{Decision: id, Value: string(r)}
	}

	now := e.now()
	next := cur.Clone()
	next.DecisionsMade = append(next.DecisionsMade, state.DecisionRecord{
		Decision: id,
		Response: string(r),
		At:       now,
	})

	verdict := e.gate.Evaluate(p, r, *cur, now)
	ev := logging.Event{
		Decision: string(id),
		Response: string(r),
		Reason:   verdict.Reason,
	}

	if verdict.Escalates() {
		next.EmergencyActive = true
		next.EmergencyType = verdict.Emergency
		ev.Kind = logging.EventEmergencyRaised
		ev.Emergency = string(verdict.Emergency)
		ev.Stage = string(next.Stage)
		if err := e.commit(ctx, next, ev); err != nil {
			return err
		}
		e.metrics.IncrementDecisions(string(id), string(r))
		e.metrics.IncrementEmergencies(string(verdict.Emergency))
		e.logger.WarnContext(ctx, "emergency raised",
			"session_id", next.SessionID, "decision", id, "response", r,
			"emergency_type", verdict.Emergency, "reason", verdict.Reason)
		return nil
	}

	from := next.Stage
	e.progress(ctx, &next, id, r, now)
	ev.Kind = logging.EventDecisionRecorded
	ev.Stage = string(next.Stage)
	if err := e.commit(ctx, next, ev); err != nil {
		return err
	}
	e.metrics.IncrementDecisions(string(id), string(r))
	if next.Stage != from {
		e.metrics.IncrementStageTransitions(string(from), string(next.Stage))
	}
	e.logger.InfoContext(ctx, "decision recorded",
		"session_id", next.SessionID, "decision", id, "response", r,
		"stage", next.Stage, "reason", verdict.Reason)
	return nil
}

// Answer parses a raw answer value at the boundary and records it.
func (e *Engine) Answer(ctx context.Context, id state.DecisionID, raw string) error {
	r, err := decision.ParseResponse(id, raw)
	if err != nil {
		return err
	}
	return e.HandleDecisionResponse(ctx, id, r)
}

// progress applies the stage rules for a non-escalating answer. The only
// answer that moves the stage is a breathing baby, which ends the birth stage.
func (e *Engine) progress(ctx context.Context, s *state.LaborState, id state.DecisionID, r decision.Response, now time.Time) {
	if id != state.DecisionBabyBreathing || r != decision.Yes {
		return
	}
	if s.Stage != state.StageBirth {
		e.logger.WarnContext(ctx, "baby_breathing answered outside birth stage, stage unchanged",
			"session_id", s.SessionID, "stage", s.Stage)
		return
	}
	s.Stage = state.StagePostpartum
	markBirth(s, now)
}

// #endregion handle-response

// #region advance
// AdvanceToStage moves the session forward along the manual transition table.
// A transition outside the table fails without touching state.
func (e *Engine) AdvanceToStage(ctx context.Context, to state.Stage) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, err := e.load(ctx)
	if err != nil {
		return err
	}
	if !stage.CanAdvance(cur.Stage, to) {
		return &InvalidStageTransitionError{From: cur.Stage, To: to}
	}

	from := cur.Stage
	next := cur.Clone()
	next.Stage = to
	if to == state.StageBirth {
		markBirth(&next, e.now())
	}

	if err := e.commit(ctx, next, logging.Event{
		Kind:   logging.EventStageAdvanced,
		Stage:  string(to),
		Reason: fmt.Sprintf("manual advance from %s", from),
	}); err != nil {
		return err
	}
	e.metrics.IncrementStageTransitions(string(from), string(to))
	e.logger.InfoContext(ctx, "stage advanced", "session_id", next.SessionID, "from", from, "to", to)
	return nil
}

// markBirth sets the birth timestamp the first time the baby is known to be delivered.
func markBirth(s *state.LaborState, now time.Time) {
	if s.BirthTimestamp == nil {
		t := now
		s.BirthTimestamp = &t
	}
}

// #endregion advance

// #region clear-emergency
// ClearEmergency resets the emergency flag once the emergency procedure has been
// completed or explicitly exited. It is the only path that lowers the flag.
func (e *Engine) ClearEmergency(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, err := e.load(ctx)
	if err != nil {
		return err
	}
	if !cur.EmergencyActive {
		return nil
	}

	cleared := cur.EmergencyType
	next := cur.Clone()
	next.EmergencyActive = false
	next.EmergencyType = state.EmergencyNone

	if err := e.commit(ctx, next, logging.Event{
		Kind:      logging.EventEmergencyCleared,
		Stage:     string(next.Stage),
		Emergency: string(cleared),
	}); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "emergency cleared", "session_id", next.SessionID, "emergency_type", cleared)
	return nil
}

// #endregion clear-emergency
