package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielpatrickdp/laborguide/internal/logging"
	"github.com/danielpatrickdp/laborguide/internal/state"
)

// #region next-action
// ActionKind is what the caller should present next.
type ActionKind string

const (
	ActionAsk       ActionKind = "ask"
	ActionGuide     ActionKind = "guide"
	ActionEmergency ActionKind = "emergency"
)

// NextAction tells the caller what to render. Exactly one of Decision
// (ask), Stage (guide) or Emergency (emergency) is meaningful.
type NextAction struct {
	Action    ActionKind          `json:"action"`
	Decision  state.DecisionID    `json:"decision_id,omitempty"`
	Stage     state.Stage         `json:"stage,omitempty"`
	Emergency state.EmergencyType `json:"emergency_type,omitempty"`
}

// #endregion next-action

// #region errors
// ErrNoActiveSession is returned by state-dependent operations when no session exists.
var ErrNoActiveSession = errors.New("no active labor session")

// InvalidStageTransitionError reports a manual advance outside the transition table.
type InvalidStageTransitionError struct {
	From state.Stage
	To   state.Stage
}

func (e *InvalidStageTransitionError) Error() string {
	return fmt.Sprintf("invalid stage transition: %s -> %s", e.From, e.To)
}

// PersistenceError wraps a failed store read or write. The mutation it
// belonged to was not applied.
type PersistenceError struct {
	Op  string // "load" | "save" | "clear"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("labor state %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// #endregion errors

// #region audit-sink
// AuditSink receives an event for every committed mutation.
type AuditSink interface {
	Record(ctx context.Context, e logging.Event) error
}

// #endregion audit-sink
