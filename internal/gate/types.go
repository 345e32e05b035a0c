package gate

import "github.com/danielpatrickdp/laborguide/internal/state"

// #region action
// Action is the gate outcome for one answer.
type Action string

const (
	// ActionRecord stores the answer without escalating.
	ActionRecord Action = "record"
	// ActionEscalate raises an emergency and skips stage progression.
	ActionEscalate Action = "escalate"
)

// #endregion action

// #region gate-config
// Config holds the timing thresholds the gate applies.
type Config struct {
	// RetainedPlacentaMinutes is how long after birth an undelivered placenta
	// becomes an emergency.
	RetainedPlacentaMinutes int
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{RetainedPlacentaMinutes: 60}
}

// #endregion gate-config

// #region gate-decision
// Decision is the output of the gate evaluation.
type Decision struct {
	Action    Action
	Emergency state.EmergencyType // set only for ActionEscalate
	Triggered bool                // the answer was in the trigger set
	Reason    string
}

// Escalates reports whether the decision raises an emergency.
func (d Decision) Escalates() bool {
	return d.Action == ActionEscalate
}

// #endregion gate-decision
