// Package gate decides whether a recorded answer escalates into an emergency.
package gate

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/laborguide/internal/decision"
	"github.com/danielpatrickdp/laborguide/internal/state"
)

// #region gate
// Gate resolves catalog triggers into emergency escalations.
type Gate struct {
	config Config
}

// New creates a gate with the given configuration.
func New(config Config) *Gate {
	return &Gate{config: config}
}

// Evaluate checks r against p's trigger set and applies the special cases:
// presentation "other" escalates as cord prolapse, and an undelivered
// placenta only escalates once the configured time since birth has passed.
// s is the state before the answer is applied.
func (g *Gate) Evaluate(p decision.Point, r decision.Response, s state.LaborState, now time.Time) Decision {
	if !p.IsTrigger(r) {
		return Decision{
			Action: ActionRecord,
			Reason: fmt.Sprintf("%s=%s is not a trigger", p.ID, r),
		}
	}

	if p.ID == state.DecisionPlacenta && r == decision.No {
		mins := s.MinutesSinceBirth(now)
		if mins < g.config.RetainedPlacentaMinutes {
			return Decision{
				Action:    ActionRecord,
				Triggered: true,
				Reason: fmt.Sprintf("placenta not delivered %d min after birth, under %d min threshold",
					mins, g.config.RetainedPlacentaMinutes),
			}
		}
	}

	emergency := p.Emergency
	if p.ID == state.DecisionPresentation && r == decision.Other {
		emergency = state.EmergencyCordProlapse
	}

	if emergency == state.EmergencyNone {
		return Decision{
			Action:    ActionRecord,
			Triggered: true,
			Reason:    fmt.Sprintf("%s=%s has no emergency protocol", p.ID, r),
		}
	}

	return Decision{
		Action:    ActionEscalate,
		Emergency: emergency,
		Triggered: true,
		Reason:    fmt.Sprintf("%s=%s escalates to %s", p.ID, r, emergency),
	}
}

// #endregion gate
