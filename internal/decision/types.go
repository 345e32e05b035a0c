package decision

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/laborguide/internal/state"
)

// #region response
// Response is a typed answer value. Each decision accepts only its own closed set.
type Response string

const (
	// presentation
	Head    Response = "head"
	Breech  Response = "breech"
	Other   Response = "other"
	Unknown Response = "unknown"

	// bleeding
	Normal Response = "normal"
	Severe Response = "severe"

	// crowning
	Stuck Response = "stuck"

	// crowning, baby_breathing, placenta
	Yes Response = "yes"
	No  Response = "no"
)

// #endregion response

// #region point
// Point is a static critical decision definition.
type Point struct {
	ID state.DecisionID
	// Applies reports whether the decision is currently relevant.
	Applies func(s state.LaborState) bool
	// Responses is the closed set of valid answers.
	Responses []Response
	// Triggers is the subset of Responses that may escalate.
	Triggers []Response
	// Emergency is the default escalation type; empty means triggers never escalate.
	Emergency state.EmergencyType
}

// Accepts reports whether r is a valid answer for this decision.
func (p Point) Accepts(r Response) bool {
	return contains(p.Responses, r)
}

// IsTrigger reports whether r is in the trigger set.
func (p Point) IsTrigger(r Response) bool {
	return contains(p.Triggers, r)
}

func contains(set []Response, r Response) bool {
	for _, v := range set {
		if v == r {
			return true
		}
	}
	return false
}

// #endregion point

// #region errors
// ErrUnknownDecision is returned for decision ids outside the catalog.
var ErrUnknownDecision = errors.New("unknown decision")

// InvalidResponseError reports an answer outside a decision's response set.
type InvalidResponseError struct {
	Decision state.DecisionID
	Value    string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid response %q for decision %s", e.Value, e.Decision)
}

// #endregion errors
