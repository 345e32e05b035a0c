// Package decision defines the ordered catalog of critical decision points and
// selects which one to ask next.
package decision

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/laborguide/internal/state"
)

// #region catalog
// catalog order is the tie-break when several decisions apply at once.
var catalog = []Point{
	{
		ID:        state.DecisionPresentation,
		Applies:   func(s state.LaborState) bool { return s.Stage == state.StagePushing },
		Responses: []Response{Head, Breech, Other, Unknown},
		Triggers:  []Response{Breech, Other},
		Emergency: state.EmergencyBreech,
	},
	{
		ID:        state.DecisionBleeding,
		Applies:   func(state.LaborState) bool { return true },
		Responses: []Response{Normal, Severe},
		Triggers:  []Response{Severe},
		Emergency: state.EmergencyHemorrhage,
	},
	{
		ID: state.DecisionCrowning,
		Applies: func(s state.LaborState) bool {
			r, ok := s.FirstResponse(state.DecisionPresentation)
			return s.Stage == state.StagePushing && ok && Response(r) == Head
		},
		Responses: []Response{Yes, Stuck},
		// TODO: route stuck to the position-change protocol once it is given an emergency type.
		Triggers: []Response{Stuck},
	},
	{
		ID:        state.DecisionBabyBreathing,
		Applies:   func(s state.LaborState) bool { return s.Stage == state.StageBirth },
		Responses: []Response{Yes, No},
		Triggers:  []Response{No},
		Emergency: state.EmergencyResuscitation,
	},
	{
		ID:        state.DecisionPlacenta,
		Applies:   func(s state.LaborState) bool { return s.Stage == state.StagePostpartum },
		Responses: []Response{Yes, No},
		Triggers:  []Response{No},
		Emergency: state.EmergencyRetainedPlacenta,
	},
}

// Catalog returns the decision points in priority order.
func Catalog() []Point {
	out := make([]Point, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a decision point by id.
func Lookup(id state.DecisionID) (Point, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Point{}, false
}

// #endregion catalog

// #region parse
// ParseResponse resolves a raw answer value into the typed response for id.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseResponse(id state.DecisionID, raw string) (Response, error) {
	p, ok := Lookup(id)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDecision, id)
	}
	r := Response(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Accepts(r) {
		return "", &InvalidResponseError{Decision: id, Value: raw}
	}
	return r, nil
}

// #endregion parse
