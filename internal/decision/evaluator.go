package decision

import "github.com/danielpatrickdp/laborguide/internal/state"

// #region next
// Next returns the first catalog entry that applies to s and has not been answered.
// ok is false when nothing is pending.
func Next(s state.LaborState) (Point, bool) {
	for _, p := range catalog {
		if p.Applies(s) && !s.HasAnswered(p.ID) {
			return p, true
		}
	}
	return Point{}, false
}

// Pending lists every applicable unanswered decision in priority order.
func Pending(s state.LaborState) []state.DecisionID {
	var ids []state.DecisionID
	for _, p := range catalog {
		if p.Applies(s) && !s.HasAnswered(p.ID) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// #endregion next
