// Package stage holds the labor stage rules that do not depend on decision
// history: the initial classifier and the forward-only transition table.
package stage

import "github.com/danielpatrickdp/laborguide/internal/state"

// #region assessment
// Assessment holds the four initial-assessment answers.
type Assessment struct {
	MonthsPregnant     int  `json:"months_pregnant"`
	ContractionMinutes int  `json:"contraction_minutes"`
	WaterBroken        bool `json:"water_broken"`
	UrgeToPush         bool `json:"urge_to_push"`
}

// #endregion assessment

// #region classify
// Classify maps an assessment to the initial stage. First match wins:
// urge to push, then contraction spacing. MonthsPregnant and WaterBroken are
// recorded on the session but do not influence the stage.
func Classify(a Assessment) state.Stage {
	if a.UrgeToPush {
		return state.StagePushing
	}
	if a.ContractionMinutes <= 2 {
		return state.StageTransition
	}
	if a.ContractionMinutes <= 5 {
		return state.StageActive
	}
	return state.StageEarly
}

// #endregion classify

// #region transitions
var transitions = map[state.Stage][]state.Stage{
	state.StageEarly:      {state.StageActive, state.StageTransition, state.StagePushing},
	state.StageActive:     {state.StageTransition, state.StagePushing},
	state.StageTransition: {state.StagePushing},
	state.StagePushing:    {state.StageBirth},
	state.StageBirth:      {state.StagePostpartum},
	state.StagePostpartum: {},
}

// CanAdvance reports whether a manual advance from -> to is allowed.
func CanAdvance(from, to state.Stage) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Next returns the stages reachable from s by a manual advance.
func Next(s state.Stage) []state.Stage {
	out := make([]state.Stage, len(transitions[s]))
	copy(out, transitions[s])
	return out
}

// Terminal reports whether no further advance is possible from s.
func Terminal(s state.Stage) bool {
	return len(transitions[s]) == 0
}

// #endregion transitions
