package state

import "time"

// #region stage
// Stage is a discrete phase of labor progression.
type Stage string

const (
	StageEarly      Stage = "early"
	StageActive     Stage = "active"
	StageTransition Stage = "transition"
	StagePushing    Stage = "pushing"
	StageBirth      Stage = "birth"
	StagePostpartum Stage = "postpartum"
)

// Stages lists every stage in progression order.
var Stages = []Stage{StageEarly, StageActive, StageTransition, StagePushing, StageBirth, StagePostpartum}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	for _, st := range Stages {
		if st == s {
			return true
		}
	}
	return false
}

// #endregion stage

// #region emergency-type
// EmergencyType names the emergency protocol that must replace normal guidance.
type EmergencyType string

const (
	EmergencyNone             EmergencyType = ""
	EmergencyHemorrhage       EmergencyType = "hemorrhage"
	EmergencyBreech           EmergencyType = "breech"
	EmergencyCordProlapse     EmergencyType = "cord_prolapse"
	EmergencyResuscitation    EmergencyType = "resuscitation"
	EmergencyRetainedPlacenta EmergencyType = "retained_placenta"
)

// EmergencyTypes lists every emergency protocol.
var EmergencyTypes = []EmergencyType{
	EmergencyHemorrhage,
	EmergencyBreech,
	EmergencyCordProlapse,
	EmergencyResuscitation,
	EmergencyRetainedPlacenta,
}

// #endregion emergency-type

// #region decision-id
// DecisionID identifies one of the critical decision points.
type DecisionID string

const (
	DecisionPresentation  DecisionID = "presentation"
	DecisionBleeding      DecisionID = "bleeding"
	DecisionCrowning      DecisionID = "crowning"
	DecisionBabyBreathing DecisionID = "baby_breathing"
	DecisionPlacenta      DecisionID = "placenta"
)

// #endregion decision-id

// #region decision-record
// DecisionRecord is one entry of the append-only decisions-made log.
type DecisionRecord struct {
	Decision DecisionID `json:"decision"`
	Response string     `json:"response"`
	At       time.Time  `json:"at"`
}

// #endregion decision-record

// #region labor-state
// LaborState is the single mutable aggregate of an active session.
// The assessment fields, LaborStartTimestamp and SessionID never change after creation.
type LaborState struct {
	Stage Stage `json:"stage"`

	MonthsPregnant     int  `json:"months_pregnant"`
	ContractionMinutes int  `json:"contraction_minutes"`
	WaterBroken        bool `json:"water_broken"`
	UrgeToPush         bool `json:"urge_to_push"`

	DecisionsMade []DecisionRecord `json:"decisions_made"`

	EmergencyActive bool          `json:"emergency_active"`
	EmergencyType   EmergencyType `json:"emergency_type,omitempty"`

	BirthTimestamp      *time.Time `json:"birth_timestamp,omitempty"`
	LaborStartTimestamp time.Time  `json:"labor_start_timestamp"`

	SessionID   string    `json:"session_id"`
	LastUpdated time.Time `json:"last_updated"`

	// Revision counts committed mutations; 0 is a freshly initialized session.
	Revision int64 `json:"revision"`
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (s LaborState) Clone() LaborState {
	out := s
	if s.DecisionsMade != nil {
		out.DecisionsMade = make([]DecisionRecord, len(s.DecisionsMade))
		copy(out.DecisionsMade, s.DecisionsMade)
	}
	if s.BirthTimestamp != nil {
		t := *s.BirthTimestamp
		out.BirthTimestamp = &t
	}
	return out
}

// HasAnswered reports whether id appears anywhere in the decisions-made log.
func (s LaborState) HasAnswered(id DecisionID) bool {
	_, ok := s.FirstResponse(id)
	return ok
}

// FirstResponse returns the authoritative (first) response recorded for id.
func (s LaborState) FirstResponse(id DecisionID) (string, bool) {
	for _, d := range s.DecisionsMade {
		if d.Decision == id {
			return d.Response, true
		}
	}
	return "", false
}

// MinutesSinceBirth returns whole minutes elapsed since birth, or 0 if no birth is recorded.
func (s LaborState) MinutesSinceBirth(now time.Time) int {
	if s.BirthTimestamp == nil {
		return 0
	}
	d := now.Sub(*s.BirthTimestamp)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

// #endregion labor-state
