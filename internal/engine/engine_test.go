package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/danielpatrickdp/laborguide/internal/decision"
	"github.com/danielpatrickdp/laborguide/internal/logging"
	"github.com/danielpatrickdp/laborguide/internal/stage"
	"github.com/danielpatrickdp/laborguide/internal/state"
)

// #region helpers
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// flakyStore fails reads or writes on demand.
type flakyStore struct {
	*state.MemoryStore
	failLoad  bool
	failSave  bool
	failClear bool
}

var errDisk = errors.New("disk full")

func (f *flakyStore) Load(ctx context.Context) (*state.LaborState, error) {
	if f.failLoad {
		return nil, errDisk
	}
	return f.MemoryStore.Load(ctx)
}

func (f *flakyStore) Save(ctx context.Context, s state.LaborState) error {
	if f.failSave {
		return errDisk
	}
	return f.MemoryStore.Save(ctx, s)
}

func (f *flakyStore) Clear(ctx context.Context) error {
	if f.failClear {
		return errDisk
	}
	return f.MemoryStore.Clear(ctx)
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newEngine(t *testing.T, store state.Store, clock *fakeClock, opts ...Option) *Engine {
	t.Helper()
	base := []Option{WithClock(clock.Now), WithLogger(quiet)}
	return New(store, append(base, opts...)...)
}

func mustInit(t *testing.T, e *Engine, a stage.Assessment) state.LaborState {
	t.Helper()
	s, err := e.InitializeSession(context.Background(), a)
	if err != nil {
		t.Fatalf("InitializeSession: %v", err)
	}
	return s
}

func mustAnswer(t *testing.T, e *Engine, id state.DecisionID, r decision.Response) {
	t.Helper()
	if err := e.HandleDecisionResponse(context.Background(), id, r); err != nil {
		t.Fatalf("HandleDecisionResponse(%s, %s): %v", id, r, err)
	}
}

func mustState(t *testing.T, e *Engine) state.LaborState {
	t.Helper()
	s, err := e.CurrentState(context.Background())
	if err != nil {
		t.Fatalf("CurrentState: %v", err)
	}
	if s == nil {
		t.Fatal("expected an active session")
	}
	return *s
}

func mustNext(t *testing.T, e *Engine) NextAction {
	t.Helper()
	a, err := e.NextAction(context.Background())
	if err != nil {
		t.Fatalf("NextAction: %v", err)
	}
	return a
}

var pushingAssessment = stage.Assessment{MonthsPregnant: 9, ContractionMinutes: 1, WaterBroken: true, UrgeToPush: true}

// toPostpartum drives a fresh session to postpartum via birth with a breathing baby.
func toPostpartum(t *testing.T, e *Engine) {
	t.Helper()
	mustInit(t, e, pushingAssessment)
	mustAnswer(t, e, state.DecisionPresentation, decision.Head)
	mustAnswer(t, e, state.DecisionBleeding, decision.Normal)
	mustAnswer(t, e, state.DecisionCrowning, decision.Yes)
	if err := e.AdvanceToStage(context.Background(), state.StageBirth); err != nil {
		t.Fatalf("AdvanceToStage(birth): %v", err)
	}
	mustAnswer(t, e, state.DecisionBabyBreathing, decision.Yes)
}

// #endregion helpers

// #region flows
func TestUrgeToPushWins(t *testing.T) {
	e := newEngine(t, state.NewMemoryStore(), newClock())
	s := mustInit(t, e, pushingAssessment)
	if s.Stage != state.StagePushing {
		t.Fatalf("expected pushing, got %s", s.Stage)
	}
	if s.SessionID == "" || s.Revision != 0 || len(s.DecisionsMade) != 0 || s.EmergencyActive {
		t.Fatalf("unexpected initial state: %+v", s)
	}
}

func TestBreechPresentationEscalates(t *testing.T) {
	e := newEngine(t, state.NewMemoryStore(), newClock())
	mustInit(t, e, pushingAssessment)
	mustAnswer(t, e, state.DecisionPresentation, decision.Breech)

	s := mustState(t, e)
	if !s.EmergencyActive || s.EmergencyType != state.EmergencyBreech {
		t.Fatalf("expected breech emergency, got active=%v type=%q", s.EmergencyActive, s.EmergencyType)
	}
	if got := mustNext(t, e); got != (NextAction{Action: ActionEmergency, Emergency: state.EmergencyBreech}) {
		t.Fatalf("unexpected next action %+v", got)
	}
}

func TestOtherPresentationIsCordProlapse(t *testing.T) {
	e := newEngine(t, state.NewMemoryStore(), newClock())
	mustInit(t, e, pushingAssessment)
	mustAnswer(t, e, state.DecisionPresentation, decision.Other)

	s := mustState(t, e)
	if !s.EmergencyActive || s.EmergencyType != state.EmergencyCordProlapse {
		t.Fatalf("expected cord_prolapse, got active=%v type=%q", s.EmergencyActive, s.EmergencyType)
	}
}

func TestPlacentaUnderAnHourRecordsOnly(t *testing.T) {
	clock := newClock()
	e := newEngine(t, state.NewMemoryStore(), clock)
	toPostpartum(t, e)

	clock.Advance(40 * time.Minute)
	mustAnswer(t, e, state.DecisionPlacenta, decision.No)

	s := mustState(t, e)
	if s.EmergencyActive {
		t.Fatalf("placenta at 40 min must not escalate, got %q", s.EmergencyType)
	}
	if s.Stage != state.StagePostpartum {
		t.Fatalf("expected postpartum, got %s", s.Stage)
	}
	if got := mustNext(t, e); got != (NextAction{Action: ActionGuide, Stage: state.StagePostpartum}) {
		t.Fatalf("unexpected next action %+v", got)
	}
}

func TestRetainedPlacentaEscalates(t *testing.T) {
	clock := newClock()
	e := newEngine(t, state.NewMemoryStore(), clock)
	toPostpartum(t, e)

	clock.Advance(65 * time.Minute)
	mustAnswer(t, e, state.DecisionPlacenta, decision.No)

	s := mustState(t, e)
	if !s.EmergencyActive || s.EmergencyType != state.EmergencyRetainedPlacenta {
		t.Fatalf("expected retained_placenta, got active=%v type=%q", s.EmergencyActive, s.EmergencyType)
	}
}

func TestStageNeverRegresses(t *testing.T) {
	e := newEngine(t, state.NewMemoryStore(), newClock())
	toPostpartum(t, e)
	before := mustState(t, e)

	err := e.AdvanceToStage(context.Background(), state.StageEarly)
	var invalid *InvalidStageTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidStageTransitionError, got %v", err)
	}
	if invalid.From != state.StagePostpartum || invalid.To != state.StageEarly {
		t.Fatalf("unexpected error fields: %+v", invalid)
	}
	if diff := cmp.Diff(before, mustState(t, e)); diff != "" {
		t.Fatalf("state changed on rejected transition (-before +after):\n%s", diff)
	}
}

// #endregion flows

// #region properties
func TestEmergencySurvivesNormalFlow(t *testing.T) {
	e := newEngine(t, state.NewMemoryStore(), newClock())
	ctx := context.Background()
	mustInit(t, e, stage.Assessment{MonthsPregnant: 9, ContractionMinutes: 8})
	mustAnswer(t, e, state.DecisionBleeding, decision.Severe)

	steps := []func() error{
		func() error { return e.AdvanceToStage(ctx, state.StageActive) },
		func() error { return e.AdvanceToStage(ctx, state.StagePushing) },
		func() error { return e.HandleDecisionResponse(ctx, state.DecisionPresentation, decision.Head) },
		func() error { return e.HandleDecisionResponse(ctx, state.DecisionBleeding, decision.Normal) },
		func() error { return e.AdvanceToStage(ctx, state.StageBirth) },
		func() error { return e.HandleDecisionResponse(ctx, state.DecisionBabyBreathing, decision.Yes) },
		func() error { return e.AdvanceToStage(ctx, state.StageEarly) },
	}
	for i, step := range steps {
		step()
		if s := mustState(t, e); !s.EmergencyActive {
			t.Fatalf("step %d lowered the emergency flag", i)
		}
	}

	if err := e.ClearEmergency(ctx); err != nil {
		t.Fatalf("ClearEmergency: %v", err)
	}
	s := mustState(t, e)
	if s.EmergencyActive || s.EmergencyType != state.EmergencyNone {
		t.Fatalf("expected cleared emergency, got %+v", s)
	}
	if s.Stage != state.StagePostpartum {
		t.Fatalf("clear must keep the session, got stage %s", s.Stage)
	}
}

func TestLaterEmergencyReplacesType(t *testing.T) {
	e := newEngine(t, state.NewMemoryStore(), newClock())
	ctx := context.Background()
	mustInit(t, e, pushingAssessment)
	mustAnswer(t, e, state.DecisionBleeding, decision.Severe)
	e.AdvanceToStage(ctx, state.StageBirth)
	mustAnswer(t, e, state.DecisionBabyBreathing, decision.No)

	s := mustState(t, e)
	if s.EmergencyType != state.EmergencyResuscitation {
		t.Fatalf("expected resuscitation, got %q", s.EmergencyType)
	}
}

func TestEscalationSkipsProgression(t *testing.T) {
	e := newEngine(t, state.NewMemoryStore(), newClock())
	mustInit(t, e, pushingAssessment)
	e.AdvanceToStage(context.Background(), state.StageBirth)
	mustAnswer(t, e, state.DecisionBabyBreathing, decision.No)

	s := mustState(t, e)
	if s.Stage != state.StageBirth {
		t.Fatalf("escalating answer moved stage to %s", s.Stage)
	}
}

func TestDecisionsAppendOnly(t *testing.T) {
	e := newEngine(t, state.NewMemoryStore(), newClock())
	mustInit(t, e, pushingAssessment)

	answers := []struct {
		id state.DecisionID
		r  decision.Response
	}{
		{state.DecisionPresentation, decision.Head},
		{state.DecisionBleeding, decision.Normal},
		{state.DecisionBleeding, decision.Severe},
		{state.DecisionCrowning, decision.Stuck},
		{state.DecisionPresentation, decision.Breech},
	}
	var prev []state.DecisionRecord
	for i, a := range answers {
		mustAnswer(t, e, a.id, a.r)
		cur := mustState(t, e).DecisionsMade
		if len(cur) != i+1 {
			t.Fatalf("expected %d records, got %d", i+1, len(cur))
		}
		if diff := cmp.Diff(prev, cur[:len(prev)]); i > 0 && diff != "" {
			t.Fatalf("history rewritten at step %d:\n%s", i, diff)
		}
		prev = cur
	}
	if r, _ := mustState(t, e).FirstResponse(state.DecisionPresentation); r != string(decision.Head) {
		t.Fatalf("first presentation answer must stay authoritative, got %q", r)
	}
}

func TestCrowningStuckRecordedOnly(t *testing.T) {
	e := newEngine(t, state.NewMemoryStore(), newClock())
	mustInit(t, e, pushingAssessment)
	mustAnswer(t, e, state.DecisionPresentation, decision.Head)
	mustAnswer(t, e, state.DecisionBleeding, decision.Normal)
	if got := mustNext(t, e); got.Decision != state.DecisionCrowning {
		t.Fatalf("expected crowning question, got %+v", got)
	}
	mustAnswer(t, e, state.DecisionCrowning, decision.Stuck)

	s := mustState(t, e)
	if s.EmergencyActive || s.Stage != state.StagePushing {
		t.Fatalf("stuck must not escalate or progress: %+v", s)
	}
	if got := mustNext(t, e); got != (NextAction{Action: ActionGuide, Stage: state.StagePushing}) {
		t.Fatalf("unexpected next action %+v", got)
	}
}

func TestNextActionPrecedence(t *testing.T) {
	e := newEngine(t, state.NewMemoryStore(), newClock())
	ctx := context.Background()
	mustInit(t, e, pushingAssessment)

	if got := mustNext(t, e); got != (NextAction{Action: ActionAsk, Decision: state.DecisionPresentation}) {
		t.Fatalf("expected presentation question first, got %+v", got)
	}

	// Severe bleeding while presentation is still pending: emergency wins.
	mustAnswer(t, e, state.DecisionBleeding, decision.Severe)
	if got := mustNext(t, e); got.Action != ActionEmergency || got.Emergency != state.EmergencyHemorrhage {
		t.Fatalf("expected hemorrhage emergency, got %+v", got)
	}

	e.ClearEmergency(ctx)
	if got := mustNext(t, e); got != (NextAction{Action: ActionAsk, Decision: state.DecisionPresentation}) {
		t.Fatalf("expected pending question after clear, got %+v", got)
	}

	mustAnswer(t, e, state.DecisionPresentation, decision.Unknown)
	if got := mustNext(t, e); got != (NextAction{Action: ActionGuide, Stage: state.StagePushing}) {
		t.Fatalf("expected guidance, got %+v", got)
	}
}

func TestBleedingAskedOnce(t *testing.T) {
	e := newEngine(t, state.NewMemoryStore(), newClock())
	ctx := context.Background()
	mustInit(t, e, stage.Assessment{MonthsPregnant: 9, ContractionMinutes: 10})
	if got := mustNext(t, e); got.Decision != state.DecisionBleeding {
		t.Fatalf("expected bleeding question, got %+v", got)
	}
	mustAnswer(t, e, state.DecisionBleeding, decision.Normal)
	e.AdvanceToStage(ctx, state.StageActive)
	if got := mustNext(t, e); got != (NextAction{Action: ActionGuide, Stage: state.StageActive}) {
		t.Fatalf("bleeding re-asked: %+v", got)
	}
}

func TestCurrentStateIdempotent(t *testing.T) {
	e := newEngine(t, state.NewMemoryStore(), newClock())
	mustInit(t, e, pushingAssessment)
	mustAnswer(t, e, state.DecisionPresentation, decision.Head)

	first := mustState(t, e)
	for i := 0; i < 3; i++ {
		if diff := cmp.Diff(first, mustState(t, e)); diff != "" {
			t.Fatalf("read %d differs:\n%s", i, diff)
		}
	}

	// Mutating a returned copy must not leak into the engine.
	first.DecisionsMade[0].Response = "breech"
	if r, _ := mustState(t, e).FirstResponse(state.DecisionPresentation); r != "head" {
		t.Fatal("CurrentState returned shared memory")
	}
}

func TestBirthTimestampSetOnce(t *testing.T) {
	clock := newClock()
	e := newEngine(t, state.NewMemoryStore(), clock)
	ctx := context.Background()
	mustInit(t, e, pushingAssessment)

	clock.Advance(10 * time.Minute)
	birthAt := clock.Now()
	if err := e.AdvanceToStage(ctx, state.StageBirth); err != nil {
		t.Fatalf("AdvanceToStage: %v", err)
	}
	clock.Advance(5 * time.Minute)
	mustAnswer(t, e, state.DecisionBabyBreathing, decision.Yes)

	s := mustState(t, e)
	if s.Stage != state.StagePostpartum {
		t.Fatalf("expected postpartum, got %s", s.Stage)
	}
	if s.BirthTimestamp == nil || !s.BirthTimestamp.Equal(birthAt) {
		t.Fatalf("expected birth at %v, got %v", birthAt, s.BirthTimestamp)
	}
}

func TestBreathingOutsideBirthKeepsStage(t *testing.T) {
	e := newEngine(t, state.NewMemoryStore(), newClock())
	mustInit(t, e, pushingAssessment)
	mustAnswer(t, e, state.DecisionBabyBreathing, decision.Yes)

	s := mustState(t, e)
	if s.Stage != state.StagePushing || s.BirthTimestamp != nil {
		t.Fatalf("unexpected progression outside birth: %+v", s)
	}
	if len(s.DecisionsMade) != 1 {
		t.Fatal("answer must still be recorded")
	}
}

func TestLastUpdatedAndRevision(t *testing.T) {
	clock := newClock()
	e := newEngine(t, state.NewMemoryStore(), clock)
	s0 := mustInit(t, e, pushingAssessment)

	clock.Advance(time.Minute)
	mustAnswer(t, e, state.DecisionPresentation, decision.Head)
	s1 := mustState(t, e)
	if s1.Revision != 1 || !s1.LastUpdated.Equal(clock.Now()) {
		t.Fatalf("expected revision 1 at %v, got %d at %v", clock.Now(), s1.Revision, s1.LastUpdated)
	}
	if !s1.LaborStartTimestamp.Equal(s0.LaborStartTimestamp) || s1.SessionID != s0.SessionID {
		t.Fatal("immutable fields changed")
	}
}

// #endregion properties

// #region errors
func TestNoActiveSession(t *testing.T) {
	e := newEngine(t, state.NewMemoryStore(), newClock())
	ctx := context.Background()

	if _, err := e.NextAction(ctx); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("NextAction: expected ErrNoActiveSession, got %v", err)
	}
	if err := e.HandleDecisionResponse(ctx, state.DecisionBleeding, decision.Normal); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("HandleDecisionResponse: expected ErrNoActiveSession, got %v", err)
	}
	if err := e.AdvanceToStage(ctx, state.StageActive); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("AdvanceToStage: expected ErrNoActiveSession, got %v", err)
	}
	if err := e.ClearEmergency(ctx); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("ClearEmergency: expected ErrNoActiveSession, got %v", err)
	}
	s, err := e.CurrentState(ctx)
	if err != nil || s != nil {
		t.Errorf("CurrentState: expected (nil, nil), got (%v, %v)", s, err)
	}
	if err := e.EndSession(ctx); err != nil {
		t.Errorf("EndSession without session: %v", err)
	}
}

func TestEndSession(t *testing.T) {
	store := state.NewMemoryStore()
	e := newEngine(t, store, newClock())
	ctx := context.Background()
	mustInit(t, e, pushingAssessment)

	if err := e.EndSession(ctx); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if _, err := e.NextAction(ctx); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession after end, got %v", err)
	}
	if rec, _ := store.Load(ctx); rec != nil {
		t.Fatal("store not cleared")
	}
}

func TestInvalidResponseRejected(t *testing.T) {
	e := newEngine(t, state.NewMemoryStore(), newClock())
	ctx := context.Background()
	mustInit(t, e, pushingAssessment)

	err := e.HandleDecisionResponse(ctx, state.DecisionPresentation, decision.Severe)
	var invalid *decision.InvalidResponseError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidResponseError, got %v", err)
	}
	if err := e.Answer(ctx, state.DecisionBleeding, "torrential"); !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidResponseError from Answer, got %v", err)
	}
	if err := e.HandleDecisionResponse(ctx, "heartbeat", decision.Yes); !errors.Is(err, decision.ErrUnknownDecision) {
		t.Fatalf("expected ErrUnknownDecision, got %v", err)
	}
	if s := mustState(t, e); len(s.DecisionsMade) != 0 || s.Revision != 0 {
		t.Fatalf("rejected answers mutated state: %+v", s)
	}
}

func TestAnswerParsesRawValue(t *testing.T) {
	e := newEngine(t, state.NewMemoryStore(), newClock())
	mustInit(t, e, pushingAssessment)
	if err := e.Answer(context.Background(), state.DecisionPresentation, " BREECH "); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if s := mustState(t, e); s.EmergencyType != state.EmergencyBreech {
		t.Fatalf("expected breech, got %q", s.EmergencyType)
	}
}

func TestPersistenceFailureLeavesStateUntouched(t *testing.T) {
	store := &flakyStore{MemoryStore: state.NewMemoryStore()}
	e := newEngine(t, store, newClock())
	ctx := context.Background()
	mustInit(t, e, pushingAssessment)
	before := mustState(t, e)

	store.failSave = true
	err := e.HandleDecisionResponse(ctx, state.DecisionPresentation, decision.Breech)
	var perr *PersistenceError
	if !errors.As(err, &perr) || perr.Op != "save" || !errors.Is(err, errDisk) {
		t.Fatalf("expected save PersistenceError wrapping errDisk, got %v", err)
	}
	if err := e.AdvanceToStage(ctx, state.StageBirth); !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError from AdvanceToStage, got %v", err)
	}
	if diff := cmp.Diff(before, mustState(t, e)); diff != "" {
		t.Fatalf("failed commits changed cached state:\n%s", diff)
	}

	store.failSave = false
	mustAnswer(t, e, state.DecisionPresentation, decision.Breech)
	if s := mustState(t, e); s.Revision != 1 || !s.EmergencyActive {
		t.Fatalf("retry did not commit: %+v", s)
	}
}

func TestPersistenceFailureOnLoad(t *testing.T) {
	store := &flakyStore{MemoryStore: state.NewMemoryStore(), failLoad: true}
	e := newEngine(t, store, newClock())
	_, err := e.NextAction(context.Background())
	var perr *PersistenceError
	if !errors.As(err, &perr) || perr.Op != "load" {
		t.Fatalf("expected load PersistenceError, got %v", err)
	}
	if _, err := e.CurrentState(context.Background()); !errors.As(err, &perr) {
		t.Fatalf("expected CurrentState to surface load failure, got %v", err)
	}
}

func TestEndSessionFailure(t *testing.T) {
	store := &flakyStore{MemoryStore: state.NewMemoryStore()}
	e := newEngine(t, store, newClock())
	mustInit(t, e, pushingAssessment)
	store.failClear = true
	var perr *PersistenceError
	if err := e.EndSession(context.Background()); !errors.As(err, &perr) || perr.Op != "clear" {
		t.Fatalf("expected clear PersistenceError, got %v", err)
	}
	mustState(t, e)
}

// #endregion errors

// #region concurrency
func TestStaleWriterRejected(t *testing.T) {
	store := state.NewMemoryStore()
	clock := newClock()
	ctx := context.Background()
	a := newEngine(t, store, clock)
	mustInit(t, a, pushingAssessment)

	b := newEngine(t, store, clock)
	mustState(t, b) // b caches revision 0

	mustAnswer(t, a, state.DecisionPresentation, decision.Head)

	err := b.HandleDecisionResponse(ctx, state.DecisionPresentation, decision.Breech)
	if !errors.Is(err, state.ErrStaleState) {
		t.Fatalf("expected ErrStaleState for stale writer, got %v", err)
	}

	// b reloads and now sees a's answer.
	s := mustState(t, b)
	if s.Revision != 1 || s.EmergencyActive {
		t.Fatalf("expected reloaded revision 1 without emergency, got %+v", s)
	}
}

func TestConcurrentAnswersSerialized(t *testing.T) {
	e := newEngine(t, state.NewMemoryStore(), newClock())
	mustInit(t, e, stage.Assessment{MonthsPregnant: 9, ContractionMinutes: 10})
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.HandleDecisionResponse(ctx, state.DecisionBleeding, decision.Normal); err != nil {
				t.Errorf("HandleDecisionResponse: %v", err)
			}
		}()
	}
	wg.Wait()

	s := mustState(t, e)
	if len(s.DecisionsMade) != n || s.Revision != n {
		t.Fatalf("expected %d records at revision %d, got %d at %d", n, n, len(s.DecisionsMade), s.Revision)
	}
}

// #endregion concurrency

// #region collaborators
func TestAuditTrail(t *testing.T) {
	store, err := state.NewSQLiteStore(filepath.Join(t.TempDir(), "labor.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()
	audit, err := logging.NewAuditLog(store.DB())
	if err != nil {
		t.Fatalf("NewAuditLog: %v", err)
	}

	e := newEngine(t, store, newClock(), WithAudit(audit))
	ctx := context.Background()
	s := mustInit(t, e, pushingAssessment)
	mustAnswer(t, e, state.DecisionPresentation, decision.Head)
	mustAnswer(t, e, state.DecisionBleeding, decision.Severe)
	e.ClearEmergency(ctx)
	e.AdvanceToStage(ctx, state.StageBirth)
	e.EndSession(ctx)

	events, err := audit.Events(ctx, s.SessionID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	var kinds []logging.EventKind
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	want := []logging.EventKind{
		logging.EventSessionStarted,
		logging.EventDecisionRecorded,
		logging.EventEmergencyRaised,
		logging.EventEmergencyCleared,
		logging.EventStageAdvanced,
		logging.EventSessionEnded,
	}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("audit kinds (-want +got):\n%s", diff)
	}
	if events[2].Emergency != string(state.EmergencyHemorrhage) || events[2].Revision != 2 {
		t.Fatalf("unexpected emergency event: %+v", events[2])
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := &flakyStore{MemoryStore: state.NewMemoryStore()}
	e := newEngine(t, store, newClock(), WithMetrics(reg))
	ctx := context.Background()
	mustInit(t, e, pushingAssessment)
	mustAnswer(t, e, state.DecisionPresentation, decision.Head)
	mustAnswer(t, e, state.DecisionBleeding, decision.Severe)
	e.AdvanceToStage(ctx, state.StageBirth)
	store.failSave = true
	e.HandleDecisionResponse(ctx, state.DecisionBabyBreathing, decision.Yes)

	checks := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"sessions", e.metrics.sessions.WithLabelValues("pushing"), 1},
		{"head", e.metrics.decisions.WithLabelValues("presentation", "head"), 1},
		{"severe", e.metrics.decisions.WithLabelValues("bleeding", "severe"), 1},
		{"hemorrhage", e.metrics.emergencies.WithLabelValues("hemorrhage"), 1},
		{"pushing-birth", e.metrics.stages.WithLabelValues("pushing", "birth"), 1},
		{"save-failures", e.metrics.failures.WithLabelValues("save"), 1},
		{"breathing-not-counted", e.metrics.decisions.WithLabelValues("baby_breathing", "yes"), 0},
	}
	for _, c := range checks {
		if got := testutil.ToFloat64(c.c); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestCustomSessionIDs(t *testing.T) {
	e := newEngine(t, state.NewMemoryStore(), newClock(), WithSessionIDs(func() string { return "fixed" }))
	if s := mustInit(t, e, pushingAssessment); s.SessionID != "fixed" {
		t.Fatalf("expected fixed session id, got %s", s.SessionID)
	}
}

// #endregion collaborators
