// Package engine drives a labor session: it records critical decision
// answers, escalates emergencies, advances stages and tells the caller what to
// present next.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielpatrickdp/laborguide/internal/decision"
	"github.com/danielpatrickdp/laborguide/internal/gate"
	"github.com/danielpatrickdp/laborguide/internal/logging"
	"github.com/danielpatrickdp/laborguide/internal/stage"
	"github.com/danielpatrickdp/laborguide/internal/state"
)

// #region engine
// Engine owns one session. All mutations are serialized and each either
// commits in full or leaves the stored state untouched.
type Engine struct {
	mu      sync.Mutex
	store   state.Store
	gate    *gate.Gate
	audit   AuditSink
	metrics *metricsProvider
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string

	cached *state.LaborState
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithAudit sends every committed mutation to sink.
func WithAudit(sink AuditSink) Option {
	return func(e *Engine) { e.audit = sink }
}

// WithMetrics registers engine counters on registry.
func WithMetrics(registry *prometheus.Registry) Option {
	return func(e *Engine) { e.metrics = newMetricsProvider(registry) }
}

// WithGateConfig overrides the escalation thresholds.
func WithGateConfig(cfg gate.Config) Option {
	return func(e *Engine) { e.gate = gate.New(cfg) }
}

// WithSessionIDs overrides session id generation.
func WithSessionIDs(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// New creates an engine backed by store.
func New(store state.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		gate:   gate.New(gate.DefaultConfig()),
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// #endregion engine

// #region session
// InitializeSession creates and persists a new session from the initial
// assessment, replacing any prior one.
func (e *Engine) InitializeSession(ctx context.Context, a stage.Assessment) (state.LaborState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	s := state.LaborState{
		Stage:               stage.Classify(a),
		MonthsPregnant:      a.MonthsPregnant,
		ContractionMinutes:  a.ContractionMinutes,
		WaterBroken:         a.WaterBroken,
		UrgeToPush:          a.UrgeToPush,
		DecisionsMade:       []state.DecisionRecord{},
		LaborStartTimestamp: now,
		SessionID:           e.newID(),
		LastUpdated:         now,
	}

	if err := e.store.Save(ctx, s); err != nil {
		return state.LaborState{}, e.persistFailed("save", err)
	}
	e.cached = &s
	e.metrics.IncrementSessions(string(s.Stage))
	e.logger.InfoContext(ctx, "session started",
		"session_id", s.SessionID, "stage", s.Stage,
		"months_pregnant", a.MonthsPregnant, "contraction_minutes", a.ContractionMinutes,
		"water_broken", a.WaterBroken, "urge_to_push", a.UrgeToPush)
	e.recordAudit(ctx, logging.Event{
		SessionID: s.SessionID,
		Revision:  s.Revision,
		Kind:      logging.EventSessionStarted,
		Stage:     string(s.Stage),
		CreatedAt: now,
	})
	return s.Clone(), nil
}

// CurrentState returns a copy of the active session, or nil if there is none.
func (e *Engine) CurrentState(ctx context.Context) (*state.LaborState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.load(ctx)
	if errors.Is(err, ErrNoActiveSession) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := s.Clone()
	return &out, nil
}

// EndSession discards the persisted session. Ending when no session exists is a no-op.
func (e *Engine) EndSession(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var sessionID string
	var revision int64
	if s, err := e.load(ctx); err == nil {
		sessionID, revision = s.SessionID, s.Revision
	}

	if err := e.store.Clear(ctx); err != nil {
		return e.persistFailed("clear", err)
	}
	e.cached = nil
	if sessionID == "" {
		return nil
	}
	e.logger.InfoContext(ctx, "session ended", "session_id", sessionID)
	e.recordAudit(ctx, logging.Event{
		SessionID: sessionID,
		Revision:  revision,
		Kind:      logging.EventSessionEnded,
		CreatedAt: e.now(),
	})
	return nil
}

// #endregion session

// #region next-action
// NextAction resolves what to present: an active emergency wins over a
// pending critical question, which wins over stage guidance.
func (e *Engine) NextAction(ctx context.Context) (NextAction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.load(ctx)
	if err != nil {
		return NextAction{}, err
	}
	return resolve(*s), nil
}

func resolve(s state.LaborState) NextAction {
	if s.EmergencyActive {
		return NextAction{Action: ActionEmergency, Emergency: s.EmergencyType}
	}
	if p, ok := decision.Next(s); ok {
		return NextAction{Action: ActionAsk, Decision: p.ID}
	}
	return NextAction{Action: ActionGuide, Stage: s.Stage}
}

// #endregion next-action

// #region persistence
// load returns the cached state, reading the store on a cache miss.
func (e *Engine) load(ctx context.Context) (*state.LaborState, error) {
	if e.cached != nil {
		return e.cached, nil
	}
	s, err := e.store.Load(ctx)
	if err != nil {
		return nil, e.persistFailed("load", err)
	}
	if s == nil {
		return nil, ErrNoActiveSession
	}
	e.cached = s
	return s, nil
}

// commit bumps the revision, saves next and, only on success, makes it the
// cached state and emits ev.
func (e *Engine) commit(ctx context.Context, next state.LaborState, ev logging.Event) error {
	now := e.now()
	next.Revision++
	next.LastUpdated = now

	if err := e.store.Save(ctx, next); err != nil {
		return e.persistFailed("save", err)
	}
	e.cached = &next

	ev.SessionID = next.SessionID
	ev.Revision = next.Revision
	ev.CreatedAt = now
	e.recordAudit(ctx, ev)
	return nil
}

func (e *Engine) persistFailed(op string, err error) error {
	e.metrics.IncrementFailures(op)
	if errors.Is(err, state.ErrStaleState) {
		// Another writer moved the record; reload on the next call.
		e.cached = nil
	}
	e.logger.Error("labor state persistence failed", "op", op, "error", err)
	return &PersistenceError{Op: op, Err: err}
}

func (e *Engine) recordAudit(ctx context.Context, ev logging.Event) {
	if e.audit == nil {
		return
	}
	if err := e.audit.Record(ctx, ev); err != nil {
		e.logger.WarnContext(ctx, "audit record failed", "kind", ev.Kind, "session_id", ev.SessionID, "error", err)
	}
}

// #endregion persistence
