// Package orchestrator runs the three coaching operations: generating a
// weekly plan, analyzing a reality check and adjusting a plan mid-week.
// Each operation builds a prompt, makes one model call, recovers a JSON
// object from the reply and writes the resulting records to the store.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/execoach/coach"
	"github.com/c360studio/execoach/llm"
	"github.com/c360studio/execoach/storage"
)

// Operation names used in logs, metrics and the call log.
const (
	OpGeneratePlan        = "generate_plan"
	OpProcessRealityCheck = "process_reality_check"
	OpAdjustPlan          = "adjust_plan"
)

// Store is the persistence the orchestrator needs. *storage.Store
// satisfies it; absent records are reported with storage.ErrNotFound.
type Store interface {
	LoadProfile(ctx context.Context) (*coach.Profile, error)
	GetPlan(ctx context.Context, weekID string) (*coach.WeeklyPlan, error)
	ListHistory(ctx context.Context, limit int) ([]coach.ExecutionHistory, error)
	CommitGeneratedPlan(ctx context.Context, plan *coach.WeeklyPlan) error
	ReplacePlan(ctx context.Context, plan *coach.WeeklyPlan) error
	SaveRealityCheck(ctx context.Context, rc *coach.RealityCheck) error
	SaveDeviationReport(ctx context.Context, r *coach.DeviationReport) error
	GetDeviationReport(ctx context.Context, weekID string) (*coach.DeviationReport, error)
}

// Recorder receives operation outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	ObserveOperation(op, outcome string)
	ObserveFallback(op string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string) {}
func (nopRecorder) ObserveFallback(string)          {}

// Orchestrator sequences prompt building, the model call, extraction and
// persistence. It holds no state between calls.
type Orchestrator struct {
	store    Store
	llm      llm.Completer
	config   Config
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		o.config = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New creates an orchestrator over store and client.
func New(store Store, client llm.Completer, opts ...Option) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if client == nil {
		return nil, errors.New("model client is required")
	}
	o := &Orchestrator{
		store:    store,
		llm:      client,
		config:   DefaultConfig(),
		logger:   slog.Default(),
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid orchestrator config: %w", err)
	}
	return o, nil
}

// complete runs one model call and extracts the JSON object from its reply.
// The returned map is empty when nothing could be recovered.
func (o *Orchestrator) complete(ctx context.Context, op, weekID, capability, systemPrompt, userPrompt string) (map[string]any, error) {
	ctx = llm.WithTraceContext(ctx, llm.TraceContext{Operation: op, WeekID: weekID})

	temperature := o.config.Temperature
	resp, err := o.llm.Complete(ctx, llm.Request{
		Capability: capability,
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: &temperature,
		MaxTokens:   o.config.MaxTokens,
	})
	if err != nil {
		return nil, &OperationError{Op: op, Err: err}
	}

	o.logger.Debug("LLM response received",
		"op", op,
		"week_id", weekID,
		"model", resp.Model,
		"request_id", resp.RequestID,
		"total_tokens", resp.Usage.TotalTokens)

	obj := llm.ExtractObject(resp.Content)
	if len(obj) == 0 {
		o.logger.Warn("No JSON object in model response",
			"op", op,
			"week_id", weekID,
			"request_id", resp.RequestID,
			"content_preview", preview(resp.Content, 500))
	}
	return obj, nil
}

// finish records the outcome of an operation and logs failures.
func (o *Orchestrator) finish(op, weekID string, start time.Time, err error) {
	o.recorder.ObserveOperation(op, Outcome(err))
	if err != nil {
		o.logger.Error("Coaching operation failed",
			"op", op,
			"week_id", weekID,
			"duration", o.now().Sub(start),
			"error", err)
		return
	}
	o.logger.Info("Coaching operation completed",
		"op", op,
		"week_id", weekID,
		"duration", o.now().Sub(start))
}

func (o *Orchestrator) loadProfile(ctx context.Context) (*coach.Profile, error) {
	profile, err := o.store.LoadProfile(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, coach.ErrProfileRequired
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return profile, nil
}

func (o *Orchestrator) loadPlan(ctx context.Context, weekID string) (*coach.WeeklyPlan, error) {
	plan, err := o.store.GetPlan(ctx, weekID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w for week %s", coach.ErrPlanNotFound, weekID)
	}
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	return plan, nil
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
