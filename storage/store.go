// Package storage persists coaching state in a single JSON document.
//
// The document holds one profile plus one live plan and one live history
// entry per week identifier. Writes replace the record with the same week id
// in place, so the document never carries two records for one week.
package storage

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/c360studio/execoach/coach"
)

// DefaultStateFile is the document name inside the data directory.
const DefaultStateFile = "state.json"

// Document is the on-disk shape of the state file.
type Document struct {
	Profile *coach.Profile           `json:"profile"`
	Plans   []coach.WeeklyPlan       `json:"plans"`
	History []coach.ExecutionHistory `json:"history"`
}

// Store reads and writes the state document. All writes go through a
// read-modify-write cycle guarded by a mutex and land via rename.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithClock overrides the time source used for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open returns a store for the document at path, creating its directory.
// The file itself is created on first write.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("state file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s := &Store{
		path:   path,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the whole document. A missing file is an empty document.
func (s *Store) Load(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *Store) read() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", s.path, err)
	}
	return &doc, nil
}

func (s *Store) write(doc *Document) error {
	if doc.Plans == nil {
		doc.Plans = []coach.WeeklyPlan{}
	}
	if doc.History == nil {
		doc.History = []coach.ExecutionHistory{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// update runs fn against the current document and persists the result
// unless fn returns an error.
func (s *Store) update(ctx context.Context, fn func(doc *Document) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.write(doc)
}

// upsert replaces the element with the same key in place, or appends.
func upsert[T any](list []T, v T, key func(T) string) []T {
	k := key(v)
	for i := range list {
		if key(list[i]) == k {
			list[i] = v
			return list
		}
	}
	return append(list, v)
}

func find[T any](list []T, k string, key func(T) string) (int, bool) {
	for i := range list {
		if key(list[i]) == k {
			return i, true
		}
	}
	return -1, false
}

func planKey(p coach.WeeklyPlan) string { return p.WeekID }
func historyKey(h coach.ExecutionHistory) string { return h.WeekID }

// --- Profile ---

// SaveProfile replaces the stored profile and stamps UpdatedAt.
func (s *Store) SaveProfile(ctx context.Context, p *coach.Profile) error {
	if p == nil {
		return errors.New("profile is required")
	}
	return s.update(ctx, func(doc *Document) error {
		stored := *p
		stored.UpdatedAt = s.now()
		doc.Profile = &stored
		p.UpdatedAt = stored.UpdatedAt
		return nil
	})
}

// LoadProfile returns the active profile or ErrNotFound.
func (s *Store) LoadProfile(ctx context.Context) (*coach.Profile, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if doc.Profile == nil {
		return nil, fmt.Errorf("%w: profile", ErrNotFound)
	}
	return doc.Profile, nil
}

// ProfileExists reports whether a profile is stored.
func (s *Store) ProfileExists(ctx context.Context) (bool, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return false, err
	}
	return doc.Profile != nil, nil
}

// --- Plans ---

// SavePlan stores plan, replacing any plan for the same week.
func (s *Store) SavePlan(ctx context.Context, plan *coach.WeeklyPlan) error {
	if err := coach.ValidateWeekID(plan.WeekID); err != nil {
		return err
	}
	return s.update(ctx, func(doc *Document) error {
		doc.Plans = upsert(doc.Plans, *plan.Clone(), planKey)
		return nil
	})
}

// CommitGeneratedPlan stores a freshly generated plan and resets the week's
// history entry to hold only that plan. Both land in one write.
func (s *Store) CommitGeneratedPlan(ctx context.Context, plan *coach.WeeklyPlan) error {
	if err := coach.ValidateWeekID(plan.WeekID); err != nil {
		return err
	}
	return s.update(ctx, func(doc *Document) error {
		doc.Plans = upsert(doc.Plans, *plan.Clone(), planKey)
		doc.History = upsert(doc.History, coach.ExecutionHistory{
			WeekID: plan.WeekID,
			Plan:   *plan.Clone(),
		}, historyKey)
		return nil
	})
}

// ReplacePlan overwrites an existing plan and refreshes the plan snapshot in
// the week's history entry, keeping its reality check and report.
func (s *Store) ReplacePlan(ctx context.Context, plan *coach.WeeklyPlan) error {
	return s.update(ctx, func(doc *Document) error {
		i, ok := find(doc.Plans, plan.WeekID, planKey)
		if !ok {
			return fmt.Errorf("%w: plan %s", ErrNotFound, plan.WeekID)
		}
		doc.Plans[i] = *plan.Clone()
		if j, ok := find(doc.History, plan.WeekID, historyKey); ok {
			doc.History[j].Plan = *plan.Clone()
		}
		return nil
	})
}

// GetPlan returns the plan for weekID or ErrNotFound.
func (s *Store) GetPlan(ctx context.Context, weekID string) (*coach.WeeklyPlan, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	i, ok := find(doc.Plans, weekID, planKey)
	if !ok {
		return nil, fmt.Errorf("%w: plan %s", ErrNotFound, weekID)
	}
	return &doc.Plans[i], nil
}

// ListPlans returns every stored plan in document order.
func (s *Store) ListPlans(ctx context.Context) ([]coach.WeeklyPlan, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if doc.Plans == nil {
		return []coach.WeeklyPlan{}, nil
	}
	return doc.Plans, nil
}

// LatestPlan returns the plan with the highest week id or ErrNotFound.
func (s *Store) LatestPlan(ctx context.Context) (*coach.WeeklyPlan, error) {
	plans, err := s.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("%w: no plans stored", ErrNotFound)
	}
	latest := slices.MaxFunc(plans, func(a, b coach.WeeklyPlan) int {
		return cmp.Compare(a.WeekID, b.WeekID)
	})
	return &latest, nil
}

// DailyActionUpdate carries the user-editable fields of a daily action.
type DailyActionUpdate struct {
	Completed   *bool   `json:"completed,omitempty"`
	ActualNotes *string `json:"actual_notes,omitempty"`
}

// UpdateDailyAction applies u to one day of a stored plan and returns the
// updated plan. The history snapshot of the week follows the plan.
func (s *Store) UpdateDailyAction(ctx context.Context, weekID string, day coach.Day, u DailyActionUpdate) (*coach.WeeklyPlan, error) {
	var updated *coach.WeeklyPlan
	err := s.update(ctx, func(doc *Document) error {
		i, ok := find(doc.Plans, weekID, planKey)
		if !ok {
			return fmt.Errorf("%w: plan %s", ErrNotFound, weekID)
		}
		plan := &doc.Plans[i]
		action := plan.Action(day)
		if action == nil {
			return fmt.Errorf("%w: plan %s has no action for %s", ErrNotFound, weekID, day)
		}
		if u.Completed != nil {
			action.Completed = *u.Completed
		}
		if u.ActualNotes != nil {
			notes := *u.ActualNotes
			action.ActualNotes = &notes
		}
		plan.UpdatedAt = s.now()
		if j, ok := find(doc.History, weekID, historyKey); ok {
			doc.History[j].Plan = *plan.Clone()
		}
		updated = plan.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// --- History ---

// SaveHistoryEntry stores entry, replacing any entry for the same week.
func (s *Store) SaveHistoryEntry(ctx context.Context, entry *coach.ExecutionHistory) error {
	if err := coach.ValidateWeekID(entry.WeekID); err != nil {
		return err
	}
	return s.update(ctx, func(doc *Document) error {
		doc.History = upsert(doc.History, *entry, historyKey)
		return nil
	})
}

// GetHistoryEntry returns the entry for weekID or ErrNotFound.
func (s *Store) GetHistoryEntry(ctx context.Context, weekID string) (*coach.ExecutionHistory, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	i, ok := find(doc.History, weekID, historyKey)
	if !ok {
		return nil, fmt.Errorf("%w: history %s", ErrNotFound, weekID)
	}
	return &doc.History[i], nil
}

// ListHistory returns entries sorted by week id, newest first. A limit of
// zero or less returns everything.
func (s *Store) ListHistory(ctx context.Context, limit int) ([]coach.ExecutionHistory, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	history := doc.History
	slices.SortStableFunc(history, func(a, b coach.ExecutionHistory) int {
		return cmp.Compare(b.WeekID, a.WeekID)
	})
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	if history == nil {
		return []coach.ExecutionHistory{}, nil
	}
	return history, nil
}

// withHistory runs fn against the week's history entry. When the week has a
// plan but no entry yet, the entry is created from the plan.
func withHistory(doc *Document, weekID string, fn func(h *coach.ExecutionHistory)) error {
	i, ok := find(doc.History, weekID, historyKey)
	if !ok {
		p, ok := find(doc.Plans, weekID, planKey)
		if !ok {
			return fmt.Errorf("%w: history %s", ErrNotFound, weekID)
		}
		doc.History = append(doc.History, coach.ExecutionHistory{WeekID: weekID, Plan: doc.Plans[p]})
		i = len(doc.History) - 1
	}
	fn(&doc.History[i])
	return nil
}

// SaveRealityCheck attaches rc to its week's history entry.
func (s *Store) SaveRealityCheck(ctx context.Context, rc *coach.RealityCheck) error {
	return s.update(ctx, func(doc *Document) error {
		return withHistory(doc, rc.WeekID, func(h *coach.ExecutionHistory) {
			stored := *rc
			h.RealityCheck = &stored
		})
	})
}

// SaveDeviationReport attaches r to its week's history entry and records
// its completion rate as the week's final rate.
func (s *Store) SaveDeviationReport(ctx context.Context, r *coach.DeviationReport) error {
	return s.update(ctx, func(doc *Document) error {
		return withHistory(doc, r.WeekID, func(h *coach.ExecutionHistory) {
			stored := *r
			rate := r.CompletionRate
			h.DeviationReport = &stored
			h.FinalCompletionRate = &rate
		})
	})
}

// GetDeviationReport returns the week's report or ErrNotFound.
func (s *Store) GetDeviationReport(ctx context.Context, weekID string) (*coach.DeviationReport, error) {
	entry, err := s.GetHistoryEntry(ctx, weekID)
	if err != nil {
		return nil, err
	}
	if entry.DeviationReport == nil {
		return nil, fmt.Errorf("%w: deviation report %s", ErrNotFound, weekID)
	}
	return entry.DeviationReport, nil
}

// --- Utilities ---

// Clear removes the state document.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove state: %w", err)
	}
	s.logger.Info("Cleared coaching state", "path", s.path)
	return nil
}

// Stats counts stored records.
func (s *Store) Stats(ctx context.Context) (coach.Stats, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return coach.Stats{}, err
	}
	return coach.Stats{
		ProfileExists:       doc.Profile != nil,
		TotalPlans:          len(doc.Plans),
		TotalHistoryEntries: len(doc.History),
	}, nil
}
