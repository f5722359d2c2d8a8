package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// AutosaveState values surface to the UI saving indicator.
type AutosaveState string

const (
	AutosaveIdle   AutosaveState = "idle"
	AutosaveSaving AutosaveState = "saving"
	AutosaveSaved  AutosaveState = "saved"
	AutosaveFailed AutosaveState = "failed"
)

// AutosaveStatus is the indicator payload. A failed state sticks until the
// next save attempt succeeds.
type AutosaveStatus struct {
	State       AutosaveState `json:"state"`
	LastError   string        `json:"last_error,omitempty"`
	LastSavedAt *time.Time    `json:"last_saved_at,omitempty"`
}

// DraftPersister is the slice of SubmissionService the autosaver depends on.
type DraftPersister interface {
	PersistDraft(ctx context.Context, investorID string, req DraftRequest) (*SubmissionResponse, error)
}

// Autosaver periodically persists the in-memory draft of one editing session.
// Saves are fire-and-forget for the caller; overlapping triggers are dropped,
// never queued, so a slow store cannot stack writes for the same draft.
type Autosaver struct {
	persister  DraftPersister
	investorID string
	interval   time.Duration

	saving atomic.Bool

	mu     sync.Mutex
	latest *DraftRequest
	gen    uint64 // bumped on every Update; a save only cleans the generation it snapshotted
	saved  uint64 // generation of the last successful save
	status AutosaveStatus
}

// NewAutosaver creates an autosaver for one investor editing session.
func NewAutosaver(p DraftPersister, investorID string, interval time.Duration) *Autosaver {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Autosaver{
		persister:  p,
		investorID: investorID,
		interval:   interval,
		status:     AutosaveStatus{State: AutosaveIdle},
	}
}

// Update replaces the in-memory draft with the latest form state.
func (a *Autosaver) Update(req DraftRequest) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Keep the identifier once a save has assigned one, so later updates
	// from a client that has not yet learned the id still hit the same row.
	if req.ID == "" && a.latest != nil && a.latest.ID != "" {
		req.ID = a.latest.ID
	}
	a.latest = &req
	a.gen++
}

// Run ticks until ctx is cancelled. One goroutine per editing session.
func (a *Autosaver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = a.Save(ctx)
		}
	}
}

// Save persists the current draft once. It returns nil when the save was
// skipped (already in flight, nothing changed, or the draft has no
// identifying field yet).
func (a *Autosaver) Save(ctx context.Context) error {
	if !a.saving.CompareAndSwap(false, true) {
		// A save is in flight; this trigger is dropped, not queued.
		return nil
	}
	defer a.saving.Store(false)

	a.mu.Lock()
	if a.latest == nil || a.gen == a.saved || !identified(*a.latest) {
		a.mu.Unlock()
		return nil
	}
	req := *a.latest
	gen := a.gen
	a.status.State = AutosaveSaving
	a.mu.Unlock()

	resp, err := a.persister.PersistDraft(ctx, a.investorID, req)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.status.State = AutosaveFailed
		a.status.LastError = err.Error()
		return err
	}

	now := time.Now()
	a.status = AutosaveStatus{State: AutosaveSaved, LastSavedAt: &now}
	// Only the snapshotted generation is clean. An Update that landed while
	// the save was in flight bumped gen, so the draft stays dirty and the
	// next tick (or Flush) persists it.
	a.saved = gen
	if a.latest != nil && a.latest.ID == "" && resp != nil {
		a.latest.ID = resp.ID
	}
	return nil
}

// Flush saves until the latest draft generation is persisted, used when the
// editing session closes. Edits that raced an in-flight save still land.
func (a *Autosaver) Flush(ctx context.Context) error {
	for {
		if err := a.Save(ctx); err != nil {
			return err
		}
		a.mu.Lock()
		clean := a.latest == nil || a.gen == a.saved || !identified(*a.latest)
		a.mu.Unlock()
		if clean {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		// Another save is in flight; let it finish before retrying.
		time.Sleep(10 * time.Millisecond)
	}
}

// Status returns a snapshot of the indicator state.
func (a *Autosaver) Status() AutosaveStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// identified reports whether the draft carries at least one identifying
// field; anonymous empty forms are not worth persisting.
func identified(req DraftRequest) bool {
	return strings.TrimSpace(req.PersonalInfo.FullName) != "" ||
		strings.TrimSpace(req.CourtAgreementNumber) != ""
}
