package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingPersister counts saves and can be told to fail.
type recordingPersister struct {
	mu    sync.Mutex
	saves []DraftRequest
	fail  error
	block chan struct{} // when set, PersistDraft waits on it
}

func (p *recordingPersister) PersistDraft(_ context.Context, _ string, req DraftRequest) (*SubmissionResponse, error) {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return nil, p.fail
	}
	p.saves = append(p.saves, req)
	id := req.ID
	if id == "" {
		id = "generated-id"
	}
	return &SubmissionResponse{ID: id}, nil
}

func (p *recordingPersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.saves)
}

func identifiedDraft(name string) DraftRequest {
	var req DraftRequest
	req.PersonalInfo.FullName = name
	return req
}

func TestAutosaverSkipsUnidentifiedDraft(t *testing.T) {
	p := &recordingPersister{}
	a := NewAutosaver(p, "inv-1", time.Second)

	a.Update(DraftRequest{}) // nothing identifying yet
	if err := a.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if p.count() != 0 {
		t.Fatalf("anonymous draft must not be persisted, got %d saves", p.count())
	}
}

func TestAutosaverSavesOnlyWhenDirty(t *testing.T) {
	p := &recordingPersister{}
	a := NewAutosaver(p, "inv-1", time.Second)

	a.Update(identifiedDraft("Jane Doe"))
	if err := a.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if p.count() != 1 {
		t.Fatalf("expected 1 save, got %d", p.count())
	}

	// Nothing changed: the next tick is a no-op.
	if err := a.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if p.count() != 1 {
		t.Fatalf("clean draft must not be re-saved, got %d saves", p.count())
	}

	a.Update(identifiedDraft("Janet Doe"))
	_ = a.Save(context.Background())
	if p.count() != 2 {
		t.Fatalf("expected 2 saves after new edit, got %d", p.count())
	}
}

func TestAutosaverLearnsAssignedID(t *testing.T) {
	p := &recordingPersister{}
	a := NewAutosaver(p, "inv-1", time.Second)

	a.Update(identifiedDraft("Jane Doe"))
	_ = a.Save(context.Background())

	// A later update without an id still targets the created row.
	a.Update(identifiedDraft("Janet Doe"))
	_ = a.Save(context.Background())

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.saves) != 2 {
		t.Fatalf("expected 2 saves, got %d", len(p.saves))
	}
	if p.saves[1].ID != "generated-id" {
		t.Fatalf("expected second save to reuse assigned id, got %q", p.saves[1].ID)
	}
}

func TestAutosaverOverlappingSaveDropped(t *testing.T) {
	p := &recordingPersister{block: make(chan struct{})}
	a := NewAutosaver(p, "inv-1", time.Second)

	a.Update(identifiedDraft("Jane Doe"))

	done := make(chan error, 1)
	go func() { done <- a.Save(context.Background()) }()

	// Wait until the first save is in flight, then trigger a second: it must
	// return immediately without queueing.
	for !a.saving.Load() {
		time.Sleep(time.Millisecond)
	}
	if err := a.Save(context.Background()); err != nil {
		t.Fatalf("overlapping save: %v", err)
	}
	if p.count() != 0 {
		t.Fatal("second save must not have reached the persister")
	}

	close(p.block)
	if err := <-done; err != nil {
		t.Fatalf("first save: %v", err)
	}
	if p.count() != 1 {
		t.Fatalf("expected exactly 1 persisted save, got %d", p.count())
	}
}

func TestAutosaverEditDuringInFlightSaveIsKept(t *testing.T) {
	p := &recordingPersister{block: make(chan struct{})}
	a := NewAutosaver(p, "inv-1", time.Second)

	a.Update(identifiedDraft("Jane Doe"))

	done := make(chan error, 1)
	go func() { done <- a.Save(context.Background()) }()
	for !a.saving.Load() {
		time.Sleep(time.Millisecond)
	}

	// The user keeps typing while the save is on the wire.
	a.Update(identifiedDraft("Janet Doe"))

	close(p.block)
	if err := <-done; err != nil {
		t.Fatalf("first save: %v", err)
	}

	// Closing the session must still persist the newer edit.
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.saves) != 2 {
		t.Fatalf("expected the mid-save edit to trigger a second save, got %d", len(p.saves))
	}
	if got := p.saves[1].PersonalInfo.FullName; got != "Janet Doe" {
		t.Fatalf("expected last persisted draft to carry the newer edit, got %q", got)
	}
}

func TestAutosaverFailureSticksUntilSuccess(t *testing.T) {
	p := &recordingPersister{fail: errors.New("store down")}
	a := NewAutosaver(p, "inv-1", time.Second)

	a.Update(identifiedDraft("Jane Doe"))
	if err := a.Save(context.Background()); err == nil {
		t.Fatal("expected save failure")
	}
	if st := a.Status(); st.State != AutosaveFailed || st.LastError == "" {
		t.Fatalf("expected failed status, got %+v", st)
	}

	// The draft stays dirty, so recovery retries the same content.
	p.mu.Lock()
	p.fail = nil
	p.mu.Unlock()
	if err := a.Save(context.Background()); err != nil {
		t.Fatalf("recovery save: %v", err)
	}
	st := a.Status()
	if st.State != AutosaveSaved || st.LastSavedAt == nil {
		t.Fatalf("expected saved status after recovery, got %+v", st)
	}
}

func TestAutosaverFlush(t *testing.T) {
	p := &recordingPersister{}
	a := NewAutosaver(p, "inv-1", time.Second)

	a.Update(identifiedDraft("Jane Doe"))
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if p.count() != 1 {
		t.Fatalf("expected flush to persist, got %d saves", p.count())
	}
}
