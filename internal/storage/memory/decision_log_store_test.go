package memory

import (
	"context"
	"errors"
	"testing"

	"position-sizing-engine/internal/domain"
	"position-sizing-engine/internal/storage"
)

func TestDecisionLogStore_InsertAndGet(t *testing.T) {
	store := NewDecisionLogStore()
	ctx := context.Background()

	d := &domain.SizingDecision{
		DecisionID: "d1",
		UserID:     "u1",
		EventType:  domain.EventTradeOutcome,
		Timestamp:  1000,
		FinalSize:  110,
	}

	if err := store.Insert(ctx, d); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByUserID(ctx, "u1", 0, 2000)
	if err != nil {
		t.Fatalf("GetByUserID failed: %v", err)
	}
	if len(got) != 1 || got[0].FinalSize != 110 {
		t.Errorf("Unexpected result: %+v", got)
	}
}

func TestDecisionLogStore_DuplicateKey(t *testing.T) {
	store := NewDecisionLogStore()
	ctx := context.Background()

	d := &domain.SizingDecision{DecisionID: "d1", UserID: "u1", Timestamp: 1000}
	if err := store.Insert(ctx, d); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, d)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestDecisionLogStore_InsertBulkIntraBatchDuplicate(t *testing.T) {
	store := NewDecisionLogStore()
	ctx := context.Background()

	decisions := []*domain.SizingDecision{
		{DecisionID: "d1", UserID: "u1", Timestamp: 1000},
		{DecisionID: "d1", UserID: "u1", Timestamp: 2000},
	}

	err := store.InsertBulk(ctx, decisions)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Failed batch must insert nothing
	got, _ := store.GetByUserID(ctx, "u1", 0, 3000)
	if len(got) != 0 {
		t.Errorf("Expected empty store after failed batch, got %d rows", len(got))
	}
}

func TestDecisionLogStore_TimeRangeAndOrdering(t *testing.T) {
	store := NewDecisionLogStore()
	ctx := context.Background()

	decisions := []*domain.SizingDecision{
		{DecisionID: "d3", UserID: "u1", Timestamp: 3000},
		{DecisionID: "d1", UserID: "u1", Timestamp: 1000},
		{DecisionID: "d2", UserID: "u1", Timestamp: 2000},
		{DecisionID: "dx", UserID: "u2", Timestamp: 2000},
	}
	if err := store.InsertBulk(ctx, decisions); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByUserID(ctx, "u1", 1000, 2000)
	if err != nil {
		t.Fatalf("GetByUserID failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 rows in range, got %d", len(got))
	}
	if got[0].DecisionID != "d1" || got[1].DecisionID != "d2" {
		t.Errorf("Expected ascending timestamp order, got %s, %s", got[0].DecisionID, got[1].DecisionID)
	}
}

func TestDecisionLogStore_InvalidInput(t *testing.T) {
	store := NewDecisionLogStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.SizingDecision{UserID: "u1"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty decision_id, got %v", err)
	}
}
