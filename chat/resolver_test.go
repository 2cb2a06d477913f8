package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jdvalenciag/emprende_hub/models"
)

type fakeChecker struct {
	allow bool
	calls int
}

func (f *fakeChecker) IsEligible(ctx context.Context, initiator, counterpart uuid.UUID, kind PairKind) (bool, error) {
	f.calls++
	return f.allow, nil
}

func TestResolveRejectsInvalidKind(t *testing.T) {
	r := NewResolver(nil, &fakeChecker{allow: true})

	if _, err := r.Resolve(context.Background(), uuid.New(), uuid.New(), PairKind(42)); err != ErrInvalidKind {
		t.Errorf("Resolve(bad kind) error = %v, want ErrInvalidKind", err)
	}
}

func TestResolveRejectsSelfPairing(t *testing.T) {
	r := NewResolver(nil, &fakeChecker{allow: true})

	id := uuid.New()
	if _, err := r.Resolve(context.Background(), id, id, KindPeerPairing); err != ErrIneligible {
		t.Errorf("Resolve(self) error = %v, want ErrIneligible", err)
	}
}

func TestResolveIneligiblePersistsNothing(t *testing.T) {
	db := newTestDB(t)
	r := NewResolver(db, &fakeChecker{allow: false})

	a, b := uuid.New(), uuid.New()
	if _, err := r.Resolve(context.Background(), a, b, KindAllyPairing); err != ErrIneligible {
		t.Fatalf("Resolve() error = %v, want ErrIneligible", err)
	}

	var count int64
	if err := db.Model(&models.Conversation{}).
		Where("pair_key = ?", PairKey(KindAllyPairing, a, b)).
		Count(&count).Error; err != nil {
		t.Fatalf("counting conversations: %v", err)
	}
	if count != 0 {
		t.Error("an ineligible pairing must not create a conversation")
	}
}

func TestResolveOrderIndependent(t *testing.T) {
	db := newTestDB(t)
	r := NewResolver(db, &fakeChecker{allow: true})
	ctx := context.Background()

	a, b := uuid.New(), uuid.New()
	conv1, err := r.Resolve(ctx, a, b, KindAllyPairing)
	if err != nil {
		t.Fatalf("Resolve(a, b) error: %v", err)
	}
	t.Cleanup(func() { db.Delete(conv1) })

	conv2, err := r.Resolve(ctx, b, a, KindAllyPairing)
	if err != nil {
		t.Fatalf("Resolve(b, a) error: %v", err)
	}
	if conv1.ID != conv2.ID {
		t.Errorf("Resolve must be order-independent: %s != %s", conv1.ID, conv2.ID)
	}
}

func TestResolveSurvivesClear(t *testing.T) {
	db := newTestDB(t)
	r := NewResolver(db, &fakeChecker{allow: true})
	store := NewStore(db)
	ctx := context.Background()

	a, b := uuid.New(), uuid.New()
	conv, err := r.Resolve(ctx, a, b, KindPeerPairing)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	t.Cleanup(func() {
		db.Where("conversation_id = ?", conv.ID).Delete(&models.Message{})
		db.Delete(conv)
	})

	if _, err := store.Append(ctx, conv.ID, a, "hi", nil); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if _, err := store.Clear(ctx, conv.ID); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	again, err := r.Resolve(ctx, a, b, KindPeerPairing)
	if err != nil {
		t.Fatalf("Resolve() after clear error: %v", err)
	}
	if again.ID != conv.ID {
		t.Errorf("conversation identity must survive a clear: %s != %s", again.ID, conv.ID)
	}
}

func TestResolveConcurrentFirstContactCreatesOneRow(t *testing.T) {
	db := newTestDB(t)
	r := NewResolver(db, &fakeChecker{allow: true})
	ctx := context.Background()

	a, b := uuid.New(), uuid.New()
	t.Cleanup(func() {
		db.Where("pair_key = ?", PairKey(KindAllyPairing, a, b)).Delete(&models.Conversation{})
	})

	const racers = 8
	ids := make([]uuid.UUID, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv, err := r.Resolve(ctx, a, b, KindAllyPairing)
			if err != nil {
				t.Errorf("racer %d: %v", i, err)
				return
			}
			ids[i] = conv.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < racers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("racers resolved different conversations: %s != %s", ids[i], ids[0])
		}
	}

	var count int64
	if err := db.Model(&models.Conversation{}).
		Where("pair_key = ?", PairKey(KindAllyPairing, a, b)).
		Count(&count).Error; err != nil {
		t.Fatalf("counting conversations: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly 1 conversation row, got %d", count)
	}
}
