package services

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jdvalenciag/emprende_hub/chat"
	"github.com/jdvalenciag/emprende_hub/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skipf("TEST_DATABASE_URL not set; skipping database tests")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Assignment{}); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func newTestUser(t *testing.T, db *gorm.DB, role string, visible bool) *models.User {
	t.Helper()
	user := &models.User{
		FullName:         "Test " + role,
		Email:            uuid.NewString() + "@example.com",
		Password:         "x",
		Role:             role,
		DirectoryVisible: visible,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	t.Cleanup(func() { db.Delete(user) })
	return user
}

func TestAllyPairingRequiresAssignment(t *testing.T) {
	db := newTestDB(t)
	svc := NewRelationshipService(db)
	ctx := context.Background()

	entrepreneur := newTestUser(t, db, models.RoleEntrepreneur, true)
	assignedAlly := newTestUser(t, db, models.RoleAlly, true)
	strangerAlly := newTestUser(t, db, models.RoleAlly, true)

	assignment := &models.Assignment{
		EntrepreneurID: entrepreneur.ID,
		AllyID:         assignedAlly.ID,
		Status:         models.AssignmentActive,
	}
	if err := db.Create(assignment).Error; err != nil {
		t.Fatalf("creating assignment: %v", err)
	}
	t.Cleanup(func() { db.Delete(assignment) })

	ok, err := svc.IsEligible(ctx, entrepreneur.ID, assignedAlly.ID, chat.KindAllyPairing)
	if err != nil || !ok {
		t.Errorf("assigned ally: eligible = %v, err = %v; want true, nil", ok, err)
	}

	// The check is direction-agnostic: the ally may initiate too.
	ok, err = svc.IsEligible(ctx, assignedAlly.ID, entrepreneur.ID, chat.KindAllyPairing)
	if err != nil || !ok {
		t.Errorf("ally initiating: eligible = %v, err = %v; want true, nil", ok, err)
	}

	ok, err = svc.IsEligible(ctx, entrepreneur.ID, strangerAlly.ID, chat.KindAllyPairing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("an ally with no assignment must not be eligible")
	}
}

func TestEndedAssignmentStillEligible(t *testing.T) {
	db := newTestDB(t)
	svc := NewRelationshipService(db)

	entrepreneur := newTestUser(t, db, models.RoleEntrepreneur, true)
	formerAlly := newTestUser(t, db, models.RoleAlly, true)

	assignment := &models.Assignment{
		EntrepreneurID: entrepreneur.ID,
		AllyID:         formerAlly.ID,
		Status:         models.AssignmentEnded,
	}
	if err := db.Create(assignment).Error; err != nil {
		t.Fatalf("creating assignment: %v", err)
	}
	t.Cleanup(func() { db.Delete(assignment) })

	ok, err := svc.IsEligible(context.Background(), entrepreneur.ID, formerAlly.ID, chat.KindAllyPairing)
	if err != nil || !ok {
		t.Errorf("past assignment: eligible = %v, err = %v; want true, nil", ok, err)
	}
}

func TestPeerPairingRequiresMutualVisibility(t *testing.T) {
	db := newTestDB(t)
	svc := NewRelationshipService(db)
	ctx := context.Background()

	visible1 := newTestUser(t, db, models.RoleEntrepreneur, true)
	visible2 := newTestUser(t, db, models.RoleEntrepreneur, true)
	hidden := newTestUser(t, db, models.RoleEntrepreneur, false)
	ally := newTestUser(t, db, models.RoleAlly, true)

	ok, err := svc.IsEligible(ctx, visible1.ID, visible2.ID, chat.KindPeerPairing)
	if err != nil || !ok {
		t.Errorf("two visible entrepreneurs: eligible = %v, err = %v; want true, nil", ok, err)
	}

	ok, _ = svc.IsEligible(ctx, visible1.ID, hidden.ID, chat.KindPeerPairing)
	if ok {
		t.Error("a hidden entrepreneur must not be reachable as a peer")
	}

	ok, _ = svc.IsEligible(ctx, visible1.ID, ally.ID, chat.KindPeerPairing)
	if ok {
		t.Error("an ally must not be reachable through a peer pairing")
	}
}

func TestIsEligibleRejectsUnknownKind(t *testing.T) {
	svc := NewRelationshipService(nil)

	if _, err := svc.IsEligible(context.Background(), uuid.New(), uuid.New(), chat.PairKind(9)); err != chat.ErrInvalidKind {
		t.Errorf("IsEligible(bad kind) error = %v, want ErrInvalidKind", err)
	}
}
