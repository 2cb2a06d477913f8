package chat

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jdvalenciag/emprende_hub/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EligibilityChecker is the relationship/assignment service consulted before
// any conversation is created. The resolver calls it but does not own the
// rule data.
type EligibilityChecker interface {
	IsEligible(ctx context.Context, initiator, counterpart uuid.UUID, kind PairKind) (bool, error)
}

// Resolver determines the canonical conversation for a pair of users and
// enforces who may message whom.
type Resolver struct {
	db      *gorm.DB
	checker EligibilityChecker
}

func NewResolver(db *gorm.DB, checker EligibilityChecker) *Resolver {
	return &Resolver{db: db, checker: checker}
}

// Resolve returns the single conversation for the unordered pair, creating
// it lazily on first resolution. Repeated calls with the arguments swapped
// return the same row. Creation is idempotent: the pair_key uniqueness
// constraint decides races, and the loser re-reads the winner's row.
func (r *Resolver) Resolve(ctx context.Context, initiator, counterpart uuid.UUID, kind PairKind) (*models.Conversation, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	if initiator == counterpart || initiator == uuid.Nil || counterpart == uuid.Nil {
		return nil, ErrIneligible
	}

	ok, err := r.checker.IsEligible(ctx, initiator, counterpart, kind)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrIneligible
	}

	key := PairKey(kind, initiator, counterpart)

	var conv models.Conversation
	err = r.db.WithContext(ctx).Where("pair_key = ?", key).First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	lo, hi := NormalizePair(initiator, counterpart)
	conv = models.Conversation{
		ParticipantA: lo,
		ParticipantB: hi,
		Kind:         kind.String(),
		PairKey:      key,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "pair_key"}}, DoNothing: true}).
		Create(&conv)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost the creation race, the winner's row is already there.
		if err := r.db.WithContext(ctx).Where("pair_key = ?", key).First(&conv).Error; err != nil {
			return nil, err
		}
	}
	return &conv, nil
}
