package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jdvalenciag/emprende_hub/chat"
	"github.com/jdvalenciag/emprende_hub/models"
	"gorm.io/gorm"
)

// RelationshipService owns the messaging eligibility rules. The chat
// resolver consumes it through the chat.EligibilityChecker interface and
// never reads the rule data directly.
type RelationshipService struct {
	db *gorm.DB
}

func NewRelationshipService(db *gorm.DB) *RelationshipService {
	return &RelationshipService{db: db}
}

// IsEligible decides whether the pairing is permitted.
//
// Ally pairings require an assignment row between the entrepreneur and the
// ally — active or ended, a past assignment keeps the conversation open.
// Peer pairings require both users to be entrepreneurs visible in the
// directory.
func (s *RelationshipService) IsEligible(ctx context.Context, initiator, counterpart uuid.UUID, kind chat.PairKind) (bool, error) {
	switch kind {
	case chat.KindAllyPairing:
		var count int64
		err := s.db.WithContext(ctx).Model(&models.Assignment{}).
			Where("(entrepreneur_id = ? AND ally_id = ?) OR (entrepreneur_id = ? AND ally_id = ?)",
				initiator, counterpart, counterpart, initiator).
			Count(&count).Error
		if err != nil {
			return false, err
		}
		return count > 0, nil

	case chat.KindPeerPairing:
		var count int64
		err := s.db.WithContext(ctx).Model(&models.User{}).
			Where("id IN ? AND role = ? AND directory_visible = ?",
				[]uuid.UUID{initiator, counterpart}, models.RoleEntrepreneur, true).
			Count(&count).Error
		if err != nil {
			return false, err
		}
		return count == 2, nil

	default:
		return false, chat.ErrInvalidKind
	}
}
