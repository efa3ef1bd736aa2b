package repository

import (
	"context"
	"fmt"
	"time"

	"reward-advisor/domain"
)

// RecommendationRepository persists generated recommendations. Replace
// supersedes the user's previous batch, so only the latest computation is
// served. ListCurrent never returns items expired at now.
type RecommendationRepository interface {
	Replace(ctx context.Context, userID string, recs []domain.Recommendation) error
	ListCurrent(ctx context.Context, userID string, now time.Time) ([]domain.Recommendation, error)
}

func checkOwner(userID string, recs []domain.Recommendation) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	for _, rec := range recs {
		if rec.UserID != userID {
			return fmt.Errorf("%w: recommendation %s belongs to %q, not %q", domain.ErrValidation, rec.ID, rec.UserID, userID)
		}
	}
	return nil
}
