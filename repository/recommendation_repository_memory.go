package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"reward-advisor/domain"
)

// RecommendationRepositoryMemory is an in-memory implementation of RecommendationRepository.
type RecommendationRepositoryMemory struct {
	mu   sync.RWMutex
	data map[string][]domain.Recommendation
}

// NewRecommendationRepositoryMemory creates a new in-memory recommendation repository.
func NewRecommendationRepositoryMemory() *RecommendationRepositoryMemory {
	return &RecommendationRepositoryMemory{
		data: make(map[string][]domain.Recommendation),
	}
}

// Replace swaps the user's stored batch for a copy of recs.
func (r *RecommendationRepositoryMemory) Replace(_ context.Context, userID string, recs []domain.Recommendation) error {
	if err := checkOwner(userID, recs); err != nil {
		return err
	}

	batch := make([]domain.Recommendation, 0, len(recs))
	for _, rec := range recs {
		rec.ActionItems = append([]string(nil), rec.ActionItems...)
		batch = append(batch, rec)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(batch) == 0 {
		delete(r.data, userID)
		return nil
	}
	r.data[userID] = batch
	return nil
}

func (r *RecommendationRepositoryMemory) ListCurrent(_ context.Context, userID string, now time.Time) ([]domain.Recommendation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Recommendation
	for _, rec := range r.data[userID] {
		if rec.IsCurrent(now) {
			out = append(out, rec)
		}
	}
	sortRecommendations(out)
	return out, nil
}

// sortRecommendations orders newest batch first, then by priority rank and
// benefit within a batch.
func sortRecommendations(recs []domain.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		}
		if recs[i].Priority.Rank() != recs[j].Priority.Rank() {
			return recs[i].Priority.Rank() > recs[j].Priority.Rank()
		}
		if recs[i].ExpectedBenefit != recs[j].ExpectedBenefit {
			return recs[i].ExpectedBenefit > recs[j].ExpectedBenefit
		}
		return recs[i].Title < recs[j].Title
	})
}
