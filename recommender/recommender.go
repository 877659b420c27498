// Package recommender answers "which medicines are most similar to this one"
// from a precomputed similarity matrix.
package recommender

import (
	"sort"

	"github.com/giygas/medicine-recommender/catalog/entities"
	"github.com/giygas/medicine-recommender/interfaces"
	"github.com/giygas/medicine-recommender/metrics"
)

// DefaultCount is the number of recommendations returned for a medicine
const DefaultCount = 5

// Compile-time check to ensure Service implements Recommender
var _ interfaces.Recommender = (*Service)(nil)

type scored struct {
	index int
	score float64
}

// Recommend returns up to k names most similar to name, best first.
// The medicine itself is never part of the result, even when its own
// score is not the row maximum. Ties keep catalog order.
func Recommend(ds *entities.Dataset, name string, k int) ([]string, error) {
	self, ok := ds.IndexOf(name)
	if !ok {
		return nil, &entities.NotFoundError{Name: name}
	}
	if k <= 0 {
		return []string{}, nil
	}

	row := ds.Row(self)
	candidates := make([]scored, 0, len(row))
	for j, score := range row {
		if j == self {
			continue
		}
		candidates = append(candidates, scored{index: j, score: score})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = ds.Name(c.index)
	}
	return names, nil
}

// Service serves recommendations from the dataset currently held by a DataStore
type Service struct {
	store interfaces.DataStore
	count int
}

// NewService creates a recommender returning DefaultCount names per lookup
func NewService(store interfaces.DataStore) *Service {
	return &Service{store: store, count: DefaultCount}
}

// Recommend looks name up in the current dataset
func (s *Service) Recommend(name string) ([]string, error) {
	names, err := Recommend(s.store.GetDataset(), name, s.count)
	if err != nil {
		metrics.RecommendationsTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
		return nil, err
	}
	metrics.RecommendationsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	return names, nil
}
