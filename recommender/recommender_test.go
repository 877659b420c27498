package recommender

import (
	"testing"
	"time"

	"github.com/giygas/medicine-recommender/catalog/entities"
	"github.com/giygas/medicine-recommender/interfaces"
	"github.com/giygas/medicine-recommender/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	ds *entities.Dataset
}

func (s *stubStore) GetDataset() *entities.Dataset { return s.ds }

func (s *stubStore) GetCatalog() []string { return s.ds.Names }

func (s *stubStore) GetLoadedAt() time.Time { return time.Time{} }

func (s *stubStore) GetServerStartTime() time.Time { return time.Time{} }

func (s *stubStore) GetQualityReport() *interfaces.DataQualityReport { return nil }

func (s *stubStore) IsLoaded() bool { return s.ds != nil }

func sevenMedicines() *entities.Dataset {
	names := []string{"A", "B", "C", "D", "E", "F", "G"}
	matrix := [][]float64{
		{1.0, 0.9, 0.8, 0.7, 0.6, 0.5, 0.4},
		{0.9, 1.0, 0.1, 0.1, 0.1, 0.1, 0.1},
		{0.8, 0.1, 1.0, 0.1, 0.1, 0.1, 0.1},
		{0.7, 0.1, 0.1, 1.0, 0.1, 0.1, 0.1},
		{0.6, 0.1, 0.1, 0.1, 1.0, 0.1, 0.1},
		{0.5, 0.1, 0.1, 0.1, 0.1, 1.0, 0.1},
		{0.4, 0.1, 0.1, 0.1, 0.1, 0.1, 1.0},
	}
	return entities.NewDataset(names, matrix)
}

func TestRecommendTopFive(t *testing.T) {
	got, err := Recommend(sevenMedicines(), "A", DefaultCount)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "D", "E", "F"}, got)
}

func TestRecommendProperties(t *testing.T) {
	ds := sevenMedicines()

	for _, name := range ds.Names {
		got, err := Recommend(ds, name, DefaultCount)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got), DefaultCount)
		assert.NotContains(t, got, name)

		seen := make(map[string]bool)
		for _, rec := range got {
			_, ok := ds.IndexOf(rec)
			assert.True(t, ok, "%s is not in the catalog", rec)
			assert.False(t, seen[rec], "duplicate recommendation %s", rec)
			seen[rec] = true
		}
	}
}

func TestRecommendTiesKeepCatalogOrder(t *testing.T) {
	// every other medicine of row B scores 0.1
	got, err := Recommend(sevenMedicines(), "B", DefaultCount)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "D", "E", "F"}, got)
}

func TestRecommendSmallCatalog(t *testing.T) {
	ds := entities.NewDataset(
		[]string{"Dolo 650", "Crocin", "Calpol"},
		[][]float64{{1, 0.2, 0.7}, {0.2, 1, 0.3}, {0.7, 0.3, 1}},
	)

	got, err := Recommend(ds, "Dolo 650", DefaultCount)
	require.NoError(t, err)
	assert.Equal(t, []string{"Calpol", "Crocin"}, got)

	single := entities.NewDataset([]string{"Solo"}, [][]float64{{1}})
	got, err = Recommend(single, "Solo", DefaultCount)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecommendSelfNotRowMaximum(t *testing.T) {
	ds := entities.NewDataset(
		[]string{"A", "B", "C"},
		[][]float64{{0.5, 0.9, 0.8}, {0.9, 1, 0}, {0.8, 0, 1}},
	)

	got, err := Recommend(ds, "A", DefaultCount)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, got)
}

func TestRecommendNotFound(t *testing.T) {
	_, err := Recommend(sevenMedicines(), "Unknown", DefaultCount)
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrMedicineNotFound)

	var nf *entities.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Unknown", nf.Name)

	_, err = Recommend(sevenMedicines(), "a", DefaultCount)
	assert.ErrorIs(t, err, entities.ErrMedicineNotFound, "lookup is exact")

	_, err = Recommend(nil, "A", DefaultCount)
	assert.ErrorIs(t, err, entities.ErrMedicineNotFound)
}

func TestRecommendDeterministic(t *testing.T) {
	ds := sevenMedicines()
	first, err := Recommend(ds, "D", DefaultCount)
	require.NoError(t, err)

	for range 10 {
		again, err := Recommend(ds, "D", DefaultCount)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestServiceRecordsOutcome(t *testing.T) {
	svc := NewService(&stubStore{ds: sevenMedicines()})

	okBefore := testutil.ToFloat64(metrics.RecommendationsTotal.WithLabelValues(metrics.OutcomeOK))
	missBefore := testutil.ToFloat64(metrics.RecommendationsTotal.WithLabelValues(metrics.OutcomeNotFound))

	got, err := svc.Recommend("A")
	require.NoError(t, err)
	assert.Len(t, got, DefaultCount)

	_, err = svc.Recommend("Z")
	assert.ErrorIs(t, err, entities.ErrMedicineNotFound)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(metrics.RecommendationsTotal.WithLabelValues(metrics.OutcomeOK)))
	assert.Equal(t, missBefore+1, testutil.ToFloat64(metrics.RecommendationsTotal.WithLabelValues(metrics.OutcomeNotFound)))
}
