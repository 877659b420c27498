// Package pricing synthesizes demo price comparisons across pharmacy vendors.
// Prices are random and carry no real-world meaning.
package pricing

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/giygas/medicine-recommender/catalog/entities"
	"github.com/giygas/medicine-recommender/interfaces"
	"github.com/giygas/medicine-recommender/metrics"
	"golang.org/x/text/cases"
)

// Vendor prices deviate from the base price by this factor range
const (
	MinVendorFactor = 0.95
	MaxVendorFactor = 1.10
)

// Compile-time checks
var (
	_ interfaces.PriceSynthesizer = (*Synthesizer)(nil)
	_ interfaces.RandomSource     = (*LockedSource)(nil)
)

// Bucket is a base price range for names containing one of its keywords
type Bucket struct {
	Keywords []string
	Low      float64
	High     float64
}

// Buckets are evaluated in order, the first matching bucket wins
var Buckets = []Bucket{
	{Keywords: []string{"paracetamol"}, Low: 10, High: 50},
	{Keywords: []string{"dolo", "fever"}, Low: 20, High: 60},
	{Keywords: []string{"azithromycin", "antibiotic"}, Low: 50, High: 150},
	{Keywords: []string{"cetrizine", "allergy"}, Low: 10, High: 40},
}

// DefaultBucket applies to names matching no keyword
var DefaultBucket = Bucket{Low: 15, High: 200}

// Synthesizer generates price quotes from an injected random source
type Synthesizer struct {
	rand interfaces.RandomSource
}

// NewSynthesizer creates a synthesizer drawing from src
func NewSynthesizer(src interfaces.RandomSource) *Synthesizer {
	return &Synthesizer{rand: src}
}

// GeneratePrices returns one quote per name, in input order.
// Duplicate names are priced independently.
func (s *Synthesizer) GeneratePrices(names []string) []entities.PriceQuote {
	// a Caser keeps state and must not be shared across goroutines
	folder := cases.Fold()

	quotes := make([]entities.PriceQuote, 0, len(names))
	for _, name := range names {
		bucket := BucketFor(folder.String(name))
		base := float64(entities.RoundPrice(s.rand.Uniform(bucket.Low, bucket.High)))

		prices := make(map[entities.Vendor]entities.Price, len(entities.Vendors))
		for _, vendor := range entities.Vendors {
			factor := s.rand.Uniform(MinVendorFactor, MaxVendorFactor)
			prices[vendor] = entities.RoundPrice(base * factor)
		}

		quotes = append(quotes, entities.PriceQuote{DrugName: name, VendorPrices: prices})
	}

	metrics.PriceQuotesGenerated.Add(float64(len(quotes)))
	return quotes
}

// BucketFor picks the price bucket of an already case-folded name
func BucketFor(folded string) Bucket {
	for _, bucket := range Buckets {
		for _, keyword := range bucket.Keywords {
			if strings.Contains(folded, keyword) {
				return bucket
			}
		}
	}
	return DefaultBucket
}

// LockedSource is a RandomSource safe for concurrent use
type LockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLockedSource seeds a PCG generator. A zero seed picks a random one.
func NewLockedSource(seed uint64) *LockedSource {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &LockedSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// unitSteps is the number of evenly spaced steps of the closed unit interval
const unitSteps = 1 << 53

// Uniform returns a number in [low, high], both ends included
func (s *LockedSource) Uniform(low, high float64) float64 {
	s.mu.Lock()
	n := s.rng.Uint64N(unitSteps + 1)
	s.mu.Unlock()
	return scale(n, low, high)
}

// scale maps n in [0, unitSteps] onto [low, high]
func scale(n uint64, low, high float64) float64 {
	return low + float64(n)/unitSteps*(high-low)
}
