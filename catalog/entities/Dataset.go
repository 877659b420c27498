package entities

// Dataset pairs the medicine catalog with its precomputed similarity matrix.
// Names[i] is the medicine described by row i of Similarity.
type Dataset struct {
	Names      []string    `json:"medicines"`
	Similarity [][]float64 `json:"similarity"`
	Source     string      `json:"-"`
	Format     string      `json:"-"`

	index map[string]int
}

// NewDataset builds a dataset and its name index.
// When a name appears more than once, the first occurrence wins.
func NewDataset(names []string, similarity [][]float64) *Dataset {
	index := make(map[string]int, len(names))
	for i, name := range names {
		if _, exists := index[name]; !exists {
			index[name] = i
		}
	}

	return &Dataset{
		Names:      names,
		Similarity: similarity,
		index:      index,
	}
}

// IndexOf returns the row index of name
func (d *Dataset) IndexOf(name string) (int, bool) {
	if d == nil {
		return 0, false
	}
	i, ok := d.index[name]
	return i, ok
}

// Len returns the number of medicines in the catalog
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Names)
}

func (d *Dataset) Name(i int) string {
	return d.Names[i]
}

func (d *Dataset) Row(i int) []float64 {
	return d.Similarity[i]
}
