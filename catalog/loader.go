// Package catalog reads the medicine catalog and its similarity matrix from
// the files produced by the offline pipeline. JSON, YAML and Parquet exports
// are supported; the format is chosen from the file extension.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/giygas/medicine-recommender/catalog/entities"
	"github.com/giygas/medicine-recommender/interfaces"
	"github.com/parquet-go/parquet-go"
	"golang.org/x/text/encoding/charmap"
	"gopkg.in/yaml.v3"
)

// Compile-time check to ensure FileLoader implements DatasetLoader
var _ interfaces.DatasetLoader = (*FileLoader)(nil)

// Format is a serialization format of the dataset file
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatParquet Format = "parquet"
)

// document is the layout of JSON and YAML exports.
// DrugName carries the column-oriented export of the original data frame,
// {"Drug_Name": {"0": "...", "1": "..."}}, used when Medicines is empty.
type document struct {
	Medicines  []string          `json:"medicines" yaml:"medicines"`
	DrugName   map[string]string `json:"Drug_Name,omitempty" yaml:"Drug_Name,omitempty"`
	Similarity [][]float64       `json:"similarity" yaml:"similarity"`
}

// similarityRow is one Parquet row: a medicine and its row of the matrix
type similarityRow struct {
	Name   string    `parquet:"name"`
	Scores []float64 `parquet:"scores"`
}

// FileLoader loads a dataset from a local file
type FileLoader struct {
	path   string
	format Format
}

// NewFileLoader creates a loader for path, rejecting unknown extensions
func NewFileLoader(path string) (*FileLoader, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	return &FileLoader{path: path, format: format}, nil
}

// FormatFromPath maps a file extension to a Format
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".parquet":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported dataset format for %s", path)
	}
}

func (l *FileLoader) Source() string {
	return l.path
}

// Load reads and decodes the dataset file.
// Structural validation is left to the DataValidator.
func (l *FileLoader) Load(ctx context.Context) (*entities.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		names  []string
		matrix [][]float64
		err    error
	)

	switch l.format {
	case FormatParquet:
		names, matrix, err = readParquet(l.path)
	default:
		names, matrix, err = l.readDocument()
	}
	if err != nil {
		return nil, err
	}

	ds := entities.NewDataset(names, matrix)
	ds.Source = l.path
	ds.Format = string(l.format)
	return ds, nil
}

func (l *FileLoader) readDocument() ([]string, [][]float64, error) {
	raw, err := os.ReadFile(filepath.Clean(l.path))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read dataset %s: %w", l.path, err)
	}

	raw, err = toUTF8(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode dataset %s: %w", l.path, err)
	}

	var doc document
	switch l.format {
	case FormatYAML:
		err = yaml.Unmarshal(raw, &doc)
	default:
		err = json.Unmarshal(raw, &doc)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s dataset %s: %w", l.format, l.path, err)
	}

	names := doc.Medicines
	if len(names) == 0 && len(doc.DrugName) > 0 {
		names, err = namesFromColumn(doc.DrugName)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid Drug_Name column in %s: %w", l.path, err)
		}
	}

	return names, doc.Similarity, nil
}

// toUTF8 returns raw unchanged when it is valid UTF-8 and decodes it as
// ISO-8859-1 otherwise. Older exports of the catalog were written in latin-1.
func toUTF8(raw []byte) ([]byte, error) {
	if utf8.Valid(raw) {
		return raw, nil
	}
	return charmap.ISO8859_1.NewDecoder().Bytes(raw)
}

// namesFromColumn orders a {"row index": name} column by index.
// Indexes must be exactly 0..N-1.
func namesFromColumn(column map[string]string) ([]string, error) {
	type entry struct {
		index int
		name  string
	}

	entries := make([]entry, 0, len(column))
	for key, name := range column {
		i, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("row key %q is not an integer", key)
		}
		entries = append(entries, entry{index: i, name: name})
	}

	sort.Slice(entries, func(a, b int) bool { return entries[a].index < entries[b].index })

	names := make([]string, len(entries))
	for i, e := range entries {
		if e.index != i {
			return nil, fmt.Errorf("row keys are not contiguous, expected %d got %d", i, e.index)
		}
		names[i] = e.name
	}
	return names, nil
}

func readParquet(path string) ([]string, [][]float64, error) {
	rows, err := parquet.ReadFile[similarityRow](path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read parquet dataset %s: %w", path, err)
	}

	names := make([]string, len(rows))
	matrix := make([][]float64, len(rows))
	for i, row := range rows {
		names[i] = row.Name
		matrix[i] = row.Scores
	}
	return names, matrix, nil
}

// WriteFile exports ds to path in the format matching its extension.
// It is used for offline conversion between formats and to build test fixtures;
// the service itself only reads datasets.
func WriteFile(path string, ds *entities.Dataset) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	if format == FormatParquet {
		rows := make([]similarityRow, ds.Len())
		for i := range rows {
			rows[i] = similarityRow{Name: ds.Name(i), Scores: ds.Row(i)}
		}
		if err := parquet.WriteFile(path, rows); err != nil {
			return fmt.Errorf("failed to write parquet dataset %s: %w", path, err)
		}
		return nil
	}

	doc := document{Medicines: ds.Names, Similarity: ds.Similarity}

	var buf bytes.Buffer
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode yaml dataset: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode yaml dataset: %w", err)
		}
	default:
		enc := json.NewEncoder(&buf)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode json dataset: %w", err)
		}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write dataset %s: %w", path, err)
	}
	return nil
}
