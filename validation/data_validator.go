// Package validation provides data validation functionality for the medicine recommender.
package validation

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/giygas/medicine-recommender/catalog/entities"
	"github.com/giygas/medicine-recommender/interfaces"
)

const (
	// MaxNameLength bounds user supplied medicine names, in runes
	MaxNameLength = 200

	// Two scores closer than this are treated as equal by the quality report
	symmetryTolerance = 1e-9
)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ValidateDataset checks that a dataset can be served: a non-empty catalog of
// unique names and a square matrix of finite scores matching its length.
func (v *DataValidatorImpl) ValidateDataset(ds *entities.Dataset) error {
	if ds == nil {
		return fmt.Errorf("dataset is nil")
	}

	n := len(ds.Names)
	if n == 0 {
		return fmt.Errorf("no medicines found")
	}

	seen := make(map[string]int, n)
	for i, name := range ds.Names {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("empty medicine name at index %d", i)
		}
		// catalog names follow the same rules as user input
		if err := validateName(name); err != nil {
			return fmt.Errorf("invalid medicine name at index %d: %w", i, err)
		}
		if first, dup := seen[name]; dup {
			return fmt.Errorf("duplicate medicine name %q at indexes %d and %d", name, first, i)
		}
		seen[name] = i
	}

	if len(ds.Similarity) != n {
		return fmt.Errorf("similarity matrix has %d rows, catalog has %d medicines", len(ds.Similarity), n)
	}

	for i, row := range ds.Similarity {
		if len(row) != n {
			return fmt.Errorf("similarity row %d (%s) has %d columns, expected %d", i, ds.Names[i], len(row), n)
		}
		for j, score := range row {
			if math.IsNaN(score) || math.IsInf(score, 0) {
				return fmt.Errorf("similarity[%d][%d] is not a finite number", i, j)
			}
		}
	}

	return nil
}

// ReportDataQuality reports oddities that do not prevent serving.
// The dataset must already have passed ValidateDataset.
func (v *DataValidatorImpl) ReportDataQuality(ds *entities.Dataset) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		Medicines:          ds.Len(),
		RowsWithoutSelfMax: []string{},
	}

	for i, row := range ds.Similarity {
		allZero := true
		selfIsMax := true
		for j, score := range row {
			if score != 0 {
				allZero = false
			}
			if j != i && score > row[i] {
				selfIsMax = false
			}
			// each unordered pair once
			if j > i && math.Abs(score-ds.Similarity[j][i]) > symmetryTolerance {
				report.AsymmetricPairs++
			}
		}

		if allZero {
			report.ZeroRows++
		}
		if !selfIsMax {
			report.RowsWithoutSelfMax = append(report.RowsWithoutSelfMax, ds.Names[i])
		}
	}

	return report
}

// ValidateInput validates a medicine name typed or posted by a user.
// Medicine names legitimately contain punctuation (%, /, +, parentheses),
// so only length, encoding and control characters are checked.
func (v *DataValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("medicine name cannot be empty")
	}
	return validateName(input)
}

// validateName holds the rules shared by catalog names and user input
func validateName(name string) error {
	if !utf8.ValidString(name) {
		return fmt.Errorf("medicine name is not valid UTF-8")
	}

	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("medicine name too long (max %d characters)", MaxNameLength)
	}

	hasAlnum := false
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("medicine name contains control characters")
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			hasAlnum = true
		}
	}

	if !hasAlnum {
		return fmt.Errorf("medicine name must contain a letter or a digit")
	}

	return nil
}
