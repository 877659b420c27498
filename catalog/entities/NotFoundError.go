package entities

import (
	"errors"
	"fmt"
)

// ErrMedicineNotFound is matched by every NotFoundError through errors.Is.
var ErrMedicineNotFound = errors.New("medicine not found")

// NotFoundError reports a medicine name with no exact match in the catalog.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMedicineNotFound.Error(), e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrMedicineNotFound
}
