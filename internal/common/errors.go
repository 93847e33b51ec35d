// Package common defines sentinel errors shared by the repositories, the
// entry store and the view-model. Callers should match them with errors.Is.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrStorageFault is matched by every *StorageFault.
	ErrStorageFault = errors.New("storage fault")

	// ErrClosed is returned by components used after Close.
	ErrClosed = errors.New("closed")
)

// StorageFault reports that the backing medium failed during Op.
type StorageFault struct {
	Op  string
	Err error
}

// NewStorageFault wraps err unless it is nil, already a StorageFault, or a
// NotFound condition, which callers handle separately.
func NewStorageFault(op string, err error) error {
	if err == nil || errors.Is(err, ErrorNotFound) || errors.Is(err, ErrStorageFault) {
		return err
	}
	return &StorageFault{Op: op, Err: err}
}

func (f *StorageFault) Error() string {
	return fmt.Sprintf("storage fault during %s: %v", f.Op, f.Err)
}

func (f *StorageFault) Unwrap() error { return f.Err }

func (f *StorageFault) Is(target error) bool { return target == ErrStorageFault }
