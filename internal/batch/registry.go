// Package batch holds the ordered set of files staged for one compression job.
package batch

import (
	"errors"
	"fmt"

	"github.com/fpang/batch-compress/internal/filehandler"
)

// ErrIndexOutOfRange is returned by RemoveAt for an index outside the batch.
var ErrIndexOutOfRange = errors.New("index out of range")

// State tells dependents whether there is anything to render.
type State int

const (
	// Empty means no files are registered; previews and estimates must be reset.
	Empty State = iota
	// Populated means at least one file is registered.
	Populated
)

func (s State) String() string {
	if s == Populated {
		return "populated"
	}
	return "empty"
}

// Registry is the single source of truth for the current batch.
//
// A Registry is an owned value passed to whoever needs it. It is NOT safe for
// concurrent mutation; the owning session serializes access.
type Registry struct {
	files []filehandler.CandidateFile
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// ReplaceAll swaps the whole batch for files, preserving their order.
func (r *Registry) ReplaceAll(files []filehandler.CandidateFile) {
	r.files = append([]filehandler.CandidateFile(nil), files...)
}

// RemoveAt removes the file at index i, preserving the order of the rest.
// An out-of-range index leaves the batch unchanged.
func (r *Registry) RemoveAt(i int) error {
	if i < 0 || i >= len(r.files) {
		return fmt.Errorf("remove file %d of %d: %w", i, len(r.files), ErrIndexOutOfRange)
	}
	r.files = append(r.files[:i:i], r.files[i+1:]...)
	return nil
}

// Clear removes every file.
func (r *Registry) Clear() {
	r.files = nil
}

// List returns a copy of the registered files in order.
func (r *Registry) List() []filehandler.CandidateFile {
	return append([]filehandler.CandidateFile(nil), r.files...)
}

// Len returns the number of registered files.
func (r *Registry) Len() int {
	return len(r.files)
}

// State reports whether the registry is empty.
func (r *Registry) State() State {
	if len(r.files) == 0 {
		return Empty
	}
	return Populated
}

// TotalSize returns the sum of the registered file sizes in bytes.
func (r *Registry) TotalSize() int64 {
	var total int64
	for _, f := range r.files {
		total += f.Size
	}
	return total
}
