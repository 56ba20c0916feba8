package batch

import (
	"errors"
	"testing"

	"github.com/fpang/batch-compress/internal/filehandler"
)

func files(names ...string) []filehandler.CandidateFile {
	out := make([]filehandler.CandidateFile, 0, len(names))
	for i, n := range names {
		out = append(out, filehandler.CandidateFile{Name: n, Size: int64(i + 1)})
	}
	return out
}

func names(r *Registry) []string {
	var out []string
	for _, f := range r.List() {
		out = append(out, f.Name)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRemoveAtPreservesOrder(t *testing.T) {
	tests := []struct {
		name     string
		index    int
		expected []string
	}{
		{"first", 0, []string{"b", "c", "d"}},
		{"middle", 2, []string{"a", "b", "d"}},
		{"last", 3, []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			r.ReplaceAll(files("a", "b", "c", "d"))
			if err := r.RemoveAt(tt.index); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := names(r); !equal(got, tt.expected) {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRemoveAtInvalidIndex(t *testing.T) {
	for _, idx := range []int{-1, 3, 100} {
		r := NewRegistry()
		r.ReplaceAll(files("a", "b", "c"))
		err := r.RemoveAt(idx)
		if !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("RemoveAt(%d): expected ErrIndexOutOfRange, got %v", idx, err)
		}
		if got := names(r); !equal(got, []string{"a", "b", "c"}) {
			t.Errorf("RemoveAt(%d) changed the batch: %v", idx, got)
		}
	}
}

func TestRemoveLastTransitionsToEmpty(t *testing.T) {
	r := NewRegistry()
	r.ReplaceAll(files("only"))
	if r.State() != Populated {
		t.Fatalf("expected populated, got %s", r.State())
	}
	if err := r.RemoveAt(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.State() != Empty || r.Len() != 0 {
		t.Errorf("expected empty registry, got %s with %d files", r.State(), r.Len())
	}
}

func TestListReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.ReplaceAll(files("a", "b"))
	list := r.List()
	list[0].Name = "mutated"
	if names(r)[0] != "a" {
		t.Error("List must not expose internal storage")
	}
}

func TestReplaceAllAndClear(t *testing.T) {
	src := files("a", "b")
	r := NewRegistry()
	r.ReplaceAll(src)
	src[0].Name = "mutated"
	if names(r)[0] != "a" {
		t.Error("ReplaceAll must copy its input")
	}
	if r.TotalSize() != 3 {
		t.Errorf("expected total size 3, got %d", r.TotalSize())
	}

	r.ReplaceAll(files("x"))
	if !equal(names(r), []string{"x"}) {
		t.Errorf("ReplaceAll must replace, got %v", names(r))
	}

	r.Clear()
	if r.State() != Empty {
		t.Errorf("expected empty after Clear, got %s", r.State())
	}
}
