package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/fpang/batch-compress/internal/filehandler"
	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// ErrPickerCanceled is returned when the user dismisses a native dialog.
var ErrPickerCanceled = errors.New("selection canceled")

// PickFiles opens the native multi-file picker filtered to supported types,
// with an "All files" fallback so unsupported picks still reach admission.
func PickFiles() ([]string, error) {
	patterns := make([]string, 0, len(filehandler.SupportedMIMETypes))
	for ext := range filehandler.SupportedMIMETypes {
		patterns = append(patterns, "*."+ext)
	}
	sort.Strings(patterns)

	selected, err := zenity.SelectFileMultiple(
		zenity.Title("Select files to compress"),
		zenity.FileFilters{
			{Name: "Supported files", Patterns: patterns},
			{Name: "All files", Patterns: []string{"*"}},
		},
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return nil, ErrPickerCanceled
		}
		return nil, fmt.Errorf("file picker failed: %w", err)
	}

	log.Debug().Int("count", len(selected)).Msg("Files picked")
	return selected, nil
}

// PickSaveLocation opens the native save dialog pre-filled with name.
func PickSaveLocation(name string) (string, error) {
	path, err := zenity.SelectFileSave(
		zenity.Title("Save compressed files"),
		zenity.Filename(name),
		zenity.ConfirmOverwrite(),
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return "", ErrPickerCanceled
		}
		return "", fmt.Errorf("save dialog failed: %w", err)
	}
	return path, nil
}
