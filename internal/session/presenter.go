package session

import (
	"io"

	"github.com/fpang/batch-compress/internal/preview"
	"github.com/fpang/batch-compress/internal/progress"
	"github.com/fpang/batch-compress/internal/reconcile"
)

// Level is the severity of a Notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is one user-facing message.
type Notice struct {
	Level   Level
	Message string
}

// Presenter is the presentation layer the session writes to. Progress updates
// and retrieval results arrive from background goroutines, so implementations
// must be safe for concurrent use.
type Presenter interface {
	Notify(Notice)

	// ShowProcessing opens (true) or closes (false) the processing view.
	ShowProcessing(bool)
	ShowProgress(progress.State)
	ShowStats(reconcile.Outcome)

	ShowPreview(items []preview.Item, estimatedSavings int64)
	ResetPreview()

	// SaveArtifact persists a downloaded payload under name and returns where
	// it was written. The reader is only valid during the call.
	SaveArtifact(name string, r io.Reader) (string, error)
}
