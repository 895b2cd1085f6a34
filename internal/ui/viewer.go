package ui

import "ptrun/internal/storage"

// Viewer displays a recorded run in an interactive TUI
type Viewer interface {
	View(record *storage.RunRecord) error
}
