package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Row is one record of tabular installation data: column name to cell value.
// Rows survive a JSON round-trip, so numeric cells come back as float64.
type Row map[string]any

// Note is a manually authored or edited per-unit note, the only record the
// notes core mutates.
type Note struct {
	ID        string    `json:"id"`
	Unit      string    `json:"unit"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"timestamp"`
}
