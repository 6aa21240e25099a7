// Package store persists simulation snapshots keyed by simulation id.
package store

import (
	"context"
	"errors"
	"regexp"
	"time"
)

// ErrNotFound is returned when no snapshot exists for an id
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is a serialized simulation along with the parameters it was
// created from
type Snapshot struct {
	ID   string
	Lat  float64
	Lon  float64
	Dist int
	Data []byte // JSON document
}

// Summary describes a stored snapshot without its content
type Summary struct {
	ID        string    `json:"id"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Dist      int       `json:"dist"`
	UpdatedAt time.Time `json:"mtime"`
}

// Store holds one snapshot per simulation id. Saving an existing id
// replaces it: concurrent writers of the same id race and the last one wins.
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
	// List returns the stored snapshots ordered by id
	List(ctx context.Context) ([]Summary, error)
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidID reports whether id can be used as a storage key
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}
