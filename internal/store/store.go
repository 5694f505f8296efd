// Package store keeps session snapshots for the serve command. The default
// DSN is an in-memory sqlite database: sessions live for the process
// lifetime and vanish on restart, matching the no-durable-storage contract.
package store

import (
	"context"

	"github.com/andes-audit/concilia/internal/session"
)

// SessionStore persists whole session snapshots keyed by id.
type SessionStore interface {
	Save(ctx context.Context, state session.State) error
	Get(ctx context.Context, id string) (*session.State, error)
	ByEntity(ctx context.Context, entity string) (*session.State, error)
	List(ctx context.Context) ([]SessionInfo, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// SessionInfo is the listing view of a stored session.
type SessionInfo struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Analyzed bool   `json:"analyzed"`
}
