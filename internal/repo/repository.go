package repo

import (
	"context"

	"github.com/hamed0406/statuschecker/internal/domain"
)

// RunStore keeps finished runs so they can be read back later (API, tooling).
type RunStore interface {
	Save(ctx context.Context, r *domain.Run) error
	// Get returns nil, nil when the id is unknown.
	Get(ctx context.Context, id string) (*domain.Run, error)
	// Latest returns nil, nil when nothing was saved yet.
	Latest(ctx context.Context) (*domain.Run, error)
}
