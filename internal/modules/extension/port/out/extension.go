package out

import (
	"context"

	"extman/internal/modules/extension/domain"
)

type ConfigStore interface {
	Load(ctx context.Context) ([]domain.Entry, error)
	Save(ctx context.Context, entries []domain.Entry) error
}

type IndexProjector interface {
	Reset(ctx context.Context) error
	Upsert(ctx context.Context, record domain.IndexRecord) error
}

// EnvSource resolves env_keys references at activation time.
type EnvSource interface {
	Lookup(name string) (string, bool)
}
