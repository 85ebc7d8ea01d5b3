package repo

import (
	"context"
	"time"

	"github.com/hamed0406/uptimers/internal/domain"
)

// AvgWindow is how far back the rolling success average looks.
const AvgWindow = 24 * time.Hour

// FactReader answers "what happened last time" for transition detection.
type FactReader interface {
	// LastFact returns nil, nil when the site has no facts yet.
	LastFact(ctx context.Context, site string) (*domain.Fact, error)
}

// FactWriter persists probe outcomes and site metadata.
type FactWriter interface {
	// InsertFactIfAbsent stores f unless a fact with the same (site, timestamp)
	// exists. inserted is false for the duplicate case, which is not an error.
	InsertFactIfAbsent(ctx context.Context, f domain.Fact) (inserted bool, err error)
	// UpsertSite stores the site, replacing the display name of an existing row.
	UpsertSite(ctx context.Context, s domain.Site) error
}

// StatusQuerier builds the rows of the public status page.
type StatusQuerier interface {
	// AggregatedStatus returns, for every key that has both a site row and at
	// least one fact at or after since, its latest fact and the average success
	// of its facts at or after since. Order is unspecified.
	AggregatedStatus(ctx context.Context, keys []string, since time.Time) ([]domain.AggregatedStatus, error)
}

// FactStore is everything the monitor needs from persistence.
type FactStore interface {
	FactReader
	FactWriter
	StatusQuerier
}

// Migrator is implemented by stores that own a schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}
