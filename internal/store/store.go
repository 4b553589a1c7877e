// Package store implements the encrypted transactional container that
// holds secrets, versions, stages, and tags.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Sentinel errors every Store implementation surfaces. Callers compare
// against these with errors.Is; anything else collapses to a generic
// failure per the service's error propagation rule.
var (
	// ErrNotFound is returned when a lookup addresses a row that does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrUniqueViolation is returned when an insert collides with a unique
	// constraint (secret name, version id, or stage-label placement).
	ErrUniqueViolation = errors.New("store: unique constraint violation")
)

// Secret is a stored secret's row plus the data needed to render the
// AWS-shaped responses (its current version payload and tags), which is
// what every read path ultimately needs.
type Secret struct {
	ARN               string
	Name              string
	Description       *string
	CreatedAt         time.Time
	UpdatedAt         *time.Time
	DeletedAt         *time.Time
	ScheduledDeleteAt *time.Time

	// VersionID, SecretString, SecretBinary, VersionCreatedAt, and
	// VersionStages describe whichever version the query resolved
	// against (AWSCURRENT by default, or an explicit version/stage).
	VersionID        string
	SecretString     *string
	SecretBinary     []byte
	VersionCreatedAt time.Time
	LastAccessedAt   *time.Time
	VersionStages    []string

	Tags []Tag
}

// Version describes a single immutable secret version, independent of
// any particular secret lookup.
type Version struct {
	VersionID      string
	SecretString   *string
	SecretBinary   []byte
	CreatedAt      time.Time
	LastAccessedAt *time.Time
	VersionStages  []string
}

// Tag is a single key/value pair attached to a secret.
type Tag struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// FilterKey enumerates the columns ListSecrets/BatchGetSecretValue filters
// can address.
type FilterKey string

const (
	FilterKeyName        FilterKey = "name"
	FilterKeyDescription FilterKey = "description"
	FilterKeyTagKey      FilterKey = "tag-key"
	FilterKeyTagValue    FilterKey = "tag-value"
	FilterKeyAll         FilterKey = "all"
)

// Filter is a single clause of a ListSecrets/BatchGetSecretValue filter
// list: it matches if any of Values is a case-sensitive substring of the
// indicated column (or, for FilterKeyAll, of name/description/tag-key/
// tag-value), inverted if Negate is set. Clauses are AND-ed together.
type Filter struct {
	Key    FilterKey
	Values []string
	Negate bool
}

// NewSecret describes the row CreateSecret inserts.
type NewSecret struct {
	ARN         string
	Name        string
	Description *string
}

// NewVersion describes the row a new secret version inserts.
type NewVersion struct {
	SecretARN    string
	VersionID    string
	SecretString *string
	SecretBinary []byte
}

const (
	// StageCurrent is the stage label that marks a secret's active version.
	StageCurrent = "AWSCURRENT"
	// StagePrevious is the stage label that marks the version displaced by
	// the most recent rotation.
	StagePrevious = "AWSPREVIOUS"
)

// Querier is satisfied by both *sql.DB and *sql.Tx. Store methods accept
// it so callers choose whether an operation runs standalone or as part
// of a larger, explicitly committed/rolled-back transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the full contract the secret engine depends on. A single
// concrete implementation (SQLiteStore) backs it in this service; the
// interface exists so the engine and its tests don't depend on *sql.DB
// directly.
type Store interface {
	// Begin opens a new serializable-equivalent transaction. The
	// returned *sql.Tx is used as a Querier for every step; the caller
	// commits or rolls back explicitly.
	Begin(ctx context.Context) (*sql.Tx, error)

	CreateSecret(ctx context.Context, q Querier, in NewSecret) error
	CreateSecretVersion(ctx context.Context, q Querier, in NewVersion) error
	// GetSecretMetadata resolves a secret's row (plus its tags) without
	// requiring it to have any particular version or stage, unlike the
	// version-bound Get* methods below. Operations that only need secret
	// metadata (DescribeSecret, tagging, stage moves) use this so they
	// still work on a secret whose versions are all deprecated.
	GetSecretMetadata(ctx context.Context, q Querier, secretIDOrName string) (*Secret, error)
	GetSecretByVersionID(ctx context.Context, q Querier, secretIDOrName, versionID string) (*Secret, error)
	GetSecretLatestVersion(ctx context.Context, q Querier, secretIDOrName string) (*Secret, error)
	GetSecretByVersionStage(ctx context.Context, q Querier, secretIDOrName, stage string) (*Secret, error)
	GetSecretByVersionStageAndID(ctx context.Context, q Querier, secretIDOrName, versionID, stage string) (*Secret, error)
	GetSecretVersions(ctx context.Context, q Querier, secretARN string) ([]Version, error)
	GetSecretVersionsPage(ctx context.Context, q Querier, secretARN string, includeDeprecated bool, limit, offset int) ([]Version, error)
	CountSecretVersions(ctx context.Context, q Querier, secretARN string, includeDeprecated bool) (int, error)
	UpdateSecretVersionLastAccessed(ctx context.Context, q Querier, secretARN, versionID string, at time.Time) error
	UpdateSecretDescription(ctx context.Context, q Querier, secretARN string, description string) error

	AddSecretVersionStage(ctx context.Context, q Querier, secretARN, versionID, stage string) error
	RemoveSecretVersionStage(ctx context.Context, q Querier, secretARN, versionID, stage string) (int64, error)
	RemoveSecretVersionStageAny(ctx context.Context, q Querier, secretARN, stage string) error

	PutSecretTag(ctx context.Context, q Querier, secretARN, key, value string) error
	RemoveSecretTag(ctx context.Context, q Querier, secretARN, key string) error

	ScheduleDeleteSecret(ctx context.Context, q Querier, secretARN string, recoveryWindowDays int) (time.Time, error)
	CancelDeleteSecret(ctx context.Context, q Querier, secretARN string) error
	DeleteSecret(ctx context.Context, q Querier, secretARN string) error

	GetSecretsByFilter(ctx context.Context, q Querier, filters []Filter, includePlannedDeletion bool, limit, offset int, asc bool) ([]Secret, error)
	GetSecretsCountByFilter(ctx context.Context, q Querier, filters []Filter, includePlannedDeletion bool) (int, error)

	// ReapExpired hard-deletes (cascading versions/stages/tags) every
	// secret whose scheduled deletion instant has elapsed, returning
	// the ARNs removed.
	ReapExpired(ctx context.Context, q Querier, now time.Time) ([]string, error)

	Close() error
}

// checkpointer is implemented by Store backends that keep their durable
// state behind a scratch file needing an explicit reseal after a write
// (SQLiteStore, via its encrypted container).
type checkpointer interface {
	Checkpoint() error
}

// WithTransaction runs action inside a new transaction, rolling back on
// any returned error and committing otherwise. It mirrors the
// begin/mutate/commit-or-rollback discipline every multi-step
// SecretEngine operation must follow. On a successful commit it also
// reseals the encrypted container (when the backend supports it), so every
// committed write-transaction batch is durable on disk, not just the state
// left in the backend's scratch file.
func WithTransaction[T any](ctx context.Context, s Store, action func(q Querier) (T, error)) (T, error) {
	var zero T

	tx, err := s.Begin(ctx)
	if err != nil {
		return zero, err
	}

	out, err := action(tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return zero, errors.Join(err, rbErr)
		}
		return zero, err
	}

	if err := tx.Commit(); err != nil {
		return zero, err
	}

	if cp, ok := s.(checkpointer); ok {
		if err := cp.Checkpoint(); err != nil {
			return zero, err
		}
	}

	return out, nil
}
