package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339Nano

// SQLiteStore is the Store implementation backed by a SQLite database
// held, at rest, inside an AES-256-GCM sealed container (see crypto.go).
type SQLiteStore struct {
	db        *sql.DB
	container *encryptedContainer
}

// NewSQLiteStore opens (or creates) the encrypted container at path,
// decrypting it with passphrase into a private scratch file, and
// applies the schema migration.
func NewSQLiteStore(path, passphrase string) (*SQLiteStore, error) {
	container, err := openContainer(path, passphrase)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", container.tempPath)
	if err != nil {
		container.CleanupScratch()
		return nil, fmt.Errorf("opening scratch database: %w", err)
	}
	// The PRAGMAs in initDB apply per connection; a single pooled
	// connection keeps them in force for every query.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, container: container}
	if err := s.initDB(); err != nil {
		db.Close()
		container.CleanupScratch()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) initDB() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA case_sensitive_like = ON;",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

	CREATE TABLE IF NOT EXISTS secrets (
		arn TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT,
		deleted_at TEXT,
		scheduled_delete_at TEXT
	);

	CREATE TABLE IF NOT EXISTS secret_versions (
		secret_arn TEXT NOT NULL REFERENCES secrets(arn) ON DELETE CASCADE,
		version_id TEXT NOT NULL,
		secret_string TEXT,
		secret_binary BLOB,
		created_at TEXT NOT NULL,
		last_accessed_at TEXT,
		PRIMARY KEY (secret_arn, version_id)
	);

	CREATE TABLE IF NOT EXISTS secret_stages (
		secret_arn TEXT NOT NULL,
		version_id TEXT NOT NULL,
		stage_label TEXT NOT NULL,
		PRIMARY KEY (secret_arn, version_id, stage_label),
		UNIQUE (secret_arn, stage_label),
		FOREIGN KEY (secret_arn, version_id) REFERENCES secret_versions(secret_arn, version_id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS secret_tags (
		secret_arn TEXT NOT NULL REFERENCES secrets(arn) ON DELETE CASCADE,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (secret_arn, key)
	);

	CREATE INDEX IF NOT EXISTS idx_secret_versions_secret_arn ON secret_versions(secret_arn);
	CREATE INDEX IF NOT EXISTS idx_secret_stages_version ON secret_stages(secret_arn, version_id);
	`
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning schema migration: %w", err)
	}
	if _, err := tx.Exec(schema); err != nil {
		tx.Rollback()
		return fmt.Errorf("applying schema: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) SELECT 1 WHERE NOT EXISTS (SELECT 1 FROM schema_version)"); err != nil {
		tx.Rollback()
		return fmt.Errorf("seeding schema_version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema migration: %w", err)
	}
	return nil
}

// Begin opens a new transaction. SQLite's single-writer locking gives the
// write-serialization the stage-rotation invariants depend on.
func (s *SQLiteStore) Begin(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// Close seals the container back to disk and releases the scratch file.
// store.WithTransaction already reseals after every committed write, so
// this is a final, redundant-but-safe seal covering any writes issued
// directly against the backend outside of WithTransaction, plus
// releasing the scratch file.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return err
	}
	if err := s.container.Seal(); err != nil {
		return err
	}
	return s.container.CleanupScratch()
}

// Checkpoint re-seals the container without closing the database.
// store.WithTransaction calls this after every committed transaction, so
// a crash loses at most the writes from a transaction still in flight.
func (s *SQLiteStore) Checkpoint() error {
	// Committed transactions sit in the WAL file until checkpointed; fold
	// them into the main database file, the only file Seal encrypts.
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
		return fmt.Errorf("checkpointing WAL: %w", err)
	}
	return s.container.Seal()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func ptrString(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeFormat), Valid: true}
}

func ptrTime(n sql.NullString) (*time.Time, error) {
	if !n.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeFormat, n.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func escapeLikePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// --- secrets ---

func (s *SQLiteStore) CreateSecret(ctx context.Context, q Querier, in NewSecret) error {
	now := time.Now().UTC().Format(timeFormat)
	_, err := q.ExecContext(ctx,
		`INSERT INTO secrets (arn, name, description, created_at) VALUES (?, ?, ?, ?)`,
		in.ARN, in.Name, nullString(in.Description), now,
	)
	if isUniqueViolation(err) {
		return ErrUniqueViolation
	}
	return err
}

func (s *SQLiteStore) CreateSecretVersion(ctx context.Context, q Querier, in NewVersion) error {
	now := time.Now().UTC().Format(timeFormat)
	var secretString sql.NullString
	if in.SecretString != nil {
		secretString = sql.NullString{String: *in.SecretString, Valid: true}
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO secret_versions (secret_arn, version_id, secret_string, secret_binary, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		in.SecretARN, in.VersionID, secretString, in.SecretBinary, now,
	)
	if isUniqueViolation(err) {
		return ErrUniqueViolation
	}
	return err
}

type secretRow struct {
	arn               string
	name              string
	description       sql.NullString
	createdAt         string
	updatedAt         sql.NullString
	deletedAt         sql.NullString
	scheduledDeleteAt sql.NullString
}

func (s *SQLiteStore) findSecretRow(ctx context.Context, q Querier, secretIDOrName string) (*secretRow, error) {
	row := q.QueryRowContext(ctx,
		`SELECT arn, name, description, created_at, updated_at, deleted_at, scheduled_delete_at
		 FROM secrets WHERE arn = ? OR name = ?`,
		secretIDOrName, secretIDOrName,
	)
	var r secretRow
	err := row.Scan(&r.arn, &r.name, &r.description, &r.createdAt, &r.updatedAt, &r.deletedAt, &r.scheduledDeleteAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

type versionRow struct {
	versionID      string
	secretString   sql.NullString
	secretBinary   []byte
	createdAt      string
	lastAccessedAt sql.NullString
}

func (s *SQLiteStore) loadStages(ctx context.Context, q Querier, secretARN, versionID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT stage_label FROM secret_stages WHERE secret_arn = ? AND version_id = ? ORDER BY stage_label`,
		secretARN, versionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stages := []string{}
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		stages = append(stages, label)
	}
	return stages, rows.Err()
}

func (s *SQLiteStore) loadTags(ctx context.Context, q Querier, secretARN string) ([]Tag, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT key, value, updated_at FROM secret_tags WHERE secret_arn = ? ORDER BY key`,
		secretARN,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var key, value, updatedAt string
		if err := rows.Scan(&key, &value, &updatedAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(timeFormat, updatedAt)
		if err != nil {
			return nil, err
		}
		tags = append(tags, Tag{Key: key, Value: value, UpdatedAt: t})
	}
	return tags, rows.Err()
}

func (s *SQLiteStore) assembleSecret(ctx context.Context, q Querier, sr *secretRow, vr *versionRow) (*Secret, error) {
	createdAt, err := time.Parse(timeFormat, sr.createdAt)
	if err != nil {
		return nil, err
	}
	updatedAt, err := ptrTime(sr.updatedAt)
	if err != nil {
		return nil, err
	}
	deletedAt, err := ptrTime(sr.deletedAt)
	if err != nil {
		return nil, err
	}
	scheduledDeleteAt, err := ptrTime(sr.scheduledDeleteAt)
	if err != nil {
		return nil, err
	}

	out := &Secret{
		ARN:               sr.arn,
		Name:              sr.name,
		Description:       ptrString(sr.description),
		CreatedAt:         createdAt,
		UpdatedAt:         updatedAt,
		DeletedAt:         deletedAt,
		ScheduledDeleteAt: scheduledDeleteAt,
	}

	tags, err := s.loadTags(ctx, q, sr.arn)
	if err != nil {
		return nil, err
	}
	out.Tags = tags

	if vr == nil {
		return out, nil
	}

	versionCreatedAt, err := time.Parse(timeFormat, vr.createdAt)
	if err != nil {
		return nil, err
	}
	lastAccessedAt, err := ptrTime(vr.lastAccessedAt)
	if err != nil {
		return nil, err
	}
	stages, err := s.loadStages(ctx, q, sr.arn, vr.versionID)
	if err != nil {
		return nil, err
	}

	out.VersionID = vr.versionID
	out.SecretString = ptrString(vr.secretString)
	out.SecretBinary = vr.secretBinary
	out.VersionCreatedAt = versionCreatedAt
	out.LastAccessedAt = lastAccessedAt
	out.VersionStages = stages

	return out, nil
}

func (s *SQLiteStore) GetSecretMetadata(ctx context.Context, q Querier, secretIDOrName string) (*Secret, error) {
	sr, err := s.findSecretRow(ctx, q, secretIDOrName)
	if err != nil {
		return nil, err
	}
	return s.assembleSecret(ctx, q, sr, nil)
}

func (s *SQLiteStore) GetSecretByVersionID(ctx context.Context, q Querier, secretIDOrName, versionID string) (*Secret, error) {
	sr, err := s.findSecretRow(ctx, q, secretIDOrName)
	if err != nil {
		return nil, err
	}

	row := q.QueryRowContext(ctx,
		`SELECT version_id, secret_string, secret_binary, created_at, last_accessed_at
		 FROM secret_versions WHERE secret_arn = ? AND version_id = ?`,
		sr.arn, versionID,
	)
	var vr versionRow
	err = row.Scan(&vr.versionID, &vr.secretString, &vr.secretBinary, &vr.createdAt, &vr.lastAccessedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.assembleSecret(ctx, q, sr, &vr)
}

func (s *SQLiteStore) GetSecretLatestVersion(ctx context.Context, q Querier, secretIDOrName string) (*Secret, error) {
	return s.getSecretByStage(ctx, q, secretIDOrName, StageCurrent)
}

func (s *SQLiteStore) getSecretByStage(ctx context.Context, q Querier, secretIDOrName, stage string) (*Secret, error) {
	sr, err := s.findSecretRow(ctx, q, secretIDOrName)
	if err != nil {
		return nil, err
	}

	row := q.QueryRowContext(ctx,
		`SELECT v.version_id, v.secret_string, v.secret_binary, v.created_at, v.last_accessed_at
		 FROM secret_versions v
		 JOIN secret_stages st ON st.secret_arn = v.secret_arn AND st.version_id = v.version_id
		 WHERE v.secret_arn = ? AND st.stage_label = ?`,
		sr.arn, stage,
	)
	var vr versionRow
	err = row.Scan(&vr.versionID, &vr.secretString, &vr.secretBinary, &vr.createdAt, &vr.lastAccessedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.assembleSecret(ctx, q, sr, &vr)
}

func (s *SQLiteStore) GetSecretByVersionStage(ctx context.Context, q Querier, secretIDOrName, stage string) (*Secret, error) {
	return s.getSecretByStage(ctx, q, secretIDOrName, stage)
}

func (s *SQLiteStore) GetSecretByVersionStageAndID(ctx context.Context, q Querier, secretIDOrName, versionID, stage string) (*Secret, error) {
	sr, err := s.findSecretRow(ctx, q, secretIDOrName)
	if err != nil {
		return nil, err
	}

	row := q.QueryRowContext(ctx,
		`SELECT v.version_id, v.secret_string, v.secret_binary, v.created_at, v.last_accessed_at
		 FROM secret_versions v
		 JOIN secret_stages st ON st.secret_arn = v.secret_arn AND st.version_id = v.version_id
		 WHERE v.secret_arn = ? AND v.version_id = ? AND st.stage_label = ?`,
		sr.arn, versionID, stage,
	)
	var vr versionRow
	err = row.Scan(&vr.versionID, &vr.secretString, &vr.secretBinary, &vr.createdAt, &vr.lastAccessedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.assembleSecret(ctx, q, sr, &vr)
}

func (s *SQLiteStore) GetSecretVersions(ctx context.Context, q Querier, secretARN string) ([]Version, error) {
	return s.getSecretVersions(ctx, q, secretARN, true, -1, 0)
}

func (s *SQLiteStore) GetSecretVersionsPage(ctx context.Context, q Querier, secretARN string, includeDeprecated bool, limit, offset int) ([]Version, error) {
	return s.getSecretVersions(ctx, q, secretARN, includeDeprecated, limit, offset)
}

func (s *SQLiteStore) getSecretVersions(ctx context.Context, q Querier, secretARN string, includeDeprecated bool, limit, offset int) ([]Version, error) {
	query := `SELECT version_id, secret_string, secret_binary, created_at, last_accessed_at FROM secret_versions
	          WHERE secret_arn = ?`
	if !includeDeprecated {
		query += ` AND EXISTS (SELECT 1 FROM secret_stages st WHERE st.secret_arn = secret_versions.secret_arn AND st.version_id = secret_versions.version_id)`
	}
	query += ` ORDER BY created_at DESC`
	args := []any{secretARN}
	if limit >= 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		var vr versionRow
		if err := rows.Scan(&vr.versionID, &vr.secretString, &vr.secretBinary, &vr.createdAt, &vr.lastAccessedAt); err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(timeFormat, vr.createdAt)
		if err != nil {
			return nil, err
		}
		lastAccessedAt, err := ptrTime(vr.lastAccessedAt)
		if err != nil {
			return nil, err
		}
		stages, err := s.loadStages(ctx, q, secretARN, vr.versionID)
		if err != nil {
			return nil, err
		}
		out = append(out, Version{
			VersionID:      vr.versionID,
			SecretString:   ptrString(vr.secretString),
			SecretBinary:   vr.secretBinary,
			CreatedAt:      createdAt,
			LastAccessedAt: lastAccessedAt,
			VersionStages:  stages,
		})
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountSecretVersions(ctx context.Context, q Querier, secretARN string, includeDeprecated bool) (int, error) {
	query := `SELECT COUNT(*) FROM secret_versions WHERE secret_arn = ?`
	if !includeDeprecated {
		query += ` AND EXISTS (SELECT 1 FROM secret_stages st WHERE st.secret_arn = secret_versions.secret_arn AND st.version_id = secret_versions.version_id)`
	}
	var count int
	if err := q.QueryRowContext(ctx, query, secretARN).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *SQLiteStore) UpdateSecretVersionLastAccessed(ctx context.Context, q Querier, secretARN, versionID string, at time.Time) error {
	day := at.UTC().Truncate(24 * time.Hour).Format(timeFormat)
	_, err := q.ExecContext(ctx,
		`UPDATE secret_versions SET last_accessed_at = ? WHERE secret_arn = ? AND version_id = ?`,
		day, secretARN, versionID,
	)
	return err
}

func (s *SQLiteStore) UpdateSecretDescription(ctx context.Context, q Querier, secretARN string, description string) error {
	now := time.Now().UTC().Format(timeFormat)
	_, err := q.ExecContext(ctx,
		`UPDATE secrets SET description = ?, updated_at = ? WHERE arn = ?`,
		description, now, secretARN,
	)
	return err
}

// --- stages ---

func (s *SQLiteStore) AddSecretVersionStage(ctx context.Context, q Querier, secretARN, versionID, stage string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO secret_stages (secret_arn, version_id, stage_label) VALUES (?, ?, ?)`,
		secretARN, versionID, stage,
	)
	if isUniqueViolation(err) {
		return ErrUniqueViolation
	}
	return err
}

func (s *SQLiteStore) RemoveSecretVersionStage(ctx context.Context, q Querier, secretARN, versionID, stage string) (int64, error) {
	res, err := q.ExecContext(ctx,
		`DELETE FROM secret_stages WHERE secret_arn = ? AND version_id = ? AND stage_label = ?`,
		secretARN, versionID, stage,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) RemoveSecretVersionStageAny(ctx context.Context, q Querier, secretARN, stage string) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM secret_stages WHERE secret_arn = ? AND stage_label = ?`,
		secretARN, stage,
	)
	return err
}

// --- tags ---

func (s *SQLiteStore) PutSecretTag(ctx context.Context, q Querier, secretARN, key, value string) error {
	now := time.Now().UTC().Format(timeFormat)
	_, err := q.ExecContext(ctx,
		`INSERT INTO secret_tags (secret_arn, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (secret_arn, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		secretARN, key, value, now,
	)
	return err
}

func (s *SQLiteStore) RemoveSecretTag(ctx context.Context, q Querier, secretARN, key string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM secret_tags WHERE secret_arn = ? AND key = ?`, secretARN, key)
	return err
}

// --- lifecycle ---

func (s *SQLiteStore) ScheduleDeleteSecret(ctx context.Context, q Querier, secretARN string, recoveryWindowDays int) (time.Time, error) {
	now := time.Now().UTC()
	deleteAt := now.AddDate(0, 0, recoveryWindowDays)
	_, err := q.ExecContext(ctx,
		`UPDATE secrets SET scheduled_delete_at = ?, deleted_at = ? WHERE arn = ?`,
		deleteAt.Format(timeFormat), now.Format(timeFormat), secretARN,
	)
	return deleteAt, err
}

func (s *SQLiteStore) CancelDeleteSecret(ctx context.Context, q Querier, secretARN string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE secrets SET scheduled_delete_at = NULL, deleted_at = NULL WHERE arn = ?`,
		secretARN,
	)
	return err
}

func (s *SQLiteStore) DeleteSecret(ctx context.Context, q Querier, secretARN string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM secrets WHERE arn = ?`, secretARN)
	return err
}

func (s *SQLiteStore) ReapExpired(ctx context.Context, q Querier, now time.Time) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT arn FROM secrets WHERE scheduled_delete_at IS NOT NULL AND scheduled_delete_at <= ?`,
		now.UTC().Format(timeFormat),
	)
	if err != nil {
		return nil, err
	}
	var arns []string
	for rows.Next() {
		var arn string
		if err := rows.Scan(&arn); err != nil {
			rows.Close()
			return nil, err
		}
		arns = append(arns, arn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, arn := range arns {
		if _, err := q.ExecContext(ctx, `DELETE FROM secrets WHERE arn = ?`, arn); err != nil {
			return nil, err
		}
	}
	return arns, nil
}

// --- filters ---

func buildFilterClause(f Filter) (string, []any) {
	like := func(col string) (string, []any) {
		parts := make([]string, 0, len(f.Values))
		args := make([]any, 0, len(f.Values))
		for _, v := range f.Values {
			parts = append(parts, col+" LIKE ? ESCAPE '\\'")
			args = append(args, "%"+escapeLikePattern(v)+"%")
		}
		return "(" + strings.Join(parts, " OR ") + ")", args
	}
	existsTag := func(column string) (string, []any) {
		parts := make([]string, 0, len(f.Values))
		args := make([]any, 0, len(f.Values))
		for _, v := range f.Values {
			parts = append(parts, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM secret_tags st WHERE st.secret_arn = secrets.arn AND st.%s LIKE ? ESCAPE '\\')",
				column,
			))
			args = append(args, "%"+escapeLikePattern(v)+"%")
		}
		return "(" + strings.Join(parts, " OR ") + ")", args
	}

	var clause string
	var args []any
	switch f.Key {
	case FilterKeyName:
		clause, args = like("secrets.name")
	case FilterKeyDescription:
		clause, args = like("secrets.description")
	case FilterKeyTagKey:
		clause, args = existsTag("key")
	case FilterKeyTagValue:
		clause, args = existsTag("value")
	case FilterKeyAll:
		nameClause, nameArgs := like("secrets.name")
		descClause, descArgs := like("secrets.description")
		keyClause, keyArgs := existsTag("key")
		valClause, valArgs := existsTag("value")
		clause = "(" + nameClause + " OR " + descClause + " OR " + keyClause + " OR " + valClause + ")"
		args = append(args, nameArgs...)
		args = append(args, descArgs...)
		args = append(args, keyArgs...)
		args = append(args, valArgs...)
	default:
		clause, args = "1=1", nil
	}

	if f.Negate {
		clause = "NOT " + clause
	}
	return clause, args
}

func buildFilterWhere(filters []Filter, includePlannedDeletion bool) (string, []any) {
	var clauses []string
	var args []any

	if !includePlannedDeletion {
		clauses = append(clauses, "secrets.scheduled_delete_at IS NULL")
	}
	for _, f := range filters {
		c, a := buildFilterClause(f)
		clauses = append(clauses, c)
		args = append(args, a...)
	}

	if len(clauses) == 0 {
		return "1=1", nil
	}
	return strings.Join(clauses, " AND "), args
}

func (s *SQLiteStore) GetSecretsByFilter(ctx context.Context, q Querier, filters []Filter, includePlannedDeletion bool, limit, offset int, asc bool) ([]Secret, error) {
	where, args := buildFilterWhere(filters, includePlannedDeletion)
	order := "DESC"
	if asc {
		order = "ASC"
	}

	query := fmt.Sprintf(`SELECT arn FROM secrets WHERE %s ORDER BY created_at %s LIMIT ? OFFSET ?`, where, order)
	args = append(args, limit, offset)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var arns []string
	for rows.Next() {
		var arn string
		if err := rows.Scan(&arn); err != nil {
			rows.Close()
			return nil, err
		}
		arns = append(arns, arn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	out := make([]Secret, 0, len(arns))
	for _, arn := range arns {
		secret, err := s.GetSecretLatestVersion(ctx, q, arn)
		if err == ErrNotFound {
			// Secret has no AWSCURRENT version (shouldn't normally
			// happen for a live secret); skip it rather than fail
			// the whole listing.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *secret)
	}
	return out, nil
}

func (s *SQLiteStore) GetSecretsCountByFilter(ctx context.Context, q Querier, filters []Filter, includePlannedDeletion bool) (int, error) {
	where, args := buildFilterWhere(filters, includePlannedDeletion)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM secrets WHERE %s`, where)
	var count int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
