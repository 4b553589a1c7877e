package secretengine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	apierrors "github.com/bleepstore/bleepstore/internal/errors"
	"github.com/bleepstore/bleepstore/internal/store"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "secrets.db")
	s, err := store.NewSQLiteStore(dbPath, "test-passphrase")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s)
}

func ptr[T any](v T) *T { return &v }

func apiErrKind(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatalf("error = nil, want an *apierrors.APIError")
	}
	apiErr := apierrors.AsAPIError(err)
	return apiErr.Kind
}

// TestCreateAndFetch exercises spec.md §8 S1.
func TestCreateAndFetch(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	created, err := e.CreateSecret(ctx, CreateSecretInput{Name: "db/password", SecretString: ptr("s3cret")})
	if err != nil {
		t.Fatalf("CreateSecret() error = %v", err)
	}
	if created.ARN == "" || created.VersionId == "" {
		t.Fatalf("CreateSecret() returned empty ARN/VersionId: %+v", created)
	}

	got, err := e.GetSecretValue(ctx, GetSecretValueInput{SecretId: "db/password"})
	if err != nil {
		t.Fatalf("GetSecretValue() error = %v", err)
	}
	if got.SecretString == nil || *got.SecretString != "s3cret" {
		t.Fatalf("GetSecretValue().SecretString = %v, want s3cret", got.SecretString)
	}
	if len(got.VersionStages) != 1 || got.VersionStages[0] != store.StageCurrent {
		t.Fatalf("GetSecretValue().VersionStages = %v, want [AWSCURRENT]", got.VersionStages)
	}
}

// TestIdempotentCreate exercises spec.md §8 S2 and invariants 4-5.
func TestIdempotentCreate(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	token := "fixed-token-0123456789abcdef0123456789"
	first, err := e.CreateSecret(ctx, CreateSecretInput{
		Name: "db/password", SecretString: ptr("s3cret"), ClientRequestToken: &token,
	})
	if err != nil {
		t.Fatalf("CreateSecret() error = %v", err)
	}

	replay, err := e.CreateSecret(ctx, CreateSecretInput{
		Name: "db/password", SecretString: ptr("s3cret"), ClientRequestToken: &token,
	})
	if err != nil {
		t.Fatalf("replay CreateSecret() error = %v", err)
	}
	if replay.ARN != first.ARN || replay.VersionId != first.VersionId {
		t.Fatalf("replay = %+v, want identical ARN/VersionId to %+v", replay, first)
	}

	_, err = e.CreateSecret(ctx, CreateSecretInput{
		Name: "db/password", SecretString: ptr("other"), ClientRequestToken: &token,
	})
	if kind := apiErrKind(t, err); kind != apierrors.ErrResourceExistsException.Kind {
		t.Fatalf("mismatched-payload replay error kind = %s, want %s", kind, apierrors.ErrResourceExistsException.Kind)
	}
}

// TestRotateViaPut exercises spec.md §8 S3 and invariants 1-2.
func TestRotateViaPut(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	_, err := e.CreateSecret(ctx, CreateSecretInput{Name: "db/password", SecretString: ptr("s3cret")})
	if err != nil {
		t.Fatalf("CreateSecret() error = %v", err)
	}

	put, err := e.PutSecretValue(ctx, PutSecretValueInput{SecretId: "db/password", SecretString: ptr("n3w")})
	if err != nil {
		t.Fatalf("PutSecretValue() error = %v", err)
	}
	if len(put.VersionStages) != 1 || put.VersionStages[0] != store.StageCurrent {
		t.Fatalf("PutSecretValue().VersionStages = %v, want [AWSCURRENT]", put.VersionStages)
	}

	prev, err := e.GetSecretValue(ctx, GetSecretValueInput{SecretId: "db/password", VersionStage: ptr(store.StagePrevious)})
	if err != nil {
		t.Fatalf("GetSecretValue(AWSPREVIOUS) error = %v", err)
	}
	if prev.SecretString == nil || *prev.SecretString != "s3cret" {
		t.Fatalf("AWSPREVIOUS value = %v, want s3cret", prev.SecretString)
	}

	cur, err := e.GetSecretValue(ctx, GetSecretValueInput{SecretId: "db/password"})
	if err != nil {
		t.Fatalf("GetSecretValue(AWSCURRENT) error = %v", err)
	}
	if cur.SecretString == nil || *cur.SecretString != "n3w" {
		t.Fatalf("AWSCURRENT value = %v, want n3w", cur.SecretString)
	}
	if cur.VersionId == prev.VersionId {
		t.Fatalf("AWSCURRENT and AWSPREVIOUS resolved to the same version id %s", cur.VersionId)
	}
}

// TestStageMove exercises spec.md §8 S4.
func TestStageMove(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	created, err := e.CreateSecret(ctx, CreateSecretInput{Name: "db/password", SecretString: ptr("s3cret")})
	if err != nil {
		t.Fatalf("CreateSecret() error = %v", err)
	}
	v1 := created.VersionId

	put, err := e.PutSecretValue(ctx, PutSecretValueInput{SecretId: "db/password", SecretString: ptr("n3w")})
	if err != nil {
		t.Fatalf("PutSecretValue() error = %v", err)
	}
	v2 := put.VersionId

	_, err = e.UpdateSecretVersionStage(ctx, UpdateSecretVersionStageInput{
		SecretId: "db/password", VersionStage: store.StageCurrent,
		MoveToVersionId: &v1, RemoveFromVersionId: &v2,
	})
	if err != nil {
		t.Fatalf("UpdateSecretVersionStage() error = %v", err)
	}

	cur, err := e.GetSecretValue(ctx, GetSecretValueInput{SecretId: "db/password"})
	if err != nil {
		t.Fatalf("GetSecretValue(AWSCURRENT) error = %v", err)
	}
	if cur.VersionId != v1 {
		t.Fatalf("AWSCURRENT version = %s, want %s", cur.VersionId, v1)
	}

	prev, err := e.GetSecretValue(ctx, GetSecretValueInput{SecretId: "db/password", VersionStage: ptr(store.StagePrevious)})
	if err != nil {
		t.Fatalf("GetSecretValue(AWSPREVIOUS) error = %v", err)
	}
	if prev.VersionId != v2 {
		t.Fatalf("AWSPREVIOUS version = %s, want %s", prev.VersionId, v2)
	}

	_, err = e.UpdateSecretVersionStage(ctx, UpdateSecretVersionStageInput{
		SecretId: "db/password", VersionStage: store.StageCurrent, MoveToVersionId: &v2,
	})
	if kind := apiErrKind(t, err); kind != apierrors.ErrInvalidRequestException.Kind {
		t.Fatalf("stage-move-without-RemoveFromVersionId error kind = %s, want %s", kind, apierrors.ErrInvalidRequestException.Kind)
	}
}

// TestScheduledDelete exercises spec.md §8 S5 and invariant 6.
func TestScheduledDelete(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	e.Now = func() time.Time { return now }

	_, err := e.CreateSecret(ctx, CreateSecretInput{Name: "db/password", SecretString: ptr("s3cret")})
	if err != nil {
		t.Fatalf("CreateSecret() error = %v", err)
	}

	del, err := e.DeleteSecret(ctx, DeleteSecretInput{SecretId: "db/password", RecoveryWindowInDays: ptr(int64(7))})
	if err != nil {
		t.Fatalf("DeleteSecret() error = %v", err)
	}
	wantDeletion := now.AddDate(0, 0, 7)
	if got := del.DeletionDate.Time(); got.Sub(wantDeletion).Abs() > time.Minute {
		t.Fatalf("DeletionDate = %v, want ~%v", got, wantDeletion)
	}

	_, err = e.GetSecretValue(ctx, GetSecretValueInput{SecretId: "db/password"})
	if kind := apiErrKind(t, err); kind != apierrors.ErrInvalidRequestException.Kind {
		t.Fatalf("GetSecretValue() on scheduled-delete secret error kind = %s, want %s", kind, apierrors.ErrInvalidRequestException.Kind)
	}

	desc, err := e.DescribeSecret(ctx, DescribeSecretInput{SecretId: "db/password"})
	if err != nil {
		t.Fatalf("DescribeSecret() on scheduled-delete secret error = %v", err)
	}
	if desc.DeletedDate == nil {
		t.Fatalf("DescribeSecret().DeletedDate = nil, want set")
	}

	if _, err := e.RestoreSecret(ctx, RestoreSecretInput{SecretId: "db/password"}); err != nil {
		t.Fatalf("RestoreSecret() error = %v", err)
	}

	if _, err := e.GetSecretValue(ctx, GetSecretValueInput{SecretId: "db/password"}); err != nil {
		t.Fatalf("GetSecretValue() after restore error = %v, want nil", err)
	}
}

// TestForceDeleteRemovesEverything exercises spec.md §8 invariant 7.
func TestForceDeleteRemovesEverything(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	_, err := e.CreateSecret(ctx, CreateSecretInput{Name: "db/password", SecretString: ptr("s3cret")})
	if err != nil {
		t.Fatalf("CreateSecret() error = %v", err)
	}
	if _, err := e.PutSecretValue(ctx, PutSecretValueInput{SecretId: "db/password", SecretString: ptr("n3w")}); err != nil {
		t.Fatalf("PutSecretValue() error = %v", err)
	}
	if _, err := e.TagResource(ctx, TagResourceInput{SecretId: "db/password", Tags: []TagEntry{{Key: "env", Value: "prod"}}}); err != nil {
		t.Fatalf("TagResource() error = %v", err)
	}
	tagged, err := e.DescribeSecret(ctx, DescribeSecretInput{SecretId: "db/password"})
	if err != nil {
		t.Fatalf("DescribeSecret() after TagResource error = %v", err)
	}
	if len(tagged.Tags) != 1 || tagged.Tags[0].Key != "env" || tagged.Tags[0].Value != "prod" {
		t.Fatalf("DescribeSecret().Tags = %+v, want [{env prod}]", tagged.Tags)
	}

	if _, err := e.DeleteSecret(ctx, DeleteSecretInput{SecretId: "db/password", ForceDeleteWithoutRecovery: ptr(true)}); err != nil {
		t.Fatalf("DeleteSecret(force) error = %v", err)
	}

	_, err = e.DescribeSecret(ctx, DescribeSecretInput{SecretId: "db/password"})
	if kind := apiErrKind(t, err); kind != apierrors.ErrResourceNotFoundException.Kind {
		t.Fatalf("DescribeSecret() after force delete error kind = %s, want %s", kind, apierrors.ErrResourceNotFoundException.Kind)
	}
}

// TestPayloadMustBeExclusive exercises spec.md §8 invariant 3.
func TestPayloadMustBeExclusive(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	_, err := e.CreateSecret(ctx, CreateSecretInput{Name: "db/password", SecretString: ptr("s"), SecretBinary: []byte("b")})
	if kind := apiErrKind(t, err); kind != apierrors.ErrInvalidParameterException.Kind {
		t.Fatalf("both-payloads error kind = %s, want %s", kind, apierrors.ErrInvalidParameterException.Kind)
	}

	_, err = e.CreateSecret(ctx, CreateSecretInput{Name: "db/password"})
	if kind := apiErrKind(t, err); kind != apierrors.ErrInvalidParameterException.Kind {
		t.Fatalf("no-payload error kind = %s, want %s", kind, apierrors.ErrInvalidParameterException.Kind)
	}
}

// TestUpdateSecretRotation exercises UpdateSecret's direct (non-replay)
// description update and AWSCURRENT rotation paths.
func TestUpdateSecretRotation(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	created, err := e.CreateSecret(ctx, CreateSecretInput{Name: "db/password", SecretString: ptr("s3cret")})
	if err != nil {
		t.Fatalf("CreateSecret() error = %v", err)
	}
	v1 := created.VersionId

	updated, err := e.UpdateSecret(ctx, UpdateSecretInput{
		SecretId: "db/password", Description: ptr("rotated nightly"), SecretString: ptr("n3w"),
	})
	if err != nil {
		t.Fatalf("UpdateSecret() error = %v", err)
	}
	if updated.VersionId == nil || *updated.VersionId == v1 {
		t.Fatalf("UpdateSecret().VersionId = %v, want a new version id distinct from %s", updated.VersionId, v1)
	}
	v2 := *updated.VersionId

	desc, err := e.DescribeSecret(ctx, DescribeSecretInput{SecretId: "db/password"})
	if err != nil {
		t.Fatalf("DescribeSecret() error = %v", err)
	}
	if desc.Description == nil || *desc.Description != "rotated nightly" {
		t.Fatalf("DescribeSecret().Description = %v, want %q", desc.Description, "rotated nightly")
	}

	cur, err := e.GetSecretValue(ctx, GetSecretValueInput{SecretId: "db/password"})
	if err != nil {
		t.Fatalf("GetSecretValue(AWSCURRENT) error = %v", err)
	}
	if cur.VersionId != v2 || cur.SecretString == nil || *cur.SecretString != "n3w" {
		t.Fatalf("AWSCURRENT = %+v, want version %s with secret n3w", cur, v2)
	}

	prev, err := e.GetSecretValue(ctx, GetSecretValueInput{SecretId: "db/password", VersionStage: ptr(store.StagePrevious)})
	if err != nil {
		t.Fatalf("GetSecretValue(AWSPREVIOUS) error = %v", err)
	}
	if prev.VersionId != v1 {
		t.Fatalf("AWSPREVIOUS version = %s, want %s", prev.VersionId, v1)
	}

	// Description-only update leaves VersionId unset and performs no rotation.
	descOnly, err := e.UpdateSecret(ctx, UpdateSecretInput{SecretId: "db/password", Description: ptr("description only")})
	if err != nil {
		t.Fatalf("description-only UpdateSecret() error = %v", err)
	}
	if descOnly.VersionId != nil {
		t.Fatalf("description-only UpdateSecret().VersionId = %v, want nil", descOnly.VersionId)
	}
	stillCur, err := e.GetSecretValue(ctx, GetSecretValueInput{SecretId: "db/password"})
	if err != nil {
		t.Fatalf("GetSecretValue(AWSCURRENT) after description-only update error = %v", err)
	}
	if stillCur.VersionId != v2 {
		t.Fatalf("AWSCURRENT version after description-only update = %s, want unchanged %s", stillCur.VersionId, v2)
	}
}

// TestListSecrets exercises ListSecrets' filtering, default sort order, and
// per-summary LastAccessedDate/LastChangedDate computation.
func TestListSecrets(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	if _, err := e.CreateSecret(ctx, CreateSecretInput{
		Name: "db/password", SecretString: ptr("s3cret"),
		Tags: []TagEntry{{Key: "team", Value: "platform"}},
	}); err != nil {
		t.Fatalf("CreateSecret(db/password) error = %v", err)
	}
	if _, err := e.CreateSecret(ctx, CreateSecretInput{Name: "api/key", SecretString: ptr("k3y")}); err != nil {
		t.Fatalf("CreateSecret(api/key) error = %v", err)
	}

	// Accessing db/password's value should surface as its LastAccessedDate.
	if _, err := e.GetSecretValue(ctx, GetSecretValueInput{SecretId: "db/password"}); err != nil {
		t.Fatalf("GetSecretValue(db/password) error = %v", err)
	}

	all, err := e.ListSecrets(ctx, ListSecretsInput{})
	if err != nil {
		t.Fatalf("ListSecrets() error = %v", err)
	}
	if len(all.SecretList) != 2 {
		t.Fatalf("ListSecrets().SecretList has %d entries, want 2", len(all.SecretList))
	}
	// Default sort is descending by created_at, so the most recently
	// created secret (api/key) comes first.
	if all.SecretList[0].Name != "api/key" || all.SecretList[1].Name != "db/password" {
		t.Fatalf("ListSecrets() default order = [%s, %s], want [api/key, db/password]",
			all.SecretList[0].Name, all.SecretList[1].Name)
	}

	var dbSummary *SecretSummary
	for i := range all.SecretList {
		if all.SecretList[i].Name == "db/password" {
			dbSummary = &all.SecretList[i]
		}
	}
	if dbSummary == nil {
		t.Fatalf("ListSecrets() did not return db/password")
	}
	if dbSummary.LastAccessedDate == nil {
		t.Fatalf("ListSecrets() db/password.LastAccessedDate = nil, want set after GetSecretValue")
	}
	if dbSummary.LastChangedDate == nil {
		t.Fatalf("ListSecrets() db/password.LastChangedDate = nil, want set")
	}

	filtered, err := e.ListSecrets(ctx, ListSecretsInput{
		Filters: []Filter{{Key: string(store.FilterKeyName), Values: []string{"api/"}}},
	})
	if err != nil {
		t.Fatalf("ListSecrets(filter) error = %v", err)
	}
	if len(filtered.SecretList) != 1 || filtered.SecretList[0].Name != "api/key" {
		t.Fatalf("ListSecrets(name~=api/) = %+v, want only api/key", filtered.SecretList)
	}
}

// TestListSecretVersionIds exercises the IncludeDeprecated filter on a
// single default-sized page.
func TestListSecretVersionIds(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	if _, err := e.CreateSecret(ctx, CreateSecretInput{Name: "db/password", SecretString: ptr("v1")}); err != nil {
		t.Fatalf("CreateSecret() error = %v", err)
	}
	if _, err := e.PutSecretValue(ctx, PutSecretValueInput{SecretId: "db/password", SecretString: ptr("v2")}); err != nil {
		t.Fatalf("PutSecretValue() error = %v", err)
	}
	// Rotating again deprecates the CreateSecret version: it loses
	// AWSPREVIOUS to the first PutSecretValue version, which is demoted
	// from AWSCURRENT.
	if _, err := e.PutSecretValue(ctx, PutSecretValueInput{SecretId: "db/password", SecretString: ptr("v3")}); err != nil {
		t.Fatalf("second PutSecretValue() error = %v", err)
	}

	withDeprecated, err := e.ListSecretVersionIds(ctx, ListSecretVersionIdsInput{SecretId: "db/password", IncludeDeprecated: true})
	if err != nil {
		t.Fatalf("ListSecretVersionIds(IncludeDeprecated) error = %v", err)
	}
	if len(withDeprecated.Versions) != 3 {
		t.Fatalf("ListSecretVersionIds(IncludeDeprecated).Versions has %d entries, want 3", len(withDeprecated.Versions))
	}

	withoutDeprecated, err := e.ListSecretVersionIds(ctx, ListSecretVersionIdsInput{SecretId: "db/password"})
	if err != nil {
		t.Fatalf("ListSecretVersionIds() error = %v", err)
	}
	if len(withoutDeprecated.Versions) != 2 {
		t.Fatalf("ListSecretVersionIds().Versions has %d entries, want 2 (AWSCURRENT + AWSPREVIOUS only)",
			len(withoutDeprecated.Versions))
	}
	for _, v := range withoutDeprecated.Versions {
		if len(v.VersionStages) == 0 {
			t.Fatalf("ListSecretVersionIds() returned a deprecated version %s without IncludeDeprecated", v.VersionId)
		}
	}
}

// TestBatchGetSecretValue exercises both the id-list mode (with per-id error
// collection) and the filter mode.
func TestBatchGetSecretValue(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	if _, err := e.CreateSecret(ctx, CreateSecretInput{Name: "db/password", SecretString: ptr("s3cret")}); err != nil {
		t.Fatalf("CreateSecret(db/password) error = %v", err)
	}
	if _, err := e.CreateSecret(ctx, CreateSecretInput{Name: "api/key", SecretString: ptr("k3y")}); err != nil {
		t.Fatalf("CreateSecret(api/key) error = %v", err)
	}

	byID, err := e.BatchGetSecretValue(ctx, BatchGetSecretValueInput{
		SecretIdList: []string{"db/password", "does-not-exist"},
	})
	if err != nil {
		t.Fatalf("BatchGetSecretValue(SecretIdList) error = %v", err)
	}
	if len(byID.SecretValues) != 1 || byID.SecretValues[0].Name != "db/password" {
		t.Fatalf("BatchGetSecretValue(SecretIdList).SecretValues = %+v, want only db/password", byID.SecretValues)
	}
	if len(byID.Errors) != 1 || byID.Errors[0].SecretId != "does-not-exist" {
		t.Fatalf("BatchGetSecretValue(SecretIdList).Errors = %+v, want one entry for does-not-exist", byID.Errors)
	}

	byFilter, err := e.BatchGetSecretValue(ctx, BatchGetSecretValueInput{
		Filters: []Filter{{Key: string(store.FilterKeyAll), Values: []string{"db/"}}},
	})
	if err != nil {
		t.Fatalf("BatchGetSecretValue(Filters) error = %v", err)
	}
	if len(byFilter.SecretValues) != 1 || byFilter.SecretValues[0].Name != "db/password" {
		t.Fatalf("BatchGetSecretValue(Filters).SecretValues = %+v, want only db/password", byFilter.SecretValues)
	}

	_, err = e.BatchGetSecretValue(ctx, BatchGetSecretValueInput{})
	if kind := apiErrKind(t, err); kind != apierrors.ErrInvalidParameterException.Kind {
		t.Fatalf("BatchGetSecretValue(neither) error kind = %s, want %s", kind, apierrors.ErrInvalidParameterException.Kind)
	}

	_, err = e.BatchGetSecretValue(ctx, BatchGetSecretValueInput{
		SecretIdList: []string{"db/password"},
		Filters:      []Filter{{Key: string(store.FilterKeyName), Values: []string{"db/"}}},
	})
	if kind := apiErrKind(t, err); kind != apierrors.ErrInvalidParameterException.Kind {
		t.Fatalf("BatchGetSecretValue(both) error kind = %s, want %s", kind, apierrors.ErrInvalidParameterException.Kind)
	}
}
