package secretengine

import (
	"context"
	"errors"

	apierrors "github.com/bleepstore/bleepstore/internal/errors"
	"github.com/bleepstore/bleepstore/internal/store"
)

// GetSecretValueInput is the GetSecretValue request DTO.
type GetSecretValueInput struct {
	SecretId     string  `json:"SecretId"`
	VersionId    *string `json:"VersionId,omitempty"`
	VersionStage *string `json:"VersionStage,omitempty"`
}

// GetSecretValueOutput is the GetSecretValue response DTO.
type GetSecretValueOutput struct {
	ARN           string    `json:"ARN"`
	Name          string    `json:"Name"`
	VersionId     string    `json:"VersionId"`
	SecretString  *string   `json:"SecretString,omitempty"`
	SecretBinary  []byte    `json:"SecretBinary,omitempty"`
	VersionStages []string  `json:"VersionStages"`
	CreatedDate   Timestamp `json:"CreatedDate"`
}

// GetSecretValue resolves a version per the precedence in spec.md §4.3
// (VersionId+VersionStage, VersionId, VersionStage, else AWSCURRENT),
// rejects secrets scheduled for deletion, and stamps the version's
// last-accessed date on success.
func (e *Engine) GetSecretValue(ctx context.Context, in GetSecretValueInput) (*GetSecretValueOutput, error) {
	out, err := store.WithTransaction(ctx, e.Store, func(q store.Querier) (*GetSecretValueOutput, error) {
		secret, err := e.resolveVersion(ctx, q, in)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierrors.ErrResourceNotFoundException
		}
		if err != nil {
			return nil, err
		}

		if secret.ScheduledDeleteAt != nil {
			return nil, apierrors.ErrInvalidRequestException.WithMessage(
				"You can't perform this operation on the secret because it was marked for deletion.")
		}

		if err := e.Store.UpdateSecretVersionLastAccessed(ctx, q, secret.ARN, secret.VersionID, e.now()); err != nil {
			return nil, err
		}

		return &GetSecretValueOutput{
			ARN: secret.ARN, Name: secret.Name, VersionId: secret.VersionID,
			SecretString: secret.SecretString, SecretBinary: secret.SecretBinary,
			VersionStages: secret.VersionStages, CreatedDate: NewTimestamp(secret.VersionCreatedAt),
		}, nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return out, nil
}

func (e *Engine) resolveVersion(ctx context.Context, q store.Querier, in GetSecretValueInput) (*store.Secret, error) {
	switch {
	case in.VersionId != nil && in.VersionStage != nil:
		return e.Store.GetSecretByVersionStageAndID(ctx, q, in.SecretId, *in.VersionId, *in.VersionStage)
	case in.VersionId != nil:
		return e.Store.GetSecretByVersionID(ctx, q, in.SecretId, *in.VersionId)
	case in.VersionStage != nil:
		return e.Store.GetSecretByVersionStage(ctx, q, in.SecretId, *in.VersionStage)
	default:
		return e.Store.GetSecretLatestVersion(ctx, q, in.SecretId)
	}
}
