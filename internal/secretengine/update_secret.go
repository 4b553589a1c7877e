package secretengine

import (
	"context"
	"errors"

	apierrors "github.com/bleepstore/bleepstore/internal/errors"
	"github.com/bleepstore/bleepstore/internal/store"
)

// UpdateSecretInput is the UpdateSecret request DTO.
type UpdateSecretInput struct {
	SecretId           string  `json:"SecretId"`
	Description        *string `json:"Description,omitempty"`
	ClientRequestToken *string `json:"ClientRequestToken,omitempty"`
	SecretString       *string `json:"SecretString,omitempty"`
	SecretBinary       []byte  `json:"SecretBinary,omitempty"`
}

// UpdateSecretOutput is the UpdateSecret response DTO. VersionId is nil when
// the call only updated Description, or replayed an existing version id
// with no effect (spec.md §4.3).
type UpdateSecretOutput struct {
	ARN       string  `json:"ARN"`
	Name      string  `json:"Name"`
	VersionId *string `json:"VersionId,omitempty"`
}

// UpdateSecret updates the description and/or rotates AWSCURRENT onto a new
// version, identical in effect to PutSecretValue{VersionStages:["AWSCURRENT"]}
// when a payload is supplied.
func (e *Engine) UpdateSecret(ctx context.Context, in UpdateSecretInput) (*UpdateSecretOutput, error) {
	if in.SecretString != nil && in.SecretBinary != nil {
		return nil, apierrors.ErrInvalidParameterException.WithMessage("at most one of SecretString or SecretBinary may be set")
	}
	if in.Description != nil {
		if err := validateDescription(*in.Description); err != nil {
			return nil, err
		}
	}
	token := requestToken(in.ClientRequestToken)

	out, err := store.WithTransaction(ctx, e.Store, func(q store.Querier) (*UpdateSecretOutput, error) {
		current, err := e.Store.GetSecretLatestVersion(ctx, q, in.SecretId)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierrors.ErrResourceNotFoundException
		}
		if err != nil {
			return nil, err
		}

		if in.Description != nil {
			if err := e.Store.UpdateSecretDescription(ctx, q, current.ARN, *in.Description); err != nil {
				return nil, err
			}
		}

		if in.SecretString == nil && in.SecretBinary == nil {
			return &UpdateSecretOutput{ARN: current.ARN, Name: current.Name}, nil
		}

		verErr := e.Store.CreateSecretVersion(ctx, q, store.NewVersion{
			SecretARN: current.ARN, VersionID: token, SecretString: in.SecretString, SecretBinary: in.SecretBinary,
		})
		if errors.Is(verErr, store.ErrUniqueViolation) {
			// No-op replay: the version id already exists, so this call
			// makes no further change. Per spec.md §4.3 this returns the
			// existing secret with VersionId left unset.
			return &UpdateSecretOutput{ARN: current.ARN, Name: current.Name}, nil
		}
		if verErr != nil {
			return nil, verErr
		}

		if err := moveStagesOntoVersion(ctx, e.Store, q, current.ARN, current.VersionID, token, []string{store.StageCurrent}); err != nil {
			return nil, err
		}

		v := token
		return &UpdateSecretOutput{ARN: current.ARN, Name: current.Name, VersionId: &v}, nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return out, nil
}
