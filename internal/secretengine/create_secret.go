package secretengine

import (
	"context"
	"errors"

	apierrors "github.com/bleepstore/bleepstore/internal/errors"
	"github.com/bleepstore/bleepstore/internal/store"
)

// CreateSecretInput is the CreateSecret request DTO (spec.md §4.3).
type CreateSecretInput struct {
	Name               string     `json:"Name"`
	Description        *string    `json:"Description,omitempty"`
	ClientRequestToken *string    `json:"ClientRequestToken,omitempty"`
	SecretString       *string    `json:"SecretString,omitempty"`
	SecretBinary       []byte     `json:"SecretBinary,omitempty"`
	Tags               []TagEntry `json:"Tags,omitempty"`
}

// CreateSecretOutput is the CreateSecret response DTO.
type CreateSecretOutput struct {
	ARN       string `json:"ARN"`
	Name      string `json:"Name"`
	VersionId string `json:"VersionId"`
}

// CreateSecret inserts a new secret and its first version, attaching
// AWSCURRENT, or replays an existing idempotent create when
// ClientRequestToken and payload match a prior call (spec.md §4.3, §8
// property 4).
func (e *Engine) CreateSecret(ctx context.Context, in CreateSecretInput) (*CreateSecretOutput, error) {
	if err := validateName(in.Name); err != nil {
		return nil, err
	}
	if in.Description != nil {
		if err := validateDescription(*in.Description); err != nil {
			return nil, err
		}
	}
	if !exactlyOnePayload(in.SecretString, in.SecretBinary) {
		return nil, apierrors.ErrInvalidParameterException.WithMessage("exactly one of SecretString or SecretBinary is required")
	}

	token := requestToken(in.ClientRequestToken)
	arn := newARN(in.Name)

	out, err := store.WithTransaction(ctx, e.Store, func(q store.Querier) (*CreateSecretOutput, error) {
		createErr := e.Store.CreateSecret(ctx, q, store.NewSecret{ARN: arn, Name: in.Name, Description: in.Description})
		if errors.Is(createErr, store.ErrUniqueViolation) {
			return e.replayCreateSecret(ctx, q, in, token)
		}
		if createErr != nil {
			return nil, createErr
		}

		if verErr := e.Store.CreateSecretVersion(ctx, q, store.NewVersion{
			SecretARN: arn, VersionID: token, SecretString: in.SecretString, SecretBinary: in.SecretBinary,
		}); verErr != nil {
			if errors.Is(verErr, store.ErrUniqueViolation) {
				return e.replayCreateSecret(ctx, q, in, token)
			}
			return nil, verErr
		}

		if err := e.Store.AddSecretVersionStage(ctx, q, arn, token, store.StageCurrent); err != nil {
			return nil, err
		}

		for _, t := range in.Tags {
			if err := e.Store.PutSecretTag(ctx, q, arn, t.Key, t.Value); err != nil {
				return nil, err
			}
		}

		return &CreateSecretOutput{ARN: arn, Name: in.Name, VersionId: token}, nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return out, nil
}

// replayCreateSecret handles the CreateSecret uniqueness-violation path: it
// looks up the existing version addressed by (Name, token) and, if its
// payload byte-equals the incoming one, returns success with the original
// ARN/version id. A payload mismatch means the token was reused for a
// different request body.
func (e *Engine) replayCreateSecret(ctx context.Context, q store.Querier, in CreateSecretInput, token string) (*CreateSecretOutput, error) {
	existing, err := e.Store.GetSecretByVersionID(ctx, q, in.Name, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apierrors.ErrResourceExistsException
	}
	if err != nil {
		return nil, err
	}
	if !payloadEqual(in.SecretString, in.SecretBinary, existing.SecretString, existing.SecretBinary) {
		return nil, apierrors.ErrResourceExistsException
	}
	return &CreateSecretOutput{ARN: existing.ARN, Name: existing.Name, VersionId: existing.VersionID}, nil
}
