package secretengine

import (
	"context"
	"errors"

	apierrors "github.com/bleepstore/bleepstore/internal/errors"
	"github.com/bleepstore/bleepstore/internal/store"
)

// UpdateSecretVersionStageInput is the UpdateSecretVersionStage request DTO.
type UpdateSecretVersionStageInput struct {
	SecretId            string  `json:"SecretId"`
	VersionStage        string  `json:"VersionStage"`
	MoveToVersionId     *string `json:"MoveToVersionId,omitempty"`
	RemoveFromVersionId *string `json:"RemoveFromVersionId,omitempty"`
}

// UpdateSecretVersionStageOutput is the UpdateSecretVersionStage response DTO.
type UpdateSecretVersionStageOutput struct {
	ARN  string `json:"ARN"`
	Name string `json:"Name"`
}

// UpdateSecretVersionStage moves a stage label between versions. At least
// one of MoveToVersionId/RemoveFromVersionId must be set.
//
// The version that held VersionStage before this call is captured before any
// removal happens: if the removal step ran first, stripping AWSCURRENT from
// RemoveFromVersionId, there would be no way to tell who demotes to
// AWSPREVIOUS once MoveToVersionId takes the label (spec.md §4.3, §8 S4).
//
// Moving the label onto a different version than its current holder
// requires the caller to name that holder explicitly via
// RemoveFromVersionId; omitting it is rejected rather than silently
// stripping the label from wherever it happened to be (spec.md §8 S4).
func (e *Engine) UpdateSecretVersionStage(ctx context.Context, in UpdateSecretVersionStageInput) (*UpdateSecretVersionStageOutput, error) {
	if in.MoveToVersionId == nil && in.RemoveFromVersionId == nil {
		return nil, apierrors.ErrInvalidParameterException.WithMessage(
			"at least one of MoveToVersionId or RemoveFromVersionId is required")
	}

	out, err := store.WithTransaction(ctx, e.Store, func(q store.Querier) (*UpdateSecretVersionStageOutput, error) {
		secret, err := e.Store.GetSecretMetadata(ctx, q, in.SecretId)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierrors.ErrResourceNotFoundException
		}
		if err != nil {
			return nil, err
		}

		var priorHolder string
		cur, cErr := e.Store.GetSecretByVersionStage(ctx, q, secret.ARN, in.VersionStage)
		if cErr != nil && !errors.Is(cErr, store.ErrNotFound) {
			return nil, cErr
		}
		if cur != nil {
			priorHolder = cur.VersionID
		}

		if in.MoveToVersionId != nil && priorHolder != "" {
			if priorHolder == *in.MoveToVersionId && in.RemoveFromVersionId == nil {
				return nil, apierrors.ErrInvalidRequestException.WithMessage(
					"VersionStage is already attached to MoveToVersionId")
			}
			if priorHolder != *in.MoveToVersionId && (in.RemoveFromVersionId == nil || *in.RemoveFromVersionId != priorHolder) {
				return nil, apierrors.ErrInvalidRequestException.WithMessage(
					"VersionStage is already attached to a different version; specify RemoveFromVersionId to move it")
			}
		}

		if in.RemoveFromVersionId != nil {
			n, err := e.Store.RemoveSecretVersionStage(ctx, q, secret.ARN, *in.RemoveFromVersionId, in.VersionStage)
			if err != nil {
				return nil, err
			}
			if n == 0 {
				return nil, apierrors.ErrInvalidRequestException.WithMessage(
					"RemoveFromVersionId does not currently hold VersionStage")
			}
		}

		if in.MoveToVersionId != nil {
			if err := e.Store.RemoveSecretVersionStageAny(ctx, q, secret.ARN, in.VersionStage); err != nil {
				return nil, err
			}

			if in.VersionStage == store.StageCurrent && priorHolder != "" && priorHolder != *in.MoveToVersionId {
				if err := e.Store.RemoveSecretVersionStageAny(ctx, q, secret.ARN, store.StagePrevious); err != nil {
					return nil, err
				}
				if err := e.Store.AddSecretVersionStage(ctx, q, secret.ARN, priorHolder, store.StagePrevious); err != nil {
					return nil, err
				}
			}

			if err := e.Store.AddSecretVersionStage(ctx, q, secret.ARN, *in.MoveToVersionId, in.VersionStage); err != nil {
				return nil, err
			}
		}

		return &UpdateSecretVersionStageOutput{ARN: secret.ARN, Name: secret.Name}, nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return out, nil
}
