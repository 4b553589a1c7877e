package secretengine

import (
	"context"
	"errors"

	apierrors "github.com/bleepstore/bleepstore/internal/errors"
	"github.com/bleepstore/bleepstore/internal/store"
)

// PutSecretValueInput is the PutSecretValue request DTO.
type PutSecretValueInput struct {
	SecretId           string   `json:"SecretId"`
	ClientRequestToken *string  `json:"ClientRequestToken,omitempty"`
	SecretString       *string  `json:"SecretString,omitempty"`
	SecretBinary       []byte   `json:"SecretBinary,omitempty"`
	VersionStages      []string `json:"VersionStages,omitempty"`
}

// PutSecretValueOutput is the PutSecretValue response DTO.
type PutSecretValueOutput struct {
	ARN           string   `json:"ARN"`
	Name          string   `json:"Name"`
	VersionId     string   `json:"VersionId"`
	VersionStages []string `json:"VersionStages"`
}

// PutSecretValue inserts a new version and moves the requested stage labels
// onto it, demoting the prior holder of AWSCURRENT to AWSPREVIOUS when
// rotating AWSCURRENT (spec.md §4.3, §8 properties 1-2).
func (e *Engine) PutSecretValue(ctx context.Context, in PutSecretValueInput) (*PutSecretValueOutput, error) {
	if !exactlyOnePayload(in.SecretString, in.SecretBinary) {
		return nil, apierrors.ErrInvalidParameterException.WithMessage("exactly one of SecretString or SecretBinary is required")
	}
	stages := in.VersionStages
	if len(stages) == 0 {
		stages = []string{store.StageCurrent}
	}
	token := requestToken(in.ClientRequestToken)

	out, err := store.WithTransaction(ctx, e.Store, func(q store.Querier) (*PutSecretValueOutput, error) {
		prior, err := e.Store.GetSecretLatestVersion(ctx, q, in.SecretId)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierrors.ErrResourceNotFoundException
		}
		if err != nil {
			return nil, err
		}

		verErr := e.Store.CreateSecretVersion(ctx, q, store.NewVersion{
			SecretARN: prior.ARN, VersionID: token, SecretString: in.SecretString, SecretBinary: in.SecretBinary,
		})
		if errors.Is(verErr, store.ErrUniqueViolation) {
			existing, gErr := e.Store.GetSecretByVersionID(ctx, q, prior.ARN, token)
			if gErr != nil {
				return nil, gErr
			}
			if !payloadEqual(in.SecretString, in.SecretBinary, existing.SecretString, existing.SecretBinary) {
				return nil, apierrors.ErrResourceExistsException
			}
			return &PutSecretValueOutput{
				ARN: existing.ARN, Name: existing.Name, VersionId: existing.VersionID, VersionStages: existing.VersionStages,
			}, nil
		}
		if verErr != nil {
			return nil, verErr
		}

		if err := moveStagesOntoVersion(ctx, e.Store, q, prior.ARN, prior.VersionID, token, stages); err != nil {
			return nil, err
		}

		return &PutSecretValueOutput{ARN: prior.ARN, Name: prior.Name, VersionId: token, VersionStages: stages}, nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return out, nil
}

// moveStagesOntoVersion implements the rotation dance spec.md §4.3/§9
// reduce every stage move to: strip the label from whoever holds it; if
// promoting AWSCURRENT, also strip AWSPREVIOUS from any version and attach
// it to the version the label is being taken from; attach the label to
// newVersionID.
func moveStagesOntoVersion(ctx context.Context, s store.Store, q store.Querier, secretARN, priorVersionID, newVersionID string, stages []string) error {
	for _, label := range stages {
		if err := s.RemoveSecretVersionStageAny(ctx, q, secretARN, label); err != nil {
			return err
		}
		if label == store.StageCurrent {
			if err := s.RemoveSecretVersionStageAny(ctx, q, secretARN, store.StagePrevious); err != nil {
				return err
			}
			if err := s.AddSecretVersionStage(ctx, q, secretARN, priorVersionID, store.StagePrevious); err != nil {
				return err
			}
		}
		if err := s.AddSecretVersionStage(ctx, q, secretARN, newVersionID, label); err != nil {
			return err
		}
	}
	return nil
}
