package secretengine

import (
	"context"
	"errors"

	apierrors "github.com/bleepstore/bleepstore/internal/errors"
	"github.com/bleepstore/bleepstore/internal/store"
)

// DeleteSecretInput is the DeleteSecret request DTO.
type DeleteSecretInput struct {
	SecretId                   string `json:"SecretId"`
	ForceDeleteWithoutRecovery *bool  `json:"ForceDeleteWithoutRecovery,omitempty"`
	RecoveryWindowInDays       *int64 `json:"RecoveryWindowInDays,omitempty"`
}

// DeleteSecretOutput is the DeleteSecret response DTO.
type DeleteSecretOutput struct {
	ARN          string    `json:"ARN"`
	Name         string    `json:"Name"`
	DeletionDate Timestamp `json:"DeletionDate"`
}

const defaultRecoveryWindowDays = 30

// DeleteSecret schedules a secret for deletion (or hard-deletes it
// immediately when ForceDeleteWithoutRecovery is set), per spec.md §4.3.
func (e *Engine) DeleteSecret(ctx context.Context, in DeleteSecretInput) (*DeleteSecretOutput, error) {
	force := in.ForceDeleteWithoutRecovery != nil && *in.ForceDeleteWithoutRecovery

	window := defaultRecoveryWindowDays
	if in.RecoveryWindowInDays != nil {
		window = int(*in.RecoveryWindowInDays)
		if window < 7 || window > 30 {
			return nil, apierrors.ErrInvalidParameterException.WithMessage("RecoveryWindowInDays must be between 7 and 30")
		}
	}

	out, err := store.WithTransaction(ctx, e.Store, func(q store.Querier) (*DeleteSecretOutput, error) {
		current, err := e.Store.GetSecretMetadata(ctx, q, in.SecretId)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierrors.ErrResourceNotFoundException
		}
		if err != nil {
			return nil, err
		}

		if current.ScheduledDeleteAt != nil {
			return &DeleteSecretOutput{ARN: current.ARN, Name: current.Name, DeletionDate: NewTimestamp(*current.ScheduledDeleteAt)}, nil
		}

		if force {
			if err := e.Store.DeleteSecret(ctx, q, current.ARN); err != nil {
				return nil, err
			}
			return &DeleteSecretOutput{ARN: current.ARN, Name: current.Name, DeletionDate: NewTimestamp(e.now())}, nil
		}

		deleteAt, err := e.Store.ScheduleDeleteSecret(ctx, q, current.ARN, window)
		if err != nil {
			return nil, err
		}
		return &DeleteSecretOutput{ARN: current.ARN, Name: current.Name, DeletionDate: NewTimestamp(deleteAt)}, nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return out, nil
}

// RestoreSecretInput is the RestoreSecret request DTO.
type RestoreSecretInput struct {
	SecretId string `json:"SecretId"`
}

// RestoreSecretOutput is the RestoreSecret response DTO.
type RestoreSecretOutput struct {
	ARN  string `json:"ARN"`
	Name string `json:"Name"`
}

// RestoreSecret clears a pending scheduled deletion. It is a no-op (not an
// error) if the secret wasn't scheduled for deletion.
func (e *Engine) RestoreSecret(ctx context.Context, in RestoreSecretInput) (*RestoreSecretOutput, error) {
	out, err := store.WithTransaction(ctx, e.Store, func(q store.Querier) (*RestoreSecretOutput, error) {
		current, err := e.Store.GetSecretMetadata(ctx, q, in.SecretId)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierrors.ErrResourceNotFoundException
		}
		if err != nil {
			return nil, err
		}
		if err := e.Store.CancelDeleteSecret(ctx, q, current.ARN); err != nil {
			return nil, err
		}
		return &RestoreSecretOutput{ARN: current.ARN, Name: current.Name}, nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return out, nil
}
