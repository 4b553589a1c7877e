package secretengine

import (
	"context"
	"errors"
	"time"

	apierrors "github.com/bleepstore/bleepstore/internal/errors"
	"github.com/bleepstore/bleepstore/internal/store"
)

// DescribeSecretInput is the DescribeSecret request DTO.
type DescribeSecretInput struct {
	SecretId string `json:"SecretId"`
}

// DescribeSecretOutput is the DescribeSecret response DTO, including the
// AWS-parity null/false fields real SDK clients expect from this operation
// family even though this service implements none of rotation, KMS, or
// replication.
type DescribeSecretOutput struct {
	awsParityNulls

	ARN                string              `json:"ARN"`
	Name               string              `json:"Name"`
	Description        *string             `json:"Description,omitempty"`
	Tags               []TagEntry          `json:"Tags,omitempty"`
	VersionIdsToStages map[string][]string `json:"VersionIdsToStages"`
	CreatedDate        Timestamp           `json:"CreatedDate"`
	LastChangedDate    *Timestamp          `json:"LastChangedDate,omitempty"`
	LastAccessedDate   *Timestamp          `json:"LastAccessedDate,omitempty"`
	DeletedDate        *Timestamp          `json:"DeletedDate,omitempty"`
}

// DescribeSecret returns secret metadata and the version-to-stages map.
// LastAccessedDate is the max last-accessed timestamp across versions;
// LastChangedDate is the max of version creation, secret update, and tag
// update timestamps (spec.md §4.3).
func (e *Engine) DescribeSecret(ctx context.Context, in DescribeSecretInput) (*DescribeSecretOutput, error) {
	out, err := store.WithTransaction(ctx, e.Store, func(q store.Querier) (*DescribeSecretOutput, error) {
		secret, err := e.Store.GetSecretMetadata(ctx, q, in.SecretId)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierrors.ErrResourceNotFoundException
		}
		if err != nil {
			return nil, err
		}

		versions, err := e.Store.GetSecretVersions(ctx, q, secret.ARN)
		if err != nil {
			return nil, err
		}

		versionMap := make(map[string][]string, len(versions))
		lastChanged := secret.CreatedAt
		if secret.UpdatedAt != nil && secret.UpdatedAt.After(lastChanged) {
			lastChanged = *secret.UpdatedAt
		}

		var lastAccessed *time.Time
		for _, v := range versions {
			versionMap[v.VersionID] = v.VersionStages
			if v.CreatedAt.After(lastChanged) {
				lastChanged = v.CreatedAt
			}
			if v.LastAccessedAt != nil && (lastAccessed == nil || v.LastAccessedAt.After(*lastAccessed)) {
				t := *v.LastAccessedAt
				lastAccessed = &t
			}
		}

		tags := make([]TagEntry, 0, len(secret.Tags))
		for _, t := range secret.Tags {
			tags = append(tags, TagEntry{Key: t.Key, Value: t.Value})
			if t.UpdatedAt.After(lastChanged) {
				lastChanged = t.UpdatedAt
			}
		}

		result := &DescribeSecretOutput{
			ARN: secret.ARN, Name: secret.Name, Description: secret.Description,
			Tags: tags, VersionIdsToStages: versionMap,
			CreatedDate:      NewTimestamp(secret.CreatedAt),
			LastChangedDate:  tsPtr(lastChanged),
			LastAccessedDate: tsPtrOpt(lastAccessed),
			DeletedDate:      tsPtrOpt(secret.DeletedAt),
		}
		return result, nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return out, nil
}
