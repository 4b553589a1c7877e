package secretengine

import (
	"context"
	"errors"
	"time"

	apierrors "github.com/bleepstore/bleepstore/internal/errors"
	"github.com/bleepstore/bleepstore/internal/store"
)

// SecretSummary is the per-secret projection ListSecrets returns, carrying
// the AWS-parity null/false fields real SDK clients expect from this
// operation family. BatchGetSecretValue returns GetSecretValueOutput
// entries instead.
type SecretSummary struct {
	awsParityNulls

	ARN               string     `json:"ARN"`
	Name              string     `json:"Name"`
	Description       *string    `json:"Description,omitempty"`
	Tags              []TagEntry `json:"Tags,omitempty"`
	SecretVersionsToStages map[string][]string `json:"SecretVersionsToStages,omitempty"`
	CreatedDate       Timestamp  `json:"CreatedDate"`
	LastChangedDate   *Timestamp `json:"LastChangedDate,omitempty"`
	LastAccessedDate  *Timestamp `json:"LastAccessedDate,omitempty"`
	DeletedDate       *Timestamp `json:"DeletedDate,omitempty"`
}

var validFilterKeys = map[string]bool{
	string(store.FilterKeyName): true, string(store.FilterKeyDescription): true,
	string(store.FilterKeyTagKey): true, string(store.FilterKeyTagValue): true, string(store.FilterKeyAll): true,
}

func toStoreFilters(filters []Filter) ([]store.Filter, error) {
	out := make([]store.Filter, 0, len(filters))
	for _, f := range filters {
		if !validFilterKeys[f.Key] {
			return nil, apierrors.ErrInvalidParameterException.WithMessage("unrecognized filter key: " + f.Key)
		}
		negate := f.Negate != nil && *f.Negate
		out = append(out, store.Filter{Key: store.FilterKey(f.Key), Values: f.Values, Negate: negate})
	}
	return out, nil
}

func summaryFromSecret(s store.Secret, versions []store.Version) SecretSummary {
	versionMap := make(map[string][]string, len(versions))
	lastChanged := s.CreatedAt
	if s.UpdatedAt != nil && s.UpdatedAt.After(lastChanged) {
		lastChanged = *s.UpdatedAt
	}

	var lastAccessed *time.Time
	for _, v := range versions {
		if len(v.VersionStages) > 0 {
			versionMap[v.VersionID] = v.VersionStages
		}
		if v.CreatedAt.After(lastChanged) {
			lastChanged = v.CreatedAt
		}
		if v.LastAccessedAt != nil && (lastAccessed == nil || v.LastAccessedAt.After(*lastAccessed)) {
			t := *v.LastAccessedAt
			lastAccessed = &t
		}
	}

	tags := make([]TagEntry, 0, len(s.Tags))
	for _, t := range s.Tags {
		tags = append(tags, TagEntry{Key: t.Key, Value: t.Value})
		if t.UpdatedAt.After(lastChanged) {
			lastChanged = t.UpdatedAt
		}
	}
	return SecretSummary{
		ARN: s.ARN, Name: s.Name, Description: s.Description, Tags: tags,
		SecretVersionsToStages: versionMap,
		CreatedDate:            NewTimestamp(s.CreatedAt),
		LastChangedDate:        tsPtr(lastChanged),
		LastAccessedDate:       tsPtrOpt(lastAccessed),
		DeletedDate:            tsPtrOpt(s.DeletedAt),
	}
}

// ListSecretsInput is the ListSecrets request DTO.
type ListSecretsInput struct {
	Filters                []Filter `json:"Filters,omitempty"`
	IncludePlannedDeletion bool     `json:"IncludePlannedDeletion,omitempty"`
	MaxResults             *int32   `json:"MaxResults,omitempty"`
	NextToken              *string  `json:"NextToken,omitempty"`
	SortOrder              string   `json:"SortOrder,omitempty"`
}

// ListSecretsOutput is the ListSecrets response DTO.
type ListSecretsOutput struct {
	SecretList []SecretSummary `json:"SecretList"`
	NextToken  *string         `json:"NextToken,omitempty"`
}

// ListSecrets lists every secret matching Filters, paginated and ordered by
// created_at (spec.md §4.3).
func (e *Engine) ListSecrets(ctx context.Context, in ListSecretsInput) (*ListSecretsOutput, error) {
	if in.SortOrder != "" && in.SortOrder != "asc" && in.SortOrder != "desc" {
		return nil, apierrors.ErrInvalidParameterException.WithMessage("SortOrder must be asc or desc")
	}
	asc := in.SortOrder == "asc"

	filters, err := toStoreFilters(in.Filters)
	if err != nil {
		return nil, err
	}

	offset, pageIndex, pageSize, err := resolvePage(in.NextToken, in.MaxResults)
	if err != nil {
		return nil, err
	}

	out, err := store.WithTransaction(ctx, e.Store, func(q store.Querier) (*ListSecretsOutput, error) {
		total, err := e.Store.GetSecretsCountByFilter(ctx, q, filters, in.IncludePlannedDeletion)
		if err != nil {
			return nil, err
		}
		secrets, err := e.Store.GetSecretsByFilter(ctx, q, filters, in.IncludePlannedDeletion, pageSize, offset, asc)
		if err != nil {
			return nil, err
		}

		summaries := make([]SecretSummary, 0, len(secrets))
		for _, s := range secrets {
			versions, err := e.Store.GetSecretVersions(ctx, q, s.ARN)
			if err != nil {
				return nil, err
			}
			summaries = append(summaries, summaryFromSecret(s, versions))
		}

		return &ListSecretsOutput{SecretList: summaries, NextToken: nextPageToken(pageIndex, pageSize, total)}, nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return out, nil
}

// ListSecretVersionIdsInput is the ListSecretVersionIds request DTO.
type ListSecretVersionIdsInput struct {
	SecretId          string  `json:"SecretId"`
	IncludeDeprecated bool    `json:"IncludeDeprecated,omitempty"`
	MaxResults        *int32  `json:"MaxResults,omitempty"`
	NextToken         *string `json:"NextToken,omitempty"`
}

// SecretVersionsListEntry is a single ListSecretVersionIds result row.
type SecretVersionsListEntry struct {
	VersionId          string     `json:"VersionId"`
	VersionStages      []string   `json:"VersionStages,omitempty"`
	LastAccessedDate   *Timestamp `json:"LastAccessedDate,omitempty"`
	CreatedDate        Timestamp  `json:"CreatedDate"`
}

// ListSecretVersionIdsOutput is the ListSecretVersionIds response DTO.
type ListSecretVersionIdsOutput struct {
	ARN      string                    `json:"ARN"`
	Name     string                    `json:"Name"`
	Versions []SecretVersionsListEntry `json:"Versions"`
	NextToken *string                  `json:"NextToken,omitempty"`
}

// ListSecretVersionIds lists every version of one secret, including
// deprecated (unstaged) versions only when IncludeDeprecated is set.
func (e *Engine) ListSecretVersionIds(ctx context.Context, in ListSecretVersionIdsInput) (*ListSecretVersionIdsOutput, error) {
	offset, pageIndex, pageSize, err := resolvePage(in.NextToken, in.MaxResults)
	if err != nil {
		return nil, err
	}

	out, err := store.WithTransaction(ctx, e.Store, func(q store.Querier) (*ListSecretVersionIdsOutput, error) {
		secret, err := e.Store.GetSecretMetadata(ctx, q, in.SecretId)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierrors.ErrResourceNotFoundException
		}
		if err != nil {
			return nil, err
		}

		total, err := e.Store.CountSecretVersions(ctx, q, secret.ARN, in.IncludeDeprecated)
		if err != nil {
			return nil, err
		}
		versions, err := e.Store.GetSecretVersionsPage(ctx, q, secret.ARN, in.IncludeDeprecated, pageSize, offset)
		if err != nil {
			return nil, err
		}

		entries := make([]SecretVersionsListEntry, 0, len(versions))
		for _, v := range versions {
			entries = append(entries, SecretVersionsListEntry{
				VersionId: v.VersionID, VersionStages: v.VersionStages,
				LastAccessedDate: tsPtrOpt(v.LastAccessedAt), CreatedDate: NewTimestamp(v.CreatedAt),
			})
		}

		return &ListSecretVersionIdsOutput{
			ARN: secret.ARN, Name: secret.Name, Versions: entries,
			NextToken: nextPageToken(pageIndex, pageSize, total),
		}, nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return out, nil
}

// BatchGetSecretValueInput is the BatchGetSecretValue request DTO. Exactly
// one of Filters or SecretIdList must be set (spec.md §4.3).
type BatchGetSecretValueInput struct {
	Filters      []Filter `json:"Filters,omitempty"`
	SecretIdList []string `json:"SecretIdList,omitempty"`
	MaxResults   *int32   `json:"MaxResults,omitempty"`
	NextToken    *string  `json:"NextToken,omitempty"`
}

// BatchGetSecretValueOutput is the BatchGetSecretValue response DTO.
type BatchGetSecretValueOutput struct {
	SecretValues []GetSecretValueOutput `json:"SecretValues"`
	NextToken    *string                `json:"NextToken,omitempty"`
	Errors       []APIErrorEntry        `json:"Errors,omitempty"`
}

// BatchGetSecretValue operates in two mutually exclusive modes: filter mode
// resolves a paginated set of secrets and fails the whole call on any
// lookup error, while id-list mode resolves each id independently and
// collects per-id failures into Errors instead of aborting (spec.md §4.3).
func (e *Engine) BatchGetSecretValue(ctx context.Context, in BatchGetSecretValueInput) (*BatchGetSecretValueOutput, error) {
	hasFilters := len(in.Filters) > 0
	hasIDs := len(in.SecretIdList) > 0
	if hasFilters == hasIDs {
		return nil, apierrors.ErrInvalidParameterException.WithMessage(
			"exactly one of Filters or SecretIdList is required")
	}

	if hasIDs {
		return e.batchGetByIDList(ctx, in)
	}
	return e.batchGetByFilter(ctx, in)
}

func (e *Engine) batchGetByIDList(ctx context.Context, in BatchGetSecretValueInput) (*BatchGetSecretValueOutput, error) {
	out := &BatchGetSecretValueOutput{}
	for _, id := range in.SecretIdList {
		val, err := e.GetSecretValue(ctx, GetSecretValueInput{SecretId: id})
		if err != nil {
			apiErr := apierrors.AsAPIError(err)
			out.Errors = append(out.Errors, APIErrorEntry{SecretId: id, ErrorCode: apiErr.Kind, Message: apiErr.Message})
			continue
		}
		out.SecretValues = append(out.SecretValues, *val)
	}
	return out, nil
}

func (e *Engine) batchGetByFilter(ctx context.Context, in BatchGetSecretValueInput) (*BatchGetSecretValueOutput, error) {
	filters, err := toStoreFilters(in.Filters)
	if err != nil {
		return nil, err
	}

	offset, pageIndex, pageSize, err := resolvePage(in.NextToken, in.MaxResults)
	if err != nil {
		return nil, err
	}

	out, err := store.WithTransaction(ctx, e.Store, func(q store.Querier) (*BatchGetSecretValueOutput, error) {
		total, err := e.Store.GetSecretsCountByFilter(ctx, q, filters, false)
		if err != nil {
			return nil, err
		}
		secrets, err := e.Store.GetSecretsByFilter(ctx, q, filters, false, pageSize, offset, false)
		if err != nil {
			return nil, err
		}

		values := make([]GetSecretValueOutput, 0, len(secrets))
		for _, s := range secrets {
			current, err := e.Store.GetSecretLatestVersion(ctx, q, s.ARN)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			values = append(values, GetSecretValueOutput{
				ARN: current.ARN, Name: current.Name, VersionId: current.VersionID,
				SecretString: current.SecretString, SecretBinary: current.SecretBinary,
				VersionStages: current.VersionStages, CreatedDate: NewTimestamp(current.VersionCreatedAt),
			})
		}

		return &BatchGetSecretValueOutput{SecretValues: values, NextToken: nextPageToken(pageIndex, pageSize, total)}, nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return out, nil
}
