package secretengine

import (
	"context"
	"errors"

	apierrors "github.com/bleepstore/bleepstore/internal/errors"
	"github.com/bleepstore/bleepstore/internal/store"
)

// TagResourceInput is the TagResource request DTO.
type TagResourceInput struct {
	SecretId string     `json:"SecretId"`
	Tags     []TagEntry `json:"Tags"`
}

// TagResourceOutput is the TagResource response DTO; the operation has no
// return payload beyond a successful empty object.
type TagResourceOutput struct{}

// TagResource upserts each tag; a key that already exists on the secret has
// its value overwritten.
func (e *Engine) TagResource(ctx context.Context, in TagResourceInput) (*TagResourceOutput, error) {
	_, err := store.WithTransaction(ctx, e.Store, func(q store.Querier) (struct{}, error) {
		secret, err := e.Store.GetSecretMetadata(ctx, q, in.SecretId)
		if errors.Is(err, store.ErrNotFound) {
			return struct{}{}, apierrors.ErrResourceNotFoundException
		}
		if err != nil {
			return struct{}{}, err
		}
		for _, tag := range in.Tags {
			if err := e.Store.PutSecretTag(ctx, q, secret.ARN, tag.Key, tag.Value); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return &TagResourceOutput{}, nil
}

// UntagResourceInput is the UntagResource request DTO.
type UntagResourceInput struct {
	SecretId string   `json:"SecretId"`
	TagKeys  []string `json:"TagKeys"`
}

// UntagResourceOutput is the UntagResource response DTO.
type UntagResourceOutput struct{}

// UntagResource removes tags by key. Removing a key the secret doesn't
// carry is a no-op, not an error.
func (e *Engine) UntagResource(ctx context.Context, in UntagResourceInput) (*UntagResourceOutput, error) {
	_, err := store.WithTransaction(ctx, e.Store, func(q store.Querier) (struct{}, error) {
		secret, err := e.Store.GetSecretMetadata(ctx, q, in.SecretId)
		if errors.Is(err, store.ErrNotFound) {
			return struct{}{}, apierrors.ErrResourceNotFoundException
		}
		if err != nil {
			return struct{}{}, err
		}
		for _, key := range in.TagKeys {
			if err := e.Store.RemoveSecretTag(ctx, q, secret.ARN, key); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return &UntagResourceOutput{}, nil
}
