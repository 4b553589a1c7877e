package secretengine

import (
	"encoding/base64"
	"encoding/json"
	"math"

	apierrors "github.com/bleepstore/bleepstore/internal/errors"
)

const defaultPageSize = 100

// pageToken is the opaque pagination cursor spec.md §4.3 describes: it
// encodes the page index and the page size that produced it, so a client
// that never passes MaxResults keeps paging through the same page size it
// started with.
type pageToken struct {
	PageIndex int `json:"i"`
	PageSize  int `json:"s"`
}

func encodePageToken(pageIndex, pageSize int) string {
	b, _ := json.Marshal(pageToken{PageIndex: pageIndex, PageSize: pageSize})
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodePageToken(token string) (pageToken, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return pageToken{}, err
	}
	var pt pageToken
	if err := json.Unmarshal(b, &pt); err != nil {
		return pageToken{}, err
	}
	return pt, nil
}

// resolvePage decodes nextToken (if present), overrides its page size with
// maxResults (if the caller supplied one), and returns the offset a Store
// filter query should skip to plus the page index/size a follow-up
// nextPageToken call needs. The query limit is always pageSize.
func resolvePage(nextToken *string, maxResults *int32) (offset, pageIndex, pageSize int, err error) {
	pageSize = defaultPageSize
	pageIndex = 0

	if nextToken != nil && *nextToken != "" {
		pt, decErr := decodePageToken(*nextToken)
		if decErr != nil {
			return 0, 0, 0, apierrors.ErrInvalidParameterException.WithMessage("invalid NextToken")
		}
		pageIndex = pt.PageIndex
		pageSize = pt.PageSize
	}

	if maxResults != nil {
		pageSize = int(*maxResults)
	}

	if pageSize < 0 || pageIndex < 0 || int64(pageSize) > math.MaxInt32 || int64(pageIndex) > math.MaxInt32 {
		return 0, 0, 0, apierrors.ErrInvalidParameterException.WithMessage("page size or index exceeds the maximum")
	}

	return pageSize * pageIndex, pageIndex, pageSize, nil
}

// nextPageToken returns the token for the following page, or nil when the
// current page reaches the end of the result set.
func nextPageToken(pageIndex, pageSize, total int) *string {
	if (pageIndex+1)*pageSize < total {
		t := encodePageToken(pageIndex+1, pageSize)
		return &t
	}
	return nil
}
