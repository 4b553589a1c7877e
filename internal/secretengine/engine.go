package secretengine

import (
	"bytes"
	"errors"
	"time"

	"github.com/google/uuid"

	apierrors "github.com/bleepstore/bleepstore/internal/errors"
	"github.com/bleepstore/bleepstore/internal/store"
	"github.com/bleepstore/bleepstore/internal/uid"
)

// arnPrefix is the fixed partition/service/region/account portion of every
// secret ARN this service mints (spec.md §3).
const arnPrefix = "arn:aws:secretsmanager:us-east-1:1:secret:"

// arnSuffixLen is the length of the random alphanumeric ARN suffix.
const arnSuffixLen = 6

// Engine implements the 14 SecretEngine operations over a Store. Now is
// injectable so tests can pin "today" for last-accessed-date and
// deletion-window assertions.
type Engine struct {
	Store store.Store
	Now   func() time.Time
}

// New returns an Engine backed by s, using time.Now as the clock.
func New(s store.Store) *Engine {
	return &Engine{Store: s, Now: time.Now}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func newARN(name string) string {
	return arnPrefix + name + "-" + uid.ARNSuffix(arnSuffixLen)
}

// newClientRequestToken generates the default idempotency token (and
// version id) CreateSecret/PutSecretValue/UpdateSecret fall back to when the
// caller doesn't supply one: a 32+ character token (spec.md §3).
func newClientRequestToken() string {
	return uuid.NewString()
}

func requestToken(supplied *string) string {
	if supplied != nil && *supplied != "" {
		return *supplied
	}
	return newClientRequestToken()
}

// payloadEqual reports whether two (SecretString, SecretBinary) payloads
// are byte-identical, the check idempotent-replay detection hinges on.
func payloadEqual(aStr *string, aBin []byte, bStr *string, bBin []byte) bool {
	if (aStr == nil) != (bStr == nil) {
		return false
	}
	if aStr != nil && *aStr != *bStr {
		return false
	}
	return bytes.Equal(aBin, bBin)
}

// mapStoreErr collapses any error that isn't already an *apierrors.APIError
// into ErrInternalServiceError, per the service's error propagation rule
// (spec.md §7).
func mapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return apierrors.ErrInternalServiceError
}

func validateName(name string) error {
	if len(name) < 1 || len(name) > 512 {
		return apierrors.ErrInvalidParameterException.WithMessage("Name must be between 1 and 512 characters")
	}
	return nil
}

func validateDescription(description string) error {
	if len(description) > 2048 {
		return apierrors.ErrInvalidParameterException.WithMessage("Description must be 2048 characters or fewer")
	}
	return nil
}

func exactlyOnePayload(secretString *string, secretBinary []byte) bool {
	return (secretString == nil) != (secretBinary == nil)
}
