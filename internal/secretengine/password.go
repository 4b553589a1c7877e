package secretengine

import (
	"context"
	"crypto/rand"
	"math/big"

	apierrors "github.com/bleepstore/bleepstore/internal/errors"
)

// Character classes mirror the original service's exact constants so
// generated passwords are byte-for-byte plausible substitutes (spec.md §4.3,
// GetRandomPassword).
const (
	lowercaseChars    = "abcdefghijklmnopqrstuvwxyz"
	uppercaseChars    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars        = "0123456789"
	punctuationChars  = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
	spaceChar         = " "
)

// GetRandomPasswordInput is the GetRandomPassword request DTO.
type GetRandomPasswordInput struct {
	PasswordLength          *int64 `json:"PasswordLength,omitempty"`
	ExcludeCharacters       string `json:"ExcludeCharacters,omitempty"`
	ExcludeNumbers          bool   `json:"ExcludeNumbers,omitempty"`
	ExcludePunctuation      bool   `json:"ExcludePunctuation,omitempty"`
	ExcludeUppercase        bool   `json:"ExcludeUppercase,omitempty"`
	ExcludeLowercase        bool   `json:"ExcludeLowercase,omitempty"`
	IncludeSpace            bool   `json:"IncludeSpace,omitempty"`
	RequireEachIncludedType bool   `json:"RequireEachIncludedType,omitempty"`
}

// GetRandomPasswordOutput is the GetRandomPassword response DTO.
type GetRandomPasswordOutput struct {
	RandomPassword string `json:"RandomPassword"`
}

// GetRandomPassword generates a password from the requested character
// classes. With RequireEachIncludedType, one character from every included
// class is placed first and the remainder is filled uniformly at random
// before a final Fisher-Yates shuffle; otherwise every character is an
// independent uniform draw across the full included alphabet.
func (e *Engine) GetRandomPassword(_ context.Context, in GetRandomPasswordInput) (*GetRandomPasswordOutput, error) {
	length := int64(32)
	if in.PasswordLength != nil {
		length = *in.PasswordLength
	}
	if length < 1 || length > 4096 {
		return nil, apierrors.ErrInvalidParameterException.WithMessage("PasswordLength must be between 1 and 4096")
	}

	classes := make([]string, 0, 4)
	if !in.ExcludeLowercase {
		classes = append(classes, stripExcluded(lowercaseChars, in.ExcludeCharacters))
	}
	if !in.ExcludeUppercase {
		classes = append(classes, stripExcluded(uppercaseChars, in.ExcludeCharacters))
	}
	if !in.ExcludeNumbers {
		classes = append(classes, stripExcluded(digitChars, in.ExcludeCharacters))
	}
	if !in.ExcludePunctuation {
		classes = append(classes, stripExcluded(punctuationChars, in.ExcludeCharacters))
	}
	if in.IncludeSpace {
		classes = append(classes, stripExcluded(spaceChar, in.ExcludeCharacters))
	}

	classes = removeEmpty(classes)
	if len(classes) == 0 {
		return nil, apierrors.ErrInvalidParameterException.WithMessage("no character classes remain after exclusions")
	}

	if in.RequireEachIncludedType && int64(len(classes)) > length {
		return nil, apierrors.ErrInvalidParameterException.WithMessage(
			"PasswordLength is too short to include one character of every required type")
	}

	alphabet := concat(classes)

	var pw []byte
	var err error
	if in.RequireEachIncludedType {
		pw, err = generateWithEachType(classes, alphabet, int(length))
	} else {
		pw, err = generateUniform(alphabet, int(length))
	}
	if err != nil {
		return nil, apierrors.ErrInternalServiceError
	}

	return &GetRandomPasswordOutput{RandomPassword: string(pw)}, nil
}

func stripExcluded(class, exclude string) string {
	if exclude == "" {
		return class
	}
	excl := make(map[rune]bool, len(exclude))
	for _, r := range exclude {
		excl[r] = true
	}
	out := make([]rune, 0, len(class))
	for _, r := range class {
		if !excl[r] {
			out = append(out, r)
		}
	}
	return string(out)
}

func removeEmpty(classes []string) []string {
	out := classes[:0]
	for _, c := range classes {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func concat(classes []string) string {
	total := 0
	for _, c := range classes {
		total += len(c)
	}
	b := make([]byte, 0, total)
	for _, c := range classes {
		b = append(b, c...)
	}
	return string(b)
}

func randomChar(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, err
	}
	return alphabet[n.Int64()], nil
}

func generateUniform(alphabet string, length int) ([]byte, error) {
	out := make([]byte, length)
	for i := range out {
		c, err := randomChar(alphabet)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func generateWithEachType(classes []string, alphabet string, length int) ([]byte, error) {
	out := make([]byte, length)
	for i, class := range classes {
		c, err := randomChar(class)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	for i := len(classes); i < length; i++ {
		c, err := randomChar(alphabet)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}

	for i := length - 1; i > 0; i-- {
		jBig, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return nil, err
		}
		j := jBig.Int64()
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
