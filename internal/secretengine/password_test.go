package secretengine

import (
	"context"
	"strings"
	"testing"
)

func TestGetRandomPasswordLength(t *testing.T) {
	e := &Engine{}
	out, err := e.GetRandomPassword(context.Background(), GetRandomPasswordInput{PasswordLength: ptr(int64(20))})
	if err != nil {
		t.Fatalf("GetRandomPassword() error = %v", err)
	}
	if len(out.RandomPassword) != 20 {
		t.Fatalf("len(RandomPassword) = %d, want 20", len(out.RandomPassword))
	}
}

func TestGetRandomPasswordExcludesCharacters(t *testing.T) {
	e := &Engine{}
	out, err := e.GetRandomPassword(context.Background(), GetRandomPasswordInput{
		PasswordLength: ptr(int64(200)), ExcludePunctuation: true, ExcludeNumbers: true,
		ExcludeCharacters: "aeiouAEIOU",
	})
	if err != nil {
		t.Fatalf("GetRandomPassword() error = %v", err)
	}
	if strings.ContainsAny(out.RandomPassword, "aeiouAEIOU"+digitChars+punctuationChars) {
		t.Fatalf("RandomPassword %q contains an excluded character", out.RandomPassword)
	}
}

func TestGetRandomPasswordRequireEachIncludedType(t *testing.T) {
	e := &Engine{}
	out, err := e.GetRandomPassword(context.Background(), GetRandomPasswordInput{
		PasswordLength: ptr(int64(8)), RequireEachIncludedType: true,
	})
	if err != nil {
		t.Fatalf("GetRandomPassword() error = %v", err)
	}
	classes := []string{lowercaseChars, uppercaseChars, digitChars, punctuationChars}
	for _, class := range classes {
		if !strings.ContainsAny(out.RandomPassword, class) {
			t.Fatalf("RandomPassword %q is missing a character from class %q", out.RandomPassword, class)
		}
	}
}

func TestGetRandomPasswordTooShortForRequiredTypes(t *testing.T) {
	e := &Engine{}
	_, err := e.GetRandomPassword(context.Background(), GetRandomPasswordInput{
		PasswordLength: ptr(int64(2)), RequireEachIncludedType: true,
	})
	if kind := apiErrKind(t, err); kind == "" {
		t.Fatalf("expected an error for too-short RequireEachIncludedType password")
	}
}
