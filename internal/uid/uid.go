// Package uid generates the random identifiers the service hands out: the
// short alphanumeric suffix appended to every secret ARN.
package uid

import (
	"crypto/rand"
	"fmt"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ARNSuffix returns a random n-character alphanumeric string, matching the
// entropy source and character distribution the original service's ARN
// suffix generator uses. The modulo bias from 256 not dividing evenly by
// len(alphanumeric) is negligible at this length.
func ARNSuffix(n int) string {
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		panic(fmt.Sprintf("uid: reading random bytes: %v", err))
	}
	out := make([]byte, n)
	for i, b := range raw {
		out[i] = alphanumeric[int(b)%len(alphanumeric)]
	}
	return string(out)
}
