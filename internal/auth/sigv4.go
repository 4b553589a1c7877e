// Package auth implements the request authentication pipeline: SigV4-style
// canonicalization and signature recomputation (this file) plus the
// decision tree that maps a request to accept/reject (authgate.go).
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

const (
	// algorithm is the only signing algorithm this service accepts.
	algorithm = "AWS4-HMAC-SHA256"

	// scopeTerminator is the fixed suffix of the credential scope.
	scopeTerminator = "aws4_request"

	// amzDateFormat is the compact ISO8601 format x-amz-date carries.
	amzDateFormat = "20060102T150405Z"

	// amzDateShort is the date-only portion used in the credential scope.
	amzDateShort = "20060102"
)

func hashSHA256(b []byte) string {
	sum := sha256.Sum256(b)
	return hex256(sum[:])
}

const hexDigits = "0123456789abcdef"

func hex256(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0xf]
	}
	return string(out)
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// signingKey derives the SigV4 signing key for the given secret, date
// (yyyymmdd), region and service, per the standard four-step HMAC chain.
func signingKey(secret, date, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secret), []byte(date))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte(scopeTerminator))
}

// canonicalRequest builds the SigV4 canonical request string using only the
// headers named in signedHeaders (their values copied verbatim, per
// spec.md §4.2 step 8), with headers sorted by name regardless of the order
// they appeared in SignedHeaders.
func canonicalRequest(method, path, rawQuery string, header http.Header, signedHeaders []string, bodyHash string) string {
	if path == "" {
		path = "/"
	}

	sorted := append([]string(nil), signedHeaders...)
	sort.Strings(sorted)

	lines := make([]string, 0, len(sorted))
	for _, name := range sorted {
		values := header.Values(name)
		lines = append(lines, strings.ToLower(name)+":"+strings.Join(values, ","))
	}
	canonicalHeaders := strings.Join(lines, "\n")
	if canonicalHeaders != "" {
		canonicalHeaders += "\n"
	}

	return strings.Join([]string{
		method,
		path,
		canonicalQueryString(rawQuery),
		canonicalHeaders,
		strings.Join(sorted, ";"),
		bodyHash,
	}, "\n")
}

// canonicalQueryString sorts query parameters by key then value and
// percent-encodes them per RFC 3986, as SigV4 canonicalization requires.
func canonicalQueryString(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return ""
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		vs := append([]string(nil), values[k]...)
		sort.Strings(vs)
		for _, v := range vs {
			parts = append(parts, rfc3986Encode(k)+"="+rfc3986Encode(v))
		}
	}
	return strings.Join(parts, "&")
}

const upperHexDigits = "0123456789ABCDEF"

// rfc3986Encode percent-encodes s the way SigV4 requires: unreserved
// characters (letters, digits, '-', '.', '_', '~') pass through untouched,
// everything else becomes %XX with uppercase hex digits.
func rfc3986Encode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
		} else {
			b.WriteByte('%')
			b.WriteByte(upperHexDigits[c>>4])
			b.WriteByte(upperHexDigits[c&0xf])
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_' || c == '~':
		return true
	default:
		return false
	}
}

// stringToSign builds the SigV4 string-to-sign from the request timestamp,
// credential scope, and canonical request hash.
func stringToSign(amzDate, credentialScope, canonicalReqHash string) string {
	return strings.Join([]string{algorithm, amzDate, credentialScope, canonicalReqHash}, "\n")
}
