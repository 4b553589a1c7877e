// Package errors defines the Secrets Manager-compatible error types used
// throughout the service.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError represents a Secrets Manager API error with a machine-readable
// kind, human-readable message, and the HTTP status it is served under.
type APIError struct {
	// Kind is the wire-level error kind (e.g., "ResourceNotFoundException").
	// It is sent verbatim as the JSON "__type" field and the
	// x-amzn-errortype response header.
	Kind string
	// Message is a human-readable description of the error.
	Message string
	// HTTPStatus is the HTTP status code to return.
	HTTPStatus int
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.HTTPStatus, e.Message)
}

// WithMessage returns a copy of the error with its message replaced. Used
// where a handler has a more specific message than the default.
func (e *APIError) WithMessage(message string) *APIError {
	cp := *e
	cp.Message = message
	return &cp
}

// Pre-defined errors for the ten wire kinds the service can produce.
// Status codes and message text match the upstream service so that
// real SDK clients handle them identically.
var (
	ErrMissingAuthenticationToken = &APIError{
		Kind:       "MissingAuthenticationToken",
		Message:    "Missing Authentication Token",
		HTTPStatus: 400,
	}

	ErrIncompleteSignature = &APIError{
		Kind:       "IncompleteSignature",
		Message:    "The request signature does not conform to AWS standards.",
		HTTPStatus: 400,
	}

	ErrInvalidClientTokenId = &APIError{
		Kind:       "InvalidClientTokenId",
		Message:    "The X.509 certificate or AWS access key ID provided does not exist in our records.",
		HTTPStatus: 403,
	}

	ErrSignatureDoesNotMatch = &APIError{
		Kind: "SignatureDoesNotMatch",
		Message: "The request signature we calculated does not match the signature you provided. " +
			"Check your AWS Secret Access Key and signing method. Consult the service documentation for details.",
		HTTPStatus: 403,
	}

	ErrInvalidRequestException = &APIError{
		Kind:       "InvalidRequestException",
		Message:    "A parameter value is not valid for the current state of the resource.",
		HTTPStatus: 400,
	}

	ErrInvalidParameterException = &APIError{
		Kind:       "InvalidParameterException",
		Message:    "The parameter name or value is invalid.",
		HTTPStatus: 400,
	}

	ErrResourceNotFoundException = &APIError{
		Kind:       "ResourceNotFoundException",
		Message:    "Secrets Manager can't find the resource that you asked for.",
		HTTPStatus: 400,
	}

	ErrResourceExistsException = &APIError{
		Kind:       "ResourceExistsException",
		Message:    "A resource with the ID you requested already exists.",
		HTTPStatus: 400,
	}

	ErrNotImplemented = &APIError{
		Kind:       "NotImplemented",
		Message:    "This operation is not implemented in this server",
		HTTPStatus: 400,
	}

	ErrInternalServiceError = &APIError{
		Kind:       "InternalServiceError",
		Message:    "An error occurred on the server side.",
		HTTPStatus: 400,
	}
)

// WriteJSON serves e as the error response shape spec.md §6 describes: the
// fixed HTTP status, the x-amzn-errortype header, and a JSON body carrying
// "__type" and "message".
func (e *APIError) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("x-amzn-errortype", e.Kind)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatus)
	_ = json.NewEncoder(w).Encode(struct {
		Type    string `json:"__type"`
		Message string `json:"message"`
	}{Type: e.Kind, Message: e.Message})
}

// AsAPIError unwraps err into an *APIError, collapsing anything else
// (unexpected Store failures, in particular) to ErrInternalServiceError
// per the service's error propagation rule.
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}
	return ErrInternalServiceError
}
