// Package apierr defines the typed error taxonomy of the gateway (spec §7)
// and the single Write helper every HTTP handler uses to surface it.
package apierr

import (
	"encoding/json"
	"net/http"
)

// Kind is one of the error kinds spec §7 enumerates.
type Kind string

const (
	Unauthenticated     Kind = "UNAUTHENTICATED"
	InvalidToken        Kind = "INVALID_TOKEN"
	ForbiddenAdmin       Kind = "FORBIDDEN_ADMIN"
	Validation          Kind = "VALIDATION"
	AccountNotFound     Kind = "ACCOUNT_NOT_FOUND"
	RecipientNotFound   Kind = "RECIPIENT_NOT_FOUND"
	SenderNotFound      Kind = "SENDER_NOT_FOUND"
	InsufficientFunds   Kind = "INSUFFICIENT_FUNDS"
	ProviderUnconfigured Kind = "PROVIDER_UNCONFIGURED"
	UpstreamError       Kind = "UPSTREAM_ERROR"
	UpstreamUnreachable Kind = "UPSTREAM_UNREACHABLE"
	Internal            Kind = "INTERNAL"
)

var statusByKind = map[Kind]int{
	Unauthenticated:      http.StatusUnauthorized,
	InvalidToken:         http.StatusUnauthorized,
	ForbiddenAdmin:       http.StatusForbidden,
	Validation:           http.StatusBadRequest,
	AccountNotFound:      http.StatusNotFound,
	RecipientNotFound:    http.StatusNotFound,
	SenderNotFound:       http.StatusNotFound,
	InsufficientFunds:    http.StatusPaymentRequired,
	ProviderUnconfigured: http.StatusServiceUnavailable,
	UpstreamError:        http.StatusBadGateway,
	UpstreamUnreachable:  http.StatusInternalServerError,
	Internal:             http.StatusInternalServerError,
}

// Error is the typed error every component returns for a caller-visible
// failure. Status is resolved from Kind unless explicitly overridden, which
// UPSTREAM_ERROR needs to pass through the provider's own HTTP status.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Detail  string
}

func (e *Error) Error() string { return e.Message }

func newErr(k Kind, msg string) *Error {
	return &Error{Kind: k, Status: statusByKind[k], Message: msg}
}

func New(k Kind, msg string) *Error                { return newErr(k, msg) }
func Validationf(msg string) *Error                { return newErr(Validation, msg) }
func NotFound(msg string) *Error                   { return newErr(AccountNotFound, msg) }
func InsufficientFundsf(msg string) *Error         { return newErr(InsufficientFunds, msg) }
func Unauthenticatedf(msg string) *Error           { return newErr(Unauthenticated, msg) }
func InvalidTokenf(msg string) *Error              { return newErr(InvalidToken, msg) }
func ForbiddenAdminf(msg string) *Error            { return newErr(ForbiddenAdmin, msg) }
func ProviderUnconfiguredf(msg string) *Error      { return newErr(ProviderUnconfigured, msg) }
func Internalf(msg string) *Error                  { return newErr(Internal, msg) }
func UpstreamUnreachablef(msg string) *Error       { return newErr(UpstreamUnreachable, msg) }

// Upstream builds an UPSTREAM_ERROR that passes through the provider's own
// HTTP status code, per spec §4.6 step 6.
func Upstream(status int, detail string) *Error {
	return &Error{Kind: UpstreamError, Status: status, Message: "upstream provider error", Detail: detail}
}

// envelope is the JSON body written for every error response.
type envelope struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// Write resolves err to an *Error (defaulting to INTERNAL for anything
// unrecognized) and writes the matching status code and JSON envelope. It
// never logs or echoes secrets or request bodies.
func Write(w http.ResponseWriter, err error) {
	apiErr, ok := err.(*Error)
	if !ok {
		apiErr = Internalf("internal error")
	}
	detail := apiErr.Detail
	if detail == "" {
		detail = apiErr.Message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	_ = json.NewEncoder(w).Encode(envelope{Error: string(apiErr.Kind), Detail: detail})
}
