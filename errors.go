package broker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/OpsMx/github-token-broker/pkg/github"
	"github.com/OpsMx/github-token-broker/pkg/oidc"
	"github.com/OpsMx/github-token-broker/pkg/policy"
)

// Code is a machine-readable error classification returned to callers
type Code string

// Error codes, grouped by who is at fault
const (
	// Identity verification failures (caller's token, never retryable)
	CodeMalformedToken   Code = "MALFORMED_TOKEN"
	CodeUntrustedToken   Code = "UNTRUSTED_TOKEN"
	CodeIncompleteClaims Code = "INCOMPLETE_CLAIMS"

	// Policy validation failures (caller's permission request)
	CodeInvalidPermissionName Code = "INVALID_PERMISSION_NAME"
	CodeInvalidAccessLevel    Code = "INVALID_ACCESS_LEVEL"
	CodePermissionNotAllowed  Code = "PERMISSION_NOT_ALLOWED"
	CodeWriteNotAllowed       Code = "WRITE_NOT_ALLOWED"

	// Request envelope failures
	CodeInvalidRequest Code = "INVALID_REQUEST"

	// Operational misconfiguration
	CodeMissingDefaultPermissions Code = "MISSING_DEFAULT_PERMISSIONS"
	CodeInstallationNotFound      Code = "INSTALLATION_NOT_FOUND"
	CodeRepositoryNotFound        Code = "REPOSITORY_NOT_FOUND"

	// Upstream and infrastructure failures
	CodeUpstreamTimeout Code = "UPSTREAM_TIMEOUT"
	CodeMintFailed      Code = "MINT_FAILED"
	CodeInternalError   Code = "INTERNAL_ERROR"
)

// Error is the broker's caller-facing error: a machine-readable code, a
// human-readable detail safe to return to the caller, and the wrapped
// cause for server-side logging. The detail never contains the App
// private key, minted tokens, or raw upstream responses.
type Error struct {
	Code   Code
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the code to the response status: 400 for malformed
// input and rejected permission requests, 403 for untrusted identity,
// 500 for operational and upstream failures
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeMalformedToken, CodeIncompleteClaims, CodeInvalidRequest,
		CodeInvalidPermissionName, CodeInvalidAccessLevel,
		CodePermissionNotAllowed, CodeWriteNotAllowed:
		return http.StatusBadRequest
	case CodeUntrustedToken:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Classify maps a pipeline error to its caller-facing classification.
// Unknown errors become INTERNAL_ERROR with a generic detail; the
// original error stays wrapped for server-side logging only.
func Classify(err error) *Error {
	var brokerErr *Error
	if errors.As(err, &brokerErr) {
		return brokerErr
	}

	var (
		malformedErr   *oidc.MalformedTokenError
		untrustedErr   *oidc.UntrustedTokenError
		incompleteErr  *oidc.IncompleteClaimsError
		unknownPermErr *policy.UnknownPermissionError
		levelErr       *policy.InvalidAccessLevelError
		notAllowedErr  *policy.PermissionNotAllowedError
		writeErr       *policy.WriteNotAllowedError
		instErr        *github.InstallationNotFoundError
		repoErr        *github.RepositoryNotFoundError
		mintErr        *github.MintFailedError
	)

	switch {
	case errors.As(err, &malformedErr):
		return &Error{Code: CodeMalformedToken, Detail: malformedErr.Error(), Err: err}
	case errors.As(err, &untrustedErr):
		return &Error{Code: CodeUntrustedToken, Detail: "identity token verification failed", Err: err}
	case errors.As(err, &incompleteErr):
		return &Error{Code: CodeIncompleteClaims, Detail: incompleteErr.Error(), Err: err}
	case errors.As(err, &unknownPermErr):
		return &Error{Code: CodeInvalidPermissionName, Detail: unknownPermErr.Error(), Err: err}
	case errors.As(err, &levelErr):
		return &Error{Code: CodeInvalidAccessLevel, Detail: levelErr.Error(), Err: err}
	case errors.As(err, &notAllowedErr):
		return &Error{Code: CodePermissionNotAllowed, Detail: notAllowedErr.Error(), Err: err}
	case errors.Is(err, policy.ErrNoGrantablePermissions):
		return &Error{Code: CodePermissionNotAllowed, Detail: policy.ErrNoGrantablePermissions.Error(), Err: err}
	case errors.As(err, &writeErr):
		return &Error{Code: CodeWriteNotAllowed, Detail: writeErr.Error(), Err: err}
	case errors.Is(err, policy.ErrMissingDefaultPermissions):
		return &Error{Code: CodeMissingDefaultPermissions, Detail: "permission policy is missing default permissions", Err: err}
	case errors.As(err, &instErr):
		return &Error{Code: CodeInstallationNotFound, Detail: fmt.Sprintf("GitHub App is not installed for owner %q", instErr.Owner), Err: err}
	case errors.As(err, &repoErr):
		return &Error{Code: CodeRepositoryNotFound, Detail: fmt.Sprintf("repository %s/%s is not covered by the App installation", repoErr.Owner, repoErr.Repo), Err: err}
	case errors.As(err, &mintErr):
		return &Error{Code: CodeMintFailed, Detail: "upstream token creation returned no token", Err: err}
	case isTimeout(err):
		return &Error{Code: CodeUpstreamTimeout, Detail: "upstream request timed out", Err: err}
	default:
		return &Error{Code: CodeInternalError, Detail: "internal error", Err: err}
	}
}

// isTimeout reports whether err is a deadline or network timeout from
// an outbound call
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
