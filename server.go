package broker

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// Handler returns the broker's HTTP surface:
//
//	POST /generate-token  issue a scoped installation token
//	GET  /health          liveness probe, no auth
func (b *Broker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /generate-token", b.handleGenerateToken)
	mux.HandleFunc("GET /health", b.handleHealth)
	return mux
}

func (b *Broker) handleGenerateToken(w http.ResponseWriter, r *http.Request) {
	bearerToken, ok := bearerFromHeader(r)
	if !ok {
		b.writeError(w, r, &Error{
			Code:   CodeMalformedToken,
			Detail: "missing Authorization header",
		})
		return
	}

	requested, err := requestedPermissions(r)
	if err != nil {
		b.writeError(w, r, Classify(err))
		return
	}

	issued, err := b.GenerateToken(r.Context(), bearerToken, requested)
	if err != nil {
		b.writeError(w, r, Classify(err))
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		Success:        true,
		Token:          issued.Token,
		ExpiresAt:      issued.ExpiresAt,
		InstallationID: issued.InstallationID,
		Permissions:    issued.Permissions,
	})
}

func (b *Broker) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthCheckResponse{
		Status:    "ok",
		Version:   Version,
		Timestamp: time.Now().UTC(),
	})
}

// bearerFromHeader extracts the identity token from the Authorization
// header. The "Bearer " prefix is optional; the remaining value may
// still be a JSON envelope, which the verifier unwraps.
func bearerFromHeader(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		header = header[7:]
	}
	return header, true
}

// requestedPermissions decodes the optional request body. An empty
// body means "mint the full ceiling".
func requestedPermissions(r *http.Request) (map[string]string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
	if err != nil {
		return nil, &Error{Code: CodeInvalidRequest, Detail: "unreadable request body", Err: err}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}

	var request TokenRequest
	if err := json.Unmarshal(body, &request); err != nil {
		return nil, &Error{Code: CodeInvalidRequest, Detail: "request body is not valid JSON", Err: err}
	}
	return request.Permissions, nil
}

// writeError logs the full failure server-side and returns only the
// classified code and detail to the caller
func (b *Broker) writeError(w http.ResponseWriter, r *http.Request, classified *Error) {
	logError := b.logger.Warn
	if classified.HTTPStatus() >= 500 {
		logError = b.logger.Error
	}
	logError("request rejected",
		"path", r.URL.Path,
		"code", string(classified.Code),
		"error", errorCause(classified),
	)

	writeJSON(w, classified.HTTPStatus(), ErrorResponse{
		Success: false,
		Error:   classified.Detail,
		Code:    classified.Code,
	})
}

// errorCause renders the wrapped cause for the server log, falling
// back to the detail when there is none
func errorCause(classified *Error) string {
	if cause := errors.Unwrap(classified); cause != nil {
		return cause.Error()
	}
	return classified.Detail
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
