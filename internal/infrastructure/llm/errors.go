package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/leaguedesk/leaguedesk/internal/domain/service"
	domainErrors "github.com/leaguedesk/leaguedesk/pkg/errors"
)

// apiError carries the status of a non-200 provider response so the router
// can decide between failover, fallback and hard failure.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.status, e.body)
}

// classifyStatus maps an HTTP status to an error the router understands.
func classifyStatus(status int, body []byte) error {
	text := string(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domainErrors.New(domainErrors.CodeMissingCredential, "llm rejected credentials: "+text)
	case status == http.StatusBadRequest && mentionsResponseFormat(text):
		// The model exists but does not support schema-constrained output.
		return fmt.Errorf("%w: %s", service.ErrStructuredOutput, text)
	default:
		return &apiError{status: status, body: text}
	}
}

func mentionsResponseFormat(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "response_format") || strings.Contains(lower, "json_schema")
}

// isFailoverable reports whether another model is worth trying: the model is
// missing, the provider is overloaded, or the backend errored. Credential and
// schema errors are not retried against a different model.
func isFailoverable(err error) bool {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		// Transport-level failures (timeouts, refused connections) also
		// justify trying the fallback.
		return !errors.Is(err, service.ErrStructuredOutput) &&
			!domainErrors.HasCode(err, domainErrors.CodeMissingCredential)
	}
	switch {
	case apiErr.status == http.StatusNotFound:
		return true
	case apiErr.status == http.StatusTooManyRequests:
		return true
	case apiErr.status >= 500:
		return true
	default:
		return false
	}
}
