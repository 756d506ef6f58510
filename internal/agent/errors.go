package agent

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"charm.land/fantasy"

	"github.com/dotcommander/confab/internal/errs"
)

// describeModelError gives model API failures a user-facing reason. Provider
// and engine failures already carry one of the errs kinds and pass through.
func (s *Service) describeModelError(err error) error {
	var providerErr *fantasy.ProviderError
	if !errors.As(err, &providerErr) {
		return err
	}
	return errs.Error{Err: err, Reason: reasonForProviderError(providerErr, s.cfg.API, s.cfg.Model)}
}

func reasonForProviderError(err *fantasy.ProviderError, api, model string) string {
	switch err.StatusCode {
	case http.StatusNotFound:
		return fmt.Sprintf("Missing model '%s' for API '%s'.", model, api)
	case http.StatusBadRequest:
		if isContextLengthExceeded(err) {
			return "Maximum prompt size exceeded."
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Sprintf("The %s API rejected the credentials.", api)
	}

	if reason := fantasy.ErrorTitleForStatusCode(err.StatusCode); reason != "" {
		return reason
	}
	if err.IsRetryable() {
		return fmt.Sprintf("%s API is temporarily unavailable.", api)
	}
	return fmt.Sprintf("%s API request error.", api)
}

func isContextLengthExceeded(err *fantasy.ProviderError) bool {
	return strings.Contains(strings.ToLower(err.Message), "context_length_exceeded") ||
		strings.Contains(strings.ToLower(string(err.ResponseBody)), "context_length_exceeded")
}
