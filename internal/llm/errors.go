package llm

import (
	"errors"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
	"github.com/mojoassistant/mojoassistant/pkg/aierrors"
)

// classify converts a raw provider error into the spec's typed
// `LLMError{provider, model, reason}`, reusing the teacher's error
// classification helpers (rate limit / auth / timeout / server) to fill in
// `reason` instead of inventing new pattern matching.
func classify(provider, model string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	reason := "unknown"
	switch {
	case aierrors.IsRateLimitError(err):
		reason = "rate_limited"
	case aierrors.IsAuthError(err):
		reason = "auth_failed"
	case aierrors.IsTimeoutError(err):
		reason = "timeout"
	case aierrors.IsServerError(err):
		reason = "server_error"
	case aierrors.IsModelNotFound(err):
		reason = "model_not_found"
	case aierrors.IsBillingError(err):
		reason = "billing"
	case aierrors.IsOverloadedError(err):
		reason = "overloaded"
	}

	kind := apperr.KindLLM
	if reason == "timeout" {
		kind = apperr.KindTimeout
	}

	return apperr.Wrap(kind, "LLM call failed", err, map[string]any{
		"provider": provider,
		"model":    model,
		"reason":   reason,
	})
}
