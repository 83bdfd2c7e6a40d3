package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/port-experimental/port-pr-chart/internal/api"
	"github.com/port-experimental/port-pr-chart/internal/token"
)

// ErrorContext provides additional context for errors.
type ErrorContext struct {
	Error      error
	Suggestion string
	HelpURL    string
	ErrorCode  string
}

// FormatError formats an error with context and suggestions.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	suggestion, errorCode := classify(err)
	return FormatErrorWithContext(ErrorContext{
		Error:      err,
		Suggestion: suggestion,
		ErrorCode:  errorCode,
	})
}

// FormatErrorWithContext formats an error with explicit context.
func FormatErrorWithContext(ctx ErrorContext) string {
	if ctx.Error == nil {
		return ""
	}

	var parts []string
	parts = append(parts, Error(ctx.Error.Error()))

	if ctx.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("\n%s", Info("Suggestion: "+ctx.Suggestion)))
	}

	if ctx.HelpURL != "" {
		parts = append(parts, fmt.Sprintf("\n%s", Info("Documentation: "+ctx.HelpURL)))
	}

	if ctx.ErrorCode != "" {
		parts = append(parts, fmt.Sprintf("\n%s", Dim("Error code: "+ctx.ErrorCode)))
	}

	return strings.Join(parts, "")
}

// classify maps typed errors first, then falls back to message matching.
func classify(err error) (suggestion, code string) {
	var upstreamErr *api.UpstreamRequestError
	var exchangeErr *api.AuthExchangeError
	var invalidErr *token.InvalidTokenError

	switch {
	case errors.Is(err, token.ErrMissingCredentials):
		return "Set PORT_CLIENT_ID and PORT_CLIENT_SECRET, or run `portchart config init --interactive`", "MISSING_CREDENTIALS"
	case errors.Is(err, api.ErrNoTokenAvailable):
		return "Configure client credentials or PORT_API_TOKEN_PRIMARY. Run `portchart token status` to inspect the token state", "NO_TOKEN"
	case errors.As(err, &exchangeErr):
		return "Check the client id and secret, and that PORT_API_REGION matches your Port organization", "AUTH_FAILED"
	case errors.Is(err, token.ErrEmptyToken):
		return "Configure client credentials or PORT_API_TOKEN_PRIMARY, or pass the token to validate as an argument", "NO_TOKEN"
	case errors.As(err, &invalidErr) && invalidErr.Rejected():
		return "The token is invalid or expired. Run `portchart token rotate` or generate a new one", "AUTH_FAILED"
	case errors.As(err, &invalidErr) && invalidErr.Err != nil:
		return "Check your network connection and that PORT_API_REGION or PORT_API_URL points at your Port organization", "NETWORK_ERROR"
	case errors.As(err, &invalidErr):
		return "The Port API could not confirm the token. Try again shortly", "UPSTREAM_ERROR"
	case errors.As(err, &upstreamErr) && upstreamErr.IsAuthFailure():
		return "The token was rejected. Run `portchart token rotate` or check your credentials", "AUTH_FAILED"
	}

	return getSuggestion(err.Error()), getErrorCode(err.Error())
}

// getSuggestion returns a helpful suggestion based on the error message.
func getSuggestion(errMsg string) string {
	lowerMsg := strings.ToLower(errMsg)

	switch {
	case strings.Contains(lowerMsg, "missing authentication credentials"):
		return "Run `portchart config init` to create a configuration file, or set the PORT_* environment variables"
	case strings.Contains(lowerMsg, "configuration") || strings.Contains(lowerMsg, "config"):
		return "Run `portchart config --show` to view the effective configuration"
	case strings.Contains(lowerMsg, "401") || strings.Contains(lowerMsg, "unauthorized"):
		return "Check your credentials. Run `portchart config --show` to view current configuration"
	case strings.Contains(lowerMsg, "403") || strings.Contains(lowerMsg, "forbidden"):
		return "Check that your credentials have the necessary permissions"
	case strings.Contains(lowerMsg, "address already in use"):
		return "Another process is using the port. Pass --port or set PORT"
	case strings.Contains(lowerMsg, "timeout") || strings.Contains(lowerMsg, "connection"):
		return "Check your network connection and try again. If the problem persists, check the API URL"
	case strings.Contains(lowerMsg, "429") || strings.Contains(lowerMsg, "rate limit"):
		return "Rate limit exceeded. Please wait a moment and try again"
	default:
		return ""
	}
}

// getErrorCode extracts or generates an error code from the error message.
func getErrorCode(errMsg string) string {
	lowerMsg := strings.ToLower(errMsg)

	switch {
	case strings.Contains(lowerMsg, "missing authentication credentials"):
		return "CONFIG_INVALID"
	case strings.Contains(lowerMsg, "401"):
		return "AUTH_FAILED"
	case strings.Contains(lowerMsg, "403"):
		return "PERMISSION_DENIED"
	case strings.Contains(lowerMsg, "timeout"):
		return "TIMEOUT"
	case strings.Contains(lowerMsg, "429"):
		return "RATE_LIMIT"
	default:
		return ""
	}
}
