package main

import (
	"context"
	"errors"

	"github.com/elee1766/mydrawer/src/attach"
	"github.com/elee1766/mydrawer/src/chat"
	"github.com/elee1766/mydrawer/src/config"
	"github.com/elee1766/mydrawer/src/models"
	"github.com/elee1766/mydrawer/src/providers"
	"github.com/elee1766/mydrawer/src/research"
	"github.com/elee1766/mydrawer/src/settings"
)

// Exit codes following standard conventions
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error
	ExitUsage       = 2 // Usage error
	ExitConfig      = 3 // Configuration error
	ExitAuth        = 4 // Authentication error
	ExitNetwork     = 6 // Network error
	ExitTimeout     = 7 // Timeout error
	ExitInterrupted = 8 // Interrupted by user
)

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	var (
		verr   config.ValidationError
		apiErr *providers.APIError
	)

	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	case errors.As(err, &verr):
		return ExitConfig
	case errors.Is(err, settings.ErrMissingAPIKey),
		errors.Is(err, providers.ErrNoAPIKey):
		return ExitAuth
	case errors.As(err, &apiErr):
		if apiErr.IsAuthError() {
			return ExitAuth
		}
		return ExitNetwork
	case errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrEmptyName),
		errors.Is(err, chat.ErrInvalidOrder),
		errors.Is(err, chat.ErrNotEditable),
		errors.Is(err, chat.ErrImagesUnsupported),
		errors.Is(err, models.ErrModelNotFound),
		errors.Is(err, attach.ErrNotImage),
		errors.Is(err, attach.ErrTooLarge),
		errors.Is(err, research.ErrInvalidURL):
		return ExitUsage
	default:
		return ExitError
	}
}
