package cli

import (
	"errors"

	"github.com/opencode-ai/memer/internal/config"
	"github.com/opencode-ai/memer/internal/meme"
	"github.com/opencode-ai/memer/internal/sources"
	"github.com/opencode-ai/memer/internal/templates"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitError      = 1
	ExitUsage      = 2
	ExitNotFound   = 3
	ExitUnreadable = 4
	ExitOverflow   = 5
)

// UsageError is a problem with how a command was invoked.
type UsageError struct {
	Message string
	Hint    string
}

func (e *UsageError) Error() string {
	return e.Message
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var usage *UsageError
	var validation *config.ValidationError
	var request *sources.RequestError
	switch {
	case errors.Is(err, templates.ErrTemplateNotFound):
		return ExitNotFound
	case errors.Is(err, templates.ErrUnreadableImage):
		return ExitUnreadable
	case errors.Is(err, meme.ErrLayoutOverflow):
		return ExitOverflow
	case errors.As(err, &usage),
		errors.As(err, &validation),
		errors.As(err, &request),
		errors.Is(err, meme.ErrNoCaptions),
		errors.Is(err, meme.ErrCaptionTooLong),
		errors.Is(err, templates.ErrIdentifierRequired):
		return ExitUsage
	default:
		return ExitError
	}
}
