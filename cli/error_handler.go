package cli

import (
	"fmt"
	"io"

	"github.com/grovetools/deckclock/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to out
func NewErrorHandler(verbose bool, out io.Writer) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     out,
	}
}

// Handle prints a message for err based on its code and returns err.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	deckErr, _ := errors.Find(err)

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(h.Out, "Configuration not found: %v\n", detail(deckErr, "path"))
		fmt.Fprintf(h.Out, "Run 'deckclock config path' to see where deckclock looks for it.\n")

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintf(h.Out, "Configuration is invalid: %v\n", err)
		fmt.Fprintf(h.Out, "Run 'deckclock config validate' for details.\n")

	case errors.ErrCodeConfigurationMissing:
		fmt.Fprintf(h.Out, "Button is missing %v. Set it in the button's property inspector.\n", detail(deckErr, "field"))

	case errors.ErrCodeRemoteStatus:
		switch detail(deckErr, "status") {
		case 401, 403:
			fmt.Fprintf(h.Out, "Clockify rejected the API token. Check it in your Clockify profile settings.\n")
		default:
			fmt.Fprintf(h.Out, "Clockify returned an error: %v\n", err)
		}

	case errors.ErrCodeRemoteRequest:
		fmt.Fprintf(h.Out, "Could not reach Clockify: %v\n", err)

	case errors.ErrCodeHostConnection:
		fmt.Fprintf(h.Out, "Lost the connection to the Stream Deck application: %v\n", err)

	default:
		fmt.Fprintf(h.Out, "Error: %v\n", err)
	}

	if h.Verbose && deckErr != nil {
		fmt.Fprintf(h.Out, "\nError details:\n%s\n", deckErr.ToJSON())
	}
	return err
}

func detail(e *errors.DeckError, key string) interface{} {
	if e == nil || e.Details == nil {
		return ""
	}
	return e.Details[key]
}
