// Package prompt asks the user for a time entry description by running a
// desktop dialog command.
package prompt

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
	"strings"
	"time"

	"github.com/grovetools/deckclock/errors"
	"github.com/grovetools/deckclock/logging"
	"github.com/grovetools/deckclock/pkg/models"
	"github.com/sirupsen/logrus"
)

// Placeholders substituted in command arguments.
const (
	PlaceholderQuestion = "{question}"
	PlaceholderDefault  = "{default}"
)

// waitDelay bounds how long a killed dialog may hold its output pipes open.
const waitDelay = time.Second

// CommandPrompter runs a configured command and reads the answer from its
// standard output. A non-zero exit is treated as the user cancelling.
type CommandPrompter struct {
	argv     []string
	executor Executor
	logger   *logrus.Entry
}

// NewCommandPrompter creates a prompter for argv, e.g.
// ["zenity", "--entry", "--text={question}", "--entry-text={default}"].
func NewCommandPrompter(argv []string) *CommandPrompter {
	return NewCommandPrompterWithExecutor(argv, &RealExecutor{})
}

// NewCommandPrompterWithExecutor creates a prompter with a custom Executor.
func NewCommandPrompterWithExecutor(argv []string, exec Executor) *CommandPrompter {
	return &CommandPrompter{
		argv:     append([]string(nil), argv...),
		executor: exec,
		logger:   logging.NewLogger("prompt"),
	}
}

// Prompt runs the command and returns its trimmed output.
func (p *CommandPrompter) Prompt(ctx context.Context, id models.ButtonID, question, current string) (string, error) {
	if len(p.argv) == 0 {
		return "", errors.New(errors.ErrCodeConfigInvalid, "prompt command is empty")
	}

	replacer := strings.NewReplacer(PlaceholderQuestion, question, PlaceholderDefault, current)
	args := make([]string, len(p.argv)-1)
	for i, arg := range p.argv[1:] {
		args[i] = replacer.Replace(arg)
	}

	cmd := p.executor.CommandContext(ctx, p.argv[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", errors.PromptCancelled(string(id)).WithDetail("reason", ctx.Err().Error())
		}
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			p.logger.WithFields(logrus.Fields{
				"button":    id,
				"exit_code": exitErr.ExitCode(),
			}).Debug("Prompt dismissed")
			return "", errors.PromptCancelled(string(id))
		}
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to run prompt command").
			WithDetail("command", p.argv[0]).
			WithDetail("stderr", strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}
