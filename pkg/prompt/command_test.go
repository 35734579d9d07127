package prompt

import (
	"context"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/grovetools/deckclock/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shellExecutor ignores the configured program and runs script with sh,
// passing the substituted arguments as $1..$n.
type shellExecutor struct {
	script string
	name   string
	args   []string
}

func (s *shellExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	s.name = name
	s.args = args
	return exec.CommandContext(ctx, "sh", append([]string{"-c", s.script, "sh"}, args...)...)
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
}

func TestCommandPrompterSubstitutesPlaceholders(t *testing.T) {
	requireShell(t)
	fake := &shellExecutor{script: `printf '  %s  \n' "$2"`}
	p := NewCommandPrompterWithExecutor([]string{"zenity", "--text={question}", "{default}"}, fake)

	answer, err := p.Prompt(context.Background(), "ctx1", "What did you do?", "Coding")
	require.NoError(t, err)
	assert.Equal(t, "Coding", answer)
	assert.Equal(t, "zenity", fake.name)
	assert.Equal(t, []string{"--text=What did you do?", "Coding"}, fake.args)
}

func TestCommandPrompterNonZeroExitIsCancel(t *testing.T) {
	requireShell(t)
	p := NewCommandPrompterWithExecutor([]string{"dialog"}, &shellExecutor{script: "exit 1"})

	_, err := p.Prompt(context.Background(), "ctx1", "q", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodePromptCancelled))
}

func TestCommandPrompterTimeout(t *testing.T) {
	requireShell(t)
	p := NewCommandPrompterWithExecutor([]string{"dialog"}, &shellExecutor{script: "exec sleep 5"})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Prompt(ctx, "ctx1", "q", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodePromptCancelled))
}

func TestCommandPrompterEmptyCommand(t *testing.T) {
	_, err := NewCommandPrompter(nil).Prompt(context.Background(), "ctx1", "q", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid))
}

func TestCommandPrompterMissingBinary(t *testing.T) {
	_, err := NewCommandPrompter([]string{"deckclock-no-such-dialog"}).Prompt(context.Background(), "ctx1", "q", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInternal))
}
