package profiling

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfilerNestsSpans(t *testing.T) {
	p := New()
	outer := p.Start("status")
	inner := p.Start("fetch")
	inner.Stop()
	outer.Stop()
	p.Start("render").Stop()

	var buf bytes.Buffer
	p.Summarize(&buf)
	out := buf.String()

	assert.Contains(t, out, "- status (")
	assert.Contains(t, out, "  - fetch (")
	assert.Contains(t, out, "- render (")
	assert.Less(t, strings.Index(out, "status"), strings.Index(out, "render"))
	assert.NotContains(t, out, "open")
}

func TestProfilerMarksOpenSpans(t *testing.T) {
	p := New()
	p.Start("stuck")

	var buf bytes.Buffer
	p.Summarize(&buf)
	assert.Contains(t, buf.String(), "open")
}

func TestDisabledProfilerIsNoop(t *testing.T) {
	p := &Profiler{}
	s := p.Start("x")
	assert.IsType(t, noopStopper{}, s)
	s.Stop()

	var buf bytes.Buffer
	p.Summarize(&buf)
	assert.Empty(t, buf.String())
}

func TestCobraProfiler(t *testing.T) {
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.prof")
	mem := filepath.Join(dir, "mem.prof")

	prof := NewCobraProfiler()
	cmd := &cobra.Command{
		Use:               "x",
		PersistentPreRunE: prof.PreRun,
		PersistentPostRun: prof.PostRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer Start("work").Stop()
			return nil
		},
	}
	prof.AddFlags(cmd)

	var errOut bytes.Buffer
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--cpu-profile", cpu, "--mem-profile", mem, "--timing"})
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, cpu)
	info, err := os.Stat(mem)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
	assert.Contains(t, errOut.String(), "CPU profile written to "+cpu)
	assert.Contains(t, errOut.String(), "- work (")
	assert.True(t, Enabled())
}
