package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/deckclock/cli"
	"github.com/grovetools/deckclock/logging"
	"github.com/grovetools/deckclock/tui/theme"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

// NewLogsCmd creates the `logs` command.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the plugin's log file",
		Long:  "Prints today's log file. Lines written with the json preset are pretty-printed.",
		Example: `# last 50 lines
deckclock logs -n 50

# follow new lines
deckclock logs -f`,
		Args: cobra.NoArgs,
		RunE: runLogsE,
	}

	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	cmd.Flags().IntP("tail", "n", 100, "Number of lines to show from the end (-1 for all)")
	cmd.Flags().String("file", "", "Read this log file instead of today's")
	return cmd
}

func runLogsE(cmd *cobra.Command, args []string) error {
	opts := cli.GetOptions(cmd)
	follow, _ := cmd.Flags().GetBool("follow")
	tailLines, _ := cmd.Flags().GetInt("tail")
	path, _ := cmd.Flags().GetString("file")

	if path == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if path, err = logging.LogFilePath(cfg); err != nil {
			return err
		}
	}
	cli.GetLogger(cmd).WithField("log_file", path).Debug("Reading log file")

	out := cmd.OutOrStdout()
	emit := func(line string) {
		if opts.JSONOutput {
			fmt.Fprintln(out, line)
			return
		}
		fmt.Fprintln(out, formatLogLine(line))
	}

	lines, offset, err := lastLines(path, tailLines)
	if err != nil && !(follow && os.IsNotExist(err)) {
		return fmt.Errorf("failed to read log file: %w", err)
	}
	for _, line := range lines {
		emit(line)
	}
	if !follow {
		return nil
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Location:  &tail.SeekInfo{Offset: offset, Whence: io.SeekStart},
		Logger:    stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return fmt.Errorf("failed to follow log file: %w", err)
	}
	defer t.Cleanup()

	for {
		select {
		case <-cmd.Context().Done():
			return t.Stop()
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				return line.Err
			}
			emit(line.Text)
		}
	}
}

// lastLines returns the last n lines of path (all when n < 0) and the offset
// of the end of the file.
func lastLines(path string, n int) ([]string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var lines []string
	var offset int64
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadString('\n')
		offset += int64(len(line))
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			lines = append(lines, line)
			if n >= 0 && len(lines) > n {
				lines = lines[1:]
			}
		}
		if err == io.EOF {
			return lines, offset, nil
		}
		if err != nil {
			return lines, offset, err
		}
	}
}

// formatLogLine pretty-prints a JSON log line; other lines are returned as is.
func formatLogLine(line string) string {
	var logMap map[string]interface{}
	if err := json.Unmarshal([]byte(line), &logMap); err != nil {
		return line
	}
	t := theme.DefaultTheme

	ts, _ := logMap["time"].(string)
	level, _ := logMap["level"].(string)
	msg, _ := logMap["msg"].(string)
	component, _ := logMap["component"].(string)

	timeStr := ts
	if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		timeStr = parsed.Format("15:04:05")
	}

	var levelStyle lipgloss.Style
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		levelStyle = t.Error
	case "warning":
		levelStyle = t.Warning
	case "info":
		levelStyle = t.Info
	default:
		levelStyle = t.Muted
	}

	var keys []string
	for k := range logMap {
		if k != "time" && k != "level" && k != "msg" && k != "component" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, fmt.Sprintf("%s=%v", t.Muted.Render(k), logMap[k]))
	}

	out := fmt.Sprintf("%s [%s] [%s] %s",
		timeStr,
		levelStyle.Render(strings.ToUpper(level)),
		t.Info.Render(component),
		msg,
	)
	if len(fields) > 0 {
		out += " " + strings.Join(fields, " ")
	}
	return out
}
