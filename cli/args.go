package cli

import "strings"

// hostFlags are the launch arguments the Stream Deck application passes
// with a single dash.
var hostFlags = map[string]bool{
	"port":          true,
	"pluginUUID":    true,
	"registerEvent": true,
	"info":          true,
}

// NormalizeHostArgs rewrites the host's single-dash launch arguments
// (-port 28196) into the double-dash form pflag expects. Other arguments
// are returned unchanged.
func NormalizeHostArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") && !strings.HasPrefix(arg, "--") {
			name := strings.TrimPrefix(arg, "-")
			if i := strings.IndexByte(name, '='); i >= 0 {
				name = name[:i]
			}
			if hostFlags[name] {
				arg = "-" + arg
			}
		}
		out = append(out, arg)
	}
	return out
}
