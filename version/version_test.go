package version

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
	assert.Contains(t, info.String(), "Version:")
}

func TestUserAgent(t *testing.T) {
	ua := UserAgent()
	assert.True(t, strings.HasPrefix(ua, "deckclock/"+Version+" "))
}

func TestShort(t *testing.T) {
	assert.Equal(t, "v1.2.0", Info{Version: "v1.2.0", Commit: "none"}.Short())
	assert.Equal(t, "v1.2.0 (abcdef1)", Info{Version: "v1.2.0", Commit: "abcdef1234567"}.Short())
}
