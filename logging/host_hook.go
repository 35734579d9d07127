package logging

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// HostSink receives log lines mirrored into the host application's own log.
type HostSink interface {
	LogMessage(message string) error
}

// HostHook mirrors entries at MinLevel or more severe into a HostSink.
type HostHook struct {
	Sink     HostSink
	MinLevel logrus.Level
}

// NewHostHook returns a hook forwarding warnings and errors.
func NewHostHook(sink HostSink) *HostHook {
	return &HostHook{Sink: sink, MinLevel: logrus.WarnLevel}
}

// Levels implements logrus.Hook.
func (h *HostHook) Levels() []logrus.Level {
	var levels []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= h.MinLevel {
			levels = append(levels, l)
		}
	}
	return levels
}

// Fire implements logrus.Hook. Sink errors are dropped; logging them would recurse.
func (h *HostHook) Fire(entry *logrus.Entry) error {
	if h.Sink == nil {
		return nil
	}
	msg := entry.Message
	if component, ok := entry.Data["component"]; ok {
		msg = fmt.Sprintf("[%v] %s", component, msg)
	}
	if err, ok := entry.Data[logrus.ErrorKey]; ok {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	_ = h.Sink.LogMessage(fmt.Sprintf("%s %s", entry.Level.String(), msg))
	return nil
}
