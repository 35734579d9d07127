// Package plugin routes host events to the registry, the reconciliation
// engine and the toggle handler.
package plugin

import (
	"context"
	"sync"

	"github.com/grovetools/deckclock/internal/daemon/engine"
	"github.com/grovetools/deckclock/internal/daemon/registry"
	"github.com/grovetools/deckclock/internal/daemon/toggle"
	"github.com/grovetools/deckclock/pkg/models"
	"github.com/grovetools/deckclock/pkg/streamdeck"
	"github.com/sirupsen/logrus"
)

// inspectorRefresh is the sendToPlugin event an inspector sends after it
// changed something the keys display.
const inspectorRefresh = "refresh"

// Toggler performs a key press.
type Toggler interface {
	Toggle(ctx context.Context, id models.ButtonID, cfg models.ButtonConfig) (toggle.Action, error)
}

// AnswerSink receives sendToPlugin payloads that may answer a prompt, and
// learns which keys have their property inspector open.
type AnswerSink interface {
	Deliver(payload map[string]interface{}) bool
	SetInspectorOpen(id models.ButtonID, open bool)
}

// Plugin dispatches host events. Long-running work runs on its own
// goroutines so the host read loop is never blocked.
type Plugin struct {
	registry  *registry.Registry
	refresher toggle.Refresher
	toggler   Toggler
	notifier  engine.Notifier
	answers   AnswerSink
	logger    *logrus.Entry

	wg sync.WaitGroup
}

// New creates a Plugin. answers may be nil.
func New(reg *registry.Registry, refresher toggle.Refresher, toggler Toggler, notifier engine.Notifier, answers AnswerSink, logger *logrus.Entry) *Plugin {
	return &Plugin{
		registry:  reg,
		refresher: refresher,
		toggler:   toggler,
		notifier:  notifier,
		answers:   answers,
		logger:    logger,
	}
}

// Handle processes one host event.
func (p *Plugin) Handle(ctx context.Context, ev streamdeck.Event) {
	id := models.ButtonID(ev.Context)
	log := p.logger.WithFields(logrus.Fields{"event": ev.Event, "button": id})

	switch ev.Event {
	case streamdeck.EventKeyDown:
		_, cfg, ok := p.decode(ev, log)
		if !ok {
			return
		}
		p.spawn(func() {
			action, err := p.toggler.Toggle(ctx, id, cfg)
			if err != nil {
				log.WithError(err).Warn("Toggle failed")
				return
			}
			log.WithField("action", action).Debug("Toggle finished")
		})

	case streamdeck.EventWillAppear:
		payload, cfg, ok := p.decode(ev, log)
		if !ok {
			return
		}
		if cfg.Token == "" {
			p.notifier.ShowAlert(id)
		}
		if payload.IsInMultiAction || cfg.Token == "" {
			return
		}
		p.registry.Attach(id, cfg)
		log.Debug("Button attached")

	case streamdeck.EventWillDisappear:
		payload, err := ev.ActionPayload()
		if err == nil && payload.IsInMultiAction {
			return
		}
		p.registry.Detach(id)
		log.Debug("Button detached")

	case streamdeck.EventDidReceiveSettings:
		payload, cfg, ok := p.decode(ev, log)
		if !ok || payload.IsInMultiAction {
			return
		}
		p.registry.Detach(id)
		if cfg.Token != "" {
			p.registry.Attach(id, cfg)
		}
		p.spawn(func() { p.refresher.Refresh(ctx) })

	case streamdeck.EventSendToPlugin:
		payload, err := ev.MapPayload()
		if err != nil {
			log.WithError(err).Warn("Ignoring inspector message")
			return
		}
		if p.answers != nil && p.answers.Deliver(payload) {
			return
		}
		if kind, _ := payload["event"].(string); kind == inspectorRefresh {
			p.spawn(func() { p.refresher.Refresh(ctx) })
		}

	case streamdeck.EventPropertyInspectorDidAppear, streamdeck.EventPropertyInspectorDidDisappear:
		if p.answers != nil {
			p.answers.SetInspectorOpen(id, ev.Event == streamdeck.EventPropertyInspectorDidAppear)
		}

	case streamdeck.EventSystemDidWakeUp:
		log.Info("System woke up, refreshing")
		p.spawn(func() { p.refresher.Refresh(ctx) })
	}
}

// Wait blocks until every goroutine started by Handle has finished.
func (p *Plugin) Wait() {
	p.wg.Wait()
}

func (p *Plugin) decode(ev streamdeck.Event, log *logrus.Entry) (streamdeck.ActionPayload, models.ButtonConfig, bool) {
	payload, err := ev.ActionPayload()
	if err != nil {
		log.WithError(err).Warn("Ignoring malformed event")
		return payload, models.ButtonConfig{}, false
	}
	cfg, err := streamdeck.DecodeSettings(payload.Settings)
	if err != nil {
		p.notifier.ShowAlert(models.ButtonID(ev.Context))
		log.WithError(err).Warn("Ignoring malformed settings")
		return payload, cfg, false
	}
	return payload, cfg, true
}

func (p *Plugin) spawn(fn func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		fn()
	}()
}
