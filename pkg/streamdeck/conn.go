package streamdeck

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/deckclock/errors"
	"github.com/grovetools/deckclock/logging"
	"github.com/grovetools/deckclock/pkg/models"
	"github.com/sirupsen/logrus"
)

const writeTimeout = 5 * time.Second

// Registration holds the launch arguments the host passes to the plugin.
type Registration struct {
	Host          string
	Port          int
	PluginUUID    string
	RegisterEvent string
	Info          string
}

// URL returns the WebSocket endpoint of the host.
func (r Registration) URL() string {
	host := r.Host
	if host == "" {
		host = "127.0.0.1"
	}
	return "ws://" + net.JoinHostPort(host, strconv.Itoa(r.Port))
}

// Conn is a registered connection to the host. Writes are serialised; reads
// happen only inside Run.
type Conn struct {
	ws     *websocket.Conn
	addr   string
	logger *logrus.Entry

	writeMu sync.Mutex

	actionsMu sync.RWMutex
	actions   map[models.ButtonID]string

	closeOnce sync.Once
	closeErr  error
}

// Dial connects to the host and sends the registration message.
func Dial(ctx context.Context, reg Registration) (*Conn, error) {
	addr := reg.URL()
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, errors.HostConnection(addr, err)
	}

	c := &Conn{
		ws:      ws,
		addr:    addr,
		logger:  logging.NewLogger("streamdeck"),
		actions: make(map[models.ButtonID]string),
	}

	register := map[string]string{
		"event": reg.RegisterEvent,
		"uuid":  reg.PluginUUID,
	}
	if err := c.write(register); err != nil {
		_ = ws.Close()
		return nil, errors.HostConnection(addr, err)
	}

	c.logger.WithField("addr", addr).Info("Registered with host")
	return c, nil
}

// Run reads events until the context is cancelled or the host goes away,
// calling handle for each one on the reading goroutine. A clean shutdown by
// either side returns nil.
func (c *Conn) Run(ctx context.Context, handle func(Event)) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("Host closed the connection")
				return nil
			}
			return errors.HostConnection(c.addr, err)
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.logger.WithError(err).Warn("Dropping malformed host message")
			continue
		}

		if ev.Context != "" && ev.Action != "" {
			c.actionsMu.Lock()
			c.actions[models.ButtonID(ev.Context)] = ev.Action
			c.actionsMu.Unlock()
		}

		c.logger.WithFields(logrus.Fields{
			"event":   ev.Event,
			"context": ev.Context,
		}).Debug("Received host event")
		handle(ev)

		if ev.Event == EventWillDisappear {
			c.actionsMu.Lock()
			delete(c.actions, models.ButtonID(ev.Context))
			c.actionsMu.Unlock()
		}
	}
}

// SetState switches the key to the given state index.
func (c *Conn) SetState(id models.ButtonID, state models.ButtonState) {
	c.fire(outbound{Event: eventSetState, Context: string(id), Payload: statePayload{State: int(state)}})
}

// SetTitle replaces the key's title.
func (c *Conn) SetTitle(id models.ButtonID, title string) {
	c.fire(outbound{Event: eventSetTitle, Context: string(id), Payload: titlePayload{Title: title}})
}

// ShowAlert flashes the warning overlay on the key.
func (c *Conn) ShowAlert(id models.ButtonID) {
	c.fire(outbound{Event: eventShowAlert, Context: string(id)})
}

// SendToPropertyInspector delivers payload to the inspector open for the key.
func (c *Conn) SendToPropertyInspector(id models.ButtonID, payload interface{}) error {
	c.actionsMu.RLock()
	action := c.actions[id]
	c.actionsMu.RUnlock()

	return c.write(outbound{
		Event:   eventSendToPropertyInspector,
		Context: string(id),
		Action:  action,
		Payload: payload,
	})
}

// LogMessage appends a line to the host's plugin log.
func (c *Conn) LogMessage(message string) error {
	return c.write(outbound{Event: eventLogMessage, Payload: messagePayload{Message: message}})
}

// Close sends a close frame and closes the socket. Safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

// fire writes a notification and only logs failures; the next tick repaints.
func (c *Conn) fire(msg outbound) {
	if err := c.write(msg); err != nil {
		c.logger.WithFields(logrus.Fields{
			"event":   msg.Event,
			"context": msg.Context,
			"error":   err,
		}).Debug("Failed to send to host")
	}
}

func (c *Conn) write(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	if err := c.ws.WriteJSON(v); err != nil {
		return fmt.Errorf("write %T: %w", v, err)
	}
	return nil
}
