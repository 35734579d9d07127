// Package streamdeck implements the plugin side of the Stream Deck
// WebSocket protocol.
package streamdeck

import (
	"encoding/json"

	"github.com/grovetools/deckclock/errors"
)

// Inbound event names.
const (
	EventKeyDown                       = "keyDown"
	EventKeyUp                         = "keyUp"
	EventWillAppear                    = "willAppear"
	EventWillDisappear                 = "willDisappear"
	EventDidReceiveSettings            = "didReceiveSettings"
	EventSendToPlugin                  = "sendToPlugin"
	EventPropertyInspectorDidAppear    = "propertyInspectorDidAppear"
	EventPropertyInspectorDidDisappear = "propertyInspectorDidDisappear"
	EventSystemDidWakeUp               = "systemDidWakeUp"
	EventDeviceDidConnect              = "deviceDidConnect"
	EventDeviceDidDisconnect           = "deviceDidDisconnect"
)

// Outbound event names.
const (
	eventSetState                = "setState"
	eventSetTitle                = "setTitle"
	eventShowAlert               = "showAlert"
	eventSendToPropertyInspector = "sendToPropertyInspector"
	eventLogMessage              = "logMessage"
)

// Event is a message received from the host.
type Event struct {
	Event   string          `json:"event"`
	Action  string          `json:"action,omitempty"`
	Context string          `json:"context,omitempty"`
	Device  string          `json:"device,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Coordinates locate a key on the device.
type Coordinates struct {
	Column int `json:"column"`
	Row    int `json:"row"`
}

// ActionPayload is the payload of keyDown, willAppear, willDisappear and
// didReceiveSettings.
type ActionPayload struct {
	Settings        map[string]interface{} `json:"settings"`
	Coordinates     Coordinates            `json:"coordinates"`
	State           int                    `json:"state"`
	IsInMultiAction bool                   `json:"isInMultiAction"`
}

// ActionPayload decodes the payload of an action event.
func (e Event) ActionPayload() (ActionPayload, error) {
	var p ActionPayload
	if len(e.Payload) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return p, errors.Wrap(err, errors.ErrCodeHostProtocol, "invalid action payload").
			WithDetail("event", e.Event)
	}
	return p, nil
}

// MapPayload decodes a free-form payload such as sendToPlugin.
func (e Event) MapPayload() (map[string]interface{}, error) {
	p := map[string]interface{}{}
	if len(e.Payload) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeHostProtocol, "invalid payload").
			WithDetail("event", e.Event)
	}
	return p, nil
}

// outbound is a message sent to the host.
type outbound struct {
	Event   string      `json:"event"`
	Context string      `json:"context,omitempty"`
	Action  string      `json:"action,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

type statePayload struct {
	State int `json:"state"`
}

type titlePayload struct {
	Title string `json:"title"`
}

type messagePayload struct {
	Message string `json:"message"`
}

// Info is the -info launch argument describing the host application.
type Info struct {
	Application struct {
		Language string `json:"language"`
		Platform string `json:"platform"`
		Version  string `json:"version"`
	} `json:"application"`
	Plugin struct {
		UUID    string `json:"uuid"`
		Version string `json:"version"`
	} `json:"plugin"`
	Devices []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Type int    `json:"type"`
	} `json:"devices"`
}

// ParseInfo decodes the -info launch argument. An empty string yields a zero Info.
func ParseInfo(raw string) (Info, error) {
	var info Info
	if raw == "" {
		return info, nil
	}
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return info, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid -info argument")
	}
	return info, nil
}
