package streamdeck

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/grovetools/deckclock/errors"
	"github.com/grovetools/deckclock/pkg/models"
)

// Inspector message kinds used by the stop prompt round trip.
const (
	inspectorPrompt       = "prompt"
	inspectorPromptAnswer = "promptAnswer"
)

// InspectorSender delivers payloads to a key's property inspector.
type InspectorSender interface {
	SendToPropertyInspector(id models.ButtonID, payload interface{}) error
}

type promptAnswer struct {
	text      string
	cancelled bool
}

type pendingPrompt struct {
	button models.ButtonID
	ch     chan promptAnswer
}

// InspectorPrompter asks for a description through the property inspector
// and waits for the matching sendToPlugin answer. The inspector only exists
// while the user has the key selected in the Stream Deck application, so a
// prompt for a key without an open inspector is cancelled at once.
type InspectorPrompter struct {
	sender InspectorSender

	mu      sync.Mutex
	pending map[string]pendingPrompt
	open    map[models.ButtonID]bool
}

// NewInspectorPrompter creates a prompter that sends requests through sender.
func NewInspectorPrompter(sender InspectorSender) *InspectorPrompter {
	return &InspectorPrompter{
		sender:  sender,
		pending: make(map[string]pendingPrompt),
		open:    make(map[models.ButtonID]bool),
	}
}

// SetInspectorOpen records whether the property inspector of id is showing.
// Closing it cancels the key's pending prompts.
func (p *InspectorPrompter) SetInspectorOpen(id models.ButtonID, open bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if open {
		p.open[id] = true
		return
	}
	delete(p.open, id)
	for _, pp := range p.pending {
		if pp.button == id {
			select {
			case pp.ch <- promptAnswer{cancelled: true}:
			default:
			}
		}
	}
}

// Prompt sends the question and blocks until an answer arrives or ctx ends.
// Cancellation by the user or by ctx, or no open inspector for id, returns a
// PROMPT_CANCELLED error.
func (p *InspectorPrompter) Prompt(ctx context.Context, id models.ButtonID, question, current string) (string, error) {
	requestID := uuid.NewString()
	ch := make(chan promptAnswer, 1)

	p.mu.Lock()
	if !p.open[id] {
		p.mu.Unlock()
		return "", errors.PromptCancelled(string(id)).WithDetail("reason", "property inspector not open")
	}
	p.pending[requestID] = pendingPrompt{button: id, ch: ch}
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, requestID)
		p.mu.Unlock()
	}()

	err := p.sender.SendToPropertyInspector(id, map[string]interface{}{
		"event":     inspectorPrompt,
		"requestId": requestID,
		"question":  question,
		"default":   current,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeHostConnection, "failed to send prompt").
			WithDetail("button", string(id))
	}

	select {
	case <-ctx.Done():
		return "", errors.PromptCancelled(string(id)).WithDetail("reason", ctx.Err().Error())
	case answer := <-ch:
		if answer.cancelled {
			return "", errors.PromptCancelled(string(id))
		}
		return strings.TrimSpace(answer.text), nil
	}
}

// Deliver routes a sendToPlugin payload to a waiting prompt. It reports
// whether the payload was a prompt answer.
func (p *InspectorPrompter) Deliver(payload map[string]interface{}) bool {
	if kind, _ := payload["event"].(string); kind != inspectorPromptAnswer {
		return false
	}
	requestID, _ := payload["requestId"].(string)
	text, _ := payload["answer"].(string)
	cancelled, _ := payload["cancelled"].(bool)

	p.mu.Lock()
	pp, ok := p.pending[requestID]
	p.mu.Unlock()
	if ok {
		select {
		case pp.ch <- promptAnswer{text: text, cancelled: cancelled}:
		default:
		}
	}
	return true
}
