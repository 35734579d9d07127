package streamdeck

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/grovetools/deckclock/errors"
	"github.com/grovetools/deckclock/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu       sync.Mutex
	payloads []map[string]interface{}
	sent     chan map[string]interface{}
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(chan map[string]interface{}, 4)}
}

func (r *recordingSender) SendToPropertyInspector(id models.ButtonID, payload interface{}) error {
	p := payload.(map[string]interface{})
	r.mu.Lock()
	r.payloads = append(r.payloads, p)
	r.mu.Unlock()
	r.sent <- p
	return nil
}

func TestInspectorPrompterAnswer(t *testing.T) {
	sender := newRecordingSender()
	prompter := NewInspectorPrompter(sender)
	prompter.SetInspectorOpen("ctx1", true)

	go func() {
		req := <-sender.sent
		assert.Equal(t, "prompt", req["event"])
		assert.Equal(t, "What did you work on?", req["question"])
		assert.Equal(t, "Coding", req["default"])

		// Answers for other requests are ignored.
		assert.True(t, prompter.Deliver(map[string]interface{}{
			"event": "promptAnswer", "requestId": "other", "answer": "nope",
		}))
		assert.True(t, prompter.Deliver(map[string]interface{}{
			"event": "promptAnswer", "requestId": req["requestId"], "answer": "  Reviewed PRs ",
		}))
	}()

	answer, err := prompter.Prompt(context.Background(), "ctx1", "What did you work on?", "Coding")
	require.NoError(t, err)
	assert.Equal(t, "Reviewed PRs", answer)
}

func TestInspectorPrompterCancelled(t *testing.T) {
	sender := newRecordingSender()
	prompter := NewInspectorPrompter(sender)
	prompter.SetInspectorOpen("ctx1", true)

	go func() {
		req := <-sender.sent
		prompter.Deliver(map[string]interface{}{
			"event": "promptAnswer", "requestId": req["requestId"], "cancelled": true,
		})
	}()

	_, err := prompter.Prompt(context.Background(), "ctx1", "q", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodePromptCancelled))
}

func TestInspectorPrompterTimeout(t *testing.T) {
	prompter := NewInspectorPrompter(newRecordingSender())
	prompter.SetInspectorOpen("ctx1", true)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := prompter.Prompt(ctx, "ctx1", "q", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodePromptCancelled))
}

func TestInspectorPrompterWithoutOpenInspector(t *testing.T) {
	sender := newRecordingSender()
	prompter := NewInspectorPrompter(sender)
	prompter.SetInspectorOpen("ctx2", true)

	started := time.Now()
	_, err := prompter.Prompt(context.Background(), "ctx1", "q", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodePromptCancelled))
	assert.Less(t, time.Since(started), time.Second)
	assert.Empty(t, sender.payloads)

	prompter.SetInspectorOpen("ctx2", false)
	_, err = prompter.Prompt(context.Background(), "ctx2", "q", "")
	assert.True(t, errors.Is(err, errors.ErrCodePromptCancelled))
	assert.Empty(t, sender.payloads)
}

func TestInspectorPrompterClosedWhileWaiting(t *testing.T) {
	sender := newRecordingSender()
	prompter := NewInspectorPrompter(sender)
	prompter.SetInspectorOpen("ctx1", true)

	go func() {
		<-sender.sent
		prompter.SetInspectorOpen("ctx1", false)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := prompter.Prompt(ctx, "ctx1", "q", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodePromptCancelled))
	assert.NoError(t, ctx.Err())
}

func TestDeliverIgnoresOtherPayloads(t *testing.T) {
	prompter := NewInspectorPrompter(newRecordingSender())
	assert.False(t, prompter.Deliver(map[string]interface{}{"event": "refresh"}))
	assert.False(t, prompter.Deliver(map[string]interface{}{}))
}
