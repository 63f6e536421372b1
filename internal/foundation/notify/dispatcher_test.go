package notify

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type captureSender struct {
	mu   sync.Mutex
	sent []Message
}

func (c *captureSender) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func TestDispatcherDeliversEnqueuedMessages(t *testing.T) {
	sender := &captureSender{}
	d := NewDispatcher(map[Channel]Sender{ChannelEmail: sender}, slog.Default(), 8)
	d.Start()
	defer d.Stop()

	require.NoError(t, d.Enqueue(Message{
		Channel:   ChannelEmail,
		Recipient: "alice@example.com",
		Subject:   "hello",
		Body:      "<p>hi</p>",
	}))

	require.Eventually(t, func() bool {
		return sender.count() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestDispatcherRejectsWhenFull(t *testing.T) {
	// Never started, so nothing drains the queue.
	d := NewDispatcher(map[Channel]Sender{}, slog.Default(), 1)

	require.NoError(t, d.Enqueue(Message{Channel: ChannelEmail}))
	require.ErrorIs(t, d.Enqueue(Message{Channel: ChannelEmail}), ErrQueueFull)
}

func TestDispatcherDropsUnknownChannel(t *testing.T) {
	sender := &captureSender{}
	d := NewDispatcher(map[Channel]Sender{ChannelEmail: sender}, slog.Default(), 8)
	d.Start()

	require.NoError(t, d.Enqueue(Message{Channel: ChannelWhatsApp, Recipient: "+1555000"}))
	d.Stop()

	require.Zero(t, sender.count())
}
