package notify

import (
	"errors"
	"log/slog"
)

// ErrQueueFull is returned by Enqueue when the dispatch queue is saturated.
var ErrQueueFull = errors.New("notify: dispatch queue full")

// Dispatcher owns a bounded job queue and a background worker delivering
// messages through per-channel senders. Delivery is fire and forget: worker
// failures are logged and dropped.
type Dispatcher struct {
	senders map[Channel]Sender
	logger  *slog.Logger

	queue  chan Message
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewDispatcher creates a dispatcher with the given queue capacity. Capacity
// 0 or below defaults to 256.
func NewDispatcher(senders map[Channel]Sender, logger *slog.Logger, capacity int) *Dispatcher {
	if capacity <= 0 {
		capacity = 256
	}
	return &Dispatcher{
		senders: senders,
		logger:  logger,
		queue:   make(chan Message, capacity),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start launches the background worker. Non-blocking; call Stop to shut
// down.
func (d *Dispatcher) Start() {
	go d.run()
	d.logger.Info("notification dispatcher started", "capacity", cap(d.queue))
}

// Stop drains nothing: queued but undelivered messages are dropped, matching
// the at-most-once delivery contract. Blocks until the worker exits.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	<-d.doneCh
	d.logger.Info("notification dispatcher stopped")
}

// Enqueue adds a message to the queue without blocking.
func (d *Dispatcher) Enqueue(msg Message) error {
	select {
	case d.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) run() {
	defer close(d.doneCh)

	for {
		select {
		case msg := <-d.queue:
			d.deliver(msg)
		case <-d.stopCh:
			return
		}
	}
}

func (d *Dispatcher) deliver(msg Message) {
	sender, ok := d.senders[msg.Channel]
	if !ok {
		d.logger.Warn("no sender for channel, dropping message",
			"channel", msg.Channel,
		)
		return
	}

	if err := sender.Send(msg); err != nil {
		d.logger.Error("notification delivery failed",
			"channel", msg.Channel,
			"recipient", msg.Recipient,
			"err", err,
		)
		return
	}
	d.logger.Debug("notification delivered",
		"channel", msg.Channel,
		"recipient", msg.Recipient,
	)
}
