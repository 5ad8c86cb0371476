package serialio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

var ErrNotConnected = errors.New("card reader not connected")

// StatusNotifier receives connection-state changes for the reader link.
type StatusNotifier interface {
	ConnectionStatus(status, message string)
}

// LineHandler receives each complete line read from the device.
type LineHandler func(ctx context.Context, line string)

type Config struct {
	// PollInterval is the sleep between line polls.  It caps scan
	// responsiveness latency and also bounds how long a Disconnect
	// request can take to be observed by the reader loop.
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	return c
}

// Channel manages the serial link to the card reader: a single reader
// goroutine while connected, explicit connect/disconnect, best-effort
// write-back.  Unlike the video sources there is no reconnect policy —
// this is a user-initiated hardware link, and any I/O error drops it.
type Channel struct {
	open     OpenFunc
	onLine   LineHandler
	notifier StatusNotifier
	logger   *log.Logger
	cfg      Config

	mu   sync.Mutex
	port Port
	stop chan struct{}
	done chan struct{}
}

func NewChannel(open OpenFunc, onLine LineHandler, notifier StatusNotifier, logger *log.Logger, cfg Config) *Channel {
	return &Channel{
		open:     open,
		onLine:   onLine,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg.withDefaults(),
	}
}

// Connect opens the link and starts the reader loop.  An existing link is
// disconnected first, matching how operators expect a reconnect to behave.
func (c *Channel) Connect(ctx context.Context, address string, baudRate int) error {
	c.Disconnect()

	port, err := c.open(address, baudRate)
	if err != nil {
		message := fmt.Sprintf("cannot connect to reader on %s: %v", address, err)
		c.notifier.ConnectionStatus("error", message)
		return err
	}

	stop := make(chan struct{})
	done := make(chan struct{})

	c.mu.Lock()
	c.port = port
	c.stop = stop
	c.done = done
	c.mu.Unlock()

	// The reader loop outlives the caller: a connect arriving over HTTP
	// carries a request context that dies when the handler returns, and
	// scans handled after that must still reach persistence.  Values
	// (tracing etc.) are kept; cancellation is not inherited.
	go c.readLoop(context.WithoutCancel(ctx), port, stop, done)

	c.notifier.ConnectionStatus("connected", "connected to reader on "+address)
	c.logger.Printf("serial connected: %s @ %d", address, baudRate)
	return nil
}

// Disconnect stops the reader loop and releases the port.  Idempotent.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	port, stop, done := c.port, c.stop, c.done
	c.port, c.stop, c.done = nil, nil, nil
	c.mu.Unlock()

	if port == nil {
		return
	}

	close(stop)
	<-done
	_ = port.Close()

	c.notifier.ConnectionStatus("disconnected", "reader disconnected")
	c.logger.Printf("serial disconnected")
}

// dropIf disconnects only if the given port is still the active one, so a
// reader-loop failure can never tear down a link established after it.
func (c *Channel) dropIf(port Port) {
	c.mu.Lock()
	if c.port != port {
		c.mu.Unlock()
		return
	}
	stop, done := c.stop, c.done
	c.port, c.stop, c.done = nil, nil, nil
	c.mu.Unlock()

	close(stop)
	<-done
	_ = port.Close()

	c.notifier.ConnectionStatus("disconnected", "reader link lost")
	c.logger.Printf("serial disconnected after read error")
}

func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port != nil
}

// WriteLine sends one line to the device.  Best-effort: the caller decides
// whether a failure matters.
func (c *Channel) WriteLine(line string) error {
	c.mu.Lock()
	port := c.port
	c.mu.Unlock()

	if port == nil {
		return ErrNotConnected
	}
	return port.WriteLine(line)
}

func (c *Channel) readLoop(ctx context.Context, port Port, stop, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		default:
		}

		line, ok, err := port.ReadLine()
		if err != nil {
			// Broken link: drop the connection, no retry.
			c.logger.Printf("serial read error: %v", err)
			go c.dropIf(port)
			return
		}
		if ok && line != "" {
			c.onLine(ctx, line)
			// Drain any queued lines before sleeping again.
			continue
		}

		select {
		case <-stop:
			return
		case <-time.After(c.cfg.PollInterval):
		}
	}
}
