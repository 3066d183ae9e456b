package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"market-client/internal/domain"
	"market-client/pkg/logger"
)

// Manager owns the one logical connection to the marketplace server and its
// lifecycle: Disconnected -> Connecting -> Open -> Retrying -> Connecting.
// Unclean closure arms a fixed-delay reconnect; explicit Close cancels any
// pending retry and detaches the frame sink before the socket is torn down,
// so nothing is delivered to a receiver the owner considers dead.
type Manager struct {
	dialer     domain.Dialer
	url        string
	retryDelay time.Duration
	clock      clockwork.Clock
	log        logger.Logger

	// sendMutex serializes frame writes; the underlying socket supports at
	// most one concurrent writer.
	sendMutex sync.Mutex

	mutex      sync.Mutex
	state      domain.ConnState
	transport  domain.Transport
	generation int
	retryTimer clockwork.Timer
	frameSink  func(frame string)
	stateSink  func(state domain.ConnState)
}

func NewManager(dialer domain.Dialer, url string, retryDelay time.Duration,
	clock clockwork.Clock, log logger.Logger) *Manager {
	return &Manager{
		dialer:     dialer,
		url:        url,
		retryDelay: retryDelay,
		clock:      clock,
		log:        log,
		state:      domain.Disconnected,
	}
}

// SetFrameSink installs the receiver for inbound frames. Install before
// Connect; frames arriving with no sink installed are dropped.
func (m *Manager) SetFrameSink(sink func(frame string)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.frameSink = sink
}

// SetStateSink installs the receiver for connection state transitions.
func (m *Manager) SetStateSink(sink func(state domain.ConnState)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.stateSink = sink
}

func (m *Manager) State() domain.ConnState {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.state
}

// Connect dials the server. Idempotent: a no-op while Connecting or Open.
// Called from Retrying it cancels the pending timer and dials immediately.
func (m *Manager) Connect(ctx context.Context) error {
	m.mutex.Lock()
	if m.state == domain.Connecting || m.state == domain.Open {
		m.mutex.Unlock()
		return nil
	}
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	m.state = domain.Connecting
	sink := m.stateSink
	m.mutex.Unlock()

	m.emit(sink, domain.Connecting)
	m.log.Info("Connecting", "url", m.url)

	transport, err := m.dialer.Dial(ctx, m.url)

	m.mutex.Lock()
	if m.state != domain.Connecting {
		// Closed while the dial was in flight.
		m.mutex.Unlock()
		if transport != nil {
			transport.Close()
		}
		return nil
	}

	if err != nil {
		m.state = domain.Retrying
		m.armRetryLocked()
		sink = m.stateSink
		m.mutex.Unlock()

		m.log.Warn("Dial failed, retry scheduled", "error", err, "delay", m.retryDelay)
		m.emit(sink, domain.Retrying)
		return err
	}

	m.transport = transport
	m.generation++
	generation := m.generation
	m.state = domain.Open
	sink = m.stateSink
	m.mutex.Unlock()

	m.log.Info("Connection open", "url", m.url)
	m.emit(sink, domain.Open)

	go m.readPump(generation, transport)
	return nil
}

// Send writes one frame. Fails when the connection is not Open; frames are
// never queued for later delivery. Callers on different goroutines may send
// concurrently; writes to the transport are serialized here.
func (m *Manager) Send(frame string) error {
	m.mutex.Lock()
	if m.state != domain.Open || m.transport == nil {
		m.mutex.Unlock()
		return domain.ErrNotConnected
	}
	transport := m.transport
	m.mutex.Unlock()

	m.log.Debug("Sending frame", "frame", frame)

	m.sendMutex.Lock()
	defer m.sendMutex.Unlock()
	return transport.WriteFrame(frame)
}

// Close tears the connection down deterministically: pending retry cancelled,
// frame sink detached, socket closed, state Disconnected. No frame or state
// event is delivered after Close returns.
func (m *Manager) Close() error {
	m.mutex.Lock()
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	m.generation++
	transport := m.transport
	m.transport = nil
	m.frameSink = nil
	alreadyClosed := m.state == domain.Disconnected
	m.state = domain.Disconnected
	sink := m.stateSink
	m.mutex.Unlock()

	var err error
	if transport != nil {
		err = transport.Close()
	}
	if !alreadyClosed {
		m.log.Info("Connection closed")
		m.emit(sink, domain.Disconnected)
	}
	return err
}

func (m *Manager) readPump(generation int, transport domain.Transport) {
	for {
		frame, err := transport.ReadFrame()
		if err != nil {
			m.pumpClosed(generation, err)
			return
		}

		m.mutex.Lock()
		if m.generation != generation || m.frameSink == nil {
			m.mutex.Unlock()
			return
		}
		sink := m.frameSink
		m.mutex.Unlock()

		sink(frame)
	}
}

// pumpClosed handles the read pump exiting. A generation mismatch means the
// closure was deliberate; anything else is unclean and arms the retry timer.
func (m *Manager) pumpClosed(generation int, cause error) {
	m.mutex.Lock()
	if m.generation != generation || m.state == domain.Disconnected {
		m.mutex.Unlock()
		return
	}
	if m.transport != nil {
		m.transport.Close()
		m.transport = nil
	}
	m.state = domain.Retrying
	m.armRetryLocked()
	sink := m.stateSink
	m.mutex.Unlock()

	m.log.Warn("Connection lost, retry scheduled", "error", cause, "delay", m.retryDelay)
	m.emit(sink, domain.Retrying)
}

func (m *Manager) armRetryLocked() {
	m.retryTimer = m.clock.AfterFunc(m.retryDelay, func() {
		m.Connect(context.Background())
	})
}

func (m *Manager) emit(sink func(domain.ConnState), state domain.ConnState) {
	if sink != nil {
		sink(state)
	}
}
