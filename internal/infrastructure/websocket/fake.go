package websocket

import (
	"context"
	"errors"
	"sync"

	"market-client/internal/domain"
)

// fakeTransport implements a domain.Transport for testing purposes. Frames
// pushed with push() come out of ReadFrame; written frames are recorded.
type fakeTransport struct {
	mutex  sync.Mutex
	inbox  chan string
	sent   []string
	closed bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{inbox: make(chan string, 16)}
}

func (t *fakeTransport) ReadFrame() (string, error) {
	frame, ok := <-t.inbox
	if !ok {
		return "", errors.New("transport closed")
	}
	return frame, nil
}

func (t *fakeTransport) WriteFrame(frame string) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.closed {
		return errors.New("write on closed transport")
	}
	t.sent = append(t.sent, frame)
	return nil
}

func (t *fakeTransport) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if !t.closed {
		t.closed = true
		close(t.inbox)
	}
	return nil
}

// push delivers a frame to the next ReadFrame call.
func (t *fakeTransport) push(frame string) {
	t.inbox <- frame
}

// dropUncleanly makes ReadFrame fail without a prior Close call, as a network
// drop would.
func (t *fakeTransport) dropUncleanly() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if !t.closed {
		t.closed = true
		close(t.inbox)
	}
}

func (t *fakeTransport) sentFrames() []string {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	out := make([]string, len(t.sent))
	copy(out, t.sent)
	return out
}

// fakeDialer hands out a fresh fakeTransport per dial and counts dials.
type fakeDialer struct {
	mutex      sync.Mutex
	transports []*fakeTransport
	failNext   bool
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (domain.Transport, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.failNext {
		d.failNext = false
		return nil, errors.New("dial refused")
	}
	transport := newFakeTransport()
	d.transports = append(d.transports, transport)
	return transport, nil
}

func (d *fakeDialer) dialCount() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return len(d.transports)
}

func (d *fakeDialer) transportAt(i int) *fakeTransport {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if i >= len(d.transports) {
		return nil
	}
	return d.transports[i]
}
