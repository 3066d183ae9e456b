package services

import (
	"context"
	"sync"

	"market-client/internal/domain"
)

// fakeConn implements domain.Connection in memory for testing purposes:
// sent frames are recorded, inbound frames and state transitions are pushed
// by the test.
type fakeConn struct {
	mutex     sync.Mutex
	state     domain.ConnState
	frames    []string
	sendErr   error
	frameSink func(frame string)
	stateSink func(state domain.ConnState)
}

func newFakeConn() *fakeConn {
	return &fakeConn{state: domain.Disconnected}
}

func (c *fakeConn) Connect(ctx context.Context) error {
	c.setState(domain.Open)
	return nil
}

func (c *fakeConn) Send(frame string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	if c.state != domain.Open {
		return domain.ErrNotConnected
	}
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) Close() error {
	c.setState(domain.Disconnected)
	return nil
}

func (c *fakeConn) State() domain.ConnState {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.state
}

func (c *fakeConn) SetFrameSink(sink func(frame string)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.frameSink = sink
}

func (c *fakeConn) SetStateSink(sink func(state domain.ConnState)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.stateSink = sink
}

func (c *fakeConn) setState(state domain.ConnState) {
	c.mutex.Lock()
	c.state = state
	sink := c.stateSink
	c.mutex.Unlock()
	if sink != nil {
		sink(state)
	}
}

// push delivers an inbound frame as the read pump would.
func (c *fakeConn) push(frame string) {
	c.mutex.Lock()
	sink := c.frameSink
	c.mutex.Unlock()
	if sink != nil {
		sink(frame)
	}
}

func (c *fakeConn) sent() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	out := make([]string, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *fakeConn) sentContains(frame string) bool {
	for _, sent := range c.sent() {
		if sent == frame {
			return true
		}
	}
	return false
}

// recordingNotifier implements domain.Notifier and records every publish.
type recordingNotifier struct {
	mutex sync.Mutex
	notes []Note
}

func (n *recordingNotifier) Publish(message string, severity domain.Severity) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.notes = append(n.notes, Note{Message: message, Severity: severity})
}

func (n *recordingNotifier) all() []Note {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	out := make([]Note, len(n.notes))
	copy(out, n.notes)
	return out
}

func (n *recordingNotifier) last() (Note, bool) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if len(n.notes) == 0 {
		return Note{}, false
	}
	return n.notes[len(n.notes)-1], true
}

// fakeSessions implements domain.SessionSource with a fixed session.
type fakeSessions struct {
	session *domain.Session
}

func (s *fakeSessions) Session() (domain.Session, bool) {
	if s.session == nil {
		return domain.Session{}, false
	}
	return *s.session, true
}

// recordingSender implements domain.CommandSender and records every command.
type recordingSender struct {
	mutex sync.Mutex
	cmds  []domain.ClientCommand
	err   error
}

func (s *recordingSender) SendCommand(cmd domain.ClientCommand) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.err != nil {
		return s.err
	}
	s.cmds = append(s.cmds, cmd)
	return nil
}

func (s *recordingSender) all() []domain.ClientCommand {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := make([]domain.ClientCommand, len(s.cmds))
	copy(out, s.cmds)
	return out
}
