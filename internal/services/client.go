package services

import (
	"context"

	"market-client/internal/domain"
	"market-client/internal/protocol"
	"market-client/pkg/logger"
)

type inboundMsg interface{ isInboundMsg() }

type frameMsg struct{ raw string }

type stateMsg struct{ state domain.ConnState }

func (frameMsg) isInboundMsg() {}
func (stateMsg) isInboundMsg() {}

// Client is the session engine: one goroutine drains the inbox and applies
// every decoded event and connection state change in arrival order, so the
// reconciler and authenticator see a strictly serialized stream.
type Client struct {
	conn       domain.Connection
	auth       *Authenticator
	reconciler *Reconciler
	dispatcher *Dispatcher
	notifier   domain.Notifier
	log        logger.Logger

	inbox chan inboundMsg
}

func NewClient(conn domain.Connection, auth *Authenticator, reconciler *Reconciler,
	dispatcher *Dispatcher, notifier domain.Notifier, log logger.Logger) *Client {
	return &Client{
		conn:       conn,
		auth:       auth,
		reconciler: reconciler,
		dispatcher: dispatcher,
		notifier:   notifier,
		log:        log,
		inbox:      make(chan inboundMsg, 64),
	}
}

// Start installs the sinks, starts the event loop and dials the server.
func (c *Client) Start(ctx context.Context) error {
	c.conn.SetFrameSink(func(raw string) {
		select {
		case c.inbox <- frameMsg{raw: raw}:
		case <-ctx.Done():
		}
	})
	c.conn.SetStateSink(func(state domain.ConnState) {
		select {
		case c.inbox <- stateMsg{state: state}:
		case <-ctx.Done():
		}
	})

	go c.loop(ctx)

	return c.conn.Connect(ctx)
}

// Stop tears the connection down. The loop exits with the context.
func (c *Client) Stop() error {
	return c.conn.Close()
}

// Login starts the handshake for the given credentials.
func (c *Client) Login(username, password string) error {
	return c.auth.Login(username, password)
}

// Logout clears the session and all mirrors locally. The server is not
// notified and the connection stays open.
func (c *Client) Logout() {
	c.auth.Logout()
	c.reconciler.Reset()
	c.notifier.Publish("Logged out", domain.SeveritySuccess)
}

func (c *Client) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.inbox:
			switch m := msg.(type) {
			case frameMsg:
				c.handleFrame(m.raw)
			case stateMsg:
				c.handleState(m.state)
			}
		}
	}
}

func (c *Client) handleFrame(raw string) {
	event := protocol.Decode(raw)

	if c.auth.Pending() {
		consumed, replay := c.auth.HandleEvent(event)
		if consumed {
			for _, buffered := range replay {
				c.applyEvent(buffered)
			}
			return
		}
	}

	if _, ok := event.(domain.LoginSuccessEvent); ok {
		// No handshake in flight; nothing correlates with this reply.
		c.log.Warn("Dropping unsolicited login reply")
		return
	}

	c.applyEvent(event)
}

func (c *Client) applyEvent(event domain.ServerEvent) {
	outcome := c.reconciler.Apply(event)

	if outcome.Note != nil {
		c.notifier.Publish(outcome.Note.Message, outcome.Note.Severity)
	}

	for _, followUp := range outcome.FollowUps {
		c.runFollowUp(followUp)
	}
}

func (c *Client) runFollowUp(followUp FollowUp) {
	var err error
	switch followUp.Kind {
	case FetchItems:
		err = c.dispatcher.SendCommand(domain.GetItemsCommand{})
	case FetchCart:
		if session, ok := c.auth.Session(); ok {
			err = c.dispatcher.SendCommand(domain.GetCartCommand{Token: session.Token})
		}
	case FetchOrders:
		if session, ok := c.auth.Session(); ok {
			err = c.dispatcher.SendCommand(domain.GetOrdersCommand{Token: session.Token})
		}
	case PayOrder:
		err = c.dispatcher.ProcessPayment(followUp.OrderID, DefaultPaymentMethod)
	}
	if err != nil {
		c.log.Warn("Follow-up not sent", "kind", followUp.Kind, "error", err)
	}
}

func (c *Client) handleState(state domain.ConnState) {
	switch state {
	case domain.Open:
		c.auth.OnOpen()
	case domain.Retrying:
		c.auth.Abort()
		c.notifier.Publish("Connection lost, reconnecting...", domain.SeverityError)
	case domain.Disconnected:
		c.auth.Abort()
	}
}
