package services

import (
	"sync"

	"market-client/internal/domain"
	"market-client/pkg/logger"
)

type authState int

const (
	authIdle authState = iota
	authAwaitingReply
	authEstablished
)

// Authenticator drives the login handshake: send LOGIN, then treat the next
// correlated reply as terminal. Events arriving while the handshake is
// pending are buffered and replayed into steady-state routing once it
// resolves, so a push landing right behind LOGIN_SUCCESS is never lost.
type Authenticator struct {
	notifier domain.Notifier
	log      logger.Logger
	sender   domain.CommandSender

	mutex    sync.Mutex
	state    authState
	session  *domain.Session
	buffered []domain.ServerEvent
}

func NewAuthenticator(notifier domain.Notifier, log logger.Logger) *Authenticator {
	return &Authenticator{
		notifier: notifier,
		log:      log,
	}
}

// SetSender wires the command sender after construction; the dispatcher needs
// the authenticator for tokens and vice versa.
func (a *Authenticator) SetSender(sender domain.CommandSender) {
	a.sender = sender
}

// Login starts the handshake. Rejected locally, with no frame sent, while a
// prior handshake is pending or a session is already established.
func (a *Authenticator) Login(username, password string) error {
	if username == "" || password == "" {
		err := domain.NewValidationError("username and password are required")
		a.notifier.Publish(err.Reason, domain.SeverityError)
		return err
	}

	a.mutex.Lock()
	if a.state == authAwaitingReply {
		a.mutex.Unlock()
		a.notifier.Publish("Login already in progress", domain.SeverityError)
		return domain.ErrHandshakePending
	}
	if a.session != nil {
		a.mutex.Unlock()
		a.notifier.Publish("Already logged in", domain.SeverityError)
		return domain.ErrAlreadyAuthenticated
	}
	a.state = authAwaitingReply
	a.buffered = nil
	a.mutex.Unlock()

	if err := a.sender.SendCommand(domain.LoginCommand{Username: username, Password: password}); err != nil {
		a.mutex.Lock()
		a.state = authIdle
		a.mutex.Unlock()
		a.notifier.Publish("Cannot log in while disconnected", domain.SeverityError)
		return err
	}

	a.log.Info("Login handshake started", "username", username)
	return nil
}

// Pending reports whether a handshake is awaiting its reply.
func (a *Authenticator) Pending() bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.state == authAwaitingReply
}

// Session returns the established session, if any.
func (a *Authenticator) Session() (domain.Session, bool) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.session == nil {
		return domain.Session{}, false
	}
	return *a.session, true
}

// HandleEvent consumes one event while a handshake is pending. The return
// value reports whether the event was consumed, and, on a terminal reply, the
// buffered events to replay through steady-state routing in arrival order.
func (a *Authenticator) HandleEvent(event domain.ServerEvent) (bool, []domain.ServerEvent) {
	a.mutex.Lock()
	if a.state != authAwaitingReply {
		a.mutex.Unlock()
		return false, nil
	}

	switch ev := event.(type) {
	case domain.LoginSuccessEvent:
		a.session = &domain.Session{Token: ev.Token, IsAdmin: ev.IsAdmin}
		a.state = authEstablished
		replay := a.buffered
		a.buffered = nil
		a.mutex.Unlock()

		a.log.Info("Session established", "is_admin", ev.IsAdmin)
		a.notifier.Publish("Login successful", domain.SeveritySuccess)
		a.bootstrap(true)
		return true, replay

	case domain.ErrorEvent:
		a.state = authIdle
		replay := a.buffered
		a.buffered = nil
		a.mutex.Unlock()

		a.log.Warn("Login rejected", "message", ev.Message)
		a.notifier.Publish(ev.Message, domain.SeverityError)
		return true, replay

	default:
		a.buffered = append(a.buffered, event)
		a.mutex.Unlock()
		return true, nil
	}
}

// Abort cancels a pending handshake when the connection drops under it. The
// server reply correlated with the dead connection will never arrive, and the
// buffered events went down with it; the next login starts clean.
func (a *Authenticator) Abort() {
	a.mutex.Lock()
	if a.state != authAwaitingReply {
		a.mutex.Unlock()
		return
	}
	a.state = authIdle
	a.buffered = nil
	a.mutex.Unlock()

	a.log.Warn("Login handshake aborted, connection lost")
	a.notifier.Publish("Connection lost during login, please retry", domain.SeverityError)
}

// OnOpen re-arms the mirrors after a (re)connection. The catalog is public;
// cart and orders need the retained token. Credentials are never re-sent, the
// server authorizes each privileged command by token.
func (a *Authenticator) OnOpen() {
	a.mutex.Lock()
	hasSession := a.session != nil
	a.mutex.Unlock()

	a.bootstrap(hasSession)
}

func (a *Authenticator) bootstrap(withSession bool) {
	a.send(domain.GetItemsCommand{})
	if !withSession {
		return
	}
	session, ok := a.Session()
	if !ok {
		return
	}
	a.send(domain.GetCartCommand{Token: session.Token})
	a.send(domain.GetOrdersCommand{Token: session.Token})
}

func (a *Authenticator) send(cmd domain.ClientCommand) {
	if err := a.sender.SendCommand(cmd); err != nil {
		a.log.Warn("Bootstrap fetch not sent", "error", err)
	}
}

// Logout clears the session locally. The server is not told and the
// connection stays up; mirrors are cleared by the caller.
func (a *Authenticator) Logout() {
	a.mutex.Lock()
	a.session = nil
	a.state = authIdle
	a.buffered = nil
	a.mutex.Unlock()

	a.log.Info("Session cleared")
}
