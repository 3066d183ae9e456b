package services

import (
	"github.com/jonboulle/clockwork"

	"market-client/internal/domain"
	"market-client/internal/protocol"
	"market-client/pkg/logger"
)

// DefaultPaymentMethod is forwarded opaquely with PROCESS_PAYMENT; the
// gateway behind the server interprets it.
const DefaultPaymentMethod = "card"

// Dispatcher turns user intents into protocol commands. Every intent is
// validated locally first and fails fast, with nothing sent, when the
// connection is not open, the session is missing for a privileged command, or
// the intent contradicts the current mirrors. Accepted intents are encoded
// and sent; effects arrive asynchronously with the next matching push.
type Dispatcher struct {
	conn       domain.Connection
	sessions   domain.SessionSource
	reconciler *Reconciler
	notifier   domain.Notifier
	clock      clockwork.Clock
	log        logger.Logger
}

func NewDispatcher(conn domain.Connection, sessions domain.SessionSource,
	reconciler *Reconciler, notifier domain.Notifier, clock clockwork.Clock,
	log logger.Logger) *Dispatcher {
	return &Dispatcher{
		conn:       conn,
		sessions:   sessions,
		reconciler: reconciler,
		notifier:   notifier,
		clock:      clock,
		log:        log,
	}
}

// SendCommand encodes and sends one already-validated command.
func (d *Dispatcher) SendCommand(cmd domain.ClientCommand) error {
	frame, err := protocol.Encode(cmd)
	if err != nil {
		return err
	}
	return d.conn.Send(frame)
}

func (d *Dispatcher) PlaceBid(itemID string, amount float64) error {
	session, err := d.requireSession()
	if err != nil {
		return err
	}
	if err := d.requireOpen(); err != nil {
		return err
	}

	item, known := d.reconciler.Item(itemID)
	if !known {
		return d.reject("Unknown item %s", itemID)
	}
	if item.ListingType != domain.ListingAuction {
		return d.reject("%s is not an auction listing", item.Name)
	}
	if item.EndedAt(d.clock.Now()) {
		return d.reject("Auction for %s has ended", item.Name)
	}
	if amount <= item.CurrentBid {
		return d.reject("Bid must be higher than %.2f", item.CurrentBid)
	}

	return d.SendCommand(domain.BidCommand{ItemID: itemID, Amount: amount, Token: session.Token})
}

func (d *Dispatcher) AddToCart(itemID string, quantity int) error {
	session, err := d.requireSession()
	if err != nil {
		return err
	}
	if err := d.requireOpen(); err != nil {
		return err
	}

	item, known := d.reconciler.Item(itemID)
	if !known {
		return d.reject("Unknown item %s", itemID)
	}
	if quantity < 1 || quantity > item.Inventory {
		return d.reject("Quantity for %s must be between 1 and %d", item.Name, item.Inventory)
	}

	return d.SendCommand(domain.AddToCartCommand{ItemID: itemID, Quantity: quantity, Token: session.Token})
}

// UpdateCart sets a line's quantity; zero removes the line.
func (d *Dispatcher) UpdateCart(itemID string, quantity int) error {
	session, err := d.requireSession()
	if err != nil {
		return err
	}
	if err := d.requireOpen(); err != nil {
		return err
	}

	item, known := d.reconciler.Item(itemID)
	if !known {
		return d.reject("Unknown item %s", itemID)
	}
	if quantity < 0 || quantity > item.Inventory {
		return d.reject("Quantity for %s must be between 0 and %d", item.Name, item.Inventory)
	}

	return d.SendCommand(domain.UpdateCartCommand{ItemID: itemID, Quantity: quantity, Token: session.Token})
}

func (d *Dispatcher) Checkout() error {
	session, err := d.requireSession()
	if err != nil {
		return err
	}
	if err := d.requireOpen(); err != nil {
		return err
	}

	return d.SendCommand(domain.CheckoutCommand{Token: session.Token})
}

// ProcessPayment forwards the opaque payment intent for an order. Also issued
// automatically by the client loop when the server confirms order creation.
func (d *Dispatcher) ProcessPayment(orderID, method string) error {
	session, err := d.requireSession()
	if err != nil {
		return err
	}
	if err := d.requireOpen(); err != nil {
		return err
	}
	if method == "" {
		method = DefaultPaymentMethod
	}

	return d.SendCommand(domain.ProcessPaymentCommand{OrderID: orderID, Method: method, Token: session.Token})
}

// AddItemParams carries the admin add-item form.
type AddItemParams struct {
	Name        string
	ListingType domain.ListingType
	Price       float64
	Inventory   int
	Description string
	Duration    int64
}

func (d *Dispatcher) AddItem(params AddItemParams) error {
	session, err := d.requireSession()
	if err != nil {
		return err
	}
	if !session.IsAdmin {
		return d.reject("Admin privileges required")
	}
	if err := d.requireOpen(); err != nil {
		return err
	}

	if params.Name == "" || params.Price <= 0 {
		return d.reject("Item name and a positive price are required")
	}
	switch params.ListingType {
	case domain.ListingAuction:
		if params.Duration <= 0 {
			return d.reject("Auction listings need a duration")
		}
	case domain.ListingFixed:
		if params.Inventory < 1 {
			return d.reject("Fixed listings need inventory")
		}
	default:
		return d.reject("Unknown listing type %q", params.ListingType)
	}

	return d.SendCommand(domain.AddItemCommand{
		Token:       session.Token,
		Name:        params.Name,
		ListingType: params.ListingType,
		Price:       params.Price,
		Inventory:   params.Inventory,
		Description: params.Description,
		Duration:    params.Duration,
	})
}

// Refresh re-issues the bootstrap fetches. A quiet no-op while the connection
// is not open; the next reconnect re-arms the mirrors anyway.
func (d *Dispatcher) Refresh() error {
	if d.conn.State() != domain.Open {
		return nil
	}

	if err := d.SendCommand(domain.GetItemsCommand{}); err != nil {
		return err
	}
	session, ok := d.sessions.Session()
	if !ok {
		return nil
	}
	if err := d.SendCommand(domain.GetCartCommand{Token: session.Token}); err != nil {
		return err
	}
	return d.SendCommand(domain.GetOrdersCommand{Token: session.Token})
}

func (d *Dispatcher) requireSession() (domain.Session, error) {
	session, ok := d.sessions.Session()
	if !ok {
		d.notifier.Publish("Login required", domain.SeverityError)
		return domain.Session{}, domain.NewValidationError("login required")
	}
	return session, nil
}

func (d *Dispatcher) requireOpen() error {
	if d.conn.State() != domain.Open {
		d.notifier.Publish("Not connected", domain.SeverityError)
		return domain.ErrNotConnected
	}
	return nil
}

func (d *Dispatcher) reject(format string, args ...interface{}) error {
	err := domain.NewValidationError(format, args...)
	d.notifier.Publish(err.Reason, domain.SeverityError)
	d.log.Debug("Intent rejected", "reason", err.Reason)
	return err
}
