package domain

// ClientCommand is a typed client-to-server message. The encoder turns these
// into wire frames; commands that need authorization carry the token
// explicitly so the codec stays stateless.
type ClientCommand interface {
	isClientCommand()
}

type LoginCommand struct {
	Username string
	Password string
}

type GetItemsCommand struct{}

type GetCartCommand struct {
	Token string
}

type GetOrdersCommand struct {
	Token string
}

type BidCommand struct {
	ItemID string
	Amount float64
	Token  string
}

type AddItemCommand struct {
	Token       string
	Name        string
	ListingType ListingType
	Price       float64
	Inventory   int
	Description string
	Duration    int64 // seconds; auction listings only
}

type AddToCartCommand struct {
	ItemID   string
	Quantity int
	Token    string
}

type UpdateCartCommand struct {
	ItemID   string
	Quantity int
	Token    string
}

type CheckoutCommand struct {
	Token string
}

type ProcessPaymentCommand struct {
	OrderID string
	Method  string
	Token   string
}

func (LoginCommand) isClientCommand()          {}
func (GetItemsCommand) isClientCommand()       {}
func (GetCartCommand) isClientCommand()        {}
func (GetOrdersCommand) isClientCommand()      {}
func (BidCommand) isClientCommand()            {}
func (AddItemCommand) isClientCommand()        {}
func (AddToCartCommand) isClientCommand()      {}
func (UpdateCartCommand) isClientCommand()     {}
func (CheckoutCommand) isClientCommand()       {}
func (ProcessPaymentCommand) isClientCommand() {}
