package domain

// ServerEvent is a decoded frame pushed by the server. Exactly one concrete
// type per frame tag, plus UnknownEvent and MalformedEvent for everything the
// decoder cannot place.
type ServerEvent interface {
	isServerEvent()
}

type LoginSuccessEvent struct {
	Token   string
	IsAdmin bool
}

type ItemsListEvent struct {
	Items []Item
}

type ItemUpdateEvent struct {
	Item Item
}

// CartEntry is a cart line as it appears on the wire, before resolution
// against the catalog.
type CartEntry struct {
	ItemID   string
	Name     string
	Price    float64
	Quantity int
}

type CartItemsEvent struct {
	Lines []CartEntry
}

type CartUpdatedEvent struct {
	Message string
}

type OrderCreatedEvent struct {
	OrderID string
}

type PaymentSuccessEvent struct {
	TransactionID string
}

// OrderLine is an order line as it appears on the wire.
type OrderLine struct {
	ItemID   string
	Quantity int
	Price    float64
}

type OrderRecord struct {
	ID     string
	Total  float64
	Status string
	Lines  []OrderLine
}

type OrdersListEvent struct {
	Orders []OrderRecord
}

type AuctionEndedEvent struct {
	ItemID   string
	FinalBid float64
	WinnerID string
}

type AdminSuccessEvent struct {
	Message string
}

type ErrorEvent struct {
	Message string
}

type UnknownEvent struct {
	Tag string
	Raw string
}

type MalformedEvent struct {
	Raw    string
	Reason string
}

func (LoginSuccessEvent) isServerEvent()   {}
func (ItemsListEvent) isServerEvent()      {}
func (ItemUpdateEvent) isServerEvent()     {}
func (CartItemsEvent) isServerEvent()      {}
func (CartUpdatedEvent) isServerEvent()    {}
func (OrderCreatedEvent) isServerEvent()   {}
func (PaymentSuccessEvent) isServerEvent() {}
func (OrdersListEvent) isServerEvent()     {}
func (AuctionEndedEvent) isServerEvent()   {}
func (AdminSuccessEvent) isServerEvent()   {}
func (ErrorEvent) isServerEvent()          {}
func (UnknownEvent) isServerEvent()        {}
func (MalformedEvent) isServerEvent()      {}
