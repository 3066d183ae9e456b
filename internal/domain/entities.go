package domain

import (
	"time"
)

type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Open
	Retrying
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Retrying:
		return "retrying"
	default:
		return "unknown"
	}
}

type ListingType string

const (
	ListingAuction ListingType = "auction"
	ListingFixed   ListingType = "fixed"
)

type Item struct {
	ID          string
	Name        string
	Description string
	ListingType ListingType
	CurrentBid  float64
	FixedPrice  float64
	Inventory   int
	BidderID    string
	EndTime     int64 // unix seconds; zero for fixed listings
	Version     int64 // zero means the server did not populate it
}

// EndedAt reports whether an auction listing has closed at the given time.
// Fixed listings never end.
func (i Item) EndedAt(now time.Time) bool {
	return i.ListingType == ListingAuction && i.EndTime > 0 && i.EndTime < now.Unix()
}

type CartLine struct {
	Item     Item
	Quantity int
}

type Order struct {
	ID     string
	Total  float64
	Status string
	Lines  []CartLine
}

const (
	OrderPending = "pending"
	OrderPaid    = "paid"
)

type Session struct {
	Token   string
	IsAdmin bool
}

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

type Notification struct {
	ID       string
	Message  string
	Severity Severity
}

// Snapshot is a deep copy of the reconciler's mirrors, safe to hand to
// observers and the status endpoint.
type Snapshot struct {
	Catalog map[string]Item
	Cart    map[string]CartLine
	Orders  []Order
}
