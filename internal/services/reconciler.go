package services

import (
	"fmt"
	"sync"

	"market-client/internal/domain"
	"market-client/pkg/logger"
)

// FollowUpKind names a command the client loop must issue after an event has
// been applied. The reconciler decides what to fetch; the loop owns tokens
// and sending.
type FollowUpKind int

const (
	FetchItems FollowUpKind = iota
	FetchCart
	FetchOrders
	PayOrder
)

type FollowUp struct {
	Kind    FollowUpKind
	OrderID string // PayOrder only
}

type Note struct {
	Message  string
	Severity domain.Severity
}

// Outcome is what applying one event produced beyond the mirror mutation.
type Outcome struct {
	Note      *Note
	FollowUps []FollowUp
	Changed   bool
}

// Reconciler exclusively owns the catalog, cart and order mirrors and applies
// decoded server events to them. Full-list events replace a mirror wholesale;
// re-applying the same event is a no-op in effect. Nothing else mutates the
// mirrors.
type Reconciler struct {
	log logger.Logger

	mutex       sync.RWMutex
	catalog     map[string]domain.Item
	cart        map[string]domain.CartLine
	orders      []domain.Order
	subscribers []func(domain.Snapshot)
}

func NewReconciler(log logger.Logger) *Reconciler {
	return &Reconciler{
		log:     log,
		catalog: make(map[string]domain.Item),
		cart:    make(map[string]domain.CartLine),
	}
}

// Subscribe registers a callback invoked with a fresh snapshot after every
// mutating apply.
func (r *Reconciler) Subscribe(fn func(domain.Snapshot)) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

// Snapshot returns a deep copy of all three mirrors.
func (r *Reconciler) Snapshot() domain.Snapshot {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.snapshotLocked()
}

func (r *Reconciler) snapshotLocked() domain.Snapshot {
	snapshot := domain.Snapshot{
		Catalog: make(map[string]domain.Item, len(r.catalog)),
		Cart:    make(map[string]domain.CartLine, len(r.cart)),
		Orders:  make([]domain.Order, len(r.orders)),
	}
	for id, item := range r.catalog {
		snapshot.Catalog[id] = item
	}
	for id, line := range r.cart {
		snapshot.Cart[id] = line
	}
	for i, order := range r.orders {
		copied := order
		copied.Lines = append([]domain.CartLine(nil), order.Lines...)
		snapshot.Orders[i] = copied
	}
	return snapshot
}

// Item looks one catalog entry up by id.
func (r *Reconciler) Item(id string) (domain.Item, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	item, ok := r.catalog[id]
	return item, ok
}

// Reset clears all mirrors. Used on logout.
func (r *Reconciler) Reset() {
	r.mutex.Lock()
	r.catalog = make(map[string]domain.Item)
	r.cart = make(map[string]domain.CartLine)
	r.orders = nil
	r.mutex.Unlock()
	r.publish()
}

// Apply routes one decoded event into the mirrors and reports what else must
// happen. Malformed and unknown events are logged and ignored; no event is
// ever fatal.
func (r *Reconciler) Apply(event domain.ServerEvent) Outcome {
	switch ev := event.(type) {
	case domain.ItemsListEvent:
		return r.applyItemsList(ev)
	case domain.ItemUpdateEvent:
		return r.applyItemUpdate(ev)
	case domain.CartItemsEvent:
		return r.applyCartItems(ev)
	case domain.CartUpdatedEvent:
		// Invalidation signal, not a delta: re-fetch the authoritative cart.
		return Outcome{FollowUps: []FollowUp{{Kind: FetchCart}}}
	case domain.OrderCreatedEvent:
		return Outcome{
			Note: &Note{Message: fmt.Sprintf("Order %s created", ev.OrderID), Severity: domain.SeveritySuccess},
			FollowUps: []FollowUp{
				{Kind: FetchCart},
				{Kind: FetchOrders},
				{Kind: PayOrder, OrderID: ev.OrderID},
			},
		}
	case domain.PaymentSuccessEvent:
		return Outcome{
			Note:      &Note{Message: fmt.Sprintf("Payment successful (transaction %s)", ev.TransactionID), Severity: domain.SeveritySuccess},
			FollowUps: []FollowUp{{Kind: FetchCart}, {Kind: FetchOrders}},
		}
	case domain.OrdersListEvent:
		return r.applyOrdersList(ev)
	case domain.AuctionEndedEvent:
		return r.auctionEndedNote(ev)
	case domain.AdminSuccessEvent:
		return Outcome{
			Note:      &Note{Message: ev.Message, Severity: domain.SeveritySuccess},
			FollowUps: []FollowUp{{Kind: FetchItems}},
		}
	case domain.ErrorEvent:
		return Outcome{Note: &Note{Message: ev.Message, Severity: domain.SeverityError}}
	case domain.MalformedEvent:
		r.log.Warn("Dropping malformed frame", "raw", ev.Raw, "reason", ev.Reason)
		return Outcome{}
	case domain.UnknownEvent:
		r.log.Warn("Dropping unknown frame", "tag", ev.Tag, "raw", ev.Raw)
		return Outcome{}
	default:
		r.log.Warn("Unroutable event", "event", fmt.Sprintf("%T", event))
		return Outcome{}
	}
}

// applyItemsList replaces the catalog with the authoritative snapshot.
func (r *Reconciler) applyItemsList(ev domain.ItemsListEvent) Outcome {
	r.mutex.Lock()
	r.catalog = make(map[string]domain.Item, len(ev.Items))
	for _, item := range ev.Items {
		r.catalog[item.ID] = item
	}
	r.mutex.Unlock()
	r.publish()
	return Outcome{Changed: true}
}

// applyItemUpdate upserts one item, overwrite-wins. An incoming version lower
// than the stored one is a stale write and is dropped; version zero means the
// server sent none and always applies.
func (r *Reconciler) applyItemUpdate(ev domain.ItemUpdateEvent) Outcome {
	r.mutex.Lock()
	stored, exists := r.catalog[ev.Item.ID]
	if exists && ev.Item.Version > 0 && ev.Item.Version < stored.Version {
		r.mutex.Unlock()
		r.log.Debug("Dropping stale item update",
			"item_id", ev.Item.ID, "stored_version", stored.Version, "incoming_version", ev.Item.Version)
		return Outcome{}
	}
	incoming := ev.Item
	if incoming.Version == 0 && exists {
		incoming.Version = stored.Version
	}
	r.catalog[incoming.ID] = incoming
	r.mutex.Unlock()
	r.publish()
	return Outcome{Changed: true}
}

// applyCartItems replaces the cart. Lines for items the catalog does not know
// yet are kept with a synthesized minimal item so the cart stays renderable.
func (r *Reconciler) applyCartItems(ev domain.CartItemsEvent) Outcome {
	r.mutex.Lock()
	r.cart = make(map[string]domain.CartLine, len(ev.Lines))
	for _, entry := range ev.Lines {
		if entry.Quantity < 1 {
			// Zero quantity means the line was removed.
			continue
		}
		item, known := r.catalog[entry.ItemID]
		if !known {
			item = domain.Item{
				ID:          entry.ItemID,
				Name:        entry.Name,
				ListingType: domain.ListingFixed,
				FixedPrice:  entry.Price,
			}
		}
		r.cart[entry.ItemID] = domain.CartLine{Item: item, Quantity: entry.Quantity}
	}
	r.mutex.Unlock()
	r.publish()
	return Outcome{Changed: true}
}

// applyOrdersList replaces the orders mirror. Order lines resolve against the
// current catalog; lines whose item is unknown are dropped from that order,
// never fatal. The line price is the price at order time, not the catalog's.
func (r *Reconciler) applyOrdersList(ev domain.OrdersListEvent) Outcome {
	r.mutex.Lock()
	orders := make([]domain.Order, 0, len(ev.Orders))
	for _, record := range ev.Orders {
		order := domain.Order{ID: record.ID, Total: record.Total, Status: record.Status}
		for _, line := range record.Lines {
			item, known := r.catalog[line.ItemID]
			if !known {
				r.log.Debug("Dropping unresolvable order line", "order_id", record.ID, "item_id", line.ItemID)
				continue
			}
			item.FixedPrice = line.Price
			order.Lines = append(order.Lines, domain.CartLine{Item: item, Quantity: line.Quantity})
		}
		orders = append(orders, order)
	}
	r.orders = orders
	r.mutex.Unlock()
	r.publish()
	return Outcome{Changed: true}
}

// auctionEndedNote surfaces the result without touching the catalog; the
// closed state arrives with the next ITEM_UPDATE or ITEMS_LIST.
func (r *Reconciler) auctionEndedNote(ev domain.AuctionEndedEvent) Outcome {
	name := ev.ItemID
	if item, ok := r.Item(ev.ItemID); ok {
		name = item.Name
	}
	message := fmt.Sprintf("Auction for %s ended at %.2f (winner %s)", name, ev.FinalBid, ev.WinnerID)
	if ev.WinnerID == "" {
		message = fmt.Sprintf("Auction for %s ended with no winner", name)
	}
	return Outcome{Note: &Note{Message: message, Severity: domain.SeveritySuccess}}
}

func (r *Reconciler) publish() {
	r.mutex.RLock()
	snapshot := r.snapshotLocked()
	subscribers := make([]func(domain.Snapshot), len(r.subscribers))
	copy(subscribers, r.subscribers)
	r.mutex.RUnlock()

	for _, fn := range subscribers {
		fn(snapshot)
	}
}
