// Package protocol implements the delimited text wire format: frames are
// `TYPE|field|field|...`, list fields are comma-joined records, order lines
// are `itemId:qty:price` joined by semicolons. Decoding never fails past this
// package: anything unparseable becomes a MalformedEvent, any unrecognized
// tag an UnknownEvent.
package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"market-client/internal/domain"
)

const (
	frameLoginSuccess   = "LOGIN_SUCCESS"
	frameItemsList      = "ITEMS_LIST"
	frameItemUpdate     = "ITEM_UPDATE"
	frameCartItems      = "CART_ITEMS"
	frameCartUpdated    = "CART_UPDATED"
	frameOrderCreated   = "ORDER_CREATED"
	framePaymentSuccess = "PAYMENT_SUCCESS"
	frameOrdersList     = "ORDERS_LIST"
	frameAuctionEnded   = "AUCTION_ENDED"
	frameAdminSuccess   = "ADMIN_SUCCESS"
	frameError          = "ERROR"

	cartTotalSentinel = "TOTAL"
)

// Decode maps one raw frame to a typed ServerEvent.
func Decode(raw string) domain.ServerEvent {
	parts := strings.Split(raw, "|")
	tag := parts[0]
	fields := parts[1:]

	switch tag {
	case frameLoginSuccess:
		if len(fields) != 2 {
			return malformed(raw, "LOGIN_SUCCESS wants 2 fields, got %d", len(fields))
		}
		return domain.LoginSuccessEvent{Token: fields[0], IsAdmin: fields[1] == "1"}

	case frameItemsList:
		items := make([]domain.Item, 0, len(fields))
		for _, rec := range fields {
			item, err := parseItem(rec)
			if err != nil {
				return malformed(raw, "bad item record %q: %v", rec, err)
			}
			items = append(items, item)
		}
		return domain.ItemsListEvent{Items: items}

	case frameItemUpdate:
		if len(fields) != 1 {
			return malformed(raw, "ITEM_UPDATE wants 1 field, got %d", len(fields))
		}
		item, err := parseItem(fields[0])
		if err != nil {
			return malformed(raw, "bad item record %q: %v", fields[0], err)
		}
		return domain.ItemUpdateEvent{Item: item}

	case frameCartItems:
		lines := make([]domain.CartEntry, 0, len(fields))
		for _, rec := range fields {
			if strings.HasPrefix(rec, cartTotalSentinel) {
				continue
			}
			entry, err := parseCartEntry(rec)
			if err != nil {
				return malformed(raw, "bad cart record %q: %v", rec, err)
			}
			lines = append(lines, entry)
		}
		return domain.CartItemsEvent{Lines: lines}

	case frameCartUpdated:
		return domain.CartUpdatedEvent{Message: strings.Join(fields, "|")}

	case frameOrderCreated:
		if len(fields) != 1 || fields[0] == "" {
			return malformed(raw, "ORDER_CREATED wants an order id")
		}
		return domain.OrderCreatedEvent{OrderID: fields[0]}

	case framePaymentSuccess:
		if len(fields) != 1 {
			return malformed(raw, "PAYMENT_SUCCESS wants 1 field, got %d", len(fields))
		}
		return domain.PaymentSuccessEvent{TransactionID: fields[0]}

	case frameOrdersList:
		orders := make([]domain.OrderRecord, 0, len(fields))
		for _, rec := range fields {
			order, err := parseOrder(rec)
			if err != nil {
				return malformed(raw, "bad order record %q: %v", rec, err)
			}
			orders = append(orders, order)
		}
		return domain.OrdersListEvent{Orders: orders}

	case frameAuctionEnded:
		if len(fields) != 1 {
			return malformed(raw, "AUCTION_ENDED wants 1 field, got %d", len(fields))
		}
		cols := strings.Split(fields[0], ",")
		if len(cols) != 4 {
			return malformed(raw, "AUCTION_ENDED wants 4 columns, got %d", len(cols))
		}
		finalBid, err := strconv.ParseFloat(cols[2], 64)
		if err != nil {
			return malformed(raw, "bad final bid %q", cols[2])
		}
		return domain.AuctionEndedEvent{ItemID: cols[0], FinalBid: finalBid, WinnerID: cols[3]}

	case frameAdminSuccess:
		return domain.AdminSuccessEvent{Message: strings.Join(fields, "|")}

	case frameError:
		return domain.ErrorEvent{Message: strings.Join(fields, "|")}

	default:
		return domain.UnknownEvent{Tag: tag, Raw: raw}
	}
}

func malformed(raw, format string, args ...interface{}) domain.MalformedEvent {
	return domain.MalformedEvent{Raw: raw, Reason: fmt.Sprintf(format, args...)}
}

// parseItem parses one `id,name,type,bid,price,inventory,bidderId,endTime`
// record. bidderId may be empty; a missing or unparseable version stays zero.
func parseItem(rec string) (domain.Item, error) {
	cols := strings.Split(rec, ",")
	if len(cols) != 8 && len(cols) != 9 {
		return domain.Item{}, fmt.Errorf("want 8 columns, got %d", len(cols))
	}

	bid, err := strconv.ParseFloat(cols[3], 64)
	if err != nil {
		return domain.Item{}, fmt.Errorf("bad bid %q", cols[3])
	}
	price, err := strconv.ParseFloat(cols[4], 64)
	if err != nil {
		return domain.Item{}, fmt.Errorf("bad price %q", cols[4])
	}
	inventory, err := strconv.Atoi(cols[5])
	if err != nil {
		return domain.Item{}, fmt.Errorf("bad inventory %q", cols[5])
	}
	endTime, err := strconv.ParseInt(cols[7], 10, 64)
	if err != nil {
		return domain.Item{}, fmt.Errorf("bad end time %q", cols[7])
	}

	item := domain.Item{
		ID:          cols[0],
		Name:        cols[1],
		ListingType: domain.ListingType(cols[2]),
		CurrentBid:  bid,
		FixedPrice:  price,
		Inventory:   inventory,
		BidderID:    cols[6],
		EndTime:     endTime,
	}

	// Trailing version column, when the server chooses to send one.
	if len(cols) == 9 {
		version, err := strconv.ParseInt(cols[8], 10, 64)
		if err != nil {
			return domain.Item{}, fmt.Errorf("bad version %q", cols[8])
		}
		item.Version = version
	}

	return item, nil
}

func parseCartEntry(rec string) (domain.CartEntry, error) {
	cols := strings.Split(rec, ",")
	if len(cols) != 4 {
		return domain.CartEntry{}, fmt.Errorf("want 4 columns, got %d", len(cols))
	}
	price, err := strconv.ParseFloat(cols[2], 64)
	if err != nil {
		return domain.CartEntry{}, fmt.Errorf("bad price %q", cols[2])
	}
	quantity, err := strconv.Atoi(cols[3])
	if err != nil {
		return domain.CartEntry{}, fmt.Errorf("bad quantity %q", cols[3])
	}
	return domain.CartEntry{ItemID: cols[0], Name: cols[1], Price: price, Quantity: quantity}, nil
}

// parseOrder parses one `id,total,status,itemId:qty:price;...` record. The
// line column is optional for orders with no lines.
func parseOrder(rec string) (domain.OrderRecord, error) {
	cols := strings.Split(rec, ",")
	if len(cols) != 3 && len(cols) != 4 {
		return domain.OrderRecord{}, fmt.Errorf("want 3 or 4 columns, got %d", len(cols))
	}
	total, err := strconv.ParseFloat(cols[1], 64)
	if err != nil {
		return domain.OrderRecord{}, fmt.Errorf("bad total %q", cols[1])
	}

	order := domain.OrderRecord{ID: cols[0], Total: total, Status: cols[2]}

	if len(cols) == 4 && cols[3] != "" {
		for _, lineRec := range strings.Split(cols[3], ";") {
			line, err := parseOrderLine(lineRec)
			if err != nil {
				return domain.OrderRecord{}, err
			}
			order.Lines = append(order.Lines, line)
		}
	}

	return order, nil
}

func parseOrderLine(rec string) (domain.OrderLine, error) {
	cols := strings.Split(rec, ":")
	if len(cols) != 3 {
		return domain.OrderLine{}, fmt.Errorf("bad order line %q", rec)
	}
	quantity, err := strconv.Atoi(cols[1])
	if err != nil {
		return domain.OrderLine{}, fmt.Errorf("bad line quantity %q", cols[1])
	}
	price, err := strconv.ParseFloat(cols[2], 64)
	if err != nil {
		return domain.OrderLine{}, fmt.Errorf("bad line price %q", cols[2])
	}
	return domain.OrderLine{ItemID: cols[0], Quantity: quantity, Price: price}, nil
}

// Encode turns a typed ClientCommand into the exact frame the server expects,
// preserving field order. Floats keep full precision.
func Encode(cmd domain.ClientCommand) (string, error) {
	switch c := cmd.(type) {
	case domain.LoginCommand:
		return join("LOGIN", c.Username, c.Password), nil
	case domain.GetItemsCommand:
		return "GET_ITEMS", nil
	case domain.GetCartCommand:
		return join("GET_CART", c.Token), nil
	case domain.GetOrdersCommand:
		return join("GET_ORDERS", c.Token), nil
	case domain.BidCommand:
		return join("BID", c.ItemID, formatFloat(c.Amount), c.Token), nil
	case domain.AddItemCommand:
		fields := []string{
			"ADMIN", c.Token, "ADD_ITEM", c.Name, string(c.ListingType),
			formatFloat(c.Price), strconv.Itoa(c.Inventory), c.Description,
		}
		if c.ListingType == domain.ListingAuction {
			fields = append(fields, strconv.FormatInt(c.Duration, 10))
		}
		return strings.Join(fields, "|"), nil
	case domain.AddToCartCommand:
		return join("ADD_TO_CART", c.ItemID, strconv.Itoa(c.Quantity), c.Token), nil
	case domain.UpdateCartCommand:
		return join("UPDATE_CART", c.ItemID, strconv.Itoa(c.Quantity), c.Token), nil
	case domain.CheckoutCommand:
		return join("CHECKOUT", c.Token), nil
	case domain.ProcessPaymentCommand:
		return join("PROCESS_PAYMENT", c.OrderID, c.Method, c.Token), nil
	default:
		return "", fmt.Errorf("unencodable command %T", cmd)
	}
}

func join(fields ...string) string {
	return strings.Join(fields, "|")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
