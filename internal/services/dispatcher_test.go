package services

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"market-client/internal/domain"
	"market-client/pkg/logger"
)

func newTestDispatcher(t *testing.T, session *domain.Session) (*Dispatcher, *fakeConn, *Reconciler, *recordingNotifier, clockwork.FakeClock) {
	t.Helper()
	conn := newFakeConn()
	conn.state = domain.Open
	reconciler := NewReconciler(logger.NewNop())
	notifier := &recordingNotifier{}
	clock := clockwork.NewFakeClock()
	dispatcher := NewDispatcher(conn, &fakeSessions{session: session}, reconciler, notifier, clock, logger.NewNop())
	return dispatcher, conn, reconciler, notifier, clock
}

func auctionItem(id string, bid float64, endTime int64) domain.Item {
	return domain.Item{
		ID:          id,
		Name:        "Item " + id,
		ListingType: domain.ListingAuction,
		CurrentBid:  bid,
		Inventory:   1,
		EndTime:     endTime,
	}
}

func TestBidWithoutSessionIsRejected(t *testing.T) {
	dispatcher, conn, _, notifier, _ := newTestDispatcher(t, nil)

	err := dispatcher.PlaceBid("1", 20)

	require.IsType(t, &domain.ValidationError{}, err)
	require.Empty(t, conn.sent())
	note, ok := notifier.last()
	require.True(t, ok)
	require.Equal(t, domain.SeverityError, note.Severity)
}

func TestBidWhileDisconnectedIsRejected(t *testing.T) {
	dispatcher, conn, _, _, _ := newTestDispatcher(t, &domain.Session{Token: "tok"})
	conn.state = domain.Retrying

	err := dispatcher.PlaceBid("1", 20)

	require.ErrorIs(t, err, domain.ErrNotConnected)
	require.Empty(t, conn.sent())
}

func TestBidNotAboveCurrentIsRejected(t *testing.T) {
	dispatcher, conn, reconciler, notifier, clock := newTestDispatcher(t, &domain.Session{Token: "tok"})
	future := clock.Now().Unix() + 3600
	reconciler.Apply(domain.ItemsListEvent{Items: []domain.Item{auctionItem("1", 10, future)}})

	require.IsType(t, &domain.ValidationError{}, dispatcher.PlaceBid("1", 10))
	require.IsType(t, &domain.ValidationError{}, dispatcher.PlaceBid("1", 5))
	require.Empty(t, conn.sent())
	require.Len(t, notifier.all(), 2)
}

func TestBidOnEndedAuctionIsRejected(t *testing.T) {
	dispatcher, conn, reconciler, _, clock := newTestDispatcher(t, &domain.Session{Token: "tok"})
	past := clock.Now().Unix() - 1
	reconciler.Apply(domain.ItemsListEvent{Items: []domain.Item{auctionItem("1", 10, past)}})

	err := dispatcher.PlaceBid("1", 20)

	require.IsType(t, &domain.ValidationError{}, err)
	require.Empty(t, conn.sent())
}

func TestValidBidSendsExactFrame(t *testing.T) {
	dispatcher, conn, reconciler, _, clock := newTestDispatcher(t, &domain.Session{Token: "tok"})
	future := clock.Now().Unix() + 3600
	reconciler.Apply(domain.ItemsListEvent{Items: []domain.Item{auctionItem("7", 10, future)}})

	require.NoError(t, dispatcher.PlaceBid("7", 12.5))

	require.Equal(t, []string{"BID|7|12.5|tok"}, conn.sent())
}

func TestCartQuantityBounds(t *testing.T) {
	dispatcher, conn, reconciler, _, _ := newTestDispatcher(t, &domain.Session{Token: "tok"})
	lamp := domain.Item{ID: "9", Name: "Lamp", ListingType: domain.ListingFixed, FixedPrice: 25, Inventory: 5}
	reconciler.Apply(domain.ItemsListEvent{Items: []domain.Item{lamp}})

	require.IsType(t, &domain.ValidationError{}, dispatcher.UpdateCart("9", -1))
	require.IsType(t, &domain.ValidationError{}, dispatcher.UpdateCart("9", 6))
	require.Empty(t, conn.sent())

	// Zero removes the line.
	require.NoError(t, dispatcher.UpdateCart("9", 0))
	require.NoError(t, dispatcher.UpdateCart("9", 5))
	require.Equal(t, []string{"UPDATE_CART|9|0|tok", "UPDATE_CART|9|5|tok"}, conn.sent())
}

func TestAddToCartRequiresPositiveQuantity(t *testing.T) {
	dispatcher, conn, reconciler, _, _ := newTestDispatcher(t, &domain.Session{Token: "tok"})
	lamp := domain.Item{ID: "9", Name: "Lamp", ListingType: domain.ListingFixed, FixedPrice: 25, Inventory: 5}
	reconciler.Apply(domain.ItemsListEvent{Items: []domain.Item{lamp}})

	require.IsType(t, &domain.ValidationError{}, dispatcher.AddToCart("9", 0))
	require.NoError(t, dispatcher.AddToCart("9", 2))
	require.Equal(t, []string{"ADD_TO_CART|9|2|tok"}, conn.sent())
}

func TestCheckoutSendsToken(t *testing.T) {
	dispatcher, conn, _, _, _ := newTestDispatcher(t, &domain.Session{Token: "tok"})

	require.NoError(t, dispatcher.Checkout())
	require.Equal(t, []string{"CHECKOUT|tok"}, conn.sent())
}

func TestAddItemRequiresAdmin(t *testing.T) {
	dispatcher, conn, _, _, _ := newTestDispatcher(t, &domain.Session{Token: "tok", IsAdmin: false})

	err := dispatcher.AddItem(AddItemParams{Name: "Vase", ListingType: domain.ListingAuction, Price: 10, Duration: 3600})

	require.IsType(t, &domain.ValidationError{}, err)
	require.Empty(t, conn.sent())
}

func TestAddItemFieldRequirements(t *testing.T) {
	cases := []struct {
		name   string
		params AddItemParams
		ok     bool
	}{
		{"auction missing duration", AddItemParams{Name: "Vase", ListingType: domain.ListingAuction, Price: 10}, false},
		{"missing name", AddItemParams{ListingType: domain.ListingFixed, Price: 10, Inventory: 1}, false},
		{"missing price", AddItemParams{Name: "Lamp", ListingType: domain.ListingFixed, Inventory: 1}, false},
		{"fixed missing inventory", AddItemParams{Name: "Lamp", ListingType: domain.ListingFixed, Price: 25}, false},
		{"valid auction", AddItemParams{Name: "Vase", ListingType: domain.ListingAuction, Price: 10, Inventory: 1, Duration: 3600}, true},
		{"valid fixed", AddItemParams{Name: "Lamp", ListingType: domain.ListingFixed, Price: 25, Inventory: 5}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dispatcher, conn, _, _, _ := newTestDispatcher(t, &domain.Session{Token: "tok", IsAdmin: true})
			err := dispatcher.AddItem(tc.params)
			if tc.ok {
				require.NoError(t, err)
				require.Len(t, conn.sent(), 1)
			} else {
				require.IsType(t, &domain.ValidationError{}, err)
				require.Empty(t, conn.sent())
			}
		})
	}
}

func TestRefreshAnonymousFetchesItemsOnly(t *testing.T) {
	dispatcher, conn, _, _, _ := newTestDispatcher(t, nil)

	require.NoError(t, dispatcher.Refresh())
	require.Equal(t, []string{"GET_ITEMS"}, conn.sent())
}

func TestRefreshAuthenticatedFetchesEverything(t *testing.T) {
	dispatcher, conn, _, _, _ := newTestDispatcher(t, &domain.Session{Token: "tok"})

	require.NoError(t, dispatcher.Refresh())
	require.Equal(t, []string{"GET_ITEMS", "GET_CART|tok", "GET_ORDERS|tok"}, conn.sent())
}

func TestRefreshWhileDisconnectedIsQuiet(t *testing.T) {
	dispatcher, conn, _, notifier, _ := newTestDispatcher(t, &domain.Session{Token: "tok"})
	conn.state = domain.Disconnected

	require.NoError(t, dispatcher.Refresh())
	require.Empty(t, conn.sent())
	require.Empty(t, notifier.all())
}
