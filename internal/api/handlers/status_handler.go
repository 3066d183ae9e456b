package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"market-client/internal/domain"
	"market-client/internal/services"
	"market-client/pkg/logger"
)

// StatusHandler exposes the client's state over a small read-only HTTP
// surface, for running headless.
type StatusHandler struct {
	conn       domain.Connection
	sessions   domain.SessionSource
	reconciler *services.Reconciler
	notifier   *services.NotificationCenter
	log        logger.Logger
}

type statusResponse struct {
	ConnectionState string               `json:"connection_state"`
	Authenticated   bool                 `json:"authenticated"`
	IsAdmin         bool                 `json:"is_admin"`
	Notification    *domain.Notification `json:"notification,omitempty"`
}

type stateResponse struct {
	Catalog map[string]itemView `json:"catalog"`
	Cart    map[string]lineView `json:"cart"`
	Orders  []orderView         `json:"orders"`
}

type itemView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	ListingType string  `json:"listing_type"`
	CurrentBid  float64 `json:"current_bid"`
	FixedPrice  float64 `json:"fixed_price"`
	Inventory   int     `json:"inventory"`
	BidderID    string  `json:"bidder_id,omitempty"`
	EndTime     int64   `json:"end_time,omitempty"`
}

type lineView struct {
	ItemID   string  `json:"item_id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type orderView struct {
	ID     string     `json:"id"`
	Total  float64    `json:"total"`
	Status string     `json:"status"`
	Lines  []lineView `json:"lines"`
}

func NewStatusHandler(conn domain.Connection, sessions domain.SessionSource,
	reconciler *services.Reconciler, notifier *services.NotificationCenter,
	log logger.Logger) *StatusHandler {
	return &StatusHandler{
		conn:       conn,
		sessions:   sessions,
		reconciler: reconciler,
		notifier:   notifier,
		log:        log,
	}
}

func (h *StatusHandler) Register(router *mux.Router) {
	router.HandleFunc("/healthz", h.Health).Methods("GET")
	router.HandleFunc("/statusz", h.Status).Methods("GET")
	router.HandleFunc("/state", h.State).Methods("GET")
}

func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		ConnectionState: h.conn.State().String(),
		Notification:    h.notifier.Current(),
	}
	if session, ok := h.sessions.Session(); ok {
		resp.Authenticated = true
		resp.IsAdmin = session.IsAdmin
	}
	h.writeJSON(w, resp)
}

func (h *StatusHandler) State(w http.ResponseWriter, r *http.Request) {
	snapshot := h.reconciler.Snapshot()

	resp := stateResponse{
		Catalog: make(map[string]itemView, len(snapshot.Catalog)),
		Cart:    make(map[string]lineView, len(snapshot.Cart)),
		Orders:  make([]orderView, 0, len(snapshot.Orders)),
	}
	for id, item := range snapshot.Catalog {
		resp.Catalog[id] = viewOfItem(item)
	}
	for id, line := range snapshot.Cart {
		resp.Cart[id] = viewOfLine(line)
	}
	for _, order := range snapshot.Orders {
		view := orderView{ID: order.ID, Total: order.Total, Status: order.Status}
		for _, line := range order.Lines {
			view.Lines = append(view.Lines, viewOfLine(line))
		}
		resp.Orders = append(resp.Orders, view)
	}
	h.writeJSON(w, resp)
}

func viewOfItem(item domain.Item) itemView {
	return itemView{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		ListingType: string(item.ListingType),
		CurrentBid:  item.CurrentBid,
		FixedPrice:  item.FixedPrice,
		Inventory:   item.Inventory,
		BidderID:    item.BidderID,
		EndTime:     item.EndTime,
	}
}

func viewOfLine(line domain.CartLine) lineView {
	return lineView{
		ItemID:   line.Item.ID,
		Name:     line.Item.Name,
		Price:    line.Item.FixedPrice,
		Quantity: line.Quantity,
	}
}

func (h *StatusHandler) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error("Failed to write response", "error", err)
	}
}
