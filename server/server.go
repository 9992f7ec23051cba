// Package server exposes the auction service over HTTP: JSON endpoints for
// auction lifecycle and bidding, plus a websocket stream of accepted bids.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cloudx-io/chainauction/auction"
	"github.com/cloudx-io/chainauction/core"
	"github.com/cloudx-io/chainauction/store"
)

// BidEvent is broadcast to websocket subscribers for every accepted bid.
type BidEvent struct {
	Auction   string `json:"auction"`
	Escrow    string `json:"escrow"`
	Amount    string `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	Slot      uint64 `json:"slot"`
}

// Server routes HTTP traffic to the auction service.
type Server struct {
	svc      *auction.Service
	log      *zap.Logger
	events   *hub[BidEvent]
	upgrader websocket.Upgrader
}

// New returns a Server over svc.
func New(svc *auction.Service, log *zap.Logger) *Server {
	return &Server{
		svc:    svc,
		log:    log,
		events: newHub[BidEvent](),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auctions", s.handleCreateAuction)
		r.Get("/auctions", s.handleListAuctions)
		r.Get("/auctions/{auction}", s.handleGetAuction)
		r.Post("/auctions/{auction}/bids", s.handlePlaceBid)
		r.Get("/auctions/{auction}/bids", s.handleListBids)
		r.Get("/auctions/{auction}/bidders/{bidder}", s.handleGetBidder)
		r.Post("/accounts/{owner}/deposit", s.handleDeposit)
		r.Get("/accounts/{owner}", s.handleGetAccount)
		r.Get("/ws", s.handleEvents)
	})
	return r
}

type createAuctionRequest struct {
	Resource   string `json:"resource,omitempty"`
	StartTime  int64  `json:"start_time,omitempty"`
	EndTime    *int64 `json:"end_time,omitempty"`
	GapTime    *int64 `json:"gap_time,omitempty"`
	PriceFloor string `json:"price_floor,omitempty"`
	MaxBids    int    `json:"max_bids,omitempty"`
}

type auctionResponse struct {
	Auction    string  `json:"auction"`
	Resource   string  `json:"resource"`
	StartTime  int64   `json:"start_time"`
	EndTime    *int64  `json:"end_time,omitempty"`
	GapTime    *int64  `json:"gap_time,omitempty"`
	LastBid    *int64  `json:"last_bid,omitempty"`
	PriceFloor string  `json:"price_floor"`
	MaxBids    int     `json:"max_bids"`
	State      string  `json:"state"`
	EndsAt     *int64  `json:"ends_at,omitempty"`
	Winner     *bidOut `json:"winner,omitempty"`
	BidCount   int     `json:"bid_count"`
}

type bidOut struct {
	Escrow string `json:"escrow"`
	Amount string `json:"amount"`
}

func (s *Server) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	var req createAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cfg := auction.AuctionConfig{
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		GapTime:   req.GapTime,
		MaxBids:   req.MaxBids,
	}
	if req.Resource != "" {
		resource, err := core.AddressFromHex(req.Resource)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		cfg.Resource = resource
	}
	if req.PriceFloor != "" {
		floor, err := core.ParseAmount(req.PriceFloor)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		cfg.PriceFloor = floor
	}

	id, err := s.svc.CreateAuction(r.Context(), cfg)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	info, err := s.svc.AuctionInfo(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, auctionToResponse(info))
}

func (s *Server) handleListAuctions(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.Registry(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []store.RegistryEntry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	id, err := core.AddressFromHex(chi.URLParam(r, "auction"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	info, err := s.svc.AuctionInfo(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, auctionToResponse(info))
}

type placeBidRequest struct {
	Bidder string `json:"bidder"`
	Amount string `json:"amount"`
}

type placeBidResponse struct {
	Auction   string `json:"auction"`
	Escrow    string `json:"escrow"`
	Amount    string `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	Slot      uint64 `json:"slot"`
}

func (s *Server) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	id, err := core.AddressFromHex(chi.URLParam(r, "auction"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	var req placeBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	bidder, err := core.AddressFromHex(req.Bidder)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	receipt, err := s.svc.PlaceBid(r.Context(), id, bidder, amount)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.events.Broadcast(BidEvent{
		Auction:   receipt.Auction.String(),
		Escrow:    receipt.Escrow.String(),
		Amount:    core.FormatAmount(receipt.Amount),
		Timestamp: receipt.Timestamp,
		Slot:      receipt.Slot,
	})
	s.writeJSON(w, http.StatusCreated, placeBidResponse{
		Auction:   receipt.Auction.String(),
		Escrow:    receipt.Escrow.String(),
		Amount:    core.FormatAmount(receipt.Amount),
		Timestamp: receipt.Timestamp,
		Slot:      receipt.Slot,
	})
}

func (s *Server) handleListBids(w http.ResponseWriter, r *http.Request) {
	id, err := core.AddressFromHex(chi.URLParam(r, "auction"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	bids, err := s.svc.Bids(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	out := make([]bidOut, 0, len(bids))
	for _, b := range bids {
		out = append(out, bidOut{Escrow: b.Escrow.String(), Amount: core.FormatAmount(b.Amount)})
	}
	s.writeJSON(w, http.StatusOK, out)
}

type bidderResponse struct {
	Bidder           string `json:"bidder"`
	Auction          string `json:"auction"`
	LastBidTimestamp int64  `json:"last_bid_timestamp"`
	LastBidSlot      uint64 `json:"last_bid_slot"`
	TotalContributed string `json:"total_contributed"`
	Escrowed         string `json:"escrowed"`
}

func (s *Server) handleGetBidder(w http.ResponseWriter, r *http.Request) {
	id, err := core.AddressFromHex(chi.URLParam(r, "auction"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	bidder, err := core.AddressFromHex(chi.URLParam(r, "bidder"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	meta, err := s.svc.Metadata(r.Context(), id, bidder)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	escrowed, err := s.svc.EscrowBalance(r.Context(), id, bidder)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, bidderResponse{
		Bidder:           meta.Bidder.String(),
		Auction:          meta.Auction.String(),
		LastBidTimestamp: meta.LastBidTimestamp,
		LastBidSlot:      meta.LastBidSlot,
		TotalContributed: core.FormatAmount(meta.TotalContributed),
		Escrowed:         core.FormatAmount(escrowed),
	})
}

type depositRequest struct {
	Amount string `json:"amount"`
}

type accountResponse struct {
	Owner   string `json:"owner"`
	Balance string `json:"balance"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	owner, err := core.AddressFromHex(chi.URLParam(r, "owner"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	balance, err := s.svc.Bank().Deposit(r.Context(), owner, amount)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, accountResponse{Owner: owner.String(), Balance: core.FormatAmount(balance)})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	owner, err := core.AddressFromHex(chi.URLParam(r, "owner"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	balance, err := s.svc.Bank().Balance(r.Context(), owner)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, accountResponse{Owner: owner.String(), Balance: core.FormatAmount(balance)})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := s.events.Subscribe(64)
	defer s.events.Unsubscribe(sub)

	// Drain client frames so pings and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

func auctionToResponse(info *auction.Info) auctionResponse {
	resp := auctionResponse{
		Auction:    info.Auction.String(),
		Resource:   info.Resource.String(),
		StartTime:  info.StartTime,
		EndTime:    info.EndTime,
		GapTime:    info.GapTime,
		LastBid:    info.LastBid,
		PriceFloor: core.FormatAmount(info.PriceFloor),
		MaxBids:    info.MaxBids,
		State:      info.State.String(),
		EndsAt:     info.EndsAt,
		BidCount:   info.BidCount,
	}
	if info.Winner != nil {
		resp.Winner = &bidOut{Escrow: info.Winner.Escrow.String(), Amount: core.FormatAmount(info.Winner.Amount)}
	}
	return resp
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrBidTooSmall), errors.Is(err, core.ErrAuctionClosed):
		status = http.StatusConflict
	case errors.Is(err, core.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, core.ErrNumericalOverflow):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrPersistence):
		status = http.StatusInternalServerError
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	s.writeError(w, status, err.Error())
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", zap.Error(err))
	}
}
