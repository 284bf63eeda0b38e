package websocket

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/draftroom/squad-auction-backend/internal/api/rest"
	"github.com/draftroom/squad-auction-backend/internal/infrastructure/cache"
	"github.com/draftroom/squad-auction-backend/internal/infrastructure/config"
	"github.com/draftroom/squad-auction-backend/internal/infrastructure/events"
	engine "github.com/draftroom/squad-auction-backend/internal/service/auction"
)

// Handler upgrades sockets and attaches them to an auction's event
// feed. Browsers cannot set Authorization headers on the upgrade
// request, so the token travels as a query parameter.
type Handler struct {
	svc      *engine.Service
	bcast    *events.Broadcaster
	presence *cache.Presence
	auth     *rest.Auth
	security config.SecurityConfig
	logger   *zap.Logger

	upgrader websocket.Upgrader
}

func NewHandler(svc *engine.Service, bcast *events.Broadcaster, presence *cache.Presence, auth *rest.Auth, security config.SecurityConfig, logger *zap.Logger) *Handler {
	return &Handler{
		svc:      svc,
		bcast:    bcast,
		presence: presence,
		auth:     auth,
		security: security,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin enforcement belongs to the reverse proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Routes mounts the upgrade endpoint.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/auctions/{id}", h.handleConnect)
}

func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.Verify(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	auctionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid auction id", http.StatusBadRequest)
		return
	}
	eng, err := h.svc.Engine(auctionID)
	if err != nil {
		http.Error(w, "auction not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	// One subscription per connection; reconnects get a fresh ID and a
	// snapshot resync as the first frame.
	subID := fmt.Sprintf("%s:%s", userID, uuid.NewString()[:8])
	sub := h.bcast.Subscribe(auctionID, subID, true)

	if eng.Auction().HasManager(userID) {
		if err := h.presence.Connect(r.Context(), auctionID, userID); err != nil {
			h.logger.Warn("presence update failed", zap.Error(err))
		}
	}

	c := &client{
		conn:      conn,
		userID:    userID,
		auctionID: auctionID,
		subID:     subID,
		eng:       eng,
		sub:       sub,
		limiter:   rate.NewLimiter(rate.Limit(h.security.FramesPerSecond), h.security.FrameBurst),
		direct:    make(chan interface{}, 16),
		h:         h,
		logger: h.logger.With(
			zap.String("auction_id", auctionID.String()),
			zap.String("user_id", userID.String())),
	}

	go c.writePump()
	go c.readPump()
}

// detach tears one connection down: unsubscribe, clear presence, close.
func (h *Handler) detach(c *client) {
	h.bcast.Unsubscribe(c.auctionID, c.subID)
	if c.eng.Auction().HasManager(c.userID) {
		if err := h.presence.Disconnect(context.Background(), c.auctionID, c.userID); err != nil {
			h.logger.Warn("presence cleanup failed", zap.Error(err))
		}
	}
	c.conn.Close()
}
