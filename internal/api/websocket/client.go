package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "github.com/draftroom/squad-auction-backend/internal/domain/errors"
	"github.com/draftroom/squad-auction-backend/internal/domain/values"
	"github.com/draftroom/squad-auction-backend/internal/domain/vote"
	"github.com/draftroom/squad-auction-backend/internal/infrastructure/events"
	engine "github.com/draftroom/squad-auction-backend/internal/service/auction"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxFrameSize = 4096
)

// client is one live socket: a manager (or the admin) attached to one
// auction. Outbound traffic is the broadcast subscription plus direct
// command replies; inbound frames are translated into engine commands.
type client struct {
	conn      *websocket.Conn
	userID    uuid.UUID
	auctionID uuid.UUID
	subID     string

	eng     *engine.Engine
	sub     *events.Subscription
	limiter *rate.Limiter

	// direct carries point-to-point frames (command replies, errors)
	// outside the broadcast stream.
	direct chan interface{}

	h      *Handler
	logger *zap.Logger
}

// inboundFrame is the client-to-server message shape.
type inboundFrame struct {
	Action      string `json:"action"`
	PlayerID    string `json:"player_id,omitempty"`
	Amount      string `json:"amount,omitempty"`
	ClientBidID string `json:"client_bid_id,omitempty"`
	Value       string `json:"value,omitempty"`
}

type commandErrorFrame struct {
	Type      string `json:"type"`
	Action    string `json:"action"`
	ErrorKind string `json:"errorKind"`
	Message   string `json:"message"`
}

type commandAckFrame struct {
	Type   string         `json:"type"`
	Action string         `json:"action"`
	Result *engine.Result `json:"result"`
}

// readPump consumes inbound frames until the socket dies. Runs as the
// connection goroutine; exit triggers teardown.
func (c *client) readPump() {
	defer c.h.detach(c)

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
		// A live pong also slides the presence TTL.
		c.h.presence.Connect(context.Background(), c.auctionID, c.userID) //nolint:errcheck
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("socket closed unexpectedly", zap.Error(err))
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.sendError("", apperrors.NewValidationError("INVALID_FRAME", "frame is not valid JSON"))
			continue
		}

		if !c.limiter.Allow() {
			c.sendError(frame.Action, apperrors.NewValidationError("RATE_LIMITED", "too many frames"))
			continue
		}

		c.dispatch(frame)
	}
}

// dispatch translates one frame into an engine command. The engine
// serializes execution; this just blocks the read loop for the round
// trip, which also acts as per-connection backpressure.
func (c *client) dispatch(frame inboundFrame) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		res *engine.Result
		err error
	)
	switch frame.Action {
	case "bid":
		res, err = c.placeBid(ctx, frame)
	case "vote":
		res, err = c.castVote(ctx, frame)
	default:
		err = apperrors.NewValidationError("UNKNOWN_ACTION", "unsupported action")
	}

	if err != nil {
		c.sendError(frame.Action, err)
		return
	}
	c.send(commandAckFrame{Type: "commandAck", Action: frame.Action, Result: res})
}

func (c *client) placeBid(ctx context.Context, frame inboundFrame) (*engine.Result, error) {
	playerID, err := uuid.Parse(frame.PlayerID)
	if err != nil {
		return nil, apperrors.NewValidationError("INVALID_ID", "player_id is not a valid uuid")
	}
	amount, err := values.NewMoneyFromString(frame.Amount)
	if err != nil {
		return nil, apperrors.NewValidationError("INVALID_AMOUNT", "amount is not a valid amount")
	}
	return c.eng.PlaceBid(ctx, engine.BidRequest{
		BidderID:     c.userID,
		PlayerID:     playerID,
		Amount:       amount,
		ClientBidID:  frame.ClientBidID,
		Source:       "socket",
		SubscriberID: c.subID,
	})
}

func (c *client) castVote(ctx context.Context, frame inboundFrame) (*engine.Result, error) {
	playerID, err := uuid.Parse(frame.PlayerID)
	if err != nil {
		return nil, apperrors.NewValidationError("INVALID_ID", "player_id is not a valid uuid")
	}
	return c.eng.Vote(ctx, c.userID, playerID, vote.ValueFromString(frame.Value))
}

// writePump owns all writes on the socket: broadcast envelopes, direct
// frames and pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.sub.C:
			if !ok {
				// Dropped by the broadcaster (slow consumer) or unsubscribed.
				c.writeControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscription closed"))
				return
			}
			if !c.writeJSON(env) {
				return
			}
		case frame := <-c.direct:
			if !c.writeJSON(frame) {
				return
			}
		case <-ticker.C:
			if !c.writeControl(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *client) writeJSON(v interface{}) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
	if err := c.conn.WriteJSON(v); err != nil {
		c.logger.Debug("socket write failed", zap.Error(err))
		return false
	}
	return true
}

func (c *client) writeControl(messageType int, data []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
	return c.conn.WriteMessage(messageType, data) == nil
}

// send queues a direct frame, dropping it if the connection is backed
// up. Command errors are best-effort.
func (c *client) send(v interface{}) {
	select {
	case c.direct <- v:
	default:
	}
}

func (c *client) sendError(action string, err error) {
	c.send(commandErrorFrame{
		Type:      "commandError",
		Action:    action,
		ErrorKind: apperrors.Kind(err),
		Message:   err.Error(),
	})
}
