package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftroom/squad-auction-backend/internal/domain/auction"
	apperrors "github.com/draftroom/squad-auction-backend/internal/domain/errors"
	"github.com/draftroom/squad-auction-backend/internal/domain/values"
	"github.com/draftroom/squad-auction-backend/internal/domain/vote"
	engine "github.com/draftroom/squad-auction-backend/internal/service/auction"
	"github.com/draftroom/squad-auction-backend/internal/infrastructure/config"
)

// Handler serves the admin command surface and auction lifecycle over
// HTTP. Live bidding and the event feed ride the websocket adapter; the
// REST endpoints here are also a fallback for every engine command.
type Handler struct {
	svc      *engine.Service
	defaults config.AuctionDefaults
	logger   *zap.Logger
	validate *validator.Validate
}

func NewHandler(svc *engine.Service, defaults config.AuctionDefaults, logger *zap.Logger) *Handler {
	return &Handler{
		svc:      svc,
		defaults: defaults,
		logger:   logger,
		validate: validator.New(),
	}
}

type successEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type errorEnvelope struct {
	Success   bool   `json:"success"`
	ErrorKind string `json:"errorKind"`
	Message   string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, successEnvelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperrors.GetStatusCode(err), errorEnvelope{
		ErrorKind: apperrors.Kind(err),
		Message:   err.Error(),
	})
}

// --- create auction ---

type createAuctionRequest struct {
	Name     string            `json:"name" validate:"required,max=120"`
	Config   *auctionConfigDTO `json:"config"`
	Players  []playerDTO       `json:"players" validate:"required,min=1,dive"`
	Managers []managerDTO      `json:"managers" validate:"required,min=1,dive"`
}

type auctionConfigDTO struct {
	InitialBidMs         *int     `json:"initial_bid_ms" validate:"omitempty,min=1000"`
	AntiSnipeThresholdMs *int     `json:"anti_snipe_threshold_ms" validate:"omitempty,min=0"`
	AntiSnipeExtensionMs *int     `json:"anti_snipe_extension_ms" validate:"omitempty,min=0"`
	MinIncrement         *string  `json:"min_increment"`
	CategoryOrder        []string `json:"category_order"`
	DislikeFraction      *float64 `json:"dislike_fraction" validate:"omitempty,gt=0,lte=1"`
}

type playerDTO struct {
	Name      string `json:"name" validate:"required,max=120"`
	Category  string `json:"category" validate:"required,max=32"`
	BaseValue string `json:"base_value" validate:"required"`
}

type managerDTO struct {
	ID             string `json:"id" validate:"required,uuid"`
	Name           string `json:"name" validate:"required,max=120"`
	InitialBalance string `json:"initial_balance" validate:"required"`
}

// resolveConfig merges the request config over the server defaults.
func (h *Handler) resolveConfig(dto *auctionConfigDTO) (auction.Config, error) {
	d := h.defaults
	cfg := auction.Config{
		InitialBid:         time.Duration(d.InitialBidMs) * time.Millisecond,
		AntiSnipeThreshold: time.Duration(d.AntiSnipeThresholdMs) * time.Millisecond,
		AntiSnipeExtension: time.Duration(d.AntiSnipeExtensionMs) * time.Millisecond,
		MinIncrement:       values.NewMoneyFromInt(d.MinIncrement),
		CategoryOrder:      d.CategoryOrder,
		DislikeFraction:    d.DislikeFraction,
	}
	if dto == nil {
		return cfg.Normalize(), nil
	}
	if dto.InitialBidMs != nil {
		cfg.InitialBid = time.Duration(*dto.InitialBidMs) * time.Millisecond
	}
	if dto.AntiSnipeThresholdMs != nil {
		cfg.AntiSnipeThreshold = time.Duration(*dto.AntiSnipeThresholdMs) * time.Millisecond
	}
	if dto.AntiSnipeExtensionMs != nil {
		cfg.AntiSnipeExtension = time.Duration(*dto.AntiSnipeExtensionMs) * time.Millisecond
	}
	if dto.MinIncrement != nil {
		inc, err := values.NewMoneyFromString(*dto.MinIncrement)
		if err != nil {
			return cfg, apperrors.NewValidationError("INVALID_AMOUNT", "min_increment is not a valid amount")
		}
		cfg.MinIncrement = inc
	}
	if len(dto.CategoryOrder) > 0 {
		cfg.CategoryOrder = dto.CategoryOrder
	}
	if dto.DislikeFraction != nil {
		cfg.DislikeFraction = *dto.DislikeFraction
	}
	return cfg.Normalize(), nil
}

func (h *Handler) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	adminID, ok := UserID(r.Context())
	if !ok {
		writeError(w, apperrors.NewUnauthorizedError("missing caller identity"))
		return
	}

	var req createAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.NewValidationError("INVALID_BODY", "request body is not valid JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, apperrors.NewValidationError("INVALID_REQUEST", err.Error()))
		return
	}

	cfg, err := h.resolveConfig(req.Config)
	if err != nil {
		writeError(w, err)
		return
	}

	players := make([]engine.PlayerSpec, 0, len(req.Players))
	for _, p := range req.Players {
		base, err := values.NewMoneyFromString(p.BaseValue)
		if err != nil {
			writeError(w, apperrors.NewValidationError("INVALID_AMOUNT", "base_value is not a valid amount"))
			return
		}
		players = append(players, engine.PlayerSpec{Name: p.Name, Category: p.Category, BaseValue: base})
	}

	managers := make([]engine.ManagerSpec, 0, len(req.Managers))
	for _, m := range req.Managers {
		id, err := uuid.Parse(m.ID)
		if err != nil {
			writeError(w, apperrors.NewValidationError("INVALID_ID", "manager id is not a valid uuid"))
			return
		}
		balance, err := values.NewMoneyFromString(m.InitialBalance)
		if err != nil {
			writeError(w, apperrors.NewValidationError("INVALID_AMOUNT", "initial_balance is not a valid amount"))
			return
		}
		managers = append(managers, engine.ManagerSpec{ID: id, Name: m.Name, InitialBalance: balance})
	}

	a, err := h.svc.CreateAuction(r.Context(), req.Name, adminID, cfg, players, managers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]interface{}{
		"auction_id": a.ID,
		"status":     a.Status.String(),
		"players":    a.PlayerCount(),
	})
}

// --- engine commands ---

func (h *Handler) engineFor(w http.ResponseWriter, r *http.Request) (*engine.Engine, uuid.UUID, bool) {
	callerID, ok := UserID(r.Context())
	if !ok {
		writeError(w, apperrors.NewUnauthorizedError("missing caller identity"))
		return nil, uuid.Nil, false
	}
	auctionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, apperrors.NewValidationError("INVALID_ID", "auction id is not a valid uuid"))
		return nil, uuid.Nil, false
	}
	eng, err := h.svc.Engine(auctionID)
	if err != nil {
		writeError(w, err)
		return nil, uuid.Nil, false
	}
	return eng, callerID, true
}

type commandFunc func(r *http.Request, eng *engine.Engine, callerID uuid.UUID) (*engine.Result, error)

func (h *Handler) command(fn commandFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eng, callerID, ok := h.engineFor(w, r)
		if !ok {
			return
		}
		res, err := fn(r, eng, callerID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, res)
	}
}

type skipRequest struct {
	PlayerID string `json:"player_id" validate:"required,uuid"`
}

type bidRequestDTO struct {
	PlayerID    string `json:"player_id" validate:"required,uuid"`
	Amount      string `json:"amount" validate:"required"`
	ClientBidID string `json:"client_bid_id" validate:"omitempty,max=64"`
}

type voteRequestDTO struct {
	PlayerID string `json:"player_id" validate:"required,uuid"`
	Value    string `json:"value" validate:"required,oneof=like dislike"`
}

func (h *Handler) handleSkip(r *http.Request, eng *engine.Engine, callerID uuid.UUID) (*engine.Result, error) {
	var req skipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, apperrors.NewValidationError("INVALID_BODY", "request body is not valid JSON")
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, apperrors.NewValidationError("INVALID_REQUEST", err.Error())
	}
	playerID, _ := uuid.Parse(req.PlayerID)
	return eng.Skip(r.Context(), callerID, playerID)
}

func (h *Handler) handleBid(r *http.Request, eng *engine.Engine, callerID uuid.UUID) (*engine.Result, error) {
	var req bidRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, apperrors.NewValidationError("INVALID_BODY", "request body is not valid JSON")
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, apperrors.NewValidationError("INVALID_REQUEST", err.Error())
	}
	playerID, _ := uuid.Parse(req.PlayerID)
	amount, err := values.NewMoneyFromString(req.Amount)
	if err != nil {
		return nil, apperrors.NewValidationError("INVALID_AMOUNT", "amount is not a valid amount")
	}
	return eng.PlaceBid(r.Context(), engine.BidRequest{
		BidderID:    callerID,
		PlayerID:    playerID,
		Amount:      amount,
		ClientBidID: req.ClientBidID,
		Source:      "rest",
	})
}

func (h *Handler) handleVote(r *http.Request, eng *engine.Engine, callerID uuid.UUID) (*engine.Result, error) {
	var req voteRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, apperrors.NewValidationError("INVALID_BODY", "request body is not valid JSON")
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, apperrors.NewValidationError("INVALID_REQUEST", err.Error())
	}
	playerID, _ := uuid.Parse(req.PlayerID)
	return eng.Vote(r.Context(), callerID, playerID, vote.ValueFromString(req.Value))
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	snap, err := eng.Snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, snap)
}

// Routes registers the API surface on the mux. Auth wraps everything
// under /api/.
func (h *Handler) Routes(mux *http.ServeMux, auth *Auth) {
	api := http.NewServeMux()

	api.HandleFunc("POST /api/v1/auctions", h.handleCreateAuction)
	api.HandleFunc("GET /api/v1/auctions/{id}", h.handleSnapshot)

	api.HandleFunc("POST /api/v1/auctions/{id}/start", h.command(
		func(r *http.Request, eng *engine.Engine, callerID uuid.UUID) (*engine.Result, error) {
			return eng.Start(r.Context(), callerID)
		}))
	api.HandleFunc("POST /api/v1/auctions/{id}/stop", h.command(
		func(r *http.Request, eng *engine.Engine, callerID uuid.UUID) (*engine.Result, error) {
			return eng.Stop(r.Context(), callerID)
		}))
	api.HandleFunc("POST /api/v1/auctions/{id}/continue", h.command(
		func(r *http.Request, eng *engine.Engine, callerID uuid.UUID) (*engine.Result, error) {
			return eng.Continue(r.Context(), callerID)
		}))
	api.HandleFunc("POST /api/v1/auctions/{id}/final-call", h.command(
		func(r *http.Request, eng *engine.Engine, callerID uuid.UUID) (*engine.Result, error) {
			return eng.FinalCall(r.Context(), callerID)
		}))
	api.HandleFunc("POST /api/v1/auctions/{id}/undo", h.command(
		func(r *http.Request, eng *engine.Engine, callerID uuid.UUID) (*engine.Result, error) {
			return eng.Undo(r.Context(), callerID)
		}))
	api.HandleFunc("POST /api/v1/auctions/{id}/skip", h.command(h.handleSkip))
	api.HandleFunc("POST /api/v1/auctions/{id}/bids", h.command(h.handleBid))
	api.HandleFunc("POST /api/v1/auctions/{id}/votes", h.command(h.handleVote))

	mux.Handle("/api/", auth.Middleware(api))
}
