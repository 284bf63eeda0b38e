package auction

import (
	"time"

	"github.com/google/uuid"
)

// Auction is the session aggregate: the status machine, the ordered
// category queues and the cursor pointing at the player currently open
// for bidding. All mutation happens inside the engine's serialized
// command flow, so the aggregate itself carries no locking.
type Auction struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	AdminID uuid.UUID `json:"admin_id"`
	Status  Status    `json:"status"`
	Config  Config    `json:"config"`

	// Queues holds ordered player IDs per category, keyed by the tags in
	// Config.CategoryOrder.
	Queues  map[string][]uuid.UUID `json:"queues"`
	Players map[uuid.UUID]*Player  `json:"players"`

	// Managers is the roster of bidder IDs admitted to this auction.
	Managers []uuid.UUID `json:"managers"`

	Cursor Cursor `json:"cursor"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cursor identifies the session position: which category, which index in
// its queue, and the player at that slot.
type Cursor struct {
	CategoryIndex int       `json:"category_index"`
	PlayerIndex   int       `json:"player_index"`
	PlayerID      uuid.UUID `json:"player_id"`
}

type Status int

const (
	StatusDraft Status = iota
	StatusOngoing
	StatusPaused
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusOngoing:
		return "ongoing"
	case StatusPaused:
		return "paused"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// StatusFromString parses a persisted status tag.
func StatusFromString(s string) Status {
	switch s {
	case "ongoing":
		return StatusOngoing
	case "paused":
		return StatusPaused
	case "completed":
		return StatusCompleted
	default:
		return StatusDraft
	}
}

func New(name string, adminID uuid.UUID, cfg Config) *Auction {
	now := time.Now()
	cfg = cfg.Normalize()
	return &Auction{
		ID:        uuid.New(),
		Name:      name,
		AdminID:   adminID,
		Status:    StatusDraft,
		Config:    cfg,
		Queues:    make(map[string][]uuid.UUID),
		Players:   make(map[uuid.UUID]*Player),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddPlayer appends a player to its category queue. Draft-only.
func (a *Auction) AddPlayer(p *Player) {
	a.Players[p.ID] = p
	a.Queues[p.Category] = append(a.Queues[p.Category], p.ID)
	a.UpdatedAt = time.Now()
}

// AddManager admits a bidder to the roster.
func (a *Auction) AddManager(managerID uuid.UUID) {
	for _, id := range a.Managers {
		if id == managerID {
			return
		}
	}
	a.Managers = append(a.Managers, managerID)
	a.UpdatedAt = time.Now()
}

// HasManager reports roster membership.
func (a *Auction) HasManager(managerID uuid.UUID) bool {
	for _, id := range a.Managers {
		if id == managerID {
			return true
		}
	}
	return false
}

// PlayerCount reports how many players are queued across all categories.
func (a *Auction) PlayerCount() int {
	n := 0
	for _, q := range a.Queues {
		n += len(q)
	}
	return n
}

// CurrentPlayer returns the player under the cursor, nil when the cursor
// is unset.
func (a *Auction) CurrentPlayer() *Player {
	if a.Cursor.PlayerID == uuid.Nil {
		return nil
	}
	return a.Players[a.Cursor.PlayerID]
}

// ResetCursor positions the cursor on the first player of the first
// non-empty category. Returns false when every queue is empty.
func (a *Auction) ResetCursor() bool {
	for ci, cat := range a.Config.CategoryOrder {
		if q := a.Queues[cat]; len(q) > 0 {
			a.Cursor = Cursor{CategoryIndex: ci, PlayerIndex: 0, PlayerID: q[0]}
			return true
		}
	}
	return false
}

// Advance moves the cursor to the next player. completedCategory is set
// when the move drained the current category, done when every category is
// drained.
func (a *Auction) Advance() (completedCategory string, done bool) {
	cat := a.Config.CategoryOrder[a.Cursor.CategoryIndex]
	next := a.Cursor.PlayerIndex + 1
	if next < len(a.Queues[cat]) {
		a.Cursor.PlayerIndex = next
		a.Cursor.PlayerID = a.Queues[cat][next]
		return "", false
	}

	completedCategory = cat
	for ci := a.Cursor.CategoryIndex + 1; ci < len(a.Config.CategoryOrder); ci++ {
		nextCat := a.Config.CategoryOrder[ci]
		if q := a.Queues[nextCat]; len(q) > 0 {
			a.Cursor = Cursor{CategoryIndex: ci, PlayerIndex: 0, PlayerID: q[0]}
			return completedCategory, false
		}
	}

	a.Cursor.PlayerID = uuid.Nil
	return completedCategory, true
}

// CurrentCategory returns the category tag under the cursor.
func (a *Auction) CurrentCategory() string {
	if a.Cursor.CategoryIndex >= len(a.Config.CategoryOrder) {
		return ""
	}
	return a.Config.CategoryOrder[a.Cursor.CategoryIndex]
}

// MarkOngoing transitions draft or paused into ongoing.
func (a *Auction) MarkOngoing() {
	a.Status = StatusOngoing
	a.UpdatedAt = time.Now()
}

// MarkPaused freezes an ongoing session.
func (a *Auction) MarkPaused() {
	a.Status = StatusPaused
	a.UpdatedAt = time.Now()
}

// MarkCompleted terminates the session.
func (a *Auction) MarkCompleted() {
	a.Status = StatusCompleted
	a.Cursor.PlayerID = uuid.Nil
	a.UpdatedAt = time.Now()
}
