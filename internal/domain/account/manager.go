package account

import (
	"time"

	"github.com/google/uuid"

	"github.com/draftroom/squad-auction-backend/internal/domain/values"
)

// Manager is the balance projection for one bidder: initial budget, the
// sum spent on won players, and the reservation held while being the
// current high bidder on an active player.
type Manager struct {
	ID             uuid.UUID    `json:"id"`
	Name           string       `json:"name"`
	InitialBalance values.Money `json:"initial_balance"`
	Spent          values.Money `json:"spent"`

	// WonPlayers lists playerIDs committed to this manager.
	WonPlayers []uuid.UUID `json:"won_players"`

	// reservations keys by playerID; at most one per player, replaced on
	// every outbid of oneself... which PlaceBid forbids, so in practice a
	// replace happens only through Reserve after an Undo rebuild.
	reservations map[uuid.UUID]values.Money

	UpdatedAt time.Time `json:"updated_at"`
}

func NewManager(id uuid.UUID, name string, initialBalance values.Money) *Manager {
	return &Manager{
		ID:             id,
		Name:           name,
		InitialBalance: initialBalance,
		Spent:          values.Zero(),
		reservations:   make(map[uuid.UUID]values.Money),
		UpdatedAt:      time.Now(),
	}
}

// Available is initial - spent - total reserved. Never negative after an
// accepted command.
func (m *Manager) Available() values.Money {
	avail := m.InitialBalance.Sub(m.Spent)
	for _, r := range m.reservations {
		avail = avail.Sub(r)
	}
	return avail
}

// ReservationOn returns the amount held against the given player.
func (m *Manager) ReservationOn(playerID uuid.UUID) values.Money {
	if r, ok := m.reservations[playerID]; ok {
		return r
	}
	return values.Zero()
}

// TotalReserved sums all outstanding reservations.
func (m *Manager) TotalReserved() values.Money {
	total := values.Zero()
	for _, r := range m.reservations {
		total = total.Add(r)
	}
	return total
}
