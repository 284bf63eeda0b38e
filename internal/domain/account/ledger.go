package account

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/draftroom/squad-auction-backend/internal/domain/errors"
	"github.com/draftroom/squad-auction-backend/internal/domain/values"
)

// Ledger is the authoritative balance projection for the managers of one
// auction. All calls arrive from inside the engine's serialized command
// flow; commit still takes a short per-manager lock so the invariant
// survives a future where a manager bids in more than one auction.
type Ledger struct {
	managers map[uuid.UUID]*Manager

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewLedger() *Ledger {
	return &Ledger{
		managers: make(map[uuid.UUID]*Manager),
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

// Register adds a manager projection to the ledger.
func (l *Ledger) Register(m *Manager) {
	l.managers[m.ID] = m
}

// Get returns the manager projection.
func (l *Ledger) Get(managerID uuid.UUID) (*Manager, error) {
	m, ok := l.managers[managerID]
	if !ok {
		return nil, errors.ErrUnknownManager
	}
	return m, nil
}

// Managers returns every registered projection.
func (l *Ledger) Managers() []*Manager {
	out := make([]*Manager, 0, len(l.managers))
	for _, m := range l.managers {
		out = append(out, m)
	}
	return out
}

// AvailableFor returns the manager's spendable balance.
func (l *Ledger) AvailableFor(managerID uuid.UUID) (values.Money, error) {
	m, err := l.Get(managerID)
	if err != nil {
		return values.Money{}, err
	}
	return m.Available(), nil
}

// Reserve holds amount against the player for the manager, replacing any
// prior reservation on the same player. The replacement must still leave
// the manager solvent.
func (l *Ledger) Reserve(managerID uuid.UUID, amount values.Money, playerID uuid.UUID) error {
	m, err := l.Get(managerID)
	if err != nil {
		return err
	}

	prior := m.ReservationOn(playerID)
	headroom := m.Available().Add(prior)
	if headroom.LessThan(amount) {
		return errors.ErrInsufficientBalance
	}

	m.reservations[playerID] = amount
	m.UpdatedAt = time.Now()
	return nil
}

// ReleaseReservation drops the manager's hold on the player.
func (l *Ledger) ReleaseReservation(managerID, playerID uuid.UUID) error {
	m, err := l.Get(managerID)
	if err != nil {
		return err
	}
	delete(m.reservations, playerID)
	m.UpdatedAt = time.Now()
	return nil
}

// Commit moves the reservation on the player into spent and records the
// won player. amount must equal the standing reservation.
func (l *Ledger) Commit(managerID uuid.UUID, amount values.Money, playerID uuid.UUID) error {
	m, err := l.Get(managerID)
	if err != nil {
		return err
	}

	lock := l.managerLock(managerID)
	lock.Lock()
	defer lock.Unlock()

	delete(m.reservations, playerID)
	m.Spent = m.Spent.Add(amount)
	m.WonPlayers = append(m.WonPlayers, playerID)
	m.UpdatedAt = time.Now()
	return nil
}

// RevertCommit undoes a Commit that could not be journaled: the spend is
// rolled back and the reservation restored.
func (l *Ledger) RevertCommit(managerID uuid.UUID, amount values.Money, playerID uuid.UUID) error {
	m, err := l.Get(managerID)
	if err != nil {
		return err
	}

	lock := l.managerLock(managerID)
	lock.Lock()
	defer lock.Unlock()

	m.Spent = m.Spent.Sub(amount)
	for i, id := range m.WonPlayers {
		if id == playerID {
			m.WonPlayers = append(m.WonPlayers[:i], m.WonPlayers[i+1:]...)
			break
		}
	}
	m.reservations[playerID] = amount
	m.UpdatedAt = time.Now()
	return nil
}

func (l *Ledger) managerLock(managerID uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[managerID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[managerID] = lock
	}
	return lock
}
