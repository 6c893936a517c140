// Package position owns the set of open positions, one per symbol at most.
package position

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrAlreadyOpen is returned when opening a symbol that is already held.
	ErrAlreadyOpen = errors.New("position already open")
	// ErrNotOpen is returned when closing a symbol that is flat.
	ErrNotOpen = errors.New("position not open")
)

// Position is an open trade. It is never mutated after Open.
type Position struct {
	Symbol     string    `json:"symbol"`
	EntryPrice float64   `json:"entry_price"`
	Quantity   float64   `json:"quantity"`
	OpenedAt   time.Time `json:"opened_at"`
}

// UnrealizedPnL marks the position at price.
func (p Position) UnrealizedPnL(price float64) float64 {
	return (price - p.EntryPrice) * p.Quantity
}

// Store maps symbols to open positions. Absence means flat.
type Store struct {
	mu        sync.RWMutex
	positions map[string]Position
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{positions: make(map[string]Position)}
}

// Open records a confirmed entry fill.
func (s *Store) Open(symbol string, entryPrice, quantity float64, ts time.Time) error {
	if entryPrice <= 0 || quantity <= 0 {
		return fmt.Errorf("open %s: entry price and quantity must be positive", symbol)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[symbol]; ok {
		return fmt.Errorf("open %s: %w", symbol, ErrAlreadyOpen)
	}
	s.positions[symbol] = Position{Symbol: symbol, EntryPrice: entryPrice, Quantity: quantity, OpenedAt: ts}
	return nil
}

// Close removes the position after a confirmed exit fill and returns what was held.
func (s *Store) Close(symbol string) (Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[symbol]
	if !ok {
		return Position{}, fmt.Errorf("close %s: %w", symbol, ErrNotOpen)
	}
	delete(s.positions, symbol)
	return pos, nil
}

// Get returns the open position for symbol, if any.
func (s *Store) Get(symbol string) (Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.positions[symbol]
	return pos, ok
}

// Snapshot returns a copy of every open position sorted by symbol.
func (s *Store) Snapshot() []Position {
	s.mu.RLock()
	out := make([]Position, 0, len(s.positions))
	for _, pos := range s.positions {
		out = append(out, pos)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Len returns the number of open positions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.positions)
}
