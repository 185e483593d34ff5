// Package store persists table records: configuration and the number of
// players currently seated.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lox/pokerface/internal/game"
)

var (
	ErrNotFound      = errors.New("table not found")
	ErrDuplicateName = errors.New("table name already in use")
	ErrInvalidRecord = errors.New("invalid table record")
)

// TableRecord is the persisted form of a table.
type TableRecord struct {
	ID             int    `json:"id" toml:"id"`
	Name           string `json:"name" toml:"name"`
	Ante           int    `json:"ante" toml:"ante"`
	SmallBlind     int    `json:"small_blind" toml:"small_blind"`
	BigBlind       int    `json:"big_blind" toml:"big_blind"`
	MinBet         int    `json:"min_bet" toml:"min_bet"`
	MaxBet         int    `json:"max_bet" toml:"max_bet"`
	MaxSeats       int    `json:"max_seats" toml:"max_seats"`
	CurrentPlayers int    `json:"current_players" toml:"current_players"`
}

// Config returns the game configuration held by the record.
func (r TableRecord) Config() game.Config {
	return game.Config{
		Ante:       r.Ante,
		SmallBlind: r.SmallBlind,
		BigBlind:   r.BigBlind,
		MinBet:     r.MinBet,
		MaxBet:     r.MaxBet,
		MaxSeats:   r.MaxSeats,
	}
}

// SetConfig copies cfg into the record.
func (r *TableRecord) SetConfig(cfg game.Config) {
	r.Ante = cfg.Ante
	r.SmallBlind = cfg.SmallBlind
	r.BigBlind = cfg.BigBlind
	r.MinBet = cfg.MinBet
	r.MaxBet = cfg.MaxBet
	r.MaxSeats = cfg.MaxSeats
}

// Validate checks the name and stakes of the record.
func (r TableRecord) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}
	if err := r.Config().Validate(); err != nil {
		return fmt.Errorf("%w: table %q: %w", ErrInvalidRecord, r.Name, err)
	}
	if r.CurrentPlayers < 0 || r.CurrentPlayers > r.MaxSeats {
		return fmt.Errorf("%w: table %q has %d players for %d seats", ErrInvalidRecord, r.Name, r.CurrentPlayers, r.MaxSeats)
	}
	return nil
}

// Store loads and saves table records. Implementations are safe for
// concurrent use.
type Store interface {
	List(ctx context.Context) ([]TableRecord, error)
	Get(ctx context.Context, id int) (TableRecord, error)
	// Save inserts the record when its ID is 0 and returns it with the
	// assigned ID, otherwise it replaces the existing record.
	Save(ctx context.Context, rec TableRecord) (TableRecord, error)
	Delete(ctx context.Context, id int) error
	SetOccupancy(ctx context.Context, id, players int) error
}

// SortedTables returns the records ordered by name, then ID.
func SortedTables(records []TableRecord) []TableRecord {
	out := make([]TableRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// IsNameUnique reports whether no record other than excludeID uses name,
// ignoring case.
func IsNameUnique(records []TableRecord, name string, excludeID int) bool {
	for _, r := range records {
		if r.ID != excludeID && strings.EqualFold(r.Name, name) {
			return false
		}
	}
	return true
}

// NextID returns one more than the highest ID in records.
func NextID(records []TableRecord) int {
	id := 0
	for _, r := range records {
		id = max(id, r.ID)
	}
	return id + 1
}

// NewRecord returns a record named name with the default stakes and the
// next free ID.
func NewRecord(records []TableRecord, name string) TableRecord {
	rec := TableRecord{ID: NextID(records), Name: name}
	rec.SetConfig(game.DefaultConfig())
	return rec
}

// prepareSave validates rec against the existing records and assigns an ID
// to new records. It is shared by the implementations.
func prepareSave(existing []TableRecord, rec TableRecord) (TableRecord, error) {
	if err := rec.Validate(); err != nil {
		return TableRecord{}, err
	}
	if rec.ID != 0 {
		found := false
		for _, r := range existing {
			if r.ID == rec.ID {
				found = true
				break
			}
		}
		if !found {
			return TableRecord{}, fmt.Errorf("%w: id %d", ErrNotFound, rec.ID)
		}
	}
	if !IsNameUnique(existing, rec.Name, rec.ID) {
		return TableRecord{}, fmt.Errorf("%w: %q", ErrDuplicateName, rec.Name)
	}
	if rec.ID == 0 {
		rec.ID = NextID(existing)
	}
	return rec, nil
}
