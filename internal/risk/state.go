package risk

import (
	"sort"
	"time"

	"github.com/rxtech-lab/argo-ladder/internal/types"
)

// StateVersion is written into snapshots and checked on load.
const StateVersion = "1.0.0"

// State is the mutable account and position book a Manager operates on. A
// State belongs to exactly one run and is not safe for concurrent use.
type State struct {
	Version           string                  `yaml:"version" json:"version"`
	Capital           float64                 `yaml:"capital" json:"capital"`
	InitialCapital    float64                 `yaml:"initial_capital" json:"initial_capital"`
	DailyStartCapital float64                 `yaml:"daily_start_capital" json:"daily_start_capital"`
	DailyPnL          float64                 `yaml:"daily_pnl" json:"daily_pnl"`
	CurrentDay        string                  `yaml:"current_day" json:"current_day"`
	Positions         map[int]*types.Position `yaml:"positions" json:"positions"`
	NextPositionID    int                     `yaml:"next_position_id" json:"next_position_id"`
	ClosedTrades      []types.Trade           `yaml:"closed_trades" json:"closed_trades"`
	DailyTrades       []types.Trade           `yaml:"daily_trades" json:"daily_trades"`
	// LastBarTime is the newest bar a live step has applied to this state.
	LastBarTime time.Time `yaml:"last_bar_time,omitempty" json:"last_bar_time,omitempty"`
	// BarsApplied counts live steps. It is the run-wide index of the next bar.
	BarsApplied int `yaml:"bars_applied,omitempty" json:"bars_applied,omitempty"`
}

// NewState returns an empty book funded with capital.
func NewState(capital float64) *State {
	return &State{
		Version:           StateVersion,
		Capital:           capital,
		InitialCapital:    capital,
		DailyStartCapital: capital,
		Positions:         make(map[int]*types.Position),
		NextPositionID:    1,
	}
}

// OpenPositionIDs returns the ids of open positions in ascending order.
func (s *State) OpenPositionIDs() []int {
	ids := make([]int, 0, len(s.Positions))
	for id := range s.Positions {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	return ids
}

// OpenPositions returns copies of the open positions in ascending id order.
func (s *State) OpenPositions() []types.Position {
	out := make([]types.Position, 0, len(s.Positions))
	for _, id := range s.OpenPositionIDs() {
		out = append(out, *s.Positions[id])
	}

	return out
}

// Position returns a copy of the open position with id.
func (s *State) Position(id int) (types.Position, bool) {
	p, ok := s.Positions[id]
	if !ok {
		return types.Position{}, false
	}

	return *p, true
}

// UnrealizedPnL marks every open position at price.
func (s *State) UnrealizedPnL(price float64) float64 {
	total := 0.0
	for _, id := range s.OpenPositionIDs() {
		total += s.Positions[id].UnrealizedPnL(price)
	}

	return total
}

// Equity is capital plus the unrealized profit of open positions at price.
func (s *State) Equity(price float64) float64 {
	return s.Capital + s.UnrealizedPnL(price)
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	out := *s
	out.Positions = make(map[int]*types.Position, len(s.Positions))

	for id, p := range s.Positions {
		cp := *p
		out.Positions[id] = &cp
	}

	out.ClosedTrades = append([]types.Trade(nil), s.ClosedTrades...)
	out.DailyTrades = append([]types.Trade(nil), s.DailyTrades...)

	return &out
}

// ensure repairs fields a zero or decoded State may lack.
func (s *State) ensure() {
	if s.Positions == nil {
		s.Positions = make(map[int]*types.Position)
	}

	if s.NextPositionID <= 0 {
		s.NextPositionID = 1
		for id := range s.Positions {
			if id >= s.NextPositionID {
				s.NextPositionID = id + 1
			}
		}
	}
}
