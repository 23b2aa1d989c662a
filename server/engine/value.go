package engine

import (
	"cmp"
	"context"
	"slices"
)

// ValueOf is the sum of the rank values in the player's hand.
func ValueOf(p Player) int { return p.Hand.Value() }

// RankedPlayers lists the game's players by hand value, highest first; equal
// values are ordered by name.
func (e *Engine) RankedPlayers(ctx context.Context, gameID int64) ([]PlayerValue, error) {
	if _, err := e.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	players, err := e.store.GamePlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	out := make([]PlayerValue, 0, len(players))
	for _, p := range players {
		out = append(out, PlayerValue{Player: p, Value: ValueOf(p)})
	}
	slices.SortStableFunc(out, func(a, b PlayerValue) int {
		if a.Value != b.Value {
			return cmp.Compare(b.Value, a.Value)
		}
		return cmp.Compare(a.Player.Name, b.Player.Name)
	})
	return out, nil
}
