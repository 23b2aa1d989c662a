package engine

import "context"

type Game struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	ShoeID    *int64  `json:"shoe_id"`
	PlayerIDs []int64 `json:"player_ids"`
}

// Shoe is the game-scoped pool of undealt cards. GameID never changes once
// the shoe is created.
type Shoe struct {
	ID      int64 `json:"id"`
	GameID  int64 `json:"game_id"`
	Cards   Cards `json:"cards"`
	Version int64 `json:"version"`
}

type Player struct {
	ID      int64  `json:"id"`
	GameID  int64  `json:"game_id"`
	Name    string `json:"name"`
	Hand    Cards  `json:"hand"`
	Version int64  `json:"version"`
}

type PlayerValue struct {
	Player Player `json:"player"`
	Value  int    `json:"value"`
}

// Store is the persistence collaborator. Find and Delete report a missing
// record with ErrNotFound. Save inserts when ID is zero; otherwise it updates
// the record if its Version is current (ErrConflict if not) and bumps Version.
type Store interface {
	// Tx runs fn as one atomic unit. fn must use the Store it is handed.
	Tx(ctx context.Context, fn func(Store) error) error

	SaveGame(ctx context.Context, g *Game) error
	FindGame(ctx context.Context, id int64) (*Game, error)
	DeleteGame(ctx context.Context, id int64) error

	SaveShoe(ctx context.Context, s *Shoe) error
	FindShoe(ctx context.Context, id int64) (*Shoe, error)
	// GameShoe returns the game's shoe, ErrNotFound if it has none.
	GameShoe(ctx context.Context, gameID int64) (*Shoe, error)

	SavePlayer(ctx context.Context, p *Player) error
	FindPlayer(ctx context.Context, id int64) (*Player, error)
	DeletePlayer(ctx context.Context, id int64) error
	GamePlayers(ctx context.Context, gameID int64) ([]Player, error)
}

// Change describes a successful mutation, handed to the Notifier once the
// write is committed.
type Change struct {
	Kind     string   `json:"kind"` // deck_added | shuffled | dealt
	GameID   int64    `json:"game_id"`
	ShoeID   int64    `json:"shoe_id"`
	PlayerID int64    `json:"player_id,omitempty"`
	Cards    []string `json:"cards,omitempty"`
}

const (
	ChangeDeckAdded = "deck_added"
	ChangeShuffled  = "shuffled"
	ChangeDealt     = "dealt"
)

type Notifier interface {
	Notify(ctx context.Context, c Change) error
}
