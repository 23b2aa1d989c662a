package engine

import (
	"context"
	"log"
	"math/rand/v2"
	"slices"
)

type Engine struct {
	store    Store
	notifier Notifier
	intn     func(n int) int
}

type Option func(Engine) Engine

// WithNotifier publishes committed changes to n.
func WithNotifier(n Notifier) Option {
	return func(e Engine) Engine {
		e.notifier = n
		return e
	}
}

// WithRand replaces the shuffle's index source; intn(n) must return a value
// in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(e Engine) Engine {
		e.intn = intn
		return e
	}
}

func New(st Store, opts ...Option) *Engine {
	e := Engine{store: st, intn: rand.IntN}
	for _, opt := range opts {
		e = opt(e)
	}
	return &e
}

/* -----------------------------
   Games
------------------------------*/

func (e *Engine) CreateGame(ctx context.Context, name string) (*Game, error) {
	g := &Game{Name: name}
	if err := e.store.SaveGame(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (e *Engine) GetGame(ctx context.Context, id int64) (*Game, error) {
	g, err := e.store.FindGame(ctx, id)
	if err != nil {
		return nil, missing(err, ErrGameNotFound, id)
	}
	return g, nil
}

func (e *Engine) DeleteGame(ctx context.Context, id int64) error {
	return missing(e.store.DeleteGame(ctx, id), ErrGameNotFound, id)
}

/* -----------------------------
   Shoe
------------------------------*/

// CreateShoe does not check for an existing shoe; callers that want one shoe
// per game reject with ErrGameAlreadyHasShoe themselves.
func (e *Engine) CreateShoe(ctx context.Context, gameID int64) (*Shoe, error) {
	if _, err := e.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	s := &Shoe{GameID: gameID, Cards: Cards{}}
	if err := e.store.SaveShoe(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (e *Engine) GetShoe(ctx context.Context, id int64) (*Shoe, error) {
	return findShoe(ctx, e.store, id)
}

// GameShoe resolves a game's shoe.
func (e *Engine) GameShoe(ctx context.Context, gameID int64) (*Shoe, error) {
	if _, err := e.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	return gameShoe(ctx, e.store, gameID)
}

// AddDeck appends one standard deck after the cards already in the shoe.
func (e *Engine) AddDeck(ctx context.Context, shoeID int64) error {
	var gameID int64
	err := e.store.Tx(ctx, func(st Store) error {
		s, err := findShoe(ctx, st, shoeID)
		if err != nil {
			return err
		}
		gameID = s.GameID
		s.Cards = append(s.Cards, StandardDeck()...)
		return st.SaveShoe(ctx, s)
	})
	if err != nil {
		return err
	}
	e.notify(ctx, Change{Kind: ChangeDeckAdded, GameID: gameID, ShoeID: shoeID})
	return nil
}

// Shuffle permutes the shoe in place. An empty shoe is left untouched and
// nothing is written.
func (e *Engine) Shuffle(ctx context.Context, shoeID int64) error {
	var gameID int64
	wrote := false
	err := e.store.Tx(ctx, func(st Store) error {
		s, err := findShoe(ctx, st, shoeID)
		if err != nil {
			return err
		}
		if len(s.Cards) == 0 {
			return nil
		}
		gameID = s.GameID
		shuffle(s.Cards, e.intn)
		wrote = true
		return st.SaveShoe(ctx, s)
	})
	if err != nil {
		return err
	}
	if wrote {
		e.notify(ctx, Change{Kind: ChangeShuffled, GameID: gameID, ShoeID: shoeID})
	}
	return nil
}

// Fisher–Yates, from the back.
func shuffle(cs Cards, intn func(int) int) {
	for i := len(cs) - 1; i > 0; i-- {
		j := intn(i + 1)
		cs[i], cs[j] = cs[j], cs[i]
	}
}

// CountsBySuit has a key only for suits with cards left.
func (e *Engine) CountsBySuit(ctx context.Context, shoeID int64) (map[Suit]int, error) {
	s, err := findShoe(ctx, e.store, shoeID)
	if err != nil {
		return nil, err
	}
	counts := make(map[Suit]int)
	for _, c := range s.Cards {
		counts[c.Suit]++
	}
	return counts, nil
}

// CardsLeft lists the shoe suit by suit in canonical order, highest rank
// first within a suit.
func (e *Engine) CardsLeft(ctx context.Context, shoeID int64) (Cards, error) {
	s, err := findShoe(ctx, e.store, shoeID)
	if err != nil {
		return nil, err
	}
	out := s.Cards.clone()
	slices.SortStableFunc(out, compareForListing)
	return out, nil
}

// Suits ascend and ranks descend, so H10,H9,S12,S4,D13,D1 is already in
// listing order. Hearts stay first.
func compareForListing(a, b Card) int {
	if a.Suit != b.Suit {
		return int(a.Suit) - int(b.Suit)
	}
	return int(b.Rank) - int(a.Rank)
}

/* -----------------------------
   Players
------------------------------*/

func (e *Engine) CreatePlayer(ctx context.Context, gameID int64, name string) (*Player, error) {
	if _, err := e.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	p := &Player{GameID: gameID, Name: name, Hand: Cards{}}
	if err := e.store.SavePlayer(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (e *Engine) GetPlayer(ctx context.Context, id int64) (*Player, error) {
	return findPlayer(ctx, e.store, id)
}

// DeletePlayer removes the player and detaches it from its game.
func (e *Engine) DeletePlayer(ctx context.Context, id int64) error {
	return missing(e.store.DeletePlayer(ctx, id), ErrPlayerNotFound, id)
}

// Hand returns the player's cards in the order they were dealt.
func (e *Engine) Hand(ctx context.Context, playerID int64) (Cards, error) {
	p, err := findPlayer(ctx, e.store, playerID)
	if err != nil {
		return nil, err
	}
	return p.Hand, nil
}

// Deal moves up to n cards from the front of the player's game shoe to the
// end of the player's hand and returns them. Asking for more than the shoe
// holds deals what is there. An empty shoe writes nothing; otherwise both
// records are saved together, even when n <= 0.
func (e *Engine) Deal(ctx context.Context, playerID int64, n int) (Cards, error) {
	var (
		dealt Cards
		shoe  *Shoe
	)
	err := e.store.Tx(ctx, func(st Store) error {
		p, err := findPlayer(ctx, st, playerID)
		if err != nil {
			return err
		}
		s, err := gameShoe(ctx, st, p.GameID)
		if err != nil {
			return err
		}
		if len(s.Cards) == 0 {
			return nil
		}
		k := min(max(n, 0), len(s.Cards))
		dealt = s.Cards[:k].clone()
		p.Hand = append(p.Hand.clone(), dealt...)
		s.Cards = s.Cards[k:].clone()
		if err := st.SaveShoe(ctx, s); err != nil {
			return err
		}
		if err := st.SavePlayer(ctx, p); err != nil {
			return err
		}
		shoe = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	if shoe != nil {
		e.notify(ctx, Change{Kind: ChangeDealt, GameID: shoe.GameID, ShoeID: shoe.ID, PlayerID: playerID, Cards: dealt.Tokens()})
	}
	if dealt == nil {
		dealt = Cards{}
	}
	return dealt, nil
}

/* -----------------------------
   helpers
------------------------------*/

func findShoe(ctx context.Context, st Store, id int64) (*Shoe, error) {
	s, err := st.FindShoe(ctx, id)
	if err != nil {
		return nil, missing(err, ErrShoeNotFound, id)
	}
	return s, nil
}

func findPlayer(ctx context.Context, st Store, id int64) (*Player, error) {
	p, err := st.FindPlayer(ctx, id)
	if err != nil {
		return nil, missing(err, ErrPlayerNotFound, id)
	}
	return p, nil
}

func gameShoe(ctx context.Context, st Store, gameID int64) (*Shoe, error) {
	s, err := st.GameShoe(ctx, gameID)
	if err != nil {
		return nil, missing(err, ErrGameWithoutShoe, gameID)
	}
	return s, nil
}

func (e *Engine) notify(ctx context.Context, c Change) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, c); err != nil {
		log.Printf("notify %s (shoe %d) failed: %v", c.Kind, c.ShoeID, err)
	}
}
