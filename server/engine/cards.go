package engine

import (
	"fmt"
	"strconv"
)

// Rank is a card's face value, Ace=1 through King=13.
type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

var rankNames = [...]string{"", "Ace", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine", "Ten", "Jack", "Queen", "King"}

func RankFromValue(v int) (Rank, bool) {
	if v < int(Ace) || v > int(King) {
		return 0, false
	}
	return Rank(v), true
}

func (r Rank) Value() int { return int(r) }

func (r Rank) Valid() bool { return r >= Ace && r <= King }

func (r Rank) String() string {
	if !r.Valid() {
		return "Rank(" + strconv.Itoa(int(r)) + ")"
	}
	return rankNames[r]
}

func (r Rank) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: rank %d", ErrCorruptCardData, int(r))
	}
	return []byte(rankNames[r]), nil
}

func (r *Rank) UnmarshalText(b []byte) error {
	for i := Ace; i <= King; i++ {
		if rankNames[i] == string(b) {
			*r = i
			return nil
		}
	}
	return fmt.Errorf("%w: rank %q", ErrCorruptCardData, b)
}

// Suit values follow the canonical order: a standard deck is appended in this
// order and remaining cards are listed in it.
type Suit int

const (
	Hearts Suit = iota
	Spades
	Clubs
	Diamonds
)

// Suits in canonical order.
var Suits = [...]Suit{Hearts, Spades, Clubs, Diamonds}

var (
	suitSymbols = [...]byte{'H', 'S', 'C', 'D'}
	suitNames   = [...]string{"Hearts", "Spades", "Clubs", "Diamonds"}
)

func SuitFromSymbol(sym string) (Suit, bool) {
	if len(sym) != 1 {
		return 0, false
	}
	for i, b := range suitSymbols {
		if b == sym[0] {
			return Suit(i), true
		}
	}
	return 0, false
}

func SuitFromName(name string) (Suit, bool) {
	for i, n := range suitNames {
		if n == name {
			return Suit(i), true
		}
	}
	return 0, false
}

func (s Suit) Valid() bool { return s >= Hearts && s <= Diamonds }

func (s Suit) Symbol() string {
	if !s.Valid() {
		return "?"
	}
	return string(suitSymbols[s])
}

func (s Suit) String() string {
	if !s.Valid() {
		return "Suit(" + strconv.Itoa(int(s)) + ")"
	}
	return suitNames[s]
}

// MarshalText lets a Suit key a JSON object, as CountsBySuit does.
func (s Suit) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: suit %d", ErrCorruptCardData, int(s))
	}
	return []byte(suitNames[s]), nil
}

func (s *Suit) UnmarshalText(b []byte) error {
	v, ok := SuitFromName(string(b))
	if !ok {
		return fmt.Errorf("%w: suit %q", ErrCorruptCardData, b)
	}
	*s = v
	return nil
}

type Card struct {
	Rank Rank `json:"card"`
	Suit Suit `json:"suit"`
} // e.g. "S13" => King of Spades

// String is the persisted token form, <suit-symbol><rank-value>.
func (c Card) String() string {
	return c.Suit.Symbol() + strconv.Itoa(int(c.Rank))
}

// ParseCard reads one token. Unknown symbols and ranks outside 1..13 fail
// with ErrCorruptCardData.
func ParseCard(tok string) (Card, error) {
	if len(tok) < 2 {
		return Card{}, fmt.Errorf("%w: token %q", ErrCorruptCardData, tok)
	}
	s, ok := SuitFromSymbol(tok[:1])
	if !ok {
		return Card{}, fmt.Errorf("%w: token %q has unknown suit", ErrCorruptCardData, tok)
	}
	v, err := strconv.Atoi(tok[1:])
	if err != nil || strconv.Itoa(v) != tok[1:] {
		return Card{}, fmt.Errorf("%w: token %q has non-numeric rank", ErrCorruptCardData, tok)
	}
	r, ok := RankFromValue(v)
	if !ok {
		return Card{}, fmt.Errorf("%w: token %q has rank out of range", ErrCorruptCardData, tok)
	}
	return Card{Rank: r, Suit: s}, nil
}

// StandardDeck returns the 52 cards suit by suit in canonical order, ranks
// ascending within each suit. Every call yields the same sequence.
func StandardDeck() Cards {
	deck := make(Cards, 0, 52)
	for _, s := range Suits {
		for r := Ace; r <= King; r++ {
			deck = append(deck, Card{Rank: r, Suit: s})
		}
	}
	return deck
}
