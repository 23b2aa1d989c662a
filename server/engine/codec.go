package engine

import "strings"

// Cards is an ordered run of cards: draw order for a shoe, acquisition order
// for a hand.
type Cards []Card

// Decode splits a persisted card column into tokens. An empty column is an
// empty sequence, so Decode(Encode(toks)) gives comma-free toks back except
// for a lone empty token, which comes back as nothing. No card token is empty.
func Decode(text string) []string {
	if text == "" {
		return []string{}
	}
	return strings.Split(text, ",")
}

func Encode(tokens []string) string { return strings.Join(tokens, ",") }

// DecodeCards decodes and parses a card column.
func DecodeCards(text string) (Cards, error) {
	toks := Decode(text)
	out := make(Cards, 0, len(toks))
	for _, t := range toks {
		c, err := ParseCard(t)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func EncodeCards(cs Cards) string { return Encode(cs.Tokens()) }

func (cs Cards) Tokens() []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}

func (cs Cards) String() string { return EncodeCards(cs) }

// Value sums rank values.
func (cs Cards) Value() int {
	v := 0
	for _, c := range cs {
		v += c.Rank.Value()
	}
	return v
}

func (cs Cards) clone() Cards {
	out := make(Cards, len(cs))
	copy(out, cs)
	return out
}
