package engine

import (
	"errors"
	"slices"
	"testing"
)

func TestDecodeEmpty(t *testing.T) {
	got := Decode("")
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
	if Encode([]string{}) != "" {
		t.Fatalf("expected empty encoding")
	}
}

func TestCodecRoundTrip(t *testing.T) {
	cases := [][]string{
		{"H4"},
		{"H4", "D10", "S3", "C13", "D1", "H7"},
		{"x", "", "yy"},
	}
	for _, toks := range cases {
		if got := Decode(Encode(toks)); !slices.Equal(got, toks) {
			t.Fatalf("round trip of %v gave %v", toks, got)
		}
	}
	// A lone empty token encodes like no tokens at all.
	if got := Decode(Encode([]string{""})); len(got) != 0 {
		t.Fatalf("expected an empty sequence, got %q", got)
	}
}

func TestCardsColumnIsPreservedByteForByte(t *testing.T) {
	const col = "H4,D10,S3,C13,D1,H7"
	cs, err := DecodeCards(col)
	if err != nil {
		t.Fatal(err)
	}
	if len(cs) != 6 || cs[1] != (Card{Rank: Ten, Suit: Diamonds}) {
		t.Fatalf("unexpected decode %v", cs)
	}
	if got := EncodeCards(cs); got != col {
		t.Fatalf("EncodeCards = %q, want %q", got, col)
	}
	if cs.Value() != 4+10+3+13+1+7 {
		t.Fatalf("unexpected value %d", cs.Value())
	}
}

func TestDecodeCardsRejectsCorruptColumn(t *testing.T) {
	if _, err := DecodeCards("H4,Q9"); !errors.Is(err, ErrCorruptCardData) {
		t.Fatalf("expected ErrCorruptCardData, got %v", err)
	}
	if _, err := DecodeCards("H4,"); !errors.Is(err, ErrCorruptCardData) {
		t.Fatalf("expected trailing comma to be corrupt, got %v", err)
	}
}

func TestShuffleSwapsFromTheBack(t *testing.T) {
	cs, _ := DecodeCards("H1,H2,H3")
	shuffle(cs, func(int) int { return 0 })
	if got := cs.String(); got != "H2,H3,H1" {
		t.Fatalf("unexpected permutation %s", got)
	}

	cs, _ = DecodeCards("H1,H2,H3,H4")
	var bounds []int
	shuffle(cs, func(n int) int { bounds = append(bounds, n); return n - 1 })
	if got := cs.String(); got != "H1,H2,H3,H4" {
		t.Fatalf("picking j=i must leave order alone, got %s", got)
	}
	if !slices.Equal(bounds, []int{4, 3, 2}) {
		t.Fatalf("unexpected intn bounds %v", bounds)
	}
}

func TestCompareForListing(t *testing.T) {
	cs, _ := DecodeCards("D13,H2,H10,S1")
	slices.SortFunc(cs, compareForListing)
	if got := cs.String(); got != "H10,H2,S1,D13" {
		t.Fatalf("unexpected listing order %s", got)
	}
}
