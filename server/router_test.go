package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"deckr/server/engine"
	"deckr/server/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(Router(engine.New(store.NewMemory())))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, b
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return v
}

func TestGameShoePlayerFlow(t *testing.T) {
	srv := newTestServer(t)
	api := srv.URL + "/api"

	code, b := do(t, http.MethodPost, api+"/game", `{"name":"friday"}`)
	if code != http.StatusCreated {
		t.Fatalf("create game: %d %s", code, b)
	}
	game := decode[engine.Game](t, b)
	gameURL := fmt.Sprintf("%s/game/%d", api, game.ID)

	if code, b = do(t, http.MethodGet, gameURL+"/shoe", ""); code != http.StatusPreconditionFailed {
		t.Fatalf("shoe before creation: expected 412, got %d %s", code, b)
	}
	if code, b = do(t, http.MethodPost, gameURL+"/shoe", ""); code != http.StatusCreated {
		t.Fatalf("create shoe: %d %s", code, b)
	}
	if code, b = do(t, http.MethodPost, gameURL+"/shoe", ""); code != http.StatusBadRequest {
		t.Fatalf("second shoe: expected 400, got %d %s", code, b)
	}
	if code, b = do(t, http.MethodPut, gameURL+"/shoe", ""); code != http.StatusNoContent {
		t.Fatalf("add deck: %d %s", code, b)
	}
	if code, b = do(t, http.MethodPatch, gameURL+"/shoe", ""); code != http.StatusNoContent {
		t.Fatalf("shuffle: %d %s", code, b)
	}

	code, b = do(t, http.MethodGet, gameURL+"/shoe/suits", "")
	if code != http.StatusOK {
		t.Fatalf("suits: %d %s", code, b)
	}
	counts := decode[struct {
		Counts map[string]int `json:"counts"`
	}](t, b)
	for _, s := range []string{"Hearts", "Spades", "Clubs", "Diamonds"} {
		if counts.Counts[s] != 13 {
			t.Fatalf("expected 13 %s, got %v", s, counts.Counts)
		}
	}

	code, b = do(t, http.MethodPost, api+"/player", fmt.Sprintf(`{"name":"ann","game":{"id":%d}}`, game.ID))
	if code != http.StatusCreated {
		t.Fatalf("create player: %d %s", code, b)
	}
	p := decode[engine.Player](t, b)
	playerURL := fmt.Sprintf("%s/player/%d", api, p.ID)

	if code, b = do(t, http.MethodPut, playerURL+"/hand?numCards=5", ""); code != http.StatusNoContent {
		t.Fatalf("deal: %d %s", code, b)
	}
	code, b = do(t, http.MethodGet, playerURL+"/hand", "")
	if code != http.StatusOK {
		t.Fatalf("hand: %d %s", code, b)
	}
	hand := decode[struct {
		Rows []json.RawMessage `json:"rows"`
	}](t, b)
	if len(hand.Rows) != 5 {
		t.Fatalf("expected 5 cards in hand, got %d", len(hand.Rows))
	}

	code, b = do(t, http.MethodGet, gameURL+"/shoe/cards", "")
	if code != http.StatusOK {
		t.Fatalf("cards left: %d %s", code, b)
	}
	left := decode[struct {
		Rows []json.RawMessage `json:"rows"`
	}](t, b)
	if len(left.Rows) != 47 {
		t.Fatalf("expected 47 cards left, got %d", len(left.Rows))
	}

	code, b = do(t, http.MethodGet, gameURL+"/players", "")
	if code != http.StatusOK {
		t.Fatalf("players: %d %s", code, b)
	}
	ranked := decode[struct {
		Rows []engine.PlayerValue `json:"rows"`
	}](t, b)
	if len(ranked.Rows) != 1 || ranked.Rows[0].Player.ID != p.ID {
		t.Fatalf("unexpected ranking %s", b)
	}

	if code, _ = do(t, http.MethodDelete, playerURL, ""); code != http.StatusNoContent {
		t.Fatalf("delete player: %d", code)
	}
	if code, _ = do(t, http.MethodGet, playerURL, ""); code != http.StatusNotFound {
		t.Fatalf("deleted player: expected 404, got %d", code)
	}
	if code, _ = do(t, http.MethodDelete, gameURL, ""); code != http.StatusNoContent {
		t.Fatalf("delete game: %d", code)
	}
	if code, _ = do(t, http.MethodGet, gameURL, ""); code != http.StatusNotFound {
		t.Fatalf("deleted game: expected 404, got %d", code)
	}
}

func TestBadRequests(t *testing.T) {
	srv := newTestServer(t)
	api := srv.URL + "/api"

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodPost, "/player", `{"name":"nobody"}`, http.StatusBadRequest},
		{http.MethodPost, "/player", `{"name":"ghost","game":{"id":77}}`, http.StatusNotFound},
		{http.MethodGet, "/game/abc", "", http.StatusBadRequest},
		{http.MethodGet, "/game/77", "", http.StatusNotFound},
		{http.MethodGet, "/game/77/players", "", http.StatusNotFound},
		{http.MethodPut, "/player/77/hand?numCards=2", "", http.StatusNotFound},
		{http.MethodPut, "/player/77/hand", "", http.StatusBadRequest},
		{http.MethodPost, "/game", `not json`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if code, b := do(t, tc.method, api+tc.path, tc.body); code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d %s", tc.method, tc.path, tc.want, code, b)
		}
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: 3", engine.ErrShoeNotFound), http.StatusNotFound},
		{engine.ErrGameWithoutShoe, http.StatusPreconditionFailed},
		{engine.ErrGameAlreadyHasShoe, http.StatusBadRequest},
		{engine.ErrConflict, http.StatusConflict},
		{engine.ErrCorruptCardData, http.StatusInternalServerError},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected a request id")
	}
}
