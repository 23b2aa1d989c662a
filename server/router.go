package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"deckr/server/engine"
)

func Router(eng *engine.Engine) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/api/game", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Name string `json:"name"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "bad body", http.StatusBadRequest)
				return
			}
			g, err := eng.CreateGame(r.Context(), body.Name)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, g)
		})

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r, "id")
			if !ok {
				return
			}
			g, err := eng.GetGame(r.Context(), id)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, g)
		})

		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r, "id")
			if !ok {
				return
			}
			if err := eng.DeleteGame(r.Context(), id); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		// One shoe per game is enforced here, not in the engine.
		r.Post("/{gameId}/shoe", func(w http.ResponseWriter, r *http.Request) {
			gameID, ok := pathID(w, r, "gameId")
			if !ok {
				return
			}
			g, err := eng.GetGame(r.Context(), gameID)
			if err != nil {
				writeError(w, err)
				return
			}
			if g.ShoeID != nil {
				writeError(w, engine.ErrGameAlreadyHasShoe)
				return
			}
			s, err := eng.CreateShoe(r.Context(), gameID)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, s)
		})

		r.Get("/{gameId}/shoe", withShoe(eng, func(w http.ResponseWriter, r *http.Request, s *engine.Shoe) {
			writeJSON(w, http.StatusOK, s)
		}))

		r.Put("/{gameId}/shoe", withShoe(eng, func(w http.ResponseWriter, r *http.Request, s *engine.Shoe) {
			if err := eng.AddDeck(r.Context(), s.ID); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}))

		r.Patch("/{gameId}/shoe", withShoe(eng, func(w http.ResponseWriter, r *http.Request, s *engine.Shoe) {
			if err := eng.Shuffle(r.Context(), s.ID); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}))

		r.Get("/{gameId}/shoe/suits", withShoe(eng, func(w http.ResponseWriter, r *http.Request, s *engine.Shoe) {
			counts, err := eng.CountsBySuit(r.Context(), s.ID)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"counts": counts})
		}))

		r.Get("/{gameId}/shoe/cards", withShoe(eng, func(w http.ResponseWriter, r *http.Request, s *engine.Shoe) {
			cards, err := eng.CardsLeft(r.Context(), s.ID)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"rows": cards})
		}))

		r.Get("/{gameId}/players", func(w http.ResponseWriter, r *http.Request) {
			gameID, ok := pathID(w, r, "gameId")
			if !ok {
				return
			}
			rows, err := eng.RankedPlayers(r.Context(), gameID)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
		})
	})

	r.Route("/api/player", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Name string `json:"name"`
				Game *struct {
					ID *int64 `json:"id"`
				} `json:"game"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "bad body", http.StatusBadRequest)
				return
			}
			if body.Game == nil || body.Game.ID == nil {
				writeError(w, engine.ErrPlayerWithoutGame)
				return
			}
			p, err := eng.CreatePlayer(r.Context(), *body.Game.ID, body.Name)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, p)
		})

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r, "id")
			if !ok {
				return
			}
			p, err := eng.GetPlayer(r.Context(), id)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, p)
		})

		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r, "id")
			if !ok {
				return
			}
			if err := eng.DeletePlayer(r.Context(), id); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Get("/{playerId}/hand", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r, "playerId")
			if !ok {
				return
			}
			hand, err := eng.Hand(r.Context(), id)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"rows": hand})
		})

		r.Put("/{playerId}/hand", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r, "playerId")
			if !ok {
				return
			}
			n, err := strconv.Atoi(r.URL.Query().Get("numCards"))
			if err != nil {
				http.Error(w, "bad numCards", http.StatusBadRequest)
				return
			}
			if _, err := eng.Deal(r.Context(), id, n); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})

	return r
}

// withShoe resolves {gameId} to its shoe before calling h.
func withShoe(eng *engine.Engine, h func(http.ResponseWriter, *http.Request, *engine.Shoe)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, ok := pathID(w, r, "gameId")
		if !ok {
			return
		}
		s, err := eng.GameShoe(r.Context(), gameID)
		if err != nil {
			writeError(w, err)
			return
		}
		h(w, r, s)
	}
}

func pathID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func statusFor(err error) int {
	switch {
	case engine.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrGameWithoutShoe):
		return http.StatusPreconditionFailed
	case errors.Is(err, engine.ErrGameAlreadyHasShoe), errors.Is(err, engine.ErrPlayerWithoutGame):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// requestID echoes X-Request-ID or mints one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
			r.Header.Set("X-Request-ID", id)
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}
