package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"deckr/server/engine"
)

type memGame struct {
	id   int64
	name string
}

type memShoe struct {
	id, gameID, version int64
	cards               string
}

type memPlayer struct {
	id, gameID, version int64
	name, hand          string
}

// Memory is an in-process engine.Store with the same contract as DB. Card
// sequences are kept in their encoded form so every read and write crosses
// the codec. Calls made outside a transaction wait for an open one to end.
type Memory struct {
	txMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	games   map[int64]memGame
	shoes   map[int64]memShoe
	players map[int64]memPlayer
	writes  int
}

var _ engine.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		games:   make(map[int64]memGame),
		shoes:   make(map[int64]memShoe),
		players: make(map[int64]memPlayer),
	}
}

// Writes counts successful Save and Delete calls so far.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// RawShoe is the stored card column of a shoe.
func (m *Memory) RawShoe(id int64) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shoes[id]
	return s.cards, ok
}

// RawHand is the stored hand column of a player.
func (m *Memory) RawHand(id int64) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	return p.hand, ok
}

// PutRawShoe overwrites a shoe's card column without validation.
func (m *Memory) PutRawShoe(id int64, cards string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.shoes[id]
	s.cards = cards
	m.shoes[id] = s
}

// Tx runs fn against a view that logs an undo step for each of its writes. If
// fn fails, those steps are replayed newest first and nothing else is touched.
// Ids handed out by a failed transaction are not reused.
func (m *Memory) Tx(ctx context.Context, fn func(engine.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	tx := &memTx{m: m}
	if err := fn(tx); err != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		return err
	}
	return nil
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

// record appends step to the undo log, if there is one.
func record(undo *[]func(), step func()) {
	if undo != nil {
		*undo = append(*undo, step)
	}
}

/* -----------------------------
   Games
------------------------------*/

func (m *Memory) SaveGame(ctx context.Context, g *engine.Game) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return m.saveGame(g, nil)
}

func (m *Memory) saveGame(g *engine.Game, undo *[]func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g.ID == 0 {
		id := m.id()
		g.ID = id
		record(undo, func() { delete(m.games, id) })
	} else if prev, ok := m.games[g.ID]; ok {
		record(undo, func() { m.games[prev.id] = prev })
	} else {
		return engine.ErrNotFound
	}
	m.games[g.ID] = memGame{id: g.ID, name: g.Name}
	m.writes++
	return nil
}

func (m *Memory) FindGame(ctx context.Context, id int64) (*engine.Game, error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return m.findGame(id)
}

func (m *Memory) findGame(id int64) (*engine.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.games[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	g := &engine.Game{ID: row.id, Name: row.name, PlayerIDs: []int64{}}
	if s, ok := m.gameShoe(id); ok {
		sid := s.id
		g.ShoeID = &sid
	}
	for _, p := range m.gamePlayers(id) {
		g.PlayerIDs = append(g.PlayerIDs, p.id)
	}
	return g, nil
}

func (m *Memory) DeleteGame(ctx context.Context, id int64) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return m.deleteGame(id, nil)
}

// deleteGame cascades to the game's shoes and players.
func (m *Memory) deleteGame(id int64, undo *[]func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.games[id]
	if !ok {
		return engine.ErrNotFound
	}
	owned := func(gameID int64) bool { return gameID == id }
	shoes := maps.Clone(m.shoes)
	players := maps.Clone(m.players)
	maps.DeleteFunc(shoes, func(_ int64, s memShoe) bool { return !owned(s.gameID) })
	maps.DeleteFunc(players, func(_ int64, p memPlayer) bool { return !owned(p.gameID) })
	record(undo, func() {
		m.games[id] = prev
		maps.Copy(m.shoes, shoes)
		maps.Copy(m.players, players)
	})

	delete(m.games, id)
	maps.DeleteFunc(m.shoes, func(_ int64, s memShoe) bool { return owned(s.gameID) })
	maps.DeleteFunc(m.players, func(_ int64, p memPlayer) bool { return owned(p.gameID) })
	m.writes++
	return nil
}

/* -----------------------------
   Shoes
------------------------------*/

func (m *Memory) SaveShoe(ctx context.Context, s *engine.Shoe) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return m.saveShoe(s, nil)
}

func (m *Memory) saveShoe(s *engine.Shoe, undo *[]func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := memShoe{id: s.ID, gameID: s.GameID, cards: engine.EncodeCards(s.Cards)}
	if s.ID == 0 {
		row.id, row.version = m.id(), 1
		record(undo, func() { delete(m.shoes, row.id) })
	} else {
		cur, ok := m.shoes[s.ID]
		if !ok || cur.version != s.Version {
			return fmt.Errorf("%w: shoe %d", engine.ErrConflict, s.ID)
		}
		row.gameID = cur.gameID
		row.version = cur.version + 1
		record(undo, func() { m.shoes[cur.id] = cur })
	}
	m.shoes[row.id] = row
	m.writes++
	s.ID, s.Version = row.id, row.version
	return nil
}

func (m *Memory) FindShoe(ctx context.Context, id int64) (*engine.Shoe, error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return m.findShoe(id)
}

func (m *Memory) findShoe(id int64) (*engine.Shoe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.shoes[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return row.decode()
}

func (m *Memory) GameShoe(ctx context.Context, gameID int64) (*engine.Shoe, error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return m.findGameShoe(gameID)
}

func (m *Memory) findGameShoe(gameID int64) (*engine.Shoe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.gameShoe(gameID)
	if !ok {
		return nil, engine.ErrNotFound
	}
	return row.decode()
}

// gameShoe picks the lowest id, as DB does. Caller holds mu.
func (m *Memory) gameShoe(gameID int64) (memShoe, bool) {
	var (
		best  memShoe
		found bool
	)
	for _, s := range m.shoes {
		if s.gameID == gameID && (!found || s.id < best.id) {
			best, found = s, true
		}
	}
	return best, found
}

func (r memShoe) decode() (*engine.Shoe, error) {
	cards, err := engine.DecodeCards(r.cards)
	if err != nil {
		return nil, fmt.Errorf("shoe %d: %w", r.id, err)
	}
	return &engine.Shoe{ID: r.id, GameID: r.gameID, Cards: cards, Version: r.version}, nil
}

/* -----------------------------
   Players
------------------------------*/

func (m *Memory) SavePlayer(ctx context.Context, p *engine.Player) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return m.savePlayer(p, nil)
}

func (m *Memory) savePlayer(p *engine.Player, undo *[]func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := memPlayer{id: p.ID, gameID: p.GameID, name: p.Name, hand: engine.EncodeCards(p.Hand)}
	if p.ID == 0 {
		row.id, row.version = m.id(), 1
		record(undo, func() { delete(m.players, row.id) })
	} else {
		cur, ok := m.players[p.ID]
		if !ok || cur.version != p.Version {
			return fmt.Errorf("%w: player %d", engine.ErrConflict, p.ID)
		}
		row.gameID = cur.gameID
		row.version = cur.version + 1
		record(undo, func() { m.players[cur.id] = cur })
	}
	m.players[row.id] = row
	m.writes++
	p.ID, p.Version = row.id, row.version
	return nil
}

func (m *Memory) FindPlayer(ctx context.Context, id int64) (*engine.Player, error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return m.findPlayer(id)
}

func (m *Memory) findPlayer(id int64) (*engine.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.players[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return row.decode()
}

func (m *Memory) DeletePlayer(ctx context.Context, id int64) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return m.deletePlayer(id, nil)
}

func (m *Memory) deletePlayer(id int64, undo *[]func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.players[id]
	if !ok {
		return engine.ErrNotFound
	}
	record(undo, func() { m.players[id] = prev })
	delete(m.players, id)
	m.writes++
	return nil
}

func (m *Memory) GamePlayers(ctx context.Context, gameID int64) ([]engine.Player, error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return m.findGamePlayers(gameID)
}

func (m *Memory) findGamePlayers(gameID int64) ([]engine.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []engine.Player{}
	for _, row := range m.gamePlayers(gameID) {
		p, err := row.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

// Caller holds mu.
func (m *Memory) gamePlayers(gameID int64) []memPlayer {
	var out []memPlayer
	for _, p := range m.players {
		if p.gameID == gameID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b memPlayer) int { return int(a.id - b.id) })
	return out
}

func (r memPlayer) decode() (*engine.Player, error) {
	hand, err := engine.DecodeCards(r.hand)
	if err != nil {
		return nil, fmt.Errorf("player %d: %w", r.id, err)
	}
	return &engine.Player{ID: r.id, GameID: r.gameID, Name: r.name, Hand: hand, Version: r.version}, nil
}

/* -----------------------------
   Transaction view
------------------------------*/

// memTx is the Store a Tx callback sees. Its owner already holds txMu.
type memTx struct {
	m    *Memory
	undo []func()
}

var _ engine.Store = (*memTx)(nil)

// Tx inside a transaction joins it.
func (t *memTx) Tx(ctx context.Context, fn func(engine.Store) error) error { return fn(t) }

func (t *memTx) SaveGame(ctx context.Context, g *engine.Game) error {
	return t.m.saveGame(g, &t.undo)
}

func (t *memTx) FindGame(ctx context.Context, id int64) (*engine.Game, error) {
	return t.m.findGame(id)
}

func (t *memTx) DeleteGame(ctx context.Context, id int64) error {
	return t.m.deleteGame(id, &t.undo)
}

func (t *memTx) SaveShoe(ctx context.Context, s *engine.Shoe) error {
	return t.m.saveShoe(s, &t.undo)
}

func (t *memTx) FindShoe(ctx context.Context, id int64) (*engine.Shoe, error) {
	return t.m.findShoe(id)
}

func (t *memTx) GameShoe(ctx context.Context, gameID int64) (*engine.Shoe, error) {
	return t.m.findGameShoe(gameID)
}

func (t *memTx) SavePlayer(ctx context.Context, p *engine.Player) error {
	return t.m.savePlayer(p, &t.undo)
}

func (t *memTx) FindPlayer(ctx context.Context, id int64) (*engine.Player, error) {
	return t.m.findPlayer(id)
}

func (t *memTx) DeletePlayer(ctx context.Context, id int64) error {
	return t.m.deletePlayer(id, &t.undo)
}

func (t *memTx) GamePlayers(ctx context.Context, gameID int64) ([]engine.Player, error) {
	return t.m.findGamePlayers(gameID)
}
