package store

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"deckr/server/engine"
)

//go:embed schema.sql
var schema embed.FS

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is the Postgres engine.Store. Card sequences live in one TEXT column in
// their codec form.
type DB struct {
	*pgxpool.Pool
	q    querier
	inTx bool
}

var _ engine.Store = (*DB)(nil)

func Open(dsn string) (*DB, error) {
	p, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &DB{Pool: p, q: p}, nil
}

func (db *DB) Close(ctx context.Context)      { db.Pool.Close() }
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Pool.Exec(ctx, string(sqlBytes))
	return err
}

// Tx runs fn in a transaction. Rows read through the handed Store while
// mutating a shoe or player are locked FOR UPDATE until commit.
func (db *DB) Tx(ctx context.Context, fn func(engine.Store) error) error {
	if db.inTx {
		return fn(db)
	}
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		return fn(&DB{Pool: db.Pool, q: tx, inTx: true})
	})
}

func (db *DB) lock() string {
	if db.inTx {
		return " FOR UPDATE"
	}
	return ""
}

func noRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return engine.ErrNotFound
	}
	return err
}

/* -----------------------------
   Games
------------------------------*/

func (db *DB) SaveGame(ctx context.Context, g *engine.Game) error {
	if g.ID == 0 {
		return db.q.QueryRow(ctx, `INSERT INTO games(name) VALUES ($1) RETURNING id`, g.Name).Scan(&g.ID)
	}
	tag, err := db.q.Exec(ctx, `UPDATE games SET name = $2 WHERE id = $1`, g.ID, g.Name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return engine.ErrNotFound
	}
	return nil
}

func (db *DB) FindGame(ctx context.Context, id int64) (*engine.Game, error) {
	g := &engine.Game{}
	err := db.q.QueryRow(ctx, `
		SELECT g.id, g.name,
		       (SELECT s.id FROM shoes s WHERE s.game_id = g.id ORDER BY s.id LIMIT 1),
		       COALESCE((SELECT array_agg(p.id ORDER BY p.id) FROM players p WHERE p.game_id = g.id), '{}')
		  FROM games g
		 WHERE g.id = $1
	`, id).Scan(&g.ID, &g.Name, &g.ShoeID, &g.PlayerIDs)
	if err != nil {
		return nil, noRows(err)
	}
	return g, nil
}

// DeleteGame cascades to the game's shoe and players.
func (db *DB) DeleteGame(ctx context.Context, id int64) error {
	tag, err := db.q.Exec(ctx, `DELETE FROM games WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return engine.ErrNotFound
	}
	return nil
}

/* -----------------------------
   Shoes
------------------------------*/

func (db *DB) SaveShoe(ctx context.Context, s *engine.Shoe) error {
	cards := engine.EncodeCards(s.Cards)
	if s.ID == 0 {
		return db.q.QueryRow(ctx, `
			INSERT INTO shoes(game_id, cards) VALUES ($1, $2)
			RETURNING id, version
		`, s.GameID, cards).Scan(&s.ID, &s.Version)
	}
	err := db.q.QueryRow(ctx, `
		UPDATE shoes
		   SET cards = $2,
		       version = version + 1
		 WHERE id = $1 AND version = $3
		RETURNING version
	`, s.ID, cards, s.Version).Scan(&s.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: shoe %d", engine.ErrConflict, s.ID)
	}
	return err
}

func (db *DB) FindShoe(ctx context.Context, id int64) (*engine.Shoe, error) {
	return db.scanShoe(db.q.QueryRow(ctx, `
		SELECT id, game_id, COALESCE(cards, ''), version
		  FROM shoes
		 WHERE id = $1`+db.lock(), id))
}

func (db *DB) GameShoe(ctx context.Context, gameID int64) (*engine.Shoe, error) {
	return db.scanShoe(db.q.QueryRow(ctx, `
		SELECT id, game_id, COALESCE(cards, ''), version
		  FROM shoes
		 WHERE game_id = $1
		 ORDER BY id
		 LIMIT 1`+db.lock(), gameID))
}

func (db *DB) scanShoe(row pgx.Row) (*engine.Shoe, error) {
	var (
		s    engine.Shoe
		text string
	)
	if err := row.Scan(&s.ID, &s.GameID, &text, &s.Version); err != nil {
		return nil, noRows(err)
	}
	cards, err := engine.DecodeCards(text)
	if err != nil {
		return nil, fmt.Errorf("shoe %d: %w", s.ID, err)
	}
	s.Cards = cards
	return &s, nil
}

/* -----------------------------
   Players
------------------------------*/

func (db *DB) SavePlayer(ctx context.Context, p *engine.Player) error {
	hand := engine.EncodeCards(p.Hand)
	if p.ID == 0 {
		return db.q.QueryRow(ctx, `
			INSERT INTO players(game_id, name, hand) VALUES ($1, $2, $3)
			RETURNING id, version
		`, p.GameID, p.Name, hand).Scan(&p.ID, &p.Version)
	}
	err := db.q.QueryRow(ctx, `
		UPDATE players
		   SET name = $2,
		       hand = $3,
		       version = version + 1
		 WHERE id = $1 AND version = $4
		RETURNING version
	`, p.ID, p.Name, hand, p.Version).Scan(&p.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: player %d", engine.ErrConflict, p.ID)
	}
	return err
}

func (db *DB) FindPlayer(ctx context.Context, id int64) (*engine.Player, error) {
	return db.scanPlayer(db.q.QueryRow(ctx, `
		SELECT id, game_id, name, COALESCE(hand, ''), version
		  FROM players
		 WHERE id = $1`+db.lock(), id))
}

func (db *DB) DeletePlayer(ctx context.Context, id int64) error {
	tag, err := db.q.Exec(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return engine.ErrNotFound
	}
	return nil
}

func (db *DB) GamePlayers(ctx context.Context, gameID int64) ([]engine.Player, error) {
	rows, err := db.q.Query(ctx, `
		SELECT id, game_id, name, COALESCE(hand, ''), version
		  FROM players
		 WHERE game_id = $1
		 ORDER BY id
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []engine.Player{}
	for rows.Next() {
		p, err := db.scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (db *DB) scanPlayer(row pgx.Row) (*engine.Player, error) {
	var (
		p    engine.Player
		text string
	)
	if err := row.Scan(&p.ID, &p.GameID, &p.Name, &text, &p.Version); err != nil {
		return nil, noRows(err)
	}
	hand, err := engine.DecodeCards(text)
	if err != nil {
		return nil, fmt.Errorf("player %d: %w", p.ID, err)
	}
	p.Hand = hand
	return &p, nil
}
