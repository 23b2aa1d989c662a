package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"deckr/server/engine"
)

// openTestDB needs a disposable database in DATABASE_URL.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	db, err := Open(dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close(context.Background()) })
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestPostgresDealRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	eng := engine.New(db)

	g, err := eng.CreateGame(ctx, "pg")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = eng.DeleteGame(context.Background(), g.ID) })
	s, err := eng.CreateShoe(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.AddDeck(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	p, err := eng.CreatePlayer(ctx, g.ID, "ann")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Deal(ctx, p.ID, 4); err != nil {
		t.Fatal(err)
	}

	var shoeCol, handCol string
	if err := db.QueryRow(ctx, `SELECT cards FROM shoes WHERE id = $1`, s.ID).Scan(&shoeCol); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow(ctx, `SELECT hand FROM players WHERE id = $1`, p.ID).Scan(&handCol); err != nil {
		t.Fatal(err)
	}
	if handCol != "H1,H2,H3,H4" {
		t.Fatalf("unexpected hand column %q", handCol)
	}
	if got := len(engine.Decode(shoeCol)); got != 48 {
		t.Fatalf("expected 48 cards left, got %d", got)
	}

	got, err := eng.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ShoeID == nil || *got.ShoeID != s.ID || len(got.PlayerIDs) != 1 {
		t.Fatalf("unexpected game %+v", got)
	}
}

func TestPostgresStaleVersionConflicts(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	g := &engine.Game{Name: "pg-conflict"}
	if err := db.SaveGame(ctx, g); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.DeleteGame(context.Background(), g.ID) })
	s := &engine.Shoe{GameID: g.ID}
	if err := db.SaveShoe(ctx, s); err != nil {
		t.Fatal(err)
	}
	stale := *s
	if err := db.SaveShoe(ctx, s); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveShoe(ctx, &stale); !errors.Is(err, engine.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := db.FindShoe(ctx, -1); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
