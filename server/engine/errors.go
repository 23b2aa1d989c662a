package engine

import (
	"errors"
	"fmt"
)

var (
	ErrGameNotFound       = errors.New("game not found")
	ErrShoeNotFound       = errors.New("shoe not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrGameWithoutShoe    = errors.New("game has no shoe")
	ErrGameAlreadyHasShoe = errors.New("game already has a shoe")
	ErrPlayerWithoutGame  = errors.New("player must belong to a game")
	ErrCorruptCardData    = errors.New("corrupt card data")

	// Returned by Store implementations.
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record was modified concurrently")
)

// IsNotFound reports whether err is one of the not-found kinds.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrGameNotFound) || errors.Is(err, ErrShoeNotFound) ||
		errors.Is(err, ErrPlayerNotFound) || errors.Is(err, ErrNotFound)
}

func missing(err, kind error, id int64) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %d", kind, id)
	}
	return err
}
