package services

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/felixgeelhaar/gritline/internal/grit/domain/formula"
)

var (
	// ErrCollaboratorUnavailable reports a failed data store call. Scores are
	// never guessed when this happens.
	ErrCollaboratorUnavailable = errors.New("data store unavailable")

	// ErrStaleCache signals a cache miss or an outdated entry. It never
	// leaves this package.
	ErrStaleCache = errors.New("stale cache entry")
)

// storeErr wraps a data store failure as ErrCollaboratorUnavailable unless
// it already carries a domain meaning.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCollaboratorUnavailable) ||
		errors.Is(err, domain.ErrInstanceNotFound) ||
		errors.Is(err, formula.ErrInvalidInput) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrCollaboratorUnavailable, err)
}
