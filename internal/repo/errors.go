package repo

import (
	"errors"

	"github.com/angelmondragon/conduit-storefront/pkg/db"
	"github.com/angelmondragon/conduit-storefront/pkg/mongo"
)

var (
	// ErrNotFound is returned by every repository backend for a missing row or document.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStale is returned by compare-and-set writes that matched no row.
	ErrStale = errors.New("record changed concurrently")
)

// Translate maps backend-specific errors onto the shared sentinels.
func Translate(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsNotFound(err), mongo.IsNotFound(err):
		return ErrNotFound
	case db.IsUniqueViolation(err, ""), mongo.IsDuplicateKey(err):
		return errors.Join(ErrDuplicate, err)
	default:
		return err
	}
}
