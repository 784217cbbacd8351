package pkg

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/simp-lee/memorial/internal/domain"
)

// StoreError maps a GORM error onto the domain error codes. AppErrors
// (raised inside a transaction callback, for instance) pass through.
func StoreError(err error) error {
	var appErr *domain.AppError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), uniqueViolation(err):
		return domain.NewAppError(domain.CodeAlreadyExists, "already exists", err)
	default:
		return domain.NewAppError(domain.CodeInternal, "database error", err)
	}
}

// uniqueViolation catches drivers that do not translate constraint errors
// to gorm.ErrDuplicatedKey; the pure-Go SQLite driver is one.
func uniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"unique constraint", "duplicate key", "duplicate entry"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// RepoTx runs fn inside WithTx, handing it a repository built on the
// transaction by bind. Errors come back through StoreError.
func RepoTx[R any](ctx context.Context, db *gorm.DB, bind func(tx *gorm.DB) R, fn func(repo R) error) error {
	return StoreError(WithTx(ctx, db, func(tx *gorm.DB) error {
		return fn(bind(tx))
	}))
}
