package db

import (
	"errors"

	"coffeeshop/internal/domain"

	"gorm.io/gorm"
)

var errDBUnavailable = errors.New("db unavailable")

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ErrConflict
	default:
		return err
	}
}
