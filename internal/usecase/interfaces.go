package usecase

import (
	"context"

	"coffeeshop/internal/domain"
)

// DrinkRepository persists drinks. Get, Update and Delete return
// domain.ErrNotFound for unknown ids; Create and Update return
// domain.ErrConflict when the title is already taken.
type DrinkRepository interface {
	List(ctx context.Context) ([]domain.Drink, error)
	Get(ctx context.Context, id int64) (domain.Drink, error)
	Create(ctx context.Context, drink domain.Drink) (domain.Drink, error)
	Update(ctx context.Context, drink domain.Drink) (domain.Drink, error)
	Delete(ctx context.Context, id int64) error
}
