package db

import (
	"context"
	"encoding/json"
	"fmt"

	"coffeeshop/internal/domain"
	"coffeeshop/internal/usecase"

	"gorm.io/gorm"
)

type DrinkRepository struct {
	db *gorm.DB
}

func NewDrinkRepository(db *gorm.DB) *DrinkRepository {
	return &DrinkRepository{db: db}
}

func (r *DrinkRepository) List(ctx context.Context) ([]domain.Drink, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []DrinkModel
	if err := r.db.WithContext(ctx).Order("id asc").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Drink, 0, len(models))
	for _, model := range models {
		drink, err := toDomainDrink(model)
		if err != nil {
			return nil, err
		}
		out = append(out, drink)
	}
	return out, nil
}

func (r *DrinkRepository) Get(ctx context.Context, id int64) (domain.Drink, error) {
	if r.db == nil {
		return domain.Drink{}, errDBUnavailable
	}
	var model DrinkModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return domain.Drink{}, translateError(err)
	}
	return toDomainDrink(model)
}

func (r *DrinkRepository) Create(ctx context.Context, drink domain.Drink) (domain.Drink, error) {
	if r.db == nil {
		return domain.Drink{}, errDBUnavailable
	}
	model, err := toDrinkModel(drink)
	if err != nil {
		return domain.Drink{}, err
	}
	model.ID = 0
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Drink{}, translateError(err)
	}
	drink.ID = model.ID
	return drink, nil
}

func (r *DrinkRepository) Update(ctx context.Context, drink domain.Drink) (domain.Drink, error) {
	if r.db == nil {
		return domain.Drink{}, errDBUnavailable
	}
	model, err := toDrinkModel(drink)
	if err != nil {
		return domain.Drink{}, err
	}
	res := r.db.WithContext(ctx).
		Model(&DrinkModel{}).
		Where("id = ?", drink.ID).
		Updates(map[string]any{"title": model.Title, "recipe": model.Recipe})
	if res.Error != nil {
		return domain.Drink{}, translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Drink{}, domain.ErrNotFound
	}
	return drink, nil
}

func (r *DrinkRepository) Delete(ctx context.Context, id int64) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).Delete(&DrinkModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func toDrinkModel(drink domain.Drink) (DrinkModel, error) {
	recipe := drink.Recipe
	if recipe == nil {
		recipe = domain.Recipe{}
	}
	raw, err := json.Marshal(recipe)
	if err != nil {
		return DrinkModel{}, fmt.Errorf("encode recipe: %w", err)
	}
	return DrinkModel{ID: drink.ID, Title: drink.Title, Recipe: string(raw)}, nil
}

func toDomainDrink(model DrinkModel) (domain.Drink, error) {
	var recipe domain.Recipe
	if model.Recipe != "" {
		if err := json.Unmarshal([]byte(model.Recipe), &recipe); err != nil {
			return domain.Drink{}, fmt.Errorf("decode recipe for drink %d: %w", model.ID, err)
		}
	}
	if recipe == nil {
		recipe = domain.Recipe{}
	}
	return domain.Drink{ID: model.ID, Title: model.Title, Recipe: recipe}, nil
}

var _ usecase.DrinkRepository = (*DrinkRepository)(nil)
