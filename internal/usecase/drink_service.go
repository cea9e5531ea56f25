package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"coffeeshop/internal/domain"
	"coffeeshop/internal/observability/logger"
)

const maxTitleLength = 80

type DrinkService struct {
	Drinks DrinkRepository
}

func NewDrinkService(drinks DrinkRepository) *DrinkService {
	return &DrinkService{Drinks: drinks}
}

type CreateDrinkInput struct {
	Title  string
	Recipe domain.Recipe
}

// UpdateDrinkInput carries only the fields the caller supplied.
type UpdateDrinkInput struct {
	Title  *string
	Recipe *domain.Recipe
}

func (s *DrinkService) List(ctx context.Context) ([]domain.Drink, error) {
	drinks, err := s.Drinks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list drinks: %w", err)
	}
	return drinks, nil
}

func (s *DrinkService) Create(ctx context.Context, in CreateDrinkInput) (domain.Drink, error) {
	title, err := normalizeTitle(in.Title)
	if err != nil {
		return domain.Drink{}, err
	}
	if err := validateRecipe(in.Recipe); err != nil {
		return domain.Drink{}, err
	}
	created, err := s.Drinks.Create(ctx, domain.Drink{Title: title, Recipe: in.Recipe})
	if err != nil {
		return domain.Drink{}, fmt.Errorf("create drink: %w", err)
	}
	logger.From(ctx).Info("drink created", logger.DrinkID(created.ID))
	return created, nil
}

func (s *DrinkService) Update(ctx context.Context, id int64, in UpdateDrinkInput) (domain.Drink, error) {
	if in.Title == nil && in.Recipe == nil {
		return domain.Drink{}, fmt.Errorf("%w: title or recipe is required", domain.ErrValidation)
	}
	var title string
	if in.Title != nil {
		normalized, err := normalizeTitle(*in.Title)
		if err != nil {
			return domain.Drink{}, err
		}
		title = normalized
	}
	if in.Recipe != nil {
		if err := validateRecipe(*in.Recipe); err != nil {
			return domain.Drink{}, err
		}
	}

	drink, err := s.Drinks.Get(ctx, id)
	if err != nil {
		return domain.Drink{}, fmt.Errorf("get drink %d: %w", id, err)
	}
	if in.Title != nil {
		drink.Title = title
	}
	if in.Recipe != nil {
		drink.Recipe = *in.Recipe
	}
	updated, err := s.Drinks.Update(ctx, drink)
	if err != nil {
		return domain.Drink{}, fmt.Errorf("update drink %d: %w", id, err)
	}
	logger.From(ctx).Info("drink updated", logger.DrinkID(id))
	return updated, nil
}

func (s *DrinkService) Delete(ctx context.Context, id int64) error {
	if err := s.Drinks.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete drink %d: %w", id, err)
	}
	logger.From(ctx).Info("drink deleted", logger.DrinkID(id))
	return nil
}

// DecodeRecipe accepts a JSON list of ingredients, or a JSON string holding
// such a list in serialized form.
func DecodeRecipe(raw json.RawMessage) (domain.Recipe, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: recipe is required", domain.ErrValidation)
	}
	if raw[0] == '"' {
		var serialized string
		if err := json.Unmarshal(raw, &serialized); err != nil {
			return nil, fmt.Errorf("%w: recipe: %v", domain.ErrValidation, err)
		}
		raw = []byte(strings.TrimSpace(serialized))
	}
	var recipe domain.Recipe
	if err := json.Unmarshal(raw, &recipe); err != nil {
		return nil, fmt.Errorf("%w: recipe must be a list of ingredients", domain.ErrValidation)
	}
	return recipe, nil
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", fmt.Errorf("%w: title exceeds %d characters", domain.ErrValidation, maxTitleLength)
	}
	return title, nil
}

func validateRecipe(recipe domain.Recipe) error {
	if len(recipe) == 0 {
		return fmt.Errorf("%w: recipe needs at least one ingredient", domain.ErrValidation)
	}
	for i, ingredient := range recipe {
		if strings.TrimSpace(ingredient.Name) == "" {
			return fmt.Errorf("%w: ingredient %d has no name", domain.ErrValidation, i)
		}
		if ingredient.Parts <= 0 {
			return fmt.Errorf("%w: ingredient %d needs a positive part count", domain.ErrValidation, i)
		}
	}
	return nil
}
