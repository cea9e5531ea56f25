package db

import (
	"context"
	"errors"
	"testing"

	"coffeeshop/internal/domain"

	"gorm.io/gorm"
)

func TestDrinkRepository_NoDB(t *testing.T) {
	repo := NewDrinkRepository(nil)
	if _, err := repo.List(context.Background()); !errors.Is(err, errDBUnavailable) {
		t.Fatalf("expected db unavailable, got %v", err)
	}
	if err := repo.Delete(context.Background(), 1); !errors.Is(err, errDBUnavailable) {
		t.Fatalf("expected db unavailable, got %v", err)
	}
	store := &Store{}
	if err := store.Migrate(context.Background(), true); !errors.Is(err, errDBUnavailable) {
		t.Fatalf("expected db unavailable, got %v", err)
	}
}

func TestDrinkModelRoundTrip(t *testing.T) {
	drink := domain.Drink{ID: 7, Title: "Latte", Recipe: domain.Recipe{{Name: "Milk", Color: "white", Parts: 3}}}
	model, err := toDrinkModel(drink)
	if err != nil {
		t.Fatalf("to model: %v", err)
	}
	if model.Recipe != `[{"name":"Milk","color":"white","parts":3}]` {
		t.Fatalf("unexpected recipe text: %s", model.Recipe)
	}
	back, err := toDomainDrink(model)
	if err != nil {
		t.Fatalf("to domain: %v", err)
	}
	if back.Title != drink.Title || len(back.Recipe) != 1 || back.Recipe[0] != drink.Recipe[0] {
		t.Fatalf("unexpected drink: %+v", back)
	}

	empty, err := toDomainDrink(DrinkModel{ID: 1, Title: "x"})
	if err != nil {
		t.Fatalf("to domain: %v", err)
	}
	if empty.Recipe == nil {
		t.Fatalf("expected empty recipe, got nil")
	}

	if _, err := toDomainDrink(DrinkModel{ID: 1, Title: "x", Recipe: "{"}); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestTranslateError(t *testing.T) {
	if !errors.Is(translateError(gorm.ErrRecordNotFound), domain.ErrNotFound) {
		t.Fatalf("expected not found")
	}
	if !errors.Is(translateError(gorm.ErrDuplicatedKey), domain.ErrConflict) {
		t.Fatalf("expected conflict")
	}
	if translateError(nil) != nil {
		t.Fatalf("expected nil")
	}
}
