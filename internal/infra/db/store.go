package db

import (
	"context"
	"fmt"

	"coffeeshop/internal/config"
	"coffeeshop/internal/domain"
	"coffeeshop/internal/observability/logger"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

// NewStore opens postgres when a DSN is configured. Without one the store is
// returned with a nil DB and callers fall back to the in-memory repository.
func NewStore(cfg config.Config) (*Store, error) {
	if cfg.PostgresDSN == "" {
		logger.L().Warn("POSTGRES_DSN not set; starting in no-db mode")
		return &Store{DB: nil}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &Store{DB: gdb}, nil
}

func (s *Store) Enabled() bool {
	return s != nil && s.DB != nil
}

// Migrate creates the drinks table. With reset the table is dropped first and
// seeded with a single drink.
func (s *Store) Migrate(ctx context.Context, reset bool) error {
	if !s.Enabled() {
		return errDBUnavailable
	}
	gdb := s.DB.WithContext(ctx)
	if reset {
		if err := gdb.Migrator().DropTable(&DrinkModel{}); err != nil {
			return fmt.Errorf("drop drinks: %w", err)
		}
	}
	if err := gdb.AutoMigrate(&DrinkModel{}); err != nil {
		return fmt.Errorf("migrate drinks: %w", err)
	}
	if !reset {
		return nil
	}
	seed, err := NewDrinkRepository(s.DB).Create(ctx, domain.Drink{
		Title:  "water",
		Recipe: domain.Recipe{{Name: "water", Color: "blue", Parts: 1}},
	})
	if err != nil {
		return fmt.Errorf("seed drinks: %w", err)
	}
	logger.From(ctx).Info("drinks table reset", logger.DrinkID(seed.ID), zap.String("title", seed.Title))
	return nil
}

func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
