package drinkmem

import (
	"context"
	"sort"
	"sync"

	"coffeeshop/internal/domain"
	"coffeeshop/internal/usecase"
)

// Store is the in-process drink repository used when no database is configured.
type Store struct {
	mu     sync.Mutex
	nextID int64
	drinks map[int64]domain.Drink
}

func New() *Store {
	return &Store{
		nextID: 1,
		drinks: make(map[int64]domain.Drink),
	}
}

func (s *Store) List(ctx context.Context) ([]domain.Drink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Drink, 0, len(s.drinks))
	for _, drink := range s.drinks {
		out = append(out, cloneDrink(drink))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Get(ctx context.Context, id int64) (domain.Drink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drink, ok := s.drinks[id]
	if !ok {
		return domain.Drink{}, domain.ErrNotFound
	}
	return cloneDrink(drink), nil
}

func (s *Store) Create(ctx context.Context, drink domain.Drink) (domain.Drink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.titleTaken(drink.Title, 0) {
		return domain.Drink{}, domain.ErrConflict
	}
	drink.ID = s.nextID
	s.nextID++
	s.drinks[drink.ID] = cloneDrink(drink)
	return cloneDrink(drink), nil
}

func (s *Store) Update(ctx context.Context, drink domain.Drink) (domain.Drink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drinks[drink.ID]; !ok {
		return domain.Drink{}, domain.ErrNotFound
	}
	if s.titleTaken(drink.Title, drink.ID) {
		return domain.Drink{}, domain.ErrConflict
	}
	s.drinks[drink.ID] = cloneDrink(drink)
	return cloneDrink(drink), nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drinks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.drinks, id)
	return nil
}

func (s *Store) titleTaken(title string, exceptID int64) bool {
	for id, existing := range s.drinks {
		if id != exceptID && existing.Title == title {
			return true
		}
	}
	return false
}

func cloneDrink(drink domain.Drink) domain.Drink {
	if drink.Recipe != nil {
		recipe := make(domain.Recipe, len(drink.Recipe))
		copy(recipe, drink.Recipe)
		drink.Recipe = recipe
	}
	return drink
}

var _ usecase.DrinkRepository = (*Store)(nil)
