package memstore

import (
	"budget_tracker/internal/domain" // Domain models and errors
	"budget_tracker/internal/store"  // Persistence port
	"context"                        // Contexts for store calls
	"fmt"                            // Error wrapping
	"sort"                           // Deterministic list order
	"strings"                        // String helpers
	"sync"                           // Store mutex
)

type dataset struct {
	users      map[string]domain.User
	categories map[string]domain.Category
	expenses   map[string]domain.Expense
	incomes    map[string]domain.Income
}

func newDataset() *dataset {
	return &dataset{
		users:      map[string]domain.User{},
		categories: map[string]domain.Category{},
		expenses:   map[string]domain.Expense{},
		incomes:    map[string]domain.Income{},
	}
}

// clone copies the maps. Records are stored by value and their pointer
// fields are replaced rather than mutated, so a shallow copy is enough.
func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.categories {
		c.categories[k] = v
	}
	for k, v := range d.expenses {
		c.expenses[k] = v
	}
	for k, v := range d.incomes {
		c.incomes[k] = v
	}
	return c
}

// Store implements store.Store in memory, for development and tests.
// All calls, including whole Atomic transactions, are serialised by one
// mutex. Atomic works on a copy of the data and swaps it in only when fn
// succeeds.
type Store struct {
	mu   sync.Mutex
	data *dataset
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{data: newDataset()}
}

// Atomic implements store.Store.
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.data.clone()
	if err := fn(&repo{data: work}); err != nil {
		return err // work is dropped: rollback
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrStorage, err)
	}
	s.data = work
	return nil
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// view runs fn against the committed data under the store lock.
func (s *Store) view(fn func(r *repo) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&repo{data: s.data})
}

func (s *Store) GetUser(ctx context.Context, id string) (u *domain.User, err error) {
	err = s.view(func(r *repo) error { u, err = r.GetUser(ctx, id); return err })
	return u, err
}

func (s *Store) FindUsersByEmail(ctx context.Context, email string) (us []domain.User, err error) {
	err = s.view(func(r *repo) error { us, err = r.FindUsersByEmail(ctx, email); return err })
	return us, err
}

func (s *Store) AddUser(ctx context.Context, u *domain.User) error {
	return s.view(func(r *repo) error { return r.AddUser(ctx, u) })
}

func (s *Store) EditUser(ctx context.Context, u *domain.User) error {
	return s.view(func(r *repo) error { return r.EditUser(ctx, u) })
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.view(func(r *repo) error { return r.DeleteUser(ctx, id) })
}

func (s *Store) DeleteUserData(ctx context.Context, userID string) error {
	return s.view(func(r *repo) error { return r.DeleteUserData(ctx, userID) })
}

func (s *Store) GetCategory(ctx context.Context, id string) (c *domain.Category, err error) {
	err = s.view(func(r *repo) error { c, err = r.GetCategory(ctx, id); return err })
	return c, err
}

func (s *Store) ListCategories(ctx context.Context, userID string) (cs []domain.Category, err error) {
	err = s.view(func(r *repo) error { cs, err = r.ListCategories(ctx, userID); return err })
	return cs, err
}

func (s *Store) AddCategory(ctx context.Context, c *domain.Category) error {
	return s.view(func(r *repo) error { return r.AddCategory(ctx, c) })
}

func (s *Store) EditCategory(ctx context.Context, c *domain.Category) error {
	return s.view(func(r *repo) error { return r.EditCategory(ctx, c) })
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.view(func(r *repo) error { return r.DeleteCategory(ctx, id) })
}

func (s *Store) GetExpense(ctx context.Context, id string) (e *domain.Expense, err error) {
	err = s.view(func(r *repo) error { e, err = r.GetExpense(ctx, id); return err })
	return e, err
}

func (s *Store) ListCategoryExpenses(ctx context.Context, categoryID string) (es []domain.Expense, err error) {
	err = s.view(func(r *repo) error { es, err = r.ListCategoryExpenses(ctx, categoryID); return err })
	return es, err
}

func (s *Store) ListUserExpenses(ctx context.Context, userID string) (vs []domain.ExpenseView, err error) {
	err = s.view(func(r *repo) error { vs, err = r.ListUserExpenses(ctx, userID); return err })
	return vs, err
}

func (s *Store) AddExpense(ctx context.Context, e *domain.Expense) error {
	return s.view(func(r *repo) error { return r.AddExpense(ctx, e) })
}

func (s *Store) EditExpense(ctx context.Context, e *domain.Expense) error {
	return s.view(func(r *repo) error { return r.EditExpense(ctx, e) })
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	return s.view(func(r *repo) error { return r.DeleteExpense(ctx, id) })
}

func (s *Store) DeleteCategoryExpenses(ctx context.Context, categoryID string) (n int64, err error) {
	err = s.view(func(r *repo) error { n, err = r.DeleteCategoryExpenses(ctx, categoryID); return err })
	return n, err
}

func (s *Store) GetIncome(ctx context.Context, id string) (in *domain.Income, err error) {
	err = s.view(func(r *repo) error { in, err = r.GetIncome(ctx, id); return err })
	return in, err
}

func (s *Store) ListIncomes(ctx context.Context, userID string) (ins []domain.Income, err error) {
	err = s.view(func(r *repo) error { ins, err = r.ListIncomes(ctx, userID); return err })
	return ins, err
}

func (s *Store) AddIncome(ctx context.Context, in *domain.Income) error {
	return s.view(func(r *repo) error { return r.AddIncome(ctx, in) })
}

func (s *Store) EditIncome(ctx context.Context, in *domain.Income) error {
	return s.view(func(r *repo) error { return r.EditIncome(ctx, in) })
}

func (s *Store) DeleteIncome(ctx context.Context, id string) error {
	return s.view(func(r *repo) error { return r.DeleteIncome(ctx, id) })
}

// repo is the unlocked Repository over one dataset.
type repo struct {
	data *dataset
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}

func conflict(kind, id string) error {
	return fmt.Errorf("%s %s already exists: %w", kind, id, domain.ErrConflict)
}

func (r *repo) GetUser(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.data.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &u, nil
}

func (r *repo) FindUsersByEmail(_ context.Context, email string) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.data.users {
		if strings.EqualFold(u.Email, email) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *repo) AddUser(_ context.Context, u *domain.User) error {
	if _, ok := r.data.users[u.ID]; ok {
		return conflict("user", u.ID)
	}
	for _, other := range r.data.users {
		if strings.EqualFold(other.Email, u.Email) {
			return fmt.Errorf("email %s already registered: %w", u.Email, domain.ErrConflict)
		}
	}
	r.data.users[u.ID] = *u
	return nil
}

func (r *repo) EditUser(_ context.Context, u *domain.User) error {
	if _, ok := r.data.users[u.ID]; !ok {
		return notFound("user", u.ID)
	}
	for _, other := range r.data.users {
		if other.ID != u.ID && strings.EqualFold(other.Email, u.Email) {
			return fmt.Errorf("email %s already registered: %w", u.Email, domain.ErrConflict)
		}
	}
	r.data.users[u.ID] = *u
	return nil
}

func (r *repo) DeleteUser(_ context.Context, id string) error {
	if _, ok := r.data.users[id]; !ok {
		return notFound("user", id)
	}
	delete(r.data.users, id)
	return nil
}

func (r *repo) DeleteUserData(_ context.Context, userID string) error {
	for id, c := range r.data.categories {
		if c.UserID != userID {
			continue
		}
		for eid, e := range r.data.expenses {
			if e.CategoryID == id {
				delete(r.data.expenses, eid)
			}
		}
		delete(r.data.categories, id)
	}
	for id, in := range r.data.incomes {
		if in.UserID == userID {
			delete(r.data.incomes, id)
		}
	}
	return nil
}

func (r *repo) GetCategory(_ context.Context, id string) (*domain.Category, error) {
	c, ok := r.data.categories[id]
	if !ok {
		return nil, notFound("category", id)
	}
	return &c, nil
}

func (r *repo) ListCategories(_ context.Context, userID string) ([]domain.Category, error) {
	out := []domain.Category{}
	for _, c := range r.data.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *repo) AddCategory(_ context.Context, c *domain.Category) error {
	if _, ok := r.data.categories[c.ID]; ok {
		return conflict("category", c.ID)
	}
	r.data.categories[c.ID] = *c
	return nil
}

func (r *repo) EditCategory(_ context.Context, c *domain.Category) error {
	if _, ok := r.data.categories[c.ID]; !ok {
		return notFound("category", c.ID)
	}
	r.data.categories[c.ID] = *c
	return nil
}

func (r *repo) DeleteCategory(_ context.Context, id string) error {
	if _, ok := r.data.categories[id]; !ok {
		return notFound("category", id)
	}
	delete(r.data.categories, id)
	return nil
}

func (r *repo) GetExpense(_ context.Context, id string) (*domain.Expense, error) {
	e, ok := r.data.expenses[id]
	if !ok {
		return nil, notFound("expense", id)
	}
	return &e, nil
}

func sortExpenses(es []domain.Expense) {
	sort.Slice(es, func(i, j int) bool {
		if !es[i].Date.Equal(es[j].Date) {
			return es[i].Date.Before(es[j].Date)
		}
		return es[i].ID < es[j].ID
	})
}

func (r *repo) ListCategoryExpenses(_ context.Context, categoryID string) ([]domain.Expense, error) {
	out := []domain.Expense{}
	for _, e := range r.data.expenses {
		if e.CategoryID == categoryID {
			out = append(out, e)
		}
	}
	sortExpenses(out)
	return out, nil
}

func (r *repo) ListUserExpenses(_ context.Context, userID string) ([]domain.ExpenseView, error) {
	var es []domain.Expense
	for _, e := range r.data.expenses {
		if c, ok := r.data.categories[e.CategoryID]; ok && c.UserID == userID {
			es = append(es, e)
		}
	}
	sortExpenses(es)
	out := make([]domain.ExpenseView, 0, len(es))
	for _, e := range es {
		c := r.data.categories[e.CategoryID]
		out = append(out, domain.ExpenseView{Expense: e, CategoryName: c.Name, CategoryAmount: c.Amount})
	}
	return out, nil
}

func (r *repo) AddExpense(_ context.Context, e *domain.Expense) error {
	if _, ok := r.data.expenses[e.ID]; ok {
		return conflict("expense", e.ID)
	}
	r.data.expenses[e.ID] = *e
	return nil
}

func (r *repo) EditExpense(_ context.Context, e *domain.Expense) error {
	if _, ok := r.data.expenses[e.ID]; !ok {
		return notFound("expense", e.ID)
	}
	r.data.expenses[e.ID] = *e
	return nil
}

func (r *repo) DeleteExpense(_ context.Context, id string) error {
	if _, ok := r.data.expenses[id]; !ok {
		return notFound("expense", id)
	}
	delete(r.data.expenses, id)
	return nil
}

func (r *repo) DeleteCategoryExpenses(_ context.Context, categoryID string) (int64, error) {
	var n int64
	for id, e := range r.data.expenses {
		if e.CategoryID == categoryID {
			delete(r.data.expenses, id)
			n++
		}
	}
	return n, nil
}

func (r *repo) GetIncome(_ context.Context, id string) (*domain.Income, error) {
	in, ok := r.data.incomes[id]
	if !ok {
		return nil, notFound("income", id)
	}
	return &in, nil
}

func (r *repo) ListIncomes(_ context.Context, userID string) ([]domain.Income, error) {
	out := []domain.Income{}
	for _, in := range r.data.incomes {
		if in.UserID == userID {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *repo) AddIncome(_ context.Context, in *domain.Income) error {
	if _, ok := r.data.incomes[in.ID]; ok {
		return conflict("income", in.ID)
	}
	r.data.incomes[in.ID] = *in
	return nil
}

func (r *repo) EditIncome(_ context.Context, in *domain.Income) error {
	if _, ok := r.data.incomes[in.ID]; !ok {
		return notFound("income", in.ID)
	}
	r.data.incomes[in.ID] = *in
	return nil
}

func (r *repo) DeleteIncome(_ context.Context, id string) error {
	if _, ok := r.data.incomes[id]; !ok {
		return notFound("income", id)
	}
	delete(r.data.incomes, id)
	return nil
}
