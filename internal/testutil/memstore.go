// Package testutil provides in-memory stand-ins for the MySQL repositories.
// They follow the same error contract (repository.ErrNotFound and friends)
// so services and handlers can be tested without a database.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/finance-control-api/internal/model"
	"github.com/iliyamo/finance-control-api/internal/repository"
)

// Store holds every table.  The zero value is not usable; call NewStore.
type Store struct {
	mu sync.Mutex

	Now  func() time.Time
	Cost int

	nextID     uint64
	users      map[uint64]*model.User
	sessions   map[uint64]*model.Session
	categories map[uint64]*model.Category
	entries    map[uint64]*model.Entry
	links      map[uint64][]uint64 // entry id -> category ids
	favorites  map[uint64]*model.Favorite
}

func NewStore() *Store {
	return &Store{
		Now:        func() time.Time { return time.Now().UTC() },
		Cost:       4,
		users:      map[uint64]*model.User{},
		sessions:   map[uint64]*model.Session{},
		categories: map[uint64]*model.Category{},
		entries:    map[uint64]*model.Entry{},
		links:      map[uint64][]uint64{},
		favorites:  map[uint64]*model.Favorite{},
	}
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

// Users returns the user table view.
func (s *Store) Users() *Users { return &Users{s} }

// Sessions returns the session registry view.
func (s *Store) Sessions() *Sessions { return &Sessions{s} }

func (s *Store) Categories() *Categories { return &Categories{s} }

func (s *Store) Entries() *Entries { return &Entries{s} }

func (s *Store) Favorites() *Favorites { return &Favorites{s} }

// Users mirrors repository.UserRepo.
type Users struct{ s *Store }

func (r *Users) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, x := range r.s.users {
		if x.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	if err := u.HashPending(r.s.Cost); err != nil {
		return err
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	u.ID = r.s.id()
	u.CreatedAt, u.UpdatedAt = r.s.Now(), r.s.Now()
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Users) GetByID(_ context.Context, id uint64) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *Users) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if err == repository.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *Users) Update(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	if err := u.HashPending(r.s.Cost); err != nil {
		return err
	}
	u.UpdatedAt = r.s.Now()
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

// Sessions mirrors repository.SessionRepo.
type Sessions struct{ s *Store }

func (r *Sessions) Create(_ context.Context, userID uint64, sessid string, expiresAt time.Time) (*model.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if expiresAt.IsZero() {
		expiresAt = r.s.Now().Add(30 * 24 * time.Hour)
	}
	sess := &model.Session{ID: r.s.id(), UserID: userID, Sessid: sessid, ExpiresAt: expiresAt, CreatedAt: r.s.Now()}
	r.s.sessions[sess.ID] = sess
	cp := *sess
	return &cp, nil
}

func (r *Sessions) Find(_ context.Context, f repository.SessionFilter) (*model.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.Now()
	for _, sess := range r.s.sessions {
		if sess.UserID == f.UserID && sess.Sessid == f.Sessid && !sess.Expired(now) {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Sessions) Revoke(_ context.Context, f repository.SessionFilter) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, sess := range r.s.sessions {
		if sess.UserID == f.UserID && (f.Sessid == "" || sess.Sessid == f.Sessid) {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Count returns how many registry rows belong to userID, expired included.
func (r *Sessions) Count(userID uint64) int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, sess := range r.s.sessions {
		if sess.UserID == userID {
			n++
		}
	}
	return n
}

// Categories mirrors repository.CategoryRepo.
type Categories struct{ s *Store }

func (r *Categories) ListByUser(_ context.Context, userID uint64) ([]model.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Category{}
	for _, c := range r.s.categories {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Categories) GetByID(_ context.Context, id uint64) (*model.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *Categories) Create(_ context.Context, c *model.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.id()
	c.CreatedAt, c.UpdatedAt = r.s.Now(), r.s.Now()
	cp := *c
	r.s.categories[c.ID] = &cp
	return nil
}

func (r *Categories) Update(_ context.Context, c *model.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	old, ok := r.s.categories[c.ID]
	if !ok || old.UserID != c.UserID {
		return repository.ErrNotFound
	}
	c.CreatedAt, c.UpdatedAt = old.CreatedAt, r.s.Now()
	cp := *c
	r.s.categories[c.ID] = &cp
	return nil
}

func (r *Categories) Delete(_ context.Context, userID, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, cats := range r.s.links {
		for _, cid := range cats {
			if cid == id {
				return repository.ErrConflict
			}
		}
	}
	c, ok := r.s.categories[id]
	if !ok || c.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.s.categories, id)
	return nil
}

func (r *Categories) CountOwned(_ context.Context, userID uint64, ids []uint64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, id := range ids {
		if c, ok := r.s.categories[id]; ok && c.UserID == userID {
			n++
		}
	}
	return n, nil
}

// Entries mirrors repository.EntryRepo.
type Entries struct{ s *Store }

func (r *Entries) withCategories(e *model.Entry) model.Entry {
	cp := *e
	cp.Categories = nil
	for _, cid := range r.s.links[e.ID] {
		if c, ok := r.s.categories[cid]; ok {
			cp.Categories = append(cp.Categories, *c)
		}
	}
	return cp
}

func (r *Entries) ListBetween(_ context.Context, userID uint64, start, end time.Time) ([]model.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Entry{}
	for _, e := range r.s.entries {
		if e.UserID != userID || e.RegisteredAt.Before(start) || e.RegisteredAt.After(end) {
			continue
		}
		out = append(out, r.withCategories(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *Entries) GetByID(_ context.Context, id uint64) (*model.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := r.withCategories(e)
	return &out, nil
}

func (r *Entries) Create(_ context.Context, e *model.Entry, categoryIDs []uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.ID = r.s.id()
	e.CreatedAt, e.UpdatedAt = r.s.Now(), r.s.Now()
	cp := *e
	cp.Categories = nil
	r.s.entries[e.ID] = &cp
	r.s.links[e.ID] = model.UniqueIDs(categoryIDs)
	*e = r.withCategories(&cp)
	return nil
}

func (r *Entries) Update(_ context.Context, e *model.Entry, categoryIDs []uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	old, ok := r.s.entries[e.ID]
	if !ok || old.UserID != e.UserID {
		return repository.ErrNotFound
	}
	e.CreatedAt, e.UpdatedAt = old.CreatedAt, r.s.Now()
	cp := *e
	cp.Categories = nil
	r.s.entries[e.ID] = &cp
	if categoryIDs != nil {
		r.s.links[e.ID] = model.UniqueIDs(categoryIDs)
	}
	*e = r.withCategories(&cp)
	return nil
}

func (r *Entries) Delete(_ context.Context, userID, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entries[id]
	if !ok || e.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.s.entries, id)
	delete(r.s.links, id)
	return nil
}

// Favorites mirrors repository.FavoriteRepo.
type Favorites struct{ s *Store }

func (r *Favorites) ListByUser(_ context.Context, userID uint64) ([]model.Favorite, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Favorite{}
	for _, f := range r.s.favorites {
		if f.UserID == userID {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Favorites) GetByID(_ context.Context, id uint64) (*model.Favorite, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.favorites[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *Favorites) Create(_ context.Context, f *model.Favorite) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f.ID = r.s.id()
	f.CreatedAt, f.UpdatedAt = r.s.Now(), r.s.Now()
	cp := *f
	r.s.favorites[f.ID] = &cp
	return nil
}

func (r *Favorites) Update(_ context.Context, f *model.Favorite) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	old, ok := r.s.favorites[f.ID]
	if !ok || old.UserID != f.UserID {
		return repository.ErrNotFound
	}
	f.CreatedAt, f.UpdatedAt = old.CreatedAt, r.s.Now()
	cp := *f
	r.s.favorites[f.ID] = &cp
	return nil
}

func (r *Favorites) Delete(_ context.Context, userID, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.favorites[id]
	if !ok || f.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.s.favorites, id)
	return nil
}
