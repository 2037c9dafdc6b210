// Package repotest provides in-memory repositories for service and handler
// tests. They honour the same uniqueness, ownership and ordering rules as the
// Postgres implementations.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/meowem-bao/do1ad-assignment2/internal/domain"
	"github.com/meowem-bao/do1ad-assignment2/internal/repository"
)

var (
	_ repository.UserRepository    = (*Users)(nil)
	_ repository.ProjectRepository = (*Projects)(nil)
)

// Users is an in-memory UserRepository.
type Users struct {
	mu      sync.Mutex
	byID    map[int64]domain.User
	Creates int
	Err     error
}

func NewUsers() *Users {
	return &Users{byID: map[int64]domain.User{}}
}

func (r *Users) Create(_ context.Context, u domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return domain.User{}, r.Err
	}
	u.Email = strings.ToLower(u.Email)
	for _, existing := range r.byID {
		if strings.EqualFold(existing.Username, u.Username) || existing.Email == u.Email {
			return domain.User{}, fmt.Errorf("create user: %w", domain.ErrAlreadyExists)
		}
	}
	u.CreatedAt = time.Now().UTC()
	r.byID[u.ID] = u
	r.Creates++
	return u, nil
}

func (r *Users) GetByID(_ context.Context, id int64) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (r *Users) GetByUsername(_ context.Context, username string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (r *Users) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	if err == domain.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *Users) EmailExists(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *Users) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID), nil
}

// Len returns the number of stored users.
func (r *Users) Len() int {
	n, _ := r.Count(context.Background())
	return n
}

// Projects is an in-memory ProjectRepository. Users, when set, supplies
// owner usernames for read views.
type Projects struct {
	mu      sync.Mutex
	byID    map[int64]domain.Project
	seq     int
	order   map[int64]int
	Users   *Users
	Creates int
	Err     error
}

func NewProjects(users *Users) *Projects {
	return &Projects{byID: map[int64]domain.Project{}, order: map[int64]int{}, Users: users}
}

func (r *Projects) Create(_ context.Context, p domain.Project) (domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return domain.Project{}, r.Err
	}
	if _, ok := r.byID[p.ID]; ok {
		return domain.Project{}, fmt.Errorf("create project: %w", domain.ErrAlreadyExists)
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.seq++
	r.order[p.ID] = r.seq
	r.byID[p.ID] = p
	r.Creates++
	return r.withOwner(p), nil
}

func (r *Projects) GetByID(_ context.Context, id int64) (domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return domain.Project{}, domain.ErrNotFound
	}
	return r.withOwner(p), nil
}

func (r *Projects) Update(_ context.Context, p domain.Project) (domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return domain.Project{}, r.Err
	}
	existing, ok := r.byID[p.ID]
	if !ok || existing.OwnerID != p.OwnerID {
		return domain.Project{}, domain.ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	r.byID[p.ID] = p
	return r.withOwner(p), nil
}

func (r *Projects) Delete(_ context.Context, id, ownerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[id]
	if !ok || existing.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.order, id)
	return nil
}

func (r *Projects) List(_ context.Context, f domain.ProjectFilter) (domain.ProjectPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return domain.ProjectPage{}, r.Err
	}

	var matched []domain.Project
	q := strings.ToLower(strings.TrimSpace(f.Query))
	for _, p := range r.byID {
		if q != "" && !strings.Contains(strings.ToLower(p.Title), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		if f.Phase != "" && p.Phase != f.Phase {
			continue
		}
		if f.OwnerID != 0 && p.OwnerID != f.OwnerID {
			continue
		}
		matched = append(matched, r.withOwner(p))
	}
	// newest first
	sort.Slice(matched, func(i, j int) bool {
		return r.order[matched[i].ID] > r.order[matched[j].ID]
	})

	limit := f.Limit
	if limit <= 0 {
		limit = repository.DefaultPageSize
	}
	offset := f.Offset
	page := domain.ProjectPage{Projects: []domain.Project{}, Total: len(matched), Limit: limit, Offset: offset}
	if offset >= len(matched) {
		return page, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	page.Projects = append(page.Projects, matched[offset:end]...)
	return page, nil
}

func (r *Projects) Stats(_ context.Context, ownerID int64) (domain.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return domain.Stats{}, r.Err
	}
	stats := domain.NewStats()
	for _, p := range r.byID {
		if ownerID != 0 && p.OwnerID != ownerID {
			continue
		}
		stats.TotalProjects++
		stats.ByPhase[p.Phase]++
	}
	return stats, nil
}

// Len returns the number of stored projects.
func (r *Projects) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// Snapshot returns the stored row without owner enrichment.
func (r *Projects) Snapshot(id int64) (domain.Project, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	return p, ok
}

func (r *Projects) withOwner(p domain.Project) domain.Project {
	if r.Users == nil {
		return p
	}
	r.Users.mu.Lock()
	defer r.Users.mu.Unlock()
	if u, ok := r.Users.byID[p.OwnerID]; ok {
		p.OwnerUsername = u.Username
	}
	return p
}
