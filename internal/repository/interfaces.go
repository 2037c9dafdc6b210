package repository

import (
	"context"
	"database/sql"

	"github.com/meowem-bao/do1ad-assignment2/internal/domain"
)

// DBTX is the subset of database/sql the repositories use.
// Both *sql.DB and *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UserRepository exposes persistence for accounts.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByID(ctx context.Context, id int64) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// ProjectRepository exposes persistence for projects.
type ProjectRepository interface {
	Create(ctx context.Context, project domain.Project) (domain.Project, error)
	GetByID(ctx context.Context, id int64) (domain.Project, error)
	// Update and Delete only touch rows owned by project.OwnerID / ownerID and
	// return domain.ErrNotFound otherwise.
	Update(ctx context.Context, project domain.Project) (domain.Project, error)
	Delete(ctx context.Context, id, ownerID int64) error
	List(ctx context.Context, filter domain.ProjectFilter) (domain.ProjectPage, error)
	Stats(ctx context.Context, ownerID int64) (domain.Stats, error)
}
