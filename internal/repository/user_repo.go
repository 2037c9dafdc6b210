package repository

import (
	"context"
	"strings"

	"github.com/meowem-bao/do1ad-assignment2/internal/domain"
)

var _ UserRepository = (*PostgresUserRepo)(nil)

// PostgresUserRepo implements UserRepository.
type PostgresUserRepo struct {
	db DBTX
}

func NewPostgresUserRepo(db DBTX) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const insertUserSQL = `INSERT INTO users (id, username, email, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING created_at`

func (r *PostgresUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	user.Email = strings.ToLower(user.Email)
	row := r.db.QueryRowContext(ctx, insertUserSQL, user.ID, user.Username, user.Email, user.PasswordHash)
	if err := row.Scan(&user.CreatedAt); err != nil {
		return domain.User{}, mapError("create user", err)
	}
	return user, nil
}

const selectUserSQL = `SELECT id, username, email, password_hash, created_at FROM users`

func (r *PostgresUserRepo) GetByID(ctx context.Context, id int64) (domain.User, error) {
	return r.scanOne(ctx, "get user by id", selectUserSQL+` WHERE id = $1`, id)
}

func (r *PostgresUserRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.scanOne(ctx, "get user by username", selectUserSQL+` WHERE LOWER(username) = LOWER($1)`, username)
}

func (r *PostgresUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username exists", `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))`, username)
}

func (r *PostgresUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email exists", `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email)
}

func (r *PostgresUserRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, mapError("count users", err)
	}
	return n, nil
}

func (r *PostgresUserRepo) scanOne(ctx context.Context, op, query string, arg any) (domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return domain.User{}, mapError(op, err)
	}
	return u, nil
}

func (r *PostgresUserRepo) exists(ctx context.Context, op, query string, arg any) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&ok); err != nil {
		return false, mapError(op, err)
	}
	return ok, nil
}
