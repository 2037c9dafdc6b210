package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/meowem-bao/do1ad-assignment2/internal/domain"
)

var _ ProjectRepository = (*PostgresProjectRepo)(nil)

// PostgresProjectRepo implements ProjectRepository.
type PostgresProjectRepo struct {
	db DBTX
}

func NewPostgresProjectRepo(db DBTX) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: db}
}

var projectColumns = []string{
	"p.id", "p.title", "p.description", "p.start_date", "p.end_date",
	"p.phase", "p.owner_id", "u.username", "p.created_at", "p.updated_at",
}

const insertProjectSQL = `INSERT INTO projects (id, title, description, start_date, end_date, phase, owner_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at, updated_at`

func (r *PostgresProjectRepo) Create(ctx context.Context, p domain.Project) (domain.Project, error) {
	row := r.db.QueryRowContext(ctx, insertProjectSQL,
		p.ID,
		p.Title,
		p.Description,
		p.StartDate,
		nullableDate(p.EndDate),
		string(p.Phase),
		p.OwnerID,
	)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Project{}, mapError("create project", err)
	}
	return p, nil
}

func (r *PostgresProjectRepo) GetByID(ctx context.Context, id int64) (domain.Project, error) {
	query, args, err := psql.Select(projectColumns...).
		From("projects p").
		Join("users u ON u.id = p.owner_id").
		Where("p.id = ?", id).
		ToSql()
	if err != nil {
		return domain.Project{}, fmt.Errorf("build get project: %w", err)
	}
	p, err := scanProject(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return domain.Project{}, mapError("get project", err)
	}
	return p, nil
}

const updateProjectSQL = `UPDATE projects
SET title = $1, description = $2, start_date = $3, end_date = $4, phase = $5
WHERE id = $6 AND owner_id = $7
RETURNING created_at, updated_at`

func (r *PostgresProjectRepo) Update(ctx context.Context, p domain.Project) (domain.Project, error) {
	row := r.db.QueryRowContext(ctx, updateProjectSQL,
		p.Title,
		p.Description,
		p.StartDate,
		nullableDate(p.EndDate),
		string(p.Phase),
		p.ID,
		p.OwnerID,
	)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Project{}, mapError("update project", err)
	}
	return p, nil
}

const deleteProjectSQL = `DELETE FROM projects WHERE id = $1 AND owner_id = $2`

func (r *PostgresProjectRepo) Delete(ctx context.Context, id, ownerID int64) error {
	res, err := r.db.ExecContext(ctx, deleteProjectSQL, id, ownerID)
	if err != nil {
		return mapError("delete project", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete project rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresProjectRepo) List(ctx context.Context, f domain.ProjectFilter) (domain.ProjectPage, error) {
	limit, offset := normalizePaging(f)
	preds := projectPredicates(f)

	countSQL, countArgs, err := withPredicates(psql.Select("COUNT(*)").From("projects p"), preds).ToSql()
	if err != nil {
		return domain.ProjectPage{}, fmt.Errorf("build count projects: %w", err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return domain.ProjectPage{}, mapError("count projects", err)
	}

	page := domain.ProjectPage{Projects: []domain.Project{}, Total: total, Limit: limit, Offset: offset}
	if total == 0 || offset >= total {
		return page, nil
	}

	listSQL, listArgs, err := withPredicates(
		psql.Select(projectColumns...).From("projects p").Join("users u ON u.id = p.owner_id"),
		preds,
	).
		OrderBy("p.created_at DESC", "p.id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return domain.ProjectPage{}, fmt.Errorf("build list projects: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, listSQL, listArgs...)
	if err != nil {
		return domain.ProjectPage{}, mapError("list projects", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return domain.ProjectPage{}, mapError("scan project", err)
		}
		page.Projects = append(page.Projects, p)
	}
	if err := rows.Err(); err != nil {
		return domain.ProjectPage{}, mapError("iterate projects", err)
	}
	return page, nil
}

func (r *PostgresProjectRepo) Stats(ctx context.Context, ownerID int64) (domain.Stats, error) {
	query, args, err := withPredicates(
		psql.Select("p.phase", "COUNT(*)").From("projects p"),
		projectPredicates(domain.ProjectFilter{OwnerID: ownerID}),
	).GroupBy("p.phase").ToSql()
	if err != nil {
		return domain.Stats{}, fmt.Errorf("build project stats: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Stats{}, mapError("project stats", err)
	}
	defer rows.Close()

	stats := domain.NewStats()
	for rows.Next() {
		var (
			phase string
			count int
		)
		if err := rows.Scan(&phase, &count); err != nil {
			return domain.Stats{}, mapError("scan project stats", err)
		}
		stats.ByPhase[domain.Phase(phase)] = count
		stats.TotalProjects += count
	}
	if err := rows.Err(); err != nil {
		return domain.Stats{}, mapError("iterate project stats", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (domain.Project, error) {
	var (
		p     domain.Project
		phase string
		end   sql.NullTime
	)
	if err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.StartDate,
		&end,
		&phase,
		&p.OwnerID,
		&p.OwnerUsername,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return domain.Project{}, err
	}
	p.Phase = domain.Phase(phase)
	if end.Valid {
		t := end.Time
		p.EndDate = &t
	}
	return p, nil
}

func nullableDate(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return *t
}
