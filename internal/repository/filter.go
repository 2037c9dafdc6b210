package repository

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/meowem-bao/do1ad-assignment2/internal/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// projectPredicates turns a filter into parameterized WHERE clauses.
// User input only ever reaches the query as a bind argument.
func projectPredicates(f domain.ProjectFilter) sq.And {
	var preds sq.And
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + likeEscaper.Replace(q) + "%"
		preds = append(preds, sq.Or{
			sq.ILike{"p.title": pattern},
			sq.ILike{"p.description": pattern},
		})
	}
	if f.Phase != "" {
		preds = append(preds, sq.Eq{"p.phase": string(f.Phase)})
	}
	if f.OwnerID != 0 {
		preds = append(preds, sq.Eq{"p.owner_id": f.OwnerID})
	}
	return preds
}

func withPredicates(b sq.SelectBuilder, preds sq.And) sq.SelectBuilder {
	if len(preds) == 0 {
		return b
	}
	return b.Where(preds)
}

func normalizePaging(f domain.ProjectFilter) (limit, offset int) {
	limit = f.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	offset = f.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
