package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/meowem-bao/do1ad-assignment2/internal/domain"
	"github.com/meowem-bao/do1ad-assignment2/internal/events"
	"github.com/meowem-bao/do1ad-assignment2/internal/metrics"
	"github.com/meowem-bao/do1ad-assignment2/internal/repository"
	"github.com/meowem-bao/do1ad-assignment2/internal/validation"
)

const (
	DefaultRecentLimit = 10
	MaxRecentLimit     = 50
	SearchPageSize     = repository.DefaultPageSize
	dashboardLimit     = repository.MaxPageSize
)

// ProjectService manages projects and enforces ownership.
type ProjectService struct {
	projects  repository.ProjectRepository
	users     repository.UserRepository
	validator *validation.Validator
	node      *snowflake.Node
	publisher events.Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
	instrumentation
}

// NewProjectService wires dependencies. A nil publisher disables events.
func NewProjectService(projects repository.ProjectRepository, users repository.UserRepository, v *validation.Validator, node *snowflake.Node, publisher events.Publisher, m *metrics.Metrics, logger *zap.Logger) *ProjectService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ProjectService{
		projects:        projects,
		users:           users,
		validator:       v,
		node:            node,
		publisher:       publisher,
		metrics:         m,
		now:             time.Now,
		instrumentation: newInstrumentation(logger),
	}
}

// Create validates form and stores a project owned by ownerID.
func (s *ProjectService) Create(ctx context.Context, ownerID int64, form *validation.ProjectForm) (domain.Project, error) {
	ctx, span := s.startSpan(ctx, "ProjectService.Create")
	defer span.End()

	in, err := s.input(form)
	if err != nil {
		return domain.Project{}, err
	}

	p := domain.Project{ID: s.node.Generate().Int64(), OwnerID: ownerID}
	apply(&p, in)

	created, err := s.projects.Create(ctx, p)
	if err != nil {
		span.RecordError(err)
		return domain.Project{}, err
	}
	span.SetAttributes(attribute.Int64("project.id", created.ID))

	s.metrics.ProjectMutation("create")
	s.audit("project.created", "project_id", created.ID, "owner_id", ownerID)
	s.publish(ctx, events.ProjectCreated, created)
	return created, nil
}

// Get returns any project by id.
func (s *ProjectService) Get(ctx context.Context, id int64) (domain.Project, error) {
	ctx, span := s.startSpan(ctx, "ProjectService.Get")
	defer span.End()
	return s.projects.GetByID(ctx, id)
}

// Authorize loads project id for a mutation by userID. It returns
// domain.ErrNotFound when the project does not exist and domain.ErrForbidden
// when userID does not own it.
func (s *ProjectService) Authorize(ctx context.Context, id, userID int64) (domain.Project, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}
	if !p.OwnedBy(userID) {
		s.log().Warn("ownership check failed", zap.Int64("project_id", id), zap.Int64("user_id", userID))
		return domain.Project{}, domain.ErrForbidden
	}
	return p, nil
}

// Update applies form to project id after the ownership check.
func (s *ProjectService) Update(ctx context.Context, id, userID int64, form *validation.ProjectForm) (domain.Project, error) {
	ctx, span := s.startSpan(ctx, "ProjectService.Update")
	defer span.End()
	span.SetAttributes(attribute.Int64("project.id", id))

	p, err := s.Authorize(ctx, id, userID)
	if err != nil {
		return domain.Project{}, err
	}

	in, err := s.input(form)
	if err != nil {
		return domain.Project{}, err
	}
	apply(&p, in)

	updated, err := s.projects.Update(ctx, p)
	if err != nil {
		span.RecordError(err)
		return domain.Project{}, err
	}

	s.metrics.ProjectMutation("update")
	s.audit("project.updated", "project_id", id, "owner_id", userID)
	s.publish(ctx, events.ProjectUpdated, updated)
	return updated, nil
}

// Delete removes project id after the ownership check.
func (s *ProjectService) Delete(ctx context.Context, id, userID int64) error {
	ctx, span := s.startSpan(ctx, "ProjectService.Delete")
	defer span.End()
	span.SetAttributes(attribute.Int64("project.id", id))

	p, err := s.Authorize(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, id, userID); err != nil {
		span.RecordError(err)
		return err
	}

	s.metrics.ProjectMutation("delete")
	s.audit("project.deleted", "project_id", id, "owner_id", userID)
	s.publish(ctx, events.ProjectDeleted, p)
	return nil
}

// Search runs a public text search. q is sanitized and validated in place.
func (s *ProjectService) Search(ctx context.Context, q *validation.SearchQuery) (domain.ProjectPage, error) {
	ctx, span := s.startSpan(ctx, "ProjectService.Search")
	defer span.End()

	if err := s.validator.Check(q); err != nil {
		return domain.ProjectPage{}, err
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	return s.projects.List(ctx, domain.ProjectFilter{
		Query:  q.Q,
		Phase:  domain.Phase(q.Phase),
		Limit:  SearchPageSize,
		Offset: (page - 1) * SearchPageSize,
	})
}

// Browse lists projects in one phase. An unknown phase is domain.ErrNotFound.
func (s *ProjectService) Browse(ctx context.Context, rawPhase string, page int) (domain.Phase, domain.ProjectPage, error) {
	ctx, span := s.startSpan(ctx, "ProjectService.Browse")
	defer span.End()

	phase, ok := domain.ParsePhase(rawPhase)
	if !ok {
		return "", domain.ProjectPage{}, domain.ErrNotFound
	}
	if page < 1 {
		page = 1
	}
	result, err := s.projects.List(ctx, domain.ProjectFilter{
		Phase:  phase,
		Limit:  SearchPageSize,
		Offset: (page - 1) * SearchPageSize,
	})
	return phase, result, err
}

// ListByOwner returns the projects shown on a user's dashboard.
func (s *ProjectService) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Project, error) {
	ctx, span := s.startSpan(ctx, "ProjectService.ListByOwner")
	defer span.End()

	page, err := s.projects.List(ctx, domain.ProjectFilter{OwnerID: ownerID, Limit: dashboardLimit})
	if err != nil {
		return nil, err
	}
	return page.Projects, nil
}

// Recent returns the newest projects. limit is clamped to [1, MaxRecentLimit].
func (s *ProjectService) Recent(ctx context.Context, limit int) ([]domain.Project, error) {
	ctx, span := s.startSpan(ctx, "ProjectService.Recent")
	defer span.End()

	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	page, err := s.projects.List(ctx, domain.ProjectFilter{Limit: limit})
	if err != nil {
		return nil, err
	}
	return page.Projects, nil
}

// Stats counts projects per phase. ownerID 0 means every project, in which
// case the number of registered users is included.
func (s *ProjectService) Stats(ctx context.Context, ownerID int64) (domain.Stats, error) {
	ctx, span := s.startSpan(ctx, "ProjectService.Stats")
	defer span.End()

	stats, err := s.projects.Stats(ctx, ownerID)
	if err != nil {
		return domain.Stats{}, err
	}
	if ownerID == 0 && s.users != nil {
		n, err := s.users.Count(ctx)
		if err != nil {
			return domain.Stats{}, err
		}
		stats.TotalUsers = n
	}
	return stats, nil
}

func (s *ProjectService) input(form *validation.ProjectForm) (domain.ProjectInput, error) {
	if err := s.validator.Check(form); err != nil {
		return domain.ProjectInput{}, err
	}
	return form.Input()
}

// publish never fails the caller; the row is already committed.
func (s *ProjectService) publish(ctx context.Context, eventType string, p domain.Project) {
	err := s.publisher.Publish(ctx, events.NewProjectEvent(eventType, p, s.now()))
	s.metrics.EventPublished(eventType, err)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log().Warn("publish project event", zap.String("type", eventType), zap.Int64("project_id", p.ID), zap.Error(err))
	}
}

func apply(p *domain.Project, in domain.ProjectInput) {
	p.Title = in.Title
	p.Description = in.Description
	p.StartDate = in.StartDate
	p.EndDate = in.EndDate
	p.Phase = in.Phase
}
