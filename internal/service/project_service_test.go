package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meowem-bao/do1ad-assignment2/internal/domain"
	"github.com/meowem-bao/do1ad-assignment2/internal/events"
	"github.com/meowem-bao/do1ad-assignment2/internal/repository/repotest"
	"github.com/meowem-bao/do1ad-assignment2/internal/service"
	"github.com/meowem-bao/do1ad-assignment2/internal/validation"
)

const (
	ownerID = int64(100)
	otherID = int64(200)
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ProjectEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.ProjectEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type projectFixture struct {
	svc       *service.ProjectService
	users     *repotest.Users
	projects  *repotest.Projects
	publisher *recordingPublisher
}

func newProjectFixture(t *testing.T) projectFixture {
	t.Helper()
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	users := repotest.NewUsers()
	projects := repotest.NewProjects(users)
	pub := &recordingPublisher{}
	ctx := context.Background()
	_, err = users.Create(ctx, domain.User{ID: ownerID, Username: "owner", Email: "owner@example.com"})
	require.NoError(t, err)
	_, err = users.Create(ctx, domain.User{ID: otherID, Username: "other", Email: "other@example.com"})
	require.NoError(t, err)

	svc := service.NewProjectService(projects, users, validation.New(), node, pub, nil, zap.NewNop())
	return projectFixture{svc: svc, users: users, projects: projects, publisher: pub}
}

func projectForm() *validation.ProjectForm {
	return &validation.ProjectForm{
		Title:       "Apollo",
		Description: "Moon landing tracker",
		StartDate:   "2024-01-10",
		EndDate:     "2024-06-30",
		Phase:       "design",
	}
}

func TestCreateProject(t *testing.T) {
	f := newProjectFixture(t)

	p, err := f.svc.Create(context.Background(), ownerID, projectForm())
	require.NoError(t, err)
	require.NotZero(t, p.ID)
	require.Equal(t, ownerID, p.OwnerID)
	require.Equal(t, "owner", p.OwnerUsername)
	require.Equal(t, domain.PhaseDesign, p.Phase)
	require.Equal(t, "2024-06-30", p.EndDateString())
	require.Equal(t, []string{events.ProjectCreated}, f.publisher.types())
}

func TestCreateProjectSanitizesMarkup(t *testing.T) {
	f := newProjectFixture(t)
	form := projectForm()
	form.Title = "  <script>alert(1)</script>Apollo <b>X</b> "

	p, err := f.svc.Create(context.Background(), ownerID, form)
	require.NoError(t, err)
	require.Equal(t, "Apollo X", p.Title)
}

func TestCreateProjectRejectsUnknownPhase(t *testing.T) {
	f := newProjectFixture(t)
	form := projectForm()
	form.Phase = "unknown"

	_, err := f.svc.Create(context.Background(), ownerID, form)
	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs))
	require.Contains(t, verrs.For("phase"), "select a valid phase")
	require.Zero(t, f.projects.Creates)
	require.Empty(t, f.publisher.types())
}

func TestCreateProjectEndDateRule(t *testing.T) {
	f := newProjectFixture(t)
	for _, end := range []string{"2024-01-10", "2023-12-31"} {
		form := projectForm()
		form.EndDate = end
		_, err := f.svc.Create(context.Background(), ownerID, form)
		var verrs validation.Errors
		require.True(t, errors.As(err, &verrs), end)
		require.Equal(t, "End date must be after the start date.", verrs.For("end_date"))
	}

	form := projectForm()
	form.EndDate = ""
	p, err := f.svc.Create(context.Background(), ownerID, form)
	require.NoError(t, err)
	require.Nil(t, p.EndDate)
	require.Equal(t, 1, f.projects.Len())
}

func TestUpdateProjectOwnership(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, ownerID, projectForm())
	require.NoError(t, err)

	edit := projectForm()
	edit.Title = "Hijacked"
	_, err = f.svc.Update(ctx, p.ID, otherID, edit)
	require.ErrorIs(t, err, domain.ErrForbidden)

	stored, ok := f.projects.Snapshot(p.ID)
	require.True(t, ok)
	require.Equal(t, "Apollo", stored.Title)

	_, err = f.svc.Update(ctx, 999, ownerID, edit)
	require.ErrorIs(t, err, domain.ErrNotFound)

	edit.Title = "Apollo II"
	edit.Phase = "testing"
	updated, err := f.svc.Update(ctx, p.ID, ownerID, edit)
	require.NoError(t, err)
	require.Equal(t, "Apollo II", updated.Title)
	require.Equal(t, domain.PhaseTesting, updated.Phase)
	require.Equal(t, []string{events.ProjectCreated, events.ProjectUpdated}, f.publisher.types())
}

func TestUpdateProjectValidatesAfterOwnership(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, ownerID, projectForm())
	require.NoError(t, err)

	bad := projectForm()
	bad.Phase = "unknown"
	_, err = f.svc.Update(ctx, p.ID, otherID, bad)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Update(ctx, p.ID, ownerID, bad)
	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs))
}

func TestDeleteProject(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()
	p, err := f.svc.Create(ctx, ownerID, projectForm())
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.Delete(ctx, p.ID, otherID), domain.ErrForbidden)
	require.Equal(t, 1, f.projects.Len())

	require.NoError(t, f.svc.Delete(ctx, p.ID, ownerID))
	require.Zero(t, f.projects.Len())
	require.ErrorIs(t, f.svc.Delete(ctx, p.ID, ownerID), domain.ErrNotFound)
	require.Equal(t, []string{events.ProjectCreated, events.ProjectDeleted}, f.publisher.types())
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	f := newProjectFixture(t)
	f.publisher.err = errors.New("broker down")

	_, err := f.svc.Create(context.Background(), ownerID, projectForm())
	require.NoError(t, err)
	require.Equal(t, 1, f.projects.Len())
}

func TestSearchBrowseAndStats(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()

	mk := func(owner int64, title, phase string) {
		form := projectForm()
		form.Title = title
		form.Phase = phase
		_, err := f.svc.Create(ctx, owner, form)
		require.NoError(t, err)
	}
	mk(ownerID, "Apollo", "design")
	mk(ownerID, "Gemini", "testing")
	mk(otherID, "Mercury", "testing")

	page, err := f.svc.Search(ctx, &validation.SearchQuery{Q: "gem"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, "Gemini", page.Projects[0].Title)

	page, err = f.svc.Search(ctx, &validation.SearchQuery{Phase: "testing"})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)

	_, err = f.svc.Search(ctx, &validation.SearchQuery{Phase: "bogus"})
	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs))

	phase, page, err := f.svc.Browse(ctx, "Testing", 1)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseTesting, phase)
	require.Equal(t, 2, page.Total)

	_, _, err = f.svc.Browse(ctx, "nope", 1)
	require.ErrorIs(t, err, domain.ErrNotFound)

	mine, err := f.svc.ListByOwner(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, "Gemini", mine[0].Title, "newest first")

	recent, err := f.svc.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	recent, err = f.svc.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, "Mercury", recent[0].Title)

	global, err := f.svc.Stats(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 3, global.TotalProjects)
	require.Equal(t, 2, global.TotalUsers)
	require.Equal(t, 2, global.ByPhase[domain.PhaseTesting])
	require.Equal(t, 0, global.ByPhase[domain.PhaseComplete])

	own, err := f.svc.Stats(ctx, ownerID)
	require.NoError(t, err)
	require.Equal(t, 2, own.TotalProjects)
	require.Zero(t, own.TotalUsers)
}
