package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// DateLayout is the wire and form format for project dates.
const DateLayout = "2006-01-02"

// Phase is the lifecycle label of a project.
type Phase string

const (
	PhaseDesign      Phase = "design"
	PhaseDevelopment Phase = "development"
	PhaseTesting     Phase = "testing"
	PhaseDeployment  Phase = "deployment"
	PhaseComplete    Phase = "complete"
)

var allPhases = []Phase{PhaseDesign, PhaseDevelopment, PhaseTesting, PhaseDeployment, PhaseComplete}

// AllPhases returns the phases in lifecycle order.
func AllPhases() []Phase {
	out := make([]Phase, len(allPhases))
	copy(out, allPhases)
	return out
}

// ParsePhase normalizes raw input and reports whether it names a known phase.
func ParsePhase(raw string) (Phase, bool) {
	p := Phase(strings.ToLower(strings.TrimSpace(raw)))
	return p, p.Valid()
}

func (p Phase) Valid() bool {
	for _, known := range allPhases {
		if p == known {
			return true
		}
	}
	return false
}

// Label is the human readable name shown in templates.
func (p Phase) Label() string {
	if p == "" {
		return ""
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}

func (p Phase) String() string { return string(p) }

// Project is a tracked piece of work owned by a single user.
type Project struct {
	ID            int64      `json:"id,string"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	StartDate     time.Time  `json:"-"`
	EndDate       *time.Time `json:"-"`
	Phase         Phase      `json:"phase"`
	OwnerID       int64      `json:"owner_id,string"`
	OwnerUsername string     `json:"owner_username,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// StartDateString formats the start date using DateLayout.
func (p Project) StartDateString() string {
	if p.StartDate.IsZero() {
		return ""
	}
	return p.StartDate.Format(DateLayout)
}

// EndDateString formats the optional end date; empty when unset.
func (p Project) EndDateString() string {
	if p.EndDate == nil || p.EndDate.IsZero() {
		return ""
	}
	return p.EndDate.Format(DateLayout)
}

// MarshalJSON renders dates as DateLayout strings.
func (p Project) MarshalJSON() ([]byte, error) {
	type alias Project
	var end *string
	if s := p.EndDateString(); s != "" {
		end = &s
	}
	return json.Marshal(struct {
		alias
		StartDate string  `json:"start_date"`
		EndDate   *string `json:"end_date"`
	}{
		alias:     alias(p),
		StartDate: p.StartDateString(),
		EndDate:   end,
	})
}

// OwnedBy reports whether userID owns the project.
func (p Project) OwnedBy(userID int64) bool {
	return userID != 0 && p.OwnerID == userID
}

// ProjectInput carries validated, sanitized values for create and update.
type ProjectInput struct {
	Title       string
	Description string
	StartDate   time.Time
	EndDate     *time.Time
	Phase       Phase
}

// ProjectFilter narrows project listings. Zero values mean "no constraint".
type ProjectFilter struct {
	Query   string
	Phase   Phase
	OwnerID int64
	Limit   int
	Offset  int
}

// ProjectPage is one page of a filtered listing.
type ProjectPage struct {
	Projects []Project `json:"projects"`
	Total    int       `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}

// HasNext reports whether another page follows.
func (p ProjectPage) HasNext() bool {
	return p.Offset+len(p.Projects) < p.Total
}

// Stats summarises project counts.
type Stats struct {
	TotalProjects int           `json:"total_projects"`
	TotalUsers    int           `json:"total_users,omitempty"`
	ByPhase       map[Phase]int `json:"by_phase"`
}

// NewStats returns Stats with a zero count for every phase.
func NewStats() Stats {
	byPhase := make(map[Phase]int, len(allPhases))
	for _, p := range allPhases {
		byPhase[p] = 0
	}
	return Stats{ByPhase: byPhase}
}
