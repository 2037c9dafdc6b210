package validation

import (
	"time"

	"github.com/meowem-bao/do1ad-assignment2/internal/domain"
)

// RegisterForm is the account sign-up payload.
type RegisterForm struct {
	Username        string `form:"username" json:"username" validate:"required,min=3,max=50,username"`
	Email           string `form:"email" json:"email" validate:"required,max=255,email"`
	Password        string `form:"password" json:"password" sanitize:"-" validate:"required,min=8,max=128,password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password" sanitize:"-" validate:"required,eqfield=Password"`
}

// LoginForm is the credential payload. Only presence is checked so that
// failures never hint at which accounts exist.
type LoginForm struct {
	Username string `form:"username" json:"username" validate:"required,max=50"`
	Password string `form:"password" json:"password" sanitize:"-" validate:"required,max=128"`
}

// ProjectForm is the create/edit payload.
type ProjectForm struct {
	Title       string `form:"title" json:"title" validate:"required,min=3,max=100"`
	Description string `form:"description" json:"description" validate:"required,max=500"`
	StartDate   string `form:"start_date" json:"start_date" validate:"required,date"`
	EndDate     string `form:"end_date" json:"end_date" validate:"omitempty,date"`
	Phase       string `form:"phase" json:"phase" validate:"required,phase"`
}

// ProjectFormFrom pre-fills the edit form.
func ProjectFormFrom(p domain.Project) ProjectForm {
	return ProjectForm{
		Title:       p.Title,
		Description: p.Description,
		StartDate:   p.StartDateString(),
		EndDate:     p.EndDateString(),
		Phase:       string(p.Phase),
	}
}

// Input converts a validated form into domain values.
func (f ProjectForm) Input() (domain.ProjectInput, error) {
	start, err := time.Parse(domain.DateLayout, f.StartDate)
	if err != nil {
		return domain.ProjectInput{}, Errors{{Field: "start_date", Message: msgDate}}
	}
	in := domain.ProjectInput{
		Title:       f.Title,
		Description: f.Description,
		StartDate:   start,
		Phase:       domain.Phase(f.Phase),
	}
	if f.EndDate != "" {
		end, err := time.Parse(domain.DateLayout, f.EndDate)
		if err != nil {
			return domain.ProjectInput{}, Errors{{Field: "end_date", Message: msgDate}}
		}
		in.EndDate = &end
	}
	return in, nil
}

// SearchQuery holds the public search parameters.
type SearchQuery struct {
	Q     string `form:"q" json:"q" validate:"max=100"`
	Phase string `form:"phase" json:"phase" validate:"omitempty,phase"`
	Page  int    `form:"page" json:"page" validate:"omitempty,min=1,max=10000"`
}
