package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/meowem-bao/do1ad-assignment2/internal/domain"
)

const (
	msgDate         = "Please enter a valid date (YYYY-MM-DD)."
	msgPhase        = "Please select a valid phase."
	msgEndAfter     = "End date must be after the start date."
	msgUsernameLen  = "Username must be between 3 and 50 characters."
	msgPasswordLen  = "Password must be between 8 and 128 characters."
	msgTitleLen     = "Title must be between 3 and 100 characters."
	msgPasswordsEq  = "Passwords do not match."
	msgAlreadyTaken = "Username or email already exists."
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// messages maps "<field>.<tag>" to the text shown to the user.
var messages = map[string]string{
	"username.required":         "Username is required.",
	"username.min":              msgUsernameLen,
	"username.max":              msgUsernameLen,
	"username.username":         "Username may only contain letters, numbers and underscores.",
	"email.required":            "Email is required.",
	"email.email":               "Please enter a valid email address.",
	"email.max":                 "Email must be at most 255 characters.",
	"password.required":         "Password is required.",
	"password.min":              msgPasswordLen,
	"password.max":              msgPasswordLen,
	"password.password":         "Password must contain at least one letter and one number.",
	"confirm_password.required": "Please confirm your password.",
	"confirm_password.eqfield":  msgPasswordsEq,
	"title.required":            "Title is required.",
	"title.min":                 msgTitleLen,
	"title.max":                 msgTitleLen,
	"description.required":      "Description is required.",
	"description.max":           "Description must be at most 500 characters.",
	"start_date.required":       "Start date is required.",
	"start_date.date":           msgDate,
	"end_date.date":             msgDate,
	"end_date.after_start":      msgEndAfter,
	"phase.required":            msgPhase,
	"phase.phase":               msgPhase,
	"q.max":                     "Search terms must be at most 100 characters.",
	"page.min":                  "Page must be a positive number.",
	"page.max":                  "Page is out of range.",
}

// AlreadyExists is the violation reported when a unique constraint rejects a write.
func AlreadyExists() Errors {
	return Errors{{Field: "username", Message: msgAlreadyTaken}}
}

// Validator evaluates declarative field rules plus cross-field rules.
type Validator struct {
	validate  *validator.Validate
	sanitizer *Sanitizer
}

// New builds a Validator with the custom rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phase", func(fl validator.FieldLevel) bool {
		return domain.Phase(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(domain.DateLayout, fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		var letter, digit bool
		for _, r := range fl.Field().String() {
			switch {
			case unicode.IsLetter(r):
				letter = true
			case unicode.IsDigit(r):
				digit = true
			}
		}
		return letter && digit
	})
	v.RegisterStructValidation(projectDates, ProjectForm{})

	return &Validator{validate: v, sanitizer: NewSanitizer()}
}

// Check sanitizes form in place and validates it, returning every violation.
// form must be a pointer to a struct.
func (v *Validator) Check(form any) error {
	v.sanitizer.Struct(form)
	return v.Struct(form)
}

// Struct validates without sanitizing.
func (v *Validator) Struct(form any) error {
	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out.Add(fe.Field(), message(fe))
	}
	return out.OrNil()
}

func message(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	label := strings.ReplaceAll(fe.Field(), "_", " ")
	if label != "" {
		label = strings.ToUpper(label[:1]) + label[1:]
	}
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "max":
		return label + " must be at most " + fe.Param() + " characters."
	case "min":
		return label + " must be at least " + fe.Param() + " characters."
	}
	return label + " is invalid."
}

func projectDates(sl validator.StructLevel) {
	var form ProjectForm
	switch f := sl.Current().Interface().(type) {
	case ProjectForm:
		form = f
	case *ProjectForm:
		form = *f
	default:
		return
	}
	if form.EndDate == "" {
		return
	}
	start, err := time.Parse(domain.DateLayout, form.StartDate)
	if err != nil {
		return
	}
	end, err := time.Parse(domain.DateLayout, form.EndDate)
	if err != nil {
		return
	}
	if !end.After(start) {
		sl.ReportError(form.EndDate, "end_date", "EndDate", "after_start", "")
	}
}
