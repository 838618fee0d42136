// ABOUTME: Input models and validation shared by the TUI forms and CLI commands
// ABOUTME: Wraps go-playground/validator with English messages keyed by JSON field names

package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	// custom validation tags
	notBlankTag = "notblank"
)

// messages that replace the stock English translations
var overrides = map[string]string{
	notBlankTag: "{0} cannot be blank",
	"eqfield":   "Passwords do not match",
	"min":       "{0} must be at least {1}",
	"max":       "{0} must be at most {1}",
}

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)

	for tag, text := range overrides {
		_ = validate.RegisterTranslation(tag, translator,
			func(t ut.Translator) error {
				return t.Add(tag, text, true)
			},
			func(t ut.Translator, fe validator.FieldError) string {
				msg, err := t.T(fe.Tag(), fe.Field(), fe.Param())
				if err != nil {
					return fe.Error()
				}
				return msg
			})
	}
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

// Credentials is the login form
type Credentials struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

// Registration is the sign-up form. Every new account is a student.
type Registration struct {
	Username        string `json:"username" validate:"notblank,max=80"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// CourseInput is the course creation form
type CourseInput struct {
	Title       string `json:"title" validate:"notblank,max=100"`
	Description string `json:"description" validate:"notblank"`
}

// GradeInput is the grading form for one student in one course
type GradeInput struct {
	Grade    int    `json:"grade" validate:"min=0,max=100"`
	Feedback string `json:"feedback" validate:"notblank"`
}

// FieldError is a single translated validation failure
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every field that failed validation
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// First returns the first failure message, which is what forms display
func (e *ValidationError) First() string {
	if len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0].Message
}

// For returns the message for the named field, or "" if it passed
func (e *ValidationError) For(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

// Validate checks v against its struct tags. It returns nil or a *ValidationError.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Message: fe.Translate(translator),
		})
	}
	return out
}

// ValidateField validates v and reports only the failure for field, as a
// plain error suitable for a huh field validator.
func ValidateField(v interface{}, field string) error {
	err := Validate(v)
	var verr *ValidationError
	if errors.As(err, &verr) {
		if msg := verr.For(field); msg != "" {
			return errors.New(msg)
		}
		return nil
	}
	return err
}

// Grade bands for display. Grades below PassingGrade are failing.
const (
	PassingGrade = 60
	HonoursGrade = 85
)

// GradeBand names the band a 0-100 grade falls in
func GradeBand(grade int) string {
	switch {
	case grade < PassingGrade:
		return "failing"
	case grade < HonoursGrade:
		return "passing"
	default:
		return "honours"
	}
}

// ParseGrade converts user input into a grade value
func ParseGrade(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("grade must be a whole number")
	}
	return n, nil
}
