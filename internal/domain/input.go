package domain

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewCourse is the input to course creation.
type NewCourse struct {
	ID          string   `json:"id,omitempty" validate:"omitempty,max=64"`
	Title       string   `json:"title" validate:"required,min=3,max=200"`
	Description string   `json:"description,omitempty" validate:"max=5000"`
	Category    string   `json:"category" validate:"required,max=100"`
	Modules     []Module `json:"modules,omitempty" validate:"dive"`
	TotalXP     int      `json:"totalXp,omitempty" validate:"gte=0"`

	CompletionMode                  CompletionMode `json:"completionMode" validate:"omitempty,oneof=modules-only modules-and-quizzes exam-mode study-guide"`
	RequireAllQuizzesPassed         bool           `json:"requireAllQuizzesPassed"`
	MinimumScoreForCompletion       *float64       `json:"minimumScoreForCompletion,omitempty" validate:"omitempty,gte=0,lte=100"`
	CertificateEnabled              bool           `json:"certificateEnabled"`
	CertificateRequiresPassingScore bool           `json:"certificateRequiresPassingScore"`
	MinimumScoreForCertificate      *float64       `json:"minimumScoreForCertificate,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// CoursePatch carries the fields an update may change; nil means unchanged.
type CoursePatch struct {
	Title       *string   `json:"title,omitempty" validate:"omitempty,min=3,max=200"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category    *string   `json:"category,omitempty" validate:"omitempty,min=1,max=100"`
	Modules     *[]Module `json:"modules,omitempty"`
	TotalXP     *int      `json:"totalXp,omitempty" validate:"omitempty,gte=0"`

	CompletionMode                  *CompletionMode `json:"completionMode,omitempty" validate:"omitempty,oneof=modules-only modules-and-quizzes exam-mode study-guide"`
	RequireAllQuizzesPassed         *bool           `json:"requireAllQuizzesPassed,omitempty"`
	MinimumScoreForCompletion       *float64        `json:"minimumScoreForCompletion,omitempty" validate:"omitempty,gte=0,lte=100"`
	CertificateEnabled              *bool           `json:"certificateEnabled,omitempty"`
	CertificateRequiresPassingScore *bool           `json:"certificateRequiresPassingScore,omitempty"`
	MinimumScoreForCertificate      *float64        `json:"minimumScoreForCertificate,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// Apply merges the non-nil fields of p into c.
func (p CoursePatch) Apply(c *Course) {
	if p.Title != nil {
		c.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Category != nil {
		c.Category = strings.TrimSpace(*p.Category)
	}
	if p.Modules != nil {
		c.Modules = append([]Module{}, (*p.Modules)...)
	}
	if p.TotalXP != nil {
		c.TotalXP = *p.TotalXP
	}
	if p.CompletionMode != nil {
		c.CompletionMode = *p.CompletionMode
	}
	if p.RequireAllQuizzesPassed != nil {
		c.RequireAllQuizzesPassed = *p.RequireAllQuizzesPassed
	}
	if p.MinimumScoreForCompletion != nil {
		v := *p.MinimumScoreForCompletion
		c.MinimumScoreForCompletion = &v
	}
	if p.CertificateEnabled != nil {
		c.CertificateEnabled = *p.CertificateEnabled
	}
	if p.CertificateRequiresPassingScore != nil {
		c.CertificateRequiresPassingScore = *p.CertificateRequiresPassingScore
	}
	if p.MinimumScoreForCertificate != nil {
		v := *p.MinimumScoreForCertificate
		c.MinimumScoreForCertificate = &v
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags on v and converts failures into a *ValidationError.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[lowerFirst(fe.Field())] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte", "lte":
		return "is out of range"
	default:
		return "is invalid"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
