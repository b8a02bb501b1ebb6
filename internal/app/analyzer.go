package app

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"grouptrip/internal/domain"
)

// AnalyzeInput carries structured fields, free text, or both. Structured
// fields win over anything extracted from Description.
type AnalyzeInput struct {
	Description       string   `json:"description,omitempty"`
	Destination       string   `json:"destination,omitempty"`
	StartDate         string   `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate           string   `json:"end_date,omitempty"`
	Headcount         *int     `json:"headcount,omitempty"`
	Budget            *float64 `json:"budget,omitempty"` // currency units
	PreviousSessionID string   `json:"previous_session_id,omitempty"`
}

type Analyzer struct {
	extractor domain.RequirementExtractor
	validate  *validator.Validate
}

func NewAnalyzer(x domain.RequirementExtractor) *Analyzer {
	if x == nil {
		x = TextExtractor{}
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Analyzer{extractor: x, validate: v}
}

// Analyze normalizes and validates input into TripRequirements. Every invalid
// field is reported in a single ValidationError.
func (a *Analyzer) Analyze(ctx context.Context, in AnalyzeInput) (domain.TripRequirements, error) {
	var req domain.TripRequirements
	if strings.TrimSpace(in.Description) != "" {
		x, err := a.extractor.Extract(ctx, in.Description)
		if err != nil {
			log.Warn().Err(err).Msg("requirement extraction failed; using structured fields only")
		} else {
			req = x
		}
	}

	var fields []domain.FieldError
	if s := strings.TrimSpace(in.Destination); s != "" {
		req.Destination = s
	}
	if in.StartDate != "" {
		t, err := time.Parse(time.DateOnly, in.StartDate)
		if err != nil {
			fields = append(fields, domain.FieldError{Field: "start_date", Reason: "must be YYYY-MM-DD"})
		} else {
			req.StartDate = t
		}
	}
	if in.EndDate != "" {
		t, err := time.Parse(time.DateOnly, in.EndDate)
		if err != nil {
			fields = append(fields, domain.FieldError{Field: "end_date", Reason: "must be YYYY-MM-DD"})
		} else {
			req.EndDate = t
		}
	}
	if in.Headcount != nil {
		req.Headcount = *in.Headcount
	}
	if in.Budget != nil {
		req.Budget = toCents(*in.Budget)
	}

	fields = append(fields, a.check(req, fields)...)
	if len(fields) > 0 {
		return domain.TripRequirements{}, &domain.ValidationError{Fields: fields}
	}
	return req, nil
}

func (a *Analyzer) check(req domain.TripRequirements, already []domain.FieldError) []domain.FieldError {
	reported := make(map[string]bool, len(already))
	for _, f := range already {
		reported[f.Field] = true
	}
	var out []domain.FieldError
	add := func(field, reason string) {
		if !reported[field] {
			reported[field] = true
			out = append(out, domain.FieldError{Field: field, Reason: reason})
		}
	}

	if err := a.validate.Struct(req); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) {
			for _, fe := range ves {
				add(fe.Field(), describe(fe))
			}
		} else {
			add("requirements", err.Error())
		}
	}
	if req.StartDate.IsZero() {
		add("start_date", "is required")
	}
	if req.EndDate.IsZero() {
		add("end_date", "is required")
	}
	if !req.StartDate.IsZero() && !req.EndDate.IsZero() && req.StartDate.After(req.EndDate) {
		add("end_date", "must not be before start_date")
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "email":
		return "must be a valid email"
	default:
		return "failed " + fe.Tag()
	}
}
