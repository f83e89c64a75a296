package domain

import (
	"context"
	"time"
)

// AuditForm is the questionnaire a business owner submits
type AuditForm struct {
	BusinessName        string   `json:"businessName" validate:"required,max=200"`
	Industry            string   `json:"industry" validate:"required,max=100"`
	BusinessAge         string   `json:"businessAge" validate:"required,oneof='< 1 year' '1-3 years' '3-5 years' '5-10 years' '> 10 years'"`
	EmployeeCount       string   `json:"employeeCount" validate:"required,oneof=1-5 6-20 21-50 51-200 200+"`
	AnnualRevenue       string   `json:"annualRevenue,omitempty" validate:"omitempty,max=100"`
	UsesAutomation      string   `json:"usesAutomation" validate:"required,oneof=yes no partial"`
	TracksCAC           string   `json:"tracksCAC" validate:"required,oneof=yes no"`
	HasWebsite          string   `json:"hasWebsite" validate:"required,oneof=yes no"`
	UsesCRM             string   `json:"usesCRM,omitempty" validate:"omitempty,oneof=yes no"`
	SocialMediaPresence string   `json:"socialMediaPresence,omitempty" validate:"omitempty,oneof=none minimal active"`
	PrimaryChallenge    string   `json:"primaryChallenge,omitempty" validate:"omitempty,max=2000"`
	Goals               []string `json:"goals,omitempty" validate:"omitempty,max=10,dive,max=200"`
	ContactEmail        string   `json:"contactEmail,omitempty" validate:"omitempty,email"`
}

// Recommendation is a canned, actionable suggestion produced by the rule engine
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"` // high, medium, low
	Category    string `json:"category"`
}

// WorkflowModule is a named product bundle recommended from rule matches
type WorkflowModule struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Features        []string `json:"features"`
	EstimatedImpact string   `json:"estimatedImpact"`
}

// AuditResults holds everything derived from a form
type AuditResults struct {
	Strengths               []string         `json:"strengths"`
	Opportunities           []string         `json:"opportunities"`
	Recommendations         []Recommendation `json:"recommendations"`
	AIRecommendation        string           `json:"aiRecommendation"`
	WorkflowRecommendations []WorkflowModule `json:"workflowRecommendations"`
}

// Audit is one stored questionnaire submission plus derived fields. Immutable once created.
type Audit struct {
	ID           int64     `json:"id"`
	BusinessName string    `json:"businessName"`
	Industry     string    `json:"industry"`
	Form         AuditForm `json:"form"`
	AuditResults
	CreatedAt time.Time `json:"createdAt"`
}

// AuditRepository defines data access for audits. There is no update or delete.
type AuditRepository interface {
	Create(ctx context.Context, audit *Audit) error
	GetByID(ctx context.Context, id int64) (*Audit, error)
	List(ctx context.Context) ([]*Audit, error)
	Count(ctx context.Context) (int, error)
}
