package service

import (
	"strings"

	"github.com/omnicore/omniaudit/internal/domain"
)

// Fallback entries used when no rule matched a list
const (
	defaultStrength    = "Committed to growth by completing a business audit."
	defaultOpportunity = "Review current workflows quarterly to identify new improvement areas"
)

var defaultRecommendation = domain.Recommendation{
	Title:       "Schedule a follow-up audit",
	Description: "Re-run this audit in 90 days to measure progress and surface the next improvements.",
	Priority:    "low",
	Category:    "strategy",
}

var workflowCatalog = map[string]domain.WorkflowModule{
	"omnibot": {
		ID:              "omnibot",
		Name:            "OmniBot",
		Description:     "AI assistant that answers routine customer questions around the clock.",
		Features:        []string{"24/7 chat responses", "FAQ automation", "Lead capture"},
		EstimatedImpact: "Saves 10-15 hours per week",
	},
	"omniforge": {
		ID:              "omniforge",
		Name:            "OmniForge",
		Description:     "Workflow builder that connects your tools and removes manual handoffs.",
		Features:        []string{"Drag-and-drop workflows", "Invoice and scheduling automation", "CRM sync"},
		EstimatedImpact: "Cuts manual data entry by up to 60%",
	},
	"omnitrack": {
		ID:              "omnitrack",
		Name:            "OmniTrack",
		Description:     "Marketing attribution that ties spend to the customers it brings in.",
		Features:        []string{"Acquisition cost dashboard", "Channel attribution", "Budget alerts"},
		EstimatedImpact: "Typically lowers acquisition cost by 20%",
	},
	"omnireach": {
		ID:              "omnireach",
		Name:            "OmniReach",
		Description:     "Content and social publishing toolkit for small teams.",
		Features:        []string{"Content calendar", "Multi-channel scheduling", "Engagement reports"},
		EstimatedImpact: "Doubles posting consistency",
	},
	"omniinsight": {
		ID:              "omniinsight",
		Name:            "OmniInsight",
		Description:     "Business health reporting that highlights where to focus next.",
		Features:        []string{"KPI dashboard", "Monthly health report", "Benchmarking"},
		EstimatedImpact: "Weekly visibility into core metrics",
	},
}

// industryFallbacks are used when the AI paragraph cannot be generated
var industryFallbacks = map[string]string{
	"retail":                "Focus on connecting in-store and online sales: automate inventory updates, track what each new customer costs you, and use your customer list to drive repeat visits.",
	"restaurant":            "Prioritize online ordering and reservations, automate staff scheduling, and keep regulars coming back with a simple loyalty program.",
	"professional_services": "Systematize client intake and proposals, automate invoicing and follow-ups, and track which referral sources bring your most profitable clients.",
	"healthcare":            "Automate appointment reminders and intake forms, reduce no-shows, and keep patient communication consistent and compliant.",
	"construction":          "Standardize quoting and job tracking, automate crew scheduling, and collect reviews after every completed job to win more bids.",
	"technology":            "Instrument your funnel end to end, automate onboarding and support triage, and tie acquisition spend to retained revenue.",
}

const genericFallback = "Start with the highest-priority recommendations above: automate one repetitive workflow this month, measure what it costs to win each customer, and revisit this audit in 90 days to track progress."

// FallbackRecommendation returns the static paragraph for an industry
func FallbackRecommendation(industry string) string {
	key := strings.ToLower(strings.TrimSpace(industry))
	key = strings.NewReplacer(" ", "_", "-", "_", "&", "and").Replace(key)
	if text, ok := industryFallbacks[key]; ok {
		return text
	}
	return genericFallback
}

// GenerateResults derives strengths, opportunities, recommendations and
// workflow modules from a form. It is pure and deterministic; every list is
// non-empty.
func GenerateResults(form domain.AuditForm) domain.AuditResults {
	var res domain.AuditResults

	switch form.BusinessAge {
	case "> 10 years":
		res.Strengths = append(res.Strengths, "Established business with proven staying power.")
	case "5-10 years":
		res.Strengths = append(res.Strengths, "Stable business with several years of operating history.")
	case "< 1 year":
		res.Opportunities = append(res.Opportunities, "Establish repeatable processes early to support growth")
	}

	switch form.UsesAutomation {
	case "yes":
		res.Strengths = append(res.Strengths, "Already leveraging automation to streamline operations.")
	case "no":
		res.Opportunities = append(res.Opportunities, "Implement business automation tools to improve efficiency")
		res.Recommendations = append(res.Recommendations, domain.Recommendation{
			Title:       "Automate repetitive tasks",
			Description: "Start with invoicing, appointment scheduling and follow-up emails; these usually pay back within a month.",
			Priority:    "high",
			Category:    "operations",
		})
	case "partial":
		res.Opportunities = append(res.Opportunities, "Expand existing automation to cover more workflows")
	}

	if form.TracksCAC == "yes" {
		res.Strengths = append(res.Strengths, "Data-driven approach to customer acquisition.")
	} else if form.TracksCAC == "no" {
		res.Opportunities = append(res.Opportunities, "Start tracking customer acquisition costs to optimize marketing spend")
		res.Recommendations = append(res.Recommendations, domain.Recommendation{
			Title:       "Set up acquisition cost tracking",
			Description: "Tag every marketing channel and divide monthly spend by new customers won to find your best channels.",
			Priority:    "high",
			Category:    "marketing",
		})
	}

	if form.HasWebsite == "yes" {
		res.Strengths = append(res.Strengths, "Established online presence through a business website.")
	} else if form.HasWebsite == "no" {
		res.Opportunities = append(res.Opportunities, "Build a professional website to reach more customers")
		res.Recommendations = append(res.Recommendations, domain.Recommendation{
			Title:       "Launch a conversion-focused website",
			Description: "A simple site with clear services, pricing cues and a contact form turns searches into leads.",
			Priority:    "high",
			Category:    "marketing",
		})
	}

	if form.UsesCRM == "yes" {
		res.Strengths = append(res.Strengths, "Organized customer relationship management.")
	} else if form.UsesCRM == "no" {
		res.Opportunities = append(res.Opportunities, "Adopt a CRM system to centralize customer data")
		res.Recommendations = append(res.Recommendations, domain.Recommendation{
			Title:       "Adopt a CRM",
			Description: "Keep every contact, deal and conversation in one place so no lead falls through the cracks.",
			Priority:    "medium",
			Category:    "sales",
		})
	}

	switch form.SocialMediaPresence {
	case "active":
		res.Strengths = append(res.Strengths, "Active engagement with customers on social media.")
	case "none", "minimal":
		res.Opportunities = append(res.Opportunities, "Grow social media presence to increase brand awareness")
		res.Recommendations = append(res.Recommendations, domain.Recommendation{
			Title:       "Create a content calendar",
			Description: "Plan two to three posts a week around customer questions, behind-the-scenes work and results.",
			Priority:    "medium",
			Category:    "marketing",
		})
	}

	if form.EmployeeCount == "51-200" || form.EmployeeCount == "200+" {
		res.Recommendations = append(res.Recommendations, domain.Recommendation{
			Title:       "Document standard operating procedures",
			Description: "Written procedures keep quality consistent as the team grows and shorten onboarding.",
			Priority:    "medium",
			Category:    "operations",
		})
	}

	if form.UsesAutomation != "yes" {
		res.WorkflowRecommendations = append(res.WorkflowRecommendations, workflowCatalog["omnibot"])
	}
	if form.UsesAutomation == "no" || form.UsesCRM == "no" {
		res.WorkflowRecommendations = append(res.WorkflowRecommendations, workflowCatalog["omniforge"])
	}
	if form.TracksCAC == "no" {
		res.WorkflowRecommendations = append(res.WorkflowRecommendations, workflowCatalog["omnitrack"])
	}
	if form.SocialMediaPresence == "none" || form.SocialMediaPresence == "minimal" || form.HasWebsite == "no" {
		res.WorkflowRecommendations = append(res.WorkflowRecommendations, workflowCatalog["omnireach"])
	}

	if len(res.Strengths) == 0 {
		res.Strengths = []string{defaultStrength}
	}
	if len(res.Opportunities) == 0 {
		res.Opportunities = []string{defaultOpportunity}
	}
	if len(res.Recommendations) == 0 {
		res.Recommendations = []domain.Recommendation{defaultRecommendation}
	}
	if len(res.WorkflowRecommendations) == 0 {
		res.WorkflowRecommendations = []domain.WorkflowModule{workflowCatalog["omniinsight"]}
	}
	return res
}
