package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnicore/omniaudit/internal/domain"
)

func validForm() domain.AuditForm {
	return domain.AuditForm{
		BusinessName:   "Acme Bakery",
		Industry:       "restaurant",
		BusinessAge:    "> 10 years",
		EmployeeCount:  "6-20",
		UsesAutomation: "no",
		TracksCAC:      "no",
		HasWebsite:     "yes",
	}
}

func TestGenerateResults_KnownForm(t *testing.T) {
	res := GenerateResults(validForm())

	assert.Contains(t, res.Opportunities, "Implement business automation tools to improve efficiency")
	assert.Contains(t, res.Opportunities, "Start tracking customer acquisition costs to optimize marketing spend")
	assert.Contains(t, res.Strengths, "Established business with proven staying power.")
	assert.NotEmpty(t, res.Recommendations)
	assert.NotEmpty(t, res.WorkflowRecommendations)
}

func TestGenerateResults_NeverEmptyAndDeterministic(t *testing.T) {
	forms := []domain.AuditForm{
		validForm(),
		{BusinessName: "x", Industry: "y", BusinessAge: "1-3 years", EmployeeCount: "1-5", UsesAutomation: "partial", TracksCAC: "yes", HasWebsite: "yes"},
		{BusinessName: "x", Industry: "y", BusinessAge: "3-5 years", EmployeeCount: "200+", UsesAutomation: "yes", TracksCAC: "yes", HasWebsite: "yes", UsesCRM: "yes", SocialMediaPresence: "active"},
	}
	for _, f := range forms {
		a := GenerateResults(f)
		b := GenerateResults(f)
		assert.Equal(t, a, b)
		assert.NotEmpty(t, a.Strengths)
		assert.NotEmpty(t, a.Opportunities)
		assert.NotEmpty(t, a.Recommendations)
		assert.NotEmpty(t, a.WorkflowRecommendations)
	}
}

func TestFallbackRecommendation(t *testing.T) {
	assert.Equal(t, industryFallbacks["professional_services"], FallbackRecommendation("Professional Services"))
	assert.Equal(t, genericFallback, FallbackRecommendation("underwater basket weaving"))
}

func TestSubmit_UsesGeneratorWhenEnabled(t *testing.T) {
	t.Setenv("FLAG_AI_RECOMMENDATIONS", "true")
	repo := &memAuditRepo{}
	gen := &fakeGenerator{reply: "  Automate your ordering.  "}
	events := &recordingEvents{}
	svc := NewAuditService(repo, gen, events, nil)

	audit, err := svc.Submit(context.Background(), validForm(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), audit.ID)
	assert.Equal(t, "Automate your ordering.", audit.AIRecommendation)
	assert.Equal(t, 1, gen.callCount())
	assert.Equal(t, []string{domain.EventAuditSubmitted}, events.seen())
	assert.Equal(t, []string{"user-1"}, events.seenUsers(), "caller id rides on the analytics event")

	got, err := svc.Get(context.Background(), audit.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Bakery", got.BusinessName)
}

func TestSubmit_FallsBackWhenGeneratorFails(t *testing.T) {
	t.Setenv("FLAG_AI_RECOMMENDATIONS", "true")
	svc := NewAuditService(&memAuditRepo{}, &fakeGenerator{err: errBoom}, nil, nil)

	audit, err := svc.Submit(context.Background(), validForm(), "")
	require.NoError(t, err)
	assert.Equal(t, FallbackRecommendation("restaurant"), audit.AIRecommendation)
}

func TestSubmit_FlagOffSkipsGenerator(t *testing.T) {
	t.Setenv("FLAG_AI_RECOMMENDATIONS", "false")
	gen := &fakeGenerator{reply: "unused"}
	svc := NewAuditService(&memAuditRepo{}, gen, nil, nil)

	audit, err := svc.Submit(context.Background(), validForm(), "")
	require.NoError(t, err)
	assert.Zero(t, gen.callCount())
	assert.Equal(t, FallbackRecommendation("restaurant"), audit.AIRecommendation)
}

func TestSubmit_InvalidFormStoresNothing(t *testing.T) {
	repo := &memAuditRepo{}
	svc := NewAuditService(repo, nil, nil, nil)

	form := validForm()
	form.TracksCAC = ""
	form.EmployeeCount = "lots"
	_, err := svc.Submit(context.Background(), form, "")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, FieldError{Field: "tracksCAC", Rule: "required"})
	assert.Contains(t, verr.Fields, FieldError{Field: "employeeCount", Rule: "oneof"})

	n, _ := repo.Count(context.Background())
	assert.Zero(t, n)
}

func TestGet_NotFound(t *testing.T) {
	svc := NewAuditService(&memAuditRepo{}, nil, nil, nil)
	_, err := svc.Get(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestList_NewestFirst(t *testing.T) {
	t.Setenv("FLAG_AI_RECOMMENDATIONS", "false")
	svc := NewAuditService(&memAuditRepo{}, nil, nil, nil)
	ctx := context.Background()

	first := validForm()
	second := validForm()
	second.BusinessName = "Second"
	_, err := svc.Submit(ctx, first, "")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, second, "")
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Second", list[0].BusinessName)
}
