package crm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompanySizeTag(t *testing.T) {
	cases := map[string]string{
		"1-10":     "company-1-10",
		"201-1000": "company-201-1000",
		"1000+":    "company-1000-plus",
		"":         "",
	}
	for size, want := range cases {
		assert.Equal(t, want, CompanySizeTag(size), size)
	}
}

func TestContactTags(t *testing.T) {
	tags := ContactTags(Contact{Source: SourceContactForm, CompanySize: "11-50"})
	assert.Equal(t, []string{"company-11-50", "contact-form", "standard-lead"}, tags)

	tags = ContactTags(Contact{Source: SourceContactForm})
	assert.Equal(t, []string{"contact-form", "standard-lead"}, tags)
}

func TestROITagsPriorityAndComplexity(t *testing.T) {
	tests := []struct {
		name string
		roi  ROIDetails
		want []string
	}{
		{"high roi high complexity", ROIDetails{Industry: "finance", CalculatedROI: 350.5, ComplexityScore: 7},
			[]string{"company-1000-plus", "industry-finance", "roi-calculator", "high-roi-lead", "complexity-high"}},
		{"medium roi", ROIDetails{Industry: "other", CalculatedROI: 200, ComplexityScore: 4},
			[]string{"company-1000-plus", "industry-other", "roi-calculator", "medium-roi-lead", "complexity-medium"}},
		{"standard", ROIDetails{Industry: "education", CalculatedROI: 150, ComplexityScore: 1},
			[]string{"company-1000-plus", "industry-education", "roi-calculator", "standard-lead", "complexity-low"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roi := tt.roi
			got := ROITags(Contact{Source: SourceROICalculator, CompanySize: "1000+", ROI: &roi})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContactFieldsIncludesROI(t *testing.T) {
	fields := ContactFields(Contact{
		Source:      SourceROICalculator,
		CompanySize: "1-10",
		ROI: &ROIDetails{
			Industry:        "healthcare",
			CalculatedROI:   120,
			AnnualSavings:   25000,
			SetupInvestment: 3000,
			ComplexityScore: 5,
			CalculationID:   "roi_1_abc",
			AutomationAreas: []string{"billing", "scheduling"},
		},
	})
	assert.Equal(t, "roi-calculator", fields["lead_source"])
	assert.Equal(t, "1-10", fields["company_size"])
	assert.Equal(t, "healthcare", fields["industry_type"])
	assert.Equal(t, "roi_1_abc", fields["calculation_id"])
	assert.Equal(t, "billing, scheduling", fields["automation_areas"])
	_, hasHours := fields["manual_hours_week"]
	assert.False(t, hasHours)
}
