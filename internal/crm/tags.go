package crm

import (
	"strings"
)

// Lead source tags.
const (
	SourceROICalculator = "roi-calculator"
	SourceContactForm   = "contact-form"
	SourceVoiceAgent    = "voice-agent"
	SourceWebsiteForm   = "website-form"
	SourceMeeting       = "meeting-booking"
)

// StandardTags are created by InitializeSetup.
var StandardTags = []string{
	"company-1-10",
	"company-11-50",
	"company-51-200",
	"company-201-1000",
	"company-1000-plus",

	"industry-professional-services",
	"industry-healthcare",
	"industry-ecommerce",
	"industry-manufacturing",
	"industry-finance",
	"industry-technology",
	"industry-education",
	"industry-other",

	SourceROICalculator,
	SourceContactForm,
	SourceVoiceAgent,
	SourceWebsiteForm,
	SourceMeeting,

	"high-roi-lead",
	"medium-roi-lead",
	"standard-lead",

	"complexity-low",
	"complexity-medium",
	"complexity-high",
}

// FieldDefinition names a custom field and its display label.
type FieldDefinition struct {
	Name  string
	Label string
}

// StandardCustomFields are created by InitializeSetup.
var StandardCustomFields = []FieldDefinition{
	{Name: "calculated_roi", Label: "Calculated ROI (%)"},
	{Name: "annual_savings", Label: "Annual Savings ($)"},
	{Name: "setup_investment", Label: "Setup Investment ($)"},
	{Name: "complexity_score", Label: "Complexity Score (1-10)"},
	{Name: "company_size", Label: "Company Size"},
	{Name: "industry_type", Label: "Industry"},
	{Name: "lead_source", Label: "Lead Source"},
	{Name: "calculation_id", Label: "Calculation ID"},
	{Name: "manual_hours_week", Label: "Manual Hours/Week"},
	{Name: "automation_areas", Label: "Automation Areas"},
}

// ROIDetails carries the calculator output attached to an ROI lead.
type ROIDetails struct {
	Industry        string
	CalculatedROI   float64
	AnnualSavings   float64
	SetupInvestment float64
	ComplexityScore int
	CalculationID   string
	ManualHoursWeek float64
	AutomationAreas []string
}

// CompanySizeTag maps a company size bucket to its tag, e.g. "1000+" to
// "company-1000-plus". Empty sizes have no tag.
func CompanySizeTag(size string) string {
	size = strings.TrimSpace(size)
	if size == "" {
		return ""
	}
	return "company-" + strings.Replace(size, "+", "-plus", 1)
}

// ContactTags builds the tags for a lead without ROI data.
func ContactTags(c Contact) []string {
	tags := make([]string, 0, 3)
	if tag := CompanySizeTag(c.CompanySize); tag != "" {
		tags = append(tags, tag)
	}
	if c.Source != "" {
		tags = append(tags, c.Source)
	}
	return append(tags, "standard-lead")
}

// ROITags builds the tags for a calculator lead: size, industry, source,
// priority by ROI and complexity tier.
func ROITags(c Contact) []string {
	roi := c.ROI
	if roi == nil {
		return ContactTags(c)
	}
	tags := make([]string, 0, 5)
	if tag := CompanySizeTag(c.CompanySize); tag != "" {
		tags = append(tags, tag)
	}
	if roi.Industry != "" {
		tags = append(tags, "industry-"+roi.Industry)
	}
	if c.Source != "" {
		tags = append(tags, c.Source)
	}

	switch {
	case roi.CalculatedROI > 300:
		tags = append(tags, "high-roi-lead")
	case roi.CalculatedROI > 150:
		tags = append(tags, "medium-roi-lead")
	default:
		tags = append(tags, "standard-lead")
	}

	switch {
	case roi.ComplexityScore >= 7:
		tags = append(tags, "complexity-high")
	case roi.ComplexityScore >= 4:
		tags = append(tags, "complexity-medium")
	default:
		tags = append(tags, "complexity-low")
	}
	return tags
}

// ContactFields builds the custom field values for a lead.
func ContactFields(c Contact) map[string]any {
	fields := map[string]any{}
	if c.Source != "" {
		fields["lead_source"] = c.Source
	}
	if c.CompanySize != "" {
		fields["company_size"] = c.CompanySize
	}
	if roi := c.ROI; roi != nil {
		fields["calculated_roi"] = roi.CalculatedROI
		fields["annual_savings"] = roi.AnnualSavings
		fields["setup_investment"] = roi.SetupInvestment
		fields["complexity_score"] = roi.ComplexityScore
		fields["industry_type"] = roi.Industry
		fields["calculation_id"] = roi.CalculationID
		if roi.ManualHoursWeek > 0 {
			fields["manual_hours_week"] = roi.ManualHoursWeek
		}
		if len(roi.AutomationAreas) > 0 {
			fields["automation_areas"] = strings.Join(roi.AutomationAreas, ", ")
		}
	}
	return fields
}
