// Package roi estimates the return on an automation engagement for the
// public ROI calculator.
package roi

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// Input is a validated calculator request with defaults applied.
type Input struct {
	CompanySize       string
	Industry          string
	EmployeeCount     float64
	AverageHourlyRate float64
	ManualTaskHours   float64
	ErrorRate         float64
	AutomationAreas   []string
	PrimaryGoal       string
	Timeframe         string
}

// Estimates is the calculator output.
type Estimates struct {
	TimeFrame           string              `json:"timeFrame"`
	TimeSavings         TimeSavings         `json:"timeSavings"`
	CostSavings         CostSavings         `json:"costSavings"`
	QualityImprovements QualityImprovements `json:"qualityImprovements"`
	Investment          Investment          `json:"investment"`
	ROI                 ROIMetrics          `json:"roi"`
	Confidence          string              `json:"confidence"`
	Assumptions         []string            `json:"assumptions"`

	// Not serialized; used for CRM scoring.
	Complexity    string  `json:"-"`
	AnnualBenefit float64 `json:"-"`
}

type TimeSavings struct {
	HoursPerWeek   float64 `json:"hoursPerWeek"`
	HoursPerMonth  float64 `json:"hoursPerMonth"`
	HoursPerYear   float64 `json:"hoursPerYear"`
	EfficiencyGain string  `json:"efficiencyGain"`
}

type CostSavings struct {
	Weekly  float64 `json:"weekly"`
	Monthly float64 `json:"monthly"`
	Annual  float64 `json:"annual"`
}

type QualityImprovements struct {
	ErrorReduction         string  `json:"errorReduction"`
	AnnualErrorCostSavings float64 `json:"annualErrorCostSavings"`
}

type Investment struct {
	Setup          float64 `json:"setup"`
	Monthly        float64 `json:"monthly"`
	FirstYearTotal float64 `json:"firstYearTotal"`
}

type ROIMetrics struct {
	Percentage     float64 `json:"percentage"`
	PaybackPeriod  string  `json:"paybackPeriod"`
	BreakEvenPoint string  `json:"breakEvenPoint"`
	ThreeYearValue float64 `json:"threeYearValue"`
}

// Recommendation is a headline suggestion shown next to the estimate.
type Recommendation struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

const (
	maxEfficiency       = 85
	unknownAreaEff      = 50
	errorCostMultiplier = 2.5
	weeksPerYear        = 52
	weeksPerMonth       = 4.3
)

var areaEfficiencies = map[string]float64{
	"customer-service": 60,
	"lead-management":  70,
	"data-entry":       80,
	"reporting":        75,
	"scheduling":       85,
	"billing":          70,
	"inventory":        65,
	"hr-processes":     60,
	"marketing":        55,
	"accounting":       70,
}

var industryMultipliers = map[string]float64{
	"professional-services": 1.2,
	"healthcare":            1.0,
	"ecommerce":             1.3,
	"manufacturing":         1.1,
	"finance":               1.15,
	"technology":            1.25,
	"education":             0.9,
	"other":                 1.0,
}

var sizeMultipliers = map[string]float64{
	"1-10":     0.7,
	"11-50":    1.0,
	"51-200":   1.3,
	"201-1000": 1.6,
	"1000+":    2.0,
}

var assumptions = []string{
	"Estimates based on industry averages and Synura client data",
	"Assumes dedicated implementation and training period",
	"ROI calculations include setup costs and first year operational costs",
	"Time savings assume 80-90% automation efficiency for selected processes",
	"Error reduction based on typical manual vs. automated process accuracy",
	"Actual results may vary based on specific implementation and adoption",
}

// Estimate computes savings, investment and ROI for in. now anchors the
// break-even month.
func Estimate(in Input, now time.Time) Estimates {
	efficiency, complexity := automationPotential(in.AutomationAreas, in.Industry)

	weeklySavedHours := in.ManualTaskHours * efficiency / 100
	weeklySavedCost := weeklySavedHours * in.AverageHourlyRate
	annualSavedCost := weeklySavedCost * weeksPerYear

	errReduction, errSavings := errorReduction(in)
	setup, monthly, total := investment(in)

	benefit := annualSavedCost + errSavings
	roiPct := (benefit - total) / total * 100
	payback := total / (benefit / 12)

	return Estimates{
		TimeFrame: in.Timeframe,
		TimeSavings: TimeSavings{
			HoursPerWeek:   round1(weeklySavedHours),
			HoursPerMonth:  round1(weeklySavedHours * weeksPerMonth),
			HoursPerYear:   round1(weeklySavedHours * weeksPerYear),
			EfficiencyGain: fmt.Sprintf("%g%%", efficiency),
		},
		CostSavings: CostSavings{
			Weekly:  jsRound(weeklySavedCost),
			Monthly: jsRound(weeklySavedCost * weeksPerMonth),
			Annual:  jsRound(annualSavedCost),
		},
		QualityImprovements: QualityImprovements{
			ErrorReduction:         fmt.Sprintf("%g%%", jsRound(errReduction)),
			AnnualErrorCostSavings: jsRound(errSavings),
		},
		Investment: Investment{
			Setup:          setup,
			Monthly:        monthly,
			FirstYearTotal: total,
		},
		ROI: ROIMetrics{
			Percentage:     round1(roiPct),
			PaybackPeriod:  fmt.Sprintf("%g months", round1(payback)),
			BreakEvenPoint: breakEven(now, payback),
			ThreeYearValue: jsRound(benefit*3 - (total + monthly*24)),
		},
		Confidence:    confidence(in),
		Assumptions:   slices.Clone(assumptions),
		Complexity:    complexity,
		AnnualBenefit: jsRound(benefit),
	}
}

func automationPotential(areas []string, industry string) (efficiency float64, complexity string) {
	if len(areas) == 0 {
		return 0, "low"
	}
	var sum float64
	for _, area := range areas {
		eff, ok := areaEfficiencies[area]
		if !ok {
			eff = unknownAreaEff
		}
		sum += eff
	}
	mult, ok := industryMultipliers[industry]
	if !ok {
		mult = 1.0
	}
	efficiency = math.Min(jsRound(sum/float64(len(areas))*mult), maxEfficiency)

	switch {
	case len(areas) > 3:
		complexity = "high"
	case len(areas) > 1:
		complexity = "medium"
	default:
		complexity = "low"
	}
	return efficiency, complexity
}

func errorReduction(in Input) (pct, annual float64) {
	current := in.ManualTaskHours * in.AverageHourlyRate * weeksPerYear * (in.ErrorRate / 100) * errorCostMultiplier
	pct = math.Min(90, in.ErrorRate*8)
	return pct, current * pct / 100
}

func investment(in Input) (setup, monthly, total float64) {
	mult, ok := sizeMultipliers[in.CompanySize]
	if !ok {
		mult = 1.0
	}
	areas := float64(len(in.AutomationAreas))
	setupCost := (3000 + areas*1500) * mult
	monthlyCost := math.Max(500, areas*400) * mult
	return jsRound(setupCost), jsRound(monthlyCost), jsRound(setupCost + monthlyCost*12)
}

func confidence(in Input) string {
	score := 50
	switch in.Industry {
	case "professional-services", "ecommerce", "technology":
		score += 15
	}
	if n := len(in.AutomationAreas); n >= 2 && n <= 4 {
		score += 20
	}
	if in.ManualTaskHours >= 5 && in.ManualTaskHours <= 40 {
		score += 15
	}
	switch {
	case score >= 80:
		return "high"
	case score >= 60:
		return "medium"
	default:
		return "low"
	}
}

func breakEven(now time.Time, paybackMonths float64) string {
	if math.IsNaN(paybackMonths) || math.IsInf(paybackMonths, 0) || paybackMonths > 1200 {
		return "Not within 100 years"
	}
	months := int(math.Ceil(paybackMonths))
	return now.AddDate(0, months, 0).Format("January 2006")
}

// ComplexityScore maps the complexity tier to the 1-10 CRM score.
func ComplexityScore(complexity string) int {
	switch complexity {
	case "high":
		return 8
	case "medium":
		return 5
	default:
		return 3
	}
}

// Recommendations picks the headline suggestions for an estimate.
func Recommendations(in Input, est Estimates) []Recommendation {
	recs := []Recommendation{}
	if est.ROI.Percentage > 200 {
		recs = append(recs, Recommendation{
			Type:        "priority",
			Title:       "Excellent ROI Potential",
			Description: "Your automation potential shows exceptional returns. We recommend starting immediately with a phased approach.",
		})
	}
	if est.TimeSavings.HoursPerWeek > 20 {
		recs = append(recs, Recommendation{
			Type:        "efficiency",
			Title:       "Significant Time Savings",
			Description: fmt.Sprintf("Automating %g hours per week could free up substantial time for strategic work.", in.ManualTaskHours),
		})
	}
	if in.ErrorRate > 10 {
		recs = append(recs, Recommendation{
			Type:        "quality",
			Title:       "Quality Improvement Opportunity",
			Description: "Your current error rate suggests significant quality improvements through automation.",
		})
	}
	switch in.CompanySize {
	case "51-200", "201-1000", "1000+":
		recs = append(recs, Recommendation{
			Type:        "scalability",
			Title:       "Scalability Benefits",
			Description: "At your company size, automation provides scalability benefits beyond direct cost savings.",
		})
	}
	return recs
}

// NextSteps lists the follow-up actions for an estimate.
func NextSteps(est Estimates) []string {
	steps := []string{
		"Schedule a free consultation to discuss your specific needs",
		"Receive a detailed automation plan tailored to your business",
		"Review implementation timeline and resource requirements",
	}
	if est.ROI.Percentage > 150 {
		steps = append(steps, "Consider priority implementation for high-impact areas")
	}
	if est.Investment.FirstYearTotal > 50000 {
		steps = append(steps, "Explore phased implementation options to manage investment")
	}
	return steps
}

// jsRound rounds halves toward positive infinity, negative values included.
func jsRound(x float64) float64 {
	return math.Floor(x + 0.5)
}

func round1(x float64) float64 {
	return jsRound(x*10) / 10
}
