package demo

import (
	"fmt"
	"math"
)

// ROIInput describes an automation investment
type ROIInput struct {
	Employees          int     `json:"employees"`
	HoursSavedPerWeek  float64 `json:"hoursSavedPerWeek"` // per employee
	HourlyRate         float64 `json:"hourlyRate"`
	MonthlyRevenue     float64 `json:"monthlyRevenue"`
	RevenueLiftPercent float64 `json:"revenueLiftPercent"`
	MonthlyCost        float64 `json:"monthlyCost"`
	SetupCost          float64 `json:"setupCost"`
}

// ROIResult is the calculated return
type ROIResult struct {
	MonthlyLaborSavings float64 `json:"monthlyLaborSavings"`
	MonthlyRevenueGain  float64 `json:"monthlyRevenueGain"`
	MonthlyNetBenefit   float64 `json:"monthlyNetBenefit"`
	AnnualNetBenefit    float64 `json:"annualNetBenefit"`
	FirstYearROI        float64 `json:"firstYearRoi"`  // percent
	PaybackMonths       float64 `json:"paybackMonths"` // -1 when never paid back
	HoursSavedPerYear   float64 `json:"hoursSavedPerYear"`
}

const (
	weeksPerMonth = 52.0 / 12.0
	maxAmount     = 1e12
)

// CalculateROI computes savings and payback for an automation investment
func CalculateROI(in ROIInput) (*ROIResult, error) {
	switch {
	case in.Employees < 1 || in.Employees > 100000:
		return nil, fmt.Errorf("%w: employees must be between 1 and 100000", ErrInvalidInput)
	case in.HoursSavedPerWeek < 0 || in.HoursSavedPerWeek > 80:
		return nil, fmt.Errorf("%w: hoursSavedPerWeek must be between 0 and 80", ErrInvalidInput)
	case !amountOK(in.HourlyRate), !amountOK(in.MonthlyRevenue), !amountOK(in.MonthlyCost), !amountOK(in.SetupCost):
		return nil, fmt.Errorf("%w: amounts must be between 0 and %.0f", ErrInvalidInput, maxAmount)
	case in.RevenueLiftPercent < 0 || in.RevenueLiftPercent > 100:
		return nil, fmt.Errorf("%w: revenueLiftPercent must be between 0 and 100", ErrInvalidInput)
	}

	hoursPerMonth := float64(in.Employees) * in.HoursSavedPerWeek * weeksPerMonth
	labor := hoursPerMonth * in.HourlyRate
	gain := in.MonthlyRevenue * in.RevenueLiftPercent / 100
	net := labor + gain - in.MonthlyCost

	res := &ROIResult{
		MonthlyLaborSavings: round2(labor),
		MonthlyRevenueGain:  round2(gain),
		MonthlyNetBenefit:   round2(net),
		AnnualNetBenefit:    round2(net*12 - in.SetupCost),
		HoursSavedPerYear:   round2(hoursPerMonth * 12),
		PaybackMonths:       -1,
	}

	invested := in.MonthlyCost*12 + in.SetupCost
	if invested > 0 {
		res.FirstYearROI = round2((net*12 - in.SetupCost) / invested * 100)
	}
	switch {
	case in.SetupCost == 0 && net >= 0:
		res.PaybackMonths = 0
	case net > 0:
		res.PaybackMonths = round2(math.Ceil(in.SetupCost/net*10) / 10)
	}
	for _, v := range []float64{res.AnnualNetBenefit, res.FirstYearROI, res.PaybackMonths} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, fmt.Errorf("%w: inputs produce an unbounded result", ErrInvalidInput)
		}
	}
	return res, nil
}

func amountOK(v float64) bool {
	return v >= 0 && v <= maxAmount
}
