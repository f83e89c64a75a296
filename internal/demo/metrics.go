package demo

import (
	"math"
	"time"
)

// MetricPoint is one day in a generated series
type MetricPoint struct {
	Date           string  `json:"date"`
	Revenue        float64 `json:"revenue"`
	Customers      int     `json:"customers"`
	Leads          int     `json:"leads"`
	ConversionRate float64 `json:"conversionRate"`
}

// MetricsSummary totals a series
type MetricsSummary struct {
	TotalRevenue   float64 `json:"totalRevenue"`
	TotalCustomers int     `json:"totalCustomers"`
	TotalLeads     int     `json:"totalLeads"`
	AvgConversion  float64 `json:"avgConversion"`
	RevenueGrowth  float64 `json:"revenueGrowth"` // percent, last week vs first week
}

// MetricsSeries is a generated daily time series
type MetricsSeries struct {
	Seed    uint64         `json:"seed"`
	Points  []MetricPoint  `json:"points"`
	Summary MetricsSummary `json:"summary"`
}

// GenerateMetrics builds days of revenue, customer and lead numbers ending at asOf
// as a random walk with a slight upward drift and weekend dips.
func GenerateMetrics(seed uint64, days int, asOf time.Time) MetricsSeries {
	days = clamp(days, DefaultDays, MaxDays)
	r := newRand(seed)
	end := asOf.UTC().Truncate(24 * time.Hour)

	revenue := 2000 + r.Float64()*3000
	points := make([]MetricPoint, days)
	for i := range points {
		day := end.AddDate(0, 0, i-days+1)
		revenue *= 1 + 0.004 + r.NormFloat64()*0.05
		revenue = math.Max(revenue, 200)
		dayRevenue := revenue
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			dayRevenue *= 0.6
		}

		leads := 10 + r.IntN(40)
		conv := 0.08 + r.Float64()*0.17
		customers := int(math.Round(float64(leads) * conv))

		points[i] = MetricPoint{
			Date:           day.Format("2006-01-02"),
			Revenue:        round2(dayRevenue),
			Customers:      customers,
			Leads:          leads,
			ConversionRate: round2(conv * 100),
		}
	}

	return MetricsSeries{Seed: seed, Points: points, Summary: summarize(points)}
}

func summarize(points []MetricPoint) MetricsSummary {
	var s MetricsSummary
	if len(points) == 0 {
		return s
	}
	var conv float64
	for _, p := range points {
		s.TotalRevenue += p.Revenue
		s.TotalCustomers += p.Customers
		s.TotalLeads += p.Leads
		conv += p.ConversionRate
	}
	s.TotalRevenue = round2(s.TotalRevenue)
	s.AvgConversion = round2(conv / float64(len(points)))

	week := min(7, len(points))
	first, last := 0.0, 0.0
	for i := 0; i < week; i++ {
		first += points[i].Revenue
		last += points[len(points)-1-i].Revenue
	}
	if first > 0 {
		s.RevenueGrowth = round2((last - first) / first * 100)
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
