package orders

import (
	"sort"

	"github.com/joao-fontenele/surplus-delivery/internal/domain"
)

// CourierSharePercent is the part of an order total paid to the courier.
const CourierSharePercent = 20

func CourierEarning(totalCents int64) int64 {
	return totalCents * CourierSharePercent / 100
}

type DailyEarnings struct {
	Date          string `json:"date"`
	EarningsCents int64  `json:"earnings_cents"`
	Deliveries    int    `json:"deliveries"`
}

type EarningsSummary struct {
	TotalEarningsCents int64           `json:"total_earnings_cents"`
	TotalDeliveries    int             `json:"total_deliveries"`
	Daily              []DailyEarnings `json:"daily"`
}

// SummarizeEarnings buckets completed deliveries by the UTC day they were
// last updated, newest day first. Orders that are not completed are ignored.
func SummarizeEarnings(orders []domain.Order) EarningsSummary {
	summary := EarningsSummary{Daily: []DailyEarnings{}}
	byDay := map[string]*DailyEarnings{}

	for _, o := range orders {
		if !o.Status.Completed() {
			continue
		}

		earning := CourierEarning(o.TotalCents)
		day := o.UpdatedAt.UTC().Format("2006-01-02")

		bucket, ok := byDay[day]
		if !ok {
			bucket = &DailyEarnings{Date: day}
			byDay[day] = bucket
		}
		bucket.EarningsCents += earning
		bucket.Deliveries++

		summary.TotalEarningsCents += earning
		summary.TotalDeliveries++
	}

	for _, bucket := range byDay {
		summary.Daily = append(summary.Daily, *bucket)
	}
	sort.Slice(summary.Daily, func(i, j int) bool {
		return summary.Daily[i].Date > summary.Daily[j].Date
	})

	return summary
}
