package models

import "time"

// Rates is the tariff applied to a parking session.
type Rates struct {
	BaseRate           float64 `json:"baseRate"`
	AdditionalHourRate float64 `json:"additionalHourRate"`
}

// FeeBreakdown is the result of CalculateFee.
type FeeBreakdown struct {
	HoursParked        int     `json:"hoursParked"`
	AdditionalHours    int     `json:"additionalHours"`
	TotalFee           float64 `json:"totalFee"`
	BaseRate           float64 `json:"baseRate"`
	AdditionalHourRate float64 `json:"additionalHourRate"`
}

// CalculateFee bills every started hour. The first hour costs BaseRate and
// each further hour AdditionalHourRate. A reference at or before entry is
// billed as one hour.
func CalculateFee(entry, reference time.Time, rates Rates) FeeBreakdown {
	hours := 1
	if elapsed := reference.Sub(entry); elapsed > 0 {
		hours = int(elapsed / time.Hour)
		if elapsed%time.Hour != 0 {
			hours++
		}
	}

	additional := hours - 1
	return FeeBreakdown{
		HoursParked:        hours,
		AdditionalHours:    additional,
		TotalFee:           rates.BaseRate + float64(additional)*rates.AdditionalHourRate,
		BaseRate:           rates.BaseRate,
		AdditionalHourRate: rates.AdditionalHourRate,
	}
}
