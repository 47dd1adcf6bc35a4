package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateFee(t *testing.T) {
	entry := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rates := Rates{BaseRate: 5, AdditionalHourRate: 3}

	tests := []struct {
		name      string
		reference time.Time
		hours     int
		fee       float64
	}{
		{"zero elapsed bills base rate", entry, 1, 5},
		{"reference before entry bills base rate", entry.Add(-30 * time.Minute), 1, 5},
		{"one second", entry.Add(time.Second), 1, 5},
		{"exactly one hour", entry.Add(time.Hour), 1, 5},
		{"just over one hour", entry.Add(time.Hour + time.Nanosecond), 2, 8},
		{"two and a half hours", entry.Add(150 * time.Minute), 3, 11},
		{"exactly two hours", entry.Add(2 * time.Hour), 2, 8},
		{"full day", entry.Add(24 * time.Hour), 24, 5 + 23*3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateFee(entry, tt.reference, rates)
			assert.Equal(t, tt.hours, got.HoursParked)
			assert.Equal(t, tt.hours-1, got.AdditionalHours)
			assert.InDelta(t, tt.fee, got.TotalFee, 1e-9)
			assert.Equal(t, rates.BaseRate, got.BaseRate)
			assert.Equal(t, rates.AdditionalHourRate, got.AdditionalHourRate)
		})
	}
}

func TestCalculateFeeMatchesCeilingFormula(t *testing.T) {
	entry := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rates := Rates{BaseRate: 7.5, AdditionalHourRate: 2.25}

	for minutes := 0; minutes <= 600; minutes += 7 {
		got := CalculateFee(entry, entry.Add(time.Duration(minutes)*time.Minute), rates)
		want := (minutes + 59) / 60
		if want < 1 {
			want = 1
		}
		assert.Equal(t, want, got.HoursParked, "minutes=%d", minutes)
		assert.InDelta(t, rates.BaseRate+float64(want-1)*rates.AdditionalHourRate, got.TotalFee, 1e-9)
	}
}
