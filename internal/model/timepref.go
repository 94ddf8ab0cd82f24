package model

import "time"

// TimePreference is a per-user aggregate keyed by (userId, hourSlot,
// dayType, category), unique per spec §3.
type TimePreference struct {
	UserID        string    `json:"-"`
	HourSlot      int       `json:"hourSlot"`
	DayType       DayType   `json:"dayType"`
	Category      string    `json:"category"`
	AvgEngagement float64   `json:"avgEngagement"`
	SampleCount   int       `json:"sampleCount"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// MinUsableSampleCount is the minimum sampleCount for a TimePreference row
// to be considered by the time-preference scoring signal (spec §4.1.4).
const MinUsableSampleCount = 3

// Usable reports whether this row has enough samples to be trusted.
func (t TimePreference) Usable() bool {
	return t.SampleCount >= MinUsableSampleCount
}
