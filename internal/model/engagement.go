package model

import "time"

// EventType enumerates the kinds of EngagementEvent rows the client emits.
type EventType string

const (
	EventImpression EventType = "impression"
	EventDwell      EventType = "dwell"
	EventOpen       EventType = "open"
)

func IsValidEventType(t EventType) bool {
	switch t {
	case EventImpression, EventDwell, EventOpen:
		return true
	default:
		return false
	}
}

// DayType is derived server-side from the event timestamp's weekday.
type DayType string

const (
	DayTypeWeekday DayType = "weekday"
	DayTypeWeekend DayType = "weekend"
)

// DayTypeFor derives the DayType from a day of week, 0 = Sunday per spec §3.
func DayTypeFor(dayOfWeek int) DayType {
	if dayOfWeek == 0 || dayOfWeek == 6 {
		return DayTypeWeekend
	}
	return DayTypeWeekday
}

// EngagementEvent is an immutable fact row (spec §3).
type EngagementEvent struct {
	ID            string    `json:"id"`
	UserID        string    `json:"-"`
	LinkID        string    `json:"linkId"`
	EventType     EventType `json:"eventType"`
	DwellTimeMs   *int      `json:"dwellTimeMs,omitempty"`
	SwipeVelocity *float64  `json:"swipeVelocity,omitempty"`
	CardIndex     *int      `json:"cardIndex,omitempty"`
	HourOfDay     int       `json:"hourOfDay"`
	DayOfWeek     int       `json:"dayOfWeek"`
	SessionID     *string   `json:"sessionId,omitempty"`
	FeedRequestID *string   `json:"feedRequestId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// EngagementEventInput is the client-submitted shape of one event, before
// the server stamps hourOfDay/dayOfWeek/createdAt (spec §4.4 step 1).
type EngagementEventInput struct {
	LinkID        string    `json:"linkId" validate:"required"`
	EventType     EventType `json:"eventType" validate:"required"`
	DwellTimeMs   *int      `json:"dwellTimeMs,omitempty"`
	SwipeVelocity *float64  `json:"swipeVelocity,omitempty"`
	CardIndex     *int      `json:"cardIndex,omitempty"`
	SessionID     *string   `json:"sessionId,omitempty"`
	FeedRequestID *string   `json:"feedRequestId,omitempty"`
}

// Valid reports whether the input satisfies spec §4.4's validity rule:
// non-empty linkId and a recognized eventType.
func (e EngagementEventInput) Valid() bool {
	return e.LinkID != "" && IsValidEventType(e.EventType)
}

// EngagementRequest is the body of POST /engagement: either {events:[...]}
// or a single event object (spec §6). The HTTP layer normalizes both shapes
// into this type before it reaches internal/engagement.
type EngagementRequest struct {
	Events []EngagementEventInput
}

// EngagementResponse is returned from POST /engagement.
type EngagementResponse struct {
	OK        bool `json:"ok"`
	Processed int  `json:"processed"`
}
