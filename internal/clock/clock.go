package clock

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const dayKey = "2006-01-02"

// Context carries the patient's wall clock for one request. All day-boundary
// decisions downstream use it instead of ambient server time.
type Context struct {
	// Instant is the moment the request refers to (client-reported, or
	// server time when no bundle was supplied).
	Instant time.Time

	// LocalDate / LocalTime are the patient's wall-clock date (YYYY-MM-DD)
	// and time (HH:MM).
	LocalDate string
	LocalTime string

	// offset = local wall clock read as UTC minus Instant. Applied to stored
	// UTC timestamps to find the patient's calendar day.
	offset time.Duration
}

// bundle is the client-time payload, JSON per the X-Client-Time header.
type bundle struct {
	Now       string `json:"now"`
	LocalDate string `json:"localDate"`
	LocalTime string `json:"localTime"`
}

// Resolve builds a Context from a raw client-time bundle. A missing or
// malformed bundle degrades to server-instant-as-local; that is a documented
// accuracy loss, not an error.
func Resolve(raw string, serverNow time.Time) Context {
	if strings.TrimSpace(raw) != "" {
		var b bundle
		if err := json.Unmarshal([]byte(raw), &b); err == nil {
			if ctx, ok := fromBundle(b); ok {
				return ctx
			}
		}
	}
	return serverLocal(serverNow)
}

func fromBundle(b bundle) (Context, bool) {
	now, err := time.Parse(time.RFC3339, b.Now)
	if err != nil {
		return Context{}, false
	}
	if !ValidDate(b.LocalDate) || !validTime(b.LocalTime) {
		return Context{}, false
	}

	wall, err := time.Parse("2006-01-02T15:04", b.LocalDate+"T"+b.LocalTime)
	if err != nil {
		return Context{}, false
	}

	return Context{
		Instant:   now,
		LocalDate: b.LocalDate,
		LocalTime: b.LocalTime,
		offset:    wall.Sub(now.UTC()),
	}, true
}

func serverLocal(now time.Time) Context {
	return Context{
		Instant:   now,
		LocalDate: now.Format(dayKey),
		LocalTime: now.Format("15:04"),
	}
}

// Shift moves a stored UTC timestamp onto the patient's wall clock.
func (c Context) Shift(ts time.Time) time.Time {
	return ts.UTC().Add(c.offset)
}

// LocalDateKey shifts a stored UTC timestamp into the patient's calendar day.
// Only for real timestamps (created_at, deleted_at, taken_at). Date-only
// fields such as log_date were written in local-day terms and must be used
// verbatim; shifting them double-corrects.
func (c Context) LocalDateKey(ts time.Time) string {
	return c.Shift(ts).Format(dayKey)
}

// LocalMinutesAt is the minutes-since-local-midnight of a stored timestamp.
func (c Context) LocalMinutesAt(ts time.Time) int {
	s := c.Shift(ts)
	return s.Hour()*60 + s.Minute()
}

// LocalMinutes is the patient's current minutes since local midnight.
func (c Context) LocalMinutes() int {
	return MinutesOf(c.LocalTime)
}

// Today returns the patient's current local date as a time value at midnight UTC.
func (c Context) Today() time.Time {
	t, _ := time.Parse(dayKey, c.LocalDate)
	return t
}

// DayKey formats a walked calendar day the same way log_date is stored.
func DayKey(t time.Time) string {
	return t.Format(dayKey)
}

// MinutesOf converts an HH:MM string to minutes since midnight. Malformed
// input counts as midnight.
func MinutesOf(hhmm string) int {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0
	}
	return h*60 + m
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	if len(s) != 10 {
		return false
	}
	_, err := time.Parse(dayKey, s)
	return err == nil
}

func validTime(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}
