package utils

import "time"

// LocationForTimeZone resolves an IANA zone id, falling back to UTC when the
// id is unknown or the tz database is unavailable.
func LocationForTimeZone(tzID string) *time.Location {
	if tzID == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tzID)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LocalizeTime converts t into the given IANA zone, UTC on failure.
func LocalizeTime(t time.Time, tzID string) time.Time {
	return t.In(LocationForTimeZone(tzID))
}

// MinuteOfDay returns minutes since local midnight for t.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func FormatRFC3339(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
