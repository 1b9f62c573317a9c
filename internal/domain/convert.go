package domain

import "time"

// MillisToDate renders a millisecond epoch timestamp as a calendar date
// in the given location. A nil location falls back to the system zone,
// which matches how the portal's own web UI renders due dates.
func MillisToDate(ms int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(ms).In(loc).Format("2006-01-02")
}

// MillisToISO renders a millisecond epoch timestamp as an RFC 3339
// timestamp in the given location.
func MillisToISO(ms int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(ms).In(loc).Format(time.RFC3339)
}
