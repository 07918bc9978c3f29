package dashboard

import (
	"time"
)

var timeLayouts = []string{"15:04", "15:04:05"}

// FormatTime renders a 24-hour "HH:MM" time as "3:04 PM". Anything that does
// not parse is returned unchanged.
func FormatTime(s string) string {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("3:04 PM")
		}
	}
	return s
}

// FormatDate renders "2006-01-02" as "Jan 2, 2006". Anything that does not
// parse is returned unchanged.
func FormatDate(s string) string {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return s
	}
	return t.Format("Jan 2, 2006")
}
