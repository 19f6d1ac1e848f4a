package printer

import (
	"fmt"
	"time"

	"github.com/slok/rbrowse/internal/tree"
)

var byteUnits = []string{"KB", "MB", "GB", "TB"}

// FormatBytes returns a short human size: "512 B", "1.5 KB", "700.0 MB".
func FormatBytes(n int64) string {
	if n < 1024 {
		if n < 0 {
			n = 0
		}
		return fmt.Sprintf("%d B", n)
	}

	v := float64(n) / 1024
	unit := 0
	for v >= 1024 && unit < len(byteUnits)-1 {
		v /= 1024
		unit++
	}

	return fmt.Sprintf("%.1f %s", v, byteUnits[unit])
}

// Since returns how long ago t happened relative to now in a compact form ("45s ago",
// "3h ago"). Anything older than a week, or in the future, is printed as a date.
func Since(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < 0 || d >= 7*24*time.Hour:
		return t.Local().Format(tree.TimeLayout)
	case d < time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}

	return fmt.Sprintf("%dd ago", int(d.Hours()/24))
}
