package printer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slok/rbrowse/internal/printer"
	"github.com/slok/rbrowse/internal/tree"
)

func TestFormatBytes(t *testing.T) {
	tests := map[string]struct {
		bytes  int64
		expOut string
	}{
		"Negative is zero.":             {bytes: -1, expOut: "0 B"},
		"Zero.":                         {bytes: 0, expOut: "0 B"},
		"Below one kilobyte.":           {bytes: 1023, expOut: "1023 B"},
		"One kilobyte.":                 {bytes: 1024, expOut: "1.0 KB"},
		"Fractional kilobytes.":         {bytes: 1536, expOut: "1.5 KB"},
		"Megabytes.":                    {bytes: 700 * 1024 * 1024, expOut: "700.0 MB"},
		"Gigabytes.":                    {bytes: 10 * 1024 * 1024 * 1024, expOut: "10.0 GB"},
		"Huge sizes stay in terabytes.": {bytes: 2048 * 1024 * 1024 * 1024 * 1024, expOut: "2048.0 TB"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expOut, printer.FormatBytes(test.bytes))
		})
	}
}

func TestSince(t *testing.T) {
	now := time.Date(2026, 1, 30, 12, 0, 0, 0, time.UTC)
	old := now.Add(-8 * 24 * time.Hour)
	future := now.Add(time.Hour)

	tests := map[string]struct {
		t      time.Time
		expOut string
	}{
		"Less than a second.": {t: now.Add(-500 * time.Millisecond), expOut: "just now"},
		"Seconds.":            {t: now.Add(-45 * time.Second), expOut: "45s ago"},
		"Minutes.":            {t: now.Add(-3*time.Minute - 10*time.Second), expOut: "3m ago"},
		"Hours.":              {t: now.Add(-5 * time.Hour), expOut: "5h ago"},
		"Days.":               {t: now.Add(-49 * time.Hour), expOut: "2d ago"},
		"Older than a week.":  {t: old, expOut: old.Local().Format(tree.TimeLayout)},
		"In the future.":      {t: future, expOut: future.Local().Format(tree.TimeLayout)},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expOut, printer.Since(test.t, now))
		})
	}
}
