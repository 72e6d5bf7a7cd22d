package options

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const (
	layoutISO      = "2006-1-2"
	layoutISOTime  = "2006-1-2 15:04"
	layoutISOShort = "1/2"
	layoutMonth    = "2006-1"
)

// OnOptions picks when a mood happened.
type OnOptions struct {
	OnString string
}

func AddOnArgs(cmd *cobra.Command, o *OnOptions) {
	cmd.Flags().StringVar(&o.OnString, "on", "",
		`When the mood happened, example: --on="2025-2-28 14:30", --on="2025-2-28" or --on="2/28". Defaults to now.`)
}

// GetOn returns nil when no date was given. A date without a time is noon.
// A short date later than now is taken to be last year.
func (o *OnOptions) GetOn(now time.Time) (*time.Time, error) {
	raw := strings.TrimSpace(o.OnString)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(time.RFC3339, raw, time.Local); err == nil {
		return &t, nil
	}
	if t, err := time.ParseInLocation(layoutISOTime, raw, time.Local); err == nil {
		return &t, nil
	}
	if t, err := time.ParseInLocation(layoutISO, raw, time.Local); err == nil {
		t = t.Add(12 * time.Hour)
		return &t, nil
	}
	t, err := time.ParseInLocation(layoutISOShort, raw, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid --on %q", raw)
	}
	t = time.Date(now.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.Local)
	// Moods are recorded after the fact, so 12/5 typed on 1/3 means last December.
	if t.After(now) {
		t = t.AddDate(-1, 0, 0)
	}
	return &t, nil
}

// MonthOptions picks a calendar month.
type MonthOptions struct {
	Month string
}

func AddMonthArgs(cmd *cobra.Command, o *MonthOptions) {
	cmd.Flags().StringVarP(&o.Month, "month", "m", "",
		`Month to summarise, example: --month=2025-2. Defaults to the current month.`)
}

func (o *MonthOptions) GetMonth(now time.Time) (int, time.Month, error) {
	raw := strings.TrimSpace(o.Month)
	if raw == "" {
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse(layoutMonth, raw)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --month %q", raw)
	}
	return t.Year(), t.Month(), nil
}
