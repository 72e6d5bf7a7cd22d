package options

import (
	"github.com/spf13/cobra"
)

// FilterOptions narrow a listing.
type FilterOptions struct {
	Scope   string
	Window  string
	Mood    string
	Trigger string
	Since   string
	Limit   int
}

func AddFilterArgs(cmd *cobra.Command, o *FilterOptions) {
	cmd.Flags().StringVar(&o.Scope, "scope", "own",
		"Whose events: own, followed, all or nearby.")
	cmd.Flags().StringVarP(&o.Window, "window", "w", "",
		"Time window: week, month or year.")
	cmd.Flags().StringVar(&o.Mood, "mood", "",
		"Only this emotional state.")
	cmd.Flags().StringVarP(&o.Trigger, "trigger", "t", "",
		"Only triggers containing this text.")
	cmd.Flags().StringVar(&o.Since, "since", "",
		`Only events newer than this age, example: --since=3d or --since=1w2d.`)
	cmd.Flags().IntVarP(&o.Limit, "limit", "n", 0,
		"Show at most this many events.")
}

// NearOptions anchor a nearby listing.
type NearOptions struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}

func AddNearArgs(cmd *cobra.Command, o *NearOptions) {
	cmd.Flags().Float64Var(&o.Latitude, "lat", 0, "Latitude to search around.")
	cmd.Flags().Float64Var(&o.Longitude, "lng", 0, "Longitude to search around.")
	cmd.Flags().Float64Var(&o.RadiusKm, "radius", 5, "Search radius in kilometres.")
}
