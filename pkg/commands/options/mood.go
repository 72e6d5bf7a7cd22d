package options

import (
	"errors"

	"github.com/spf13/cobra"

	"tableflip.dev/moodlog/pkg/event"
)

// MoodOptions are the optional fields of a mood event.
type MoodOptions struct {
	Trigger string
	Social  string
	Private bool
	Public  bool

	Latitude  float64
	Longitude float64
	Place     string
}

func AddMoodArgs(cmd *cobra.Command, o *MoodOptions) {
	cmd.Flags().StringVarP(&o.Trigger, "trigger", "t", "",
		"What caused the mood.")
	cmd.Flags().StringVarP(&o.Social, "social", "s", "",
		`Who you were with, example: --social="With friends".`)
	cmd.Flags().BoolVar(&o.Private, "private", false,
		"Hide the event from followers.")
	cmd.Flags().BoolVar(&o.Public, "public", false,
		"Show the event to followers.")
	cmd.Flags().Float64Var(&o.Latitude, "lat", 0,
		"Latitude of where it happened.")
	cmd.Flags().Float64Var(&o.Longitude, "lng", 0,
		"Longitude of where it happened.")
	cmd.Flags().StringVar(&o.Place, "place", "",
		"Name of where it happened.")
}

// Visibility is blank unless --private or --public was given.
func (o *MoodOptions) Visibility() (string, error) {
	switch {
	case o.Private && o.Public:
		return "", errors.New("--private and --public are exclusive")
	case o.Private:
		return string(event.Private), nil
	case o.Public:
		return string(event.Public), nil
	}
	return "", nil
}

// Location is nil unless both coordinates were set.
func (o *MoodOptions) Location(cmd *cobra.Command) (*event.Location, error) {
	lat, lng := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lng")
	switch {
	case lat && lng:
		return &event.Location{Latitude: o.Latitude, Longitude: o.Longitude, PlaceName: o.Place}, nil
	case lat || lng:
		return nil, errors.New("--lat and --lng must be given together")
	}
	return nil, nil
}
