package seed

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/mood"
	"tableflip.dev/moodlog/pkg/remote"
)

//go:embed fixtures/*.yaml
var embedded embed.FS

// Fixture is a YAML description of a subject, who they follow and a set of
// events. Events without an author belong to the fixture's author.
type Fixture struct {
	Author  string         `yaml:"author"`
	Follows []string       `yaml:"follows"`
	Events  []FixtureEvent `yaml:"events"`
}

// FixtureEvent is one event in a Fixture.
type FixtureEvent struct {
	At         string           `yaml:"at"`
	Author     string           `yaml:"author,omitempty"`
	Mood       string           `yaml:"mood"`
	Trigger    string           `yaml:"trigger,omitempty"`
	Social     string           `yaml:"social,omitempty"`
	Visibility string           `yaml:"visibility,omitempty"`
	Location   *FixtureLocation `yaml:"location,omitempty"`
}

type FixtureLocation struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Place     string  `yaml:"place,omitempty"`
}

// ParseFixture decodes YAML bytes.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture YAML: %w", err)
	}
	if strings.TrimSpace(f.Author) == "" {
		return nil, fmt.Errorf("fixture has no author")
	}
	return &f, nil
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return ParseFixture(data)
}

// LoadFixtureDir reads every .yaml and .yml file in dir.
func LoadFixtureDir(dir string) ([]*Fixture, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture directory: %w", err)
	}
	var fixtures []*Fixture
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		f, err := LoadFixture(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", entry.Name(), err)
		}
		fixtures = append(fixtures, f)
	}
	return fixtures, nil
}

// Demo returns the built-in demo fixture.
func Demo() (*Fixture, error) {
	data, err := embedded.ReadFile("fixtures/demo.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded fixture: %w", err)
	}
	return ParseFixture(data)
}

// ToEvents converts the fixture's events using reg to resolve mood names.
func (f *Fixture) ToEvents(reg *mood.Registry) ([]event.Event, error) {
	if reg == nil {
		reg = mood.Default
	}
	out := make([]event.Event, 0, len(f.Events))
	for i, fe := range f.Events {
		at, err := event.ParseTime(fe.At)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		state, err := reg.Parse(fe.Mood)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		vis, err := event.ParseVisibility(fe.Visibility)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		author := fe.Author
		if author == "" {
			author = f.Author
		}
		e := event.Event{
			Timestamp:       event.At(at),
			State:           state,
			Trigger:         fe.Trigger,
			SocialSituation: fe.Social,
			AuthorID:        author,
			Visibility:      vis,
		}
		if fe.Location != nil {
			e.SetLocation(fe.Location.Latitude, fe.Location.Longitude, fe.Location.Place)
		}
		out = append(out, e)
	}
	return out, nil
}

// Apply writes events straight to store, bypassing any cache, and sets up
// the fixture's follows when the store keeps a follow graph. It returns the
// number of events written.
func Apply(ctx context.Context, store remote.Store, author string, follows []string, events []event.Event) (int, error) {
	if g, ok := store.(remote.FollowGraph); ok {
		for _, target := range follows {
			if err := g.Follow(ctx, author, target); err != nil {
				return 0, fmt.Errorf("seed: follow %q: %w", target, err)
			}
		}
	}
	n := 0
	for _, e := range events {
		e.ID = ""
		if _, err := store.AddEvent(ctx, e); err != nil {
			return n, fmt.Errorf("seed: add event: %w", err)
		}
		n++
	}
	return n, nil
}
