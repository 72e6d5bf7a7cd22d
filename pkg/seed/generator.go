// Package seed produces sample mood events: a weighted random generator that
// simulates a student's month, and YAML fixtures for repeatable demos.
package seed

import (
	"math/rand"
	"strings"
	"time"

	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/mood"
)

type weighted struct {
	state  mood.State
	weight int
}

// weights make Happiness the most common mood and Disgust and Shame rare.
var weights = []weighted{
	{mood.Happiness, 35},
	{mood.Sadness, 15},
	{mood.Anger, 10},
	{mood.Surprise, 10},
	{mood.Disgust, 5},
	{mood.Fear, 10},
	{mood.Confusion, 10},
	{mood.Shame, 5},
}

var triggers = map[mood.State][]string{
	mood.Happiness: {
		"Had a productive day at work", "Caught up with old friends over coffee",
		"Finished all my assignments early", "Got positive feedback on my project",
		"Great workout at the gym", "Enjoyed a sunny weekend outdoors",
		"Cooked a delicious meal", "Quality time with family",
		"Achieved my daily goals", "Found a solution to a problem",
		"Got a good grade", "Relaxing evening with music",
		"Made progress on my thesis", "Had a great study session",
	},
	mood.Sadness: {
		"Missing home", "Stressed about upcoming deadlines",
		"Feeling overwhelmed with coursework", "Bad grade on an assignment",
		"Homesick today", "Tired from lack of sleep",
		"Rainy day blues", "Missing my family",
		"Failed to meet a deadline", "Feeling burnt out from studying",
	},
	mood.Anger: {
		"Frustrated with group project", "Bus was late again",
		"Lost my work due to technical issues", "Noisy neighbors while studying",
		"Someone took my reserved study spot", "Printer not working before deadline",
		"WiFi issues during online class", "Missed the bus",
		"Lab equipment malfunction", "Lost my student ID",
	},
	mood.Surprise: {
		"Unexpected high grade", "Random catch-up with classmate",
		"Professor extended deadline", "Found my lost notes",
		"Surprise visit from friend", "Class cancelled - extra study time",
		"Got picked for research position", "Free food at campus event",
	},
	mood.Disgust: {
		"Bad cafeteria food", "Messy shared kitchen",
		"Dirty study area", "Found old food in backpack",
		"Unclean lab equipment", "Moldy coffee in my mug",
	},
	mood.Fear: {
		"Upcoming final exam", "Big presentation tomorrow",
		"Group project deadline approaching", "Late for important meeting",
		"Thesis defense preparation", "Important lab experiment",
		"Job interview preparation", "Waiting for grade results",
	},
	mood.Confusion: {
		"Difficult lecture material", "Complex assignment instructions",
		"Unclear project requirements", "New software in lab",
		"Conflicting assignment deadlines", "Mixed messages from group members",
		"Complicated research paper", "New lab procedures",
	},
	mood.Shame: {
		"Slept through morning class", "Forgot assignment deadline",
		"Said wrong thing in presentation", "Mixed up meeting times",
		"Sent wrong email to professor", "Lost borrowed notes",
		"Came unprepared to group meeting", "Failed to contribute to group work",
	},
}

// Generator makes plausible events from a seeded source.
type Generator struct {
	Rand     *rand.Rand
	Location *time.Location
}

// NewGenerator returns a generator seeded with seed, in loc.
func NewGenerator(seed int64, loc *time.Location) *Generator {
	if loc == nil {
		loc = time.Local
	}
	return &Generator{Rand: rand.New(rand.NewSource(seed)), Location: loc}
}

// Month generates author's events for every day of year/month. Weekdays get
// one to three events and weekends one or two; some days are skipped, weekend
// days more often. Events come back oldest first without ids.
func (g *Generator) Month(author string, year int, month time.Month) []event.Event {
	days := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	out := make([]event.Event, 0, days*2)
	for d := 1; d <= days; d++ {
		date := time.Date(year, month, d, 0, 0, 0, 0, g.Location)
		weekend := date.Weekday() == time.Saturday || date.Weekday() == time.Sunday

		maxEvents, skip := 3, 0.1
		if weekend {
			maxEvents, skip = 2, 0.3
		}
		if g.Rand.Float64() < skip {
			continue
		}
		n := g.Rand.Intn(maxEvents) + 1
		for i := 0; i < n; i++ {
			hour := g.hour(i, n)
			at := time.Date(year, month, d, hour, g.Rand.Intn(60), 0, 0, g.Location)
			state := g.State()
			trigger := g.Trigger(state)
			out = append(out, event.Event{
				Timestamp:       event.At(at),
				State:           state,
				Trigger:         trigger,
				SocialSituation: SocialSituation(hour, date.Weekday(), trigger),
				AuthorID:        author,
				Visibility:      event.Public,
			})
		}
	}
	return out
}

// hour spreads a day's events: a lone event anywhere between 8 and 22, else
// morning first, evening last and afternoon between.
func (g *Generator) hour(i, n int) int {
	switch {
	case n == 1:
		return 8 + g.Rand.Intn(14)
	case i == 0:
		return 8 + g.Rand.Intn(4)
	case i == n-1:
		return 18 + g.Rand.Intn(4)
	default:
		return 13 + g.Rand.Intn(4)
	}
}

// State draws a mood by weight.
func (g *Generator) State() mood.State {
	total := 0
	for _, w := range weights {
		total += w.weight
	}
	pick := g.Rand.Intn(total)
	for _, w := range weights {
		if pick < w.weight {
			return w.state
		}
		pick -= w.weight
	}
	return mood.Happiness
}

// Trigger draws a trigger that fits state.
func (g *Generator) Trigger(state mood.State) string {
	list := triggers[state]
	if len(list) == 0 {
		return ""
	}
	return list[g.Rand.Intn(len(list))]
}

// SocialSituation guesses who the author was with from the hour, the day and
// the trigger text.
func SocialSituation(hour int, day time.Weekday, trigger string) string {
	weekend := day == time.Saturday || day == time.Sunday
	trigger = strings.ToLower(trigger)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(trigger, w) {
				return true
			}
		}
		return false
	}

	switch {
	case hour >= 8 && hour < 10:
		return "Alone"
	case hour >= 10 && hour < 16 && !weekend:
		switch {
		case has("class", "lecture"):
			return "In class"
		case has("lab"):
			return "In lab group"
		case has("group"):
			return "With project team"
		}
		return "With classmates"
	case hour >= 18:
		switch {
		case has("roommate"):
			return "With roommates"
		case has("study"):
			return "In study group"
		case has("friend"):
			return "With friends"
		}
		return "Alone"
	}

	switch {
	case has("family"):
		return "With family"
	case has("event"):
		return "At campus event"
	case has("project", "group"):
		return "With project team"
	}
	return "Alone"
}
