package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/mood"
	"tableflip.dev/moodlog/pkg/remote"
)

// document is the stored shape of an event.
type document struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp       time.Time          `bson:"timestamp"`
	EmotionalState  string             `bson:"emotionalState"`
	Trigger         string             `bson:"trigger,omitempty"`
	SocialSituation string             `bson:"socialSituation,omitempty"`
	AuthorID        string             `bson:"authorId"`
	PostType        string             `bson:"postType,omitempty"`
	Location        *locationDoc       `bson:"location,omitempty"`
}

// locationDoc is GeoJSON so a 2dsphere index can serve nearby queries.
type locationDoc struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"` // [lon, lat]
	PlaceName   string    `bson:"placeName,omitempty"`
}

func fromEvent(e event.Event) document {
	d := document{
		Timestamp:       e.Timestamp.UTC(),
		EmotionalState:  string(e.State),
		Trigger:         e.Trigger,
		SocialSituation: e.SocialSituation,
		AuthorID:        e.AuthorID,
		PostType:        string(e.Visibility),
	}
	if oid, err := primitive.ObjectIDFromHex(e.ID); err == nil {
		d.ID = oid
	}
	if e.Location != nil {
		d.Location = &locationDoc{
			Type:        "Point",
			Coordinates: []float64{e.Location.Longitude, e.Location.Latitude},
			PlaceName:   e.Location.PlaceName,
		}
	}
	return d
}

func (d document) toEvent() event.Event {
	e := event.Event{
		Timestamp:       event.At(d.Timestamp),
		State:           mood.State(d.EmotionalState),
		Trigger:         d.Trigger,
		SocialSituation: d.SocialSituation,
		AuthorID:        d.AuthorID,
		Visibility:      event.Visibility(d.PostType),
	}
	if !d.ID.IsZero() {
		e.ID = d.ID.Hex()
	}
	if d.Location != nil && len(d.Location.Coordinates) == 2 {
		e.SetLocation(d.Location.Coordinates[1], d.Location.Coordinates[0], d.Location.PlaceName)
	}
	return e
}

// requestDoc is one row of follow_requests.
type requestDoc struct {
	ID     primitive.ObjectID   `bson:"_id"`
	From   string               `bson:"from"`
	To     string               `bson:"to"`
	Status remote.RequestStatus `bson:"status"`
	SentAt time.Time            `bson:"sentAt"`
}

func (d requestDoc) toRequest() remote.FollowRequest {
	return remote.FollowRequest{
		ID:     d.ID.Hex(),
		From:   d.From,
		To:     d.To,
		Status: d.Status,
		SentAt: d.SentAt.UTC(),
	}
}

// pendingFilter selects pending requests whose field ("from" or "to") is
// subjectID.
func pendingFilter(field, subjectID string) bson.M {
	return bson.M{field: subjectID, "status": remote.RequestPending}
}
