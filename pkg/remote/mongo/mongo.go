// Package mongo implements remote.Store against a MongoDB database holding
// `moods`, `following` and `follow_requests` collections.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/mood"
	"tableflip.dev/moodlog/pkg/remote"
)

const (
	moodsCollection     = "moods"
	followingCollection = "following"
	requestsCollection  = "follow_requests"
	pingTimeout         = 2 * time.Second
	pingInterval        = 5 * time.Second
)

// Store is a MongoDB backed remote.Store, remote.FollowGraph and
// remote.FollowRequests.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	log    *slog.Logger

	mu       sync.Mutex
	online   bool
	lastPing time.Time
}

var (
	_ remote.Store          = (*Store)(nil)
	_ remote.FollowGraph    = (*Store)(nil)
	_ remote.FollowRequests = (*Store)(nil)
)

// Connect dials uri and verifies the connection with a ping.
func Connect(ctx context.Context, uri, database string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, errors.New("mongo: uri required")
	}
	if strings.TrimSpace(database) == "" {
		return nil, errors.New("mongo: database required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	logger.Info("mongo: connected", "database", database)
	return &Store{
		client:   client,
		db:       client.Database(database),
		log:      logger,
		online:   true,
		lastPing: time.Now(),
	}, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// IsOnline pings at most once per pingInterval and reports the last result.
func (s *Store) IsOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.lastPing) < pingInterval {
		return s.online
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	s.online = s.client.Ping(ctx, nil) == nil
	s.lastPing = time.Now()
	return s.online
}

// classify maps network failures to remote.ErrOffline and forces a fresh connectivity check.
func (s *Store) classify(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		s.mu.Lock()
		s.online = false
		s.lastPing = time.Time{}
		s.mu.Unlock()
		return fmt.Errorf("%w: %w", remote.ErrOffline, err)
	}
	return err
}

func (s *Store) Events(ctx context.Context, subjectID string, q remote.Query) ([]event.Event, error) {
	return s.find(ctx, bson.M{"authorId": subjectID}, q)
}

func (s *Store) FollowingEvents(ctx context.Context, subjectID string, q remote.Query) ([]event.Event, error) {
	following, err := s.Following(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if len(following) == 0 {
		return []event.Event{}, nil
	}
	return s.find(ctx, bson.M{"authorId": bson.M{"$in": following}}, q)
}

func (s *Store) find(ctx context.Context, filter bson.M, q remote.Query) ([]event.Event, error) {
	for k, v := range queryFilter(q) {
		filter[k] = v
	}
	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "timestamp", Value: -1}})

	cursor, err := s.db.Collection(moodsCollection).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, s.classify(err)
	}
	defer cursor.Close(ctx)

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, s.classify(err)
	}
	out := make([]event.Event, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toEvent())
	}
	// The text filter runs client side, as a regex would need escaping.
	if q.Text != "" {
		out = remote.Filter(remote.Query{Text: q.Text}, out)
	}
	return out, nil
}

// queryFilter translates the server side parts of q.
func queryFilter(q remote.Query) bson.M {
	filter := bson.M{}
	if !q.Since.IsZero() {
		filter["timestamp"] = bson.M{"$gt": q.Since}
	}
	if q.State != mood.None {
		filter["emotionalState"] = string(q.State)
	}
	return filter
}

func (s *Store) AddEvent(ctx context.Context, e event.Event) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	doc := fromEvent(e)
	doc.ID = primitive.NewObjectID()
	if _, err := s.db.Collection(moodsCollection).InsertOne(ctx, doc); err != nil {
		return "", s.classify(err)
	}
	return doc.ID.Hex(), nil
}

func (s *Store) UpdateEvent(ctx context.Context, id string, e event.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return remote.ErrNotFound
	}
	doc := fromEvent(e)
	doc.ID = oid
	res, err := s.db.Collection(moodsCollection).ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return s.classify(err)
	}
	if res.MatchedCount == 0 {
		return remote.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return remote.ErrNotFound
	}
	res, err := s.db.Collection(moodsCollection).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return s.classify(err)
	}
	if res.DeletedCount == 0 {
		return remote.ErrNotFound
	}
	return nil
}

// followDoc is one row of the follow graph.
type followDoc struct {
	Follower  string    `bson:"follower"`
	Following string    `bson:"following"`
	Since     time.Time `bson:"since"`
}

func (s *Store) Following(ctx context.Context, subjectID string) ([]string, error) {
	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "following", Value: 1}})
	cursor, err := s.db.Collection(followingCollection).Find(ctx, bson.M{"follower": subjectID}, findOptions)
	if err != nil {
		return nil, s.classify(err)
	}
	defer cursor.Close(ctx)

	var rows []followDoc
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, s.classify(err)
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Following)
	}
	return out, nil
}

func (s *Store) Follow(ctx context.Context, subjectID, targetID string) error {
	if subjectID == "" || targetID == "" {
		return errors.New("mongo: subject and target required")
	}
	filter := bson.M{"follower": subjectID, "following": targetID}
	update := bson.M{"$setOnInsert": followDoc{Follower: subjectID, Following: targetID, Since: time.Now().UTC()}}
	_, err := s.db.Collection(followingCollection).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return s.classify(err)
}

func (s *Store) Unfollow(ctx context.Context, subjectID, targetID string) error {
	_, err := s.db.Collection(followingCollection).DeleteOne(ctx, bson.M{"follower": subjectID, "following": targetID})
	return s.classify(err)
}

func (s *Store) Followers(ctx context.Context, subjectID string) ([]string, error) {
	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "follower", Value: 1}})
	cursor, err := s.db.Collection(followingCollection).Find(ctx, bson.M{"following": subjectID}, findOptions)
	if err != nil {
		return nil, s.classify(err)
	}
	defer cursor.Close(ctx)

	var rows []followDoc
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, s.classify(err)
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Follower)
	}
	return out, nil
}

func (s *Store) RequestFollow(ctx context.Context, fromID, toID string) (remote.FollowRequest, error) {
	coll := s.db.Collection(requestsCollection)
	var existing requestDoc
	err := coll.FindOne(ctx, bson.M{"from": fromID, "to": toID, "status": remote.RequestPending}).Decode(&existing)
	switch {
	case err == nil:
		return existing.toRequest(), remote.ErrRequestExists
	case !errors.Is(err, mongo.ErrNoDocuments):
		return remote.FollowRequest{}, s.classify(err)
	}

	doc := requestDoc{
		ID:     primitive.NewObjectID(),
		From:   fromID,
		To:     toID,
		Status: remote.RequestPending,
		SentAt: time.Now().UTC(),
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return remote.FollowRequest{}, s.classify(err)
	}
	return doc.toRequest(), nil
}

func (s *Store) RespondToRequest(ctx context.Context, subjectID, requestID string, accept bool) (remote.FollowRequest, error) {
	oid, err := primitive.ObjectIDFromHex(requestID)
	if err != nil {
		return remote.FollowRequest{}, remote.ErrRequestNotFound
	}
	status := remote.RequestDeclined
	if accept {
		status = remote.RequestAccepted
	}
	var doc requestDoc
	err = s.db.Collection(requestsCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "to": subjectID, "status": remote.RequestPending},
		bson.M{"$set": bson.M{"status": status}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return remote.FollowRequest{}, remote.ErrRequestNotFound
	}
	if err != nil {
		return remote.FollowRequest{}, s.classify(err)
	}
	if accept {
		if err := s.Follow(ctx, doc.From, doc.To); err != nil {
			return remote.FollowRequest{}, err
		}
	}
	return doc.toRequest(), nil
}

func (s *Store) PendingRequests(ctx context.Context, subjectID string) ([]remote.FollowRequest, error) {
	return s.findRequests(ctx, pendingFilter("to", subjectID))
}

func (s *Store) SentRequests(ctx context.Context, subjectID string) ([]remote.FollowRequest, error) {
	return s.findRequests(ctx, pendingFilter("from", subjectID))
}

func (s *Store) findRequests(ctx context.Context, filter bson.M) ([]remote.FollowRequest, error) {
	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "sentAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(requestsCollection).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, s.classify(err)
	}
	defer cursor.Close(ctx)

	var docs []requestDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, s.classify(err)
	}
	out := make([]remote.FollowRequest, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toRequest())
	}
	return out, nil
}
