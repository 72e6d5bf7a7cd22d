// Package mcp provides the Model Context Protocol server integration for moodlog.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tableflip.dev/moodlog/pkg/analytics"
	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/filter"
	"tableflip.dev/moodlog/pkg/history"
	"tableflip.dev/moodlog/pkg/mood"
	"tableflip.dev/moodlog/pkg/profile"
	"tableflip.dev/moodlog/pkg/remote"
)

// Service coordinates profile-backed operations that are shared by the MCP server.
type Service struct {
	Profile  *profile.Profile
	Registry *mood.Registry
}

// ErrEventNotFound is returned when an event is in neither cache.
var ErrEventNotFound = errors.New("event not found")

// AddEventOptions captures the parameters used to record a mood.
type AddEventOptions struct {
	State      string
	Trigger    string
	Social     string
	Visibility string
	At         *time.Time
	Location   *event.Location
}

// ListOptions selects events for ListEvents.
type ListOptions struct {
	Scope   string
	Window  string
	State   string
	Trigger string
	Limit   int
}

// EventDTO is a transport-friendly projection of an event.
type EventDTO struct {
	ID              string  `json:"id"`
	State           string  `json:"emotionalState"`
	Emoji           string  `json:"emoji,omitempty"`
	Color           string  `json:"color,omitempty"`
	Trigger         string  `json:"trigger,omitempty"`
	SocialSituation string  `json:"socialSituation,omitempty"`
	AuthorID        string  `json:"authorId"`
	Visibility      string  `json:"postType"`
	CreatedISO      string  `json:"timestamp"`
	CreatedUnix     int64   `json:"timestampUnix"`
	Latitude        float64 `json:"latitude,omitempty"`
	Longitude       float64 `json:"longitude,omitempty"`
	PlaceName       string  `json:"placeName,omitempty"`
	// Pending is true until the remote store has confirmed the event.
	Pending bool `json:"pending"`
}

// MutationResult reports a mutation and whether it is still queued.
type MutationResult struct {
	Event   *EventDTO `json:"event,omitempty"`
	Queued  bool      `json:"queued"`
	Message string    `json:"message,omitempty"`
}

// OperationDTO is one queued operation.
type OperationDTO struct {
	Seq       uint64 `json:"seq"`
	Kind      string `json:"kind"`
	EventID   string `json:"eventId"`
	State     string `json:"state"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"lastError,omitempty"`
	Created   string `json:"created"`
}

// NewService builds a service wrapper around p.
func NewService(p *profile.Profile, reg *mood.Registry) *Service {
	if reg == nil {
		reg = mood.Default
	}
	return &Service{Profile: p, Registry: reg}
}

func (s *Service) ready() error {
	if s.Profile == nil {
		return errors.New("profile is not configured")
	}
	return nil
}

// ListEvents filters the cached events. An empty scope lists the feed.
func (s *Service) ListEvents(_ context.Context, o ListOptions) ([]EventDTO, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	c, err := s.criteria(o)
	if err != nil {
		return nil, err
	}
	view := s.Profile.Events(c)
	if view.Err != nil && len(view.Events) == 0 {
		return nil, view.Err
	}
	events := view.Events
	if o.Limit > 0 && len(events) > o.Limit {
		events = events[:o.Limit]
	}
	return toDTOs(events), nil
}

func (s *Service) criteria(o ListOptions) (filter.Criteria, error) {
	var c filter.Criteria
	var err error
	if c.Scope, err = filter.ParseScope(o.Scope); err != nil {
		return c, err
	}
	if c.Window, err = filter.ParseWindow(o.Window); err != nil {
		return c, err
	}
	if strings.TrimSpace(o.State) != "" {
		if c.State, err = s.Registry.Parse(o.State); err != nil {
			return c, err
		}
	}
	c.Trigger = strings.TrimSpace(o.Trigger)
	return c, nil
}

// AddEvent records a mood for the profile's subject.
func (s *Service) AddEvent(ctx context.Context, o AddEventOptions) (MutationResult, error) {
	if err := s.ready(); err != nil {
		return MutationResult{}, err
	}
	state, err := s.Registry.Parse(o.State)
	if err != nil {
		return MutationResult{}, err
	}
	vis, err := event.ParseVisibility(o.Visibility)
	if err != nil {
		return MutationResult{}, err
	}
	e := event.Event{
		State:           state,
		Trigger:         strings.TrimSpace(o.Trigger),
		SocialSituation: strings.TrimSpace(o.Social),
		Visibility:      vis,
		Location:        o.Location,
	}
	if o.At != nil {
		e.Timestamp = event.At(*o.At)
	}
	saved, err := s.Profile.History.AddEvent(ctx, e)
	return mutation(saved, err)
}

// EditEvent replaces the fields of an own event. Blank fields keep their
// current value.
func (s *Service) EditEvent(ctx context.Context, id string, o AddEventOptions) (MutationResult, error) {
	if err := s.ready(); err != nil {
		return MutationResult{}, err
	}
	current, ok := s.Profile.History.EventByID(id)
	if !ok {
		return MutationResult{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	updated := current.Clone()
	if strings.TrimSpace(o.State) != "" {
		if updated.State, ok = s.Registry.Lookup(o.State); !ok {
			return MutationResult{}, fmt.Errorf("unknown emotional state %q", o.State)
		}
	}
	if o.Trigger != "" {
		updated.Trigger = strings.TrimSpace(o.Trigger)
	}
	if o.Social != "" {
		updated.SocialSituation = strings.TrimSpace(o.Social)
	}
	if o.Visibility != "" {
		vis, err := event.ParseVisibility(o.Visibility)
		if err != nil {
			return MutationResult{}, err
		}
		updated.Visibility = vis
	}
	if o.At != nil {
		updated.Timestamp = event.At(*o.At)
	}
	if o.Location != nil {
		updated.Location = o.Location
	}
	saved, err := s.Profile.History.EditEvent(ctx, id, updated)
	return mutation(saved, err)
}

// DeleteEvent removes an own event.
func (s *Service) DeleteEvent(ctx context.Context, id string) (MutationResult, error) {
	if err := s.ready(); err != nil {
		return MutationResult{}, err
	}
	err := s.Profile.History.DeleteEvent(ctx, id)
	switch {
	case errors.Is(err, history.ErrPending):
		return MutationResult{Queued: true, Message: err.Error()}, nil
	case err != nil:
		return MutationResult{}, err
	}
	return MutationResult{}, nil
}

func mutation(saved event.Event, err error) (MutationResult, error) {
	switch {
	case errors.Is(err, history.ErrPending):
		dto := toDTO(saved)
		return MutationResult{Event: &dto, Queued: true, Message: err.Error()}, nil
	case err != nil:
		return MutationResult{}, err
	}
	dto := toDTO(saved)
	return MutationResult{Event: &dto}, nil
}

// EventByID looks in the history first and then the feed.
func (s *Service) EventByID(_ context.Context, id string) (EventDTO, error) {
	if err := s.ready(); err != nil {
		return EventDTO{}, err
	}
	if e, ok := s.Profile.History.EventByID(id); ok {
		return toDTO(e), nil
	}
	if e, ok := s.Profile.Feed.EventByID(id); ok {
		return toDTO(e), nil
	}
	return EventDTO{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
}

// MonthlyStats summarises the subject's own events.
func (s *Service) MonthlyStats(_ context.Context, year int, month time.Month) (analytics.Stats, error) {
	if err := s.ready(); err != nil {
		return analytics.Stats{}, err
	}
	if month < time.January || month > time.December {
		return analytics.Stats{}, fmt.Errorf("invalid month %d", month)
	}
	stats, _ := s.Profile.Stats(year, month)
	return stats, nil
}

// SyncPending replays the queue now.
func (s *Service) SyncPending(ctx context.Context) (history.SyncReport, error) {
	if err := s.ready(); err != nil {
		return history.SyncReport{}, err
	}
	return s.Profile.History.SyncPendingChanges(ctx)
}

// Pending lists queued operations.
func (s *Service) Pending(_ context.Context) ([]OperationDTO, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ops := s.Profile.History.Pending()
	out := make([]OperationDTO, 0, len(ops))
	for _, op := range ops {
		dto := OperationDTO{
			Seq:      op.Seq,
			Kind:     op.Kind.String(),
			EventID:  op.EventID,
			State:    op.State.String(),
			Attempts: op.Attempts,
			Created:  event.FormatTime(op.CreatedAt),
		}
		if op.LastErr != nil {
			dto.LastError = op.LastErr.Error()
		}
		out = append(out, dto)
	}
	return out, nil
}

// RequestFollow asks target to accept the subject as a follower.
func (s *Service) RequestFollow(ctx context.Context, target string) (remote.FollowRequest, error) {
	if err := s.ready(); err != nil {
		return remote.FollowRequest{}, err
	}
	return s.Profile.RequestFollow(ctx, target)
}

// FollowRequests lists requests addressed to the subject, or the ones the
// subject sent when sent is true.
func (s *Service) FollowRequests(ctx context.Context, sent bool) ([]remote.FollowRequest, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if sent {
		return s.Profile.SentRequests(ctx)
	}
	return s.Profile.PendingRequests(ctx)
}

// AnswerFollowRequest accepts or declines a request addressed to the subject.
func (s *Service) AnswerFollowRequest(ctx context.Context, requestID string, accept bool) (remote.FollowRequest, error) {
	if err := s.ready(); err != nil {
		return remote.FollowRequest{}, err
	}
	if accept {
		return s.Profile.Accept(ctx, requestID)
	}
	return s.Profile.Decline(ctx, requestID)
}

// Following lists who the subject follows.
func (s *Service) Following(ctx context.Context) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.Profile.Following(ctx)
}

// Followers lists who follows the subject.
func (s *Service) Followers(ctx context.Context) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.Profile.Followers(ctx)
}

// Unfollow stops following target.
func (s *Service) Unfollow(ctx context.Context, target string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.Profile.Unfollow(ctx, target); err != nil {
		return nil, err
	}
	return s.Profile.Following(ctx)
}

// NearbyDTO is an event with its distance from the query point.
type NearbyDTO struct {
	EventDTO
	DistanceKm float64 `json:"distanceKm"`
}

// Nearby lists located events around a point.
func (s *Service) Nearby(_ context.Context, lat, lng, radiusKm float64) ([]NearbyDTO, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	placed := s.Profile.Nearby(filter.Criteria{}, filter.Point{Latitude: lat, Longitude: lng}, radiusKm)
	out := make([]NearbyDTO, 0, len(placed))
	for _, p := range placed {
		out = append(out, NearbyDTO{EventDTO: toDTO(p.Event), DistanceKm: p.DistanceKm})
	}
	return out, nil
}

func toDTOs(events []event.Event) []EventDTO {
	out := make([]EventDTO, 0, len(events))
	for _, e := range events {
		out = append(out, toDTO(e))
	}
	return out
}

func toDTO(e event.Event) EventDTO {
	g := e.State.Glyph()
	dto := EventDTO{
		ID:              e.ID,
		State:           string(e.State),
		Emoji:           g.Emoji,
		Color:           g.Hex,
		Trigger:         e.Trigger,
		SocialSituation: e.SocialSituation,
		AuthorID:        e.AuthorID,
		Visibility:      string(e.Visibility),
		Pending:         event.IsLocalID(e.ID),
	}
	if !e.Timestamp.IsZero() {
		dto.CreatedISO = event.FormatTime(e.Timestamp.Time)
		dto.CreatedUnix = e.Timestamp.Unix()
	}
	if e.HasLocation() {
		dto.Latitude = e.Location.Latitude
		dto.Longitude = e.Location.Longitude
		dto.PlaceName = e.Location.PlaceName
	}
	return dto
}
