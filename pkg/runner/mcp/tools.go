package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/filter"
)

func registerTools(srv *server.MCPServer, svc *Service) {
	registerAddMoodTool(srv, svc)
	registerEditMoodTool(srv, svc)
	registerDeleteMoodTool(srv, svc)
	registerListMoodsTool(srv, svc)
	registerGetMoodTool(srv, svc)
	registerMonthlyStatsTool(srv, svc)
	registerSyncPendingTool(srv, svc)
	registerListPendingTool(srv, svc)
	registerFollowTool(srv, svc)
	registerUnfollowTool(srv, svc)
	registerFollowRequestsTool(srv, svc)
	registerAnswerFollowRequestTool(srv, svc)
	registerFollowersTool(srv, svc)
	registerNearbyTool(srv, svc)
}

type moodArgs struct {
	State      string   `json:"emotionalState"`
	Trigger    string   `json:"trigger"`
	Social     string   `json:"socialSituation"`
	Visibility string   `json:"postType"`
	Timestamp  string   `json:"timestamp"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Place      string   `json:"placeName"`
}

func (a moodArgs) options() (AddEventOptions, error) {
	o := AddEventOptions{
		State:      a.State,
		Trigger:    a.Trigger,
		Social:     a.Social,
		Visibility: a.Visibility,
	}
	if strings.TrimSpace(a.Timestamp) != "" {
		when, err := event.ParseTime(a.Timestamp)
		if err != nil {
			return o, fmt.Errorf("invalid timestamp value: %v", err)
		}
		o.At = &when
	}
	switch {
	case a.Latitude != nil && a.Longitude != nil:
		o.Location = &event.Location{Latitude: *a.Latitude, Longitude: *a.Longitude, PlaceName: strings.TrimSpace(a.Place)}
	case a.Latitude != nil || a.Longitude != nil:
		return o, fmt.Errorf("latitude and longitude must be given together")
	}
	return o, nil
}

func moodFields(state mcp.PropertyOption) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("emotionalState", state,
			mcp.Description("Emotional state such as Happiness, Sadness, Anger, Surprise, Disgust, Fear, Confusion or Shame."),
		),
		mcp.WithString("trigger",
			mcp.Description("What caused the mood."),
		),
		mcp.WithString("socialSituation",
			mcp.Description("Who the subject was with, e.g. Alone or With friends."),
		),
		mcp.WithString("postType",
			mcp.Description("Visibility of the event."),
			mcp.Enum("Public", "Private"),
		),
		mcp.WithString("timestamp",
			mcp.Description("Optional RFC3339 timestamp; defaults to now."),
		),
		mcp.WithNumber("latitude",
			mcp.Description("Optional latitude in degrees."),
			mcp.Min(-90),
			mcp.Max(90),
		),
		mcp.WithNumber("longitude",
			mcp.Description("Optional longitude in degrees."),
			mcp.Min(-180),
			mcp.Max(180),
		),
		mcp.WithString("placeName",
			mcp.Description("Optional name for the location."),
		),
	}
}

func registerAddMoodTool(srv *server.MCPServer, svc *Service) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Record a mood event. Offline adds are shown at once and queued until the store confirms them."),
	}, moodFields(mcp.Required())...)
	tool := mcp.NewTool("add_mood", opts...)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args moodArgs
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		o, err := args.options()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, err := svc.AddEvent(ctx, o)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(res)
	})
}

func registerEditMoodTool(srv *server.MCPServer, svc *Service) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Edit one of the subject's own mood events. Omitted fields keep their value."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Event identifier to edit."),
		),
	}, moodFields(mcp.Description("New emotional state."))...)
	tool := mcp.NewTool("edit_mood", opts...)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var args moodArgs
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		o, err := args.options()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, err := svc.EditEvent(ctx, id, o)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(res)
	})
}

func registerDeleteMoodTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"delete_mood",
		mcp.WithDescription("Delete one of the subject's own mood events."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Event identifier to delete."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, err := svc.DeleteEvent(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{
			"id":      id,
			"deleted": true,
			"queued":  res.Queued,
		})
	})
}

func registerListMoodsTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"list_moods",
		mcp.WithDescription("List mood events newest first, filtered by scope, time window, state and trigger text."),
		mcp.WithString("scope",
			mcp.Description("Whose events to list (default all followed)."),
			mcp.Enum("all", "own", "followed", "nearby"),
		),
		mcp.WithString("window",
			mcp.Description("Time window: all, week, month or year."),
			mcp.Enum("all", "week", "month", "year"),
		),
		mcp.WithString("emotionalState",
			mcp.Description("Only events with this state."),
		),
		mcp.WithString("trigger",
			mcp.Description("Case-insensitive text the trigger must contain."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of events to return (default 50)."),
			mcp.Min(1),
			mcp.Max(500),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		o := ListOptions{
			Scope:   request.GetString("scope", ""),
			Window:  request.GetString("window", ""),
			State:   request.GetString("emotionalState", ""),
			Trigger: request.GetString("trigger", ""),
			Limit:   request.GetInt("limit", 50),
		}
		events, err := svc.ListEvents(ctx, o)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{
			"scope":  o.Scope,
			"window": o.Window,
			"events": events,
			"count":  len(events),
		})
	})
}

func registerGetMoodTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"get_mood",
		mcp.WithDescription("Fetch a single mood event by identifier."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Event identifier to fetch."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		dto, err := svc.EventByID(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerMonthlyStatsTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"monthly_stats",
		mcp.WithDescription("Summarise the subject's moods for a calendar month: breakdowns, most active day, consistency, stability and the daily trend."),
		mcp.WithNumber("year",
			mcp.Description("Year, defaults to the current year."),
		),
		mcp.WithNumber("month",
			mcp.Description("Month number 1-12, defaults to the current month."),
			mcp.Min(1),
			mcp.Max(12),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		now := time.Now()
		year := request.GetInt("year", now.Year())
		month := time.Month(request.GetInt("month", int(now.Month())))
		stats, err := svc.MonthlyStats(ctx, year, month)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(stats)
	})
}

func registerSyncPendingTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"sync_pending",
		mcp.WithDescription("Replay queued mood changes to the remote store in the order they were made."),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		report, err := svc.SyncPending(ctx)
		payload := map[string]any{
			"applied":   report.Applied,
			"remaining": report.Remaining,
		}
		if err != nil {
			payload["error"] = err.Error()
		}
		return toJSONResult(payload)
	})
}

func registerListPendingTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"list_pending",
		mcp.WithDescription("List mood changes waiting for the remote store."),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ops, err := svc.Pending(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{
			"pending": ops,
			"count":   len(ops),
		})
	})
}

func registerFollowTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"follow",
		mcp.WithDescription("Send a follow request. The user's public moods join the feed once they accept it."),
		mcp.WithString("user",
			mcp.Required(),
			mcp.Description("User identifier to follow."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		user, err := request.RequireString("user")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		req, err := svc.RequestFollow(ctx, user)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{"request": req})
	})
}

func registerFollowRequestsTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"follow_requests",
		mcp.WithDescription("List pending follow requests addressed to the subject, or the ones they sent."),
		mcp.WithBoolean("sent",
			mcp.Description("List outgoing requests instead of incoming ones."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reqs, err := svc.FollowRequests(ctx, request.GetBool("sent", false))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{
			"requests": reqs,
			"count":    len(reqs),
		})
	})
}

func registerAnswerFollowRequestTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"answer_follow_request",
		mcp.WithDescription("Accept or decline a follow request addressed to the subject."),
		mcp.WithString("requestId",
			mcp.Required(),
			mcp.Description("Identifier from follow_requests."),
		),
		mcp.WithBoolean("accept",
			mcp.Required(),
			mcp.Description("True to accept, false to decline."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("requestId")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		accept, err := request.RequireBool("accept")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		req, err := svc.AnswerFollowRequest(ctx, id, accept)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{"request": req})
	})
}

func registerFollowersTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"followers",
		mcp.WithDescription("List who follows the subject and who the subject follows."),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		followers, err := svc.Followers(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		following, err := svc.Following(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{
			"followers": followers,
			"following": following,
		})
	})
}

func registerUnfollowTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"unfollow",
		mcp.WithDescription("Stop following a user."),
		mcp.WithString("user",
			mcp.Required(),
			mcp.Description("User identifier to unfollow."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		user, err := request.RequireString("user")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		following, err := svc.Unfollow(ctx, user)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{"following": following})
	})
}

func registerNearbyTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"nearby_moods",
		mcp.WithDescription("List located mood events within a radius of a point, closest first."),
		mcp.WithNumber("latitude", mcp.Required(), mcp.Min(-90), mcp.Max(90)),
		mcp.WithNumber("longitude", mcp.Required(), mcp.Min(-180), mcp.Max(180)),
		mcp.WithNumber("radiusKm",
			mcp.Description(fmt.Sprintf("Search radius in kilometres (default %g).", filter.DefaultRadiusKm)),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		lat, err := request.RequireFloat("latitude")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		lng, err := request.RequireFloat("longitude")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		radius := request.GetFloat("radiusKm", filter.DefaultRadiusKm)
		results, err := svc.Nearby(ctx, lat, lng, radius)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{
			"results": results,
			"count":   len(results),
		})
	})
}

func toJSONResult(data any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return result, nil
}
