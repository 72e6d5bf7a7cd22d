package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func registerResources(srv *server.MCPServer, svc *Service) {
	registerEventsResource(srv, svc)
	registerPendingResource(srv, svc)
	registerEventTemplate(srv, svc)
	registerStatsTemplate(srv, svc)
}

func registerEventsResource(srv *server.MCPServer, svc *Service) {
	resource := mcp.NewResource(
		"moodlog://events",
		"Mood History",
		mcp.WithResourceDescription("The subject's own mood events, newest first."),
		mcp.WithMIMEType("application/json"),
	)

	srv.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		events, err := svc.ListEvents(ctx, ListOptions{Scope: "own"})
		if err != nil {
			return nil, err
		}
		payload := map[string]any{
			"events": events,
			"count":  len(events),
		}
		return encodeResourceJSON(request.Params.URI, payload)
	})
}

func registerPendingResource(srv *server.MCPServer, svc *Service) {
	resource := mcp.NewResource(
		"moodlog://pending",
		"Pending Changes",
		mcp.WithResourceDescription("Mood changes waiting for the remote store, in replay order."),
		mcp.WithMIMEType("application/json"),
	)

	srv.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ops, err := svc.Pending(ctx)
		if err != nil {
			return nil, err
		}
		return encodeResourceJSON(request.Params.URI, map[string]any{
			"pending": ops,
			"count":   len(ops),
		})
	})
}

func registerEventTemplate(srv *server.MCPServer, svc *Service) {
	template := mcp.NewResourceTemplate(
		"moodlog://events/{id}",
		"Mood Event",
		mcp.WithTemplateDescription("A single mood event from the history or the feed."),
		mcp.WithTemplateMIMEType("application/json"),
	)

	srv.AddResourceTemplate(template, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		id := argument(request, "id")
		if id == "" {
			return nil, fmt.Errorf("event id is required")
		}
		dto, err := svc.EventByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return encodeResourceJSON(request.Params.URI, map[string]any{"event": dto})
	})
}

func registerStatsTemplate(srv *server.MCPServer, svc *Service) {
	template := mcp.NewResourceTemplate(
		"moodlog://stats/{year}/{month}",
		"Monthly Statistics",
		mcp.WithTemplateDescription("Mood statistics for one calendar month."),
		mcp.WithTemplateMIMEType("application/json"),
	)

	srv.AddResourceTemplate(template, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		year, err := strconv.Atoi(argument(request, "year"))
		if err != nil {
			return nil, fmt.Errorf("invalid year: %w", err)
		}
		month, err := strconv.Atoi(argument(request, "month"))
		if err != nil {
			return nil, fmt.Errorf("invalid month: %w", err)
		}
		stats, err := svc.MonthlyStats(ctx, year, time.Month(month))
		if err != nil {
			return nil, err
		}
		return encodeResourceJSON(request.Params.URI, stats)
	})
}

// argument reads a template variable; the server may hand them over as a
// string or a single-element slice.
func argument(request mcp.ReadResourceRequest, name string) string {
	switch v := request.Params.Arguments[name].(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func encodeResourceJSON(uri string, payload any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
