package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterResources registers MCP resources that expose gritline data.
func RegisterResources(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}
	app := deps.App

	srv.Resource("gritline://scores/all").
		Name("Overall Score").
		Description("Grit, productivity and composite score across all tasks").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			score, err := getScore(ctx, app, scoreGetInput{})
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, score)
		})

	srv.Resource("gritline://triggers").
		Name("Trigger Catalog").
		Description("Follow-up triggers with their priority and question tree").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			views, err := listTriggers(app)
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, views)
		})

	srv.Resource("gritline://health").
		Name("Health").
		Description("Status of the database, Redis and RabbitMQ connections").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			overall, err := health(ctx, app)
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, overall)
		})

	return nil
}

func jsonResource(uri string, v any) (*mcp.ResourceContent, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ResourceContent{
		URI:      uri,
		MimeType: "application/json",
		Text:     string(data),
	}, nil
}
