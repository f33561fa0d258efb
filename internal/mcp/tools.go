// ABOUTME: MCP tool definitions and handlers for collection operations
// ABOUTME: Lists configured collections, fetches normalized items, renders and generates feeds

package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/pubfeed/internal/feedwriter"
	"github.com/harper/pubfeed/internal/models"
)

// Type definitions for input/output structures

type ListCollectionsInput struct{}

type CollectionOutput struct {
	Name        string            `json:"name"`
	Key         string            `json:"key,omitempty"`
	Label       string            `json:"label"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Files       map[string]string `json:"files"`
}

type ListCollectionsOutput struct {
	Library     string             `json:"library"`
	Collections []CollectionOutput `json:"collections"`
	Count       int                `json:"count"`
	Modes       []string           `json:"modes"`
}

type FetchCollectionInput struct {
	Collection string  `json:"collection"`
	Mode       *string `json:"mode,omitempty"`
	Limit      *int    `json:"limit,omitempty"`
}

type ItemOutput struct {
	Key          string   `json:"key,omitempty"`
	DisplayTitle string   `json:"display_title"`
	Title        string   `json:"title"`
	Authors      string   `json:"authors,omitempty"`
	Year         string   `json:"year,omitempty"`
	Journal      string   `json:"journal,omitempty"`
	Volume       string   `json:"volume,omitempty"`
	Link         string   `json:"link,omitempty"`
	Categories   []string `json:"categories,omitempty"`
}

type FetchCollectionOutput struct {
	Collection string       `json:"collection"`
	Mode       string       `json:"mode"`
	Items      []ItemOutput `json:"items"`
	Count      int          `json:"count"`
	Total      int          `json:"total"`
	Skipped    int          `json:"skipped"`
	Partial    bool         `json:"partial"`
	Error      *string      `json:"error,omitempty"`
}

type RenderFeedInput struct {
	Collection string  `json:"collection"`
	Mode       *string `json:"mode,omitempty"`
	Format     *string `json:"format,omitempty"`
}

type GenerateFeedsInput struct {
	DryRun *bool `json:"dry_run,omitempty"`
}

type OutcomeOutput struct {
	Collection string  `json:"collection"`
	Mode       string  `json:"mode"`
	File       string  `json:"file"`
	Status     string  `json:"status"`
	Items      int     `json:"items"`
	Partial    bool    `json:"partial"`
	Error      *string `json:"error,omitempty"`
}

type GenerateFeedsOutput struct {
	Outcomes       []OutcomeOutput `json:"outcomes"`
	Produced       int             `json:"produced"`
	Failed         int             `json:"failed"`
	PartialFailure bool            `json:"partial_failure"`
	TotalFailure   bool            `json:"total_failure"`
	DryRun         bool            `json:"dry_run"`
}

const defaultFetchLimit = 50

func (s *Server) registerTools() {
	s.registerListCollectionsTool()
	s.registerFetchCollectionTool()
	s.registerRenderFeedTool()
	s.registerGenerateFeedsTool()
}

func (s *Server) registerListCollectionsTool() {
	tool := mcp.Tool{
		Name:        "list_collections",
		Description: "List the configured publication collections with their feed filenames per display mode. The collection without a key covers the whole library.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
	s.mcpServer.AddTool(tool, s.handleListCollections)
}

func (s *Server) registerFetchCollectionTool() {
	tool := mcp.Tool{
		Name:        "fetch_collection",
		Description: "Fetch every record of one collection from the remote library and return the normalized items, newest first. Nothing is written to disk.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection": map[string]interface{}{
					"type":        "string",
					"description": "Collection name or remote key as listed by list_collections. Example: 'iau'",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Author display mode: 'all-authors' (default) or 'single-author'",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum items to return (default: 50). The total count is always reported.",
				},
			},
			Required: []string{"collection"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleFetchCollection)
}

func (s *Server) registerRenderFeedTool() {
	tool := mcp.Tool{
		Name:        "render_feed",
		Description: "Build the RSS or Atom feed for one collection and return the XML without writing it.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection": map[string]interface{}{
					"type":        "string",
					"description": "Collection name or remote key. Example: 'iau'",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Author display mode: 'all-authors' (default) or 'single-author'",
				},
				"format": map[string]interface{}{
					"type":        "string",
					"description": "Output format 'rss' or 'atom' (default: configured output format)",
				},
			},
			Required: []string{"collection"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleRenderFeed)
}

func (s *Server) registerGenerateFeedsTool() {
	tool := mcp.Tool{
		Name:        "generate_feeds",
		Description: "Run the full pipeline for every configured collection and display mode and write the feeds and index. Set dry_run=true to build everything without writing.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"dry_run": map[string]interface{}{
					"type":        "boolean",
					"description": "Build but do not write artifacts (default: false)",
				},
			},
		},
	}
	s.mcpServer.AddTool(tool, s.handleGenerateFeeds)
}

func (s *Server) handleListCollections(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	output := ListCollectionsOutput{
		Library:     s.cfg.API.Library,
		Collections: make([]CollectionOutput, 0, len(s.cfg.Collections)),
		Modes:       s.cfg.Modes,
	}
	for _, col := range s.cfg.Collections {
		output.Collections = append(output.Collections, s.collectionOutput(col))
	}
	output.Count = len(output.Collections)

	jsonBytes, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal output: %w", err)
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleFetchCollection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input FetchCollectionInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	spec, mode, err := s.resolve(input.Collection, input.Mode)
	if err != nil {
		return nil, err
	}

	limit := defaultFetchLimit
	if input.Limit != nil && *input.Limit > 0 {
		limit = *input.Limit
	}

	artifact, err := s.agg.Collect(ctx, s.cfg, spec, mode)
	if artifact == nil {
		return nil, fmt.Errorf("failed to fetch collection %s: %w", spec.Name, err)
	}

	output := FetchCollectionOutput{
		Collection: spec.Name,
		Mode:       string(mode),
		Items:      make([]ItemOutput, 0, min(limit, len(artifact.Items))),
		Count:      len(artifact.Items),
		Total:      artifact.Result.Total,
		Skipped:    artifact.Result.Skipped,
		Partial:    err != nil,
	}
	if err != nil {
		msg := err.Error()
		output.Error = &msg
	}
	for i, item := range artifact.Items {
		if i >= limit {
			break
		}
		output.Items = append(output.Items, itemOutput(item))
	}

	jsonBytes, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal output: %w", err)
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleRenderFeed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input RenderFeedInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	spec, mode, err := s.resolve(input.Collection, input.Mode)
	if err != nil {
		return nil, err
	}

	cfg := s.cfg
	if input.Format != nil && *input.Format != "" {
		format, err := feedwriter.ParseFormat(*input.Format)
		if err != nil {
			return nil, err
		}
		copied := *s.cfg
		copied.Output.Format = string(format)
		cfg = &copied
	}

	data, _, err := s.agg.Render(ctx, cfg, spec, mode)
	if data == nil {
		return nil, fmt.Errorf("failed to render feed for %s: %w", spec.Name, err)
	}
	if err != nil {
		s.logger.Warn("rendered partial collection", "collection", spec.Name, "err", err)
	}

	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleGenerateFeeds(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input GenerateFeedsInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	dryRun := input.DryRun != nil && *input.DryRun

	report, err := s.agg.Run(ctx, s.cfg, dryRun)
	if err != nil {
		return nil, fmt.Errorf("failed to generate feeds: %w", err)
	}

	output := GenerateFeedsOutput{
		Outcomes:       make([]OutcomeOutput, 0, len(report.Outcomes)),
		Produced:       report.Produced(),
		Failed:         report.Failures(),
		PartialFailure: report.PartialFailure(),
		TotalFailure:   report.TotalFailure(),
		DryRun:         dryRun,
	}
	for _, o := range report.Outcomes {
		out := OutcomeOutput{
			Collection: o.Collection.Name,
			Mode:       string(o.Mode),
			File:       o.File,
			Status:     string(o.Status),
			Items:      o.Items,
			Partial:    o.Partial,
		}
		if o.Err != nil {
			msg := o.Err.Error()
			out.Error = &msg
		}
		output.Outcomes = append(output.Outcomes, out)
	}

	jsonBytes, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal output: %w", err)
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) resolve(collection string, mode *string) (models.CollectionSpec, models.DisplayMode, error) {
	spec, ok := s.cfg.Collection(collection)
	if !ok {
		return models.CollectionSpec{}, "", fmt.Errorf("unknown collection: %q", collection)
	}
	m := models.ModeAllAuthors
	if mode != nil && *mode != "" {
		parsed, err := models.ParseDisplayMode(*mode)
		if err != nil {
			return models.CollectionSpec{}, "", err
		}
		m = parsed
	}
	return spec, m, nil
}

func (s *Server) collectionOutput(col models.CollectionSpec) CollectionOutput {
	files := make(map[string]string)
	for _, m := range s.cfg.DisplayModes() {
		files[string(m)] = col.FileName(m)
	}
	return CollectionOutput{
		Name:        col.Name,
		Key:         col.Key,
		Label:       col.Label,
		Title:       col.Title,
		Description: col.Description,
		Files:       files,
	}
}

func itemOutput(item models.Item) ItemOutput {
	return ItemOutput{
		Key:          item.Key,
		DisplayTitle: feedwriter.DisplayTitle(item),
		Title:        item.Title,
		Authors:      item.Authors,
		Year:         item.Year,
		Journal:      item.Journal,
		Volume:       item.Volume,
		Link:         item.Link,
		Categories:   item.Categories,
	}
}
