// ABOUTME: MCP prompt definitions and handlers
// ABOUTME: Provides workflow templates for reviewing collections and publishing feeds

package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.registerReviewCollectionPrompt()
	s.registerPublishFeedsPrompt()
}

func (s *Server) registerReviewCollectionPrompt() {
	s.mcpServer.AddPrompt(
		mcp.Prompt{
			Name:        "review-collection",
			Description: "Check one collection's records for missing titles, links and dates before publishing its feed",
			Arguments: []mcp.PromptArgument{
				{
					Name:        "collection",
					Description: "Collection name or remote key (default: the first configured collection)",
					Required:    false,
				},
			},
		},
		s.handleReviewCollection,
	)
}

func (s *Server) handleReviewCollection(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	collection := ""
	if len(s.cfg.Collections) > 0 {
		collection = s.cfg.Collections[0].Name
	}
	if req.Params.Arguments != nil {
		if c, ok := req.Params.Arguments["collection"]; ok && c != "" {
			collection = c
		}
	}

	template := fmt.Sprintf(`# Review Collection: %s

## Overview
Inspect the normalized items of one collection and report records that will look wrong in the published feed.

## Workflow Steps

### Step 1: Fetch the items
Call fetch_collection with collection=%q and a generous limit.
Note the reported total, count and skipped values. Skipped records had no usable title or no metadata and will not appear in any feed.

### Step 2: Check links
List items without a link. These records have no DOI, no http(s) URL and no fallback applied.
Items whose link is the collection fallback page deserve a DOI in the library.

### Step 3: Check dates
List items without a year. They sort to the end of the feed and carry no category.

### Step 4: Check authors
List items without authors. Their display title starts with the year.

### Step 5: Summarize
Report the counts from each step and the keys of the affected records so they can be fixed in the library.
`, collection, collection)

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Review workflow for collection %s", collection),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: template,
				},
			},
		},
	}, nil
}

func (s *Server) registerPublishFeedsPrompt() {
	s.mcpServer.AddPrompt(
		mcp.Prompt{
			Name:        "publish-feeds",
			Description: "Dry-run, inspect and then write every configured feed",
			Arguments:   []mcp.PromptArgument{},
		},
		s.handlePublishFeeds,
	)
}

func (s *Server) handlePublishFeeds(_ context.Context, _ mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	template := `# Publish Feeds

## Workflow Steps

### Step 1: Review the configuration
Read pubfeed://collections and pubfeed://settings. Confirm every collection has a title and the output base URL is set, otherwise feeds carry no self link.

### Step 2: Dry run
Call generate_feeds with dry_run=true.
- "rendered" means the feed would be written.
- "empty" means the collection returned no usable items.
- "failed" means the remote API refused or failed; check the error for 403 (API key) or 404 (collection key).
- partial=true means a later page failed and the feed would be published with the records fetched so far.

### Step 3: Publish
If the dry run looks right, call generate_feeds without dry_run.

### Step 4: Verify
Read pubfeed://index and confirm each expected feed is listed.
`

	return &mcp.GetPromptResult{
		Description: "Publishing workflow for all configured feeds",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: template,
				},
			},
		},
	}, nil
}
