// ABOUTME: MCP resource providers for pubfeed
// ABOUTME: Exposes read-only views of the configured collections, run settings and the feed index

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/pubfeed/internal/opml"
)

const (
	collectionsURI = "pubfeed://collections"
	settingsURI    = "pubfeed://settings"
	indexURI       = "pubfeed://index"
)

// ResourceData is the standard response format for all resources.
type ResourceData struct {
	Metadata ResourceMetadata  `json:"metadata"`
	Data     interface{}       `json:"data"`
	Links    map[string]string `json:"links"`
}

// ResourceMetadata contains metadata about the resource response.
type ResourceMetadata struct {
	Timestamp   time.Time `json:"timestamp"`
	Count       int       `json:"count"`
	ResourceURI string    `json:"resource_uri"`
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcp.Resource{
			URI:         collectionsURI,
			Name:        "Collections",
			Description: "Configured publication collections with labels, remote keys and output filenames per display mode",
			MIMEType:    "application/json",
		},
		s.readCollections,
	)
	s.mcpServer.AddResource(
		mcp.Resource{
			URI:         settingsURI,
			Name:        "Run Settings",
			Description: "Effective remote API and output settings (the API key is never included)",
			MIMEType:    "application/json",
		},
		s.readSettings,
	)
	s.mcpServer.AddResource(
		mcp.Resource{
			URI:         indexURI,
			Name:        "Feed Index",
			Description: "Feeds listed in the OPML index written by the last run",
			MIMEType:    "application/json",
		},
		s.readIndex,
	)
}

func (s *Server) readCollections(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	outputs := make([]CollectionOutput, 0, len(s.cfg.Collections))
	for _, col := range s.cfg.Collections {
		outputs = append(outputs, s.collectionOutput(col))
	}
	return s.resource(request, collectionsURI, outputs, len(outputs))
}

func (s *Server) readSettings(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	settings := map[string]interface{}{
		"library":       s.cfg.API.Library,
		"base_url":      s.cfg.API.BaseURL,
		"format":        s.cfg.API.Format,
		"page_size":     s.cfg.API.PageSize,
		"sort":          s.cfg.API.Sort,
		"direction":     s.cfg.API.Direction,
		"timeout":       s.cfg.API.Timeout.String(),
		"has_api_key":   s.cfg.API.Key != "",
		"output_dir":    s.cfg.Output.Dir,
		"output_url":    s.cfg.Output.BaseURL,
		"output_format": s.cfg.Output.Format,
		"language":      s.cfg.Output.Language,
		"opml":          s.cfg.OPMLFile(),
		"modes":         s.cfg.Modes,
	}
	return s.resource(request, settingsURI, settings, len(settings))
}

func (s *Server) readIndex(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	feeds := []opml.Feed{}
	if file := s.cfg.OPMLFile(); file != "" {
		doc, err := opml.ParseFile(filepath.Join(s.cfg.Output.Dir, file))
		switch {
		case err == nil:
			feeds = doc.AllFeeds()
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read feed index: %w", err)
		}
	}
	return s.resource(request, indexURI, feeds, len(feeds))
}

func (s *Server) resource(request mcp.ReadResourceRequest, uri string, data interface{}, count int) ([]mcp.ResourceContents, error) {
	links := map[string]string{}
	for _, other := range []string{collectionsURI, settingsURI, indexURI} {
		if other != uri {
			links[filepath.Base(other)] = other
		}
	}

	resourceData := ResourceData{
		Metadata: ResourceMetadata{
			Timestamp:   time.Now(),
			Count:       count,
			ResourceURI: uri,
		},
		Data:  data,
		Links: links,
	}

	jsonBytes, err := json.MarshalIndent(resourceData, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
