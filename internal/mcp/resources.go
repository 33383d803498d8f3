package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	resourceMIMEJSON = "application/json"

	aboutURI   = "formfill://about"
	mappingURI = "formfill://mapping"
)

func (s *Server) registerAllResources() {
	if s == nil || s.mcpServer == nil {
		return
	}

	s.mcpServer.AddResource(
		mcp.NewResource(
			aboutURI,
			"FormFill About",
			mcp.WithMIMEType(resourceMIMEJSON),
			mcp.WithResourceDescription("Server info, target form and usage notes."),
		),
		s.handleAboutResource,
	)

	s.mcpServer.AddResource(
		mcp.NewResource(
			mappingURI,
			"Field Mapping",
			mcp.WithMIMEType(resourceMIMEJSON),
			mcp.WithResourceDescription("The ordered field table used by fill-form."),
		),
		s.handleMappingResource,
	)
}

func (s *Server) handleAboutResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	payload := map[string]interface{}{
		"name":     s.cfg.Server.Name,
		"version":  s.cfg.Server.Version,
		"form_url": s.cfg.Form.URL,
		"fields":   len(s.engine.Mapping().Fields),
		"notes": []string{
			"fill-form runs are serialized; each run launches and tears down its own browser.",
			"Empty values and N/A are treated as absent and never typed.",
			"Fields the page has no visible control for are skipped without an error.",
		},
		"timestamp_ms": time.Now().UnixMilli(),
	}
	return jsonResource(request.Params.URI, payload)
}

func (s *Server) handleMappingResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(request.Params.URI, s.engine.Mapping())
}

func jsonResource(uri string, payload interface{}) ([]mcp.ResourceContents, error) {
	text, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: resourceMIMEJSON,
			Text:     string(text),
		},
	}, nil
}
