package resources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/todoagent/internal/email"
	"github.com/teemow/todoagent/internal/rules"
	"github.com/teemow/todoagent/internal/server"
)

// Resource URIs.
const (
	RulesURI  = "todoagent://rules"
	LabelsURI = "todoagent://labels"
)

// RegisterAgentResources registers the agent resources with the MCP server.
func RegisterAgentResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc == nil || sc.Agent() == nil {
		return fmt.Errorf("server context has no agent")
	}

	rulesResource := mcp.NewResource(
		RulesURI,
		"Classification Rules",
		mcp.WithResourceDescription("The current rule set in the rules file format, ordered by evaluation priority"),
		mcp.WithMIMEType("application/yaml"),
	)
	s.AddResource(rulesResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleRules(request, sc)
	})

	labelsResource := mcp.NewResource(
		LabelsURI,
		"Gmail Labels",
		mcp.WithResourceDescription("The Gmail labels todoagent writes and what they mean"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(labelsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleLabels(request)
	})

	return nil
}

func handleRules(request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	var buf bytes.Buffer
	if err := rules.Encode(&buf, sc.Agent().Rules()); err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/yaml",
			Text:     buf.String(),
		},
	}, nil
}

// LabelInfo describes one managed label.
type LabelInfo struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Priority    int    `json:"taskPriority,omitempty"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description"`
}

// Labels lists the managed labels with their task defaults.
func Labels() []LabelInfo {
	out := []LabelInfo{
		{Name: email.LabelProcessed, Kind: "state", Description: "Handled; excluded from batch runs"},
		{Name: email.LabelSkip, Kind: "state", Description: "Not actionable; excluded from batch runs"},
		{Name: email.LabelFailed, Kind: "state", Description: "Processing failed; retried on the next run"},
	}
	descriptions := map[string]string{
		email.LabelImportant: "Important; creates a high-priority task",
		email.LabelUrgent:    "Time-critical; creates a high-priority task",
		email.LabelMeeting:   "Meeting request or invitation",
		email.LabelTask:      "Actionable request",
	}
	for _, l := range email.ActionLabels {
		priority, category := email.LabelDefaults(l)
		out = append(out, LabelInfo{
			Name:        l,
			Kind:        "action",
			Priority:    priority,
			Category:    category,
			Description: descriptions[l],
		})
	}
	return out
}

func handleLabels(request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(Labels(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal labels: %w", err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
