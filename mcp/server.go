// Package mcp exposes the orchestration pipeline as a Model Context Protocol
// server, so MCP-capable clients can drive it as a generate_response tool.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/competeiq/tripartite/agent"
	"github.com/competeiq/tripartite/orchestrator"
)

// Version reported in the MCP handshake.
const Version = "0.1.0"

// NewServer builds an MCP server around the given orchestrator.
func NewServer(name string, orch *orchestrator.Orchestrator) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: Version,
		Title:   "tripartite response pipeline",
	}, nil)

	addGenerateTool(server, orch)
	addAgentLister(server)

	return server
}

// Run serves over stdio until the context ends.
func Run(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

func addGenerateTool(server *mcp.Server, orch *orchestrator.Orchestrator) {
	type args struct {
		UserID        string `json:"userId" jsonschema:"Authenticated user the request is billed to"`
		Message       string `json:"message" jsonschema:"The user's question or instruction"`
		AgentType     string `json:"agentType" jsonschema:"Persona identifier: clipogino, cdv, cir, cia, research-engine, enhanced-content-generator"`
		CompanyName   string `json:"companyName,omitempty" jsonschema:"Optional business context: company under analysis"`
		Industry      string `json:"industry,omitempty" jsonschema:"Optional business context: industry segment"`
		SearchEnabled bool   `json:"searchEnabled,omitempty" jsonschema:"Allow the live web-search branch for search-capable personas"`
		UseTripartite bool   `json:"useTripartiteFlow,omitempty" jsonschema:"Force the search-generate-validate flow regardless of persona"`
		Model         string `json:"model,omitempty" jsonschema:"Optional model override"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_response",
		Description: "Generate a grounded AI response: reserves credits, optionally fetches live web evidence, invokes the model, and validates groundedness",
	}, func(ctx context.Context, req *mcp.CallToolRequest, a args) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(a.UserID) == "" {
			return nil, nil, fmt.Errorf("userId is required")
		}

		result, err := orch.Generate(ctx, orchestrator.Request{
			UserID:    a.UserID,
			Message:   a.Message,
			AgentType: a.AgentType,
			Session: agent.SessionContext{
				CompanyName: a.CompanyName,
				Industry:    a.Industry,
			},
			SearchEnabled: a.SearchEnabled,
			UseTripartite: a.UseTripartite,
			Model:         a.Model,
		})
		if err != nil {
			return nil, nil, err
		}

		payload, err := json.Marshal(result)
		if err != nil {
			return nil, nil, fmt.Errorf("encode result: %w", err)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: string(payload)},
			},
		}, result, nil
	})
}

func addAgentLister(server *mcp.Server) {
	type args struct{}

	agents := []string{"clipogino", "cdv", "cir", "cia", "research-engine", "enhanced-content-generator"}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_agents",
		Description: "List the persona identifiers accepted by generate_response",
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ args) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: strings.Join(agents, ", ")},
			},
		}, nil, nil
	})
}
