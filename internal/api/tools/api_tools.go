package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"linkctl/internal/api"
	"linkctl/internal/links"
)

// LinkTools provides MCP tools backed by a LinkService.
type LinkTools struct {
	service *api.LinkService
}

// NewLinkTools creates link tools for service.
func NewLinkTools(service *api.LinkService) *LinkTools {
	return &LinkTools{service: service}
}

// NewServer returns an MCP server exposing every link tool.
func NewServer(service *api.LinkService, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"linkctl",
		version,
		server.WithToolCapabilities(true),
	)
	s.AddTools(NewLinkTools(service).ServerTools()...)
	return s
}

// GetTools returns the tool definitions.
func (lt *LinkTools) GetTools() []mcp.Tool {
	projectArg := mcp.WithString("project_id",
		mcp.Required(),
		mcp.Description("ID of the project owning the links"),
	)
	return []mcp.Tool{
		mcp.NewTool("link_list",
			mcp.WithDescription("List the links of a project"),
			projectArg,
		),
		mcp.NewTool("link_add",
			mcp.WithDescription("Link a project to a target project, exposing the target's address as an environment variable"),
			projectArg,
			mcp.WithString("target_project_id",
				mcp.Required(),
				mcp.Description("ID of the project to depend on"),
			),
			mcp.WithString("env_name",
				mcp.Required(),
				mcp.Description("Environment variable carrying the target's address"),
			),
			mcp.WithString("parent_pfe_url",
				mcp.Description("Control plane managing the target, for targets managed elsewhere"),
			),
			mcp.WithString("project_url",
				mcp.Description("Address of a target managed elsewhere"),
			),
		),
		mcp.NewTool("link_update",
			mcp.WithDescription("Rename the environment variable of a link"),
			projectArg,
			mcp.WithString("env_name",
				mcp.Required(),
				mcp.Description("Current environment variable name"),
			),
			mcp.WithString("updated_env_name",
				mcp.Description("New environment variable name"),
			),
		),
		mcp.NewTool("link_delete",
			mcp.WithDescription("Remove a link; the project is rebuilt without the variable"),
			projectArg,
			mcp.WithString("env_name",
				mcp.Required(),
				mcp.Description("Environment variable name of the link"),
			),
		),
	}
}

// ServerTools pairs each tool with its handler.
func (lt *LinkTools) ServerTools() []server.ServerTool {
	handlers := map[string]server.ToolHandlerFunc{
		"link_list":   lt.HandleLinkList,
		"link_add":    lt.HandleLinkAdd,
		"link_update": lt.HandleLinkUpdate,
		"link_delete": lt.HandleLinkDelete,
	}
	var out []server.ServerTool
	for _, tool := range lt.GetTools() {
		out = append(out, server.ServerTool{Tool: tool, Handler: handlers[tool.Name]})
	}
	return out
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	resultJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(string(resultJSON)),
		},
	}, nil
}

func errorResult(action string, err error) *mcp.CallToolResult {
	var linkErr *links.Error
	if errors.As(err, &linkErr) {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: [%s] %s", action, linkErr.Code, linkErr.Error()))
	}
	return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err))
}

// HandleLinkList handles the link_list tool call
func (lt *LinkTools) HandleLinkList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError("project_id is required"), nil
	}

	all, err := lt.service.List(projectID)
	if err != nil {
		return errorResult("list links", err), nil
	}
	return jsonResult(map[string]interface{}{
		"links": all,
		"total": len(all),
	})
}

// HandleLinkAdd handles the link_add tool call
func (lt *LinkTools) HandleLinkAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError("project_id is required"), nil
	}
	target, err := req.RequireString("target_project_id")
	if err != nil {
		return mcp.NewToolResultError("target_project_id is required"), nil
	}
	envName, err := req.RequireString("env_name")
	if err != nil {
		return mcp.NewToolResultError("env_name is required"), nil
	}

	link, err := lt.service.Add(ctx, projectID, api.AddLinkRequest{
		TargetProjectID: target,
		EnvName:         envName,
		ParentPFEURL:    req.GetString("parent_pfe_url", ""),
		ProjectURL:      req.GetString("project_url", ""),
	})
	if err != nil {
		return errorResult("add link", err), nil
	}
	return jsonResult(link)
}

// HandleLinkUpdate handles the link_update tool call
func (lt *LinkTools) HandleLinkUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError("project_id is required"), nil
	}
	envName, err := req.RequireString("env_name")
	if err != nil {
		return mcp.NewToolResultError("env_name is required"), nil
	}

	link, err := lt.service.Update(projectID, api.UpdateLinkRequest{
		EnvName:        envName,
		UpdatedEnvName: req.GetString("updated_env_name", ""),
	})
	if err != nil {
		return errorResult("update link", err), nil
	}
	return jsonResult(link)
}

// HandleLinkDelete handles the link_delete tool call
func (lt *LinkTools) HandleLinkDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError("project_id is required"), nil
	}
	envName, err := req.RequireString("env_name")
	if err != nil {
		return mcp.NewToolResultError("env_name is required"), nil
	}

	if _, err := lt.service.Delete(projectID, api.DeleteLinkRequest{EnvName: envName}); err != nil {
		return errorResult("delete link", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted link '%s' from project '%s'", envName, projectID)), nil
}
