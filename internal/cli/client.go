package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"linkctl/internal/config"
)

// CLIClient is a thin MCP client for the link tools of a running server.
type CLIClient struct {
	endpoint string
	client   client.MCPClient
	timeout  time.Duration
}

// DetectEndpoint returns the SSE endpoint of the MCP server configured in cfg.
func DetectEndpoint(cfg config.LinkctlConfig) (string, error) {
	if !cfg.MCP.Enabled {
		return "", fmt.Errorf("the MCP server is disabled; set mcp.enabled in the linkctl configuration")
	}
	return "http://" + net.JoinHostPort(cfg.MCP.Host, strconv.Itoa(cfg.MCP.Port)) + "/sse", nil
}

// NewCLIClient creates a client for the server described by the layered configuration.
func NewCLIClient() (*CLIClient, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load linkctl configuration: %w", err)
	}
	endpoint, err := DetectEndpoint(cfg)
	if err != nil {
		return nil, err
	}
	return NewCLIClientWithEndpoint(endpoint), nil
}

// NewCLIClientWithEndpoint creates a new CLI client with a specific endpoint
func NewCLIClientWithEndpoint(endpoint string) *CLIClient {
	return &CLIClient{
		endpoint: endpoint,
		timeout:  30 * time.Second,
	}
}

// newCLIClientWithTransport wraps an already started client.
func newCLIClientWithTransport(c client.MCPClient) *CLIClient {
	return &CLIClient{client: c, timeout: 30 * time.Second}
}

// Connect opens the SSE transport and performs the MCP handshake.
func (c *CLIClient) Connect(ctx context.Context) error {
	sseClient, err := client.NewSSEMCPClient(c.endpoint)
	if err != nil {
		return fmt.Errorf("failed to create SSE client for %s: %w", c.endpoint, err)
	}
	if err := sseClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to reach linkctl at %s (is 'linkctl serve' running?): %w", c.endpoint, err)
	}
	c.client = sseClient

	if err := c.initialize(ctx); err != nil {
		c.Close()
		return fmt.Errorf("initialization failed: %w", err)
	}
	return nil
}

// CallTool executes a tool and returns the result
func (c *CLIClient) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not connected")
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.client.CallTool(timeoutCtx, req)
	if err != nil {
		return nil, fmt.Errorf("tool call failed: %w", err)
	}
	return result, nil
}

// CallToolJSON executes a tool and decodes its text content into v.
func (c *CLIClient) CallToolJSON(ctx context.Context, name string, args map[string]interface{}, v interface{}) error {
	result, err := c.CallTool(ctx, name, args)
	if err != nil {
		return err
	}
	text := textOf(result)
	if result.IsError {
		return fmt.Errorf("%s", text)
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("unexpected %s response: %w", name, err)
	}
	return nil
}

// Close closes the connection
func (c *CLIClient) Close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func (c *CLIClient) initialize(ctx context.Context) error {
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = "2024-11-05"
	req.Params.ClientInfo = mcp.Implementation{
		Name:    "linkctl-cli",
		Version: "1.0.0",
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.client.Initialize(timeoutCtx, req)
	return err
}
