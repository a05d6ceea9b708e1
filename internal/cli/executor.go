package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format for CLI commands
type OutputFormat string

const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
)

// ExecutorOptions contains options for tool execution
type ExecutorOptions struct {
	Format OutputFormat
	Quiet  bool
	// Out receives formatted results; nil means stdout.
	Out io.Writer
}

// ToolExecutor runs link tools and renders their results.
type ToolExecutor struct {
	client  *CLIClient
	options ExecutorOptions
}

// NewToolExecutor creates a new tool executor
func NewToolExecutor(options ExecutorOptions) (*ToolExecutor, error) {
	client, err := NewCLIClient()
	if err != nil {
		return nil, err
	}
	return NewToolExecutorWithClient(client, options), nil
}

// NewToolExecutorWithClient creates an executor around an existing client.
func NewToolExecutorWithClient(client *CLIClient, options ExecutorOptions) *ToolExecutor {
	if options.Out == nil {
		options.Out = os.Stdout
	}
	if options.Format == "" {
		options.Format = OutputFormatTable
	}
	return &ToolExecutor{client: client, options: options}
}

// Connect establishes the connection to the server
func (e *ToolExecutor) Connect(ctx context.Context) error {
	return e.client.Connect(ctx)
}

// Close closes the connection
func (e *ToolExecutor) Close() error {
	return e.client.Close()
}

// Execute executes a tool and formats the output
func (e *ToolExecutor) Execute(ctx context.Context, toolName string, arguments map[string]interface{}) error {
	result, err := e.client.CallTool(ctx, toolName, arguments)
	if err != nil {
		return fmt.Errorf("failed to execute tool %s: %w", toolName, err)
	}
	if result.IsError {
		return fmt.Errorf("%s", textOf(result))
	}
	return e.formatOutput(result)
}

func textOf(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if textContent, ok := mcp.AsTextContent(content); ok {
			parts = append(parts, textContent.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func (e *ToolExecutor) formatOutput(result *mcp.CallToolResult) error {
	text := textOf(result)
	if text == "" {
		if !e.options.Quiet {
			fmt.Fprintln(e.options.Out, "No results")
		}
		return nil
	}

	switch e.options.Format {
	case OutputFormatJSON:
		fmt.Fprintln(e.options.Out, text)
		return nil
	case OutputFormatYAML:
		return e.outputYAML(text)
	case OutputFormatTable:
		return e.outputTable(text)
	default:
		return fmt.Errorf("unsupported output format: %s", e.options.Format)
	}
}

func (e *ToolExecutor) outputYAML(jsonData string) error {
	var data interface{}
	if err := json.Unmarshal([]byte(jsonData), &data); err != nil {
		// plain text results have no structure to convert
		fmt.Fprintln(e.options.Out, jsonData)
		return nil
	}
	yamlData, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to convert to YAML: %w", err)
	}
	fmt.Fprint(e.options.Out, string(yamlData))
	return nil
}

// linkColumns is the column order for link records.
var linkColumns = []string{"envName", "projectID", "projectName", "type", "projectURL"}

func (e *ToolExecutor) outputTable(jsonData string) error {
	var data interface{}
	if err := json.Unmarshal([]byte(jsonData), &data); err != nil {
		fmt.Fprintln(e.options.Out, jsonData)
		return nil
	}

	obj, ok := data.(map[string]interface{})
	if !ok {
		fmt.Fprintln(e.options.Out, jsonData)
		return nil
	}
	if items, ok := obj["links"].([]interface{}); ok {
		if err := e.formatLinkTable(items); err != nil {
			return err
		}
		if total, ok := obj["total"]; ok && !e.options.Quiet {
			fmt.Fprintf(e.options.Out, "\nTotal: %v links\n", total)
		}
		return nil
	}
	return e.formatKeyValueTable(obj)
}

func (e *ToolExecutor) formatLinkTable(items []interface{}) error {
	if len(items) == 0 {
		fmt.Fprintln(e.options.Out, "No links found")
		return nil
	}

	w := tabwriter.NewWriter(e.options.Out, 0, 0, 2, ' ', 0)
	headers := make([]string, len(linkColumns))
	for i, col := range linkColumns {
		headers[i] = strings.ToUpper(col)
	}
	fmt.Fprintln(w, strings.Join(headers, "\t"))

	for _, item := range items {
		row, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		cells := make([]string, len(linkColumns))
		for i, col := range linkColumns {
			cells[i] = formatCell(row[col])
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

func (e *ToolExecutor) formatKeyValueTable(data map[string]interface{}) error {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(e.options.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROPERTY\tVALUE")
	for _, key := range keys {
		fmt.Fprintf(w, "%s\t%s\n", key, formatCell(data[key]))
	}
	return w.Flush()
}

func formatCell(value interface{}) string {
	if value == nil {
		return "-"
	}
	s := fmt.Sprintf("%v", value)
	if s == "" {
		return "-"
	}
	return s
}
