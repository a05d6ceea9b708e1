package cmd

import (
	"linkctl/internal/cli"

	"github.com/spf13/cobra"
)

var (
	linksOutputFormat string
	linksQuiet        bool
	linksEndpoint     string

	linkTarget       string
	linkEnvName      string
	linkProjectURL   string
	linkParentPFEURL string
	linkNewEnvName   string
)

// linksCmd represents the links command
var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Manage project links",
	Long: `Manage the links of a project on a running linkctl server.

Available commands:
  list     - List the links of a project
  add      - Link a project to a target project
  update   - Rename the environment variable of a link
  delete   - Remove a link

Note: the server must be running with the MCP link tools enabled
(use 'linkctl serve' with mcp.enabled set in the configuration).`,
}

var linksListCmd = &cobra.Command{
	Use:   "list <project-id>",
	Short: "List the links of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeLinkTool(cmd, "link_list", map[string]interface{}{
			"project_id": args[0],
		})
	},
}

var linksAddCmd = &cobra.Command{
	Use:   "add <project-id>",
	Short: "Link a project to a target project",
	Long: `Link a project to a target project. The target's address is exposed to
the project as the environment variable given by --env, and the project is
restarted or rebuilt to pick it up.

Targets managed by another control plane need --parent-url and --url.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		toolArgs := map[string]interface{}{
			"project_id":        args[0],
			"target_project_id": linkTarget,
			"env_name":          linkEnvName,
		}
		if linkProjectURL != "" {
			toolArgs["project_url"] = linkProjectURL
		}
		if linkParentPFEURL != "" {
			toolArgs["parent_pfe_url"] = linkParentPFEURL
		}
		return executeLinkTool(cmd, "link_add", toolArgs)
	},
}

var linksUpdateCmd = &cobra.Command{
	Use:   "update <project-id> <env-name>",
	Short: "Rename the environment variable of a link",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeLinkTool(cmd, "link_update", map[string]interface{}{
			"project_id":       args[0],
			"env_name":         args[1],
			"updated_env_name": linkNewEnvName,
		})
	},
}

var linksDeleteCmd = &cobra.Command{
	Use:   "delete <project-id> <env-name>",
	Short: "Remove a link",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeLinkTool(cmd, "link_delete", map[string]interface{}{
			"project_id": args[0],
			"env_name":   args[1],
		})
	},
}

func init() {
	rootCmd.AddCommand(linksCmd)

	linksCmd.AddCommand(linksListCmd)
	linksCmd.AddCommand(linksAddCmd)
	linksCmd.AddCommand(linksUpdateCmd)
	linksCmd.AddCommand(linksDeleteCmd)

	linksCmd.PersistentFlags().StringVarP(&linksOutputFormat, "output", "o", "table", "Output format (table, json, yaml)")
	linksCmd.PersistentFlags().BoolVarP(&linksQuiet, "quiet", "q", false, "Suppress non-essential output")
	linksCmd.PersistentFlags().StringVar(&linksEndpoint, "endpoint", "", "MCP SSE endpoint of the server (default from configuration)")

	linksAddCmd.Flags().StringVar(&linkTarget, "target", "", "ID of the project to depend on")
	linksAddCmd.Flags().StringVar(&linkEnvName, "env", "", "Environment variable carrying the target's address")
	linksAddCmd.Flags().StringVar(&linkProjectURL, "url", "", "Address of a target managed by another control plane")
	linksAddCmd.Flags().StringVar(&linkParentPFEURL, "parent-url", "", "Control plane managing the target")
	_ = linksAddCmd.MarkFlagRequired("target")
	_ = linksAddCmd.MarkFlagRequired("env")

	linksUpdateCmd.Flags().StringVar(&linkNewEnvName, "new-env", "", "New environment variable name")
	_ = linksUpdateCmd.MarkFlagRequired("new-env")
}

func executeLinkTool(cmd *cobra.Command, tool string, args map[string]interface{}) error {
	options := cli.ExecutorOptions{
		Format: cli.OutputFormat(linksOutputFormat),
		Quiet:  linksQuiet,
		Out:    cmd.OutOrStdout(),
	}

	var executor *cli.ToolExecutor
	if linksEndpoint != "" {
		executor = cli.NewToolExecutorWithClient(cli.NewCLIClientWithEndpoint(linksEndpoint), options)
	} else {
		var err error
		executor, err = cli.NewToolExecutor(options)
		if err != nil {
			return err
		}
	}
	defer executor.Close()

	ctx := cmd.Context()
	if err := executor.Connect(ctx); err != nil {
		return err
	}
	return executor.Execute(ctx, tool, args)
}
