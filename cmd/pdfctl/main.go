// pdfctl is the command line client for a running pdftoolbox server.
// It lists tools, runs them on local PDFs (synchronously or as tracked
// background jobs) and downloads the saved results.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/drummonds/pdftoolbox/client"
	"github.com/drummonds/pdftoolbox/internal/build"
)

// serverURL is shared by every subcommand through the persistent flag.
var serverURL string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pdfctl",
		Short: "Command line client for a pdftoolbox server",
		Long: `pdfctl drives a running pdftoolbox server from the command line.

Examples:
  # List the available tools
  pdfctl tools list

  # Count pages
  pdfctl invoke pdf_page_counter report.pdf

  # Extract a fixed cover plus a dynamic range, download the output
  pdfctl invoke pdf_multi_pages_extractor report.pdf \
      --param fixed_pages=1-2 --param dynamic_pages=4,5 --out ./out

  # Split in the background and watch the job
  pdfctl invoke pdf_splitter big.pdf --async
  pdfctl jobs get <job-id>`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultServer := os.Getenv("PDFTOOLBOX_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8000"
	}
	root.PersistentFlags().StringVarP(&serverURL, "server", "s", defaultServer,
		"pdftoolbox server URL (or set PDFTOOLBOX_SERVER)")

	root.AddCommand(
		newVersionCmd(),
		newToolsCmd(),
		newInvokeCmd(),
		newJobsCmd(),
		newResultsCmd(),
		newAboutCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pdfctl version %s\n", build.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  Git commit: %s\n", build.Commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  Build date: %s\n", build.Date)
		},
	}
}

func newToolsCmd() *cobra.Command {
	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the server's tool catalog",
	}

	toolsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the registered tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := client.New(serverURL).ListTools()
			if err != nil {
				return err
			}
			for _, spec := range specs {
				fmt.Fprintf(cmd.OutOrStdout(), "%-30s %s\n", spec.Name, spec.Label.EnUS)
			}
			return nil
		},
	})

	toolsCmd.AddCommand(&cobra.Command{
		Use:   "show <tool>",
		Short: "Show one tool's parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := client.New(serverURL).GetTool(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s - %s\n", spec.Name, spec.Label.EnUS)
			fmt.Fprintf(out, "%s\n\n", spec.Description.EnUS)
			for _, param := range spec.Params {
				required := "optional"
				if param.Required {
					required = "required"
				}
				fmt.Fprintf(out, "  %-16s %-8s %-9s %s", param.Name, param.Type, required, param.Description.EnUS)
				if param.Default != nil {
					fmt.Fprintf(out, " (default: %v)", param.Default)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	})

	return toolsCmd
}

// parseParams turns repeated --param key=value flags into the form
// field map an invocation posts.
func parseParams(pairs []string) (map[string]string, error) {
	params := make(map[string]string)
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}
		params[key] = value
	}
	return params, nil
}

func newInvokeCmd() *cobra.Command {
	var paramFlags []string
	var async bool
	var outDir string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "invoke <tool> <file>",
		Short: "Run a tool on a local PDF",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolName, filePath := args[0], args[1]
			params, err := parseParams(paramFlags)
			if err != nil {
				return err
			}

			c := client.New(serverURL)
			c.HTTPClient.Timeout = timeout
			out := cmd.OutOrStdout()

			if async {
				jobID, err := c.StartJob(toolName, filePath, params)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Job started: %s\n", jobID)
				fmt.Fprintf(out, "Poll it with: pdfctl jobs get %s\n", jobID)
				return nil
			}

			result, err := c.Invoke(toolName, filePath, params)
			if err != nil {
				return err
			}
			if result.Status == "failed" {
				return fmt.Errorf("%s failed: %s", toolName, result.Error)
			}

			printInvokeResult(out, result)

			if outDir != "" {
				for _, saved := range result.Results {
					path, err := c.DownloadResult(result.Invocation, saved.Name, outDir)
					if err != nil {
						return fmt.Errorf("failed to download %s: %w", saved.Name, err)
					}
					fmt.Fprintf(out, "Downloaded %s\n", path)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&paramFlags, "param", "p", nil, "tool parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&async, "async", false, "run as a background job instead of waiting")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "download result files into this directory")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "how long to wait for a synchronous run")
	return cmd
}

// printInvokeResult writes the message stream of a finished run in
// emission order.
func printInvokeResult(out io.Writer, result *client.InvokeResult) {
	fmt.Fprintf(out, "Invocation %s (%s, %d pages, %dms)\n",
		result.Invocation, result.Status, result.PageCount, result.DurationMS)
	for _, msg := range result.Messages {
		switch msg.Kind {
		case "text":
			fmt.Fprintf(out, "  %s\n", msg.Text)
		case "json":
			fmt.Fprintf(out, "  %s\n", string(msg.JSON))
		case "blob":
			fmt.Fprintf(out, "  [file] %s\n", msg.File)
		}
	}
}

func newJobsCmd() *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect background jobs",
	}

	var wait bool
	getCmd := &cobra.Command{
		Use:   "get <job-id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverURL)
			job, err := c.GetJob(args[0])
			if err != nil {
				return err
			}
			if wait {
				job, err = c.WaitForJob(args[0], 500*time.Millisecond, 10*time.Minute)
				if err != nil {
					return err
				}
			}
			printJob(cmd, job)
			return nil
		},
	}
	getCmd.Flags().BoolVar(&wait, "wait", false, "poll until the job finishes")
	jobsCmd.AddCommand(getCmd)

	return jobsCmd
}

func printJob(cmd *cobra.Command, job *client.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job %s\n", job.ID)
	fmt.Fprintf(out, "  Type:     %s\n", job.Type)
	fmt.Fprintf(out, "  Status:   %s (%d%%)\n", job.Status, job.Progress)
	if job.CurrentStep != "" {
		fmt.Fprintf(out, "  Step:     %s\n", job.CurrentStep)
	}
	if job.Error != "" {
		fmt.Fprintf(out, "  Error:    %s\n", job.Error)
	}
	if job.Result != "" {
		fmt.Fprintf(out, "  Result:   %s\n", job.Result)
	}
}

func newResultsCmd() *cobra.Command {
	resultsCmd := &cobra.Command{
		Use:   "results",
		Short: "Download saved invocation results",
	}

	var outDir string
	fetchCmd := &cobra.Command{
		Use:   "fetch <invocation-id>",
		Short: "Download every saved file of one invocation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverURL)
			invocation, err := c.GetInvocation(args[0])
			if err != nil {
				return err
			}

			var saved []client.Result
			if invocation.Results != "" {
				if err := json.Unmarshal([]byte(invocation.Results), &saved); err != nil {
					return fmt.Errorf("failed to decode result descriptors: %w", err)
				}
			}
			if len(saved) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Invocation has no saved results")
				return nil
			}

			for _, file := range saved {
				path, err := c.DownloadResult(args[0], file.Name, outDir)
				if err != nil {
					return fmt.Errorf("failed to download %s: %w", file.Name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %s\n", path)
			}
			return nil
		},
	}
	fetchCmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to download into")
	resultsCmd.AddCommand(fetchCmd)

	return resultsCmd
}

func newAboutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "about",
		Short: "Show the server's version and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			about, err := client.New(serverURL).About()
			if err != nil {
				return err
			}
			pretty, err := json.MarshalIndent(about, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
			return nil
		},
	}
}
