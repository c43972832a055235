package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/brendan.keane/svcbase/internal/cli"
	"github.com/brendan.keane/svcbase/internal/config"
	"github.com/brendan.keane/svcbase/internal/errors"
	"github.com/brendan.keane/svcbase/internal/logger"
)

func main() {
	root, app := newRootCmd(os.Stderr)
	if err := root.Execute(); err != nil {
		errors.PresentError(app.logger, err)
		app.logger.Debug().Fields(errors.DebugInfo(err)).Msg("error details")
		fmt.Fprintf(os.Stderr, "Error: %s\n", errors.UserMessage(err))
		os.Exit(1)
	}
}

// app carries the logger built once flags are parsed
type app struct {
	logger zerolog.Logger
	stderr io.Writer
}

func newRootCmd(stderr io.Writer) (*cobra.Command, *app) {
	a := &app{logger: zerolog.Nop(), stderr: stderr}

	root := &cobra.Command{
		Use:   "svcbase",
		Short: "Call controller actions of remote HTTP services",
		Long: `svcbase calls the actions of a remote service controller: POST and GET with
typed JSON results, streaming downloads and multipart uploads, and an MCP server
exposing the same calls to agents.

Targets come from --base/--controller or a named entry of services.yml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// __complete parses no flags; completions read them from the target command
			if cmd.Name() == cobra.ShellCompRequestCmd || cmd.Name() == cobra.ShellCompNoDescRequestCmd {
				return nil
			}
			cfg, err := config.LoadFromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			a.logger = logger.SetupFromFlags(a.stderr, cfg.Verbose, cfg.Debug, cfg.LogFormat)
			a.logger.Debug().
				Str("base", cfg.Base).
				Str("controller", cfg.Controller).
				Str("service", cfg.Service).
				Msg("configuration loaded")
			cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
			return nil
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:               "post ACTION",
			Short:             "POST to an action; non-200 answers fail with the status name",
			Args:              cobra.ExactArgs(1),
			ValidArgsFunction: cli.ActionCompletion(http.MethodPost),
			RunE: func(cmd *cobra.Command, args []string) error {
				return cli.NewCallHandler(a.logger).Post(cmd, args)
			},
		},
		&cobra.Command{
			Use:               "get ACTION",
			Short:             "GET an action; the body is decoded whatever the status",
			Args:              cobra.ExactArgs(1),
			ValidArgsFunction: cli.ActionCompletion(http.MethodGet),
			RunE: func(cmd *cobra.Command, args []string) error {
				return cli.NewCallHandler(a.logger).Get(cmd, args)
			},
		},
		downloadCmd(a),
		&cobra.Command{
			Use:   "upload URL FILE",
			Short: "Stream FILE to URL as a multipart/form-data part named \"file\"",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return cli.NewStreamHandler(a.logger).Upload(cmd, args)
			},
		},
		&cobra.Command{
			Use:               "actions [ACTION]",
			Short:             "List the controller's actions from the OpenAPI document",
			Args:              cobra.MaximumNArgs(1),
			ValidArgsFunction: cli.ActionCompletion("*"),
			RunE: func(cmd *cobra.Command, args []string) error {
				return cli.NewActionsHandler(a.logger).Execute(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "mcp",
			Short: "Serve the configured service as MCP tools over stdio",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return cli.NewMCPHandler(a.logger).Execute(cmd, args)
			},
		},
		completionCmd(),
	)

	return root, a
}

func downloadCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "download ACTION|URL",
		Short:             "Stream an action or absolute URL to stdout or a file",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: cli.ActionCompletion(http.MethodGet),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NewStreamHandler(a.logger).Download(cmd, args)
		},
	}
	cmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
	return cmd
}

func completionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate completion script",
		Long: `To load completions:

Bash:

  $ source <(svcbase completion bash)

Zsh:

  $ source <(svcbase completion zsh)

Fish:

  $ svcbase completion fish | source

PowerShell:

  PS> svcbase completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		PersistentPreRunE:     func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}
