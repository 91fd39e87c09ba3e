package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/marcelocantos/invoke/internal/config"
	"github.com/marcelocantos/invoke/internal/pipeline"
)

// IO bundles the launcher's own standard streams.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Execute runs invoke with args (excluding the program name) and returns
// the process exit code.
func Execute(ctx context.Context, version string, args []string, stdio IO) int {
	code := 0
	root := newRootCmd(ctx, version, stdio, &code)
	if args == nil {
		args = []string{}
	}
	if len(args) > 0 && (args[0] == cobra.ShellCompRequestCmd || args[0] == cobra.ShellCompNoDescRequestCmd) {
		// cobra resolves these names to its hidden completion commands;
		// behind -- they reach pipeline.Parse as the main command.
		args = append([]string{pipeline.OptEnd}, args...)
	}
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stdio.Err, "invoke: %v\n", err)
		return 1
	}
	return code
}

// newRootCmd builds the command. Flag parsing is left to pipeline.Parse:
// --pipe takes a variable number of tokens, which pflag cannot express.
func newRootCmd(ctx context.Context, version string, stdio IO, code *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:                "invoke [options] <command> [args...] [--pipe <command> [args...]]...",
		Short:              "Run a pipeline of commands without a shell",
		Long:               usage,
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		CompletionOptions:  cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				switch args[0] {
				case "--version":
					fmt.Fprintf(cmd.OutOrStdout(), "invoke %s\n", version)
					return nil
				case "--audit":
					cfg, err := config.Load()
					if err != nil {
						*code = 1
						fmt.Fprintf(stdio.Err, "invoke: config: %v\n", err)
						return nil
					}
					*code = RunAudit(cmd.OutOrStdout(), cfg.Audit.Path, args[1:])
					return nil
				}
			}

			spec, err := pipeline.Parse(args)
			if errors.Is(err, pipeline.ErrHelp) {
				return cmd.Help()
			}
			if err != nil {
				*code = resolveError(stdio.Err, err, true)
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				*code = 1
				fmt.Fprintf(stdio.Err, "invoke: config: %v\n", err)
				return nil
			}
			logger := slog.New(slog.NewTextHandler(stdio.Err, &slog.HandlerOptions{Level: cfg.Level()}))
			if p := cfg.Path(); p != "" {
				logger.Debug("config loaded", "path", p)
			}

			*code = RunPipeline(ctx, cfg, logger, spec, stdio)
			return nil
		},
	}
	cmd.SetIn(stdio.In)
	cmd.SetOut(stdio.Out)
	cmd.SetErr(stdio.Err)
	cmd.SetHelpTemplate("{{.Long}}")
	return cmd
}
