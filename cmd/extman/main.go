package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"extman/internal/bootstrap"
	extensionin "extman/internal/modules/extension/adapter/in"
	extensiondto "extman/internal/modules/extension/dto"
	"extman/internal/platform/config"
	"extman/internal/ui/theme"
)

type rootOptions struct {
	home     string
	file     string
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "extman",
		Short:         "Manage and plan agent extensions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.home, "home", "", "extman home directory (default: user config dir)")
	root.PersistentFlags().StringVar(&opts.file, "file", "", "extensions file, .yaml or .toml (default: <home>/extensions.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel, "log level: trace|debug|info|warn|error")

	root.AddCommand(newListCmd(opts))
	root.AddCommand(newShowCmd(opts))
	root.AddCommand(newAddCmd(opts))
	root.AddCommand(newRemoveCmd(opts))
	root.AddCommand(newToggleCmd(opts, "enable", true))
	root.AddCommand(newToggleCmd(opts, "disable", false))
	root.AddCommand(newPlanCmd(opts))
	root.AddCommand(newPlanAllCmd(opts))
	root.AddCommand(newKeyCmd(opts))
	root.AddCommand(newEnvCmd(opts))
	root.AddCommand(newReindexCmd(opts))
	root.AddCommand(newServeCmd(opts))
	return root
}

func loadApp(opts *rootOptions) (*bootstrap.App, error) {
	home := opts.home
	if strings.TrimSpace(home) == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home: %w", err)
		}
		home = filepath.Join(dir, "extman")
	}
	cfg, err := config.New(home, opts.file, opts.logLevel)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg)
}

// withApp opens the app for one command and closes it afterwards.
func withApp(opts *rootOptions, run func(*bootstrap.App) error) error {
	app, err := loadApp(opts)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()
	return run(app)
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured extensions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(app *bootstrap.App) error {
				items, err := app.ExtensionCLI.List(context.Background())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), items)
				}
				for _, item := range items {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", theme.Key.Render(item.Key), item.Type, theme.Status(item.Enabled), item.Summary)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show one extension and its stored descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *bootstrap.App) error {
				detail, err := app.ExtensionCLI.Show(context.Background(), args[0])
				if err != nil {
					return err
				}
				info := detail.Info
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintln(out, theme.Title.Render(info.Summary))
				_, _ = fmt.Fprintf(out, "key: %s\ntype: %s\nstatus: %s\n", info.Key, info.Type, theme.Status(info.Enabled))
				if info.Description != "" {
					_, _ = fmt.Fprintf(out, "description: %s\n", info.Description)
				}
				if info.TimeoutSeconds != nil {
					_, _ = fmt.Fprintf(out, "timeout: %ds\n", *info.TimeoutSeconds)
				}
				if len(info.EnvNames) > 0 {
					_, _ = fmt.Fprintf(out, "envs: %s\n", strings.Join(info.EnvNames, ", "))
				}
				if len(info.EnvKeys) > 0 {
					_, _ = fmt.Fprintf(out, "env_keys: %s\n", strings.Join(info.EnvKeys, ", "))
				}
				_, _ = fmt.Fprintln(out, theme.Muted.Render(detail.ConfigJSON))
				return nil
			})
		},
	}
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	add := &cobra.Command{Use: "add", Short: "Add or replace an extension"}

	var description string
	var timeout uint64
	var envPairs, envKeys []string
	var disabled, replace bool
	common := func() (extensiondto.AddInput, error) {
		envs, err := extensionin.ParsePairs(envPairs)
		if err != nil {
			return extensiondto.AddInput{}, err
		}
		return extensiondto.AddInput{
			Description: description,
			Timeout:     timeout,
			Envs:        envs,
			EnvKeys:     envKeys,
			Enabled:     !disabled,
			Replace:     replace,
		}, nil
	}
	bindCommon := func(cmd *cobra.Command, withEnv bool) {
		cmd.Flags().StringVar(&description, "description", "", "description")
		cmd.Flags().Uint64Var(&timeout, "timeout", config.DefaultExtensionTimeout, "timeout in seconds")
		cmd.Flags().BoolVar(&disabled, "disabled", false, "store the extension disabled")
		cmd.Flags().BoolVar(&replace, "replace", false, "replace an extension with the same key")
		if withEnv {
			cmd.Flags().StringArrayVar(&envPairs, "env", nil, "environment override KEY=VALUE (repeatable)")
			cmd.Flags().StringSliceVar(&envKeys, "env-key", nil, "environment variable resolved at activation (repeatable)")
		}
	}
	report := func(cmd *cobra.Command, info extensiondto.ExtensionInfo) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "saved %s key=%s\n", info.Summary, theme.Key.Render(info.Key))
	}

	stdio := &cobra.Command{
		Use:   "stdio <name> <cmd> [args...]",
		Short: "Add a child-process extension",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := common()
			if err != nil {
				return err
			}
			input.Name = args[0]
			return withApp(opts, func(app *bootstrap.App) error {
				info, err := app.ExtensionCLI.AddStdio(context.Background(), input, args[1], args[2:])
				if err != nil {
					return err
				}
				report(cmd, info)
				return nil
			})
		},
	}
	bindCommon(stdio, true)

	sse := &cobra.Command{
		Use:   "sse <name> <uri>",
		Short: "Add a server-sent events extension",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := common()
			if err != nil {
				return err
			}
			input.Name = args[0]
			return withApp(opts, func(app *bootstrap.App) error {
				info, err := app.ExtensionCLI.AddSSE(context.Background(), input, args[1])
				if err != nil {
					return err
				}
				report(cmd, info)
				return nil
			})
		},
	}
	bindCommon(sse, true)

	var headerPairs []string
	http := &cobra.Command{
		Use:   "http <name> <uri>",
		Short: "Add a streamable HTTP extension",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := common()
			if err != nil {
				return err
			}
			headers, err := extensionin.ParsePairs(headerPairs)
			if err != nil {
				return err
			}
			input.Name = args[0]
			return withApp(opts, func(app *bootstrap.App) error {
				info, err := app.ExtensionCLI.AddStreamableHTTP(context.Background(), input, args[1], headers)
				if err != nil {
					return err
				}
				report(cmd, info)
				return nil
			})
		},
	}
	bindCommon(http, true)
	http.Flags().StringArrayVar(&headerPairs, "header", nil, "request header NAME=VALUE (repeatable)")

	var displayName string
	builtin := &cobra.Command{
		Use:   "builtin <name>",
		Short: "Add an extension compiled into the host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := common()
			if err != nil {
				return err
			}
			input.Name = args[0]
			return withApp(opts, func(app *bootstrap.App) error {
				info, err := app.ExtensionCLI.AddBuiltin(context.Background(), input, displayName)
				if err != nil {
					return err
				}
				report(cmd, info)
				return nil
			})
		},
	}
	bindCommon(builtin, false)
	builtin.Flags().StringVar(&displayName, "display-name", "", "display name")

	var code, codeFile string
	var deps []string
	python := &cobra.Command{
		Use:   "python <name>",
		Short: "Add an inline Python extension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := common()
			if err != nil {
				return err
			}
			source := code
			if codeFile != "" {
				b, err := os.ReadFile(codeFile)
				if err != nil {
					return fmt.Errorf("read code file: %w", err)
				}
				source = string(b)
			}
			if strings.TrimSpace(source) == "" {
				return fmt.Errorf("--code or --code-file is required")
			}
			input.Name = args[0]
			return withApp(opts, func(app *bootstrap.App) error {
				info, err := app.ExtensionCLI.AddInlinePython(context.Background(), input, source, deps)
				if err != nil {
					return err
				}
				report(cmd, info)
				return nil
			})
		},
	}
	bindCommon(python, false)
	python.Flags().StringVar(&code, "code", "", "python source")
	python.Flags().StringVar(&codeFile, "code-file", "", "read python source from a file")
	python.Flags().StringSliceVar(&deps, "dep", nil, "python package dependency (repeatable)")

	add.AddCommand(stdio, sse, http, builtin, python)
	return add
}

func newRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an extension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *bootstrap.App) error {
				if err := app.ExtensionCLI.Remove(context.Background(), args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", app.ExtensionCLI.Key(args[0]))
				return nil
			})
		},
	}
}

func newToggleCmd(opts *rootOptions, use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " an extension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *bootstrap.App) error {
				if err := app.ExtensionCLI.SetEnabled(context.Background(), args[0], enabled); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", app.ExtensionCLI.Key(args[0]), theme.Status(enabled))
				return nil
			})
		},
	}
}

func newPlanCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <name>",
		Short: "Run activation checks and print the launch plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *bootstrap.App) error {
				plan, err := app.ExtensionCLI.Plan(context.Background(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), plan)
			})
		},
	}
}

func newPlanAllCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan-all",
		Short: "Plan every enabled extension",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(app *bootstrap.App) error {
				plans, err := app.ExtensionCLI.PlanAll(context.Background())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), plans)
			})
		},
	}
}

func newKeyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "key <name>",
		Short: "Print the normalized key for a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *bootstrap.App) error {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), app.ExtensionCLI.Key(args[0]))
				return nil
			})
		},
	}
}

func newEnvCmd(opts *rootOptions) *cobra.Command {
	env := &cobra.Command{Use: "env", Short: "Environment override checks"}

	env.AddCommand(&cobra.Command{
		Use:   "check KEY=VALUE...",
		Short: "Report which overrides would be dropped",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *bootstrap.App) error {
				result, err := app.ExtensionCLI.CheckEnv(context.Background(), args)
				if err != nil {
					return err
				}
				for _, key := range result.Allowed {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", key, theme.On.Render("allowed"))
				}
				for _, key := range result.Rejected {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", key, theme.Hot.Render("rejected"))
				}
				return nil
			})
		},
	})

	env.AddCommand(&cobra.Command{
		Use:   "denylist",
		Short: "Print the protected environment variable names",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(app *bootstrap.App) error {
				for _, key := range app.ExtensionCLI.Denylist(context.Background()) {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), key)
				}
				return nil
			})
		},
	})
	return env
}

func newReindexCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the SQLite extension index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(app *bootstrap.App) error {
				out, err := app.ExtensionCLI.Reindex(context.Background())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "indexed %d extensions\n", out.Indexed)
				return nil
			})
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	var asPlugin bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the extension registry over gRPC",
		RunE: func(_ *cobra.Command, _ []string) error {
			if asPlugin {
				return withApp(opts, func(app *bootstrap.App) error {
					bootstrap.ServePlugin(app)
					return nil
				})
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApp(opts, func(app *bootstrap.App) error {
				return bootstrap.Serve(ctx, addr, app)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7766", "listen address")
	cmd.Flags().BoolVar(&asPlugin, "plugin", false, "serve as a go-plugin over stdio instead of listening on --addr")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
