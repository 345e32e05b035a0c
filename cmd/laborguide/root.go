package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/danielpatrickdp/laborguide/internal/config"
)

type globalOptions struct {
	ConfigPath string
	LogLevel   string
}

func NewRootCmd() *cobra.Command {
	options := globalOptions{}
	cmd := &cobra.Command{
		Use:           "laborguide",
		Short:         "Step-by-step emergency childbirth guidance",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			fs := getFileSystem(cmd.Context())
			cfg, err := config.Load(fs, options.ConfigPath, nil)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				if _, err := config.ParseLevel(options.LogLevel); err != nil {
					return err
				}
				cfg.LogLevel = options.LogLevel
			}

			slog.SetDefault(slog.New(slog.NewJSONHandler(setupLogSink(cfg, cmd.ErrOrStderr()), &slog.HandlerOptions{
				Level: cfg.Level(),
			})))
			cmd.SetContext(context.WithValue(cmd.Context(), ContextKeyConfig, cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&options.ConfigPath, "config", config.DefaultPath(), "path to the config file")
	cmd.PersistentFlags().StringVar(&options.LogLevel, "log-level", "", `log level: "debug", "info", "warn" or "error"`)

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewInspectCmd())
	cmd.AddCommand(NewReplayCmd())
	cmd.AddCommand(NewExportFixtureCmd())
	cmd.AddCommand(NewEndCmd())
	return cmd
}

// setupLogSink writes to the rotating log file when one is configured, and to
// stderr otherwise.
func setupLogSink(cfg config.Config, stderr io.Writer) io.Writer {
	if cfg.LogFile == "" {
		return stderr
	}
	return &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    10,
		MaxAge:     14,
		MaxBackups: 3,
		Compress:   true,
	}
}
