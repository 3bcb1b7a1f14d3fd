package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mcp-servicenow/internal/server"
	"mcp-servicenow/pkg/config"
	"mcp-servicenow/pkg/logging"
)

// shutdownTimeout bounds how long in-flight calls get after a signal
const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(execute(context.Background(), os.Args[1:]))
}

// execute runs the root command and returns the process exit code
func execute(ctx context.Context, args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-servicenow",
		Short: "MCP server exposing ServiceNow ITSM operations as tools over stdio",
		Long: "mcp-servicenow speaks the Model Context Protocol on stdin and stdout.\n\n" +
			"ServiceNow credentials and the Gemini API key are read from the environment\n" +
			"or from the env file, which is watched and reloaded on change.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd)
		},
	}

	flags := cmd.Flags()
	flags.String(config.FlagLogLevel, config.DefaultLogLevel, "Logging level (DEBUG, INFO, WARN, ERROR)")
	flags.String(config.FlagLogFile, "", "Also append logs to this file")
	flags.String(config.FlagMetricsAddr, "", "Serve Prometheus metrics on this address, e.g. :9090")
	flags.String(config.FlagEnvFile, config.DefaultEnvFile, "Environment file to load and watch; empty disables it")

	return cmd
}

// run serves MCP on the command's input and output until the input closes or
// a termination signal arrives
func run(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	envFile, err := cmd.Flags().GetString(config.FlagEnvFile)
	if err != nil {
		return err
	}
	loader, err := config.NewLoader(cmd.Flags(), envFile)
	if err != nil {
		return err
	}

	// stdout carries the protocol; logs go to stderr
	loggingManager := logging.NewLoggingManagerWithWriter(cmd.ErrOrStderr())
	defer loggingManager.Close()
	logger := loggingManager.GetLogger("main")

	mcpServer, err := server.NewMCPServer(server.NewInjector(loader, loggingManager))
	if err != nil {
		logger.WithError(err).Error("Failed to initialize MCP server")
		return fmt.Errorf("initialize server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- mcpServer.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal, gracefully shutting down")
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.WithError(serveErr).Error("MCP server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := mcpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error during shutdown")
	}

	return serveErr
}
