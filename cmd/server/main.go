// Command server runs the game event detector and webhook notifier.
//
// Usage:
//
//	server                 run the service (same as "server serve")
//	server serve           run the service
//	server sign --secret S --file payload.json
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/preston-bernstein/game-events-service/internal/config"
	"github.com/preston-bernstein/game-events-service/internal/logging"
	"github.com/preston-bernstein/game-events-service/internal/server"
	"github.com/preston-bernstein/game-events-service/internal/webhooks"
)

const (
	appName    = "game-events-service"
	appVersion = "dev"
)

func main() {
	if os.Getenv("SKIP_SERVER_RUN") == "1" {
		return
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:          "server",
		Short:        "Detect game events and notify webhook subscribers",
		Version:      appVersion,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before reading the environment")

	root.AddCommand(serveCmd(&envFile))
	root.AddCommand(signCmd())
	return root
}

func serveCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the detector, dispatcher and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *envFile)
		},
	}
}

func runServe(parent context.Context, envFile string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := config.Load()
	logger := logging.NewLogger(logging.Config{
		Level:   os.Getenv("LOG_LEVEL"),
		Format:  os.Getenv("LOG_FORMAT"),
		Service: appName,
		Version: appVersion,
	})

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, logger)
	return srv.Run(ctx, stop)
}

func signCmd() *cobra.Command {
	var secret, file string
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the X-Webhook-Signature a receiver should expect for a payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("--secret is required")
			}
			body, err := readPayload(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), webhooks.Sign(secret, body))
			return err
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "Subscription secret")
	cmd.Flags().StringVar(&file, "file", "-", "Payload file, or - for stdin")
	return cmd
}

// readPayload returns the exact bytes to sign; trailing newlines are kept.
func readPayload(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return body, nil
}
