package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shineum/acs-mail-lite/internal/email"
	"github.com/shineum/acs-mail-lite/internal/parser"
)

func newSendCmd(a *app) *cobra.Command {
	var (
		messagePath string
		emlPath     string
		providerArg string
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message",
		Long: `Send a message described by a YAML or JSON request file, or imported
from a raw RFC 5322 (.eml) file. The send result is printed as JSON.

A request file uses the same fields as the library:

  from: "Support <support@example.com>"
  to:
    - alice@example.com
    - address: bob@example.com
      displayName: Bob
  subject: Hello
  text: Hi there`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (messagePath == "") == (emlPath == "") {
				return errors.New("exactly one of --message or --eml is required")
			}

			opts, err := readRequest(messagePath, emlPath)
			if err != nil {
				return err
			}

			if providerArg != "" {
				a.cfg.Provider = providerArg
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			m, err := newMailer(ctx, a.cfg)
			if err != nil {
				return err
			}

			result, sendErr := m.Send(ctx, opts)
			if result != nil {
				if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			}
			return sendErr
		},
	}

	cmd.Flags().StringVarP(&messagePath, "message", "m", "", "path to a YAML or JSON send request")
	cmd.Flags().StringVar(&emlPath, "eml", "", "path to a raw RFC 5322 message to import")
	cmd.Flags().StringVar(&providerArg, "provider", "", "override the configured provider (acs, graph, ses, resend, stdout)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long (0 waits for the service)")

	return cmd
}

// readRequest loads send options from a request file or an .eml file.
func readRequest(messagePath, emlPath string) (*email.SendOptions, error) {
	if emlPath != "" {
		raw, err := os.ReadFile(emlPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read message file: %w", err)
		}
		return parser.Parse(raw)
	}

	data, err := os.ReadFile(messagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}

	// YAML is a superset of JSON, so one decoder serves both formats.
	opts := &email.SendOptions{}
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("failed to parse request file: %w", err)
	}
	return opts, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
