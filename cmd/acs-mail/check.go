package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shineum/acs-mail-lite/internal/address"
	"github.com/shineum/acs-mail-lite/internal/email"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check ADDRESS...",
		Short: "Normalize addresses and report invalid ones",
		Long: `Check normalizes each argument the way a send request field would be
normalized and prints the resulting records as JSON. Invalid addresses are
reported and make the command fail.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			invalid := 0
			for _, arg := range args {
				records, err := address.Normalize(email.AddressText(arg), "")
				if err != nil {
					fmt.Fprintf(w, "%s: %v\n", arg, err)
					invalid++
					continue
				}
				if err := writeJSON(w, records); err != nil {
					return err
				}
			}

			if invalid > 0 {
				return fmt.Errorf("%d of %d addresses are invalid", invalid, len(args))
			}
			return nil
		},
	}
}
