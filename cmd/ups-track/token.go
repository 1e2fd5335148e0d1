package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func tokenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Obtain an OAuth access token",
		Long: `Exchange the client credentials for an access token and print it.

Examples:
  ups-track token --sandbox
  ups-track token --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.resolve()
			if err != nil {
				return err
			}
			cred, err := s.client().ObtainToken(cmd.Context(), s.ups.MerchantID, s.ups.ClientID, s.ups.ClientSecret, s.env)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(cred)
			}
			fmt.Fprintf(out, "%s %s\n", bold.Sprint("token:"), cred.AccessToken)
			fmt.Fprintf(out, "type: %s  status: %s  expires in: %s\n", cred.TokenType, cred.Status, cred.Lifetime())
			return nil
		},
	}
}
