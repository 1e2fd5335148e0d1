package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BearBump/upstrack/internal/integrations/carrier/ups"
	"github.com/BearBump/upstrack/internal/models"
)

type classified struct {
	Code string `json:"code"`
	models.StatusAdvisory
}

func classifyCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [code...]",
		Short: "Explain UPS activity status codes",
		Long: `Classify status codes offline. Without arguments every known code is listed.

Examples:
  ups-track classify 005 011
  ups-track classify --json X`,
		RunE: func(cmd *cobra.Command, args []string) error {
			codes := args
			if len(codes) == 0 {
				codes = ups.KnownStatusCodes()
			}

			res := make([]classified, 0, len(codes))
			for _, c := range codes {
				res = append(res, classified{Code: c, StatusAdvisory: ups.Classify(c)})
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tSTATUS\tDESCRIPTION\tFLAGS")
			for _, r := range res {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Code,
					statusColor(r.ShorthandStatus)(string(r.ShorthandStatus)),
					r.Description, strings.Join(flagNames(r.Flags), ", "))
			}
			return w.Flush()
		},
	}
	return cmd
}
