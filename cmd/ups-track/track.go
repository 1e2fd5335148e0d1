package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BearBump/upstrack/internal/integrations/carrier/ups"
	"github.com/BearBump/upstrack/internal/models"
)

func trackCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "track <inquiry-number>",
		Short: "Show the latest status and activity of a shipment",
		Long: `Track one UPS inquiry number. A token is obtained first unless --token is given.

Examples:
  ups-track track 1Z023E2X0214323462 --sandbox
  ups-track track 1Z023E2X0214323462 --token "$TOKEN" --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.resolve()
			if err != nil {
				return err
			}
			res, err := s.client().Track(cmd.Context(), strings.TrimSpace(args[0]), s.ups.ClientID, s.ups.ClientSecret, ups.TrackOptions{
				Locale:           s.ups.Locale,
				ReturnMilestones: s.ups.ReturnMilestones,
				ReturnSignature:  s.ups.ReturnSignature,
				MerchantID:       s.ups.MerchantID,
				BearerToken:      s.token,
				Environment:      s.env,
			})
			if err != nil {
				return err
			}

			for _, w := range res.Warnings {
				warn(cmd.ErrOrStderr(), "warning %s: %s\n", w.Code, w.Message)
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printTracking(out, res)
			return nil
		},
	}
}

func statusColor(s models.TrackingStatus) func(a ...any) string {
	switch s {
	case models.TrackingStatusDelivered:
		return green.Sprint
	case models.TrackingStatusException, models.TrackingStatusReturnToSender:
		return red.Sprint
	case models.TrackingStatusDelay, models.TrackingStatusUnknown:
		return yellow.Sprint
	default:
		return cyan.Sprint
	}
}

func printTracking(out io.Writer, res *ups.TrackingQueryResult) {
	last := res.LastStatus
	for _, sh := range res.TrackResponse.Shipment {
		fmt.Fprintf(out, "%s  %s (%s)\n", bold.Sprint(sh.InquiryNumber),
			statusColor(last.ShorthandStatus)(last.Description), last.ShorthandStatus)
	}
	if flags := flagNames(last.Flags); len(flags) > 0 {
		fmt.Fprintf(out, "flags: %s\n", strings.Join(flags, ", "))
	}
	fmt.Fprintf(out, "transaction: %s\n\n", res.TransactionID)

	for _, sh := range res.TrackResponse.Shipment {
		for _, p := range sh.Package {
			fmt.Fprintf(out, "Package %s\n", p.TrackingNumber)
			if len(p.Activity) == 0 {
				fmt.Fprintln(out, "  (no activity)")
				continue
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "  DATE\tTIME\tCODE\tSTATUS\tLOCATION")
			for _, a := range p.Activity {
				var code, desc, loc string
				if a.Status != nil {
					code, desc = a.Status.StatusCode, a.Status.Description
				}
				if a.Location != nil {
					loc = a.Location.String()
				}
				fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", a.Date, a.Time, code, desc, loc)
			}
			_ = w.Flush()
		}
	}
}

func flagNames(f models.AdvisoryFlags) []string {
	var out []string
	add := func(on bool, name string) {
		if on {
			out = append(out, name)
		}
	}
	add(f.Delivered, "delivered")
	add(f.Delayed, "delayed")
	add(f.InTransit, "in transit")
	add(f.Exception, "exception")
	add(f.OutForDelivery, "out for delivery")
	add(f.ReturnToSender, "return to sender")
	add(f.ShipperActionRequired, "shipper action required")
	add(f.RecipientShouldPickUp, "recipient should pick up")
	add(f.RecipientShouldCheckCarrier, "recipient should check carrier")
	add(f.RecipientActionRequired, "recipient action required")
	return out
}
