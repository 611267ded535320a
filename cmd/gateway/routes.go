package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"edge-gateway/middleware/edge"
	"edge-gateway/middleware/edge/policy"
)

func newRoutesCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "routes [path...]",
		Short: "Print the rate limit table, or how each given path is handled",
		Example: `  gateway routes
  gateway routes /api/analyze/42 /_next/static/app.js /about
  gateway routes --policy policy.yaml /api/teams`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flags.policyFile
			if path == "" {
				path = os.Getenv("EDGE_POLICY_FILE")
			}
			pol, err := policy.Load(path)
			if err != nil {
				return err
			}
			d, err := edge.New(edge.Options{Policy: pol})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				return printRules(out, d)
			}
			return printRoutes(out, d, args)
		},
	}
}

func printRules(out io.Writer, d *edge.Dispatcher) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RULE\tPREFIX\tMAX\tWINDOW")
	for _, r := range d.Rules() {
		prefix := r.RoutePrefix
		if r.IsDefault() {
			prefix = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.ID, prefix, r.MaxRequests, r.Window)
	}
	return tw.Flush()
}

func printRoutes(out io.Writer, d *edge.Dispatcher, paths []string) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tHANDLING\tRULE\tMAX\tWINDOW")
	for _, p := range paths {
		rt := d.Explain(p)
		switch {
		case rt.Bypass:
			fmt.Fprintf(tw, "%s\tbypass\t-\t-\t-\n", p)
		case rt.API:
			fmt.Fprintf(tw, "%s\trate-limited\t%s\t%d\t%s\n", p, rt.Rule.ID, rt.Rule.MaxRequests, rt.Rule.Window)
		default:
			fmt.Fprintf(tw, "%s\tannotated\t-\t-\t-\n", p)
		}
	}
	return tw.Flush()
}
