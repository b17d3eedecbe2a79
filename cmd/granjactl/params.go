package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"granja/internal/app"
	"granja/internal/core/types"
	"granja/internal/domain/kpi"
	"granja/internal/domain/params"
)

type paramsOptions struct {
	from, to, asOf string
	format         string
}

func newParamsCmd(root *rootOptions) *cobra.Command {
	opts := &paramsOptions{}
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Compute the reproductive parameters of the herd",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := opts.query()
			if err != nil {
				return err
			}
			ctx, cfg, err := root.load(cmd.Context())
			if err != nil {
				return err
			}
			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Params.Report(ctx, q)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), report, opts.format)
		},
	}
	cmd.Flags().StringVar(&opts.from, "from", "", "period start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.to, "to", "", "period end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.asOf, "as-of", "", "evaluation date for open windows (defaults to today)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "output format: table or json")
	return cmd
}

func (o *paramsOptions) query() (params.Query, error) {
	var q params.Query
	parse := func(name, raw string) (*types.Date, error) {
		if raw == "" {
			return nil, nil
		}
		d, err := types.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", name, err)
		}
		return &d, nil
	}
	var err error
	if q.From, err = parse("from", o.from); err != nil {
		return q, err
	}
	if q.To, err = parse("to", o.to); err != nil {
		return q, err
	}
	asOf, err := parse("as-of", o.asOf)
	if err != nil {
		return q, err
	}
	q.AsOf = types.Today()
	if asOf != nil {
		q.AsOf = *asOf
	}
	if o.format != "table" && o.format != "json" {
		return q, fmt.Errorf("--format must be table or json, got %q", o.format)
	}
	return q, nil
}

func writeReport(out io.Writer, report *params.Report, format string) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	farm := report.Farm
	fmt.Fprintf(out, "Active sows: %d  services: %d  farrowings: %d\n\n",
		farm.Counts.ActiveSows, farm.Counts.Services, farm.Counts.Farrowings)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDICATOR\tVALUE\tSTATUS")
	rows := []struct {
		name string
		ind  kpi.Indicator
	}{
		{"fertility rate %", farm.FertilityRate},
		{"abortion rate %", farm.AbortionRate},
		{"repeat rate %", farm.RepeatRate},
		{"anestrus rate %", farm.AnestrusRate},
		{"birth index", farm.BirthIndex},
		{"IEP days", farm.IEP},
		{"births per year", farm.BirthsPerYear},
		{"born alive avg", farm.BornAliveAvg},
		{"weaned avg", farm.WeanedAvg},
		{"weaned per year", farm.WeanedPerYear},
		{"DNP days", farm.DNP},
		{"mortality %", farm.MortalityRate},
		{"IDC days", farm.AvgIDC},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.name, r.ind.Value, r.ind.Status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(report.Individual) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PIG\tSTATUS\tPARITY\tIEP\tDNP\tBORN ALIVE\tWEANED\tMORTALITY %")
	for _, s := range report.Individual {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			s.PigID, s.Status, s.Parity, s.IEP.Value, s.DNP.Value,
			s.BornAliveAvg.Value, s.WeanedAvg.Value, s.MortalityRate.Value)
	}
	return w.Flush()
}
