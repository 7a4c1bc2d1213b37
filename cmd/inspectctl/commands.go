package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/wessley-inspect/engine/export"
	"github.com/WessleyAI/wessley-inspect/engine/query"
)

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show fleet inspection counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, snap, err := opts.load(cmd)
			if err != nil {
				return err
			}
			st, err := d.StatsAt(snap)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return opts.printJSON(cmd, st)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Dataset\t%s\n", snap.Params)
			fmt.Fprintf(w, "Total\t%d\n", st.Total)
			fmt.Fprintf(w, "Not checked\t%d\n", st.NotChecked)
			fmt.Fprintf(w, "Checked\t%d\n", st.Checked)
			fmt.Fprintf(w, "Defect\t%d\n", st.Defect)
			fmt.Fprintf(w, "Normal\t%d\n", st.Normal)
			return w.Flush()
		},
	}
}

func newListCmd(opts *options) *cobra.Command {
	var status, search string
	var page, size int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List vehicles with their latest inspection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := query.ParseParams(status, search, fmt.Sprint(page), fmt.Sprint(size), "")
			if err != nil {
				return err
			}
			d, snap, err := opts.load(cmd)
			if err != nil {
				return err
			}
			res, err := d.QueryAt(snap, p)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return opts.printJSON(cmd, res)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tOWNER\tSTATUS\tLATEST\tINSPECTOR\tREMARK")
			for _, r := range res.Rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.OwnerName, r.Status, r.LatestDate, r.Inspector, r.Remark)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "page %d/%d, %d vehicles\n", res.Page, res.TotalPages, res.Total)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&status, "status", "all", "status filter (all, notChecked, defect, normal)")
	f.StringVarP(&search, "search", "q", "", "search id, owner, inspector or date (D/M/YYYY)")
	f.IntVar(&page, "page", 1, "page number")
	f.IntVar(&size, "page-size", query.DefaultPageSize, "rows per page")
	return cmd
}

func newHistoryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show every inspection of one vehicle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, snap, err := opts.load(cmd)
			if err != nil {
				return err
			}
			h, err := d.HistoryAt(snap, args[0])
			if err != nil {
				return err
			}
			if opts.asJSON {
				return opts.printJSON(cmd, h)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tINSPECTOR\tSTATUS\tREMARK\tIMAGES")
			for _, e := range h {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Date, e.Inspector, e.Status, e.Remark, strings.Join(e.Images, " "))
			}
			return w.Flush()
		},
	}
}

func newExportCmd(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every inspection to an .xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, snap, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if out == "" {
				out = export.FileName(time.Now())
			}
			src := snap.ExportSource(d.Locale())
			t := export.Build(src.Vehicles, src.Inspections, src.Locale)

			if err := writeWorkbook(out, t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", len(t.Rows), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default VehicleInspectionAll_<ms>.xlsx)")
	return cmd
}

// writeWorkbook writes t to path. A failed write leaves no partial file.
func writeWorkbook(path string, t export.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.WriteXLSX(f, t); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
