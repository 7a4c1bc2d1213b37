// Command inspectctl queries the inspection source from the terminal:
// fleet statistics, filtered listings, vehicle history and spreadsheet
// exports.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/wessley-inspect/engine/dashboard"
	"github.com/WessleyAI/wessley-inspect/engine/domain"
	"github.com/WessleyAI/wessley-inspect/engine/source"
)

// options are the flags shared by every command.
type options struct {
	area      string
	frequency string
	vehicle   string
	days      int
	baseURL   string
	timeout   time.Duration
	asJSON    bool
	verbose   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "inspectctl",
		Short:         "Query vehicle inspection data",
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	def := source.DefaultParams
	pf := root.PersistentFlags()
	pf.StringVar(&opts.area, "area", def.Area, "report area (ieco, srb, lbm, rmx, iagg, office, th)")
	pf.StringVar(&opts.frequency, "frequency", def.Frequency, "inspection frequency (daily, monthly, quaterly, annualy)")
	pf.StringVar(&opts.vehicle, "type", def.VehicleType, "vehicle type")
	pf.IntVar(&opts.days, "days", def.Days, "inspection look-back window in days (7, 15, 30, 60, 120, 180)")
	pf.StringVar(&opts.baseURL, "base-url", envOr("SOURCE_BASE_URL", source.DefaultBaseURL), "upstream data endpoint")
	pf.DurationVar(&opts.timeout, "timeout", 60*time.Second, "overall timeout")
	pf.BoolVar(&opts.asJSON, "json", false, "print JSON instead of tables")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log upstream activity to stderr")

	root.AddCommand(
		newStatsCmd(opts),
		newListCmd(opts),
		newHistoryCmd(opts),
		newExportCmd(opts),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (o *options) params() (source.Params, error) {
	p := source.Params{Area: o.area, Frequency: o.frequency, VehicleType: o.vehicle, Days: o.days}.Normalized()
	if err := p.Validate(); err != nil {
		return source.Params{}, err
	}
	return p, nil
}

func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// load fetches the dataset selected by the flags.
func (o *options) load(cmd *cobra.Command) (*dashboard.Dashboard, *dashboard.Snapshot, error) {
	p, err := o.params()
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()

	cfg := source.DefaultConfig()
	cfg.BaseURL = o.baseURL
	logger := o.logger(cmd)
	d := dashboard.New(source.NewClient(cfg), dashboard.Options{Locale: domain.DefaultLocale, Logger: logger})
	snap, err := d.Refresh(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	return d, snap, nil
}

func (o *options) printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
