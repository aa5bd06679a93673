package cmd

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"dataport/internal/connector"
	"dataport/internal/engine"
	"dataport/internal/factory"
	"dataport/internal/logger"
	"dataport/internal/metrics"

	"github.com/gosuri/uiprogress"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	exportTables []string
	outDir       string
	dryRun       bool
	metricsAddr  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export tables of the active source as NDJSON",
	Long: `Export reads every selected table of the active source in dependency order,
applies the configured field mappings and writes one JSON object per line,
to stdout or to <out>/<table>.ndjson.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		reg := prometheus.NewRegistry()
		collector := metrics.NewCollector(reg)
		if metricsAddr != "" {
			go serveMetrics(metricsAddr, reg)
		}

		c, src, err := openSource(ctx, factory.New(factory.WithObserver(collector)))
		if err != nil {
			return err
		}
		defer c.Disconnect(ctx)

		fmt.Fprintf(os.Stderr, "Connected to %s (%s)\n", src.Name, c.Kind())

		// Tables: flag, then export.tables, then everything.
		names := exportTables
		if len(names) == 0 {
			names = viper.GetStringSlice("export.tables")
		}

		var mappings []connector.FieldMapping
		if err := viper.UnmarshalKey("export.mappings", &mappings); err != nil {
			return fmt.Errorf("failed to parse export.mappings: %w", err)
		}

		log.Println("Analyzing tables...")
		jobs, err := engine.Plan(ctx, c, names, mappings)
		if err != nil {
			return err
		}

		if dryRun {
			log.Println("[SIMULATION] Dry-Run Mode Active: no rows will be read.")
			fmt.Fprintf(os.Stderr, "Export plan (%d tables):\n", len(jobs))
			for i, j := range jobs {
				fmt.Fprintf(os.Stderr, "[%02d] %s\n", i+1, j.Query.Table)
			}
			return nil
		}

		var sink engine.Sink
		if outDir == "" || outDir == "-" {
			sink = engine.NewNDJSONSink(os.Stdout)
			if len(jobs) > 1 {
				sink.(*engine.NDJSONSink).Tagged = true
			}
		} else {
			dir, err := engine.NewDirSink(outDir)
			if err != nil {
				return err
			}
			defer func() {
				if err := dir.Close(); err != nil {
					logger.Get().Error("closing output files failed", zap.Error(err))
				}
			}()
			sink = dir
		}

		start := time.Now()
		progress := newProgressBars(outDir != "" && outDir != "-")
		results, err := engine.Export(ctx, c, sink, jobs, engine.Options{
			BatchSize:  viper.GetInt("export.batch_size"),
			OnProgress: progress.update,
			Observer:   collector,
		})
		progress.stop()

		printReport(results, time.Since(start))
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.Status != engine.StatusOK {
				return errors.New("export finished with errors")
			}
		}
		return nil
	},
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Get().Info("serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Get().Error("metrics server stopped", zap.Error(err))
	}
}

// progressBars draws one bar per table. Bars are off when records go to stdout.
type progressBars struct {
	enabled bool
	mu      sync.Mutex
	bars    map[string]*uiprogress.Bar
}

func newProgressBars(enabled bool) *progressBars {
	if enabled {
		uiprogress.Start()
	}
	return &progressBars{enabled: enabled, bars: map[string]*uiprogress.Bar{}}
}

func (p *progressBars) update(table string, state connector.ImportProgress) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	bar, ok := p.bars[table]
	if !ok {
		bar = uiprogress.AddBar(100).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return fmt.Sprintf("%-20s", table)
		})
		p.bars[table] = bar
	}
	pct := state.Percent()
	if state.Phase == connector.PhaseCompleted {
		pct = 100
	}
	bar.Set(pct)
}

func (p *progressBars) stop() {
	if p.enabled {
		uiprogress.Stop()
	}
}

func printReport(results []engine.ExportResult, elapsed time.Duration) {
	w := os.Stderr
	fmt.Fprintln(w, "\nSummary Report (Dependency Order):")
	var total, rejected int64
	for i, r := range results {
		icon := "✓"
		if r.Status != engine.StatusOK {
			icon = "!"
		}
		fmt.Fprintf(w, "[%s] [%02d/%02d] %-20s : %d rows (Target: %d, Rejected: %d) - %s\n",
			icon, i+1, len(results), r.Table, r.Exported, r.Target, r.Rejected, r.Status)
		if r.ErrorMsg != "" {
			fmt.Fprintf(w, "    └ Error: %s\n", r.ErrorMsg)
		}
		for j, e := range r.Errors {
			if j == 5 {
				fmt.Fprintf(w, "    └ ... %d more\n", len(r.Errors)-j)
				break
			}
			fmt.Fprintf(w, "    └ %s\n", e.Error())
		}
		total += r.Exported
		rejected += r.Rejected
	}
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Total Exported: %d, Rejected: %d\n", total, rejected)
	log.Printf("Export Done! Time Elapsed: %s", elapsed)
}

func init() {
	RootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringSliceVarP(&exportTables, "tables", "t", []string{}, "Specific tables to export (comma-separated)")
	exportCmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for <table>.ndjson files (default is stdout)")
	exportCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the export plan without reading any rows")
	exportCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	exportCmd.Flags().Int("batch-size", 0, "Rows per batch (overrides config)")

	viper.BindPFlag("export.batch_size", exportCmd.Flags().Lookup("batch-size"))
	viper.SetDefault("export.batch_size", engine.DefaultBatchSize)
}
