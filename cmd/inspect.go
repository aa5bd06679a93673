package cmd

import (
	"fmt"
	"os"
	"strings"

	"dataport/internal/connector"
	"dataport/internal/factory"
	"dataport/internal/schema"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	orderTables  bool
	outputFormat string
	previewRows  int
	query        connector.QueryOptions
)

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List supported source kinds and whether their driver is compiled in",
	Run: func(cmd *cobra.Command, args []string) {
		f := factory.New()
		for _, k := range factory.SupportedKinds() {
			status := "built-in"
			if f.RequiresExternalPackage(k) {
				status = "driver installed"
				if !f.IsDependencyInstalled(k) {
					status = "driver missing"
				}
			}
			fmt.Printf("%-12s %s\n", k, status)
		}
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test the connection to the active source",
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := GetActiveSource()
		if err != nil {
			return err
		}
		kind, cfg, err := src.ConnectionConfig()
		if err != nil {
			return err
		}
		if res := factory.ValidateConnectionConfig(kind, cfg); !res.Valid {
			for _, e := range res.Errors {
				fmt.Printf("    └ %s\n", e)
			}
			return fmt.Errorf("invalid config for source %s", src.Name)
		}
		c, err := factory.New().Create(kind, cfg)
		if err != nil {
			return err
		}

		res := c.TestConnection(cmd.Context())
		if !res.Success {
			fmt.Printf("[!] %s (%s): %s\n", src.Name, kind, res.Error)
			return fmt.Errorf("connection test failed")
		}
		fmt.Printf("[✓] %s (%s) in %s\n", src.Name, kind, res.Latency)
		if res.ServerVersion != "" {
			fmt.Printf("    Server: %s\n", res.ServerVersion)
		}
		if res.User != "" {
			fmt.Printf("    User: %s\n", res.User)
		}
		if len(res.Permissions) > 0 {
			fmt.Printf("    Permissions: %s\n", strings.Join(res.Permissions, ", "))
		}
		return nil
	},
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the tables of the active source",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, _, err := openSource(ctx, factory.New())
		if err != nil {
			return err
		}
		defer c.Disconnect(ctx)

		tables, err := c.Tables(ctx)
		if err != nil {
			return err
		}
		if orderTables {
			tables = schema.SortByDependencies(tables)
		}
		if outputFormat != "text" {
			return render(tables)
		}
		for i, t := range tables {
			rows := "?"
			if t.EstimatedRowCount != nil {
				rows = fmt.Sprint(*t.EstimatedRowCount)
			}
			name := t.Name
			if t.Schema != "" {
				name = t.Schema + "." + t.Name
			}
			fmt.Printf("[%02d] %-30s %-10s ~%s rows", i+1, name, t.Kind, rows)
			if len(t.Dependencies) > 0 {
				fmt.Printf(" (Dependencies: %v)", t.Dependencies)
			}
			fmt.Println()
		}
		return nil
	},
}

var columnsCmd = &cobra.Command{
	Use:   "columns <table>",
	Short: "Describe the columns of a table",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, _, err := openSource(ctx, factory.New())
		if err != nil {
			return err
		}
		defer c.Disconnect(ctx)

		table := ""
		if len(args) == 1 {
			table = args[0]
		}
		cols, err := c.Columns(ctx, table)
		if err != nil {
			return err
		}
		if outputFormat != "text" {
			return render(cols)
		}
		for _, col := range cols {
			null := "NOT NULL"
			if col.Nullable {
				null = "NULL"
			}
			pk := ""
			if col.IsPrimaryKey {
				pk = " PK"
			}
			fmt.Printf("%-30s %-20s %-8s %-8s%s\n", col.Name, col.NativeType, col.MappedType, null, pk)
			if len(col.SampleValues) > 0 {
				samples := make([]string, len(col.SampleValues))
				for i, v := range col.SampleValues {
					samples[i] = v.Text()
				}
				fmt.Printf("    └ e.g. %s\n", strings.Join(samples, " | "))
			}
		}
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview [table]",
	Short: "Print the first rows of a table or query as JSON lines",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, _, err := openSource(ctx, factory.New())
		if err != nil {
			return err
		}
		defer c.Disconnect(ctx)

		opts := query
		if len(args) == 1 {
			opts.Table = args[0]
		}
		res, err := c.Preview(ctx, opts, previewRows)
		if err != nil {
			return err
		}

		enc := gojson.NewEncoder(os.Stdout)
		for _, row := range res.Rows {
			if err := enc.Encode(row.Native()); err != nil {
				return err
			}
		}
		total := "unknown"
		if res.TotalRowCount != nil {
			total = fmt.Sprint(*res.TotalRowCount)
		}
		fmt.Fprintf(os.Stderr, "%d rows shown, %s total, more: %t\n", len(res.Rows), total, res.HasMore)
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:   "count [table]",
	Short: "Count the rows of a table, honoring --where",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, _, err := openSource(ctx, factory.New())
		if err != nil {
			return err
		}
		defer c.Disconnect(ctx)

		opts := query
		if len(args) == 1 {
			opts.Table = args[0]
		}
		n, err := c.RowCount(ctx, opts)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

func render(v any) error {
	switch outputFormat {
	case "json":
		enc := gojson.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	}
	return fmt.Errorf("unknown output format %q (use text, json or yaml)", outputFormat)
}

func init() {
	RootCmd.AddCommand(kindsCmd, testCmd, tablesCmd, columnsCmd, previewCmd, countCmd)

	tablesCmd.Flags().BoolVar(&orderTables, "order", false, "Sort tables so referenced tables come first")
	for _, c := range []*cobra.Command{tablesCmd, columnsCmd} {
		c.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text, json or yaml")
	}

	previewCmd.Flags().IntVarP(&previewRows, "rows", "n", connector.DefaultPreviewRows, "Rows to show")
	previewCmd.Flags().StringSliceVar(&query.Columns, "columns", nil, "Columns to keep")
	previewCmd.Flags().StringVar(&query.OrderBy, "order-by", "", "Order by clause, e.g. \"name DESC\"")
	previewCmd.Flags().IntVar(&query.Offset, "offset", 0, "Rows to skip")
	previewCmd.Flags().StringVar(&query.RawQuery, "raw", "", "Raw SQL query (database sources only)")
	for _, c := range []*cobra.Command{previewCmd, countCmd} {
		c.Flags().StringVarP(&query.Where, "where", "w", "", "Filter, e.g. \"status = 'LEAD' AND score > 10\"")
	}
}
