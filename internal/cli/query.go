package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/trylock/viewer-sub003/internal/entity"
	"github.com/trylock/viewer-sub003/internal/plan"
	"github.com/trylock/viewer-sub003/internal/ui"
)

var (
	querySort    bool
	queryLimit   int
	queryFormat  string
	queryColumns string
)

// queryOutput is the data of a JSON query response.
type queryOutput struct {
	Query string       `json:"query"`
	Items []resultItem `json:"items"`
}

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Run a query and list the matching files",
	Long: `Run a query against the library and list the matching files and folders.

The arguments are joined with spaces, so the query may be quoted as a whole or
passed as separate words.

Examples:
  vwr query 'select "2023/**" where Rating >= 4'
  vwr query 'keepers order by DateTaken desc' --limit 20
  vwr query 'select "**"' --format yaml --columns Model,FNumber`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch queryFormat {
		case "table", "json", "yaml":
		default:
			return handleError(ErrInvalidInput, fmt.Errorf("unknown format %q", queryFormat), "Use table, json or yaml")
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		start := time.Now()
		q, err := s.compile(joinQueryArgs(args))
		if err != nil {
			return err
		}

		var progress plan.Progress = plan.NopProgress{}
		if !isJSONOutput() && queryFormat == "table" {
			progress = ui.NewQueryProgress()
		}
		results, err := runQuery(cmd.Context(), q, progress, querySort, queryLimit)
		if err != nil {
			return failf(err, "query failed")
		}
		elapsed := time.Since(start)

		var columns []string
		if queryColumns != "" {
			columns = splitColumns(queryColumns)
		}

		if isJSONOutput() {
			outputSuccess(queryOutput{
				Query: q.Text(),
				Items: exportEntities(results, columns),
			}, &Meta{Count: len(results), QueryTimeMs: elapsed.Milliseconds()})
			return nil
		}

		switch queryFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(exportEntities(results, columns))
		case "yaml":
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(exportEntities(results, columns))
		}

		if len(results) == 0 {
			fmt.Println(ui.Hint("No matches."))
			return nil
		}
		if columns == nil {
			columns = defaultColumns(results)
		}
		tbl := ui.NewResultsTable(ui.NewDisplayContext(), columns)
		for _, e := range results {
			tbl.Add(e)
		}
		fmt.Println(tbl.Render())
		fmt.Println(ui.Hint(fmt.Sprintf("%s in %s", ui.Count(len(results), "result"), elapsed.Round(time.Millisecond))))
		return nil
	},
}

// runQuery executes q. Sorted results are materialized before the limit
// applies; unsorted ones stop the traversal at the limit.
func runQuery(ctx context.Context, q plan.Query, progress plan.Progress, sorted bool, limit int) ([]entity.Entity, error) {
	var results []entity.Entity
	for e, err := range plan.Execute(ctx, q, progress) {
		if err != nil {
			return nil, err
		}
		results = append(results, e)
		if !sorted && limit > 0 && len(results) >= limit {
			break
		}
	}
	if sorted {
		plan.Sort(results, q.Comparer())
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// defaultColumns shows the computed size plus the most common EXIF fields
// present in the results.
func defaultColumns(results []entity.Entity) []string {
	present := map[string]bool{}
	for _, name := range ui.Columns(results) {
		present[name] = true
	}
	var out []string
	for _, name := range []string{
		entity.AttrDateTaken,
		"Model",
		"FNumber",
		"ExposureTime",
		"ISOSpeedRatings",
		entity.AttrFileSize,
	} {
		if present[name] {
			out = append(out, name)
		}
	}
	return out
}

func splitColumns(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func joinQueryArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func init() {
	queryCmd.Flags().BoolVar(&querySort, "sort", true, "Sort results by the query's order (path order without ORDER BY)")
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 0, "Maximum number of results (0 = all)")
	queryCmd.Flags().StringVarP(&queryFormat, "format", "f", "table", "Output format: table, json or yaml")
	queryCmd.Flags().StringVarP(&queryColumns, "columns", "c", "", "Comma-separated attributes to show")
	rootCmd.AddCommand(queryCmd)
}
