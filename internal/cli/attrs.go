package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trylock/viewer-sub003/internal/ui"
)

var attrsCmd = &cobra.Command{
	Use:   "attrs [prefix]",
	Short: "List attribute names in the cache",
	Long: `List the attribute names of indexed files, optionally only those that
start with prefix (case-insensitive). Run 'vwr index' first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		names, err := s.store.AttributeNames(prefix)
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		if names == nil {
			names = []string{}
		}

		if isJSONOutput() {
			outputSuccess(map[string]any{"names": names}, &Meta{Count: len(names)})
			return nil
		}
		if len(names) == 0 {
			fmt.Println(ui.Hint("No attributes. Run 'vwr index' to read the library."))
			return nil
		}
		for _, name := range names {
			fmt.Println(ui.AttrName(name))
		}
		return nil
	},
}

var valuesCmd = &cobra.Command{
	Use:   "values <name>",
	Short: "List the distinct values of an attribute",
	Long: `List the distinct values an attribute takes across indexed files, as
query literals ready to paste into a predicate.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		vals, err := s.store.Values(args[0])
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}

		if isJSONOutput() {
			out := make([]any, len(vals))
			for i, v := range vals {
				out[i] = exportValue(v)
			}
			outputSuccess(map[string]any{"name": args[0], "values": out}, &Meta{Count: len(vals)})
			return nil
		}
		if len(vals) == 0 {
			fmt.Println(ui.Hint(fmt.Sprintf("No values for %s.", args[0])))
			return nil
		}
		for _, v := range vals {
			fmt.Println(v.Literal())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(attrsCmd)
	rootCmd.AddCommand(valuesCmd)
}
