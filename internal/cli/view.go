package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trylock/viewer-sub003/internal/ui"
	"github.com/trylock/viewer-sub003/internal/views"
)

var viewDescription string

type viewOutput struct {
	Name        string `json:"name"`
	Query       string `json:"query"`
	Description string `json:"description,omitempty"`
	Created     string `json:"created,omitempty"`
	Modified    string `json:"modified,omitempty"`
}

func exportView(v views.View) viewOutput {
	const layout = "2006-01-02T15:04:05Z07:00"
	return viewOutput{
		Name:        v.Name,
		Query:       v.Query,
		Description: v.Description,
		Created:     v.Created.Format(layout),
		Modified:    v.Modified.Format(layout),
	}
}

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Manage named queries",
	Long: `A view is a named query. Its name can be used anywhere a query can:

  vwr view add keepers 'select "**" where Rating >= 4'
  vwr query 'keepers except select "rejects"'`,
}

var viewAddCmd = &cobra.Command{
	Use:   "add <name> <query>",
	Short: "Save a query under a name",
	Long: `Save a query under a name, replacing any view with the same name. The
query must compile. Names are normalized to lowercase identifiers, so
"Best of 2020" is stored as best_of_2020.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := views.NormalizeName(args[0])
		if err != nil {
			return fail(err)
		}
		text := joinQueryArgs(args[1:])

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		// text must compile and must not reach name through other views
		if _, err := s.compile(text); err != nil {
			return err
		}
		if refersTo(s, text, name) {
			return handleError(ErrQueryInvalid, fmt.Errorf("view %s cannot use itself", name), "")
		}

		v, err := s.views.Put(name, text, viewDescription)
		if err != nil {
			return fail(err)
		}

		if isJSONOutput() {
			outputSuccess(exportView(v), nil)
			return nil
		}
		fmt.Println(ui.Successf("Saved view %s", ui.AttrName(v.Name)))
		return nil
	},
}

// refersTo reports whether text uses the view name, directly or through
// other views. name is bound to text that cannot compile, so any reference
// fails.
func refersTo(s *session, text, name string) bool {
	probe := shadowViews{Store: s.views, name: name}
	_, err := s.compilerWith(probe).Compile(text, nil)
	return err != nil
}

type shadowViews struct {
	*views.Store
	name string
}

func (v shadowViews) Lookup(name string) (string, bool) {
	if n, err := views.NormalizeName(name); err == nil && n == v.name {
		return "(", true
	}
	return v.Store.Lookup(name)
}

var viewRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Delete a view",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.views.Remove(args[0]); err != nil {
			return fail(err)
		}
		if isJSONOutput() {
			outputSuccess(map[string]string{"name": args[0]}, nil)
			return nil
		}
		fmt.Println(ui.Successf("Deleted view %s", ui.AttrName(args[0])))
		return nil
	},
}

var viewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved views",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		list := s.views.List()
		if isJSONOutput() {
			out := make([]viewOutput, len(list))
			for i, v := range list {
				out[i] = exportView(v)
			}
			outputSuccess(map[string]any{"views": out}, &Meta{Count: len(list)})
			return nil
		}
		if len(list) == 0 {
			fmt.Println(ui.Hint("No views. Save one with 'vwr view add <name> <query>'."))
			return nil
		}
		display := ui.NewDisplayContext()
		tbl := ui.NewTable(2)
		for _, v := range list {
			tbl.AddRow(ui.AttrName(v.Name), ui.TruncateWithEllipsis(v.Query, display.AvailableWidth(30)))
		}
		fmt.Print(tbl.String())
		return nil
	},
}

var viewShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a view",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		v, ok := s.views.Get(args[0])
		if !ok {
			return fail(fmt.Errorf("%s: %w", args[0], views.ErrNotFound))
		}
		if isJSONOutput() {
			outputSuccess(exportView(v), nil)
			return nil
		}
		fmt.Println(ui.Header(v.Name))
		if v.Description != "" {
			fmt.Println(ui.Hint(v.Description))
		}
		fmt.Println()
		fmt.Println(v.Query)
		return nil
	},
}

func init() {
	viewAddCmd.Flags().StringVarP(&viewDescription, "description", "d", "", "What the view selects")
	viewCmd.AddCommand(viewAddCmd)
	viewCmd.AddCommand(viewRmCmd)
	viewCmd.AddCommand(viewListCmd)
	viewCmd.AddCommand(viewShowCmd)
	rootCmd.AddCommand(viewCmd)
}
