package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trylock/viewer-sub003/internal/ui"
)

type explainOutput struct {
	Text     string   `json:"text"`
	Patterns []string `json:"patterns"`
}

var explainCmd = &cobra.Command{
	Use:   "explain <text>",
	Short: "Compile a query and show its canonical form",
	Long: `Compile a query without running it. Prints the query as the engine
understands it, with views expanded and operators in canonical form, and the
path patterns it reads.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		q, err := s.compile(joinQueryArgs(args))
		if err != nil {
			return err
		}

		out := explainOutput{Text: q.Text(), Patterns: []string{}}
		for _, p := range q.Patterns() {
			out.Patterns = append(out.Patterns, p.String())
		}

		if isJSONOutput() {
			outputSuccess(out, nil)
			return nil
		}

		fmt.Println(out.Text)
		fmt.Println()
		fmt.Println(ui.Header("Patterns"))
		for _, p := range out.Patterns {
			fmt.Printf("  %s\n", p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(explainCmd)
}
