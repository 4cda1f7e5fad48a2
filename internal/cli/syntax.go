package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trylock/viewer-sub003/docs"
	"github.com/trylock/viewer-sub003/internal/ui"
)

var syntaxRaw bool

var syntaxCmd = &cobra.Command{
	Use:   "syntax",
	Short: "Show the query language reference",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := docs.FS.ReadFile(docs.QueryLanguage)
		if err != nil {
			return handleError(ErrInternal, err, "")
		}

		if isJSONOutput() {
			outputSuccess(map[string]string{"markdown": string(content)}, nil)
			return nil
		}

		display := ui.NewDisplayContext()
		if syntaxRaw || !display.IsTTY {
			fmt.Print(string(content))
			return nil
		}
		rendered, err := ui.RenderMarkdown(string(content), display.AvailableWidth(ui.MarkdownRenderMargin*2))
		if err != nil {
			return handleError(ErrInternal, err, "")
		}
		fmt.Print(rendered)
		return nil
	},
}

func init() {
	syntaxCmd.Flags().BoolVar(&syntaxRaw, "raw", false, "Print the Markdown source")
	rootCmd.AddCommand(syntaxCmd)
}
