package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trylock/viewer-sub003/internal/entity"
	"github.com/trylock/viewer-sub003/internal/fsys"
	"github.com/trylock/viewer-sub003/internal/ui"
	"github.com/trylock/viewer-sub003/internal/value"
)

var tagString bool

var attributeNameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type tagOutput struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Value any    `json:"value,omitempty"`
}

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage custom attributes of files",
	Long: `Custom attributes are stored in the cache next to the EXIF data and
survive re-indexing. Queries see them like any other attribute.`,
}

var tagSetCmd = &cobra.Command{
	Use:   "set <path> <name> <value>",
	Short: "Set a custom attribute",
	Long: `Set a custom attribute on a file. Values that parse as integers, numbers
or dates ("2023-06-01 12:00:00") are stored typed; --string keeps the text.

Examples:
  vwr tag set trips/norway/001.jpg Rating 5
  vwr tag set trips/norway/001.jpg Album "Norway 2023"`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, name, err := tagTarget(args[0], args[1])
		if err != nil {
			return err
		}
		v := parseTagValue(args[2], tagString)

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.store.SetAttribute(path, name, v); err != nil {
			return handleError(ErrDatabaseError, err, "")
		}

		if isJSONOutput() {
			outputSuccess(tagOutput{Path: path, Name: name, Value: exportValue(v)}, nil)
			return nil
		}
		fmt.Println(ui.Successf("%s %s = %s", ui.FilePath(path), ui.AttrName(name), v.Literal()))
		return nil
	},
}

var tagRmCmd = &cobra.Command{
	Use:   "rm <path> <name>",
	Short: "Remove a custom attribute",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := fsys.Normalize(args[0])
		name := args[1]

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.store.RemoveAttribute(path, name); err != nil {
			return fail(err)
		}

		if isJSONOutput() {
			outputSuccess(tagOutput{Path: path, Name: name}, nil)
			return nil
		}
		fmt.Println(ui.Successf("Removed %s from %s", ui.AttrName(name), ui.FilePath(path)))
		return nil
	},
}

var tagListCmd = &cobra.Command{
	Use:   "list <path>",
	Short: "Show the cached attributes of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := fsys.Normalize(args[0])

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		attrs, err := s.store.Attributes(path)
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}

		if isJSONOutput() {
			items := make([]map[string]any, len(attrs))
			for i, a := range attrs {
				items[i] = map[string]any{
					"name":   a.Name,
					"value":  exportValue(a.Value),
					"source": a.Source.String(),
				}
			}
			outputSuccess(map[string]any{"path": path, "attributes": items}, &Meta{Count: len(attrs)})
			return nil
		}
		if len(attrs) == 0 {
			fmt.Println(ui.Hint(fmt.Sprintf("No cached attributes for %s.", path)))
			return nil
		}
		tbl := ui.NewTable(3)
		for _, a := range attrs {
			tbl.AddRow(ui.AttrName(a.Name), ui.FormatValue(a.Value), ui.Hint(a.Source.String()))
		}
		fmt.Print(tbl.String())
		return nil
	},
}

// tagTarget validates the file and attribute name of a tag command.
func tagTarget(rawPath, name string) (string, string, error) {
	path := fsys.Normalize(rawPath)
	info, err := os.Stat(filepath.FromSlash(path))
	if err != nil {
		return "", "", fail(err)
	}
	if info.IsDir() {
		return "", "", handleError(ErrInvalidInput, fmt.Errorf("%s: %w", path, entity.ErrNotAFile), "")
	}
	if !attributeNameRE.MatchString(name) {
		return "", "", handleError(ErrInvalidInput,
			fmt.Errorf("invalid attribute name %q", name),
			"Use letters, digits and underscores, starting with a letter")
	}
	return path, name, nil
}

// parseTagValue types text the way a query literal would be typed.
func parseTagValue(text string, asString bool) value.Value {
	if asString {
		return value.String(text)
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return value.Int(i)
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil && strings.ContainsAny(text, "0123456789") {
		return value.Real(f)
	}
	if t, err := value.ParseDateTime(text); err == nil {
		return value.DateTime(t)
	}
	return value.String(text)
}

func init() {
	tagSetCmd.Flags().BoolVar(&tagString, "string", false, "Store the value as text")
	tagCmd.AddCommand(tagSetCmd)
	tagCmd.AddCommand(tagRmCmd)
	tagCmd.AddCommand(tagListCmd)
	rootCmd.AddCommand(tagCmd)
}
