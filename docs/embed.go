// Package docs bundles the long-form documentation shipped with vwr.
package docs

import "embed"

// FS contains the Markdown reference pages rendered by `vwr syntax`.
//
//go:embed query-language.md
var FS embed.FS

// QueryLanguage is the file name of the query language reference in FS.
const QueryLanguage = "query-language.md"
