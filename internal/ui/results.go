package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/qmdsync/internal/qmd"
)

// ResultsRenderer displays search results and documents.
type ResultsRenderer struct {
	out    io.Writer
	opts   Options
	styles Styles
}

// NewResultsRenderer creates a results renderer.
func NewResultsRenderer(out io.Writer, opts Options) *ResultsRenderer {
	return &ResultsRenderer{
		out:    out,
		opts:   opts,
		styles: GetStyles(opts.NoColor),
	}
}

// RenderSearch writes a result list.
func (r *ResultsRenderer) RenderSearch(res *qmd.SearchResult) error {
	if r.opts.JSON {
		return WriteJSON(r.out, res)
	}

	if len(res.Items) == 0 {
		_, _ = fmt.Fprintf(r.out, "No results found for %q\n", res.Query)
		return nil
	}

	for i, item := range res.Items {
		title := item.Title
		if title == "" {
			title = item.Path
		}
		_, _ = fmt.Fprintf(r.out, "%s %s %s\n",
			r.styles.Dim.Render(fmt.Sprintf("%2d.", i+1)),
			r.styles.Title.Render(title),
			r.styles.Score.Render(fmt.Sprintf("%.2f", item.Score)))

		loc := item.Path
		if item.Collection != "" && item.Collection != qmd.DefaultCollection {
			loc = item.Collection + "/" + loc
		}
		_, _ = fmt.Fprintf(r.out, "    %s\n", r.styles.Label.Render(loc))
		if item.ExtraContext != "" {
			_, _ = fmt.Fprintf(r.out, "    %s\n", r.styles.Dim.Render(item.ExtraContext))
		}
		if snippet := strings.TrimSpace(item.Snippet); snippet != "" {
			_, _ = fmt.Fprintln(r.out, indent(r.quote(snippet), "    "))
		}
		_, _ = fmt.Fprintln(r.out)
	}

	_, _ = fmt.Fprintf(r.out, "%s\n", r.styles.Dim.Render(
		fmt.Sprintf("%s, %s mode, %.0fms", plural(len(res.Items), "result"), res.Mode, res.ElapsedMs)))
	return nil
}

// RenderDocument writes a document's metadata and body.
func (r *ResultsRenderer) RenderDocument(doc *qmd.Document) error {
	if r.opts.JSON {
		return WriteJSON(r.out, doc)
	}

	title := doc.Title
	if title == "" {
		title = doc.Path
	}
	_, _ = fmt.Fprintf(r.out, "%s\n", r.styles.Header.Render(title))
	_, _ = fmt.Fprintf(r.out, "%s\n", r.styles.Label.Render(doc.Path))
	if doc.ExtraContext != "" {
		_, _ = fmt.Fprintf(r.out, "%s\n", r.styles.Dim.Render(doc.ExtraContext))
	}
	_, _ = fmt.Fprintln(r.out)
	_, _ = fmt.Fprintln(r.out, strings.TrimRight(doc.Content, "\n"))
	return nil
}

// RenderCollections writes the configured collections.
func (r *ResultsRenderer) RenderCollections(cols []qmd.CollectionInfo) error {
	if r.opts.JSON {
		if cols == nil {
			cols = []qmd.CollectionInfo{}
		}
		return WriteJSON(r.out, cols)
	}
	if len(cols) == 0 {
		_, _ = fmt.Fprintln(r.out, "No collections configured")
		return nil
	}
	for _, c := range cols {
		_, _ = fmt.Fprintf(r.out, "%s %s\n", r.styles.Title.Render(c.Name), r.styles.Label.Render(plural(c.FileCount, "file")))
		if c.Locator != "" {
			_, _ = fmt.Fprintf(r.out, "    %s\n", c.Locator)
		}
		if c.GlobMask != "" {
			_, _ = fmt.Fprintf(r.out, "    %s %s\n", r.styles.Dim.Render("pattern:"), c.GlobMask)
		}
	}
	return nil
}

func (r *ResultsRenderer) quote(text string) string {
	if r.opts.NoColor {
		lines := strings.Split(text, "\n")
		for i, l := range lines {
			lines[i] = "> " + l
		}
		return strings.Join(lines, "\n")
	}
	return r.styles.Quote.Render(text)
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
