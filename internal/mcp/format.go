package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/Aman-CERP/qmdsync/internal/autosync"
	"github.com/Aman-CERP/qmdsync/internal/qmd"
)

// FormatSearchResults formats search output as markdown.
func FormatSearchResults(out SearchOutput) string {
	if len(out.Results) == 0 {
		return fmt.Sprintf("No results found for \"%s\"", out.Query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for \"%s\" (%s)\n\n", out.Query, out.Mode)
	fmt.Fprintf(&sb, "Found %d result", len(out.Results))
	if len(out.Results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, item := range out.Results {
		fmt.Fprintf(&sb, "### %d. %s\n", i+1, item.Title)
		fmt.Fprintf(&sb, "**Path:** `%s`", item.Path)
		if item.Collection != "" && item.Collection != qmd.DefaultCollection {
			fmt.Fprintf(&sb, " in `%s`", item.Collection)
		}
		fmt.Fprintf(&sb, " | **Score:** %.2f\n", item.Score)
		if item.Context != "" {
			fmt.Fprintf(&sb, "**Context:** %s\n", item.Context)
		}
		if item.Snippet != "" {
			sb.WriteString("\n")
			sb.WriteString(quote(item.Snippet))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// quote renders text as a markdown block quote.
func quote(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}

// clampLimit keeps a requested limit inside [min, max], using defaultVal for unset values.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

// ToSearchOutput converts a normalized search result to the tool output.
func ToSearchOutput(r *qmd.SearchResult) SearchOutput {
	out := SearchOutput{
		Query:     r.Query,
		Mode:      string(r.Mode),
		ElapsedMs: r.ElapsedMs,
		Results:   make([]SearchResultItem, 0, len(r.Items)),
	}
	for _, item := range r.Items {
		out.Results = append(out.Results, SearchResultItem{
			Path:       item.Path,
			Title:      item.Title,
			Score:      item.Score,
			Snippet:    item.Snippet,
			Collection: item.Collection,
			DocumentID: item.DocumentID,
			Context:    item.ExtraContext,
		})
	}
	return out
}

// ToDocumentOutput converts a fetched document to the tool output.
func ToDocumentOutput(d *qmd.Document) DocumentOutput {
	return DocumentOutput{
		DocumentID:   d.DocumentID,
		Path:         d.Path,
		AbsolutePath: d.AbsolutePath,
		Title:        d.Title,
		Collection:   d.Collection,
		Context:      d.ExtraContext,
		Content:      d.Content,
	}
}

// ToIndexStatusOutput converts an index snapshot to the tool output.
func ToIndexStatusOutput(st *qmd.IndexStatus) *IndexStatusOutput {
	out := &IndexStatusOutput{
		IndexPath:       st.IndexPath,
		TotalDocuments:  st.TotalDocuments,
		TotalEmbeddings: st.TotalEmbeddings,
		NeedsEmbedding:  st.NeedsEmbedding,
		Collections:     make([]CollectionOutput, 0, len(st.Collections)),
	}
	for _, c := range st.Collections {
		out.Collections = append(out.Collections, CollectionOutput{
			Name:        c.Name,
			Locator:     c.Locator,
			GlobMask:    c.GlobMask,
			FileCount:   c.FileCount,
			LastUpdated: c.LastUpdatedText,
		})
	}
	return out
}

// ToSyncStatusOutput converts a coordinator snapshot to the tool output.
func ToSyncStatusOutput(st autosync.Status) SyncStatusOutput {
	out := SyncStatusOutput{
		Mode:         string(st.Mode),
		IsRunning:    st.IsRunning,
		PendingCount: st.PendingCount,
		LastError:    st.LastError,
	}
	if st.HasSynced() {
		out.LastSyncTime = st.LastSyncTime.Format(time.RFC3339)
	}
	return out
}
