// Package qmd wraps the external qmd indexing executable.
//
// Every operation runs the tool as a subprocess with an operation-specific
// time bound, then normalizes whatever the tool printed into the shapes
// defined here. Search-style output is JSON in one of several shapes; the
// status output is fixed-format plain text and has its own parser.
package qmd

// Mode selects the ranking mode, which maps directly to a qmd subcommand.
type Mode string

const (
	// ModeSearch is BM25 keyword search.
	ModeSearch Mode = "search"
	// ModeVSearch is vector semantic search.
	ModeVSearch Mode = "vsearch"
	// ModeQuery is hybrid search with reranking.
	ModeQuery Mode = "query"
)

// ParseMode converts a string to a Mode. ok is false for unknown modes.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeSearch, ModeVSearch, ModeQuery:
		return Mode(s), true
	default:
		return "", false
	}
}

// SearchOptions are the structural flags of a search invocation.
// Zero values mean "flag not passed".
type SearchOptions struct {
	Collection string  `json:"collection,omitempty"`
	Limit      int     `json:"limit,omitempty"`
	MinScore   float64 `json:"min_score,omitempty"`
	Full       bool    `json:"full,omitempty"`
}

// SearchResult is the normalized result of search, vsearch and query.
type SearchResult struct {
	Items     []ResultItem `json:"items"`
	Query     string       `json:"query"`
	Mode      string       `json:"mode"`
	ElapsedMs float64      `json:"elapsed_ms"`
}

// ResultItem is one ranked document.
type ResultItem struct {
	DocumentID   string  `json:"document_id"`
	Path         string  `json:"path"`
	AbsolutePath string  `json:"absolute_path"`
	Title        string  `json:"title"`
	Score        float64 `json:"score"`
	Snippet      string  `json:"snippet"`
	ExtraContext string  `json:"extra_context,omitempty"`
	Collection   string  `json:"collection"`
}

// Document is a single document returned by get.
type Document struct {
	DocumentID   string `json:"document_id"`
	Path         string `json:"path"`
	AbsolutePath string `json:"absolute_path"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	Collection   string `json:"collection"`
	ExtraContext string `json:"extra_context,omitempty"`
}

// IndexStatus is a snapshot of the tool's index.
type IndexStatus struct {
	IndexPath       string           `json:"index_path"`
	TotalDocuments  int              `json:"total_documents"`
	TotalEmbeddings int              `json:"total_embeddings"`
	Collections     []CollectionInfo `json:"collections"`

	// NeedsEmbedding is set when the tool reports documents without vectors.
	NeedsEmbedding bool `json:"needs_embedding"`
}

// CollectionInfo describes one tool-managed collection.
type CollectionInfo struct {
	Name            string `json:"name"`
	Locator         string `json:"locator"`
	GlobMask        string `json:"glob_mask"`
	FileCount       int    `json:"file_count"`
	LastUpdatedText string `json:"last_updated_text,omitempty"`
}

// ConnectionResult is the outcome of TestConnection. It never carries an error value.
type ConnectionResult struct {
	OK      bool         `json:"ok"`
	Message string       `json:"message"`
	Status  *IndexStatus `json:"status,omitempty"`
}
