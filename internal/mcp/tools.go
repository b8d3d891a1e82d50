package mcp

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query      string  `json:"query" jsonschema:"the search text"`
	Mode       string  `json:"mode,omitempty" jsonschema:"search (keyword), vsearch (semantic) or query (hybrid with reranking), default search"`
	Limit      int     `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	MinScore   float64 `json:"min_score,omitempty" jsonschema:"drop results scoring below this value (0 to 1)"`
	Collection string  `json:"collection,omitempty" jsonschema:"restrict to one collection"`
	Full       bool    `json:"full,omitempty" jsonschema:"return whole documents instead of snippets"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Query     string             `json:"query"`
	Mode      string             `json:"mode"`
	ElapsedMs float64            `json:"elapsed_ms"`
	Results   []SearchResultItem `json:"results" jsonschema:"matching documents, best first"`
}

// SearchResultItem is one search hit.
type SearchResultItem struct {
	Path       string  `json:"path" jsonschema:"document path inside the collection"`
	Title      string  `json:"title"`
	Score      float64 `json:"score" jsonschema:"relevance score between 0 and 1"`
	Snippet    string  `json:"snippet,omitempty"`
	Collection string  `json:"collection,omitempty"`
	DocumentID string  `json:"document_id,omitempty"`
	Context    string  `json:"context,omitempty" jsonschema:"collection-level context attached by qmd"`
}

// GetDocumentInput defines the input schema for the get_document tool.
type GetDocumentInput struct {
	Ref string `json:"ref" jsonschema:"document path, qmd:// locator or document id"`
}

// DocumentOutput defines the output schema for the get_document tool.
type DocumentOutput struct {
	DocumentID   string `json:"document_id,omitempty"`
	Path         string `json:"path"`
	AbsolutePath string `json:"absolute_path,omitempty"`
	Title        string `json:"title"`
	Collection   string `json:"collection,omitempty"`
	Context      string `json:"context,omitempty"`
	Content      string `json:"content"`
}

// RelatedInput defines the input schema for the related_documents tool.
type RelatedInput struct {
	Path string `json:"path" jsonschema:"document whose neighbours to find"`
}

// IndexStatusInput defines the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	IndexPath       string             `json:"index_path,omitempty"`
	TotalDocuments  int                `json:"total_documents"`
	TotalEmbeddings int                `json:"total_embeddings"`
	NeedsEmbedding  bool               `json:"needs_embedding"`
	Collections     []CollectionOutput `json:"collections"`
}

// CollectionOutput describes one indexed collection.
type CollectionOutput struct {
	Name        string `json:"name"`
	Locator     string `json:"locator,omitempty"`
	GlobMask    string `json:"glob_mask,omitempty"`
	FileCount   int    `json:"file_count"`
	LastUpdated string `json:"last_updated,omitempty"`
}

// SyncStatusInput defines the input schema for the sync_status tool (no parameters).
type SyncStatusInput struct{}

// SyncNowInput defines the input schema for the sync_now tool (no parameters).
type SyncNowInput struct{}

// SyncStatusOutput defines the output schema for sync_status and sync_now.
type SyncStatusOutput struct {
	Mode         string `json:"mode"`
	IsRunning    bool   `json:"is_running"`
	PendingCount int    `json:"pending_count"`
	LastSyncTime string `json:"last_sync_time,omitempty" jsonschema:"RFC 3339 time of the last successful sync"`
	LastError    string `json:"last_error,omitempty"`
	Message      string `json:"message,omitempty"`
}
