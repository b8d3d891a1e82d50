package qmd

import (
	"bytes"
	"encoding/json"
	"path"
	"regexp"
	"strconv"
	"strings"

	qerrors "github.com/Aman-CERP/qmdsync/internal/errors"
)

const (
	// DefaultCollection is reported for items that name no collection.
	DefaultCollection = "default"

	snippetLength = 200
)

var locatorPrefix = regexp.MustCompile(`^qmd://([^/]+)/`)

// Normalize converts raw search output into a SearchResult.
//
// Accepted shapes are a bare JSON array of items, an object with a
// "results" array, or an object with a "documents" array. Empty output,
// output beginning with "No results" and the literal [] are all an empty
// result. Anything else that is not valid JSON is a parse error.
func Normalize(raw []byte) (*SearchResult, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.HasPrefix(trimmed, []byte("No results")) || bytes.Equal(trimmed, []byte("[]")) {
		return emptyResult(), nil
	}

	var data any
	if err := json.Unmarshal(trimmed, &data); err != nil {
		return nil, qerrors.ParseError(err.Error(), err)
	}

	result := emptyResult()
	var items []any

	switch v := data.(type) {
	case []any:
		items = v
	case map[string]any:
		if arr, ok := v["results"].([]any); ok {
			items = arr
		} else if arr, ok := v["documents"].([]any); ok {
			items = arr
		}
		result.Query = stringField(v, "query")
		result.Mode = stringField(v, "mode")
		result.ElapsedMs = numberField(v, "elapsed", "elapsedMs", "elapsed_ms")
	default:
		return nil, qerrors.ParseError("unexpected response shape", nil)
	}

	result.Items = make([]ResultItem, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		result.Items = append(result.Items, normalizeItem(m))
	}

	return result, nil
}

func emptyResult() *SearchResult {
	return &SearchResult{Items: []ResultItem{}}
}

func normalizeItem(m map[string]any) ResultItem {
	rawPath := stringField(m, "path", "file")
	clean := CleanPath(rawPath)

	item := ResultItem{
		DocumentID:   stringField(m, "docid", "id"),
		Path:         clean,
		AbsolutePath: stringField(m, "absolutePath", "absolute_path"),
		Title:        stringField(m, "title"),
		Score:        numberField(m, "score"),
		Snippet:      stringField(m, "snippet"),
		ExtraContext: stringField(m, "context"),
		Collection:   stringField(m, "collection"),
	}

	if item.AbsolutePath == "" {
		item.AbsolutePath = clean
	}
	if item.Title == "" {
		item.Title = TitleFromPath(clean)
	}
	if item.Snippet == "" {
		item.Snippet = truncateRunes(stringField(m, "content"), snippetLength)
	}
	if item.Collection == "" {
		item.Collection = collectionFromLocator(rawPath)
	}

	return item
}

func normalizeDocument(m map[string]any) *Document {
	rawPath := stringField(m, "path", "file")
	clean := CleanPath(rawPath)

	doc := &Document{
		DocumentID:   stringField(m, "docid", "id"),
		Path:         clean,
		AbsolutePath: stringField(m, "absolutePath", "absolute_path"),
		Title:        stringField(m, "title"),
		Content:      stringField(m, "content", "body"),
		Collection:   stringField(m, "collection"),
		ExtraContext: stringField(m, "context"),
	}
	if doc.AbsolutePath == "" {
		doc.AbsolutePath = clean
	}
	if doc.Title == "" {
		doc.Title = TitleFromPath(clean)
	}
	if doc.Collection == "" {
		doc.Collection = collectionFromLocator(rawPath)
	}
	return doc
}

// CleanPath strips a leading qmd://<collection>/ locator.
func CleanPath(p string) string {
	return locatorPrefix.ReplaceAllString(p, "")
}

// TitleFromPath is the file name without its extension.
func TitleFromPath(p string) string {
	if p == "" {
		return ""
	}
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

func collectionFromLocator(p string) string {
	if m := locatorPrefix.FindStringSubmatch(p); m != nil {
		return m[1]
	}
	return DefaultCollection
}

// stringField returns the first non-empty value among keys.
// Numbers are formatted so numeric ids survive.
func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func numberField(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return v
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
