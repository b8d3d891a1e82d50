package qmd

import (
	"bufio"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	qerrors "github.com/Aman-CERP/qmdsync/internal/errors"
)

// StatusFormat selects how Status asks for and parses the index status.
type StatusFormat string

const (
	// StatusFormatText runs "status" and parses its fixed-format text.
	StatusFormatText StatusFormat = "text"
	// StatusFormatJSON runs "status --json" for tool versions that support it.
	StatusFormatJSON StatusFormat = "json"
)

// needsEmbeddingMarker appears in status output while documents lack vectors.
const needsEmbeddingMarker = "need embedding"

var (
	reIndexPath  = regexp.MustCompile(`^Index:\s+(.+)$`)
	reTotal      = regexp.MustCompile(`Total:\s+(\d+)\s+files`)
	reVectors    = regexp.MustCompile(`Vectors:\s+(\d+)\s+embedded`)
	reCollection = regexp.MustCompile(`^\s+(\S+)\s+\(qmd://([^/]+)/\)`)
	rePattern    = regexp.MustCompile(`Pattern:\s+(.+)$`)
	reFiles      = regexp.MustCompile(`Files:\s+(\d+)(?:\s+\(updated\s+([^)]+)\))?`)
)

// ParseStatusText parses the plain-text status report.
//
// Lines that match nothing are ignored, so unknown sections are harmless.
// Pattern and Files lines attach to the most recent collection header.
func ParseStatusText(text string) *IndexStatus {
	status := &IndexStatus{Collections: []CollectionInfo{}}
	current := -1

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if strings.Contains(strings.ToLower(line), needsEmbeddingMarker) {
			status.NeedsEmbedding = true
		}

		if m := reIndexPath.FindStringSubmatch(line); m != nil {
			status.IndexPath = strings.TrimSpace(m[1])
			continue
		}
		if m := reTotal.FindStringSubmatch(line); m != nil {
			status.TotalDocuments = atoi(m[1])
			continue
		}
		if m := reVectors.FindStringSubmatch(line); m != nil {
			status.TotalEmbeddings = atoi(m[1])
			continue
		}
		if m := reCollection.FindStringSubmatch(line); m != nil {
			status.Collections = append(status.Collections, CollectionInfo{
				Name:    m[1],
				Locator: "qmd://" + m[2] + "/",
			})
			current = len(status.Collections) - 1
			continue
		}
		if current < 0 {
			continue
		}
		if m := rePattern.FindStringSubmatch(line); m != nil {
			status.Collections[current].GlobMask = strings.TrimSpace(m[1])
			continue
		}
		if m := reFiles.FindStringSubmatch(line); m != nil {
			status.Collections[current].FileCount = atoi(m[1])
			status.Collections[current].LastUpdatedText = strings.TrimSpace(m[2])
		}
	}

	return status
}

// ParseStatusJSON parses "status --json" output. Field names are matched
// loosely across tool versions.
func ParseStatusJSON(raw []byte) (*IndexStatus, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, qerrors.ParseError(err.Error(), err)
	}

	status := &IndexStatus{
		IndexPath:       stringField(data, "indexPath", "index_path", "index"),
		TotalDocuments:  int(numberField(data, "totalDocuments", "total_documents", "total")),
		TotalEmbeddings: int(numberField(data, "totalEmbeddings", "total_embeddings", "vectors")),
		Collections:     []CollectionInfo{},
	}

	switch v := data["needsEmbedding"].(type) {
	case bool:
		status.NeedsEmbedding = v
	case float64:
		status.NeedsEmbedding = v > 0
	}

	cols, _ := data["collections"].([]any)
	for _, c := range cols {
		m, ok := c.(map[string]any)
		if !ok {
			continue
		}
		info := CollectionInfo{
			Name:            stringField(m, "name"),
			Locator:         stringField(m, "locator", "uri"),
			GlobMask:        stringField(m, "pattern", "mask", "glob"),
			FileCount:       int(numberField(m, "fileCount", "file_count", "files")),
			LastUpdatedText: stringField(m, "updated", "lastUpdated", "last_updated"),
		}
		if info.Locator == "" && info.Name != "" {
			info.Locator = "qmd://" + info.Name + "/"
		}
		status.Collections = append(status.Collections, info)
	}

	return status, nil
}

// atoi tolerates the digits-only captures above.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
