package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	qerrors "github.com/Aman-CERP/qmdsync/internal/errors"
)

// DocumentURITemplate addresses indexed documents the way qmd prints them.
const DocumentURITemplate = "qmd://{collection}/{+path}"

// MaxResourceSize is the largest document served as a resource (1MB).
const MaxResourceSize = 1024 * 1024

// mimeTypes maps document extensions to MIME types.
var mimeTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".mdx":      "text/markdown",
	".txt":      "text/plain",
	".org":      "text/x-org",
	".rst":      "text/x-rst",
}

// MimeTypeForPath returns the MIME type for a document path.
func MimeTypeForPath(path string) string {
	if t, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return t
	}
	return "text/plain"
}

// registerResources exposes every indexed document through a URI template.
func (s *Server) registerResources() {
	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "document",
		URITemplate: DocumentURITemplate,
		Description: "A document in the qmd index, addressed by collection and path",
		MIMEType:    "text/markdown",
	}, s.readDocumentResource)
}

func (s *Server) readDocumentResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return s.handleReadResource(ctx, req.Params.URI)
}

// handleReadResource fetches a document by its qmd:// URI.
func (s *Server) handleReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	if !isDocumentURI(uri) {
		return nil, NewInvalidParamsError(fmt.Sprintf("invalid document URI: %s", uri))
	}

	doc, err := s.index.Get(ctx, uri)
	if err != nil {
		if qerrors.IsKind(err, qerrors.KindCommandError) {
			return nil, NewDocumentNotFoundError(uri)
		}
		return nil, MapError(err)
	}
	if len(doc.Content) > MaxResourceSize {
		return nil, NewInvalidParamsError(fmt.Sprintf("document too large: %d bytes (max %d)", len(doc.Content), MaxResourceSize))
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: MimeTypeForPath(doc.Path),
				Text:     doc.Content,
			},
		},
	}, nil
}

// isDocumentURI accepts qmd://collection/path without traversal segments.
func isDocumentURI(uri string) bool {
	rest, ok := strings.CutPrefix(uri, "qmd://")
	if !ok {
		return false
	}
	collection, path, ok := strings.Cut(rest, "/")
	if !ok || collection == "" || path == "" {
		return false
	}
	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
