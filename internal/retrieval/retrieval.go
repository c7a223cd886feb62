// Package retrieval wraps the external policy-document search backend.
//
// The backend is a managed Vertex AI Search data store; it owns ranking
// and extractive snippet generation. This package only issues queries and
// converts results. Two layers are exposed:
//
//	Searcher        — transport-level query interface ([]Snippet per query)
//	Define()        — bridges a Searcher to the Genkit ai.Retriever interface
//
// Snippets are ephemeral: produced for one request, never persisted.
package retrieval

import (
	"context"
	"errors"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// ErrUnavailable indicates the search backend could not serve the query
// (unreachable, erroring or timed out). Callers decide whether to degrade
// to an empty snippet set.
var ErrUnavailable = errors.New("retrieval unavailable")

// Snippet is one retrieved policy-document excerpt.
type Snippet struct {
	Text     string
	Metadata map[string]any
}

// Searcher issues one ranked, bounded query against the search backend.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Snippet, error)
}

// Define registers a Genkit retriever backed by the given Searcher.
//
// Usage:
//
//	client := retrieval.NewVertexClient(cfg, logger)
//	r := retrieval.Define(g, "policy-documents", client)
func Define(g *genkit.Genkit, name string, s Searcher) ai.Retriever {
	return genkit.DefineRetriever(
		g, name, nil,
		func(ctx context.Context, req *ai.RetrieverRequest) (*ai.RetrieverResponse, error) {
			snippets, err := s.Search(ctx, queryText(req))
			if err != nil {
				return nil, err
			}
			return &ai.RetrieverResponse{
				Documents: Documents(snippets),
			}, nil
		},
	)
}

// queryText extracts the query string from a RetrieverRequest.
func queryText(req *ai.RetrieverRequest) string {
	if req.Query != nil && len(req.Query.Content) > 0 {
		return req.Query.Content[0].Text
	}
	return ""
}

// Documents converts snippets to Genkit documents, preserving order.
func Documents(snippets []Snippet) []*ai.Document {
	docs := make([]*ai.Document, len(snippets))
	for i, s := range snippets {
		docs[i] = ai.DocumentFromText(s.Text, s.Metadata)
	}
	return docs
}

// Snippets converts Genkit documents back to snippets, preserving order.
// Multi-part documents concatenate their text parts.
func Snippets(docs []*ai.Document) []Snippet {
	snippets := make([]Snippet, len(docs))
	for i, doc := range docs {
		var text string
		for _, part := range doc.Content {
			text += part.Text
		}
		snippets[i] = Snippet{Text: text, Metadata: doc.Metadata}
	}
	return snippets
}
