package testutil

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/policyhub/askhr/internal/retrieval"
)

// DefineStaticRetriever registers a retriever that always returns the
// given snippets, in order, for any query.
func DefineStaticRetriever(g *genkit.Genkit, name string, snippets []retrieval.Snippet) ai.Retriever {
	return genkit.DefineRetriever(
		g, name, nil,
		func(_ context.Context, _ *ai.RetrieverRequest) (*ai.RetrieverResponse, error) {
			return &ai.RetrieverResponse{
				Documents: retrieval.Documents(snippets),
			}, nil
		},
	)
}

// DefineFailingRetriever registers a retriever that always fails with err.
func DefineFailingRetriever(g *genkit.Genkit, name string, err error) ai.Retriever {
	return genkit.DefineRetriever(
		g, name, nil,
		func(_ context.Context, _ *ai.RetrieverRequest) (*ai.RetrieverResponse, error) {
			return nil, err
		},
	)
}

// RecordingRetriever wraps a static snippet set and records the queries
// it was asked. Register it with Define.
type RecordingRetriever struct {
	Snippets []retrieval.Snippet
	Queries  []string
}

// Define registers the recording retriever with Genkit.
func (r *RecordingRetriever) Define(g *genkit.Genkit, name string) ai.Retriever {
	return genkit.DefineRetriever(
		g, name, nil,
		func(_ context.Context, req *ai.RetrieverRequest) (*ai.RetrieverResponse, error) {
			var query string
			if req.Query != nil && len(req.Query.Content) > 0 {
				query = req.Query.Content[0].Text
			}
			r.Queries = append(r.Queries, query)
			return &ai.RetrieverResponse{
				Documents: retrieval.Documents(r.Snippets),
			}, nil
		},
	)
}
