package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Scope selects which notes a query may return.
type Scope string

const (
	// ScopeVisible covers the viewer's own notes and everyone's public notes.
	ScopeVisible Scope = "visible"
	// ScopeMine covers the viewer's own notes.
	ScopeMine Scope = "mine"
	// ScopePublic covers public notes owned by other accounts.
	ScopePublic Scope = "public"
)

// Valid reports whether the scope is known.
func (s Scope) Valid() bool {
	switch s {
	case ScopeVisible, ScopeMine, ScopePublic:
		return true
	default:
		return false
	}
}

// DefaultLimit caps results when a query does not set a limit.
const DefaultLimit = 20

// Params configures a search.
type Params struct {
	Query  string
	Viewer string
	Scope  Scope
	Limit  int
}

// Hit is one matching note.
type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Title string  `json:"title"`
}

// Result holds the hits of one search, best first.
type Result struct {
	Query string `json:"query"`
	Total uint64 `json:"total"`
	Hits  []Hit  `json:"hits"`
}

// Search runs a full-text query restricted to what the viewer may see.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	if params.Limit <= 0 {
		params.Limit = DefaultLimit
	}
	if params.Scope == "" {
		params.Scope = ScopeVisible
	}

	req := bleve.NewSearchRequestOptions(buildQuery(params), params.Limit, 0, false)
	req.SortBy([]string{"-_score", "-" + fieldUpdated})
	req.Fields = []string{fieldTitle}

	s.mu.RLock()
	res, err := s.index.SearchInContext(ctx, req)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query: params.Query,
		Total: res.Total,
		Hits:  make([]Hit, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		h := Hit{ID: hit.ID, Score: hit.Score}
		if title, ok := hit.Fields[fieldTitle].(string); ok {
			h.Title = title
		}
		result.Hits = append(result.Hits, h)
	}
	return result, nil
}

// buildQuery matches the text against title, content and author, then
// applies the visibility scope.
func buildQuery(params Params) query.Query {
	text := strings.TrimSpace(params.Query)

	titleMatch := bleve.NewMatchQuery(text)
	titleMatch.SetField(fieldTitle)
	titleMatch.SetBoost(3.0)

	contentMatch := bleve.NewMatchQuery(text)
	contentMatch.SetField(fieldContent)

	authorMatch := bleve.NewMatchQuery(text)
	authorMatch.SetField(fieldAuthor)
	authorMatch.SetBoost(1.5)

	textQueries := []query.Query{titleMatch, contentMatch, authorMatch}

	// Typo tolerance and prefix matching only make sense for a single word.
	if word := strings.ToLower(text); !strings.ContainsAny(word, " \t") {
		fuzzy := bleve.NewFuzzyQuery(word)
		fuzzy.SetFuzziness(1)
		fuzzy.SetField(fieldTitle)
		fuzzy.SetBoost(0.8)
		textQueries = append(textQueries, fuzzy)

		if len(word) >= 2 {
			prefix := bleve.NewPrefixQuery(word)
			prefix.SetField(fieldTitle)
			prefix.SetBoost(0.5)
			textQueries = append(textQueries, prefix)
		}
	}

	must := []query.Query{bleve.NewDisjunctionQuery(textQueries...)}
	var mustNot []query.Query

	owner := bleve.NewTermQuery(ownerTerm(params.Viewer))
	owner.SetField(fieldOwner)
	public := bleve.NewBoolFieldQuery(true)
	public.SetField(fieldPublic)

	switch params.Scope {
	case ScopeMine:
		must = append(must, owner)
	case ScopePublic:
		must = append(must, public)
		mustNot = append(mustNot, owner)
	default:
		must = append(must, bleve.NewDisjunctionQuery(owner, public))
	}

	bq := bleve.NewBooleanQuery()
	bq.AddMust(must...)
	bq.AddMustNot(mustNot...)
	return bq
}
