package history

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
)

// indexedDoc is the flattened shape bleve indexes: the Record's name
// plus every message's content concatenated, so a Search matches on
// conversation content, not just the saved name.
type indexedDoc struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	SavedAt int64  `json:"saved_at"`
}

// Index is an optional full-text index over saved conversations
// (SPEC_FULL.md §10), grounded on the teacher's bleve usage in
// internal/indexer for source-tree search. The CLI's /save adds records
// to it; no CLI command calls Search.
type Index struct {
	bi bleve.Index
}

// OpenIndex opens (or creates) a bleve index at path.
func OpenIndex(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == nil {
		return &Index{bi: idx}, nil
	}

	mapping := bleve.NewIndexMapping()
	idx, err = bleve.New(path, mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create history search index: %w", err)
	}
	return &Index{bi: idx}, nil
}

// Close closes the underlying bleve index.
func (i *Index) Close() error { return i.bi.Close() }

// Put (re)indexes r under its sanitized name.
func (i *Index) Put(r Record) error {
	var content strings.Builder
	for _, m := range r.Messages {
		content.WriteString(m.Content)
		content.WriteString("\n")
	}
	return i.bi.Index(r.Name, indexedDoc{Name: r.Name, Content: content.String(), SavedAt: r.SavedAt})
}

// Remove deletes a conversation's entry from the index.
func (i *Index) Remove(name string) error {
	return i.bi.Delete(SanitizeName(name))
}

// Search runs a free-text query and returns matching conversation names
// ranked by relevance.
func (i *Index) Search(query string) ([]string, error) {
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(q)
	result, err := i.bi.Search(req)
	if err != nil {
		return nil, fmt.Errorf("history search failed: %w", err)
	}

	names := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		names = append(names, hit.ID)
	}
	return names, nil
}
