package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Indexed field names. Every text field holds the folded value
// (lowercase, no accents) as a single keyword term, so wildcard queries
// behave as substring matches over the whole value.
const (
	fieldTitle     = "titulo"
	fieldAuthor    = "autor"
	fieldPublisher = "editora"
	fieldISBN      = "isbn"
)

var searchableFields = []string{fieldTitle, fieldAuthor, fieldPublisher, fieldISBN}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	for _, name := range searchableFields {
		fm := bleve.NewKeywordFieldMapping()
		fm.Store = false
		docMapping.AddFieldMappingsAt(name, fm)
	}

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}
