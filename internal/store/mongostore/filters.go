package mongostore

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/livraria/livraria-api/internal/normalize"
	"github.com/livraria/livraria-api/internal/store"
)

// bsonField maps wire names to stored keys where they differ.
var bsonField = map[string]string{
	store.FieldCreatedAt: "createdAt",
	store.FieldUpdatedAt: "updatedAt",
}

func fieldKey(wire string) string {
	if k, ok := bsonField[wire]; ok {
		return k
	}
	return wire
}

// accentClasses lets a folded letter match its accented forms.
var accentClasses = map[rune]string{
	'a': "[aáàâãäåÁÀÂÃÄÅ]",
	'e': "[eéèêëÉÈÊË]",
	'i': "[iíìîïÍÌÎÏ]",
	'o': "[oóòôõöÓÒÔÕÖ]",
	'u': "[uúùûüÚÙÛÜ]",
	'c': "[cçÇ]",
	'n': "[nñÑ]",
}

// containsPattern builds a case- and accent-insensitive substring regex.
// Every other character is escaped, so user input never acts as a pattern.
func containsPattern(term string) primitive.Regex {
	var b strings.Builder
	for _, r := range normalize.Fold(term) {
		if class, ok := accentClasses[r]; ok {
			b.WriteString(class)
			continue
		}
		b.WriteString(regexp.QuoteMeta(string(r)))
	}
	return primitive.Regex{Pattern: b.String(), Options: "i"}
}

// buildBookFilter translates a BookQuery into a Mongo filter.
func buildBookFilter(q store.BookQuery) bson.M {
	filter := bson.M{}
	if q.Title != "" {
		filter["titulo"] = containsPattern(q.Title)
	}
	if q.Author != "" {
		filter["autor"] = containsPattern(q.Author)
	}
	if q.Publisher != "" {
		filter["editora"] = containsPattern(q.Publisher)
	}

	if q.YearMin != nil || q.YearMax != nil {
		year := bson.M{"$gt": 0}
		if q.YearMin != nil {
			year = bson.M{"$gte": *q.YearMin}
		}
		if q.YearMax != nil {
			year["$lte"] = *q.YearMax
		}
		filter["anoPublicacao"] = year
	}

	if q.PriceMin != nil || q.PriceMax != nil {
		price := bson.M{}
		if q.PriceMin != nil {
			price["$gte"] = *q.PriceMin
		}
		if q.PriceMax != nil {
			price["$lte"] = *q.PriceMax
		}
		filter["preco"] = price
	}
	return filter
}

// buildSort turns sort keys into an ordered bson.D, ending with _id so
// pages are stable.
func buildSort(fields []store.SortField) bson.D {
	if len(fields) == 0 {
		fields = store.DefaultBookSort
	}
	sort := make(bson.D, 0, len(fields)+1)
	for _, f := range fields {
		dir := 1
		if f.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: fieldKey(f.Field), Value: dir})
	}
	return append(sort, bson.E{Key: "_id", Value: 1})
}

// buildSearchFilter matches term against title, author, publisher or ISBN.
func buildSearchFilter(term string) bson.M {
	pattern := containsPattern(term)
	return bson.M{"$or": bson.A{
		bson.M{"titulo": pattern},
		bson.M{"autor": pattern},
		bson.M{"editora": pattern},
		bson.M{"isbn": pattern},
	}}
}

// buildUserFilter translates a UserQuery into a Mongo filter.
func buildUserFilter(q store.UserQuery) bson.M {
	filter := bson.M{}
	if q.Role != "" {
		filter["role"] = string(q.Role)
	}
	if q.Active != nil {
		filter["ativo"] = *q.Active
	}
	if q.Search != "" {
		pattern := containsPattern(q.Search)
		filter["$or"] = bson.A{
			bson.M{"nome": pattern},
			bson.M{"email": pattern},
		}
	}
	return filter
}

// statsPipeline aggregates the catalogue in a single $facet stage.
func statsPipeline(topN int) bson.A {
	ranking := func(field string) bson.A {
		return bson.A{
			bson.M{"$match": bson.M{field: bson.M{"$nin": bson.A{"", nil}}}},
			bson.M{"$group": bson.M{"_id": "$" + field, "total": bson.M{"$sum": 1}}},
			bson.M{"$sort": bson.D{{Key: "total", Value: -1}, {Key: "_id", Value: 1}}},
			bson.M{"$limit": topN},
		}
	}

	return bson.A{
		bson.M{"$facet": bson.M{
			"totais": bson.A{
				bson.M{"$group": bson.M{
					"_id":          nil,
					"totalLivros":  bson.M{"$sum": 1},
					"totalPaginas": bson.M{"$sum": "$paginas"},
					"precoMedio":   bson.M{"$avg": "$preco"},
					"precoMinimo":  bson.M{"$min": "$preco"},
					"precoMaximo":  bson.M{"$max": "$preco"},
				}},
			},
			"anos": bson.A{
				bson.M{"$match": bson.M{"anoPublicacao": bson.M{"$gt": 0}}},
				bson.M{"$group": bson.M{
					"_id":            nil,
					"anoMaisAntigo":  bson.M{"$min": "$anoPublicacao"},
					"anoMaisRecente": bson.M{"$max": "$anoPublicacao"},
				}},
			},
			"topAutores":  ranking("autor"),
			"topEditoras": ranking("editora"),
		}},
	}
}

type statsFacet struct {
	Totals []struct {
		TotalBooks int     `bson:"totalLivros"`
		TotalPages int64   `bson:"totalPaginas"`
		AvgPrice   float64 `bson:"precoMedio"`
		MinPrice   float64 `bson:"precoMinimo"`
		MaxPrice   float64 `bson:"precoMaximo"`
	} `bson:"totais"`
	Years []struct {
		Oldest int `bson:"anoMaisAntigo"`
		Newest int `bson:"anoMaisRecente"`
	} `bson:"anos"`
	TopAuthors    []rankRecord `bson:"topAutores"`
	TopPublishers []rankRecord `bson:"topEditoras"`
}

type rankRecord struct {
	Name  string `bson:"_id"`
	Total int    `bson:"total"`
}
