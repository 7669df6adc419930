package domain

import (
	"math"
	"sort"
)

// ComputeBookStats aggregates books in memory. Rankings keep the topN names
// with the most books; ties are ordered by name.
func ComputeBookStats(books []*Book, topN int) BookStats {
	stats := BookStats{
		TopAuthors:    []NameCount{},
		TopPublishers: []NameCount{},
	}
	if len(books) == 0 {
		return stats
	}

	authors := make(map[string]int)
	publishers := make(map[string]int)
	var priceSum float64
	stats.MinPrice = math.Inf(1)
	stats.MaxPrice = math.Inf(-1)

	for _, b := range books {
		stats.TotalBooks++
		stats.TotalPages += int64(b.Pages)
		priceSum += b.Price
		stats.MinPrice = math.Min(stats.MinPrice, b.Price)
		stats.MaxPrice = math.Max(stats.MaxPrice, b.Price)

		if b.Year > 0 {
			if stats.OldestYear == 0 || b.Year < stats.OldestYear {
				stats.OldestYear = b.Year
			}
			if b.Year > stats.NewestYear {
				stats.NewestYear = b.Year
			}
		}
		if b.Author != "" {
			authors[b.Author]++
		}
		if b.Publisher != "" {
			publishers[b.Publisher]++
		}
	}

	stats.AvgPrice = RoundPrice(priceSum / float64(stats.TotalBooks))
	stats.TopAuthors = TopNames(authors, topN)
	stats.TopPublishers = TopNames(publishers, topN)
	return stats
}

// TopNames ranks counts by total descending, then name ascending.
func TopNames(counts map[string]int, n int) []NameCount {
	ranked := make([]NameCount, 0, len(counts))
	for name, total := range counts {
		ranked = append(ranked, NameCount{Name: name, Total: total})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Total != ranked[j].Total {
			return ranked[i].Total > ranked[j].Total
		}
		return ranked[i].Name < ranked[j].Name
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// RoundPrice rounds to cents.
func RoundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}
