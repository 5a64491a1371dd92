package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"coinafrique-scraper/models"
	"coinafrique-scraper/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate computes the summary of a dataset. Only observed categories
// appear in the per-category maps. Means ignore rows whose price is missing
// and are themselves missing when no row is priced.
func (s *InsightService) Generate(listings []*models.Listing) *models.Summary {
	report := &models.Summary{
		CategoryCounts:      make(map[models.Category]int),
		MeanPriceByCategory: make(map[models.Category]models.Price),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalCount = len(listings)

	var total float64
	sums := make(map[models.Category]float64)
	priced := make(map[models.Category]int)

	for _, l := range listings {
		report.CategoryCounts[l.Category]++
		if !l.Price.Valid {
			continue
		}

		report.PricedCount++
		total += l.Price.Value
		sums[l.Category] += l.Price.Value
		priced[l.Category]++

		if !report.MinPrice.Valid || l.Price.Value < report.MinPrice.Value {
			report.MinPrice = l.Price
		}
		if !report.MaxPrice.Valid || l.Price.Value > report.MaxPrice.Value {
			report.MaxPrice = l.Price
			report.MostExpensive = l
		}
	}

	if report.PricedCount > 0 {
		report.MeanPrice = models.PriceOf(total / float64(report.PricedCount))
	}
	for cat := range report.CategoryCounts {
		if n := priced[cat]; n > 0 {
			report.MeanPriceByCategory[cat] = models.PriceOf(sums[cat] / float64(n))
		} else {
			report.MeanPriceByCategory[cat] = models.Missing
		}
	}

	s.logger.Debug("[insights] %d listings, %d priced, %d categories",
		report.TotalCount, report.PricedCount, report.ActiveCategories())
	return report
}

func (s *InsightService) Print(w io.Writer, r *models.Summary) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  COINAFRIQUE ANIMAL LISTINGS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total listings    : \033[1m%d\033[0m\n", r.TotalCount)
	fmt.Fprintf(w, "  Priced listings   : \033[1m%d\033[0m\n", r.PricedCount)
	fmt.Fprintf(w, "  Active categories : \033[1m%d\033[0m\n", r.ActiveCategories())
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Price Statistics (CFA)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.MeanPrice.Valid {
		fmt.Fprintf(w, "  Average price : \033[1;32m%s\033[0m\n", formatCFA(r.MeanPrice))
		fmt.Fprintf(w, "  Minimum price : \033[1;32m%s\033[0m\n", formatCFA(r.MinPrice))
		fmt.Fprintf(w, "  Maximum price : \033[1;32m%s\033[0m\n", formatCFA(r.MaxPrice))
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(models.Deref(r.MostExpensive.Details), 50))
		fmt.Fprintf(w, "  Location : %s\n", models.Deref(r.MostExpensive.Location))
		fmt.Fprintf(w, "  Price    : \033[1;31m%s\033[0m\n", formatCFA(r.MostExpensive.Price))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Listings by Category\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.CategoryCounts) == 0 {
		fmt.Fprintf(w, "  No listings\n")
	} else {
		type catCount struct {
			cat   models.Category
			count int
		}
		var cats []catCount
		for cat, cnt := range r.CategoryCounts {
			cats = append(cats, catCount{cat, cnt})
		}
		sort.Slice(cats, func(i, j int) bool {
			if cats[i].count == cats[j].count {
				return cats[i].cat < cats[j].cat
			}
			return cats[i].count > cats[j].count
		})
		for _, cc := range cats {
			fmt.Fprintf(w, "  %-26s %5d   avg %s\n",
				cc.cat.DisplayName(), cc.count, formatCFA(r.MeanPriceByCategory[cc.cat]))
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

// formatCFA renders a price with space-grouped thousands, "N/A" when missing.
func formatCFA(p models.Price) string {
	if !p.Valid {
		return "N/A"
	}
	digits := fmt.Sprintf("%.0f", p.Value)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String() + " CFA"
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
