// Package niche groups marketplace listings into niches and ranks them by
// demand, competition and price.
package niche

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/edvin/oportunia/internal/model"
)

const (
	weightDemand        = 0.4
	weightCompetition   = 0.4
	weightProfitability = 0.2

	minGroupSize = 2
	neutralScore = 50
)

type group struct {
	key           string
	totalItems    int
	uniqueSellers int
	totalSold     int
	avgPrice      float64
}

type bounds struct{ min, max float64 }

func newBounds(values []float64) bounds {
	b := bounds{min: math.Inf(1), max: math.Inf(-1)}
	for _, v := range values {
		b.min = math.Min(b.min, v)
		b.max = math.Max(b.max, v)
	}
	return b
}

// normalize maps v onto [0,100] relative to the bounds; a degenerate range
// yields the neutral score.
func (b bounds) normalize(v float64) float64 {
	if b.max == b.min {
		return neutralScore
	}
	n := (v - b.min) / (b.max - b.min) * 100
	return math.Min(100, math.Max(0, n))
}

// AnalyzeAndGroup groups listings by niche key, scores each group relative
// to the others and returns them sorted by descending score. Groups with
// fewer than two listings are dropped.
func AnalyzeAndGroup(listings []model.Listing) []model.NicheResult {
	groups := groupListings(listings)
	if len(groups) == 0 {
		return []model.NicheResult{}
	}

	sold := make([]float64, len(groups))
	items := make([]float64, len(groups))
	sellers := make([]float64, len(groups))
	prices := make([]float64, len(groups))
	for i, g := range groups {
		sold[i] = float64(g.totalSold)
		items[i] = float64(g.totalItems)
		sellers[i] = float64(g.uniqueSellers)
		prices[i] = g.avgPrice
	}

	soldBounds := newBounds(sold)
	demandMetric, demandBounds := sold, soldBounds
	// Without any sales data, listing count stands in for demand.
	if soldBounds.max == 0 {
		demandMetric, demandBounds = items, newBounds(items)
	}
	sellerBounds := newBounds(sellers)
	priceBounds := newBounds(prices)

	results := make([]model.NicheResult, len(groups))
	for i, g := range groups {
		demand := demandBounds.normalize(demandMetric[i])
		competition := sellerBounds.normalize(sellers[i])
		profitability := priceBounds.normalize(prices[i])

		score := demand*weightDemand + (100-competition)*weightCompetition + profitability*weightProfitability

		results[i] = model.NicheResult{
			Niche:         g.key,
			Score:         int(math.Round(score)),
			Demand:        int(math.Round(demand)),
			Competition:   int(math.Round(competition)),
			Profitability: int(math.Round(profitability)),
			AvgPrice:      math.Round(g.avgPrice*100) / 100,
			TotalSold:     g.totalSold,
			TotalItems:    g.totalItems,
			UniqueSellers: g.uniqueSellers,
			Explanation:   explain(g, demand, competition, profitability),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	threshold := results[len(results)/10].Score
	for i := range results {
		results[i].Badge = badgeFor(results[i], threshold)
	}

	return results
}

func groupListings(listings []model.Listing) []group {
	type acc struct {
		items   []model.Listing
		sellers map[int64]struct{}
	}

	var order []string
	byKey := make(map[string]*acc)
	for _, l := range listings {
		key, ok := ExtractKey(l.Title)
		if !ok {
			continue
		}
		a, seen := byKey[key]
		if !seen {
			a = &acc{sellers: make(map[int64]struct{})}
			byKey[key] = a
			order = append(order, key)
		}
		a.items = append(a.items, l)
		a.sellers[l.SellerID] = struct{}{}
	}

	var groups []group
	for _, key := range order {
		a := byKey[key]
		if len(a.items) < minGroupSize {
			continue
		}
		g := group{key: key, totalItems: len(a.items), uniqueSellers: len(a.sellers)}
		var priceSum float64
		for _, l := range a.items {
			if l.SoldQuantity > 0 {
				g.totalSold += l.SoldQuantity
			}
			priceSum += l.Price
		}
		g.avgPrice = priceSum / float64(g.totalItems)
		groups = append(groups, g)
	}
	return groups
}

func badgeFor(r model.NicheResult, top10Threshold int) model.Badge {
	switch {
	case r.Score >= top10Threshold:
		return model.BadgeTop10
	case r.Demand > 70 && r.Competition < 50:
		return model.BadgeRising
	case r.Competition > 70:
		return model.BadgeCompetitive
	default:
		return model.BadgeNone
	}
}

func explain(g group, demand, competition, profitability float64) string {
	var parts []string

	switch {
	case demand > 75:
		parts = append(parts, "Muy alta demanda")
	case demand > 50:
		parts = append(parts, "Buena demanda")
	case demand > 25:
		parts = append(parts, "Demanda moderada")
	default:
		parts = append(parts, "Baja demanda")
	}
	parts = append(parts, fmt.Sprintf("(%d ventas totales)", g.totalSold))

	switch {
	case competition < 25:
		parts = append(parts, "Muy baja competencia")
	case competition < 50:
		parts = append(parts, "Competencia moderada")
	case competition < 75:
		parts = append(parts, "Alta competencia")
	default:
		parts = append(parts, "Muy saturado")
	}
	parts = append(parts, fmt.Sprintf("(%d vendedores)", g.uniqueSellers))

	switch {
	case profitability > 70:
		parts = append(parts, "Precio alto")
	case profitability > 40:
		parts = append(parts, "Rango medio")
	default:
		parts = append(parts, "Precio bajo")
	}

	return strings.Join(parts, " · ")
}
