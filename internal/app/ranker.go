package app

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"grouptrip/internal/domain"
)

const (
	DefaultTopN = 3
	scoreEps    = 1e-9
)

type RankOptions struct {
	// TopN bounds how many options per category enter the combination.
	TopN int
	// Limit truncates the ranked list; 0 keeps every package.
	Limit int
}

type scoredOption struct {
	opt   domain.CategoryOption
	score float64
}

// Rank assembles candidate packages from a discovery result and orders them
// by the weighted multi-criteria score. It is a pure function of its inputs.
func Rank(res domain.DiscoveryResult, w domain.Weights, opts RankOptions) []domain.Package {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}

	present := make([]domain.Category, 0, len(domain.Categories))
	stats := make(map[domain.Category]categoryStats, len(domain.Categories))
	scored := make(map[domain.Category][]scoredOption, len(domain.Categories))
	for _, c := range domain.Categories {
		list := res.Options[c]
		if len(list) == 0 {
			continue
		}
		present = append(present, c)
		st := statsFor(list)
		stats[c] = st
		sw := w.SubFor(c)
		so := make([]scoredOption, len(list))
		for i, o := range list {
			so[i] = scoredOption{opt: o, score: optionScore(o, st, sw)}
		}
		scored[c] = so
	}
	if len(present) == 0 {
		return []domain.Package{}
	}

	var candidates []domain.Package
	if len(res.Provided) > 0 {
		candidates = singleCurrency(fromProvided(res, scored))
	}
	if len(candidates) == 0 {
		candidates = singleCurrency(combine(present, scored, opts.TopN))
	}

	for i := range candidates {
		scorePackage(&candidates[i], w, scored)
		candidates[i].SetOrder(i)
	}

	byCost := costDirection(present, w)
	sort.SliceStable(candidates, func(i, j int) bool {
		return less(candidates[i], candidates[j], byCost)
	})

	if opts.Limit > 0 && len(candidates) > opts.Limit {
		candidates = candidates[:opts.Limit]
	}
	return candidates
}

// less implements the ordering: provider score, computed score, total cost in
// the direction the dominant price weight asks for, then assembly order.
func less(a, b domain.Package, byCost int) bool {
	if a.ProviderScore != nil && b.ProviderScore != nil {
		if d := *a.ProviderScore - *b.ProviderScore; math.Abs(d) > scoreEps {
			return d > 0
		}
	}
	if d := a.Score - b.Score; math.Abs(d) > scoreEps {
		return d > 0
	}
	if byCost != 0 && a.TotalCost != b.TotalCost {
		if byCost > 0 {
			return a.TotalCost < b.TotalCost
		}
		return a.TotalCost > b.TotalCost
	}
	return a.Order() < b.Order()
}

// costDirection returns 1 (cheapest first), -1 (most expensive first) or 0
// from the price weight of the dominant category.
func costDirection(present []domain.Category, w domain.Weights) int {
	dominant := present[0]
	best := w.CategoryImportance[dominant]
	for _, c := range present[1:] {
		if v := w.CategoryImportance[c]; v > best {
			dominant, best = c, v
		}
	}
	switch pw := w.SubFor(dominant).Price; {
	case pw > 50:
		return 1
	case pw < 50:
		return -1
	default:
		return 0
	}
}

// topN returns the n best options of a category; ties keep discovery order.
func topN(so []scoredOption, n int) []scoredOption {
	out := append([]scoredOption(nil), so...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score+scoreEps })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// combine builds the Cartesian product of the per-category top-N lists in
// canonical category order.
func combine(present []domain.Category, scored map[domain.Category][]scoredOption, n int) []domain.Package {
	lists := make([][]scoredOption, len(present))
	total := 1
	for i, c := range present {
		lists[i] = topN(scored[c], n)
		total *= len(lists[i])
	}

	out := make([]domain.Package, 0, total)
	idx := make([]int, len(present))
	for {
		p := domain.Package{Options: make(map[domain.Category]domain.CategoryOption, len(present))}
		for i, c := range present {
			p.Options[c] = lists[i][idx[i]].opt
		}
		out = append(out, p)

		// odometer increment, last category fastest
		k := len(idx) - 1
		for k >= 0 {
			idx[k]++
			if idx[k] < len(lists[k]) {
				break
			}
			idx[k] = 0
			k--
		}
		if k < 0 {
			return out
		}
	}
}

// fromProvided resolves externally assembled packages against the discovered
// options. Packages that reference unknown options are skipped.
func fromProvided(res domain.DiscoveryResult, scored map[domain.Category][]scoredOption) []domain.Package {
	out := make([]domain.Package, 0, len(res.Provided))
	seen := make(map[string]struct{}, len(res.Provided))
outer:
	for _, pp := range res.Provided {
		if len(pp.Options) == 0 {
			continue
		}
		p := domain.Package{
			Options:     make(map[domain.Category]domain.CategoryOption, len(pp.Options)),
			Explanation: pp.Explanation,
		}
		for k, id := range pp.Options {
			c, err := domain.ParseCategory(string(k))
			if err != nil {
				continue outer
			}
			o, ok := res.Find(c, id)
			if !ok {
				continue outer
			}
			p.Options[c] = o
		}
		if pp.Score != nil {
			s := *pp.Score
			p.ProviderScore = &s
		}
		key := packageKey(p)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// singleCurrency drops packages whose options are priced in more than one
// currency.
func singleCurrency(ps []domain.Package) []domain.Package {
	out := ps[:0]
	for _, p := range ps {
		if cur := packageCurrencies(p); len(cur) <= 1 {
			out = append(out, p)
		}
	}
	return out
}

func packageKey(p domain.Package) string {
	ids := make(map[domain.Category]string, len(p.Options))
	for c, o := range p.Options {
		ids[c] = o.ID
	}
	return domain.PackageID(ids)
}

// scorePackage fills id, total cost, score and a best-effort explanation.
func scorePackage(p *domain.Package, w domain.Weights, scored map[domain.Category][]scoredOption) {
	cats := make([]domain.Category, 0, len(p.Options))
	for _, c := range domain.Categories {
		if _, ok := p.Options[c]; ok {
			cats = append(cats, c)
		}
	}
	frac := normalizeImportance(w.CategoryImportance, cats)

	type contribution struct {
		cat    domain.Category
		vendor string
		value  float64
		impact float64
	}
	var (
		total int64
		score float64
		parts = make([]contribution, 0, len(cats))
	)
	for _, c := range cats {
		o := p.Options[c]
		total += o.UnitPrice
		v := lookupScore(scored[c], o.ID)
		score += frac[c] * v
		parts = append(parts, contribution{cat: c, vendor: o.Vendor, value: v, impact: frac[c] * v})
	}
	p.ID = packageKey(*p)
	p.TotalCost = total
	p.Currency = domain.DefaultCurrency
	if cur := packageCurrencies(*p); len(cur) == 1 {
		p.Currency = cur[0]
	}
	p.Score = math.Round(score*1e6) / 1e6

	if p.Explanation != "" {
		return
	}
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].impact > parts[j].impact })
	if len(parts) > 3 {
		parts = parts[:3]
	}
	msgs := make([]string, 0, len(parts))
	for _, c := range parts {
		msgs = append(msgs, fmt.Sprintf("%s (%s)", reasonMessage(string(c.cat), c.value), c.vendor))
	}
	p.Explanation = strings.Join(msgs, "; ")
}

func lookupScore(so []scoredOption, id string) float64 {
	for _, s := range so {
		if s.opt.ID == id {
			return s.score
		}
	}
	return 0
}
