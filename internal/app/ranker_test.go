package app_test

import (
	"reflect"
	"testing"

	"grouptrip/internal/app"
	"grouptrip/internal/domain"
)

func pfloat(f float64) *float64 { return &f }

func opt(c domain.Category, id, vendor string, cents int64) domain.CategoryOption {
	return domain.CategoryOption{ID: id, Category: c, Vendor: vendor, UnitPrice: cents, Currency: "USD"}
}

func hotelsOnly(w domain.Weights) domain.Weights {
	w.Sub[domain.CategoryHotel] = domain.SubWeights{Price: 80, Trust: 50, Location: 50, Amenities: 50}
	return w
}

func TestRank_CheaperHotelWinsWhenPriceFavored(t *testing.T) {
	res := domain.DiscoveryResult{Options: map[domain.Category][]domain.CategoryOption{
		domain.CategoryHotel: {
			opt(domain.CategoryHotel, "a", "A", 20000),
			opt(domain.CategoryHotel, "b", "B", 10000),
		},
	}}
	pkgs := app.Rank(res, hotelsOnly(domain.DefaultWeights()), app.RankOptions{})
	if len(pkgs) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(pkgs))
	}
	if pkgs[0].Options[domain.CategoryHotel].Vendor != "B" {
		t.Fatalf("expected hotel B first, got %s", pkgs[0].ID)
	}
	if pkgs[0].ID != "hotel:b" {
		t.Fatalf("unexpected id %q", pkgs[0].ID)
	}
}

func TestRank_TotalCostIsSumOfUnitPrices(t *testing.T) {
	res := domain.DiscoveryResult{Options: map[domain.Category][]domain.CategoryOption{
		domain.CategoryFlight:   {opt(domain.CategoryFlight, "f1", "TAP", 30000)},
		domain.CategoryHotel:    {opt(domain.CategoryHotel, "h1", "Alfama", 18000)},
		domain.CategoryCatering: {opt(domain.CategoryCatering, "c1", "Tasca", 4550)},
	}}
	pkgs := app.Rank(res, domain.DefaultWeights(), app.RankOptions{})
	if len(pkgs) != 1 {
		t.Fatalf("expected 1 package, got %d", len(pkgs))
	}
	if pkgs[0].TotalCost != 30000+18000+4550 {
		t.Fatalf("total cost = %d", pkgs[0].TotalCost)
	}
	if pkgs[0].ID != "flight:f1|hotel:h1|catering:c1" {
		t.Fatalf("unexpected id %q", pkgs[0].ID)
	}
	if pkgs[0].Explanation == "" {
		t.Fatal("expected an explanation")
	}
}

func TestRank_IsPure(t *testing.T) {
	res := domain.DiscoveryResult{Options: map[domain.Category][]domain.CategoryOption{
		domain.CategoryFlight: {opt(domain.CategoryFlight, "f1", "X", 30000), opt(domain.CategoryFlight, "f2", "Y", 25000)},
		domain.CategoryHotel:  {opt(domain.CategoryHotel, "h1", "A", 20000), opt(domain.CategoryHotel, "h2", "B", 10000)},
	}}
	res.Options[domain.CategoryHotel][0].Rating = pfloat(4.8)
	w := domain.DefaultWeights()

	first := app.Rank(res, w, app.RankOptions{})
	// a different ranking in between must not leak into the next call
	premium := domain.DefaultWeights()
	premium.Sub[domain.CategoryHotel] = domain.SubWeights{Price: 0, Trust: 100}
	_ = app.Rank(res, premium, app.RankOptions{})
	second := app.Rank(res, w, app.RankOptions{})

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("ranking not reproducible:\n%+v\n%+v", first, second)
	}
	if len(first) != 4 {
		t.Fatalf("expected 2x2 packages, got %d", len(first))
	}
}

func TestRank_EmptyDiscovery(t *testing.T) {
	pkgs := app.Rank(domain.DiscoveryResult{}, domain.DefaultWeights(), app.RankOptions{})
	if pkgs == nil || len(pkgs) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", pkgs)
	}
}

func TestRank_AbsentCategoryIsNotPenalized(t *testing.T) {
	res := domain.DiscoveryResult{Options: map[domain.Category][]domain.CategoryOption{
		domain.CategoryHotel: {opt(domain.CategoryHotel, "h1", "A", 10000)},
	}}
	res.Options[domain.CategoryHotel][0].Rating = pfloat(5)
	w := domain.DefaultWeights()
	w.Sub[domain.CategoryHotel] = domain.SubWeights{Trust: 100}
	pkgs := app.Rank(res, w, app.RankOptions{})
	if len(pkgs) != 1 || pkgs[0].Score != 1 {
		t.Fatalf("single-category package should score 1, got %+v", pkgs)
	}
}

func TestRank_TopNBoundsCombinations(t *testing.T) {
	var flights, hotels []domain.CategoryOption
	for i := 0; i < 6; i++ {
		flights = append(flights, opt(domain.CategoryFlight, string(rune('a'+i)), "F", int64(10000+i*1000)))
		hotels = append(hotels, opt(domain.CategoryHotel, string(rune('a'+i)), "H", int64(8000+i*500)))
	}
	res := domain.DiscoveryResult{Options: map[domain.Category][]domain.CategoryOption{
		domain.CategoryFlight: flights, domain.CategoryHotel: hotels,
	}}
	if n := len(app.Rank(res, domain.DefaultWeights(), app.RankOptions{})); n != 9 {
		t.Fatalf("default top-3 should give 9 packages, got %d", n)
	}
	if n := len(app.Rank(res, domain.DefaultWeights(), app.RankOptions{TopN: 2, Limit: 3})); n != 3 {
		t.Fatalf("limit 3 should give 3 packages, got %d", n)
	}
}

func TestRank_ProviderScoreOrdersFirst(t *testing.T) {
	res := domain.DiscoveryResult{
		Options: map[domain.Category][]domain.CategoryOption{
			domain.CategoryHotel: {
				opt(domain.CategoryHotel, "cheap", "A", 10000),
				opt(domain.CategoryHotel, "pricey", "B", 30000),
			},
		},
		Provided: []domain.ProvidedPackage{
			{Options: map[domain.Category]string{"hotel": "cheap"}, Score: pfloat(0.2)},
			{Options: map[domain.Category]string{"hotels": "pricey"}, Score: pfloat(0.9), Explanation: "partner pick"},
			{Options: map[domain.Category]string{"hotel": "ghost"}, Score: pfloat(1)},
		},
	}
	pkgs := app.Rank(res, hotelsOnly(domain.DefaultWeights()), app.RankOptions{})
	if len(pkgs) != 2 {
		t.Fatalf("unresolvable provider package should be skipped, got %d", len(pkgs))
	}
	if pkgs[0].ID != "hotel:pricey" || pkgs[0].Explanation != "partner pick" {
		t.Fatalf("provider score should win: %+v", pkgs[0])
	}
	if pkgs[0].ProviderScore == nil || *pkgs[0].ProviderScore != 0.9 {
		t.Fatalf("provider score not carried: %+v", pkgs[0])
	}
}

func TestRank_CostTieBreakFollowsPriceWeight(t *testing.T) {
	base := func() domain.DiscoveryResult {
		return domain.DiscoveryResult{Options: map[domain.Category][]domain.CategoryOption{
			domain.CategoryHotel:  {opt(domain.CategoryHotel, "h1", "A", 10000), opt(domain.CategoryHotel, "h2", "B", 10000)},
			domain.CategoryFlight: {opt(domain.CategoryFlight, "f1", "X", 20000)},
		}}
	}
	// hotel price weight 0: the pricier hotel scores the same as the cheap one
	res := base()
	res.Options[domain.CategoryHotel][1].UnitPrice = 15000

	w := domain.DefaultWeights()
	w.Sub[domain.CategoryHotel] = domain.SubWeights{Price: 0, Trust: 100}
	pkgs := app.Rank(res, w, app.RankOptions{})
	if pkgs[0].Score != pkgs[1].Score {
		t.Fatalf("expected tied scores, got %v vs %v", pkgs[0].Score, pkgs[1].Score)
	}
	if pkgs[0].TotalCost < pkgs[1].TotalCost {
		t.Fatalf("price weight below 50 should put the premium package first: %+v", pkgs)
	}

	// at exactly 50 the cost tier is skipped and assembly order decides
	w.Sub[domain.CategoryHotel] = domain.SubWeights{Price: 50}
	res = base()
	pkgs = app.Rank(res, w, app.RankOptions{})
	if pkgs[0].ID != "flight:f1|hotel:h1" {
		t.Fatalf("expected assembly order, got %s", pkgs[0].ID)
	}
}

func TestRank_DropsMixedCurrencyPackages(t *testing.T) {
	eurHotel := opt(domain.CategoryHotel, "h2", "Baixa", 9000)
	eurHotel.Currency = "EUR"
	res := domain.DiscoveryResult{Options: map[domain.Category][]domain.CategoryOption{
		domain.CategoryFlight: {opt(domain.CategoryFlight, "f1", "TAP", 30000)},
		domain.CategoryHotel:  {opt(domain.CategoryHotel, "h1", "Alfama", 18000), eurHotel},
	}}
	pkgs := app.Rank(res, domain.DefaultWeights(), app.RankOptions{})
	if len(pkgs) != 1 || pkgs[0].ID != "flight:f1|hotel:h1" || pkgs[0].Currency != "USD" {
		t.Fatalf("expected only the all-USD package, got %+v", pkgs)
	}
}
