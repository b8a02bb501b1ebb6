package app

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"grouptrip/internal/domain"
)

var (
	reHeadcount   = regexp.MustCompile(`(?i)(\d+)\s*(?:people|persons|guests|travell?ers|attendees|participants|employees|colleagues|pax)\b`)
	reTeamOf      = regexp.MustCompile(`(?i)(?:team|group)\s+of\s+(\d+)`)
	reDate        = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	reBudget      = regexp.MustCompile(`(?i)budget(?:\s+of|\s+is|:)?\s*(?:usd\s*)?\$?\s*([\d.,]+)\s*(k)?`)
	reDollars     = regexp.MustCompile(`(?i)\$\s*([\d.,]+)\s*(k)?`)
	reDestination = regexp.MustCompile(`\b(?:to|in|at)\s+([A-Z][\p{L}'\-]*(?:\s+[A-Z][\p{L}'\-]*)*)`)
)

// TextExtractor pulls requirements out of free text with plain patterns. It
// never fails; fields it cannot find stay zero for validation to report.
type TextExtractor struct{}

func (TextExtractor) Extract(_ context.Context, text string) (domain.TripRequirements, error) {
	var req domain.TripRequirements

	if m := reHeadcount.FindStringSubmatch(text); m != nil {
		req.Headcount = atoiSafe(m[1])
	} else if m := reTeamOf.FindStringSubmatch(text); m != nil {
		req.Headcount = atoiSafe(m[1])
	}

	dates := reDate.FindAllStringSubmatch(text, 2)
	if len(dates) > 0 {
		if t, err := time.Parse(time.DateOnly, dates[0][1]); err == nil {
			req.StartDate = t
		}
	}
	if len(dates) > 1 {
		if t, err := time.Parse(time.DateOnly, dates[1][1]); err == nil {
			req.EndDate = t
		}
	} else if !req.StartDate.IsZero() {
		req.EndDate = req.StartDate
	}

	m := reBudget.FindStringSubmatch(text)
	if m == nil {
		m = reDollars.FindStringSubmatch(text)
	}
	if m != nil {
		if f, ok := parseLooseNumber(m[1]); ok {
			if m[2] != "" {
				f *= 1000
			}
			req.Budget = toCents(f)
		}
	}

	if m := reDestination.FindStringSubmatch(text); m != nil {
		req.Destination = strings.TrimSpace(m[1])
	}
	return req, nil
}

func atoiSafe(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// FallbackExtractor tries Primary and falls back to Secondary on error.
type FallbackExtractor struct {
	Primary   domain.RequirementExtractor
	Secondary domain.RequirementExtractor
}

func (f FallbackExtractor) Extract(ctx context.Context, text string) (domain.TripRequirements, error) {
	req, err := f.Primary.Extract(ctx, text)
	if err == nil {
		return req, nil
	}
	log.Warn().Err(err).Msg("primary extractor failed, falling back")
	return f.Secondary.Extract(ctx, text)
}
