// Package caseconfig defines the case-economics data model (C8): case
// definitions, prize items, and validation invariants.
package caseconfig

import "fmt"

// PrizeKind enumerates the possible prize item kinds.
type PrizeKind string

const (
	KindPremium3M  PrizeKind = "PREMIUM_3M"
	KindPremium6M  PrizeKind = "PREMIUM_6M"
	KindPremium12M PrizeKind = "PREMIUM_12M"
	KindGift       PrizeKind = "GIFT"
	KindInternal   PrizeKind = "INTERNAL"
)

// External reports whether the kind is an externally fulfilled prize,
// requiring a non-negative StarCost (§3).
func (k PrizeKind) External() bool {
	return k != KindInternal
}

// PrizeItem is one entry in a case's prize table.
type PrizeItem struct {
	ID             string
	Kind           PrizeKind
	StarCost       *int64
	ProbabilityPpm int
}

// CaseConfig is one case's full (internal) definition.
type CaseConfig struct {
	ID           string
	Title        string
	PriceStars   int64
	RTPExtMin    float64
	RTPExtMax    float64
	JackpotAlpha float64
	Thumbnail    string
	Items        []PrizeItem
}

// CasesRoot is the top-level shape of the declarative cases file (§4.6).
type CasesRoot struct {
	Cases []CaseConfig
}

// PublicView is the subset of CaseConfig exposed on GET /api/miniapp/cases.
type PublicView struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	PriceStars int64  `json:"priceStars"`
	Thumbnail  string `json:"thumbnail,omitempty"`
}

// Public projects the internal config down to its public view.
func (c CaseConfig) Public() PublicView {
	return PublicView{ID: c.ID, Title: c.Title, PriceStars: c.PriceStars, Thumbnail: c.Thumbnail}
}

// Preview summarizes a case's computed economics, exposed via the admin
// preview endpoint.
type Preview struct {
	EVExt   float64
	RTPExt  float64
	SumPpm  int
	Alpha   float64
}

// ValidationReport is the outcome of validating one CaseConfig.
type ValidationReport struct {
	CaseID   string
	IsOK     bool
	Problems []string
	Preview  Preview
}

const ppmScale = 1_000_000

// Validate checks §3's load-time invariants and computes the economics
// preview, returning a report regardless of whether the case is valid — a
// rejected case still gets a preview, for operator diagnosis.
func Validate(c CaseConfig) ValidationReport {
	report := ValidationReport{CaseID: c.ID, IsOK: true}

	sumPpm := 0
	evExt := 0.0
	for _, item := range c.Items {
		if item.ProbabilityPpm < 0 || item.ProbabilityPpm > ppmScale {
			report.problem(fmt.Sprintf("item %s: probabilityPpm=%d out of [0, 1000000]", item.ID, item.ProbabilityPpm))
		}
		if item.Kind.External() {
			if item.StarCost == nil {
				report.problem(fmt.Sprintf("item %s: starCost required for external kind %s", item.ID, item.Kind))
			} else if *item.StarCost < 0 {
				report.problem(fmt.Sprintf("starCost=%d < 0 for item %s", *item.StarCost, item.ID))
			}
		}
		if item.StarCost != nil {
			evExt += float64(*item.StarCost) * float64(item.ProbabilityPpm) / float64(ppmScale)
		}
		sumPpm += item.ProbabilityPpm
	}

	if sumPpm > ppmScale {
		report.problem(fmt.Sprintf("sumPpm=%d > 1_000_000", sumPpm))
	}

	if c.JackpotAlpha < 0 || c.JackpotAlpha > 0.2 {
		report.problem(fmt.Sprintf("jackpotAlpha=%f вне диапазона [0.0, 0.2]", c.JackpotAlpha))
	}

	rtpExt := 0.0
	if c.PriceStars > 0 {
		rtpExt = evExt / float64(c.PriceStars)
	}
	if rtpExt < c.RTPExtMin || rtpExt > c.RTPExtMax {
		report.problem(fmt.Sprintf("rtpExt=%f вне коридора [%f, %f]", rtpExt, c.RTPExtMin, c.RTPExtMax))
	}

	report.Preview = Preview{EVExt: evExt, RTPExt: rtpExt, SumPpm: sumPpm, Alpha: c.JackpotAlpha}
	return report
}

func (r *ValidationReport) problem(msg string) {
	r.IsOK = false
	r.Problems = append(r.Problems, msg)
}

// ResolveItem maps a drawn ppm value to the item whose cumulative probability
// range covers it, in item declaration order. If no item covers ppm, the
// implicit INTERNAL slot is returned (empty item id) — §4.7 step 5.
func ResolveItem(items []PrizeItem, ppm int) *PrizeItem {
	cumulative := 0
	for i := range items {
		cumulative += items[i].ProbabilityPpm
		if ppm < cumulative {
			return &items[i]
		}
	}
	return nil
}
