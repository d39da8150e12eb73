// Package caseloader implements the case config loader (C8): parses the
// declarative cases file, validates every case, and exposes an atomically
// swapped snapshot for hot reload, grounded on the teacher's
// services/datafeed/marble.LoadConfigFromFile pattern.
package caseloader

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/starvault/casebot/internal/app/domain/caseconfig"
	"gopkg.in/yaml.v3"
)

// wireRoot is the on-disk YAML shape; star costs are pointers so "absent"
// (internal prizes) is distinguishable from "zero".
type wireRoot struct {
	Cases []wireCase `yaml:"cases"`
}

type wireCase struct {
	ID           string     `yaml:"id"`
	Title        string     `yaml:"title"`
	PriceStars   int64      `yaml:"priceStars"`
	RTPExtMin    float64    `yaml:"rtpExtMin"`
	RTPExtMax    float64    `yaml:"rtpExtMax"`
	JackpotAlpha float64    `yaml:"jackpotAlpha"`
	Thumbnail    string     `yaml:"thumbnail,omitempty"`
	Items        []wireItem `yaml:"items"`
}

type wireItem struct {
	ID             string `yaml:"id"`
	Kind           string `yaml:"kind"`
	StarCost       *int64 `yaml:"starCost,omitempty"`
	ProbabilityPpm int    `yaml:"probabilityPpm"`
}

// Snapshot is one immutable, validated generation of the cases catalog.
type Snapshot struct {
	Cases   map[string]caseconfig.CaseConfig
	Reports map[string]caseconfig.ValidationReport
	Order   []string
}

// PublicList returns the public view of every OK case, in declaration order.
func (s *Snapshot) PublicList() []caseconfig.PublicView {
	out := make([]caseconfig.PublicView, 0, len(s.Order))
	for _, id := range s.Order {
		if report, ok := s.Reports[id]; ok && report.IsOK {
			out = append(out, s.Cases[id].Public())
		}
	}
	return out
}

// Loader parses and validates the cases file and exposes a hot-swappable
// snapshot. Rejected cases are dropped from the active snapshot but
// recorded in Reports for operator diagnosis (§4.6).
type Loader struct {
	path     string
	snapshot atomic.Pointer[Snapshot]
}

// New returns a Loader for the file at path. Call Reload at least once
// before Current returns a non-nil snapshot.
func New(path string) *Loader {
	return &Loader{path: path}
}

// Current returns the active snapshot, or nil if Reload has never
// succeeded.
func (l *Loader) Current() *Snapshot {
	return l.snapshot.Load()
}

// CaseLookup resolves a case's full config from the active snapshot,
// adapting Loader to payment.CaseLookup.
func (l *Loader) CaseLookup(caseID string) (caseconfig.CaseConfig, bool) {
	snap := l.Current()
	if snap == nil {
		return caseconfig.CaseConfig{}, false
	}
	cfg, ok := snap.Cases[caseID]
	return cfg, ok
}

// CaseItems resolves a case's prize table from the active snapshot,
// adapting Loader to rngsvc.CaseItemsLookup.
func (l *Loader) CaseItems(caseID string) ([]caseconfig.PrizeItem, bool) {
	cfg, ok := l.CaseLookup(caseID)
	if !ok {
		return nil, false
	}
	return cfg.Items, true
}

// Reload re-reads the cases file from disk, validates every case, and
// atomically swaps the active snapshot. A case that fails validation is
// excluded from the new snapshot's Cases/Order but still reported; failure
// to parse the file at all leaves the last-good snapshot in place and
// returns an error.
func (l *Loader) Reload() (*Snapshot, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read cases file: %w", err)
	}

	var wire wireRoot
	if err := yaml.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("parse cases file: %w", err)
	}

	next := &Snapshot{
		Cases:   make(map[string]caseconfig.CaseConfig, len(wire.Cases)),
		Reports: make(map[string]caseconfig.ValidationReport, len(wire.Cases)),
		Order:   make([]string, 0, len(wire.Cases)),
	}

	for _, wc := range wire.Cases {
		cfg := toCaseConfig(wc)
		report := caseconfig.Validate(cfg)
		next.Reports[cfg.ID] = report
		next.Order = append(next.Order, cfg.ID)
		if report.IsOK {
			next.Cases[cfg.ID] = cfg
		}
	}

	l.snapshot.Store(next)
	return next, nil
}

func toCaseConfig(wc wireCase) caseconfig.CaseConfig {
	items := make([]caseconfig.PrizeItem, 0, len(wc.Items))
	for _, wi := range wc.Items {
		items = append(items, caseconfig.PrizeItem{
			ID:             wi.ID,
			Kind:           caseconfig.PrizeKind(wi.Kind),
			StarCost:       wi.StarCost,
			ProbabilityPpm: wi.ProbabilityPpm,
		})
	}
	return caseconfig.CaseConfig{
		ID:           wc.ID,
		Title:        wc.Title,
		PriceStars:   wc.PriceStars,
		RTPExtMin:    wc.RTPExtMin,
		RTPExtMax:    wc.RTPExtMax,
		JackpotAlpha: wc.JackpotAlpha,
		Thumbnail:    wc.Thumbnail,
		Items:        items,
	}
}
