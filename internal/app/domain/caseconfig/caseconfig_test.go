package caseconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_ReportsAllWorkedScenarioProblems(t *testing.T) {
	starCostJackpot := int64(294)
	starCostBad := int64(-10)

	cfg := CaseConfig{
		ID:           "broken",
		Title:        "Broken Case",
		PriceStars:   100,
		RTPExtMin:    0.0,
		RTPExtMax:    1.0,
		JackpotAlpha: 0.5,
		Items: []PrizeItem{
			{ID: "jackpot", Kind: KindGift, StarCost: &starCostJackpot, ProbabilityPpm: 1_000_000},
			{ID: "gift-tiny", Kind: KindGift, StarCost: &starCostBad, ProbabilityPpm: 1},
			{ID: "internal-dust", Kind: KindInternal, ProbabilityPpm: 100_000},
		},
	}

	report := Validate(cfg)

	assert.False(t, report.IsOK)
	assert.Equal(t, 1_100_001, report.Preview.SumPpm)
	assert.Contains(t, report.Problems, "sumPpm=1100001 > 1_000_000")
	assert.Contains(t, report.Problems, "rtpExt=2.940000 вне коридора [0.000000, 1.000000]")
	assert.Contains(t, report.Problems, "jackpotAlpha=0.500000 вне диапазона [0.0, 0.2]")
	assert.Contains(t, report.Problems, "starCost=-10 < 0 for item gift-tiny")
}

func TestValidate_AcceptsWellFormedCase(t *testing.T) {
	giftCost := int64(50)

	cfg := CaseConfig{
		ID:           "starter",
		Title:        "Starter Case",
		PriceStars:   100,
		RTPExtMin:    0.2,
		RTPExtMax:    0.6,
		JackpotAlpha: 0.05,
		Items: []PrizeItem{
			{ID: "gift-small", Kind: KindGift, StarCost: &giftCost, ProbabilityPpm: 500_000},
			{ID: "internal-dust", Kind: KindInternal, ProbabilityPpm: 500_000},
		},
	}

	report := Validate(cfg)

	assert.True(t, report.IsOK)
	assert.Empty(t, report.Problems)
	assert.Equal(t, 1_000_000, report.Preview.SumPpm)
}

func TestResolveItem_MapsPPMByCumulativeRange(t *testing.T) {
	cost := int64(10)
	items := []PrizeItem{
		{ID: "a", Kind: KindGift, StarCost: &cost, ProbabilityPpm: 300_000},
		{ID: "b", Kind: KindGift, StarCost: &cost, ProbabilityPpm: 300_000},
	}

	assert.Equal(t, "a", ResolveItem(items, 0).ID)
	assert.Equal(t, "a", ResolveItem(items, 299_999).ID)
	assert.Equal(t, "b", ResolveItem(items, 300_000).ID)
	assert.Equal(t, "b", ResolveItem(items, 599_999).ID)
	assert.Nil(t, ResolveItem(items, 600_000))
}
