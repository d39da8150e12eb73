package caseloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
cases:
  - id: starter
    title: Starter Case
    priceStars: 100
    rtpExtMin: 0.2
    rtpExtMax: 0.95
    jackpotAlpha: 0.05
    items:
      - id: gift-small
        kind: GIFT
        starCost: 50
        probabilityPpm: 500000
      - id: internal-dust
        kind: INTERNAL
        probabilityPpm: 500000
`

const invalidYAML = `
cases:
  - id: broken
    title: Broken Case
    priceStars: 100
    rtpExtMin: 0.9
    rtpExtMax: 0.95
    jackpotAlpha: 0.05
    items:
      - id: gift-big
        kind: GIFT
        starCost: 10
        probabilityPpm: 1000000
`

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoader_ReloadValidatesAndPublishesSnapshot(t *testing.T) {
	path := writeFile(t, validYAML)
	loader := New(path)

	snap, err := loader.Reload()
	require.NoError(t, err)
	require.Len(t, snap.Order, 1)

	report := snap.Reports["starter"]
	assert.True(t, report.IsOK, report.Problems)

	public := snap.PublicList()
	require.Len(t, public, 1)
	assert.Equal(t, "starter", public[0].ID)
}

func TestLoader_FailedCaseExcludedButReported(t *testing.T) {
	path := writeFile(t, invalidYAML)
	loader := New(path)

	snap, err := loader.Reload()
	require.NoError(t, err)

	report := snap.Reports["broken"]
	assert.False(t, report.IsOK, "rtpExt outside the configured corridor must fail validation")
	assert.Empty(t, snap.PublicList(), "a failed case must not appear in the public listing")
}

func TestLoader_ReloadKeepsLastGoodSnapshotOnParseFailure(t *testing.T) {
	path := writeFile(t, validYAML)
	loader := New(path)

	_, err := loader.Reload()
	require.NoError(t, err)
	good := loader.Current()

	require.NoError(t, os.WriteFile(path, []byte("not: [valid yaml"), 0o644))
	_, err = loader.Reload()
	require.Error(t, err)

	assert.Same(t, good, loader.Current(), "a parse failure must not replace the last-good snapshot")
}
