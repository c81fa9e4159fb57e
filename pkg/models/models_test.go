package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus_RankIsForwardOnly(t *testing.T) {
	assert.Less(t, JobPending.Rank(), JobProcessing.Rank())
	assert.Less(t, JobProcessing.Rank(), JobCompleted.Rank())
	assert.Equal(t, JobCompleted.Rank(), JobFailed.Rank())
	assert.Equal(t, -1, JobStatus("bogus").Rank())

	assert.False(t, JobPending.Terminal())
	assert.False(t, JobProcessing.Terminal())
	assert.True(t, JobCompleted.Terminal())
	assert.True(t, JobFailed.Terminal())
}

func TestParseJobStatus(t *testing.T) {
	s, err := ParseJobStatus("processing")
	require.NoError(t, err)
	assert.Equal(t, JobProcessing, s)

	_, err = ParseJobStatus("queued")
	assert.Error(t, err)
}

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform("kalshi")
	require.NoError(t, err)
	assert.Equal(t, PlatformKalshi, p)

	_, err = ParsePlatform("all")
	assert.Error(t, err)
}

func TestResearchJob_CloneIsDeep(t *testing.T) {
	done := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	job := &ResearchJob{
		ID:          "j1",
		Citations:   []Citation{{ID: "cite-1"}},
		CompletedAt: &done,
	}

	c := job.Clone()
	c.Citations[0].ID = "changed"
	*c.CompletedAt = done.Add(time.Hour)

	assert.Equal(t, "cite-1", job.Citations[0].ID)
	assert.Equal(t, done, *job.CompletedAt)
}

func TestMarketKey(t *testing.T) {
	m := Market{ID: "kalshi-fed-rate", Platform: PlatformKalshi}
	assert.Equal(t, "kalshi-kalshi-fed-rate", m.Key().String())
}

func TestMarketFilter_Validate(t *testing.T) {
	assert.NoError(t, DefaultMarketFilter().Validate())

	f := DefaultMarketFilter()
	f.SortBy = "popularity"
	assert.Error(t, f.Validate())

	f = DefaultMarketFilter()
	f.MinVolume = -1
	assert.Error(t, f.Validate())
}
