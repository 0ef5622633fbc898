package billboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChartURL = "https://www.billboard.com/charts/hot-100/2009-04-11"

func TestExtractorGetTop100(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher()
	fetcher.pages[testChartURL] = chartHTML("Poker Face", "Lady Gaga", 99)

	page, err := NewExtractor(fetcher).GetTop100(context.Background(), testChartURL)
	require.NoError(t, err)
	require.Len(t, page.Entries, ChartSize)
	assert.Equal(t, ChartEntry{Song: "Poker Face", Artist: "Lady Gaga", Rank: "1"}, page.Entries[0])
	assert.Equal(t, "2", page.Entries[1].Rank)
	assert.Equal(t, "100", page.Entries[99].Rank)

	again, err := NewExtractor(fetcher).GetTop100(context.Background(), testChartURL)
	require.NoError(t, err)
	assert.Equal(t, page, again)
}

func TestExtractorGetTop100Errors(t *testing.T) {
	t.Parallel()

	t.Run("fetch failure", func(t *testing.T) {
		t.Parallel()
		fetcher := newStubFetcher()
		fetcher.fail[testChartURL] = errors.New("reset by peer")

		_, err := NewExtractor(fetcher).GetTop100(context.Background(), testChartURL)
		var fetchErr *FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Contains(t, err.Error(), testChartURL)
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()
		_, err := NewExtractor(newStubFetcher()).GetTop100(context.Background(), testChartURL)
		var fetchErr *FetchError
		require.ErrorAs(t, err, &fetchErr)
	})

	t.Run("partial page", func(t *testing.T) {
		t.Parallel()
		fetcher := newStubFetcher()
		fetcher.pages[testChartURL] = chartHTML("Poker Face", "Lady Gaga", 50)

		_, err := NewExtractor(fetcher).GetTop100(context.Background(), testChartURL)
		var mismatch *CountMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, 51, mismatch.Got)
		assert.Contains(t, err.Error(), testChartURL)
	})
}
