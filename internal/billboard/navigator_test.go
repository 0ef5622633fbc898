package billboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestNavigator(t *testing.T, fetcher DocumentFetcher) *Navigator {
	t.Helper()
	base, err := ParseBase(DefaultBaseURL)
	require.NoError(t, err)
	return NewNavigator(fetcher, base, 2, zap.NewNop())
}

func TestNavigatorListYears(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher()
	fetcher.pages[testRootURL] = archiveRootHTML(
		yearFixture{label: "1959", href: "/archive/charts/1959"},
		yearFixture{label: "1958", href: "/archive/charts/1958"},
	)

	years, err := newTestNavigator(t, fetcher).ListYears(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []YearEntry{
		{Year: "1959", ArchiveURI: "https://www.billboard.com/archive/charts/1959"},
		{Year: "1958", ArchiveURI: "https://www.billboard.com/archive/charts/1958"},
	}, years)
	assert.Equal(t, []string{testRootURL}, fetcher.calls)
}

func TestNavigatorListYearsNoArchive(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher()
	fetcher.pages[testRootURL] = "<html><body><p>maintenance</p></body></html>"

	_, err := newTestNavigator(t, fetcher).ListYears(context.Background())
	var emptyErr *EmptyResultError
	require.ErrorAs(t, err, &emptyErr)
	assert.Contains(t, err.Error(), testRootURL)
}

func TestNavigatorListYearsFetchError(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher()
	fetcher.fail[testRootURL] = errors.New("connection refused")

	_, err := newTestNavigator(t, fetcher).ListYears(context.Background())
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, testRootURL, fetchErr.URL)
}

func TestNavigatorListChartDates(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher()
	fetcher.pages["https://www.billboard.com/archive/charts/1959/hot-100"] = yearListingHTML(
		"/charts/hot-100/1959-01-05",
		"/charts/hot-100/1959-01-12",
	)
	fetcher.pages["https://www.billboard.com/archive/charts/1958/hot-100"] = yearListingHTML(
		"/charts/hot-100/1958-08-04",
	)
	fetcher.pages["https://www.billboard.com/archive/charts/1960/hot-100"] = yearListingHTML(
		"/charts/hot-100/1960-01-04",
	)

	years := []YearEntry{
		{Year: "1959", ArchiveURI: "https://www.billboard.com/archive/charts/1959"},
		{Year: "1958", ArchiveURI: "https://www.billboard.com/archive/charts/1958"},
		{Year: "1960", ArchiveURI: "https://www.billboard.com/archive/charts/1960"},
	}
	dates, err := newTestNavigator(t, fetcher).ListChartDates(context.Background(), years)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.billboard.com/charts/hot-100/1959-01-05",
		"https://www.billboard.com/charts/hot-100/1959-01-12",
		"https://www.billboard.com/charts/hot-100/1958-08-04",
		"https://www.billboard.com/charts/hot-100/1960-01-04",
	}, dates)
}

func TestNavigatorListChartDatesYearFailureAborts(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher()
	fetcher.pages["https://www.billboard.com/archive/charts/1959/hot-100"] = yearListingHTML("/charts/hot-100/1959-01-05")
	fetcher.fail["https://www.billboard.com/archive/charts/1958/hot-100"] = errors.New("timeout")

	years := []YearEntry{
		{Year: "1959", ArchiveURI: "https://www.billboard.com/archive/charts/1959"},
		{Year: "1958", ArchiveURI: "https://www.billboard.com/archive/charts/1958"},
	}
	dates, err := newTestNavigator(t, fetcher).ListChartDates(context.Background(), years)
	require.Error(t, err)
	assert.Nil(t, dates)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "https://www.billboard.com/archive/charts/1958/hot-100", fetchErr.URL)
	assert.Contains(t, err.Error(), "year 1958")
}

func TestNavigatorListChartDatesNoYears(t *testing.T) {
	t.Parallel()

	dates, err := newTestNavigator(t, newStubFetcher()).ListChartDates(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, dates)
}
