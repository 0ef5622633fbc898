package billboard

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CSS selectors for the archive and chart page markup.
const (
	yearItemSelector       = ".year-list__decade__dropdown__item"
	archiveLinkSelector    = ".archive-table tbody tr td a"
	numberOneTitleSelector = ".chart-number-one__title"
	numberOneArtistSelect  = ".chart-number-one__artist"
	chartListItemSelector  = ".chart-list-item"
)

// ParseYears extracts the year dropdown items of the archive root document.
// pageURL is only used for error reporting.
func ParseYears(doc *goquery.Document, base *url.URL, pageURL string) ([]YearEntry, error) {
	items := doc.Find(yearItemSelector)
	if items.Length() == 0 {
		return nil, &EmptyResultError{URL: pageURL, What: "years"}
	}
	years := make([]YearEntry, 0, items.Length())
	var parseErr error
	items.EachWithBreak(func(i int, s *goquery.Selection) bool {
		href, _ := s.Find("a").First().Attr("href")
		archiveURI, err := Resolve(base, href)
		if err != nil {
			parseErr = &InvalidEntryError{URL: pageURL, Index: i, Field: "href"}
			return false
		}
		years = append(years, YearEntry{
			Year:       strings.TrimSpace(s.Text()),
			ArchiveURI: archiveURI,
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return years, nil
}

// ParseChartDates extracts every chart link from a per-year Hot 100 listing.
func ParseChartDates(doc *goquery.Document, base *url.URL, pageURL string) ([]string, error) {
	links := doc.Find(archiveLinkSelector)
	dates := make([]string, 0, links.Length())
	var parseErr error
	links.EachWithBreak(func(i int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		chartURL, err := Resolve(base, href)
		if err != nil {
			parseErr = &InvalidEntryError{URL: pageURL, Index: i, Field: "href"}
			return false
		}
		dates = append(dates, chartURL)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return dates, nil
}

// ParseChart turns a chart-date document into a validated ChartPage.
// The result depends only on the document content.
func ParseChart(doc *goquery.Document, pageURL string) (ChartPage, error) {
	first := ChartEntry{
		Rank:   "1",
		Song:   strings.TrimSpace(doc.Find(numberOneTitleSelector).First().Text()),
		Artist: strings.TrimSpace(doc.Find(numberOneArtistSelect).First().Text()),
	}
	if first.Song == "" {
		return ChartPage{}, &InvalidEntryError{URL: pageURL, Index: 0, Field: "song"}
	}
	if first.Artist == "" {
		return ChartPage{}, &InvalidEntryError{URL: pageURL, Index: 0, Field: "artist"}
	}

	items := doc.Find(chartListItemSelector)
	entries := make([]ChartEntry, 0, items.Length()+1)
	entries = append(entries, first)

	var parseErr error
	items.EachWithBreak(func(i int, s *goquery.Selection) bool {
		entry, field := listItemEntry(s)
		if field != "" {
			parseErr = &InvalidEntryError{URL: pageURL, Index: i + 1, Field: field}
			return false
		}
		entries = append(entries, entry)
		return true
	})
	if parseErr != nil {
		return ChartPage{}, parseErr
	}

	if len(entries) != ChartSize {
		return ChartPage{}, &CountMismatchError{URL: pageURL, Got: len(entries), Want: ChartSize}
	}
	return ChartPage{
		URL:     pageURL,
		Date:    ChartDateFromURL(pageURL),
		Entries: entries,
	}, nil
}

// listItemEntry reads the data attributes of one chart list item and returns
// the name of the first invalid field, if any.
func listItemEntry(s *goquery.Selection) (ChartEntry, string) {
	entry := ChartEntry{
		Song:   trimmedAttr(s, "data-title"),
		Artist: trimmedAttr(s, "data-artist"),
		Rank:   trimmedAttr(s, "data-rank"),
	}
	switch {
	case entry.Song == "":
		return entry, "song"
	case entry.Artist == "":
		return entry, "artist"
	case !positiveInt(entry.Rank):
		return entry, "rank"
	}
	return entry, ""
}

func trimmedAttr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return strings.TrimSpace(v)
}

func positiveInt(raw string) bool {
	n, err := strconv.Atoi(raw)
	return err == nil && n > 0
}
