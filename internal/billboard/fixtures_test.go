package billboard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// stubFetcher serves canned HTML keyed by URL.
type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	fail  map[string]error
	calls []string
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		pages: make(map[string]string),
		fail:  make(map[string]error),
	}
}

func (s *stubFetcher) FetchDocument(_ context.Context, rawURL string) (*goquery.Document, error) {
	s.mu.Lock()
	s.calls = append(s.calls, rawURL)
	body, ok := s.pages[rawURL]
	failErr := s.fail[rawURL]
	s.mu.Unlock()

	if failErr != nil {
		return nil, &FetchError{URL: rawURL, Err: failErr}
	}
	if !ok || body == "" {
		return nil, &FetchError{URL: rawURL, Err: errors.New("empty response body")}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	return doc, nil
}

func mustDoc(html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		panic(err)
	}
	return doc
}

type yearFixture struct {
	label string
	href  string
}

func archiveRootHTML(years ...yearFixture) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="year-list"><ul class="year-list__decade">`)
	for _, y := range years {
		fmt.Fprintf(&b,
			`<li class="year-list__decade__dropdown__item">
				<a href="%s">  %s  </a>
			</li>`, y.href, y.label)
	}
	b.WriteString(`</ul></div></body></html>`)
	return b.String()
}

func yearListingHTML(hrefs ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="archive-table"><thead><tr><th><a href="/ignored">Issue</a></th></tr></thead><tbody>`)
	for _, h := range hrefs {
		fmt.Fprintf(&b, `<tr><td><a href=" %s ">%s</a></td><td>song</td></tr>`, h, h)
	}
	b.WriteString(`</tbody></table></body></html>`)
	return b.String()
}

func listItem(rank int, title, artist string) string {
	return fmt.Sprintf(
		`<div class="chart-list-item" data-rank=" %d " data-title=" %s " data-artist=" %s "></div>`,
		rank, title, artist,
	)
}

// chartHTML builds a chart page with a number-one block and listItems
// entries ranked 2..listItems+1.
func chartHTML(title, artist string, listItems int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<html><body>
		<div class="chart-number-one">
			<div class="chart-number-one__title">
				%s
			</div>
			<div class="chart-number-one__artist"> %s </div>
		</div><div class="chart-list">`, title, artist)
	for i := 0; i < listItems; i++ {
		rank := i + 2
		b.WriteString(listItem(rank, "Song "+strconv.Itoa(rank), "Artist "+strconv.Itoa(rank)))
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}
