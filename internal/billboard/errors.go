package billboard

import "fmt"

// FetchError reports a transport failure or an empty response body.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// EmptyResultError reports a required listing that produced no items.
type EmptyResultError struct {
	URL  string
	What string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("no %s found at %s", e.What, e.URL)
}

// InvalidEntryError reports a listing or chart row missing a required field.
// Index is the zero-based position of the row within the page.
type InvalidEntryError struct {
	URL   string
	Index int
	Field string
}

func (e *InvalidEntryError) Error() string {
	return fmt.Sprintf("invalid entry %d at %s: missing or malformed %s", e.Index, e.URL, e.Field)
}

// CountMismatchError reports a chart page whose entry count is not ChartSize.
type CountMismatchError struct {
	URL  string
	Got  int
	Want int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("chart %s has %d entries, want %d", e.URL, e.Got, e.Want)
}
