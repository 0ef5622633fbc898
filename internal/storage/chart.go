// Package storage holds the layout shared by the blob-backed chart sinks.
package storage

import (
	"encoding/json"
	"fmt"
	"path"

	"github.com/JakeFAU/hot100-crawler/internal/billboard"
)

// ContentType is the media type of encoded chart objects.
const ContentType = "application/json"

const chartDir = "hot-100"

// ObjectPath returns the relative object path for a chart, e.g.
// "hot-100/1958-08-04.json". Charts without a date cannot be stored.
func ObjectPath(page billboard.ChartPage) (string, error) {
	date := page.Date
	if date == "" {
		date = billboard.ChartDateFromURL(page.URL)
	}
	if date == "" || date == "." || date == ".." {
		return "", fmt.Errorf("chart %s has no publication date", page.URL)
	}
	return path.Join(chartDir, date+".json"), nil
}

// Encode renders a chart as indented JSON.
func Encode(page billboard.ChartPage) ([]byte, error) {
	data, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode chart %s: %w", page.URL, err)
	}
	return append(data, '\n'), nil
}
