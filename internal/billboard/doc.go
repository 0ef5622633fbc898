// Package billboard implements the Hot 100 archive traversal and chart page
// extraction: discovering archive years, enumerating per-date chart pages, and
// turning a chart page into a validated, ranked list of 100 entries.
package billboard
