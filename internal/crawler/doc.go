// Package crawler implements the crawl engine that chains the archive
// navigator and the chart extractor and hands accepted charts to sinks.
package crawler
