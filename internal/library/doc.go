// Package library is the query façade over a corpus snapshot.
//
// A Library owns the current corpus, its search index and the snippet
// extractor as one immutable snapshot. Each operation validates its
// parameters, acquires the snapshot, runs the query and releases it.
// Reload builds a replacement snapshot off to the side and publishes it
// atomically; in-flight queries finish on the snapshot they started with.
//
// Operations:
//
//	Search         keyword search with filters, sorting and pagination
//	BookInfo       catalogue record and chapter list
//	Snippets       keyword windows or chapter openings, optionally cached
//	ChapterContent full chapter text with annotations and footnotes
//	Themes         most frequent terms of arbitrary text
package library
