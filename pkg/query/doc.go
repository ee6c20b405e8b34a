// Package query provides a staged builder that composes typed clauses into
// a single engine query plus sort and paging settings.
//
// A Builder holds at most one pending clause. Opening a new clause with
// WithField, WithFields, WithPhrase, WithWildcard or WithinRange first
// finalizes the pending one. Modifiers such as Mandatory or AsFilter apply
// to the pending clause only.
//
// Finalizing a clause runs term and term-range text through the analyzer
// (unless NoTokenize was set) and widens term queries to prefix queries
// (unless ExactMatch was set). Filters restrict the result set without
// being able to produce results on their own.
//
// Example:
//
//	def, err := query.New(analyzer).
//		WithField("title", document.StringValue("kettle")).Mandatory().
//		WithinRange("price", document.DoubleValue(10), document.DoubleValue(50), true, false).AsFilter().
//		SortBy("price", query.SortDouble).Ascending().
//		Build()
package query
