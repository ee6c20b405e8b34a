// Package index manages the lifecycle of one named search index.
//
// A Manager owns a directory, a lazily created writer and a lazily created,
// refreshable reader. Writes are chunked into batches of DefaultBatchSize
// documents and committed per batch. Engine failures are reported through
// Result values rather than errors so callers always get a summary of what
// was done; errors are reserved for invalid input and disposed managers.
//
// Managers are normally obtained from a provider.Provider, which caches one
// Manager per index name and evicts it when the Manager is closed.
package index
