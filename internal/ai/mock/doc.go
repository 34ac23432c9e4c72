// Package mock provides deterministic test doubles for ai.Embedder and ai.Provider.
//
// The default Embedder hashes lower-cased words into a fixed number of buckets, so
// identical texts get identical vectors and texts sharing words get a positive
// cosine similarity. The default Provider answers "ok" and records every call.
package mock
