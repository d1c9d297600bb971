// Package reembed performs corpus-wide maintenance over stored speech turns:
// regenerating embeddings after an embedding model change and backfilling
// normalized speaker names and roles after the speaker parser improves.
//
// Both jobs walk the corpus in batches, report progress to a writer and, for
// calls to the embedding provider, retry with exponential backoff.
package reembed
