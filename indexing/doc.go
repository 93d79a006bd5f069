// Package indexing embeds content into the vector index.
//
// Indexer splits content into word-aligned chunks, embeds them on a bounded
// worker pool and replaces the stored chunks of that content for the model.
// BatchIndexer re-indexes the output of every completed text_cleanup task.
package indexing
