// Package ingestion loads transcripts and speech turns into storage.
//
// The Pipeline type manages the ingestion workflow, including:
//   - Reading transcripts and speech turns from JSONL sources
//   - Filling in normalized speaker names and roles
//   - Generating missing embeddings asynchronously on a worker pool
//   - Recording per-source checkpoints so interrupted imports resume
//
// Errors during async embedding are logged but do not fail the ingestion
// operation; turns left without a vector can be embedded later with reembed.
package ingestion
