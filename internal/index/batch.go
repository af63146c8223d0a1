package index

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/notevec/notevec/internal/store"
)

// DefaultChunkSize is the number of records committed per store write.
const DefaultChunkSize = 50

// ProgressFunc reports fractional progress in [0, 1]. Called once per chunk,
// success or failure; progress is chunk-granularity, not record-granularity.
type ProgressFunc func(fraction float64)

// ChunkResult reports the outcome of one chunk commit. Err is nil on
// success; on failure it carries the embed or store error for the whole
// chunk.
type ChunkResult struct {
	ChunkIndex int   // 0-based chunk position
	Start, End int   // record range [Start, End) within the input
	Err        error // nil when the chunk committed
}

// writeBatches partitions records into contiguous chunks of at most the
// table's batch size and commits each with a single store call. Chunks are
// committed strictly in input order, one at a time.
//
// The writer is best-effort and at-least-once per chunk, not all-or-nothing
// across the whole input: a chunk failure is logged, recorded in its
// ChunkResult and does not abort the remaining chunks. Completion therefore
// means "attempted all chunks"; callers needing strict confirmation verify
// with CountRows. An empty input produces no chunks and no progress calls.
func (t *Table) writeBatches(ctx context.Context, records []Record, onProgress ProgressFunc) []ChunkResult {
	if len(records) == 0 {
		return nil
	}

	chunkSize := t.batchSize
	totalChunks := (len(records) + chunkSize - 1) / chunkSize

	results := make([]ChunkResult, 0, totalChunks)
	for i := 0; i < len(records); i += chunkSize {
		end := i + chunkSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[i:end]

		result := ChunkResult{
			ChunkIndex: len(results),
			Start:      i,
			End:        end,
		}

		if err := t.commitChunk(ctx, chunk); err != nil {
			log.Warn("Chunk write failed, continuing",
				"chunk", result.ChunkIndex, "records", len(chunk), "error", err)
			result.Err = err
		}

		results = append(results, result)
		if onProgress != nil {
			onProgress(float64(len(results)) / float64(totalChunks))
		}
	}

	return results
}

// commitChunk embeds a chunk's contents and writes it in one atomic store
// call. The store call is transactional, so a failure leaves no
// vector-less rows behind.
//
// Empty-content records (unreadable or blank notes, indexed by path) are
// never sent to the embedder: providers reject empty input strings, and one
// blank note must not sink its 49 co-chunked neighbors. They get a zero
// vector instead.
func (t *Table) commitChunk(ctx context.Context, chunk []Record) error {
	var texts []string
	for _, r := range chunk {
		if r.Content != "" {
			texts = append(texts, r.Content)
		}
	}

	var embedded [][]float32
	if len(texts) > 0 {
		var err error
		embedded, err = t.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		if len(embedded) != len(texts) {
			return fmt.Errorf("embedder returned %d vectors for %d texts", len(embedded), len(texts))
		}
	}

	inputs := make([]store.NoteInput, len(chunk))
	vectors := make([][]float32, len(chunk))
	next := 0
	for i, r := range chunk {
		inputs[i] = store.NoteInput{
			NotePath:     r.NotePath,
			SubNoteIndex: r.SubNoteIndex,
			Content:      r.Content,
			Hash:         r.Hash,
			TimeAdded:    r.TimeAdded,
		}
		if r.Content == "" {
			vectors[i] = make([]float32, t.embedder.Dimensions())
		} else {
			vectors[i] = embedded[next]
			next++
		}
	}

	return t.store.AddNotes(t.index.ID, inputs, vectors)
}

// FailedChunks returns the results whose commit failed.
func FailedChunks(results []ChunkResult) []ChunkResult {
	var failed []ChunkResult
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}
