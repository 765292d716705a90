package main

import (
	"context"
	"log"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultBatchSize keeps one request well inside the D1 execution window
	DefaultBatchSize = 400
	// MaxBatchSize is the largest accepted batch size
	MaxBatchSize = 1000
	// snippetLength bounds the payload prefix carried by UploadError
	snippetLength = 200
)

// Executor runs one combined payload of newline-joined statements
type Executor interface {
	Execute(ctx context.Context, sql string) error
}

// Batches splits stmts into contiguous slices of at most size statements,
// preserving order. The returned slices share stmts' backing array.
func Batches(stmts []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]string, 0, (len(stmts)+size-1)/size)
	for start := 0; start < len(stmts); start += size {
		end := min(start+size, len(stmts))
		batches = append(batches, stmts[start:end:end])
	}
	return batches
}

// Uploader applies a statement sequence batch by batch
type Uploader struct {
	BatchSize int
}

// NewUploader creates an uploader with the given batch size
func NewUploader(batchSize int) *Uploader {
	return &Uploader{BatchSize: batchSize}
}

// Upload submits every batch to exec in order and stops at the first failure,
// which is returned as *UploadError. Failed batches are not retried and
// already-applied batches are not rolled back.
func (u *Uploader) Upload(ctx context.Context, target string, exec Executor, stmts []string) error {
	batches := Batches(stmts, u.BatchSize)
	first := 1
	for i, batch := range batches {
		last := first + len(batch) - 1
		payload := strings.Join(batch, "\n")

		log.Printf("Uploading statements %d-%d of %d to %s (batch %d/%d)...",
			first, last, len(stmts), target, i+1, len(batches))

		err := ctx.Err()
		if err == nil {
			err = exec.Execute(ctx, payload)
		}
		if err != nil {
			return &UploadError{Target: target, Batch: i + 1, Batches: len(batches),
				First: first, Last: last, Snippet: snippet(payload), Err: err}
		}
		first = last + 1
	}
	log.Printf("Applied %d statements to %s in %d batches.", len(stmts), target, len(batches))
	return nil
}

// snippet returns at most snippetLength runes of s
func snippet(s string) string {
	if utf8.RuneCountInString(s) <= snippetLength {
		return s
	}
	n := 0
	for i := range s {
		if n == snippetLength {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
