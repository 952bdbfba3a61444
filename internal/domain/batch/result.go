// Package batch describes per-item outcomes of bulk indexing.
package batch

import "github.com/kailas-cloud/vidrank/internal/domain/video"

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK      ItemStatus = "ok"
	StatusSkipped ItemStatus = "skipped"
	StatusError   ItemStatus = "error"
)

// Result is the outcome of processing one video in a bulk operation.
type Result struct {
	id     video.ID
	status ItemStatus
	err    error
}

// NewOK creates a successful result.
func NewOK(id video.ID) Result { return Result{id: id, status: StatusOK} }

// NewSkipped marks a video that needed no work.
func NewSkipped(id video.ID) Result { return Result{id: id, status: StatusSkipped} }

// NewError creates a failed result.
func NewError(id video.ID, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the video identifier.
func (r Result) ID() video.ID { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Summary counts results by status.
type Summary struct {
	OK      int
	Skipped int
	Failed  int
}

// Summarize counts results by status.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.status {
		case StatusOK:
			s.OK++
		case StatusSkipped:
			s.Skipped++
		case StatusError:
			s.Failed++
		}
	}
	return s
}

// Failures returns the failed results in input order.
func Failures(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.status == StatusError {
			out = append(out, r)
		}
	}
	return out
}
