package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vanshika/comptree/backend/internal/domain"
)

// TaskError accumulates multiple errors produced during bulk work.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "multiple errors:"
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *TaskError) Unwrap() []error {
	return e.Errors
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// MemberWriter persists a member and its sponsor edge.
type MemberWriter interface {
	UpsertMember(ctx context.Context, rec domain.MemberRecord, sponsorID string) error
}

// BulkIngestor writes large member datasets using a worker pool.
type BulkIngestor struct {
	writer  MemberWriter
	workers int
	metrics *Metrics
}

// NewBulkIngestor creates a new BulkIngestor instance with the provided concurrency.
func NewBulkIngestor(writer MemberWriter, workers int, metrics *Metrics) *BulkIngestor {
	if workers <= 0 {
		workers = 4
	}
	return &BulkIngestor{
		writer:  writer,
		workers: workers,
		metrics: metrics,
	}
}

// IngestMembers validates and writes the provided members concurrently.
// Sponsors may appear after the members they introduce.
func (bi *BulkIngestor) IngestMembers(ctx context.Context, members []MemberInput) error {
	return runPool(ctx, bi.workers, len(members), func(idx int) error {
		in := members[idx]
		rec := in.ToRecord()
		err := bi.ingest(ctx, rec, normalizeMemberID(in.SponsorID))
		bi.metrics.recordIngest(err)
		return err
	})
}

func (bi *BulkIngestor) ingest(ctx context.Context, rec domain.MemberRecord, sponsorID string) error {
	if rec.ID == "" {
		return errors.New("member id is required")
	}
	if rec.Tier == "" {
		return fmt.Errorf("member %s: package tier is required", rec.ID)
	}
	if rec.Volume < 0 {
		return &domain.InvalidVolumeError{MemberID: rec.ID, Volume: rec.Volume}
	}
	return bi.writer.UpsertMember(ctx, rec, sponsorID)
}

// runPool calls workerFn for every index in [0, total) across workers goroutines and
// aggregates failures into a TaskError. Context errors are returned as-is.
func runPool(ctx context.Context, workers, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	if workers <= 0 {
		workers = 1
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	if err := ctx.Err(); err != nil {
		return err
	}

	var taskErr TaskError
	for err := range errCh {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}
