package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/soypete/volcasr/pkg/jobs"
	"github.com/soypete/volcasr/pkg/record"
	"github.com/soypete/volcasr/pkg/subtitle"
)

func writeJobs(w io.Writer, finished []*jobs.Job) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(finished); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

func writeTranscripts(w io.Writer, finished []*jobs.Job) error {
	for _, job := range finished {
		result, ok := job.Result.(*record.Result)
		if !ok {
			continue
		}
		if len(finished) > 1 {
			if _, err := fmt.Fprintf(w, "# %s\n", job.Source); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, result.Transcript()); err != nil {
			return err
		}
	}
	return nil
}

// writeSubtitles concatenates the cues of every finished job into one SubRip
// stream, numbered continuously in input order
func writeSubtitles(w io.Writer, finished []*jobs.Job) error {
	next := 1
	for _, job := range finished {
		result, ok := job.Result.(*subtitle.Result)
		if !ok {
			continue
		}
		var err error
		if next, err = result.WriteCues(w, next); err != nil {
			return err
		}
	}
	return nil
}

// failedJobs joins the errors of every failed job
func failedJobs(finished []*jobs.Job) error {
	var errs []error
	for _, job := range finished {
		if job.Status == jobs.StatusFailed {
			errs = append(errs, fmt.Errorf("%s: %s", job.Source, job.Error))
		}
	}
	return errors.Join(errs...)
}
