package record

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/soypete/volcasr/pkg/client"
	"github.com/soypete/volcasr/pkg/poll"
	"github.com/soypete/volcasr/pkg/wire"
)

// Result is the final transcription of a job
type Result struct {
	ID         string      `json:"id"`
	Code       int         `json:"code"`
	Message    string      `json:"message"`
	Text       *string     `json:"text,omitempty"`
	Additions  *Additions  `json:"additions,omitempty"`
	Utterances []Utterance `json:"utterances"`
}

// Utterance is a timed span of speech. Times are milliseconds from the start
// of the audio; ordering is whatever the service returned.
type Utterance struct {
	StartTime int64               `json:"start_time"`
	EndTime   int64               `json:"end_time"`
	Text      string              `json:"text"`
	Words     []Word              `json:"words"`
	Additions *UtteranceAdditions `json:"additions,omitempty"`
}

// Word is a single recognized word inside an utterance
type Word struct {
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	Text      string `json:"text"`
}

// UtteranceAdditions carries per-utterance attributes
type UtteranceAdditions struct {
	Event   *string `json:"event,omitempty"`
	Speaker *string `json:"speaker,omitempty"`
}

// Transcript returns the overall text, or the utterances joined when the
// service omitted it
func (r *Result) Transcript() string {
	if r.Text != nil {
		return *r.Text
	}
	parts := make([]string, 0, len(r.Utterances))
	for _, u := range r.Utterances {
		parts = append(parts, u.Text)
	}
	return strings.Join(parts, " ")
}

type queryBody struct {
	AppID   string `json:"appid"`
	Token   string `json:"token"`
	Cluster string `json:"cluster"`
	ID      string `json:"id"`
}

// Query issues a single status request. The result is nil until the job is
// ready; the returned code is the status the service reported (0 if it sent
// none).
func (r *Response) Query(ctx context.Context, c *client.Client) (*Result, int, error) {
	body, err := json.Marshal(queryBody{
		AppID:   r.AppID,
		Token:   r.Token,
		Cluster: r.Cluster,
		ID:      r.ID,
	})
	if err != nil {
		return nil, 0, wire.Errorf(wire.KindDeserialization, "record query", fmt.Errorf("failed to marshal query: %w", err))
	}

	if m := c.Metrics(); m != nil {
		m.PollAttempts.WithLabelValues(jobType).Inc()
	}

	resp, err := c.Call(ctx, http.MethodPost, QueryPath, nil, jsonHeader(), body)
	if err != nil {
		return nil, 0, err
	}

	inner, err := wire.UnwrapEnvelope(resp.Body)
	if err != nil {
		return nil, 0, withStatus(err, resp.StatusCode)
	}
	c.DebugJSON("REP", inner)

	var status struct {
		Code *int `json:"code"`
	}
	if err := wire.Decode("record query", inner, &status); err != nil {
		return nil, 0, withStatus(err, resp.StatusCode)
	}
	if status.Code == nil {
		return nil, 0, nil
	}
	if *status.Code != CodeReady {
		return nil, *status.Code, nil
	}

	var result Result
	if err := wire.Decode("record result", inner, &result); err != nil {
		return nil, *status.Code, withStatus(err, resp.StatusCode)
	}
	return &result, *status.Code, nil
}

// Wait queries the job every opts.Interval until the service reports it
// ready. Any status other than CodeReady means "not yet"; transport and
// decoding failures end the wait immediately. With a zero MaxAttempts the
// loop only ends on success, error or ctx cancellation.
func (r *Response) Wait(ctx context.Context, c *client.Client, opts poll.Options) (*Result, error) {
	c.Debugf("waiting for record job id=%s", r.ID)
	start := time.Now()

	var result *Result
	attempts, err := poll.Until(ctx, opts, func(ctx context.Context, n int) (bool, int, error) {
		res, code, err := r.Query(ctx, c)
		if err != nil {
			return false, code, err
		}
		if res == nil {
			c.Debugf("record job id=%s not ready (attempt %d, code %d)", r.ID, n, code)
			return false, code, nil
		}
		result = res
		return true, code, nil
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for record job %s: %w", r.ID, err)
	}

	if m := c.Metrics(); m != nil {
		m.JobsCompleted.WithLabelValues(jobType).Inc()
		m.JobWait.WithLabelValues(jobType).Observe(time.Since(start).Seconds())
	}
	c.Debugf("record job id=%s ready after %d attempts", r.ID, attempts)

	return result, nil
}
