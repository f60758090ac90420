package subtitle

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/soypete/volcasr/pkg/client"
	"github.com/soypete/volcasr/pkg/poll"
	"github.com/soypete/volcasr/pkg/wire"
)

// Result is the generated subtitle track. Duration is in seconds.
type Result struct {
	Code       int             `json:"code"`
	Duration   decimal.Decimal `json:"duration"`
	ID         string          `json:"id"`
	Message    string          `json:"message"`
	Attribute  Attribute       `json:"attribute"`
	Utterances []Utterance     `json:"utterances"`
}

// Attribute is attached to results, utterances and words
type Attribute struct {
	Extra   *Extra  `json:"extra,omitempty"`
	Event   *string `json:"event,omitempty"`
	Speaker *string `json:"speaker,omitempty"`
}

// Extra describes what the service detected in the audio
type Extra struct {
	ASRService  string       `json:"asr_service"`
	CaptionType string       `json:"caption_type"`
	IsMandarin  wire.Boolean `json:"is_mandarin"`
	IsSpeech    wire.Boolean `json:"is_speech"`
	Language    string       `json:"language"`
}

// Utterance is one subtitle cue. Times are milliseconds.
type Utterance struct {
	StartTime int64     `json:"start_time"`
	EndTime   int64     `json:"end_time"`
	Text      string    `json:"text"`
	Words     []Word    `json:"words"`
	Attribute Attribute `json:"attribute"`
}

// Word is a timed word inside an utterance
type Word struct {
	Attribute Attribute `json:"attribute"`
	StartTime int64     `json:"start_time"`
	EndTime   int64     `json:"end_time"`
	Text      string    `json:"text"`
}

// Ready reports whether a non-blocking query returned the final track
func (r *Result) Ready() bool {
	return r.Code == CodeReady
}

// Wait asks the service to hold the query open until the job finishes and
// returns whatever it answers. There is no client-side retry.
func (r *Response) Wait(ctx context.Context, c *client.Client, appID string) (*Result, error) {
	c.Debugf("waiting appid=%s, id=%s", appID, r.ID)
	start := time.Now()

	result, err := r.query(ctx, c, appID, true)
	if err != nil {
		return nil, err
	}

	if m := c.Metrics(); m != nil {
		m.JobsCompleted.WithLabelValues(jobType).Inc()
		m.JobWait.WithLabelValues(jobType).Observe(time.Since(start).Seconds())
	}
	return result, nil
}

// Poll queries without blocking every opts.Interval until the service
// reports CodeReady. Any other code is treated as still running.
func (r *Response) Poll(ctx context.Context, c *client.Client, appID string, opts poll.Options) (*Result, error) {
	start := time.Now()

	var result *Result
	attempts, err := poll.Until(ctx, opts, func(ctx context.Context, n int) (bool, int, error) {
		res, err := r.query(ctx, c, appID, false)
		if err != nil {
			return false, 0, err
		}
		if !res.Ready() {
			c.Debugf("subtitle job id=%s not ready (attempt %d, code %d)", r.ID, n, res.Code)
			return false, res.Code, nil
		}
		result = res
		return true, res.Code, nil
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for subtitle job %s: %w", r.ID, err)
	}

	if m := c.Metrics(); m != nil {
		m.JobsCompleted.WithLabelValues(jobType).Inc()
		m.JobWait.WithLabelValues(jobType).Observe(time.Since(start).Seconds())
	}
	c.Debugf("subtitle job id=%s ready after %d attempts", r.ID, attempts)

	return result, nil
}

func (r *Response) query(ctx context.Context, c *client.Client, appID string, blocking bool) (*Result, error) {
	q := url.Values{}
	q.Set(ParamAppID, appID)
	q.Set("id", r.ID)
	if blocking {
		q.Set("blocking", "1")
	} else {
		q.Set("blocking", "0")
	}

	if m := c.Metrics(); m != nil {
		m.PollAttempts.WithLabelValues(jobType).Inc()
	}

	resp, err := c.Call(ctx, http.MethodGet, QueryPath, q, nil, nil)
	if err != nil {
		return nil, err
	}
	c.DebugJSON("REP", resp.Body)

	var result Result
	if err := wire.Decode("subtitle query", resp.Body, &result); err != nil {
		if werr, ok := err.(*wire.Error); ok {
			werr.StatusCode = resp.StatusCode
		}
		return nil, err
	}
	return &result, nil
}
