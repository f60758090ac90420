package subtitle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/soypete/volcasr/pkg/client"
	"github.com/soypete/volcasr/pkg/wire"
)

const (
	SubmitPath = "/api/v1/vc/submit"
	QueryPath  = "/api/v1/vc/query"

	// CodeReady is reported by a non-blocking query once the job is done
	CodeReady = 0
	// CodeRunning is reported while the job is still processing
	CodeRunning = 2000

	jobType = "subtitle"
)

// Response acknowledges a submitted job
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

// Submit uploads the source with the job parameters in the query string. Any
// non-2xx status is returned as a transport error.
func (r Request) Submit(ctx context.Context, c *client.Client) (*Response, error) {
	header := http.Header{}
	var body []byte

	switch s := r.source.(type) {
	case BinarySource:
		header.Set("Content-Type", "audio/"+s.Type)
		body = s.Data
		c.Debugf("REQ: %d bytes of audio/%s", len(s.Data), s.Type)
	case URLSource:
		var err error
		body, err = json.Marshal(map[string]string{"url": string(s)})
		if err != nil {
			return nil, wire.Errorf(wire.KindDeserialization, "subtitle submit", fmt.Errorf("failed to marshal request: %w", err))
		}
		header.Set("Content-Type", "application/json")
		c.DebugJSON("REQ", body)
	default:
		return nil, wire.Errorf(wire.KindRequestBuild, "subtitle submit", fmt.Errorf("unsupported source %T", r.source))
	}

	resp, err := c.Call(ctx, http.MethodPost, SubmitPath, r.query(), header, body)
	if err != nil {
		return nil, err
	}

	if !resp.Success() {
		c.ErrorJSON("REP", resp.Body)
		return nil, &wire.Error{
			Kind:       wire.KindTransport,
			Op:         "subtitle submit",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", http.StatusText(resp.StatusCode)),
		}
	}
	c.DebugJSON("REP", resp.Body)

	var ack Response
	if err := wire.Decode("subtitle submit", resp.Body, &ack); err != nil {
		return nil, err
	}

	if m := c.Metrics(); m != nil {
		m.JobsSubmitted.WithLabelValues(jobType).Inc()
	}

	return &ack, nil
}
