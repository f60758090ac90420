package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/soypete/volcasr/pkg/client"
	"github.com/soypete/volcasr/pkg/wire"
)

const (
	SubmitPath = "/api/v1/auc/submit"
	QueryPath  = "/api/v1/auc/query"

	// CodeReady is the only status code that marks a finished job
	CodeReady = 1000

	jobType = "record"
)

// Response acknowledges a submitted job. The identity fields are copied from
// the submitted request because querying needs them.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	ID      string `json:"id"`
	AppID   string `json:"appid,omitempty"`
	Token   string `json:"token,omitempty"`
	Cluster string `json:"cluster,omitempty"`
}

// Submit sends the request as JSON and unwraps the acknowledgment. The body
// is decoded whatever the HTTP status, since the service reports failures
// inside the envelope.
func (r Request) Submit(ctx context.Context, c *client.Client) (*Response, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, wire.Errorf(wire.KindDeserialization, "record submit", fmt.Errorf("failed to marshal request: %w", err))
	}
	c.DebugJSON("REQ", body)

	resp, err := c.Call(ctx, http.MethodPost, SubmitPath, nil, jsonHeader(), body)
	if err != nil {
		return nil, err
	}

	if resp.Success() {
		c.DebugJSON("REP", resp.Body)
	} else {
		c.ErrorJSON("REP", resp.Body)
	}

	inner, err := wire.UnwrapEnvelope(resp.Body)
	if err != nil {
		return nil, withStatus(err, resp.StatusCode)
	}

	var ack Response
	if err := wire.Decode("record submit", inner, &ack); err != nil {
		return nil, withStatus(err, resp.StatusCode)
	}

	ack.AppID = r.App.AppID
	ack.Token = r.App.Token
	ack.Cluster = r.App.Cluster

	if m := c.Metrics(); m != nil {
		m.JobsSubmitted.WithLabelValues(jobType).Inc()
	}

	return &ack, nil
}

func jsonHeader() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return h
}

func withStatus(err error, status int) error {
	var werr *wire.Error
	if errors.As(err, &werr) && werr.StatusCode == 0 {
		werr.StatusCode = status
	}
	return err
}
