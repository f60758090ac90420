package subtitle

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soypete/volcasr/pkg/client"
	"github.com/soypete/volcasr/pkg/poll"
	"github.com/soypete/volcasr/pkg/wire"
)

const sampleResult = `{
	"code": 0,
	"duration": 3.52,
	"id": "S1",
	"message": "Success",
	"attribute": {"extra": {"asr_service": "volc", "caption_type": "speech", "is_mandarin": "True", "is_speech": "True", "language": "zh-CN"}},
	"utterances": [
		{"start_time": 0, "end_time": 1500, "text": "hello",
		 "words": [{"attribute": {"event": "speech"}, "start_time": 0, "end_time": 1500, "text": "hello"}],
		 "attribute": {"speaker": "1"}},
		{"start_time": 3723004, "end_time": 3724000, "text": " later ", "words": [], "attribute": {}}
	]
}`

func newClient(t *testing.T, url string) *client.Client {
	t.Helper()
	c, err := client.New(client.Config{
		BaseURL:     url,
		AccessToken: "access",
		Timeout:     5 * time.Second,
		Logger:      log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)
	return c
}

func TestSubmit_Binary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, SubmitPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "audio/mp3", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer; access", r.Header.Get("Authorization"))
		assert.Equal(t, "A", r.URL.Query().Get("appid"))
		assert.Equal(t, "True", r.URL.Query().Get("with_speaker_info"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte("binary-audio"), body)

		w.Write([]byte(`{"code":0,"message":"Success","id":"S1"}`))
	}))
	defer server.Close()

	req, err := NewBuilder().
		AppID("A").
		WithSpeakerInfo(true).
		Source(BinarySource{Type: "mp3", Data: []byte("binary-audio")}).
		Build()
	require.NoError(t, err)

	ack, err := req.Submit(context.Background(), newClient(t, server.URL))
	require.NoError(t, err)
	assert.Equal(t, Response{Code: 0, Message: "Success", ID: "S1"}, *ack)
}

func TestSubmit_URL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "15", r.URL.Query().Get("words_per_line"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"url": "http://x/y.mp3"}, body)

		w.Write([]byte(`{"code":0,"message":"Success","id":"S2"}`))
	}))
	defer server.Close()

	req, err := NewBuilder().AppID("A").WordsPerLine(15).Source(URLSource("http://x/y.mp3")).Build()
	require.NoError(t, err)

	ack, err := req.Submit(context.Background(), newClient(t, server.URL))
	require.NoError(t, err)
	assert.Equal(t, "S2", ack.ID)
}

func TestSubmit_FailureStatus(t *testing.T) {
	for _, src := range []Source{URLSource("http://x/y.mp3"), BinarySource{Type: "wav", Data: []byte("x")}} {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"code":1001,"message":"unauthorized","id":""}`))
		}))

		req, err := NewBuilder().AppID("A").Source(src).Build()
		require.NoError(t, err)

		_, err = req.Submit(context.Background(), newClient(t, server.URL))
		require.Error(t, err)
		assert.ErrorIs(t, err, wire.ErrTransport)

		var werr *wire.Error
		require.ErrorAs(t, err, &werr)
		assert.Equal(t, http.StatusUnauthorized, werr.StatusCode)
		assert.Equal(t, int32(1), attempts.Load(), "no retry on failure status")

		server.Close()
	}
}

func TestSubmit_MalformedAck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"zero"}`))
	}))
	defer server.Close()

	req, err := NewBuilder().AppID("A").Source(URLSource("http://x")).Build()
	require.NoError(t, err)

	_, err = req.Submit(context.Background(), newClient(t, server.URL))
	assert.ErrorIs(t, err, wire.ErrDeserialization)
}

func TestWait_SingleBlockingQuery(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		assert.Equal(t, QueryPath, r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "A", r.URL.Query().Get("appid"))
		assert.Equal(t, "S1", r.URL.Query().Get("id"))
		assert.Equal(t, "1", r.URL.Query().Get("blocking"))

		w.Write([]byte(sampleResult))
	}))
	defer server.Close()

	ack := &Response{ID: "S1"}
	result, err := ack.Wait(context.Background(), newClient(t, server.URL), "A")
	require.NoError(t, err)

	assert.Equal(t, int32(1), attempts.Load())
	assert.True(t, result.Ready())
	assert.True(t, decimal.RequireFromString("3.52").Equal(result.Duration))
	require.NotNil(t, result.Attribute.Extra)
	assert.True(t, result.Attribute.Extra.IsMandarin.Bool())
	assert.Equal(t, "zh-CN", result.Attribute.Extra.Language)
	require.Len(t, result.Utterances, 2)
	assert.Equal(t, "1", *result.Utterances[0].Attribute.Speaker)
	assert.Equal(t, "speech", *result.Utterances[0].Words[0].Attribute.Event)
}

func TestWait_HeldQueryIsNotCutShort(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("blocking"))
		// The service answers only once the job is done
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(sampleResult))
	}))
	defer server.Close()

	held, err := client.New(client.Config{
		BaseURL:     server.URL,
		AccessToken: "access",
		Logger:      log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)

	result, err := (&Response{ID: "S1"}).Wait(context.Background(), held, "A")
	require.NoError(t, err)
	assert.True(t, result.Ready())

	// A per-request limit is opt-in and applies to the held query too
	limited, err := client.New(client.Config{
		BaseURL:     server.URL,
		AccessToken: "access",
		Timeout:     50 * time.Millisecond,
		Logger:      log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)

	_, err = (&Response{ID: "S1"}).Wait(context.Background(), limited, "A")
	assert.ErrorIs(t, err, wire.ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWait_NotReadyIsReturnedAsIs(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Write([]byte(`{"code":2000,"message":"running","id":"S1","attribute":{},"utterances":[]}`))
	}))
	defer server.Close()

	result, err := (&Response{ID: "S1"}).Wait(context.Background(), newClient(t, server.URL), "A")
	require.NoError(t, err)
	assert.Equal(t, CodeRunning, result.Code)
	assert.False(t, result.Ready())
	assert.Equal(t, int32(1), attempts.Load())
}

func TestWait_DecodeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"code":0,"attribute":{"extra":{"is_mandarin":"yes"}}}`))
	}))
	defer server.Close()

	_, err := (&Response{ID: "S1"}).Wait(context.Background(), newClient(t, server.URL), "A")
	require.Error(t, err)
	assert.ErrorIs(t, err, wire.ErrDeserialization)

	var werr *wire.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, http.StatusInternalServerError, werr.StatusCode)
}

func TestPoll_NonBlockingRetries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0", r.URL.Query().Get("blocking"))
		if attempts.Add(1) < 3 {
			w.Write([]byte(`{"code":2000,"message":"running","id":"S1"}`))
			return
		}
		w.Write([]byte(sampleResult))
	}))
	defer server.Close()

	result, err := (&Response{ID: "S1"}).Poll(context.Background(), newClient(t, server.URL), "A", poll.Options{Interval: 5 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Len(t, result.Utterances, 2)
}

func TestPoll_MaxAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":2000,"message":"running","id":"S1"}`))
	}))
	defer server.Close()

	_, err := (&Response{ID: "S1"}).Poll(context.Background(), newClient(t, server.URL), "A", poll.Options{Interval: time.Millisecond, MaxAttempts: 2})
	assert.ErrorIs(t, err, poll.ErrAttemptsExhausted)
}

func TestWriteSRT(t *testing.T) {
	var result Result
	require.NoError(t, json.Unmarshal([]byte(sampleResult), &result))

	var buf bytes.Buffer
	require.NoError(t, result.WriteSRT(&buf))

	want := "1\n00:00:00,000 --> 00:00:01,500\nhello\n\n" +
		"2\n01:02:03,004 --> 01:02:04,000\nlater\n\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCues_ContinuesNumbering(t *testing.T) {
	result := Result{Utterances: []Utterance{
		{StartTime: 0, EndTime: 500, Text: "a"},
		{StartTime: 500, EndTime: 900, Text: "b"},
	}}

	var buf bytes.Buffer
	next, err := result.WriteCues(&buf, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, next)
	assert.Equal(t, "4\n00:00:00,000 --> 00:00:00,500\na\n\n5\n00:00:00,500 --> 00:00:00,900\nb\n\n", buf.String())

	next, err = (&Result{}).WriteCues(&buf, next)
	require.NoError(t, err)
	assert.Equal(t, 6, next)
}

func TestSRTTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:00,000", srtTimestamp(-5))
	assert.Equal(t, "00:00:59,999", srtTimestamp(59_999))
	assert.Equal(t, "10:00:00,001", srtTimestamp(36_000_001))
}
