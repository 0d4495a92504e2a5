package geostate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// maxResponseSize bounds a sidecar response body.
const maxResponseSize = 8 << 20

// RemoteRecognizer calls an NER sidecar over HTTP. The sidecar accepts
// POST {"text": "..."} and answers
// {"ents": [{"text": "France", "label": "GPE", "start": 0, "end": 6}]}.
// It is safe for concurrent use.
type RemoteRecognizer struct {
	url  string
	http *http.Client
}

// NewRemoteRecognizer returns a client for the sidecar at url. A nil client
// uses one with a 10 second timeout.
func NewRemoteRecognizer(url string, client *http.Client) *RemoteRecognizer {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RemoteRecognizer{url: url, http: client}
}

// Name returns the sidecar URL.
func (c *RemoteRecognizer) Name() string { return c.url }

type recognizeRequest struct {
	Text string `json:"text"`
}

// Recognize implements Recognizer.
func (c *RemoteRecognizer) Recognize(ctx context.Context, text string) ([]Span, error) {
	body, err := json.Marshal(recognizeRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("ner: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ner: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ner: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("ner: POST %s: status %d", c.url, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("ner: reading response: %w", err)
	}
	return decodeRemoteSpans(raw)
}

func decodeRemoteSpans(raw []byte) ([]Span, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("ner: decode: invalid JSON response")
	}
	ents := gjson.GetBytes(raw, "ents")
	if !ents.IsArray() {
		return nil, fmt.Errorf(`ner: decode: response has no "ents" array`)
	}

	arr := ents.Array()
	spans := make([]Span, 0, len(arr))
	for i, e := range arr {
		text, label := e.Get("text"), e.Get("label")
		if text.Type != gjson.String || label.Type != gjson.String {
			return nil, fmt.Errorf("ner: decode: entity %d lacks text or label", i)
		}
		s := Span{Text: text.String(), Label: label.String(), Start: -1, End: -1}
		if v := e.Get("start"); v.Type == gjson.Number {
			s.Start = int(v.Int())
		}
		if v := e.Get("end"); v.Type == gjson.Number {
			s.End = int(v.Int())
		}
		spans = append(spans, s)
	}
	return spans, nil
}
