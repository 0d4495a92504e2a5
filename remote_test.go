package geostate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func newSidecar(t *testing.T, status int, body string) (*httptest.Server, *[]string) {
	t.Helper()
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		seen = append(seen, req.Text)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestRemoteRecognizer(t *testing.T) {
	srv, seen := newSidecar(t, http.StatusOK, `{"ents": [
		{"text": "France", "label": "GPE", "start": 0, "end": 6},
		{"text": "Marie", "label": "PERSON"},
		{"text": "Germany", "label": "GPE", "start": 11, "end": 18}
	]}`)

	rc := NewRemoteRecognizer(srv.URL, nil)
	if rc.Name() != srv.URL {
		t.Errorf("Name() = %q, want %q", rc.Name(), srv.URL)
	}
	spans, err := rc.Recognize(context.Background(), "France and Germany")
	if err != nil {
		t.Fatalf("Recognize() error: %v", err)
	}
	want := []Span{
		{Text: "France", Label: "GPE", Start: 0, End: 6},
		{Text: "Marie", Label: "PERSON", Start: -1, End: -1},
		{Text: "Germany", Label: "GPE", Start: 11, End: 18},
	}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("Recognize() = %+v, want %+v", spans, want)
	}
	if !reflect.DeepEqual(*seen, []string{"France and Germany"}) {
		t.Errorf("sidecar saw %q", *seen)
	}

	mentions, err := ExtractMentions(context.Background(), rc, "France and Germany")
	if err != nil {
		t.Fatalf("ExtractMentions() error: %v", err)
	}
	if !reflect.DeepEqual(mentions, []string{"France", "Germany"}) {
		t.Errorf("ExtractMentions() = %q", mentions)
	}
}

func TestRemoteRecognizerErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"ents": []}`},
		{name: "invalid json", status: http.StatusOK, body: `{"ents": [`},
		{name: "missing ents", status: http.StatusOK, body: `{"entities": []}`},
		{name: "entity without label", status: http.StatusOK, body: `{"ents": [{"text": "France"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newSidecar(t, tt.status, tt.body)
			if _, err := NewRemoteRecognizer(srv.URL, nil).Recognize(context.Background(), "France"); err == nil {
				t.Error("Recognize() error = nil, want error")
			}
		})
	}
}

func TestRemoteRecognizerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := NewRemoteRecognizer(url, nil).Recognize(context.Background(), "France"); err == nil {
		t.Error("Recognize() error = nil, want error for closed server")
	}
}
