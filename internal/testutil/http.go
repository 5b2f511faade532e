package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
)

const errorBodyLimit = 512

// Serve executes a request against the provided handler and returns the recorder.
func Serve(h http.Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// ServeRequest executes the given request against the handler.
func ServeRequest(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// AssertStatus verifies the response status code.
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if err := statusError(rr, want); err != nil {
		t.Fatal(err)
	}
}

// DecodeJSON decodes the recorder body into dest, failing the test on error.
func DecodeJSON(t *testing.T, rr *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := decodeJSONBody(rr, dest); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func statusError(rr *httptest.ResponseRecorder, want int) error {
	if rr.Code == want {
		return nil
	}
	body := rr.Body.String()
	if len(body) > errorBodyLimit {
		body = body[:errorBodyLimit]
	}
	return fmt.Errorf("expected status %d, got %d body=%s", want, rr.Code, strings.TrimSpace(body))
}

func decodeJSONBody(rr *httptest.ResponseRecorder, dest any) error {
	return json.NewDecoder(rr.Body).Decode(dest)
}

// ReceivedRequest is one request captured by a Receiver.
type ReceivedRequest struct {
	Header http.Header
	Body   []byte
}

// Receiver is an httptest server that records requests and answers with
// scripted status codes; the last code repeats.
type Receiver struct {
	*httptest.Server

	mu       sync.Mutex
	codes    []int
	requests []ReceivedRequest
}

// NewReceiver starts a Receiver. With no codes it answers 200.
func NewReceiver(t *testing.T, codes ...int) *Receiver {
	t.Helper()
	r := &Receiver{codes: codes}
	r.Server = httptest.NewServer(http.HandlerFunc(r.handle))
	t.Cleanup(r.Close)
	return r
}

func (r *Receiver) handle(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)

	r.mu.Lock()
	idx := len(r.requests)
	r.requests = append(r.requests, ReceivedRequest{Header: req.Header.Clone(), Body: body})
	code := http.StatusOK
	if len(r.codes) > 0 {
		if idx >= len(r.codes) {
			idx = len(r.codes) - 1
		}
		code = r.codes[idx]
	}
	r.mu.Unlock()

	w.WriteHeader(code)
}

// Requests returns a copy of the captured requests.
func (r *Receiver) Requests() []ReceivedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ReceivedRequest, len(r.requests))
	copy(out, r.requests)
	return out
}

// Count returns how many requests were received.
func (r *Receiver) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}
