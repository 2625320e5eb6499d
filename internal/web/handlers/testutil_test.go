package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/selfie-finder/internal/facecache"
	"github.com/kozaktomas/selfie-finder/internal/faces"
)

// stubEncoder returns the encodings (or error) configured for the exact upload content.
type stubEncoder struct {
	available bool
	byContent map[string][]faces.Encoding
	err       error
	metric    faces.Metric // empty means Euclidean
}

func newStubEncoder() *stubEncoder {
	return &stubEncoder{available: true, byContent: make(map[string][]faces.Encoding)}
}

func (s *stubEncoder) Encode(_ context.Context, data []byte) ([]faces.Encoding, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byContent[string(data)], nil
}

func (s *stubEncoder) Available() bool { return s.available }
func (s *stubEncoder) Name() string    { return "stub" }
func (s *stubEncoder) Close() error    { return nil }

func (s *stubEncoder) Metric() faces.Metric {
	if s.metric == "" {
		return faces.MetricEuclidean
	}
	return s.metric
}

// testCache creates a cache with a few indexed photos.
func testCache() *facecache.Cache {
	c := facecache.New()
	c.Replace([]facecache.Entry{
		{Filename: "zoe.jpg", Encodings: []faces.Encoding{{0.1, 0.1}}},
		{Filename: "group.png", Encodings: []faces.Encoding{{3, 3}, {0, 0.2}}},
		{Filename: "stranger.jpg", Encodings: []faces.Encoding{{4, 4}}},
		{Filename: "landscape.gif"},
	})
	return c
}

// multipartRequest builds a POST with a single part. An empty fieldName sends
// a form without any part.
func multipartRequest(t *testing.T, fieldName, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if fieldName != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			`form-data; name="`+fieldName+`"; filename="`+filename+`"`)
		h.Set("Content-Type", "application/octet-stream")
		part, err := writer.CreatePart(h)
		if err != nil {
			t.Fatalf("failed to create part: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("failed to write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/find_me", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// formFieldRequest creates a multipart request with a plain text field,
// which has no filename parameter.
func formFieldRequest(t *testing.T, fieldName, value string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField(fieldName, value); err != nil {
		t.Fatalf("failed to write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/find_me", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
