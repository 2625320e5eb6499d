package faces

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const defaultEncoderURL = "http://localhost:8000"

// HTTPEncoder computes face encodings using the face embedding server.
type HTTPEncoder struct {
	baseURL string
	client  *http.Client
}

// NewHTTPEncoder creates a new HTTP encoder
func NewHTTPEncoder(baseURL string) *HTTPEncoder {
	if baseURL == "" {
		baseURL = defaultEncoderURL
	}
	return &HTTPEncoder{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

// FaceDetection represents a single detected face
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// FaceResponse represents the response from the face embedding endpoint
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// postMultipartImage posts the image as the multipart field "file" with an
// explicit Content-Type for the detected format.
func (e *HTTPEncoder) postMultipartImage(ctx context.Context, endpoint string, imageData []byte, format string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="image.%s"`, format))
	h.Set("Content-Type", mimeType(format))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: encoder returned status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: %s", ErrUndecodable, strings.TrimSpace(string(body)))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// Encode detects faces and returns their embeddings in detection order
func (e *HTTPEncoder) Encode(ctx context.Context, imageData []byte) ([]Encoding, error) {
	format, err := imageFormat(imageData)
	if err != nil {
		return nil, err
	}

	body, err := e.postMultipartImage(ctx, "/embed/face", imageData, format)
	if err != nil {
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	encodings := make([]Encoding, 0, len(faceResp.Faces))
	for _, f := range faceResp.Faces {
		if len(f.Embedding) == 0 {
			return nil, errors.New("empty embedding returned")
		}
		encodings = append(encodings, Encoding(f.Embedding))
	}
	return encodings, nil
}

// Available is always true; reachability is only known per request.
func (e *HTTPEncoder) Available() bool { return true }

func (e *HTTPEncoder) Name() string { return "http" }

func (e *HTTPEncoder) Metric() Metric { return MetricCosine }

// URL returns the face embedding server address.
func (e *HTTPEncoder) URL() string { return e.baseURL }

func (e *HTTPEncoder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
