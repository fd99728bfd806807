// internal/scoring/provider/client.go
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"talent-scoring/internal/common/metrics"

	"github.com/xeipuuv/gojsonschema"
)

// FailureKind distinguishes how a provider call went wrong.
type FailureKind int

const (
	// KindTransport covers network errors, timeouts and unreadable responses.
	// The affected job or subject is left untouched and retried on a later
	// invocation.
	KindTransport FailureKind = iota
	// KindApplication covers responses the service itself rejected: a false
	// success flag, a non-2xx status with a decoded body, or a payload that
	// fails schema validation.
	KindApplication
)

// Error is the uniform failure value returned by every client operation.
// Callers never see raw transport errors.
type Error struct {
	Kind    FailureKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scoring %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("scoring %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a transport-level provider failure.
func IsTransport(err error) bool {
	pe, ok := err.(*Error)
	return ok && pe.Kind == KindTransport
}

// envelope is the generic success wrapper on provider write operations.
type envelope struct {
	Success      *bool  `json:"success,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// statusSchema guards the polled payload before classification; a violating
// body is treated as an application failure, not parsed on good faith.
const statusSchema = `{
	"type": "object",
	"required": ["status"],
	"properties": {
		"status": {"type": "string", "enum": ["pending", "completed", "failed", "error"]},
		"errorMessage": {"type": "string"},
		"results": {
			"type": "object",
			"properties": {
				"overallScore": {"type": "number"},
				"criteriaScores": {
					"type": "array",
					"items": {
						"type": "object",
						"properties": {
							"label": {"type": "string"},
							"rating": {"type": "string"},
							"score": {"type": "number"}
						}
					}
				}
			}
		}
	}
}`

var statusSchemaLoader = gojsonschema.NewStringLoader(statusSchema)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateSession opens a new scoring session for one subject.
func (c *Client) CreateSession(ctx context.Context, req *CreateSessionRequest) (*Session, error) {
	const op = "create-session"

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, c.fail(op, KindTransport, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/v1/sessions", c.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, c.fail(op, KindTransport, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	body, appErr := c.do(op, httpReq)
	if appErr != nil {
		return nil, appErr
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, c.fail(op, KindTransport, "failed to decode response", err)
	}
	if session.ID == "" {
		return nil, c.fail(op, KindApplication, "no sessionId in response", nil)
	}

	return &session, nil
}

// UploadDocument attaches one evidence file to a session as a named multipart
// part.
func (c *Client) UploadDocument(ctx context.Context, sessionID, fileName string, data []byte) error {
	const op = "upload-document"

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("sessionId", sessionID); err != nil {
		return c.fail(op, KindTransport, "failed to write form field", err)
	}
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return c.fail(op, KindTransport, "failed to create form file", err)
	}
	if _, err := part.Write(data); err != nil {
		return c.fail(op, KindTransport, "failed to write file part", err)
	}
	if err := writer.Close(); err != nil {
		return c.fail(op, KindTransport, "failed to finalize multipart body", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/v1/sessions/%s/documents", c.baseURL, sessionID), &buf)
	if err != nil {
		return c.fail(op, KindTransport, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(httpReq)

	_, appErr := c.do(op, httpReq)
	return errOrNil(appErr)
}

// TriggerScoring starts evaluation of an uploaded session. There is no way to
// cancel once triggered.
func (c *Client) TriggerScoring(ctx context.Context, sessionID string) error {
	const op = "trigger-scoring"

	jsonData, err := json.Marshal(map[string]string{"sessionId": sessionID})
	if err != nil {
		return c.fail(op, KindTransport, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/v1/sessions/%s/score", c.baseURL, sessionID), bytes.NewBuffer(jsonData))
	if err != nil {
		return c.fail(op, KindTransport, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	_, appErr := c.do(op, httpReq)
	return errOrNil(appErr)
}

// GetSessionStatus polls the current state of a session.
func (c *Client) GetSessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	const op = "get-session-status"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/sessions/%s", c.baseURL, sessionID), nil)
	if err != nil {
		return nil, c.fail(op, KindTransport, "failed to create request", err)
	}
	c.authorize(httpReq)

	body, appErr := c.do(op, httpReq)
	if appErr != nil {
		return nil, appErr
	}

	result, err := gojsonschema.Validate(statusSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, c.fail(op, KindTransport, "schema validation errored", err)
	}
	if !result.Valid() {
		return nil, c.fail(op, KindApplication,
			fmt.Sprintf("status payload violates schema: %v", result.Errors()), nil)
	}

	var status SessionStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, c.fail(op, KindTransport, "failed to decode response", err)
	}

	return &status, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

// do executes a request and applies the uniform failure classification.
func (c *Client) do(op string, req *http.Request) ([]byte, *Error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(op, KindTransport, "failed to execute request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(op, KindTransport, "failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		var env envelope
		if json.Unmarshal(body, &env) == nil && env.ErrorMessage != "" {
			msg = fmt.Sprintf("status %d: %s", resp.StatusCode, env.ErrorMessage)
		}
		kind := KindApplication
		if resp.StatusCode >= 500 {
			kind = KindTransport
		}
		return nil, c.fail(op, kind, msg, nil)
	}

	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Success != nil && !*env.Success {
		msg := "service reported failure"
		if env.ErrorMessage != "" {
			msg = env.ErrorMessage
		}
		return nil, c.fail(op, KindApplication, msg, nil)
	}

	metrics.ProviderCalls.WithLabelValues(op, "success").Inc()
	return body, nil
}

func (c *Client) fail(op string, kind FailureKind, message string, err error) *Error {
	result := "application_error"
	if kind == KindTransport {
		result = "transport_error"
	}
	metrics.ProviderCalls.WithLabelValues(op, result).Inc()

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// errOrNil avoids a typed-nil *Error escaping as a non-nil error interface.
func errOrNil(e *Error) error {
	if e == nil {
		return nil
	}
	return e
}
