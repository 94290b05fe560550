// Package client is a small HTTP client for the pdftoolbox API, used by
// the pdfctl command line tool and by anyone driving a tool server from
// Go. It mirrors the server's JSON envelopes with its own wire structs
// so importing it never drags the server stack along.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Client talks to one pdftoolbox server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a client for the server at the given base URL, for
// example "http://localhost:8000".
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// ToolSpec is one tool's identity and parameter schema as the server
// lists it.
type ToolSpec struct {
	Name        string      `json:"name"`
	Label       I18nString  `json:"label"`
	Description I18nString  `json:"description"`
	Params      []ToolParam `json:"parameters"`
}

// I18nString carries a localized label; EnUS is always set.
type I18nString struct {
	EnUS   string `json:"en_US"`
	ZhHans string `json:"zh_Hans,omitempty"`
}

// ToolParam describes one tool parameter.
type ToolParam struct {
	Name        string     `json:"name"`
	Label       I18nString `json:"label"`
	Description I18nString `json:"human_description"`
	Type        string     `json:"type"`
	Required    bool       `json:"required"`
	Default     any        `json:"default,omitempty"`
}

// Message is one element of a finished invocation's message stream.
type Message struct {
	Kind string          `json:"kind"`
	Text string          `json:"text,omitempty"`
	JSON json.RawMessage `json:"json,omitempty"`
	File string          `json:"file,omitempty"`
}

// Result describes one saved output file of an invocation.
type Result struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

// InvokeResult is the envelope a synchronous invocation returns.
type InvokeResult struct {
	Invocation string    `json:"invocation"`
	Tool       string    `json:"tool"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	PageCount  int       `json:"pageCount"`
	DurationMS int64     `json:"durationMs"`
	Messages   []Message `json:"messages"`
	Results    []Result  `json:"results"`
}

// Job is one background job as the server reports it.
type Job struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	CurrentStep string `json:"currentStep"`
	Message     string `json:"message"`
	Error       string `json:"error,omitempty"`
	Result      string `json:"result,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// Invocation is one recorded tool run as the server reports it.
type Invocation struct {
	ToolName   string `json:"ToolName"`
	FileName   string `json:"FileName"`
	ULID       string `json:"ULID"`
	Status     string `json:"Status"`
	Summary    string `json:"Summary"`
	Error      string `json:"Error"`
	Results    string `json:"Results"`
	PageCount  int    `json:"PageCount"`
	DurationMS int64  `json:"DurationMS"`
	InvokedAt  string `json:"InvokedAt"`
}

// errorBody is the {"error": "..."} shape the API uses for failures.
type errorBody struct {
	Error string `json:"error"`
}

// getJSON fetches one API path and decodes the response into out.
func (c *Client) getJSON(path string, out any) error {
	resp, err := c.HTTPClient.Get(c.BaseURL + path)
	if err != nil {
		return fmt.Errorf("failed to call server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeAPIError turns a non-200 response into a readable error.
func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var apiErr errorBody
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

// ListTools fetches every registered tool with its parameter schema.
func (c *Client) ListTools() ([]ToolSpec, error) {
	var listing struct {
		Tools []ToolSpec `json:"tools"`
		Count int        `json:"count"`
	}
	if err := c.getJSON("/api/tools", &listing); err != nil {
		return nil, err
	}
	return listing.Tools, nil
}

// GetTool fetches one tool's spec by name.
func (c *Client) GetTool(name string) (*ToolSpec, error) {
	var spec ToolSpec
	if err := c.getJSON("/api/tools/"+name, &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// buildUploadBody assembles the multipart body an invocation upload
// needs: the PDF under "file" plus one form field per parameter.
func buildUploadBody(filePath string, params map[string]string) (*bytes.Buffer, string, error) {
	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read input file: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err = part.Write(fileData); err != nil {
		return nil, "", fmt.Errorf("failed to copy file data: %w", err)
	}
	for key, value := range params {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}
	if err = writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close writer: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

// Invoke runs a tool synchronously on a local PDF. A tool-level failure
// (bad spec string, broken PDF) still comes back as an InvokeResult
// with Status "failed"; only transport and server problems error.
func (c *Client) Invoke(tool string, filePath string, params map[string]string) (*InvokeResult, error) {
	body, contentType, err := buildUploadBody(filePath, params)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/tools/%s/invoke", c.BaseURL, tool)
	resp, err := c.HTTPClient.Post(url, contentType, body)
	if err != nil {
		return nil, fmt.Errorf("failed to call server: %w", err)
	}
	defer resp.Body.Close()

	// 422 means the tool itself rejected the run; the envelope still
	// carries the recorded failure
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnprocessableEntity {
		return nil, decodeAPIError(resp)
	}

	var result InvokeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode invoke response: %w", err)
	}
	return &result, nil
}

// StartJob starts an asynchronous invocation and returns the job ID to
// poll.
func (c *Client) StartJob(tool string, filePath string, params map[string]string) (string, error) {
	body, contentType, err := buildUploadBody(filePath, params)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/api/tools/%s/jobs", c.BaseURL, tool)
	resp, err := c.HTTPClient.Post(url, contentType, body)
	if err != nil {
		return "", fmt.Errorf("failed to call server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeAPIError(resp)
	}

	var started struct {
		Message string `json:"message"`
		JobID   string `json:"jobId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&started); err != nil {
		return "", fmt.Errorf("failed to decode job response: %w", err)
	}
	if started.JobID == "" {
		return "", fmt.Errorf("server did not return a job ID")
	}
	return started.JobID, nil
}

// GetJob fetches one job by ID.
func (c *Client) GetJob(id string) (*Job, error) {
	var job Job
	if err := c.getJSON("/api/jobs/"+id, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// WaitForJob polls a job until it leaves the pending/running states or
// the timeout passes.
func (c *Client) WaitForJob(id string, interval, timeout time.Duration) (*Job, error) {
	deadline := time.Now().Add(timeout)
	for {
		job, err := c.GetJob(id)
		if err != nil {
			return nil, err
		}
		if job.Status != "pending" && job.Status != "running" {
			return job, nil
		}
		if time.Now().After(deadline) {
			return job, fmt.Errorf("job %s still %s after %s", id, job.Status, timeout)
		}
		time.Sleep(interval)
	}
}

// GetInvocation fetches one recorded run by ULID.
func (c *Client) GetInvocation(id string) (*Invocation, error) {
	var invocation Invocation
	if err := c.getJSON("/api/invocations/"+id, &invocation); err != nil {
		return nil, err
	}
	return &invocation, nil
}

// DownloadResult fetches one saved output file of an invocation and
// writes it under destDir, returning the written path.
func (c *Client) DownloadResult(invocationID string, name string, destDir string) (string, error) {
	url := fmt.Sprintf("%s/api/results/%s/%s", c.BaseURL, invocationID, name)
	resp, err := c.HTTPClient.Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to call server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeAPIError(resp)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	// Base strips any path tricks from a server supplied name
	path := filepath.Join(destDir, filepath.Base(name))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	return path, nil
}

// About fetches the server's version and configuration summary.
func (c *Client) About() (map[string]any, error) {
	about := make(map[string]any)
	if err := c.getJSON("/api/about", &about); err != nil {
		return nil, err
	}
	return about, nil
}
