// Package client provides an HTTP client for the MediLink API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/raphaelgruber/medilink-console/internal/descriptor"
	"github.com/raphaelgruber/medilink-console/internal/metrics"
	"github.com/raphaelgruber/medilink-console/internal/models"
)

// MaxJargonChars is the longest text the jargon translator accepts.
const MaxJargonChars = 1000

var (
	// ErrEmptyText is returned when a text input is empty or whitespace.
	ErrEmptyText = errors.New("text is required")
	// ErrDescriptorLength is returned for descriptors that are neither empty nor 128 long.
	ErrDescriptorLength = fmt.Errorf("descriptor must be empty or %d values", descriptor.Length)
	// ErrMissingID is returned when a patient or hospital id is empty.
	ErrMissingID = errors.New("patient and hospital ids are required")
)

// Client is an HTTP client for the MediLink API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	collector  *metrics.Collector
	logger     *slog.Logger
}

// New creates a new API client.
// If baseURL is empty, uses MEDILINK_API_URL or defaults to localhost:8000.
// A non-positive timeout defaults to 30s. collector may be nil.
func New(baseURL string, timeout time.Duration, collector *metrics.Collector, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("MEDILINK_API_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		collector:  collector,
		logger:     logger,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends a JSON request and decodes a JSON response into result.
func (c *Client) do(ctx context.Context, op, method, path string, body, result any) (err error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		c.collector.RecordTiming(op, elapsed, err != nil)
		if err != nil {
			c.logger.Warn("api call failed", "op", op, "duration_ms", elapsed.Milliseconds(), "error", err)
		} else {
			c.logger.Debug("api call completed", "op", op, "duration_ms", elapsed.Milliseconds())
		}
	}()

	var reader io.Reader
	if body != nil {
		reqBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, resp.Status, respBody)
	}

	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// Health checks that the API is reachable and returns its status text.
func (c *Client) Health(ctx context.Context) (string, error) {
	var result struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	}
	if err := c.do(ctx, "health", http.MethodGet, "/", nil, &result); err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Message + " " + result.Status), nil
}

// ListHospitals returns the hospital directory with capacity.
func (c *Client) ListHospitals(ctx context.Context) ([]models.Hospital, error) {
	var hospitals []models.Hospital
	if err := c.do(ctx, metrics.OpListHospitals, http.MethodGet, "/api/hospitals", nil, &hospitals); err != nil {
		return nil, err
	}
	return hospitals, nil
}

// ListPatients returns the registered patients.
func (c *Client) ListPatients(ctx context.Context) ([]models.Patient, error) {
	var patients []models.Patient
	if err := c.do(ctx, metrics.OpListPatients, http.MethodGet, "/api/patients", nil, &patients); err != nil {
		return nil, err
	}
	return patients, nil
}

// IdentifyPatient matches a face descriptor against registered patients.
// An empty descriptor is a valid "no information" probe.
func (c *Client) IdentifyPatient(ctx context.Context, desc []float64) (*models.Identification, error) {
	if len(desc) != 0 && len(desc) != descriptor.Length {
		return nil, ErrDescriptorLength
	}
	if desc == nil {
		desc = []float64{}
	}

	var result models.Identification
	body := map[string]any{"face_descriptor": desc}
	if err := c.do(ctx, metrics.OpIdentify, http.MethodPost, "/api/patients/identify", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SendChatQuery submits a free-text emergency description.
func (c *Client) SendChatQuery(ctx context.Context, text string) (*models.ChatResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	var result models.ChatResponse
	body := map[string]string{"query": text}
	if err := c.do(ctx, metrics.OpChatQuery, http.MethodPost, "/api/chat/query", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TranslateJargon rewrites medical text in plain language. Text longer than
// MaxJargonChars is truncated.
func (c *Client) TranslateJargon(ctx context.Context, text string) (*models.JargonResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if runes := []rune(text); len(runes) > MaxJargonChars {
		text = string(runes[:MaxJargonChars])
	}

	var result models.JargonResult
	body := map[string]string{"text": text}
	if err := c.do(ctx, metrics.OpTranslate, http.MethodPost, "/api/jargon/translate", body, &result); err != nil {
		return nil, err
	}
	// The translator reports input problems in-band.
	if result.Error != "" && result.Simple == "" {
		return nil, &APIError{StatusCode: http.StatusOK, Message: result.Error}
	}
	return &result, nil
}

// ShareMedicalHistory discloses a patient's history to a hospital. A response
// with Success=false is returned without error; its Error field explains why.
func (c *Client) ShareMedicalHistory(ctx context.Context, patientID, hospitalID models.ID) (*models.ShareResult, error) {
	if patientID.Empty() || hospitalID.Empty() {
		return nil, ErrMissingID
	}

	var result models.ShareResult
	body := map[string]string{
		"patient_id":  patientID.String(),
		"hospital_id": hospitalID.String(),
	}
	if err := c.do(ctx, metrics.OpShareHistory, http.MethodPost, "/api/emergency/share-medical-history", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Register adds a patient. A rejected registration is returned as an
// APIError carrying the API's reason.
func (c *Client) Register(ctx context.Context, reg models.Registration) (*models.RegistrationResult, error) {
	if strings.TrimSpace(reg.Name) == "" {
		return nil, ErrEmptyText
	}
	if len(reg.FaceDescriptor) != 0 && len(reg.FaceDescriptor) != descriptor.Length {
		return nil, ErrDescriptorLength
	}

	var result models.RegistrationResult
	if err := c.do(ctx, metrics.OpRegister, http.MethodPost, "/api/patients/register", reg, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = UnknownError
		}
		return nil, &APIError{StatusCode: http.StatusOK, Message: msg}
	}
	return &result, nil
}

// Allocate asks the API to allocate a hospital for a known patient at a location.
func (c *Client) Allocate(ctx context.Context, req models.AllocationRequest) (*models.Allocation, error) {
	if req.PatientID.Empty() {
		return nil, ErrMissingID
	}

	var result models.Allocation
	if err := c.do(ctx, metrics.OpAllocate, http.MethodPost, "/api/emergency/allocate", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
