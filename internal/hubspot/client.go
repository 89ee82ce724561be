package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/hubspot-ticket-sync/internal/config"
)

// ticketProperties is the property set requested when fetching a ticket.
const ticketProperties = "hubspot_owner_id,content,subject,hs_pipeline_stage"

// API is the capability set the engines consume. Client is the production
// implementation; tests substitute fakes.
type API interface {
	GetTicket(ctx context.Context, ticketID string) (*Ticket, error)
	UpdateTicketStage(ctx context.Context, ticketID, stage string) error
	UploadFile(ctx context.Context, content []byte, filename string) (*UploadedFile, error)
	CreateNote(ctx context.Context, body, attachmentID string) (string, error)
	AssociateNoteWithTicket(ctx context.Context, noteID, ticketID string) error
	ListPipelineStages(ctx context.Context) ([]PipelineStage, error)
}

// Ticket is a HubSpot CRM ticket object with its property bag.
type Ticket struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// Property returns the first non-empty value among the given property names.
func (t *Ticket) Property(names ...string) string {
	for _, name := range names {
		if val := t.Properties[name]; val != "" {
			return val
		}
	}
	return ""
}

// UploadedFile identifies a file stored in the HubSpot file manager.
type UploadedFile struct {
	ID  string
	URL string
}

// PipelineStage is one stage of the support ticket pipeline.
type PipelineStage struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Client performs calls against the HubSpot CRM API. It is a stateless
// request/response wrapper; all configuration is injected.
type Client struct {
	cfg        config.HubSpotConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a client from injected configuration.
func NewClient(cfg config.HubSpotConfig, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.hubapi.com"
	}
	if cfg.UploadFolder == "" {
		cfg.UploadFolder = "/uploads/tickets"
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		logger:     logger,
	}
}

// GetTicket fetches a ticket with the owner/subject/content/stage properties.
func (c *Client) GetTicket(ctx context.Context, ticketID string) (*Ticket, error) {
	path := fmt.Sprintf("/crm/v3/objects/tickets/%s?properties=%s", url.PathEscape(ticketID), ticketProperties)
	var ticket Ticket
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &ticket, "fetch ticket"); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("ticket %s: %w", ticketID, ErrTicketNotFound)
		}
		return nil, err
	}
	if ticket.ID == "" {
		return nil, fmt.Errorf("ticket %s: %w", ticketID, ErrTicketNotFound)
	}
	return &ticket, nil
}

// UpdateTicketStage moves the ticket to the given pipeline stage.
func (c *Client) UpdateTicketStage(ctx context.Context, ticketID, stage string) error {
	path := fmt.Sprintf("/crm/v3/objects/tickets/%s", url.PathEscape(ticketID))
	body := map[string]any{
		"properties": map[string]string{"hs_pipeline_stage": stage},
	}
	return c.doJSON(ctx, http.MethodPatch, path, body, nil, "update ticket stage")
}

// CreateNote creates a note object, optionally referencing an uploaded file,
// and returns the new note id.
func (c *Client) CreateNote(ctx context.Context, noteBody, attachmentID string) (string, error) {
	properties := map[string]string{
		"hs_note_body": noteBody,
		"hs_timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if attachmentID != "" {
		properties["hs_attachment_ids"] = attachmentID
	}

	var created struct {
		ID string `json:"id"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/crm/v3/objects/notes", map[string]any{"properties": properties}, &created, "create note")
	if err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", &APIError{Operation: "create note", StatusCode: http.StatusOK, Message: "no note id in response"}
	}
	return created.ID, nil
}

// AssociateNoteWithTicket links a note to a ticket.
func (c *Client) AssociateNoteWithTicket(ctx context.Context, noteID, ticketID string) error {
	path := fmt.Sprintf("/crm/v3/objects/notes/%s/associations/tickets/%s/note_to_ticket",
		url.PathEscape(noteID), url.PathEscape(ticketID))
	return c.doJSON(ctx, http.MethodPut, path, map[string]any{}, nil, "associate note")
}

// UploadFile pushes file content to the HubSpot file manager and returns the
// stored file's id and public URL.
func (c *Client) UploadFile(ctx context.Context, content []byte, filename string) (*UploadedFile, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("hubspot upload file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("hubspot upload file: %w", err)
	}
	if err := writer.WriteField("folderPath", c.cfg.UploadFolder); err != nil {
		return nil, fmt.Errorf("hubspot upload file: %w", err)
	}
	if err := writer.WriteField("options", `{"access":"PUBLIC_NOT_INDEXABLE"}`); err != nil {
		return nil, fmt.Errorf("hubspot upload file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("hubspot upload file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/filemanager/api/v3/files/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("hubspot upload file: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hubspot upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.apiError(resp, "upload file")
	}

	var uploaded struct {
		Objects []struct {
			ID  json.Number `json:"id"`
			URL string      `json:"url"`
		} `json:"objects"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return nil, fmt.Errorf("hubspot upload file: decode response: %w", err)
	}
	if len(uploaded.Objects) == 0 {
		return nil, &APIError{Operation: "upload file", StatusCode: resp.StatusCode, Message: "no file object in response"}
	}
	return &UploadedFile{ID: uploaded.Objects[0].ID.String(), URL: uploaded.Objects[0].URL}, nil
}

// ListPipelineStages returns the stages of the default ticket pipeline.
func (c *Client) ListPipelineStages(ctx context.Context) ([]PipelineStage, error) {
	var pipelines struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/crm/v3/pipelines/tickets", nil, &pipelines, "list pipelines"); err != nil {
		return nil, err
	}
	if len(pipelines.Results) == 0 {
		return nil, &APIError{Operation: "list pipelines", StatusCode: http.StatusOK, Message: "no ticket pipelines found"}
	}

	path := fmt.Sprintf("/crm/v3/pipelines/tickets/%s/stages", url.PathEscape(pipelines.Results[0].ID))
	var stages struct {
		Results []PipelineStage `json:"results"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &stages, "list pipeline stages"); err != nil {
		return nil, err
	}
	return stages.Results, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, operation string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("hubspot %s: encode request: %w", operation, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("hubspot %s: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hubspot %s: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.apiError(resp, operation)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("hubspot %s: decode response: %w", operation, err)
	}
	return nil
}

func (c *Client) apiError(resp *http.Response, operation string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := ""
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		message = parsed.Message
	}
	if c.logger != nil {
		c.logger.Debug("hubspot call failed",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
			zap.String("message", message),
		)
	}
	return &APIError{Operation: operation, StatusCode: resp.StatusCode, Message: message}
}
