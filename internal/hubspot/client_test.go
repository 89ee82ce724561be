package hubspot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/hubspot-ticket-sync/internal/config"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(config.HubSpotConfig{
		APIKey:         "test-key",
		BaseURL:        server.URL,
		TimeoutSeconds: 5,
		UploadFolder:   "/uploads/tickets",
	}, zap.NewNop())
	return client, server
}

func TestGetTicket(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/crm/v3/objects/tickets/123" {
				t.Errorf("path = %q", r.URL.Path)
			}
			if got := r.URL.Query().Get("properties"); got != "hubspot_owner_id,content,subject,hs_pipeline_stage" {
				t.Errorf("properties = %q", got)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
				t.Errorf("authorization = %q", got)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"id": "123",
				"properties": map[string]string{
					"subject":          "Broken widget",
					"hubspot_owner_id": "owner-7",
				},
			})
		}))

		ticket, err := client.GetTicket(context.Background(), "123")
		if err != nil {
			t.Fatalf("GetTicket: %v", err)
		}
		if ticket.ID != "123" {
			t.Fatalf("id = %q", ticket.ID)
		}
		if got := ticket.Property("hubspot_owner_id", "ownerId"); got != "owner-7" {
			t.Fatalf("owner = %q", got)
		}
	})

	t.Run("not found", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "ticket does not exist"})
		}))

		_, err := client.GetTicket(context.Background(), "missing")
		if !errors.Is(err, ErrTicketNotFound) {
			t.Fatalf("err = %v, want ErrTicketNotFound", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"message": "boom"})
		}))

		_, err := client.GetTicket(context.Background(), "123")
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("err = %v, want APIError", err)
		}
		if apiErr.StatusCode != http.StatusInternalServerError || apiErr.Message != "boom" {
			t.Fatalf("apiErr = %+v", apiErr)
		}
	})
}

func TestTicketProperty(t *testing.T) {
	ticket := &Ticket{ID: "1", Properties: map[string]string{
		"ownerId": "fallback-owner",
		"subject": "",
		"title":   "Second choice",
	}}

	if got := ticket.Property("hubspot_owner_id", "ownerId", "owner"); got != "fallback-owner" {
		t.Fatalf("Property fallback = %q", got)
	}
	if got := ticket.Property("subject", "title"); got != "Second choice" {
		t.Fatalf("Property skips empty = %q", got)
	}
	if got := ticket.Property("nope"); got != "" {
		t.Fatalf("Property missing = %q", got)
	}
}

func TestUpdateTicketStage(t *testing.T) {
	var captured struct {
		Properties map[string]string `json:"properties"`
	}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %q", r.Method)
		}
		if r.URL.Path != "/crm/v3/objects/tickets/55" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte("{}"))
	}))

	if err := client.UpdateTicketStage(context.Background(), "55", "4"); err != nil {
		t.Fatalf("UpdateTicketStage: %v", err)
	}
	if captured.Properties["hs_pipeline_stage"] != "4" {
		t.Fatalf("pushed stage = %q", captured.Properties["hs_pipeline_stage"])
	}
}

func TestCreateNote(t *testing.T) {
	t.Run("with attachment", func(t *testing.T) {
		var captured struct {
			Properties map[string]string `json:"properties"`
		}
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/crm/v3/objects/notes" {
				t.Errorf("%s %s", r.Method, r.URL.Path)
			}
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Errorf("decode body: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]string{"id": "note-9"})
		}))

		noteID, err := client.CreateNote(context.Background(), "see attached", "file-3")
		if err != nil {
			t.Fatalf("CreateNote: %v", err)
		}
		if noteID != "note-9" {
			t.Fatalf("note id = %q", noteID)
		}
		if captured.Properties["hs_note_body"] != "see attached" {
			t.Fatalf("note body = %q", captured.Properties["hs_note_body"])
		}
		if captured.Properties["hs_attachment_ids"] != "file-3" {
			t.Fatalf("attachment ids = %q", captured.Properties["hs_attachment_ids"])
		}
		if captured.Properties["hs_timestamp"] == "" {
			t.Fatal("hs_timestamp missing")
		}
	})

	t.Run("without attachment", func(t *testing.T) {
		var captured struct {
			Properties map[string]string `json:"properties"`
		}
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Errorf("decode body: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]string{"id": "note-10"})
		}))

		if _, err := client.CreateNote(context.Background(), "just text", ""); err != nil {
			t.Fatalf("CreateNote: %v", err)
		}
		if _, present := captured.Properties["hs_attachment_ids"]; present {
			t.Fatal("hs_attachment_ids must be omitted without a file")
		}
	})

	t.Run("missing id in response", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{}"))
		}))

		if _, err := client.CreateNote(context.Background(), "text", ""); err == nil {
			t.Fatal("expected error for response without note id")
		}
	})
}

func TestAssociateNoteWithTicket(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %q", r.Method)
		}
		if r.URL.Path != "/crm/v3/objects/notes/note-1/associations/tickets/ticket-2/note_to_ticket" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte("{}"))
	}))

	if err := client.AssociateNoteWithTicket(context.Background(), "note-1", "ticket-2"); err != nil {
		t.Fatalf("AssociateNoteWithTicket: %v", err)
	}
}

func TestUploadFile(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/filemanager/api/v3/files/upload" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("folderPath"); got != "/uploads/tickets" {
			t.Errorf("folderPath = %q", got)
		}
		if got := r.FormValue("options"); got != `{"access":"PUBLIC_NOT_INDEXABLE"}` {
			t.Errorf("options = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "receipt.pdf" {
			t.Errorf("filename = %q", header.Filename)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"objects": []map[string]any{
				{"id": 987654, "url": "https://cdn.example.com/receipt.pdf"},
			},
		})
	}))

	uploaded, err := client.UploadFile(context.Background(), []byte("%PDF-1.4"), "receipt.pdf")
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if uploaded.ID != "987654" {
		t.Fatalf("file id = %q", uploaded.ID)
	}
	if uploaded.URL != "https://cdn.example.com/receipt.pdf" {
		t.Fatalf("file url = %q", uploaded.URL)
	}
}

func TestListPipelineStages(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/crm/v3/pipelines/tickets":
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]string{{"id": "0"}},
			})
		case "/crm/v3/pipelines/tickets/0/stages":
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]string{
					{"id": "1", "label": "New"},
					{"id": "2", "label": "Waiting on contact"},
					{"id": "3", "label": "Waiting on us"},
					{"id": "4", "label": "Closed"},
				},
			})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	stages, err := client.ListPipelineStages(context.Background())
	if err != nil {
		t.Fatalf("ListPipelineStages: %v", err)
	}
	if len(stages) != 4 {
		t.Fatalf("stages = %d, want 4", len(stages))
	}
	if stages[0].ID != "1" || stages[0].Label != "New" {
		t.Fatalf("first stage = %+v", stages[0])
	}
}
