package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/hubspot-ticket-sync/internal/domain"
	"github.com/spec-kit/hubspot-ticket-sync/internal/events"
	"github.com/spec-kit/hubspot-ticket-sync/internal/hubspot"
	"github.com/spec-kit/hubspot-ticket-sync/internal/repository"
)

// memTicketRepo is an in-memory TicketRepository used by the engine tests.
type memTicketRepo struct {
	mu          sync.Mutex
	byID        map[string]*domain.Ticket
	byHubspotID map[string]*domain.Ticket
	nextID      int

	// hubspotIDMisses makes GetByHubspotID report pgx.ErrNoRows that many
	// times even when the row exists, to simulate a concurrent insert racing
	// past the idempotency check.
	hubspotIDMisses int

	saveErr   error
	saveCalls int
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{
		byID:        map[string]*domain.Ticket{},
		byHubspotID: map[string]*domain.Ticket{},
	}
}

func (m *memTicketRepo) put(ticket *domain.Ticket) *domain.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ticket.ID == "" {
		m.nextID++
		ticket.ID = fmt.Sprintf("ticket-%d", m.nextID)
	}
	clone := cloneTicket(ticket)
	m.byID[clone.ID] = clone
	if clone.HubspotTicketID != "" {
		m.byHubspotID[clone.HubspotTicketID] = clone
	}
	return cloneTicket(clone)
}

func (m *memTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byHubspotID[ticket.HubspotTicketID]; exists {
		return fmt.Errorf("hubspot ticket %s: %w", ticket.HubspotTicketID, repository.ErrDuplicateTicket)
	}
	m.nextID++
	ticket.ID = fmt.Sprintf("ticket-%d", m.nextID)
	clone := cloneTicket(ticket)
	m.byID[clone.ID] = clone
	m.byHubspotID[clone.HubspotTicketID] = clone
	return nil
}

func (m *memTicketRepo) Save(ctx context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.byID[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	for i := range ticket.Attachments {
		if ticket.Attachments[i].ID == "" {
			ticket.Attachments[i].ID = fmt.Sprintf("att-%d", i+1)
			ticket.Attachments[i].TicketID = ticket.ID
		}
	}
	for i := range ticket.Notes {
		if ticket.Notes[i].ID == "" {
			ticket.Notes[i].ID = fmt.Sprintf("note-%d", i+1)
			ticket.Notes[i].TicketID = ticket.ID
		}
	}
	clone := cloneTicket(ticket)
	m.byID[clone.ID] = clone
	m.byHubspotID[clone.HubspotTicketID] = clone
	return nil
}

func (m *memTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneTicket(ticket), nil
}

func (m *memTicketRepo) GetByHubspotID(ctx context.Context, hubspotTicketID string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hubspotIDMisses > 0 {
		m.hubspotIDMisses--
		return nil, pgx.ErrNoRows
	}
	ticket, ok := m.byHubspotID[hubspotTicketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneTicket(ticket), nil
}

func (m *memTicketRepo) CountActive(ctx context.Context, employeeIDs []string, statuses []domain.TicketStatus) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := map[domain.TicketStatus]bool{}
	for _, status := range statuses {
		active[status] = true
	}
	counts := make(map[string]int, len(employeeIDs))
	for _, id := range employeeIDs {
		counts[id] = 0
	}
	for _, ticket := range m.byID {
		if ticket.AssignedTo == nil || !active[ticket.Status] {
			continue
		}
		if _, ok := counts[*ticket.AssignedTo]; ok {
			counts[*ticket.AssignedTo]++
		}
	}
	return counts, nil
}

func (m *memTicketRepo) ListByAssignee(ctx context.Context, employeeID string, limit, offset int) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range m.byID {
		if ticket.AssignedTo != nil && *ticket.AssignedTo == employeeID {
			result = append(result, *cloneTicket(ticket))
		}
	}
	return result, nil
}

func (m *memTicketRepo) CountByAssignee(ctx context.Context, employeeID string) (int, error) {
	tickets, _ := m.ListByAssignee(ctx, employeeID, 0, 0)
	return len(tickets), nil
}

func cloneTicket(ticket *domain.Ticket) *domain.Ticket {
	clone := *ticket
	if ticket.AssignedTo != nil {
		assignee := *ticket.AssignedTo
		clone.AssignedTo = &assignee
	}
	clone.Attachments = append([]domain.Attachment(nil), ticket.Attachments...)
	clone.Notes = append([]domain.Note(nil), ticket.Notes...)
	return &clone
}

// memEmployeeRepo is an in-memory EmployeeRepository.
type memEmployeeRepo struct {
	mu        sync.Mutex
	employees []domain.Employee
}

func (m *memEmployeeRepo) add(employee domain.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if employee.ID == "" {
		employee.ID = "emp-" + strconv.Itoa(len(m.employees)+1)
	}
	m.employees = append(m.employees, employee)
}

func (m *memEmployeeRepo) Create(ctx context.Context, employee *domain.Employee) error {
	m.add(*employee)
	return nil
}

func (m *memEmployeeRepo) Upsert(ctx context.Context, employee *domain.Employee) error {
	m.add(*employee)
	return nil
}

func (m *memEmployeeRepo) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, employee := range m.employees {
		if employee.ID == id {
			found := employee
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memEmployeeRepo) GetByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, employee := range m.employees {
		if employee.Email == email {
			found := employee
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memEmployeeRepo) ListByOwnerID(ctx context.Context, ownerID string) ([]domain.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Employee
	for _, employee := range m.employees {
		if employee.OwnerID == ownerID {
			result = append(result, employee)
		}
	}
	return result, nil
}

func (m *memEmployeeRepo) List(ctx context.Context) ([]domain.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Employee(nil), m.employees...), nil
}

// memTxManager serializes closures with a mutex; the fakes stand in for
// transactional state.
type memTxManager struct {
	mu    sync.Mutex
	repos repository.Repositories
}

func newMemTxManager(tickets *memTicketRepo, employees *memEmployeeRepo) *memTxManager {
	return &memTxManager{repos: repository.Repositories{Tickets: tickets, Employees: employees}}
}

func (m *memTxManager) WithinSerializable(ctx context.Context, fn func(r repository.Repositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.repos)
}

func (m *memTxManager) WithinTx(ctx context.Context, fn func(r repository.Repositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.repos)
}

type noteCall struct {
	body         string
	attachmentID string
}

// fakeHubSpot is a scriptable hubspot.API.
type fakeHubSpot struct {
	mu sync.Mutex

	ticket *hubspot.Ticket
	getErr error

	stageErr   error
	stageCalls []string

	uploadResult *hubspot.UploadedFile
	uploadErr    error
	uploadCalls  int

	noteID    string
	noteErr   error
	noteCalls []noteCall

	associateErr   error
	associateCalls [][2]string

	stages []hubspot.PipelineStage
}

func (f *fakeHubSpot) GetTicket(ctx context.Context, ticketID string) (*hubspot.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.ticket, nil
}

func (f *fakeHubSpot) UpdateTicketStage(ctx context.Context, ticketID, stage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stageErr != nil {
		return f.stageErr
	}
	f.stageCalls = append(f.stageCalls, stage)
	return nil
}

func (f *fakeHubSpot) UploadFile(ctx context.Context, content []byte, filename string) (*hubspot.UploadedFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCalls++
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	if f.uploadResult != nil {
		return f.uploadResult, nil
	}
	return &hubspot.UploadedFile{ID: "file-1", URL: "https://files.example.com/" + filename}, nil
}

func (f *fakeHubSpot) CreateNote(ctx context.Context, body, attachmentID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.noteErr != nil {
		return "", f.noteErr
	}
	f.noteCalls = append(f.noteCalls, noteCall{body: body, attachmentID: attachmentID})
	if f.noteID != "" {
		return f.noteID, nil
	}
	return "hs-note-1", nil
}

func (f *fakeHubSpot) AssociateNoteWithTicket(ctx context.Context, noteID, ticketID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.associateErr != nil {
		return f.associateErr
	}
	f.associateCalls = append(f.associateCalls, [2]string{noteID, ticketID})
	return nil
}

func (f *fakeHubSpot) ListPipelineStages(ctx context.Context) ([]hubspot.PipelineStage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stages, nil
}

// eventRecorder captures published events.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) ofType(eventType events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []events.Event
	for _, event := range r.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

func newRecordingDispatcher() (events.Dispatcher, *eventRecorder) {
	dispatcher := events.NewInMemoryDispatcher()
	recorder := &eventRecorder{}
	for _, eventType := range []events.EventType{
		events.EventTicketIngested,
		events.EventTicketAssigned,
		events.EventTicketUpdated,
		events.EventTicketNoteAdded,
	} {
		dispatcher.Subscribe(eventType, recorder.record)
	}
	return dispatcher, recorder
}
