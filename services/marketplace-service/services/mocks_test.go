package services_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/eventhub/backend/services/marketplace-service/models"
	"github.com/eventhub/backend/services/marketplace-service/sender"
)

// --- Mock Repositories ---

type mockRequestRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*models.EventPlanningRequest
	updates  []map[string]interface{}
	failWith error
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{requests: make(map[uuid.UUID]*models.EventPlanningRequest)}
}

func (m *mockRequestRepo) Create(_ context.Context, r *models.EventPlanningRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	cp := *r
	m.requests[r.ID] = &cp
	return nil
}

func (m *mockRequestRepo) FindByID(_ context.Context, id uuid.UUID) (*models.EventPlanningRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRequestRepo) FindWithDetails(ctx context.Context, id uuid.UUID) (*models.EventPlanningRequest, error) {
	return m.FindByID(ctx, id)
}

func (m *mockRequestRepo) UpdateFields(_ context.Context, id uuid.UUID, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	m.updates = append(m.updates, fields)
	for k, v := range fields {
		switch k {
		case "selected_package":
			s := v.(string)
			r.SelectedPackage = &s
		case "selected_services":
			r.SelectedServices = v.(datatypes.JSON)
		case "status":
			r.Status = v.(models.RequestStatus)
		case "notes":
			r.Notes = v.(string)
		}
	}
	return nil
}

func (m *mockRequestRepo) get(id uuid.UUID) models.EventPlanningRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.requests[id]
}

type mockConsultationRepo struct {
	mu        sync.Mutex
	calls     map[uuid.UUID]*models.ConsultationCall
	createErr error
}

func newMockConsultationRepo() *mockConsultationRepo {
	return &mockConsultationRepo{calls: make(map[uuid.UUID]*models.ConsultationCall)}
}

func (m *mockConsultationRepo) Create(_ context.Context, c *models.ConsultationCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	m.calls[c.ID] = &cp
	return nil
}

func (m *mockConsultationRepo) FindByID(_ context.Context, id uuid.UUID) (*models.ConsultationCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockConsultationRepo) FindActiveByRequest(_ context.Context, requestID uuid.UUID) (*models.ConsultationCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c.RequestID == requestID && c.Status != models.CallStatusCancelled {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockConsultationRepo) ListByRequest(_ context.Context, requestID uuid.UUID) ([]models.ConsultationCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ConsultationCall
	for _, c := range m.calls {
		if c.RequestID == requestID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockConsultationRepo) UpdateFields(_ context.Context, id uuid.UUID, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "status":
			c.Status = v.(models.CallStatus)
		case "scheduled_at":
			c.ScheduledAt = v.(time.Time)
		case "notes":
			c.Notes = v.(string)
		}
	}
	return nil
}

type mockUserRepo struct {
	users map[string]*models.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*models.User)}
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := m.users[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (m *mockUserRepo) FindOrCreateByEmail(_ context.Context, email, name, phone string) (*models.User, error) {
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	u := &models.User{ID: uuid.New(), Email: email, Name: name, Phone: phone}
	m.users[email] = u
	return u, nil
}

type mockEventRepo struct {
	events    map[int64]*models.Event
	listCalls int
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{events: map[int64]*models.Event{
		1: {ID: 1, Name: "Wedding", Slug: "wedding", ImageKey: "events/wedding.jpg", Active: true},
		2: {ID: 2, Name: "Birthday", Slug: "birthday", Active: true},
	}}
}

func (m *mockEventRepo) FindByID(_ context.Context, id int64) (*models.Event, error) {
	e, ok := m.events[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return e, nil
}

func (m *mockEventRepo) ListActive(_ context.Context) ([]models.Event, error) {
	m.listCalls++
	out := make([]models.Event, 0, len(m.events))
	for id := int64(1); id <= int64(len(m.events)); id++ {
		if e, ok := m.events[id]; ok && e.Active {
			out = append(out, *e)
		}
	}
	return out, nil
}

type mockVendorRepo struct {
	listFn    func(ctx context.Context, filter models.VendorFilter) ([]models.Vendor, int64, error)
	findFn    func(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	createFn  func(ctx context.Context, v *models.Vendor) error
	listCalls int
}

func (m *mockVendorRepo) List(ctx context.Context, filter models.VendorFilter) ([]models.Vendor, int64, error) {
	m.listCalls++
	return m.listFn(ctx, filter)
}

func (m *mockVendorRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	return m.findFn(ctx, id)
}

func (m *mockVendorRepo) Create(ctx context.Context, v *models.Vendor) error {
	return m.createFn(ctx, v)
}

type mockNotificationRepo struct {
	logs    []models.NotificationLog
	saveErr error
}

func (m *mockNotificationRepo) SaveLog(_ context.Context, l *models.NotificationLog) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.logs = append(m.logs, *l)
	return nil
}

func (m *mockNotificationRepo) GetLogs(_ context.Context, _ models.NotificationFilter) ([]models.NotificationLog, int64, error) {
	return m.logs, int64(len(m.logs)), nil
}

// --- Fake delivery ---

type fakeChannel struct {
	name string
	err  error
	id   string
	sent []sender.Message
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) AttemptSend(_ context.Context, msg sender.Message) (sender.Receipt, error) {
	f.sent = append(f.sent, msg)
	if f.err != nil {
		return sender.Receipt{}, f.err
	}
	return sender.Receipt{MessageID: f.id, Response: "250 OK"}, nil
}

type fakeSMS struct {
	to   []string
	body []string
	err  error
}

func (f *fakeSMS) SendSMS(_ context.Context, to, body string) (sender.Receipt, error) {
	f.to = append(f.to, to)
	f.body = append(f.body, body)
	if f.err != nil {
		return sender.Receipt{}, f.err
	}
	return sender.Receipt{MessageID: "SM1"}, nil
}

var errBoom = errors.New("connection reset by peer")

func testLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}
