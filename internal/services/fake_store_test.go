package services_test

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"agency-portal-backend/internal/models"
	"agency-portal-backend/internal/supabase"
)

// memStore is an in-memory Repository whose transactions roll back on error.
type memStore struct {
	mu         sync.Mutex
	orders     map[uuid.UUID]models.DesignOrder
	deliveries map[uuid.UUID]models.Delivery
	files      map[uuid.UUID]models.DeliveryFile
	feedback   []models.FeedbackEvent
	audit      []models.AuditEntry

	// failAudit makes InsertAudit fail, to exercise rollback.
	failAudit bool
}

func newMemStore() *memStore {
	return &memStore{
		orders:     map[uuid.UUID]models.DesignOrder{},
		deliveries: map[uuid.UUID]models.Delivery{},
		files:      map[uuid.UUID]models.DeliveryFile{},
	}
}

func (m *memStore) addOrder(status models.OrderStatus, used, max int) models.DesignOrder {
	order := models.DesignOrder{
		ID:            uuid.New(),
		ClientID:      uuid.New(),
		PackageID:     uuid.New(),
		PackageName:   "Logo Premium",
		Status:        status,
		RevisionsUsed: used,
		MaxRevisions:  max,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	m.orders[order.ID] = order
	return order
}

func (m *memStore) addDelivery(orderID uuid.UUID, version int, status models.DeliveryStatus) models.Delivery {
	d := models.Delivery{
		ID:            uuid.New(),
		OrderID:       orderID,
		VersionNumber: version,
		Status:        status,
		CreatedAt:     time.Now().Add(time.Duration(version) * time.Minute),
	}
	m.deliveries[d.ID] = d
	f := models.DeliveryFile{
		ID:         uuid.New(),
		DeliveryID: d.ID,
		FileName:   fmt.Sprintf("logo-v%d.png", version),
		FileType:   "image/png",
		FilePath:   supabase.DeliveryFilePath(orderID, version, fmt.Sprintf("logo-v%d.png", version)),
	}
	m.files[f.ID] = f
	return d
}

func (m *memStore) order(id uuid.UUID) models.DesignOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id]
}

func (m *memStore) GetDesignOrder(_ context.Context, orderID, clientID uuid.UUID) (*models.DesignOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.ClientID != clientID {
		return nil, fmt.Errorf("failed to get design order: %w", sql.ErrNoRows)
	}
	return &o, nil
}

func (m *memStore) GetDesignOrderByID(_ context.Context, orderID uuid.UUID) (*models.DesignOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("failed to get design order: %w", sql.ErrNoRows)
	}
	return &o, nil
}

func (m *memStore) ListDesignOrders(_ context.Context, clientID uuid.UUID) ([]models.DesignOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DesignOrder
	for _, o := range m.orders {
		if o.ClientID == clientID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) ListDeliveries(_ context.Context, orderID uuid.UUID) ([]models.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deliveriesFor(orderID), nil
}

func (m *memStore) deliveriesFor(orderID uuid.UUID) []models.Delivery {
	var out []models.Delivery
	for _, d := range m.deliveries {
		if d.OrderID != orderID {
			continue
		}
		for _, f := range m.files {
			if f.DeliveryID == d.ID {
				d.Files = append(d.Files, f)
			}
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out
}

func (m *memStore) ListFeedback(_ context.Context, orderID uuid.UUID) ([]models.FeedbackEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.FeedbackEvent
	for _, f := range m.feedback {
		if d, ok := m.deliveries[f.DeliveryID]; ok && d.OrderID == orderID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memStore) GetDeliveryFile(_ context.Context, orderID, fileID uuid.UUID) (*models.DeliveryFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileID]
	if !ok || m.deliveries[f.DeliveryID].OrderID != orderID {
		return nil, fmt.Errorf("failed to get delivery file: %w", sql.ErrNoRows)
	}
	return &f, nil
}

func (m *memStore) InTx(_ context.Context, fn func(tx supabase.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{store: m}
	snapshot := m.snapshot()
	if err := fn(tx); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memSnapshot struct {
	orders     map[uuid.UUID]models.DesignOrder
	deliveries map[uuid.UUID]models.Delivery
	files      map[uuid.UUID]models.DeliveryFile
	feedback   int
	audit      int
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		orders:     map[uuid.UUID]models.DesignOrder{},
		deliveries: map[uuid.UUID]models.Delivery{},
		files:      map[uuid.UUID]models.DeliveryFile{},
		feedback:   len(m.feedback),
		audit:      len(m.audit),
	}
	for k, v := range m.orders {
		s.orders[k] = v
	}
	for k, v := range m.deliveries {
		s.deliveries[k] = v
	}
	for k, v := range m.files {
		s.files[k] = v
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.orders = s.orders
	m.deliveries = s.deliveries
	m.files = s.files
	m.feedback = m.feedback[:s.feedback]
	m.audit = m.audit[:s.audit]
}

type memTx struct {
	store *memStore
}

func (t *memTx) LockOrder(_ context.Context, orderID, clientID uuid.UUID) (*models.DesignOrder, error) {
	o, ok := t.store.orders[orderID]
	if !ok || (clientID != uuid.Nil && o.ClientID != clientID) {
		return nil, fmt.Errorf("failed to lock design order: %w", sql.ErrNoRows)
	}
	return &o, nil
}

func (t *memTx) LatestDelivery(_ context.Context, orderID uuid.UUID) (*models.Delivery, int, error) {
	all := t.store.deliveriesFor(orderID)
	if len(all) == 0 {
		return nil, 0, nil
	}
	latest := all[0]
	latest.Files = nil
	return &latest, len(all), nil
}

func (t *memTx) UpdateDeliveryStatus(_ context.Context, deliveryID uuid.UUID, from, to models.DeliveryStatus) error {
	d, ok := t.store.deliveries[deliveryID]
	if !ok || d.Status != from {
		return fmt.Errorf("delivery %s: %w", deliveryID, supabase.ErrStaleRow)
	}
	d.Status = to
	t.store.deliveries[deliveryID] = d
	return nil
}

func (t *memTx) UpdateOrder(_ context.Context, order *models.DesignOrder) error {
	if order.RevisionsUsed > order.MaxRevisions {
		return fmt.Errorf("failed to update design order: %w", supabase.ErrCheckViolation)
	}
	order.UpdatedAt = time.Now()
	t.store.orders[order.ID] = *order
	return nil
}

func (t *memTx) InsertFeedback(_ context.Context, event *models.FeedbackEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now()
	t.store.feedback = append(t.store.feedback, *event)
	return nil
}

func (t *memTx) InsertDelivery(_ context.Context, delivery *models.Delivery) error {
	for _, d := range t.store.deliveries {
		if d.OrderID == delivery.OrderID && (d.VersionNumber == delivery.VersionNumber ||
			(d.Status == models.DeliveryStatusPendingReview && delivery.Status == models.DeliveryStatusPendingReview)) {
			return fmt.Errorf("failed to insert delivery: %w", supabase.ErrDuplicate)
		}
	}
	if delivery.ID == uuid.Nil {
		delivery.ID = uuid.New()
	}
	delivery.CreatedAt = time.Now()
	t.store.deliveries[delivery.ID] = *delivery
	return nil
}

func (t *memTx) InsertDeliveryFile(_ context.Context, file *models.DeliveryFile) error {
	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	t.store.files[file.ID] = *file
	return nil
}

func (t *memTx) InsertAudit(_ context.Context, entry models.AuditEntry) error {
	if t.store.failAudit {
		return fmt.Errorf("failed to insert audit log: %w", sql.ErrConnDone)
	}
	t.store.audit = append(t.store.audit, entry)
	return nil
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) UploadDeliveryFile(orderID uuid.UUID, version int, filename, contentType string, data io.Reader) (string, error) {
	args := m.Called(orderID, version, filename, contentType, data)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) SignedURL(storagePath string, expiresIn int) (string, error) {
	args := m.Called(storagePath, expiresIn)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) DeleteFiles(storagePaths []string) error {
	args := m.Called(storagePaths)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) DesignOrderApproved(clientID, orderID uuid.UUID, packageName string) {
	m.Called(clientID, orderID, packageName)
}

func (m *mockNotifier) DesignOrderRevisionRequested(clientID, orderID uuid.UUID, packageName, comment string) {
	m.Called(clientID, orderID, packageName, comment)
}
