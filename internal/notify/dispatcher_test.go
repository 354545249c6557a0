package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"agency-portal-backend/internal/models"
	"agency-portal-backend/internal/notify"
)

type mockProfiles struct{ mock.Mock }

func (m *mockProfiles) GetProfile(userID uuid.UUID) (*models.ClientProfile, error) {
	args := m.Called(userID)
	profile, _ := args.Get(0).(*models.ClientProfile)
	return profile, args.Error(1)
}

type mockSender struct{ mock.Mock }

func (m *mockSender) Invoke(payload map[string]interface{}) error {
	return m.Called(payload).Error(0)
}

func strPtr(s string) *string { return &s }

func TestResolveClient(t *testing.T) {
	tests := []struct {
		name        string
		profile     *models.ClientProfile
		wantName    string
		wantCompany string
	}{
		{"no profile", nil, "Cliente", ""},
		{"empty profile", &models.ClientProfile{}, "Cliente", ""},
		{"full name", &models.ClientProfile{FullName: strPtr("Ana Souza"), Email: strPtr("ana@x.com"), CompanyName: strPtr("Acme")}, "Ana Souza", "Acme"},
		{"email fallback", &models.ClientProfile{FullName: strPtr("  "), Email: strPtr("ana@x.com")}, "ana@x.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, company := notify.ResolveClient(tt.profile)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantCompany, company)
		})
	}
}

func TestDispatcher_DesignOrderApproved(t *testing.T) {
	clientID, orderID := uuid.New(), uuid.New()
	profiles := &mockProfiles{}
	sender := &mockSender{}

	profiles.On("GetProfile", clientID).Return(&models.ClientProfile{FullName: strPtr("Ana"), CompanyName: strPtr("Acme")}, nil)
	sender.On("Invoke", map[string]interface{}{
		"type":         notify.EventDesignOrderApproved,
		"client_name":  "Ana",
		"company_name": "Acme",
		"order_id":     orderID.String(),
		"package_name": "Logo Premium",
	}).Return(nil)

	d := notify.NewDispatcher(profiles, sender, zap.NewNop(), time.Second)
	d.DesignOrderApproved(clientID, orderID, "Logo Premium")
	require.NoError(t, d.Wait(context.Background()))

	profiles.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestDispatcher_RevisionCarriesComment(t *testing.T) {
	clientID, orderID := uuid.New(), uuid.New()
	profiles := &mockProfiles{}
	sender := &mockSender{}

	profiles.On("GetProfile", clientID).Return(nil, errors.New("postgrest down"))
	sender.On("Invoke", mock.MatchedBy(func(p map[string]interface{}) bool {
		return p["type"] == notify.EventDesignOrderRevisionRequested &&
			p["client_name"] == "Cliente" &&
			p["comment"] == "mudar fonte"
	})).Return(errors.New("function timeout"))

	d := notify.NewDispatcher(profiles, sender, zap.NewNop(), time.Second)
	d.DesignOrderRevisionRequested(clientID, orderID, "Logo", "mudar fonte")
	require.NoError(t, d.Wait(context.Background()))

	sender.AssertNumberOfCalls(t, "Invoke", 1)
}

// hangingSender blocks every Invoke until release is closed.
type hangingSender struct {
	release chan struct{}
}

func (h *hangingSender) Invoke(map[string]interface{}) error {
	<-h.release
	return nil
}

func TestDispatcher_SendTimeoutBoundsWait(t *testing.T) {
	profiles := &mockProfiles{}
	profiles.On("GetProfile", mock.Anything).Return(nil, nil)
	sender := &hangingSender{release: make(chan struct{})}
	defer close(sender.release)

	core, logs := observer.New(zapcore.WarnLevel)
	d := notify.NewDispatcher(profiles, sender, zap.New(core), 50*time.Millisecond)
	d.DesignOrderApproved(uuid.New(), uuid.New(), "Logo")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, d.Wait(ctx))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1, logs.FilterMessage("notification timed out").Len())
}

func TestDispatcher_WaitHonoursDeadline(t *testing.T) {
	profiles := &mockProfiles{}
	profiles.On("GetProfile", mock.Anything).Return(nil, nil)
	sender := &hangingSender{release: make(chan struct{})}
	defer close(sender.release)

	core, logs := observer.New(zapcore.WarnLevel)
	d := notify.NewDispatcher(profiles, sender, zap.New(core), time.Hour)
	d.DesignOrderApproved(uuid.New(), uuid.New(), "Logo")
	d.DesignOrderRevisionRequested(uuid.New(), uuid.New(), "Logo", "ajustar")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := d.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	abandoned := logs.FilterMessage("abandoning pending notifications").All()
	require.Len(t, abandoned, 1)
	assert.Equal(t, int64(2), abandoned[0].ContextMap()["in_flight"])
}
