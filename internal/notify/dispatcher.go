// Package notify tells administrators about client decisions on design orders.
// Dispatch is fire-and-forget: callers never see delivery failures.
package notify

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"agency-portal-backend/internal/models"
)

const (
	EventDesignOrderApproved          = "design_order_approved"
	EventDesignOrderRevisionRequested = "design_order_revision_requested"
	defaultClientName                 = "Cliente"
)

type ProfileLookup interface {
	GetProfile(userID uuid.UUID) (*models.ClientProfile, error)
}

type Sender interface {
	Invoke(payload map[string]interface{}) error
}

type Dispatcher struct {
	profiles ProfileLookup
	sender   Sender
	logger   *zap.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// NewDispatcher bounds every notification by timeout. The profile and
// function clients take no context, so a send that overruns is abandoned
// rather than cancelled.
func NewDispatcher(profiles ProfileLookup, sender Sender, logger *zap.Logger, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		profiles: profiles,
		sender:   sender,
		logger:   logger.Named("notify"),
		timeout:  timeout,
	}
}

// ResolveClient picks the display name (full name, then email, then
// "Cliente") and company name for a profile, which may be nil.
func ResolveClient(profile *models.ClientProfile) (name, company string) {
	name = defaultClientName
	if profile == nil {
		return name, ""
	}
	if v := trimmed(profile.FullName); v != "" {
		name = v
	} else if v := trimmed(profile.Email); v != "" {
		name = v
	}
	return name, trimmed(profile.CompanyName)
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func (d *Dispatcher) DesignOrderApproved(clientID, orderID uuid.UUID, packageName string) {
	d.dispatch(EventDesignOrderApproved, clientID, orderID, packageName, "")
}

func (d *Dispatcher) DesignOrderRevisionRequested(clientID, orderID uuid.UUID, packageName, comment string) {
	d.dispatch(EventDesignOrderRevisionRequested, clientID, orderID, packageName, comment)
}

// Wait blocks until every in-flight notification has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.logger.Warn("abandoning pending notifications", zap.Int64("in_flight", d.inFlight.Load()))
		return ctx.Err()
	}
}

func (d *Dispatcher) dispatch(event string, clientID, orderID uuid.UUID, packageName, comment string) {
	d.wg.Add(1)
	d.inFlight.Add(1)
	go func() {
		defer func() {
			d.inFlight.Add(-1)
			d.wg.Done()
		}()

		sent := make(chan struct{})
		go func() {
			d.send(event, clientID, orderID, packageName, comment)
			close(sent)
		}()

		timer := time.NewTimer(d.timeout)
		defer timer.Stop()
		select {
		case <-sent:
		case <-timer.C:
			d.logger.Warn("notification timed out",
				zap.String("event", event),
				zap.String("order_id", orderID.String()),
				zap.Duration("timeout", d.timeout),
			)
		}
	}()
}

func (d *Dispatcher) send(event string, clientID, orderID uuid.UUID, packageName, comment string) {
	log := d.logger.With(zap.String("event", event), zap.String("order_id", orderID.String()))

	profile, err := d.profiles.GetProfile(clientID)
	if err != nil {
		// fall through with the default name
		log.Warn("profile lookup failed", zap.Error(err))
	}
	clientName, companyName := ResolveClient(profile)

	payload := map[string]interface{}{
		"type":         event,
		"client_name":  clientName,
		"company_name": companyName,
		"order_id":     orderID.String(),
		"package_name": packageName,
	}
	if comment != "" {
		payload["comment"] = comment
	}

	if err := d.sender.Invoke(payload); err != nil {
		log.Warn("notification failed", zap.Error(err))
		return
	}
	log.Debug("notification sent")
}
