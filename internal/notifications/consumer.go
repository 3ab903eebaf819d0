package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/canteenx/canteenx-backend/pkg/db/models"
	"github.com/canteenx/canteenx-backend/pkg/enums"
	"github.com/canteenx/canteenx-backend/pkg/logger"
	"github.com/canteenx/canteenx-backend/pkg/outbox"
	"github.com/canteenx/canteenx-backend/pkg/outbox/idempotency"
	"github.com/canteenx/canteenx-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

const vendorNotificationConsumer = "vendor-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches domain events and turns money movements into vendor
// notifications.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a vendor notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if !notifiableEvent(eventType) {
		c.logg.Info(logCtx, "skipping event without vendor notification")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, vendorNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	notification, err := buildNotification(eventType, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to build notification", err)
		_ = c.idempotency.Delete(ctx, vendorNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	if notification == nil {
		return processResult{ack: true}
	}

	if err := c.repo.Create(ctx, notification); err != nil {
		c.logg.Error(logCtx, "failed to persist notification", err)
		_ = c.idempotency.Delete(ctx, vendorNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(c.logg.WithVendorID(logCtx, notification.VendorID.String()), "vendor notified")
	return processResult{ack: true}
}

func notifiableEvent(eventType enums.OutboxEventType) bool {
	switch eventType {
	case enums.EventSaleRecorded,
		enums.EventRefundRecorded,
		enums.EventSettlementGenerated,
		enums.EventSettlementExported,
		enums.EventVendorNotificationQueued:
		return true
	}
	return false
}

// buildNotification maps a domain event payload onto a vendor notification.
// Returning (nil, nil) drops the event without retry.
func buildNotification(eventType enums.OutboxEventType, data json.RawMessage) (*models.Notification, error) {
	switch eventType {
	case enums.EventSaleRecorded:
		var payload payloads.SaleRecordedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.VendorID == uuid.Nil {
			return nil, fmt.Errorf("vendor id missing")
		}
		link := fmt.Sprintf("/vendors/%s/orders/%s", payload.VendorID, payload.OrderID)
		return &models.Notification{
			VendorID: payload.VendorID,
			Type:     enums.NotificationTypePayment,
			Title:    "Payment received",
			Message: fmt.Sprintf("Order paid. %s credited to your balance after fees.",
				formatCents(payload.NetCents)),
			Link: stringPtr(link),
		}, nil

	case enums.EventRefundRecorded:
		var payload payloads.RefundRecordedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.VendorID == uuid.Nil {
			return nil, fmt.Errorf("vendor id missing")
		}
		link := fmt.Sprintf("/vendors/%s/orders/%s", payload.VendorID, payload.OrderID)
		return &models.Notification{
			VendorID: payload.VendorID,
			Type:     enums.NotificationTypeRefund,
			Title:    "Refund issued",
			Message: fmt.Sprintf("A refund of %s was issued. %s deducted from your balance.",
				formatCents(payload.RefundCents), formatCents(-payload.NetCents)),
			Link: stringPtr(link),
		}, nil

	case enums.EventSettlementGenerated:
		var payload payloads.SettlementGeneratedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.VendorID == uuid.Nil {
			return nil, fmt.Errorf("vendor id missing")
		}
		link := fmt.Sprintf("/vendors/%s/settlements/%s", payload.VendorID, payload.BatchID)
		return &models.Notification{
			VendorID: payload.VendorID,
			Type:     enums.NotificationTypeSettlement,
			Title:    "Settlement ready",
			Message: fmt.Sprintf("Settlement for %s to %s generated. Payable: %s across %d orders.",
				payload.PeriodStart.Format("2 Jan"), payload.PeriodEnd.Format("2 Jan 2006"),
				formatCents(payload.VendorPayableCents), payload.OrderCount),
			Link: stringPtr(link),
		}, nil

	case enums.EventSettlementExported:
		var payload payloads.SettlementExportedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.VendorID == uuid.Nil {
			return nil, fmt.Errorf("vendor id missing")
		}
		link := fmt.Sprintf("/vendors/%s/settlements/%s", payload.VendorID, payload.BatchID)
		return &models.Notification{
			VendorID: payload.VendorID,
			Type:     enums.NotificationTypeSettlement,
			Title:    "Payout on its way",
			Message:  "Your settlement was handed to finance for payout.",
			Link:     stringPtr(link),
		}, nil

	case enums.EventVendorNotificationQueued:
		var payload payloads.VendorNotificationQueuedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.VendorID == uuid.Nil {
			return nil, fmt.Errorf("vendor id missing")
		}
		notification := &models.Notification{
			VendorID: payload.VendorID,
			Type:     payload.Type,
			Title:    payload.Title,
			Message:  payload.Message,
		}
		if payload.Link != "" {
			notification.Link = stringPtr(payload.Link)
		}
		return notification, nil
	}
	return nil, nil
}

func formatCents(cents int) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s₹%d.%02d", sign, cents/100, cents%100)
}

func stringPtr(value string) *string {
	return &value
}
