package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/invoicing_backend/config"
	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"gorm.io/gorm"
)

// OutboxMessage is the transactional outbox row behind invoice
// notifications (invoice sent, payment recorded, reminder due). The row
// is written in the same transaction as the domain change; a dispatcher
// publishes it to Pub/Sub after commit, so a notification can never be
// emitted for a change that rolled back.
type OutboxMessage struct {
	ID             int                       `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	OrganizationId string                    `gorm:"size:36;not null;index" json:"organization_id"`
	EventTime      time.Time                 `gorm:"index;not null" json:"event_time"`
	ReferenceId    int                       `json:"reference_id"`
	ReferenceType  NotificationReferenceType `gorm:"type:enum('Invoice','Payment','Reminder')" json:"reference_type"`
	Action         NotificationAction        `gorm:"type:enum('InvoiceSent','PaymentRecorded','ReminderDue')" json:"action"`
	Payload        []byte                    `gorm:"type:blob" json:"payload"`
	// Publish metadata (publish happens after commit via dispatcher).
	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func ConvertToPubSubMessage(record OutboxMessage) config.PubSubMessage {
	return config.PubSubMessage{
		ID:             record.ID,
		OrganizationId: record.OrganizationId,
		EventTime:      record.EventTime,
		ReferenceId:    record.ReferenceId,
		ReferenceType:  string(record.ReferenceType),
		Action:         string(record.Action),
		Payload:        record.Payload,
		CorrelationId:  record.CorrelationId,
	}
}

// WriteOutbox stages a notification inside the caller's transaction.
// payload is marshalled as-is; the consumer owns its schema.
func WriteOutbox(tx *gorm.DB, ctx context.Context, organizationId string, referenceType NotificationReferenceType, referenceId int, action NotificationAction, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	record := OutboxMessage{
		OrganizationId: organizationId,
		EventTime:      time.Now().UTC(),
		ReferenceId:    referenceId,
		ReferenceType:  referenceType,
		Action:         action,
		Payload:        body,
		PublishStatus:  OutboxPublishStatusPending,
		CorrelationId:  correlationId,
	}
	return tx.WithContext(ctx).Create(&record).Error
}
