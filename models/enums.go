package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// InvoiceStatus transitions are caller-driven:
// Draft -> Sent -> Paid. Overdue is normally derived on read (IsOverdue);
// the stored value is only used when an external process persists it.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

func (s InvoiceStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid invoice status: %q", string(s))
	}
	return string(s), nil
}

func (s *InvoiceStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*s = InvoiceStatus(v)
	case []byte:
		*s = InvoiceStatus(v)
	default:
		return errors.New("invoice status must be string")
	}
	if !s.Valid() {
		return fmt.Errorf("invalid invoice status: %q", string(*s))
	}
	return nil
}

type PaymentMode string

const (
	PaymentModeCash         PaymentMode = "Cash"
	PaymentModeBankTransfer PaymentMode = "BankTransfer"
	PaymentModeCard         PaymentMode = "Card"
	PaymentModeOther        PaymentMode = "Other"
)

func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentModeCash, PaymentModeBankTransfer, PaymentModeCard, PaymentModeOther:
		return true
	}
	return false
}

type NotificationReferenceType string

const (
	NotificationReferenceTypeInvoice  NotificationReferenceType = "Invoice"
	NotificationReferenceTypePayment  NotificationReferenceType = "Payment"
	NotificationReferenceTypeReminder NotificationReferenceType = "Reminder"
)

type NotificationAction string

const (
	NotificationActionInvoiceSent     NotificationAction = "InvoiceSent"
	NotificationActionPaymentRecorded NotificationAction = "PaymentRecorded"
	NotificationActionReminderDue     NotificationAction = "ReminderDue"
)

type OutboxPublishStatus = string

const (
	OutboxPublishStatusPending    OutboxPublishStatus = "PENDING"
	OutboxPublishStatusProcessing OutboxPublishStatus = "PROCESSING"
	OutboxPublishStatusSent       OutboxPublishStatus = "SENT"
	OutboxPublishStatusFailed     OutboxPublishStatus = "FAILED"
	OutboxPublishStatusDead       OutboxPublishStatus = "DEAD"
)
