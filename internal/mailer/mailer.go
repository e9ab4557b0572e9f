// Package mailer dispatches outbound mail as events on the mail topic.
// Delivery is fire-and-forget: publishing happens on its own goroutine and a
// failure is logged, never returned to the flow that triggered the mail.
package mailer

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/showtix/auth_service/internal/dto"
	"github.com/showtix/auth_service/internal/interfaces"
)

type Kind string

const (
	KindVerifyEmail    Kind = "auth.verify_email"
	KindPasswordReset  Kind = "auth.reset_password"
	KindWelcome        Kind = "auth.welcome"
	KindAccountDeleted Kind = "auth.account_deleted"
)

type Sender interface {
	Send(to string, kind Kind, event dto.MailEvent)
}

type EventMailer struct {
	producer interfaces.ProducerHandler
}

func NewEventMailer(producer interfaces.ProducerHandler) *EventMailer {
	return &EventMailer{producer: producer}
}

func (m *EventMailer) Send(to string, kind Kind, event dto.MailEvent) {
	event.EventID = uuid.NewString()
	event.Email = to

	go func() {
		payload, err := json.Marshal(event)
		if err != nil {
			log.Printf("mail event marshal failed kind=%s to=%s: %v", kind, to, err)
			return
		}
		if err := m.producer.PublishMessage([]byte(kind), payload); err != nil {
			log.Printf("mail event publish failed kind=%s to=%s: %v", kind, to, err)
			return
		}
		log.Printf("mail event published kind=%s to=%s event_id=%s", kind, to, event.EventID)
	}()
}
