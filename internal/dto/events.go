package dto

// MailEvent is the payload published to the mail topic. The mail service
// picks the template from the message key and renders these fields into it.
type MailEvent struct {
	EventID   string `json:"event_id"`
	Email     string `json:"email"`
	Code      string `json:"code,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}
