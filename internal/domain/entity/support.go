package entity

import "time"

// SessionStatus support chat holati
type SessionStatus string

const (
	SessionWaiting SessionStatus = "waiting"
	SessionActive  SessionStatus = "active"
	SessionClosed  SessionStatus = "closed"
)

// Open reports waiting or active.
func (s SessionStatus) Open() bool {
	return s == SessionWaiting || s == SessionActive
}

// Sender tags who wrote a support message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAdmin Sender = "admin"
)

// Role identifies which party triggered an action in a support session.
type Role int

const (
	RoleCustomer Role = iota
	RoleOperator
)

func (r Role) Sender() Sender {
	if r == RoleOperator {
		return SenderAdmin
	}
	return SenderUser
}

// SupportSnapshot is denormalized customer data frozen at session creation.
type SupportSnapshot struct {
	UserName string
	UserTG   string
	Phone    string
	Car      string
	Question string
}

// SupportSession bitta mijoz bilan suhbat
type SupportSession struct {
	ID         int64
	UserID     int64
	UserName   string
	UserTG     string
	Phone      string
	Car        string
	Question   string
	Status     SessionStatus
	OperatorID int64
	CreatedAt  time.Time
	AcceptedAt *time.Time
	ClosedAt   *time.Time
}

// SupportMessage is append-only.
type SupportMessage struct {
	ID        int64
	SessionID int64
	Sender    Sender
	Text      string
	CreatedAt time.Time
}
