package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
	"github.com/yourusername/cartech-bot/internal/domain/repository"
	"github.com/yourusername/cartech-bot/internal/infrastructure/metrics"
	"github.com/yourusername/cartech-bot/pkg/logger"
)

// SupportUseCase support chat sessiyalarining hayot sikli
type SupportUseCase interface {
	// BuildSnapshot freezes the customer's profile data for a new session.
	BuildSnapshot(ctx context.Context, customerID int64, firstName, username, question string) (entity.SupportSnapshot, error)
	Create(ctx context.Context, customerID int64, snap entity.SupportSnapshot) (entity.SupportSession, error)
	// Accept returns the activated session and every message accumulated so far.
	Accept(ctx context.Context, sessionID, operatorID int64) (entity.SupportSession, []entity.SupportMessage, error)
	Reject(ctx context.Context, sessionID int64) (entity.SupportSession, error)
	Close(ctx context.Context, sessionID int64, by entity.Role) (entity.SupportSession, error)
	// AppendCustomerMessage stores the text in the open session; relay is true when it must reach the operator now.
	AppendCustomerMessage(ctx context.Context, customerID int64, text string) (sess entity.SupportSession, relay bool, err error)
	// Relay stores text from actorID; only the session's own customer or its
	// accepting operator may write, anyone else gets entity.ErrForbidden.
	Relay(ctx context.Context, from entity.Role, sessionID, actorID int64, text string) (entity.SupportSession, error)
	GetActiveOrWaiting(ctx context.Context, customerID int64) (entity.SupportSession, bool, error)
	Get(ctx context.Context, sessionID int64) (entity.SupportSession, error)
	ListWaiting(ctx context.Context) ([]entity.SupportSession, error)
	ListActive(ctx context.Context) ([]entity.SupportSession, error)
	Messages(ctx context.Context, sessionID int64, limit int) ([]entity.SupportMessage, error)
	CountMessages(ctx context.Context, sessionID int64) (int, error)
}

type supportUseCase struct {
	sessions repository.SupportRepository
	users    repository.UserRepository
	garage   repository.GarageRepository
	now      Clock
}

// NewSupportUseCase yangi SupportUseCase
func NewSupportUseCase(
	sessions repository.SupportRepository,
	users repository.UserRepository,
	garage repository.GarageRepository,
	clock Clock,
) SupportUseCase {
	return &supportUseCase{
		sessions: sessions,
		users:    users,
		garage:   garage,
		now:      clockOrDefault(clock),
	}
}

func (u *supportUseCase) BuildSnapshot(ctx context.Context, customerID int64, firstName, username, question string) (entity.SupportSnapshot, error) {
	snap := entity.SupportSnapshot{
		UserName: strings.TrimSpace(firstName),
		Phone:    "не указан",
		Car:      "не указано",
		Question: strings.TrimSpace(question),
	}
	if username != "" {
		snap.UserTG = "@" + strings.TrimPrefix(username, "@")
	}

	user, err := u.users.GetUser(ctx, customerID)
	switch {
	case err == nil:
		if user.Name != "" {
			snap.UserName = user.Name
		}
		if user.Phone != "" {
			snap.Phone = user.Phone
		}
	case errors.Is(err, entity.ErrNotFound):
	default:
		return entity.SupportSnapshot{}, err
	}
	if snap.UserName == "" {
		snap.UserName = "Без имени"
	}

	cars, err := u.garage.ListCars(ctx, customerID)
	if err != nil {
		return entity.SupportSnapshot{}, err
	}
	if label := carsLabel(cars); label != "" {
		snap.Car = label
	}
	return snap, nil
}

// carsLabel prefers primary cars and falls back to the whole garage.
func carsLabel(cars []entity.Car) string {
	var primary, all []string
	for _, c := range cars {
		all = append(all, c.Label())
		if c.IsPrimary {
			primary = append(primary, c.Label())
		}
	}
	if len(primary) > 0 {
		return strings.Join(primary, ", ")
	}
	return strings.Join(all, ", ")
}

func (u *supportUseCase) Create(ctx context.Context, customerID int64, snap entity.SupportSnapshot) (entity.SupportSession, error) {
	snap.Question = strings.TrimSpace(snap.Question)
	if snap.Question == "" {
		return entity.SupportSession{}, entity.NewValidationError("question", "Опишите ваш вопрос текстом")
	}
	if err := u.users.EnsureUser(ctx, customerID); err != nil {
		return entity.SupportSession{}, err
	}
	sess, err := u.sessions.CreateSession(ctx, customerID, snap, u.now())
	if err != nil {
		return entity.SupportSession{}, fmt.Errorf("create support session: %w", err)
	}
	metrics.SupportSessionsTotal.WithLabelValues("created").Inc()
	logger.L().Info("support session created",
		zap.Int64("session_id", sess.ID),
		zap.Int64("user_id", customerID))
	return sess, nil
}

func (u *supportUseCase) Accept(ctx context.Context, sessionID, operatorID int64) (entity.SupportSession, []entity.SupportMessage, error) {
	ok, err := u.sessions.CompareAndSetStatus(ctx, sessionID, entity.SessionWaiting, entity.SessionActive, operatorID, u.now())
	if err != nil {
		return entity.SupportSession{}, nil, err
	}
	if !ok {
		if _, err := u.sessions.GetSession(ctx, sessionID); err != nil {
			return entity.SupportSession{}, nil, err
		}
		return entity.SupportSession{}, nil, entity.ErrSessionNotWaiting
	}

	sess, err := u.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return entity.SupportSession{}, nil, err
	}
	msgs, err := u.sessions.ListMessages(ctx, sessionID, 0)
	if err != nil {
		return entity.SupportSession{}, nil, err
	}
	metrics.SupportSessionsTotal.WithLabelValues("accepted").Inc()
	logger.L().Info("support session accepted",
		zap.Int64("session_id", sessionID),
		zap.Int64("operator_id", operatorID),
		zap.Int("queued_messages", len(msgs)))
	return sess, msgs, nil
}

func (u *supportUseCase) Reject(ctx context.Context, sessionID int64) (entity.SupportSession, error) {
	ok, err := u.sessions.CompareAndSetStatus(ctx, sessionID, entity.SessionWaiting, entity.SessionClosed, 0, u.now())
	if err != nil {
		return entity.SupportSession{}, err
	}
	sess, err := u.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return entity.SupportSession{}, err
	}
	if !ok {
		return sess, entity.ErrSessionNotWaiting
	}
	metrics.SupportSessionsTotal.WithLabelValues("rejected").Inc()
	return sess, nil
}

func (u *supportUseCase) Close(ctx context.Context, sessionID int64, by entity.Role) (entity.SupportSession, error) {
	ok, err := u.sessions.CloseSession(ctx, sessionID, u.now())
	if err != nil {
		return entity.SupportSession{}, err
	}
	sess, err := u.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return entity.SupportSession{}, err
	}
	if !ok {
		return sess, entity.ErrSessionClosed
	}
	metrics.SupportSessionsTotal.WithLabelValues("closed_by_" + string(by.Sender())).Inc()
	logger.L().Info("support session closed",
		zap.Int64("session_id", sessionID),
		zap.String("by", string(by.Sender())))
	return sess, nil
}

func (u *supportUseCase) AppendCustomerMessage(ctx context.Context, customerID int64, text string) (entity.SupportSession, bool, error) {
	sess, ok, err := u.sessions.OpenSessionByUser(ctx, customerID)
	if err != nil {
		return entity.SupportSession{}, false, err
	}
	if !ok {
		return entity.SupportSession{}, false, entity.ErrNoOpenSession
	}
	if err := u.addMessage(ctx, sess.ID, entity.SenderUser, text); err != nil {
		return entity.SupportSession{}, false, err
	}
	relay := sess.Status == entity.SessionActive
	metrics.SupportMessagesTotal.WithLabelValues(string(entity.SenderUser), boolLabel(relay)).Inc()
	return sess, relay, nil
}

func (u *supportUseCase) Relay(ctx context.Context, from entity.Role, sessionID, actorID int64, text string) (entity.SupportSession, error) {
	sess, err := u.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return entity.SupportSession{}, err
	}
	if sess.Status != entity.SessionActive {
		logger.L().Info("relay to inactive session",
			zap.Int64("session_id", sessionID),
			zap.String("status", string(sess.Status)),
			zap.String("from", string(from.Sender())))
		return sess, entity.ErrSessionNotActive
	}
	owner := sess.UserID
	if from == entity.RoleOperator {
		owner = sess.OperatorID
	}
	if owner != actorID {
		logger.L().Warn("relay from foreign chat",
			zap.Int64("session_id", sessionID),
			zap.Int64("actor", actorID),
			zap.Int64("owner", owner))
		return sess, entity.ErrForbidden
	}
	if err := u.addMessage(ctx, sess.ID, from.Sender(), text); err != nil {
		return entity.SupportSession{}, err
	}
	metrics.SupportMessagesTotal.WithLabelValues(string(from.Sender()), "true").Inc()
	return sess, nil
}

func (u *supportUseCase) addMessage(ctx context.Context, sessionID int64, sender entity.Sender, text string) error {
	return u.sessions.AddMessage(ctx, entity.SupportMessage{
		SessionID: sessionID,
		Sender:    sender,
		Text:      text,
		CreatedAt: u.now(),
	})
}

func (u *supportUseCase) GetActiveOrWaiting(ctx context.Context, customerID int64) (entity.SupportSession, bool, error) {
	return u.sessions.OpenSessionByUser(ctx, customerID)
}

func (u *supportUseCase) Get(ctx context.Context, sessionID int64) (entity.SupportSession, error) {
	return u.sessions.GetSession(ctx, sessionID)
}

func (u *supportUseCase) ListWaiting(ctx context.Context) ([]entity.SupportSession, error) {
	return u.sessions.ListSessionsByStatus(ctx, entity.SessionWaiting)
}

func (u *supportUseCase) ListActive(ctx context.Context) ([]entity.SupportSession, error) {
	return u.sessions.ListSessionsByStatus(ctx, entity.SessionActive)
}

func (u *supportUseCase) Messages(ctx context.Context, sessionID int64, limit int) ([]entity.SupportMessage, error) {
	return u.sessions.ListMessages(ctx, sessionID, limit)
}

func (u *supportUseCase) CountMessages(ctx context.Context, sessionID int64) (int, error) {
	return u.sessions.CountMessages(ctx, sessionID)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
