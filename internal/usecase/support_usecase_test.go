package usecase

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
)

const (
	customerID = int64(1001)
	operatorID = int64(9001)
)

func newSupport(t *testing.T) (SupportUseCase, *fakeClock) {
	t.Helper()
	st := newStore(t)
	clock := newFakeClock()
	return NewSupportUseCase(st, st, st, clock.Now), clock
}

func TestSupportSnapshotFallbacks(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	uc := NewSupportUseCase(st, st, st, nil)

	snap, err := uc.BuildSnapshot(ctx, customerID, "", "", "Где мой заказ?")
	require.NoError(t, err)
	assert.Equal(t, "Без имени", snap.UserName)
	assert.Equal(t, "не указан", snap.Phone)
	assert.Equal(t, "не указано", snap.Car)
	assert.Empty(t, snap.UserTG)

	require.NoError(t, st.SetUserField(ctx, customerID, entity.FieldName, "Иван Петров"))
	require.NoError(t, st.SetUserField(ctx, customerID, entity.FieldPhone, "+79991234567"))
	_, err = st.AddCar(ctx, entity.Car{UserID: customerID, Brand: "Lada", Model: "Vesta", Year: 2020})
	require.NoError(t, err)
	_, err = st.AddCar(ctx, entity.Car{UserID: customerID, Brand: "Kia", Model: "Rio"})
	require.NoError(t, err)

	snap, err = uc.BuildSnapshot(ctx, customerID, "Ivan", "ivan_p", "Где мой заказ?")
	require.NoError(t, err)
	assert.Equal(t, "Иван Петров", snap.UserName)
	assert.Equal(t, "+79991234567", snap.Phone)
	assert.Equal(t, "Kia Rio", snap.Car)
	assert.Equal(t, "@ivan_p", snap.UserTG)
}

func TestSupportQueuedMessagesDeliveredOnAccept(t *testing.T) {
	ctx := context.Background()
	uc, _ := newSupport(t)

	snap, err := uc.BuildSnapshot(ctx, customerID, "Иван", "", "Подойдут ли колодки?")
	require.NoError(t, err)
	sess, err := uc.Create(ctx, customerID, snap)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionWaiting, sess.Status)

	for _, text := range []string{"Машина Lada Vesta", "2020 год"} {
		got, relay, err := uc.AppendCustomerMessage(ctx, customerID, text)
		require.NoError(t, err)
		assert.False(t, relay)
		assert.Equal(t, sess.ID, got.ID)
	}

	waiting, err := uc.ListWaiting(ctx)
	require.NoError(t, err)
	require.Len(t, waiting, 1)

	active, history, err := uc.Accept(ctx, sess.ID, operatorID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionActive, active.Status)
	assert.Equal(t, operatorID, active.OperatorID)
	require.NotNil(t, active.AcceptedAt)
	require.Len(t, history, 3)
	assert.Equal(t, "Подойдут ли колодки?", history[0].Text)
	assert.Equal(t, "2020 год", history[2].Text)

	_, relay, err := uc.AppendCustomerMessage(ctx, customerID, "Спасибо")
	require.NoError(t, err)
	assert.True(t, relay)

	_, err = uc.Relay(ctx, entity.RoleOperator, sess.ID, operatorID, "Да, подойдут")
	require.NoError(t, err)
	n, err := uc.CountMessages(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestSupportSecondAcceptFails(t *testing.T) {
	ctx := context.Background()
	uc, _ := newSupport(t)

	sess, err := uc.Create(ctx, customerID, entity.SupportSnapshot{Question: "Вопрос"})
	require.NoError(t, err)

	_, _, err = uc.Accept(ctx, sess.ID, operatorID)
	require.NoError(t, err)
	_, _, err = uc.Accept(ctx, sess.ID, operatorID+1)
	require.ErrorIs(t, err, entity.ErrSessionNotWaiting)

	_, _, err = uc.Accept(ctx, 777, operatorID)
	require.ErrorIs(t, err, entity.ErrNotFound)
}

func TestSupportRejectAndCloseTransitions(t *testing.T) {
	ctx := context.Background()
	uc, _ := newSupport(t)

	sess, err := uc.Create(ctx, customerID, entity.SupportSnapshot{Question: "Вопрос"})
	require.NoError(t, err)
	rejected, err := uc.Reject(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionClosed, rejected.Status)

	_, err = uc.Reject(ctx, sess.ID)
	require.ErrorIs(t, err, entity.ErrSessionNotWaiting)
	_, err = uc.Close(ctx, sess.ID, entity.RoleCustomer)
	require.ErrorIs(t, err, entity.ErrSessionClosed)

	_, _, err = uc.AppendCustomerMessage(ctx, customerID, "ещё тут?")
	require.ErrorIs(t, err, entity.ErrNoOpenSession)
}

func TestSupportRelayToClosedSession(t *testing.T) {
	ctx := context.Background()
	uc, _ := newSupport(t)

	sess, err := uc.Create(ctx, customerID, entity.SupportSnapshot{Question: "Вопрос"})
	require.NoError(t, err)
	_, err = uc.Relay(ctx, entity.RoleOperator, sess.ID, operatorID, "рано")
	require.ErrorIs(t, err, entity.ErrSessionNotActive)

	_, _, err = uc.Accept(ctx, sess.ID, operatorID)
	require.NoError(t, err)
	closed, err := uc.Close(ctx, sess.ID, entity.RoleOperator)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	_, err = uc.Relay(ctx, entity.RoleOperator, sess.ID, operatorID, "поздно")
	require.ErrorIs(t, err, entity.ErrSessionNotActive)

	_, open, err := uc.GetActiveOrWaiting(ctx, customerID)
	require.NoError(t, err)
	assert.False(t, open)
}

func TestSupportNewSessionClosesPrevious(t *testing.T) {
	ctx := context.Background()
	uc, _ := newSupport(t)

	first, err := uc.Create(ctx, customerID, entity.SupportSnapshot{Question: "Первый"})
	require.NoError(t, err)
	second, err := uc.Create(ctx, customerID, entity.SupportSnapshot{Question: "Второй"})
	require.NoError(t, err)

	got, err := uc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionClosed, got.Status)

	open, ok, err := uc.GetActiveOrWaiting(ctx, customerID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.ID, open.ID)
}

func TestSupportCreateRequiresQuestion(t *testing.T) {
	uc, _ := newSupport(t)
	_, err := uc.Create(context.Background(), customerID, entity.SupportSnapshot{Question: "   "})
	_, ok := entity.AsValidation(err)
	assert.True(t, ok)
}

func TestSupportRelayOnlyFromOwningOperator(t *testing.T) {
	ctx := context.Background()
	uc, _ := newSupport(t)

	sess, err := uc.Create(ctx, customerID, entity.SupportSnapshot{Question: "Вопрос"})
	require.NoError(t, err)
	_, _, err = uc.Accept(ctx, sess.ID, operatorID)
	require.NoError(t, err)

	_, err = uc.Relay(ctx, entity.RoleOperator, sess.ID, operatorID+1, "чужой ответ")
	require.ErrorIs(t, err, entity.ErrForbidden)
	_, err = uc.Relay(ctx, entity.RoleCustomer, sess.ID, customerID+1, "не мой чат")
	require.ErrorIs(t, err, entity.ErrForbidden)

	_, err = uc.Relay(ctx, entity.RoleOperator, sess.ID, operatorID, "ответ")
	require.NoError(t, err)
	n, err := uc.CountMessages(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSupportAcceptReturnsWholeQueue(t *testing.T) {
	ctx := context.Background()
	uc, _ := newSupport(t)

	sess, err := uc.Create(ctx, customerID, entity.SupportSnapshot{Question: "Первый вопрос"})
	require.NoError(t, err)
	for i := 0; i < 60; i++ {
		_, _, err := uc.AppendCustomerMessage(ctx, customerID, "msg-"+strconv.Itoa(i))
		require.NoError(t, err)
	}

	_, history, err := uc.Accept(ctx, sess.ID, operatorID)
	require.NoError(t, err)
	require.Len(t, history, 61)
	assert.Equal(t, "Первый вопрос", history[0].Text)
	assert.Equal(t, "msg-0", history[1].Text)
	assert.Equal(t, "msg-59", history[60].Text)
}
