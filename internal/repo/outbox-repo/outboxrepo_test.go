package outboxrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"

	"github.com/toniautla/settlement/internal/domain"
)

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	repo := New(mockDB)
	defer mockDB.Close()

	return repo, mockDB
}

func TestRepository_Enqueue(t *testing.T) {
	repo, mock := NewMock(t)

	payload := map[string]any{"order_id": 10, "status": domain.OrderStatusPurchased}

	t.Run("Successfully enqueues event", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO outbox_events (type, payload) VALUES ($1, $2)`)).
			WithArgs(domain.EventOrderStatusChanged, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Enqueue(context.Background(), domain.EventOrderStatusChanged, payload)
		assert.NoError(t, err)
	})

	t.Run("Unmarshalable payload", func(t *testing.T) {
		err := repo.Enqueue(context.Background(), domain.EventOrderStatusChanged, make(chan int))
		assert.Error(t, err)
	})

	t.Run("Database error", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO outbox_events (type, payload) VALUES ($1, $2)`)).
			WithArgs(domain.EventOrderStatusChanged, pgxmock.AnyArg()).
			WillReturnError(errors.New("database error"))

		err := repo.Enqueue(context.Background(), domain.EventOrderStatusChanged, payload)
		assert.Error(t, err)
	})
}

func TestRepository_FindUnsent(t *testing.T) {
	repo, mock := NewMock(t)

	now := time.Now()
	t.Run("Returns unsent events oldest first", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "type", "payload", "created_at", "sent_at"}).
			AddRow(1, domain.EventOrderStatusChanged, []byte(`{"order_id":10}`), now.Add(-time.Minute), nil).
			AddRow(2, domain.EventWalletBalanceChanged, []byte(`{"wallet_id":1}`), now, nil)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, type, payload, created_at, sent_at FROM outbox_events WHERE sent_at IS NULL ORDER BY created_at ASC LIMIT $1`)).
			WithArgs(100).
			WillReturnRows(rows)

		events, err := repo.FindUnsent(context.Background(), 100)
		assert.NoError(t, err)
		assert.Len(t, events, 2)
		assert.Equal(t, 1, events[0].ID)
		assert.Nil(t, events[0].SentAt)
	})

	t.Run("Database error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, type, payload, created_at, sent_at FROM outbox_events WHERE sent_at IS NULL ORDER BY created_at ASC LIMIT $1`)).
			WithArgs(100).
			WillReturnError(errors.New("database error"))

		events, err := repo.FindUnsent(context.Background(), 100)
		assert.Error(t, err)
		assert.Nil(t, events)
	})
}

func TestRepository_MarkSent(t *testing.T) {
	repo, mock := NewMock(t)

	t.Run("Successfully marks event sent", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE outbox_events SET sent_at = now() WHERE id = $1`)).
			WithArgs(1).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.MarkSent(context.Background(), 1)
		assert.NoError(t, err)
	})

	t.Run("Database error", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE outbox_events SET sent_at = now() WHERE id = $1`)).
			WithArgs(1).
			WillReturnError(errors.New("database error"))

		err := repo.MarkSent(context.Background(), 1)
		assert.Error(t, err)
	})
}
