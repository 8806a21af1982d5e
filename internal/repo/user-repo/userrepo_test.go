package userrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
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

func TestRepository_FindByLogin(t *testing.T) {
	repo, mock := NewMock(t)

	now := time.Now()
	tests := []struct {
		name      string
		login     string
		mockSetup func()
		expectErr bool
		result    *domain.User
	}{
		{
			name:  "Existing login returns user",
			login: "alice",
			mockSetup: func() {
				rows := pgxmock.NewRows([]string{"id", "login", "password_hash", "created_at"}).
					AddRow(1, "alice", "hash", now)
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, login, password_hash, created_at FROM users WHERE login = $1`)).
					WithArgs("alice").
					WillReturnRows(rows)
			},
			expectErr: false,
			result: &domain.User{
				ID:           1,
				Login:        "alice",
				PasswordHash: "hash",
				CreatedAt:    now,
			},
		},
		{
			name:  "Unknown login returns nil",
			login: "bob",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, login, password_hash, created_at FROM users WHERE login = $1`)).
					WithArgs("bob").
					WillReturnError(pgx.ErrNoRows)
			},
			expectErr: false,
			result:    nil,
		},
		{
			name:  "Database error",
			login: "alice",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, login, password_hash, created_at FROM users WHERE login = $1`)).
					WithArgs("alice").
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
			result:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			result, err := repo.FindByLogin(context.Background(), tt.login)

			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.result, result)
		})
	}
}

func TestRepository_Create(t *testing.T) {
	repo, mock := NewMock(t)

	now := time.Now()
	t.Run("Successfully creates user", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "login", "password_hash", "created_at"}).
			AddRow(1, "alice", "hash", now)
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (login, password_hash) VALUES ($1, $2) RETURNING id, login, password_hash, created_at`)).
			WithArgs("alice", "hash").
			WillReturnRows(rows)

		user, err := repo.Create(context.Background(), &domain.User{Login: "alice", PasswordHash: "hash"})
		assert.NoError(t, err)
		assert.Equal(t, 1, user.ID)
		assert.Equal(t, "alice", user.Login)
	})

	t.Run("Database error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (login, password_hash) VALUES ($1, $2) RETURNING id, login, password_hash, created_at`)).
			WithArgs("alice", "hash").
			WillReturnError(errors.New("database error"))

		user, err := repo.Create(context.Background(), &domain.User{Login: "alice", PasswordHash: "hash"})
		assert.Error(t, err)
		assert.Nil(t, user)
	})
}
