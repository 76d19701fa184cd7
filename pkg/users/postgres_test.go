package users

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive/pkg/authz"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").
		WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock, db
}

func TestGetByID(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	t.Run("found with roles", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(`SELECT u.id, u.email, .* FROM users u WHERE u.id = \$1`).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "email", "first_name", "last_name", "password_hash",
				"organization_id", "created_at", "updated_at",
			}).AddRow("u1", "a@example.com", "Ada", "Lovelace", "hash", "org1", now, now))
		mock.ExpectQuery(`SELECT r.name`).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("ADMIN"))

		user, err := store.GetByID(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", user.Email)
		assert.Equal(t, "org1", user.OrganizationID)
		assert.Equal(t, []authz.RoleName{authz.RoleAdmin}, user.Roles)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT u.id, u.email, .* FROM users u WHERE u.id = \$1`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := store.GetByID(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("null organization", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(`SELECT u.id, u.email, .* FROM users u WHERE u.id = \$1`).
			WithArgs("u2").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "email", "first_name", "last_name", "password_hash",
				"organization_id", "created_at", "updated_at",
			}).AddRow("u2", "b@example.com", "Bob", "Byrne", "hash", nil, now, now))
		mock.ExpectQuery(`SELECT r.name`).
			WithArgs("u2").
			WillReturnRows(sqlmock.NewRows([]string{"name"}))

		user, err := store.GetByID(context.Background(), "u2")
		require.NoError(t, err)
		assert.Empty(t, user.OrganizationID)
		assert.Empty(t, user.Roles)
	})
}

func TestCreate(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	t.Run("success", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs("u1", "a@example.com", "Ada", "Lovelace", "hash", nil).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM user_roles WHERE user_id = \$1`).
			WithArgs("u1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO user_roles`).
			WithArgs("u1", authz.RoleUser, 0).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		user := &User{
			ID:        "u1",
			Email:     "a@example.com",
			FirstName: "Ada",
			LastName:  "Lovelace",
			PasswordHash: "hash",
			Roles:     []authz.RoleName{authz.RoleUser},
		}
		require.NoError(t, store.Create(context.Background(), user))
		assert.False(t, user.CreatedAt.IsZero())

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(fmt.Errorf(`pq: duplicate key value violates unique constraint "users_email_key"`))

		err := store.Create(context.Background(), &User{ID: "u2", Email: "a@example.com"})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})
}

func TestSetOrganization(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE users SET organization_id = \$1`).
			WithArgs("org1", "u1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.SetOrganization(context.Background(), "u1", "org1"))
	})

	t.Run("unknown user", func(t *testing.T) {
		mock.ExpectExec(`UPDATE users SET organization_id = \$1`).
			WithArgs("org1", "missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.SetOrganization(context.Background(), "missing", "org1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
