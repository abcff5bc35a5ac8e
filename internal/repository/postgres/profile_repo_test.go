package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"conduit/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var profileColumnNames = []string{
	"id", "email", "full_name", "avatar_url", "phone_number", "role", "is_active", "last_seen",
	"password_hash", "salt", "created_at", "updated_at",
}

func profileRow(id, email, name string) []driver.Value {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return []driver.Value{id, email, name, nil, nil, "user", true, nil, "hash", "salt", ts, ts}
}

func TestProfileRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantID  string
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO profiles \(email, full_name`).
					WithArgs("ana@example.com", "Ana", nil, nil, "user", true, "hash", "salt", now, now).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("user-1"))
			},
			wantID: "user-1",
		},
		{
			name: "duplicate email",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO profiles`).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: domain.ErrDuplicateEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			p := domain.NewProfile("ana@example.com", "Ana", now)
			p.PasswordHash, p.Salt = "hash", "salt"
			err = NewProfileRepository(db).Create(ctx, p)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, p.ID)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestProfileRepository_GetByEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("normalises email", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, email, full_name .* FROM profiles WHERE email = \$1`).
			WithArgs("ana@example.com").
			WillReturnRows(sqlmock.NewRows(profileColumnNames).AddRow(profileRow("user-1", "ana@example.com", "Ana")...))

		p, err := NewProfileRepository(db).GetByEmail(ctx, "  Ana@Example.com ")
		require.NoError(t, err)
		assert.Equal(t, "user-1", p.ID)
		assert.Nil(t, p.AvatarURL)
		assert.Nil(t, p.LastSeen)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM profiles WHERE email`).WillReturnError(sql.ErrNoRows)

		_, err = NewProfileRepository(db).GetByEmail(ctx, "x@example.com")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestProfileRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	name := "Ana Lima"
	mock.ExpectQuery(`UPDATE profiles SET updated_at = NOW\(\), full_name = \$1 WHERE id = \$2`).
		WithArgs("Ana Lima", "user-1").
		WillReturnRows(sqlmock.NewRows(profileColumnNames).AddRow(profileRow("user-1", "ana@example.com", "Ana Lima")...))

	p, err := NewProfileRepository(db).Update(context.Background(), "user-1", domain.ProfileUpdate{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", p.FullName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_Search(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`WHERE is_active AND id <> \$1 AND \(full_name ILIKE \$2 OR email ILIKE \$2\)`).
		WithArgs("user-1", `%an\_a%`, 10).
		WillReturnRows(sqlmock.NewRows(profileColumnNames).AddRow(profileRow("user-2", "an_a@example.com", "An_a")...))

	got, err := NewProfileRepository(db).Search(context.Background(), " an_a ", "user-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "user-2", got[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_TouchLastSeen(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2025, 5, 5, 5, 5, 5, 0, time.UTC)
	mock.ExpectExec(`UPDATE profiles SET last_seen = \$1 WHERE id = \$2`).
		WithArgs(at, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewProfileRepository(db).TouchLastSeen(context.Background(), "user-1", at)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
