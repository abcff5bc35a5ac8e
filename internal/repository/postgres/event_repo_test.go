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

var (
	evStart = time.Date(2025, 7, 1, 18, 0, 0, 0, time.UTC)
	evTime  = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
)

var eventColumnNames = []string{
	"id", "title", "description", "start_date", "end_date", "location", "location_lat", "location_lng",
	"is_private", "status", "creator_id", "participant_count", "created_at", "updated_at",
}

func eventRow(id string, private bool, count int) []driver.Value {
	return []driver.Value{id, "Beach day", nil, evStart, nil, "Santos", -23.96, -46.33, private, "active", "user-1", count, evTime, evTime}
}

func TestEventRepository_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		mock      func(mock sqlmock.Sqlmock)
		wantID    string
		wantCount int
		wantErr   bool
	}{
		{
			name: "inserts event and creator membership in one tx",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`INSERT INTO events \(title, description, start_date`).
					WithArgs("Beach day", nil, evStart, nil, nil, nil, nil, true, domain.EventStatusActive, "user-1", evTime, evTime).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ev-1"))
				mock.ExpectQuery(`INSERT INTO user_events`).
					WithArgs("user-1", "ev-1", domain.MembershipRoleCreator, true).
					WillReturnRows(membershipRow("user-1", "ev-1", "creator", true))
				mock.ExpectExec(`UPDATE events SET participant_count = participant_count \+ \$1`).
					WithArgs(1, "ev-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			wantID:    "ev-1",
			wantCount: 1,
		},
		{
			name: "check violation rolls back",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`INSERT INTO events`).
					WillReturnError(&pq.Error{Code: "23514", Constraint: "events_title_check"})
				mock.ExpectRollback()
			},
			wantErr: true,
		},
		{
			name: "membership failure rolls back event insert",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`INSERT INTO events`).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ev-1"))
				mock.ExpectQuery(`INSERT INTO user_events`).
					WillReturnError(sql.ErrConnDone)
				mock.ExpectRollback()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			e := domain.NewEvent("Beach day", "user-1", evStart, true, evTime)
			err = NewEventRepository(db).Create(ctx, e)
			require.NoError(t, mock.ExpectationsWereMet())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, e.ID)
			assert.Equal(t, tt.wantCount, e.ParticipantCount)
		})
	}
}

func TestEventRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, title, description, start_date`).
					WithArgs("ev-1").
					WillReturnRows(sqlmock.NewRows(eventColumnNames).AddRow(eventRow("ev-1", true, 2)...))
			},
		},
		{
			name: "not found",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, title`).
					WithArgs("ev-1").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			got, err := NewEventRepository(db).GetByID(ctx, "ev-1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ev-1", got.ID)
			assert.True(t, got.IsPrivate)
			assert.Equal(t, 2, got.ParticipantCount)
			assert.Nil(t, got.Description)
			require.NotNil(t, got.Location)
			assert.Equal(t, "Santos", *got.Location)
			require.NotNil(t, got.LocationLat)
			assert.InDelta(t, -23.96, *got.LocationLat, 1e-9)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_ListVisible(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM events WHERE`).
		WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT id, title, .* FROM events WHERE\s+status <> 'cancelled' AND \(NOT is_private OR EXISTS`).
		WithArgs("user-2", 2, 2).
		WillReturnRows(sqlmock.NewRows(eventColumnNames).AddRow(eventRow("ev-3", false, 1)...))

	events, total, err := NewEventRepository(db).ListVisible(context.Background(), "user-2", domain.PaginationParams{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, events, 1)
	assert.Equal(t, "ev-3", events[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_Update(t *testing.T) {
	ctx := context.Background()
	title := "Renamed"
	cancelled := domain.EventStatusCancelled

	t.Run("builds set clause from provided fields", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		row := eventRow("ev-1", false, 1)
		row[1] = "Renamed"
		row[9] = "cancelled"
		mock.ExpectQuery(`UPDATE events SET updated_at = NOW\(\), title = \$1, status = \$2\s+WHERE id = \$3`).
			WithArgs("Renamed", "cancelled", "ev-1").
			WillReturnRows(sqlmock.NewRows(eventColumnNames).AddRow(row...))

		got, err := NewEventRepository(db).Update(ctx, "ev-1", domain.EventUpdate{Title: &title, Status: &cancelled})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		assert.Equal(t, domain.EventStatusCancelled, got.Status)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty update fetches current row", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, title`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows(eventColumnNames).AddRow(eventRow("ev-1", false, 1)...))

		got, err := NewEventRepository(db).Update(ctx, "ev-1", domain.EventUpdate{})
		require.NoError(t, err)
		assert.Equal(t, "Beach day", got.Title)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`UPDATE events SET`).WillReturnError(sql.ErrNoRows)

		_, err = NewEventRepository(db).Update(ctx, "ev-1", domain.EventUpdate{Title: &title})
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestEventRepository_Recount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`UPDATE events\s+SET participant_count = \(SELECT COUNT\(\*\) FROM user_events WHERE event_id = \$1 AND is_active\)`).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"participant_count"}).AddRow(4))

	n, err := NewEventRepository(db).Recount(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
