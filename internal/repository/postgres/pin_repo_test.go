package postgres

import (
	"context"
	"testing"
	"time"

	"conduit/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pinColumnNames = []string{"id", "event_id", "creator_id", "title", "description", "latitude", "longitude", "pin_type", "color", "icon", "is_public", "created_at", "updated_at"}

var pinTime = time.Date(2025, 7, 7, 7, 0, 0, 0, time.UTC)

func pinRow(id, title string, lat, lng float64) *sqlmock.Rows {
	return sqlmock.NewRows(pinColumnNames).
		AddRow(id, "ev-1", "user-1", title, nil, lat, lng, "meeting_point", "#00FF00", "flag", true, pinTime, pinTime)
}

func TestPinRepository_ListByEvent(t *testing.T) {
	t.Run("filters by type", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		pt := domain.PinTypeMeetingPoint
		mock.ExpectQuery(`FROM event_pins WHERE event_id = \$1 AND pin_type = \$2`).
			WithArgs("ev-1", "meeting_point").
			WillReturnRows(pinRow("pin-1", "Gate", 1, 2))

		got, err := NewPinRepository(db).ListByEvent(context.Background(), "ev-1", &pt)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, domain.PinTypeMeetingPoint, got[0].PinType)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("all types", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM event_pins WHERE event_id = \$1 ORDER BY created_at`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows(pinColumnNames))

		got, err := NewPinRepository(db).ListByEvent(context.Background(), "ev-1", nil)
		require.NoError(t, err)
		assert.Empty(t, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPinRepository_ListInBounds(t *testing.T) {
	tests := []struct {
		name   string
		bounds domain.Bounds
		query  string
	}{
		{
			name:   "plain box",
			bounds: domain.Bounds{North: 10, South: -10, East: 20, West: -20},
			query:  `latitude BETWEEN \$2 AND \$3 AND longitude BETWEEN \$4 AND \$5`,
		},
		{
			name:   "crosses antimeridian",
			bounds: domain.Bounds{North: 10, South: -10, East: -170, West: 170},
			query:  `AND \(longitude >= \$4 OR longitude <= \$5\)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			b := tt.bounds
			mock.ExpectQuery(tt.query).
				WithArgs("ev-1", b.South, b.North, b.West, b.East).
				WillReturnRows(pinRow("pin-1", "Gate", 0, 0))

			got, err := NewPinRepository(db).ListInBounds(context.Background(), "ev-1", b)
			require.NoError(t, err)
			assert.Len(t, got, 1)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPinRepository_Search(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`WHERE event_id = \$1 AND \(title ILIKE \$2 OR description ILIKE \$2\)`).
		WithArgs("ev-1", `%50\%%`).
		WillReturnRows(pinRow("pin-2", "50% off stand", 3, 4))

	got, err := NewPinRepository(db).Search(context.Background(), "ev-1", " 50% ")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "50% off stand", got[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPinRepository_Update(t *testing.T) {
	t.Run("bad color", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		color := "red"
		mock.ExpectQuery(`UPDATE event_pins SET updated_at = NOW\(\), color = \$1 WHERE id = \$2`).
			WithArgs("red", "pin-1").
			WillReturnError(&pq.Error{Code: "23514", Constraint: "event_pins_color_check"})

		_, err = NewPinRepository(db).Update(context.Background(), "pin-1", domain.PinUpdate{Color: &color})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("moves pin", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		lat, lng := 45.5, 9.25
		mock.ExpectQuery(`UPDATE event_pins SET updated_at = NOW\(\), latitude = \$1, longitude = \$2 WHERE id = \$3`).
			WithArgs(lat, lng, "pin-1").
			WillReturnRows(pinRow("pin-1", "Gate", lat, lng))

		got, err := NewPinRepository(db).Update(context.Background(), "pin-1", domain.PinUpdate{Latitude: &lat, Longitude: &lng})
		require.NoError(t, err)
		assert.Equal(t, lat, got.Latitude)
		assert.Equal(t, lng, got.Longitude)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
