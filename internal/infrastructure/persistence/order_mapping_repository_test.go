package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockOrderMappingRepository creates a GormOrderMappingRepository with a mocked SQL connection
func newMockOrderMappingRepository(t *testing.T) (*GormOrderMappingRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormOrderMappingRepository(gormDB), mock, mockDB
}

func TestGormOrderMappingRepository_FindByExternal(t *testing.T) {
	t.Run("finds existing mapping", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderMappingRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		mappingID := uuid.New()
		internalID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "provider", "external_order_id", "internal_order_id", "last_external_status", "last_canonical_state"}).
			AddRow(mappingID, tenantID, "CAREEM", "C-1001", internalID, "ACCEPTED", "confirmed")

		mock.ExpectQuery(`SELECT \* FROM "order_mappings" WHERE tenant_id = \$1 AND provider = \$2 AND external_order_id = \$3 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, delivery.ProviderCareem, "C-1001", 1).
			WillReturnRows(rows)

		mapping, err := repo.FindByExternal(context.Background(), tenantID, delivery.ProviderCareem, "C-1001")

		assert.NoError(t, err)
		require.NotNil(t, mapping)
		assert.Equal(t, "C-1001", mapping.ExternalOrderID)
		assert.Equal(t, internalID, mapping.InternalOrderID)
		assert.Equal(t, delivery.OrderStateConfirmed, mapping.LastCanonicalState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrMappingNotFound for unknown order", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderMappingRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "order_mappings"`).
			WillReturnError(gorm.ErrRecordNotFound)

		mapping, err := repo.FindByExternal(context.Background(), tenantID, delivery.ProviderJahez, "J-404")

		assert.Nil(t, mapping)
		assert.ErrorIs(t, err, delivery.ErrMappingNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormOrderMappingRepository_Create(t *testing.T) {
	t.Run("inserts new mapping", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderMappingRepository(t)
		defer mockDB.Close()

		mapping, err := delivery.NewOrderMapping(uuid.New(), delivery.ProviderCareem, "C-1", uuid.New(), delivery.OrderStateReceived, "PENDING")
		require.NoError(t, err)

		mock.ExpectExec(`INSERT INTO "order_mappings"`).
			WillReturnResult(sqlmock.NewResult(1, 1))

		assert.NoError(t, repo.Create(context.Background(), mapping))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps unique violation to ErrMappingConflict", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderMappingRepository(t)
		defer mockDB.Close()

		mapping, err := delivery.NewOrderMapping(uuid.New(), delivery.ProviderCareem, "C-1", uuid.New(), delivery.OrderStateReceived, "PENDING")
		require.NoError(t, err)

		mock.ExpectExec(`INSERT INTO "order_mappings"`).
			WillReturnError(&pq.Error{Code: "23505"})

		assert.ErrorIs(t, repo.Create(context.Background(), mapping), delivery.ErrMappingConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormOrderMappingRepository_Update(t *testing.T) {
	t.Run("updates status columns", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderMappingRepository(t)
		defer mockDB.Close()

		mapping, err := delivery.NewOrderMapping(uuid.New(), delivery.ProviderDeliveroo, "dr-9", uuid.New(), delivery.OrderStateReceived, "placed")
		require.NoError(t, err)
		mapping.ApplyStatus("accepted", delivery.OrderStateConfirmed)

		mock.ExpectExec(`UPDATE "order_mappings" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Update(context.Background(), mapping))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrMappingNotFound when no row matched", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderMappingRepository(t)
		defer mockDB.Close()

		mapping, err := delivery.NewOrderMapping(uuid.New(), delivery.ProviderDeliveroo, "dr-9", uuid.New(), delivery.OrderStateReceived, "placed")
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "order_mappings" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Update(context.Background(), mapping), delivery.ErrMappingNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
