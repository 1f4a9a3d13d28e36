package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pwgateway/internal/models"
)

const markPaidSQL = "UPDATE `orders` SET .*`status`=\\?.*`transaction_id`=\\?.* WHERE id = \\? AND status IN \\(\\?,\\?,\\?,\\?\\)"

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, mock
}

func TestOrderRepository_MarkPaid_MySQL(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(markPaidSQL).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	changed, err := repo.MarkPaid(context.Background(), &models.Order{ID: 42}, "TX-9")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_MarkPaid_AlreadyPaid(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(markPaidSQL).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	changed, err := repo.MarkPaid(context.Background(), &models.Order{ID: 42}, "TX-9")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_MarkPaid_Error(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)
	boom := errors.New("deadlock")

	mock.ExpectBegin()
	mock.ExpectExec(markPaidSQL).WillReturnError(boom)
	mock.ExpectRollback()

	_, err := repo.MarkPaid(context.Background(), &models.Order{ID: 42}, "TX-9")
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
