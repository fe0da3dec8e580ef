package repository_test

import (
	"errors"
	"testing"
	"time"

	"activation_server/domain"
	"activation_server/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestFindActivation_SQLMock(t *testing.T) {
	conn, mock := SetupMockDB(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"activation_id", "user_id", "activation_status", "counter", "timestamp_created", "timestamp_last_used", "timestamp_activation_expire"}).
		AddRow("act-1", "alice", int(domain.ActivationActive), 4, now, now, now)

	mock.ExpectQuery(`SELECT \* FROM "pa_activation" WHERE activation_id = \$1`).
		WithArgs("act-1", 1).
		WillReturnRows(rows)

	repo := repository.NewActivationRepository()
	activation, err := repo.FindActivation(conn, "act-1")

	assert.NoError(t, err)
	assert.NotNil(t, activation)
	assert.Equal(t, "alice", activation.UserId)
	assert.Equal(t, domain.ActivationActive, activation.ActivationStatus)
	assert.EqualValues(t, 4, activation.Counter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActivationForUpdate_LocksRow(t *testing.T) {
	conn, mock := SetupMockDB(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"activation_id", "user_id", "activation_status", "timestamp_created", "timestamp_last_used", "timestamp_activation_expire"}).
		AddRow("act-1", "alice", int(domain.ActivationActive), now, now, now)

	mock.ExpectQuery(`SELECT \* FROM "pa_activation" WHERE activation_id = \$1 (.+)FOR UPDATE`).
		WithArgs("act-1", 1).
		WillReturnRows(rows)

	repo := repository.NewActivationRepository()
	activation, err := repo.FindActivationForUpdate(conn, "act-1")

	assert.NoError(t, err)
	assert.NotNil(t, activation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActivation_NotFound(t *testing.T) {
	conn, mock := SetupMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "pa_activation" WHERE activation_id = \$1`).
		WithArgs("missing", 1).
		WillReturnRows(sqlmock.NewRows([]string{"activation_id"}))

	repo := repository.NewActivationRepository()
	activation, err := repo.FindActivation(conn, "missing")

	assert.Nil(t, activation)
	assert.True(t, repository.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCreatedActivation_FiltersStateAndExpiry(t *testing.T) {
	conn, mock := SetupMockDB(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"activation_id", "activation_code", "activation_status", "timestamp_created", "timestamp_last_used", "timestamp_activation_expire"}).
		AddRow("act-1", "AAAAA-BBBBB-CCCCC-DDDDD", int(domain.ActivationCreated), now, now, now.Add(time.Minute))

	mock.ExpectQuery(`SELECT \* FROM "pa_activation" WHERE application_id = \$1 AND activation_code = \$2 AND activation_status IN \(\$3,\$4\) AND timestamp_activation_expire > \$5`).
		WithArgs(1, "AAAAA-BBBBB-CCCCC-DDDDD", int(domain.ActivationCreated), int(domain.ActivationOtpUsed), sqlmock.AnyArg(), 1).
		WillReturnRows(rows)

	repo := repository.NewActivationRepository()
	states := []domain.ActivationStatus{domain.ActivationCreated, domain.ActivationOtpUsed}
	activation, err := repo.FindCreatedActivation(conn, 1, "AAAAA-BBBBB-CCCCC-DDDDD", states, now)

	assert.NoError(t, err)
	assert.NotNil(t, activation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsLockTimeout(t *testing.T) {
	assert.True(t, repository.IsLockTimeout(errors.New("ERROR: canceling statement due to lock timeout (SQLSTATE 55P03)")))
	assert.False(t, repository.IsLockTimeout(errors.New("record not found")))
	assert.False(t, repository.IsLockTimeout(nil))
}
