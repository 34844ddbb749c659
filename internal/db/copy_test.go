package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "extraction_fields", []string{"name", "value"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"extraction_fields"}, []string{"name", "value"}).WillReturnResult(3)

	rows := [][]any{{"tenant_name", "Acme"}, {"base_rent_monthly", "4500"}, {"lease_type", "nnn"}}
	n, err := CopyFrom(context.Background(), mock, "extraction_fields", []string{"name", "value"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"extraction_fields"}, []string{"name"}).WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{"tenant_name"}}
	_, err = CopyFrom(context.Background(), mock, "extraction_fields", []string{"name"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO extraction_fields")
	assert.NoError(t, mock.ExpectationsWereMet())
}
