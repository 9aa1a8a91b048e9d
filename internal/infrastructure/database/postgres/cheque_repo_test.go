package postgres

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	called := m.Called(ctx, sql, args)
	if called.Get(0) == nil {
		return nil, called.Error(1)
	}
	return called.Get(0).(pgx.Rows), called.Error(1)
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	called := m.Called(ctx, sql, args)
	return called.Get(0).(pgx.Row)
}

// fakeRows replays fixed values through Scan.
type fakeRows struct {
	data   [][]any
	idx    int
	err    error
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.data[r.idx-1], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return assign(r.data[r.idx-1], dest)
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(r.values, dest)
}

func assign(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: %d values for %d destinations", len(values), len(dest))
	}
	for i, v := range values {
		target := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(v))
	}
	return nil
}

func strPtr(s string) *string { return &s }

var created = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func row(id, bank string, amount *string, checkDate string, dishonor, notice *string, status string, filed *string) []any {
	return []any{
		id, bank, amount, checkDate, dishonor, notice, status, filed,
		(*string)(nil), (*string)(nil), (*string)(nil), created,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestChequeRepository_List(t *testing.T) {
	q := new(mockQuerier)
	rows := &fakeRows{data: [][]any{
		row("c-1", "HBL", strPtr("150000.50"), "2024-01-10", strPtr("2024-02-01"), nil, "pending", nil),
		row("c-2", "MCB", nil, "2024-03-05", strPtr("2024-03-20"), strPtr("2024-04-01"), "delivered", strPtr("2024-05-01")),
	}}
	q.On("Query", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "FROM cheques") && strings.HasSuffix(sql, "ORDER BY id")
	}), mock.Anything).Return(rows, nil)

	repo := NewChequeRepository(q, logging.NewNopLogger())
	got, err := repo.List(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, rows.closed)

	assert.Equal(t, "c-1", got[0].ID)
	assert.Equal(t, "HBL", got[0].BankName)
	assert.True(t, got[0].Amount.Valid)
	assert.Equal(t, "150000.5", got[0].Amount.Decimal.String())
	assert.Equal(t, cheque.MustParseDate("2024-01-10"), got[0].CheckDate)
	require.NotNil(t, got[0].DishonorDate)
	assert.Equal(t, "2024-02-01", got[0].DishonorDate.String())
	assert.Nil(t, got[0].LegalNoticeDate)
	assert.Equal(t, cheque.NoticeStatusPending, got[0].NoticeStatus)
	assert.Equal(t, created, got[0].CreatedAt)

	assert.False(t, got[1].Amount.Valid)
	assert.Equal(t, cheque.NoticeStatusDelivered, got[1].NoticeStatus)
	assert.True(t, got[1].IsCaseFiled())
	q.AssertExpectations(t)
}

func TestChequeRepository_List_QueryError(t *testing.T) {
	q := new(mockQuerier)
	q.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil, stderrors.New("connection refused"))

	_, err := NewChequeRepository(q, logging.NewNopLogger()).List(context.Background())

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func TestChequeRepository_List_IterationError(t *testing.T) {
	q := new(mockQuerier)
	rows := &fakeRows{err: stderrors.New("conn reset")}
	q.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(rows, nil)

	_, err := NewChequeRepository(q, logging.NewNopLogger()).List(context.Background())

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
	assert.True(t, rows.closed)
}

func TestChequeRepository_List_BadStatusRow(t *testing.T) {
	q := new(mockQuerier)
	rows := &fakeRows{data: [][]any{
		row("c-9", "UBL", nil, "2024-01-10", nil, nil, "lost_in_post", nil),
	}}
	q.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(rows, nil)

	_, err := NewChequeRepository(q, logging.NewNopLogger()).List(context.Background())

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeChequeInvalidStatus))
}

func TestChequeRepository_List_BadAmount(t *testing.T) {
	q := new(mockQuerier)
	rows := &fakeRows{data: [][]any{
		row("c-9", "UBL", strPtr("NaN"), "2024-01-10", nil, nil, "pending", nil),
	}}
	q.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(rows, nil)

	_, err := NewChequeRepository(q, logging.NewNopLogger()).List(context.Background())

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeChequeInvalidAmount))
}

func TestChequeRepository_FindByID(t *testing.T) {
	q := new(mockQuerier)
	q.On("QueryRow", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.HasSuffix(sql, "WHERE id = $1")
	}), []any{"c-1"}).Return(fakeRow{values: row("c-1", "HBL", nil, "2024-01-10", nil, nil, "", nil)})

	c, err := NewChequeRepository(q, logging.NewNopLogger()).FindByID(context.Background(), "c-1")

	require.NoError(t, err)
	assert.Equal(t, "c-1", c.ID)
	assert.Equal(t, cheque.NoticeStatusPending, c.NoticeStatus)
	q.AssertExpectations(t)
}

func TestChequeRepository_FindByID_NotFound(t *testing.T) {
	q := new(mockQuerier)
	q.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(fakeRow{err: pgx.ErrNoRows})

	_, err := NewChequeRepository(q, logging.NewNopLogger()).FindByID(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeChequeNotFound))
	assert.True(t, errors.IsNotFound(err))
}

func TestChequeRepository_FindByID_ScanError(t *testing.T) {
	q := new(mockQuerier)
	q.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(fakeRow{err: stderrors.New("timeout")})

	_, err := NewChequeRepository(q, logging.NewNopLogger()).FindByID(context.Background(), "c-1")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func TestChequeRepository_Version(t *testing.T) {
	cases := []struct {
		name    string
		row     fakeRow
		want    string
		wantErr bool
	}{
		{name: "revision", row: fakeRow{values: []any{int64(42)}}, want: "r42"},
		{name: "no row", row: fakeRow{err: pgx.ErrNoRows}, want: "r0"},
		{name: "unmigrated", row: fakeRow{err: &pgconn.PgError{Code: undefinedTable}}, wantErr: true},
		{name: "other", row: fakeRow{err: stderrors.New("boom")}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := new(mockQuerier)
			q.On("QueryRow", mock.Anything, selectRevision, mock.Anything).Return(tc.row)

			v, err := NewChequeRepository(q, logging.NewNopLogger()).Version(context.Background())

			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, v)
		})
	}
}
