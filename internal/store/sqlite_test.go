package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "loantrack-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testLoan() *Loan {
	now := time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC)
	return &Loan{
		ID:             uuid.New(),
		Name:           "car loan",
		Principal:      decimal.RequireFromString("1200.00"),
		InterestRate:   decimal.RequireFromString("2"),
		InterestPeriod: "monthly",
		InterestType:   "fixedInstallment",
		TermMonths:     12,
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:         "active",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestLoanRoundTrip(t *testing.T) {
	s := newTestStore(t)
	loan := testLoan()
	require.NoError(t, s.CreateLoan(loan))

	fetched, err := s.GetLoan(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.ID, fetched.ID)
	assert.Equal(t, "car loan", fetched.Name)
	assert.True(t, loan.Principal.Equal(fetched.Principal), "principal %s != %s", loan.Principal, fetched.Principal)
	assert.True(t, loan.InterestRate.Equal(fetched.InterestRate))
	assert.Equal(t, 12, fetched.TermMonths)
	assert.True(t, loan.StartDate.Equal(fetched.StartDate))
}

func TestGetLoanNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetLoan(uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loan not found")
}

func TestUpdateLoan(t *testing.T) {
	s := newTestStore(t)
	loan := testLoan()
	require.NoError(t, s.CreateLoan(loan))

	loan.Name = "refinanced car loan"
	loan.InterestRate = decimal.RequireFromString("1.5")
	require.NoError(t, s.UpdateLoan(loan))

	fetched, err := s.GetLoan(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, "refinanced car loan", fetched.Name)
	assert.True(t, decimal.RequireFromString("1.5").Equal(fetched.InterestRate))

	missing := testLoan()
	err = s.UpdateLoan(missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loan not found")
}

func TestDeleteLoanRemovesPayments(t *testing.T) {
	s := newTestStore(t)
	loan := testLoan()
	require.NoError(t, s.CreateLoan(loan))
	require.NoError(t, s.ReplacePayments(loan.ID, []*Payment{
		{Amount: decimal.RequireFromString("113.48"), Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	}))

	require.NoError(t, s.DeleteLoan(loan.ID))

	_, err := s.GetLoan(loan.ID)
	require.Error(t, err)

	payments, err := s.GetPaymentsForLoan(loan.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	err = s.DeleteLoan(loan.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loan not found")
}

func TestGetAllLoans(t *testing.T) {
	s := newTestStore(t)
	first := testLoan()
	second := testLoan()
	second.Name = "mortgage"
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	require.NoError(t, s.CreateLoan(first))
	require.NoError(t, s.CreateLoan(second))

	loans, err := s.GetAllLoans()
	require.NoError(t, err)
	require.Len(t, loans, 2)
	assert.Equal(t, "car loan", loans[0].Name)
	assert.Equal(t, "mortgage", loans[1].Name)
}

func TestReplacePaymentsWholesale(t *testing.T) {
	s := newTestStore(t)
	loan := testLoan()
	require.NoError(t, s.CreateLoan(loan))

	initial := []*Payment{
		{Amount: decimal.RequireFromString("113.48"), Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Note: "first", InstallmentNumber: 1},
		{Amount: decimal.RequireFromString("50.00"), Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Note: "partial"},
	}
	require.NoError(t, s.ReplacePayments(loan.ID, initial))

	fetched, err := s.GetPaymentsForLoan(loan.ID)
	require.NoError(t, err)
	require.Len(t, fetched, 2)
	assert.Equal(t, "first", fetched[0].Note)
	assert.Equal(t, 1, fetched[0].InstallmentNumber)
	assert.Equal(t, 0, fetched[0].Position)
	assert.Equal(t, 1, fetched[1].Position)
	assert.True(t, decimal.RequireFromString("113.48").Equal(fetched[0].Amount))

	// The next write replaces the whole list, not just the changed rows.
	replacement := []*Payment{
		{Amount: decimal.RequireFromString("163.48"), Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Note: "merged"},
	}
	require.NoError(t, s.ReplacePayments(loan.ID, replacement))

	fetched, err = s.GetPaymentsForLoan(loan.ID)
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	assert.Equal(t, "merged", fetched[0].Note)
	assert.NotEqual(t, uuid.Nil, fetched[0].ID)
	assert.Equal(t, loan.ID, fetched[0].LoanID)
}

func TestReplacePaymentsUnknownLoan(t *testing.T) {
	s := newTestStore(t)
	err := s.ReplacePayments(uuid.New(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loan not found")
}

func TestEngineConversions(t *testing.T) {
	loan := testLoan()
	def := loan.Definition()
	assert.InDelta(t, 1200.0, def.Principal, 0.001)
	assert.InDelta(t, 2.0, def.InterestRate, 0.001)
	assert.Equal(t, 12, def.TermMonths)

	payments := EnginePayments([]*Payment{
		{Amount: decimal.RequireFromString("113.48"), Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Note: "first"},
	})
	require.Len(t, payments, 1)
	assert.InDelta(t, 113.48, payments[0].Amount, 0.001)
	assert.Equal(t, "first", payments[0].Note)
}
