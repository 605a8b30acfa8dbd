package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore manages the database connection and operations for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore and initializes the database.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates the database tables if they don't already exist. Decimal
// fields are stored as TEXT so no precision is lost.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		principal TEXT NOT NULL,
		interest_rate TEXT NOT NULL,
		interest_period TEXT NOT NULL,
		interest_type TEXT NOT NULL,
		term_months INTEGER NOT NULL DEFAULT 0,
		start_date DATETIME NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		date DATETIME NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		installment_number INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY(loan_id) REFERENCES loans(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateLoan inserts a new loan into the database.
func (s *SQLiteStore) CreateLoan(loan *Loan) error {
	_, err := s.db.Exec(
		`INSERT INTO loans (id, name, principal, interest_rate, interest_period, interest_type, term_months, start_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loan.ID.String(), loan.Name, loan.Principal, loan.InterestRate, loan.InterestPeriod, loan.InterestType, loan.TermMonths, loan.StartDate, loan.Status, loan.CreatedAt, loan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}

// GetLoan retrieves a loan by its ID.
func (s *SQLiteStore) GetLoan(id uuid.UUID) (*Loan, error) {
	row := s.db.QueryRow(
		`SELECT id, name, principal, interest_rate, interest_period, interest_type, term_months, start_date, status, created_at, updated_at FROM loans WHERE id = ?`,
		id.String(),
	)
	loan, err := scanLoan(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("loan not found")
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return loan, nil
}

// UpdateLoan updates an existing loan in the database.
func (s *SQLiteStore) UpdateLoan(loan *Loan) error {
	result, err := s.db.Exec(
		`UPDATE loans SET name = ?, principal = ?, interest_rate = ?, interest_period = ?, interest_type = ?, term_months = ?, start_date = ?, status = ?, updated_at = ? WHERE id = ?`,
		loan.Name, loan.Principal, loan.InterestRate, loan.InterestPeriod, loan.InterestType, loan.TermMonths, loan.StartDate, loan.Status, loan.UpdatedAt, loan.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("loan not found")
	}
	return nil
}

// DeleteLoan removes a loan and its payments from the database within a
// transaction.
func (s *SQLiteStore) DeleteLoan(id uuid.UUID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM payments WHERE loan_id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete associated payments: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM loans WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete loan: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("loan not found")
	}

	return tx.Commit()
}

// GetAllLoans retrieves all loans.
func (s *SQLiteStore) GetAllLoans() ([]*Loan, error) {
	rows, err := s.db.Query(`SELECT id, name, principal, interest_rate, interest_period, interest_type, term_months, start_date, status, created_at, updated_at FROM loans ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all loans: %w", err)
	}
	defer rows.Close()

	var loans []*Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan row: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return loans, nil
}

// ReplacePayments swaps the entire payment list for a loan: delete all, then
// re-insert the submitted list in order, all inside one transaction.
func (s *SQLiteStore) ReplacePayments(loanID uuid.UUID, payments []*Payment) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(1) FROM loans WHERE id = ?`, loanID.String()).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check loan: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("loan not found")
	}

	if _, err := tx.Exec(`DELETE FROM payments WHERE loan_id = ?`, loanID.String()); err != nil {
		return fmt.Errorf("failed to clear payments: %w", err)
	}

	for i, payment := range payments {
		if payment.ID == uuid.Nil {
			payment.ID = uuid.New()
		}
		payment.LoanID = loanID
		payment.Position = i
		_, err := tx.Exec(
			`INSERT INTO payments (id, loan_id, amount, date, note, installment_number, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			payment.ID.String(), loanID.String(), payment.Amount, payment.Date, payment.Note, payment.InstallmentNumber, payment.Position,
		)
		if err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}
	}

	return tx.Commit()
}

// GetPaymentsForLoan retrieves the payment list for a loan in submitted
// order.
func (s *SQLiteStore) GetPaymentsForLoan(loanID uuid.UUID) ([]*Payment, error) {
	rows, err := s.db.Query(
		`SELECT id, loan_id, amount, date, note, installment_number, position FROM payments WHERE loan_id = ? ORDER BY position ASC`,
		loanID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments for loan %s: %w", loanID, err)
	}
	defer rows.Close()

	var payments []*Payment
	for rows.Next() {
		var payment Payment
		var paymentIDStr, loanIDStr string
		var paymentDate time.Time
		if err := rows.Scan(&paymentIDStr, &loanIDStr, &payment.Amount, &paymentDate, &payment.Note, &payment.InstallmentNumber, &payment.Position); err != nil {
			return nil, fmt.Errorf("failed to scan payment row: %w", err)
		}
		payment.ID = uuid.MustParse(paymentIDStr)
		payment.LoanID = uuid.MustParse(loanIDStr)
		payment.Date = paymentDate
		payments = append(payments, &payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for loan payments: %w", err)
	}
	return payments, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLoan(row rowScanner) (*Loan, error) {
	var loan Loan
	var loanIDStr string
	var startDate, created, updated time.Time
	err := row.Scan(&loanIDStr, &loan.Name, &loan.Principal, &loan.InterestRate, &loan.InterestPeriod, &loan.InterestType, &loan.TermMonths, &startDate, &loan.Status, &created, &updated)
	if err != nil {
		return nil, err
	}
	loan.ID = uuid.MustParse(loanIDStr)
	loan.StartDate = startDate
	loan.CreatedAt = created
	loan.UpdatedAt = updated
	return &loan, nil
}
