// Package constants provides shared constants for the loantrack application.
package constants

// DateLayout is the format expected in config files and API payloads and is
// also the output date format.
const DateLayout = "2006-01-02"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DaysPerMonth is the day-count convention used for daily interest accrual
	DaysPerMonth = 30

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01

	// PaymentPoolEpsilon is the slack allowed when deciding whether the
	// remaining payment pool covers an installment in full
	PaymentPoolEpsilon = 0.1

	// FinalBalanceTolerance is the residual below which the final-period
	// balance is cleaned up to zero
	FinalBalanceTolerance = 1.0
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultDatabasePath is the default SQLite database location
	DefaultDatabasePath = "loantrack.db"

	// DefaultScheduleCacheTTLSeconds is how long reconciled schedules stay
	// cached before the next read recomputes them
	DefaultScheduleCacheTTLSeconds = 30

	// DefaultRequestsPerSecond is the default API rate limit
	DefaultRequestsPerSecond = 20

	// DefaultRequestBurst is the default API rate limit burst
	DefaultRequestBurst = 40
)

// Intake gate defaults
const (
	// DefaultDebounceWindowMillis is the window during which repeated intake
	// triggers collapse into the capture already in flight
	DefaultDebounceWindowMillis = 750
)
