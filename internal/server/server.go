// Package server exposes the loan tracker over HTTP. Handlers read records
// from storage, run the amortization engine in memory, and write edited
// payment lists back wholesale; the reconciled schedule itself is never
// persisted.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	cache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pfallmann/loantrack/internal/intake"
	"github.com/pfallmann/loantrack/internal/store"
	"github.com/pfallmann/loantrack/pkg/constants"
	"github.com/pfallmann/loantrack/pkg/loans"
)

// Options configures the HTTP server.
type Options struct {
	ScheduleCacheTTL  time.Duration
	RequestsPerSecond float64
	RequestBurst      int
	DebounceWindow    time.Duration
}

// Server routes API requests to the storage layer and the engine.
type Server struct {
	logger  *zap.Logger
	storage store.Storage
	cache   *cache.Cache
	limiter *rate.Limiter
	gate    *intake.Gate
	now     func() time.Time
}

// NewServer constructs a Server around the given storage.
func NewServer(logger *zap.Logger, storage store.Storage, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ScheduleCacheTTL <= 0 {
		opts.ScheduleCacheTTL = constants.DefaultScheduleCacheTTLSeconds * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = constants.DefaultRequestsPerSecond
	}
	if opts.RequestBurst <= 0 {
		opts.RequestBurst = constants.DefaultRequestBurst
	}
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = constants.DefaultDebounceWindowMillis * time.Millisecond
	}

	return &Server{
		logger:  logger,
		storage: storage,
		cache:   cache.New(opts.ScheduleCacheTTL, 2*opts.ScheduleCacheTTL),
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.RequestBurst),
		gate:    intake.NewGate(opts.DebounceWindow),
		now:     time.Now,
	}
}

// Handler returns the routed HTTP handler with logging and rate limiting
// applied.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/loans", s.listLoansHandler).Methods("GET")
	router.HandleFunc("/loans", s.createLoanHandler).Methods("POST")
	router.HandleFunc("/loans/{id}", s.getLoanHandler).Methods("GET")
	router.HandleFunc("/loans/{id}", s.updateLoanHandler).Methods("PUT")
	router.HandleFunc("/loans/{id}", s.deleteLoanHandler).Methods("DELETE")
	router.HandleFunc("/loans/{id}/payments", s.getPaymentsHandler).Methods("GET")
	router.HandleFunc("/loans/{id}/payments", s.replacePaymentsHandler).Methods("PUT")
	router.HandleFunc("/loans/{id}/schedule", s.scheduleHandler).Methods("GET")
	router.HandleFunc("/loans/{id}/projection", s.projectionHandler).Methods("GET")
	router.HandleFunc("/loans/{id}/accrual", s.accrualHandler).Methods("GET")
	router.HandleFunc("/intake/entries", s.intakeHandler).Methods("POST")

	return s.rateLimit(s.logRequests(router))
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request handled",
			zap.String("op", "server.logRequests"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", s.now().Sub(start)),
		)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loanRequest struct {
	Name           string          `json:"name"`
	Principal      decimal.Decimal `json:"principal"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	InterestPeriod string          `json:"interest_period"`
	InterestType   string          `json:"interest_type"`
	TermMonths     int             `json:"term_months"`
	StartDate      string          `json:"start_date"`
}

type paymentRequest struct {
	Amount            decimal.Decimal `json:"amount"`
	Date              string          `json:"date"`
	Note              string          `json:"note,omitempty"`
	InstallmentNumber int             `json:"installment_number,omitempty"`
}

type installmentResponse struct {
	Number          int     `json:"number"`
	DueDate         string  `json:"due_date"`
	Amount          float64 `json:"amount"`
	InterestAmount  float64 `json:"interest_amount"`
	PrincipalAmount float64 `json:"principal_amount"`
	BalanceBefore   float64 `json:"balance_before"`
	Balance         float64 `json:"balance"`
	Status          string  `json:"status"`
	PaidAt          string  `json:"paid_at,omitempty"`
	DaysElapsed     int     `json:"days_elapsed"`
	SourcePayment   *int    `json:"source_payment,omitempty"`
}

type scheduleResponse struct {
	Installments   []installmentResponse `json:"installments"`
	CurrentBalance float64               `json:"current_balance"`
	TotalPaid      float64               `json:"total_paid"`
}

type projectionResponse struct {
	TotalAmount    float64               `json:"total_amount"`
	MonthlyPayment float64               `json:"monthly_payment"`
	Installments   []installmentResponse `json:"installments"`
}

type accrualResponse struct {
	CurrentBalance      float64 `json:"current_balance"`
	TotalPaid           float64 `json:"total_paid"`
	AccumulatedInterest float64 `json:"accumulated_interest"`
}

func (s *Server) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loan, err := loanFromRequest(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	loan.ID = uuid.New()
	loan.Status = "active"
	loan.CreatedAt = s.now()
	loan.UpdatedAt = loan.CreatedAt

	if err := s.storage.CreateLoan(loan); err != nil {
		s.logger.Error("failed to create loan",
			zap.String("op", "server.createLoanHandler"),
			zap.Error(err),
		)
		http.Error(w, "failed to create loan", http.StatusInternalServerError)
		return
	}

	s.respondJSON(w, http.StatusCreated, loan)
}

func (s *Server) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	records, err := s.storage.GetAllLoans()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.respondJSON(w, http.StatusOK, records)
}

func (s *Server) getLoanHandler(w http.ResponseWriter, r *http.Request) {
	loan, ok := s.loanFromPath(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, loan)
}

func (s *Server) updateLoanHandler(w http.ResponseWriter, r *http.Request) {
	loan, ok := s.loanFromPath(w, r)
	if !ok {
		return
	}

	var req loanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := loanFromRequest(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	updated.ID = loan.ID
	updated.Status = loan.Status
	updated.CreatedAt = loan.CreatedAt
	updated.UpdatedAt = s.now()

	if err := s.storage.UpdateLoan(updated); err != nil {
		if err.Error() == "loan not found" {
			http.Error(w, "loan not found", http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	s.invalidateSchedules(updated.ID)
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(w, r)
	if !ok {
		return
	}

	if err := s.storage.DeleteLoan(id); err != nil {
		if err.Error() == "loan not found" {
			http.Error(w, "loan not found", http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	s.invalidateSchedules(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	loan, ok := s.loanFromPath(w, r)
	if !ok {
		return
	}

	payments, err := s.storage.GetPaymentsForLoan(loan.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if payments == nil {
		payments = []*store.Payment{}
	}
	s.respondJSON(w, http.StatusOK, payments)
}

// replacePaymentsHandler persists an edited payment list wholesale. Zero
// amounts mean "delete this payment" and are dropped before storage. The
// stored list is re-pinned from a fresh reconciliation so the
// payment-to-installment join key always comes from the engine.
func (s *Server) replacePaymentsHandler(w http.ResponseWriter, r *http.Request) {
	loan, ok := s.loanFromPath(w, r)
	if !ok {
		return
	}

	var reqs []paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	records := make([]*store.Payment, 0, len(reqs))
	for i, req := range reqs {
		if req.Amount.IsZero() {
			continue
		}
		date, err := time.Parse(constants.DateLayout, req.Date)
		if err != nil {
			http.Error(w, fmt.Sprintf("payment %d has invalid date %q", i+1, req.Date), http.StatusBadRequest)
			return
		}
		// Client-submitted installment numbers are ignored; the join key is
		// re-derived from the reconciliation below.
		records = append(records, &store.Payment{
			Amount: req.Amount,
			Date:   date,
			Note:   req.Note,
		})
	}

	engine := store.EnginePayments(records)
	rec := loans.ReconcileAt(loan.Definition(), actualPayments(engine), s.now(), loans.Options{})
	pinned := loans.PinPayments(engine, rec)
	for i := range records {
		records[i].InstallmentNumber = pinned[i].InstallmentNumber
	}

	if err := s.storage.ReplacePayments(loan.ID, records); err != nil {
		if err.Error() == "loan not found" {
			http.Error(w, "loan not found", http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	s.invalidateSchedules(loan.ID)
	s.respondJSON(w, http.StatusOK, records)
}

func (s *Server) scheduleHandler(w http.ResponseWriter, r *http.Request) {
	loan, ok := s.loanFromPath(w, r)
	if !ok {
		return
	}

	opts := loans.Options{}
	if r.URL.Query().Get("policy") == string(loans.RestructurePaymentFixed) {
		opts.Restructure = loans.RestructurePaymentFixed
	}
	if r.URL.Query().Get("truncate") == "true" {
		opts.TruncateOnPayoff = true
	}

	cacheKey := fmt.Sprintf("%s|%s|%t", loan.ID, opts.Restructure, opts.TruncateOnPayoff)
	if cached, found := s.cache.Get(cacheKey); found {
		s.respondJSON(w, http.StatusOK, cached)
		return
	}

	records, err := s.storage.GetPaymentsForLoan(loan.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	rec := loans.ReconcileAt(loan.Definition(), actualPayments(store.EnginePayments(records)), s.now(), opts)
	response := scheduleResponse{
		Installments:   installmentResponses(rec.Installments),
		CurrentBalance: rec.CurrentBalance,
		TotalPaid:      rec.TotalPaid,
	}

	s.cache.SetDefault(cacheKey, response)
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) projectionHandler(w http.ResponseWriter, r *http.Request) {
	loan, ok := s.loanFromPath(w, r)
	if !ok {
		return
	}

	projection := loans.Project(loan.Definition())
	s.respondJSON(w, http.StatusOK, projectionResponse{
		TotalAmount:    projection.TotalAmount,
		MonthlyPayment: projection.MonthlyPayment,
		Installments:   installmentResponses(projection.Installments),
	})
}

func (s *Server) accrualHandler(w http.ResponseWriter, r *http.Request) {
	loan, ok := s.loanFromPath(w, r)
	if !ok {
		return
	}

	asOf := s.now()
	if raw := r.URL.Query().Get("asOf"); raw != "" {
		parsed, err := time.Parse(constants.DateLayout, raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid asOf date %q", raw), http.StatusBadRequest)
			return
		}
		asOf = parsed
	}

	records, err := s.storage.GetPaymentsForLoan(loan.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	accrual := loans.Accrue(loan.Definition(), actualPayments(store.EnginePayments(records)), asOf)
	s.respondJSON(w, http.StatusOK, accrualResponse{
		CurrentBalance:      accrual.CurrentBalance,
		TotalPaid:           accrual.TotalPaid,
		AccumulatedInterest: accrual.AccumulatedInterest,
	})
}

type intakeRequest struct {
	LoanID uuid.UUID       `json:"loan_id"`
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date,omitempty"`
	Note   string          `json:"note,omitempty"`
}

// intakeHandler appends a quick-entry payment (the bot/voice/photo path)
// under the capture gate so a retriggered event inside the debounce window
// is processed at most once.
func (s *Server) intakeHandler(w http.ResponseWriter, r *http.Request) {
	token, err := s.gate.Begin()
	if err != nil {
		http.Error(w, "an entry is already being processed", http.StatusConflict)
		return
	}
	defer func() {
		_ = s.gate.Finish(token)
	}()

	var req intakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		http.Error(w, "amount must be positive", http.StatusBadRequest)
		return
	}

	if err := s.gate.StartProcessing(token); err != nil {
		http.Error(w, "capture interrupted", http.StatusConflict)
		return
	}

	loan, err := s.storage.GetLoan(req.LoanID)
	if err != nil {
		http.Error(w, "loan not found", http.StatusNotFound)
		return
	}

	date := s.now()
	if req.Date != "" {
		parsed, err := time.Parse(constants.DateLayout, req.Date)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid date %q", req.Date), http.StatusBadRequest)
			return
		}
		date = parsed
	}

	existing, err := s.storage.GetPaymentsForLoan(loan.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	entry := &store.Payment{
		Amount: req.Amount,
		Date:   date,
		Note:   req.Note,
	}
	updated := append(existing, entry)
	if err := s.storage.ReplacePayments(loan.ID, updated); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.invalidateSchedules(loan.ID)
	s.logger.Info("quick entry recorded",
		zap.String("op", "server.intakeHandler"),
		zap.String("loan", loan.ID.String()),
		zap.String("amount", req.Amount.StringFixed(2)),
	)
	s.respondJSON(w, http.StatusCreated, entry)
}

// actualPayments blanks out override entries: they represent rescheduled
// projections, not completed payments, and must not fund the pool. Positions
// are preserved so SourcePayment indexes stay aligned with the stored list.
func actualPayments(payments []loans.Payment) []loans.Payment {
	actuals := make([]loans.Payment, len(payments))
	copy(actuals, payments)
	for i, p := range actuals {
		if p.IsOverride() {
			actuals[i].Amount = 0
		}
	}
	return actuals
}

func installmentResponses(installments []loans.Installment) []installmentResponse {
	responses := make([]installmentResponse, len(installments))
	for i, inst := range installments {
		responses[i] = installmentResponse{
			Number:          inst.Number,
			DueDate:         inst.DueDate.Format(constants.DateLayout),
			Amount:          inst.Amount,
			InterestAmount:  inst.InterestAmount,
			PrincipalAmount: inst.PrincipalAmount,
			BalanceBefore:   inst.BalanceBefore,
			Balance:         inst.Balance,
			Status:          string(inst.Status),
			DaysElapsed:     inst.DaysElapsed,
		}
		if inst.PaidAt != nil {
			responses[i].PaidAt = inst.PaidAt.Format(constants.DateLayout)
		}
		if inst.SourcePayment >= 0 {
			source := inst.SourcePayment
			responses[i].SourcePayment = &source
		}
	}
	return responses
}

func loanFromRequest(req loanRequest) (*store.Loan, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if req.Principal.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("principal must be positive")
	}
	if req.InterestRate.IsNegative() {
		return nil, fmt.Errorf("interest rate must not be negative")
	}
	if req.TermMonths < 0 {
		return nil, fmt.Errorf("term must not be negative")
	}
	start, err := time.Parse(constants.DateLayout, req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q", req.StartDate)
	}

	period := req.InterestPeriod
	if period == "" {
		period = string(loans.PeriodMonthly)
	}
	interestType := req.InterestType
	if interestType == "" {
		interestType = string(loans.TypeFixedInstallment)
	}

	return &store.Loan{
		Name:           req.Name,
		Principal:      req.Principal,
		InterestRate:   req.InterestRate,
		InterestPeriod: period,
		InterestType:   interestType,
		TermMonths:     req.TermMonths,
		StartDate:      start,
	}, nil
}

func (s *Server) loanFromPath(w http.ResponseWriter, r *http.Request) (*store.Loan, bool) {
	id, ok := idFromPath(w, r)
	if !ok {
		return nil, false
	}
	loan, err := s.storage.GetLoan(id)
	if err != nil {
		if err.Error() == "loan not found" {
			http.Error(w, "loan not found", http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return nil, false
	}
	return loan, true
}

func idFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid loan ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) invalidateSchedules(loanID uuid.UUID) {
	for key := range s.cache.Items() {
		if len(key) >= 36 && key[:36] == loanID.String() {
			s.cache.Delete(key)
		}
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response",
			zap.String("op", "server.respondJSON"),
			zap.Error(err),
		)
	}
}
