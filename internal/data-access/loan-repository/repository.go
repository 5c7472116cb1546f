// Package loanrepository reads loan sanction and customer data from Postgres,
// caching per-customer lookups in Redis.
package loanrepository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"loan-assistant/internal/common/database"
	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/common/metrics"
	"loan-assistant/internal/common/security"
	"loan-assistant/internal/models"
)

var (
	ErrLoanNotFound         = errors.New("LOAN_NOT_FOUND")
	ErrCustomerNotFound     = errors.New("CUSTOMER_NOT_FOUND")
	ErrInvalidCustomerToken = security.ErrInvalidCustomerToken
	ErrQueryFailed          = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout         = errors.New("QUERY_TIMEOUT")
)

const (
	customerNameKeyPrefix  = "customer:name:"
	customerLoansKeyPrefix = "customer:loans:"
)

// TokenDecoder resolves a session token to a customer id.
type TokenDecoder interface {
	Decode(token string) (string, error)
}

type Repository struct {
	pg      *database.PostgresClient
	cache   *database.RedisClient
	tokens  TokenDecoder
	queries queries
	logger  logger.Logger
}

// New builds a repository. cache and tokens may be nil: without a cache every
// lookup hits Postgres, without a decoder every token is invalid.
func New(pg *database.PostgresClient, cache *database.RedisClient, tokens TokenDecoder, log logger.Logger) *Repository {
	return &Repository{
		pg:      pg,
		cache:   cache,
		tokens:  tokens,
		queries: buildQueries(pg.Table),
		logger:  log.With(map[string]interface{}{"component": "loan-repository"}),
	}
}

// FindLoan returns the sanction row matching both identifiers exactly.
func (r *Repository) FindLoan(ctx context.Context, loanID, accountNumber string) (*models.LoanRecord, error) {
	ctx, cancel := r.pg.WithQueryTimeout(ctx)
	defer cancel()

	row := r.pg.QueryRow(ctx, r.queries.findLoan, loanID, accountNumber)
	rec, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			metrics.LoanLookupsTotal.WithLabelValues("find_loan", "not_found").Inc()
			return nil, ErrLoanNotFound
		}
		metrics.LoanLookupsTotal.WithLabelValues("find_loan", "error").Inc()
		return nil, r.queryError(ctx, "find_loan", err)
	}

	metrics.LoanLookupsTotal.WithLabelValues("find_loan", "found").Inc()
	return rec, nil
}

// FindLoansByCustomer returns every loan of the customer the token resolves
// to, in loan id order. An empty slice means the customer has no loans.
func (r *Repository) FindLoansByCustomer(ctx context.Context, token string) ([]models.LoanRecord, error) {
	customerID, err := r.decode(token)
	if err != nil {
		return nil, err
	}

	cacheKey := customerLoansKeyPrefix + customerID
	var loans []models.LoanRecord
	if r.cacheGet(ctx, cacheKey, &loans) {
		return loans, nil
	}

	qctx, cancel := r.pg.WithQueryTimeout(ctx)
	defer cancel()

	rows, err := r.pg.Query(qctx, r.queries.findLoansByCustomer, customerID)
	if err != nil {
		metrics.LoanLookupsTotal.WithLabelValues("customer_loans", "error").Inc()
		return nil, r.queryError(qctx, "customer_loans", err)
	}
	defer rows.Close()

	loans = make([]models.LoanRecord, 0)
	for rows.Next() {
		rec, err := scanLoan(rows)
		if err != nil {
			return nil, r.queryError(qctx, "customer_loans", err)
		}
		loans = append(loans, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, r.queryError(qctx, "customer_loans", err)
	}

	metrics.LoanLookupsTotal.WithLabelValues("customer_loans", "found").Inc()
	r.cacheSet(ctx, cacheKey, loans)
	return loans, nil
}

// CustomerDisplayName resolves the token to the customer's display name.
func (r *Repository) CustomerDisplayName(ctx context.Context, token string) (string, error) {
	customerID, err := r.decode(token)
	if err != nil {
		return "", err
	}

	cacheKey := customerNameKeyPrefix + customerID
	var name string
	if r.cacheGet(ctx, cacheKey, &name) {
		return name, nil
	}

	qctx, cancel := r.pg.WithQueryTimeout(ctx)
	defer cancel()

	var customer models.Customer
	err = r.pg.QueryRow(qctx, r.queries.findCustomer, customerID).
		Scan(&customer.ID, &customer.FirstName, &customer.LastName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			metrics.LoanLookupsTotal.WithLabelValues("customer_name", "not_found").Inc()
			return "", ErrCustomerNotFound
		}
		metrics.LoanLookupsTotal.WithLabelValues("customer_name", "error").Inc()
		return "", r.queryError(qctx, "customer_name", err)
	}

	name = customer.DisplayName()
	metrics.LoanLookupsTotal.WithLabelValues("customer_name", "found").Inc()
	r.cacheSet(ctx, cacheKey, name)
	return name, nil
}

// SampleLoans returns up to limit sanction rows, used by the connectivity
// check endpoint.
func (r *Repository) SampleLoans(ctx context.Context, limit int) ([]models.LoanRecord, error) {
	if limit <= 0 {
		limit = 5
	}
	ctx, cancel := r.pg.WithQueryTimeout(ctx)
	defer cancel()

	rows, err := r.pg.Query(ctx, r.queries.sampleLoans, limit)
	if err != nil {
		return nil, r.queryError(ctx, "sample_loans", err)
	}
	defer rows.Close()

	loans := make([]models.LoanRecord, 0, limit)
	for rows.Next() {
		rec, err := scanLoan(rows)
		if err != nil {
			return nil, r.queryError(ctx, "sample_loans", err)
		}
		loans = append(loans, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, r.queryError(ctx, "sample_loans", err)
	}
	return loans, nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pg.Ping(ctx)
}

func (r *Repository) decode(token string) (string, error) {
	if r.tokens == nil || token == "" {
		return "", ErrInvalidCustomerToken
	}
	id, err := r.tokens.Decode(token)
	if err != nil {
		if errors.Is(err, ErrInvalidCustomerToken) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidCustomerToken, err)
	}
	return id, nil
}

func (r *Repository) queryError(ctx context.Context, queryName string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w: %s", ErrQueryTimeout, queryName)
	}
	r.logger.Error("query failed", map[string]interface{}{
		"query": queryName,
		"error": err,
	})
	return fmt.Errorf("%w: %s: %v", ErrQueryFailed, queryName, err)
}

func (r *Repository) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if r.cache == nil {
		return false
	}
	val, err := r.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, database.ErrCacheMiss) {
			r.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err})
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		r.logger.Warn("cache entry undecodable", map[string]interface{}{"key": key, "error": err})
		return false
	}
	return true
}

func (r *Repository) cacheSet(ctx context.Context, key string, value interface{}) {
	if r.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, data); err != nil {
		r.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err})
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLoan(row rowScanner) (*models.LoanRecord, error) {
	var rec models.LoanRecord
	err := row.Scan(
		&rec.LoanID,
		&rec.LoanAccountNumber,
		&rec.AmountSanctioned,
		&rec.EMIAmount,
		&rec.EMIDueDate,
		&rec.NumberOfEMIs,
		&rec.EMIStartDate,
		&rec.EMIEndDate,
		&rec.RateOfInterest,
		&rec.InterestType,
		&rec.Status,
		&rec.LoanRequested,
		&rec.PaymentFrequency,
		&rec.RepaymentMode,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
