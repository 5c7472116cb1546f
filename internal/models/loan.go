// internal/models/loan.go
package models

import (
	"strconv"
	"strings"
	"time"
)

const notAvailable = "N/A"

// LoanRecord is one row of the loan sanction table. Nullable columns are
// pointers.
type LoanRecord struct {
	LoanID            string     `json:"loanId" db:"loan_id"`
	LoanAccountNumber string     `json:"loanAccountNumber" db:"loan_account_number"`
	AmountSanctioned  *float64   `json:"amountSanctioned,omitempty" db:"amount_sanctioned"`
	EMIAmount         *float64   `json:"emiAmount,omitempty" db:"emi_amount"`
	EMIDueDate        *time.Time `json:"emiDueDate,omitempty" db:"emi_due_date"`
	NumberOfEMIs      *int64     `json:"numberOfEmis,omitempty" db:"number_of_emis"`
	EMIStartDate      *time.Time `json:"emiStartDate,omitempty" db:"emi_start_date"`
	EMIEndDate        *time.Time `json:"emiEndDate,omitempty" db:"emi_end_date"`
	RateOfInterest    *float64   `json:"rateOfInterest,omitempty" db:"rate_of_interest"`
	InterestType      *string    `json:"interestType,omitempty" db:"interest_type"`
	Status            *string    `json:"status,omitempty" db:"status"`
	LoanRequested     *float64   `json:"loanRequested,omitempty" db:"loan_requested"`
	PaymentFrequency  *string    `json:"paymentFrequency,omitempty" db:"payment_frequency"`
	RepaymentMode     *string    `json:"repaymentMode,omitempty" db:"repayment_mode"`
}

// LoanDetails is the display form of a LoanRecord: missing numerics are 0,
// missing strings and dates are "N/A", dates are YYYY-MM-DD.
type LoanDetails struct {
	Found             bool    `json:"found"`
	LoanID            string  `json:"loan_id"`
	LoanAccountNumber string  `json:"loan_account_number"`
	AmountSanctioned  float64 `json:"amount_sanctioned"`
	EMIAmount         float64 `json:"emi_amount"`
	EMIDueDate        string  `json:"emi_due_date"`
	NumberOfEMIs      int64   `json:"number_of_emis"`
	EMIStartDate      string  `json:"emi_start_date"`
	EMIEndDate        string  `json:"emi_end_date"`
	RateOfInterest    float64 `json:"rate_of_interest"`
	InterestType      string  `json:"interest_type"`
	Status            string  `json:"status"`
	LoanRequested     float64 `json:"loan_requested"`
	PaymentFrequency  string  `json:"payment_frequency"`
	RepaymentMode     string  `json:"repayment_mode"`
}

// EMIDetails is the EMI subset of LoanDetails.
type EMIDetails struct {
	Found         bool    `json:"found"`
	LoanID        string  `json:"loan_id"`
	AccountNumber string  `json:"account_number"`
	EMIAmount     float64 `json:"emi_amount"`
	EMIDueDate    string  `json:"emi_due_date"`
	NumberOfEMIs  int64   `json:"number_of_emis"`
	EMIStartDate  string  `json:"emi_start_date"`
	EMIEndDate    string  `json:"emi_end_date"`
}

// Details normalizes the record for display.
func (l LoanRecord) Details() LoanDetails {
	return LoanDetails{
		Found:             true,
		LoanID:            l.LoanID,
		LoanAccountNumber: l.LoanAccountNumber,
		AmountSanctioned:  floatOrZero(l.AmountSanctioned),
		EMIAmount:         floatOrZero(l.EMIAmount),
		EMIDueDate:        dateOrNA(l.EMIDueDate),
		NumberOfEMIs:      intOrZero(l.NumberOfEMIs),
		EMIStartDate:      dateOrNA(l.EMIStartDate),
		EMIEndDate:        dateOrNA(l.EMIEndDate),
		RateOfInterest:    floatOrZero(l.RateOfInterest),
		InterestType:      stringOrNA(l.InterestType),
		Status:            stringOrNA(l.Status),
		LoanRequested:     floatOrZero(l.LoanRequested),
		PaymentFrequency:  stringOrNA(l.PaymentFrequency),
		RepaymentMode:     stringOrNA(l.RepaymentMode),
	}
}

// EMI returns the EMI subset of the record.
func (l LoanRecord) EMI() EMIDetails {
	d := l.Details()
	return EMIDetails{
		Found:         true,
		LoanID:        d.LoanID,
		AccountNumber: d.LoanAccountNumber,
		EMIAmount:     d.EMIAmount,
		EMIDueDate:    d.EMIDueDate,
		NumberOfEMIs:  d.NumberOfEMIs,
		EMIStartDate:  d.EMIStartDate,
		EMIEndDate:    d.EMIEndDate,
	}
}

// Customer is the borrower a session token resolves to.
type Customer struct {
	ID        string `json:"id" db:"customer_id"`
	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`
}

// DisplayName is the first name, or the last name when the first is blank.
func (c Customer) DisplayName() string {
	if c.FirstName != "" {
		return c.FirstName
	}
	return c.LastName
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func intOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func stringOrNA(v *string) string {
	if v == nil || *v == "" {
		return notAvailable
	}
	return *v
}

func dateOrNA(v *time.Time) string {
	if v == nil || v.IsZero() {
		return notAvailable
	}
	return v.Format("2006-01-02")
}

// FormatRate renders an interest rate the way it is shown to borrowers:
// shortest form, with at least one decimal place.
func FormatRate(rate float64) string {
	s := strconv.FormatFloat(rate, 'f', -1, 64)
	if strings.Contains(s, ".") {
		return s
	}
	return s + ".0"
}
