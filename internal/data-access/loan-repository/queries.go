package loanrepository

import "fmt"

const (
	sanctionTable = "lms_loan_saction"
	customerTable = "lms_customers"
)

// The sanction table spells the frequency column "payment_freqmuency".
const loanColumns = `
	loan_id,
	loan_account_number,
	amount_sanctioned,
	emi_amount,
	emi_due_date,
	number_of_emis,
	emi_start_date,
	emi_end_date,
	rate_of_interest,
	interest_type,
	status,
	loan_requested,
	payment_freqmuency,
	repayment_mode`

type queries struct {
	findLoan            string
	findLoansByCustomer string
	findCustomer        string
	sampleLoans         string
}

func buildQueries(table func(string) string) queries {
	return queries{
		findLoan: fmt.Sprintf(`SELECT %s
	FROM %s
	WHERE loan_id = $1 AND loan_account_number = $2`, loanColumns, table(sanctionTable)),

		findLoansByCustomer: fmt.Sprintf(`SELECT %s
	FROM %s
	WHERE customer_id = $1
	ORDER BY loan_id`, loanColumns, table(sanctionTable)),

		findCustomer: fmt.Sprintf(`SELECT customer_id, COALESCE(first_name, ''), COALESCE(last_name, '')
	FROM %s
	WHERE customer_id = $1`, table(customerTable)),

		sampleLoans: fmt.Sprintf(`SELECT %s
	FROM %s
	LIMIT $1`, loanColumns, table(sanctionTable)),
	}
}
