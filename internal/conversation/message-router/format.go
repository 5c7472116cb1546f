package messagerouter

import (
	"fmt"
	"strconv"
	"strings"

	"loan-assistant/internal/models"
)

const noLoansFoundReply = "❌ No loans found for your account. If you believe this is a mistake, please contact customer support."

const bothRequiredReply = `❌ **Both Loan ID and Account Number Required**

To check your loan details, please provide **both**:
• Your **Loan ID**
• Your **Account Number**`

func loanNotFoundReply(loanID, accountNumber string) string {
	return fmt.Sprintf("❌ No loan found with Loan ID '%s' and Account Number '%s'. Please verify both details and try again.",
		loanID, accountNumber)
}

func missingAccountReply(loanID string) string {
	return fmt.Sprintf(`❌ **Missing Account Number**

You provided Loan ID: **%s**
Please also provide your **Account Number**.`, loanID)
}

func missingLoanIDReply(accountNumber string) string {
	return fmt.Sprintf(`❌ **Missing Loan ID**

You provided Account Number: **%s**
Please also provide your **Loan ID**.`, accountNumber)
}

// formatLoan renders the sanction details of one loan as markdown.
func formatLoan(rec models.LoanRecord) string {
	d := rec.Details()

	var b strings.Builder
	b.WriteString("📄 **Loan Sanction Details**\n\n")
	fmt.Fprintf(&b, "**Loan ID:** %s\n", d.LoanID)
	fmt.Fprintf(&b, "**Account Number:** %s\n", d.LoanAccountNumber)
	fmt.Fprintf(&b, "**Status:** %s\n\n", strings.ToUpper(d.Status))

	b.WriteString("💰 **Financial Details:**\n")
	fmt.Fprintf(&b, "• **Amount Sanctioned:** ₹%s\n", formatAmount(d.AmountSanctioned))
	fmt.Fprintf(&b, "• **Loan Requested:** ₹%s\n", formatAmount(d.LoanRequested))
	fmt.Fprintf(&b, "• **EMI Amount:** ₹%s\n", formatAmount(d.EMIAmount))
	fmt.Fprintf(&b, "• **Number of EMIs:** %d\n\n", d.NumberOfEMIs)

	b.WriteString("📅 **EMI Schedule:**\n")
	fmt.Fprintf(&b, "• **EMI Due Date:** %s\n", d.EMIDueDate)
	fmt.Fprintf(&b, "• **EMI Start Date:** %s\n", d.EMIStartDate)
	fmt.Fprintf(&b, "• **EMI End Date:** %s\n", d.EMIEndDate)
	fmt.Fprintf(&b, "• **Payment Frequency:** %s\n\n", d.PaymentFrequency)

	b.WriteString("📊 **Loan Terms:**\n")
	fmt.Fprintf(&b, "• **Interest Rate:** %s%%\n", models.FormatRate(d.RateOfInterest))
	fmt.Fprintf(&b, "• **Interest Type:** %s\n", d.InterestType)
	fmt.Fprintf(&b, "• **Repayment Mode:** %s\n\n", d.RepaymentMode)

	b.WriteString("Is there anything else I can help you with regarding your loan?")
	return b.String()
}

// formatAmount prints v with two decimals and comma-grouped thousands.
func formatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s[:len(s)-3], s[len(s)-3:]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + frac
}
