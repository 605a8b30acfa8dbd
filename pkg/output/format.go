// Package output provides utilities for formatting and displaying loan
// schedules.
package output

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pfallmann/loantrack/pkg/constants"
	"github.com/pfallmann/loantrack/pkg/loans"
)

// Schedule pairs a loan's display name with its reconciled schedule.
type Schedule struct {
	Name   string
	Result loans.Reconciliation
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(schedules []Schedule) {
	p := message.NewPrinter(language.English)
	for i, schedule := range schedules {
		fmt.Printf("--- Schedule for loan %s ---\n", schedule.Name)
		fmt.Printf("#   | Due date   | Amount      | Interest    | Principal   | Balance     | Status  | Paid at\n")
		fmt.Printf("___ | ________   | ______      | ________    | _________   | _______     | ______  | _______\n")
		for _, inst := range schedule.Result.Installments {
			paidAt := ""
			if inst.PaidAt != nil {
				paidAt = inst.PaidAt.Format(constants.DateLayout)
			}
			_, _ = p.Printf("%3d | %s | $%.2f | $%.2f | $%.2f | $%.2f | %-7s | %s\n",
				inst.Number, inst.DueDate.Format(constants.DateLayout),
				inst.Amount, inst.InterestAmount, inst.PrincipalAmount, inst.Balance,
				inst.Status, paidAt)
		}
		_, _ = p.Printf("Current balance: $%.2f | Total paid: $%.2f\n",
			schedule.Result.CurrentBalance, schedule.Result.TotalPaid)
		if i < len(schedules)-1 {
			fmt.Printf("\n")
		}
	}
}

// CsvFormat outputs in comma-separated value format.
func CsvFormat(schedules []Schedule) {
	fmt.Print(CsvString(schedules))
}

// CsvString renders the schedules as CSV and returns the result.
func CsvString(schedules []Schedule) string {
	var b strings.Builder
	b.WriteString(`"loan","installment","due date","amount","interest","principal","balance","status","paid at"`)
	b.WriteString("\n")
	for _, schedule := range schedules {
		for _, inst := range schedule.Result.Installments {
			paidAt := ""
			if inst.PaidAt != nil {
				paidAt = inst.PaidAt.Format(constants.DateLayout)
			}
			fmt.Fprintf(&b, `"%s","%d","%s","%.2f","%.2f","%.2f","%.2f","%s","%s"`,
				schedule.Name, inst.Number, inst.DueDate.Format(constants.DateLayout),
				inst.Amount, inst.InterestAmount, inst.PrincipalAmount, inst.Balance,
				inst.Status, paidAt)
			b.WriteString("\n")
		}
	}
	return b.String()
}
