package payroll

import (
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/warp/workforce-engine/hr"
)

type payslipLine struct {
	label string
	value string
}

func payslipLines(p *hr.Payroll, emp *hr.Employee) []payslipLine {
	money := func(d decimal.Decimal) string { return d.StringFixed(hr.Scale) }
	regular := p.NetSalary.Sub(p.OvertimePay).Sub(p.Bonuses).Add(p.Deductions)
	return []payslipLine{
		{"Employee", fmt.Sprintf("%s (%s)", emp.FullName(), emp.ID)},
		{"Period", fmt.Sprintf("%s to %s", p.PeriodStart, p.PeriodEnd)},
		{"Status", string(p.Status)},
		{"Base salary", money(p.BaseSalary)},
		{"Hours worked", money(p.HoursWorked)},
		{"Overtime hours", money(p.OvertimeHours)},
		{"Regular pay", money(regular)},
		{"Overtime pay", money(p.OvertimePay)},
		{"Bonuses", money(p.Bonuses)},
		{"Deductions", money(p.Deductions)},
		{"Net salary", money(p.NetSalary)},
	}
}

// RenderPayslipText renders p as a plain-text payslip, used as the mail body
// for payslip notifications.
func RenderPayslipText(p *hr.Payroll, emp *hr.Employee) string {
	var b strings.Builder
	b.WriteString("PAYSLIP\n")
	b.WriteString(strings.Repeat("=", 40) + "\n")
	for _, line := range payslipLines(p, emp) {
		if line.label == "Regular pay" || line.label == "Net salary" {
			b.WriteString(strings.Repeat("-", 40) + "\n")
		}
		fmt.Fprintf(&b, "%-16s %23s\n", line.label+":", line.value)
	}
	return b.String()
}

// WritePayslipPDF renders p to an A4 PDF at path.
func WritePayslipPDF(path string, p *hr.Payroll, emp *hr.Employee) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	for _, line := range payslipLines(p, emp) {
		if line.label == "Net salary" {
			pdf.Ln(3)
			pdf.SetFont("Helvetica", "B", 12)
		}
		pdf.CellFormat(60, 8, line.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(60, 8, line.value, "", 1, "R", false, 0, "")
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write payslip: %w", err)
	}
	return nil
}
