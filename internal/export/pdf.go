package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/fincore-statement-engine/internal/domain/statement"
)

// renderPDF renders a classified balance sheet as a PDF document.
func renderPDF(st *statement.Statement, options map[string]string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "B", 14)
	pdf.AddPage()

	title := options["title"]
	if title == "" {
		title = "Balance Sheet"
	}
	pdf.Cell(0, 8, title)
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Organization: %s", st.OrganizationID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Period End: %s", st.PeriodEndDate.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", st.Status))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Currency: %s", st.BaseCurrency))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Version: %d", st.Version))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)))
	pdf.Ln(8)

	// Entries table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(25, 6, "Code", "1", 0, "C", false, 0, "")
	pdf.CellFormat(70, 6, "Account", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Classification", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Amount", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, entry := range st.Entries {
		pdf.CellFormat(25, 6, entry.AccountCode, "1", 0, "L", false, 0, "")
		pdf.CellFormat(70, 6, entry.AccountName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, entry.Classification, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, entry.Amount.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, "Totals")
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Total Assets: %s", st.Totals.TotalAssets.StringFixed(2)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total Liabilities: %s", st.Totals.TotalLiabilities.StringFixed(2)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total Equity: %s", st.Totals.TotalEquity.StringFixed(2)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Liabilities and Equity: %s", st.Totals.LiabilitiesAndEquity.StringFixed(2)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Balanced: %t", st.Totals.IsBalanced))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, "Ratios")
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Current Ratio: %s", st.Ratios.CurrentRatio.StringFixed(2)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Quick Ratio: %s", st.Ratios.QuickRatio.StringFixed(2)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Debt to Equity: %s", st.Ratios.DebtToEquity.StringFixed(2)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Working Capital: %s", st.Totals.WorkingCapital.StringFixed(2)))
	pdf.Ln(5)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
