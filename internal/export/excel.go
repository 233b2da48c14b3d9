package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/fincore-statement-engine/internal/domain/statement"
)

// renderExcel renders a statement as an XLSX workbook with a summary sheet
// and an entries sheet.
func renderExcel(st *statement.Statement, options map[string]string) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	entriesSheet := "entries"
	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(entriesSheet); err != nil {
		return nil, err
	}

	title := options["title"]
	if title == "" {
		title = "Balance Sheet"
	}

	_ = f.SetCellValue(summarySheet, "A1", title)
	_ = f.SetCellValue(summarySheet, "A3", "Organization")
	_ = f.SetCellValue(summarySheet, "B3", st.OrganizationID.String())
	_ = f.SetCellValue(summarySheet, "A4", "Period End")
	_ = f.SetCellValue(summarySheet, "B4", st.PeriodEndDate.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A5", "Status")
	_ = f.SetCellValue(summarySheet, "B5", string(st.Status))
	_ = f.SetCellValue(summarySheet, "A6", "Currency")
	_ = f.SetCellValue(summarySheet, "B6", st.BaseCurrency)
	_ = f.SetCellValue(summarySheet, "A7", "Version")
	_ = f.SetCellValue(summarySheet, "B7", st.Version)
	_ = f.SetCellValue(summarySheet, "A9", "Total Assets")
	_ = f.SetCellValue(summarySheet, "B9", st.Totals.TotalAssets.StringFixed(2))
	_ = f.SetCellValue(summarySheet, "A10", "Total Liabilities")
	_ = f.SetCellValue(summarySheet, "B10", st.Totals.TotalLiabilities.StringFixed(2))
	_ = f.SetCellValue(summarySheet, "A11", "Total Equity")
	_ = f.SetCellValue(summarySheet, "B11", st.Totals.TotalEquity.StringFixed(2))
	_ = f.SetCellValue(summarySheet, "A12", "Working Capital")
	_ = f.SetCellValue(summarySheet, "B12", st.Totals.WorkingCapital.StringFixed(2))
	_ = f.SetCellValue(summarySheet, "A13", "Balanced")
	_ = f.SetCellValue(summarySheet, "B13", st.Totals.IsBalanced)
	_ = f.SetCellValue(summarySheet, "A15", "Current Ratio")
	_ = f.SetCellValue(summarySheet, "B15", st.Ratios.CurrentRatio.StringFixed(2))
	_ = f.SetCellValue(summarySheet, "A16", "Quick Ratio")
	_ = f.SetCellValue(summarySheet, "B16", st.Ratios.QuickRatio.StringFixed(2))
	_ = f.SetCellValue(summarySheet, "A17", "Debt to Equity")
	_ = f.SetCellValue(summarySheet, "B17", st.Ratios.DebtToEquity.StringFixed(2))

	_ = f.SetCellValue(entriesSheet, "A1", "Code")
	_ = f.SetCellValue(entriesSheet, "B1", "Account")
	_ = f.SetCellValue(entriesSheet, "C1", "Type")
	_ = f.SetCellValue(entriesSheet, "D1", "Subtype")
	_ = f.SetCellValue(entriesSheet, "E1", "Classification")
	_ = f.SetCellValue(entriesSheet, "F1", "Amount")
	for i, entry := range st.Entries {
		row := i + 2
		_ = f.SetCellValue(entriesSheet, fmt.Sprintf("A%d", row), entry.AccountCode)
		_ = f.SetCellValue(entriesSheet, fmt.Sprintf("B%d", row), entry.AccountName)
		_ = f.SetCellValue(entriesSheet, fmt.Sprintf("C%d", row), string(entry.AccountType))
		_ = f.SetCellValue(entriesSheet, fmt.Sprintf("D%d", row), string(entry.Subtype))
		_ = f.SetCellValue(entriesSheet, fmt.Sprintf("E%d", row), entry.Classification)
		_ = f.SetCellValue(entriesSheet, fmt.Sprintf("F%d", row), entry.Amount.StringFixed(2))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
