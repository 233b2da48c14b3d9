package export

import (
	"bytes"
	"encoding/csv"

	"github.com/fincore-statement-engine/internal/domain/statement"
)

// renderCSV renders the statement entries as a flat CSV table.
func renderCSV(st *statement.Statement) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"account_code", "account_name", "account_type", "subtype", "classification", "amount", "currency"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, entry := range st.Entries {
		record := []string{
			entry.AccountCode,
			entry.AccountName,
			string(entry.AccountType),
			string(entry.Subtype),
			entry.Classification,
			entry.Amount.StringFixed(2),
			entry.Currency,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
