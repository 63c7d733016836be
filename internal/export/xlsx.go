// Package export renders account statements as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/hongminglow/bank-ledger-be/internal/ledger"
	"github.com/hongminglow/bank-ledger-be/internal/models"
)

const sheet = "Statement"

var header = []any{"ID", "Date", "Type", "Title", "Amount", "Icon", "Recorded at"}

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Filename suggests a download name for the user's statement.
func Filename(user models.User) string {
	return fmt.Sprintf("statement_%s.xlsx", user.Identifier)
}

// WriteTransactions writes an XLSX statement for user to w: account details,
// one row per transaction with signed amounts, and a closing total.
func WriteTransactions(w io.Writer, user models.User, txns []models.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	rows := [][]any{
		{"Name", user.Name},
		{"Identifier", user.Identifier},
		{"Balance", user.Balance.StringFixed(2)},
		{},
		header,
	}
	for _, txn := range txns {
		amount, _ := txn.Signed().Float64()
		rows = append(rows, []any{txn.ID, txn.Date, txn.Kind, txn.Title, amount, txn.Icon, txn.CreatedAt.UTC().Format("2006-01-02 15:04:05")})
	}
	total, _ := ledger.Sum(txns).Float64()
	rows = append(rows, []any{}, []any{"", "", "", "Total", total})

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetRowStyle(sheet, 5, 5, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(sheet, "D", "D", 32); err != nil {
		return fmt.Errorf("size columns: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
