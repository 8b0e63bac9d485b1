package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ucto/internal/model"
)

// Header is the CSV header for journal.csv. Each row is one transaction line.
const Header = "number,date,transaction_id,status,template_id,description,line_id,account_code,side,amount,partner_id,line_description"

const (
	numFields   = 12
	dateFormat  = "2006-01-02"
	colNumber   = 0
	colDate     = 1
	colTxID     = 2
	colStatus   = 3
	colTemplate = 4
	colDesc     = 5
	colLineID   = 6
	colAccount  = 7
	colSide     = 8
	colAmount   = 9
	colPartner  = 10
	colLineDesc = 11
)

// ReadTransactions reads journal rows and regroups them into transactions,
// in the order their first line appears.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading journal CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var txs []model.Transaction
	index := make(map[string]int)
	for i, rec := range records[1:] {
		tx, line, err := UnmarshalRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		j, ok := index[tx.ID]
		if !ok {
			j = len(txs)
			index[tx.ID] = j
			txs = append(txs, tx)
		}
		txs[j].Lines = append(txs[j].Lines, line)
	}
	return txs, nil
}

// WriteTransactions writes the header and one row per line of txs.
func WriteTransactions(w io.Writer, txs []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := 2
	for _, tx := range txs {
		for i := range tx.Lines {
			if err := cw.Write(MarshalRow(tx, i)); err != nil {
				return fmt.Errorf("writing row %d: %w", row, err)
			}
			row++
		}
	}
	return cw.Error()
}

// MarshalRow converts line i of tx to a CSV row.
func MarshalRow(tx model.Transaction, i int) []string {
	l := tx.Lines[i]
	row := make([]string, numFields)
	row[colNumber] = tx.Number
	row[colDate] = tx.Date.Format(dateFormat)
	row[colTxID] = tx.ID
	row[colStatus] = string(tx.Status)
	row[colTemplate] = tx.TemplateID
	row[colDesc] = tx.Description
	row[colLineID] = l.ID
	row[colAccount] = l.AccountCode
	row[colSide] = string(l.Side)
	row[colAmount] = l.Amount.StringFixed(2)
	row[colPartner] = l.PartnerID
	row[colLineDesc] = l.Description
	return row
}

// UnmarshalRow converts a CSV row to its transaction header and line.
func UnmarshalRow(record []string) (model.Transaction, model.Line, error) {
	if len(record) != numFields {
		return model.Transaction{}, model.Line{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := time.Parse(dateFormat, record[colDate])
	if err != nil {
		return model.Transaction{}, model.Line{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	side := model.Side(record[colSide])
	if !side.Valid() {
		return model.Transaction{}, model.Line{}, fmt.Errorf("invalid side %q", record[colSide])
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Transaction{}, model.Line{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	tx := model.Transaction{
		ID:          record[colTxID],
		Number:      record[colNumber],
		Date:        date,
		Period:      date.Format("2006-01"),
		Status:      model.TransactionStatus(record[colStatus]),
		TemplateID:  record[colTemplate],
		Description: record[colDesc],
	}
	line := model.Line{
		ID:          record[colLineID],
		AccountCode: record[colAccount],
		Side:        side,
		Amount:      amount,
		PartnerID:   record[colPartner],
		Description: record[colLineDesc],
	}
	return tx, line, nil
}
