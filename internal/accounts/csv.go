package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/cleared-dev/ucto/internal/model"
)

const (
	numFields     = 6
	colCode       = 0
	colName       = 1
	colType       = 2
	colNormalSide = 3
	colActive     = 4
	colSystem     = 5
)

// ReadAccounts reads chart-of-accounts.csv.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accounts []model.Account
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes chart-of-accounts.csv.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"code", "name", "type", "normal_side", "active", "system"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, numFields)
	row[colCode] = acct.Code
	row[colName] = acct.Name
	row[colType] = string(acct.Type)
	row[colNormalSide] = string(acct.NormalSide)
	row[colActive] = strconv.FormatBool(acct.Active)
	row[colSystem] = strconv.FormatBool(acct.System)
	return row
}

// UnmarshalAccount converts a CSV row to an Account.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != numFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	if record[colCode] == "" {
		return model.Account{}, fmt.Errorf("empty account code")
	}

	side := model.Side(record[colNormalSide])
	if !side.Valid() {
		return model.Account{}, fmt.Errorf("invalid normal side %q for account %s", record[colNormalSide], record[colCode])
	}

	active, err := strconv.ParseBool(record[colActive])
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing active %q: %w", record[colActive], err)
	}

	system, err := strconv.ParseBool(record[colSystem])
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing system %q: %w", record[colSystem], err)
	}

	return model.Account{
		Code:       record[colCode],
		Name:       record[colName],
		Type:       model.AccountType(record[colType]),
		NormalSide: side,
		Active:     active,
		System:     system,
	}, nil
}
