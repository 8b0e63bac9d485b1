package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ucto/internal/model"
)

// movementNamespace scopes the name-based movement IDs.
var movementNamespace = uuid.MustParse("6f1c1f4e-2b7a-4d8e-9a55-3f0b8c2d9e10")

// columns maps a statement layout onto movement fields. -1 means absent.
type columns struct {
	num            int
	date           int
	amount         int
	counterparty   int
	variableSymbol int
	description    int
}

type statementFormat struct {
	name       string
	header     string // lowercase prefix of the header row
	comma      rune
	dateLayout string
	decimalSep string
	cols       columns
}

func (f statementFormat) matches(header string) bool {
	return strings.HasPrefix(strings.ToLower(header), f.header)
}

func (f statementFormat) parse(r io.Reader) ([]model.BankMovement, error) {
	cr := csv.NewReader(r)
	cr.Comma = f.comma
	cr.FieldsPerRecord = f.cols.num
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s CSV: %w", f.name, err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	seen := make(map[string]int)
	var mvs []model.BankMovement
	for i, rec := range records[1:] {
		mv, err := f.parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		// identical rows in one statement are distinct movements
		name := strings.Join(rec, "\x1f")
		seen[name]++
		mv.ID = uuid.NewSHA1(movementNamespace, fmt.Appendf(nil, "%s|%s|%d", f.name, name, seen[name])).String()
		mvs = append(mvs, mv)
	}
	return mvs, nil
}

func (f statementFormat) parseRow(rec []string) (model.BankMovement, error) {
	date, err := time.Parse(f.dateLayout, strings.TrimSpace(rec[f.cols.date]))
	if err != nil {
		return model.BankMovement{}, fmt.Errorf("parsing date %q: %w", rec[f.cols.date], err)
	}

	raw := strings.ReplaceAll(strings.TrimSpace(rec[f.cols.amount]), " ", "")
	if f.decimalSep == "," {
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.Replace(raw, ",", ".", 1)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return model.BankMovement{}, fmt.Errorf("parsing amount %q: %w", rec[f.cols.amount], err)
	}

	field := func(col int) string {
		if col < 0 {
			return ""
		}
		return strings.TrimSpace(rec[col])
	}
	return model.BankMovement{
		Date:           date,
		Amount:         amount,
		Counterparty:   field(f.cols.counterparty),
		VariableSymbol: strings.TrimLeft(field(f.cols.variableSymbol), "0"),
		Description:    field(f.cols.description),
	}, nil
}

// TatraParser parses Tatra banka account statement exports:
// semicolon separated, DD.MM.YYYY dates and decimal commas.
type TatraParser struct{}

var tatraFormat = statementFormat{
	name:       "tatra",
	header:     "dátum zaúčtovania;",
	comma:      ';',
	dateLayout: "02.01.2006",
	decimalSep: ",",
	cols:       columns{num: 7, date: 0, amount: 2, counterparty: 4, variableSymbol: 5, description: 6},
}

// Format returns the parser name.
func (p *TatraParser) Format() string { return tatraFormat.name }

// Matches recognises the Tatra banka header row.
func (p *TatraParser) Matches(header string) bool { return tatraFormat.matches(header) }

// Parse reads a Tatra banka statement.
func (p *TatraParser) Parse(r io.Reader) ([]model.BankMovement, error) {
	return tatraFormat.parse(r)
}

// GenericParser parses the plain layout
// "date,amount,counterparty,variable_symbol,description" with ISO dates.
type GenericParser struct{}

var genericFormat = statementFormat{
	name:       "generic",
	header:     "date,amount,",
	comma:      ',',
	dateLayout: "2006-01-02",
	decimalSep: ".",
	cols:       columns{num: 5, date: 0, amount: 1, counterparty: 2, variableSymbol: 3, description: 4},
}

// Format returns the parser name.
func (p *GenericParser) Format() string { return genericFormat.name }

// Matches recognises the generic header row.
func (p *GenericParser) Matches(header string) bool { return genericFormat.matches(header) }

// Parse reads a generic statement.
func (p *GenericParser) Parse(r io.Reader) ([]model.BankMovement, error) {
	return genericFormat.parse(r)
}
