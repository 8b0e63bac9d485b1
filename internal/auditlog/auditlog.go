// Package auditlog records guardrail warnings a user chose to override.
package auditlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cleared-dev/ucto/internal/model"
)

// Entry is one overridden warning.
type Entry struct {
	Timestamp time.Time
	CompanyID string
	UserID    string
	Entity    string
	EntityRef string
	Code      string
	Reason    string
}

// Header is the CSV header for override-log.csv.
const Header = "timestamp,company_id,user_id,entity,entity_ref,code,reason"

const (
	numFields    = 7
	logDir       = "logs"
	logFile      = "logs/override-log.csv"
	colTimestamp = 0
	colCompany   = 1
	colUser      = 2
	colEntity    = 3
	colEntityRef = 4
	colCode      = 5
	colReason    = 6
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colCompany] = e.CompanyID
	row[colUser] = e.UserID
	row[colEntity] = e.Entity
	row[colEntityRef] = e.EntityRef
	row[colCode] = e.Code
	row[colReason] = e.Reason
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	return Entry{
		Timestamp: ts,
		CompanyID: record[colCompany],
		UserID:    record[colUser],
		Entity:    record[colEntity],
		EntityRef: record[colEntityRef],
		Code:      record[colCode],
		Reason:    record[colReason],
	}, nil
}

// Overrides builds one entry per warning in res. Blocks cannot be overridden
// and infos need no acknowledgement, so neither is logged.
func Overrides(at time.Time, companyID, userID, entity, ref string, res model.RuleResult, reason string) []Entry {
	entries := make([]Entry, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		entries = append(entries, Entry{
			Timestamp: at.UTC(),
			CompanyID: companyID,
			UserID:    userID,
			Entity:    entity,
			EntityRef: ref,
			Code:      w.Code,
			Reason:    reason,
		})
	}
	return entries
}

// Append writes entries to <root>/logs/override-log.csv, creating the file and header if needed.
func Append(root string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	dir := filepath.Join(root, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(root, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening override log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <root>/logs/override-log.csv.
// Returns an empty slice if the file does not exist.
func Read(root string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(root, logFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening override log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading override log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
