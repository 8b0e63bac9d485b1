// Package importer turns bank statement exports into bank movements.
package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cleared-dev/ucto/internal/model"
)

// Parser converts a bank statement CSV into movements. IDs are derived from
// row content, so importing the same statement twice yields the same IDs.
type Parser interface {
	Parse(r io.Reader) ([]model.BankMovement, error)
	Format() string
	// Matches reports whether header is the first line of this layout.
	Matches(header string) bool
}

// ErrUnknownFormat is returned when no parser recognises a statement.
var ErrUnknownFormat = errors.New("unknown statement format")

// AutoDetect selects the parser from the statement header.
const AutoDetect = "auto"

// Formats holds parsers keyed by lowercase format name.
type Formats map[string]Parser

// NewFormats builds a format set. Panics on a duplicate name.
func NewFormats(parsers ...Parser) Formats {
	fs := make(Formats, len(parsers))
	for _, p := range parsers {
		key := strings.ToLower(p.Format())
		if _, ok := fs[key]; ok {
			panic("duplicate statement format: " + key)
		}
		fs[key] = p
	}
	return fs
}

// DefaultFormats returns every built-in statement layout.
func DefaultFormats() Formats {
	return NewFormats(&TatraParser{}, &GenericParser{})
}

// Get returns the parser for name, or nil.
func (fs Formats) Get(name string) Parser {
	return fs[strings.ToLower(name)]
}

// Detect returns the parser whose layout starts with header. Names are
// tried in order so the result does not depend on map iteration.
func (fs Formats) Detect(header string) (Parser, error) {
	header = strings.TrimPrefix(strings.TrimSpace(header), "\ufeff")
	names := make([]string, 0, len(fs))
	for name := range fs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if fs[name].Matches(header) {
			return fs[name], nil
		}
	}
	return nil, fmt.Errorf("%w: header %q", ErrUnknownFormat, header)
}

// resolve picks the parser for one statement.
func (fs Formats) resolve(format string, data []byte) (Parser, error) {
	if format != "" && format != AutoDetect {
		p := fs.Get(format)
		if p == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
		}
		return p, nil
	}
	header, _, _ := bytes.Cut(data, []byte("\n"))
	return fs.Detect(string(header))
}

const (
	inboxDir   = "import"
	archiveDir = "import/processed"
)

// Statement is a CSV export waiting in <root>/import/.
type Statement struct {
	Name string
	Path string
	Size int64
}

// Pending lists the statements waiting in <root>/import/, sorted by name.
func Pending(root string) ([]Statement, error) {
	dir := filepath.Join(root, inboxDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var out []Statement
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		out = append(out, Statement{Name: e.Name(), Path: filepath.Join(dir, e.Name()), Size: info.Size()})
	}
	return out, nil
}

// Archive moves a statement from import/ to import/processed/.
func Archive(root, name string) error {
	dst := filepath.Join(root, archiveDir)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}
	if err := os.Rename(filepath.Join(root, inboxDir, name), filepath.Join(dst, name)); err != nil {
		return fmt.Errorf("moving %s to processed: %w", name, err)
	}
	return nil
}

// MovementSink stores parsed movements.
type MovementSink interface {
	PutBankMovements(ctx context.Context, companyID string, mvs []model.BankMovement) error
}

// Imported is the outcome of one statement.
type Imported struct {
	Statement
	Format    string
	Movements int
}

// Importer loads every pending statement of a company into a sink.
type Importer struct {
	Root      string
	CompanyID string
	Formats   Formats
	// Format forces a layout; empty or AutoDetect reads it from the header.
	Format string
	Sink   MovementSink
	Logger *slog.Logger
}

// Run imports pending statements one by one. A statement is archived only
// after its movements are stored; on error the statements before it stay
// imported and the rest stay pending.
func (im *Importer) Run(ctx context.Context) ([]Imported, error) {
	formats := im.Formats
	if formats == nil {
		formats = DefaultFormats()
	}
	logger := im.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pending, err := Pending(im.Root)
	if err != nil {
		return nil, err
	}

	var done []Imported
	for _, st := range pending {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		data, err := os.ReadFile(st.Path)
		if err != nil {
			return done, fmt.Errorf("reading %s: %w", st.Name, err)
		}
		p, err := formats.resolve(im.Format, data)
		if err != nil {
			return done, fmt.Errorf("%s: %w", st.Name, err)
		}
		mvs, err := p.Parse(bytes.NewReader(data))
		if err != nil {
			return done, fmt.Errorf("parsing %s: %w", st.Name, err)
		}
		if err := im.Sink.PutBankMovements(ctx, im.CompanyID, mvs); err != nil {
			return done, err
		}
		if err := Archive(im.Root, st.Name); err != nil {
			return done, err
		}
		logger.Debug("imported statement", "file", st.Name, "format", p.Format(), "movements", len(mvs))
		done = append(done, Imported{Statement: st, Format: p.Format(), Movements: len(mvs)})
	}
	return done, nil
}
