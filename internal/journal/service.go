package journal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/cleared-dev/ucto/internal/id"
	"github.com/cleared-dev/ucto/internal/ledger"
	"github.com/cleared-dev/ucto/internal/model"
)

// Exporter writes posted transactions to <root>/<YYYY>/<MM>/journal.csv.
type Exporter struct {
	root string
}

// NewExporter creates an Exporter rooted at dir.
func NewExporter(root string) *Exporter {
	return &Exporter{root: root}
}

// Export re-checks every non-draft transaction and writes one journal file
// per period, replacing any earlier export. Drafts are not exported. It
// returns the written paths in period order.
func (e *Exporter) Export(txs []model.Transaction) ([]string, error) {
	if err := ledger.Audit(txs); err != nil {
		return nil, err
	}

	byPeriod := make(map[string][]model.Transaction)
	for _, tx := range txs {
		if tx.Status == model.StatusDraft {
			continue
		}
		p := id.Period(tx.Date)
		byPeriod[p] = append(byPeriod[p], tx)
	}

	periods := make([]string, 0, len(byPeriod))
	for p := range byPeriod {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	var paths []string
	for _, p := range periods {
		year, month, err := id.ParsePeriod(p)
		if err != nil {
			return paths, err
		}
		inMonth := byPeriod[p]
		sort.SliceStable(inMonth, func(i, j int) bool { return inMonth[i].Number < inMonth[j].Number })

		path, err := e.writeMonth(year, month, inMonth)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (e *Exporter) writeMonth(year, month int, txs []model.Transaction) (string, error) {
	path := e.monthPath(year, month)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating journal dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("creating journal: %w", err)
	}
	if err := WriteTransactions(f, txs); err != nil {
		f.Close()
		return "", fmt.Errorf("writing journal %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing journal %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("replacing journal %s: %w", path, err)
	}
	return path, nil
}

// ReadMonth reads the exported transactions of a given year/month.
func (e *Exporter) ReadMonth(year, month int) ([]model.Transaction, error) {
	path := e.monthPath(year, month)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}
	defer f.Close()

	txs, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("reading journal %s: %w", path, err)
	}
	return txs, nil
}

func (e *Exporter) monthPath(year, month int) string {
	return filepath.Join(e.root, fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month), "journal.csv")
}
