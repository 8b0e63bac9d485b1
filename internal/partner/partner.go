// Package partner fills supplier details from a business registry. Lookups
// only help the user; nothing in the ledger depends on them.
package partner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/ucto/internal/model"
	"github.com/cleared-dev/ucto/internal/rules"
)

// DefaultTimeout bounds a registry lookup.
const DefaultTimeout = 3 * time.Second

// Info is what a registry knows about a business.
type Info struct {
	TaxID   string `yaml:"tax_id"`
	Name    string `yaml:"name"`
	VATID   string `yaml:"vat_id,omitempty"`
	Address string `yaml:"address,omitempty"`
}

// Registry looks businesses up by tax ID. Unknown IDs return model.ErrNotFound.
type Registry interface {
	Lookup(ctx context.Context, taxID string) (Info, error)
}

// Static is an in-memory registry keyed by tax ID.
type Static map[string]Info

func (s Static) Lookup(ctx context.Context, taxID string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	info, ok := s[taxID]
	if !ok {
		return Info{}, fmt.Errorf("partner %s: %w", taxID, model.ErrNotFound)
	}
	return info, nil
}

// LoadStatic reads a YAML list of partners. A missing file yields an empty registry.
func LoadStatic(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Static{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading partners: %w", err)
	}
	var list []Info
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing partners: %w", err)
	}
	s := make(Static, len(list))
	for i, info := range list {
		if info.TaxID == "" {
			return nil, &model.ConfigError{Field: fmt.Sprintf("partners[%d].tax_id", i), Reason: "required"}
		}
		s[info.TaxID] = info
	}
	return s, nil
}

// Prefiller completes Document candidates from a Registry.
type Prefiller struct {
	Registry Registry
	Timeout  time.Duration // zero means DefaultTimeout
	Logger   *slog.Logger
}

// Prefill replaces the supplier name of doc with the registry's when the
// document carries a tax ID. A registry-confirmed name has confidence 1.
// Lookup failures leave doc unchanged.
func (p *Prefiller) Prefill(ctx context.Context, doc rules.Document) rules.Document {
	if p.Registry == nil || doc.SupplierTaxID == "" {
		return doc
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	info, err := p.Registry.Lookup(ctx, doc.SupplierTaxID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			p.logger().Warn("partner lookup failed", "tax_id", doc.SupplierTaxID, "error", err)
		}
		return doc
	}
	if info.Name == "" {
		return doc
	}
	doc.SupplierName = info.Name
	confirmed := 1.0
	doc.SupplierConfidence = &confirmed
	return doc
}

func (p *Prefiller) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
