package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ucto/internal/accounts"
	"github.com/cleared-dev/ucto/internal/config"
	"github.com/cleared-dev/ucto/internal/store"
)

func newInitCommand() *cobra.Command {
	var name string
	var companyID string
	var entityType string
	var year int

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ucto project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			if companyID == "" {
				companyID = slug(name)
			}

			return runInit(cmd.Context(), cmd.OutOrStdout(), absDir, companyID, name, entityType, year)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "business name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&companyID, "company", "", "company ID (default derived from --name)")
	cmd.Flags().StringVar(&entityType, "entity-type", "sro", "entity type")
	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "first bookkeeping year")

	return cmd
}

func runInit(ctx context.Context, out io.Writer, dir, companyID, name, entityType string, year int) error {
	// Create directory structure.
	dirs := []string{
		"accounts",
		"logs",
		"journal",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(companyID, name, entityType, year)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	chart := accounts.DefaultChart(entityType)
	svc := accounts.NewService(chart)
	if err := svc.Save(dir); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}

	gitignore := cfg.Store.Path + "\n.env\nimport/processed/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	st, err := store.Open(filepath.Join(dir, cfg.Store.Path))
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.PutAccounts(ctx, companyID, chart); err != nil {
		return fmt.Errorf("storing chart of accounts: %w", err)
	}
	for _, ts := range cfg.Tax {
		if err := st.PutTaxSettings(ctx, companyID, ts); err != nil {
			return fmt.Errorf("storing tax settings: %w", err)
		}
	}

	fmt.Fprintf(out, "Initialized ucto project %q at %s\n", companyID, dir)
	return nil
}

// slug turns a business name into a company ID: "Acme s.r.o." becomes "acme-s-r-o".
func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
