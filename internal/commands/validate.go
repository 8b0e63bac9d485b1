package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/ucto/internal/extract"
	"github.com/cleared-dev/ucto/internal/id"
	"github.com/cleared-dev/ucto/internal/model"
	"github.com/cleared-dev/ucto/internal/partner"
	"github.com/cleared-dev/ucto/internal/rules"
)

// partnersFile is the optional local partner registry.
const partnersFile = "partners.yaml"

// candidateFile is the YAML form of a candidate entity.
type candidateFile struct {
	Kind   rules.Kind `yaml:"kind"`
	Period string     `yaml:"period"`

	Transaction *struct {
		Description string     `yaml:"description"`
		TemplateID  string     `yaml:"template_id"`
		Lines       []lineSpec `yaml:"lines"`
	} `yaml:"transaction"`

	Document *extract.Result `yaml:"document"`

	BankPairing *struct {
		MovementID string `yaml:"movement_id"`
		PartnerID  string `yaml:"partner_id"`
		Note       string `yaml:"note"`
	} `yaml:"bank_pairing"`

	Payroll *struct {
		GrossSalary decimal.Decimal `yaml:"gross_salary"`
	} `yaml:"payroll"`
}

type lineSpec struct {
	Account     string          `yaml:"account"`
	Side        model.Side      `yaml:"side"`
	Amount      decimal.Decimal `yaml:"amount"`
	Partner     string          `yaml:"partner"`
	Description string          `yaml:"description"`
}

func newValidateCommand(opts *globalOptions) *cobra.Command {
	var overrideReason string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate <candidate.yaml>",
		Short: "Run the guardrails against a candidate entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer p.Close()
			return runValidate(cmd.Context(), cmd.OutOrStdout(), p, args[0], overrideReason, asJSON)
		},
	}

	cmd.Flags().StringVar(&overrideReason, "override-reason", "", "accept the warnings and record why")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}

func runValidate(ctx context.Context, out io.Writer, p *project, path, overrideReason string, asJSON bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading candidate: %w", err)
	}
	var c candidateFile
	if err := yaml.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("parsing candidate: %w", err)
	}

	ent, err := p.candidate(ctx, c)
	if err != nil {
		return err
	}
	res, err := p.engine.Validate(ctx, ent, p.rulesContext(c.Period))
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
		if !res.IsValid {
			return errBlocked
		}
		return nil
	}
	if overrideReason == "" {
		printResult(out, res)
		if !res.IsValid {
			return errBlocked
		}
		return nil
	}
	return p.accept(out, res, ent.Kind(), filepath.Base(path), overrideReason)
}

// candidate turns a candidate file into an entity, reading whatever the
// entity needs from the store.
func (p *project) candidate(ctx context.Context, c candidateFile) (rules.Entity, error) {
	missing := func() error {
		return fmt.Errorf("candidate of kind %q needs a %s section", c.Kind, c.Kind)
	}

	switch c.Kind {
	case rules.KindTransaction:
		if c.Transaction == nil {
			return nil, missing()
		}
		tx := rules.Transaction{Description: c.Transaction.Description, TemplateID: c.Transaction.TemplateID}
		for _, l := range c.Transaction.Lines {
			tx.Lines = append(tx.Lines, model.Line{
				AccountCode: l.Account,
				Side:        l.Side,
				Amount:      l.Amount,
				PartnerID:   l.Partner,
				Description: l.Description,
			})
		}
		return tx, nil

	case rules.KindDocument:
		if c.Document == nil {
			return nil, missing()
		}
		reg, err := partner.LoadStatic(filepath.Join(p.root, partnersFile))
		if err != nil {
			return nil, err
		}
		pf := &partner.Prefiller{Registry: reg, Logger: p.logger}
		return pf.Prefill(ctx, extract.ToDocument(*c.Document)), nil

	case rules.KindBankPairing:
		if c.BankPairing == nil {
			return nil, missing()
		}
		mv, err := p.store.BankMovement(ctx, p.company(), c.BankPairing.MovementID)
		if err != nil {
			return nil, fmt.Errorf("bank movement %s: %w", c.BankPairing.MovementID, err)
		}
		return p.matcher.Pairing(ctx, p.company(), mv, c.BankPairing.PartnerID, c.BankPairing.Note)

	case rules.KindPayroll:
		if c.Payroll == nil {
			return nil, missing()
		}
		exists, err := p.store.PayrollRunExists(ctx, p.company(), c.Period)
		if err != nil {
			return nil, err
		}
		cfg, hasConfig := p.cfg.PayrollConfig()
		return rules.Payroll{
			Period:                 c.Period,
			GrossSalary:            c.Payroll.GrossSalary,
			RunExists:              exists,
			HasConfig:              hasConfig,
			AutoCreateTransactions: cfg.AutoCreateTransactions,
		}, nil

	case rules.KindPeriodClosing:
		if _, _, err := id.ParsePeriod(c.Period); err != nil {
			return nil, err
		}
		return p.closing(ctx, c.Period)

	default:
		return nil, fmt.Errorf("unknown candidate kind %q", c.Kind)
	}
}
