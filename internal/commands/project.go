package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cleared-dev/ucto/internal/accounts"
	"github.com/cleared-dev/ucto/internal/auditlog"
	"github.com/cleared-dev/ucto/internal/clock"
	"github.com/cleared-dev/ucto/internal/config"
	"github.com/cleared-dev/ucto/internal/metrics"
	"github.com/cleared-dev/ucto/internal/model"
	"github.com/cleared-dev/ucto/internal/openitems"
	"github.com/cleared-dev/ucto/internal/posting"
	"github.com/cleared-dev/ucto/internal/quality"
	"github.com/cleared-dev/ucto/internal/rules"
	"github.com/cleared-dev/ucto/internal/store"
)

// errBlocked is returned by commands whose candidate was blocked. The hits
// have already been printed.
var errBlocked = errors.New("blocked by guardrails")

// project is an opened ucto project: configuration, chart of accounts, the
// store and the services wired on top of it.
type project struct {
	root    string
	user    string
	cfg     *config.Config
	chart   *accounts.Service
	store   *store.Store
	matcher *openitems.Matcher
	engine  *rules.Engine
	writer  *posting.Writer
	quality *quality.Calculator
	clock   clock.Clock
	logger  *slog.Logger

	registry    *prometheus.Registry
	metricsFile string
}

func openProject(ctx context.Context, opts *globalOptions) (*project, error) {
	root, err := filepath.Abs(opts.repo)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, err
	}
	envPath := filepath.Join(root, ".env")
	if _, err := os.Stat(envPath); err != nil {
		envPath = ""
	}
	if err := cfg.ApplyEnv(envPath); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dbPath := cfg.Store.Path
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(root, dbPath)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	p := &project{
		root:        root,
		user:        opts.user,
		cfg:         cfg,
		store:       st,
		clock:       clock.System{},
		logger:      slog.Default(),
		registry:    prometheus.NewRegistry(),
		metricsFile: opts.metricsFile,
	}
	if p.user == "" {
		p.user = "ucto"
	}

	p.chart, err = p.loadChart(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}

	cache := openitems.NewCache(st)
	st.AddWriteHook(cache.Invalidate)
	p.matcher = openitems.NewMatcher(cache)

	rec := metrics.New(p.registry)
	ruleOpts := append(cfg.RuleOptions(), rules.WithLogger(p.logger), rules.WithMetrics(rec))
	p.engine = rules.New(st, ruleOpts...)
	p.writer = posting.NewWriter(st, st, p.engine,
		posting.WithChart(p.chart),
		posting.WithClock(p.clock),
		posting.WithLogger(p.logger),
		posting.WithMetrics(rec),
	)
	p.quality = &quality.Calculator{
		Source:        st,
		Open:          p.matcher,
		Clock:         p.clock,
		LowConfidence: cfg.Thresholds.LowConfidence,
		Logger:        p.logger,
	}
	return p, nil
}

// loadChart reads the chart of accounts from the store, seeding it from the
// project's CSV the first time.
func (p *project) loadChart(ctx context.Context) (*accounts.Service, error) {
	accts, err := p.store.Accounts(ctx, p.company())
	if err != nil {
		return nil, err
	}
	if len(accts) > 0 {
		return accounts.NewService(accts), nil
	}
	svc, err := accounts.Load(p.root)
	if err != nil {
		return nil, err
	}
	if err := p.store.PutAccounts(ctx, p.company(), svc.All()); err != nil {
		return nil, fmt.Errorf("seeding accounts: %w", err)
	}
	return svc, nil
}

func (p *project) company() string {
	return p.cfg.Company.ID
}

func (p *project) rulesContext(period string) rules.Context {
	return rules.Context{CompanyID: p.company(), Period: period, UserID: p.user}
}

// closing gathers the counts a period closing is validated against.
func (p *project) closing(ctx context.Context, period string) (rules.PeriodClosing, error) {
	c := rules.PeriodClosing{Period: period}
	var err error
	if c.AlreadyLocked, err = p.store.IsLocked(ctx, p.company(), period); err != nil {
		return c, err
	}
	if c.InboxPending, err = p.store.InboxPendingInPeriod(ctx, p.company(), period); err != nil {
		return c, err
	}
	if c.DraftTransactions, err = p.store.DraftCount(ctx, p.company(), period); err != nil {
		return c, err
	}
	if c.OpenReceivables, err = p.matcher.OpenCount(ctx, p.company(), model.ClassReceivable); err != nil {
		return c, err
	}
	if c.OpenPayables, err = p.matcher.OpenCount(ctx, p.company(), model.ClassPayable); err != nil {
		return c, err
	}
	return c, nil
}

// accept prints res and decides whether the caller may go ahead. Blocks stop
// the command. Warnings stop it too unless the user gave an override reason,
// which is then written to the override log.
func (p *project) accept(out io.Writer, res model.RuleResult, entity rules.Kind, ref, reason string) error {
	printResult(out, res)
	if !res.IsValid {
		return errBlocked
	}
	if len(res.Warnings) == 0 {
		return nil
	}
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%d warning(s); re-run with --override-reason to proceed", len(res.Warnings))
	}
	entries := auditlog.Overrides(p.clock.Now(), p.company(), p.user, string(entity), ref, res, reason)
	if err := auditlog.Append(p.root, entries); err != nil {
		return fmt.Errorf("recording override: %w", err)
	}
	p.logger.Info("warnings overridden", "entity", entity, "ref", ref, "count", len(entries))
	return nil
}

// Close releases the store and writes metrics if requested.
func (p *project) Close() error {
	var errs []error
	if p.metricsFile != "" {
		if err := prometheus.WriteToTextfile(p.metricsFile, p.registry); err != nil {
			errs = append(errs, fmt.Errorf("writing metrics: %w", err))
		}
	}
	if err := p.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func printResult(out io.Writer, res model.RuleResult) {
	for _, h := range res.All() {
		fmt.Fprintf(out, "%-5s %s: %s\n", h.Severity, h.Code, h.Message)
		if h.FixSuggestion != "" {
			fmt.Fprintf(out, "      fix: %s\n", h.FixSuggestion)
		}
	}
	if res.IsValid {
		fmt.Fprintln(out, "ok")
	}
}
