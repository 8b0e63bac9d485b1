package accounts

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cleared-dev/ucto/internal/model"
)

// Service provides in-memory lookup over the chart of accounts.
type Service struct {
	accounts []model.Account
	byCode   map[string]int
}

// NewService creates a Service from a slice of accounts.
func NewService(accounts []model.Account) *Service {
	s := &Service{
		accounts: append([]model.Account(nil), accounts...),
		byCode:   make(map[string]int, len(accounts)),
	}
	for i, a := range s.accounts {
		s.byCode[a.Code] = i
	}
	return s
}

// Load reads chart-of-accounts.csv from a project root and returns a Service.
func Load(root string) (*Service, error) {
	path := filepath.Join(root, "accounts", "chart-of-accounts.csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chart of accounts: %w", err)
	}
	defer f.Close()

	accts, err := ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("reading chart of accounts: %w", err)
	}
	return NewService(accts), nil
}

// All returns all accounts.
func (s *Service) All() []model.Account {
	return s.accounts
}

// Get returns an account by code.
func (s *Service) Get(code string) (model.Account, bool) {
	i, ok := s.byCode[code]
	if !ok {
		return model.Account{}, false
	}
	return s.accounts[i], true
}

// Exists reports whether an account code exists.
func (s *Service) Exists(code string) bool {
	_, ok := s.byCode[code]
	return ok
}

// ByType returns all accounts of the given type.
func (s *Service) ByType(accountType model.AccountType) []model.Account {
	var result []model.Account
	for _, a := range s.accounts {
		if a.Type == accountType {
			result = append(result, a)
		}
	}
	return result
}

// InClass returns the active accounts whose code falls in a synthetic class.
func (s *Service) InClass(class string) []model.Account {
	var result []model.Account
	for _, a := range s.accounts {
		if a.Active && model.InClass(a.Code, class) {
			result = append(result, a)
		}
	}
	return result
}

// Add registers a new account. Codes must be unique.
func (s *Service) Add(acct model.Account) error {
	if acct.Code == "" {
		return fmt.Errorf("account code is required")
	}
	if !acct.NormalSide.Valid() {
		return fmt.Errorf("account %s: invalid normal side %q", acct.Code, acct.NormalSide)
	}
	if s.Exists(acct.Code) {
		return fmt.Errorf("account %s already exists", acct.Code)
	}
	s.byCode[acct.Code] = len(s.accounts)
	s.accounts = append(s.accounts, acct)
	return nil
}

// Update replaces an account's definition. Once an account is referenced by a
// posted transaction only its Active flag may change.
func (s *Service) Update(acct model.Account, referenced bool) error {
	i, ok := s.byCode[acct.Code]
	if !ok {
		return fmt.Errorf("account %s: %w", acct.Code, model.ErrNotFound)
	}
	cur := s.accounts[i]
	if referenced {
		probe := cur
		probe.Active = acct.Active
		if probe != acct {
			return fmt.Errorf("account %s: %w", acct.Code, model.ErrAccountInUse)
		}
	}
	s.accounts[i] = acct
	return nil
}

// Delete removes an account. System accounts and accounts referenced by a
// posted transaction are kept.
func (s *Service) Delete(code string, referenced bool) error {
	i, ok := s.byCode[code]
	if !ok {
		return fmt.Errorf("account %s: %w", code, model.ErrNotFound)
	}
	if s.accounts[i].System {
		return fmt.Errorf("account %s: %w", code, model.ErrSystemAccount)
	}
	if referenced {
		return fmt.Errorf("account %s: %w", code, model.ErrAccountInUse)
	}
	s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
	s.byCode = make(map[string]int, len(s.accounts))
	for j, a := range s.accounts {
		s.byCode[a.Code] = j
	}
	return nil
}

// Save writes the chart of accounts to accounts/chart-of-accounts.csv.
func (s *Service) Save(root string) error {
	dir := filepath.Join(root, "accounts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating accounts dir: %w", err)
	}

	path := filepath.Join(dir, "chart-of-accounts.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart of accounts file: %w", err)
	}
	defer f.Close()

	if err := WriteAccounts(f, s.accounts); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}
	return nil
}
