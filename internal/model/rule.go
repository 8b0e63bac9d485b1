package model

// Severity tags a guardrail finding.
type Severity string

const (
	SeverityBlock Severity = "BLOCK"
	SeverityWarn  Severity = "WARN"
	SeverityInfo  Severity = "INFO"
)

// RuleHit is a single guardrail finding.
type RuleHit struct {
	Code          string   `json:"code"`
	Severity      Severity `json:"severity"`
	Message       string   `json:"message"`
	FixSuggestion string   `json:"fix_suggestion,omitempty"`
	FieldPath     string   `json:"field_path,omitempty"`
}

// RuleResult groups findings by severity.
type RuleResult struct {
	Blocks   []RuleHit `json:"blocks"`
	Warnings []RuleHit `json:"warnings"`
	Infos    []RuleHit `json:"infos"`
	IsValid  bool      `json:"is_valid"`
}

// NewRuleResult sorts hits into a result, preserving evaluation order per severity.
func NewRuleResult(hits []RuleHit) RuleResult {
	r := RuleResult{
		Blocks:   []RuleHit{},
		Warnings: []RuleHit{},
		Infos:    []RuleHit{},
	}
	for _, h := range hits {
		switch h.Severity {
		case SeverityBlock:
			r.Blocks = append(r.Blocks, h)
		case SeverityWarn:
			r.Warnings = append(r.Warnings, h)
		default:
			r.Infos = append(r.Infos, h)
		}
	}
	r.IsValid = len(r.Blocks) == 0
	return r
}

// Has reports whether any hit carries code.
func (r RuleResult) Has(code string) bool {
	for _, group := range [][]RuleHit{r.Blocks, r.Warnings, r.Infos} {
		for _, h := range group {
			if h.Code == code {
				return true
			}
		}
	}
	return false
}

// All returns every hit: blocks, then warnings, then infos.
func (r RuleResult) All() []RuleHit {
	all := make([]RuleHit, 0, len(r.Blocks)+len(r.Warnings)+len(r.Infos))
	all = append(all, r.Blocks...)
	all = append(all, r.Warnings...)
	return append(all, r.Infos...)
}
