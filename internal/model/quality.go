package model

// Grade is the letter grade of a quality score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// QualityScore summarises how close a company's books are to closable.
type QualityScore struct {
	InboxPending          int   `json:"inbox_pending"`
	LowConfidenceDocs     int   `json:"low_confidence_docs"`
	UnpairedBankMovements int   `json:"unpaired_bank_movements"`
	Open311Items          int   `json:"open_311_items"`
	Open321Items          int   `json:"open_321_items"`
	LockedMonths          int   `json:"locked_months"`
	TotalMonths           int   `json:"total_months"`
	Score                 int   `json:"score"`
	Grade                 Grade `json:"grade"`
}
