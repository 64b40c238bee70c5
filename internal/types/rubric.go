package types

type RubricVerdict string

const (
	RubricVerdictPass RubricVerdict = "PASS"
	RubricVerdictFail RubricVerdict = "FAIL"
)

type IssueSeverity string

const (
	IssueSeverityFail    IssueSeverity = "FAIL"
	IssueSeverityWarning IssueSeverity = "WARNING"
)

type RubricIssue struct {
	Severity  IssueSeverity `json:"severity"`
	Dimension string        `json:"dimension"`
	Section   string        `json:"section,omitempty"`
	Message   string        `json:"message"`
}

// RubricReport is the deterministic quality verdict for one tutorial.
type RubricReport struct {
	Verdict         RubricVerdict  `json:"verdict"`
	OverallScore    int            `json:"overall_score"` // 0-100
	DimensionScores map[string]int `json:"dimension_scores"`
	Issues          []RubricIssue  `json:"issues"`
	FixList         []string       `json:"fix_list"`
}
