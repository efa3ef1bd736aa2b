package domain

// Outcome tags how far an oracle payload could be trusted.
type Outcome string

const (
	OutcomeVerified Outcome = "verified"
	OutcomeRepaired Outcome = "repaired"
	OutcomeRejected Outcome = "rejected"
)

type AnnotationCode string

const (
	AnnotationOracleMismatch    AnnotationCode = "oracle_mismatch"
	AnnotationDanglingReference AnnotationCode = "dangling_reference"
)

// Annotation records a non-fatal repair applied to an oracle payload.
type Annotation struct {
	Code     AnnotationCode
	Field    string
	Message  string
	Claimed  string `json:",omitempty"`
	Verified string `json:",omitempty"`
}

// Validated wraps a payload that has passed through the oracle boundary.
// Value is meaningful only when Outcome is not rejected.
type Validated[T any] struct {
	Outcome     Outcome
	Value       T
	Annotations []Annotation `json:",omitempty"`
	Err         error        `json:"-"`
}

func (v Validated[T]) Usable() bool {
	return v.Outcome != OutcomeRejected
}

type AlternativeClaim struct {
	CardID        string
	RewardsAmount float64
	Reason        string
}

type CardAdvicePayload struct {
	Category             Category
	OptimalCardID        string
	RewardsAmount        float64
	Reasoning            string
	Alternatives         []AlternativeClaim
	SavingsVsCurrentCard *float64
}

type DebtAdvicePayload struct {
	Strategy           Strategy
	Reasoning          string
	PayoffOrder        []string
	Timeline           int
	TotalInterestSaved float64
}

type CategorizationPayload struct {
	Category    Category
	Subcategory string
	Confidence  int
}

type RecommendationExplanation struct {
	RecommendationID string
	Text             string
	ExpectedBenefit  *float64
	Priority         Priority
}

type ExplanationPayload struct {
	Summary      string
	Explanations []RecommendationExplanation
}

// KnownEntities is the set of ids an oracle payload may reference.
type KnownEntities struct {
	CardIDs           map[string]struct{}
	DebtNames         map[string]struct{}
	RecommendationIDs map[string]struct{}
}

func NewKnownEntities() KnownEntities {
	return KnownEntities{
		CardIDs:           map[string]struct{}{},
		DebtNames:         map[string]struct{}{},
		RecommendationIDs: map[string]struct{}{},
	}
}
