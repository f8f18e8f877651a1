package domain

// Source identifies where an evidence item came from.
type Source string

const (
	SourceLocal Source = "local"
	SourceWeb   Source = "web"
)

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Query is the normalized form of the latest user utterance. It is built
// once per turn and never mutated afterwards.
type Query struct {
	Text   string
	Tokens []string
}

// EvidenceItem is a scored text excerpt from local knowledge or the web.
// Only the score is attached after creation; everything else is fixed.
type EvidenceItem struct {
	Text   string
	URL    string
	Title  string
	Date   string
	Source Source
	Score  float64
}

// SearchPlan is the output of the planner: ordered query variants plus
// optional provider filters.
type SearchPlan struct {
	Variants       []string
	IncludeDomains []string
	Recent         bool
}

// SearchResult is one raw provider hit, ordered by provider rank.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Rank    int    `json:"rank"`
	Date    string `json:"date,omitempty"`
	Engine  string `json:"engine"`
}

// Passage is a bounded-length excerpt of fetched page text. A single URL
// usually yields several passages.
type Passage struct {
	URL   string
	Title string
	Text  string
	Date  string
}

// Citation is normalized source attribution, deduplicated by URL within
// one merged result.
type Citation struct {
	URL                string `json:"url"`
	Title              string `json:"title,omitempty"`
	PublishedOrUpdated string `json:"published_or_updated_date,omitempty"`
	AccessedAt         string `json:"accessed_at,omitempty"`
}

// Budget caps work at every stage of the pipeline. Configuration only,
// never mutated at runtime.
type Budget struct {
	MaxQueries      int
	MaxPages        int
	MaxMS           int
	MaxWebPassages  int
	MaxContextChars int
}

// Decision is the sufficiency gate's verdict on local evidence.
type Decision string

const (
	DecisionSufficient   Decision = "sufficient"
	DecisionInsufficient Decision = "insufficient"
)

// Deficit explains why the gate judged local evidence insufficient.
type Deficit string

const (
	DeficitNone                  Deficit = ""
	DeficitTriggerAndLowCoverage Deficit = "trigger_and_low_coverage"
	DeficitBorderline            Deficit = "borderline"
)

// MergedContext is the final bounded context string plus its citations.
type MergedContext struct {
	Context   string
	Citations []Citation
}

// Answer is the result of one user turn.
type Answer struct {
	RequestID string     `json:"request_id"`
	Text      string     `json:"text"`
	Citations []Citation `json:"citations,omitempty"`
	Decision  Decision   `json:"decision"`
}

// Document is a local knowledge source indexed for evidence supply.
type Document struct {
	ID      string
	Path    string
	ModTime int64
}

// StoredPassage is an indexed slice of a local document.
type StoredPassage struct {
	ID     string
	DocID  string
	Tokens []string
	Text   string
}

// CachedPage is the extracted text of a fetched URL, kept so repeated
// questions do not refetch the same page.
type CachedPage struct {
	URL       string
	Title     string
	Text      string
	FetchedAt int64
}

// Posting records how often a term occurs in one stored passage.
type Posting struct {
	PassageID string
	TF        int
}

// Stats summarizes the local evidence index.
type Stats struct {
	TotalDocs     int
	TotalPassages int
	AvgPassageLen float64
}
