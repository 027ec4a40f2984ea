package domain

// CurrentAffair is one headline of a monthly current-affairs digest.
type CurrentAffair struct {
	Title    string `json:"title"`
	Details  string `json:"details"`
	Category string `json:"category"`
}

// CurrentAffairsDigest is the generated digest for a month.
type CurrentAffairsDigest struct {
	Month     string          `json:"month"`
	Year      int             `json:"year"`
	Summaries []CurrentAffair `json:"summaries"`
}

// CutoffMark is the qualifying mark of one reservation category.
type CutoffMark struct {
	Category string `json:"category"`
	Marks    string `json:"marks"`
}

// ExamResult summarises the published result of an examination.
type ExamResult struct {
	ExamName      string       `json:"examName"`
	ResultSummary string       `json:"resultSummary"`
	CutoffMarks   []CutoffMark `json:"cutoffMarks"`
	OfficialLink  string       `json:"officialLink"`
}

// Explanation is a generated study note for a library topic.
type Explanation struct {
	Topic       string `json:"topic"`
	Explanation string `json:"explanation"`
}
