package domain

// Goal is a reading goal scheduled on a calendar day.
type Goal struct {
	Title     string `json:"title"`
	Pages     *int   `json:"pages,omitempty"`
	Notes     string `json:"notes,omitempty"`
	Completed bool   `json:"completed"`
}

// GoalDay holds the goals of one calendar day.
type GoalDay struct {
	Goals []Goal `json:"goals"`
}

// ReadingGoals maps YYYY-MM-DD day keys to that day's goals.
// A day with no goals is never present.
type ReadingGoals map[string]GoalDay

// UserProfile is the per-user document in the users collection.
type UserProfile struct {
	ReadingGoals ReadingGoals `json:"readingGoals"`

	Revision int64 `json:"-"`
}

// MarkedDate describes a calendar day that has goals.
type MarkedDate struct {
	Marked         bool `json:"marked"`
	GoalCount      int  `json:"goalCount"`
	CompletedCount int  `json:"completedCount"`
	AllCompleted   bool `json:"allCompleted"`
}
