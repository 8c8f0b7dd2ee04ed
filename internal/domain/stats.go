package domain

// ProfileStats summarizes a user's library for the profile screen.
type ProfileStats struct {
	TotalBooks     int                   `json:"totalBooks"`
	TotalBookCases int                   `json:"totalBookCases"`
	BooksByStatus  map[ReadingStatus]int `json:"booksByStatus"`
	PagesThisWeek  int                   `json:"pagesThisWeek"`
	PagesThisMonth int                   `json:"pagesThisMonth"`
	NotesWritten   int                   `json:"notesWritten"`
	GoalsScheduled int                   `json:"goalsScheduled"`
	GoalsCompleted int                   `json:"goalsCompleted"`
}
