package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ReadingStatus is where a reader is with a book.
type ReadingStatus string

// ReadingStatus values persisted in the readingStatus field.
const (
	StatusUnread   ReadingStatus = "unread"
	StatusReading  ReadingStatus = "reading"
	StatusFinished ReadingStatus = "finished"
	StatusDNF      ReadingStatus = "dnf"
)

// ReadingStatuses lists every status in display order.
var ReadingStatuses = []ReadingStatus{StatusUnread, StatusReading, StatusFinished, StatusDNF}

// Valid reports whether s is a recognized status.
func (s ReadingStatus) Valid() bool {
	switch s {
	case StatusUnread, StatusReading, StatusFinished, StatusDNF:
		return true
	default:
		return false
	}
}

// Label returns the human readable label shown by clients.
func (s ReadingStatus) Label() string {
	switch s {
	case StatusReading:
		return "Currently Reading"
	case StatusFinished:
		return "Finished"
	case StatusDNF:
		return "Did Not Finish"
	default:
		return "Unread"
	}
}

// ParseReadingStatus parses a status string.
func ParseReadingStatus(s string) (ReadingStatus, error) {
	status := ReadingStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("invalid reading status %q", s)
	}
	return status, nil
}

// Book is one entry of a bookcase's books array.
// Optional fields are absent (empty string or nil) when unset.
type Book struct {
	Title           string           `json:"title"`
	Author          string           `json:"author"`
	Publisher       string           `json:"publisher,omitempty"`
	PublicationYear *int             `json:"publicationYear,omitempty"`
	PageCount       *int             `json:"pageCount,omitempty"`
	Genre           string           `json:"genre,omitempty"`
	ReadingStatus   ReadingStatus    `json:"readingStatus"`
	AddedAt         Timestamp        `json:"addedAt,omitzero"`
	CurrentPage     int              `json:"currentPage,omitempty"`
	ReadingSessions []ReadingSession `json:"readingSessions,omitempty"`
	Notes           []Note           `json:"notes,omitempty"`
}

// Normalize trims text fields, drops non-positive optional numbers and
// fills in the default status.
func (b *Book) Normalize() {
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	b.Publisher = strings.TrimSpace(b.Publisher)
	b.Genre = strings.TrimSpace(b.Genre)
	if b.PublicationYear != nil && *b.PublicationYear <= 0 {
		b.PublicationYear = nil
	}
	if b.PageCount != nil && *b.PageCount <= 0 {
		b.PageCount = nil
	}
	if b.ReadingStatus == "" {
		b.ReadingStatus = StatusUnread
	}
}

// HasPageCount reports whether the page count is known.
func (b Book) HasPageCount() bool {
	return b.PageCount != nil
}

// Clone returns a deep copy so edits never alias stored slices.
func (b Book) Clone() Book {
	out := b
	if b.PublicationYear != nil {
		year := *b.PublicationYear
		out.PublicationYear = &year
	}
	if b.PageCount != nil {
		pages := *b.PageCount
		out.PageCount = &pages
	}
	if b.ReadingSessions != nil {
		out.ReadingSessions = append([]ReadingSession(nil), b.ReadingSessions...)
	}
	if b.Notes != nil {
		out.Notes = append([]Note(nil), b.Notes...)
	}
	return out
}

// UnmarshalJSON accepts the numeric fields as JSON numbers or as the numeric
// strings older clients stored, and treats "" and null as absent.
func (b *Book) UnmarshalJSON(data []byte) error {
	type plain Book
	aux := struct {
		*plain
		PublicationYear json.RawMessage `json:"publicationYear"`
		PageCount       json.RawMessage `json:"pageCount"`
		CurrentPage     json.RawMessage `json:"currentPage"`
	}{plain: (*plain)(b)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if b.PublicationYear, err = optionalInt(aux.PublicationYear); err != nil {
		return fmt.Errorf("publicationYear: %w", err)
	}
	if b.PageCount, err = optionalInt(aux.PageCount); err != nil {
		return fmt.Errorf("pageCount: %w", err)
	}
	current, err := optionalInt(aux.CurrentPage)
	if err != nil {
		return fmt.Errorf("currentPage: %w", err)
	}
	b.CurrentPage = 0
	if current != nil {
		b.CurrentPage = *current
	}
	if b.ReadingStatus == "" {
		b.ReadingStatus = StatusUnread
	}
	return nil
}

func optionalInt(raw json.RawMessage) (*int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var n json.Number
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		n = json.Number(s)
	} else if err := json.Unmarshal(raw, &n); err != nil {
		return nil, err
	}

	if v, err := strconv.Atoi(n.String()); err == nil {
		return &v, nil
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil || f != float64(int(f)) {
		return nil, fmt.Errorf("%s is not a whole number", n)
	}
	v := int(f)
	return &v, nil
}
