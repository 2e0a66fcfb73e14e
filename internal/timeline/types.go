package timeline

import (
	"strings"
	"time"
)

const DayLayout = "2006-01-02"

type SampleStatus string

const (
	SamplePending   SampleStatus = "pending"
	SampleCompleted SampleStatus = "completed"
	SampleFailed    SampleStatus = "failed"
)

// Sample is one capture event: a screenshot or a video chunk plus the
// window that was focused when it was taken.
type Sample struct {
	ID          int64
	CapturedAt  time.Time
	MediaRef    string
	MediaSize   int64
	WindowTitle string
	ProcessName string
	Status      SampleStatus
}

type BatchStatus string

const (
	BatchPending   BatchStatus = "pending"
	BatchCompleted BatchStatus = "completed"
	BatchFailed    BatchStatus = "failed"
)

// Batch tracks one analysis invocation over a day's samples.
type Batch struct {
	ID          string
	Day         string
	StartAt     time.Time
	EndAt       time.Time
	Status      BatchStatus
	SampleCount int
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Category string

const (
	CategoryCoding        Category = "Coding"
	CategoryMeeting       Category = "Meeting"
	CategoryWriting       Category = "Writing"
	CategoryResearch      Category = "Research"
	CategoryBrowsing      Category = "Browsing"
	CategoryCommunication Category = "Communication"
	CategoryDesign        Category = "Design"
	CategoryAdmin         Category = "Admin"
	CategoryOther         Category = "Other"
)

// Categories is the closed set a card may carry, in prompt order.
var Categories = []Category{
	CategoryCoding,
	CategoryMeeting,
	CategoryWriting,
	CategoryResearch,
	CategoryBrowsing,
	CategoryCommunication,
	CategoryDesign,
	CategoryAdmin,
	CategoryOther,
}

var categoryColors = map[Category]string{
	CategoryCoding:        "#9C27B0",
	CategoryMeeting:       "#2196F3",
	CategoryWriting:       "#4CAF50",
	CategoryResearch:      "#3F51B5",
	CategoryBrowsing:      "#FF9800",
	CategoryCommunication: "#00BCD4",
	CategoryDesign:        "#FF5722",
	CategoryAdmin:         "#795548",
	CategoryOther:         "#757575",
}

func (c Category) IsValid() bool {
	_, ok := categoryColors[c]
	return ok
}

// Color returns the display color for the category. Unknown categories get
// the Other color.
func (c Category) Color() string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return categoryColors[CategoryOther]
}

// ParseCategory matches value against the closed set ignoring case and
// surrounding space. Anything else is Other.
func ParseCategory(value string) Category {
	value = strings.TrimSpace(value)
	for _, c := range Categories {
		if strings.EqualFold(value, string(c)) {
			return c
		}
	}
	return CategoryOther
}

// Card is a canonical timeline record for a day. Start and End are local
// wall-clock "HH:MM" strings.
type Card struct {
	ID       int64
	Day      string
	BatchID  string
	Start    string
	End      string
	Title    string
	Summary  string
	Category Category
}

func (c Card) Color() string {
	return c.Category.Color()
}

// Segment is a derived run of contiguous samples sharing a process and
// window title. It is recomputed on demand and never persisted.
type Segment struct {
	Start           time.Time
	End             time.Time
	DurationSeconds int
	ProcessName     string
	WindowTitle     string
	SampleCount     int
}

// DayKey returns the local calendar day of t in loc.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DayLayout)
}

// ParseDay parses a "YYYY-MM-DD" key as midnight in loc.
func ParseDay(day string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DayLayout, strings.TrimSpace(day), loc)
}
