package banner

// CodeDescription is the shape of every lookup endpoint's records.
type CodeDescription struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type (
	Term       = CodeDescription
	Subject    = CodeDescription
	Instructor = CodeDescription
)

type SearchResults[T any] struct {
	Success     bool `json:"success"`
	TotalCount  int  `json:"totalCount"`
	PageOffset  int  `json:"pageOffset"`
	PageMaxSize int  `json:"pageMaxSize"`
	Data        []T  `json:"data"`
}

type Faculty struct {
	BannerId         string `json:"bannerId"`
	DisplayName      string `json:"displayName"`
	EmailAddress     string `json:"emailAddress"`
	PrimaryIndicator bool   `json:"primaryIndicator"`
}

// Section is a row of the class search, one per CRN.
type Section struct {
	Id                      int       `json:"id"`
	Term                    string    `json:"term"`
	CourseReferenceNumber   string    `json:"courseReferenceNumber"`
	Subject                 string    `json:"subject"`
	SubjectDescription      string    `json:"subjectDescription"`
	CourseNumber            string    `json:"courseNumber"`
	SequenceNumber          string    `json:"sequenceNumber"`
	CourseTitle             string    `json:"courseTitle"`
	CampusDescription       string    `json:"campusDescription"`
	ScheduleTypeDescription string    `json:"scheduleTypeDescription"`
	CreditHours             *float64  `json:"creditHours"`
	MaximumEnrollment       int       `json:"maximumEnrollment"`
	Enrollment              int       `json:"enrollment"`
	SeatsAvailable          int       `json:"seatsAvailable"`
	WaitCapacity            int       `json:"waitCapacity"`
	WaitCount               int       `json:"waitCount"`
	WaitAvailable           int       `json:"waitAvailable"`
	OpenSection             bool      `json:"openSection"`
	Faculty                 []Faculty `json:"faculty"`
}

// Course is a row of the course catalog search.
type Course struct {
	Id                 int      `json:"id"`
	TermEffective      string   `json:"termEffective"`
	Subject            string   `json:"subject"`
	SubjectCode        string   `json:"subjectCode"`
	SubjectDescription string   `json:"subjectDescription"`
	CourseNumber       string   `json:"courseNumber"`
	CourseTitle        string   `json:"courseTitle"`
	College            string   `json:"college"`
	Department         string   `json:"department"`
	CreditHourLow      *float64 `json:"creditHourLow"`
	CreditHourHigh     *float64 `json:"creditHourHigh"`
}
