package banner

import (
	_ "embed"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"

	"bannerssb/lib/configutil"
)

type Operation string

const (
	OpTerms                Operation = "getTerms"
	OpSubjects             Operation = "get_subject"
	OpInstructors          Operation = "get_instructor"
	OpCampuses             Operation = "get_campus"
	OpColleges             Operation = "get_college"
	OpAttributes           Operation = "get_attribute"
	OpSessions             Operation = "get_session"
	OpPartsOfTerm          Operation = "get_partOfTerm"
	OpInstructionalMethods Operation = "get_instructionalMethod"
	OpCourseDescription    Operation = "getCourseDescription"
	OpTermSearch           Operation = "term/search"
	OpClassSearch          Operation = "searchResults"
	OpCatalogSearch        Operation = "courseSearchResults"
)

type Endpoint struct {
	// relative to the school's base path
	Path   string
	Method string
	// requests must carry the cookie of a term search handshake
	NeedsCookie bool
	// the response body is not json
	Text bool
}

var endpoints = map[Operation]Endpoint{
	OpTerms:                {Path: "/classSearch/getTerms", Method: http.MethodGet},
	OpSubjects:             {Path: "/classSearch/get_subject", Method: http.MethodGet},
	OpInstructors:          {Path: "/classSearch/get_instructor", Method: http.MethodGet},
	OpCampuses:             {Path: "/classSearch/get_campus", Method: http.MethodGet},
	OpColleges:             {Path: "/classSearch/get_college", Method: http.MethodGet},
	OpAttributes:           {Path: "/classSearch/get_attribute", Method: http.MethodGet},
	OpSessions:             {Path: "/classSearch/get_session", Method: http.MethodGet},
	OpPartsOfTerm:          {Path: "/classSearch/get_partOfTerm", Method: http.MethodGet},
	OpInstructionalMethods: {Path: "/classSearch/get_instructionalMethod", Method: http.MethodGet},
	OpCourseDescription:    {Path: "/searchResults/getCourseDescription", Method: http.MethodGet, Text: true},
	// the handshake is only inspected for its cookies
	OpTermSearch:    {Path: "/term/search", Method: http.MethodPost, Text: true},
	OpClassSearch:   {Path: "/searchResults/searchResults", Method: http.MethodGet, NeedsCookie: true},
	OpCatalogSearch: {Path: "/courseSearchResults/courseSearchResults", Method: http.MethodGet, NeedsCookie: true},
}

func LookupEndpoint(op Operation) (Endpoint, error) {
	endpoint, ok := endpoints[op]
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: unknown operation %q", ErrConfiguration, op)
	}
	return endpoint, nil
}

type PageSizes struct {
	Terms       int `json:"terms"`
	Subjects    int `json:"subjects"`
	Instructors int `json:"instructors"`
	Lookups     int `json:"lookups"`
	Search      int `json:"search"`
}

type School struct {
	Key  string `json:"-"`
	Name string `json:"name"`
	// defaults to https
	Scheme   string `json:"scheme"`
	Host     string `json:"host"`
	BasePath string `json:"base_path"`
	// instructors fetched per parallel batch
	MaxInstructorCount int       `json:"max_instructor_count"`
	PageSizes          PageSizes `json:"page_sizes"`
	// the element wrapping course descriptions, defaults to p
	DescriptionTag string `json:"description_tag"`
}

func (s School) withDefaults() School {
	if s.Scheme == "" {
		s.Scheme = "https"
	}
	if s.DescriptionTag == "" {
		s.DescriptionTag = "p"
	}
	if s.BasePath != "" && !strings.HasPrefix(s.BasePath, "/") {
		s.BasePath = "/" + s.BasePath
	}
	s.BasePath = strings.TrimSuffix(s.BasePath, "/")
	return s
}

func (s School) BaseURL() string {
	return (&url.URL{Scheme: s.Scheme, Host: s.Host, Path: s.BasePath}).String()
}

func (s School) validate() error {
	invalid := func(reason string) error {
		return fmt.Errorf("%w: school %q: %s", ErrConfiguration, s.Key, reason)
	}
	if s.Host == "" {
		return invalid("host is required")
	}
	if s.Scheme != "http" && s.Scheme != "https" {
		return invalid(fmt.Sprintf("unsupported scheme %q", s.Scheme))
	}
	sizes := map[string]int{
		"terms":       s.PageSizes.Terms,
		"subjects":    s.PageSizes.Subjects,
		"instructors": s.PageSizes.Instructors,
		"lookups":     s.PageSizes.Lookups,
		"search":      s.PageSizes.Search,
	}
	for name, size := range sizes {
		if size <= 0 {
			return invalid(fmt.Sprintf("page_sizes.%s must be positive", name))
		}
	}
	if s.MaxInstructorCount <= 0 {
		return invalid("max_instructor_count must be positive")
	}
	if s.MaxInstructorCount%s.PageSizes.Instructors != 0 {
		return invalid("max_instructor_count must be a multiple of page_sizes.instructors")
	}
	return nil
}

// Catalog is the immutable table of supported schools.
type Catalog struct {
	schools map[string]School
}

func NewCatalog(schools map[string]School) (*Catalog, error) {
	c := &Catalog{schools: make(map[string]School, len(schools))}
	for key, school := range schools {
		school.Key = key
		school = school.withDefaults()
		err := school.validate()
		if err != nil {
			return nil, err
		}
		c.schools[key] = school
	}
	return c, nil
}

//go:embed schools.json5
var defaultSchools []byte

var DefaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	schools, err := configutil.Decode[map[string]School](defaultSchools)
	if err != nil {
		return nil, fmt.Errorf("%w: embedded school table: %w", ErrConfiguration, err)
	}
	return NewCatalog(schools)
})

// LoadCatalog merges the school table at path and then its .local
// override over the embedded one. Entries are merged field by field, so an
// override only needs the fields it changes.
func LoadCatalog(path string) (*Catalog, error) {
	schools, err := configutil.Decode[map[string]School](defaultSchools)
	if err != nil {
		return nil, fmt.Errorf("%w: embedded school table: %w", ErrConfiguration, err)
	}

	found := false
	for _, name := range []string{path, configutil.LocalPath(path)} {
		contents, err := os.ReadFile(name)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrConfiguration, name, err)
		}
		found = true

		overrides, err := configutil.Decode[map[string]School](contents)
		if err != nil {
			return nil, fmt.Errorf("%w: parse %s: %w", ErrConfiguration, name, err)
		}
		for key, override := range overrides {
			school := schools[key]
			err = configutil.Merge(&school, override)
			if err != nil {
				return nil, fmt.Errorf("%w: merge school %q: %w", ErrConfiguration, key, err)
			}
			schools[key] = school
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfiguration, path, os.ErrNotExist)
	}

	return NewCatalog(schools)
}

func (c *Catalog) School(key string) (School, error) {
	if key == "" {
		return School{}, fmt.Errorf("%w: school", ErrMissingArgument)
	}
	school, ok := c.schools[key]
	if !ok {
		return School{}, fmt.Errorf("%w: %q", ErrUnsupportedSchool, key)
	}
	return school, nil
}

func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.schools))
	for k := range c.schools {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
