package banner

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testBasePath = "/ssb"

// fakePortal imitates the class search endpoints of a single school.
type fakePortal struct {
	server *httptest.Server

	lock     sync.Mutex
	requests map[string]int
	// latest cookie handed out per term
	cookies map[string]string

	handshakes     atomic.Int64
	handshakeDelay time.Duration
	rejectTerm     string

	terms       []CodeDescription
	subjects    []string
	instructors int
	failPage    int
	failSubject string
	// always serve the first page of instructors
	ignoreOffset bool

	coursesPerSubject int
	description       string

	// replaces the default handler for a path relative to the base path
	override map[string]http.HandlerFunc
}

func newFakePortal(t testing.TB, configure ...func(p *fakePortal)) *fakePortal {
	p := &fakePortal{
		requests: map[string]int{},
		cookies:  map[string]string{},
		terms: []CodeDescription{
			{Code: "202503", Description: "Fall 2025"},
			{Code: "202436", Description: "Fall 2024"},
		},
		subjects:          []string{"ACCT", "BIOL", "CIS", "MATH"},
		coursesPerSubject: 3,
		description:       "Introduction to data structures &amp; algorithms.",
		override:          map[string]http.HandlerFunc{},
	}
	for _, c := range configure {
		c(p)
	}
	p.server = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePortal) school() School {
	return School{
		Name:               "Test University",
		Scheme:             "http",
		Host:               strings.TrimPrefix(p.server.URL, "http://"),
		BasePath:           testBasePath,
		MaxInstructorCount: 1000,
		PageSizes: PageSizes{
			Terms:       100,
			Subjects:    500,
			Instructors: 100,
			Lookups:     500,
			Search:      500,
		},
	}
}

func (p *fakePortal) client(t testing.TB, mutate ...func(*School)) *Client {
	school := p.school()
	for _, m := range mutate {
		m(&school)
	}
	catalog, err := NewCatalog(map[string]School{"test": school})
	if err != nil {
		t.Fatal(err)
	}
	client, err := NewClient("test", ClientOptions{Catalog: catalog, Timeout: time.Second * 5})
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func (p *fakePortal) handle(path string, handler http.HandlerFunc) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.override[path] = handler
}

func (p *fakePortal) count(path string) int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.requests[path]
}

func (p *fakePortal) total() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	n := 0
	for _, c := range p.requests {
		n += c
	}
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (p *fakePortal) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, testBasePath)
	p.lock.Lock()
	p.requests[path]++
	handler, overridden := p.override[path]
	p.lock.Unlock()

	if overridden {
		handler(w, r)
		return
	}

	switch path {
	case "/term/search":
		p.termSearch(w, r)
	case "/classSearch/getTerms":
		writeJSON(w, p.terms)
	case "/classSearch/get_subject":
		if r.URL.Query().Get("term") == "" {
			http.Error(w, "term required", http.StatusBadRequest)
			return
		}
		subjects := make([]CodeDescription, len(p.subjects))
		for i, s := range p.subjects {
			subjects[i] = CodeDescription{Code: s, Description: s + " Department"}
		}
		writeJSON(w, subjects)
	case "/classSearch/get_instructor":
		p.instructorPage(w, r)
	case "/classSearch/get_campus",
		"/classSearch/get_college",
		"/classSearch/get_attribute",
		"/classSearch/get_session",
		"/classSearch/get_partOfTerm",
		"/classSearch/get_instructionalMethod":
		name := strings.TrimPrefix(path, "/classSearch/get_")
		writeJSON(w, []CodeDescription{{Code: strings.ToUpper(name[:2]), Description: name}})
	case "/searchResults/getCourseDescription":
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<p>%s</p>", p.description)
	case "/searchResults/searchResults":
		p.search(w, r, func(term, subject string, i int) any {
			return Section{
				Term:                  term,
				CourseReferenceNumber: fmt.Sprintf("%s%02d", subject, i),
				Subject:               subject,
				CourseNumber:          strconv.Itoa(1000 + i),
				OpenSection:           i%2 == 0,
			}
		})
	case "/courseSearchResults/courseSearchResults":
		p.search(w, r, func(term, subject string, i int) any {
			return Course{
				TermEffective: term,
				Subject:       subject,
				SubjectCode:   subject,
				CourseNumber:  strconv.Itoa(1000 + i),
				CourseTitle:   fmt.Sprintf("%s course %d", subject, i),
			}
		})
	default:
		http.NotFound(w, r)
	}
}

func (p *fakePortal) termSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Query().Get("mode") != "search" {
		http.Error(w, "bad handshake", http.StatusMethodNotAllowed)
		return
	}
	err := r.ParseForm()
	if err != nil || r.PostForm.Get("uniqueSessionId") == "" {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	term := r.PostForm.Get("term")
	time.Sleep(p.handshakeDelay)

	if term == p.rejectTerm {
		writeJSON(w, map[string]any{"regAllowed": false})
		return
	}

	n := p.handshakes.Add(1)
	jsession := fmt.Sprintf("%s-%d", term, n)
	http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: jsession, Path: "/", HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: "BIGipServer", Value: "pool", Path: "/"})

	p.lock.Lock()
	p.cookies[term] = "JSESSIONID=" + jsession + "; BIGipServer=pool"
	p.lock.Unlock()

	writeJSON(w, map[string]any{"fwdURL": "/classSearch/classSearch"})
}

func (p *fakePortal) instructorPage(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	size, _ := strconv.Atoi(r.URL.Query().Get("max"))
	if page < 1 || size < 1 || r.URL.Query().Get("term") == "" {
		http.Error(w, "bad paging", http.StatusBadRequest)
		return
	}
	if page == p.failPage {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	if p.ignoreOffset {
		page = 1
	}

	// later pages answer first
	time.Sleep(time.Millisecond * time.Duration(20-min(page, 20)))

	records := []CodeDescription{}
	for k := (page - 1) * size; k < page*size && k < p.instructors; k++ {
		records = append(records, CodeDescription{
			Code:        fmt.Sprintf("i%05d", k),
			Description: fmt.Sprintf("Instructor, Number %d", k),
		})
	}
	writeJSON(w, records)
}

func (p *fakePortal) search(w http.ResponseWriter, r *http.Request, record func(term, subject string, i int) any) {
	query := r.URL.Query()
	term := query.Get("txt_term")
	subject := query.Get("txt_subject")

	p.lock.Lock()
	expected := p.cookies[term]
	p.lock.Unlock()
	if expected == "" || r.Header.Get("Cookie") != expected {
		http.Error(w, "session not scoped to "+term, http.StatusUnauthorized)
		return
	}
	if query.Get("uniqueSessionId") == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}
	if subject == p.failSubject {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}

	// subjects early in the list answer last
	for i, s := range p.subjects {
		if s == subject {
			time.Sleep(time.Millisecond * time.Duration(5*(len(p.subjects)-i)))
		}
	}

	data := []any{}
	for i := 0; i < p.coursesPerSubject; i++ {
		if query.Get("chk_open_only") == "true" && i%2 != 0 {
			continue
		}
		data = append(data, record(term, subject, i))
	}
	writeJSON(w, map[string]any{
		"success":     true,
		"totalCount":  len(data),
		"pageOffset":  0,
		"pageMaxSize": 500,
		"data":        data,
	})
}
