package banner

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"bannerssb/lib/restyutil"
	"bannerssb/lib/textutil"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

type ClientOptions struct {
	// defaults to DefaultCatalog()
	Catalog *Catalog
	// per request, defaults to 30 seconds
	Timeout time.Duration
	// how long a term's session cookie is reused, defaults to 15 minutes
	SessionTTL time.Duration
	// maximum concurrent requests of a fan-out, defaults to 8
	Concurrency int
	UserAgent   string
	// wrap the transport to get past cloudflare's bot checks
	CloudflareBypass bool
	// receives every raw http exchange, nil to disable
	Dump restyutil.InstrumentOutput
}

// Client queries the class search of one school.
type Client struct {
	School      School
	executor    *executor
	sessions    *sessionCache
	concurrency int
}

func NewClient(school string, opts ClientOptions) (*Client, error) {
	catalog := opts.Catalog
	if catalog == nil {
		var err error
		catalog, err = DefaultCatalog()
		if err != nil {
			return nil, err
		}
	}
	s, err := catalog.School(school)
	if err != nil {
		return nil, err
	}

	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.SessionTTL == 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	sessionId, err := NewSessionId()
	if err != nil {
		return nil, err
	}

	e := newExecutor(s, executorOptions{
		timeout:          opts.Timeout,
		userAgent:        opts.UserAgent,
		cloudflareBypass: opts.CloudflareBypass,
		dump:             opts.Dump,
	})
	return &Client{
		School:      s,
		executor:    e,
		sessions:    newSessionCache(e, sessionId, opts.SessionTTL),
		concurrency: opts.Concurrency,
	}, nil
}

func missing(op Operation, args ...string) error {
	for i := 0; i+1 < len(args); i += 2 {
		if args[i+1] == "" {
			return fmt.Errorf("%w: %s requires %s", ErrMissingArgument, op, args[i])
		}
	}
	return nil
}

// Session returns the session used for term, performing the term search
// handshake when there is no live one.
func (c *Client) Session(ctx context.Context, term string) (Session, error) {
	err := missing(OpTermSearch, "term", term)
	if err != nil {
		return Session{}, err
	}
	return c.sessions.Get(ctx, term)
}

// RefreshSession forces a new handshake for term.
func (c *Client) RefreshSession(ctx context.Context, term string) (Session, error) {
	err := missing(OpTermSearch, "term", term)
	if err != nil {
		return Session{}, err
	}
	return c.sessions.Refresh(ctx, term)
}

// ResetSession forgets the session for term, the next search performs a
// new handshake.
func (c *Client) ResetSession(term string) {
	c.sessions.Reset(term)
}

type ListOptions struct {
	// filters by code or description on the server
	Search string
	// some schools scope lookups to a term
	Term string
	// page number, defaults to 1
	Offset int
	// defaults to the school's page size for the resource
	Max int
}

func (o ListOptions) values(defaultMax int) url.Values {
	offset := o.Offset
	if offset <= 0 {
		offset = 1
	}
	size := o.Max
	if size <= 0 {
		size = defaultMax
	}
	query := url.Values{
		"searchTerm": {o.Search},
		"offset":     {strconv.Itoa(offset)},
		"max":        {strconv.Itoa(size)},
	}
	if o.Term != "" {
		query.Set("term", o.Term)
	}
	return query
}

func (c *Client) lookup(ctx context.Context, op Operation, query url.Values) ([]CodeDescription, error) {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("client:%s", op))
	defer span.End()

	records, err := executeJSON[[]CodeDescription](ctx, c.executor, Request{Op: op, Query: query})
	if err != nil {
		return nil, recordError(span, err, "lookup failed")
	}
	span.SetAttributes(attribute.Int("banner.records", len(records)))
	return records, nil
}

func (c *Client) GetTerms(ctx context.Context, opts ListOptions) ([]Term, error) {
	return c.lookup(ctx, OpTerms, opts.values(c.School.PageSizes.Terms))
}

func (c *Client) GetSubjects(ctx context.Context, term string, opts ListOptions) ([]Subject, error) {
	err := missing(OpSubjects, "term", term)
	if err != nil {
		return nil, err
	}
	opts.Term = term
	return c.lookup(ctx, OpSubjects, opts.values(c.School.PageSizes.Subjects))
}

func (c *Client) GetCampuses(ctx context.Context, opts ListOptions) ([]CodeDescription, error) {
	return c.lookup(ctx, OpCampuses, opts.values(c.School.PageSizes.Lookups))
}

func (c *Client) GetColleges(ctx context.Context, opts ListOptions) ([]CodeDescription, error) {
	return c.lookup(ctx, OpColleges, opts.values(c.School.PageSizes.Lookups))
}

func (c *Client) GetAttributes(ctx context.Context, opts ListOptions) ([]CodeDescription, error) {
	return c.lookup(ctx, OpAttributes, opts.values(c.School.PageSizes.Lookups))
}

func (c *Client) GetSessions(ctx context.Context, opts ListOptions) ([]CodeDescription, error) {
	return c.lookup(ctx, OpSessions, opts.values(c.School.PageSizes.Lookups))
}

func (c *Client) GetPartsOfTerm(ctx context.Context, opts ListOptions) ([]CodeDescription, error) {
	return c.lookup(ctx, OpPartsOfTerm, opts.values(c.School.PageSizes.Lookups))
}

func (c *Client) GetInstructionalMethods(ctx context.Context, opts ListOptions) ([]CodeDescription, error) {
	return c.lookup(ctx, OpInstructionalMethods, opts.values(c.School.PageSizes.Lookups))
}

// a portal that ignores the offset parameter would otherwise never stop
const maxInstructorBatches = 64

// GetInstructors lists every instructor teaching in term. Instructors are
// fetched in parallel batches of MaxInstructorCount, a full batch means
// there may be more and the next batch is requested. A listing that is
// still full after maxInstructorBatches batches fails with ErrTransport.
func (c *Client) GetInstructors(ctx context.Context, term string) ([]Instructor, error) {
	err := missing(OpInstructors, "term", term)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "client:GetInstructors")
	defer span.End()

	pageSize := c.School.PageSizes.Instructors
	ceiling := c.School.MaxInstructorCount
	pagesPerBatch := ceiling / pageSize

	var instructors []Instructor
	for batch := 0; batch < maxInstructorBatches; batch++ {
		firstPage := batch * pagesPerBatch
		records, err := FetchAllPages(ctx, func(ctx context.Context, page, size int) ([]Instructor, error) {
			return executeJSON[[]Instructor](ctx, c.executor, Request{
				Op: OpInstructors,
				Query: ListOptions{
					Term:   term,
					Offset: firstPage + page,
					Max:    size,
				}.values(size),
			})
		}, pageSize, ceiling, c.concurrency)
		if err != nil {
			return nil, recordError(span, err, "failed to fetch instructor batch")
		}

		slog.DebugContext(ctx, "fetched instructor batch", "term", term, "batch", batch, "count", len(records))
		instructors = append(instructors, records...)
		if len(records) < ceiling {
			span.SetAttributes(attribute.Int("banner.records", len(instructors)))
			return instructors, nil
		}
	}

	err = fmt.Errorf(
		"%w: %s: listing for term %s still full after %d batches",
		ErrTransport, OpInstructors, term, maxInstructorBatches,
	)
	return nil, recordError(span, err, "instructor listing did not end")
}

// FindInstructors returns the instructors of term whose names resemble
// name, closest first.
func (c *Client) FindInstructors(ctx context.Context, term, name string) ([]Instructor, error) {
	err := missing(OpInstructors, "term", term, "name", name)
	if err != nil {
		return nil, err
	}
	instructors, err := c.GetInstructors(ctx, term)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(instructors))
	for i, inst := range instructors {
		names[i] = inst.Description
	}
	matches := textutil.Rank(name, names, 0.85)
	out := make([]Instructor, len(matches))
	for i, m := range matches {
		out[i] = instructors[m.Index]
	}
	return out, nil
}

// GetCourseDescription returns the description of a section with its
// wrapping element removed.
func (c *Client) GetCourseDescription(ctx context.Context, term, crn string) (string, error) {
	err := missing(OpCourseDescription, "term", term, "crn", crn)
	if err != nil {
		return "", err
	}

	ctx, span := tracer.Start(ctx, "client:GetCourseDescription")
	defer span.End()

	res, err := c.executor.Execute(ctx, Request{
		Op: OpCourseDescription,
		Query: url.Values{
			"term":                  {term},
			"courseReferenceNumber": {crn},
		},
	})
	if err != nil {
		return "", recordError(span, err, "failed to fetch description")
	}
	return StripWrapper(string(res.Body), c.School.DescriptionTag), nil
}

type ClassSearchQuery struct {
	Term     string
	Subject  string
	OpenOnly bool
	// record offset, starts at 0
	Offset int
	// defaults to the school's search page size
	PageSize int
}

type CatalogSearchQuery struct {
	Term    string
	Subject string
	Offset  int
	// defaults to the school's search page size
	PageSize int
}

func (c *Client) searchValues(session Session, term, subject string, offset, pageSize int) url.Values {
	if pageSize <= 0 {
		pageSize = c.School.PageSizes.Search
	}
	return url.Values{
		"txt_subject":     {subject},
		"txt_term":        {term},
		"term":            {term},
		"uniqueSessionId": {session.Id},
		"pageOffset":      {strconv.Itoa(offset)},
		"pageMaxSize":     {strconv.Itoa(pageSize)},
		"sortColumn":      {"subjectDescription"},
		"sortDirection":   {"asc"},
	}
}

func (c *Client) ClassSearch(ctx context.Context, q ClassSearchQuery) (SearchResults[Section], error) {
	err := missing(OpClassSearch, "term", q.Term, "subject", q.Subject)
	if err != nil {
		return SearchResults[Section]{}, err
	}

	ctx, span := tracer.Start(ctx, "client:ClassSearch")
	defer span.End()
	span.SetAttributes(
		attribute.String("banner.term", q.Term),
		attribute.String("banner.subject", q.Subject),
	)

	session, err := c.sessions.Get(ctx, q.Term)
	if err != nil {
		return SearchResults[Section]{}, recordError(span, err, "failed to acquire session")
	}

	query := c.searchValues(session, q.Term, q.Subject, q.Offset, q.PageSize)
	if q.OpenOnly {
		query.Set("chk_open_only", "true")
	}
	res, err := executeJSON[SearchResults[Section]](ctx, c.executor, Request{
		Op:     OpClassSearch,
		Query:  query,
		Cookie: session.Cookie,
	})
	if err != nil {
		return SearchResults[Section]{}, recordError(span, err, "class search failed")
	}
	return res, nil
}

func (c *Client) catalogSearch(ctx context.Context, session Session, q CatalogSearchQuery) (SearchResults[Course], error) {
	res, err := executeJSON[SearchResults[Course]](ctx, c.executor, Request{
		Op:     OpCatalogSearch,
		Query:  c.searchValues(session, q.Term, q.Subject, q.Offset, q.PageSize),
		Cookie: session.Cookie,
	})
	if err != nil {
		return SearchResults[Course]{}, fmt.Errorf("catalog search %s: %w", q.Subject, err)
	}
	return res, nil
}

func (c *Client) CatalogSearch(ctx context.Context, q CatalogSearchQuery) (SearchResults[Course], error) {
	err := missing(OpCatalogSearch, "term", q.Term, "subject", q.Subject)
	if err != nil {
		return SearchResults[Course]{}, err
	}

	ctx, span := tracer.Start(ctx, "client:CatalogSearch")
	defer span.End()
	span.SetAttributes(
		attribute.String("banner.term", q.Term),
		attribute.String("banner.subject", q.Subject),
	)

	session, err := c.sessions.Get(ctx, q.Term)
	if err != nil {
		return SearchResults[Course]{}, recordError(span, err, "failed to acquire session")
	}
	res, err := c.catalogSearch(ctx, session, q)
	if err != nil {
		return SearchResults[Course]{}, recordError(span, err, "catalog search failed")
	}
	return res, nil
}

// GetAllCourses runs a catalog search for every subject of term and
// concatenates the results in subject order. All searches share one
// session, any failed subject fails the call.
func (c *Client) GetAllCourses(ctx context.Context, term string) ([]Course, error) {
	err := missing(OpCatalogSearch, "term", term)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "client:GetAllCourses")
	defer span.End()

	subjects, err := c.GetSubjects(ctx, term, ListOptions{})
	if err != nil {
		return nil, recordError(span, err, "failed to fetch subjects")
	}
	if len(subjects) == 0 {
		return nil, nil
	}

	session, err := c.sessions.Get(ctx, term)
	if err != nil {
		return nil, recordError(span, err, "failed to acquire session")
	}

	results := make([][]Course, len(subjects))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.concurrency)
	for i, subject := range subjects {
		group.Go(func() error {
			res, err := c.catalogSearch(groupCtx, session, CatalogSearchQuery{
				Term:    term,
				Subject: subject.Code,
			})
			if err != nil {
				return err
			}
			results[i] = res.Data
			return nil
		})
	}
	err = group.Wait()
	if err != nil {
		return nil, recordError(span, err, "failed to search subject")
	}

	var courses []Course
	for _, r := range results {
		courses = append(courses, r...)
	}
	span.SetAttributes(
		attribute.Int("banner.subjects", len(subjects)),
		attribute.Int("banner.records", len(courses)),
	)
	return courses, nil
}
