package banner

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

// Session is the result of a term search handshake. A Session is a value,
// a new handshake produces a new Session instead of changing an old one.
type Session struct {
	// the uniqueSessionId sent with the handshake and every search
	Id   string
	Term string
	// ready to be sent as a Cookie header
	Cookie     string
	AcquiredAt time.Time
}

// NewSessionId returns an id shaped like the ones the portal's own pages
// generate: five random characters followed by the unix time in millis.
func NewSessionId() (string, error) {
	prefix, err := random.String(5)
	if err != nil {
		return "", err
	}
	return prefix + strconv.FormatInt(time.Now().UnixMilli(), 10), nil
}

func cookieHeader(cookies []*http.Cookie) string {
	pairs := make([]string, 0, len(cookies))
	for _, c := range cookies {
		if c.Name == "" {
			continue
		}
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	return strings.Join(pairs, "; ")
}

// acquireSession posts a term search to obtain a cookie scoped to term.
func acquireSession(ctx context.Context, e *executor, sessionId, term string) (Session, error) {
	ctx, span := tracer.Start(ctx, "session:Acquire")
	defer span.End()
	span.SetAttributes(attribute.String("banner.term", term))

	if term == "" {
		return Session{}, recordError(span, fmt.Errorf("%w: term", ErrMissingArgument), "missing term")
	}

	res, err := e.Execute(ctx, Request{
		Op:    OpTermSearch,
		Query: url.Values{"mode": {"search"}},
		Form: url.Values{
			"uniqueSessionId": {sessionId},
			"term":            {term},
		},
	})
	if err != nil {
		return Session{}, err
	}

	cookie := cookieHeader(res.Cookies)
	if cookie == "" {
		err = fmt.Errorf("%w: no cookie returned for term %q", ErrSession, term)
		return Session{}, recordError(span, err, "no cookie")
	}

	slog.DebugContext(ctx, "acquired session", "school", e.school.Key, "term", term, "cookies", len(res.Cookies))
	return Session{
		Id:         sessionId,
		Term:       term,
		Cookie:     cookie,
		AcquiredAt: time.Now(),
	}, nil
}

const defaultSessionTTL = time.Minute * 15

// sessionCache holds one session per term. Acquisitions for the same term
// are collapsed so concurrent callers all receive the same, latest cookie.
type sessionCache struct {
	id       string
	executor *executor
	cache    *expirable.LRU[string, Session]
	group    *singleflight.Group
}

func newSessionCache(e *executor, id string, ttl time.Duration) *sessionCache {
	return &sessionCache{
		id:       id,
		executor: e,
		cache:    expirable.NewLRU[string, Session](256, nil, ttl),
		group:    &singleflight.Group{},
	}
}

// Get returns the cached session for term, acquiring one if there is none.
func (s *sessionCache) Get(ctx context.Context, term string) (Session, error) {
	cached, hit := s.cache.Get(term)
	if hit {
		return cached, nil
	}
	return s.acquire(ctx, term)
}

// Refresh drops the cached session for term and performs a new handshake,
// joining one that is already in flight.
func (s *sessionCache) Refresh(ctx context.Context, term string) (Session, error) {
	s.cache.Remove(term)
	return s.acquire(ctx, term)
}

func (s *sessionCache) Reset(term string) {
	s.cache.Remove(term)
}

func (s *sessionCache) acquire(ctx context.Context, term string) (Session, error) {
	result, err, _ := s.group.Do(term, func() (any, error) {
		cached, hit := s.cache.Get(term)
		if hit {
			return cached, nil
		}
		session, err := acquireSession(ctx, s.executor, s.id, term)
		if err != nil {
			return Session{}, err
		}
		s.cache.Add(term, session)
		return session, nil
	})
	if err != nil {
		return Session{}, err
	}
	return result.(Session), nil
}
