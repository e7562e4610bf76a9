package banner

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewSessionId(t *testing.T) {
	before := time.Now().UnixMilli()
	id, err := NewSessionId()
	if err != nil {
		t.Fatal(err)
	}

	require.Greater(t, len(id), 5)
	millis, err := strconv.ParseInt(id[5:], 10, 64)
	if err != nil {
		t.Fatal("session id does not end in a timestamp", id)
	}
	require.GreaterOrEqual(t, millis, before)

	other, err := NewSessionId()
	if err != nil {
		t.Fatal(err)
	}
	require.NotEqual(t, id[:5], other[:5])
}

func TestAcquireSession(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)

	session, err := client.Session(context.Background(), "202503")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "202503", session.Term)
	require.Equal(t, "JSESSIONID=202503-1; BIGipServer=pool", session.Cookie)
	require.NotEmpty(t, session.Id)
	require.False(t, session.AcquiredAt.IsZero())
}

func TestAcquireSessionWithoutCookie(t *testing.T) {
	portal := newFakePortal(t, func(p *fakePortal) {
		p.rejectTerm = "199901"
	})
	client := portal.client(t)

	_, err := client.Session(context.Background(), "199901")
	require.ErrorIs(t, err, ErrSession)

	_, err = client.ClassSearch(context.Background(), ClassSearchQuery{Term: "199901", Subject: "CIS"})
	require.ErrorIs(t, err, ErrSession)
	require.Equal(t, 0, portal.count("/searchResults/searchResults"))
}

func TestSessionMissingTerm(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)

	_, err := client.Session(context.Background(), "")
	require.ErrorIs(t, err, ErrMissingArgument)
	_, err = client.RefreshSession(context.Background(), "")
	require.ErrorIs(t, err, ErrMissingArgument)
	require.Equal(t, 0, portal.total())
}

func TestSessionPerTerm(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)
	ctx := context.Background()

	fall, err := client.Session(ctx, "202503")
	if err != nil {
		t.Fatal(err)
	}
	again, err := client.Session(ctx, "202503")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, fall, again)
	require.Equal(t, int64(1), portal.handshakes.Load())

	spring, err := client.Session(ctx, "202436")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, int64(2), portal.handshakes.Load())
	require.NotEqual(t, fall.Cookie, spring.Cookie)
	require.Equal(t, fall.Id, spring.Id)

	// a search for either term carries that term's cookie
	_, err = client.CatalogSearch(ctx, CatalogSearchQuery{Term: "202436", Subject: "CIS"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.CatalogSearch(ctx, CatalogSearchQuery{Term: "202503", Subject: "CIS"})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, int64(2), portal.handshakes.Load())
}

func TestConcurrentSessionAcquisition(t *testing.T) {
	portal := newFakePortal(t, func(p *fakePortal) {
		p.handshakeDelay = time.Millisecond * 50
	})
	client := portal.client(t)

	sessions := make([]Session, 16)
	errs := make([]error, len(sessions))
	var wg sync.WaitGroup
	for i := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sessions[i], errs[i] = client.Session(context.Background(), "202503")
		}()
	}
	wg.Wait()

	for i := range sessions {
		require.NoError(t, errs[i])
		require.Equal(t, sessions[0].Cookie, sessions[i].Cookie)
	}
	require.Equal(t, int64(1), portal.handshakes.Load())
}

func TestRefreshSession(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)
	ctx := context.Background()

	first, err := client.Session(ctx, "202503")
	if err != nil {
		t.Fatal(err)
	}
	refreshed, err := client.RefreshSession(ctx, "202503")
	if err != nil {
		t.Fatal(err)
	}
	require.NotEqual(t, first.Cookie, refreshed.Cookie)
	require.Equal(t, "JSESSIONID=202503-2; BIGipServer=pool", refreshed.Cookie)

	// the portal only honors the latest cookie of a term
	res, err := client.ClassSearch(ctx, ClassSearchQuery{Term: "202503", Subject: "MATH"})
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, res.Success)
	require.Equal(t, int64(2), portal.handshakes.Load())

	client.ResetSession("202503")
	_, err = client.ClassSearch(ctx, ClassSearchQuery{Term: "202503", Subject: "MATH"})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, int64(3), portal.handshakes.Load())
}

func TestSessionExpiry(t *testing.T) {
	portal := newFakePortal(t)
	school := portal.school()
	catalog, err := NewCatalog(map[string]School{"test": school})
	if err != nil {
		t.Fatal(err)
	}
	client, err := NewClient("test", ClientOptions{
		Catalog:    catalog,
		SessionTTL: time.Millisecond * 50,
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	_, err = client.Session(ctx, "202503")
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond * 150)
	_, err = client.Session(ctx, "202503")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, int64(2), portal.handshakes.Load())
}

func TestCookieHeader(t *testing.T) {
	require.Equal(t, "", cookieHeader(nil))
}
