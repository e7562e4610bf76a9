package restyutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	lock     sync.Mutex
	messages map[string]string
}

func (m *memoryOutput) Write(id string, contents string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.messages[id] = contents
}

func TestInstrumentClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"code":"202410"}]`))
	}))
	defer server.Close()

	out := &memoryOutput{messages: map[string]string{}}
	client := resty.New()
	InstrumentClient(client, out)

	_, err := client.R().
		SetFormData(map[string]string{"term": "202410"}).
		Post(server.URL + "/term/search")
	require.NoError(t, err)
	_, err = client.R().Get(server.URL + "/classSearch/getTerms")
	require.NoError(t, err)

	require.Len(t, out.messages, 2)
	first := out.messages["1"]
	require.True(t, strings.HasPrefix(first, "---- REQUEST ----\n\nPOST "))
	require.Contains(t, first, "term=202410")
	require.Contains(t, first, "---- RESPONSE ----\n\n200")
	require.Contains(t, out.messages["2"], `[{"code":"202410"}]`)
}

func TestInstrumentClientNilOutput(t *testing.T) {
	client := resty.New()
	InstrumentClient(client, nil)
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")
	out, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	out.Write("7", "contents")
	written, err := os.ReadFile(filepath.Join(dir, "7.txt"))
	require.NoError(t, err)
	require.Equal(t, "contents", string(written))
}

func TestFormatHeaders(t *testing.T) {
	require.Equal(t, "", formatHeaders(nil))
	require.Equal(t, "A: 1\nA: 2\nB: 3", formatHeaders(http.Header{
		"B": {"3"},
		"A": {"1", "2"},
	}))
}

func TestFormatRequestBody(t *testing.T) {
	require.Equal(t, "", formatRequestBody(nil))

	bodyless, err := http.NewRequest("GET", "http://banner.example.edu", nil)
	require.NoError(t, err)
	bodyless.GetBody = func() (io.ReadCloser, error) {
		return nil, nil
	}
	require.Equal(t, "", formatRequestBody(bodyless))

	form, err := http.NewRequest("POST", "http://banner.example.edu", strings.NewReader("term=202503"))
	require.NoError(t, err)
	require.Equal(t, "term=202503", formatRequestBody(form))
}
