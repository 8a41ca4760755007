package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<!DOCTYPE html>
<html>
<body>
  <div class="results">
    <div class="result">
      <h2 class="result__title">
        <a class="result__a" href="/l/?uddg=https%3A%2F%2Fgolang.org%2Fdoc%2F&amp;rut=abc">Go <b>Documentation</b></a>
      </h2>
      <a class="result__snippet" href="https://golang.org/doc/">The Go programming language.</a>
    </div>
    <div class="result">
      <h2 class="result__title">
        <a class="result__a" href="https://go.dev/blog/">The Go Blog</a>
      </h2>
    </div>
    <div class="result">
      <h2 class="result__title">
        <a class="result__a" href="//pkg.go.dev/std">Standard library</a>
      </h2>
    </div>
  </div>
</body>
</html>`

func TestSearchParsesResults(t *testing.T) {
	var gotQuery string
	var gotUserAgent string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sage-bot-test/1.0", 5*time.Second)

	results, err := client.Search(context.Background(), "golang docs", 10)
	require.NoError(t, err)

	assert.Equal(t, "golang docs", gotQuery)
	assert.Equal(t, "sage-bot-test/1.0", gotUserAgent)

	require.Len(t, results, 3)
	assert.Equal(t, "Go Documentation", results[0].Title)
	assert.Equal(t, "https://golang.org/doc/", results[0].URL)
	assert.Equal(t, "The Go Blog", results[1].Title)
	assert.Equal(t, "https://go.dev/blog/", results[1].URL)
	assert.Equal(t, "Standard library", results[2].Title)
	assert.Equal(t, "https://pkg.go.dev/std", results[2].URL)
}

func TestSearchHonorsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", 5*time.Second)

	results, err := client.Search(context.Background(), "golang", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Go Documentation", results[0].Title)
}

func TestSearchEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><div class="no-results">No results.</div></body></html>`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", 5*time.Second)

	results, err := client.Search(context.Background(), "zxqj", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", 5*time.Second)

	_, err := client.Search(context.Background(), "golang", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestNormalizeResultURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/l/?uddg=https%3A%2F%2Fexample.com%2Fpage&rut=xyz", "https://example.com/page"},
		{"https://example.com/direct", "https://example.com/direct"},
		{"//example.com/protocol-relative", "https://example.com/protocol-relative"},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, normalizeResultURL(tc.in), "input %q", tc.in)
	}
}
