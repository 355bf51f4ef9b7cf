package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"ResearchPublisher/internal/domain"
	"ResearchPublisher/internal/scanner"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Lab Blog</title>
    <item>
      <title>Serving LLMs on a budget</title>
      <link>https://lab.example/posts/serving</link>
      <guid>post-2</guid>
      <description>&lt;p&gt;We cut &lt;b&gt;inference&lt;/b&gt; cost in half.&lt;/p&gt;</description>
      <pubDate>Sun, 09 Nov 2025 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Ancient history</title>
      <link>https://lab.example/posts/old</link>
      <pubDate>Mon, 01 Sep 2025 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Undated note</title>
      <link>https://lab.example/posts/undated</link>
    </item>
    <item>
      <title></title>
      <link>https://lab.example/posts/untitled</link>
    </item>
  </channel>
</rss>`

func TestRSSScannerScan(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != userAgent {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	sc := NewRSSScanner(server.Client(), nil)
	items, err := sc.Scan(context.Background(), scanner.Request{
		Since:      time.Date(2025, time.November, 3, 0, 0, 0, 0, time.UTC),
		SiteName:   "lab",
		Priority:   domain.PriorityLow,
		Categories: []scanner.Category{{Name: "main", URL: server.URL + "/feed.xml"}},
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}

	want := domain.Item{
		ID:             "post-2",
		Title:          "Serving LLMs on a budget",
		URL:            "https://lab.example/posts/serving",
		Summary:        "We cut inference cost in half.",
		PublishedAt:    time.Date(2025, time.November, 9, 10, 0, 0, 0, time.UTC),
		Source:         domain.SourceBlog,
		SourcePriority: domain.PriorityLow,
		Category:       "main",
		Site:           "lab",
	}
	if diff := cmp.Diff(want, items[0]); diff != "" {
		t.Fatalf("item mismatch (-want +got):\n%s", diff)
	}
	if items[1].ID != "https://lab.example/posts/undated" || !items[1].PublishedAt.IsZero() {
		t.Fatalf("undated entry should be kept with link as id: %+v", items[1])
	}
}

func TestRSSScannerFeedError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	_, err := NewRSSScanner(server.Client(), nil).Scan(context.Background(), scanner.Request{
		SiteName:   "lab",
		Categories: []scanner.Category{{Name: "main", URL: server.URL}},
	})
	if err == nil {
		t.Fatalf("expected error for failing feed")
	}
}

func TestPlainText(t *testing.T) {
	t.Parallel()

	if got := plainText("  plain words "); got != "plain words" {
		t.Fatalf("got %q", got)
	}
	if got := plainText("<div>a <i>b</i>\n c</div>"); got != "a b c" {
		t.Fatalf("got %q", got)
	}
}
