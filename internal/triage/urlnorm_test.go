package triage

import "testing"

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "   ", want: ""},
		{name: "scheme and host case", in: "HTTPS://Example.COM/Path", want: "https://example.com/Path"},
		{name: "http folded", in: "http://example.com/a", want: "https://example.com/a"},
		{name: "default ports", in: "https://example.com:443/a", want: "https://example.com/a"},
		{name: "custom port kept", in: "https://example.com:8443/a", want: "https://example.com:8443/a"},
		{name: "trailing slash", in: "https://example.com/blog/", want: "https://example.com/blog"},
		{name: "root slash", in: "https://example.com/", want: "https://example.com"},
		{name: "fragment dropped", in: "https://example.com/a#section-2", want: "https://example.com/a"},
		{
			name: "tracking params dropped and rest sorted",
			in:   "https://example.com/post?utm_source=hn&b=2&fbclid=xyz&a=1&UTM_Medium=social",
			want: "https://example.com/post?a=1&b=2",
		},
		{name: "only tracking params", in: "https://example.com/p?ref=twitter&si=abc", want: "https://example.com/p"},
		{name: "unparseable falls back", in: "Not A URL/", want: "not a url"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeURL(tc.in); got != tc.want {
				t.Fatalf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeURLIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"HTTP://Example.com:80/A/B/?z=1&utm_campaign=x&a=2#frag",
		"https://arxiv.org/abs/2501.00001v2",
		"https://news.ycombinator.com/item?id=42",
		"https://[::1]:8080/x/",
		"https://github.com/org/repo///",
		"mailto:someone@example.com",
		"relative/path/",
		"",
	}

	for _, in := range inputs {
		once := NormalizeURL(in)
		twice := NormalizeURL(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
