package webcontent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

const loginPage = `<html><head>
<title> Sign in to your account </title>
<meta name="description" content="Secure login">
<link rel="shortcut icon" href="/favicon.ico">
<script src="/app.js"></script>
</head><body>
<form action="https://collector.example.net/post" method="post">
<input type="text" name="user">
<input type="password" name="pass">
<input type="hidden" name="token" value="x">
</form>
<form action="/search"></form>
<iframe src="https://ads.example.org/"></iframe>
<img src="/logo.png">
<a href="/help">Help</a>
<a href="https://www.microsoft.com/">Microsoft</a>
<a href="#">Forgot?</a>
<a href="javascript:void(0)">More</a>
</body></html>`

func TestSummarise(t *testing.T) {
	base, _ := url.Parse("https://login.example.com/index.html")
	content := Summarise(strings.NewReader(loginPage), base)

	if content.Title != "Sign in to your account" {
		t.Errorf("unexpected title %q", content.Title)
	}
	if !content.HasDescription || !content.HasFavicon {
		t.Errorf("expected description and favicon, got %+v", content)
	}

	counts := map[string][2]int{
		"forms":           {2, content.Forms},
		"external forms":  {1, content.ExternalForms},
		"password fields": {1, content.PasswordFields},
		"hidden fields":   {1, content.HiddenFields},
		"iframes":         {1, content.IFrames},
		"scripts":         {1, content.Scripts},
		"images":          {1, content.Images},
		"self links":      {1, content.SelfLinks},
		"external links":  {1, content.ExternalLinks},
		"empty links":     {2, content.EmptyLinks},
	}
	for name, c := range counts {
		if c[0] != c[1] {
			t.Errorf("%s: expected %d, got %d", name, c[0], c[1])
		}
	}
}

func TestIsExternal(t *testing.T) {
	base, _ := url.Parse("https://Example.com/a/")
	tests := []struct {
		ref  string
		want bool
	}{
		{"", false},
		{"b.html", false},
		{"//example.com/x", false},
		{"https://EXAMPLE.com/x", false},
		{"https://evil.example.net/x", true},
		{"//evil.example.net/x", true},
		{"mailto:help@example.net", false},
	}
	for _, tt := range tests {
		if got := isExternal(tt.ref, base); got != tt.want {
			t.Errorf("isExternal(%q) = %v, want %v", tt.ref, got, tt.want)
		}
	}
}

func TestFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("User-Agent"), "phishgard") {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(loginPage))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewFetcher(2*time.Second, zap.NewNop())
	content, err := f.Fetch(context.Background(), server.URL+"/start")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !content.Redirected || content.FinalURL != server.URL+"/login" {
		t.Errorf("expected the redirect to be followed, got %q", content.FinalURL)
	}
	if content.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", content.StatusCode)
	}
	if content.PasswordFields != 1 {
		t.Errorf("expected the login form to be parsed, got %+v", content)
	}
}

func TestFetchRedirectLoop(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	f := NewFetcher(2*time.Second, zap.NewNop())
	if _, err := f.Fetch(context.Background(), server.URL+"/"); err == nil {
		t.Error("expected an error after too many redirects")
	}
}
