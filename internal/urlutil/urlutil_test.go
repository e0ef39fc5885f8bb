package urlutil

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestOriginFromRequest(t *testing.T) {
	cases := []struct {
		name     string
		target   string
		host     string
		proto    string
		tls      bool
		fallback string
		want     string
	}{
		{name: "plain", target: "http://127.0.0.1:8501/", want: "http://127.0.0.1:8501"},
		{name: "behind tls proxy", target: "http://stock-dashboard.example.test/", proto: "https", want: "https://stock-dashboard.example.test"},
		{name: "first forwarded proto wins", target: "http://stock-dashboard.example.test/", proto: "https, http", want: "https://stock-dashboard.example.test"},
		{name: "unknown proto ignored", target: "http://stock-dashboard.example.test/", proto: "wss", want: "http://stock-dashboard.example.test"},
		{name: "direct tls", target: "https://stock-dashboard.example.test/", tls: true, want: "https://stock-dashboard.example.test"},
		{name: "no host", target: "http://stock-dashboard.example.test/", host: " ", fallback: "http://localhost:8501/", want: "http://localhost:8501"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.host != "" {
				req.Host = tc.host
			}
			if tc.proto != "" {
				req.Header.Set("X-Forwarded-Proto", tc.proto)
			}
			if tc.tls {
				req.TLS = &tls.ConnectionState{}
			} else {
				req.TLS = nil
			}
			if got := OriginFromRequest(req, tc.fallback); got != tc.want {
				t.Errorf("OriginFromRequest = %q, want %q", got, tc.want)
			}
		})
	}

	if got := OriginFromRequest(nil, "http://localhost:8501/"); got != "http://localhost:8501" {
		t.Errorf("nil request: got %q", got)
	}
}

func TestBuildAbsolute_AppFrameSource(t *testing.T) {
	cases := []struct{ base, path, want string }{
		{"http://127.0.0.1:8501", "/~/+/", "http://127.0.0.1:8501/~/+/"},
		{"http://127.0.0.1:8501/", "/~/+/", "http://127.0.0.1:8501/~/+/"},
		{"http://127.0.0.1:8501", "healthz", "http://127.0.0.1:8501/healthz"},
		{"http://127.0.0.1:8501/", "", "http://127.0.0.1:8501"},
		{"http://127.0.0.1:8501", "https://cdn.example.test/app", "https://cdn.example.test/app"},
	}
	for _, tc := range cases {
		if got := BuildAbsolute(tc.base, tc.path); got != tc.want {
			t.Errorf("BuildAbsolute(%q, %q) = %q, want %q", tc.base, tc.path, got, tc.want)
		}
	}
}

func TestBuildAbsolute_SingleSlashJoin(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := "https://" + rapid.StringMatching(`[a-z]{3,12}\.[a-z]{2,6}`).Draw(rt, "host") +
			rapid.SampledFrom([]string{"", "/"}).Draw(rt, "trailing")
		path := rapid.SampledFrom([]string{"", "/"}).Draw(rt, "lead") + rapid.StringMatching(`[a-z~+]{1,8}(/[a-z]{1,8}){0,2}`).Draw(rt, "path")

		got := BuildAbsolute(base, path)
		rest := strings.TrimPrefix(got, "https://")
		if strings.Contains(rest, "//") {
			rt.Fatalf("BuildAbsolute(%q, %q) = %q has a double slash", base, path, got)
		}
		if !strings.HasSuffix(got, strings.TrimPrefix(path, "/")) {
			rt.Fatalf("BuildAbsolute(%q, %q) = %q lost the path", base, path, got)
		}
	})
}

func TestResolve_IframeSources(t *testing.T) {
	cases := []struct {
		page, ref, want string
	}{
		{"https://stock-dashboard-sp500.streamlit.app/", "/~/+/", "https://stock-dashboard-sp500.streamlit.app/~/+/"},
		{"http://127.0.0.1:8501/host/index.html", "app", "http://127.0.0.1:8501/host/app"},
		{"http://127.0.0.1:8501/", "https://embed.example.test/app?embed=true", "https://embed.example.test/app?embed=true"},
	}
	for _, tc := range cases {
		got, err := Resolve(tc.page, tc.ref)
		if err != nil {
			t.Fatalf("Resolve(%q, %q) error: %v", tc.page, tc.ref, err)
		}
		if got != tc.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tc.page, tc.ref, got, tc.want)
		}
	}
}

func TestValidateBaseURL(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		scheme := rapid.SampledFrom([]string{"http", "https"}).Draw(rt, "scheme")
		host := rapid.StringMatching(`[a-z]{3,12}\.[a-z]{2,6}`).Draw(rt, "host")
		if err := ValidateBaseURL(scheme + "://" + host); err != nil {
			rt.Fatalf("expected valid base url, got %v", err)
		}
	})

	for _, bad := range []string{"", "localhost:8501", "ftp://example.test", "http://", "::bad"} {
		if err := ValidateBaseURL(bad); err == nil {
			t.Errorf("ValidateBaseURL(%q) expected error", bad)
		}
	}
}
