package i18n

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestResolveLocalePriority(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		url    string
		header map[string]string
		want   string
	}{
		{name: "default", url: "/", want: DefaultLocale},
		{name: "query", url: "/?lang=en", header: map[string]string{"Accept-Language": "pt-BR"}, want: LocaleEN},
		{name: "x-locale", url: "/", header: map[string]string{"X-Locale": "pt"}, want: LocalePT},
		{name: "accept-language", url: "/", header: map[string]string{"Accept-Language": "en-GB,en;q=0.8"}, want: LocaleEN},
		{name: "garbage", url: "/", header: map[string]string{"Accept-Language": ";;;"}, want: DefaultLocale},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", tc.url, nil)
			for k, v := range tc.header {
				c.Request.Header.Set(k, v)
			}
			if got := ResolveLocale(c); got != tc.want {
				t.Fatalf("locale = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestTFallsBackToDefaultLocale(t *testing.T) {
	if got := T(LocalePT, "error.jwt_secret_missing"); got != catalog[LocaleZH]["error.jwt_secret_missing"] {
		t.Fatalf("fallback message = %q", got)
	}
	if got := T(LocaleEN, "error.unknown_key"); got != "error.unknown_key" {
		t.Fatalf("missing key should echo itself, got %q", got)
	}
	if got := Sprintf(LocaleEN, "error.too_many_requests", 30); got != "Too many requests, retry in 30 seconds" {
		t.Fatalf("sprintf = %q", got)
	}
}
