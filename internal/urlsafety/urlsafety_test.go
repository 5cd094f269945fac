package urlsafety

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAllowed(t *testing.T) {
	tests := []struct {
		url     string
		purpose Purpose
		want    bool
	}{
		// image fetch
		{"https://i.imgur.com/x.png", ImageFetch, true},
		{"https://media.tenor.com/abc/anim", ImageFetch, true},
		{"https://cdn.example.org/pic", ImageFetch, true},
		{"https://bucket.s3.amazonaws.com/a", ImageFetch, true},
		{"https://example.com/a/b.JPEG", ImageFetch, true},
		{"https://127.0.0.1/x.png", ImageFetch, false},
		{"https://localhost:6379/foo.jpg", ImageFetch, false},
		{"https://example.com:6379/foo.jpg", ImageFetch, false},
		{"https://example.com:22/foo.jpg", ImageFetch, false},
		{"https://example.com:8443/foo.jpg", ImageFetch, true},
		{"http://example.com/x.jpg", ImageFetch, false},
		{"https://evil.com/a", ImageFetch, false},
		{"https://notimgur.com/a", ImageFetch, false},
		{"https://169.254.169.254/latest/meta-data.png", ImageFetch, false},
		{"https://172.20.1.1/x.png", ImageFetch, false},
		{"https://172.32.1.1/x.png", ImageFetch, true},
		{"https://172.16.foo.example/x.png", ImageFetch, false},
		{"https://172.31.cdn.example/x.png", ImageFetch, false},
		{"https://172.32.foo.example/x.png", ImageFetch, true},
		{"https://[::1]/x.png", ImageFetch, false},
		{"https://[fd00::1]/x.png", ImageFetch, false},
		{"https://[fe80::1]/x.png", ImageFetch, false},
		{"https://[::ffff:127.0.0.1]/x.png", ImageFetch, false},
		{"https://0.0.0.0/x.png", ImageFetch, false},
		{"https://LOCALHOST/x.png", ImageFetch, false},
		{"https://localhost./x.png", ImageFetch, false},
		{"ftp://example.com/x.png", ImageFetch, false},
		{"not a url", ImageFetch, false},
		{"", ImageFetch, false},

		// generic link
		{"http://example.com/x.jpg", GenericLink, true},
		{"https://example.com/anything", GenericLink, true},
		{"https://example.com:6379/", GenericLink, true},
		{"http://192.168.1.1/router", GenericLink, false},
		{"http://10.0.0.8/", GenericLink, false},
		{"javascript:alert(1)", GenericLink, false},
		{"data:image/png;base64,AAAA", GenericLink, false},

		// avatar
		{"https://i.imgur.com/a.jpg", Avatar, true},
		{"https://example.com/me.webp", Avatar, true},
		{"https://i.imgur.com/a", Avatar, false},
		{"http://example.com/me.png", Avatar, false},
		{"https://127.0.0.1/me.png", Avatar, false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAllowed(tt.url, tt.purpose))
		})
	}
}

func TestDeniedAddr(t *testing.T) {
	for _, s := range []string{"127.0.0.1", "10.1.2.3", "172.16.0.1", "192.168.0.1", "169.254.1.1", "::1", "fc00::1", "fe80::1", "0.0.0.0", "::ffff:10.0.0.1", "224.0.0.1"} {
		assert.True(t, DeniedAddr(netip.MustParseAddr(s)), s)
	}

	for _, s := range []string{"1.1.1.1", "93.184.216.34", "2606:4700::1111"} {
		assert.False(t, DeniedAddr(netip.MustParseAddr(s)), s)
	}
}

func TestDialControl(t *testing.T) {
	require.ErrorIs(t, DialControl("tcp", "127.0.0.1:443", nil), ErrDeniedAddress)
	require.ErrorIs(t, DialControl("tcp", "[::1]:443", nil), ErrDeniedAddress)
	require.ErrorIs(t, DialControl("tcp", "garbage", nil), ErrDeniedAddress)
	require.NoError(t, DialControl("tcp", "1.1.1.1:443", nil))
}

func TestCheckRedirect(t *testing.T) {
	ok, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "https://i.imgur.com/a.png", nil)
	require.NoError(t, err)
	require.NoError(t, CheckRedirect(ok, nil))

	bad, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "https://169.254.169.254/a.png", nil)
	require.NoError(t, err)
	require.ErrorIs(t, CheckRedirect(bad, nil), ErrDeniedAddress)

	require.ErrorIs(t, CheckRedirect(ok, make([]*http.Request, maxRedirects)), ErrTooManyRedirects)
}

func TestNewClientRefusesLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := NewClient(time.Second).Do(req)
	if resp != nil {
		_ = resp.Body.Close()
	}

	require.ErrorIs(t, err, ErrDeniedAddress)
}
