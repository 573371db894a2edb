package logx

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestAnonymizeIP(t *testing.T) {
	require.Equal(t, "203.0.113.0", anonymizeIP("203.0.113.7:52100"))
	require.Equal(t, "2001:db8:1:2::", anonymizeIP("[2001:db8:1:2:3:4:5:6]:443"))
	require.Equal(t, "127.0.0.1", anonymizeIP("127.0.0.1:9000"))
	require.Equal(t, "unknown_ip", anonymizeIP("not-an-address"))
}

func TestRequestLoggerOmitsQueryString(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	h := RequestLogger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/file/presign-download?k=chan-1/secret.png", nil)
	h.ServeHTTP(httptest.NewRecorder(), r)

	out := buf.String()
	require.Contains(t, out, `"request_path":"/api/file/presign-download"`)
	require.NotContains(t, out, "secret.png")
}
