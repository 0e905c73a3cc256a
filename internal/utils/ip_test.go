package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCIDRs(t *testing.T) {
	nets, err := ParseCIDRs("10.0.0.0/8, 127.0.0.1/32,")
	require.NoError(t, err)
	assert.Len(t, nets, 2)

	nets, err = ParseCIDRs("")
	require.NoError(t, err)
	assert.Nil(t, nets)

	_, err = ParseCIDRs("10.0.0.0/33")
	assert.Error(t, err)
}

func TestIsAllowedIP(t *testing.T) {
	nets, err := ParseCIDRs("10.0.0.0/8")
	require.NoError(t, err)

	assert.True(t, IsAllowedIP("10.1.2.3", nets))
	assert.True(t, IsAllowedIP("10.1.2.3:5555", nets))
	assert.False(t, IsAllowedIP("192.168.0.1:80", nets))
	assert.False(t, IsAllowedIP("not-an-ip", nets))
}

func TestAllowOnly(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	nets, err := ParseCIDRs("127.0.0.0/8")
	require.NoError(t, err)
	h := AllowOnly(nets, ok)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req.RemoteAddr = "8.8.8.8:1234"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	AllowOnly(nil, ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
