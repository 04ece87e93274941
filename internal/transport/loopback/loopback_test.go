package loopback

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemote(t *testing.T) {
	assert.True(t, Remote("127.0.0.1:5000"))
	assert.True(t, Remote("[::1]:5000"))
	assert.True(t, Remote("127.0.0.1"))
	assert.False(t, Remote("10.0.0.3:5000"))
	assert.False(t, Remote("garbage"))
}

func TestAllow(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/control", nil)
	r.RemoteAddr = "192.0.2.7:4000"
	rec := httptest.NewRecorder()
	assert.False(t, Allow(rec, r))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	r.RemoteAddr = "127.0.0.1:4000"
	rec = httptest.NewRecorder()
	assert.True(t, Allow(rec, r))
	assert.Equal(t, http.StatusOK, rec.Code)
}
