package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveDeviceIPSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(" 10.0.0.5 \n"))
	}))
	defer srv.Close()

	ip := ResolveDeviceIP(context.Background(), srv.URL, "192.168.1.1")
	assert.Equal(t, "10.0.0.5", ip)
}

func TestResolveDeviceIPFallsBackOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	ip := ResolveDeviceIP(context.Background(), srv.URL, "192.168.1.1")
	assert.Equal(t, "192.168.1.1", ip)
}

func TestResolveDeviceIPFallsBackOnTransportError(t *testing.T) {
	ip := ResolveDeviceIP(context.Background(), "http://127.0.0.1:1", "192.168.1.1")
	assert.Equal(t, "192.168.1.1", ip)
}

func TestResolveDeviceIPFallsBackOnEmptyKVURL(t *testing.T) {
	ip := ResolveDeviceIP(context.Background(), "", "192.168.1.1")
	assert.Equal(t, "192.168.1.1", ip)
}
