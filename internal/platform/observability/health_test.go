package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestServer_Handler(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name   string
		path   string
		pinger fakePinger
		want   int
	}{
		{"healthz", "/healthz", fakePinger{}, http.StatusOK},
		{"readyz ok", "/readyz", fakePinger{}, http.StatusOK},
		{"readyz db down", "/readyz", fakePinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable},
		{"metrics", "/metrics", fakePinger{}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(tt.pinger, 0, &logger)
			rec := httptest.NewRecorder()

			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
