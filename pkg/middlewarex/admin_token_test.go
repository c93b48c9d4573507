package middlewarex_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"goods_market/pkg/middlewarex"
)

func TestAdminToken(t *testing.T) {
	testCases := []struct {
		name       string
		token      string
		header     string
		wantStatus int
	}{
		{name: "Valid token", token: "secret", header: "Bearer secret", wantStatus: http.StatusNoContent},
		{name: "Wrong token", token: "secret", header: "Bearer nope", wantStatus: http.StatusForbidden},
		{name: "Missing header", token: "secret", wantStatus: http.StatusForbidden},
		{name: "Not configured", token: "", header: "Bearer ", wantStatus: http.StatusForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)

			h := middlewarex.AdminToken(tc.token)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))

			r := httptest.NewRequest(http.MethodPost, "/v1/admin/cleanup", http.NoBody)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}

			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			rq.Equal(tc.wantStatus, w.Code)
		})
	}
}
