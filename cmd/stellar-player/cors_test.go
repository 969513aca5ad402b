package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCorsMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		handler    http.HandlerFunc
		wantStatus int
		wantBody   string
	}{
		{
			name:   "success",
			method: http.MethodPost,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"html":""}`))
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"html":""}`,
		},
		{
			name:   "error",
			method: http.MethodGet,
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "not found", http.StatusNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:   "preflight",
			method: http.MethodOptions,
			handler: func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler should not be called for OPTIONS preflight")
			},
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/players/markup", nil)
			rec := httptest.NewRecorder()
			corsMiddleware(tt.handler).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "*")
			}
			if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
				t.Errorf("Access-Control-Allow-Methods = %q", got)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}
