package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type recordingHTTPMetrics struct {
	classes []string
}

func (r *recordingHTTPMetrics) RecordHTTPRequest(statusClass string) {
	r.classes = append(r.classes, statusClass)
}

func TestMetricsMiddleware_RecordsStatusClass(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantClass string
	}{
		{"200は2xx", http.StatusOK, "2xx"},
		{"204は2xx", http.StatusNoContent, "2xx"},
		{"401は4xx", http.StatusUnauthorized, "4xx"},
		{"429は4xx", http.StatusTooManyRequests, "4xx"},
		{"503は5xx", http.StatusServiceUnavailable, "5xx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingHTTPMetrics{}
			handler := NewMetricsMiddleware(rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if len(rec.classes) != 1 {
				t.Fatalf("recorded %d classes, want 1", len(rec.classes))
			}
			if rec.classes[0] != tt.wantClass {
				t.Errorf("class = %q, want %q", rec.classes[0], tt.wantClass)
			}
		})
	}
}

func TestMetricsMiddleware_ImplicitOKIsRecorded(t *testing.T) {
	rec := &recordingHTTPMetrics{}
	handler := NewMetricsMiddleware(rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(rec.classes) != 1 || rec.classes[0] != "2xx" {
		t.Errorf("classes = %v, want [2xx]", rec.classes)
	}
}
