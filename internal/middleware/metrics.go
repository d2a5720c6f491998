package middleware

import (
	"fmt"
	"net/http"
)

// HTTPMetricsRecorder は処理済みリクエストのメトリクス記録インターフェース。
// metrics.Collectorが実装する。
type HTTPMetricsRecorder interface {
	RecordHTTPRequest(statusClass string)
}

// NewMetricsMiddleware はレスポンスのステータスクラス（2xx..5xx）を
// 記録するミドルウェアを返す。
func NewMetricsMiddleware(recorder HTTPMetricsRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			recorder.RecordHTTPRequest(fmt.Sprintf("%dxx", rec.statusCode/100))
		})
	}
}
