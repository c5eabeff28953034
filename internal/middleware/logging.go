package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// LogRequest reads the matched route, so it has to be installed with Router.Use.
func LogRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fields := log.Fields{"route": routeName(r)}
			if userID := mux.Vars(r)["userId"]; userID != "" {
				fields["user_id"] = userID
			}
			if reqID := r.Header.Get("X-Request-Id"); reqID != "" {
				fields["request_id"] = reqID
			}
			log.WithFields(fields).Tracef(" ====> request [%s] path: [%s] [UA: %s]", r.Method, r.URL.Path, r.Header.Get("User-Agent"))
			next.ServeHTTP(w, r)
		})
	}
}
