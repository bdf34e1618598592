package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"factory-backend/pkg/utils"
)

func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC RECOVERED [%s]: %v\n%s", GetRequestIDFromContext(r.Context()), err, debug.Stack())
				utils.Message(w, http.StatusInternalServerError, "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
