// Package api implements the Ansuz HTTP surface using chi: the webhook
// tool contract for the voice agent, transcript processing, and the REST
// endpoints the browser UI polls.
package api

import "net/http"

// CORSMiddleware allows the browser voice client, which is served from a
// different origin, to call every endpoint. Preflight requests are
// answered directly.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
