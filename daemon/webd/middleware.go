package webd

import (
	"io"
	"log/slog"
	"net/http"

	ghandlers "github.com/gorilla/handlers"
)

func permissiveCorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Add("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept")
		w.Header().Add("Access-Control-Expose-Headers", creditsHeader)
		next.ServeHTTP(w, r)
	})
}

func contentTypeMiddlewareFunc(contentType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", contentType)
			next.ServeHTTP(w, r)
		})
	}
}

// https://github.com/gorilla/mux#middleware

// writeLog logs one finished request through slog instead of
// the handler's writer.
func writeLog(_ io.Writer, params ghandlers.LogFormatterParams) {
	uri := params.Request.RequestURI
	if uri == "" {
		uri = params.URL.RequestURI()
	}
	slog.Debug("Request",
		"d", "web",
		"remote", params.Request.RemoteAddr,
		"method", params.Request.Method,
		"uri", uri,
		"status", params.StatusCode,
		"size", params.Size,
		"at", params.TimeStamp,
	)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return ghandlers.CustomLoggingHandler(io.Discard, next, writeLog)
}
