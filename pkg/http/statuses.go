package xhttp

import "github.com/valyala/fasthttp"

const (
	StatusNotFound            = fasthttp.StatusNotFound
	StatusRequestTimeout      = fasthttp.StatusRequestTimeout
	StatusInternalServerError = fasthttp.StatusInternalServerError
)

// StatusText returns the standard text for an HTTP status code.
func StatusText(code int) string {
	return fasthttp.StatusMessage(code)
}
