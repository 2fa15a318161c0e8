// Package httpjson renders JSON HTTP responses.
package httpjson

import (
	"encoding/json"
	"net/http"
)

type contentType int

const (
	JSON contentType = iota
	HTML
)

// RenderStatus write data to the provided ResponseWriter with the requested
// status code, marshalled as JSON.
func RenderStatus(w http.ResponseWriter, statusCode int, data interface{}, cType contentType) error {
	js, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	if cType == JSON {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	w.WriteHeader(statusCode)
	_, err = w.Write(js)
	return err
}

// Render writes data as a 200 response.
func Render(w http.ResponseWriter, data interface{}, cType contentType) error {
	return RenderStatus(w, http.StatusOK, data, cType)
}
