package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
)

// NewServiceTestServer serves an "orders" controller under /api/ plus an
// OpenAPI document at /openapi.json when spec is non-empty.
//
//	POST /api/orders/create    echoes the JSON body inside {"echo": ...}
//	POST /api/orders/reject    400 with a plain text body
//	POST /api/orders/fail      503
//	GET  /api/orders/find      {"id": <id query>, "status": "open"}
//	GET  /api/orders/export    text/csv body with a multi-valued header
//	POST /upload               multipart "file" part, answers with its size
func NewServiceTestServer(spec string) *httptest.Server {
	mux := http.NewServeMux()

	if spec != "" {
		mux.HandleFunc("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(spec))
		})
	}

	mux.HandleFunc("/api/orders/create", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(err.Error()))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"echo": payload})
	})

	mux.HandleFunc("/api/orders/reject", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("quantity must be positive"))
	})

	mux.HandleFunc("/api/orders/fail", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	mux.HandleFunc("/api/orders/find", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"` + r.URL.Query().Get("id") + `","status":"open"}`))
	})

	mux.HandleFunc("/api/orders/export", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Add("X-Export", "orders")
		w.Header().Add("X-Export", "v2")
		w.Write([]byte(strings.Repeat("id,status\n", 1000)))
	})

	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		n, _ := io.Copy(io.Discard, file)
		w.Write([]byte(header.Filename + ":" + header.Header.Get("Content-Type") + ":" + strconv.FormatInt(n, 10)))
	})

	return httptest.NewServer(mux)
}

// NewErrorTestServer creates a test server that returns various HTTP error responses
func NewErrorTestServer() *httptest.Server {
	mux := http.NewServeMux()

	for code, body := range map[int]string{
		http.StatusBadRequest:          `{"error": "Bad Request"}`,
		http.StatusUnauthorized:        `{"error": "Unauthorized"}`,
		http.StatusNotFound:            `{"error": "Not Found"}`,
		http.StatusInternalServerError: `{"error": "Internal Server Error"}`,
	} {
		code, body := code, body
		mux.HandleFunc("/"+strconv.Itoa(code), func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			w.Write([]byte(body))
		})
	}

	return httptest.NewServer(mux)
}
