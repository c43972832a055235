package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/brendan.keane/svcbase/internal/errors"
	"github.com/brendan.keane/svcbase/internal/testutil"
	"github.com/rs/zerolog"
)

func TestDownload_StreamsWholeBody(t *testing.T) {
	sizes := []int{0, 1, 4096, 3 << 20}

	for _, size := range sizes {
		payload := make([]byte, size)
		rand.Read(payload)

		doer := &testutil.MockDoer{Response: &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": {"application/octet-stream"}},
			Body:       io.NopCloser(bytes.NewReader(payload)),
		}}
		client, _ := newTestClient(t, doer, ServiceOption{})

		stream, err := client.Download(context.Background(), "export", Param("format", "bin"))
		testutil.AssertNoError(t, err, "Download")

		got, err := io.ReadAll(stream)
		stream.Close()
		testutil.AssertNoError(t, err, "read stream")
		if !bytes.Equal(got, payload) {
			t.Fatalf("size %d: stream content differs (got %d bytes)", size, len(got))
		}

		req, _ := doer.LastRequest()
		testutil.AssertMethodEqual(t, req, http.MethodGet, "method")
		testutil.AssertURLEqual(t, req, "https://svc.example.com/api/orders/export?format=bin", "url")
	}
}

func TestDownload_LogsHeaders(t *testing.T) {
	doer := &testutil.MockDoer{Response: &http.Response{
		StatusCode: http.StatusOK,
		Header: http.Header{
			"Content-Type": {"text/csv"},
			"X-Export":     {"orders", "v2"},
		},
		Body: io.NopCloser(strings.NewReader("id\n")),
	}}
	client, logs := newTestClient(t, doer, ServiceOption{})

	stream, err := client.Download(context.Background(), "export")
	testutil.AssertNoError(t, err, "Download")
	defer stream.Close()

	testutil.AssertLogContains(t, logs, "Content-Type : text/csv")
	testutil.AssertLogContains(t, logs, "X-Export : orders v2")
}

func TestDownload_TransportFailure(t *testing.T) {
	doer := testutil.NewMockDoer("", 0, nil, testutil.NewMockError("dial tcp: timeout"))
	client, _ := newTestClient(t, doer, ServiceOption{})

	stream, err := client.Download(context.Background(), "export")
	testutil.AssertErrorContains(t, err, "dial tcp: timeout", "Download")
	if stream != nil {
		t.Error("expected nil stream on failure")
	}
}

func TestDownloadFile_AbsoluteURLWithoutHeaderLogging(t *testing.T) {
	doer := testutil.NewMockDoer("file-bytes", http.StatusOK, map[string]string{"X-Cdn": "edge-1"}, nil)
	client, logs := newTestClient(t, doer, ServiceOption{})

	stream, err := client.DownloadFile(context.Background(), "https://cdn.example.net/assets/logo.png?v=3")
	testutil.AssertNoError(t, err, "DownloadFile")
	defer stream.Close()

	got, _ := io.ReadAll(stream)
	testutil.AssertStringEqual(t, string(got), "file-bytes", "content")

	req, _ := doer.LastRequest()
	testutil.AssertURLEqual(t, req, "https://cdn.example.net/assets/logo.png?v=3", "url")
	testutil.AssertLogEmpty(t, logs)
}

func TestUploadFile(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{"success returns body", http.StatusOK, "ok", "ok"},
		{"created is success", http.StatusCreated, `{"id":"f-1"}`, `{"id":"f-1"}`},
		{"server error returns empty", http.StatusInternalServerError, "boom", ""},
		{"bad request returns empty", http.StatusBadRequest, "invalid", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var part struct {
				field, filename, contentType string
				data                         []byte
				boundary                     string
			}

			doer := &testutil.MockDoer{
				Handler: func(req *http.Request, body []byte) (*http.Response, error) {
					mediaType, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
					if err != nil || mediaType != "multipart/form-data" {
						t.Errorf("unexpected request content type %q", req.Header.Get("Content-Type"))
						return testutil.NewResponse(http.StatusBadRequest, "", nil), nil
					}
					part.boundary = params["boundary"]

					reader := multipart.NewReader(bytes.NewReader(body), part.boundary)
					p, err := reader.NextPart()
					if err != nil {
						t.Errorf("reading part: %v", err)
						return testutil.NewResponse(http.StatusBadRequest, "", nil), nil
					}
					part.field = p.FormName()
					part.filename = p.FileName()
					part.contentType = p.Header.Get("Content-Type")
					part.data, _ = io.ReadAll(p)
					if _, err := reader.NextPart(); err != io.EOF {
						t.Errorf("expected a single part, got err=%v", err)
					}
					return testutil.NewResponse(tt.status, tt.body, nil), nil
				},
			}

			var logs bytes.Buffer
			client, err := New(StaticOption{BaseAddress: "https://svc.example.com/"},
				zerolog.New(&logs).Level(zerolog.InfoLevel), WithDoer(doer))
			testutil.AssertNoError(t, err, "New")

			src := bytes.NewReader([]byte("0123456789"))
			got, err := client.UploadFile(context.Background(), "https://files.example.com/upload", "image/png", src, "png")
			testutil.AssertNoError(t, err, "UploadFile")
			testutil.AssertStringEqual(t, got, tt.expected, "result")

			testutil.AssertStringEqual(t, part.field, "file", "field name")
			testutil.AssertStringEqual(t, part.filename, "somename.png", "file name")
			testutil.AssertStringEqual(t, part.contentType, "image/png", "part content type")
			if len(part.data) != 10 {
				t.Errorf("part carried %d bytes, expected 10", len(part.data))
			}
			if !strings.HasPrefix(part.boundary, "------------") || len(part.boundary) <= 12 {
				t.Errorf("unexpected boundary %q", part.boundary)
			}

			req, _ := doer.LastRequest()
			testutil.AssertMethodEqual(t, req, http.MethodPost, "method")
			testutil.AssertURLEqual(t, req, "https://files.example.com/upload", "url")
			testutil.AssertLogEmpty(t, &logs)
		})
	}
}

func TestUploadFile_TransportFailure(t *testing.T) {
	doer := testutil.NewMockDoer("", 0, nil, testutil.NewMockError("connection reset"))
	client, _ := newTestClient(t, doer, ServiceOption{})

	got, err := client.UploadFile(context.Background(), "https://files.example.com/upload", "text/plain",
		strings.NewReader("hello"), "txt")
	testutil.AssertErrorContains(t, err, "connection reset", "UploadFile")
	testutil.AssertStringEqual(t, got, "", "result")
	if !errors.IsType(err, errors.ErrorTypeNetwork) {
		t.Errorf("expected network error, got %s", errors.GetType(err))
	}
}

// rejectingDoer answers without reading the request body.
type rejectingDoer struct{}

func (rejectingDoer) Do(req *http.Request) (*http.Response, error) {
	return testutil.NewResponse(http.StatusRequestEntityTooLarge, "too big", nil), nil
}

func TestUploadFile_ServerNeverReadsBody(t *testing.T) {
	client, _ := newTestClient(t, rejectingDoer{}, ServiceOption{})

	big := bytes.NewReader(make([]byte, 8<<20))
	got, err := client.UploadFile(context.Background(), "https://files.example.com/upload", "application/octet-stream", big, "bin")
	testutil.AssertNoError(t, err, "UploadFile")
	testutil.AssertStringEqual(t, got, "", "result")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestUploadFile_SourceFailure(t *testing.T) {
	server := testutil.NewServiceTestServer("")
	defer server.Close()

	client, err := New(StaticOption{BaseAddress: server.URL + "/"}, zerolog.Nop(), WithDoer(server.Client()))
	testutil.AssertNoError(t, err, "New")

	got, err := client.UploadFile(context.Background(), server.URL+"/upload", "text/plain", failingReader{}, "txt")
	if err == nil {
		t.Fatal("expected error when the source fails mid-stream")
	}
	testutil.AssertStringEqual(t, got, "", "result")
}

func TestUploadFile_AgainstServer(t *testing.T) {
	server := testutil.NewServiceTestServer("")
	defer server.Close()

	client, err := New(StaticOption{BaseAddress: server.URL + "/api/", Controller: "orders"}, zerolog.Nop(),
		WithDoer(server.Client()))
	testutil.AssertNoError(t, err, "New")

	payload := bytes.Repeat([]byte("a"), 1<<20)
	got, err := client.UploadFile(context.Background(), server.URL+"/upload", "text/plain", bytes.NewReader(payload), "txt")
	testutil.AssertNoError(t, err, "UploadFile")
	testutil.AssertStringEqual(t, got, "somename.txt:text/plain:1048576", "server summary")
}

func TestDownload_AgainstServer(t *testing.T) {
	server := testutil.NewServiceTestServer("")
	defer server.Close()

	var logs bytes.Buffer
	client, err := New(StaticOption{BaseAddress: server.URL + "/api/", Controller: "orders"},
		zerolog.New(&logs), WithDoer(server.Client()))
	testutil.AssertNoError(t, err, "New")

	stream, err := client.Download(context.Background(), "export")
	testutil.AssertNoError(t, err, "Download")
	defer stream.Close()

	data, err := io.ReadAll(stream)
	testutil.AssertNoError(t, err, "read")
	testutil.AssertStringEqual(t, string(data), strings.Repeat("id,status\n", 1000), "export body")
	testutil.AssertLogContains(t, &logs, "X-Export : orders v2")
}
