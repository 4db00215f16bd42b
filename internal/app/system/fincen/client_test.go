package fincen

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer serves a token endpoint and the API on one server.
func newTestServer(t *testing.T, api http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var tokens atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokens.Add(1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "id", user)
		assert.Equal(t, "secret", pass)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		api(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &tokens
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(Config{ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL + "/api", TokenURL: srv.URL + "/token"})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{})
	assert.True(t, errors.Is(err, ErrNotConfigured))

	var c *Client
	_, err = c.RequestProcessID(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFilingFlow(t *testing.T) {
	srv, tokens := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/processId":
			w.Write([]byte(`{"processId":"BOIR230101abc"}`))
		case r.URL.Path == "/api/attachment/BOIR230101abc/3/id.png":
			b, _ := io.ReadAll(r.Body)
			assert.Equal(t, "img", string(b))
			assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
			w.Write([]byte(`{"status":"upload_success"}`))
		case r.URL.Path == "/api/upload/BOIR/BOIR230101abc/boir.xml":
			b, _ := io.ReadAll(r.Body)
			assert.True(t, strings.HasPrefix(string(b), "<?xml"))
			w.Write([]byte(`{"processId":"BOIR230101abc","submissionStatus":"submission_initiated"}`))
		case r.URL.Path == "/api/submissionStatus/BOIR230101abc":
			w.Write([]byte(`{"processId":"BOIR230101abc","submissionStatus":"submission_accepted","BOIRID":"31000"}`))
		default:
			http.NotFound(w, r)
		}
	})
	c := newTestClient(t, srv)
	ctx := context.Background()

	pid, err := c.RequestProcessID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BOIR230101abc", pid)

	require.NoError(t, c.UploadAttachment(ctx, pid, 3, "id.png", "image/png", strings.NewReader("img")))

	st, err := c.UploadXML(ctx, pid, "boir.xml", []byte(`<?xml version="1.0"?><x/>`))
	require.NoError(t, err)
	assert.Equal(t, "submission_initiated", st.SubmissionStatus)

	st, err = c.Status(ctx, pid)
	require.NoError(t, err)
	assert.True(t, st.Accepted())
	assert.Equal(t, "31000", st.BOIRID)

	assert.Equal(t, int32(1), tokens.Load(), "token is cached across calls")
}

func TestAPIError(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad process id"))
	})
	_, err := newTestClient(t, srv).Status(context.Background(), "nope")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "submissionStatus", apiErr.Op)
	assert.Equal(t, "bad process id", apiErr.Body)
}
