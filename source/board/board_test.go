package board

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/issuebot/internal/httpclient"
	"github.com/teranos/issuebot/internal/util"
	"github.com/teranos/issuebot/source"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		BaseURL: server.URL + "/p1/",
		Token:   "zh-token",
		RepoID:  "123940607",
	}, server.Client())
	require.NoError(t, err)
	return client, server
}

func TestFetch_Success(t *testing.T) {
	var gotPath, gotToken string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("X-Authentication-Token")
		w.Write([]byte(`{"pipeline": {"name": "In Progress"}, "is_epic": true, "estimate": {"value": 3}}`))
	})

	out := client.Fetch(context.Background(), 42)
	require.True(t, out.OK(), "unexpected failure: %s", out.Message)

	assert.Equal(t, "/p1/repositories/123940607/issues/42", gotPath)
	assert.Equal(t, "zh-token", gotToken)
	assert.Equal(t, source.BoardRecord{PipelineName: "In Progress", IsEpic: true}, out.Record)
}

func TestFetch_EpicDefaultsToFalse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pipeline": {"name": "Backlog"}}`))
	})

	out := client.Fetch(context.Background(), 1)
	require.True(t, out.OK())
	assert.Equal(t, source.BoardRecord{PipelineName: "Backlog"}, out.Record)
}

func TestFetch_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"not found", http.StatusNotFound, `{"message": "Issue not found"}`, "Issue not found"},
		{"message with success status", http.StatusOK, `{"message": "Not Found"}`, "Not Found"},
		{"unauthorized", http.StatusUnauthorized, `{"message": "Invalid Token"}`, "Invalid Token"},
		{"error status html", http.StatusServiceUnavailable, `<h1>down</h1>`, "Service Unavailable"},
		{"error status empty json", http.StatusInternalServerError, `{}`, "Internal Server Error"},
		{"no pipeline", http.StatusOK, `{"is_epic": false}`, "response has no pipeline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			out := client.Fetch(context.Background(), 99)
			assert.Equal(t, source.Failed(source.DataError, tt.message), out)
		})
	}
}

func TestFetch_UnparseableBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	out := client.Fetch(context.Background(), 3)
	assert.Equal(t, source.DataError, out.Kind)
	assert.Contains(t, out.Message, "unparseable response")
}

func TestFetch_TransportError(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	out := client.Fetch(context.Background(), 3)
	assert.Equal(t, source.TransportError, out.Kind)
	assert.NotEmpty(t, out.Message)
}

func TestFetch_Deadline(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	out := client.Fetch(ctx, 3)
	assert.Equal(t, source.Failed(source.TransportError, "request timed out"), out)
}

func TestFetch_BlockedByDefaultSaferClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach a loopback server")
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL, RepoID: "1"}, httpclient.NewSaferClient(time.Second).Client)
	require.NoError(t, err)

	out := client.Fetch(context.Background(), 3)
	assert.Equal(t, source.TransportError, out.Kind)
	assert.Contains(t, out.Message, "SSRF")
}

func TestFetch_UserAgentFromSaferClient(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{"pipeline": {"name": "Done"}}`))
	}))
	defer server.Close()

	safer := httpclient.NewSaferClientWithOptions(time.Second, httpclient.Options{
		BlockPrivateIP: util.Ptr(false),
		UserAgent:      "issuebot/1.0",
	})
	client, err := New(Config{BaseURL: server.URL, RepoID: "1"}, safer.Client)
	require.NoError(t, err)

	out := client.Fetch(context.Background(), 3)
	require.True(t, out.OK())
	assert.Equal(t, "issuebot/1.0", gotUA)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{BaseURL: "https://api.zenhub.com/p1"}, nil)
	assert.Error(t, err)

	_, err = New(Config{RepoID: "1"}, nil)
	assert.Error(t, err)

	c, err := New(Config{BaseURL: "https://api.zenhub.com/p1/", RepoID: "1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.zenhub.com/p1", c.baseURL)
	assert.Equal(t, source.Board, c.Name())
}
