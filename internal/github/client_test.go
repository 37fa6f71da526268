package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), "test-token").WithBaseURL(server.URL)
	require.NoError(t, err)
	return client
}

func TestTopics(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/widget/topics", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"names":["golang","maturity-beta"]}`)
	})

	topics, err := newTestClient(t, mux).Topics(context.Background(), "octo", "widget")
	require.NoError(t, err)
	assert.Equal(t, []string{"golang", "maturity-beta"}, topics)
}

func TestCommunityHealth(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/widget/community/profile", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"health_percentage":85,"files":{}}`)
	})
	mux.HandleFunc("/repos/octo/empty/community/profile", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{}`)
	})
	client := newTestClient(t, mux)

	pct, err := client.CommunityHealth(context.Background(), "octo", "widget")
	require.NoError(t, err)
	assert.Equal(t, 85, pct)

	_, err = client.CommunityHealth(context.Background(), "octo", "empty")
	assert.ErrorContains(t, err, "community health not found")
}

func TestAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/gone/topics", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})

	_, err := newTestClient(t, mux).Topics(context.Background(), "octo", "gone")
	assert.ErrorContains(t, err, "failed to fetch topics")
}

func TestValidation(t *testing.T) {
	client := &Client{client: nil} // nil client for validation testing

	_, err := client.Topics(context.Background(), "", "repo")
	assert.Error(t, err)

	_, err = client.CommunityHealth(context.Background(), "owner", "  ")
	assert.Error(t, err)
}

func TestCommunityURL(t *testing.T) {
	assert.Equal(t, "https://github.com/octo/widget/community", CommunityURL("octo", "widget"))
}
