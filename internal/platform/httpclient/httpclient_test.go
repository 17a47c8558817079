package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoJSON_SendsHeadersAndDecodes(t *testing.T) {
	var gotKey, gotReqID, gotCT string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		gotReqID = r.Header.Get("X-Request-ID")
		gotCT = r.Header.Get("Content-Type")

		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["token"]})
	}))
	defer ts.Close()

	c, err := New(ts.URL+"/", time.Second, WithHeader("X-Api-Key", "k-1"))
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), chimw.RequestIDKey, "req-42")
	var out struct {
		Echo string `json:"echo"`
	}
	require.NoError(t, c.DoJSON(ctx, http.MethodPost, "v1/echo", nil, map[string]string{"token": "abc"}, &out))

	assert.Equal(t, "abc", out.Echo)
	assert.Equal(t, "k-1", gotKey)
	assert.Equal(t, "req-42", gotReqID)
	assert.Equal(t, "application/json", gotCT)
}

func TestDoJSON_Non2xxIsHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer ts.Close()

	c, err := New(ts.URL, time.Second)
	require.NoError(t, err)

	err = c.DoJSON(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
}

func TestDoJSON_RelativePathNeedsBaseURL(t *testing.T) {
	c, err := New("", time.Second)
	require.NoError(t, err)
	assert.Error(t, c.DoJSON(context.Background(), http.MethodGet, "/x", nil, nil, nil))
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := New("not a url", time.Second)
	assert.Error(t, err)
}
