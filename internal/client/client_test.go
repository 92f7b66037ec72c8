package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acharya-hq/smokecheck/internal/twin"
)

func TestAdminClientAgainstTwin(t *testing.T) {
	tw := twin.New()
	srv := httptest.NewServer(tw)
	defer srv.Close()

	ctx := context.Background()
	c := New(srv.URL + "/")

	ok, body := c.Health(ctx)
	assert.True(t, ok)
	assert.Contains(t, body, `"status":"ok"`)

	_, err := c.SetFault(ctx, twin.Fault{Path: "/api/login", StatusCode: http.StatusTeapot})
	require.NoError(t, err)
	f, found := tw.Faults().Check("/api/login")
	require.True(t, found)
	assert.Equal(t, http.StatusTeapot, f.StatusCode)

	_, err = c.ClearFaults(ctx)
	require.NoError(t, err)
	_, found = tw.Faults().Check("/api/login")
	assert.False(t, found)

	entries, err := c.Requests(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "/admin/health", entries[0].Path)
	assert.Equal(t, http.MethodPost, entries[1].Method)

	_, err = c.Reset(ctx)
	require.NoError(t, err)
	entries, err = c.Requests(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "the reset request itself is logged after the reset")
}

func TestAdminClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx := context.Background()
	c := New(srv.URL)

	ok, body := c.Health(ctx)
	assert.False(t, ok)
	assert.Equal(t, "status 500: nope", body)

	_, err := c.Reset(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reset returned status 500")

	_, err = c.SetFault(ctx, twin.Fault{Path: "/x"})
	require.Error(t, err)

	srv.Close()
	ok, _ = c.Health(ctx)
	assert.False(t, ok)
}
