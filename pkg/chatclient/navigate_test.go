package chatclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNavigator(routes *[]string) *Navigator {
	nav := NewNavigator(func(route string) {
		*routes = append(*routes, route)
	})
	nav.sleep = func(time.Duration) {}
	return nav
}

func TestGoParameterizesTargetWithConversationID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"conversation":{"id":"conv-42"}}`))
	}))
	defer server.Close()

	var routes []string
	nav := newTestNavigator(&routes)

	nav.Go(context.Background(), "/chat", map[string]string{"message": "hi"}, server.URL)

	require.Len(t, routes, 1)
	assert.Equal(t, "/chat?conversation=conv-42", routes[0])
	assert.False(t, nav.Transitioning())
}

func TestGoNavigatesToBareTargetOnPostFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	var routes []string
	nav := newTestNavigator(&routes)

	nav.Go(context.Background(), "/chat", map[string]string{"message": "hi"}, server.URL)

	// 副作用失败不阻断导航
	require.Len(t, routes, 1)
	assert.Equal(t, "/chat", routes[0])
	assert.False(t, nav.Transitioning())
}

func TestGoWithoutEndpointSkipsPost(t *testing.T) {
	var routes []string
	nav := newTestNavigator(&routes)

	nav.Go(context.Background(), "/chat", nil, "")

	require.Len(t, routes, 1)
	assert.Equal(t, "/chat", routes[0])
}

func TestGoIgnoredWhileTransitioning(t *testing.T) {
	var routes []string
	nav := newTestNavigator(&routes)
	// 模拟一次在途的导航
	nav.transitioning = true

	nav.Go(context.Background(), "/chat", nil, "")

	assert.Empty(t, routes)
}
