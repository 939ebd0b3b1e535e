package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholar-search-go/internal/middleware"
	"scholar-search-go/internal/model"
	"scholar-search-go/internal/service"
	"scholar-search-go/pkg/log"
	"scholar-search-go/pkg/token"
)

func init() {
	gin.SetMode(gin.TestMode)
	log.Init("error", "console", "")
}

// stubConvService 只返回预设的错误，用于验证状态码映射。
type stubConvService struct {
	service.ConversationService
	err error
}

func (s *stubConvService) ListMessages(ctx context.Context, convID, userID string) ([]model.Message, error) {
	return nil, s.err
}

func (s *stubConvService) UpdateTitle(ctx context.Context, convID, userID, newTitle string) (*model.Conversation, error) {
	return nil, s.err
}

func (s *stubConvService) DeleteConversation(ctx context.Context, convID, userID string) error {
	return s.err
}

func newHandlerRouter(svc service.ConversationService) *gin.Engine {
	router := gin.New()
	// 测试中直接注入用户，绕过认证中间件
	router.Use(func(c *gin.Context) {
		c.Set("user", &model.User{ID: "u1"})
	})
	h := NewConversationHandler(svc)
	router.GET("/api/conversations/:id/messages", h.ListMessages)
	router.PATCH("/api/conversations/:id", h.UpdateTitle)
	router.DELETE("/api/conversations/:id", h.Delete)
	return router
}

func TestNotOwnedConversationMapsTo404(t *testing.T) {
	router := newHandlerRouter(&stubConvService{err: service.ErrConversationNotFound})

	for _, tc := range []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/conversations/c1/messages", ""},
		{http.MethodPatch, "/api/conversations/c1", `{"title":"x"}`},
		{http.MethodDelete, "/api/conversations/c1", ""},
	} {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tc.method, tc.path)
		assert.Contains(t, rec.Body.String(), `"error"`)
	}
}

func TestInvalidBodyMapsTo400(t *testing.T) {
	router := newHandlerRouter(&stubConvService{})

	req := httptest.NewRequest(http.MethodPatch, "/api/conversations/c1", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// stubUserService 满足认证中间件对 UserService 的最小需求。
type stubUserService struct {
	service.UserService
}

func TestMissingTokenMapsTo401(t *testing.T) {
	jwtManager := token.NewJWTManager("test-secret", 1, 1)
	router := gin.New()
	router.Use(middleware.AuthMiddleware(jwtManager, &stubUserService{}))
	router.GET("/api/conversations", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// 格式错误的授权头同样拒绝
	req = httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	req.Header.Set("Authorization", "Token abc")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
