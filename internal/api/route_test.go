package api

import (
	"Harbor/internal/api/config"
	"Harbor/internal/api/handler"
	"Harbor/internal/pkg/ratelimit"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	// 生产环境由 LoadConfig 初始化全局配置，测试中需手动注入
	config.Cfg = &config.Config{}
	os.Exit(m.Run())
}

func newTestRouter(limit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return SetupRouter(&HandlersGroup{
		UserHandler:         &handler.UserHandler{},
		ConversationHandler: &handler.ConversationHandler{},
		MessageHandler:      &handler.MessageHandler{},
		GroupHandler:        &handler.GroupHandler{},
		CallHandler:         &handler.CallHandler{},
		MediaHandler:        &handler.MediaHandler{},
		WsHandler:           &handler.WsHandler{},
	}, ratelimit.NewLimiter(limit, time.Minute))
}

func doGet(r *gin.Engine, path string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.1:5000"
	r.ServeHTTP(w, req)
	return w.Code
}

// REST 面整体受 IP 限流约束，不限于发送类接口
func TestRateLimitCoversRestSurface(t *testing.T) {
	r := newTestRouter(3)

	// 未带 token 时限流先于鉴权生效
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, doGet(r, "/api/conversations"))
	}
	assert.Equal(t, http.StatusTooManyRequests, doGet(r, "/api/conversations"))
	// 非消息类接口同样计入
	assert.Equal(t, http.StatusTooManyRequests, doGet(r, "/api/calls/history"))
}

func TestPingExemptFromRateLimit(t *testing.T) {
	r := newTestRouter(2)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doGet(r, "/api/ping"))
	}
}
