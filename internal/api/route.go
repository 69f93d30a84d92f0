package api

import (
	"Harbor/internal/api/handler"
	"Harbor/internal/api/middleware"
	"Harbor/internal/pkg/logger"
	"Harbor/internal/pkg/ratelimit"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandlersGroup 路由层依赖的所有 Handler
type HandlersGroup struct {
	UserHandler         *handler.UserHandler
	ConversationHandler *handler.ConversationHandler
	MessageHandler      *handler.MessageHandler
	GroupHandler        *handler.GroupHandler
	CallHandler         *handler.CallHandler
	MediaHandler        *handler.MediaHandler
	WsHandler           *handler.WsHandler
}

func SetupRouter(group *HandlersGroup, ipLimiter *ratelimit.Limiter) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		// 健康检查与长连接升级不计入请求限流，先于限流中间件注册
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"success": true, "data": "pong"})
		})
		apiGroup.GET("/ws", group.WsHandler.Connect)

		// 其余 REST 接口统一走 IP 级固定窗口限流
		apiGroup.Use(middleware.RateLimitMiddleware(ipLimiter))

		userGroup := apiGroup.Group("/user")
		{
			userGroup.POST("/register", group.UserHandler.Register)
			userGroup.POST("/login", group.UserHandler.Login)

			authGroup := userGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("/logout", group.UserHandler.Logout)
				authGroup.GET("/me", group.UserHandler.Me)
				authGroup.GET("/blocked", group.UserHandler.ListBlocked)
				authGroup.POST("/block/:user_id", group.UserHandler.Block)
				authGroup.DELETE("/block/:user_id", group.UserHandler.Unblock)
			}
		}

		convGroup := apiGroup.Group("/conversations")
		convGroup.Use(middleware.AuthMiddleware())
		{
			convGroup.POST("/direct", group.ConversationHandler.CreateDirect)
			convGroup.POST("/group", group.ConversationHandler.CreateGroup)
			convGroup.GET("", group.ConversationHandler.List)
			convGroup.GET("/:conv_id", group.ConversationHandler.Get)
			convGroup.POST("/:conv_id/archive", group.ConversationHandler.Archive)
			convGroup.DELETE("/:conv_id/archive", group.ConversationHandler.Unarchive)
			convGroup.POST("/:conv_id/hide", group.ConversationHandler.Hide)
			convGroup.PUT("/:conv_id/mute", group.ConversationHandler.Mute)
			convGroup.POST("/:conv_id/pin", group.ConversationHandler.Pin)
			convGroup.DELETE("/:conv_id/pin", group.ConversationHandler.Unpin)
			convGroup.PUT("/:conv_id/disappearing", group.ConversationHandler.SetDisappearing)

			convGroup.GET("/:conv_id/messages", group.MessageHandler.List)
			convGroup.POST("/:conv_id/read", group.MessageHandler.MarkRead)

			// 群管理
			convGroup.POST("/:conv_id/members", group.GroupHandler.AddMembers)
			convGroup.DELETE("/:conv_id/members/:user_id", group.GroupHandler.RemoveMember)
			convGroup.POST("/:conv_id/leave", group.GroupHandler.Leave)
			convGroup.POST("/:conv_id/admins/:user_id", group.GroupHandler.PromoteAdmin)
			convGroup.DELETE("/:conv_id/admins/:user_id", group.GroupHandler.DemoteAdmin)
			convGroup.PUT("/:conv_id/info", group.GroupHandler.UpdateInfo)
			convGroup.POST("/:conv_id/invites", group.GroupHandler.CreateInvite)
			convGroup.GET("/:conv_id/invites", group.GroupHandler.ListInvites)
			convGroup.DELETE("/:conv_id/invites/:link_id", group.GroupHandler.RevokeInvite)
			convGroup.GET("/:conv_id/join-requests", group.GroupHandler.ListJoinRequests)
		}

		msgGroup := apiGroup.Group("/messages")
		msgGroup.Use(middleware.AuthMiddleware())
		{
			msgGroup.POST("", group.MessageHandler.Send)
			msgGroup.POST("/forward", group.MessageHandler.Forward)
			msgGroup.GET("/search", group.MessageHandler.Search)
			msgGroup.PUT("/:msg_id", group.MessageHandler.Edit)
			msgGroup.DELETE("/:msg_id", group.MessageHandler.Delete)
			msgGroup.POST("/:msg_id/pin", group.MessageHandler.Pin)
			msgGroup.DELETE("/:msg_id/pin", group.MessageHandler.Unpin)
			msgGroup.POST("/:msg_id/reactions", group.MessageHandler.React)
			msgGroup.DELETE("/:msg_id/reactions", group.MessageHandler.Unreact)

			msgGroup.GET("/scheduled", group.MessageHandler.ListScheduled)
			msgGroup.DELETE("/scheduled/:msg_id", group.MessageHandler.CancelScheduled)
		}

		inviteGroup := apiGroup.Group("/invites")
		inviteGroup.Use(middleware.AuthMiddleware())
		{
			inviteGroup.POST("/:token/join", group.GroupHandler.JoinByInvite)
			inviteGroup.POST("/requests/:request_id/resolve", group.GroupHandler.ResolveJoinRequest)
		}

		callGroup := apiGroup.Group("/calls")
		callGroup.Use(middleware.AuthMiddleware())
		{
			callGroup.POST("", group.CallHandler.Start)
			callGroup.POST("/:call_id/accept", group.CallHandler.Accept)
			callGroup.POST("/:call_id/reject", group.CallHandler.Reject)
			callGroup.POST("/:call_id/end", group.CallHandler.End)
			callGroup.POST("/signal", group.CallHandler.Signal)
			callGroup.GET("/history", group.CallHandler.History)
		}

		mediaGroup := apiGroup.Group("/media")
		mediaGroup.Use(middleware.AuthMiddleware())
		{
			mediaGroup.POST("/upload", group.MediaHandler.Upload)
		}
	}

	return r
}
