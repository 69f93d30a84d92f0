package wire

import (
	"Harbor/internal/api"
	"Harbor/internal/api/config"
	"Harbor/internal/api/handler"
	"Harbor/internal/job"
	"Harbor/internal/pkg/cron"
	"Harbor/internal/pkg/es"
	"Harbor/internal/pkg/kafka"
	hmongo "Harbor/internal/pkg/mongo"
	"Harbor/internal/pkg/push"
	"Harbor/internal/pkg/ratelimit"
	"Harbor/internal/repository"
	"Harbor/internal/service"
	"Harbor/internal/ws"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router  *gin.Engine
	DB      *gorm.DB
	Hub     *ws.Hub
	CronMgr *cron.Manager
	Events  kafka.EventProducer
}

func BuildApplication(db *gorm.DB, mongoDB *mongo.Database, cfg *config.Config) (*ApplicationContainer, error) {
	userRepo := repository.NewUserRepo(db)
	blockedRepo := repository.NewBlockedUserRepo(db)

	convRepo := hmongo.NewConversationRepo(mongoDB)
	msgRepo := hmongo.NewMessageRepo(mongoDB)
	schedRepo := hmongo.NewScheduledMessageRepo(mongoDB)
	inviteRepo := hmongo.NewInviteRepo(mongoDB)
	callRepo := hmongo.NewCallLogRepo(mongoDB)
	searchRepo := es.NewMessageSearchRepo(es.Client)

	producer, err := kafka.NewEventProducer(cfg)
	if err != nil {
		return nil, err
	}
	notifier := push.NewNotifier(cfg)

	broadcaster := service.NewRoomBroadcaster()
	presenceSvc := service.NewPresenceService(convRepo, broadcaster)

	userSvc := service.NewUserService(userRepo, blockedRepo)
	convSvc := service.NewConversationService(convRepo, userRepo, blockedRepo, broadcaster)
	msgSvc := service.NewMessageService(msgRepo, convRepo, schedRepo, blockedRepo, searchRepo,
		convSvc, presenceSvc, broadcaster, producer, notifier)
	groupSvc := service.NewGroupService(convRepo, msgRepo, inviteRepo, userRepo, convSvc, broadcaster)
	callSvc := service.NewCallService(callRepo, convSvc, broadcaster)
	mediaSvc := service.NewMediaService()

	// 每 IP 15 分钟 100 次请求，每连接 60 秒 30 条消息
	ipLimiter := ratelimit.NewLimiter(100, 15*time.Minute)
	connLimiter := ratelimit.NewLimiter(30, time.Minute)

	hub := ws.NewHub()
	wsRouter := ws.NewRouter(msgSvc, convSvc, callSvc, connLimiter)

	handlers := &api.HandlersGroup{
		UserHandler:         handler.NewUserHandler(userSvc),
		ConversationHandler: handler.NewConversationHandler(convSvc),
		MessageHandler:      handler.NewMessageHandler(msgSvc),
		GroupHandler:        handler.NewGroupHandler(groupSvc),
		CallHandler:         handler.NewCallHandler(callSvc),
		MediaHandler:        handler.NewMediaHandler(mediaSvc),
		WsHandler:           handler.NewWsHandler(hub, wsRouter, convRepo, presenceSvc),
	}

	router := api.SetupRouter(handlers, ipLimiter)

	cronMgr := cron.NewCronManager(
		job.NewScheduledMessageJob(msgSvc),
		job.NewDisappearingMessageJob(msgSvc),
		job.NewRateLimitSweepJob(ipLimiter, connLimiter),
	)

	return &ApplicationContainer{
		Router:  router,
		DB:      db,
		Hub:     hub,
		CronMgr: cronMgr,
		Events:  producer,
	}, nil
}
