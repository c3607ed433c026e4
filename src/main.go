package main

import (
	"errors"
	"hbs/src/boot"
	"hbs/src/config"
	"hbs/src/lib"
	"hbs/src/lib/fonepay"
	"hbs/src/lib/mailer"
	"hbs/src/middlewares"
	"hbs/src/payments"
	"hbs/src/store"
	"hbs/src/types"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const (
	apiPrefix string = "/api/v1"
)

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func maintenanceModeMiddleware(g *gin.Engine) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		mm := os.Getenv("MAINTENANCE_MODE")
		on, err := strconv.ParseBool(mm)
		if mm != "" && (err != nil || on) {
			err := errors.New("server is under maintenance")
			log.Println(err.Error())
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, err.Error())
			return
		}
	})
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

func registerRoutes(router *gin.Engine, orch *payments.Orchestrator) {
	fonepayCallbackRoute(router, orch)

	authorized := apiv1Group(router)
	authorized.Use(middlewares.AuthMiddleware)
	bookingHandlers(authorized, orch)

	admin := authorized.Group("")
	admin.Use(middlewares.AdminOnly)
	adminHandlers(admin, orch)
}

func newOrchestrator(stores store.Stores) *payments.Orchestrator {
	client := fonepay.NewClient(config.LoadFonePay(), nil)
	opts := []payments.Option{}

	if rdb := lib.GetRedisClient(); rdb != nil {
		opts = append(opts, payments.WithReplayGuard(lib.NewCallbackReplayGuard(rdb, lib.CALLBACK_REPLAY_TTL)))
	}
	notifiers := payments.MultiNotifier{}
	if os.Getenv("SMTP_HOST") != "" {
		notifiers = append(notifiers, mailer.NewBookingNotifier(lib.SendMail))
	}
	if os.Getenv("AWS_REGION") != "" {
		if sqsClient := lib.AWSGetSQSClient(); sqsClient != nil {
			notifiers = append(notifiers, lib.NewPaymentUpdatePublisher(sqsClient, config.PaymentUpdatesQueue()))
		}
	}
	if len(notifiers) > 0 {
		opts = append(opts, payments.WithNotifier(notifiers))
	}

	return payments.New(stores, client, client.Signer(), payments.NewPolicy(config.AutoConfirmMethods()), opts...)
}

func initLogger() {
	cwd, _ := os.Getwd()
	logsDir := path.Join(cwd, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		log.Printf("Error creating logs directory: %s\n", err.Error())
		return
	}
	serverLogs := path.Join(logsDir, "server.log")
	apiLogs := path.Join(logsDir, "api.log")
	gin.ForceConsoleColor()

	f, _ := os.Create(apiLogs)
	gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	log.SetOutput(&lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	})
}

func main() {
	apiEnv := types.APIEnv(os.Getenv("API_ENV"))
	if apiEnv == types.Local {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			panic(err)
		}
	}
	initLogger()

	stores := boot.InitStores()
	boot.InitScheduler(stores)
	defer boot.StopScheduler()

	orch := newOrchestrator(stores)

	router := setupRouter()

	appHost := os.Getenv("APP_HOST")
	if apiEnv == types.Local {
		router.Use(cors.Default())
	} else {
		cc := cors.DefaultConfig()
		cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PUT", "HEAD")
		cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization")
		cc.AllowOriginFunc = func(origin string) bool {
			if appHost == "" {
				return false
			}
			match, _ := regexp.MatchString(appHost, origin)
			return match || strings.EqualFold(origin, os.Getenv("FRONTEND_URL"))
		}
		cc.AllowCredentials = true
		cc.AllowAllOrigins = false
		router.Use(cors.New(cc))
	}

	registerValidators()

	router = maintenanceModeMiddleware(router)

	registerRoutes(router, orch)

	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %s", err)
	}
}
