package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"webknight/app/server/apidocs"
	"webknight/app/server/constants"
	"webknight/app/server/handlers"
	"webknight/app/server/inits"
	"webknight/app/server/jwt"
	"webknight/app/server/middlewares"
	"webknight/app/server/stores"
)

func main() {
	// 初始化配置
	cfg, err := inits.Config()
	if err != nil {
		log.Fatal(fmt.Errorf("error loading config: %w", err))
	}

	// 初始化日志
	l, err := inits.Logger(!cfg.IsProd(), "server")
	if err != nil {
		log.Fatal(fmt.Errorf("error initializing logger: %w", err))
	}
	defer l.Sync()

	// 切换日志系统
	l.Debug("logger initialized")

	// 初始化数据库连接
	db, err := inits.DB(cfg.System.DBConnectionString)
	if err != nil {
		l.Fatal("error initializing DB connection", zap.Error(err))
	}

	// 初始化 redis 连接
	rdb, err := inits.Redis(cfg.System.RedisConnectionString)
	if err != nil {
		l.Fatal("error initializing Redis connection", zap.Error(err))
	}

	// 初始化 JWT
	j, err := jwt.New(cfg.Security.SignatureSecretKey)
	if err != nil {
		l.Fatal("error initializing JWT", zap.Error(err))
	}

	// 初始化登录限流
	rate, err := limiter.NewRateFromFormatted(cfg.Security.SignInRate)
	if err != nil {
		l.Fatal("error parsing sign in rate", zap.String("rate", cfg.Security.SignInRate), zap.Error(err))
	}
	limiterStore, err := sredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
		Prefix: constants.CacheKeyLimiterPrefix,
	})
	if err != nil {
		l.Fatal("error initializing rate limiter store", zap.Error(err))
	}

	s := handlers.Stores{
		Users:    stores.NewGormUsers(db),
		Roles:    stores.NewGormRoles(db),
		Objects:  stores.NewGormObjects(db),
		Sessions: stores.NewRedisSessions(rdb),
	}

	// 初始化管理员
	if created, err := inits.BootstrapAdmin(context.Background(), cfg, s.Users, s.Roles); err != nil {
		l.Fatal("error bootstrapping admin", zap.Error(err))
	} else if created {
		l.Info("admin user bootstrapped", zap.String("email", cfg.Bootstrap.AdminEmail))
	}

	pinger := handlers.PingerFunc(func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("get sql db: %w", err)
		}
		if err = sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		if err = rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		return nil
	})

	// 准备 handler app
	handlerApp := handlers.NewApp(l, s, limiter.New(limiterStore, rate), j, cfg.Security.EncryptSecretKey, pinger, handlers.Options{
		PublicURL:       cfg.System.PublicURL,
		DefaultBucket:   cfg.Storage.DefaultBucket,
		SessionDuration: cfg.Security.SessionDuration,
		MaxUploadSize:   cfg.Storage.MaxUploadSize,
	})

	// 准备 echo 服务
	e := echo.New()
	e.HideBanner = true
	e.Validator = middlewares.NewValidator()
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			l.Info("request",
				zap.String("method", v.Method),
				zap.String("URI", v.URI),
				zap.Int("status", v.Status),
			)

			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dB", cfg.Storage.MaxUploadSize+1<<20)))

	// 添加 API 文档
	if !cfg.IsProd() {
		if doc, err := apidocs.Doc(context.Background(), "/api", apidocs.WithServerURL(cfg.System.PublicURL)); err != nil {
			l.Error("error initializing api docs", zap.Error(err))
		} else {
			e.Pre(doc)
		}
	}

	// 绑定 echo 服务
	handlerApp.RegisterHandlers(e)

	// 启动 echo 服务
	go func() {
		if err := e.Start(cfg.System.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		l.Error("error shutting down the server", zap.Error(err))
	}
	_ = rdb.Close()
}
