package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	handlers "LinguaTutor/internal/handler"
	"LinguaTutor/internal/identity"
	"LinguaTutor/internal/listeners"
	"LinguaTutor/internal/models"
	"LinguaTutor/internal/session"
	"LinguaTutor/pkg/cache"
	"LinguaTutor/pkg/config"
	"LinguaTutor/pkg/i18n"
	"LinguaTutor/pkg/logger"
	"LinguaTutor/pkg/metrics"
	"LinguaTutor/pkg/notification"
	"LinguaTutor/pkg/scheduler"
	"LinguaTutor/pkg/sse"
	"LinguaTutor/pkg/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tutorcli:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.Load(); err != nil {
		return err
	}
	cfg := config.GlobalConfig

	if err := logger.Init(cfg.Log); err != nil {
		return err
	}
	defer logger.Sync()

	metrics.SetGlobal(metrics.NewMetrics())

	i18nSupport, err := i18n.NewI18nSupport(cfg.Locale)
	if err != nil {
		return err
	}

	store, err := cache.NewCache(cache.Config{
		Type: cfg.CacheType,
		Redis: cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		Local: cache.DefaultLocalConfig(),
	})
	if err != nil {
		return err
	}
	defer store.Close()

	profile, err := identity.NewFileStore(cfg.IdentityFile).Load()
	if err != nil {
		return err
	}
	logger.Info("已加载学生档案",
		zap.String("user", profile.DisplayName), zap.String("school", profile.SchoolCategory))

	mode := models.ModeFromSlug(cfg.Mode)
	if mode == "" {
		return fmt.Errorf("unknown learning mode %q", cfg.Mode)
	}

	wsCfg := transport.DefaultConfig()
	wsCfg.LoadFromEnv()
	if err := wsCfg.Validate(); err != nil {
		return err
	}
	client := transport.NewClient(wsURL(cfg.ServerURL), wsCfg)

	toasts := notification.NewChannelToaster(32)
	defer toasts.Close()
	go printToasts(toasts)

	ctrl, err := session.NewController(session.Options{
		TopicID:       topicID(),
		Mode:          mode,
		Profile:       profile,
		Transport:     client,
		Toaster:       notification.Multi{notification.LogToaster{}, toasts},
		I18n:          i18nSupport,
		Navigator:     consoleNavigator{},
		Cache:         store,
		IdleTimeout:   cfg.IdleTimeout,
		NudgeTimeout:  cfg.NudgeTimeout,
		SendRateLimit: cfg.SendRateLimit,
	})
	if err != nil {
		return err
	}
	listeners.InitBadgeListeners()

	ctrl.OnPrompt(func(k session.PromptKind) {
		go printPrompt(k)
	})

	// 每日限额在午夜重置
	cr := scheduler.NewCron(time.Local)
	cr.AddDailyMidnight(func(ctx context.Context) { ctrl.ResetDailyLimit() })
	cr.Start()
	defer cr.Stop()

	// 定期向服务端拉取剩余时长，断线时静默失败
	sch := scheduler.New()
	sch.Every(time.Minute, scheduler.FuncJob(func(context.Context) {
		ctrl.RequestStatus()
	}))
	defer sch.Stop()

	// 本地统计面板
	hub := sse.NewHub(30 * time.Second)
	ctrl.OnChange(func() {
		go func() { hub.Broadcast("state", ctrl.State()) }()
	})
	if cfg.StatsAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		engine := gin.New()
		engine.Use(gin.Recovery())
		handlers.NewHandlers(ctrl, profile, hub).Register(engine)
		go func() {
			if err := engine.Run(cfg.StatsAddr); err != nil {
				logger.Error("统计面板启动失败", zap.Error(err))
			}
		}()
	}

	ctx := context.Background()
	if err := ctrl.Open(ctx); err != nil {
		return err
	}
	fmt.Printf("Connected as %s (%s mode). Type a message, or /help.\n", profile.DisplayName, mode)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		ctrl.LeaveSession()
		os.Exit(0)
	}()

	return repl(ctx, ctrl)
}

// repl 逐行读取学生输入
func repl(ctx context.Context, ctrl *session.Controller) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			ctrl.LeaveSession()
			return nil
		case line == "/help":
			fmt.Println("/reset /status /listen /advance /answer <n> /quit")
		case line == "/reset":
			report(ctrl.ResetChat())
		case line == "/status":
			report(ctrl.RequestStatus())
		case line == "/listen":
			report(ctrl.StartListeningMode())
		case line == "/advance":
			report(ctrl.AdvanceStage())
		case strings.HasPrefix(line, "/answer "):
			n, err := strconv.Atoi(strings.TrimPrefix(line, "/answer "))
			if err != nil {
				fmt.Println("usage: /answer <option number>")
				continue
			}
			report(ctrl.AnswerQuiz(n))
		case line == "/still-here":
			report(ctrl.StillHere(ctx))
		default:
			report(ctrl.SendText(line))
		}
	}
	ctrl.LeaveSession()
	return scanner.Err()
}

func report(err error) {
	if err != nil {
		fmt.Println("!", err)
	}
}

// printToasts 把提示打到终端
func printToasts(t *notification.ChannelToaster) {
	for toast := range t.C() {
		fmt.Printf("[%s] %s\n", toast.Level, toast.Message)
	}
}

func printPrompt(k session.PromptKind) {
	switch k {
	case session.PromptInactivity:
		fmt.Println("? Are you still there? Type /still-here to continue.")
	case session.PromptConnectionLost:
		fmt.Println("? Connection lost. Type /still-here to reconnect.")
	case session.PromptSessionEnded:
		fmt.Println("* This session is complete. Great work!")
	case session.PromptReplayHint:
		fmt.Println("? Not quite - replay the audio for a hint.")
	case session.PromptQuizComplete:
		fmt.Println("* Quiz finished! Answers submitted.")
	}
}

// wsURL 把 http(s) 地址改写为 ws(s)
func wsURL(raw string) string {
	switch {
	case strings.HasPrefix(raw, "https://"):
		return "wss://" + strings.TrimPrefix(raw, "https://")
	case strings.HasPrefix(raw, "http://"):
		return "ws://" + strings.TrimPrefix(raw, "http://")
	default:
		return raw
	}
}

// topicID 话题来自环境变量，便于同一学生切换话题
func topicID() string {
	if v := os.Getenv("TUTOR_TOPIC_ID"); v != "" {
		return v
	}
	return "default-topic"
}

// consoleNavigator 终端里的页面跳转
type consoleNavigator struct{}

func (consoleNavigator) GoBack() {
	fmt.Println("Returning to mode selection.")
}

func (consoleNavigator) RedirectToLogin() {
	fmt.Println("Your session expired. Please sign in again.")
}
