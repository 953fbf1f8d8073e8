package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"civicx-be/config"
	"civicx-be/controllers"
	"civicx-be/enrich"
	"civicx-be/feed"
	"civicx-be/filestore"
	"civicx-be/repository"
	"civicx-be/routes"
	"civicx-be/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found")
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	db, err := config.ConnectDB(cfg)
	if err != nil {
		logger.Error("mongodb connection failed", "error", err)
		os.Exit(1)
	}
	logger.Info("mongodb connection established", "database", cfg.MongoDBName)

	rdb, err := config.ConnectRedis(cfg)
	if err != nil {
		logger.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	files, err := filestore.New(cfg)
	if err != nil {
		logger.Error("object storage client failed", "error", err)
		os.Exit(1)
	}
	if err := files.EnsureBucket(context.Background()); err != nil {
		logger.Warn("bucket check failed, uploads may not work", "error", err)
	}

	enricher := enrich.New(cfg, logger)

	issueRepo := repository.NewIssueRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	userRepo := repository.NewUserRepository(db)
	if err := voteRepo.EnsureIndexes(); err != nil {
		logger.Error("vote index creation failed", "error", err)
		os.Exit(1)
	}

	publisher := feed.NewPublisher(rdb, cfg.FeedChannel)
	notifier := feed.NewNotifier(rdb, cfg.FeedChannel, logger)
	notifier.Register(feed.ForOfficials(), func(ev feed.Event) {
		logger.Info("feed event", "kind", ev.Kind, "issue", ev.Issue.ID.Hex())
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notifier.Start(ctx)
	defer notifier.Close()

	issueService := services.NewIssueService(issueRepo, voteRepo, userRepo, publisher, enricher, logger)
	voteService := services.NewVoteService(issueRepo, voteRepo, logger)
	leaderboard := services.NewLeaderboardService(issueRepo, voteRepo, userRepo)

	authCtrl := controllers.NewAuthController(userRepo, cfg)
	issueCtrl := controllers.NewIssueController(issueService, voteService, enricher, logger)
	fileCtrl := controllers.NewFileController(files)
	userCtrl := controllers.NewUserController(leaderboard)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	routes.AuthRoutes(r, authCtrl, cfg.JWTSecret)
	routes.IssueRoutes(r, issueCtrl, rdb, cfg)
	routes.FileRoutes(r, fileCtrl, cfg.JWTSecret)
	routes.UserRoutes(r, userCtrl)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	logger.Info("server starting", "addr", cfg.Addr)
	if err := r.Run(cfg.Addr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
