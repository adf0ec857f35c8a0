package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/viper"

	_ "github.com/jackc/pgx/v5/stdlib"

	"dreampool/internal/engine"
	"dreampool/internal/handlers"
	"dreampool/internal/middleware"
	"dreampool/internal/repository/postgres"
	ws "dreampool/internal/websocket"
)

// This struct will hold our loaded configuration
type Config struct {
	DSN        string `mapstructure:"DSN"`
	JWT_SECRET string `mapstructure:"JWT_SECRET"`
	ADDR       string `mapstructure:"ADDR"`

	// Allocation schedule, percentages summing to 100.
	WINNER_PERCENT      float64 `mapstructure:"WINNER_PERCENT"`
	CHARITY_PERCENT     float64 `mapstructure:"CHARITY_PERCENT"`
	COMMISSION_PERCENT  float64 `mapstructure:"COMMISSION_PERCENT"`
	SHARE_BONUS_PERCENT float64 `mapstructure:"SHARE_BONUS_PERCENT"`
	PLATFORM_PERCENT    float64 `mapstructure:"PLATFORM_PERCENT"`

	LOCK_WAIT_MS     int `mapstructure:"LOCK_WAIT_MS"`
	TICK_INTERVAL_MS int `mapstructure:"TICK_INTERVAL_MS"`
}

// Function loads the config.env file from the root folder
func loadConfig() (config Config, err error) {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("ADDR", ":8080")
	viper.SetDefault("WINNER_PERCENT", 90.0)
	viper.SetDefault("CHARITY_PERCENT", 5.0)
	viper.SetDefault("COMMISSION_PERCENT", 1.0)
	viper.SetDefault("SHARE_BONUS_PERCENT", 3.0)
	viper.SetDefault("PLATFORM_PERCENT", 1.0)
	viper.SetDefault("LOCK_WAIT_MS", 3000)
	viper.SetDefault("TICK_INTERVAL_MS", 30000)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}

func main() {
	log.Println("Starting dreampool server...")

	// Load Configuration
	config, err := loadConfig()
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	// Connect to the Database
	db, err := sqlx.Connect("pgx", config.DSN)
	if err != nil {
		log.Fatal("cannot connect to database:", err)
	}
	defer db.Close()
	log.Println("Successfully connected to PostgreSQL!")

	// Campaign engine wiring: repository, clock, allocation schedule,
	// seedable randomness, per-campaign lock timeout.
	repo := postgres.NewRepository(db)
	clock := engine.SystemClock{}
	schedule, err := engine.NewSchedule(
		config.WINNER_PERCENT,
		config.CHARITY_PERCENT,
		config.COMMISSION_PERCENT,
		config.SHARE_BONUS_PERCENT,
		config.PLATFORM_PERCENT,
	)
	if err != nil {
		log.Fatal("invalid allocation schedule:", err)
	}
	// The seed is logged so any draw can be replayed for audit.
	drawSeed := time.Now().UnixNano()
	log.Println("Draw randomness seed:", drawSeed)
	randSource := engine.NewSeededSource(drawSeed)
	eng, err := engine.New(repo, clock, schedule, randSource,
		time.Duration(config.LOCK_WAIT_MS)*time.Millisecond)
	if err != nil {
		log.Fatal("cannot build engine:", err)
	}

	// Start the WebSocket Hub
	hub := ws.NewHub()
	go hub.Run()

	// Deadline sweeper: the engine has no clock of its own, so we
	// tick every open campaign on a coarse interval.
	go runTicker(eng, repo, time.Duration(config.TICK_INTERVAL_MS)*time.Millisecond)

	// Set up our Gin router
	r := gin.Default()
	r.Use(cors.Default())

	// Simple test route
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Create an instance of each handler
	authHandler := handlers.NewAuthHandler(db, config.JWT_SECRET)
	campaignHandler := handlers.NewCampaignHandler(eng, repo, clock)
	contributionHandler := handlers.NewContributionHandler(db, eng, hub)
	drawHandler := handlers.NewDrawHandler(eng, repo, hub)
	profileHandler := handlers.NewProfileHandler(db)
	wsHandler := handlers.NewWebSocketHandler(repo, hub)

	// All API routes under /api
	api := r.Group("/api")
	{
		// Auth Endpoint
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Public campaign surface
		api.GET("/campaigns", campaignHandler.ListCampaigns)
		api.GET("/campaigns/:id", campaignHandler.GetCampaign)
		api.POST("/campaigns/:id/tick", drawHandler.Tick)

		// Protected Endpoint
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(config.JWT_SECRET))
		{
			protected.GET("/me", profileHandler.GetMyProfile)
			protected.GET("/me/contributions", contributionHandler.GetMyContributions)
			protected.POST("/campaigns", campaignHandler.CreateCampaign)
			protected.POST("/campaigns/:id/join", contributionHandler.JoinCampaign)
			protected.POST("/campaigns/:id/draw", drawHandler.Draw)
			protected.POST("/campaigns/:id/complete", drawHandler.Complete)
		}
	}

	// WebSocket event stream per campaign
	r.GET("/ws/campaigns/:id", wsHandler.ServeWs)

	// Start the server
	log.Println("Server starting on", config.ADDR)
	if err := r.Run(config.ADDR); err != nil {
		log.Fatal("could not start server:", err)
	}
}

// runTicker sweeps open campaigns so under-funded ones fail at their
// deadline even if nobody is polling them.
func runTicker(eng *engine.Engine, repo engine.Repository, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		campaigns, err := repo.ListOpen(ctx)
		if err != nil {
			log.Println("Deadline sweep failed to list campaigns:", err)
			cancel()
			continue
		}
		for _, campaign := range campaigns {
			if _, err := eng.Tick(ctx, campaign.ID); err != nil {
				log.Println("Tick failed for campaign", campaign.ID+":", err)
			}
		}
		cancel()
	}
}
