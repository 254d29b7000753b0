package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	_ "github.com/jart/sparkles/docs" // Required for Swagger
	"github.com/jart/sparkles/internal/api"
	"github.com/jart/sparkles/internal/auth"
	"github.com/jart/sparkles/internal/config"
	"github.com/jart/sparkles/internal/crypto"
	"github.com/jart/sparkles/internal/notify"
	"github.com/jart/sparkles/internal/proposal"
	"github.com/jart/sparkles/internal/ratelimit"
	"github.com/jart/sparkles/internal/signup"
	"github.com/jart/sparkles/internal/storage"
	"github.com/jart/sparkles/internal/verify"
	"github.com/jart/sparkles/internal/workgroup"
)

// @title           Sparkles API
// @version         1.0
// @description     API for workgroup proposal voting with verified signup

// @BasePath  /

// @securityDefinitions.apikey  BearerAuth
// @in                         header
// @name                       Authorization
func main() {

	gin.SetMode(gin.ReleaseMode)

	f, _ := os.Create("gin.log")
	gin.DefaultWriter = io.MultiWriter(f, os.Stdout)

	// Load configuration from .env
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using system environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT with config
	auth.InitJWT(cfg)

	// Create database configuration
	dbConfig := storage.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
	}

	// Create database if it doesn't exist
	rootDb, err := storage.NewDB(storage.Config{
		Host:     dbConfig.Host,
		Port:     dbConfig.Port,
		User:     dbConfig.User,
		Password: dbConfig.Password,
		DBName:   "",
	})
	if err != nil {
		log.Fatalf("Failed to connect to MySQL: %v", err)
	}

	_, err = rootDb.Exec("CREATE DATABASE IF NOT EXISTS " + dbConfig.DBName)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	rootDb.Close()

	// Connect to the application database
	db, err := storage.NewDB(dbConfig)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(db, "migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	rateLimiter, err := ratelimit.NewRateLimiter(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Failed to initialize rate limiter: %v", err)
	}
	defer rateLimiter.Close()

	// Notification transports; development keeps them disabled but
	// still records every attempt
	var emailSender notify.EmailSender = notify.DisabledEmailSender{}
	var smsSender notify.SmsSender = notify.DisabledSmsSender{}
	var xmppSender notify.XmppSender = notify.DisabledXmppSender{}
	if cfg.Notify.Enabled {
		emailSender, err = notify.NewSMTPSender(
			cfg.Notify.SMTPHost, cfg.Notify.SMTPPort,
			cfg.Notify.SMTPUser, cfg.Notify.SMTPPass, cfg.Notify.EmailFrom)
		if err != nil {
			log.Fatalf("Failed to initialize SMTP: %v", err)
		}
		smsSender = notify.NewTwilioSender(cfg.Notify.TwilioSID, cfg.Notify.TwilioToken)
		xmppSender = notify.NewXmppClient(
			cfg.Notify.XmppJID, cfg.Notify.XmppServer, cfg.Notify.XmppPassword)
	}
	gateway := notify.NewGateway(db, emailSender, smsSender, xmppSender, notify.GatewayConfig{
		EmailFrom: cfg.Notify.EmailFrom,
		SmsFrom:   cfg.Notify.TwilioFrom,
		XmppFrom:  cfg.Notify.XmppJID,
	})

	codes := crypto.NewCodeGenerator(nil)
	verifier := verify.NewService(db, gateway, codes, cfg.Verify, nil)
	sessions := signup.NewSessionStore(rateLimiter.Client())

	svc := api.Services{
		Verifier:   verifier,
		Signups:    signup.NewService(db, verifier, sessions),
		Proposals:  proposal.NewService(db, codes),
		Workgroups: workgroup.NewService(db),
	}

	// Set up and start the server
	router := api.SetupRouter(db, rateLimiter, svc)

	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	if cfg.Env == "development" {
		log.Printf("Server starting on http://localhost%s", serverAddr)
		log.Printf("Swagger UI available at http://localhost%s/swagger/index.html", serverAddr)
	}

	if err := router.Run(serverAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
