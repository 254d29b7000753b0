package api

import (
	"database/sql"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/jart/sparkles/internal/api/handlers"
	"github.com/jart/sparkles/internal/api/middleware"
	"github.com/jart/sparkles/internal/proposal"
	"github.com/jart/sparkles/internal/ratelimit"
	"github.com/jart/sparkles/internal/signup"
	"github.com/jart/sparkles/internal/verify"
	"github.com/jart/sparkles/internal/workgroup"
)

type Services struct {
	Verifier   *verify.Service
	Signups    *signup.Service
	Proposals  *proposal.Service
	Workgroups *workgroup.Service
}

func SetupRouter(db *sql.DB, rl *ratelimit.RateLimiter, svc Services) *gin.Engine {
	router := gin.Default()
	h := handlers.NewHandler(db, svc.Verifier, svc.Signups, svc.Proposals, svc.Workgroups)

	router.Use(middleware.RealIPMiddleware(), middleware.NeverCacheMiddleware())

	router.GET("/", h.Home)

	//Swagger Route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Verification-code issuance (tighter limit than the rest of auth)
	verifyGroup := router.Group("/auth/verify")
	verifyGroup.Use(middleware.VerifyRateLimit(rl))
	{
		verifyGroup.POST("/email", h.VerifyEmail)
		verifyGroup.POST("/phone", h.VerifyPhone)
		verifyGroup.POST("/xmpp", h.VerifyXmpp)
	}

	// Auth routes
	authGroup := router.Group("/auth")
	authGroup.Use(middleware.AuthRateLimit(rl))
	{
		authGroup.POST("/signup", h.SignupBegin)
		authGroup.POST("/signup/confirm", h.SignupConfirm)
		authGroup.POST("/login", h.Login)
	}

	// Protected routes
	apiGroup := router.Group("/api")
	apiGroup.Use(middleware.AuthMiddleware())
	{
		apiGroup.POST("/workgroup", h.CreateWorkgroup)
		apiGroup.GET("/workgroup/:name", h.GetWorkgroup)
		apiGroup.POST("/workgroup/:name/join", h.JoinWorkgroup)

		apiGroup.POST("/proposal", h.CreateProposal)
		apiGroup.GET("/proposal/:sid", h.GetProposal)
		apiGroup.POST("/proposal/:sid/text", h.AddProposalText)
		apiGroup.POST("/proposal/:sid/chat", h.AddProposalChat)
		apiGroup.POST("/proposal/:sid/vote", h.Vote)
		apiGroup.POST("/proposal/:sid/invite", h.Invite)
	}

	return router
}
