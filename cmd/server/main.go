package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"classquiz/internal/attempt"
	"classquiz/internal/auth"
	"classquiz/internal/group"
	"classquiz/internal/models"
	"classquiz/internal/quiz"
	"classquiz/pkg/cache"
	"classquiz/pkg/database"
	"classquiz/pkg/realtime"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	dbConfig := &database.Config{
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   os.Getenv("DB_NAME"),
	}

	db, err := database.NewPostgresDB(dbConfig)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Quiz{},
		&models.Question{},
		&models.Option{},
		&models.Group{},
		&models.Assignment{},
		&models.Attempt{},
		&models.AttemptAnswer{},
	)
	if err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	redisCache := cache.NewRedisCache(os.Getenv("REDIS_ADDR"))

	hub := realtime.NewHub(logger)
	go hub.Run()

	jwtSecret := os.Getenv("JWT_SECRET")

	authRepo := auth.NewRepository(db)
	authService := auth.NewService(authRepo, jwtSecret)
	authHandler := auth.NewHandler(authService, logger)

	quizRepo := quiz.NewRepository(db)
	quizService := quiz.NewService(quizRepo, redisCache, logger)
	quizHandler := quiz.NewHandler(quizService, logger)

	groupRepo := group.NewRepository(db)
	groupService := group.NewService(groupRepo, redisCache, logger)
	groupHandler := group.NewHandler(groupService, logger)

	attemptRepo := attempt.NewRepository(db)
	attemptService := attempt.NewService(attemptRepo, hub, redisCache, logger)
	attemptHandler := attempt.NewHandler(attemptService, logger)

	// The results feed authenticates from a query parameter because browsers
	// cannot set headers on websocket upgrades.
	hub.SetAuthorizer(func(r *http.Request, quizID uint) error {
		identity, err := authService.ParseToken(r.URL.Query().Get("token"))
		if err != nil {
			return err
		}
		return quizService.VerifyOwnership(r.Context(), identity.UserID, quizID)
	})

	router := mux.NewRouter()

	corsOrigin := os.Getenv("CORS_ORIGIN")
	if corsOrigin == "" {
		corsOrigin = "http://localhost:3000"
	}
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	handler := corsMiddleware.Handler(router)

	// Auth routes - no JWT required
	router.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(auth.JWTMiddleware(jwtSecret))

	// Teacher-only routes
	teacherRouter := apiRouter.NewRoute().Subrouter()
	teacherRouter.Use(auth.RequireRole(models.RoleTeacher))
	teacherRouter.HandleFunc("/quizzes", quizHandler.Create).Methods("POST", "OPTIONS")
	teacherRouter.HandleFunc("/quizzes", quizHandler.ListMine).Methods("GET")
	teacherRouter.HandleFunc("/quizzes/{quizID}", quizHandler.Get).Methods("GET", "OPTIONS")
	teacherRouter.HandleFunc("/quizzes/{quizID}", quizHandler.Update).Methods("PUT")
	teacherRouter.HandleFunc("/quizzes/{quizID}", quizHandler.Delete).Methods("DELETE")
	teacherRouter.HandleFunc("/quizzes/{quizID}/status", quizHandler.AdvanceStatus).Methods("POST", "OPTIONS")
	teacherRouter.HandleFunc("/groups", groupHandler.Create).Methods("POST", "OPTIONS")
	teacherRouter.HandleFunc("/groups/{groupID:[0-9]+}", groupHandler.Delete).Methods("DELETE")
	teacherRouter.HandleFunc("/groups/{groupID:[0-9]+}/members/{studentID}", groupHandler.RemoveMember).Methods("DELETE")
	teacherRouter.HandleFunc("/groups/{groupID:[0-9]+}/assignments", groupHandler.AssignQuiz).Methods("POST", "OPTIONS")
	teacherRouter.HandleFunc("/groups/{groupID:[0-9]+}/assignments", groupHandler.Assignments).Methods("GET")
	teacherRouter.HandleFunc("/groups/{groupID:[0-9]+}/grades", groupHandler.Grades).Methods("GET")

	// Routes for any authenticated user
	apiRouter.HandleFunc("/profile", authHandler.Profile).Methods("GET")
	apiRouter.HandleFunc("/profile", authHandler.UpdateProfile).Methods("PUT", "OPTIONS")
	apiRouter.HandleFunc("/groups", groupHandler.List).Methods("GET")
	apiRouter.HandleFunc("/groups/lookup", groupHandler.Lookup).Methods("GET")
	apiRouter.HandleFunc("/groups/{groupID:[0-9]+}", groupHandler.Get).Methods("GET", "OPTIONS")
	apiRouter.HandleFunc("/attempts/{attemptID}", attemptHandler.GetReview).Methods("GET", "OPTIONS")

	// Student-only routes
	studentRouter := apiRouter.NewRoute().Subrouter()
	studentRouter.Use(auth.RequireRole(models.RoleStudent))
	studentRouter.HandleFunc("/groups/join", groupHandler.Join).Methods("POST", "OPTIONS")
	studentRouter.HandleFunc("/student/quizzes", attemptHandler.ListAvailable).Methods("GET")
	studentRouter.HandleFunc("/student/quizzes/{assignmentID}", attemptHandler.GetPresentation).Methods("GET", "OPTIONS")
	studentRouter.HandleFunc("/student/quizzes/{assignmentID}/attempts", attemptHandler.Submit).Methods("POST", "OPTIONS")
	studentRouter.HandleFunc("/grades", attemptHandler.MyGrades).Methods("GET")

	// WebSocket endpoint
	router.HandleFunc("/ws/quizzes/{quizID}/results", hub.HandleResults)

	rand.Seed(time.Now().UnixNano())

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("forced shutdown", zap.Error(err))
	}
	logger.Info("server shutdown gracefully")
}
