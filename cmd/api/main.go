package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"splitchain/internal/adapter/api"
	"splitchain/internal/adapter/api/handler"
	apimiddleware "splitchain/internal/adapter/api/middleware"
	"splitchain/internal/adapter/api/router"
	"splitchain/internal/adapter/repository"
	domainrepo "splitchain/internal/domain/repository"
	"splitchain/internal/domain/service"
	"splitchain/internal/infrastructure/bridge"
	"splitchain/internal/infrastructure/clearnode"
	"splitchain/internal/infrastructure/ens"
	"splitchain/internal/infrastructure/firebase"
	"splitchain/internal/usecase"
	"splitchain/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	// Storage backend is chosen once, here. A configured Firebase project
	// selects the realtime document store; anything else runs on the local
	// file fallback so the server works without any cloud credentials.
	var groupRepo domainrepo.GroupRepository
	var verifier apimiddleware.TokenVerifier
	storeBackend := "local"

	if cfg.UseRemoteStore() {
		var opt option.ClientOption

		serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON")
		if serviceAccountJSON != "" {
			log.Printf("Using Firebase service account from environment variable")
			opt = option.WithCredentialsJSON([]byte(serviceAccountJSON))
		} else {
			serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")
			if serviceAccountPath == "" {
				serviceAccountPath = "./serviceAccount.json"
			}

			if _, err := os.Stat(serviceAccountPath); os.IsNotExist(err) {
				log.Fatalf("Service account file does not exist: %s", serviceAccountPath)
			}

			log.Printf("Using Firebase service account from file: %s", serviceAccountPath)
			opt = option.WithCredentialsFile(serviceAccountPath)
		}

		firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}

		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase Auth: %v", err)
		}
		verifier = firebase.NewFirebaseAuthClient(authClient)

		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
		if err != nil {
			log.Fatalf("Failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()

		groupRepo = repository.NewFirestoreGroupRepository(firestoreClient)
		storeBackend = "remote"
	} else {
		log.Printf("No Firebase project configured, using local store at %s", cfg.LocalStorePath)

		if err := os.MkdirAll(filepath.Dir(cfg.LocalStorePath), 0o755); err != nil {
			log.Fatalf("Failed to create local store directory: %v", err)
		}

		localRepo, err := repository.NewLocalGroupRepository(cfg.LocalStorePath)
		if err != nil {
			log.Fatalf("Failed to open local store: %v", err)
		}
		defer localRepo.Close()
		groupRepo = localRepo
	}

	// Clearnode mirroring is best-effort: a failed connection downgrades
	// the server to store-only operation instead of aborting startup.
	var mirror usecase.SessionMirror
	clearnodeClient := clearnode.NewClient(clearnode.Config{
		WSURL:   cfg.ClearnodeWSURL,
		Network: cfg.ClearnodeNet,
	})
	if err := clearnodeClient.Connect(ctx); err != nil {
		log.Printf("Clearnode unavailable, session mirroring disabled: %v", err)
	} else {
		defer clearnodeClient.Close()
		mirror = clearnodeClient
	}

	bridgeClient := bridge.NewClient(bridge.Config{
		BaseURL: cfg.LifiAPIURL,
		APIKey:  cfg.LifiAPIKey,
	})
	ensResolver := ens.NewResolver(cfg.EnsAPIURL)

	groupUseCase := usecase.NewGroupUseCase(groupRepo, mirror, ensResolver)

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(verifier, service.NewCredentialResolver())
	rateLimiter := apimiddleware.NewRateLimiter(60, time.Minute)

	handler.Setup(groupUseCase, bridgeClient, authMiddleware)
	handler.SetupHealthHandler(storeBackend)

	router.Setup(e, authMiddleware, rateLimiter)

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
