package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/teamloft/teamloft/api"
	"github.com/teamloft/teamloft/cache/redis"
	"github.com/teamloft/teamloft/mq/sqsmq"
	"github.com/teamloft/teamloft/store/dynamo"
)

const (
	DynamoDBTable         = "Teamloft"
	SQSNotificationsQueue = "NotificationsQueue"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	ctx := context.Background()
	devMode := os.Getenv("DEV_MODE") == "true"

	teamloftStore, err := dynamo.NewDynamoTeamloftStore(ctx, devMode, os.Getenv("DYNAMODB_ENDPOINT"), DynamoDBTable)
	if err != nil {
		log.Fatalf("Failed to create dynamodb store: %v", err)
	}

	notificationQueue, err := sqsmq.NewSQSNotificationQueue(ctx, devMode, os.Getenv("SQS_ENDPOINT"), SQSNotificationsQueue)
	if err != nil {
		log.Fatalf("Failed to create SQS MQ: %v", err)
	}

	teamloftCache, err := redis.NewRedisTeamloftCache(ctx, devMode, os.Getenv("REDIS_ENDPOINT"))
	if err != nil {
		log.Fatalf("Failed to create redis cache: %v", err)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	clientOrigin := os.Getenv("CLIENT_ORIGIN")
	if clientOrigin == "" && !devMode {
		log.Fatal("CLIENT_ORIGIN must be set outside dev mode")
	}

	shutdownCtx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	teamloftApi, err := api.NewTeamloftAPI(teamloftStore, notificationQueue, teamloftCache, jwtSecret, clientOrigin, shutdownCtx)
	if err != nil {
		log.Fatalf("Failed to create teamloft api: %v", err)
	}

	mux := http.NewServeMux()
	teamloftApi.RegisterRoutes(mux)

	hostPort := "8080"
	if p := os.Getenv("HOST_PORT"); p != "" {
		hostPort = p
	}
	log.Printf("Starting server on host port: %s\n", hostPort)
	log.Fatal(http.ListenAndServe(":"+hostPort, mux))
}
