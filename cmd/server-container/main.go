package main

import (
	"context"

	"example/formula-api/app"
	"example/formula-api/app/config"
	"example/formula-api/app/logging"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var ginLambda *ginadapter.GinLambda

// init runs once per Lambda container (cold start)
func init() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(cfg.Logs.Style, cfg.Logs.Level)
	cfg.Lambda = true
	gin.SetMode(gin.ReleaseMode)

	// Connections stay open for the lifetime of the container.
	srv, _, err := app.Bootstrap(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize server")
	}

	// Wrap Gin router with Lambda adapter
	ginLambda = ginadapter.New(app.NewRouter(srv))
}

// Handler is the Lambda entrypoint for API Gateway REST/HTTP API (proxy integration)
func Handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return ginLambda.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(Handler)
}
