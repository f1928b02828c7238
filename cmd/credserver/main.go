package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voicefront/internal/config"
	"voicefront/internal/credserver"
	"voicefront/internal/logging"
	"voicefront/internal/prompts"
)

func main() {
	if err := logging.Initialize(); err != nil {
		log.Printf("logging setup failed: %v", err)
	}
	defer logging.Close()

	cfg, err := config.LoadServer()
	if err != nil {
		logging.Logger.Fatal("load config", zap.Error(err))
	}
	if cfg.AgentID == "" || cfg.APIKey == "" {
		logging.Logger.Warn("AGENT_ID or XI_API_KEY is not set; signed URL requests will fail")
	}

	gin.SetMode(gin.ReleaseMode)
	server, err := credserver.New(credserver.Config{
		AgentID:       cfg.AgentID,
		APIKey:        cfg.APIKey,
		UpstreamURL:   cfg.UpstreamURL,
		PromptPath:    cfg.PromptPath,
		GreetingsPath: cfg.GreetingsPath,
		StaticDir:     cfg.StaticDir,
		Location: prompts.Location{
			City:    cfg.City,
			Country: cfg.Country,
			Lat:     cfg.Lat,
			Lon:     cfg.Lon,
		},
		Timeout: cfg.Timeout,
	}, logging.Named("credserver"))
	if err != nil {
		logging.Logger.Fatal("build server", zap.Error(err))
	}

	addr := ":" + cfg.Port
	logging.Logger.Info("credential server listening", zap.String("addr", addr))
	if err := server.Router().Run(addr); err != nil {
		logging.Logger.Fatal("server stopped", zap.Error(err))
	}
}
