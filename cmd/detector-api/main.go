package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-vr-vision/internal/config"
	"go-vr-vision/internal/container"
	"go-vr-vision/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadFromEnv("8080", "models/yolov8n.onnx")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logger.Configure(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	defer logFile.Close()
	gin.SetMode(gin.ReleaseMode)

	c, err := container.NewDetectorContainer(context.Background(), cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize container")
	}

	server := &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      c.Handler(),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"address":      cfg.ServerAddress(),
			"model":        cfg.ModelPath,
			"custom_model": cfg.CustomModelPath,
			"confidence":   cfg.ConfidenceThreshold,
		}).Info("Starting object detector API")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	if err := c.Close(); err != nil {
		logger.WithError(err).Error("Failed to release detector")
	}

	logger.Info("Server exited")
}
