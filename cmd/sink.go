package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/app"
	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/config"
	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/observability"
	"github.com/SOLUCIONESSYCOM/scribe"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() {
	ctx := context.Background()

	// Cargar configuración de log para el servicio de métricas
	logConfig, err := config.LogCfg()
	if err != nil {
		panic(fmt.Sprintf("error loading log config: %v", err))
	}

	sc, err := scribe.New(logConfig, nil, nil)
	if err != nil {
		panic(fmt.Sprintf("error creating scribe: %v", err))
	}

	logger := observability.NewScribeLogger(sc)

	// Cargar configuración del servidor
	serverConfig, err := config.ServerCfg()
	if err != nil {
		logger.Error(ctx, "Error loading server config", err)
		panic(fmt.Sprintf("error loading server config: %v", err))
	}

	// Crear servicio de métricas
	metricsService := observability.NewMetricsService()

	// Inicializar métricas del sink
	observability.NewSinkMetrics(metricsService.GetRegistry())

	// Configurar servidor HTTP con Gin
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// Endpoint de métricas de Prometheus
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metricsService.GetRegistry(), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
		})
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", serverConfig.HttpPort),
		Handler: router,
	}

	go func() {
		logger.Info(ctx, "Starting metrics server", "port", serverConfig.HttpPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Metrics server error", err, "port", serverConfig.HttpPort)
		}
	}()

	// Cerrar servidor HTTP al terminar
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info(ctx, "Stopping metrics server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "Error stopping metrics server", err)
		}
	}()

	logger.Info(ctx, "Metrics server started", "port", serverConfig.HttpPort, "endpoint", fmt.Sprintf("http://localhost:%d/metrics", serverConfig.HttpPort))

	// Crear sink app
	sinkApp, err := app.NewSinkApp(ctx)
	if err != nil {
		panic(fmt.Sprintf("error creating sink app: %v", err))
	}
	defer sinkApp.Close(ctx)

	// Manejar señales de terminación
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Crear contexto cancelable para el sink
	appCtx, appCancel := context.WithCancel(ctx)
	defer appCancel()

	// Iniciar sink app en goroutine
	appErrChan := make(chan error, 1)
	go func() {
		if err := sinkApp.Start(appCtx); err != nil {
			appErrChan <- err
		}
	}()

	// Esperar señal de terminación o error
	select {
	case sig := <-sigChan:
		logger.Info(ctx, "Received termination signal", "signal", sig.String())
		// Cancelar contexto del sink para que termine
		appCancel()
		// Esperar a que el sink termine (con timeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		select {
		case err := <-appErrChan:
			if err != nil && err != context.Canceled {
				logger.Warn(ctx, "Sink stopped with error", err)
			}
		case <-shutdownCtx.Done():
			logger.Warn(ctx, "Timeout waiting for sink to stop", nil)
		}
	case err := <-appErrChan:
		logger.Error(ctx, "Sink error", err)
		appCancel()
		panic(fmt.Sprintf("sink error: %v", err))
	}
}

func main() {
	fmt.Println("Starting sink...")
	run()
	fmt.Println("Sink stopped")
}
