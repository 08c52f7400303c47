package main

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"time"

	"gold-price-predictor/internal/algorithms"
	"gold-price-predictor/internal/config"
	"gold-price-predictor/internal/controllers"
	"gold-price-predictor/internal/logger"
	"gold-price-predictor/internal/models"
	"gold-price-predictor/internal/services"
	"gold-price-predictor/internal/shutdown"
	"gold-price-predictor/internal/views"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
)

const (
	AppName    = "Gold Price Prediction"
	AppID      = "com.marketdata.gold-price-predictor"
	AppVersion = "1.0.0"
)

// Application holds the long-lived components of the desktop app
type Application struct {
	fyneApp fyne.App
	window  fyne.Window
	logger  logger.Logger
	config  *config.Config

	controller *controllers.MainController
	view       *views.MainView

	trainingService   *services.TrainingService
	predictionService *services.PredictionService

	shutdown *shutdown.Manager
	ctx      context.Context
	cancel   context.CancelFunc
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	application, err := NewApplication(cfg)
	if err != nil {
		log.Fatalf("Application initialization failed: %v", err)
	}

	application.Run()
}

// NewApplication builds every component and wires them together
func NewApplication(cfg *config.Config) (*Application, error) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	appLogger := logger.New(cfg.LogFormat, level)

	app.SetMetadata(fyne.AppMetadata{
		ID:      AppID,
		Name:    AppName,
		Version: AppVersion,
	})
	fyneApp := app.NewWithID(AppID)

	window := fyneApp.NewWindow(AppName)
	window.Resize(fyne.NewSize(cfg.WindowWidth, cfg.WindowHeight))
	window.CenterOnScreen()

	appLogger.Info("Application", "starting", map[string]interface{}{
		"version":    AppVersion,
		"go_version": runtime.Version(),
		"data_path":  cfg.DataPath,
		"algorithm":  cfg.Algorithm,
		"estimators": cfg.Estimators,
		"workers":    cfg.Workers,
	})

	stateRepo := models.NewModelStateRepository()
	history := models.NewPredictionHistory(cfg.HistorySize)

	trainingService := services.NewTrainingService(services.TrainingOptions{
		DataPath:  cfg.DataPath,
		TestSize:  cfg.TestSize,
		SplitSeed: cfg.SplitSeed,
		Algorithm: cfg.Algorithm,
		Params: algorithms.Params{
			Estimators:      cfg.Estimators,
			MaxDepth:        cfg.MaxDepth,
			MinSamplesSplit: cfg.MinSamplesSplit,
			MinSamplesLeaf:  cfg.MinSamplesLeaf,
			Seed:            cfg.ForestSeed,
			Workers:         cfg.Workers,
		},
	}, algorithms.NewManager(), stateRepo, appLogger)
	predictionService := services.NewPredictionService(trainingService, history, appLogger)

	mainController := controllers.NewMainController(trainingService, predictionService, appLogger)
	mainView := views.NewMainView(window)
	mainController.SetMainView(mainView)

	shutdownManager := shutdown.NewManager(appLogger, 10*time.Second)
	ctx, cancel := context.WithCancel(shutdownManager.Context())

	application := &Application{
		fyneApp:           fyneApp,
		window:            window,
		logger:            appLogger,
		config:            cfg,
		controller:        mainController,
		view:              mainView,
		trainingService:   trainingService,
		predictionService: predictionService,
		shutdown:          shutdownManager,
		ctx:               ctx,
		cancel:            cancel,
	}

	shutdownManager.Register("monitoring", shutdown.Func(cancel))
	shutdownManager.Register("controller", mainController)

	application.setupMenu()
	application.setupWindowEvents()

	return application, nil
}

// Run shows the window, starts training and blocks in the toolkit event loop
func (a *Application) Run() {
	a.shutdown.Listen(func() {
		fyne.Do(a.fyneApp.Quit)
	})

	a.view.Show()
	a.controller.StartTraining(a.ctx)
	go a.startPerformanceMonitoring()

	a.fyneApp.Run()

	a.shutdown.Shutdown()
	a.logger.Info("Application", "terminated", nil)
}

func (a *Application) setupMenu() {
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", func() {
			a.view.ShowAboutDialog(AppName, AppVersion,
				fmt.Sprintf("Predicts the GLD price from SPX, USO, SLV and EUR/USD\nusing a %s trained on %s.", a.config.Algorithm, a.config.DataPath))
		}),
	)
	a.window.SetMainMenu(fyne.NewMainMenu(helpMenu))
}

func (a *Application) setupWindowEvents() {
	a.window.SetCloseIntercept(func() {
		a.controller.RequestClose(a.window.Close)
	})
	a.window.SetOnClosed(func() {
		a.logger.Info("Application", "window closed", nil)
		a.shutdown.Shutdown()
	})
}

// startPerformanceMonitoring refreshes the memory display until shutdown
func (a *Application) startPerformanceMonitoring() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	a.updateMemoryInfo()
	for {
		select {
		case <-ticker.C:
			a.updateMemoryInfo()
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *Application) updateMemoryInfo() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	a.view.SetMemoryInfo(memStats.HeapAlloc, memStats.Sys)
	a.logger.Debug("Application", "performance metrics", map[string]interface{}{
		"heap_alloc":  memStats.HeapAlloc,
		"gc_runs":     memStats.NumGC,
		"goroutines":  runtime.NumGoroutine(),
		"predictions": len(a.predictionService.History()),
		"predict_avg": a.predictionService.AverageLatency().String(),
	})
}
