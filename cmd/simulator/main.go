package main

import (
	"context"
	"os"
	"time"

	"pillscare/internal/logging"
	"pillscare/simulator"
)

func main() {
	logger := logging.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	config := simulator.SimConfig{
		NumPatients:        20,
		NumDoctors:         4,
		SimulationTime:     10 * time.Minute,
		MessageFrequency:   30.0,
		ChatFrequency:      20.0,
		EmergencyFrequency: 0.5,
		TickInterval:       500 * time.Millisecond,
		DisconnectRate:     0.01,
		ReconnectRate:      0.05,
		ZipfS:              1.07,
		EngineURL:          "http://localhost:8080",
		JWTSecret:          os.Getenv("JWT_SECRET"),
	}
	if url := os.Getenv("ENGINE_URL"); url != "" {
		config.EngineURL = url
	}

	sim, err := simulator.NewSimulator(config, logger)
	if err != nil {
		logger.Error("failed to create simulator (is JWT_SECRET set?)", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.SimulationTime)
	defer cancel()

	logger.Info("simulation configuration",
		"engine_url", config.EngineURL,
		"patients", config.NumPatients,
		"doctors", config.NumDoctors,
		"duration", config.SimulationTime,
		"messages_per_hour", config.MessageFrequency,
		"chats_per_hour", config.ChatFrequency,
		"zipf", config.ZipfS)

	if err := sim.Run(ctx); err != nil {
		logger.Error("simulation failed", "error", err)
		os.Exit(1)
	}

	metrics := sim.GetMetrics()
	logger.Info("simulation completed",
		"users", metrics.TotalUsers,
		"active_at_end", metrics.ActiveUsers,
		"messages", metrics.TotalMessages,
		"replies", metrics.TotalReplies,
		"chats", metrics.TotalChats,
		"reminders", metrics.TotalReminders,
		"alerts", metrics.TotalAlerts,
		"errors", metrics.ErrorCount)
}
