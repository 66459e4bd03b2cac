// Neural Image Sensing - headless pipeline harness
// Author: Ervins Strauhmanis
// License: MIT

package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"neural-image-sensing/internal/pipeline"
)

const (
	AppName    = "Neural Image Sensing"
	AppVersion = "1.0.0"
)

func main() {
	// Parse command line flags
	debugMode := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	imagePath := flag.String("image", "", "Image file to load into the static source")
	statePath := flag.String("state", "", "Write a pipeline state snapshot (JSON) to this path")
	matrixName := flag.String("matrix", "", "Print the named sensor matrix instead of a summary")
	flag.Parse()

	// Initialize logger
	logger := initLogger(*debugMode)
	logger.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": *debugMode,
	}).Info("Starting Neural Image Sensing")

	p, err := pipeline.New(initSlog(*debugMode))
	if err != nil {
		logger.WithError(err).Fatal("Failed to construct pipeline")
	}

	if *imagePath != "" {
		if err := p.LoadImage(*imagePath); err != nil {
			logger.WithError(err).WithField("path", *imagePath).Fatal("Failed to load image")
		}
	}

	if *matrixName != "" {
		m, ok := p.FindSensorMatrix(*matrixName)
		if !ok {
			logger.WithField("name", *matrixName).Fatal("Unknown sensor matrix")
		}
		fmt.Printf("%s:\n%v\n", m.Name(), mat.Formatted(m.Values(), mat.Squeeze()))
	} else {
		for _, m := range p.SensorMatrices() {
			rows, cols := m.Values().Dims()
			marker := "  "
			if m == p.CurrentSensorMatrix() {
				marker = "* "
			}
			fmt.Printf("%s%-16s %dx%d\n", marker, m.Name(), cols, rows)
		}
	}

	if *statePath != "" {
		if err := p.Snapshot().WriteFile(*statePath); err != nil {
			logger.WithError(err).Fatal("Failed to write pipeline state")
		}
		logger.WithField("path", *statePath).Info("Pipeline state written")
	}

	logger.Info("Done")
	os.Exit(0)
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}

// initSlog builds the structured logger handed into the pipeline
// internals.
func initSlog(debugMode bool) *slog.Logger {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}
