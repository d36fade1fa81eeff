// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/the-line/internal/logger"
)

var streamLevels = []logger.Level{logger.LevelDebug, logger.LevelInfo, logger.LevelWarn, logger.LevelError, logger.LevelFatal}

// lineLevel extracts the level from a "[timestamp] [LEVEL] message" line.
func lineLevel(line string) logger.Level {
	for _, lvl := range streamLevels {
		if strings.Contains(line, "["+lvl.String()+"]") {
			return lvl
		}
	}
	return logger.LevelInfo
}

// HandleLogStream streams server logs via Server-Sent Events. ?level=warn
// limits the stream to warnings and worse.
func HandleLogStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	minLevel := logger.LevelDebug
	if raw := r.URL.Query().Get("level"); raw != "" {
		minLevel = logger.ParseLevel(raw)
	}

	loggerInstance := logger.GetDefault()
	clientChan, unsubscribeChan := loggerInstance.Subscribe()
	if clientChan == nil {
		logger.Warnf("HandleLogStream: log channel is nil, logger may be closed")
		http.Error(w, "Log stream unavailable", http.StatusServiceUnavailable)
		return
	}
	defer loggerInstance.Unsubscribe(unsubscribeChan)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "data: Connected to log stream\n\n")
	flusher.Flush()

	for {
		select {
		case logLine, ok := <-clientChan:
			if !ok {
				fmt.Fprintf(w, "data: Log stream closed\n\n")
				flusher.Flush()
				return
			}
			if lineLevel(logLine) < minLevel {
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", logLine); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
