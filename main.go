// Package main is the room synchronization server's daemon entry
// point: an authoritative physics simulation server exposing room
// lifecycle and real-time body state over WebSocket.
//
// Startup sequence: Config -> Logging -> Room registry -> Router -> Server.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/mikemainguy/rapierphysicsplugin/config"
	"github.com/mikemainguy/rapierphysicsplugin/logging"
	"github.com/mikemainguy/rapierphysicsplugin/server"
)

func main() {
	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: configuration initialization failed: %v\n", err)
		os.Exit(1)
	}

	if !flag.Parsed() {
		flag.Parse()
	}

	logConfig := &logging.Config{
		Level:        config.GetLogLevel(),
		TraceModules: config.GetTraceModules(),
		LogDir:       config.GetLogDir(),
	}
	if err := logging.ApplyConfig(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	manager := server.NewRoomManager()
	defer manager.Shutdown()

	router := server.NewRouter(manager)

	logging.Info("room sync server starting", map[string]interface{}{
		"listen_addr":     config.GetListenAddr(),
		"tick_rate_hz":    1 / config.GetTickInterval().Seconds(),
		"presets_dir":     config.GetPresetsDir(),
	})

	if err := http.ListenAndServe(config.GetListenAddr(), router); err != nil {
		logging.Fatal("server failed to start", map[string]interface{}{
			"address": config.GetListenAddr(),
			"error":   err.Error(),
		})
	}
}
