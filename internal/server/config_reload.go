package server

import (
	"strings"
	"time"

	"mcp-servicenow/internal/models"
	"mcp-servicenow/pkg/config"
	"mcp-servicenow/pkg/monitor"
)

// watchConfig starts watching the env file, when one is configured
func (s *MCPServer) watchConfig() error {
	path := s.loader.EnvFile()
	if path == "" {
		return nil
	}

	fileMonitor, err := monitor.NewFileMonitor(s.loggingManager.GetLogger("file_monitor"))
	if err != nil {
		return err
	}
	if err := fileMonitor.WatchFile(path, s.handleConfigEvent); err != nil {
		_ = fileMonitor.StopWatching()
		return err
	}

	s.mu.Lock()
	s.monitor = fileMonitor
	s.mu.Unlock()
	return nil
}

// handleConfigEvent re-reads the env file and swaps in freshly built services.
// On failure the previous snapshot stays in place.
func (s *MCPServer) handleConfigEvent(event models.FileEvent) {
	reloadStart := time.Now()
	defer func() {
		s.loggingManager.LogFileSystemEvent(event.Type, event.Path, time.Since(reloadStart))
	}()

	settings, err := s.loader.Reload()
	s.metrics.ObserveReload(err)
	if err != nil {
		s.logger.WithError(err).
			WithContext("file_path", event.Path).
			Error("Configuration reload failed, keeping previous settings")
		return
	}

	s.state.apply(settings)
	s.loggingManager.SetLogLevel(settings.Log.Level)
	s.warnMissingSettings(settings)

	logger := s.logger.WithContext("file_path", event.Path).
		WithContext("event_type", event.Type)
	for k, v := range settings.Summary() {
		logger = logger.WithContext(k, v)
	}
	logger.Info("Configuration reloaded")
}

// warnMissingSettings names, never shows, the variables still unset
func (s *MCPServer) warnMissingSettings(settings *config.Settings) {
	missing := settings.Missing()
	if len(missing) == 0 {
		return
	}
	s.logger.WithContext("missing", strings.Join(missing, ", ")).
		Warn("Some integrations are not configured; their tools will report it when called")
}
