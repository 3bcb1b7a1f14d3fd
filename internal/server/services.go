package server

import (
	"sync"
	"sync/atomic"

	"mcp-servicenow/pkg/config"
	"mcp-servicenow/pkg/generative"
	"mcp-servicenow/pkg/logging"
	"mcp-servicenow/pkg/metrics"
	"mcp-servicenow/pkg/servicenow"
	"mcp-servicenow/pkg/tools"
)

// snapshot pairs the services with the settings they were built from
type snapshot struct {
	settings *config.Settings
	services *tools.Services
	client   *servicenow.Client
}

// serviceState holds the current snapshot. Tools read it once per invocation,
// so a reload never changes the collaborators of a call already running.
type serviceState struct {
	metrics        *metrics.Metrics
	loggingManager *logging.LoggingManager

	mu      sync.Mutex
	current atomic.Pointer[snapshot]
}

func newServiceState(settings *config.Settings, m *metrics.Metrics, lm *logging.LoggingManager) *serviceState {
	st := &serviceState{metrics: m, loggingManager: lm}
	st.apply(settings)
	return st
}

// Services returns the current snapshot's services
func (st *serviceState) Services() *tools.Services {
	return st.current.Load().services
}

// Settings returns the settings of the current snapshot
func (st *serviceState) Settings() *config.Settings {
	return st.current.Load().settings
}

// apply builds a snapshot from settings and swaps it in. The previous record
// client only has its idle connections released; calls still holding it finish
// normally.
func (st *serviceState) apply(settings *config.Settings) {
	st.mu.Lock()
	defer st.mu.Unlock()

	client := servicenow.NewClient(servicenow.Config{
		Instance: settings.ServiceNow.Instance,
		Username: settings.ServiceNow.Username,
		Password: settings.ServiceNow.Password,
		Timeout:  settings.ServiceNow.Timeout,
	},
		servicenow.WithObserver(st.metrics),
		servicenow.WithLogger(st.loggingManager.GetLogger("servicenow")),
	)

	services := &tools.Services{Records: client}
	if settings.Gemini.Configured() {
		services.Generator = generative.NewOpenAICompatible(generative.Config{
			APIKey:  settings.Gemini.APIKey,
			Model:   settings.Gemini.Model,
			BaseURL: settings.Gemini.BaseURL,
		},
			generative.WithObserver(st.metrics),
			generative.WithLogger(st.loggingManager.GetLogger("generative")),
		)
	}

	previous := st.current.Swap(&snapshot{settings: settings, services: services, client: client})
	if previous != nil {
		previous.client.Close()
	}
}

// close releases the current record client's pooled connections
func (st *serviceState) close() {
	if current := st.current.Load(); current != nil {
		current.client.Close()
	}
}
