package server

import (
	"fmt"

	"github.com/samber/do/v2"

	"mcp-servicenow/pkg/articles"
	"mcp-servicenow/pkg/config"
	"mcp-servicenow/pkg/logging"
	"mcp-servicenow/pkg/metrics"
	"mcp-servicenow/pkg/prompts"
	"mcp-servicenow/pkg/tools"
)

// Injector is the dependency container the server is assembled from
type Injector = do.Injector

// NewInjector registers every server dependency. The loader and logging
// manager are created by the caller because command-line flags feed them.
func NewInjector(loader *config.Loader, loggingManager *logging.LoggingManager) Injector {
	injector := do.New()

	do.ProvideValue(injector, loader)
	do.ProvideValue(injector, loggingManager)
	do.Provide(injector, provideSettings)
	do.Provide(injector, provideMetrics)
	do.Provide(injector, provideServiceState)
	do.Provide(injector, providePromptManager)
	do.Provide(injector, provideArticleFormatter)
	do.Provide(injector, provideToolManager)

	return injector
}

// provideSettings loads the initial configuration snapshot
func provideSettings(i do.Injector) (*config.Settings, error) {
	loader, err := do.Invoke[*config.Loader](i)
	if err != nil {
		return nil, err
	}

	settings, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return settings, nil
}

func provideMetrics(do.Injector) (*metrics.Metrics, error) {
	return metrics.New(), nil
}

func provideServiceState(i do.Injector) (*serviceState, error) {
	settings, err := do.Invoke[*config.Settings](i)
	if err != nil {
		return nil, err
	}
	m, err := do.Invoke[*metrics.Metrics](i)
	if err != nil {
		return nil, err
	}
	lm, err := do.Invoke[*logging.LoggingManager](i)
	if err != nil {
		return nil, err
	}
	return newServiceState(settings, m, lm), nil
}

func providePromptManager(do.Injector) (*prompts.PromptManager, error) {
	return prompts.NewPromptManager()
}

func provideArticleFormatter(do.Injector) (*articles.Formatter, error) {
	return articles.NewFormatter(), nil
}

// provideToolManager registers the ServiceNow catalog against the live
// service snapshot and reports outcomes to the metrics collectors
func provideToolManager(i do.Injector) (*tools.ToolManager, error) {
	lm, err := do.Invoke[*logging.LoggingManager](i)
	if err != nil {
		return nil, err
	}
	state, err := do.Invoke[*serviceState](i)
	if err != nil {
		return nil, err
	}
	m, err := do.Invoke[*metrics.Metrics](i)
	if err != nil {
		return nil, err
	}
	pm, err := do.Invoke[*prompts.PromptManager](i)
	if err != nil {
		return nil, err
	}
	formatter, err := do.Invoke[*articles.Formatter](i)
	if err != nil {
		return nil, err
	}

	tm := tools.NewToolManager(lm.GetLogger("tools"))
	tm.SetObserver(m)

	if err := tools.RegisterServiceNowTools(tm, tools.Dependencies{
		Services: state.Services,
		Prompts:  pm,
		Articles: formatter,
	}); err != nil {
		return nil, err
	}
	return tm, nil
}

// ResolveToolManager retrieves the tool manager with consistent error handling
func ResolveToolManager(injector Injector) (*tools.ToolManager, error) {
	tm, err := do.Invoke[*tools.ToolManager](injector)
	if err != nil {
		return nil, fmt.Errorf("resolve tool manager dependency: %w", err)
	}
	return tm, nil
}

// ResolveSettings retrieves the initial settings with consistent error handling
func ResolveSettings(injector Injector) (*config.Settings, error) {
	settings, err := do.Invoke[*config.Settings](injector)
	if err != nil {
		return nil, fmt.Errorf("resolve settings dependency: %w", err)
	}
	return settings, nil
}
