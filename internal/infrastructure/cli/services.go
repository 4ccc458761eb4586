package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/chronoplan/internal/infrastructure/config"
	"github.com/felixgeelhaar/chronoplan/internal/infrastructure/wiring"
)

func parseLevel(s string) (slog.Level, error) {
	return config.ParseLogLevel(s)
}

func getProjectRoot() (string, error) {
	if projectPath != "" {
		abs, err := filepath.Abs(projectPath)
		if err != nil {
			return "", fmt.Errorf("invalid project path %q: %w", projectPath, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("project path %q: %w", abs, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("project path %q is not a directory", abs)
		}
		return abs, nil
	}
	return os.Getwd()
}

func loadWorkspace() (*wiring.Workspace, error) {
	root, err := getProjectRoot()
	if err != nil {
		return nil, err
	}
	ws, err := wiring.NewWorkspace(root, nil)
	if err != nil {
		return nil, err
	}
	ws.Logger = newLogger(ws.Config.Level())
	return ws, nil
}

// loadServicesForCurrentDir wires services for the project root. Callers
// must Close the result.
func loadServicesForCurrentDir() (*wiring.AppServices, error) {
	ws, err := loadWorkspace()
	if err != nil {
		return nil, MapError(err)
	}
	services, err := wiring.BuildAppServices(ws)
	if err != nil {
		return nil, MapError(fmt.Errorf("failed to build services: %w", err))
	}
	return services, nil
}
