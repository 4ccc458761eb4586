package wiring

import (
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/chronoplan/internal/infrastructure/config"
	"github.com/felixgeelhaar/chronoplan/pkg/storage"
)

// Workspace bundles core infrastructure dependencies.
type Workspace struct {
	Repo   *storage.FilesystemRepository
	Config *config.Config
	Logger *slog.Logger
}

// NewWorkspace opens the workspace at root and reads its config. A nil
// logger means slog.Default().
func NewWorkspace(root string, logger *slog.Logger) (*Workspace, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &Workspace{
		Repo:   storage.NewFilesystemRepository(root),
		Config: cfg,
		Logger: logger,
	}, nil
}
