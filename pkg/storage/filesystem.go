package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/activity"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/planning"
)

const ChronoplanDir = ".chronoplan"
const PlanFile = "plan.yaml"
const TypesFile = "activity_types.yaml"
const JournalFile = "commits.jsonl"
const DatabaseFile = "plan.db"

var (
	// ErrPlanNotFound indicates no plan has been saved yet.
	ErrPlanNotFound = errors.New("plan not found")
	// ErrVersionConflict indicates the plan changed on disk since it was loaded.
	ErrVersionConflict = errors.New("plan version conflict")
	// ErrPlanCorrupt indicates the stored plan cannot be parsed.
	ErrPlanCorrupt = errors.New("plan file is corrupt")
)

// VersionConflictError reports an optimistic locking failure.
type VersionConflictError struct {
	Expected int
	Actual   int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("plan was modified concurrently: expected version %d, found %d", e.Expected, e.Actual)
}

// Is allows errors.Is to work with VersionConflictError.
func (e *VersionConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}

type FilesystemRepository struct {
	root        string
	retryConfig retry.Config
}

func NewFilesystemRepository(root string) *FilesystemRepository {
	return &FilesystemRepository{
		root: root,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// Root returns the workspace root directory.
func (r *FilesystemRepository) Root() string {
	return r.root
}

// Dir returns the .chronoplan directory.
func (r *FilesystemRepository) Dir() string {
	return filepath.Join(r.root, ChronoplanDir)
}

// ResolvePath ensures the path is within the .chronoplan directory and prevents traversal.
func (r *FilesystemRepository) ResolvePath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}

	baseDir := r.Dir()
	cleanPath := filepath.Clean(filepath.Join(baseDir, filename))

	// Only direct children of .chronoplan are allowed.
	if !strings.HasPrefix(cleanPath, baseDir) || filepath.Dir(cleanPath) != baseDir {
		return "", fmt.Errorf("invalid file path: %s", filename)
	}

	return cleanPath, nil
}

func (r *FilesystemRepository) Initialize() error {
	// G301: Use 0700 for directories
	if err := os.MkdirAll(r.Dir(), 0700); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", ChronoplanDir, err)
	}
	return nil
}

func (r *FilesystemRepository) IsInitialized() bool {
	_, err := os.Stat(r.Dir())
	return err == nil
}

// SavePlan writes the plan document, failing with a VersionConflictError if
// the file on disk is not at doc.Version. On success doc.Version is bumped.
func (r *FilesystemRepository) SavePlan(doc *planning.Document) error {
	path, err := r.ResolvePath(PlanFile)
	if err != nil {
		return err
	}

	// #nosec G304 -- Path is resolved and validated via ResolvePath
	existing, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("failed to read plan file: %w", err)
	default:
		var disk planRecord
		if err := yaml.Unmarshal(existing, &disk); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrPlanCorrupt, path, err)
		}
		if disk.Version != doc.Version {
			return &VersionConflictError{Expected: doc.Version, Actual: disk.Version}
		}
	}

	rec := toPlanRecord(doc)
	rec.Version++

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}

	// G306: Use 0600 for files
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	doc.Version = rec.Version
	return nil
}

func (r *FilesystemRepository) LoadPlan() (*planning.Document, error) {
	path, err := r.ResolvePath(PlanFile)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, path)
	}

	retryer := retry.New[*planning.Document](r.retryConfig)
	return retryer.Do(context.Background(), func(ctx context.Context) (*planning.Document, error) {
		// #nosec G304 -- Path is resolved and validated via ResolvePath
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read plan file: %w", err)
		}

		var rec planRecord
		if err := yaml.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
		}
		return rec.toDocument()
	})
}

// SaveActivityTypes writes the activity type catalogue.
func (r *FilesystemRepository) SaveActivityTypes(types []*activity.Type) error {
	path, err := r.ResolvePath(TypesFile)
	if err != nil {
		return err
	}

	rec := typesRecord{Types: make([]typeRecord, 0, len(types))}
	for _, t := range types {
		rec.Types = append(rec.Types, toTypeRecord(t))
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal activity types: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// LoadActivityTypes reads the activity type catalogue from filename, which is
// resolved inside .chronoplan. A missing file yields an empty registry.
func (r *FilesystemRepository) LoadActivityTypes(filename string) (*activity.Registry, error) {
	if filename == "" {
		filename = TypesFile
	}
	path, err := r.ResolvePath(filename)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return activity.NewRegistry(), nil
	}

	retryer := retry.New[*activity.Registry](r.retryConfig)
	return retryer.Do(context.Background(), func(ctx context.Context) (*activity.Registry, error) {
		// #nosec G304 -- Path is resolved and validated via ResolvePath
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read activity types: %w", err)
		}

		var rec typesRecord
		if err := yaml.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal activity types: %w", err)
		}

		registry := activity.NewRegistry()
		for _, tr := range rec.Types {
			t, err := tr.toType()
			if err != nil {
				return nil, err
			}
			registry.Register(t)
		}
		return registry, nil
	})
}
