// Package file provides file-based persistence for development and
// single-node deployments. Each entity is one JSON document under the
// root directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cadencehq/cadence/pkg/persistence"
)

var (
	_ persistence.Persistence            = (*Persistence)(nil)
	_ persistence.AutomationRepository   = (*AutomationRepository)(nil)
	_ persistence.WorkflowRepository     = (*WorkflowRepository)(nil)
	_ persistence.EnrollmentRepository   = (*EnrollmentRepository)(nil)
	_ persistence.ExecutionLogRepository = (*ExecutionLogRepository)(nil)
)

// Persistence implements persistence.Persistence on the file system.
type Persistence struct {
	root           string
	mu             sync.RWMutex
	automationRepo *AutomationRepository
	workflowRepo   *WorkflowRepository
	enrollmentRepo *EnrollmentRepository
	logRepo        *ExecutionLogRepository
}

func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{root: cleanRoot}
	p.automationRepo = &AutomationRepository{p: p}
	p.workflowRepo = &WorkflowRepository{p: p}
	p.enrollmentRepo = &EnrollmentRepository{p: p}
	p.logRepo = &ExecutionLogRepository{p: p}

	return p
}

func (p *Persistence) Automations() persistence.AutomationRepository {
	return p.automationRepo
}

func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) Enrollments() persistence.EnrollmentRepository {
	return p.enrollmentRepo
}

func (p *Persistence) ExecutionLogs() persistence.ExecutionLogRepository {
	return p.logRepo
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// write stores a document under <root>/<kind>/<id>.json.
func (p *Persistence) write(kind, id string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	dir := filepath.Join(p.root, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", kind, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", kind, id, err)
	}

	if err := os.WriteFile(filepath.Join(dir, id+".json"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s %s: %w", kind, id, err)
	}

	return nil
}

// read loads a document; notFound is returned as-is when the file does
// not exist.
func (p *Persistence) read(kind, id string, v any, notFound error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(p.root, kind, id+".json"))
	if os.IsNotExist(err) {
		return notFound
	}

	if err != nil {
		return fmt.Errorf("failed to read %s %s: %w", kind, id, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s %s: %w", kind, id, err)
	}

	return nil
}

func (p *Persistence) remove(kind, id string, notFound error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := os.Remove(filepath.Join(p.root, kind, id+".json"))
	if os.IsNotExist(err) {
		return notFound
	}

	return err
}

// ids lists the document ids of a kind.
func (p *Persistence) ids(kind string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	root := os.DirFS(filepath.Join(p.root, kind))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", kind, err)
	}

	ids := make([]string, 0, len(jsonFiles))
	for _, file := range jsonFiles {
		ids = append(ids, strings.TrimSuffix(file, ".json"))
	}

	return ids, nil
}
