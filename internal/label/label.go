// Package label generates shipping labels for completed orders. Actual PDF
// rendering is delegated to an external document service; this package only
// produces the label request document.
package label

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/feriavirtual/backend/internal/entity"
)

// Generator produces a shipping label for an order.
type Generator interface {
	Generate(order entity.Order) error
}

// FileGenerator writes label request documents to a spool directory picked
// up by the rendering service.
type FileGenerator struct {
	Dir string
}

func NewFileGenerator(dir string) (*FileGenerator, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create label dir: %w", err)
	}
	return &FileGenerator{Dir: dir}, nil
}

func (g *FileGenerator) Generate(order entity.Order) error {
	name := fmt.Sprintf("%s-%d.label", order.ID, time.Now().UnixNano())
	path := filepath.Join(g.Dir, name)

	content := fmt.Sprintf("order: %s\ncourier: %s\ntracking: %s\nitems: %d\n",
		order.ID, order.Courier, order.TrackingNumber, len(order.Items))

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write label file: %w", err)
	}

	slog.Info("Label generated", "order_id", order.ID, "path", path)
	return nil
}

// Noop discards label requests. Used in tests.
type Noop struct{}

func (Noop) Generate(entity.Order) error { return nil }
