package export

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/go-municipio-insights/app/observability/metrics"
)

// FileSaver hands an encoded file to its destination.
type FileSaver interface {
	Save(ctx context.Context, f File) error
}

var (
	_ FileSaver = (*HTTPSaver)(nil)
	_ FileSaver = (*DirSaver)(nil)
)

// HTTPSaver streams the file as an attachment download.
type HTTPSaver struct {
	W http.ResponseWriter
}

func (s HTTPSaver) Save(ctx context.Context, f File) error {
	h := s.W.Header()
	h.Set("Content-Type", f.MIMEType)
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	h.Set("Content-Length", strconv.Itoa(len(f.Content)))
	s.W.WriteHeader(http.StatusOK)
	if _, err := s.W.Write(f.Content); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.Name, err)
	}
	recordExport(ctx, f, "http")
	return nil
}

// DirSaver writes files into Dir, creating it when missing.
type DirSaver struct {
	Dir    string
	Logger *slog.Logger
}

func (s DirSaver) Save(ctx context.Context, f File) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir %s: %w", s.Dir, err)
	}
	path := filepath.Join(s.Dir, f.Name)
	if err := os.WriteFile(path, f.Content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if s.Logger != nil {
		s.Logger.InfoContext(ctx, "File saved", slog.String("path", path), slog.Int("bytes", len(f.Content)))
	}
	recordExport(ctx, f, "dir")
	return nil
}

func recordExport(ctx context.Context, f File, target string) {
	metrics.Get().ExportsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mime_type", f.MIMEType),
		attribute.String("target", target),
	))
}
