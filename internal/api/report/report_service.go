package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FACorreiaa/go-municipio-insights/internal/api/export"
	"github.com/FACorreiaa/go-municipio-insights/internal/types"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
	// DefaultKeepPerMunicipality bounds how many exports are kept for each municipality.
	DefaultKeepPerMunicipality = 10
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Archive(ctx context.Context, rec types.ProcessedRecord, f export.File) error
	Recent(ctx context.Context, municipalityID, limit int) ([]types.Report, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	keep   int
}

func NewServiceImpl(repo Repository, keepPerMunicipality int, logger *slog.Logger) *ServiceImpl {
	if keepPerMunicipality <= 0 {
		keepPerMunicipality = DefaultKeepPerMunicipality
	}
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		keep:   keepPerMunicipality,
	}
}

// Archive stores the CSV export and prunes older exports of the same
// municipality. A failed prune is logged, not returned.
func (s *ServiceImpl) Archive(ctx context.Context, rec types.ProcessedRecord, f export.File) error {
	l := s.logger.With(slog.String("method", "Archive"), slog.Int("municipality_id", rec.ID))

	saved, err := s.repo.Save(ctx, types.Report{
		MunicipalityID: rec.ID,
		UF:             rec.UF,
		Nome:           rec.Nome,
		FileName:       f.Name,
		Content:        string(f.Content),
	})
	if err != nil {
		l.ErrorContext(ctx, "Failed to archive report", slog.Any("error", err))
		return fmt.Errorf("archive %s: %w", f.Name, err)
	}
	l.InfoContext(ctx, "Report archived", slog.String("report_id", saved.ID.String()))

	if removed, err := s.repo.Prune(ctx, s.keep); err != nil {
		l.WarnContext(ctx, "Failed to prune reports", slog.Any("error", err))
	} else if removed > 0 {
		l.DebugContext(ctx, "Pruned old reports", slog.Int64("removed", removed))
	}
	return nil
}

func (s *ServiceImpl) Recent(ctx context.Context, municipalityID, limit int) ([]types.Report, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.repo.Recent(ctx, municipalityID, limit)
}
