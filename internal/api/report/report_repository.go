package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-municipio-insights/internal/types"
)

var _ Repository = (*PostgresRepository)(nil)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository interface {
	Save(ctx context.Context, report types.Report) (types.Report, error)
	Recent(ctx context.Context, municipalityID, limit int) ([]types.Report, error)
	Prune(ctx context.Context, keepPerMunicipality int) (int64, error)
}

type PostgresRepository struct {
	logger *slog.Logger
	db     DB
}

func NewPostgresRepository(db DB, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		logger: logger,
		db:     db,
	}
}

func (r *PostgresRepository) Save(ctx context.Context, report types.Report) (types.Report, error) {
	ctx, span := otel.Tracer("ReportRepository").Start(ctx, "Save")
	defer span.End()
	span.SetAttributes(attribute.Int("municipality.id", report.MunicipalityID))

	query := `
        INSERT INTO municipality_reports (
            municipality_id, uf, nome, file_name, content
        ) VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
	if err := r.db.QueryRow(ctx, query,
		report.MunicipalityID, report.UF, report.Nome, report.FileName, report.Content,
	).Scan(&report.ID, &report.CreatedAt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert failed")
		return types.Report{}, fmt.Errorf("failed to insert report: %w", err)
	}

	span.SetStatus(codes.Ok, "Report saved")
	return report, nil
}

// Recent lists the newest reports first. municipalityID 0 lists all municipalities.
func (r *PostgresRepository) Recent(ctx context.Context, municipalityID, limit int) ([]types.Report, error) {
	ctx, span := otel.Tracer("ReportRepository").Start(ctx, "Recent")
	defer span.End()

	var (
		rows pgx.Rows
		err  error
	)
	if municipalityID == 0 {
		rows, err = r.db.Query(ctx, `
            SELECT id, municipality_id, uf, nome, file_name, content, created_at
            FROM municipality_reports
            ORDER BY created_at DESC
            LIMIT $1
        `, limit)
	} else {
		rows, err = r.db.Query(ctx, `
            SELECT id, municipality_id, uf, nome, file_name, content, created_at
            FROM municipality_reports
            WHERE municipality_id = $1
            ORDER BY created_at DESC
            LIMIT $2
        `, municipalityID, limit)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Query failed")
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := []types.Report{}
	for rows.Next() {
		var rep types.Report
		if err := rows.Scan(&rep.ID, &rep.MunicipalityID, &rep.UF, &rep.Nome, &rep.FileName, &rep.Content, &rep.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating report rows: %w", err)
	}

	span.SetAttributes(attribute.Int("reports.count", len(reports)))
	span.SetStatus(codes.Ok, "Reports listed")
	return reports, nil
}

// Prune keeps the newest keepPerMunicipality reports of each municipality.
func (r *PostgresRepository) Prune(ctx context.Context, keepPerMunicipality int) (int64, error) {
	query := `
        DELETE FROM municipality_reports
        WHERE id IN (
            SELECT id FROM (
                SELECT id, ROW_NUMBER() OVER (PARTITION BY municipality_id ORDER BY created_at DESC) AS rn
                FROM municipality_reports
            ) ranked
            WHERE ranked.rn > $1
        )
    `
	tag, err := r.db.Exec(ctx, query, keepPerMunicipality)
	if err != nil {
		return 0, fmt.Errorf("failed to prune reports: %w", err)
	}
	return tag.RowsAffected(), nil
}
