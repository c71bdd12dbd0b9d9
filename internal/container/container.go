package container

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/go-municipio-insights/app/db"
	"github.com/FACorreiaa/go-municipio-insights/config"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/city"
	generativeAI "github.com/FACorreiaa/go-municipio-insights/internal/api/generative_ai"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/ibge"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/insight"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/report"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/selection"
)

// Container holds all application dependencies
type Container struct {
	Config           *config.Config
	Logger           *slog.Logger
	Pool             *pgxpool.Pool
	IBGE             *ibge.Client
	Insights         *insight.ServiceImpl
	Sessions         *selection.SessionStore
	Reports          *report.ServiceImpl
	CityHandler      *city.Handler
	SelectionHandler *selection.HandlerImpl
	ReportHandler    *report.HandlerImpl
}

// NewContainer builds the dependency graph. The report archive is only wired
// when Postgres is enabled; a missing Gemini key leaves the insight service
// in placeholder mode.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	c.IBGE = NewIBGEClient(cfg, logger)

	c.Insights = NewInsightService(ctx, cfg, logger)

	c.Sessions = selection.NewSessionStore(cfg.Session.TTL, func() *selection.Controller {
		return selection.NewController(c.IBGE, c.IBGE, c.Insights, logger)
	}, logger)

	var archiver selection.Archiver
	if err := c.initArchive(ctx); err != nil {
		if !errors.Is(err, database.ErrArchiveDisabled) {
			return nil, err
		}
		logger.InfoContext(ctx, "Report archive disabled")
	} else {
		archiver = c.Reports
		c.ReportHandler = report.NewHandlerImpl(c.Reports, logger)
	}

	c.CityHandler = city.NewCityHandler(c.IBGE, logger)
	c.SelectionHandler = selection.NewHandlerImpl(c.Sessions, archiver, []byte(cfg.Session.JWTSecret), cfg.Session.TTL, logger)
	return c, nil
}

func NewIBGEClient(cfg *config.Config, logger *slog.Logger) *ibge.Client {
	return ibge.NewClient(ibge.Config{
		LocalidadesURL:       cfg.IBGE.LocalidadesURL,
		AgregadosURL:         cfg.IBGE.AgregadosURL,
		RequestTimeout:       cfg.IBGE.RequestTimeout,
		RequestsPerSecond:    cfg.IBGE.RequestsPerSecond,
		MunicipalityCacheTTL: cfg.IBGE.MunicipalityCacheTTL,
	}, logger)
}

// NewInsightService builds the Gemini-backed generator. Without a key, or when
// the client cannot be created, it runs in placeholder mode.
func NewInsightService(ctx context.Context, cfg *config.Config, logger *slog.Logger) *insight.ServiceImpl {
	var generator generativeAI.TextGenerator
	if cfg.Gemini.APIKey == "" {
		logger.WarnContext(ctx, "Gemini API key not configured; insights will return placeholders")
	} else {
		client, err := generativeAI.NewAIClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to create Gemini client", slog.Any("error", err))
		} else {
			generator = client
		}
	}
	return insight.NewService(generator, insight.Config{
		APIKey:         cfg.Gemini.APIKey,
		Model:          cfg.Gemini.Model,
		DevPromptModel: cfg.Gemini.DevPromptModel,
	}, logger)
}

func (c *Container) initArchive(ctx context.Context) error {
	dbConfig, err := database.NewDatabaseConfig(c.Config, c.Logger)
	if err != nil {
		return err
	}
	if err := database.RunMigrations(dbConfig.ConnectionURL, c.Logger); err != nil {
		c.Logger.ErrorContext(ctx, "Failed to run database migrations", slog.Any("error", err))
		return err
	}
	pool, err := database.Init(ctx, dbConfig.ConnectionURL, c.Logger)
	if err != nil {
		c.Logger.ErrorContext(ctx, "Failed to initialize database pool", slog.Any("error", err))
		return err
	}
	if !database.WaitForDB(ctx, pool, c.Logger) {
		pool.Close()
		return errors.New("database not ready after waiting")
	}
	c.Pool = pool
	c.Reports = report.NewServiceImpl(
		report.NewPostgresRepository(pool, c.Logger),
		c.Config.Reports.KeepPerMunicipality,
		c.Logger,
	)
	return nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Sessions != nil {
		c.Sessions.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
