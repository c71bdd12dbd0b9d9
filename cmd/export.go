package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/go-municipio-insights/internal/api/export"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/ibge"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/insight"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/selection"
	"github.com/FACorreiaa/go-municipio-insights/internal/container"
	"github.com/FACorreiaa/go-municipio-insights/internal/types"
)

type exportOptions struct {
	uf         string
	city       string
	id         int
	summary    bool
	business   bool
	tourism    bool
	ideas      bool
	all        bool
	promptIdea int
	out        string
}

// exportDeps are built after config is loaded; tests swap in fakes.
type exportDeps struct {
	client   *ibge.Client
	insights insight.Service
	logger   *slog.Logger
}

func newExportCmd(deps func(ctx context.Context) exportDeps) *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Enrich one municipality and write its CSV package to disk",
		Example: `  municipio-insights export --uf SP --city Campinas --all --prompt-idea 1
  municipio-insights export --id 3509502 --summary --out ./out`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.id == 0 && (opts.uf == "" || opts.city == "") {
				return errors.New("either --id or both --uf and --city are required")
			}
			if opts.promptIdea > 0 && !opts.ideas && !opts.all {
				return errors.New("--prompt-idea requires --ideas")
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()
			return runExport(ctx, cmd, opts, deps(ctx))
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.uf, "uf", "", "State abbreviation, e.g. SP")
	f.StringVar(&opts.city, "city", "", "Municipality name within --uf")
	f.IntVar(&opts.id, "id", 0, "IBGE municipality id (overrides --uf/--city)")
	f.BoolVar(&opts.summary, "summary", false, "Generate the summary")
	f.BoolVar(&opts.business, "business", false, "Generate business tips")
	f.BoolVar(&opts.tourism, "tourism", false, "Generate tourism highlights")
	f.BoolVar(&opts.ideas, "ideas", false, "Generate web app ideas")
	f.BoolVar(&opts.all, "all", false, "Generate every enrichment")
	f.IntVar(&opts.promptIdea, "prompt-idea", 0, "Also write the developer prompt for this idea id")
	f.StringVarP(&opts.out, "out", "o", ".", "Output directory")
	return cmd
}

func init() {
	rootCmd.AddCommand(newExportCmd(func(ctx context.Context) exportDeps {
		return exportDeps{
			client:   container.NewIBGEClient(cfg, logger),
			insights: container.NewInsightService(ctx, cfg, logger),
			logger:   logger,
		}
	}))
}

func runExport(ctx context.Context, cmd *cobra.Command, opts exportOptions, deps exportDeps) error {
	ctrl := selection.NewController(deps.client, deps.client, deps.insights, deps.logger)
	defer ctrl.Close()
	stop := context.AfterFunc(ctx, ctrl.Close)
	defer stop()

	uf, id := strings.ToUpper(opts.uf), opts.id
	if id != 0 {
		m, err := deps.client.GetMunicipality(ctx, id)
		if err != nil {
			return fmt.Errorf("looking up municipality %d: %w", id, err)
		}
		uf = types.NewProcessedRecord(*m).UF
	}

	ctrl.SelectState(uf)
	ctrl.Wait()
	if id == 0 {
		var err error
		if id, err = findMunicipality(ctrl, opts.city); err != nil {
			return err
		}
	}

	if err := ctrl.SelectMunicipality(id); err != nil {
		return err
	}
	ctrl.Wait()

	for kind, on := range map[selection.Enrichment]bool{
		selection.EnrichmentSummary:  opts.summary || opts.all,
		selection.EnrichmentBusiness: opts.business || opts.all,
		selection.EnrichmentTourism:  opts.tourism || opts.all,
		selection.EnrichmentIdeas:    opts.ideas || opts.all,
	} {
		if !on {
			continue
		}
		if err := ctrl.RequestEnrichment(kind); err != nil {
			return err
		}
	}
	ctrl.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}

	saver := export.DirSaver{Dir: opts.out, Logger: deps.logger}
	if opts.promptIdea > 0 {
		if err := ctrl.RequestDeveloperPrompt(opts.promptIdea); err != nil {
			return err
		}
		ctrl.Wait()
		f, err := ctrl.ExportDeveloperPrompt()
		if err != nil {
			return fmt.Errorf("developer prompt for idea %d: %w", opts.promptIdea, err)
		}
		if err := saver.Save(ctx, f); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), f.Name)
	}

	f, err := ctrl.ExportCSV()
	if err != nil {
		return err
	}
	if err := saver.Save(ctx, f); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), f.Name)
	reportFailures(cmd, ctrl.Snapshot())
	return nil
}

// findMunicipality matches name case-insensitively, falling back to a unique
// partial match.
func findMunicipality(ctrl *selection.Controller, name string) (int, error) {
	ctrl.SetCityFilter(name)
	candidates := ctrl.FilteredMunicipalities()
	for _, m := range candidates {
		if strings.EqualFold(m.Nome, name) {
			return m.ID, nil
		}
	}
	switch len(candidates) {
	case 0:
		return 0, fmt.Errorf("no municipality matching %q", name)
	case 1:
		return candidates[0].ID, nil
	}
	names := make([]string, 0, len(candidates))
	for _, m := range candidates {
		names = append(names, m.Nome)
	}
	return 0, fmt.Errorf("%q is ambiguous: %s", name, strings.Join(names, ", "))
}

func reportFailures(cmd *cobra.Command, snap types.SelectionSnapshot) {
	for label, slot := range map[string]types.Slot{
		"summary":       snap.Summary,
		"business tips": snap.BusinessTips,
		"tourism":       snap.Tourism,
		"app ideas":     snap.AppIdeas,
	} {
		if slot.State == types.SlotFailed {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s failed: %s\n", label, slot.Message)
		}
	}
}
