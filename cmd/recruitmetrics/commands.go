package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jask/recruitmetrics/internal/config"
	"github.com/jask/recruitmetrics/internal/database"
	"github.com/jask/recruitmetrics/internal/httpapi"
	"github.com/jask/recruitmetrics/internal/metrics"
	"github.com/jask/recruitmetrics/internal/prefs"
	"github.com/jask/recruitmetrics/internal/secrets"
	"github.com/jask/recruitmetrics/internal/server"
	"github.com/jask/recruitmetrics/internal/service"
	"github.com/jask/recruitmetrics/internal/testdata"
	"github.com/jask/recruitmetrics/internal/tui"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "recruitmetrics",
		Short:         "Recruiting metrics from ATS interview exports",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDashboard,
	}
	root.AddCommand(
		newDashboardCmd(),
		newServeCmd(),
		newImportCmd(),
		newUploadsCmd(),
		newSummaryCmd(),
		newDuplicatesCmd(),
		newSeedCmd(),
		newResetCmd(),
		newCredentialsCmd(),
		newConfigCmd(),
		newStatusCmd(),
	)
	return root
}

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the terminal dashboard",
		Args:  cobra.NoArgs,
		RunE:  runDashboard,
	}
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	prefsPath, err := prefs.Path()
	if err != nil {
		return err
	}
	// the alt screen owns stdout and stderr, so logs go to a file
	logFile, err := os.OpenFile(filepath.Join(filepath.Dir(prefsPath), "recruitmetrics.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	a, err := openApp(ctx, logFile)
	if err != nil {
		_ = logFile.Close()
		return err
	}
	a.logFile = logFile
	defer a.Close()

	p, err := prefs.LoadFrom(prefsPath)
	if err != nil {
		a.log.WithError(err).Warn("ignoring unreadable prefs")
	}
	model := tui.New(ctx, tui.Options{
		Config:    a.cfg,
		Services:  a.svc,
		Prefs:     p,
		PrefsPath: prefsPath,
		Log:       a.log,
	})
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.cfg.Server
			if addr != "" {
				cfg.Addr = addr
			}
			srv := server.New(cfg, httpapi.NewRouter(a.cfg, a.svc, a.log.WithField("prefix", "http")), a.log)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(srv.Run)
			g.Go(func() error {
				<-ctx.Done()
				return srv.Shutdown(context.Background())
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE...",
		Short: "Import ATS interview CSV exports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			var failed []string
			for _, path := range args {
				res, err := a.svc.Ingest.ImportFile(cmd.Context(), path)
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", path, err)
					failed = append(failed, path)
					continue
				}
				printImport(out, res)
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d files failed: %s", len(failed), len(args), strings.Join(failed, ", "))
			}
			return nil
		},
	}
}

const maxPrintedRowErrors = 10

func printImport(w io.Writer, res service.IngestResult) {
	fmt.Fprintf(w, "%s: %d rows, %d imported, %d skipped, %d errors\n", res.Filename, res.Rows, res.Imported, res.Skipped, len(res.Errors))
	for i, e := range res.ErrorStrings() {
		if i == maxPrintedRowErrors {
			fmt.Fprintf(w, "  ... %d more\n", len(res.Errors)-maxPrintedRowErrors)
			break
		}
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func newUploadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uploads",
		Short: "List or remove upload history",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List uploads, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			uploads, err := a.svc.Uploads.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(uploads) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no uploads")
				return nil
			}
			t := newTable("Filename", "Uploaded", "Records")
			for _, u := range uploads {
				t.Row(u.Filename, u.UploadTimestamp.In(a.cfg.Location()).Format("2006-01-02 15:04"), fmt.Sprint(u.RecordCount))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}

	var purge bool
	rm := &cobra.Command{
		Use:   "rm FILENAME",
		Short: "Remove an upload from history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.svc.Maintenance.RemoveUpload(cmd.Context(), args[0], purge)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d upload records and %d interviews\n", res.Uploads, res.Interviews)
			return nil
		},
	}
	rm.Flags().BoolVar(&purge, "purge", false, "also delete the interviews the upload imported")

	cmd.AddCommand(list, rm)
	return cmd
}

func newSummaryCmd() *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize recruiter screens for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := metrics.ParsePeriod(period)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.svc.Dashboard.PeriodSummary(cmd.Context(), p)
			if errors.Is(err, service.ErrNoData) {
				fmt.Fprintln(cmd.OutOrStdout(), service.EmptyMessage)
				return nil
			}
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), rep, a.cfg.Location())
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", string(metrics.PeriodAllTime), "all_time, this_week, last_week, this_month or last_month")
	return cmd
}

func printSummary(w io.Writer, rep service.PeriodReport, loc *time.Location) {
	header := rep.Label
	if rep.From != nil {
		header += " from " + rep.From.In(loc).Format("2006-01-02")
		if rep.To != nil {
			header += " to " + rep.To.In(loc).Format("2006-01-02")
		}
	}
	fmt.Fprintf(w, "%s (%d interviews)\n", header, rep.Records)

	s := rep.Summary
	t := newTable("Owner", "Screens", "Passed", "Failed", "Pass rate")
	for _, o := range s.Owners {
		t.Row(o.Owner, fmt.Sprint(o.TotalScreens), fmt.Sprint(o.PassedScreens), fmt.Sprint(o.FailedScreens), fmt.Sprintf("%.2f%%", o.PassRate))
	}
	t.Row("Total", fmt.Sprint(s.TotalScreens), fmt.Sprint(s.TotalPassed), fmt.Sprint(s.TotalFailed), fmt.Sprintf("%.2f%%", s.OverallPassRate))
	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "Onsite interviews: %d  Sourced: %d  Applied: %d\n", s.Global.TotalOnsiteInterviews, s.Global.TotalSourced, s.Global.TotalApplied)
	if c := rep.Comparison; c != nil {
		fmt.Fprintf(w, "vs previous period: screens %+.1f%%, pass rate %+.1f%%, onsites %+.1f%%\n", c.ScreensChange, c.PassRateChange, c.OnsiteChange)
	}
}

func newDuplicatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicates",
		Short: "List interviews that look like the same event under different names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			pairs, err := a.svc.Duplicates.Find(cmd.Context())
			if err != nil {
				return err
			}
			if len(pairs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no likely duplicates")
				return nil
			}
			t := newTable("Candidate A", "Candidate B", "Interview", "Form", "Interviewer", "Similarity")
			for _, p := range pairs {
				t.Row(p.A.CandidateName, p.B.CandidateName,
					p.A.InterviewDate.In(a.cfg.Location()).Format("2006-01-02 15:04"),
					p.A.FeedbackForm, p.A.Interviewer, fmt.Sprintf("%.2f", p.Similarity))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the database, schema version and stored data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			version, dirty, err := database.MigrationVersion(service.DatabaseOptions(a.cfg.Database))
			if err != nil {
				return fmt.Errorf("schema version: %w", err)
			}
			count, err := a.svc.Interviews.Count(ctx)
			if err != nil {
				return err
			}
			uploads, err := a.svc.Uploads.List(ctx)
			if err != nil {
				return err
			}
			latest, ok, err := a.svc.Interviews.LatestInterviewDate(ctx)
			if err != nil {
				return err
			}

			target := a.cfg.Database.Path
			if a.cfg.Database.Driver == config.DriverPostgres {
				target = "postgres"
			}
			schema := fmt.Sprint(version)
			if dirty {
				schema += " (dirty)"
			}
			last := "none"
			if ok {
				last = latest.In(a.cfg.Location()).Format("2006-01-02 15:04")
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "database:         %s\n", target)
			fmt.Fprintf(w, "schema version:   %s\n", schema)
			fmt.Fprintf(w, "interviews:       %d\n", count)
			fmt.Fprintf(w, "uploads:          %d\n", len(uploads))
			fmt.Fprintf(w, "latest interview: %s\n", last)
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var (
		weeks int
		seed  int64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import generated sample interviews",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := testdata.Seed(cmd.Context(), a.svc.Ingest, testdata.Options{
				Seed:               seed,
				Weeks:              weeks,
				OnsiteInterviewers: a.cfg.Metrics.OnsiteInterviewers,
			})
			if err != nil {
				return err
			}
			printImport(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().IntVar(&weeks, "weeks", 12, "weeks of history to generate")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	return cmd
}

func newResetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all interviews and upload history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			a, err := openApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.svc.Maintenance.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "database reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting everything")
	return cmd
}

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the stored database URL",
	}
	set := &cobra.Command{
		Use:   "set [DATABASE_URL]",
		Short: "Store the Postgres connection string (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var url string
			if len(args) == 1 {
				url = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				url = line
			}
			url = strings.TrimSpace(url)
			if url == "" {
				return errors.New("database URL is empty")
			}
			if err := secrets.StoreCredential(secrets.DatabaseURL, url); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "database URL stored")
			return nil
		},
	}
	rm := &cobra.Command{
		Use:   "rm",
		Short: "Forget the stored database URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := secrets.DeleteCredential(secrets.DatabaseURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "database URL removed")
			return nil
		},
	}
	cmd.AddCommand(set, rm)
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write the settings file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective settings to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.Path()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := config.Save(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	path := &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.Path())
		},
	}
	cmd.AddCommand(initCmd, path)
	return cmd
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}
