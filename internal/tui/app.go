// Package tui is the terminal recruiting dashboard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jask/recruitmetrics/internal/config"
	"github.com/jask/recruitmetrics/internal/database/repository"
	"github.com/jask/recruitmetrics/internal/logging"
	"github.com/jask/recruitmetrics/internal/prefs"
	"github.com/jask/recruitmetrics/internal/service"
)

type tab int

const (
	tabDashboard tab = iota
	tabRecruiters
	tabTrends
	tabDetails
	tabData
)

var tabNames = []string{"Dashboard", "Recruiters", "Trends", "Details", "Data"}

func (t tab) String() string { return tabNames[t] }

type mode int

const (
	modeNormal mode = iota
	modeImport
	modeConfirmDelete
)

// Options configures New.
type Options struct {
	Config    config.Config
	Services  *service.Services
	Prefs     prefs.Prefs
	PrefsPath string // empty disables persistence
	Log       logrus.FieldLogger
}

// App is the bubbletea model behind the dashboard.
type App struct {
	ctx       context.Context
	svc       *service.Services
	cfg       config.Config
	prefs     prefs.Prefs
	prefsPath string
	log       logrus.FieldLogger

	tab    tab
	mode   mode
	weeks  int
	width  int
	height int

	dash    *service.Dashboard
	noData  bool
	loaded  bool
	count   int
	uploads []repository.FileUpload

	uploadCursor int
	detailOffset int
	importPath   string
	lastImport   *service.IngestResult
	status       string
}

// New builds the dashboard model, restoring the saved tab, weeks and import
// path from opts.Prefs.
func New(ctx context.Context, opts Options) *App {
	log := opts.Log
	if log == nil {
		log = logging.Discard()
	}
	a := &App{
		ctx:        ctx,
		svc:        opts.Services,
		cfg:        opts.Config,
		prefs:      opts.Prefs,
		prefsPath:  opts.PrefsPath,
		log:        logging.WithPrefix(log, "tui"),
		weeks:      opts.Config.Metrics.DefaultWeeks,
		importPath: opts.Prefs.LastImportPath,
		width:      100,
		height:     40,
	}
	if a.validWeeks(opts.Prefs.TrendWeeks) {
		a.weeks = opts.Prefs.TrendWeeks
	}
	if a.weeks <= 0 {
		a.weeks = 4
	}
	if opts.Prefs.Tab >= 0 && opts.Prefs.Tab < len(tabNames) {
		a.tab = tab(opts.Prefs.Tab)
	}
	return a
}

func (a *App) Init() tea.Cmd {
	return a.loadCmd()
}

func (a *App) weekOptions() []int {
	if len(a.cfg.Metrics.WeekOptions) > 0 {
		return a.cfg.Metrics.WeekOptions
	}
	return []int{4, 8, 12}
}

func (a *App) validWeeks(w int) bool {
	for _, o := range a.weekOptions() {
		if o == w {
			return true
		}
	}
	return false
}

func (a *App) nextWeeks() int {
	opts := a.weekOptions()
	for i, o := range opts {
		if o == a.weeks {
			return opts[(i+1)%len(opts)]
		}
	}
	return opts[0]
}

// messages
type loadedMsg struct {
	dash    *service.Dashboard
	noData  bool
	count   int
	uploads []repository.FileUpload
}

type importDoneMsg struct {
	Result service.IngestResult
}

type removedMsg struct {
	filename string
	result   service.RemoveResult
}

type errMsg struct{ error }

// loadCmd fetches the dashboard, record count and upload history together.
func (a *App) loadCmd() tea.Cmd {
	weeks := a.weeks
	return func() tea.Msg {
		var msg loadedMsg
		g, ctx := errgroup.WithContext(a.ctx)
		g.Go(func() error {
			d, err := a.svc.Dashboard.Snapshot(ctx, weeks)
			if errors.Is(err, service.ErrNoData) {
				msg.noData = true
				return nil
			}
			if err != nil {
				return err
			}
			msg.dash = &d
			return nil
		})
		g.Go(func() error {
			n, err := a.svc.Interviews.Count(ctx)
			msg.count = n
			return err
		})
		g.Go(func() error {
			u, err := a.svc.Uploads.List(ctx)
			msg.uploads = u
			return err
		})
		if err := g.Wait(); err != nil {
			return errMsg{err}
		}
		return msg
	}
}

func (a *App) importCmd(path string) tea.Cmd {
	abs := path
	if strings.HasPrefix(abs, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			abs = filepath.Join(home, abs[2:])
		}
	}
	if !filepath.IsAbs(abs) {
		if p, err := filepath.Abs(abs); err == nil {
			abs = p
		}
	}
	return func() tea.Msg {
		res, err := a.svc.Ingest.ImportFile(a.ctx, abs)
		if err != nil {
			return errMsg{err}
		}
		return importDoneMsg{Result: res}
	}
}

func (a *App) removeCmd(filename string, purge bool) tea.Cmd {
	return func() tea.Msg {
		res, err := a.svc.Maintenance.RemoveUpload(a.ctx, filename, purge)
		if err != nil {
			return errMsg{err}
		}
		return removedMsg{filename: filename, result: res}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
	case tea.KeyMsg:
		switch a.mode {
		case modeImport:
			return a.handleImportKey(m)
		case modeConfirmDelete:
			return a.handleConfirmKey(m)
		}
		return a.handleKey(m)
	case loadedMsg:
		a.loaded = true
		a.dash = m.dash
		a.noData = m.noData
		a.count = m.count
		a.uploads = m.uploads
		if a.uploadCursor >= len(a.uploads) {
			a.uploadCursor = max(0, len(a.uploads)-1)
		}
	case importDoneMsg:
		a.lastImport = &m.Result
		a.status = fmt.Sprintf("imported %d, skipped %d", m.Result.Imported, m.Result.Skipped)
		if len(m.Result.Errors) > 0 {
			a.status += fmt.Sprintf(", errors %d", len(m.Result.Errors))
		}
		a.log.WithField("file", m.Result.Filename).Debug("import finished")
		return a, a.loadCmd()
	case removedMsg:
		a.status = fmt.Sprintf("removed %s (%d upload records, %d interviews)", m.filename, m.result.Uploads, m.result.Interviews)
		return a, a.loadCmd()
	case errMsg:
		a.status = "error: " + m.Error()
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "1", "2", "3", "4", "5":
		a.setTab(tab(m.String()[0] - '1'))
	case "tab":
		a.setTab((a.tab + 1) % tab(len(tabNames)))
	case "shift+tab":
		a.setTab((a.tab + tab(len(tabNames)) - 1) % tab(len(tabNames)))
	case "w":
		a.weeks = a.nextWeeks()
		a.prefs.TrendWeeks = a.weeks
		a.savePrefs()
		a.status = fmt.Sprintf("showing %d weeks", a.weeks)
		return a, a.loadCmd()
	case "r":
		a.status = "reloading..."
		return a, a.loadCmd()
	case "i":
		a.setTab(tabData)
		a.mode = modeImport
		a.status = ""
	case "down", "j":
		switch a.tab {
		case tabData:
			if a.uploadCursor < len(a.uploads)-1 {
				a.uploadCursor++
			}
		case tabDetails:
			if a.dash != nil && a.detailOffset < len(a.dash.Detailed)-1 {
				a.detailOffset++
			}
		}
	case "up", "k":
		switch a.tab {
		case tabData:
			if a.uploadCursor > 0 {
				a.uploadCursor--
			}
		case tabDetails:
			if a.detailOffset > 0 {
				a.detailOffset--
			}
		}
	case "d":
		if a.tab == tabData && len(a.uploads) > 0 {
			a.mode = modeConfirmDelete
		}
	}
	return a, nil
}

func (a *App) handleImportKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Type {
	case tea.KeyCtrlC:
		return a, tea.Quit
	case tea.KeyEsc:
		a.mode = modeNormal
		a.status = ""
	case tea.KeyEnter:
		path := strings.TrimSpace(a.importPath)
		if path == "" {
			a.status = "enter a CSV path"
			return a, nil
		}
		a.mode = modeNormal
		a.prefs.LastImportPath = path
		a.savePrefs()
		a.status = "importing..."
		return a, a.importCmd(path)
	case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
		if r := []rune(a.importPath); len(r) > 0 {
			a.importPath = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		a.importPath += " "
	case tea.KeyRunes:
		a.importPath += string(m.Runes)
	}
	return a, nil
}

func (a *App) handleConfirmKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.uploadCursor >= len(a.uploads) {
		a.mode = modeNormal
		return a, nil
	}
	name := a.uploads[a.uploadCursor].Filename
	switch m.String() {
	case "y":
		a.mode = modeNormal
		return a, a.removeCmd(name, false)
	case "p":
		a.mode = modeNormal
		return a, a.removeCmd(name, true)
	case "n", "esc":
		a.mode = modeNormal
	case "ctrl+c":
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) setTab(t tab) {
	if t < 0 || int(t) >= len(tabNames) || t == a.tab {
		return
	}
	a.tab = t
	a.prefs.Tab = int(t)
	a.savePrefs()
}

func (a *App) savePrefs() {
	if a.prefsPath == "" {
		return
	}
	if err := prefs.SaveTo(a.prefsPath, a.prefs); err != nil {
		a.log.WithError(err).Warn("save prefs")
	}
}
