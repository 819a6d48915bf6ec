package core

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JonMunkholm/sweeper/internal/logging"
	"github.com/JonMunkholm/sweeper/internal/table"
)

var (
	// ErrNoFiles is returned when an upload carries no files.
	ErrNoFiles = errors.New("no file provided")

	// ErrFileTooLarge is returned for files above the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrCleaningDisabled is returned for cleaning, column and chart actions
	// on a file whose cleaning toggle is off.
	ErrCleaningDisabled = errors.New("cleaning is not enabled for this file")
)

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	SessionTTL         time.Duration
	MaxFileSize        int64
	MaxFilesPerSession int
	MaxConcurrent      int
	MaxWait            time.Duration
	Display            DisplayOptions

	// Registerer receives the pipeline metrics. Nil disables metrics.
	Registerer prometheus.Registerer
}

// Service drives the table pipeline for each session's files.
type Service struct {
	sessions *SessionStore
	limiter  *WorkLimiter
	metrics  *Metrics

	maxFileSize        int64
	maxFilesPerSession int
	display            DisplayOptions
}

// NewService creates a Service.
func NewService(opts Options) *Service {
	if opts.Display.PreviewRows <= 0 {
		opts.Display.PreviewRows = 5
	}
	if opts.Display.ChartSeries <= 0 {
		opts.Display.ChartSeries = 2
	}

	s := &Service{
		sessions:           NewSessionStore(opts.SessionTTL),
		limiter:            NewWorkLimiter(opts.MaxConcurrent, opts.MaxWait),
		maxFileSize:        opts.MaxFileSize,
		maxFilesPerSession: opts.MaxFilesPerSession,
		display:            opts.Display,
	}
	if opts.Registerer != nil {
		s.metrics = NewMetrics(opts.Registerer, s.sessions)
	}
	return s
}

// Sessions returns the session store.
func (s *Service) Sessions() *SessionStore { return s.sessions }

// Limiter returns the processing limiter.
func (s *Service) Limiter() *WorkLimiter { return s.limiter }

// Display returns the display limits.
func (s *Service) Display() DisplayOptions { return s.display }

// NewSession starts an empty session and returns its ID.
func (s *Service) NewSession() string {
	return s.sessions.Create().ID
}

// Ingest detects and loads every file, in order, into the session. A file
// that fails is reported in its result and never stops the others. A file
// whose name matches one already in the session replaces it.
func (s *Service) Ingest(ctx context.Context, sessionID string, files []UploadedFile) ([]IngestResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	results := make([]IngestResult, 0, len(files))
	for _, f := range files {
		if ctx.Err() != nil {
			results = append(results, IngestResult{FileName: f.Name, Err: ctx.Err()})
			continue
		}
		results = append(results, s.ingestOne(ctx, sess, f))
	}
	return results, nil
}

func (s *Service) ingestOne(ctx context.Context, sess *Session, f UploadedFile) (res IngestResult) {
	logger := logging.WithFields(ctx, "file", f.Name, "client_ip", ClientIPFromContext(ctx))
	start := time.Now()
	res.FileName = f.Name

	format, err := table.DetectFormat(f.Name)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while loading file", "panic", r, "stack", string(debug.Stack()))
			res = IngestResult{FileName: f.Name, Err: fmt.Errorf("load %s: internal error", f.Name)}
		}
		s.metrics.observeIngest(format.String(), start, res.Err)
	}()
	if err != nil {
		logger.Warn("file skipped", "error", err)
		return IngestResult{FileName: f.Name, Err: err}
	}

	size := int64(len(f.Content))
	if s.maxFileSize > 0 && size > s.maxFileSize {
		err := fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, size, s.maxFileSize)
		logger.Warn("file skipped", "error", err)
		return IngestResult{FileName: f.Name, Err: err}
	}

	var tbl *table.Table
	err = s.limiter.Do(ctx, func() error {
		var loadErr error
		tbl, loadErr = table.Load(f.Content, format)
		return loadErr
	})
	if err != nil {
		logger.Warn("file could not be loaded", "format", format.String(), "error", err)
		return IngestResult{FileName: f.Name, Err: err}
	}

	state := &FileState{
		ID:         uuid.New().String(),
		Name:       f.Name,
		Size:       size,
		Format:     format,
		UploadedAt: time.Now(),
		Working:    tbl,
		Target:     table.FormatCSV,
	}

	sess.mu.Lock()
	ok := sess.put(state, s.maxFilesPerSession)
	var summary FileSummary
	if ok {
		summary = state.Summary()
	}
	sess.mu.Unlock()
	if !ok {
		err := fmt.Errorf("%w: limit is %d", ErrTooManyFiles, s.maxFilesPerSession)
		return IngestResult{FileName: f.Name, Err: err}
	}

	logger.Info("file loaded",
		"file_id", state.ID,
		"format", format.String(),
		"rows", tbl.NumRows(),
		"columns", tbl.NumCols(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return IngestResult{FileName: f.Name, File: &summary}
}

// Files returns the session's files in upload order.
func (s *Service) Files(ctx context.Context, sessionID string) ([]FileSummary, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	files := sess.ordered()
	out := make([]FileSummary, len(files))
	for i, f := range files {
		out[i] = f.Summary()
	}
	return out, nil
}

// File returns one file's summary.
func (s *Service) File(ctx context.Context, sessionID, fileID string) (FileSummary, error) {
	var out FileSummary
	err := s.withFile(sessionID, fileID, func(f *FileState) error {
		out = f.Summary()
		return nil
	})
	return out, err
}

// Preview returns the first rows of the file's current view. A non-positive
// rows uses the configured default.
func (s *Service) Preview(ctx context.Context, sessionID, fileID string, rows int) (Preview, error) {
	if rows <= 0 {
		rows = s.display.PreviewRows
	}

	var out Preview
	err := s.withFile(sessionID, fileID, func(f *FileState) error {
		view := f.View()
		out = Preview{
			FileID:    f.ID,
			Columns:   view.Names(),
			Rows:      view.Head(rows),
			TotalRows: view.NumRows(),
		}
		return nil
	})
	return out, err
}

// SetCleaning turns the cleaning controls for a file on or off. Turning them
// off keeps the working table and choices; the column selection stops
// applying until cleaning is enabled again.
func (s *Service) SetCleaning(ctx context.Context, sessionID, fileID string, on bool) (FileSummary, error) {
	var out FileSummary
	err := s.withFile(sessionID, fileID, func(f *FileState) error {
		f.Cleaning = on
		out = f.Summary()
		return nil
	})
	return out, err
}

// RemoveDuplicates drops duplicate rows from the file's working table and
// returns how many were removed.
func (s *Service) RemoveDuplicates(ctx context.Context, sessionID, fileID string) (FileSummary, int, error) {
	var (
		out     FileSummary
		removed int
	)
	err := s.withCleaning(sessionID, fileID, func(f *FileState) error {
		f.Working, removed = table.DropDuplicates(f.Working)
		out = f.Summary()
		return nil
	})
	if err != nil {
		return out, 0, err
	}

	s.metrics.observeCleaning("dedupe")
	logging.WithFields(ctx, "file_id", fileID).
		Info("duplicates removed", "removed", removed, "rows", out.Rows)
	return out, removed, nil
}

// FillMissing replaces missing numeric cells with their column mean and
// returns how many cells were filled.
func (s *Service) FillMissing(ctx context.Context, sessionID, fileID string) (FileSummary, int, error) {
	var (
		out    FileSummary
		filled int
	)
	err := s.withCleaning(sessionID, fileID, func(f *FileState) error {
		f.Working, filled = table.FillMissingMean(f.Working)
		out = f.Summary()
		return nil
	})
	if err != nil {
		return out, 0, err
	}

	s.metrics.observeCleaning("fill_mean")
	logging.WithFields(ctx, "file_id", fileID).
		Info("missing values filled", "filled", filled)
	return out, filled, nil
}

// SelectColumns stores the columns to keep, in order. Names are checked
// against the working table.
func (s *Service) SelectColumns(ctx context.Context, sessionID, fileID string, names []string) (FileSummary, error) {
	var out FileSummary
	err := s.withCleaning(sessionID, fileID, func(f *FileState) error {
		view, err := table.SelectColumns(f.Working, names)
		if err != nil {
			return err
		}
		f.Selected = view.Names()
		out = f.Summary()
		return nil
	})
	if err != nil {
		return out, err
	}

	s.metrics.observeCleaning("select_columns")
	return out, nil
}

// SetShowChart turns the chart for a file on or off.
func (s *Service) SetShowChart(ctx context.Context, sessionID, fileID string, on bool) (FileSummary, error) {
	var out FileSummary
	err := s.withCleaning(sessionID, fileID, func(f *FileState) error {
		f.ShowChart = on
		out = f.Summary()
		return nil
	})
	return out, err
}

// Chart builds bar chart data from the file's current view.
func (s *Service) Chart(ctx context.Context, sessionID, fileID string) (table.Chart, error) {
	var out table.Chart
	err := s.withCleaning(sessionID, fileID, func(f *FileState) error {
		out = table.BuildChart(f.View(), s.display.ChartSeries, s.display.ChartBars)
		return nil
	})
	return out, err
}

// Convert serializes the file's current view in the target format ("csv",
// "xlsx" or "excel"). The chosen target is remembered for the file.
func (s *Service) Convert(ctx context.Context, sessionID, fileID, target string) (*table.Artifact, error) {
	format := table.ParseTarget(target)

	var (
		view *table.Table
		name string
	)
	err := s.withFile(sessionID, fileID, func(f *FileState) error {
		if format != table.FormatUnsupported {
			f.Target = format
		}
		view, name = f.View(), f.Name
		return nil
	})
	if err != nil {
		return nil, err
	}

	var art *table.Artifact
	err = s.limiter.Do(ctx, func() error {
		var exportErr error
		art, exportErr = table.Export(view, format, name)
		return exportErr
	})

	s.metrics.observeExport(format.String(), err)
	logger := logging.WithFields(ctx, "file_id", fileID, "target", format.String())
	if err != nil {
		logger.Warn("conversion failed", "error", err)
		return nil, err
	}
	logger.Info("file converted", "name", art.FileName, "bytes", art.Size())
	return art, nil
}

// RemoveFile drops a file from the session.
func (s *Service) RemoveFile(ctx context.Context, sessionID, fileID string) error {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.remove(fileID)
}

// AddNotice queues a message for the session's next page render.
func (s *Service) AddNotice(sessionID string, n Notice) error {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	sess.notices = append(sess.notices, n)
	sess.mu.Unlock()
	return nil
}

// TakeNotices returns and clears the session's queued messages.
func (s *Service) TakeNotices(sessionID string) []Notice {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := sess.notices
	sess.notices = nil
	return out
}

// withFile runs fn with the session locked.
func (s *Service) withFile(sessionID, fileID string, fn func(*FileState) error) error {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	f, err := sess.file(fileID)
	if err != nil {
		return err
	}
	return fn(f)
}

// withCleaning is withFile for actions that need cleaning enabled.
func (s *Service) withCleaning(sessionID, fileID string, fn func(*FileState) error) error {
	return s.withFile(sessionID, fileID, func(f *FileState) error {
		if !f.Cleaning {
			return ErrCleaningDisabled
		}
		return fn(f)
	})
}
