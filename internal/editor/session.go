// Package editor hosts the per-tab editing state machine: the uploaded image,
// the active effect set, the pending prompt, the current transformation job
// and its history, and the comparison slider.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lumina/internal/catalog"
	"lumina/internal/compare"
	"lumina/internal/domain"
	"lumina/internal/metrics"
	"lumina/internal/poller"
	"lumina/internal/transform"
	"lumina/internal/upload"
)

// DefaultDebounce coalesces bursts of toggles into one recompute.
const DefaultDebounce = 250 * time.Millisecond

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("editor: session closed")

// CatalogSource yields the effect catalog in force. *catalog.Store
// implements it.
type CatalogSource interface {
	Current() *catalog.Catalog
}

// Uploader runs the gated upload. *upload.Client implements it.
type Uploader interface {
	Upload(ctx context.Context, userID string, f upload.File) (*upload.Result, error)
}

// Poller waits for a transformation URL. *poller.Poller implements it.
type Poller interface {
	Poll(ctx context.Context, url string, onProgress poller.ProgressFunc) (poller.Outcome, error)
}

// Config is shared by every session of a Manager.
type Config struct {
	Catalog  CatalogSource
	Uploader Uploader
	Poller   Poller
	// Debounce delays the recompute after a toggle. Zero recomputes
	// immediately.
	Debounce     time.Duration
	HistoryLimit int
	Logger       *zerolog.Logger
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

// Toggle reports what a toggle or prompt submission did.
type Toggle string

const (
	Activated      Toggle = "activated"
	Deactivated    Toggle = "deactivated"
	AwaitingPrompt Toggle = "awaiting_prompt"
)

type inflight struct {
	jobID  string
	key    string
	cancel context.CancelFunc
}

// Session is one editor. All methods are safe for concurrent use.
type Session struct {
	id     string
	owner  string
	cfg    Config
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	baseURL      string
	processedURL string
	effects      transform.EffectSet
	pending      string
	prompts      map[string]string
	trigger      string
	timer        *time.Timer
	timerGen     uint64
	running      *inflight
	rendered     map[string]bool
	tracker      *Tracker
	slider       compare.Slider
	lastUsed     time.Time
	closed       bool
}

func newSession(parent context.Context, id, owner string, cfg Config, logger zerolog.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		id:       id,
		owner:    owner,
		cfg:      cfg,
		logger:   logger.With().Str("session_id", id).Logger(),
		ctx:      ctx,
		cancel:   cancel,
		prompts:  map[string]string{},
		rendered: map[string]bool{},
		tracker:  NewTracker(cfg.HistoryLimit, cfg.Now),
		slider:   compare.NewSlider(),
		lastUsed: cfg.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Owner returns the user the session belongs to.
func (s *Session) Owner() string { return s.owner }

func (s *Session) catalog() *catalog.Catalog {
	return s.cfg.Catalog.Current()
}

func (s *Session) touchLocked() {
	s.lastUsed = s.cfg.Now()
}

// Upload sends f through the gated upload and, on success, makes it the
// working image: effects, pending prompt, current job and slider are reset.
// A failed upload leaves the session untouched.
func (s *Session) Upload(ctx context.Context, f upload.File) (*upload.Result, error) {
	if s.cfg.Uploader == nil {
		return nil, errors.New("editor: uploads are not configured")
	}
	res, err := s.cfg.Uploader.Upload(ctx, s.owner, f)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	s.resetLocked(res.URL)
	s.logger.Info().Str("image_url", res.URL).Msg("image uploaded")
	return res, nil
}

// ClearImage drops the working image and everything derived from it.
func (s *Session) ClearImage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked("")
}

func (s *Session) resetLocked(base string) {
	s.stopTimerLocked()
	s.cancelRunningLocked()
	s.tracker.Reset()
	s.effects.Clear()
	s.pending = ""
	s.prompts = map[string]string{}
	s.trigger = ""
	s.baseURL = base
	s.processedURL = ""
	s.rendered = map[string]bool{}
	s.slider = compare.NewSlider()
	s.touchLocked()
}

// ToggleEffect flips an effect. Active effects are removed at once and the
// displayed URL falls back to the remaining set without a new job. Inactive
// prompt effects wait for SubmitPrompt; others are applied.
func (s *Session) ToggleEffect(id string) (Toggle, error) {
	cat := s.catalog()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrSessionClosed
	}
	if s.baseURL == "" {
		return "", domain.ErrNoImage
	}
	effect, ok := cat.Lookup(id)
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownEffect, id)
	}
	s.touchLocked()

	if s.effects.Has(id) {
		s.effects.Remove(id)
		delete(s.prompts, id)
		url := transform.Combine(cat, s.baseURL, s.effects.IDs(), nil)
		s.processedURL = url
		if s.running != nil && s.running.key != transform.Key(url) {
			jobID := s.running.jobID
			s.cancelRunningLocked()
			s.tracker.Discard(jobID)
			s.logger.Debug().Str("job_id", jobID).Str("effect_id", id).Msg("in-flight job dropped after toggle off")
		}
		return Deactivated, nil
	}
	if effect.AcceptsPrompt {
		s.pending = id
		return AwaitingPrompt, nil
	}
	s.applyLocked(id, "")
	return Activated, nil
}

// SubmitPrompt applies the effect waiting for a prompt.
func (s *Session) SubmitPrompt(text string) (Toggle, error) {
	text = strings.TrimSpace(text)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrSessionClosed
	}
	if s.baseURL == "" {
		return "", domain.ErrNoImage
	}
	if text == "" {
		return "", domain.ErrEmptyPrompt
	}
	if s.pending == "" {
		return "", domain.ErrNoPendingPrompt
	}
	id := s.pending
	s.pending = ""
	s.touchLocked()
	s.applyLocked(id, text)
	return Activated, nil
}

// CancelPrompt leaves the input-pending state without side effects.
func (s *Session) CancelPrompt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = ""
}

func (s *Session) applyLocked(id, prompt string) {
	s.effects.Add(id)
	if prompt != "" {
		s.prompts[id] = prompt
	}
	s.trigger = id
	if s.cfg.Debounce <= 0 {
		s.recomputeLocked()
		return
	}
	s.stopTimerLocked()
	gen := s.timerGen
	s.timer = time.AfterFunc(s.cfg.Debounce, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || gen != s.timerGen {
			return
		}
		s.timer = nil
		s.recomputeLocked()
	})
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
}

// recomputeLocked builds the URL for the whole active set and starts a job
// for it unless that exact URL is already running, or displayed and rendered
// by an earlier job. Prompts are used once and not replayed by later
// recomputes.
func (s *Session) recomputeLocked() {
	ids := s.effects.IDs()
	prompts := s.prompts
	s.prompts = map[string]string{}
	if len(ids) == 0 || s.baseURL == "" {
		return
	}
	url := transform.Combine(s.catalog(), s.baseURL, ids, prompts)
	key := transform.Key(url)
	if s.running != nil && s.running.key == key {
		return
	}
	if s.running == nil && s.processedURL == url && s.rendered[key] {
		return
	}

	trigger := s.trigger
	if !s.effects.Has(trigger) {
		trigger = ids[len(ids)-1]
	}
	s.cancelRunningLocked()
	job := domain.TransformationJob{
		ID:         newJobID(),
		EffectID:   trigger,
		SetKey:     key,
		RequestURL: url,
	}
	s.tracker.Start(job)
	ctx, cancel := context.WithCancel(s.ctx)
	s.running = &inflight{jobID: job.ID, key: key, cancel: cancel}
	s.wg.Add(1)
	go s.run(ctx, job.ID, url)
	s.logger.Info().Str("job_id", job.ID).Str("effect_id", trigger).Str("set_key", key).Msg("transformation job started")
}

func (s *Session) cancelRunningLocked() {
	if s.running != nil {
		s.running.cancel()
		s.running = nil
	}
}

func (s *Session) run(ctx context.Context, jobID, url string) {
	defer s.wg.Done()
	started := s.cfg.Now()

	s.mu.Lock()
	s.tracker.MarkProcessing(jobID)
	s.mu.Unlock()

	outcome, err := s.cfg.Poller.Poll(ctx, url, func(attempts int, progress float64) {
		s.mu.Lock()
		s.tracker.Progress(jobID, attempts, progress)
		s.mu.Unlock()
	})
	cancelled := ctx.Err() != nil

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != nil && s.running.jobID == jobID {
		s.running.cancel()
		s.running = nil
	}
	elapsed := s.cfg.Now().Sub(started).Seconds()
	switch {
	case err == nil:
		job, ok := s.tracker.Complete(jobID, outcome.URL, outcome.TimedOut)
		if !ok {
			return
		}
		s.processedURL = outcome.URL
		s.rendered[job.SetKey] = true
		result := "completed"
		if outcome.TimedOut {
			result = "timed_out"
		}
		s.cfg.Metrics.JobFinished(result, elapsed)
		s.logger.Info().Str("job_id", jobID).Int("attempts", outcome.Attempts).Bool("timed_out", outcome.TimedOut).Msg("transformation job completed")
	case cancelled:
		s.cfg.Metrics.JobFinished("cancelled", elapsed)
		s.logger.Debug().Str("job_id", jobID).Msg("transformation job cancelled")
	default:
		if s.tracker.Fail(jobID) {
			s.cfg.Metrics.JobFinished("error", elapsed)
			s.logger.Warn().Err(err).Str("job_id", jobID).Msg("transformation job failed")
		}
	}
}

func newJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// CurrentJob returns the display projection of the current job.
func (s *Session) CurrentJob() (JobView, bool) {
	cat := s.catalog()
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.tracker.Current()
	if !ok {
		return JobView{}, false
	}
	return View(cat, job), true
}

// History returns completed jobs, newest first.
func (s *Session) History() []JobView {
	cat := s.catalog()
	s.mu.Lock()
	defer s.mu.Unlock()
	return views(cat, s.tracker.History())
}

func views(cat *catalog.Catalog, jobs []domain.TransformationJob) []JobView {
	out := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, View(cat, j))
	}
	return out
}

// Export names the file a processed image is saved as.
type Export struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Format   string `json:"format"`
}

var exportFormats = map[string]bool{"png": true, "jpg": true, "jpeg": true, "webp": true}

// Export returns the processed image URL with a download filename of the
// form Lumina-<unix millis>.<format>.
func (s *Session) Export(format string) (Export, error) {
	format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if format == "" {
		format = "png"
	}
	if !exportFormats[format] {
		return Export{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processedURL == "" {
		return Export{}, domain.ErrNothingToExport
	}
	s.touchLocked()
	return Export{
		URL:      s.processedURL,
		Filename: fmt.Sprintf("Lumina-%d.%s", s.cfg.Now().UnixMilli(), format),
		Format:   format,
	}, nil
}

// SetComparePosition moves the comparison boundary to p percent.
func (s *Session) SetComparePosition(p float64) compare.Slider {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slider.SetPosition(p)
	return s.slider
}

// SetComparePointer moves the boundary to a pointer x coordinate inside a
// view starting at left with the given width.
func (s *Session) SetComparePointer(x, left, width float64) compare.Slider {
	return s.SetComparePosition(compare.PositionFromPointer(x, left, width))
}

// ToggleComparison shows or hides the comparison view. It can only be shown
// while a processed image exists and no job is running.
func (s *Session) ToggleComparison() (compare.Slider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.slider.Visible && (s.processedURL == "" || s.tracker.Processing()) {
		return s.slider, domain.ErrNoComparison
	}
	s.slider.Visible = !s.slider.Visible
	return s.slider, nil
}

// Comparison is the display state of the comparison view.
type Comparison struct {
	compare.Slider
	Original compare.Span `json:"original"`
	Result   compare.Span `json:"result"`
}

// State is a consistent snapshot of a session.
type State struct {
	ID            string     `json:"id"`
	ImageURL      string     `json:"image_url,omitempty"`
	ProcessedURL  string     `json:"processed_url,omitempty"`
	ActiveEffects []string   `json:"active_effects"`
	PendingPrompt string     `json:"pending_prompt,omitempty"`
	Processing    bool       `json:"processing"`
	CurrentJob    *JobView   `json:"current_job,omitempty"`
	History       []JobView  `json:"history"`
	Comparison    Comparison `json:"comparison"`
}

// Snapshot returns the whole session state.
func (s *Session) Snapshot() State {
	cat := s.catalog()
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		ID:            s.id,
		ImageURL:      s.baseURL,
		ProcessedURL:  s.processedURL,
		ActiveEffects: s.effects.IDs(),
		PendingPrompt: s.pending,
		Processing:    s.tracker.Processing(),
		History:       views(cat, s.tracker.History()),
	}
	if st.ActiveEffects == nil {
		st.ActiveEffects = []string{}
	}
	if job, ok := s.tracker.Current(); ok {
		v := View(cat, job)
		st.CurrentJob = &v
	}
	original, result := s.slider.Clip()
	st.Comparison = Comparison{Slider: s.slider, Original: original, Result: result}
	return st
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Close cancels pending work and waits for running pollers to return.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopTimerLocked()
	s.cancelRunningLocked()
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
}
