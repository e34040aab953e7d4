package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mikey/ela-assistant/internal/adapters/cache"
	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/lexicon"
	"github.com/mikey/ela-assistant/internal/metrics"
	"github.com/mikey/ela-assistant/internal/skiplist"
	"github.com/mikey/ela-assistant/internal/utils"
	"go.uber.org/zap"
)

// Cache namespaces, also used as fingerprint prefixes
const (
	NamespaceAnalysis    = "analysis"
	NamespaceTranslation = "translation"
	NamespaceDictionary  = "dictionary"
)

var (
	// ErrDisabled is returned when the feature is switched off in settings
	ErrDisabled = errors.New("feature disabled in settings")
	// ErrSkipped is returned for words that are never looked up
	ErrSkipped = errors.New("word is not eligible for lookup")
)

// Mode is how page analysis is fetched
type Mode int

const (
	// ModeBulk prefetches every unit of a page through the scheduler
	ModeBulk Mode = iota
	// ModeOnDemand fetches single units as the reader asks for them
	ModeOnDemand
)

func (m Mode) String() string {
	if m == ModeOnDemand {
		return "on_demand"
	}
	return "bulk"
}

// Callbacks receive results for presentation. Any of them may be nil.
type Callbacks struct {
	OnResult          func(unitID string, res *core.Result)
	OnSessionComplete func(succeeded, total int)
	OnNotice          func(message string)
}

// Caches are the three result namespaces
type Caches struct {
	Analysis    core.CacheRepository
	Translation core.CacheRepository
	Dictionary  core.CacheRepository
}

// Deps are the collaborators of an Orchestrator
type Deps struct {
	Sender    core.Sender
	Caches    Caches
	Skip      *skiplist.Checker
	Text      *utils.TextProcessor
	Callbacks Callbacks
	Logger    *zap.Logger
}

// Orchestrator owns the request pipeline of one page: caches, in-flight
// dedup, the remote client, liveness and the session scheduler.
type Orchestrator struct {
	client    *RemoteClient
	tracker   *Tracker
	monitor   *Monitor
	scheduler *Scheduler
	caches    Caches
	skip      *skiplist.Checker
	text      *utils.TextProcessor
	callbacks Callbacks
	logger    *zap.Logger

	// one bulk session at a time
	session sync.Mutex

	mu       sync.RWMutex
	settings core.Settings
	mode     Mode
}

// New creates an orchestrator
func New(cfg Config, settings core.Settings, deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	text := deps.Text
	if text == nil {
		text = utils.NewTextProcessor(logger)
	}

	tracker := NewTracker(logger)
	monitor := NewMonitor(deps.Sender.Alive, tracker, logger)
	monitor.OnNotice(deps.Callbacks.OnNotice)

	return &Orchestrator{
		client:    NewRemoteClient(deps.Sender, cfg, logger),
		tracker:   tracker,
		monitor:   monitor,
		scheduler: NewScheduler(cfg, monitor, logger),
		caches:    deps.Caches,
		skip:      deps.Skip,
		text:      text,
		callbacks: deps.Callbacks,
		logger:    logger,
		settings:  settings,
	}
}

// Settings returns the current settings snapshot
func (o *Orchestrator) Settings() core.Settings {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.settings
}

// UpdateSettings replaces the settings; a running session keeps its snapshot
func (o *Orchestrator) UpdateSettings(s core.Settings) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.settings = s
}

// Mode reports whether analysis is prefetched or fetched on demand
func (o *Orchestrator) Mode() Mode {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.mode
}

func (o *Orchestrator) setMode(m Mode) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.mode != m {
		o.logger.Info("Switching analysis mode", zap.Stringer("mode", m))
	}
	o.mode = m
}

// Monitor exposes the liveness monitor, e.g. to re-arm it after reconnecting
func (o *Orchestrator) Monitor() *Monitor {
	return o.monitor
}

// Scheduler exposes the session scheduler for state inspection
func (o *Orchestrator) Scheduler() *Scheduler {
	return o.scheduler
}

// AnalyzePage extracts the page's units once and streams them through the
// scheduler. A session where nothing succeeds switches to on-demand mode.
func (o *Orchestrator) AnalyzePage(ctx context.Context, source core.PageSource) (Summary, error) {
	settings := o.Settings()
	if !settings.POSTagging {
		return Summary{}, ErrDisabled
	}

	o.session.Lock()
	defer o.session.Unlock()

	if !o.monitor.IsValid() {
		return Summary{Reason: ReasonInvalidated}, core.NewRemoteError(core.ChannelClosed,
			string(core.OpAnalyzeParagraph), core.ErrChannelClosed)
	}

	units, err := source.ExtractWorkUnits(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to extract work units: %w", err)
	}

	sum := o.scheduler.Run(ctx, units, o.AnalyzeUnit, func(unit core.WorkUnit, res *core.Result) {
		if o.callbacks.OnResult != nil {
			o.callbacks.OnResult(unit.ID, res)
		}
	})

	if sum.Degraded {
		o.setMode(ModeOnDemand)
	} else if sum.Succeeded > 0 {
		o.setMode(ModeBulk)
	}

	if o.callbacks.OnSessionComplete != nil {
		o.callbacks.OnSessionComplete(sum.Succeeded, sum.Total)
	}
	return sum, nil
}

// AnalyzeUnit analyzes one unit through the cache and the in-flight tracker
func (o *Orchestrator) AnalyzeUnit(ctx context.Context, unit core.WorkUnit) (*core.Result, error) {
	text := o.text.NormalizeParagraph(unit.Text)
	if text == "" {
		return core.EmptyAnalysis(), nil
	}
	key := utils.Fingerprint(NamespaceAnalysis, text)

	if res, ok := o.cached(ctx, o.caches.Analysis, NamespaceAnalysis, key); ok && res != nil {
		return res, nil
	}

	if !o.monitor.IsValid() {
		return nil, core.NewRemoteError(core.ChannelClosed, string(core.OpAnalyzeParagraph), core.ErrChannelClosed)
	}

	res, _, err := o.tracker.AcquireOrJoin(ctx, key, func(ctx context.Context) (*core.Result, error) {
		res, err := o.client.Call(ctx, core.AnalyzeParagraphRequest{Text: text})
		if err != nil {
			return nil, err
		}
		if a := res.Analysis; len(a.Words) > 0 || len(a.Phrases) > 0 {
			o.store(ctx, o.caches.Analysis, key, res)
		}
		return res, nil
	})
	return res, o.observe(err)
}

// LookupWord returns the definition of word. A nil definition with a nil
// error means the dictionary does not know the word.
func (o *Orchestrator) LookupWord(ctx context.Context, word string) (*core.DictionaryDefinition, error) {
	if !o.Settings().Dictionary {
		return nil, ErrDisabled
	}

	w := o.text.NormalizeWord(word)
	if o.skip.IsSkipped(w) || !lexicon.IsEnglishWord(w) {
		return nil, ErrSkipped
	}
	key := utils.Fingerprint(NamespaceDictionary, w)

	if res, ok := o.cached(ctx, o.caches.Dictionary, NamespaceDictionary, key); ok {
		if res == nil {
			return nil, nil
		}
		return res.Definition, nil
	}

	if !o.monitor.IsValid() {
		return nil, core.NewRemoteError(core.ChannelClosed, string(core.OpLookupWord), core.ErrChannelClosed)
	}

	res, _, err := o.tracker.AcquireOrJoin(ctx, key, func(ctx context.Context) (*core.Result, error) {
		res, err := o.client.Call(ctx, core.LookupWordRequest{Word: w})
		if err != nil {
			return nil, err
		}
		if res.Definition == nil {
			o.store(ctx, o.caches.Dictionary, key, nil)
		} else {
			o.store(ctx, o.caches.Dictionary, key, res)
		}
		return res, nil
	})
	if err != nil {
		return nil, o.observe(err)
	}
	return res.Definition, nil
}

// TranslateParagraph translates text, reusing translations younger than the
// translation cache TTL.
func (o *Orchestrator) TranslateParagraph(ctx context.Context, text string) (*core.Translation, error) {
	if !o.Settings().Translation {
		return nil, ErrDisabled
	}

	normalized := o.text.NormalizeParagraph(text)
	if normalized == "" {
		return nil, ErrSkipped
	}
	key := utils.Fingerprint(NamespaceTranslation, normalized)

	if res, ok := o.cached(ctx, o.caches.Translation, NamespaceTranslation, key); ok && res != nil {
		return res.Translation, nil
	}

	if !o.monitor.IsValid() {
		return nil, core.NewRemoteError(core.ChannelClosed, string(core.OpTranslateText), core.ErrChannelClosed)
	}

	res, _, err := o.tracker.AcquireOrJoin(ctx, key, func(ctx context.Context) (*core.Result, error) {
		res, err := o.client.Call(ctx, core.TranslateTextRequest{Text: normalized})
		if err != nil {
			return nil, err
		}
		o.store(ctx, o.caches.Translation, key, res)
		return res, nil
	})
	if err != nil {
		return nil, o.observe(err)
	}
	return res.Translation, nil
}

// cached looks key up; ok is false on a miss or a cache failure
func (o *Orchestrator) cached(ctx context.Context, repo core.CacheRepository, namespace, key string) (*core.Result, bool) {
	if repo == nil {
		return nil, false
	}
	entry, err := repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			o.logger.Warn("Cache lookup failed", zap.String("namespace", namespace), zap.Error(err))
		}
		metrics.RecordCacheLookup(namespace, false)
		return nil, false
	}
	metrics.RecordCacheLookup(namespace, true)
	return entry.Value, true
}

func (o *Orchestrator) store(ctx context.Context, repo core.CacheRepository, key string, res *core.Result) {
	if repo == nil {
		return
	}
	if err := repo.Put(ctx, key, res); err != nil {
		o.logger.Warn("Failed to cache result", zap.String("key", key), zap.Error(err))
	}
}

// observe invalidates the context when a single-item call finds the channel gone
func (o *Orchestrator) observe(err error) error {
	if err != nil && core.KindOf(err) == core.ChannelClosed {
		o.monitor.Invalidate(err)
	}
	return err
}
