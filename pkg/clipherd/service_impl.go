package clipherd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	repo    Repository
	blobs   BlobStore
	scraper Scraper
	poster  Poster
	frames  FrameExtractor
	hasher  PerceptualHasher
	sink    EventSink
	logger  *slog.Logger

	index     *DuplicateIndex
	lifecycle *LifecycleManager

	heartbeat     time.Duration
	retryAttempts int
	retryBase     time.Duration
	discoverEvery time.Duration
	retention     RetentionPolicy
	sweepSpec     string
	maxDistance   int
	defaults      AccountSettings
	now           func() time.Time
	randFloat     func() float64

	mu      sync.Mutex
	running bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	sups    map[string]*AccountSupervisor
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the persistence store for the service
func WithRepository(repo Repository) Option {
	return func(s *service) { s.repo = repo }
}

// WithBlobStore sets the blob storage backend
func WithBlobStore(store BlobStore) Option {
	return func(s *service) { s.blobs = store }
}

// WithScraper sets the content discovery collaborator
func WithScraper(scraper Scraper) Option {
	return func(s *service) { s.scraper = scraper }
}

// WithPoster sets the publishing collaborator
func WithPoster(poster Poster) Option {
	return func(s *service) { s.poster = poster }
}

// WithFrameExtractor sets the frame sampling collaborator
func WithFrameExtractor(frames FrameExtractor) Option {
	return func(s *service) { s.frames = frames }
}

// WithPerceptualHasher sets the frame hashing collaborator
func WithPerceptualHasher(hasher PerceptualHasher) Option {
	return func(s *service) { s.hasher = hasher }
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) { s.sink = sink }
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) { s.logger = logger }
}

// WithHeartbeat bounds supervisor sleep between decision points
func WithHeartbeat(d time.Duration) Option {
	return func(s *service) { s.heartbeat = d }
}

// WithInfraRetry tunes retries for repository and blob store operations
func WithInfraRetry(attempts int, base time.Duration) Option {
	return func(s *service) {
		s.retryAttempts = attempts
		s.retryBase = base
	}
}

// WithDiscoveryInterval enables periodic scraper discovery per account.
// Zero disables it; content then arrives only through SubmitDiscovery.
func WithDiscoveryInterval(d time.Duration) Option {
	return func(s *service) { s.discoverEvery = d }
}

// WithRetention sets the lifecycle retention policy
func WithRetention(policy RetentionPolicy) Option {
	return func(s *service) { s.retention = policy }
}

// WithSweepSpec sets the cron spec for the retention sweep
func WithSweepSpec(spec string) Option {
	return func(s *service) { s.sweepSpec = spec }
}

// WithDuplicateDistance sets the exclusive Hamming-distance bound shared by
// the duplicate index
func WithDuplicateDistance(d int) Option {
	return func(s *service) { s.maxDistance = d }
}

// WithDefaultSettings sets the settings applied to accounts registered with
// zero-valued fields
func WithDefaultSettings(settings AccountSettings) Option {
	return func(s *service) { s.defaults = settings }
}

// WithClock replaces the wall clock. Tests use this.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithJitterRand replaces the scheduler jitter source. Tests use this.
func WithJitterRand(f func() float64) Option {
	return func(s *service) { s.randFloat = f }
}

// New creates a new service instance with the given options. The
// repository, blob store, scraper, poster, frame extractor and hasher are
// required; the engine cannot run without them.
func New(options ...Option) (Service, error) {
	s := &service{
		sups: make(map[string]*AccountSupervisor),
		defaults: AccountSettings{
			PostingInterval:    150 * time.Minute,
			JitterFraction:     0.2,
			QueueLowThreshold:  2,
			RejectedLifespan:   DefaultRejectedRetention,
			MaxHammingDistance: DefaultMaxHammingDistance,
		},
	}

	for _, option := range options {
		option(s)
	}

	switch {
	case s.repo == nil:
		return nil, errors.New("repository is required")
	case s.blobs == nil:
		return nil, errors.New("blob store is required")
	case s.scraper == nil:
		return nil, errors.New("scraper is required")
	case s.poster == nil:
		return nil, errors.New("poster is required")
	case s.frames == nil:
		return nil, errors.New("frame extractor is required")
	case s.hasher == nil:
		return nil, errors.New("perceptual hasher is required")
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.sink == nil {
		s.sink = NewNoopEventSink()
	}
	if s.now == nil {
		s.now = time.Now
	}

	// Validate default settings the same way per-account settings are
	// validated: misconfiguration is fatal at construction, never at
	// release time.
	if _, err := NewScheduler(s.defaults.PostingInterval, s.defaults.JitterFraction); err != nil {
		return nil, fmt.Errorf("default settings: %w", err)
	}

	s.index = NewDuplicateIndex(s.maxDistance)
	s.lifecycle = NewLifecycleManager(s.repo, s.blobs, s.index, s.retention, s.logger)

	return s, nil
}

// Account operations

func (s *service) RegisterAccount(ctx context.Context, req RegisterAccountRequest) (*AccountState, error) {
	if req.Account == "" {
		return nil, errors.New("account name is required")
	}

	settings := s.applyDefaultSettings(req.Settings)
	if _, err := NewScheduler(settings.PostingInterval, settings.JitterFraction); err != nil {
		return nil, &AccountError{Account: req.Account, Op: "register", Err: err}
	}
	if settings.QueueLowThreshold < 0 {
		return nil, &AccountError{Account: req.Account, Op: "register",
			Err: errors.New("queue-low threshold cannot be negative")}
	}

	now := s.now()
	state := &AccountState{
		Account:     req.Account,
		Health:      HealthActive,
		LastRelease: now,
		Settings:    settings,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateAccount(ctx, state); err != nil {
		return nil, &AccountError{Account: req.Account, Op: "register", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		if err := s.startSupervisorLocked(state); err != nil {
			return nil, err
		}
	}
	// The supervisor goroutine owns state from here on; hand back a copy.
	out := *state
	return &out, nil
}

func (s *service) applyDefaultSettings(settings AccountSettings) AccountSettings {
	if settings.PostingInterval <= 0 {
		settings.PostingInterval = s.defaults.PostingInterval
		if settings.JitterFraction == 0 {
			settings.JitterFraction = s.defaults.JitterFraction
		}
	}
	if settings.QueueLowThreshold == 0 {
		settings.QueueLowThreshold = s.defaults.QueueLowThreshold
	}
	if settings.RejectedLifespan <= 0 {
		settings.RejectedLifespan = s.defaults.RejectedLifespan
	}
	if settings.MaxHammingDistance <= 0 {
		settings.MaxHammingDistance = s.defaults.MaxHammingDistance
	}
	return settings
}

func (s *service) GetAccount(ctx context.Context, account string) (*AccountState, error) {
	return s.repo.GetAccount(ctx, account)
}

func (s *service) ListAccounts(ctx context.Context) ([]*AccountState, error) {
	return s.repo.ListAccounts(ctx)
}

// Start hydrates the shared duplicate index from the repository, spawns one
// supervisor per registered account, and schedules the retention sweep.
func (s *service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("service already started")
	}

	fps, err := s.repo.ListPublishedFingerprints(ctx)
	if err != nil {
		return fmt.Errorf("hydrate duplicate index: %w", err)
	}
	for _, fp := range fps {
		s.index.Insert(*fp)
	}
	s.logger.Info("duplicate index hydrated", "entries", s.index.Len())

	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.running = true

	for _, state := range accounts {
		if err := s.startSupervisorLocked(state); err != nil {
			s.cancel()
			s.running = false
			return err
		}
	}

	if err := s.lifecycle.Start(s.sweepSpec); err != nil {
		s.cancel()
		s.running = false
		return fmt.Errorf("schedule retention sweep: %w", err)
	}
	return nil
}

func (s *service) startSupervisorLocked(state *AccountState) error {
	if _, ok := s.sups[state.Account]; ok {
		return nil
	}
	sup, err := newAccountSupervisor(state, supervisorDeps{
		repo:          s.repo,
		index:         s.index,
		blobs:         s.blobs,
		scraper:       s.scraper,
		poster:        s.poster,
		frames:        s.frames,
		hasher:        s.hasher,
		lifecycle:     s.lifecycle,
		sink:          s.sink,
		logger:        s.logger,
		heartbeat:     s.heartbeat,
		retryAttempts: s.retryAttempts,
		retryBase:     s.retryBase,
		discoverEvery: s.discoverEvery,
		now:           s.now,
		randFloat:     s.randFloat,
	})
	if err != nil {
		return err
	}
	s.sups[state.Account] = sup

	ctx := s.runContext()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := sup.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("supervisor exited", "account", state.Account, "error", err)
		}
	}()
	return nil
}

// Stop cancels every supervisor, waits for them to finish their current
// decision point, and halts the retention sweep.
func (s *service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.lifecycle.Stop()

	s.mu.Lock()
	s.sups = make(map[string]*AccountSupervisor)
	s.mu.Unlock()
}

// Inbound content

func (s *service) SubmitDiscovery(ctx context.Context, req SubmitDiscoveryRequest) (uuid.UUID, error) {
	if req.SourceRef == "" {
		return uuid.Nil, errors.New("source ref is required")
	}
	cmd := &Command{
		ID:      uuid.New(),
		Account: req.Account,
		Kind:    CommandDiscover,
		Discovery: &Discovery{
			SourceRef:      req.SourceRef,
			OriginalAuthor: req.OriginalAuthor,
			Caption:        req.Caption,
			Hashtags:       req.Hashtags,
		},
	}
	if err := s.submit(ctx, req.Account, cmd); err != nil {
		return uuid.Nil, err
	}
	return cmd.ID, nil
}

// Front-end commands. Each is recorded durably before the supervisor is
// woken, so a crash between the two replays the command instead of losing
// it. All are idempotent requests: replaying one whose effect already
// applied succeeds without further effect.

func (s *service) AcceptItem(ctx context.Context, account string, itemID uuid.UUID) error {
	return s.submit(ctx, account, &Command{
		ID: uuid.New(), Account: account, Kind: CommandAccept, ItemID: itemID,
	})
}

func (s *service) RejectItem(ctx context.Context, account string, itemID uuid.UUID) error {
	return s.submit(ctx, account, &Command{
		ID: uuid.New(), Account: account, Kind: CommandReject, ItemID: itemID,
	})
}

func (s *service) EditItem(ctx context.Context, req EditItemRequest) error {
	return s.submit(ctx, req.Account, &Command{
		ID:      uuid.New(),
		Account: req.Account,
		Kind:    CommandEdit,
		ItemID:  req.ItemID,
		Caption: req.Caption, Hashtags: req.Hashtags,
	})
}

func (s *service) ResumeAccount(ctx context.Context, account string) error {
	return s.submit(ctx, account, &Command{
		ID: uuid.New(), Account: account, Kind: CommandResume,
	})
}

func (s *service) PauseAccount(ctx context.Context, account string) error {
	return s.submit(ctx, account, &Command{
		ID: uuid.New(), Account: account, Kind: CommandPause,
	})
}

func (s *service) submit(ctx context.Context, account string, cmd *Command) error {
	state, err := s.repo.GetAccount(ctx, account)
	if err != nil {
		return err
	}
	// A halted account takes nothing but the operator's resume.
	if state.Halted && cmd.Kind != CommandResume {
		return ErrAccountHalted
	}
	cmd.CreatedAt = s.now()
	if err := s.repo.EnqueueCommand(ctx, cmd); err != nil {
		return &AccountError{Account: account, Op: "submit " + string(cmd.Kind), Err: err}
	}

	s.mu.Lock()
	sup, ok := s.sups[account]
	s.mu.Unlock()
	if ok {
		sup.Wake()
	}
	return nil
}

// Read-only views

func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*ContentItem, error) {
	return s.repo.GetItem(ctx, id)
}

// QueueSnapshot reads entirely from the repository, so it never touches
// supervisor-owned state from the caller's goroutine.
func (s *service) QueueSnapshot(ctx context.Context, account string) (*QueueSnapshot, error) {
	state, err := s.repo.GetAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	pending, err := s.repo.ListItems(ctx, account, ItemStatusPendingReview)
	if err != nil {
		return nil, err
	}
	queued, err := s.repo.ListItems(ctx, account, ItemStatusQueued, ItemStatusPosting)
	if err != nil {
		return nil, err
	}

	snap := &QueueSnapshot{
		Account:        account,
		Health:         state.Health,
		Paused:         state.Paused,
		PendingReview:  pending,
		Queued:         queued,
		RemainingItems: len(pending) + len(queued),
	}
	snap.QueueLow = state.Settings.QueueLowThreshold > 0 &&
		snap.RemainingItems <= state.Settings.QueueLowThreshold

	if state.Health == HealthActive {
		for _, it := range queued {
			if it.ReleaseAt != nil {
				until := it.ReleaseAt.Sub(s.now())
				if until < 0 {
					until = 0
				}
				snap.NextReleaseIn = &until
				break
			}
		}
	}
	return snap, nil
}

func (s *service) runContext() context.Context {
	if s.runCtx == nil {
		return context.Background()
	}
	return s.runCtx
}
