package clipherd

import (
	"bytes"
	"context"
	"image"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeRepo is an in-memory Repository for tests, with per-operation error
// injection.
type fakeRepo struct {
	mu           sync.Mutex
	items        map[uuid.UUID]*ContentItem
	accounts     map[string]*AccountState
	fingerprints map[string]*PublishedFingerprint
	commands     []*Command

	updateItemErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		items:        make(map[uuid.UUID]*ContentItem),
		accounts:     make(map[string]*AccountState),
		fingerprints: make(map[string]*PublishedFingerprint),
	}
}

func (r *fakeRepo) CreateItem(ctx context.Context, item *ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *fakeRepo) GetItem(ctx context.Context, id uuid.UUID) (*ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, ErrItemNotFound
	}
	cp := *item
	return &cp, nil
}

func (r *fakeRepo) UpdateItem(ctx context.Context, item *ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateItemErr != nil {
		return r.updateItemErr
	}
	if _, ok := r.items[item.ID]; !ok {
		return ErrItemNotFound
	}
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *fakeRepo) ListItems(ctx context.Context, account string, statuses ...ItemStatus) ([]*ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*ContentItem
	for _, item := range r.items {
		if item.Account != account {
			continue
		}
		if len(statuses) > 0 {
			match := false
			for _, st := range statuses {
				if item.Status == st {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		cp := *item
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DiscoveredAt.Before(out[j].DiscoveredAt)
	})
	return out, nil
}

func (r *fakeRepo) PurgeItem(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return ErrItemNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeRepo) CreateAccount(ctx context.Context, state *AccountState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[state.Account]; ok {
		return ErrAccountExists
	}
	cp := *state
	r.accounts[state.Account] = &cp
	return nil
}

func (r *fakeRepo) GetAccount(ctx context.Context, account string) (*AccountState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.accounts[account]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *state
	return &cp, nil
}

func (r *fakeRepo) UpdateAccount(ctx context.Context, state *AccountState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[state.Account]; !ok {
		return ErrAccountNotFound
	}
	cp := *state
	r.accounts[state.Account] = &cp
	return nil
}

func (r *fakeRepo) ListAccounts(ctx context.Context) ([]*AccountState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*AccountState
	for _, state := range r.accounts {
		cp := *state
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account < out[j].Account })
	return out, nil
}

func (r *fakeRepo) AddPublishedFingerprint(ctx context.Context, fp *PublishedFingerprint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.fingerprints[fp.SourceRef]; ok {
		return nil
	}
	cp := *fp
	r.fingerprints[fp.SourceRef] = &cp
	return nil
}

func (r *fakeRepo) ListPublishedFingerprints(ctx context.Context) ([]*PublishedFingerprint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*PublishedFingerprint
	for _, fp := range r.fingerprints {
		cp := *fp
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeRepo) DeletePublishedFingerprintsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for ref, fp := range r.fingerprints {
		if fp.PublishedAt.Before(cutoff) {
			delete(r.fingerprints, ref)
			removed++
		}
	}
	return removed, nil
}

func (r *fakeRepo) EnqueueCommand(ctx context.Context, cmd *Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.commands {
		if c.ID == cmd.ID {
			return nil
		}
	}
	cp := *cmd
	if cmd.Discovery != nil {
		d := *cmd.Discovery
		cp.Discovery = &d
	}
	r.commands = append(r.commands, &cp)
	return nil
}

func (r *fakeRepo) PendingCommands(ctx context.Context, account string) ([]*Command, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Command
	for _, c := range r.commands {
		if c.Account == account {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) CompleteCommand(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.commands {
		if c.ID == id {
			r.commands = append(r.commands[:i], r.commands[i+1:]...)
			return nil
		}
	}
	return ErrCommandNotFound
}

// fakeBlobs is an in-memory BlobStore for tests.
type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (b *fakeBlobs) Upload(ctx context.Context, key string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return nil
}

func (b *fakeBlobs) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, &StorageError{Key: key, Op: "download", Err: io.EOF}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBlobs) GetDownloadURL(ctx context.Context, key string) (string, error) {
	return "blob://" + key, nil
}

func (b *fakeBlobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func (b *fakeBlobs) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok
}

// fakeScraper serves fetches from a payload map.
type fakeScraper struct {
	mu          sync.Mutex
	payloads    map[string][]byte
	fetchErr    error
	discoverErr error
	discoverOut []RawContent
	probes      int
}

func newFakeScraper() *fakeScraper {
	return &fakeScraper{payloads: make(map[string][]byte)}
}

func (s *fakeScraper) Discover(ctx context.Context, account string) ([]RawContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probes++
	if s.discoverErr != nil {
		return nil, s.discoverErr
	}
	return s.discoverOut, nil
}

func (s *fakeScraper) Fetch(ctx context.Context, ref string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	data, ok := s.payloads[ref]
	if !ok {
		data = []byte(ref)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// fakePoster records publishes and fails with err until cleared.
type fakePoster struct {
	mu       sync.Mutex
	err      error
	captions []string
}

func (p *fakePoster) Publish(ctx context.Context, account string, video io.Reader, caption string) error {
	if _, err := io.Copy(io.Discard, video); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.captions = append(p.captions, caption)
	return nil
}

func (p *fakePoster) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *fakePoster) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.captions...)
}

// fakeFrames turns the blob bytes into one 1x1 gray frame per sample. The
// same payload always yields the same frames.
type fakeFrames struct {
	sampleErr error
	short     bool
}

func (f fakeFrames) Sample(ctx context.Context, video io.Reader) ([]image.Image, error) {
	if f.sampleErr != nil {
		return nil, f.sampleErr
	}
	data, err := io.ReadAll(video)
	if err != nil {
		return nil, err
	}
	n := FrameSamples
	if f.short {
		n = FrameSamples - 1
	}
	frames := make([]image.Image, n)
	for i := range frames {
		img := image.NewGray(image.Rect(0, 0, 1, 1))
		if len(data) > 0 {
			img.Pix[0] = data[i%len(data)]
		}
		frames[i] = img
	}
	return frames, nil
}

// fakeHasher maps a 1x1 gray frame to its pixel value, so tests control
// Hamming distances through payload bytes.
type fakeHasher struct{}

func (fakeHasher) Hash(img image.Image) Fingerprint {
	g, ok := img.(*image.Gray)
	if !ok || len(g.Pix) == 0 {
		return 0
	}
	return Fingerprint(g.Pix[0])
}

// recordingSink records every event it receives.
type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingSink) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

func (r *recordingSink) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recordingSink) count(name string) int {
	n := 0
	for _, e := range r.names() {
		if e == name {
			n++
		}
	}
	return n
}

func (r *recordingSink) ItemPendingReview(ctx context.Context, item *ContentItem, previewURL string) error {
	r.record("pending_review")
	return nil
}

func (r *recordingSink) ItemPosted(ctx context.Context, item *ContentItem) error {
	r.record("posted")
	return nil
}

func (r *recordingSink) ItemRejected(ctx context.Context, item *ContentItem, duplicate bool) error {
	if duplicate {
		r.record("rejected_duplicate")
	} else {
		r.record("rejected")
	}
	return nil
}

func (r *recordingSink) ItemFailed(ctx context.Context, item *ContentItem) error {
	r.record("failed")
	return nil
}

func (r *recordingSink) QueueLow(ctx context.Context, account string, remaining int) error {
	r.record("queue_low")
	return nil
}

func (r *recordingSink) AccountNeedsResume(ctx context.Context, account, reason string) error {
	r.record("needs_resume")
	return nil
}

func (r *recordingSink) AccountResumed(ctx context.Context, account string) error {
	r.record("resumed")
	return nil
}

func (r *recordingSink) AccountHalted(ctx context.Context, account string, err error) error {
	r.record("halted")
	return nil
}
