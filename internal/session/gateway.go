// Package session bridges one client's in-memory ledger and weight series to
// the identity service and the document store.
//
// A Gateway follows its client's auth state: a principal appearing triggers a
// document load, a principal disappearing flushes pending writes and clears
// everything. Mutations apply to memory synchronously and are persisted by a
// debounced write-back. Profile edits are the exception and are written
// through before memory changes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/caltrack/internal/apperr"
	"github.com/mmynk/caltrack/internal/auth"
	"github.com/mmynk/caltrack/internal/calendar"
	"github.com/mmynk/caltrack/internal/energy"
	"github.com/mmynk/caltrack/internal/ledger"
	"github.com/mmynk/caltrack/internal/metrics"
	"github.com/mmynk/caltrack/internal/models"
	"github.com/mmynk/caltrack/internal/storage"
	"github.com/mmynk/caltrack/internal/weight"
)

// State is the gateway's view of its client.
type State int

const (
	SignedOut State = iota
	Loading
	SignedIn
	// NoProfile is signed in with no stored document yet.
	NoProfile
)

func (s State) String() string {
	switch s {
	case SignedOut:
		return "signed_out"
	case Loading:
		return "loading"
	case SignedIn:
		return "signed_in"
	case NoProfile:
		return "no_profile"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	ErrSignedOut     = errors.New("not signed in")
	ErrLoading       = errors.New("session is still loading")
	ErrNoProfile     = errors.New("profile has not been created")
	ErrProfileExists = errors.New("profile already exists")
)

// IdentitySource is the auth-state feed a Gateway follows.
type IdentitySource interface {
	Subscribe(fn func(*auth.Principal)) (unsubscribe func())
}

// Config holds a Gateway's collaborators.
type Config struct {
	Store storage.DocumentStore
	Clock calendar.Clock

	// Debounce is the write-back quiet period. Zero means DefaultDebounce.
	Debounce time.Duration
	// FlushTimeout bounds sign-out flushes and each background write.
	FlushTimeout time.Duration
	// LoadTimeout bounds each document load.
	LoadTimeout time.Duration

	// OnError observes background failures (loads and write-backs). It may
	// be called with the gateway locked and must not call back into it.
	OnError func(op string, err error)
	Logger  *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Clock == nil {
		c.Clock = calendar.System(nil)
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = 5 * time.Second
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// NewProfile is the registration form submitted from NoProfile.
type NewProfile struct {
	Name          string
	Age           int
	Sex           energy.Sex
	Weight        float64
	Height        float64
	ActivityLevel energy.ActivityLevel
}

// Gateway owns one client's session state.
type Gateway struct {
	cfg       Config
	writeback *WriteBack

	profileMu sync.Mutex // serialises UpdateProfile

	mu        sync.Mutex
	state     State
	busy      bool // a load or sign-out flush is in progress
	gen       uint64
	rev       uint64 // bumped by every scheduled write-back
	principal *auth.Principal
	profile   models.Profile
	ledger    *ledger.Ledger
	series    *weight.Series
	loadErr   error
	changed   chan struct{}

	unsubscribe func()
}

// New creates a signed-out gateway and subscribes it to identity.
func New(cfg Config, identity IdentitySource) *Gateway {
	cfg = cfg.withDefaults()
	g := &Gateway{
		cfg:     cfg,
		state:   SignedOut,
		changed: make(chan struct{}),
	}
	g.writeback = NewWriteBack(cfg.Clock, cfg.Debounce, cfg.FlushTimeout, g.persist, func(err error) {
		g.report("write-back", err)
	})
	g.unsubscribe = identity.Subscribe(g.onAuth)
	return g
}

// Close stops following the identity and flushes any pending write.
func (g *Gateway) Close(ctx context.Context) error {
	g.unsubscribe()
	return g.writeback.FlushNow(ctx)
}

// State returns the current state.
func (g *Gateway) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Principal returns the signed-in principal, or nil.
func (g *Gateway) Principal() *auth.Principal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.principal
}

// WaitSettled blocks until no load or sign-out flush is running. It returns
// the resulting state and, when stuck in Loading, the load error.
func (g *Gateway) WaitSettled(ctx context.Context) (State, error) {
	return g.wait(ctx, func() bool { return !g.busy })
}

// Await blocks until the gateway has caught up with principal uid ("" for
// signed out) and settled.
func (g *Gateway) Await(ctx context.Context, uid string) (State, error) {
	return g.wait(ctx, func() bool {
		return !g.busy && g.principalUIDLocked() == uid
	})
}

func (g *Gateway) wait(ctx context.Context, done func() bool) (State, error) {
	for {
		g.mu.Lock()
		if done() {
			state, err := g.state, g.loadErr
			g.mu.Unlock()
			return state, err
		}
		ch := g.changed
		g.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return g.State(), ctx.Err()
		}
	}
}

// Reload retries a failed load. It is a no-op unless the gateway is stuck
// in Loading.
func (g *Gateway) Reload(ctx context.Context) (State, error) {
	g.mu.Lock()
	if g.state != Loading || g.busy || g.principal == nil {
		g.mu.Unlock()
		return g.WaitSettled(ctx)
	}
	g.gen++
	gen, p := g.gen, g.principal
	g.busy = true
	g.loadErr = nil
	g.notifyLocked()
	g.mu.Unlock()

	go g.load(gen, p)
	return g.WaitSettled(ctx)
}

func (g *Gateway) onAuth(p *auth.Principal) {
	g.mu.Lock()
	current := g.principalUIDLocked()
	if p != nil && p.UID == current && g.state != SignedOut {
		// Same user re-announced; keep unsaved memory.
		g.principal = p
		g.mu.Unlock()
		return
	}
	if p == nil && current == "" {
		g.mu.Unlock()
		return
	}

	g.gen++
	gen := g.gen
	g.busy = true
	g.loadErr = nil
	if p == nil {
		g.state = SignedOut
	} else {
		g.state = Loading
	}
	g.principal = p
	g.clearLocked()
	g.notifyLocked()
	g.mu.Unlock()

	// Pending changes belong to the previous principal; write them before
	// anything else happens.
	if current != "" {
		ctx, cancel := context.WithTimeout(context.Background(), g.cfg.FlushTimeout)
		if err := g.writeback.FlushNow(ctx); err != nil {
			g.cfg.Logger.Warn("Sign-out flush failed", "uid", current, "error", err)
		}
		cancel()
	}

	if p == nil {
		g.mu.Lock()
		if g.gen == gen {
			g.busy = false
			g.notifyLocked()
		}
		g.mu.Unlock()
		g.cfg.Logger.Info("Session signed out", "uid", current)
		return
	}

	go g.load(gen, p)
}

func (g *Gateway) load(gen uint64, p *auth.Principal) {
	ctx, cancel := context.WithTimeout(context.Background(), g.cfg.LoadTimeout)
	defer cancel()

	doc, err := g.cfg.Store.Get(ctx, models.UsersCollection, p.UID)

	var stored models.UserDocument
	if err == nil {
		err = storage.Decode(doc, &stored)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if gen != g.gen {
		metrics.DocumentLoads.WithLabelValues(metrics.ResultStale).Inc()
		return
	}
	defer g.notifyLocked()

	switch {
	case errors.Is(err, storage.ErrNotFound):
		metrics.DocumentLoads.WithLabelValues(metrics.ResultMissing).Inc()
		g.state = NoProfile
		g.busy = false
		g.cfg.Logger.Info("Session signed in without profile", "uid", p.UID)
	case err != nil:
		metrics.DocumentLoads.WithLabelValues(metrics.ResultError).Inc()
		g.busy = false
		g.loadErr = storage.Classify("load document", err)
		g.report("load", g.loadErr)
	default:
		metrics.DocumentLoads.WithLabelValues(metrics.ResultOK).Inc()
		profile := stored.Profile
		if err := profile.Recompute(); err != nil {
			g.cfg.Logger.Warn("Stored profile fails validation, keeping stored target", "uid", p.UID, "error", err)
		}
		g.profile = profile
		g.ledger = ledger.New(g.cfg.Clock, stored.DailyLogs)
		g.series = weight.New(g.cfg.Clock, stored.WeightEntries)
		g.state = SignedIn
		g.busy = false
		g.cfg.Logger.Info("Session loaded",
			"uid", p.UID,
			"days", len(stored.DailyLogs),
			"weights", len(stored.WeightEntries),
		)
	}
}

// persist merges a write-back snapshot into the user document.
func (g *Gateway) persist(ctx context.Context, snap Snapshot) error {
	err := g.cfg.Store.Update(ctx, models.UsersCollection, snap.UID, snap.Fields)
	return storage.Classify("write-back", err)
}

// scheduleLocked captures the mutable parts of the session for write-back.
func (g *Gateway) scheduleLocked() {
	fields, err := storage.Fields(map[string]any{
		"dailyLogs":         g.ledger.Snapshot(),
		"weightEntries":     g.series.Entries(),
		"weight":            g.profile.Weight,
		"dailyEnergyTarget": g.profile.DailyEnergyTarget,
		"lastUpdated":       g.cfg.Clock.Now(),
	})
	if err != nil {
		g.report("snapshot", err)
		return
	}
	g.rev++
	g.writeback.Schedule(Snapshot{UID: g.principal.UID, Fields: fields})
}

func (g *Gateway) requireLocked(want State) error {
	if g.state == want {
		return nil
	}
	switch g.state {
	case SignedOut:
		return ErrSignedOut
	case Loading:
		if g.loadErr != nil {
			return fmt.Errorf("%w: %w", ErrLoading, g.loadErr)
		}
		return ErrLoading
	case NoProfile:
		return ErrNoProfile
	default:
		return ErrProfileExists
	}
}

func (g *Gateway) clearLocked() {
	g.profile = models.Profile{}
	g.ledger = nil
	g.series = nil
}

func (g *Gateway) principalUIDLocked() string {
	if g.principal == nil {
		return ""
	}
	return g.principal.UID
}

func (g *Gateway) notifyLocked() {
	close(g.changed)
	g.changed = make(chan struct{})
}

func (g *Gateway) report(op string, err error) {
	g.cfg.Logger.Error("Session background failure", "op", op, "error", err)
	if g.cfg.OnError != nil {
		g.cfg.OnError(op, err)
	}
}

// AddFood logs an entry on day (today when zero).
func (g *Gateway) AddFood(day calendar.Day, in models.NewFoodEntry) (models.FoodEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.requireLocked(SignedIn); err != nil {
		return models.FoodEntry{}, err
	}
	entry, err := g.ledger.Add(day, in)
	if err != nil {
		return models.FoodEntry{}, err
	}
	g.scheduleLocked()
	return entry, nil
}

// RemoveFood deletes an entry. Removing a missing entry is not an error.
func (g *Gateway) RemoveFood(id string, day calendar.Day) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.requireLocked(SignedIn); err != nil {
		return false, err
	}
	removed := g.ledger.Remove(id, day)
	if removed {
		g.scheduleLocked()
	}
	return removed, nil
}

// ClearLog deletes the whole log of day.
func (g *Gateway) ClearLog(day calendar.Day) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.requireLocked(SignedIn); err != nil {
		return err
	}
	g.ledger.Clear(day)
	g.scheduleLocked()
	return nil
}

// AddWeight records a measurement. The profile weight follows it, and so
// does the daily target.
func (g *Gateway) AddWeight(w float64) (models.WeightEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.requireLocked(SignedIn); err != nil {
		return models.WeightEntry{}, err
	}
	entry, err := g.series.Add(w)
	if err != nil {
		return models.WeightEntry{}, err
	}
	g.profile.Weight = w
	if err := g.profile.Recompute(); err != nil {
		g.cfg.Logger.Warn("Target not recomputed after weight change", "error", err)
	}
	g.scheduleLocked()
	return entry, nil
}

// UpdateProfile writes the edited fields through to the store and only then
// applies them in memory. The store write runs without holding the session
// lock; concurrent profile edits are serialised.
func (g *Gateway) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (models.Profile, error) {
	g.profileMu.Lock()
	defer g.profileMu.Unlock()

	g.mu.Lock()
	if err := g.requireLocked(SignedIn); err != nil {
		g.mu.Unlock()
		return models.Profile{}, err
	}
	next, err := validateUpdate(upd, g.profile)
	gen, rev, uid := g.gen, g.rev, g.principal.UID
	now := g.cfg.Clock.Now()
	g.mu.Unlock()
	if err != nil {
		return models.Profile{}, err
	}

	fields, err := storage.Fields(profileFields(upd, next, now))
	if err != nil {
		return models.Profile{}, err
	}
	// Snapshots taken before the edit carry the old weight and target and
	// must land before it. Flush failures are reported by the write-back.
	if err := g.writeback.FlushNow(ctx); err != nil {
		g.cfg.Logger.Debug("Flush before profile update failed", "uid", uid, "error", err)
	}
	if err := g.cfg.Store.Update(ctx, models.UsersCollection, uid, fields); err != nil {
		return models.Profile{}, storage.Classify("update profile", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen != gen {
		// Signed out or reloaded meanwhile; the next load reads the stored edit.
		return models.Profile{}, ErrSignedOut
	}
	if g.rev != rev {
		// Mutations ran during the write. Their snapshots may hold the old
		// target, so reapply on top of them and schedule the merged state.
		if merged, err := upd.Apply(g.profile); err == nil {
			next = merged
		}
		g.profile = next
		if upd.TouchesTarget() {
			g.scheduleLocked()
		}
		return next, nil
	}
	g.profile = next
	return next, nil
}

func validateUpdate(upd models.ProfileUpdate, current models.Profile) (models.Profile, error) {
	if upd.Name != nil && *upd.Name == "" {
		return models.Profile{}, apperr.Invalid("name must not be empty")
	}
	next, err := upd.Apply(current)
	if err != nil {
		return models.Profile{}, err
	}
	if upd.TouchesTarget() {
		if err := energy.ValidateBody(next.Age, next.Weight, next.Height); err != nil {
			return models.Profile{}, err
		}
	}
	return next, nil
}

func profileFields(upd models.ProfileUpdate, p models.Profile, now time.Time) map[string]any {
	fields := map[string]any{"lastUpdated": now}
	if upd.Name != nil {
		fields["name"] = p.Name
	}
	if upd.Email != nil {
		fields["email"] = p.Email
	}
	if upd.Age != nil {
		fields["age"] = p.Age
	}
	if upd.Sex != nil {
		fields["sex"] = p.Sex
	}
	if upd.Weight != nil {
		fields["weight"] = p.Weight
	}
	if upd.Height != nil {
		fields["height"] = p.Height
	}
	if upd.ActivityLevel != nil {
		fields["activityLevel"] = p.ActivityLevel
	}
	if upd.TouchesTarget() {
		fields["dailyEnergyTarget"] = p.DailyEnergyTarget
	}
	return fields
}

// CreateProfile stores the first document for a signed-in user who has none.
// The registration weight becomes the first weight sample.
func (g *Gateway) CreateProfile(ctx context.Context, in NewProfile) (models.Profile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.requireLocked(NoProfile); err != nil {
		return models.Profile{}, err
	}

	if in.Name == "" {
		return models.Profile{}, apperr.Invalid("name must not be empty")
	}
	if err := energy.ValidateBody(in.Age, in.Weight, in.Height); err != nil {
		return models.Profile{}, err
	}

	now := g.cfg.Clock.Now()
	profile := models.Profile{
		Name:          in.Name,
		Email:         g.principal.Email,
		Age:           in.Age,
		Sex:           in.Sex,
		Weight:        in.Weight,
		Height:        in.Height,
		ActivityLevel: in.ActivityLevel,
		CreatedAt:     now,
		AuthMethod:    g.principal.Method,
	}
	if err := profile.Recompute(); err != nil {
		return models.Profile{}, err
	}

	series := weight.New(g.cfg.Clock, nil)
	if _, err := series.Add(in.Weight); err != nil {
		return models.Profile{}, err
	}
	book := ledger.New(g.cfg.Clock, nil)

	doc, err := storage.Encode(models.UserDocument{
		Profile:       profile,
		UID:           g.principal.UID,
		DailyLogs:     []models.DailyLog{},
		WeightEntries: series.Entries(),
		LastUpdated:   now,
	})
	if err != nil {
		return models.Profile{}, err
	}
	if err := g.cfg.Store.Set(ctx, models.UsersCollection, g.principal.UID, doc); err != nil {
		return models.Profile{}, storage.Classify("create profile", err)
	}

	g.profile = profile
	g.ledger = book
	g.series = series
	g.state = SignedIn
	g.notifyLocked()
	g.cfg.Logger.Info("Profile created", "uid", g.principal.UID, "target", profile.DailyEnergyTarget)
	return profile, nil
}

// Profile returns the signed-in user's profile.
func (g *Gateway) Profile() (models.Profile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.requireLocked(SignedIn); err != nil {
		return models.Profile{}, err
	}
	return g.profile, nil
}

// Log returns the log of day (today when zero).
func (g *Gateway) Log(day calendar.Day) (models.DailyLog, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.requireLocked(SignedIn); err != nil {
		return models.DailyLog{}, err
	}
	return g.ledger.Log(day), nil
}

// History returns one log per day for the last days days, oldest first.
func (g *Gateway) History(days int) ([]models.DailyLog, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.requireLocked(SignedIn); err != nil {
		return nil, err
	}
	return g.ledger.History(days)
}

// Progress compares the log of day against the daily target.
func (g *Gateway) Progress(day calendar.Day) (ledger.Progress, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.requireLocked(SignedIn); err != nil {
		return ledger.Progress{}, err
	}
	return ledger.ProgressOf(g.profile.DailyEnergyTarget, g.ledger.Log(day)), nil
}

// LatestWeight returns the most recent measurement, if any.
func (g *Gateway) LatestWeight() (models.WeightEntry, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.requireLocked(SignedIn); err != nil {
		return models.WeightEntry{}, false, err
	}
	entry, ok := g.series.Latest()
	return entry, ok, nil
}

// WeightWindow returns measurements from the last days days, oldest first.
func (g *Gateway) WeightWindow(days int) ([]models.WeightEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.requireLocked(SignedIn); err != nil {
		return nil, err
	}
	return g.series.Window(days)
}

// PendingWrite reports whether a write-back is waiting on its timer.
func (g *Gateway) PendingWrite() bool {
	return g.writeback.Pending()
}
