// internal/registry/registry.go

// Package registry owns every live party for the lifetime of the process.
// All mutations are serialized through a single command channel consumed by
// one goroutine, so party state never needs per-party locking; reads return
// deep copies.
package registry

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/squadup/squadup/internal/models"
	"github.com/squadup/squadup/internal/tagset"
)

const (
	// DefaultStalenessWindow is how old a party may grow before the reaper
	// removes it.
	DefaultStalenessWindow = 3600 * time.Second

	// DefaultReapInterval is the fixed cadence of the stale-party reaper.
	DefaultReapInterval = 60 * time.Second
)

// EvictReason explains why a party left the registry.
type EvictReason string

const (
	EvictDisbanded EvictReason = "disbanded"
	EvictStale     EvictReason = "stale"
	EvictRemoved   EvictReason = "removed" // upstream snapshot no longer lists it
)

// groupRef identifies one lobby bucket: a game plus a canonical tag key.
type groupRef struct {
	GameID uuid.UUID
	Key    string
}

// Registry is the single-writer actor holding all live parties, indexed by
// id and by (game, canonical tag key).
type Registry struct {
	log *logrus.Logger

	staleAfter time.Duration
	reapEvery  time.Duration

	commands chan func()
	closed   chan struct{}
	stopped  chan struct{}

	// Owned exclusively by the run goroutine.
	parties map[uuid.UUID]*models.Party
	byGroup map[groupRef]map[uuid.UUID]*models.Party

	// OnChange is invoked from the actor goroutine after any mutation that
	// altered a game's parties. It must not block.
	OnChange func(gameID uuid.UUID)

	// OnEvict is invoked from the actor goroutine when a party leaves the
	// registry, with a copy of its final state. It must not block.
	OnEvict func(p models.Party, reason EvictReason)
}

// Option configures a Registry.
type Option func(*Registry)

// WithStalenessWindow overrides the staleness window.
func WithStalenessWindow(d time.Duration) Option {
	return func(r *Registry) { r.staleAfter = d }
}

// WithReapInterval overrides the reaper cadence.
func WithReapInterval(d time.Duration) Option {
	return func(r *Registry) { r.reapEvery = d }
}

// New creates a Registry and starts its actor goroutine. Call Close to stop it.
func New(log *logrus.Logger, opts ...Option) *Registry {
	r := &Registry{
		log:        log,
		staleAfter: DefaultStalenessWindow,
		reapEvery:  DefaultReapInterval,
		commands:   make(chan func(), 64),
		closed:     make(chan struct{}),
		stopped:    make(chan struct{}),
		parties:    make(map[uuid.UUID]*models.Party),
		byGroup:    make(map[groupRef]map[uuid.UUID]*models.Party),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.run()
	return r
}

// Close stops the actor goroutine. Pending commands that already entered the
// channel still execute; later calls fail with ErrClosed.
func (r *Registry) Close() {
	select {
	case <-r.closed:
		return
	default:
	}
	close(r.closed)
	<-r.stopped
}

func (r *Registry) run() {
	defer close(r.stopped)
	ticker := time.NewTicker(r.reapEvery)
	defer ticker.Stop()
	for {
		select {
		case cmd := <-r.commands:
			cmd()
		case <-ticker.C:
			r.reapStaleLocked(time.Now())
		case <-r.closed:
			// Drain commands already queued so callers are not left hanging.
			for {
				select {
				case cmd := <-r.commands:
					cmd()
				default:
					return
				}
			}
		}
	}
}

// do runs fn on the actor goroutine and waits for it, honoring ctx while
// waiting to enqueue. Once enqueued the command always executes.
func (r *Registry) do(ctx context.Context, fn func() error) error {
	select {
	case <-r.closed:
		return ErrClosed
	default:
	}
	done := make(chan error, 1)
	select {
	case r.commands <- func() { done <- fn() }:
	case <-ctx.Done():
		return ctx.Err()
	case <-r.closed:
		return ErrClosed
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateParty registers a new party in the Open state with the creator as its
// only member and returns a copy of it.
func (r *Registry) CreateParty(ctx context.Context, gameID, creatorID uuid.UUID, tags []models.Tag, maxSize int) (models.Party, error) {
	var out models.Party
	err := r.do(ctx, func() error {
		p := &models.Party{
			ID:        uuid.New(),
			GameID:    gameID,
			CreatorID: creatorID,
			CreatedAt: time.Now(),
			Members:   []uuid.UUID{creatorID},
			MaxSize:   maxSize,
			Tags:      append([]models.Tag(nil), tags...),
			State:     models.PartyOpen,
		}
		if p.IsFull() {
			p.State = models.PartyFull
		}
		r.insertLocked(p)
		r.log.WithFields(logrus.Fields{
			"party": p.ID, "game": gameID, "key": tagset.CanonicalKey(p.Tags),
		}).Info("party created")
		out = p.Clone()
		r.notifyLocked(gameID)
		return nil
	})
	return out, err
}

// Join appends userID to the party's member list. Fails with ErrPartyFull at
// capacity and ErrAlreadyMember on repeat joins; membership is unchanged on
// any failure.
func (r *Registry) Join(ctx context.Context, partyID, userID uuid.UUID) (models.Party, error) {
	var out models.Party
	err := r.do(ctx, func() error {
		p, ok := r.parties[partyID]
		if !ok {
			return ErrPartyNotFound
		}
		if p.IsFull() {
			return ErrPartyFull
		}
		if p.HasMember(userID) {
			return ErrAlreadyMember
		}
		p.Members = append(p.Members, userID)
		if p.IsFull() {
			p.State = models.PartyFull
		}
		out = p.Clone()
		r.notifyLocked(p.GameID)
		return nil
	})
	return out, err
}

// Leave removes userID from the party. The party disbands when its last
// member leaves; a departing creator hands the party to the earliest-joined
// remaining member. Fails with ErrNotMember if userID is absent.
func (r *Registry) Leave(ctx context.Context, partyID, userID uuid.UUID) (models.Party, error) {
	var out models.Party
	err := r.do(ctx, func() error {
		p, ok := r.parties[partyID]
		if !ok {
			return ErrPartyNotFound
		}
		idx := -1
		for i, m := range p.Members {
			if m == userID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrNotMember
		}
		p.Members = append(p.Members[:idx], p.Members[idx+1:]...)
		if len(p.Members) == 0 {
			r.evictLocked(p, EvictDisbanded)
			out = p.Clone()
			r.notifyLocked(p.GameID)
			return nil
		}
		if p.CreatorID == userID {
			p.CreatorID = p.Members[0]
		}
		p.State = models.PartyOpen
		out = p.Clone()
		r.notifyLocked(p.GameID)
		return nil
	})
	return out, err
}

// Disband removes the party outright.
func (r *Registry) Disband(ctx context.Context, partyID uuid.UUID) error {
	return r.do(ctx, func() error {
		p, ok := r.parties[partyID]
		if !ok {
			return ErrPartyNotFound
		}
		r.evictLocked(p, EvictDisbanded)
		r.notifyLocked(p.GameID)
		return nil
	})
}

// ReapStale removes every party whose age exceeds the staleness window as of
// now and returns the removed ids. The registry also runs this on a fixed
// interval; the explicit form exists for operational tooling and tests.
func (r *Registry) ReapStale(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var removed []uuid.UUID
	err := r.do(ctx, func() error {
		removed = r.reapStaleLocked(now)
		return nil
	})
	return removed, err
}

// ApplySnapshot replaces the registry's view of one game with a full
// snapshot from the subscription bridge. Parties absent from the snapshot
// are evicted; present ones are added or updated in place.
func (r *Registry) ApplySnapshot(ctx context.Context, gameID uuid.UUID, dtos []models.PartyDTO) error {
	return r.do(ctx, func() error {
		seen := make(map[uuid.UUID]bool, len(dtos))
		changed := false
		for _, dto := range dtos {
			seen[dto.ID] = true
			next := dto.ToParty()
			if prev, ok := r.parties[dto.ID]; ok {
				r.removeFromGroupLocked(prev)
				*prev = next
				r.addToGroupLocked(prev)
			} else {
				p := next
				r.insertLocked(&p)
			}
			changed = true
		}
		for id, p := range r.parties {
			if p.GameID == gameID && !seen[id] {
				r.evictLocked(p, EvictRemoved)
				changed = true
			}
		}
		if changed {
			r.notifyLocked(gameID)
		}
		return nil
	})
}

// Get returns a copy of one party.
func (r *Registry) Get(ctx context.Context, partyID uuid.UUID) (models.Party, error) {
	var out models.Party
	err := r.do(ctx, func() error {
		p, ok := r.parties[partyID]
		if !ok {
			return ErrPartyNotFound
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

// SnapshotGame returns copies of every live party for a game, oldest first.
func (r *Registry) SnapshotGame(ctx context.Context, gameID uuid.UUID) ([]models.Party, error) {
	var out []models.Party
	err := r.do(ctx, func() error {
		for _, p := range r.parties {
			if p.GameID == gameID {
				out = append(out, p.Clone())
			}
		}
		sortParties(out)
		return nil
	})
	return out, err
}

// Snapshot returns copies of every live party, oldest first.
func (r *Registry) Snapshot(ctx context.Context) ([]models.Party, error) {
	var out []models.Party
	err := r.do(ctx, func() error {
		for _, p := range r.parties {
			out = append(out, p.Clone())
		}
		sortParties(out)
		return nil
	})
	return out, err
}

// --- internals, only ever touched by the actor goroutine ---

func (r *Registry) insertLocked(p *models.Party) {
	r.parties[p.ID] = p
	r.addToGroupLocked(p)
}

func (r *Registry) addToGroupLocked(p *models.Party) {
	ref := groupRef{GameID: p.GameID, Key: tagset.CanonicalKey(p.Tags)}
	g, ok := r.byGroup[ref]
	if !ok {
		g = make(map[uuid.UUID]*models.Party)
		r.byGroup[ref] = g
	}
	g[p.ID] = p
}

func (r *Registry) removeFromGroupLocked(p *models.Party) {
	ref := groupRef{GameID: p.GameID, Key: tagset.CanonicalKey(p.Tags)}
	if g, ok := r.byGroup[ref]; ok {
		delete(g, p.ID)
		if len(g) == 0 {
			delete(r.byGroup, ref)
		}
	}
}

func (r *Registry) evictLocked(p *models.Party, reason EvictReason) {
	delete(r.parties, p.ID)
	r.removeFromGroupLocked(p)
	r.log.WithFields(logrus.Fields{
		"party": p.ID, "game": p.GameID, "reason": reason,
	}).Info("party evicted")
	if r.OnEvict != nil {
		r.OnEvict(p.Clone(), reason)
	}
}

func (r *Registry) reapStaleLocked(now time.Time) []uuid.UUID {
	var removed []uuid.UUID
	games := make(map[uuid.UUID]bool)
	for id, p := range r.parties {
		if p.IsStale(now, r.staleAfter) {
			r.evictLocked(p, EvictStale)
			removed = append(removed, id)
			games[p.GameID] = true
		}
	}
	for gameID := range games {
		r.notifyLocked(gameID)
	}
	return removed
}

func (r *Registry) notifyLocked(gameID uuid.UUID) {
	if r.OnChange != nil {
		r.OnChange(gameID)
	}
}

func sortParties(ps []models.Party) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].ID.String() < ps[j].ID.String()
		}
		return ps[i].CreatedAt.Before(ps[j].CreatedAt)
	})
}
