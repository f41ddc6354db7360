package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cipher-arena/internal/domain"
)

// fakeStore is an in-memory Store with the same atomicity semantics as
// the Postgres repository: conditional mutations either apply together
// with their ledger rows or return the matching domain error, and the
// mutex gives each method the isolation a single SQL statement has.
type fakeStore struct {
	mu sync.Mutex

	players    map[string]*domain.Player
	byExternal map[string]string
	sessions   map[string]*domain.GameSession
	challenges map[string]*domain.Challenge
	records    map[string]*domain.PlayerRecord
	ledger     []domain.ActionLogEntry
	usages     []domain.LifelineUsage

	// next score write fails with a version conflict
	conflictNext bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		players:    make(map[string]*domain.Player),
		byExternal: make(map[string]string),
		sessions:   make(map[string]*domain.GameSession),
		challenges: make(map[string]*domain.Challenge),
		records:    make(map[string]*domain.PlayerRecord),
	}
}

func recordKey(playerID, sessionID string) string {
	return playerID + "/" + sessionID
}

// cloneRecord mirrors the repository contract: callers get their own
// copy and mutations only land through the Apply composites
func cloneRecord(rec *domain.PlayerRecord) *domain.PlayerRecord {
	clone := *rec
	clone.Lifelines = rec.Lifelines.Clone()
	return &clone
}

func (f *fakeStore) appendEntry(entry *domain.ActionLogEntry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	f.ledger = append(f.ledger, *entry)
}

func (f *fakeStore) GetOrCreatePlayer(_ context.Context, externalID, email string) (*domain.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.byExternal[externalID]; ok {
		return f.players[id], nil
	}
	p := &domain.Player{
		ID:         "player-" + externalID,
		ExternalID: externalID,
		Email:      email,
		CreatedAt:  time.Now(),
	}
	f.players[p.ID] = p
	f.byExternal[externalID] = p.ID
	return p, nil
}

func (f *fakeStore) GetPlayer(_ context.Context, playerID string) (*domain.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[playerID]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return p, nil
}

func (f *fakeStore) SetHandle(_ context.Context, playerID, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[playerID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	if p.Handle != "" {
		return domain.ErrHandleAlreadySet
	}
	for _, other := range f.players {
		if other.Handle == handle {
			return domain.ErrHandleTaken
		}
	}
	p.Handle = handle
	return nil
}

func (f *fakeStore) CurrentSession(_ context.Context) (*domain.GameSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var newest *domain.GameSession
	for _, s := range f.sessions {
		if !s.IsActive {
			continue
		}
		if newest == nil || s.CreatedAt.After(newest.CreatedAt) {
			newest = s
		}
	}
	if newest == nil {
		return nil, domain.ErrSessionNotFound
	}
	return newest, nil
}

func (f *fakeStore) GetSession(_ context.Context, sessionID string) (*domain.GameSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeStore) CreateSession(_ context.Context, name string) (*domain.GameSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &domain.GameSession{
		ID:           uuid.New().String(),
		Name:         name,
		CurrentRound: domain.Round1,
		IsActive:     true,
		StartedAt:    time.Now(),
		CreatedAt:    time.Now(),
	}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeStore) SetRound(_ context.Context, sessionID string, round domain.Round) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.CurrentRound = round
	return nil
}

func (f *fakeStore) DeactivateSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.IsActive = false
	return nil
}

func (f *fakeStore) ListSessions(_ context.Context) ([]domain.GameSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.GameSession
	for _, s := range f.sessions {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) GetChallenge(_ context.Context, challengeID string) (*domain.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.challenges[challengeID]
	if !ok {
		return nil, domain.ErrChallengeNotFound
	}
	return c, nil
}

func (f *fakeStore) ListChallenges(_ context.Context, sessionID string, round domain.Round) ([]domain.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listChallenges(sessionID, round), nil
}

func (f *fakeStore) listChallenges(sessionID string, round domain.Round) []domain.Challenge {
	var out []domain.Challenge
	for _, c := range f.challenges {
		if c.SessionID != sessionID || !c.IsActive {
			continue
		}
		if round != "" && c.Round != round {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (f *fakeStore) CreateChallenge(_ context.Context, c *domain.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now()
	f.challenges[c.ID] = c
	return nil
}

func (f *fakeStore) UnsolvedHintChallenge(_ context.Context, playerID, sessionID string) (*domain.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.listChallenges(sessionID, "") {
		if c.Hint == "" {
			continue
		}
		if !f.hasCompleted(playerID, c.ID) {
			return f.challenges[c.ID], nil
		}
	}
	return nil, domain.ErrChallengeNotFound
}

func (f *fakeStore) EnsureRecord(_ context.Context, playerID, sessionID string, inventory domain.Inventory) (*domain.PlayerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := recordKey(playerID, sessionID)
	if rec, ok := f.records[key]; ok {
		return cloneRecord(rec), nil
	}
	rec := domain.NewPlayerRecord(playerID, sessionID, inventory)
	rec.Version = 1
	f.records[key] = rec
	return cloneRecord(rec), nil
}

func (f *fakeStore) GetRecord(_ context.Context, playerID, sessionID string) (*domain.PlayerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[recordKey(playerID, sessionID)]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return cloneRecord(rec), nil
}

func (f *fakeStore) GrantCharges(_ context.Context, playerID, sessionID string, kind domain.LifelineKind, count, max int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[recordKey(playerID, sessionID)]
	if !ok {
		return 0, domain.ErrRecordNotFound
	}
	next := rec.Lifelines[kind] + count
	if next > max {
		next = max
	}
	rec.Lifelines[kind] = next
	return next, nil
}

func (f *fakeStore) ArmBoost(_ context.Context, playerID, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[recordKey(playerID, sessionID)]
	if !ok {
		return domain.ErrRecordNotFound
	}
	rec.BoostArmed = true
	rec.Version++
	return nil
}

func (f *fakeStore) Touch(_ context.Context, playerID, sessionID string, status domain.PlayerStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[recordKey(playerID, sessionID)]
	if !ok {
		return domain.ErrRecordNotFound
	}
	rec.Status = status
	rec.LastActiveAt = time.Now()
	return nil
}

func (f *fakeStore) SessionStandings(_ context.Context, sessionID string) ([]domain.Standing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Standing
	for _, rec := range f.records {
		if rec.SessionID != sessionID {
			continue
		}
		player := f.players[rec.PlayerID]
		handle := ""
		if player != nil {
			handle = player.Handle
		}
		out = append(out, domain.Standing{
			PlayerID: rec.PlayerID,
			Handle:   handle,
			Points:   rec.Points,
			Status:   rec.Status,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out, nil
}

func (f *fakeStore) ApplySubmission(_ context.Context, rec *domain.PlayerRecord, entry *domain.ActionLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflictNext {
		f.conflictNext = false
		return domain.ErrConcurrentModification
	}
	key := recordKey(rec.PlayerID, rec.SessionID)
	if _, ok := f.records[key]; !ok {
		return domain.ErrRecordNotFound
	}
	rec.Version++
	f.records[key] = cloneRecord(rec)
	f.appendEntry(entry)
	return nil
}

func (f *fakeStore) ApplyHintDebit(_ context.Context, playerID, sessionID string, cost int, entry *domain.ActionLogEntry) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[recordKey(playerID, sessionID)]
	if !ok {
		return 0, domain.ErrRecordNotFound
	}
	if rec.Points < cost {
		return 0, domain.ErrInsufficientPoints
	}
	rec.Points -= cost
	rec.Version++
	f.appendEntry(entry)
	return rec.Points, nil
}

func (f *fakeStore) ApplyLifelineCharge(_ context.Context, usage *domain.LifelineUsage, entry *domain.ActionLogEntry) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[recordKey(usage.PlayerID, usage.SessionID)]
	if !ok {
		return 0, domain.ErrRecordNotFound
	}
	if rec.Lifelines[usage.Kind] <= 0 {
		return 0, domain.ErrNoChargesRemaining
	}
	rec.Lifelines[usage.Kind]--
	rec.Version++
	if usage.ID == "" {
		usage.ID = uuid.New().String()
	}
	usage.UsedAt = time.Now()
	f.usages = append(f.usages, *usage)
	f.appendEntry(entry)
	return rec.Lifelines[usage.Kind], nil
}

func (f *fakeStore) ApplySabotageEffect(_ context.Context, targetID, sessionID string, percent int, entry *domain.ActionLogEntry) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[recordKey(targetID, sessionID)]
	if !ok {
		return 0, 0, domain.ErrRecordNotFound
	}
	lost := rec.Points * percent / 100
	rec.Points -= lost
	rec.Version++
	entry.PointsDelta = -lost
	if entry.Metadata == nil {
		entry.Metadata = domain.Metadata{}
	}
	entry.Metadata["points_lost"] = lost
	entry.Metadata["target_new_points"] = rec.Points
	f.appendEntry(entry)
	return lost, rec.Points, nil
}

func (f *fakeStore) HasCompleted(_ context.Context, playerID, challengeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasCompleted(playerID, challengeID), nil
}

func (f *fakeStore) hasCompleted(playerID, challengeID string) bool {
	for _, e := range f.ledger {
		if e.PlayerID == playerID &&
			e.Kind == domain.ActionCompletedChallenge &&
			e.Result == domain.ResultSuccess &&
			e.Target == challengeID {
			return true
		}
	}
	return false
}

func (f *fakeStore) RecentActions(_ context.Context, playerID, sessionID string, limit int) ([]domain.ActionLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ActionLogEntry
	for i := len(f.ledger) - 1; i >= 0 && len(out) < limit; i-- {
		e := f.ledger[i]
		if e.PlayerID == playerID && e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

// entriesFor returns the player's ledger entries oldest first
func (f *fakeStore) entriesFor(playerID string) []domain.ActionLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ActionLogEntry
	for _, e := range f.ledger {
		if e.PlayerID == playerID {
			out = append(out, e)
		}
	}
	return out
}

var _ Store = (*fakeStore)(nil)

// fakeCache is an in-memory Cache recording the engine's writes. TopN
// returns whatever the test primed, mimicking a warm or cold set.
type fakeCache struct {
	mu      sync.Mutex
	scores  map[string]map[string]int
	topN    []domain.Standing
	topErr  error
	cleared []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{scores: make(map[string]map[string]int)}
}

func (f *fakeCache) SetScore(_ context.Context, sessionID, playerID string, points int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scores[sessionID] == nil {
		f.scores[sessionID] = make(map[string]int)
	}
	f.scores[sessionID][playerID] = points
	return nil
}

func (f *fakeCache) TopN(_ context.Context, _ string, n int) ([]domain.Standing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.topErr != nil {
		return nil, f.topErr
	}
	if len(f.topN) > n {
		return f.topN[:n], nil
	}
	return f.topN, nil
}

func (f *fakeCache) Clear(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.scores, sessionID)
	f.cleared = append(f.cleared, sessionID)
	return nil
}

var _ Cache = (*fakeCache)(nil)

func (f *fakeStore) mustRecord(playerID, sessionID string) *domain.PlayerRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[recordKey(playerID, sessionID)]
	if !ok {
		panic(fmt.Sprintf("no record for %s in %s", playerID, sessionID))
	}
	return rec
}
