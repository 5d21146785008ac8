package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillstream/progression-engine/internal/domain/progression"
	"github.com/skillstream/progression-engine/internal/domain/shared"
	"github.com/skillstream/progression-engine/internal/domain/skill"
	"github.com/skillstream/progression-engine/internal/domain/streak"
)

// ─────────────────────────────────────────────────────────────────────────────
// IN-MEMORY FAKES
// ─────────────────────────────────────────────────────────────────────────────

type fakeProgressionRepo struct {
	mu     sync.Mutex
	states map[string]*progression.ProgressionState

	// failSavesWith makes the next N saves fail with the given error.
	failSavesWith error
	failSaves     int
	saveCalls     int
}

func newFakeProgressionRepo() *fakeProgressionRepo {
	return &fakeProgressionRepo{states: make(map[string]*progression.ProgressionState)}
}

func (r *fakeProgressionRepo) Get(_ context.Context, userID string) (*progression.ProgressionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[userID]
	if !ok {
		return nil, shared.ErrProgressionNotFound
	}
	return state.Clone(), nil
}

func (r *fakeProgressionRepo) GetOrCreate(_ context.Context, userID, organizationID string) (*progression.ProgressionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.states[userID]; ok {
		return state.Clone(), nil
	}
	state, err := progression.NewProgressionState(userID, organizationID, time.Now())
	if err != nil {
		return nil, err
	}
	state.Version = 1
	r.states[userID] = state
	return state.Clone(), nil
}

func (r *fakeProgressionRepo) Save(_ context.Context, state *progression.ProgressionState, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.saveCalls++
	if r.failSaves > 0 {
		r.failSaves--
		return r.failSavesWith
	}

	stored, ok := r.states[state.UserID]
	if ok && stored.Version != expectedVersion {
		return shared.ErrStaleProgression
	}

	state.Version = expectedVersion + 1
	r.states[state.UserID] = state.Clone()
	return nil
}

func (r *fakeProgressionRepo) ListUserIDs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.states))
	for id := range r.states {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeLedger struct {
	mu        sync.Mutex
	processed map[string]bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{processed: make(map[string]bool)}
}

func (l *fakeLedger) IsProcessed(_ context.Context, userID, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.processed[userID+"/"+eventID], nil
}

func (l *fakeLedger) MarkProcessed(_ context.Context, userID, eventID string, _ time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := userID + "/" + eventID
	if l.processed[key] {
		return shared.ErrDuplicateEvent
	}
	l.processed[key] = true
	return nil
}

type fakeStreakRepo struct {
	mu      sync.Mutex
	records map[string]*streak.Record
}

func newFakeStreakRepo() *fakeStreakRepo {
	return &fakeStreakRepo{records: make(map[string]*streak.Record)}
}

func (r *fakeStreakRepo) GetActive(_ context.Context, userID string) (*streak.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.UserID == userID && rec.Status == streak.StatusActive {
			return rec, nil
		}
	}
	return nil, shared.ErrStreakNotFound
}

func (r *fakeStreakRepo) LongestLength(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	longest := 0
	for _, rec := range r.records {
		if rec.UserID == userID && rec.Status == streak.StatusBroken && rec.Length > longest {
			longest = rec.Length
		}
	}
	return longest, nil
}

func (r *fakeStreakRepo) Save(_ context.Context, record *streak.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
	return nil
}

func (r *fakeStreakRepo) ListByUser(_ context.Context, userID string) ([]*streak.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*streak.Record
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeStreakRepo) ListActiveUserIDs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, rec := range r.records {
		if rec.Status == streak.StatusActive {
			out = append(out, rec.UserID)
		}
	}
	return out, nil
}

type fakeSkillRepo struct {
	mu       sync.Mutex
	profiles map[string]*skill.Profile
	videos   map[string]bool
}

func newFakeSkillRepo() *fakeSkillRepo {
	return &fakeSkillRepo{
		profiles: make(map[string]*skill.Profile),
		videos:   make(map[string]bool),
	}
}

func (r *fakeSkillRepo) key(userID, skillID string) string { return userID + "/" + skillID }

func (r *fakeSkillRepo) Get(_ context.Context, userID, skillID string) (*skill.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[r.key(userID, skillID)]
	if !ok {
		return nil, shared.ErrSkillNotFound
	}
	return p, nil
}

func (r *fakeSkillRepo) GetOrCreate(_ context.Context, userID, skillID, competencyID string) (*skill.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[r.key(userID, skillID)]; ok {
		return p, nil
	}
	p, err := skill.NewProfile(userID, skillID, competencyID, time.Now())
	if err != nil {
		return nil, err
	}
	r.profiles[r.key(userID, skillID)] = p
	return p, nil
}

func (r *fakeSkillRepo) Save(_ context.Context, profile *skill.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[r.key(profile.UserID, profile.SkillID)] = profile
	return nil
}

func (r *fakeSkillRepo) ListByCompetency(_ context.Context, userID, competencyID string) ([]*skill.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*skill.Profile
	for _, p := range r.profiles {
		if p.UserID == userID && p.CompetencyID == competencyID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeSkillRepo) ListByUser(_ context.Context, userID string) ([]*skill.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*skill.Profile
	for _, p := range r.profiles {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeSkillRepo) IsVideoScored(_ context.Context, userID, videoID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.videos[userID+"/"+videoID], nil
}

func (r *fakeSkillRepo) MarkVideoScored(_ context.Context, userID, videoID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := userID + "/" + videoID
	if r.videos[key] {
		return shared.ErrDuplicateEvent
	}
	r.videos[key] = true
	return nil
}

// fakeTx mimics transactional semantics by snapshotting every fake store
// and restoring it when fn fails, so retried attempts observe rolled-back
// state the way they would against postgres.
type fakeTx struct {
	h *harness
}

func (tx fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ledgerSnap := copyMap(tx.h.ledger.processed)
	videoSnap := copyMap(tx.h.skills.videos)
	profileSnap := copyMap(tx.h.skills.profiles)
	streakSnap := copyMap(tx.h.streaks.records)
	stateSnap := copyMap(tx.h.progressions.states)

	if err := fn(ctx); err != nil {
		tx.h.ledger.processed = ledgerSnap
		tx.h.skills.videos = videoSnap
		tx.h.skills.profiles = profileSnap
		tx.h.streaks.records = streakSnap
		tx.h.progressions.states = stateSnap
		return err
	}
	return nil
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

type captureBus struct {
	mu     sync.Mutex
	events []shared.Event
}

func (b *captureBus) Subscribe(shared.EventType, shared.EventHandler) error { return nil }
func (b *captureBus) SubscribeAll(shared.EventHandler) error                { return nil }
func (b *captureBus) Close() error                                          { return nil }

func (b *captureBus) Publish(event shared.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *captureBus) types() []shared.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]shared.EventType, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventType())
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// HARNESS
// ─────────────────────────────────────────────────────────────────────────────

type harness struct {
	orch         *Orchestrator
	progressions *fakeProgressionRepo
	ledger       *fakeLedger
	streaks      *fakeStreakRepo
	skills       *fakeSkillRepo
	bus          *captureBus
	now          time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		progressions: newFakeProgressionRepo(),
		ledger:       newFakeLedger(),
		streaks:      newFakeStreakRepo(),
		skills:       newFakeSkillRepo(),
		bus:          &captureBus{},
		now:          time.Date(2026, time.March, 2, 14, 0, 0, 0, time.UTC),
	}

	n := 0
	engine := streak.NewEngine(func() string {
		n++
		return fmt.Sprintf("streak-%d", n)
	})

	h.orch = New(
		h.progressions,
		h.ledger,
		h.streaks,
		h.skills,
		engine,
		fakeTx{h: h},
		h.bus,
		DefaultConfig(),
		func() time.Time { return h.now },
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return h
}

func (h *harness) state(t *testing.T, userID string) *progression.ProgressionState {
	t.Helper()
	state, err := h.progressions.Get(context.Background(), userID)
	require.NoError(t, err)
	return state
}

// ─────────────────────────────────────────────────────────────────────────────
// MODULE COMPLETED
// ─────────────────────────────────────────────────────────────────────────────

func TestOnModuleCompleted_AwardsXP(t *testing.T) {
	h := newHarness(t)

	result, err := h.orch.OnModuleCompleted(context.Background(), ModuleCompletedCommand{
		EventID: "evt-1", UserID: "user-1", OrganizationID: "org-1", ModuleCount: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, 75, result.XPEarned)
	assert.Equal(t, 75, result.TotalXP)
	assert.Equal(t, 1, result.Level)
	assert.False(t, result.LeveledUp)
	assert.False(t, result.Duplicate)

	state := h.state(t, "user-1")
	assert.Equal(t, progression.XP(75), state.TotalXP)
	assert.Equal(t, []shared.EventType{shared.EventXPAwarded}, h.bus.types())
}

func TestOnModuleCompleted_Duplicate(t *testing.T) {
	h := newHarness(t)
	cmd := ModuleCompletedCommand{EventID: "evt-1", UserID: "user-1", ModuleCount: 1}

	first, err := h.orch.OnModuleCompleted(context.Background(), cmd)
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	second, err := h.orch.OnModuleCompleted(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.TotalXP, second.TotalXP)

	// State was written exactly once.
	state := h.state(t, "user-1")
	assert.Equal(t, progression.XP(25), state.TotalXP)
	assert.Len(t, h.bus.types(), 1)
}

func TestOnModuleCompleted_LevelUp(t *testing.T) {
	h := newHarness(t)

	// 26 modules at 25 XP each crosses the 650 boundary.
	result, err := h.orch.OnModuleCompleted(context.Background(), ModuleCompletedCommand{
		EventID: "evt-1", UserID: "user-1", ModuleCount: 26,
	})
	require.NoError(t, err)

	assert.Equal(t, 650, result.TotalXP)
	assert.Equal(t, 2, result.Level)
	assert.True(t, result.LeveledUp)
	assert.Equal(t, []shared.EventType{shared.EventXPAwarded, shared.EventLevelUp}, h.bus.types())
}

func TestOnModuleCompleted_Validation(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.OnModuleCompleted(context.Background(), ModuleCompletedCommand{
		UserID: "user-1", ModuleCount: 1,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidEventID)

	_, err = h.orch.OnModuleCompleted(context.Background(), ModuleCompletedCommand{
		EventID: "evt-1", UserID: "user-1", ModuleCount: 0,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidCount)
}

// ─────────────────────────────────────────────────────────────────────────────
// CAMPAIGN COMPLETED
// ─────────────────────────────────────────────────────────────────────────────

func TestOnCampaignCompleted_FirstCampaign(t *testing.T) {
	h := newHarness(t)

	// Three modules first, then the campaign itself.
	_, err := h.orch.OnModuleCompleted(context.Background(), ModuleCompletedCommand{
		EventID: "evt-m", UserID: "user-1", OrganizationID: "org-1", ModuleCount: 3,
	})
	require.NoError(t, err)

	result, err := h.orch.OnCampaignCompleted(context.Background(), CampaignCompletedCommand{
		EventID: "evt-c", UserID: "user-1", OrganizationID: "org-1", CampaignID: "camp-1",
	})
	require.NoError(t, err)

	assert.Equal(t, streak.OutcomeStarted, result.StreakOutcome)
	assert.Equal(t, 1, result.StreakLength)
	assert.Equal(t, 100, result.XPEarned)
	assert.Equal(t, 175, result.TotalXP)
	assert.Equal(t, 1, result.Level)
	assert.Equal(t, []string{"first-completion"}, result.NewBadges)

	state := h.state(t, "user-1")
	assert.Equal(t, 1, state.TotalCampaignsCompleted)
	assert.Equal(t, 1, state.CurrentStreak)
	assert.True(t, state.CompletedToday)
	assert.False(t, state.StreakAtRisk)
	assert.True(t, state.HasBadge("first-completion"))
	// 2026-03-02 is a Monday.
	assert.Equal(t, [7]bool{true, false, false, false, false, false, false}, state.StreakDays)
}

func TestOnCampaignCompleted_StreakMultiplierOnNextDay(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.OnCampaignCompleted(context.Background(), CampaignCompletedCommand{
		EventID: "evt-1", UserID: "user-1", CampaignID: "camp-1",
	})
	require.NoError(t, err)

	// Next day: streak grows to 2 before the bonus is computed, so the
	// bonus is 100 * (1 + 0.5/29) = 101.7, rounded to 102.
	h.now = h.now.AddDate(0, 0, 1)
	result, err := h.orch.OnCampaignCompleted(context.Background(), CampaignCompletedCommand{
		EventID: "evt-2", UserID: "user-1", CampaignID: "camp-2",
	})
	require.NoError(t, err)

	assert.Equal(t, streak.OutcomeContinuedNextDay, result.StreakOutcome)
	assert.Equal(t, 2, result.StreakLength)
	assert.Equal(t, 102, result.XPEarned)
}

func TestOnCampaignCompleted_BreakArchivesAndRestarts(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.OnCampaignCompleted(context.Background(), CampaignCompletedCommand{
		EventID: "evt-1", UserID: "user-1", CampaignID: "camp-1",
	})
	require.NoError(t, err)

	// Three days later the streak is broken and restarts at 1.
	h.now = h.now.AddDate(0, 0, 3)
	result, err := h.orch.OnCampaignCompleted(context.Background(), CampaignCompletedCommand{
		EventID: "evt-2", UserID: "user-1", CampaignID: "camp-2",
	})
	require.NoError(t, err)

	assert.Equal(t, streak.OutcomeBrokenAndRestarted, result.StreakOutcome)
	assert.Equal(t, 1, result.StreakLength)

	// The longest streak display survives the break.
	state := h.state(t, "user-1")
	assert.Equal(t, 1, state.CurrentStreak)
	assert.Equal(t, 1, state.LongestStreak)

	types := h.bus.types()
	assert.Contains(t, types, shared.EventStreakBroken)
}

func TestOnCampaignCompleted_MilestoneEvent(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 3; i++ {
		_, err := h.orch.OnCampaignCompleted(context.Background(), CampaignCompletedCommand{
			EventID:    fmt.Sprintf("evt-%d", i),
			UserID:     "user-1",
			CampaignID: fmt.Sprintf("camp-%d", i),
		})
		require.NoError(t, err)
		h.now = h.now.AddDate(0, 0, 1)
	}

	state := h.state(t, "user-1")
	assert.Equal(t, 3, state.CurrentStreak)
	assert.True(t, state.HasBadge("streak-3"))
	assert.Contains(t, h.bus.types(), shared.EventStreakMilestone)
}

func TestOnCampaignCompleted_Duplicate(t *testing.T) {
	h := newHarness(t)
	cmd := CampaignCompletedCommand{EventID: "evt-1", UserID: "user-1", CampaignID: "camp-1"}

	first, err := h.orch.OnCampaignCompleted(context.Background(), cmd)
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	second, err := h.orch.OnCampaignCompleted(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)

	state := h.state(t, "user-1")
	assert.Equal(t, 1, state.TotalCampaignsCompleted)
	assert.Equal(t, progression.XP(100), state.TotalXP)
}

func TestOnCampaignCompleted_RetriesVersionConflict(t *testing.T) {
	h := newHarness(t)
	h.progressions.failSavesWith = shared.ErrStaleProgression
	h.progressions.failSaves = 2

	result, err := h.orch.OnCampaignCompleted(context.Background(), CampaignCompletedCommand{
		EventID: "evt-1", UserID: "user-1", CampaignID: "camp-1",
	})
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.Equal(t, 100, result.XPEarned)
	assert.Equal(t, 3, h.progressions.saveCalls)
}

// ─────────────────────────────────────────────────────────────────────────────
// ASSESSMENT VIDEO SCORED
// ─────────────────────────────────────────────────────────────────────────────

func TestOnAssessmentVideoScored_UpdatesProfileAndCompetency(t *testing.T) {
	h := newHarness(t)

	result, err := h.orch.OnAssessmentVideoScored(context.Background(), AssessmentScoredCommand{
		EventID: "evt-1", UserID: "user-1", OrganizationID: "org-1",
		VideoID: "vid-1", CompetencyID: "comp-1", SkillID: "skill-1",
		PerQuestionScores: []int{80, 90},
	})
	require.NoError(t, err)

	assert.Equal(t, 85, result.VideoScore)
	assert.Equal(t, 1, result.SkillLevel)
	assert.Equal(t, 1, result.CompetencyLevel)
	assert.Equal(t, 85, result.CompetencyScore)
	assert.Empty(t, result.NewBadges)

	profile, err := h.skills.Get(context.Background(), "user-1", "skill-1")
	require.NoError(t, err)
	assert.Equal(t, 1, profile.AssessmentCount)
	assert.Equal(t, 85, profile.CurrentScore)
}

func TestOnAssessmentVideoScored_DuplicateVideo(t *testing.T) {
	h := newHarness(t)

	cmd := AssessmentScoredCommand{
		EventID: "evt-1", UserID: "user-1",
		VideoID: "vid-1", CompetencyID: "comp-1", SkillID: "skill-1",
		PerQuestionScores: []int{80},
	}
	_, err := h.orch.OnAssessmentVideoScored(context.Background(), cmd)
	require.NoError(t, err)

	// Same video under a fresh event id is still a no-op.
	cmd.EventID = "evt-2"
	result, err := h.orch.OnAssessmentVideoScored(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, result.Duplicate)

	profile, err := h.skills.Get(context.Background(), "user-1", "skill-1")
	require.NoError(t, err)
	assert.Equal(t, 1, profile.AssessmentCount)
}

func TestOnAssessmentVideoScored_PromotionAwardsSkillBadge(t *testing.T) {
	h := newHarness(t)

	// Profile one qualifying score away from level 3.
	profile, err := skill.NewProfile("user-1", "skill-1", "comp-1", h.now)
	require.NoError(t, err)
	profile.Level = 2
	profile.AssessmentCount = 9
	profile.AverageScore = 70
	profile.ConsecutiveAboveThreshold = 9
	require.NoError(t, h.skills.Save(context.Background(), profile))

	result, err := h.orch.OnAssessmentVideoScored(context.Background(), AssessmentScoredCommand{
		EventID: "evt-1", UserID: "user-1",
		VideoID: "vid-1", CompetencyID: "comp-1", SkillID: "skill-1",
		PerQuestionScores: []int{70},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.SkillLevel)
	assert.Equal(t, []string{"skill-adept"}, result.NewBadges)

	types := h.bus.types()
	assert.Contains(t, types, shared.EventSkillLeveledUp)
	assert.Contains(t, types, shared.EventBadgeEarned)
	// The assessment path never emits streak or xp events.
	assert.NotContains(t, types, shared.EventXPAwarded)
}

func TestOnAssessmentVideoScored_Validation(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.OnAssessmentVideoScored(context.Background(), AssessmentScoredCommand{
		EventID: "evt-1", UserID: "user-1", VideoID: "vid-1",
		CompetencyID: "comp-1", SkillID: "skill-1",
		PerQuestionScores: []int{101},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidScore)

	_, err = h.orch.OnAssessmentVideoScored(context.Background(), AssessmentScoredCommand{
		EventID: "evt-1", UserID: "user-1", VideoID: "vid-1",
		CompetencyID: "comp-1", SkillID: "skill-1",
	})
	assert.ErrorIs(t, err, shared.ErrNoScorableAnswers)
}

// ─────────────────────────────────────────────────────────────────────────────
// BADGE RECALCULATION
// ─────────────────────────────────────────────────────────────────────────────

func TestRecalculateBadges_BackfillsMissingBadges(t *testing.T) {
	h := newHarness(t)

	// Seed a user whose state qualifies for badges nothing awarded yet.
	state, err := h.progressions.GetOrCreate(context.Background(), "user-1", "org-1")
	require.NoError(t, err)
	state.CurrentStreak = 3
	state.TotalCampaignsCompleted = 5
	require.NoError(t, h.progressions.Save(context.Background(), state, state.Version))

	result, err := h.orch.RecalculateBadges(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"first-completion", "streak-3", "campaigns-5"}, result.NewBadges)

	// A second pass finds nothing new.
	again, err := h.orch.RecalculateBadges(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, again.NewBadges)
}

func TestRecalculateBadges_NeverAwardsTimeWindowBadges(t *testing.T) {
	h := newHarness(t)

	state, err := h.progressions.GetOrCreate(context.Background(), "user-1", "org-1")
	require.NoError(t, err)
	state.TotalCampaignsCompleted = 1
	require.NoError(t, h.progressions.Save(context.Background(), state, state.Version))

	result, err := h.orch.RecalculateBadges(context.Background(), "user-1")
	require.NoError(t, err)

	for _, id := range result.NewBadges {
		assert.NotContains(t, []string{"night-owl", "early-bird"}, id)
	}
}

func TestRecalculateBadges_UnknownUser(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.RecalculateBadges(context.Background(), "ghost")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
