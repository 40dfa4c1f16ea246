package services

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Yzori/Critvue-sub002/internal/config"
	"github.com/Yzori/Critvue-sub002/internal/models"
	"github.com/Yzori/Critvue-sub002/internal/repositories"
)

// fakeDB satisfies the Database interface with a single mutex in place of
// row locks. Real transitions serialize on the request row lock; the mutex
// reproduces that serialization for concurrency tests.
type fakeDB struct {
	mu sync.Mutex
}

func (f *fakeDB) Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fc(nil)
}

// memStore is shared in-memory state behind the repository fakes. Access
// is serialized by fakeDB's mutex, matching how the real repositories are
// only called inside transactions.
type memStore struct {
	mu sync.Mutex

	users       map[string]*models.User
	requests    map[string]*models.ReviewRequest
	slots       map[string]*models.ReviewSlot
	stats       map[string]*models.ReviewerStats
	events      []models.KarmaEvent
	milestones  []models.TierMilestone
	adminClaims map[string]*models.AdminClaim
	payments    []models.PaymentTransaction

	seq   int
	clock time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[string]*models.User{},
		requests:    map[string]*models.ReviewRequest{},
		slots:       map[string]*models.ReviewSlot{},
		stats:       map[string]*models.ReviewerStats{},
		adminClaims: map[string]*models.AdminClaim{},
		clock:       time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC), // a Monday
	}
}

func (st *memStore) nextID(prefix string) string {
	st.seq++
	return fmt.Sprintf("%s-%04d", prefix, st.seq)
}

// tick advances the fake creation clock so ordering by CreatedAt is
// deterministic.
func (st *memStore) tick() time.Time {
	st.clock = st.clock.Add(time.Second)
	return st.clock
}

func (st *memStore) addUser(u *models.User) *models.User {
	st.mu.Lock()
	defer st.mu.Unlock()
	if u.ID == "" {
		u.ID = st.nextID("user")
	}
	u.CreatedAt = st.tick()
	st.users[u.ID] = u
	return u
}

func (st *memStore) addRequest(r *models.ReviewRequest) *models.ReviewRequest {
	st.mu.Lock()
	defer st.mu.Unlock()
	if r.ID == "" {
		r.ID = st.nextID("req")
	}
	r.CreatedAt = st.tick()
	cp := *r
	st.requests[r.ID] = &cp
	return r
}

func (st *memStore) addSlot(s *models.ReviewSlot) *models.ReviewSlot {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s.ID == "" {
		s.ID = st.nextID("slot")
	}
	s.CreatedAt = st.tick()
	cp := *s
	st.slots[s.ID] = &cp
	return s
}

func (st *memStore) slot(id string) models.ReviewSlot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return *st.slots[id]
}

func (st *memStore) request(id string) models.ReviewRequest {
	st.mu.Lock()
	defer st.mu.Unlock()
	return *st.requests[id]
}

func (st *memStore) reviewerStats(userID string) models.ReviewerStats {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.stats[userID]; ok {
		return *s
	}
	return models.ReviewerStats{UserID: userID, Tier: models.TierNovice}
}

// ---- request repository fake ----

type fakeRequestRepo struct{ st *memStore }

func (r *fakeRequestRepo) Create(_ *gorm.DB, req *models.ReviewRequest) error {
	r.st.addRequest(req)
	return nil
}

func (r *fakeRequestRepo) FindByID(_ *gorm.DB, id string) (*models.ReviewRequest, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	req, ok := r.st.requests[id]
	if !ok {
		return nil, repositories.ErrRequestNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *fakeRequestRepo) FindByIDForUpdate(db *gorm.DB, id string) (*models.ReviewRequest, error) {
	return r.FindByID(db, id)
}

func (r *fakeRequestRepo) FindByOwner(_ *gorm.DB, ownerID string) ([]models.ReviewRequest, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []models.ReviewRequest
	for _, req := range r.st.requests {
		if req.OwnerID == ownerID {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (r *fakeRequestRepo) FindClaimable(_ *gorm.DB, category string, limit, offset int) ([]models.ReviewRequest, int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []models.ReviewRequest
	for _, req := range r.st.requests {
		if !req.Status.IsClaimable() || req.ClaimedCount >= req.ReviewsRequested {
			continue
		}
		if category != "" && req.Category != category {
			continue
		}
		out = append(out, *req)
	}
	return out, int64(len(out)), nil
}

func (r *fakeRequestRepo) Save(_ *gorm.DB, req *models.ReviewRequest) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	cp := *req
	r.st.requests[req.ID] = &cp
	return nil
}

func (r *fakeRequestRepo) SoftDelete(_ *gorm.DB, id string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	delete(r.st.requests, id)
	return nil
}

// ---- slot repository fake ----

type fakeSlotRepo struct{ st *memStore }

func (r *fakeSlotRepo) Create(_ *gorm.DB, slot *models.ReviewSlot) error {
	r.st.addSlot(slot)
	return nil
}

func (r *fakeSlotRepo) CreateBatch(_ *gorm.DB, slots []models.ReviewSlot) error {
	for i := range slots {
		r.st.addSlot(&slots[i])
	}
	return nil
}

func (r *fakeSlotRepo) FindByID(_ *gorm.DB, id string) (*models.ReviewSlot, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	slot, ok := r.st.slots[id]
	if !ok {
		return nil, repositories.ErrSlotNotFound
	}
	cp := *slot
	return &cp, nil
}

func (r *fakeSlotRepo) FindByIDForUpdate(db *gorm.DB, id string) (*models.ReviewSlot, error) {
	return r.FindByID(db, id)
}

func (r *fakeSlotRepo) FindAvailableForUpdate(_ *gorm.DB, requestID string) (*models.ReviewSlot, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var candidates []*models.ReviewSlot
	for _, slot := range r.st.slots {
		if slot.RequestID == requestID && slot.Status == models.SlotStatusAvailable {
			candidates = append(candidates, slot)
		}
	}
	if len(candidates) == 0 {
		return nil, repositories.ErrSlotNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	cp := *candidates[0]
	return &cp, nil
}

func (r *fakeSlotRepo) FindByRequest(_ *gorm.DB, requestID string) ([]models.ReviewSlot, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []models.ReviewSlot
	for _, slot := range r.st.slots {
		if slot.RequestID == requestID {
			out = append(out, *slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeSlotRepo) FindByReviewer(_ *gorm.DB, reviewerID string) ([]models.ReviewSlot, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []models.ReviewSlot
	for _, slot := range r.st.slots {
		if slot.ReviewerID != nil && *slot.ReviewerID == reviewerID {
			out = append(out, *slot)
		}
	}
	return out, nil
}

func (r *fakeSlotRepo) FindDisputed(_ *gorm.DB, limit, offset int) ([]models.ReviewSlot, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []models.ReviewSlot
	for _, slot := range r.st.slots {
		if slot.Status == models.SlotStatusDisputed {
			out = append(out, *slot)
		}
	}
	return out, nil
}

func (r *fakeSlotRepo) HasActiveSlot(_ *gorm.DB, requestID, reviewerID string) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, slot := range r.st.slots {
		if slot.RequestID == requestID &&
			slot.ReviewerID != nil && *slot.ReviewerID == reviewerID &&
			slot.Status.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSlotRepo) HasActiveSlotsOnRequest(_ *gorm.DB, requestID string) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, slot := range r.st.slots {
		if slot.RequestID == requestID && slot.Status.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSlotRepo) CountPaidClaimsSince(_ *gorm.DB, reviewerID string, since time.Time) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var n int64
	for _, slot := range r.st.slots {
		claimedBy := (slot.ReviewerID != nil && *slot.ReviewerID == reviewerID) ||
			(slot.AbandonedBy != nil && *slot.AbandonedBy == reviewerID)
		if claimedBy && slot.PaymentAmount > 0 &&
			slot.ClaimedAt != nil && !slot.ClaimedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeSlotRepo) Save(_ *gorm.DB, slot *models.ReviewSlot) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	slot.UpdatedAt = r.st.tick()
	cp := *slot
	r.st.slots[slot.ID] = &cp
	return nil
}

func (r *fakeSlotRepo) FindExpiredClaimed(_ *gorm.DB, now time.Time, limit int) ([]models.ReviewSlot, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []models.ReviewSlot
	for _, slot := range r.st.slots {
		if slot.Status == models.SlotStatusClaimed &&
			slot.ClaimDeadline != nil && slot.ClaimDeadline.Before(now) {
			out = append(out, *slot)
		}
	}
	return out, nil
}

func (r *fakeSlotRepo) FindAutoAcceptDue(_ *gorm.DB, now time.Time, limit int) ([]models.ReviewSlot, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []models.ReviewSlot
	for _, slot := range r.st.slots {
		if slot.Status == models.SlotStatusSubmitted &&
			slot.AutoAcceptDeadline != nil && slot.AutoAcceptDeadline.Before(now) {
			out = append(out, *slot)
		}
	}
	return out, nil
}

func (r *fakeSlotRepo) FindStaleRejected(_ *gorm.DB, cutoff time.Time, limit int) ([]models.ReviewSlot, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []models.ReviewSlot
	for _, slot := range r.st.slots {
		if slot.Status == models.SlotStatusRejected && !slot.IsDisputed &&
			slot.PaymentStatus == models.PaymentStatusEscrowed &&
			slot.UpdatedAt.Before(cutoff) {
			out = append(out, *slot)
		}
	}
	return out, nil
}

// ---- user repository fake ----

type fakeUserRepo struct{ st *memStore }

func (r *fakeUserRepo) Create(_ *gorm.DB, user *models.User) error {
	r.st.addUser(user)
	return nil
}

func (r *fakeUserRepo) FindByID(_ *gorm.DB, id string) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	u, ok := r.st.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByEmail(_ *gorm.DB, email string) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, u := range r.st.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) Save(_ *gorm.DB, user *models.User) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	cp := *user
	r.st.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) CreateRefreshToken(_ *gorm.DB, token *models.RefreshToken) error {
	return nil
}

func (r *fakeUserRepo) FindRefreshToken(_ *gorm.DB, token string) (*models.RefreshToken, error) {
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) DeleteRefreshToken(_ *gorm.DB, token string) error { return nil }

// ---- reputation repository fake ----

type fakeReputationRepo struct{ st *memStore }

func (r *fakeReputationRepo) GetOrCreateStats(_ *gorm.DB, userID string) (*models.ReviewerStats, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if s, ok := r.st.stats[userID]; ok {
		cp := *s
		return &cp, nil
	}
	s := &models.ReviewerStats{UserID: userID, Tier: models.TierNovice}
	s.ID = r.st.nextID("stats")
	r.st.stats[userID] = s
	cp := *s
	return &cp, nil
}

func (r *fakeReputationRepo) GetOrCreateStatsForUpdate(db *gorm.DB, userID string) (*models.ReviewerStats, error) {
	return r.GetOrCreateStats(db, userID)
}

func (r *fakeReputationRepo) SaveStats(_ *gorm.DB, stats *models.ReviewerStats) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	cp := *stats
	r.st.stats[stats.UserID] = &cp
	return nil
}

func (r *fakeReputationRepo) AppendEvent(_ *gorm.DB, event *models.KarmaEvent) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	event.ID = r.st.nextID("karma")
	event.CreatedAt = r.st.tick()
	r.st.events = append(r.st.events, *event)
	return nil
}

func (r *fakeReputationRepo) FindEventsByUser(_ *gorm.DB, userID string, limit int) ([]models.KarmaEvent, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []models.KarmaEvent
	for _, e := range r.st.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeReputationRepo) CreateMilestone(_ *gorm.DB, milestone *models.TierMilestone) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	milestone.ID = r.st.nextID("milestone")
	r.st.milestones = append(r.st.milestones, *milestone)
	return nil
}

func (r *fakeReputationRepo) FindMilestonesByUser(_ *gorm.DB, userID string) ([]models.TierMilestone, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []models.TierMilestone
	for _, m := range r.st.milestones {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

// ---- admin claim repository fake ----

type fakeAdminClaimRepo struct{ st *memStore }

func (r *fakeAdminClaimRepo) Create(_ *gorm.DB, claim *models.AdminClaim) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	claim.ID = r.st.nextID("aclaim")
	claim.CreatedAt = r.st.tick()
	cp := *claim
	r.st.adminClaims[claim.ID] = &cp
	return nil
}

func (r *fakeAdminClaimRepo) FindActiveBySlot(_ *gorm.DB, slotID string) (*models.AdminClaim, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, c := range r.st.adminClaims {
		if c.SlotID == slotID && c.ReleasedAt == nil {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repositories.ErrAdminClaimNotFound
}

func (r *fakeAdminClaimRepo) FindStale(_ *gorm.DB, cutoff time.Time, limit int) ([]models.AdminClaim, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []models.AdminClaim
	for _, c := range r.st.adminClaims {
		if c.ReleasedAt == nil && c.CreatedAt.Before(cutoff) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeAdminClaimRepo) Release(_ *gorm.DB, id string, at time.Time) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	c, ok := r.st.adminClaims[id]
	if !ok {
		return repositories.ErrAdminClaimNotFound
	}
	c.ReleasedAt = &at
	return nil
}

// ---- notifier and payments fakes ----

type sentNotification struct {
	UserID string
	Type   models.NotificationType
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (f *fakeNotifier) Notify(userID string, ntype models.NotificationType, title, message string, slotID *string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{UserID: userID, Type: ntype})
}

func (f *fakeNotifier) countByType(ntype models.NotificationType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sent {
		if s.Type == ntype {
			n++
		}
	}
	return n
}

type fakePayments struct {
	st     *memStore
	feePct float64
}

func (p *fakePayments) record(slotID string, userID *string, typ models.PaymentTransactionType, amount, net float64) {
	p.st.mu.Lock()
	defer p.st.mu.Unlock()
	p.st.payments = append(p.st.payments, models.PaymentTransaction{
		SlotID:    slotID,
		UserID:    userID,
		Type:      typ,
		Amount:    amount,
		NetAmount: net,
	})
}

func (p *fakePayments) Escrow(_ *gorm.DB, slotID string, reviewerID *string, amount float64) error {
	p.record(slotID, reviewerID, models.PaymentTransactionEscrow, amount, 0)
	return nil
}

func (p *fakePayments) Release(_ *gorm.DB, slotID string, reviewerID *string, amount float64) (float64, error) {
	net := amount * (1 - p.feePct/100)
	p.record(slotID, reviewerID, models.PaymentTransactionRelease, amount, net)
	return net, nil
}

func (p *fakePayments) Refund(_ *gorm.DB, slotID string, ownerID string, amount float64) error {
	p.record(slotID, &ownerID, models.PaymentTransactionRefund, amount, 0)
	return nil
}

func (st *memStore) paymentsByType(typ models.PaymentTransactionType) []models.PaymentTransaction {
	st.mu.Lock()
	defer st.mu.Unlock()
	var out []models.PaymentTransaction
	for _, p := range st.payments {
		if p.Type == typ {
			out = append(out, p)
		}
	}
	return out
}

// ---- test environment ----

type testEnv struct {
	st       *memStore
	db       *fakeDB
	notifier *fakeNotifier
	payments *fakePayments

	slotRepo       *fakeSlotRepo
	requestRepo    *fakeRequestRepo
	userRepo       *fakeUserRepo
	repRepo        *fakeReputationRepo
	adminClaimRepo *fakeAdminClaimRepo

	tiers   *TierService
	rewards *RewardService
	machine *SlotMachine
	claims  ClaimService

	clock time.Time
}

func defaultKarmaConfig() config.KarmaConfig {
	cfg := config.Config{}
	cfg.Karma = config.KarmaConfig{
		SubmissionBonus:    10,
		FirstOfDayBonus:    5,
		Streak5Bonus:       25,
		Streak10Bonus:      60,
		Streak25Bonus:      150,
		Accept3StarBonus:   15,
		Accept4StarBonus:   25,
		Accept5StarBonus:   40,
		AcceptUnratedBonus: 20,
		AutoAcceptBonus:    15,
		RejectPenalty:      10,
		RejectSpamPenalty:  50,
		AbandonPenalty:     15,
		DisputeWonBonus:    30,
		DisputeLostPenalty: 30,
	}
	return cfg.Karma
}

func defaultEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		ClaimTTLHours:      72,
		AutoAcceptDays:     7,
		DisputeWindowDays:  7,
		AdminClaimTTLDays:  7,
		MinFeedbackChars:   50,
		MinStructuredWords: 50,
		HourlySweepCron:    "0 * * * *",
		DailySweepCron:     "30 3 * * *",
	}
}

func newTestEnv() *testEnv {
	st := newMemStore()
	env := &testEnv{
		st:             st,
		db:             &fakeDB{},
		notifier:       &fakeNotifier{},
		payments:       &fakePayments{st: st, feePct: 10},
		slotRepo:       &fakeSlotRepo{st: st},
		requestRepo:    &fakeRequestRepo{st: st},
		userRepo:       &fakeUserRepo{st: st},
		repRepo:        &fakeReputationRepo{st: st},
		adminClaimRepo: &fakeAdminClaimRepo{st: st},
		clock:          time.Date(2025, 6, 4, 10, 0, 0, 0, time.UTC), // a Wednesday
	}

	now := func() time.Time { return env.clock }

	env.tiers = NewTierService(env.slotRepo, env.repRepo, env.notifier)
	env.tiers.SetClock(now)
	env.rewards = NewRewardService(env.repRepo, env.tiers, defaultKarmaConfig())
	env.rewards.SetClock(now)
	env.machine = NewSlotMachine(env.db, env.slotRepo, env.requestRepo, env.userRepo,
		env.adminClaimRepo, env.rewards, env.payments, env.notifier, defaultEngineConfig())
	env.machine.SetClock(now)
	env.claims = NewClaimService(env.db, env.machine, env.slotRepo, env.requestRepo,
		env.userRepo, env.tiers)
	return env
}

func (env *testEnv) advance(d time.Duration) {
	env.clock = env.clock.Add(d)
}

// seedRequest creates an owner, a request with n slots and returns both.
func (env *testEnv) seedRequest(n int, budget *float64) (*models.User, *models.ReviewRequest, []string) {
	owner := env.st.addUser(&models.User{
		Email:  fmt.Sprintf("owner-%d@test.local", env.st.seq),
		Role:   models.UserRoleCreator,
		Status: models.UserStatusActive,
	})
	request := env.st.addRequest(&models.ReviewRequest{
		OwnerID:          owner.ID,
		Title:            "Landing page copy",
		Category:         "writing",
		ReviewsRequested: n,
		Status:           models.RequestStatusPending,
		BudgetPerReview:  budget,
	})
	slotIDs := make([]string, n)
	for i := 0; i < n; i++ {
		slot := env.st.addSlot(&models.ReviewSlot{
			RequestID: request.ID,
			Status:    models.SlotStatusAvailable,
		})
		slotIDs[i] = slot.ID
	}
	return owner, request, slotIDs
}

func (env *testEnv) seedReviewer(payoutReady bool) *models.User {
	return env.st.addUser(&models.User{
		Email:       fmt.Sprintf("reviewer-%d@test.local", env.st.seq),
		Role:        models.UserRoleReviewer,
		Status:      models.UserStatusActive,
		PayoutReady: payoutReady,
	})
}

func (env *testEnv) setStats(userID string, mutate func(*models.ReviewerStats)) {
	stats, _ := env.repRepo.GetOrCreateStats(nil, userID)
	mutate(stats)
	_ = env.repRepo.SaveStats(nil, stats)
}

// longFeedback clears the free-text length floor used in tests.
const longFeedback = "The opening section is strong but the pricing table needs clearer tier names and the CTA copy is too vague to convert well."

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }
