package digest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tomsflightclub/flightclub/app/models"
	"github.com/tomsflightclub/flightclub/internal/pkg/entitlements"
)

type fakePreferenceRepo struct {
	prefs []models.EmailPreference

	listErr      error
	touchErr     error
	touched      []uint
	touchedTimes map[uint]time.Time
}

func (r *fakePreferenceRepo) GetByUserID(userID uint) (*models.EmailPreference, error) {
	for i := range r.prefs {
		if r.prefs[i].UserID == userID {
			return &r.prefs[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePreferenceRepo) GetOrCreate(userID uint) (*models.EmailPreference, error) {
	if p, err := r.GetByUserID(userID); err == nil {
		return p, nil
	}
	r.prefs = append(r.prefs, models.EmailPreference{UserID: userID, Cadence: models.CadenceDaily, Subscribed: true})
	return &r.prefs[len(r.prefs)-1], nil
}

func (r *fakePreferenceRepo) Save(*models.EmailPreference) error { return nil }

func (r *fakePreferenceRepo) ListSubscribedByCadence(cadence string) ([]models.EmailPreference, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []models.EmailPreference
	for _, p := range r.prefs {
		if p.Subscribed && p.Cadence == cadence {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePreferenceRepo) UnsubscribeByUserID(userID uint) (int64, error) { return 0, nil }

func (r *fakePreferenceRepo) TouchLastSent(userID uint, at time.Time) error {
	if r.touchErr != nil {
		return r.touchErr
	}
	r.touched = append(r.touched, userID)
	if r.touchedTimes == nil {
		r.touchedTimes = map[uint]time.Time{}
	}
	r.touchedTimes[userID] = at
	return nil
}

type fakeUserRepo struct {
	users map[uint]*models.User
}

func (r *fakeUserRepo) Create(*models.User) error { return nil }
func (r *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}
func (r *fakeUserRepo) GetByEmail(string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *fakeUserRepo) GetByActivationToken(string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *fakeUserRepo) GetByStripeCustomerID(string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *fakeUserRepo) Update(*models.User) error            { return nil }
func (r *fakeUserRepo) UpdatePlan(uint, string) error        { return nil }
func (r *fakeUserRepo) List(int, int) ([]models.User, error) { return nil, nil }
func (r *fakeUserRepo) Count() (int64, error)                { return int64(len(r.users)), nil }
func (r *fakeUserRepo) Search(string) ([]models.User, error) { return nil, nil }

type fakePlanResolver struct {
	plans map[uint]entitlements.Plan
	err   error
}

func (r *fakePlanResolver) ResolveEffectivePlan(ctx context.Context, userID uint) (entitlements.Plan, *models.Subscription, error) {
	if r.err != nil {
		return entitlements.PlanFree, nil, r.err
	}
	if p, ok := r.plans[userID]; ok {
		return p, nil, nil
	}
	return entitlements.PlanFree, nil, nil
}

type fakeMailer struct {
	sent    []string
	failFor map[string]error
	block   bool
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if err, ok := m.failFor[to]; ok {
		return err
	}
	m.sent = append(m.sent, to)
	return nil
}

func newTestDispatcher(prefs *fakePreferenceRepo, users *fakeUserRepo, deals *fakeDealRepo, plans *fakePlanResolver, mailer *fakeMailer) *Dispatcher {
	return NewDispatcher(prefs, users, NewComposer(deals), plans, mailer)
}

func subscribedPref(userID uint, cadence string) models.EmailPreference {
	return models.EmailPreference{UserID: userID, Cadence: cadence, Subscribed: true}
}

func TestBulkSendDigestsRejectsUnknownCadence(t *testing.T) {
	d := newTestDispatcher(&fakePreferenceRepo{}, &fakeUserRepo{}, &fakeDealRepo{}, &fakePlanResolver{}, &fakeMailer{})

	_, err := d.BulkSendDigests(context.Background(), "fortnightly")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cadence")
}

func TestBulkSendDigestsOneFailureDoesNotAbortBatch(t *testing.T) {
	users := &fakeUserRepo{users: map[uint]*models.User{
		1: {ID: 1, Email: "a@example.com", Name: "A", HomeCity: "London"},
		2: {ID: 2, Email: "b@example.com", Name: "B", HomeCity: "London"},
		3: {ID: 3, Email: "c@example.com", Name: "C", HomeCity: "London"},
	}}
	prefs := &fakePreferenceRepo{prefs: []models.EmailPreference{
		subscribedPref(1, models.CadenceDaily),
		subscribedPref(2, models.CadenceDaily),
		subscribedPref(3, models.CadenceDaily),
	}}
	deals := &fakeDealRepo{deals: []models.Deal{makeDeal(1, "London", time.Hour, time.Hour)}}
	mailer := &fakeMailer{failFor: map[string]error{"b@example.com": errors.New("mailbox full")}}

	d := newTestDispatcher(prefs, users, deals, &fakePlanResolver{}, mailer)

	result, err := d.BulkSendDigests(context.Background(), models.CadenceDaily)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Skipped)
	assert.ElementsMatch(t, []string{"a@example.com", "c@example.com"}, mailer.sent)
	assert.ElementsMatch(t, []uint{1, 3}, prefs.touched, "only successful sends stamp last_sent_at")
}

func TestBulkSendDigestsSkipsEmptyDigests(t *testing.T) {
	users := &fakeUserRepo{users: map[uint]*models.User{
		1: {ID: 1, Email: "a@example.com", Name: "A", HomeCity: "Nowhere"},
	}}
	prefs := &fakePreferenceRepo{prefs: []models.EmailPreference{
		subscribedPref(1, models.CadenceWeekly),
	}}
	mailer := &fakeMailer{}

	d := newTestDispatcher(prefs, users, &fakeDealRepo{}, &fakePlanResolver{}, mailer)

	result, err := d.BulkSendDigests(context.Background(), models.CadenceWeekly)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Sent)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, mailer.sent)
	assert.Empty(t, prefs.touched)
}

func TestBulkSendDigestsOnlyMatchingCadence(t *testing.T) {
	users := &fakeUserRepo{users: map[uint]*models.User{
		1: {ID: 1, Email: "a@example.com", Name: "A", HomeCity: "London"},
		2: {ID: 2, Email: "b@example.com", Name: "B", HomeCity: "London"},
		3: {ID: 3, Email: "c@example.com", Name: "C", HomeCity: "London"},
	}}
	prefs := &fakePreferenceRepo{prefs: []models.EmailPreference{
		subscribedPref(1, models.CadenceDaily),
		subscribedPref(2, models.CadenceWeekly),
		{UserID: 3, Cadence: models.CadenceDaily, Subscribed: false},
	}}
	deals := &fakeDealRepo{deals: []models.Deal{makeDeal(1, "London", time.Hour, time.Hour)}}
	mailer := &fakeMailer{}

	d := newTestDispatcher(prefs, users, deals, &fakePlanResolver{}, mailer)

	result, err := d.BulkSendDigests(context.Background(), models.CadenceDaily)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, []string{"a@example.com"}, mailer.sent)
}

func TestBulkSendDigestsMissingUserCountsAsFailure(t *testing.T) {
	users := &fakeUserRepo{users: map[uint]*models.User{}}
	prefs := &fakePreferenceRepo{prefs: []models.EmailPreference{
		subscribedPref(99, models.CadenceDaily),
	}}

	d := newTestDispatcher(prefs, users, &fakeDealRepo{}, &fakePlanResolver{}, &fakeMailer{})

	result, err := d.BulkSendDigests(context.Background(), models.CadenceDaily)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
}

func TestBulkSendDigestsStalledSendTimesOut(t *testing.T) {
	users := &fakeUserRepo{users: map[uint]*models.User{
		1: {ID: 1, Email: "a@example.com", Name: "A", HomeCity: "London"},
	}}
	prefs := &fakePreferenceRepo{prefs: []models.EmailPreference{
		subscribedPref(1, models.CadenceDaily),
	}}
	deals := &fakeDealRepo{deals: []models.Deal{makeDeal(1, "London", time.Hour, time.Hour)}}

	d := newTestDispatcher(prefs, users, deals, &fakePlanResolver{}, &fakeMailer{block: true}).
		WithSendTimeout(20 * time.Millisecond)

	result, err := d.BulkSendDigests(context.Background(), models.CadenceDaily)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Sent)
	assert.Equal(t, 1, result.Failed)
	assert.Empty(t, prefs.touched)
}

func TestBulkSendDigestsFailedStampDoesNotFailSend(t *testing.T) {
	users := &fakeUserRepo{users: map[uint]*models.User{
		1: {ID: 1, Email: "a@example.com", Name: "A", HomeCity: "London"},
	}}
	prefs := &fakePreferenceRepo{
		prefs:    []models.EmailPreference{subscribedPref(1, models.CadenceDaily)},
		touchErr: errors.New("write timeout"),
	}
	deals := &fakeDealRepo{deals: []models.Deal{makeDeal(1, "London", time.Hour, time.Hour)}}
	mailer := &fakeMailer{}

	d := newTestDispatcher(prefs, users, deals, &fakePlanResolver{}, mailer)

	result, err := d.BulkSendDigests(context.Background(), models.CadenceDaily)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, []string{"a@example.com"}, mailer.sent)
}

func TestRunResultSummary(t *testing.T) {
	r := &RunResult{Cadence: "daily", Sent: 5, Failed: 1, Skipped: 2}
	assert.Equal(t, "cadence=daily sent=5 failed=1 skipped=2", r.Summary())
}
