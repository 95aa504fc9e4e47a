package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Shakha99/backend-repo/internal/apperr"
	"github.com/Shakha99/backend-repo/internal/catalog"
	"github.com/Shakha99/backend-repo/internal/database"
	"github.com/Shakha99/backend-repo/internal/database/dbtest"
	"github.com/Shakha99/backend-repo/internal/gateway"
	"github.com/Shakha99/backend-repo/internal/group"
	"github.com/Shakha99/backend-repo/internal/invite"
)

var startTime = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// fakeGateway hands out transaction ids derived from the payment id
type fakeGateway struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeGateway) Provider() gateway.Provider { return gateway.Payme }

func (f *fakeGateway) CreateTransaction(_ context.Context, charge gateway.Charge) (*gateway.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	id := "tx-" + charge.PaymentID
	return &gateway.Transaction{ID: id, PaymentURL: "https://pay.test/" + id}, nil
}

func (f *fakeGateway) ParseCallback(*http.Request) (*gateway.Callback, error) {
	return nil, errors.New("not used")
}

func (f *fakeGateway) Respond(http.ResponseWriter, *gateway.Callback, error) {}

type fixture struct {
	db         *database.DB
	clock      *testClock
	invites    *invite.Service
	gw         *fakeGateway
	payments   *Service
	groups     *group.Service
	reconciler *Reconciler
}

func newFixture(t *testing.T, users ...int64) *fixture {
	t.Helper()
	return newFixtureOn(t, dbtest.New(t), users...)
}

func newFixtureOn(t *testing.T, db *database.DB, users ...int64) *fixture {
	t.Helper()
	ctx := context.Background()

	clock := &testClock{now: startTime}

	products := catalog.NewService(catalog.NewRepository(db))
	if _, err := products.SeedIfEmpty(ctx, db, &catalog.Product{
		Name:            "Course",
		Price:           decimal.NewFromInt(300000),
		DiscountedPrice: decimal.NewFromInt(200000),
	}); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	for _, id := range users {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO users (tg_id, created_at, updated_at) VALUES ($1, $2, $3)`,
			id, startTime, startTime); err != nil {
			t.Fatalf("insert user %d: %v", id, err)
		}
	}

	gw := &fakeGateway{}
	groupRepo := group.NewRepository(db)
	invites := invite.NewService(invite.NewRepository(db), "https://t.me/groupbuy_bot", clock.Now)
	repo := NewRepository(db)
	payments := NewService(db, repo, groupRepo, products, gateway.NewRegistry(gw), clock.Now)
	groups := group.NewService(db, groupRepo, invites, payments, clock.Now)

	return &fixture{
		db:         db,
		clock:      clock,
		invites:    invites,
		gw:         gw,
		payments:   payments,
		groups:     groups,
		reconciler: NewReconciler(db, repo, groupRepo, groups, clock.Now),
	}
}

// fullGroup creates a group for the first user and admits the other two
func (f *fixture) fullGroup(t *testing.T, users [3]int64) *group.Group {
	t.Helper()
	ctx := context.Background()

	g, err := f.groups.Create(ctx, users[0])
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	links, err := f.invites.ListLinks(ctx, users[0])
	if err != nil {
		t.Fatalf("ListLinks failed: %v", err)
	}
	for i, link := range links {
		_, code, _ := strings.Cut(link, "startapp=")
		if _, err := f.groups.Join(ctx, code, users[i+1]); err != nil {
			t.Fatalf("Join failed: %v", err)
		}
	}
	return g
}

// initiate starts a payment and returns its transaction id
func (f *fixture) initiate(t *testing.T, groupID, userID int64) string {
	t.Helper()
	started, err := f.payments.Initiate(context.Background(), groupID, userID, "payme")
	if err != nil {
		t.Fatalf("Initiate(%d, %d) failed: %v", groupID, userID, err)
	}
	return *started.Payment.TransactionID
}

func (f *fixture) apply(t *testing.T, txID string) *Result {
	t.Helper()
	res, err := f.reconciler.ApplyOutcome(context.Background(), txID, gateway.OutcomePaid)
	if err != nil {
		t.Fatalf("ApplyOutcome(%s) failed: %v", txID, err)
	}
	return res
}

func TestOpenedOnCreateAndJoin(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	g := f.fullGroup(t, [3]int64{1, 2, 3})

	for _, user := range []int64{1, 2, 3} {
		p, err := f.payments.repo.GetByMember(context.Background(), g.ID, user)
		if err != nil {
			t.Fatalf("GetByMember failed: %v", err)
		}
		if p == nil {
			t.Fatalf("expected a payment for user %d", user)
		}
		if p.Status != StatusPending || p.Bound() {
			t.Errorf("user %d: expected unbound pending payment, got %+v", user, p)
		}
		if !p.Amount.Equal(decimal.NewFromInt(200000)) {
			t.Errorf("user %d: expected amount 200000, got %s", user, p.Amount)
		}
	}

	if _, err := f.payments.Open(context.Background(), f.db, g.ID, 1); !errors.Is(err, ErrDuplicatePayment) {
		t.Errorf("expected ErrDuplicatePayment, got %v", err)
	}
}

func TestCompletionScenario(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	ctx := context.Background()
	g := f.fullGroup(t, [3]int64{1, 2, 3})

	tx1 := f.initiate(t, g.ID, 1)
	tx2 := f.initiate(t, g.ID, 2)
	tx3 := f.initiate(t, g.ID, 3)

	if res := f.apply(t, tx1); !res.Applied || res.GroupStatus != group.StatusForming {
		t.Errorf("U1: expected applied with forming group, got %+v", res)
	}
	if res := f.apply(t, tx2); res.GroupStatus != group.StatusForming {
		t.Errorf("U2: expected forming, got %s", res.GroupStatus)
	}
	if res := f.apply(t, tx3); res.GroupStatus != group.StatusCompleted {
		t.Errorf("U3: expected completed, got %s", res.GroupStatus)
	}

	f.clock.Set(startTime.Add(25 * time.Hour))
	if _, err := f.groups.SweepExpired(ctx); err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}
	view, err := f.groups.Status(ctx, g.ID)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if view.Group.Status != group.StatusCompleted {
		t.Errorf("expected completed to survive the expiry check, got %s", view.Group.Status)
	}
}

func TestRedeliveryIsIdempotent(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	ctx := context.Background()
	g := f.fullGroup(t, [3]int64{1, 2, 3})

	txID := f.initiate(t, g.ID, 1)

	first := f.apply(t, txID)
	if !first.Applied {
		t.Fatal("first delivery should apply")
	}
	before, err := f.groups.Status(ctx, g.ID)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}

	f.clock.Set(startTime.Add(time.Minute))
	second := f.apply(t, txID)
	if second.Applied {
		t.Error("redelivery should be a no-op")
	}
	if second.Payment.Status != StatusPaid || !second.Payment.PaidAt.Equal(*first.Payment.PaidAt) {
		t.Errorf("redelivery changed the payment: %+v", second.Payment)
	}

	after, err := f.groups.Status(ctx, g.ID)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if group.PaidCount(after.Members) != group.PaidCount(before.Members) || after.Group.Status != before.Group.Status {
		t.Errorf("redelivery changed the group: before %d/%s after %d/%s",
			group.PaidCount(before.Members), before.Group.Status, group.PaidCount(after.Members), after.Group.Status)
	}
}

func TestConcurrentCallbacks(t *testing.T) {
	testConcurrentCallbacks(t, newFixture(t, 1, 2, 3))
}

// Exercises the FOR UPDATE path; SQLite serializes every transaction on its single connection
func TestConcurrentCallbacksPostgres(t *testing.T) {
	testConcurrentCallbacks(t, newFixtureOn(t, dbtest.NewPostgres(t), 1, 2, 3))
}

func testConcurrentCallbacks(t *testing.T, f *fixture) {
	t.Helper()
	g := f.fullGroup(t, [3]int64{1, 2, 3})

	txIDs := []string{f.initiate(t, g.ID, 1), f.initiate(t, g.ID, 2), f.initiate(t, g.ID, 3)}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied = map[string]int{}
		errs    []error
	)
	// every transaction is delivered three times at once
	for _, txID := range txIDs {
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func(txID string) {
				defer wg.Done()
				res, err := f.reconciler.ApplyOutcome(context.Background(), txID, gateway.OutcomePaid)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, err)
					return
				}
				if res.Applied {
					applied[txID]++
				}
			}(txID)
		}
	}
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("ApplyOutcome errors: %v", errs)
	}
	for _, txID := range txIDs {
		if applied[txID] != 1 {
			t.Errorf("%s applied %d times, want 1", txID, applied[txID])
		}
	}

	view, err := f.groups.Status(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if view.Group.Status != group.StatusCompleted {
		t.Errorf("expected completed, got %s", view.Group.Status)
	}
}

func TestLatePaymentsKeepFailedGroup(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	g := f.fullGroup(t, [3]int64{1, 2, 3})

	tx1 := f.initiate(t, g.ID, 1)
	tx2 := f.initiate(t, g.ID, 2)
	tx3 := f.initiate(t, g.ID, 3)
	f.apply(t, tx1)

	f.clock.Set(startTime.Add(24*time.Hour + time.Second))
	eval, err := f.groups.Evaluate(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if eval.Group.Status != group.StatusFailed {
		t.Fatalf("expected failed, got %s", eval.Group.Status)
	}

	f.apply(t, tx2)
	res := f.apply(t, tx3)
	if !res.Applied {
		t.Error("late payment should still be recorded")
	}
	if res.GroupStatus != group.StatusFailed {
		t.Errorf("expected failed to be sticky, got %s", res.GroupStatus)
	}
}

func TestApplyOutcomeErrors(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	if _, err := f.reconciler.ApplyOutcome(ctx, "missing", gateway.OutcomePaid); !errors.Is(err, ErrUnknownTransaction) {
		t.Errorf("expected ErrUnknownTransaction, got %v", err)
	}

	g, err := f.groups.Create(ctx, 1)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	txID := f.initiate(t, g.ID, 1)

	res, err := f.reconciler.ApplyOutcome(ctx, txID, gateway.OutcomePending)
	if err != nil || res.Applied {
		t.Errorf("pending on a pending payment should be a no-op, got %+v %v", res, err)
	}

	f.apply(t, txID)
	if _, err := f.reconciler.ApplyOutcome(ctx, txID, gateway.OutcomePending); !errors.Is(err, ErrDowngrade) {
		t.Errorf("expected ErrDowngrade, got %v", err)
	}
	if _, err := f.reconciler.ApplyOutcome(ctx, txID, gateway.Outcome("refunded")); !errors.Is(err, ErrInvalidOutcome) {
		t.Errorf("expected ErrInvalidOutcome, got %v", err)
	}
}

func TestInitiate(t *testing.T) {
	f := newFixture(t, 1, 2)
	ctx := context.Background()

	g, err := f.groups.Create(ctx, 1)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	t.Run("not a member", func(t *testing.T) {
		if _, err := f.payments.Initiate(ctx, g.ID, 2, "payme"); !errors.Is(err, ErrPaymentNotFound) {
			t.Errorf("expected ErrPaymentNotFound, got %v", err)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		if _, err := f.payments.Initiate(ctx, g.ID, 1, "paypal"); !errors.Is(err, gateway.ErrUnknownProvider) {
			t.Errorf("expected ErrUnknownProvider, got %v", err)
		}
	})

	t.Run("gateway failure", func(t *testing.T) {
		f.gw.err = fmt.Errorf("connection reset")
		defer func() { f.gw.err = nil }()

		_, err := f.payments.Initiate(ctx, g.ID, 1, "payme")
		if apperr.KindOf(err) != apperr.KindUpstream {
			t.Errorf("expected UPSTREAM_FAILURE, got %v", err)
		}
		p, _ := f.payments.repo.GetByMember(ctx, g.ID, 1)
		if p.Bound() {
			t.Error("failed initiation must not bind a transaction")
		}
	})

	t.Run("binds once", func(t *testing.T) {
		started, err := f.payments.Initiate(ctx, g.ID, 1, "payme")
		if err != nil {
			t.Fatalf("Initiate failed: %v", err)
		}
		if !strings.HasPrefix(started.PaymentURL, "https://pay.test/tx-") {
			t.Errorf("unexpected payment url %q", started.PaymentURL)
		}

		calls := f.gw.calls
		if _, err := f.payments.Initiate(ctx, g.ID, 1, "payme"); !errors.Is(err, ErrAlreadyBound) {
			t.Errorf("expected ErrAlreadyBound, got %v", err)
		}
		if f.gw.calls != calls {
			t.Error("an already bound payment must not reach the gateway")
		}

		if err := f.payments.Bind(ctx, started.Payment.ID, "other", gateway.Click); !errors.Is(err, ErrAlreadyBound) {
			t.Errorf("rebinding: expected ErrAlreadyBound, got %v", err)
		}
	})

	t.Run("closed group", func(t *testing.T) {
		f.clock.Set(startTime.Add(25 * time.Hour))
		defer f.clock.Set(startTime)

		other, err := f.groups.Create(ctx, 2)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		f.clock.Set(startTime.Add(50 * time.Hour))

		if _, err := f.payments.Initiate(ctx, other.ID, 2, "payme"); !errors.Is(err, group.ErrGroupClosed) {
			t.Errorf("expected ErrGroupClosed, got %v", err)
		}
	})
}

func TestBindRejectsForeignTransaction(t *testing.T) {
	f := newFixture(t, 1, 2)
	ctx := context.Background()

	g1, err := f.groups.Create(ctx, 1)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	g2, err := f.groups.Create(ctx, 2)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	p1, _ := f.payments.repo.GetByMember(ctx, g1.ID, 1)
	p2, _ := f.payments.repo.GetByMember(ctx, g2.ID, 2)

	if err := f.payments.Bind(ctx, p1.ID, "shared", gateway.Payme); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if err := f.payments.Bind(ctx, p2.ID, "shared", gateway.Payme); !errors.Is(err, ErrAlreadyBound) {
		t.Errorf("expected ErrAlreadyBound for a transaction owned by another payment, got %v", err)
	}
}
