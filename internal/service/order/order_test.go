package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/resale_shop/internal/events"
	"github.com/Skotchmaster/resale_shop/internal/models"
	"github.com/Skotchmaster/resale_shop/internal/payment"
	"github.com/Skotchmaster/resale_shop/internal/payment/paymenttest"
	"github.com/Skotchmaster/resale_shop/internal/repo"
	"github.com/Skotchmaster/resale_shop/internal/testdb"
)

const testSecret = "gateway-secret"

type fakeGateway struct {
	mu    sync.Mutex
	reqs  []payment.GatewayOrderRequest
	fail  error
	count int
}

func (g *fakeGateway) CreateOrder(_ context.Context, req payment.GatewayOrderRequest) (*payment.GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reqs = append(g.reqs, req)
	if g.fail != nil {
		return nil, g.fail
	}
	g.count++
	return &payment.GatewayOrder{
		ID: fmt.Sprintf("order_%d", g.count), Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt, Status: "created",
	}, nil
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.reqs)
}

type fixture struct {
	db  *gorm.DB
	svc *OrderService
	gw  *fakeGateway
	rec *events.Recorder
	r   *repo.GormRepo
}

func newFixture(t *testing.T) *fixture {
	db := testdb.New(t)
	gw := &fakeGateway{}
	rec := &events.Recorder{}
	r := repo.New(db)
	return &fixture{
		db: db, gw: gw, rec: rec, r: r,
		svc: &OrderService{Repo: r, Gateway: gw, Events: rec, KeyID: "rzp_test", KeySecret: testSecret, Currency: "INR"},
	}
}

func (f *fixture) addToCart(t *testing.T, userID uint, p *models.Product, qty uint) {
	t.Helper()
	require.NoError(t, f.r.AddToCart(context.Background(), &models.CartItem{
		UserID: userID, ProductID: p.ID, Quantity: qty, UnitPrice: p.SellingPrice,
	}))
}

func (f *fixture) orderCount(t *testing.T, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Order{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func (f *fixture) cartCount(t *testing.T, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func TestCreateOrder_EmptyCartSkipsGateway(t *testing.T) {
	f := newFixture(t)
	u := testdb.SeedUser(t, f.db, "u@example.com")

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{UserID: u.ID})
	require.ErrorIs(t, err, ErrCartEmpty)
	assert.Zero(t, f.gw.calls())
}

func TestCreateOrder_ChargesCurrentPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := testdb.SeedUser(t, f.db, "u@example.com")
	coat := testdb.SeedProduct(t, f.db, "coat", "100.00")
	tee := testdb.SeedProduct(t, f.db, "tee", "9.99")
	f.addToCart(t, u.ID, coat, 1)
	f.addToCart(t, u.ID, tee, 2)

	testdb.SetPrice(t, f.db, coat.ID, "120.00")

	_, err := f.svc.CreateOrder(ctx, CreateOrderInput{UserID: u.ID})
	var pce *PriceChangedError
	require.ErrorAs(t, err, &pce)
	require.ErrorIs(t, err, ErrPriceChanged)
	require.Len(t, pce.Changes, 1)
	assert.True(t, pce.Changes[0].OldPrice.Equal(decimal.NewFromInt(100)))
	assert.True(t, pce.Changes[0].NewPrice.Equal(decimal.NewFromInt(120)))
	assert.Zero(t, f.gw.calls())

	out, err := f.svc.CreateOrder(ctx, CreateOrderInput{UserID: u.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(13998), out.Amount)
	assert.True(t, out.Total.Equal(decimal.RequireFromString("139.98")))
	assert.Equal(t, "rzp_test", out.KeyID)
	assert.Equal(t, "INR", out.Currency)
	require.Equal(t, 1, f.gw.calls())
	assert.Equal(t, int64(13998), f.gw.reqs[0].Amount)
	assert.Len(t, out.Receipt, 37)
}

func TestCreateOrder_AcceptPriceChanges(t *testing.T) {
	f := newFixture(t)
	u := testdb.SeedUser(t, f.db, "u@example.com")
	p := testdb.SeedProduct(t, f.db, "bag", "50")
	f.addToCart(t, u.ID, p, 1)
	testdb.SetPrice(t, f.db, p.ID, "45")

	out, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{UserID: u.ID, AcceptPriceChanges: true})
	require.NoError(t, err)
	assert.Equal(t, int64(4500), out.Amount)

	lines, err := f.r.GetCartLines(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, lines[0].UnitPrice.Equal(decimal.NewFromInt(45)))
}

func TestCreateOrder_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := testdb.SeedUser(t, f.db, "u@example.com")
	p := testdb.SeedProduct(t, f.db, "belt", "15")
	f.addToCart(t, u.ID, p, 1)

	first, err := f.svc.CreateOrder(ctx, CreateOrderInput{UserID: u.ID})
	require.NoError(t, err)
	assert.False(t, first.Reused)

	second, err := f.svc.CreateOrder(ctx, CreateOrderInput{UserID: u.ID})
	require.NoError(t, err)
	assert.True(t, second.Reused)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, 1, f.gw.calls())

	t.Run("explicit key", func(t *testing.T) {
		a, err := f.svc.CreateOrder(ctx, CreateOrderInput{UserID: u.ID, IdempotencyKey: "client-key-1"})
		require.NoError(t, err)
		b, err := f.svc.CreateOrder(ctx, CreateOrderInput{UserID: u.ID, IdempotencyKey: "client-key-1"})
		require.NoError(t, err)
		assert.Equal(t, a.OrderID, b.OrderID)
		assert.Equal(t, 2, f.gw.calls())

		f.addToCart(t, u.ID, p, 1)
		_, err = f.svc.CreateOrder(ctx, CreateOrderInput{UserID: u.ID, IdempotencyKey: "client-key-1"})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("key too long", func(t *testing.T) {
		long := make([]byte, maxIdempotencyKeyLen+1)
		for i := range long {
			long[i] = 'k'
		}
		_, err := f.svc.CreateOrder(ctx, CreateOrderInput{UserID: u.ID, IdempotencyKey: string(long)})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestCreateOrder_InProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := testdb.SeedUser(t, f.db, "u@example.com")
	p := testdb.SeedProduct(t, f.db, "cap", "5")
	f.addToCart(t, u.ID, p, 1)

	lines, err := f.r.GetCartLines(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, f.r.CreateAttempt(ctx, &models.CheckoutAttempt{
		UserID: u.ID, IdempotencyKey: "k", CartHash: cartHash(u.ID, lines), Amount: 500, Currency: "INR", Receipt: "r",
	}))

	_, err = f.svc.CreateOrder(ctx, CreateOrderInput{UserID: u.ID, IdempotencyKey: "k"})
	assert.ErrorIs(t, err, ErrInProgress)
	assert.Zero(t, f.gw.calls())
}

func TestCreateOrder_ReclaimsStaleAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := testdb.SeedUser(t, f.db, "u@example.com")
	p := testdb.SeedProduct(t, f.db, "cap", "5")
	f.addToCart(t, u.ID, p, 1)

	lines, err := f.r.GetCartLines(ctx, u.ID)
	require.NoError(t, err)
	hash := cartHash(u.ID, lines)
	stuck := &models.CheckoutAttempt{
		UserID: u.ID, IdempotencyKey: "cart:" + hash[:40], CartHash: hash, Amount: 500, Currency: "INR", Receipt: "r",
	}
	require.NoError(t, f.r.CreateAttempt(ctx, stuck))

	_, err = f.svc.CreateOrder(ctx, CreateOrderInput{UserID: u.ID})
	require.ErrorIs(t, err, ErrInProgress, "recent creating attempt still blocks")

	// process died during the gateway call an hour ago
	require.NoError(t, f.db.Model(&models.CheckoutAttempt{}).Where("id = ?", stuck.ID).
		UpdateColumn("updated_at", time.Now().UTC().Add(-time.Hour)).Error)

	out, err := f.svc.CreateOrder(ctx, CreateOrderInput{UserID: u.ID})
	require.NoError(t, err)
	assert.False(t, out.Reused)
	assert.Equal(t, int64(500), out.Amount)
	assert.Equal(t, 1, f.gw.calls())

	var att models.CheckoutAttempt
	require.NoError(t, f.db.Preload("Items").First(&att, stuck.ID).Error)
	assert.Equal(t, models.AttemptCreated, att.Status)
	require.Len(t, att.Items, 1)
	assert.Equal(t, p.ID, att.Items[0].ProductID)

	sig := paymenttest.Sign(testSecret, out.OrderID, "pay_r")
	order, created, err := f.svc.VerifyPayment(ctx, VerifyInput{UserID: u.ID, OrderID: out.OrderID, PaymentID: "pay_r", Signature: sig})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, order.Items, 1)
}

func TestVerifyPayment_OrderMatchesChargedCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := testdb.SeedUser(t, f.db, "u@example.com")
	coat := testdb.SeedProduct(t, f.db, "coat", "100")
	bag := testdb.SeedProduct(t, f.db, "bag", "500")
	f.addToCart(t, u.ID, coat, 1)

	out, err := f.svc.CreateOrder(ctx, CreateOrderInput{UserID: u.ID})
	require.NoError(t, err)
	require.Equal(t, int64(10000), out.Amount)

	// cart and prices move between creating the order and paying for it
	f.addToCart(t, u.ID, bag, 3)
	testdb.SetPrice(t, f.db, coat.ID, "80")

	sig := paymenttest.Sign(testSecret, out.OrderID, "pay_c")
	order, created, err := f.svc.VerifyPayment(ctx, VerifyInput{UserID: u.ID, OrderID: out.OrderID, PaymentID: "pay_c", Signature: sig})
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(100)), order.Total.String())
	require.Len(t, order.Items, 1)
	assert.Equal(t, coat.ID, order.Items[0].ProductID)
	assert.Equal(t, uint(1), order.Items[0].Quantity)
	assert.True(t, order.Items[0].UnitPrice.Equal(decimal.NewFromInt(100)))

	lines, err := f.r.GetCartLines(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, bag.ID, lines[0].ProductID)
	assert.Equal(t, uint(3), lines[0].Quantity)
}

func TestCreateOrder_GatewayFailureCanBeRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := testdb.SeedUser(t, f.db, "u@example.com")
	p := testdb.SeedProduct(t, f.db, "vest", "30")
	f.addToCart(t, u.ID, p, 1)

	f.gw.fail = errors.New("upstream 503")
	_, err := f.svc.CreateOrder(ctx, CreateOrderInput{UserID: u.ID})
	require.ErrorIs(t, err, ErrGateway)

	var att models.CheckoutAttempt
	require.NoError(t, f.db.Where("user_id = ?", u.ID).First(&att).Error)
	assert.Equal(t, models.AttemptFailed, att.Status)

	f.gw.fail = nil
	out, err := f.svc.CreateOrder(ctx, CreateOrderInput{UserID: u.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, out.OrderID)

	var n int64
	require.NoError(t, f.db.Model(&models.CheckoutAttempt{}).Where("user_id = ?", u.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestVerifyPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := testdb.SeedUser(t, f.db, "u@example.com")
	p := testdb.SeedProduct(t, f.db, "skirt", "22.50")
	f.addToCart(t, u.ID, p, 2)

	out, err := f.svc.CreateOrder(ctx, CreateOrderInput{UserID: u.ID})
	require.NoError(t, err)
	sig := paymenttest.Sign(testSecret, out.OrderID, "pay_1")

	t.Run("missing fields", func(t *testing.T) {
		_, _, err := f.svc.VerifyPayment(ctx, VerifyInput{UserID: u.ID, OrderID: out.OrderID, PaymentID: "pay_1"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("tampered signature writes nothing", func(t *testing.T) {
		bad := []byte(sig)
		bad[len(bad)-1] ^= 1
		_, _, err := f.svc.VerifyPayment(ctx, VerifyInput{UserID: u.ID, OrderID: out.OrderID, PaymentID: "pay_1", Signature: string(bad)})
		require.ErrorIs(t, err, ErrInvalidSignature)
		assert.Zero(t, f.orderCount(t, u.ID))
		assert.Equal(t, int64(1), f.cartCount(t, u.ID))
	})

	t.Run("unknown gateway order", func(t *testing.T) {
		s := paymenttest.Sign(testSecret, "order_999", "pay_1")
		_, _, err := f.svc.VerifyPayment(ctx, VerifyInput{UserID: u.ID, OrderID: "order_999", PaymentID: "pay_1", Signature: s})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("other user cannot claim the order", func(t *testing.T) {
		other := testdb.SeedUser(t, f.db, "o@example.com")
		_, _, err := f.svc.VerifyPayment(ctx, VerifyInput{UserID: other.ID, OrderID: out.OrderID, PaymentID: "pay_1", Signature: sig})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	order, created, err := f.svc.VerifyPayment(ctx, VerifyInput{UserID: u.ID, OrderID: out.OrderID, PaymentID: "pay_1", Signature: sig})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(45)))
	assert.Equal(t, int64(1), f.orderCount(t, u.ID))
	assert.Zero(t, f.cartCount(t, u.ID))

	again, created, err := f.svc.VerifyPayment(ctx, VerifyInput{UserID: u.ID, OrderID: out.OrderID, PaymentID: "pay_1", Signature: sig})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, order.ID, again.ID)
	assert.Equal(t, int64(1), f.orderCount(t, u.ID))

	assert.Equal(t, []string{"checkout_started", "order_paid"}, f.rec.Types(events.TopicOrder))

	page, err := f.svc.ListOrders(ctx, u.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, int64(1), page.Meta.Total)

	got, err := f.svc.GetOrder(ctx, u.ID, order.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
	_, err = f.svc.GetOrder(ctx, u.ID+42, order.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	t.Run("same cart can check out again after payment", func(t *testing.T) {
		f.addToCart(t, u.ID, p, 2)
		next, err := f.svc.CreateOrder(ctx, CreateOrderInput{UserID: u.ID})
		require.NoError(t, err)
		assert.False(t, next.Reused)
		assert.NotEqual(t, out.OrderID, next.OrderID)
	})
}
