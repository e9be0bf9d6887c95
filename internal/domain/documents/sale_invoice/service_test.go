package sale_invoice

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/entity"
	"pharmacore/internal/core/id"
	"pharmacore/internal/core/numerator"
	"pharmacore/internal/core/security"
	"pharmacore/internal/core/tx"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain"
	"pharmacore/internal/domain/account"
	"pharmacore/internal/domain/alerts"
	"pharmacore/internal/domain/allocation"
	"pharmacore/internal/domain/batches"
	"pharmacore/internal/domain/catalogs/customer"
	"pharmacore/internal/domain/catalogs/medicine"
	"pharmacore/internal/domain/ledger"
	"pharmacore/internal/domain/posting"
)

// --- in-memory fakes ---

type stubTxManager struct{}

func (stubTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memSaleRepo struct {
	docs             map[id.ID]*SaleInvoice
	lines            map[id.ID][]SaleLine
	dependentReturns bool
}

func newMemSaleRepo() *memSaleRepo {
	return &memSaleRepo{
		docs:  make(map[id.ID]*SaleInvoice),
		lines: make(map[id.ID][]SaleLine),
	}
}

func (r *memSaleRepo) Create(ctx context.Context, doc *SaleInvoice) error {
	r.docs[doc.ID] = doc
	return nil
}

func (r *memSaleRepo) GetByID(ctx context.Context, docID id.ID) (*SaleInvoice, error) {
	if doc, ok := r.docs[docID]; ok {
		return doc, nil
	}
	return nil, apperror.NewNotFound("sale_invoice", docID.String())
}

func (r *memSaleRepo) GetByNumber(ctx context.Context, number string) (*SaleInvoice, error) {
	for _, doc := range r.docs {
		if doc.Number == number {
			return doc, nil
		}
	}
	return nil, apperror.NewNotFound("sale_invoice", number)
}

func (r *memSaleRepo) Update(ctx context.Context, doc *SaleInvoice) error {
	r.docs[doc.ID] = doc
	return nil
}

func (r *memSaleRepo) Delete(ctx context.Context, docID id.ID) error {
	delete(r.docs, docID)
	return nil
}

func (r *memSaleRepo) GetLines(ctx context.Context, docID id.ID) ([]SaleLine, error) {
	return r.lines[docID], nil
}

func (r *memSaleRepo) SaveLines(ctx context.Context, docID id.ID, lines []SaleLine) error {
	r.lines[docID] = lines
	return nil
}

func (r *memSaleRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*SaleInvoice], error) {
	return domain.ListResult[*SaleInvoice]{}, nil
}

func (r *memSaleRepo) GetForUpdate(ctx context.Context, docID id.ID) (*SaleInvoice, error) {
	return r.GetByID(ctx, docID)
}

func (r *memSaleRepo) HasDependentReturns(ctx context.Context, invoiceID id.ID) (bool, error) {
	return r.dependentReturns, nil
}

type memBatchRepo struct {
	byID map[id.ID]*batches.Batch
}

func newMemBatchRepo() *memBatchRepo {
	return &memBatchRepo{byID: make(map[id.ID]*batches.Batch)}
}

func (r *memBatchRepo) Create(ctx context.Context, b *batches.Batch) error {
	r.byID[b.ID] = b
	return nil
}

func (r *memBatchRepo) GetByID(ctx context.Context, batchID id.ID) (*batches.Batch, error) {
	if b, ok := r.byID[batchID]; ok {
		return b, nil
	}
	return nil, apperror.NewNotFound("batch", batchID.String())
}

func (r *memBatchRepo) GetForUpdate(ctx context.Context, batchID id.ID) (*batches.Batch, error) {
	return r.GetByID(ctx, batchID)
}

func (r *memBatchRepo) Update(ctx context.Context, b *batches.Batch) error {
	r.byID[b.ID] = b
	return nil
}

func (r *memBatchRepo) ListByMedicine(ctx context.Context, medicineID id.ID) ([]*batches.Batch, error) {
	var out []*batches.Batch
	for _, b := range r.byID {
		if b.MedicineID == medicineID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBatchRepo) ListSellableForUpdate(ctx context.Context, medicineID id.ID, asOf time.Time) ([]*batches.Batch, error) {
	var out []*batches.Batch
	for _, b := range r.byID {
		if b.MedicineID == medicineID && b.IsSellable(asOf) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(out[j].ExpiryDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *memBatchRepo) TotalRemainingByMedicine(ctx context.Context, medicineIDs []id.ID) (map[id.ID]types.Quantity, error) {
	totals := make(map[id.ID]types.Quantity)
	for _, b := range r.byID {
		totals[b.MedicineID] += b.RemainingQuantity
	}
	return totals, nil
}

func (r *memBatchRepo) ListExpiredActive(ctx context.Context, asOf time.Time) ([]*batches.Batch, error) {
	var out []*batches.Batch
	for _, b := range r.byID {
		if b.Status == batches.StatusActive && b.IsExpired(asOf) {
			out = append(out, b)
		}
	}
	return out, nil
}

type memMovementRepo struct {
	movements []entity.Movement
}

func (r *memMovementRepo) CreateMovements(ctx context.Context, movements []entity.Movement) error {
	r.movements = append(r.movements, movements...)
	return nil
}

func (r *memMovementRepo) GetByDocument(ctx context.Context, referenceID id.ID) ([]entity.Movement, error) {
	var out []entity.Movement
	for _, m := range r.movements {
		if m.ReferenceID == referenceID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMovementRepo) ListUnreversed(ctx context.Context, referenceID id.ID) ([]entity.Movement, error) {
	reversed := make(map[id.ID]bool)
	for _, m := range r.movements {
		if m.ReversalOf != nil {
			reversed[*m.ReversalOf] = true
		}
	}
	var out []entity.Movement
	for _, m := range r.movements {
		if m.ReferenceID == referenceID && m.ReversalOf == nil && !reversed[m.LineID] {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMovementRepo) CurrentBalance(ctx context.Context, medicineID id.ID, batchID *id.ID) (types.Quantity, error) {
	var sum types.Quantity
	for _, m := range r.movements {
		if m.MedicineID != medicineID {
			continue
		}
		if batchID != nil && (m.BatchID == nil || *m.BatchID != *batchID) {
			continue
		}
		sum += m.Quantity
	}
	return sum, nil
}

func (r *memMovementRepo) GetMovementHistory(ctx context.Context, medicineID id.ID, filter ledger.MovementFilter) ([]entity.Movement, error) {
	return nil, nil
}

type memVaultRepo struct {
	vault account.Account
	log   []account.Transaction
}

func newMemVaultRepo(balance types.MinorUnits) *memVaultRepo {
	return &memVaultRepo{
		vault: account.Account{
			BaseEntity: entity.NewBaseEntity(),
			Code:       account.VaultCode,
			Name:       "Cash Vault",
			Balance:    balance,
		},
	}
}

func (r *memVaultRepo) GetVault(ctx context.Context) (*account.Account, error) {
	v := r.vault
	return &v, nil
}

func (r *memVaultRepo) GetVaultForUpdate(ctx context.Context) (*account.Account, error) {
	return r.GetVault(ctx)
}

func (r *memVaultRepo) AdjustBalance(ctx context.Context, accountID id.ID, delta types.MinorUnits) error {
	r.vault.Balance += delta
	return nil
}

func (r *memVaultRepo) CreateTransaction(ctx context.Context, t *account.Transaction) error {
	r.log = append(r.log, *t)
	return nil
}

func (r *memVaultRepo) ListTransactions(ctx context.Context, accountID id.ID, filter account.TransactionFilter) ([]account.Transaction, error) {
	return r.log, nil
}

// fakeCustomerRepo overrides only what the balance operations touch.
type fakeCustomerRepo struct {
	customer.Repository
	custs map[id.ID]*customer.Customer
}

func (r *fakeCustomerRepo) GetByID(ctx context.Context, custID id.ID) (*customer.Customer, error) {
	if c, ok := r.custs[custID]; ok {
		return c, nil
	}
	return nil, apperror.NewNotFound("customer", custID.String())
}

func (r *fakeCustomerRepo) GetForUpdate(ctx context.Context, custID id.ID) (*customer.Customer, error) {
	return r.GetByID(ctx, custID)
}

func (r *fakeCustomerRepo) AdjustBalance(ctx context.Context, custID id.ID, delta types.MinorUnits) error {
	r.custs[custID].Balance += delta
	return nil
}

// fakeMedicineRepo serves the alert refresh; no thresholds configured.
type fakeMedicineRepo struct {
	medicine.Repository
}

func (fakeMedicineRepo) GetByID(ctx context.Context, medID id.ID) (*medicine.Medicine, error) {
	return &medicine.Medicine{}, nil
}

// --- fixture ---

type saleFixture struct {
	ctx       context.Context
	svc       *Service
	repo      *memSaleRepo
	batches   *memBatchRepo
	movements *memMovementRepo
	vault     *memVaultRepo
	customers *fakeCustomerRepo
}

func newSaleFixture(vaultBalance types.MinorUnits) *saleFixture {
	repo := newMemSaleRepo()
	batchRepo := newMemBatchRepo()
	movementRepo := &memMovementRepo{}
	vaultRepo := newMemVaultRepo(vaultBalance)
	custRepo := &fakeCustomerRepo{custs: make(map[id.ID]*customer.Customer)}

	engine := posting.NewEngine(security.NewFlexiblePolicy(0, time.Time{}), nil)

	svc := NewService(ServiceConfig{
		Repo:      repo,
		Engine:    engine,
		Numerator: &numerator.MockGenerator{},
		TxManager: stubTxManager{},
		Batches:   batchRepo,
		Allocator: allocation.NewEngine(),
		Ledger:    ledger.NewService(movementRepo),
		Vault:     account.NewService(vaultRepo),
		Customers: customer.NewService(custRepo, &numerator.MockGenerator{}),
		Alerts:    alerts.NewService(fakeMedicineRepo{}, newMemBatchRepo(), nil),
	})

	return &saleFixture{
		ctx:       tx.WithManager(context.Background(), stubTxManager{}),
		svc:       svc,
		repo:      repo,
		batches:   batchRepo,
		movements: movementRepo,
		vault:     vaultRepo,
		customers: custRepo,
	}
}

func (f *saleFixture) addBatch(t *testing.T, medID id.ID, quantity types.Quantity, cost, price types.MinorUnits, expiry time.Time) *batches.Batch {
	t.Helper()
	b := batches.NewBatch(medID, quantity, cost, price, expiry)
	require.NoError(t, f.batches.Create(f.ctx, b))
	return b
}

func (f *saleFixture) addCustomer(t *testing.T, creditLimit, balance types.MinorUnits) *customer.Customer {
	t.Helper()
	c := customer.NewCustomer("CUS-001", "City Clinic")
	c.CreditLimit = creditLimit
	c.Balance = balance
	f.customers.custs[c.ID] = c
	return c
}

func walkInInvoice(medID id.ID, quantity types.Quantity, price types.MinorUnits) *SaleInvoice {
	doc := NewSaleInvoice(nil, domain.PaymentCash)
	doc.CustomerName = "Jan Wisniewski"
	doc.AddLine(medID, quantity, price, nil)
	return doc
}

// --- tests ---

func TestServiceCreate_GeneratesNumber(t *testing.T) {
	f := newSaleFixture(0)

	doc := walkInInvoice(id.New(), qty(2), 450)
	require.NoError(t, f.svc.Create(f.ctx, doc))

	assert.Equal(t, "MOCK-2026-00001", doc.Number)
	assert.Contains(t, f.repo.docs, doc.ID)
	assert.Len(t, f.repo.lines[doc.ID], 1)
}

func TestServiceApprove_CashSaleFEFOSplit(t *testing.T) {
	f := newSaleFixture(0)
	medID := id.New()

	early := f.addBatch(t, medID, qty(10), 250, 450, time.Now().AddDate(0, 2, 0))
	late := f.addBatch(t, medID, qty(10), 260, 450, time.Now().AddDate(0, 8, 0))

	doc := walkInInvoice(medID, qty(15), 450)
	require.NoError(t, f.svc.Create(f.ctx, doc))
	require.NoError(t, f.svc.Approve(f.ctx, doc.ID))

	assert.Equal(t, entity.StatusApproved, doc.Status)

	// The requested line is replaced by one concrete line per batch,
	// earliest expiry drained first.
	require.Len(t, doc.Lines, 2)
	assert.Equal(t, early.ID, *doc.Lines[0].BatchID)
	assert.Equal(t, qty(10), doc.Lines[0].Quantity)
	assert.Equal(t, late.ID, *doc.Lines[1].BatchID)
	assert.Equal(t, qty(5), doc.Lines[1].Quantity)
	assert.Equal(t, qty(10), doc.Lines[0].RemainingQtyToReturn)

	assert.True(t, early.RemainingQuantity.IsZero())
	assert.Equal(t, batches.StatusEmpty, early.Status)
	assert.Equal(t, qty(5), late.RemainingQuantity)

	// Ledger holds the sale as negative movements.
	balance, err := f.movements.CurrentBalance(f.ctx, medID, nil)
	require.NoError(t, err)
	assert.Equal(t, qty(15).Neg(), balance)

	// 15 x 450 in cash.
	assert.Equal(t, types.MinorUnits(6750), doc.Amount)
	assert.Equal(t, types.MinorUnits(6750), f.vault.vault.Balance)
}

func TestServiceApprove_InsufficientStock(t *testing.T) {
	f := newSaleFixture(0)
	medID := id.New()

	f.addBatch(t, medID, qty(10), 250, 450, time.Now().AddDate(0, 2, 0))
	f.addBatch(t, medID, qty(10), 260, 450, time.Now().AddDate(0, 8, 0))

	doc := walkInInvoice(medID, qty(25), 450)
	require.NoError(t, f.svc.Create(f.ctx, doc))

	err := f.svc.Approve(f.ctx, doc.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	// Nothing moved: no reservations, no movements, no money.
	assert.True(t, f.vault.vault.Balance.IsZero())
	assert.Empty(t, f.movements.movements)
	for _, b := range f.batches.byID {
		assert.Equal(t, qty(10), b.RemainingQuantity)
	}
}

func TestServiceApprove_CreditLimitExceeded(t *testing.T) {
	f := newSaleFixture(0)
	medID := id.New()

	f.addBatch(t, medID, qty(100), 20, 30, time.Now().AddDate(0, 6, 0))
	cust := f.addCustomer(t, 500, 480)

	doc := NewSaleInvoice(&cust.ID, domain.PaymentCredit)
	doc.AddLine(medID, qty(1), 30, nil)
	require.NoError(t, f.svc.Create(f.ctx, doc))

	err := f.svc.Approve(f.ctx, doc.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeCreditLimitExceeded))
	assert.Equal(t, types.MinorUnits(480), cust.Balance)
}

func TestServiceApprove_BelowCostBlockedOutsideClearance(t *testing.T) {
	f := newSaleFixture(0)
	medID := id.New()

	// Far from expiry: selling under cost is refused.
	f.addBatch(t, medID, qty(10), 250, 450, time.Now().AddDate(1, 0, 0))

	doc := walkInInvoice(medID, qty(1), 200)
	require.NoError(t, f.svc.Create(f.ctx, doc))

	err := f.svc.Approve(f.ctx, doc.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeBelowCostSale))
}

func TestServiceApprove_BelowCostAllowedNearExpiry(t *testing.T) {
	f := newSaleFixture(0)
	medID := id.New()

	// Inside the clearance window but still sellable.
	f.addBatch(t, medID, qty(10), 250, 450, time.Now().AddDate(0, 0, 10))

	doc := walkInInvoice(medID, qty(1), 200)
	require.NoError(t, f.svc.Create(f.ctx, doc))
	require.NoError(t, f.svc.Approve(f.ctx, doc.ID))
	assert.Equal(t, entity.StatusApproved, doc.Status)
}

func TestServiceApproveCancel_RoundTrip(t *testing.T) {
	f := newSaleFixture(1000)
	medID := id.New()

	early := f.addBatch(t, medID, qty(10), 250, 450, time.Now().AddDate(0, 2, 0))
	late := f.addBatch(t, medID, qty(10), 260, 450, time.Now().AddDate(0, 8, 0))

	doc := walkInInvoice(medID, qty(15), 450)
	require.NoError(t, f.svc.Create(f.ctx, doc))
	require.NoError(t, f.svc.Approve(f.ctx, doc.ID))
	require.NoError(t, f.svc.Cancel(f.ctx, doc.ID))

	assert.Equal(t, entity.StatusCancelled, doc.Status)

	// Stock, money and the return caps are all back where they started.
	assert.Equal(t, qty(10), early.RemainingQuantity)
	assert.Equal(t, batches.StatusActive, early.Status)
	assert.Equal(t, qty(10), late.RemainingQuantity)
	assert.Equal(t, types.MinorUnits(1000), f.vault.vault.Balance)
	for _, line := range doc.Lines {
		assert.True(t, line.RemainingQtyToReturn.IsZero())
	}

	balance, err := f.movements.CurrentBalance(f.ctx, medID, nil)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestServiceCancel_BlockedByDependentReturns(t *testing.T) {
	f := newSaleFixture(0)
	medID := id.New()

	f.addBatch(t, medID, qty(10), 250, 450, time.Now().AddDate(0, 2, 0))

	doc := walkInInvoice(medID, qty(5), 450)
	require.NoError(t, f.svc.Create(f.ctx, doc))
	require.NoError(t, f.svc.Approve(f.ctx, doc.ID))

	f.repo.dependentReturns = true
	err := f.svc.Cancel(f.ctx, doc.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeHasDependentReturns))
	assert.Equal(t, entity.StatusApproved, doc.Status)
}

func TestServiceUnapprove_ThenApproveAgain(t *testing.T) {
	f := newSaleFixture(0)
	medID := id.New()

	batch := f.addBatch(t, medID, qty(10), 250, 450, time.Now().AddDate(0, 2, 0))

	doc := walkInInvoice(medID, qty(4), 450)
	require.NoError(t, f.svc.Create(f.ctx, doc))
	require.NoError(t, f.svc.Approve(f.ctx, doc.ID))
	require.NoError(t, f.svc.Unapprove(f.ctx, doc.ID))

	assert.Equal(t, entity.StatusDraft, doc.Status)
	assert.Equal(t, qty(10), batch.RemainingQuantity)
	assert.True(t, f.vault.vault.Balance.IsZero())

	require.NoError(t, f.svc.Approve(f.ctx, doc.ID))
	assert.Equal(t, entity.StatusApproved, doc.Status)
	assert.Equal(t, qty(6), batch.RemainingQuantity)
}
