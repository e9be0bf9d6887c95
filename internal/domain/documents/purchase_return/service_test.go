package purchase_return

import (
	"context"
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
	"pharmacore/internal/domain/batches"
	"pharmacore/internal/domain/catalogs/supplier"
	"pharmacore/internal/domain/documents/purchase_invoice"
	"pharmacore/internal/domain/ledger"
	"pharmacore/internal/domain/posting"
)

// --- in-memory fakes ---

type stubTxManager struct{}

func (stubTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memReturnRepo struct {
	docs  map[id.ID]*PurchaseReturn
	lines map[id.ID][]ReturnLine
}

func newMemReturnRepo() *memReturnRepo {
	return &memReturnRepo{
		docs:  make(map[id.ID]*PurchaseReturn),
		lines: make(map[id.ID][]ReturnLine),
	}
}

func (r *memReturnRepo) Create(ctx context.Context, doc *PurchaseReturn) error {
	r.docs[doc.ID] = doc
	return nil
}

func (r *memReturnRepo) GetByID(ctx context.Context, docID id.ID) (*PurchaseReturn, error) {
	if doc, ok := r.docs[docID]; ok {
		return doc, nil
	}
	return nil, apperror.NewNotFound("purchase_return", docID.String())
}

func (r *memReturnRepo) GetByNumber(ctx context.Context, number string) (*PurchaseReturn, error) {
	for _, doc := range r.docs {
		if doc.Number == number {
			return doc, nil
		}
	}
	return nil, apperror.NewNotFound("purchase_return", number)
}

func (r *memReturnRepo) Update(ctx context.Context, doc *PurchaseReturn) error {
	r.docs[doc.ID] = doc
	return nil
}

func (r *memReturnRepo) Delete(ctx context.Context, docID id.ID) error {
	delete(r.docs, docID)
	return nil
}

func (r *memReturnRepo) GetLines(ctx context.Context, docID id.ID) ([]ReturnLine, error) {
	return r.lines[docID], nil
}

func (r *memReturnRepo) SaveLines(ctx context.Context, docID id.ID, lines []ReturnLine) error {
	r.lines[docID] = lines
	return nil
}

func (r *memReturnRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*PurchaseReturn], error) {
	return domain.ListResult[*PurchaseReturn]{}, nil
}

func (r *memReturnRepo) GetForUpdate(ctx context.Context, docID id.ID) (*PurchaseReturn, error) {
	return r.GetByID(ctx, docID)
}

type memInvoiceRepo struct {
	docs  map[id.ID]*purchase_invoice.PurchaseInvoice
	lines map[id.ID][]purchase_invoice.PurchaseLine
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{
		docs:  make(map[id.ID]*purchase_invoice.PurchaseInvoice),
		lines: make(map[id.ID][]purchase_invoice.PurchaseLine),
	}
}

func (r *memInvoiceRepo) Create(ctx context.Context, doc *purchase_invoice.PurchaseInvoice) error {
	r.docs[doc.ID] = doc
	return nil
}

func (r *memInvoiceRepo) GetByID(ctx context.Context, docID id.ID) (*purchase_invoice.PurchaseInvoice, error) {
	if doc, ok := r.docs[docID]; ok {
		return doc, nil
	}
	return nil, apperror.NewNotFound("purchase_invoice", docID.String())
}

func (r *memInvoiceRepo) GetByNumber(ctx context.Context, number string) (*purchase_invoice.PurchaseInvoice, error) {
	for _, doc := range r.docs {
		if doc.Number == number {
			return doc, nil
		}
	}
	return nil, apperror.NewNotFound("purchase_invoice", number)
}

func (r *memInvoiceRepo) Update(ctx context.Context, doc *purchase_invoice.PurchaseInvoice) error {
	r.docs[doc.ID] = doc
	return nil
}

func (r *memInvoiceRepo) Delete(ctx context.Context, docID id.ID) error {
	delete(r.docs, docID)
	return nil
}

func (r *memInvoiceRepo) GetLines(ctx context.Context, docID id.ID) ([]purchase_invoice.PurchaseLine, error) {
	return r.lines[docID], nil
}

func (r *memInvoiceRepo) SaveLines(ctx context.Context, docID id.ID, lines []purchase_invoice.PurchaseLine) error {
	r.lines[docID] = lines
	return nil
}

func (r *memInvoiceRepo) List(ctx context.Context, filter purchase_invoice.ListFilter) (domain.ListResult[*purchase_invoice.PurchaseInvoice], error) {
	return domain.ListResult[*purchase_invoice.PurchaseInvoice]{}, nil
}

func (r *memInvoiceRepo) GetForUpdate(ctx context.Context, docID id.ID) (*purchase_invoice.PurchaseInvoice, error) {
	return r.GetByID(ctx, docID)
}

func (r *memInvoiceRepo) HasDependentReturns(ctx context.Context, invoiceID id.ID) (bool, error) {
	return false, nil
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
	return nil, nil
}

func (r *memBatchRepo) ListSellableForUpdate(ctx context.Context, medicineID id.ID, asOf time.Time) ([]*batches.Batch, error) {
	return nil, nil
}

func (r *memBatchRepo) TotalRemainingByMedicine(ctx context.Context, medicineIDs []id.ID) (map[id.ID]types.Quantity, error) {
	return map[id.ID]types.Quantity{}, nil
}

func (r *memBatchRepo) ListExpiredActive(ctx context.Context, asOf time.Time) ([]*batches.Batch, error) {
	return nil, nil
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
		if m.MedicineID == medicineID {
			sum += m.Quantity
		}
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

// fakeSupplierRepo overrides only what the balance operations touch.
type fakeSupplierRepo struct {
	supplier.Repository
	sups map[id.ID]*supplier.Supplier
}

func (r *fakeSupplierRepo) GetByID(ctx context.Context, supID id.ID) (*supplier.Supplier, error) {
	if s, ok := r.sups[supID]; ok {
		return s, nil
	}
	return nil, apperror.NewNotFound("supplier", supID.String())
}

func (r *fakeSupplierRepo) GetForUpdate(ctx context.Context, supID id.ID) (*supplier.Supplier, error) {
	return r.GetByID(ctx, supID)
}

func (r *fakeSupplierRepo) AdjustBalance(ctx context.Context, supID id.ID, delta types.MinorUnits) error {
	r.sups[supID].Balance += delta
	return nil
}

// --- fixture ---

type returnFixture struct {
	ctx       context.Context
	svc       *Service
	repo      *memReturnRepo
	purchases *memInvoiceRepo
	batches   *memBatchRepo
	movements *memMovementRepo
	vault     *memVaultRepo
	suppliers *fakeSupplierRepo
}

func newReturnFixture(vaultBalance types.MinorUnits) *returnFixture {
	repo := newMemReturnRepo()
	invoiceRepo := newMemInvoiceRepo()
	batchRepo := newMemBatchRepo()
	movementRepo := &memMovementRepo{}
	vaultRepo := newMemVaultRepo(vaultBalance)
	supRepo := &fakeSupplierRepo{sups: make(map[id.ID]*supplier.Supplier)}

	engine := posting.NewEngine(security.NewFlexiblePolicy(0, time.Time{}), nil)

	svc := NewService(ServiceConfig{
		Repo:      repo,
		Engine:    engine,
		Numerator: &numerator.MockGenerator{},
		TxManager: stubTxManager{},
		Purchases: invoiceRepo,
		Batches:   batchRepo,
		Ledger:    ledger.NewService(movementRepo),
		Vault:     account.NewService(vaultRepo),
		Suppliers: supplier.NewService(supRepo, &numerator.MockGenerator{}),
	})

	return &returnFixture{
		ctx:       tx.WithManager(context.Background(), stubTxManager{}),
		svc:       svc,
		repo:      repo,
		purchases: invoiceRepo,
		batches:   batchRepo,
		movements: movementRepo,
		vault:     vaultRepo,
		suppliers: supRepo,
	}
}

func (f *returnFixture) addSupplier(t *testing.T, balance types.MinorUnits) *supplier.Supplier {
	t.Helper()
	s := supplier.NewSupplier("SUP-001", "MedPol Hurt")
	s.Balance = balance
	f.suppliers.sups[s.ID] = s
	return s
}

type receivedLot struct {
	origin *purchase_invoice.PurchaseInvoice
	batch  *batches.Batch
}

// receiveLot puts an approved purchase invoice with one batched line into
// the fixture, the state an origin invoice is in after approval.
func (f *returnFixture) receiveLot(t *testing.T, sup *supplier.Supplier, pm domain.PaymentMethod, quantity types.Quantity, price types.MinorUnits) receivedLot {
	t.Helper()
	medID := id.New()
	exp := time.Now().AddDate(1, 0, 0)

	origin := purchase_invoice.NewPurchaseInvoice(sup.ID, pm)
	origin.AddLine(medID, quantity, price, price*2, exp, nil)
	origin.Status = entity.StatusApproved

	b := batches.NewBatch(medID, quantity, price, price*2, exp)
	require.NoError(t, f.batches.Create(f.ctx, b))
	batchID := b.ID
	origin.Lines[0].BatchID = &batchID

	f.purchases.docs[origin.ID] = origin
	f.purchases.lines[origin.ID] = origin.Lines

	return receivedLot{origin: origin, batch: b}
}

// --- tests ---

func TestServiceCreate_CopiesFromOrigin(t *testing.T) {
	f := newReturnFixture(0)
	sup := f.addSupplier(t, 0)
	lot := f.receiveLot(t, sup, domain.PaymentCredit, qty(100), 250)

	// The draft carries a wrong medicine and no price; both are replaced
	// from the origin line that received the batch.
	doc := NewPurchaseReturn(lot.origin.ID)
	doc.AddLine(id.New(), lot.batch.ID, qty(10), 0)
	require.NoError(t, f.svc.Create(f.ctx, doc))

	assert.Equal(t, "MOCK-2026-00001", doc.Number)
	assert.Equal(t, sup.ID, doc.SupplierID)
	assert.Equal(t, domain.PaymentCredit, doc.PaymentMethod)
	assert.Equal(t, lot.batch.MedicineID, doc.Lines[0].MedicineID)
	assert.Equal(t, types.MinorUnits(250), doc.Lines[0].UnitPurchasePrice)
	assert.Equal(t, types.MinorUnits(2500), doc.Amount)
	assert.Contains(t, f.repo.docs, doc.ID)
}

func TestServiceCreate_RejectsDraftOrigin(t *testing.T) {
	f := newReturnFixture(0)
	sup := f.addSupplier(t, 0)

	origin := purchase_invoice.NewPurchaseInvoice(sup.ID, domain.PaymentCash)
	origin.AddLine(id.New(), qty(10), 250, 450, time.Now().AddDate(1, 0, 0), nil)
	f.purchases.docs[origin.ID] = origin
	f.purchases.lines[origin.ID] = origin.Lines

	doc := NewPurchaseReturn(origin.ID)
	doc.AddLine(id.New(), id.New(), qty(1), 250)

	err := f.svc.Create(f.ctx, doc)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
}

func TestServiceCreate_RejectsForeignBatch(t *testing.T) {
	f := newReturnFixture(0)
	sup := f.addSupplier(t, 0)
	lot := f.receiveLot(t, sup, domain.PaymentCash, qty(100), 250)

	doc := NewPurchaseReturn(lot.origin.ID)
	doc.AddLine(id.New(), id.New(), qty(1), 250)

	err := f.svc.Create(f.ctx, doc)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestServiceApprove_CreditReducesSupplierDebt(t *testing.T) {
	f := newReturnFixture(0)
	sup := f.addSupplier(t, 25000)
	lot := f.receiveLot(t, sup, domain.PaymentCredit, qty(100), 250)

	doc := NewPurchaseReturn(lot.origin.ID)
	doc.AddLine(id.New(), lot.batch.ID, qty(4), 0)
	require.NoError(t, f.svc.Create(f.ctx, doc))
	require.NoError(t, f.svc.Approve(f.ctx, doc.ID))

	assert.Equal(t, entity.StatusApproved, doc.Status)

	// The returned units leave the batch entirely.
	assert.Equal(t, qty(96), lot.batch.RemainingQuantity)
	assert.Equal(t, qty(96), lot.batch.Quantity)

	// 4 x 250 off the supplier debt, negative return movements.
	assert.Equal(t, types.MinorUnits(24000), sup.Balance)
	balance, err := f.movements.CurrentBalance(f.ctx, lot.batch.MedicineID, nil)
	require.NoError(t, err)
	assert.Equal(t, qty(4).Neg(), balance)
}

func TestServiceApprove_CashDepositsRefund(t *testing.T) {
	f := newReturnFixture(500)
	sup := f.addSupplier(t, 0)
	lot := f.receiveLot(t, sup, domain.PaymentCash, qty(100), 250)

	doc := NewPurchaseReturn(lot.origin.ID)
	doc.AddLine(id.New(), lot.batch.ID, qty(4), 0)
	require.NoError(t, f.svc.Create(f.ctx, doc))
	require.NoError(t, f.svc.Approve(f.ctx, doc.ID))

	assert.Equal(t, types.MinorUnits(500+1000), f.vault.vault.Balance)
	assert.True(t, sup.Balance.IsZero())
}

func TestServiceApprove_RejectsBatchWithSales(t *testing.T) {
	f := newReturnFixture(0)
	sup := f.addSupplier(t, 25000)
	lot := f.receiveLot(t, sup, domain.PaymentCredit, qty(100), 250)

	doc := NewPurchaseReturn(lot.origin.ID)
	doc.AddLine(id.New(), lot.batch.ID, qty(4), 0)
	require.NoError(t, f.svc.Create(f.ctx, doc))

	// One unit sold: the sold stock belongs to customers now, the whole
	// batch stays in the pharmacy.
	require.NoError(t, lot.batch.Reserve(qty(1)))

	err := f.svc.Approve(f.ctx, doc.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
	assert.Equal(t, qty(99), lot.batch.RemainingQuantity)
	assert.Empty(t, f.movements.movements)
	assert.Equal(t, types.MinorUnits(25000), sup.Balance)
}

func TestServiceApproveCancel_RoundTrip(t *testing.T) {
	f := newReturnFixture(0)
	sup := f.addSupplier(t, 25000)
	lot := f.receiveLot(t, sup, domain.PaymentCredit, qty(100), 250)

	doc := NewPurchaseReturn(lot.origin.ID)
	doc.AddLine(id.New(), lot.batch.ID, qty(4), 0)
	require.NoError(t, f.svc.Create(f.ctx, doc))
	require.NoError(t, f.svc.Approve(f.ctx, doc.ID))
	require.NoError(t, f.svc.Cancel(f.ctx, doc.ID))

	assert.Equal(t, entity.StatusCancelled, doc.Status)

	// Stock and the supplier position are back where they started.
	assert.Equal(t, qty(100), lot.batch.RemainingQuantity)
	assert.Equal(t, qty(100), lot.batch.Quantity)
	assert.Equal(t, types.MinorUnits(25000), sup.Balance)

	balance, err := f.movements.CurrentBalance(f.ctx, lot.batch.MedicineID, nil)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestServiceCancel_CashCollectsRefundBack(t *testing.T) {
	f := newReturnFixture(0)
	sup := f.addSupplier(t, 0)
	lot := f.receiveLot(t, sup, domain.PaymentCash, qty(100), 250)

	doc := NewPurchaseReturn(lot.origin.ID)
	doc.AddLine(id.New(), lot.batch.ID, qty(4), 0)
	require.NoError(t, f.svc.Create(f.ctx, doc))
	require.NoError(t, f.svc.Approve(f.ctx, doc.ID))
	require.NoError(t, f.svc.Cancel(f.ctx, doc.ID))

	assert.True(t, f.vault.vault.Balance.IsZero())
	assert.Equal(t, qty(100), lot.batch.Quantity)
}
