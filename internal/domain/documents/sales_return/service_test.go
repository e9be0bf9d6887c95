package sales_return

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
	"pharmacore/internal/domain/catalogs/customer"
	"pharmacore/internal/domain/documents/sale_invoice"
	"pharmacore/internal/domain/ledger"
	"pharmacore/internal/domain/posting"
)

// --- in-memory fakes ---

type stubTxManager struct{}

func (stubTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memReturnRepo struct {
	docs  map[id.ID]*SalesReturn
	lines map[id.ID][]ReturnLine
}

func newMemReturnRepo() *memReturnRepo {
	return &memReturnRepo{
		docs:  make(map[id.ID]*SalesReturn),
		lines: make(map[id.ID][]ReturnLine),
	}
}

func (r *memReturnRepo) Create(ctx context.Context, doc *SalesReturn) error {
	r.docs[doc.ID] = doc
	return nil
}

func (r *memReturnRepo) GetByID(ctx context.Context, docID id.ID) (*SalesReturn, error) {
	if doc, ok := r.docs[docID]; ok {
		return doc, nil
	}
	return nil, apperror.NewNotFound("sales_return", docID.String())
}

func (r *memReturnRepo) GetByNumber(ctx context.Context, number string) (*SalesReturn, error) {
	for _, doc := range r.docs {
		if doc.Number == number {
			return doc, nil
		}
	}
	return nil, apperror.NewNotFound("sales_return", number)
}

func (r *memReturnRepo) Update(ctx context.Context, doc *SalesReturn) error {
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

func (r *memReturnRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*SalesReturn], error) {
	return domain.ListResult[*SalesReturn]{}, nil
}

func (r *memReturnRepo) GetForUpdate(ctx context.Context, docID id.ID) (*SalesReturn, error) {
	return r.GetByID(ctx, docID)
}

type memSaleRepo struct {
	docs  map[id.ID]*sale_invoice.SaleInvoice
	lines map[id.ID][]sale_invoice.SaleLine
}

func newMemSaleRepo() *memSaleRepo {
	return &memSaleRepo{
		docs:  make(map[id.ID]*sale_invoice.SaleInvoice),
		lines: make(map[id.ID][]sale_invoice.SaleLine),
	}
}

func (r *memSaleRepo) Create(ctx context.Context, doc *sale_invoice.SaleInvoice) error {
	r.docs[doc.ID] = doc
	return nil
}

func (r *memSaleRepo) GetByID(ctx context.Context, docID id.ID) (*sale_invoice.SaleInvoice, error) {
	if doc, ok := r.docs[docID]; ok {
		return doc, nil
	}
	return nil, apperror.NewNotFound("sale_invoice", docID.String())
}

func (r *memSaleRepo) GetByNumber(ctx context.Context, number string) (*sale_invoice.SaleInvoice, error) {
	for _, doc := range r.docs {
		if doc.Number == number {
			return doc, nil
		}
	}
	return nil, apperror.NewNotFound("sale_invoice", number)
}

func (r *memSaleRepo) Update(ctx context.Context, doc *sale_invoice.SaleInvoice) error {
	r.docs[doc.ID] = doc
	return nil
}

func (r *memSaleRepo) Delete(ctx context.Context, docID id.ID) error {
	delete(r.docs, docID)
	return nil
}

func (r *memSaleRepo) GetLines(ctx context.Context, docID id.ID) ([]sale_invoice.SaleLine, error) {
	return r.lines[docID], nil
}

func (r *memSaleRepo) SaveLines(ctx context.Context, docID id.ID, lines []sale_invoice.SaleLine) error {
	r.lines[docID] = lines
	return nil
}

func (r *memSaleRepo) List(ctx context.Context, filter sale_invoice.ListFilter) (domain.ListResult[*sale_invoice.SaleInvoice], error) {
	return domain.ListResult[*sale_invoice.SaleInvoice]{}, nil
}

func (r *memSaleRepo) GetForUpdate(ctx context.Context, docID id.ID) (*sale_invoice.SaleInvoice, error) {
	return r.GetByID(ctx, docID)
}

func (r *memSaleRepo) HasDependentReturns(ctx context.Context, invoiceID id.ID) (bool, error) {
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

// --- fixture ---

type returnFixture struct {
	ctx       context.Context
	svc       *Service
	repo      *memReturnRepo
	sales     *memSaleRepo
	batches   *memBatchRepo
	movements *memMovementRepo
	vault     *memVaultRepo
	customers *fakeCustomerRepo
}

func newReturnFixture(vaultBalance types.MinorUnits) *returnFixture {
	repo := newMemReturnRepo()
	saleRepo := newMemSaleRepo()
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
		Sales:     saleRepo,
		Batches:   batchRepo,
		Ledger:    ledger.NewService(movementRepo),
		Vault:     account.NewService(vaultRepo),
		Customers: customer.NewService(custRepo, &numerator.MockGenerator{}),
	})

	return &returnFixture{
		ctx:       tx.WithManager(context.Background(), stubTxManager{}),
		svc:       svc,
		repo:      repo,
		sales:     saleRepo,
		batches:   batchRepo,
		movements: movementRepo,
		vault:     vaultRepo,
		customers: custRepo,
	}
}

func (f *returnFixture) addCustomer(t *testing.T, creditLimit, balance types.MinorUnits) *customer.Customer {
	t.Helper()
	c := customer.NewCustomer("CUS-001", "City Clinic")
	c.CreditLimit = creditLimit
	c.Balance = balance
	f.customers.custs[c.ID] = c
	return c
}

type soldLot struct {
	origin *sale_invoice.SaleInvoice
	batch  *batches.Batch
}

// sellLot puts an approved sale invoice with one allocated line into the
// fixture, the state an origin invoice is in after approval: the batch
// carries the sold quantity and the line carries the full return cap.
func (f *returnFixture) sellLot(t *testing.T, customerID *id.ID, pm domain.PaymentMethod, sold types.Quantity, price, cost types.MinorUnits) soldLot {
	t.Helper()
	medID := id.New()
	exp := time.Now().AddDate(1, 0, 0)

	b := batches.NewBatch(medID, qty(100), cost, price, exp)
	require.NoError(t, b.Reserve(sold))
	require.NoError(t, f.batches.Create(f.ctx, b))
	batchID := b.ID

	origin := sale_invoice.NewSaleInvoice(customerID, pm)
	origin.CustomerName = "Jan Wisniewski"
	origin.AddLine(medID, sold, price, nil)
	origin.Lines[0].UnitCost = cost
	origin.Lines[0].BatchID = &batchID
	origin.Lines[0].RemainingQtyToReturn = sold
	origin.RecalculateTotals()
	origin.Status = entity.StatusApproved

	f.sales.docs[origin.ID] = origin
	f.sales.lines[origin.ID] = origin.Lines

	return soldLot{origin: origin, batch: b}
}

func (f *returnFixture) originLine(lot soldLot) *sale_invoice.SaleLine {
	return &f.sales.lines[lot.origin.ID][0]
}

func (f *returnFixture) draftReturn(t *testing.T, lot soldLot, quantity types.Quantity) *SalesReturn {
	t.Helper()
	line := f.originLine(lot)
	doc := NewSalesReturn(lot.origin.ID)
	doc.AddLine(line.LineID, line.MedicineID, *line.BatchID, quantity, line.UnitPrice, line.UnitCost)
	require.NoError(t, f.svc.Create(f.ctx, doc))
	return doc
}

// --- tests ---

func TestServiceCreate_PinsFromOrigin(t *testing.T) {
	f := newReturnFixture(0)
	cust := f.addCustomer(t, 10000, 0)
	lot := f.sellLot(t, &cust.ID, domain.PaymentCredit, qty(5), 450, 250)

	// The draft carries a wrong medicine and no prices; everything is
	// re-pinned from the origin line.
	doc := NewSalesReturn(lot.origin.ID)
	doc.AddLine(f.originLine(lot).LineID, id.New(), id.New(), qty(2), 0, 0)
	require.NoError(t, f.svc.Create(f.ctx, doc))

	assert.Equal(t, "MOCK-2026-00001", doc.Number)
	assert.Equal(t, &cust.ID, doc.CustomerID)
	assert.Equal(t, domain.PaymentCredit, doc.PaymentMethod)
	assert.Equal(t, lot.batch.MedicineID, doc.Lines[0].MedicineID)
	assert.Equal(t, lot.batch.ID, doc.Lines[0].BatchID)
	assert.Equal(t, types.MinorUnits(450), doc.Lines[0].UnitPrice)
	assert.Equal(t, types.MinorUnits(250), doc.Lines[0].UnitCost)
	assert.Equal(t, types.MinorUnits(900), doc.Amount)
	assert.Contains(t, f.repo.docs, doc.ID)
}

func TestServiceCreate_RejectsDraftOrigin(t *testing.T) {
	f := newReturnFixture(0)

	origin := sale_invoice.NewSaleInvoice(nil, domain.PaymentCash)
	origin.CustomerName = "Jan Wisniewski"
	origin.AddLine(id.New(), qty(2), 450, nil)
	f.sales.docs[origin.ID] = origin
	f.sales.lines[origin.ID] = origin.Lines

	doc := NewSalesReturn(origin.ID)
	doc.AddLine(origin.Lines[0].LineID, id.New(), id.New(), qty(1), 450, 250)

	err := f.svc.Create(f.ctx, doc)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
}

func TestServiceApprove_OverReturn(t *testing.T) {
	f := newReturnFixture(10000)
	lot := f.sellLot(t, nil, domain.PaymentCash, qty(5), 450, 250)

	doc := f.draftReturn(t, lot, qty(6))

	err := f.svc.Approve(f.ctx, doc.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeOverReturn))

	// Nothing moved: the batch, the cap and the vault are untouched.
	assert.Equal(t, qty(5), lot.batch.SoldQuantity)
	assert.Equal(t, qty(5), f.originLine(lot).RemainingQtyToReturn)
	assert.Empty(t, f.movements.movements)
	assert.Equal(t, types.MinorUnits(10000), f.vault.vault.Balance)
}

func TestServiceApprove_SecondReturnCappedByFirst(t *testing.T) {
	f := newReturnFixture(10000)
	lot := f.sellLot(t, nil, domain.PaymentCash, qty(5), 450, 250)

	first := f.draftReturn(t, lot, qty(3))
	require.NoError(t, f.svc.Approve(f.ctx, first.ID))
	assert.Equal(t, qty(2), f.originLine(lot).RemainingQtyToReturn)

	second := f.draftReturn(t, lot, qty(3))
	err := f.svc.Approve(f.ctx, second.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeOverReturn))
}

func TestServiceApprove_CashRefund(t *testing.T) {
	f := newReturnFixture(10000)
	lot := f.sellLot(t, nil, domain.PaymentCash, qty(10), 450, 250)

	doc := f.draftReturn(t, lot, qty(4))
	require.NoError(t, f.svc.Approve(f.ctx, doc.ID))

	assert.Equal(t, entity.StatusApproved, doc.Status)

	// The returned units go back on the shelf.
	assert.Equal(t, qty(94), lot.batch.RemainingQuantity)
	assert.Equal(t, qty(6), lot.batch.SoldQuantity)

	// The origin line cap and header shrink by exactly the return.
	assert.Equal(t, qty(6), f.originLine(lot).RemainingQtyToReturn)
	assert.Equal(t, types.MinorUnits(2700), lot.origin.Amount)
	assert.Equal(t, types.MinorUnits(1500), lot.origin.Cost)
	assert.Equal(t, types.MinorUnits(1200), lot.origin.Profit)

	// 4 x 450 refunded from the vault, positive return movements.
	assert.Equal(t, types.MinorUnits(10000-1800), f.vault.vault.Balance)
	balance, err := f.movements.CurrentBalance(f.ctx, lot.batch.MedicineID, nil)
	require.NoError(t, err)
	assert.Equal(t, qty(4), balance)
}

func TestServiceApprove_CreditReducesCustomerDebt(t *testing.T) {
	f := newReturnFixture(0)
	cust := f.addCustomer(t, 10000, 4500)
	lot := f.sellLot(t, &cust.ID, domain.PaymentCredit, qty(10), 450, 250)

	doc := f.draftReturn(t, lot, qty(4))
	require.NoError(t, f.svc.Approve(f.ctx, doc.ID))

	assert.Equal(t, types.MinorUnits(4500-1800), cust.Balance)
	assert.True(t, f.vault.vault.Balance.IsZero())
}

func TestServiceApproveCancel_RoundTrip(t *testing.T) {
	f := newReturnFixture(10000)
	lot := f.sellLot(t, nil, domain.PaymentCash, qty(10), 450, 250)

	doc := f.draftReturn(t, lot, qty(4))
	require.NoError(t, f.svc.Approve(f.ctx, doc.ID))
	require.NoError(t, f.svc.Cancel(f.ctx, doc.ID))

	assert.Equal(t, entity.StatusCancelled, doc.Status)

	// Stock, caps, header and money are all back where they started.
	assert.Equal(t, qty(90), lot.batch.RemainingQuantity)
	assert.Equal(t, qty(10), lot.batch.SoldQuantity)
	assert.Equal(t, qty(10), f.originLine(lot).RemainingQtyToReturn)
	assert.Equal(t, types.MinorUnits(4500), lot.origin.Amount)
	assert.Equal(t, types.MinorUnits(2500), lot.origin.Cost)
	assert.Equal(t, types.MinorUnits(10000), f.vault.vault.Balance)

	balance, err := f.movements.CurrentBalance(f.ctx, lot.batch.MedicineID, nil)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestServiceCancel_CreditRestoresDebtPastLimit(t *testing.T) {
	f := newReturnFixture(0)
	// The origin sale maxed out the credit line before the return.
	cust := f.addCustomer(t, 1800, 1800)
	lot := f.sellLot(t, &cust.ID, domain.PaymentCredit, qty(4), 450, 250)

	doc := f.draftReturn(t, lot, qty(4))
	require.NoError(t, f.svc.Approve(f.ctx, doc.ID))
	assert.True(t, cust.Balance.IsZero())

	// Cancelling re-establishes the debt even though a fresh credit sale
	// of the same amount would hit the limit.
	require.NoError(t, f.svc.Cancel(f.ctx, doc.ID))
	assert.Equal(t, types.MinorUnits(1800), cust.Balance)
}
