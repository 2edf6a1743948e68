package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quickpay/internal/auth"
	"quickpay/internal/ledger"
	"quickpay/internal/services"
	"quickpay/internal/store"
)

const testSecret = "test-secret"

var errUnexpectedCall = errors.New("unexpected call")

type stubAccounts struct {
	registerFn func(context.Context, services.RegisterInput) (services.Session, error)
	loginFn    func(context.Context, string, string) (services.Session, error)
	profileFn  func(context.Context, string) (store.User, store.Wallet, error)
}

func (s stubAccounts) Register(ctx context.Context, input services.RegisterInput) (services.Session, error) {
	if s.registerFn == nil {
		return services.Session{}, errUnexpectedCall
	}
	return s.registerFn(ctx, input)
}

func (s stubAccounts) Login(ctx context.Context, email, password string) (services.Session, error) {
	if s.loginFn == nil {
		return services.Session{}, errUnexpectedCall
	}
	return s.loginFn(ctx, email, password)
}

func (s stubAccounts) Profile(ctx context.Context, userID string) (store.User, store.Wallet, error) {
	if s.profileFn == nil {
		return store.User{}, store.Wallet{}, errUnexpectedCall
	}
	return s.profileFn(ctx, userID)
}

type stubTransfers struct {
	sendFn     func(context.Context, services.SendRequest) (services.SendResult, error)
	addFundsFn func(context.Context, string, int64, string) (ledger.Result, error)
	listFn     func(context.Context, string, string, int, int) ([]store.TransactionDetail, error)
	getFn      func(context.Context, string, string) (store.TransactionDetail, error)
}

func (s stubTransfers) Send(ctx context.Context, req services.SendRequest) (services.SendResult, error) {
	if s.sendFn == nil {
		return services.SendResult{}, errUnexpectedCall
	}
	return s.sendFn(ctx, req)
}

func (s stubTransfers) AddFunds(ctx context.Context, userID string, amountMinor int64, note string) (ledger.Result, error) {
	if s.addFundsFn == nil {
		return ledger.Result{}, errUnexpectedCall
	}
	return s.addFundsFn(ctx, userID, amountMinor, note)
}

func (s stubTransfers) ListTransactions(ctx context.Context, userID, direction string, limit, offset int) ([]store.TransactionDetail, error) {
	if s.listFn == nil {
		return nil, errUnexpectedCall
	}
	return s.listFn(ctx, userID, direction, limit, offset)
}

func (s stubTransfers) GetTransaction(ctx context.Context, callerID, transactionID string) (store.TransactionDetail, error) {
	if s.getFn == nil {
		return store.TransactionDetail{}, errUnexpectedCall
	}
	return s.getFn(ctx, callerID, transactionID)
}

type stubAdjustments struct {
	adjustFn func(context.Context, services.AdjustRequest) (ledger.Result, error)
}

func (s stubAdjustments) Adjust(ctx context.Context, req services.AdjustRequest) (ledger.Result, error) {
	if s.adjustFn == nil {
		return ledger.Result{}, errUnexpectedCall
	}
	return s.adjustFn(ctx, req)
}

type stubAdmin struct {
	updateFn func(context.Context, string, string, store.UserUpdate) (store.User, error)
	deleteFn func(context.Context, string, string) error
	statsFn  func(context.Context) (services.Stats, error)
}

func (s stubAdmin) UpdateUser(ctx context.Context, adminID, userID string, update store.UserUpdate) (store.User, error) {
	if s.updateFn == nil {
		return store.User{}, errUnexpectedCall
	}
	return s.updateFn(ctx, adminID, userID, update)
}

func (s stubAdmin) DeleteUser(ctx context.Context, adminID, userID string) error {
	if s.deleteFn == nil {
		return errUnexpectedCall
	}
	return s.deleteFn(ctx, adminID, userID)
}

func (s stubAdmin) Stats(ctx context.Context) (services.Stats, error) {
	if s.statsFn == nil {
		return services.Stats{}, errUnexpectedCall
	}
	return s.statsFn(ctx)
}

type stubUsers struct {
	byEmail map[string]store.User
	byID    map[string]store.User
	listFn  func(context.Context, int, int) ([]store.User, error)
}

func (s stubUsers) GetByEmail(_ context.Context, email string) (store.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (s stubUsers) GetByID(_ context.Context, userID string) (store.User, error) {
	user, ok := s.byID[userID]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (s stubUsers) List(ctx context.Context, limit, offset int) ([]store.User, error) {
	if s.listFn == nil {
		return nil, errUnexpectedCall
	}
	return s.listFn(ctx, limit, offset)
}

type stubWallets struct {
	byUser      map[string]store.Wallet
	listFn      func(context.Context, int, int) ([]store.WalletWithOwner, error)
	reconcileFn func(context.Context, string) ([]store.WalletReconciliation, error)
}

func (s stubWallets) GetByUserID(_ context.Context, userID string) (store.Wallet, error) {
	wallet, ok := s.byUser[userID]
	if !ok {
		return store.Wallet{}, sql.ErrNoRows
	}
	return wallet, nil
}

func (s stubWallets) List(ctx context.Context, limit, offset int) ([]store.WalletWithOwner, error) {
	if s.listFn == nil {
		return nil, errUnexpectedCall
	}
	return s.listFn(ctx, limit, offset)
}

func (s stubWallets) Reconcile(ctx context.Context, userID string) ([]store.WalletReconciliation, error) {
	if s.reconcileFn == nil {
		return nil, errUnexpectedCall
	}
	return s.reconcileFn(ctx, userID)
}

type stubEntries struct {
	listFn func(context.Context, string, int, int) ([]store.Entry, error)
}

func (s stubEntries) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]store.Entry, error) {
	if s.listFn == nil {
		return nil, errUnexpectedCall
	}
	return s.listFn(ctx, walletID, limit, offset)
}

type stubTransactions struct {
	listAllFn func(context.Context, int, int) ([]store.TransactionDetail, error)
}

func (s stubTransactions) ListAll(ctx context.Context, limit, offset int) ([]store.TransactionDetail, error) {
	if s.listAllFn == nil {
		return nil, errUnexpectedCall
	}
	return s.listAllFn(ctx, limit, offset)
}

// stubBeneficiaries keeps rows in a map keyed by id.
type stubBeneficiaries struct {
	rows    map[int64]store.Beneficiary
	deleted []int64
}

func newStubBeneficiaries(rows ...store.Beneficiary) *stubBeneficiaries {
	s := &stubBeneficiaries{rows: map[int64]store.Beneficiary{}}
	for _, row := range rows {
		s.rows[row.ID] = row
	}
	return s
}

func (s *stubBeneficiaries) Create(_ context.Context, userID string, input store.BeneficiaryInput) (store.Beneficiary, error) {
	row := store.Beneficiary{
		ID:           int64(len(s.rows) + 1),
		UserID:       userID,
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		Relationship: input.Relationship,
	}
	s.rows[row.ID] = row
	return row, nil
}

func (s *stubBeneficiaries) GetByID(_ context.Context, id int64) (store.Beneficiary, error) {
	row, ok := s.rows[id]
	if !ok {
		return store.Beneficiary{}, sql.ErrNoRows
	}
	return row, nil
}

func (s *stubBeneficiaries) ListByUser(_ context.Context, userID string) ([]store.Beneficiary, error) {
	var out []store.Beneficiary
	for _, row := range s.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *stubBeneficiaries) Update(_ context.Context, id int64, input store.BeneficiaryInput) (store.Beneficiary, error) {
	row := s.rows[id]
	row.Name = input.Name
	row.Email = input.Email
	row.Phone = input.Phone
	row.Relationship = input.Relationship
	s.rows[id] = row
	return row, nil
}

func (s *stubBeneficiaries) Delete(_ context.Context, id int64) error {
	delete(s.rows, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type stubAudit struct {
	listFn func(context.Context, int, int) ([]store.AuditLog, error)
}

func (s stubAudit) List(ctx context.Context, limit, offset int) ([]store.AuditLog, error) {
	if s.listFn == nil {
		return nil, errUnexpectedCall
	}
	return s.listFn(ctx, limit, offset)
}

// stubAccess treats unknown users as missing.
type stubAccess map[string]store.Access

func (s stubAccess) GetAccess(_ context.Context, userID string) (store.Access, error) {
	access, ok := s[userID]
	if !ok {
		return store.Access{}, sql.ErrNoRows
	}
	return access, nil
}

func (s stubAccess) IsAdmin(ctx context.Context, userID string) (bool, error) {
	access, err := s.GetAccess(ctx, userID)
	if err != nil {
		return false, nil
	}
	return access.IsAdmin() && access.IsActive(), nil
}

type stubSocket struct {
	served []string
}

func (s *stubSocket) Serve(w http.ResponseWriter, _ *http.Request, userID string) {
	s.served = append(s.served, userID)
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func defaultAccess() stubAccess {
	return stubAccess{
		"user-1":  {Role: store.RoleUser, Status: store.UserStatusActive},
		"user-2":  {Role: store.RoleUser, Status: store.UserStatusActive},
		"admin-1": {Role: store.RoleAdmin, Status: store.UserStatusActive},
		"sleepy":  {Role: store.RoleUser, Status: store.UserStatusInactive},
	}
}

// newTestRouter fills every dependency the caller left empty with a stub
// that fails loudly, then returns the full router.
func newTestRouter(deps Deps) http.Handler {
	deps.Settings.JWTSecret = testSecret
	if deps.Settings.LoginRatePerSecond == 0 {
		deps.Settings.LoginRatePerSecond = 100
		deps.Settings.LoginBurst = 100
	}
	if deps.Accounts == nil {
		deps.Accounts = stubAccounts{}
	}
	if deps.Transfers == nil {
		deps.Transfers = stubTransfers{}
	}
	if deps.Adjustments == nil {
		deps.Adjustments = stubAdjustments{}
	}
	if deps.Admin == nil {
		deps.Admin = stubAdmin{}
	}
	if deps.Users == nil {
		deps.Users = stubUsers{}
	}
	if deps.Wallets == nil {
		deps.Wallets = stubWallets{}
	}
	if deps.Entries == nil {
		deps.Entries = stubEntries{}
	}
	if deps.Transactions == nil {
		deps.Transactions = stubTransactions{}
	}
	if deps.Beneficiaries == nil {
		deps.Beneficiaries = newStubBeneficiaries()
	}
	if deps.Audit == nil {
		deps.Audit = stubAudit{}
	}
	if deps.Access == nil {
		deps.Access = defaultAccess()
	}
	if deps.Socket == nil {
		deps.Socket = &stubSocket{}
	}
	return New(deps).Routes()
}

// doRequest sends body to the router as userID. An empty userID sends no
// Authorization header.
func doRequest(t *testing.T, router http.Handler, method, path, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+mustToken(t, userID))
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func mustToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, userID, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

func testWallet(userID string, balance int64) store.Wallet {
	return store.Wallet{ID: "QP-" + strings.ToUpper(userID), UserID: userID, Balance: balance, Currency: "KES"}
}

func stringPtr(value string) *string {
	return &value
}
