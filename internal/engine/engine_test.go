package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvault/vault-engine/internal/dex"
	"github.com/solvault/vault-engine/internal/storage"
	"github.com/solvault/vault-engine/internal/vault"
)

// memoryStore is an in-memory VaultStore for engine tests.
type memoryStore struct {
	mu     sync.Mutex
	vaults map[solana.PublicKey]*vault.Vault
	config *vault.GlobalConfig
}

func newMemoryStore() *memoryStore {
	return &memoryStore{vaults: make(map[solana.PublicKey]*vault.Vault)}
}

func (s *memoryStore) CreateVault(_ context.Context, v *vault.Vault) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vaults[v.Investor]; ok {
		return storage.ErrVaultExists
	}
	s.vaults[v.Investor] = v.Clone()
	return nil
}

func (s *memoryStore) LoadVault(_ context.Context, investor solana.PublicKey) (*vault.Vault, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vaults[investor]
	if !ok {
		return nil, storage.ErrVaultNotFound
	}
	return v.Clone(), nil
}

func (s *memoryStore) PersistVault(_ context.Context, v *vault.Vault) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vaults[v.Investor]; !ok {
		return storage.ErrVaultNotFound
	}
	s.vaults[v.Investor] = v.Clone()
	return nil
}

func (s *memoryStore) LoadGlobalConfig(_ context.Context) (*vault.GlobalConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		return nil, storage.ErrGlobalConfigNotFound
	}
	cfg := *s.config
	return &cfg, nil
}

func (s *memoryStore) PersistGlobalConfig(_ context.Context, cfg *vault.GlobalConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cfg
	s.config = &c
	return nil
}

func (s *memoryStore) Ping(context.Context) error { return nil }
func (s *memoryStore) Close() error               { return nil }

// fakeSwapper returns a scripted output without touching any venue.
type fakeSwapper struct {
	amountOut uint64
	err       error
	calls     int
	onSwap    func()
}

func (f *fakeSwapper) ExecuteSwap(_ context.Context, poolType dex.PoolType, _, _ uint64, _ []dex.VenueAccount, _ vault.Authority) (*dex.SwapResult, error) {
	if poolType != dex.PoolTypeRaydiumAMM && poolType != dex.PoolTypeRaydiumCLMM {
		return nil, dex.ErrInvalidPoolType
	}
	f.calls++
	if f.onSwap != nil {
		f.onSwap()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &dex.SwapResult{AmountOut: f.amountOut}, nil
}

type testFixture struct {
	engine   *Engine
	store    *memoryStore
	swapper  *fakeSwapper
	admin    solana.PublicKey
	bot      solana.PublicKey
	investor solana.PublicKey
	tokenIn  solana.PublicKey
	tokenOut solana.PublicKey
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		store:    newMemoryStore(),
		swapper:  &fakeSwapper{},
		admin:    solana.NewWallet().PublicKey(),
		bot:      solana.NewWallet().PublicKey(),
		investor: solana.NewWallet().PublicKey(),
		tokenIn:  vault.WSOLMint,
		tokenOut: solana.NewWallet().PublicKey(),
	}

	eng, err := NewEngine(EngineConfig{
		Store:   f.store,
		Swapper: f.swapper,
	})
	require.NoError(t, err)
	f.engine = eng

	ctx := context.Background()
	require.NoError(t, eng.InitializeGlobalConfig(ctx, f.admin, f.bot))
	_, err = eng.CreateBalanceManager(ctx, f.investor)
	require.NoError(t, err)
	return f
}

func (f *testFixture) fund(t *testing.T, token solana.PublicKey, amount uint64) {
	t.Helper()
	require.NoError(t, f.engine.Deposit(context.Background(), f.investor, f.investor, token, amount))
}

func (f *testFixture) signal() TradeSignal {
	return TradeSignal{
		Investor:    f.investor,
		Executor:    f.bot,
		TokenIn:     f.tokenIn,
		TokenOut:    f.tokenOut,
		AmountIn:    500_000,
		SlippageBps: 50,
		PoolType:    dex.PoolTypeRaydiumAMM,
	}
}

func TestInitializeGlobalConfig_Once(t *testing.T) {
	f := newFixture(t)

	err := f.engine.InitializeGlobalConfig(context.Background(), f.admin, f.bot)
	assert.ErrorIs(t, err, ErrGlobalConfigExists)
}

func TestSetBot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	newBot := solana.NewWallet().PublicKey()

	assert.ErrorIs(t, f.engine.SetBot(ctx, f.bot, newBot), ErrOnlyAdmin)
	assert.ErrorIs(t, f.engine.SetBot(ctx, f.admin, solana.PublicKey{}), ErrInvalidBotAddress)
	assert.ErrorIs(t, f.engine.SetBot(ctx, f.admin, f.bot), ErrSameBotAddress)

	require.NoError(t, f.engine.SetBot(ctx, f.admin, newBot))
	cfg, err := f.store.LoadGlobalConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, newBot, cfg.Bot)
}

func TestSetAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	newAdmin := solana.NewWallet().PublicKey()

	assert.ErrorIs(t, f.engine.SetAdmin(ctx, newAdmin, newAdmin), ErrOnlyAdmin)
	assert.ErrorIs(t, f.engine.SetAdmin(ctx, f.admin, f.admin), ErrSameAdminAddress)

	require.NoError(t, f.engine.SetAdmin(ctx, f.admin, newAdmin))

	// The old admin lost the role.
	assert.ErrorIs(t, f.engine.SetBot(ctx, f.admin, solana.NewWallet().PublicKey()), ErrOnlyAdmin)
}

func TestCreateBalanceManager_Duplicate(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateBalanceManager(context.Background(), f.investor)
	assert.ErrorIs(t, err, storage.ErrVaultExists)
}

func TestDepositAndBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fund(t, f.tokenIn, 1_000_000)

	balance, err := f.engine.Balance(ctx, f.investor, f.tokenIn)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), balance)

	// Unknown token reads as zero.
	balance, err = f.engine.Balance(ctx, f.investor, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)
}

func TestDeposit_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stranger := solana.NewWallet().PublicKey()

	assert.ErrorIs(t, f.engine.Deposit(ctx, stranger, f.investor, f.tokenIn, 1), ErrOnlyInvestor)
	assert.ErrorIs(t, f.engine.Deposit(ctx, f.investor, f.investor, f.tokenIn, 0), ErrInvalidAmount)
}

func TestNativeSOLDepositAndWithdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The native SOL entry sits under the zero mint and must be
	// depositable like any other token.
	f.fund(t, vault.NativeSOLMint, 3_000_000_000)

	balance, err := f.engine.Balance(ctx, f.investor, vault.NativeSOLMint)
	require.NoError(t, err)
	assert.Equal(t, uint64(3_000_000_000), balance)

	require.NoError(t, f.engine.Withdraw(ctx, f.investor, f.investor, vault.NativeSOLMint, 1_000_000_000))

	balance, err = f.engine.Balance(ctx, f.investor, vault.NativeSOLMint)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000_000_000), balance)
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fund(t, f.tokenIn, 1_000)

	require.NoError(t, f.engine.Withdraw(ctx, f.investor, f.investor, f.tokenIn, 400))

	balance, err := f.engine.Balance(ctx, f.investor, f.tokenIn)
	require.NoError(t, err)
	assert.Equal(t, uint64(600), balance)

	assert.ErrorIs(t, f.engine.Withdraw(ctx, f.investor, f.investor, f.tokenIn, 601), ErrInsufficientBalance)
}

func TestWrapAndUnwrapSOL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fund(t, vault.NativeSOLMint, 2_000_000_000)

	require.NoError(t, f.engine.WrapSOL(ctx, f.investor, f.investor, 1_500_000_000))

	native, err := f.engine.Balance(ctx, f.investor, vault.NativeSOLMint)
	require.NoError(t, err)
	wrapped, err := f.engine.Balance(ctx, f.investor, vault.WSOLMint)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000_000), native)
	assert.Equal(t, uint64(1_500_000_000), wrapped)

	// Unwrap returns the whole wrapped balance.
	require.NoError(t, f.engine.UnwrapSOL(ctx, f.investor, f.investor))

	native, err = f.engine.Balance(ctx, f.investor, vault.NativeSOLMint)
	require.NoError(t, err)
	wrapped, err = f.engine.Balance(ctx, f.investor, vault.WSOLMint)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000_000_000), native)
	assert.Equal(t, uint64(0), wrapped)

	assert.ErrorIs(t, f.engine.UnwrapSOL(ctx, f.investor, f.investor), ErrInsufficientBalance)
}

func TestExecuteTradeSignal_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fund(t, f.tokenIn, 1_000_000)
	f.swapper.amountOut = 495_000

	event, err := f.engine.ExecuteTradeSignal(ctx, f.signal())
	require.NoError(t, err)

	assert.Equal(t, uint64(500_000), event.AmountIn)
	assert.Equal(t, uint64(492_500), event.AmountOutMin)
	assert.Equal(t, uint64(495_000), event.AmountOut)

	wantFee, wantUser := ComputeFee(495_000)
	assert.Equal(t, wantFee, event.FeeAmount)
	assert.Equal(t, event.AmountOut, event.FeeAmount+wantUser)
	// The platform fee accrues to whoever the admin role points at.
	assert.Equal(t, f.admin, event.FeeRecipient)
	assert.Equal(t, event.TimestampMicros, uint64(event.Timestamp)*1_000_000)

	in, err := f.engine.Balance(ctx, f.investor, f.tokenIn)
	require.NoError(t, err)
	out, err := f.engine.Balance(ctx, f.investor, f.tokenOut)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000), in)
	assert.Equal(t, wantUser, out)
}

func TestExecuteTradeSignal_AuthorizationBeforeBalance(t *testing.T) {
	f := newFixture(t)

	// Vault has no funds; the unauthorized executor must still be the error.
	signal := f.signal()
	signal.Executor = solana.NewWallet().PublicKey()

	_, err := f.engine.ExecuteTradeSignal(context.Background(), signal)
	assert.ErrorIs(t, err, ErrOnlyBotOrAdmin)
	assert.Zero(t, f.swapper.calls)
}

func TestExecuteTradeSignal_AdminMayExecute(t *testing.T) {
	f := newFixture(t)

	f.fund(t, f.tokenIn, 1_000_000)
	f.swapper.amountOut = 495_000

	signal := f.signal()
	signal.Executor = f.admin

	_, err := f.engine.ExecuteTradeSignal(context.Background(), signal)
	assert.NoError(t, err)
}

func TestExecuteTradeSignal_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, f.tokenIn, 1_000_000)

	signal := f.signal()
	signal.AmountIn = 0
	_, err := f.engine.ExecuteTradeSignal(ctx, signal)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	signal = f.signal()
	signal.TokenOut = signal.TokenIn
	_, err = f.engine.ExecuteTradeSignal(ctx, signal)
	assert.ErrorIs(t, err, ErrInvalidTokenPair)

	signal = f.signal()
	signal.TokenOut = solana.PublicKey{}
	_, err = f.engine.ExecuteTradeSignal(ctx, signal)
	assert.ErrorIs(t, err, ErrInvalidTokenAddress)

	signal = f.signal()
	signal.SlippageBps = 10_001
	_, err = f.engine.ExecuteTradeSignal(ctx, signal)
	assert.ErrorIs(t, err, ErrInvalidSlippage)
}

func TestExecuteTradeSignal_UnknownPoolType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, f.tokenIn, 1_000_000)

	signal := f.signal()
	signal.PoolType = dex.PoolType(2)

	_, err := f.engine.ExecuteTradeSignal(ctx, signal)
	assert.ErrorIs(t, err, dex.ErrInvalidPoolType)

	// The debit never reached the store.
	balance, err := f.engine.Balance(ctx, f.investor, f.tokenIn)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), balance)
}

func TestExecuteTradeSignal_SwapFailureLeavesLedgerUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, f.tokenIn, 1_000_000)
	f.swapper.err = errors.New("venue unavailable")

	_, err := f.engine.ExecuteTradeSignal(ctx, f.signal())
	require.Error(t, err)

	balance, err := f.engine.Balance(ctx, f.investor, f.tokenIn)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), balance)

	// The lock was released on the failure path.
	f.swapper.err = nil
	f.swapper.amountOut = 495_000
	_, err = f.engine.ExecuteTradeSignal(ctx, f.signal())
	assert.NoError(t, err)
}

func TestExecuteTradeSignal_OutputBelowMinimum(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, f.tokenIn, 1_000_000)
	f.swapper.amountOut = 492_499 // one below the minimum

	_, err := f.engine.ExecuteTradeSignal(ctx, f.signal())
	assert.ErrorIs(t, err, ErrInsufficientOutputAmount)

	balance, err := f.engine.Balance(ctx, f.investor, f.tokenIn)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), balance)
}

func TestExecuteTradeSignal_InsufficientBalance(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.tokenIn, 100)

	_, err := f.engine.ExecuteTradeSignal(context.Background(), f.signal())
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Zero(t, f.swapper.calls)
}

func TestExecuteTradeSignal_ReentrancyBlocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, f.tokenIn, 1_000_000)
	f.swapper.amountOut = 495_000

	// A withdrawal attempted mid-swap must bounce off the guard.
	var nestedErr error
	f.swapper.onSwap = func() {
		nestedErr = f.engine.Withdraw(ctx, f.investor, f.investor, f.tokenIn, 1)
	}

	_, err := f.engine.ExecuteTradeSignal(ctx, f.signal())
	require.NoError(t, err)
	assert.ErrorIs(t, nestedErr, vault.ErrReentrantCall)

	// After the trade finishes the guard is open again.
	assert.NoError(t, f.engine.Withdraw(ctx, f.investor, f.investor, f.tokenIn, 1))
}

func TestDeposit_RefusedDuringTrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, f.tokenIn, 1_000_000)
	f.swapper.amountOut = 495_000

	// A deposit landing while a trade holds the vault must be refused.
	// Letting it through would persist against the pre-trade snapshot and
	// the trade's own persist would then erase the credit.
	third := solana.NewWallet().PublicKey()
	var nestedErr error
	f.swapper.onSwap = func() {
		nestedErr = f.engine.Deposit(ctx, f.investor, f.investor, third, 777)
	}

	_, err := f.engine.ExecuteTradeSignal(ctx, f.signal())
	require.NoError(t, err)
	assert.ErrorIs(t, nestedErr, vault.ErrReentrantCall)

	// The refused deposit left no partial state; retrying after the trade
	// records the full amount.
	balance, err := f.engine.Balance(ctx, f.investor, third)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)

	require.NoError(t, f.engine.Deposit(ctx, f.investor, f.investor, third, 777))
	balance, err = f.engine.Balance(ctx, f.investor, third)
	require.NoError(t, err)
	assert.Equal(t, uint64(777), balance)
}

func TestWithdraw_SequentialAfterTrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, f.tokenIn, 1_000_000)
	f.swapper.amountOut = 495_000

	_, err := f.engine.ExecuteTradeSignal(ctx, f.signal())
	require.NoError(t, err)

	_, wantUser := ComputeFee(495_000)
	require.NoError(t, f.engine.Withdraw(ctx, f.investor, f.investor, f.tokenOut, wantUser))

	out, err := f.engine.Balance(ctx, f.investor, f.tokenOut)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), out)
}
