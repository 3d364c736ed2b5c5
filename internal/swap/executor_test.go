package swap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/chain"
	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/quote"
	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/uniswap"
)

var (
	usdc   = common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	usdt   = common.HexToAddress("0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9")
	router = common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564")
	owner  = common.HexToAddress("0x00000000000000000000000000000000000000aa")

	approveHash = common.HexToHash("0xa1")
	swapHash    = common.HexToHash("0xb2")
)

type sentSwap struct {
	params   uniswap.ExactInputSingleParams
	nonce    uint64
	gasLimit uint64
}

type waitCall struct {
	hash  common.Hash
	depth uint64
}

type fakeChain struct {
	allowance    *big.Int
	allowanceErr error
	approveErr   error
	nonce        uint64
	sendErrs     []error
	waitErr      error
	outData      []byte

	allowanceCalls int
	approved       []*big.Int
	nonceCalls     int
	sent           []sentSwap
	waits          []waitCall
}

func (f *fakeChain) Account() common.Address { return owner }

func (f *fakeChain) Allowance(ctx context.Context, token, o, spender common.Address) (*big.Int, error) {
	f.allowanceCalls++
	if f.allowanceErr != nil {
		return nil, f.allowanceErr
	}
	return f.allowance, nil
}

func (f *fakeChain) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error) {
	if f.approveErr != nil {
		return common.Hash{}, f.approveErr
	}
	f.approved = append(f.approved, new(big.Int).Set(amount))
	return approveHash, nil
}

func (f *fakeChain) PendingNonce(ctx context.Context) (uint64, error) {
	f.nonceCalls++
	return f.nonce, nil
}

func (f *fakeChain) SendSwap(ctx context.Context, r common.Address, p uniswap.ExactInputSingleParams, nonce, gasLimit uint64) (common.Hash, error) {
	f.sent = append(f.sent, sentSwap{params: p, nonce: nonce, gasLimit: gasLimit})
	i := len(f.sent) - 1
	if i < len(f.sendErrs) && f.sendErrs[i] != nil {
		return common.Hash{}, f.sendErrs[i]
	}
	return swapHash, nil
}

func (f *fakeChain) WaitConfirmed(ctx context.Context, hash common.Hash, depth uint64) (*types.Receipt, error) {
	f.waits = append(f.waits, waitCall{hash: hash, depth: depth})
	if hash == swapHash && f.waitErr != nil {
		return nil, f.waitErr
	}
	rcpt := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: big.NewInt(1234),
		GasUsed:     150_000,
	}
	if hash == swapHash && f.outData != nil {
		rcpt.Logs = []*types.Log{{Data: f.outData}}
	}
	return rcpt, nil
}

type fakeSelector struct {
	q     *quote.Quote
	err   error
	calls int
}

func (s *fakeSelector) SelectBestQuote(ctx context.Context, amountIn *big.Int, slippageBps int, feeTiers []uniswap.FeeTier) (*quote.Quote, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.q, nil
}

type memRecorder struct {
	receipts []Receipt
	err      error
}

func (m *memRecorder) Record(ctx context.Context, r Receipt) error {
	m.receipts = append(m.receipts, r)
	return m.err
}

func nonceTooLow() error {
	return fmt.Errorf("%w: %w", chain.ErrNonceTooLow, errors.New("nonce too low: next nonce 8, tx nonce 7"))
}

func word(v int64) []byte {
	return common.LeftPadBytes(big.NewInt(v).Bytes(), 32)
}

var fixedNow = time.Unix(1_700_000_000, 0)

func newTestExecutor(c *fakeChain, sel *fakeSelector, rec Recorder) *Executor {
	e := NewExecutor(c, sel, rec, ExecutorConfig{
		TokenIn:     quote.Token{Symbol: "USDC", Address: usdc, Decimals: 6},
		TokenOut:    quote.Token{Symbol: "USDT", Address: usdt, Decimals: 6},
		Router:      router,
		SlippageBps: 100,
		GasLimit:    1_500_000,
		FeeTiers:    []uniswap.FeeTier{100, 500, 3000},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.now = func() time.Time { return fixedNow }
	return e
}

func defaultSelector() *fakeSelector {
	return &fakeSelector{q: &quote.Quote{
		AmountIn:            big.NewInt(10_000_000),
		AmountOut:           big.NewInt(9_900_000),
		FeeTier:             500,
		SlippageAdjustedOut: big.NewInt(9_801_000),
		GasEstimate:         big.NewInt(100_000),
	}}
}

func TestExecuteSwapWithSufficientAllowance(t *testing.T) {
	c := &fakeChain{allowance: big.NewInt(50_000_000), nonce: 7, outData: word(9_950_000)}
	rec := &memRecorder{}
	e := newTestExecutor(c, defaultSelector(), rec)

	r, err := e.ExecuteSwap(context.Background(), "10")
	require.NoError(t, err)

	require.Empty(t, c.approved)
	require.Len(t, c.sent, 1)
	sent := c.sent[0]
	require.Equal(t, uint64(7), sent.nonce)
	require.Equal(t, uint64(1_500_000), sent.gasLimit)
	require.Equal(t, usdc, sent.params.TokenIn)
	require.Equal(t, usdt, sent.params.TokenOut)
	require.Equal(t, uniswap.FeeTier(500), sent.params.Fee)
	require.Equal(t, owner, sent.params.Recipient)
	require.Equal(t, "10000000", sent.params.AmountIn.String())
	require.Equal(t, "9801000", sent.params.AmountOutMinimum.String())
	require.Equal(t, fixedNow.Add(10*time.Minute).Unix(), sent.params.Deadline.Int64())
	require.Zero(t, sent.params.SqrtPriceLimitX96.Sign())

	require.Equal(t, []waitCall{{hash: swapHash, depth: 2}}, c.waits)

	require.Equal(t, swapHash.Hex(), r.TxHash)
	require.Equal(t, uint64(1234), r.BlockNumber)
	require.Equal(t, uint64(150_000), r.GasUsed)
	require.Equal(t, uint32(500), r.FeeTier)
	require.Equal(t, "10", r.AmountIn)
	require.Equal(t, "9.95", r.AmountOut)
	require.InDelta(t, 10/9.95, r.EffectivePrice, 1e-12)
	require.Equal(t, 1, r.Attempts)

	require.Len(t, rec.receipts, 1)
	require.Equal(t, *r, rec.receipts[0])
}

func TestExecuteSwapApprovesExactAmountWhenAllowanceShort(t *testing.T) {
	c := &fakeChain{allowance: big.NewInt(9_999_999), nonce: 3, outData: word(9_900_000)}
	e := newTestExecutor(c, defaultSelector(), nil)

	_, err := e.ExecuteSwap(context.Background(), "10")
	require.NoError(t, err)

	require.Len(t, c.approved, 1)
	require.Equal(t, "10000000", c.approved[0].String())
	require.Equal(t, []waitCall{
		{hash: approveHash, depth: 1},
		{hash: swapHash, depth: 2},
	}, c.waits)
}

func TestExecuteSwapRetriesStaleNonce(t *testing.T) {
	c := &fakeChain{
		allowance: big.NewInt(10_000_000),
		nonce:     7,
		sendErrs:  []error{nonceTooLow(), nonceTooLow()},
		outData:   word(9_900_000),
	}
	sel := defaultSelector()
	e := newTestExecutor(c, sel, nil)

	r, err := e.ExecuteSwap(context.Background(), "10")
	require.NoError(t, err)
	require.Equal(t, 3, r.Attempts)

	require.Len(t, c.sent, 3)
	for i, s := range c.sent {
		require.Equal(t, uint64(7+i), s.nonce)
		require.Equal(t, c.sent[0].params, s.params)
	}
	require.Equal(t, 1, sel.calls)
	require.Equal(t, 1, c.allowanceCalls)
	require.Equal(t, 1, c.nonceCalls)
}

func TestExecuteSwapGivesUpAfterThreeAttempts(t *testing.T) {
	c := &fakeChain{
		allowance: big.NewInt(10_000_000),
		nonce:     20,
		sendErrs:  []error{nonceTooLow(), nonceTooLow(), nonceTooLow(), nonceTooLow()},
	}
	sel := defaultSelector()
	e := newTestExecutor(c, sel, nil)

	_, err := e.ExecuteSwap(context.Background(), "10")
	var exhausted *SubmissionExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 3, exhausted.Attempts)
	require.Equal(t, uint64(22), exhausted.LastNonce)
	require.ErrorIs(t, err, chain.ErrNonceTooLow)

	require.Len(t, c.sent, 3)
	require.Equal(t, []uint64{20, 21, 22}, []uint64{c.sent[0].nonce, c.sent[1].nonce, c.sent[2].nonce})
	require.Empty(t, c.waits)
	require.Equal(t, 1, sel.calls)
	require.Equal(t, 1, c.allowanceCalls)
}

func TestExecuteSwapOtherSubmitErrorIsFatal(t *testing.T) {
	boom := errors.New("insufficient funds for gas * price + value")
	c := &fakeChain{allowance: big.NewInt(10_000_000), sendErrs: []error{boom}}
	e := newTestExecutor(c, defaultSelector(), nil)

	_, err := e.ExecuteSwap(context.Background(), "10")
	require.ErrorIs(t, err, boom)
	var exhausted *SubmissionExhaustedError
	require.False(t, errors.As(err, &exhausted))
	require.Len(t, c.sent, 1)
}

func TestExecuteSwapRevertedIsFatal(t *testing.T) {
	c := &fakeChain{allowance: big.NewInt(10_000_000), waitErr: chain.ErrTxReverted}
	rec := &memRecorder{}
	e := newTestExecutor(c, defaultSelector(), rec)

	_, err := e.ExecuteSwap(context.Background(), "10")
	require.ErrorIs(t, err, chain.ErrTxReverted)
	require.Len(t, c.sent, 1)
	require.Empty(t, rec.receipts)
}

func TestExecuteSwapQuoteFailureStopsEarly(t *testing.T) {
	c := &fakeChain{allowance: big.NewInt(0)}
	sel := &fakeSelector{err: &quote.NoLiquidityError{Pair: "USDC/USDT"}}
	e := newTestExecutor(c, sel, nil)

	_, err := e.ExecuteSwap(context.Background(), "10")
	var qErr *QuoteUnavailableError
	require.ErrorAs(t, err, &qErr)
	require.ErrorIs(t, err, quote.ErrQuoteUnavailable)
	require.Zero(t, c.allowanceCalls)
	require.Empty(t, c.sent)
}

func TestExecuteSwapAllowanceErrors(t *testing.T) {
	readFail := &fakeChain{allowanceErr: errors.New("rpc down")}
	_, err := newTestExecutor(readFail, defaultSelector(), nil).ExecuteSwap(context.Background(), "10")
	var aErr *AllowanceError
	require.ErrorAs(t, err, &aErr)
	require.Equal(t, "read", aErr.Op)

	approveFail := &fakeChain{allowance: big.NewInt(0), approveErr: errors.New("rejected")}
	_, err = newTestExecutor(approveFail, defaultSelector(), nil).ExecuteSwap(context.Background(), "10")
	require.ErrorAs(t, err, &aErr)
	require.Equal(t, "approve", aErr.Op)
	require.Empty(t, approveFail.sent)
}

func TestExecuteSwapRejectsBadAmounts(t *testing.T) {
	for _, in := range []string{"", "  ", "abc", "0", "0.000", "-1", "1.1234567", "1e6"} {
		c := &fakeChain{}
		sel := defaultSelector()
		_, err := newTestExecutor(c, sel, nil).ExecuteSwap(context.Background(), in)
		var invalid *InvalidAmountError
		require.ErrorAs(t, err, &invalid, "input %q", in)
		require.Zero(t, sel.calls, "input %q", in)
	}
}

func TestExecuteSwapMissingOutputLog(t *testing.T) {
	c := &fakeChain{allowance: big.NewInt(10_000_000)}
	r, err := newTestExecutor(c, defaultSelector(), nil).ExecuteSwap(context.Background(), "10")
	require.NoError(t, err)
	require.Equal(t, "0", r.AmountOut)
	require.Zero(t, r.EffectivePrice)
}

func TestExecuteSwapJournalFailureIsNotFatal(t *testing.T) {
	c := &fakeChain{allowance: big.NewInt(10_000_000), outData: word(9_900_000)}
	rec := &memRecorder{err: errors.New("disk full")}
	r, err := newTestExecutor(c, defaultSelector(), rec).ExecuteSwap(context.Background(), "10")
	require.NoError(t, err)
	require.NotNil(t, r)
}

func TestQuoteFormatsTokenUnits(t *testing.T) {
	v, err := newTestExecutor(&fakeChain{}, defaultSelector(), nil).Quote(context.Background(), "10")
	require.NoError(t, err)
	require.Equal(t, "10", v.AmountIn)
	require.Equal(t, "9.9", v.AmountOut)
	require.Equal(t, "9.801", v.MinAmountOut)
	require.Equal(t, uint32(500), v.FeeTier)
	require.Equal(t, 100, v.SlippageBps)
}

func TestPlanBuildsRequestWithoutSideEffects(t *testing.T) {
	c := &fakeChain{allowance: big.NewInt(0)}
	req, err := newTestExecutor(c, defaultSelector(), nil).Plan(context.Background(), "10")
	require.NoError(t, err)

	p := req.Params()
	require.Equal(t, owner, p.Recipient)
	require.Equal(t, uniswap.FeeTier(500), p.Fee)
	require.Equal(t, "10000000", p.AmountIn.String())
	require.Equal(t, "9801000", p.AmountOutMinimum.String())
	require.Equal(t, fixedNow.Add(10*time.Minute).Unix(), p.Deadline.Int64())

	require.Zero(t, c.allowanceCalls)
	require.Zero(t, c.nonceCalls)
	require.Empty(t, c.approved)
	require.Empty(t, c.sent)

	_, err = newTestExecutor(c, defaultSelector(), nil).Plan(context.Background(), "-1")
	var invalid *InvalidAmountError
	require.ErrorAs(t, err, &invalid)
}

func TestAttemptNext(t *testing.T) {
	a := Attempt{Nonce: 41, Index: 1}.Next()
	require.Equal(t, Attempt{Nonce: 42, Index: 2}, a)
}
