// Package swap drives a quoted exact-input swap through allowance, submission
// and confirmation.
package swap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/chain"
	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/quote"
	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/txbuilder"
	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/uniswap"
)

// Chain is the on-chain side of a swap. SendSwap must report a stale nonce
// as chain.ErrNonceTooLow.
type Chain interface {
	Account() common.Address
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error)
	PendingNonce(ctx context.Context) (uint64, error)
	SendSwap(ctx context.Context, router common.Address, p uniswap.ExactInputSingleParams, nonce, gasLimit uint64) (common.Hash, error)
	WaitConfirmed(ctx context.Context, hash common.Hash, depth uint64) (*types.Receipt, error)
}

type QuoteSelector interface {
	SelectBestQuote(ctx context.Context, amountIn *big.Int, slippageBps int, feeTiers []uniswap.FeeTier) (*quote.Quote, error)
}

// Recorder persists confirmed receipts.
type Recorder interface {
	Record(ctx context.Context, r Receipt) error
}

type ExecutorConfig struct {
	TokenIn              quote.Token
	TokenOut             quote.Token
	Router               common.Address
	SlippageBps          int
	GasLimit             uint64
	FeeTiers             []uniswap.FeeTier
	MaxAttempts          int
	Deadline             time.Duration
	ApproveConfirmations uint64
	SwapConfirmations    uint64
}

type Executor struct {
	chain    Chain
	selector QuoteSelector
	recorder Recorder
	cfg      ExecutorConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewExecutor wires the executor; recorder may be nil.
func NewExecutor(c Chain, selector QuoteSelector, recorder Recorder, cfg ExecutorConfig, logger *slog.Logger) *Executor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = 10 * time.Minute
	}
	if cfg.ApproveConfirmations == 0 {
		cfg.ApproveConfirmations = 1
	}
	if cfg.SwapConfirmations == 0 {
		cfg.SwapConfirmations = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		chain:    c,
		selector: selector,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Quote runs only the quoting step and reports the result in token units.
func (e *Executor) Quote(ctx context.Context, amountIn string) (*QuoteView, error) {
	_, q, err := e.quote(ctx, amountIn)
	if err != nil {
		return nil, err
	}
	return &QuoteView{
		AmountIn:     txbuilder.FormatUnits(q.AmountIn, e.cfg.TokenIn.Decimals),
		AmountOut:    txbuilder.FormatUnits(q.AmountOut, e.cfg.TokenOut.Decimals),
		MinAmountOut: txbuilder.FormatUnits(q.SlippageAdjustedOut, e.cfg.TokenOut.Decimals),
		FeeTier:      uint32(q.FeeTier),
		SlippageBps:  e.cfg.SlippageBps,
		GasEstimate:  q.GasEstimate.String(),
		Pool:         q.Pool.Hex(),
	}, nil
}

// Plan quotes amountIn and returns the request ExecuteSwap would submit
// right now. Nothing is approved or sent.
func (e *Executor) Plan(ctx context.Context, amountIn string) (*Request, error) {
	amount, q, err := e.quote(ctx, amountIn)
	if err != nil {
		return nil, err
	}
	req := e.request(amount, q, e.chain.Account())
	return &req, nil
}

// ExecuteSwap quotes, approves if needed, submits and waits for the swap.
// Only stale-nonce rejections are retried; the quote, allowance and
// deadline from the first attempt stay in force across retries.
func (e *Executor) ExecuteSwap(ctx context.Context, amountIn string) (*Receipt, error) {
	amount, q, err := e.quote(ctx, amountIn)
	if err != nil {
		return nil, err
	}

	owner := e.chain.Account()
	if err := e.ensureAllowance(ctx, owner, amount); err != nil {
		e.logger.Error("allowance step failed", "owner", owner.Hex(), "error", err)
		return nil, err
	}

	req := e.request(amount, q, owner)
	nonce, err := e.chain.PendingNonce(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch pending nonce: %w", err)
	}

	rcpt, attempt, err := e.submit(ctx, req, nonce)
	if err != nil {
		return nil, err
	}

	out := e.receipt(rcpt, req, attempt)
	if e.recorder != nil {
		if err := e.recorder.Record(ctx, *out); err != nil {
			e.logger.Warn("journal write failed", "tx_hash", out.TxHash, "error", err)
		}
	}
	e.logger.Info("swap confirmed",
		"tx_hash", out.TxHash,
		"block", out.BlockNumber,
		"fee_tier", out.FeeTier,
		"amount_in", out.AmountIn,
		"amount_out", out.AmountOut,
		"attempts", out.Attempts,
	)
	return out, nil
}

func (e *Executor) quote(ctx context.Context, amountIn string) (*big.Int, *quote.Quote, error) {
	amount, err := e.parseAmount(amountIn)
	if err != nil {
		return nil, nil, err
	}
	q, err := e.selector.SelectBestQuote(ctx, amount, e.cfg.SlippageBps, e.cfg.FeeTiers)
	if err != nil {
		e.logger.Error("quote failed", "amount_in", amountIn, "error", err)
		return nil, nil, &QuoteUnavailableError{Err: err}
	}
	return amount, q, nil
}

func (e *Executor) request(amount *big.Int, q *quote.Quote, recipient common.Address) Request {
	return Request{
		TokenIn:          e.cfg.TokenIn.Address,
		TokenOut:         e.cfg.TokenOut.Address,
		FeeTier:          q.FeeTier,
		Recipient:        recipient,
		AmountIn:         amount,
		AmountOutMinimum: q.SlippageAdjustedOut,
		Deadline:         e.now().Add(e.cfg.Deadline),
	}
}

func (e *Executor) parseAmount(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, &InvalidAmountError{Value: value, Err: errors.New("amount is required")}
	}
	amount, err := txbuilder.ParseUnits(value, e.cfg.TokenIn.Decimals)
	if err != nil {
		return nil, &InvalidAmountError{Value: value, Err: err}
	}
	if amount.Sign() <= 0 {
		return nil, &InvalidAmountError{Value: value, Err: errors.New("amount must be positive")}
	}
	return amount, nil
}

func (e *Executor) ensureAllowance(ctx context.Context, owner common.Address, amount *big.Int) error {
	current, err := e.chain.Allowance(ctx, e.cfg.TokenIn.Address, owner, e.cfg.Router)
	if err != nil {
		return &AllowanceError{Op: "read", Err: err}
	}
	if current.Cmp(amount) >= 0 {
		e.logger.Debug("allowance sufficient", "allowance", current.String(), "amount_in", amount.String())
		return nil
	}

	e.logger.Info("approving router", "allowance", current.String(), "amount", amount.String(), "spender", e.cfg.Router.Hex())
	hash, err := e.chain.Approve(ctx, e.cfg.TokenIn.Address, e.cfg.Router, amount)
	if err != nil {
		return &AllowanceError{Op: "approve", Err: err}
	}
	if _, err := e.chain.WaitConfirmed(ctx, hash, e.cfg.ApproveConfirmations); err != nil {
		return &AllowanceError{Op: "confirm approval " + hash.Hex(), Err: err}
	}
	e.logger.Info("approval confirmed", "tx_hash", hash.Hex())
	return nil
}

func (e *Executor) submit(ctx context.Context, req Request, nonce uint64) (*types.Receipt, Attempt, error) {
	params := req.Params()
	attempt := Attempt{Nonce: nonce, Index: 1}
	var lastErr error
	for {
		logger := e.logger.With("attempt", attempt.Index, "nonce", attempt.Nonce, "fee_tier", req.FeeTier)

		hash, err := e.chain.SendSwap(ctx, e.cfg.Router, params, attempt.Nonce, e.cfg.GasLimit)
		if err == nil {
			logger.Info("swap submitted", "tx_hash", hash.Hex())
			rcpt, err := e.chain.WaitConfirmed(ctx, hash, e.cfg.SwapConfirmations)
			if err != nil {
				logger.Error("swap confirmation failed", "tx_hash", hash.Hex(), "error", err)
				return nil, attempt, fmt.Errorf("confirm swap %s: %w", hash.Hex(), err)
			}
			return rcpt, attempt, nil
		}
		if !errors.Is(err, chain.ErrNonceTooLow) {
			logger.Error("swap submission failed", "error", err)
			return nil, attempt, fmt.Errorf("submit swap: %w", err)
		}

		lastErr = err
		if attempt.Index >= e.cfg.MaxAttempts {
			break
		}
		logger.Warn("nonce too low, retrying with next nonce", "error", err)
		attempt = attempt.Next()
	}
	e.logger.Error("swap submission exhausted", "attempts", attempt.Index, "last_nonce", attempt.Nonce, "error", lastErr)
	return nil, attempt, &SubmissionExhaustedError{Attempts: attempt.Index, LastNonce: attempt.Nonce, Err: lastErr}
}

func (e *Executor) receipt(rcpt *types.Receipt, req Request, attempt Attempt) *Receipt {
	outRaw := big.NewInt(0)
	if len(rcpt.Logs) > 0 && rcpt.Logs[0] != nil && len(rcpt.Logs[0].Data) >= 32 {
		outRaw.SetBytes(rcpt.Logs[0].Data[:32])
	} else {
		e.logger.Warn("swap receipt has no decodable output log", "tx_hash", rcpt.TxHash.Hex())
	}

	var blockNumber uint64
	if rcpt.BlockNumber != nil {
		blockNumber = rcpt.BlockNumber.Uint64()
	}
	return &Receipt{
		TxHash:         rcpt.TxHash.Hex(),
		BlockNumber:    blockNumber,
		GasUsed:        rcpt.GasUsed,
		FeeTier:        uint32(req.FeeTier),
		AmountIn:       txbuilder.FormatUnits(req.AmountIn, e.cfg.TokenIn.Decimals),
		AmountOut:      txbuilder.FormatUnits(outRaw, e.cfg.TokenOut.Decimals),
		EffectivePrice: effectivePrice(req.AmountIn, e.cfg.TokenIn.Decimals, outRaw, e.cfg.TokenOut.Decimals),
		Attempts:       attempt.Index,
	}
}

// effectivePrice is amountIn / amountOut in token units, or 0 when nothing
// came out.
func effectivePrice(in *big.Int, inDecimals uint8, out *big.Int, outDecimals uint8) float64 {
	if out == nil || out.Sign() == 0 {
		return 0
	}
	num := new(big.Int).Mul(in, pow10(outDecimals))
	den := new(big.Int).Mul(out, pow10(inDecimals))
	f, _ := new(big.Rat).SetFrac(num, den).Float64()
	return f
}

func pow10(d uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d)), nil)
}
