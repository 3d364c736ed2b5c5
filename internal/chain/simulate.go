package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/uniswap"
)

// Simulation is the outcome of running the swap transaction through eth_call.
type Simulation struct {
	From           string `json:"from"`
	To             string `json:"to"`
	Nonce          uint64 `json:"nonce"`
	Gas            uint64 `json:"gas"`
	MaxFeeWei      string `json:"maxFeeWei"`
	PriorityFeeWei string `json:"priorityFeeWei"`
	Data           string `json:"data"`
	AmountOut      string `json:"amountOut,omitempty"`
	Reverted       bool   `json:"reverted"`
	RevertReason   string `json:"revertReason,omitempty"`
	Error          string `json:"error,omitempty"`
}

// SimulateSwap builds the swap exactly as SendSwap would at the current
// pending nonce and executes it with eth_call. A revert is reported in the
// result; only transport failures return an error.
func (c *Client) SimulateSwap(ctx context.Context, router common.Address, p uniswap.ExactInputSingleParams, gasLimit uint64) (*Simulation, error) {
	nonce, err := c.PendingNonce(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch pending nonce: %w", err)
	}
	tx, err := c.auto.BuildSwapTx(ctx, router, p, nonce, gasLimit)
	if err != nil {
		return nil, fmt.Errorf("build swap: %w", err)
	}

	from := c.Account()
	sim := &Simulation{
		From:           from.Hex(),
		To:             router.Hex(),
		Nonce:          tx.Nonce(),
		Gas:            tx.Gas(),
		MaxFeeWei:      tx.GasFeeCap().String(),
		PriorityFeeWei: tx.GasTipCap().String(),
		Data:           hexutil.Encode(tx.Data()),
	}
	msg := ethereum.CallMsg{
		From:      from,
		To:        tx.To(),
		Value:     tx.Value(),
		Data:      tx.Data(),
		Gas:       tx.Gas(),
		GasFeeCap: tx.GasFeeCap(),
		GasTipCap: tx.GasTipCap(),
	}

	callCtx, cancel := withTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	out, err := c.backend.CallContract(callCtx, msg, nil)
	if err != nil {
		var dataErr rpc.DataError
		if !errors.As(err, &dataErr) {
			return nil, fmt.Errorf("simulate swap: %w", err)
		}
		sim.Reverted = true
		sim.RevertReason = RevertReason(err)
		sim.Error = err.Error()
		c.logger.Warn("simulation reverted", "error", err, "revert_reason", sim.RevertReason)
		return sim, nil
	}

	amountOut, err := uniswap.UnpackExactInputSingle(out)
	if err != nil {
		return nil, fmt.Errorf("decode simulation result %s: %w", hexutil.Encode(out), err)
	}
	sim.AmountOut = amountOut.String()
	c.logger.Info("simulation ok", "amount_out", sim.AmountOut, "nonce", sim.Nonce)
	return sim, nil
}

// RevertReason extracts the Error(string) message from an eth_call failure,
// or returns "" when the node sent no decodable revert data.
func RevertReason(err error) string {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return ""
	}
	switch v := dataErr.ErrorData().(type) {
	case string:
		if b, derr := hexutil.Decode(v); derr == nil {
			if reason, rerr := abi.UnpackRevert(b); rerr == nil {
				return reason
			}
		}
	case []byte:
		if reason, rerr := abi.UnpackRevert(v); rerr == nil {
			return reason
		}
	}
	return ""
}
