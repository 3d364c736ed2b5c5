package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
)

type revertError struct {
	data string
}

func (e *revertError) Error() string          { return "execution reverted" }
func (e *revertError) ErrorCode() int         { return 3 }
func (e *revertError) ErrorData() interface{} { return e.data }

func revertData(t *testing.T, reason string) string {
	t.Helper()
	typ, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: typ}}.Pack(reason)
	require.NoError(t, err)
	return hexutil.Encode(append([]byte{0x08, 0xc3, 0x79, 0xa0}, packed...))
}

func uint256Word(v int64) []byte {
	return common.LeftPadBytes(big.NewInt(v).Bytes(), 32)
}

func TestSimulateSwapDecodesAmountOut(t *testing.T) {
	b := &fakeBackend{nonce: 41, callOut: uint256Word(9_950_000)}
	c, signer := newTestClient(t, b)
	router := common.HexToAddress("0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45")

	sim, err := c.SimulateSwap(context.Background(), router, testSwapParams(), 1_500_000)
	require.NoError(t, err)
	require.False(t, sim.Reverted)
	require.Equal(t, "9950000", sim.AmountOut)
	require.Equal(t, uint64(41), sim.Nonce)
	require.Equal(t, uint64(1_500_000), sim.Gas)
	require.Equal(t, router.Hex(), sim.To)

	require.Len(t, b.calls, 1)
	require.Equal(t, signer.Address(), b.calls[0].From)
	require.Equal(t, router, *b.calls[0].To)
	require.Equal(t, sim.Data, hexutil.Encode(b.calls[0].Data))
	require.Empty(t, b.sent)
}

func TestSimulateSwapReportsRevertReason(t *testing.T) {
	b := &fakeBackend{callErr: &revertError{data: revertData(t, "Too little received")}}
	c, _ := newTestClient(t, b)

	sim, err := c.SimulateSwap(context.Background(), common.HexToAddress("0x04"), testSwapParams(), 1_500_000)
	require.NoError(t, err)
	require.True(t, sim.Reverted)
	require.Equal(t, "Too little received", sim.RevertReason)
	require.Empty(t, sim.AmountOut)
}

func TestSimulateSwapTransportError(t *testing.T) {
	b := &fakeBackend{callErr: errors.New("connection refused")}
	c, _ := newTestClient(t, b)

	_, err := c.SimulateSwap(context.Background(), common.HexToAddress("0x04"), testSwapParams(), 1_500_000)
	require.ErrorContains(t, err, "connection refused")
}

func TestRevertReason(t *testing.T) {
	require.Equal(t, "STF", RevertReason(&revertError{data: revertData(t, "STF")}))
	require.Empty(t, RevertReason(&revertError{data: "0x"}))
	require.Empty(t, RevertReason(errors.New("plain")))
	require.Empty(t, RevertReason(nil))
}
