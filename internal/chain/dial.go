package chain

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// DialHTTP connects to an HTTP JSON-RPC endpoint with a per-request timeout
// and checks that it serves the expected chain.
func DialHTTP(ctx context.Context, url string, timeout time.Duration, wantChainID uint64, logger *slog.Logger) (*ethclient.Client, error) {
	httpClient := &http.Client{Timeout: timeout}
	rpcClient, err := rpc.DialHTTPWithClient(url, httpClient)
	if err != nil {
		return nil, err
	}
	rpcClient.SetHeader("User-Agent", "swapservice")
	client := ethclient.NewClient(rpcClient)

	ctxTimeout, cancel := withTimeout(ctx, timeout)
	defer cancel()
	id, err := client.ChainID(ctxTimeout)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain id: %w", err)
	}
	if wantChainID != 0 && id.Uint64() != wantChainID {
		client.Close()
		return nil, fmt.Errorf("rpc serves chain %d, configured chain_id is %d", id.Uint64(), wantChainID)
	}
	logger.Info("rpc http connected", "chain_id", id.Uint64())
	return client, nil
}
