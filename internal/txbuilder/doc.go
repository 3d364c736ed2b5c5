package txbuilder

// Usage example (not compiled):
//
//  auto, err := txbuilder.NewAutoBuilderFromConfig(client, cfg, logger)
//  if err != nil { ... }
//  go auto.Start(ctx) // background fee refresh
//
//  approve, err := auto.BuildApproveTx(ctx, from, usdc, router, amountIn)
//  swap, err := auto.BuildSwapTx(ctx, router, params, nonce, cfg.Swap.GasLimit)
//  // sign + send
//
