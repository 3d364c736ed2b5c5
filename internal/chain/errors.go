package chain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNonceTooLow marks a submission the node rejected because the nonce
	// was already used.
	ErrNonceTooLow = errors.New("nonce too low")
	// ErrTxReverted marks a mined transaction with a failed status.
	ErrTxReverted = errors.New("transaction reverted")
)

// Node error texts for a stale nonce. The JSON-RPC layer only surfaces the
// message, so this is the one place that inspects it.
var nonceTooLowMessages = []string{
	"nonce too low",
	"nonce has already been used",
}

func classifySendError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, m := range nonceTooLowMessages {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %w", ErrNonceTooLow, err)
		}
	}
	return err
}
