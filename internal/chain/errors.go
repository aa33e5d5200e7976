package chain

import (
	"errors"
	"strings"
)

var (
	// ErrSubmissionFailed covers signing and broadcast failures. No
	// transaction reached the chain; local state must not change.
	ErrSubmissionFailed = errors.New("transaction submission failed")

	// ErrNonceConflict indicates a concurrent submission from the same
	// signer raced this one. The caller may retry with a refreshed nonce.
	ErrNonceConflict = errors.New("nonce conflict")

	// ErrTxReverted indicates the transaction was mined but reverted.
	ErrTxReverted = errors.New("transaction reverted")

	// ErrConfirmationTimeout indicates the transaction was broadcast but no
	// receipt was observed within the confirmation bound. The transaction
	// may still land later; this is distinct from an outright failure.
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")
)

// nonce collision surfaces as one of a few node error strings; there is no
// structured error code for it on the JSON-RPC boundary.
var nonceErrorFragments = []string{
	"nonce too low",
	"nonce too high",
	"replacement transaction underpriced",
	"already known",
}

func isNonceConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range nonceErrorFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
