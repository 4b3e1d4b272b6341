package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Cell addressing.
	ErrInvalidID    = "E_INVALID_ID"
	ErrInvalidCoord = "E_INVALID_COORD"

	// Allocation ledger.
	ErrAlreadyClaimed = "E_ALREADY_CLAIMED"
	ErrNotFound       = "E_NOT_FOUND"

	// Attribute store.
	ErrNotOwner    = "E_NOT_OWNER"
	ErrInvalidStep = "E_INVALID_STEP"

	// Fee policy / treasury.
	ErrInsufficientPayment = "E_INSUFFICIENT_PAYMENT"
	ErrNotAdmin            = "E_NOT_ADMIN"
	ErrNoFunds             = "E_NO_FUNDS"
	ErrTransferFailed      = "E_TRANSFER_FAILED"

	ErrBadRequest = "E_BAD_REQUEST"
	ErrInternal   = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:     {},
	ErrInvalidID:           {},
	ErrInvalidCoord:        {},
	ErrAlreadyClaimed:      {},
	ErrNotFound:            {},
	ErrNotOwner:            {},
	ErrInvalidStep:         {},
	ErrInsufficientPayment: {},
	ErrNotAdmin:            {},
	ErrNoFunds:             {},
	ErrTransferFailed:      {},
	ErrBadRequest:          {},
	ErrInternal:            {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
