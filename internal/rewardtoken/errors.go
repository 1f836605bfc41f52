package rewardtoken

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	// ErrNotConfigured is returned before any network call when no contract address is set.
	ErrNotConfigured = errors.New("reward token contract address not set")

	// ErrNoSigningKey is returned by write operations when no signing key is configured.
	ErrNoSigningKey = errors.New("signing key not set")

	ErrInvalidAddress = errors.New("invalid wallet address")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrBatchTooLarge  = errors.New("batch exceeds max batch size")
)

// RevertError is a contract-level rejection of a call. Reason holds the
// decoded revert string or custom error, or the raw revert data as hex when
// neither matches.
type RevertError struct {
	Method string
	Reason string
	Err    error
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return e.Method + ": execution reverted"
	}
	return e.Method + ": execution reverted: " + e.Reason
}

func (e *RevertError) Unwrap() error { return e.Err }

// asRevert turns node errors that carry revert data (or the "execution
// reverted" marker) into a *RevertError; anything else is returned as is.
func asRevert(method string, err error) error {
	if err == nil {
		return nil
	}
	var de rpc.DataError
	if errors.As(err, &de) {
		if s, ok := de.ErrorData().(string); ok {
			if data, derr := hexutil.Decode(s); derr == nil && len(data) > 0 {
				return &RevertError{Method: method, Reason: revertReason(data), Err: err}
			}
		}
	}
	s := err.Error()
	if i := strings.Index(s, "execution reverted"); i >= 0 {
		reason := strings.TrimPrefix(s[i+len("execution reverted"):], ":")
		return &RevertError{Method: method, Reason: strings.TrimSpace(reason), Err: err}
	}
	return err
}

// revertReason decodes Error(string) and Panic(uint256) payloads, then the
// token's custom errors as Name(arg, ...). Unknown data is returned as hex.
func revertReason(data []byte) string {
	if reason, err := abi.UnpackRevert(data); err == nil {
		return reason
	}
	if len(data) < 4 {
		return hexutil.Encode(data)
	}
	var id [4]byte
	copy(id[:], data[:4])
	e, err := tokenABI.ErrorByID(id)
	if err != nil {
		return hexutil.Encode(data)
	}
	args, err := e.Inputs.Unpack(data[4:])
	if err != nil {
		return e.Name + " " + hexutil.Encode(data[4:])
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return e.Name + "(" + strings.Join(parts, ", ") + ")"
}
