package tip20

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Revert is a decoded revert payload.
type Revert struct {
	// Name is the custom error name, or "Error" for string reasons.
	Name string
	// Reason renders the error arguments or the string reason.
	Reason string
}

// DecodeRevert decodes revert data against the token and factory custom
// errors and the standard Error(string) payload.
func DecodeRevert(data []byte) (Revert, bool) {
	if len(data) < 4 {
		return Revert{}, false
	}
	var selector [4]byte
	copy(selector[:], data[:4])
	for _, def := range []*abi.ABI{&Token, &Factory} {
		abiErr, err := def.ErrorByID(selector)
		if err != nil || abiErr == nil {
			continue
		}
		rev := Revert{Name: abiErr.Name}
		if len(abiErr.Inputs) > 0 {
			values, err := abiErr.Inputs.Unpack(data[4:])
			if err == nil {
				rev.Reason = formatArgs(abiErr.Inputs, values)
			}
		}
		return rev, true
	}
	if reason, err := abi.UnpackRevert(data); err == nil {
		return Revert{Name: "Error", Reason: reason}, true
	}
	return Revert{}, false
}

// EncodeError packs a custom error by name. The in-memory chain uses it to
// produce revert payloads.
func EncodeError(name string, args ...interface{}) ([]byte, error) {
	abiErr, ok := Token.Errors[name]
	if !ok {
		abiErr, ok = Factory.Errors[name]
	}
	if !ok {
		return nil, fmt.Errorf("tip20: unknown error %q", name)
	}
	packed, err := abiErr.Inputs.Pack(args...)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, abiErr.ID[:4]...), packed...), nil
}

func formatArgs(inputs abi.Arguments, values []interface{}) string {
	parts := make([]string, 0, len(values))
	for i, v := range values {
		name := fmt.Sprintf("arg%d", i)
		if i < len(inputs) && inputs[i].Name != "" {
			name = inputs[i].Name
		}
		parts = append(parts, fmt.Sprintf("%s=%v", name, v))
	}
	return strings.Join(parts, " ")
}
