package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"tip20kit/core/events"
	"tip20kit/core/roles"
	"tip20kit/core/tokenref"
	"tip20kit/sdk/token"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parseFlags parses args and rejects positional leftovers.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%s: unexpected arguments %v", fs.Name(), fs.Args())
	}
	return nil
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("--%s is required", name)
	}
	return nil
}

func (s *session) tokenRef(name, value string) (tokenref.Ref, error) {
	if err := required(name, value); err != nil {
		return tokenref.Ref{}, err
	}
	ref, err := s.book.Parse(value)
	if err != nil {
		return tokenref.Ref{}, fmt.Errorf("--%s: %w", name, err)
	}
	return ref, nil
}

// optionalTokenRef returns the zero reference for an empty value.
func (s *session) optionalTokenRef(name, value string) (tokenref.Ref, error) {
	if strings.TrimSpace(value) == "" {
		return tokenref.Ref{}, nil
	}
	return s.tokenRef(name, value)
}

func parseAddress(name, value string) (common.Address, error) {
	if err := required(name, value); err != nil {
		return common.Address{}, err
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("--%s: %q is not an address", name, value)
	}
	return common.HexToAddress(value), nil
}

func optionalAddress(name, value string) (common.Address, error) {
	if strings.TrimSpace(value) == "" {
		return common.Address{}, nil
	}
	return parseAddress(name, value)
}

func optionalAddressPtr(name, value string) (*common.Address, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	addr, err := parseAddress(name, value)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

// parseAmount reads an integer amount in base units. Scientific shorthand
// such as 25e6 is accepted as long as the result is whole.
func parseAmount(name, value string) (*big.Int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(value), "_", "")
	if trimmed == "" {
		return nil, fmt.Errorf("--%s is required", name)
	}
	exponent := 0
	base := trimmed
	if idx := strings.IndexAny(trimmed, "eE"); idx != -1 {
		base = trimmed[:idx]
		exp, err := strconv.ParseUint(trimmed[idx+1:], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("--%s: invalid scientific notation", name)
		}
		exponent = int(exp)
	}
	base = strings.TrimPrefix(base, "+")
	if strings.HasPrefix(base, "-") {
		return nil, fmt.Errorf("--%s must not be negative", name)
	}
	whole, frac, _ := strings.Cut(base, ".")
	if whole+frac == "" {
		return nil, fmt.Errorf("--%s: invalid amount %q", name, value)
	}
	if len(frac) > exponent {
		return nil, fmt.Errorf("--%s: %q is not a whole number of base units", name, value)
	}
	digits := whole + frac + strings.Repeat("0", exponent-len(frac))
	amount, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("--%s: invalid amount %q", name, value)
	}
	return amount, nil
}

// parseRoles reads a comma separated list of role names or ids.
func parseRoles(name, value string) ([]roles.Role, error) {
	if err := required(name, value); err != nil {
		return nil, err
	}
	var out []roles.Role
	for _, part := range strings.Split(value, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		r, err := roles.Parse(part)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", name, err)
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("--%s is required", name)
	}
	return out, nil
}

func parseRole(name, value string) (roles.Role, error) {
	if err := required(name, value); err != nil {
		return roles.Role{}, err
	}
	r, err := roles.Parse(value)
	if err != nil {
		return roles.Role{}, fmt.Errorf("--%s: %w", name, err)
	}
	return r, nil
}

// parseMemo turns --memo into a memo. Values starting with 0x are taken as raw
// hex; anything else is left-aligned text.
func parseMemo(value string) (token.Memo, error) {
	if value == "" {
		return nil, nil
	}
	if strings.HasPrefix(value, "0x") {
		raw := common.FromHex(value)
		if len(raw) > 32 {
			return nil, errors.New("--memo: hex memo longer than 32 bytes")
		}
		var m [32]byte
		copy(m[:], raw)
		return &m, nil
	}
	if len(value) > 32 {
		return nil, errors.New("--memo: text memo longer than 32 bytes")
	}
	return token.MemoFromString(value), nil
}

// writeFlags are shared by every state-changing command.
type writeFlags struct {
	feeToken string
	noWait   bool
}

func (w *writeFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&w.feeToken, "fee-token", "", "token paying the fee for this transaction")
	fs.BoolVar(&w.noWait, "no-wait", false, "print the transaction hash without waiting for a receipt")
}

func (w *writeFlags) options(s *session) (token.WriteOptions, error) {
	fee, err := s.optionalTokenRef("fee-token", w.feeToken)
	if err != nil {
		return token.WriteOptions{}, err
	}
	return token.WriteOptions{FeeToken: fee}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type pendingOutput struct {
	Action string `json:"action"`
	TxHash string `json:"txHash"`
	From   string `json:"from"`
}

func printPending(w io.Writer, p *token.Pending) error {
	return writeJSON(w, pendingOutput{Action: p.Action, TxHash: p.Hash.Hex(), From: p.From.Hex()})
}

type eventOutput struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

type resultOutput struct {
	TxHash      string        `json:"txHash"`
	BlockNumber uint64        `json:"blockNumber"`
	GasUsed     uint64        `json:"gasUsed"`
	Events      []eventOutput `json:"events"`
}

// printResult writes the receipt summary together with the decoded events
// of the action.
func printResult(w io.Writer, receipt *types.Receipt, evs ...events.Event) error {
	out := resultOutput{TxHash: receipt.TxHash.Hex(), GasUsed: receipt.GasUsed}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}
	for _, ev := range evs {
		out.Events = append(out.Events, eventOutput{Type: ev.EventType(), Attributes: ev.Attributes()})
	}
	return writeJSON(w, out)
}
