package simulated

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"tip20kit/core/events"
	"tip20kit/core/roles"
	"tip20kit/core/tip20"
	"tip20kit/core/tokenref"
)

// RevertError carries a revert payload the way JSON-RPC errors do.
type RevertError struct {
	Name string
	data []byte
}

func (e *RevertError) Error() string { return "execution reverted: " + e.Name }

// ErrorData returns the hex-encoded revert payload.
func (e *RevertError) ErrorData() interface{} { return hexutil.Encode(e.data) }

func revert(name string, args ...interface{}) error {
	data, err := tip20.EncodeError(name, args...)
	if err != nil {
		return fmt.Errorf("simulated: encode %s: %w", name, err)
	}
	return &RevertError{Name: name, data: data}
}

// frame is one call's execution context.
type frame struct {
	w      *world
	sender common.Address
	to     common.Address
	logs   []gethtypes.Log
}

func (f *frame) emit(addr common.Address, e events.Event) error {
	log, err := events.Encode(addr, e)
	if err != nil {
		return err
	}
	f.logs = append(f.logs, log)
	return nil
}

// exec runs one call against w. Calls to addresses without code return no
// data and no error, as on a real chain.
func (w *world) exec(sender, to common.Address, data []byte) ([]byte, []gethtypes.Log, error) {
	if len(data) < 4 {
		return nil, nil, nil
	}
	f := &frame{w: w, sender: sender, to: to}
	if to == tokenref.FactoryAddress {
		out, err := f.factory(data)
		return out, f.logs, err
	}
	t, ok := w.tokens[to]
	if !ok {
		return nil, nil, nil
	}
	out, err := f.token(t, data)
	return out, f.logs, err
}

func decodeCall(def abi.ABI, data []byte) (*abi.Method, []interface{}, error) {
	method, err := def.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("simulated: decode %s: %w", method.Name, err)
	}
	return method, args, nil
}

func (f *frame) factory(data []byte) ([]byte, error) {
	method, args, err := decodeCall(tip20.Factory, data)
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "isTIP20":
		_, ok := f.w.tokens[args[0].(common.Address)]
		return method.Outputs.Pack(ok)
	case "tokenIdCounter":
		return method.Outputs.Pack(new(big.Int).SetUint64(f.w.nextID))
	case "createToken":
		name, symbol, currency := args[0].(string), args[1].(string), args[2].(string)
		quote, admin := args[3].(common.Address), args[4].(common.Address)
		if _, ok := f.w.tokens[quote]; !ok {
			return nil, revert(tip20.ErrorInvalidQuoteToken)
		}
		id := f.w.nextID
		f.w.nextID++
		addr := tokenref.AddressFromID(id)
		f.w.tokens[addr] = newTokenState(id, name, symbol, currency, quote, admin)
		err := f.emit(tokenref.FactoryAddress, events.TokenCreated{
			Token:      addr,
			TokenID:    new(big.Int).SetUint64(id),
			Name:       name,
			Symbol:     symbol,
			Currency:   currency,
			QuoteToken: quote,
			Admin:      admin,
		})
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(addr)
	default:
		return nil, fmt.Errorf("simulated: factory method %s not supported", method.Name)
	}
}

func u256(v interface{}) *uint256.Int {
	out, _ := uint256.FromBig(v.(*big.Int))
	return out
}

func (f *frame) token(t *tokenState, data []byte) ([]byte, error) {
	method, args, err := decodeCall(tip20.Token, data)
	if err != nil {
		return nil, err
	}
	root := t.id == tokenref.RootID
	switch method.Name {
	case "name":
		return method.Outputs.Pack(t.name)
	case "symbol":
		return method.Outputs.Pack(t.symbol)
	case "currency":
		return method.Outputs.Pack(t.currency)
	case "decimals":
		return method.Outputs.Pack(uint8(decimals))
	case "totalSupply":
		return method.Outputs.Pack(t.totalSupply.ToBig())
	case "supplyCap", "paused", "quoteToken", "nextQuoteToken", "transferPolicyId":
		if root {
			// The root token predates these fields.
			return nil, nil
		}
		switch method.Name {
		case "supplyCap":
			return method.Outputs.Pack(t.supplyCap.ToBig())
		case "paused":
			return method.Outputs.Pack(t.paused)
		case "quoteToken":
			return method.Outputs.Pack(t.quoteToken)
		case "nextQuoteToken":
			return method.Outputs.Pack(t.nextQuoteToken)
		default:
			return method.Outputs.Pack(t.policyID)
		}
	case "balanceOf":
		return method.Outputs.Pack(t.balance(args[0].(common.Address)).ToBig())
	case "allowance":
		return method.Outputs.Pack(t.allowance(args[0].(common.Address), args[1].(common.Address)).ToBig())
	case "hasRole":
		role := common.Hash(args[1].([32]byte))
		return method.Outputs.Pack(t.hasRole(args[0].(common.Address), role))
	case "getRoleAdmin":
		return method.Outputs.Pack(t.roleAdmin(common.Hash(args[0].([32]byte))))

	case "approve":
		spender, amount := args[0].(common.Address), u256(args[1])
		t.setAllowance(f.sender, spender, amount)
		if err := f.emit(f.to, events.Approval{Owner: f.sender, Spender: spender, Amount: amount.ToBig()}); err != nil {
			return nil, err
		}
		return method.Outputs.Pack(true)
	case "transfer", "transferWithMemo":
		to, amount := args[0].(common.Address), u256(args[1])
		memo := memoArg(args, 2)
		if err := f.move(t, f.sender, to, amount, memo); err != nil {
			return nil, err
		}
		return method.Outputs.Pack(outputs(method, true)...)
	case "transferFrom", "transferFromWithMemo":
		from, to, amount := args[0].(common.Address), args[1].(common.Address), u256(args[2])
		memo := memoArg(args, 3)
		allowed := t.allowance(from, f.sender)
		if allowed.Lt(amount) {
			return nil, revert(tip20.ErrorInsufficientAllowance)
		}
		if err := f.move(t, from, to, amount, memo); err != nil {
			return nil, err
		}
		t.setAllowance(from, f.sender, new(uint256.Int).Sub(allowed, amount))
		return method.Outputs.Pack(outputs(method, true)...)
	case "mint", "mintWithMemo":
		return nil, f.mint(t, args[0].(common.Address), u256(args[1]), memoArg(args, 2))
	case "burn", "burnWithMemo":
		return nil, f.burn(t, u256(args[0]), memoArg(args, 1))
	case "burnBlocked":
		return nil, f.burnBlocked(t, args[0].(common.Address), u256(args[1]))
	case "pause", "unpause":
		return nil, f.setPaused(t, method.Name == "pause")
	case "grantRole", "revokeRole":
		role := common.Hash(args[0].([32]byte))
		if !t.hasRole(f.sender, t.roleAdmin(role)) {
			return nil, revert(tip20.ErrorUnauthorized)
		}
		grant := method.Name == "grantRole"
		account := args[1].(common.Address)
		t.setMember(role, account, grant)
		return nil, f.emit(f.to, events.RoleMembershipUpdated{
			Role: roles.Deserialize(role), Account: account, Sender: f.sender, HasRole: grant,
		})
	case "renounceRole":
		role := common.Hash(args[0].([32]byte))
		if !t.hasRole(f.sender, role) {
			return nil, revert(tip20.ErrorUnauthorized)
		}
		t.setMember(role, f.sender, false)
		return nil, f.emit(f.to, events.RoleMembershipUpdated{
			Role: roles.Deserialize(role), Account: f.sender, Sender: f.sender,
		})
	case "setRoleAdmin":
		role, admin := common.Hash(args[0].([32]byte)), common.Hash(args[1].([32]byte))
		if !t.hasRole(f.sender, t.roleAdmin(role)) {
			return nil, revert(tip20.ErrorUnauthorized)
		}
		t.admins[role] = admin
		return nil, f.emit(f.to, events.RoleAdminUpdated{
			Role: roles.Deserialize(role), NewAdminRole: roles.Deserialize(admin), Sender: f.sender,
		})
	case "setSupplyCap":
		if err := f.requireAdmin(t); err != nil {
			return nil, err
		}
		newCap := u256(args[0])
		if newCap.Lt(t.totalSupply) {
			return nil, revert(tip20.ErrorSupplyCapExceeded)
		}
		t.supplyCap = newCap
		return nil, f.emit(f.to, events.SupplyCapUpdate{Updater: f.sender, NewSupplyCap: newCap.ToBig()})
	case "changeTransferPolicyId":
		if err := f.requireAdmin(t); err != nil {
			return nil, err
		}
		t.policyID = args[0].(uint64)
		return nil, f.emit(f.to, events.TransferPolicyUpdate{Updater: f.sender, NewPolicyID: t.policyID})
	case "setNextQuoteToken":
		if err := f.requireAdmin(t); err != nil {
			return nil, err
		}
		next := args[0].(common.Address)
		if root {
			return nil, revert(tip20.ErrorInvalidQuoteToken)
		}
		t.nextQuoteToken = next
		return nil, f.emit(f.to, events.NextQuoteTokenSet{Updater: f.sender, NextQuoteToken: next})
	case "completeQuoteTokenUpdate":
		if err := f.requireAdmin(t); err != nil {
			return nil, err
		}
		if t.nextQuoteToken == (common.Address{}) {
			return nil, revert(tip20.ErrorNoPendingQuoteToken)
		}
		if f.w.reaches(t.nextQuoteToken, f.to) {
			return nil, revert(tip20.ErrorInvalidQuoteToken)
		}
		t.quoteToken, t.nextQuoteToken = t.nextQuoteToken, common.Address{}
		return nil, f.emit(f.to, events.QuoteTokenUpdate{Updater: f.sender, NewQuoteToken: t.quoteToken})
	default:
		return nil, fmt.Errorf("simulated: token method %s not supported", method.Name)
	}
}

// reaches reports whether following quote links from start arrives at target.
func (w *world) reaches(start, target common.Address) bool {
	seen := make(map[common.Address]bool)
	for cursor := start; cursor != (common.Address{}); {
		if cursor == target {
			return true
		}
		if seen[cursor] {
			return false
		}
		seen[cursor] = true
		t, ok := w.tokens[cursor]
		if !ok {
			return false
		}
		cursor = t.quoteToken
	}
	return false
}

func outputs(method *abi.Method, v interface{}) []interface{} {
	if len(method.Outputs) == 0 {
		return nil
	}
	return []interface{}{v}
}

func memoArg(args []interface{}, i int) *[32]byte {
	if len(args) <= i {
		return nil
	}
	m := args[i].([32]byte)
	return &m
}

func (f *frame) requireAdmin(t *tokenState) error {
	if !t.hasRole(f.sender, roles.Serialize(roles.DefaultAdmin)) {
		return revert(tip20.ErrorUnauthorized)
	}
	return nil
}

func (f *frame) move(t *tokenState, from, to common.Address, amount *uint256.Int, memo *[32]byte) error {
	if t.paused {
		return revert(tip20.ErrorContractPaused)
	}
	if !f.w.authorized(t.policyID, from) || !f.w.authorized(t.policyID, to) {
		return revert(tip20.ErrorPolicyForbids)
	}
	have := t.balance(from)
	if have.Lt(amount) {
		return revert(tip20.ErrorInsufficientBalance, have.ToBig(), amount.ToBig(), f.to)
	}
	t.balances[from] = new(uint256.Int).Sub(have, amount)
	t.balances[to] = new(uint256.Int).Add(t.balance(to), amount)
	if err := f.emit(f.to, events.Transfer{From: from, To: to, Amount: amount.ToBig()}); err != nil {
		return err
	}
	if memo != nil {
		return f.emit(f.to, events.TransferWithMemo{From: from, To: to, Amount: amount.ToBig(), Memo: *memo})
	}
	return nil
}

func (f *frame) mint(t *tokenState, to common.Address, amount *uint256.Int, memo *[32]byte) error {
	if !t.hasRole(f.sender, roles.Serialize(roles.Issuer)) {
		return revert(tip20.ErrorUnauthorized)
	}
	if t.paused {
		return revert(tip20.ErrorContractPaused)
	}
	if !f.w.authorized(t.policyID, to) {
		return revert(tip20.ErrorPolicyForbids)
	}
	supply, overflow := new(uint256.Int).AddOverflow(t.totalSupply, amount)
	if overflow || supply.Gt(t.supplyCap) {
		return revert(tip20.ErrorSupplyCapExceeded)
	}
	t.totalSupply = supply
	t.balances[to] = new(uint256.Int).Add(t.balance(to), amount)
	if err := f.emit(f.to, events.Transfer{To: to, Amount: amount.ToBig()}); err != nil {
		return err
	}
	if memo != nil {
		if err := f.emit(f.to, events.TransferWithMemo{To: to, Amount: amount.ToBig(), Memo: *memo}); err != nil {
			return err
		}
	}
	return f.emit(f.to, events.Mint{To: to, Amount: amount.ToBig()})
}

func (f *frame) burn(t *tokenState, amount *uint256.Int, memo *[32]byte) error {
	if !t.hasRole(f.sender, roles.Serialize(roles.Issuer)) {
		return revert(tip20.ErrorUnauthorized)
	}
	if t.paused {
		return revert(tip20.ErrorContractPaused)
	}
	if err := f.debit(t, f.sender, amount); err != nil {
		return err
	}
	if err := f.emit(f.to, events.Transfer{From: f.sender, Amount: amount.ToBig()}); err != nil {
		return err
	}
	if memo != nil {
		if err := f.emit(f.to, events.TransferWithMemo{From: f.sender, Amount: amount.ToBig(), Memo: *memo}); err != nil {
			return err
		}
	}
	return f.emit(f.to, events.Burn{From: f.sender, Amount: amount.ToBig()})
}

func (f *frame) burnBlocked(t *tokenState, from common.Address, amount *uint256.Int) error {
	if !t.hasRole(f.sender, roles.Serialize(roles.BurnBlocked)) {
		return revert(tip20.ErrorUnauthorized)
	}
	if f.w.authorized(t.policyID, from) {
		return revert(tip20.ErrorPolicyForbids)
	}
	if err := f.debit(t, from, amount); err != nil {
		return err
	}
	if err := f.emit(f.to, events.Transfer{From: from, Amount: amount.ToBig()}); err != nil {
		return err
	}
	return f.emit(f.to, events.BurnBlocked{From: from, Amount: amount.ToBig()})
}

func (f *frame) debit(t *tokenState, from common.Address, amount *uint256.Int) error {
	have := t.balance(from)
	if have.Lt(amount) {
		return revert(tip20.ErrorInsufficientBalance, have.ToBig(), amount.ToBig(), f.to)
	}
	t.balances[from] = new(uint256.Int).Sub(have, amount)
	t.totalSupply = new(uint256.Int).Sub(t.totalSupply, amount)
	return nil
}

func (f *frame) setPaused(t *tokenState, paused bool) error {
	role := roles.Unpause
	if paused {
		role = roles.Pause
	}
	if !t.hasRole(f.sender, roles.Serialize(role)) {
		return revert(tip20.ErrorUnauthorized)
	}
	t.paused = paused
	return f.emit(f.to, events.PauseStateUpdate{Updater: f.sender, IsPaused: paused})
}
