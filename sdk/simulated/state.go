package simulated

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"tip20kit/core/roles"
)

// Transfer policies. Ids above PolicyAllowAll are blocklists configured with
// Chain.SetPolicy.
const (
	PolicyRejectAll uint64 = 0
	PolicyAllowAll  uint64 = 1
)

const decimals = 6

type tokenState struct {
	id       uint64
	name     string
	symbol   string
	currency string

	totalSupply *uint256.Int
	supplyCap   *uint256.Int
	paused      bool

	quoteToken     common.Address
	nextQuoteToken common.Address
	policyID       uint64

	balances   map[common.Address]*uint256.Int
	allowances map[common.Address]map[common.Address]*uint256.Int
	members    map[common.Hash]map[common.Address]bool
	admins     map[common.Hash]common.Hash
}

func newTokenState(id uint64, name, symbol, currency string, quote, admin common.Address) *tokenState {
	t := &tokenState{
		id:          id,
		name:        name,
		symbol:      symbol,
		currency:    currency,
		totalSupply: new(uint256.Int),
		supplyCap:   new(uint256.Int).SetAllOne(),
		quoteToken:  quote,
		policyID:    PolicyAllowAll,
		balances:    make(map[common.Address]*uint256.Int),
		allowances:  make(map[common.Address]map[common.Address]*uint256.Int),
		members:     make(map[common.Hash]map[common.Address]bool),
		admins:      make(map[common.Hash]common.Hash),
	}
	if admin != (common.Address{}) {
		t.setMember(roles.Serialize(roles.DefaultAdmin), admin, true)
	}
	return t
}

func (t *tokenState) clone() *tokenState {
	cp := *t
	cp.totalSupply = new(uint256.Int).Set(t.totalSupply)
	cp.supplyCap = new(uint256.Int).Set(t.supplyCap)
	cp.balances = make(map[common.Address]*uint256.Int, len(t.balances))
	for k, v := range t.balances {
		cp.balances[k] = new(uint256.Int).Set(v)
	}
	cp.allowances = make(map[common.Address]map[common.Address]*uint256.Int, len(t.allowances))
	for owner, spenders := range t.allowances {
		inner := make(map[common.Address]*uint256.Int, len(spenders))
		for k, v := range spenders {
			inner[k] = new(uint256.Int).Set(v)
		}
		cp.allowances[owner] = inner
	}
	cp.members = make(map[common.Hash]map[common.Address]bool, len(t.members))
	for role, accounts := range t.members {
		inner := make(map[common.Address]bool, len(accounts))
		for k, v := range accounts {
			inner[k] = v
		}
		cp.members[role] = inner
	}
	cp.admins = make(map[common.Hash]common.Hash, len(t.admins))
	for k, v := range t.admins {
		cp.admins[k] = v
	}
	return &cp
}

func (t *tokenState) hasRole(account common.Address, role common.Hash) bool {
	return t.members[role][account]
}

func (t *tokenState) setMember(role common.Hash, account common.Address, member bool) {
	accounts, ok := t.members[role]
	if !ok {
		accounts = make(map[common.Address]bool)
		t.members[role] = accounts
	}
	if member {
		accounts[account] = true
	} else {
		delete(accounts, account)
	}
}

// roleAdmin defaults to the default admin role, whose id is zero.
func (t *tokenState) roleAdmin(role common.Hash) common.Hash {
	return t.admins[role]
}

func (t *tokenState) balance(account common.Address) *uint256.Int {
	if v, ok := t.balances[account]; ok {
		return v
	}
	return new(uint256.Int)
}

func (t *tokenState) allowance(owner, spender common.Address) *uint256.Int {
	if v, ok := t.allowances[owner][spender]; ok {
		return v
	}
	return new(uint256.Int)
}

func (t *tokenState) setAllowance(owner, spender common.Address, amount *uint256.Int) {
	spenders, ok := t.allowances[owner]
	if !ok {
		spenders = make(map[common.Address]*uint256.Int)
		t.allowances[owner] = spenders
	}
	spenders[spender] = amount
}

// world is the full simulated state. Transactions run against a clone and
// commit by replacing the chain's world.
type world struct {
	tokens   map[common.Address]*tokenState
	nextID   uint64
	policies map[uint64]map[common.Address]bool
}

func (w *world) clone() *world {
	cp := &world{
		tokens:   make(map[common.Address]*tokenState, len(w.tokens)),
		nextID:   w.nextID,
		policies: w.policies,
	}
	for k, v := range w.tokens {
		cp.tokens[k] = v.clone()
	}
	return cp
}

func (w *world) authorized(policyID uint64, account common.Address) bool {
	switch policyID {
	case PolicyRejectAll:
		return false
	case PolicyAllowAll:
		return true
	default:
		return !w.policies[policyID][account]
	}
}
