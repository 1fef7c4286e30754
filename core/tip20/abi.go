// Package tip20 holds the contract interfaces of the token standard and its
// factory, parsed once with go-ethereum's ABI codec.
package tip20

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Event names.
const (
	EventTransfer             = "Transfer"
	EventTransferWithMemo     = "TransferWithMemo"
	EventApproval             = "Approval"
	EventMint                 = "Mint"
	EventBurn                 = "Burn"
	EventBurnBlocked          = "BurnBlocked"
	EventPauseStateUpdate     = "PauseStateUpdate"
	EventSupplyCapUpdate      = "SupplyCapUpdate"
	EventTransferPolicyUpdate = "TransferPolicyUpdate"
	EventNextQuoteTokenSet    = "NextQuoteTokenSet"
	EventQuoteTokenUpdate     = "QuoteTokenUpdate"
	EventRoleMembership       = "RoleMembershipUpdated"
	EventRoleAdminUpdated     = "RoleAdminUpdated"
	EventTokenCreated         = "TokenCreated"
)

// Custom error names.
const (
	ErrorUnauthorized          = "Unauthorized"
	ErrorInsufficientAllowance = "InsufficientAllowance"
	ErrorInsufficientBalance   = "InsufficientBalance"
	ErrorContractPaused        = "ContractPaused"
	ErrorNoPendingQuoteToken   = "NoPendingQuoteToken"
	ErrorInvalidQuoteToken     = "InvalidQuoteToken"
	ErrorSupplyCapExceeded     = "SupplyCapExceeded"
	ErrorPolicyForbids         = "PolicyForbids"
)

const tokenJSON = `[
{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"currency","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"supplyCap","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"paused","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"quoteToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"nextQuoteToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"transferPolicyId","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint64"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"hasRole","stateMutability":"view","inputs":[{"name":"account","type":"address"},{"name":"role","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"getRoleAdmin","stateMutability":"view","inputs":[{"name":"role","type":"bytes32"}],"outputs":[{"name":"","type":"bytes32"}]},
{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"transferWithMemo","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"},{"name":"memo","type":"bytes32"}],"outputs":[]},
{"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"transferFromWithMemo","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"},{"name":"memo","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
{"type":"function","name":"mintWithMemo","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"},{"name":"memo","type":"bytes32"}],"outputs":[]},
{"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
{"type":"function","name":"burnWithMemo","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"},{"name":"memo","type":"bytes32"}],"outputs":[]},
{"type":"function","name":"burnBlocked","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
{"type":"function","name":"pause","stateMutability":"nonpayable","inputs":[],"outputs":[]},
{"type":"function","name":"unpause","stateMutability":"nonpayable","inputs":[],"outputs":[]},
{"type":"function","name":"grantRole","stateMutability":"nonpayable","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[]},
{"type":"function","name":"revokeRole","stateMutability":"nonpayable","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[]},
{"type":"function","name":"renounceRole","stateMutability":"nonpayable","inputs":[{"name":"role","type":"bytes32"}],"outputs":[]},
{"type":"function","name":"setRoleAdmin","stateMutability":"nonpayable","inputs":[{"name":"role","type":"bytes32"},{"name":"adminRole","type":"bytes32"}],"outputs":[]},
{"type":"function","name":"setSupplyCap","stateMutability":"nonpayable","inputs":[{"name":"newSupplyCap","type":"uint256"}],"outputs":[]},
{"type":"function","name":"changeTransferPolicyId","stateMutability":"nonpayable","inputs":[{"name":"newPolicyId","type":"uint64"}],"outputs":[]},
{"type":"function","name":"setNextQuoteToken","stateMutability":"nonpayable","inputs":[{"name":"newQuoteToken","type":"address"}],"outputs":[]},
{"type":"function","name":"completeQuoteTokenUpdate","stateMutability":"nonpayable","inputs":[],"outputs":[]},
{"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
{"type":"event","name":"TransferWithMemo","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false},{"name":"memo","type":"bytes32","indexed":true}]},
{"type":"event","name":"Approval","anonymous":false,"inputs":[{"name":"owner","type":"address","indexed":true},{"name":"spender","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
{"type":"event","name":"Mint","anonymous":false,"inputs":[{"name":"to","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
{"type":"event","name":"Burn","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
{"type":"event","name":"BurnBlocked","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
{"type":"event","name":"PauseStateUpdate","anonymous":false,"inputs":[{"name":"updater","type":"address","indexed":true},{"name":"isPaused","type":"bool","indexed":false}]},
{"type":"event","name":"SupplyCapUpdate","anonymous":false,"inputs":[{"name":"updater","type":"address","indexed":true},{"name":"newSupplyCap","type":"uint256","indexed":true}]},
{"type":"event","name":"TransferPolicyUpdate","anonymous":false,"inputs":[{"name":"updater","type":"address","indexed":true},{"name":"newPolicyId","type":"uint64","indexed":true}]},
{"type":"event","name":"NextQuoteTokenSet","anonymous":false,"inputs":[{"name":"updater","type":"address","indexed":true},{"name":"nextQuoteToken","type":"address","indexed":true}]},
{"type":"event","name":"QuoteTokenUpdate","anonymous":false,"inputs":[{"name":"updater","type":"address","indexed":true},{"name":"newQuoteToken","type":"address","indexed":true}]},
{"type":"event","name":"RoleMembershipUpdated","anonymous":false,"inputs":[{"name":"role","type":"bytes32","indexed":true},{"name":"account","type":"address","indexed":true},{"name":"sender","type":"address","indexed":true},{"name":"hasRole","type":"bool","indexed":false}]},
{"type":"event","name":"RoleAdminUpdated","anonymous":false,"inputs":[{"name":"role","type":"bytes32","indexed":true},{"name":"newAdminRole","type":"bytes32","indexed":true},{"name":"sender","type":"address","indexed":true}]},
{"type":"error","name":"Unauthorized","inputs":[]},
{"type":"error","name":"InsufficientAllowance","inputs":[]},
{"type":"error","name":"InsufficientBalance","inputs":[{"name":"available","type":"uint256"},{"name":"required","type":"uint256"},{"name":"token","type":"address"}]},
{"type":"error","name":"ContractPaused","inputs":[]},
{"type":"error","name":"NoPendingQuoteToken","inputs":[]},
{"type":"error","name":"InvalidQuoteToken","inputs":[]},
{"type":"error","name":"SupplyCapExceeded","inputs":[]},
{"type":"error","name":"PolicyForbids","inputs":[]}
]`

const factoryJSON = `[
{"type":"function","name":"createToken","stateMutability":"nonpayable","inputs":[{"name":"name","type":"string"},{"name":"symbol","type":"string"},{"name":"currency","type":"string"},{"name":"quoteToken","type":"address"},{"name":"admin","type":"address"},{"name":"salt","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"isTIP20","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"tokenIdCounter","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"event","name":"TokenCreated","anonymous":false,"inputs":[{"name":"token","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true},{"name":"name","type":"string","indexed":false},{"name":"symbol","type":"string","indexed":false},{"name":"currency","type":"string","indexed":false},{"name":"quoteToken","type":"address","indexed":false},{"name":"admin","type":"address","indexed":false}]},
{"type":"error","name":"InvalidQuoteToken","inputs":[]}
]`

var (
	// Token is the token contract interface.
	Token = mustParse(tokenJSON)
	// Factory is the token factory interface.
	Factory = mustParse(factoryJSON)
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("tip20: invalid abi: " + err.Error())
	}
	return parsed
}
