package types

// Event is the flattened, printable form of a decoded contract event.
type Event struct {
	Type        string            `json:"type"`
	Contract    string            `json:"contract,omitempty"`
	BlockNumber uint64            `json:"blockNumber,omitempty"`
	TxHash      string            `json:"txHash,omitempty"`
	LogIndex    uint              `json:"logIndex"`
	Attributes  map[string]string `json:"attributes"`
}
