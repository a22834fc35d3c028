package model

// Classification is the outcome of the method classification table.
// Methods with RequiresApproval == false are answered from cached
// provider state without queueing.
type Classification struct {
	Kind             ApprovalKind
	RequiresApproval bool
}

var evmMethods = map[string]Classification{
	"eth_requestAccounts":        {ApprovalConnect, true},
	"wallet_requestPermissions":  {ApprovalConnect, true},
	"personal_sign":              {ApprovalSignMessage, true},
	"eth_sign":                   {ApprovalSignMessage, true},
	"eth_signTypedData":          {ApprovalSign, true},
	"eth_signTypedData_v3":       {ApprovalSign, true},
	"eth_signTypedData_v4":       {ApprovalSign, true},
	"eth_sendTransaction":        {ApprovalTransaction, true},
	"eth_signTransaction":        {ApprovalTransaction, true},
	"wallet_switchEthereumChain": {ApprovalSwitchChain, true},
	"wallet_addEthereumChain":    {ApprovalAddChain, true},

	// Read-only provider state, no approval.
	"eth_accounts": {"", false},
	"eth_chainId":  {"", false},
	"net_version":  {"", false},
}

var ledgerMethods = map[string]Classification{
	"ledger_connect":             {ApprovalConnect, true},
	"ledger_signMessage":         {ApprovalSignMessage, true},
	"ledger_signTransaction":     {ApprovalTransaction, true},
	"ledger_signAllTransactions": {ApprovalTransaction, true},
	"ledger_switchChain":         {ApprovalSwitchChain, true},

	"ledger_accounts": {"", false},
	"ledger_chainId":  {"", false},
}

// ClassifyMethod resolves a (method, chainKind) pair against the
// classification table. The second return is false for unknown methods,
// which callers surface as method-not-found rather than defaulting.
func ClassifyMethod(method string, kind ChainKind) (Classification, bool) {
	switch kind {
	case ChainEVM:
		c, ok := evmMethods[method]
		return c, ok
	case ChainLedger:
		c, ok := ledgerMethods[method]
		return c, ok
	}
	return Classification{}, false
}
