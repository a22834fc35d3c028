package denylist

// DefaultPatterns contains the built-in blocklist. Origin patterns
// cover the common wallet-phishing naming shapes; the address list is
// seeded with placeholder drainer addresses and is expected to be
// extended via denylist.yaml.
var DefaultPatterns = Patterns{
	Origins: []string{
		"*wallet-verify*",
		"*wallet-validation*",
		"*walletconnect-api*",
		"*metamask-restore*",
		"*metamask-secure*",
		"*seed-restore*",
		"*seedphrase*",
		"*claim-airdrop*",
		"*-airdrop-claim*",
		"*mint-rewards*",
	},
	Addresses: []string{
		"0x0000000000000000000000000000000000001337",
		"0x00000000000000000000000000000000dead1337",
	},
}
