package evm

import "math/big"

// factoryABI is the subset of the CampaignFactory ABI the services call.
const factoryABI = `[
	{"inputs":[],"name":"getDeployedCampaigns","outputs":[{"internalType":"address[]","name":"","type":"address[]"}],"stateMutability":"view","type":"function"}
]`

// campaignABI is the subset of the Campaign ABI the services call.
const campaignABI = `[
	{"inputs":[],"name":"getCampaignDetails","outputs":[
		{"internalType":"string","name":"","type":"string"},
		{"internalType":"string","name":"","type":"string"},
		{"internalType":"string","name":"","type":"string"},
		{"internalType":"uint256","name":"","type":"uint256"},
		{"internalType":"uint256","name":"","type":"uint256"},
		{"internalType":"uint256","name":"","type":"uint256"},
		{"internalType":"address","name":"","type":"address"}
	],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"getMilestones","outputs":[{"components":[
		{"internalType":"string","name":"description","type":"string"},
		{"internalType":"uint256","name":"amount","type":"uint256"},
		{"internalType":"string","name":"verificationUrl","type":"string"},
		{"internalType":"bool","name":"verified","type":"bool"},
		{"internalType":"bool","name":"fundsReleased","type":"bool"}
	],"internalType":"struct Campaign.Milestone[]","name":"","type":"tuple[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"","type":"address"}],"name":"contributions","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"contributorCount","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"_milestoneId","type":"uint256"}],"name":"approveMilestone","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// milestoneTuple matches the Campaign.Milestone struct field by field so the
// ABI decoder can fill it.
type milestoneTuple struct {
	Description     string
	Amount          *big.Int
	VerificationUrl string
	Verified        bool
	FundsReleased   bool
}
