package data

import "encoding/json"

// Deployment is the per-network deployment record. The callback gas limit is written either as a
// number or as a quoted number.
type Deployment struct {
	Network          string      `json:"network"`
	LotteryAddress   string      `json:"lotteryAddress"`
	VrfCoordinator   string      `json:"vrfCoordinator"`
	SubscriptionID   string      `json:"subscriptionId"`
	GasLane          string      `json:"gasLane"`
	CallbackGasLimit json.Number `json:"callbackGasLimit"`
	DeployedAt       string      `json:"deployedAt"`
	Deployer         string      `json:"deployer"`
}
