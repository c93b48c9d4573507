package entity

import "time"

// DrawResult итог одной или десяти прокруток.
type DrawResult struct {
	DrawID         string        `json:"draw_id"`
	MachineID      string        `json:"machine_id"`
	Rewards        []RewardEntry `json:"rewards"`
	TriggeredRules []string      `json:"triggered_rules,omitempty"`
	Cost           int64         `json:"cost"`
	DeliverAt      time.Time     `json:"deliver_at"`
}
