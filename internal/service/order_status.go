package service

import (
	"strings"

	"github.com/comanda-next/internal/constants"
)

// orderStages 订单流水线顺序（cancelled 不在其中）
var orderStages = []string{
	constants.OrderStatusNew,
	constants.OrderStatusConfirmed,
	constants.OrderStatusPreparing,
	constants.OrderStatusReady,
	constants.OrderStatusOutForDelivery,
	constants.OrderStatusDelivered,
}

func stageIndex(status string) int {
	for i, stage := range orderStages {
		if stage == status {
			return i
		}
	}
	return -1
}

// IsKnownOrderStatus 是否为合法订单状态
func IsKnownOrderStatus(status string) bool {
	return stageIndex(status) >= 0 || status == constants.OrderStatusCancelled
}

// IsTerminalOrderStatus 终态：已送达或已取消
func IsTerminalOrderStatus(status string) bool {
	return status == constants.OrderStatusDelivered || status == constants.OrderStatusCancelled
}

// CanAdvance 状态只能前进；取消可从任意非终态发起
func CanAdvance(current, target string) bool {
	if IsTerminalOrderStatus(current) {
		return false
	}
	if target == constants.OrderStatusCancelled {
		return stageIndex(current) >= 0
	}
	from := stageIndex(current)
	to := stageIndex(target)
	if from < 0 || to < 0 {
		return false
	}
	return to > from
}

func normalizeOrderStatus(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
