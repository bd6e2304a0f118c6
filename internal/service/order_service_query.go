package service

import (
	"context"
	"strings"

	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/models"
	"github.com/comanda-next/internal/repository"
)

// QueueEntry 待处理队列条目，Position 仅供展示
type QueueEntry struct {
	Position int           `json:"position"`
	Order    *models.Order `json:"order"`
}

// Get 获取租户内订单
func (s *OrderService) Get(tenantID, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, opError(ErrNotFound, constants.ResourceOrder, orderID, "")
	}
	return order, nil
}

// GetByToken 公开追踪：凭配送令牌查看订单
func (s *OrderService) GetByToken(ctx context.Context, tenantID uint, raw string) (*models.Order, error) {
	orderID, err := s.tokenService.ResolveAndAuthorize(ctx, tenantID, raw, constants.TokenKindDelivery)
	if err != nil {
		return nil, err
	}
	return s.Get(tenantID, orderID)
}

// ListStatusLogs 订单状态流转记录
func (s *OrderService) ListStatusLogs(tenantID, orderID uint) ([]models.OrderStatusLog, error) {
	if _, err := s.Get(tenantID, orderID); err != nil {
		return nil, err
	}
	return s.orderRepo.ListStatusLogs(tenantID, orderID)
}

// ListPending 待处理队列，按提交先后排序
func (s *OrderService) ListPending(tenantID uint) ([]QueueEntry, error) {
	orders, err := s.orderRepo.ListPending(tenantID)
	if err != nil {
		return nil, err
	}
	entries := make([]QueueEntry, 0, len(orders))
	for i := range orders {
		entries = append(entries, QueueEntry{Position: i + 1, Order: &orders[i]})
	}
	return entries, nil
}

// ListHistory 订单历史，最新在前
func (s *OrderService) ListHistory(filter repository.OrderHistoryFilter) ([]models.Order, int64, error) {
	if filter.Status != "" {
		filter.Status = normalizeOrderStatus(filter.Status)
		if !IsKnownOrderStatus(filter.Status) {
			return nil, 0, validationError("unknown status " + filter.Status)
		}
	}
	return s.orderRepo.ListHistory(filter)
}

// GetActiveMenu 公开读取菜单表单
func (s *OrderService) GetActiveMenu(tenantID uint, slug string) (*models.MenuForm, error) {
	form, err := s.menuFormRepo.GetActiveBySlug(tenantID, slug)
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, opError(ErrNotFound, "menu "+strings.TrimSpace(slug), 0, "")
	}
	return form, nil
}

// TableMenu 扫码后的菜单入口
type TableMenu struct {
	TableID    uint   `json:"table_id"`
	TableLabel string `json:"table_label"`
	MenuSlug   string `json:"menu_slug"`
}

// ResolveTableMenu 返回桌台绑定的菜单
//
// 带令牌时令牌必须属于该桌台；不带令牌仅在未开启 require_table_token 时允许。
func (s *OrderService) ResolveTableMenu(ctx context.Context, tenantID, tableID uint, raw string) (*TableMenu, error) {
	if strings.TrimSpace(raw) != "" || s.opts.RequireTableToken {
		resourceID, err := s.tokenService.ResolveAndAuthorize(ctx, tenantID, raw, constants.TokenKindTable)
		if err != nil {
			return nil, err
		}
		if resourceID != tableID {
			return nil, opError(ErrNotFound, "token", 0, "")
		}
	}
	table, err := s.tableService.Get(tenantID, tableID)
	if err != nil {
		return nil, err
	}
	result := &TableMenu{TableID: table.ID, TableLabel: table.Label}
	if table.MenuFormID == nil {
		return result, nil
	}
	form, err := s.menuFormRepo.GetByID(tenantID, *table.MenuFormID)
	if err != nil {
		return nil, err
	}
	if form != nil && form.IsActive {
		result.MenuSlug = form.Slug
	}
	return result, nil
}
