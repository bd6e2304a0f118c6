package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/comanda-next/internal/constants"
	"github.com/comanda-next/internal/logger"
	"github.com/comanda-next/internal/models"
	"github.com/comanda-next/internal/realtime"
	"github.com/comanda-next/internal/repository"

	"gorm.io/gorm"
)

const releaseMaxAttempts = 3

// TableService 桌台状态机：建台、占台、释放、删除
type TableService struct {
	tableRepo   repository.TableRepository
	contactRepo repository.ContactRepository
	publisher   realtime.Publisher
}

// NewTableService 创建桌台服务
func NewTableService(tableRepo repository.TableRepository, contactRepo repository.ContactRepository, publisher realtime.Publisher) *TableService {
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &TableService{
		tableRepo:   tableRepo,
		contactRepo: contactRepo,
		publisher:   publisher,
	}
}

// CreateTableInput 单个建台参数
type CreateTableInput struct {
	Kind       string
	Label      string
	Capacity   *int
	Section    string
	MenuFormID *uint
}

// CreateTablesBulkInput 批量建台参数
type CreateTablesBulkInput struct {
	Count      int
	Prefix     string
	Suffix     string
	StartIndex int
	Kind       string
	Capacity   *int
	Section    string
	MenuFormID *uint
}

// UpdateTableInput 桌台属性修改（不含状态）
type UpdateTableInput struct {
	Label      *string
	Capacity   *int
	Section    *string
	MenuFormID *uint
}

func normalizeTableKind(kind string) (string, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	switch kind {
	case "":
		return constants.TableKindTable, nil
	case constants.TableKindTable, constants.TableKindTab:
		return kind, nil
	default:
		return "", validationError("unknown table kind")
	}
}

func validateCapacity(capacity *int) error {
	if capacity != nil && *capacity < 0 {
		return validationError("capacity must not be negative")
	}
	return nil
}

// Get 获取桌台
func (s *TableService) Get(tenantID, tableID uint) (*models.Table, error) {
	table, err := s.tableRepo.GetByID(tenantID, tableID)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, opError(ErrNotFound, constants.ResourceTable, tableID, "")
	}
	return table, nil
}

// List 桌台列表
func (s *TableService) List(filter repository.TableListFilter) ([]models.Table, error) {
	return s.tableRepo.List(filter)
}

// Create 创建单个桌台
func (s *TableService) Create(ctx context.Context, tenantID uint, input CreateTableInput) (*models.Table, error) {
	label := strings.TrimSpace(input.Label)
	if label == "" {
		return nil, validationError("label required")
	}
	tables, err := s.createTables(ctx, tenantID, input.Kind, []string{label}, input.Capacity, input.Section, input.MenuFormID)
	if err != nil {
		return nil, err
	}
	return &tables[0], nil
}

// CreateBulk 批量建台，全部成功或全部失败
func (s *TableService) CreateBulk(ctx context.Context, tenantID uint, input CreateTablesBulkInput) ([]models.Table, error) {
	if input.Count < constants.TableBulkMinCount || input.Count > constants.TableBulkMaxCount {
		return nil, validationError(fmt.Sprintf("count must be between %d and %d", constants.TableBulkMinCount, constants.TableBulkMaxCount))
	}
	labels := make([]string, 0, input.Count)
	for i := 0; i < input.Count; i++ {
		labels = append(labels, fmt.Sprintf("%s%d%s", input.Prefix, input.StartIndex+i, input.Suffix))
	}
	return s.createTables(ctx, tenantID, input.Kind, labels, input.Capacity, input.Section, input.MenuFormID)
}

func (s *TableService) createTables(ctx context.Context, tenantID uint, kind string, labels []string, capacity *int, section string, menuFormID *uint) ([]models.Table, error) {
	if tenantID == 0 {
		return nil, validationError("tenant required")
	}
	normalizedKind, err := normalizeTableKind(kind)
	if err != nil {
		return nil, err
	}
	if err := validateCapacity(capacity); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		if _, ok := seen[label]; ok {
			return nil, opError(ErrConflict, "table label "+label, 0, "duplicate in request")
		}
		seen[label] = struct{}{}
	}

	tables := make([]models.Table, 0, len(labels))
	for _, label := range labels {
		tables = append(tables, models.Table{
			TenantID:   tenantID,
			Kind:       normalizedKind,
			Label:      label,
			Capacity:   capacity,
			Section:    strings.TrimSpace(section),
			Status:     constants.TableStatusFree,
			MenuFormID: menuFormID,
			Version:    1,
		})
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.tableRepo.WithTx(tx)
		existing, err := repo.ExistingLabels(tenantID, labels)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return opError(ErrConflict, "table label "+existing[0], 0, "label already in use")
		}
		return repo.CreateBatch(tables)
	})
	if repository.IsDuplicateKey(err) {
		return nil, opError(ErrConflict, "table label", 0, "label already in use")
	}
	if err != nil {
		return nil, err
	}

	for i := range tables {
		publishTableEvent(ctx, s.publisher, &tables[i], constants.EventActionCreated)
	}
	return tables, nil
}

// Update 修改桌台属性
func (s *TableService) Update(ctx context.Context, tenantID, tableID uint, input UpdateTableInput) (*models.Table, error) {
	table, err := s.Get(tenantID, tableID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if input.Label != nil {
		label := strings.TrimSpace(*input.Label)
		if label == "" {
			return nil, validationError("label required")
		}
		if label != table.Label {
			existing, err := s.tableRepo.ExistingLabels(tenantID, []string{label})
			if err != nil {
				return nil, err
			}
			if len(existing) > 0 {
				return nil, opError(ErrConflict, "table label "+label, 0, "label already in use")
			}
			updates["label"] = label
		}
	}
	if input.Capacity != nil {
		if err := validateCapacity(input.Capacity); err != nil {
			return nil, err
		}
		updates["capacity"] = *input.Capacity
	}
	if input.Section != nil {
		updates["section"] = strings.TrimSpace(*input.Section)
	}
	if input.MenuFormID != nil {
		updates["menu_form_id"] = *input.MenuFormID
	}
	if len(updates) == 0 {
		return table, nil
	}
	if err := s.tableRepo.UpdateAttributes(tenantID, tableID, updates); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, opError(ErrConflict, "table label", tableID, "label already in use")
		}
		return nil, err
	}
	updated, err := s.Get(tenantID, tableID)
	if err != nil {
		return nil, err
	}
	publishTableEvent(ctx, s.publisher, updated, constants.EventActionUpdated)
	return updated, nil
}

// Occupy 占用空闲桌台；桌台非空闲时返回当前桌台与 ErrConflict
func (s *TableService) Occupy(ctx context.Context, tenantID, tableID, contactID uint, ticketID *uint) (*models.Table, error) {
	return s.occupyAt(ctx, tenantID, tableID, contactID, ticketID, time.Now())
}

// occupyAt 占台时间由调用方给定，下单占台时与订单提交时间一致
func (s *TableService) occupyAt(ctx context.Context, tenantID, tableID, contactID uint, ticketID *uint, at time.Time) (*models.Table, error) {
	if contactID == 0 {
		return nil, validationError("contact required")
	}
	if s.contactRepo != nil {
		contact, err := s.contactRepo.GetByID(tenantID, contactID)
		if err != nil {
			return nil, err
		}
		if contact == nil {
			return nil, opError(ErrNotFound, "contact", contactID, "")
		}
	}
	if ticketID != nil && s.contactRepo != nil {
		ticket, err := s.contactRepo.GetTicket(tenantID, *ticketID)
		if err != nil {
			return nil, err
		}
		if ticket == nil {
			return nil, opError(ErrNotFound, "ticket", *ticketID, "")
		}
	}

	updated, err := s.tableRepo.MarkOccupied(tenantID, tableID, contactID, ticketID, at)
	if err != nil {
		return nil, err
	}
	table, err := s.tableRepo.GetByID(tenantID, tableID)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, opError(ErrNotFound, constants.ResourceTable, tableID, "")
	}
	if !updated {
		logger.Debugw("table_occupy_conflict", "tenant_id", tenantID, "table_id", tableID, "contact_id", contactID)
		return table, opError(ErrConflict, constants.ResourceTable, tableID, "table is not free")
	}
	publishTableEvent(ctx, s.publisher, table, constants.EventActionOccupied)
	return table, nil
}

// Release 释放桌台；已空闲时直接返回，不产生事件
func (s *TableService) Release(ctx context.Context, tenantID, tableID uint, actor string) (*models.Table, error) {
	for attempt := 0; attempt < releaseMaxAttempts; attempt++ {
		table, err := s.Get(tenantID, tableID)
		if err != nil {
			return nil, err
		}
		if table.Status == constants.TableStatusFree {
			return table, nil
		}

		released := false
		err = models.DB.Transaction(func(tx *gorm.DB) error {
			repo := s.tableRepo.WithTx(tx)
			ok, err := repo.MarkFree(tenantID, tableID, table.Version)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			released = true
			return repo.CreateSession(&models.TableSession{
				TenantID:   tenantID,
				TableID:    tableID,
				ContactID:  table.OccupantContactID,
				TicketID:   table.ActiveTicketID,
				OccupiedAt: table.OccupiedAt,
				ReleasedAt: time.Now(),
				ReleasedBy: actor,
			})
		})
		if err != nil {
			return nil, err
		}
		if !released {
			continue
		}
		current, err := s.Get(tenantID, tableID)
		if err != nil {
			return nil, err
		}
		publishTableEvent(ctx, s.publisher, current, constants.EventActionReleased)
		return current, nil
	}
	return nil, opError(ErrConflict, constants.ResourceTable, tableID, "concurrent modification")
}

// Delete 软删除空闲桌台
func (s *TableService) Delete(ctx context.Context, tenantID, tableID uint) error {
	table, err := s.Get(tenantID, tableID)
	if err != nil {
		return err
	}
	deleted, err := s.tableRepo.DeleteIfFree(tenantID, tableID)
	if err != nil {
		return err
	}
	if !deleted {
		return opError(ErrConflict, constants.ResourceTable, tableID, "table is occupied")
	}
	table.Version++
	publishTableEvent(ctx, s.publisher, table, constants.EventActionDeleted)
	return nil
}

// IsConflict 判断是否为冲突错误
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
