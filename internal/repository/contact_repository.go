package repository

import (
	"errors"
	"strings"

	"github.com/comanda-next/internal/models"

	"gorm.io/gorm"
)

// ContactRepository 联系人与工单数据访问接口
type ContactRepository interface {
	GetByID(tenantID, id uint) (*models.Contact, error)
	FindByPhoneOrEmail(tenantID uint, phone, email string) (*models.Contact, error)
	Create(contact *models.Contact) error
	GetTicket(tenantID, id uint) (*models.Ticket, error)
	CreateTicket(ticket *models.Ticket) error
}

// GormContactRepository GORM 实现
type GormContactRepository struct {
	db *gorm.DB
}

// NewContactRepository 创建联系人仓库
func NewContactRepository(db *gorm.DB) *GormContactRepository {
	return &GormContactRepository{db: db}
}

// GetByID 获取租户内联系人
func (r *GormContactRepository) GetByID(tenantID, id uint) (*models.Contact, error) {
	var contact models.Contact
	if err := r.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&contact).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}

// FindByPhoneOrEmail 优先按电话匹配，其次邮箱
func (r *GormContactRepository) FindByPhoneOrEmail(tenantID uint, phone, email string) (*models.Contact, error) {
	phone = strings.TrimSpace(phone)
	email = strings.ToLower(strings.TrimSpace(email))
	if phone == "" && email == "" {
		return nil, nil
	}
	query := r.db.Where("tenant_id = ?", tenantID)
	switch {
	case phone != "":
		query = query.Where("phone = ?", phone)
	default:
		query = query.Where("email = ?", email)
	}
	var contact models.Contact
	if err := query.Order("id asc").First(&contact).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}

// Create 创建联系人
func (r *GormContactRepository) Create(contact *models.Contact) error {
	return r.db.Create(contact).Error
}

// GetTicket 获取租户内工单
func (r *GormContactRepository) GetTicket(tenantID, id uint) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&ticket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

// CreateTicket 创建工单
func (r *GormContactRepository) CreateTicket(ticket *models.Ticket) error {
	return r.db.Create(ticket).Error
}
