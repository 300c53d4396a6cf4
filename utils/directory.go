package utils

import (
	"context"

	"gorm.io/gorm"

	"campuscms/models"
)

// GormDirectory is the database-backed SubscriberDirectory.
type GormDirectory struct {
	DB *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{DB: db}
}

func (d *GormDirectory) Counts(ctx context.Context) (models.SubscriberCounts, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := d.DB.WithContext(ctx).
		Model(&models.Subscriber{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return models.SubscriberCounts{}, err
	}

	var counts models.SubscriberCounts
	for _, row := range rows {
		switch row.Status {
		case models.SubscriberActive:
			counts.Active = row.Count
		case models.SubscriberPending:
			counts.Pending = row.Count
		case models.SubscriberUnsubscribed:
			counts.Unsubscribed = row.Count
		}
		counts.Total += row.Count
	}
	return counts, nil
}

func (d *GormDirectory) FindByStatus(ctx context.Context, status string) ([]models.Subscriber, error) {
	var subs []models.Subscriber
	err := d.DB.WithContext(ctx).
		Where("status = ?", status).
		Order("id").
		Find(&subs).Error
	return subs, err
}

func (d *GormDirectory) FindByIDs(ctx context.Context, ids []uint) ([]models.Subscriber, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var subs []models.Subscriber
	err := d.DB.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id").
		Find(&subs).Error
	return subs, err
}

func (d *GormDirectory) Search(ctx context.Context, q, status string, page, limit int) ([]models.Subscriber, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := d.DB.WithContext(ctx).Model(&models.Subscriber{})
	if q != "" {
		pattern := "%" + q + "%"
		query = query.Where("email LIKE ? OR name LIKE ?", pattern, pattern)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subs []models.Subscriber
	err := query.Order("email").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&subs).Error
	return subs, total, err
}
