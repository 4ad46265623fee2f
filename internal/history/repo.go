package history

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type Repo struct {
	DB *gorm.DB
}

// Replace swaps every summary of userID for rows in a single transaction.
func (r *Repo) Replace(ctx context.Context, userID uint64, rows []DailySummary) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&DailySummary{}).Error; err != nil {
			return fmt.Errorf("history: clear summaries: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, 200).Error; err != nil {
			return fmt.Errorf("history: insert summaries: %w", err)
		}
		return nil
	})
}

// Range returns the summaries between from and to inclusive, oldest first.
func (r *Repo) Range(ctx context.Context, userID uint64, from, to string) ([]DailySummary, error) {
	var out []DailySummary
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Order("date asc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("history: range: %w", err)
	}
	return out, nil
}

// TagCounts counts days per tag, most used first. prefix filters tag names.
func (r *Repo) TagCounts(ctx context.Context, userID uint64, prefix string, limit int) ([]TagCount, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	prefix = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(prefix), "#"))

	var out []TagCount
	err := r.DB.WithContext(ctx).Raw(`
select t.name, count(*) as count
from daily_summaries s, unnest(s.tags) as t(name)
where s.user_id = ? and t.name like ?
group by t.name
order by count desc, t.name asc
limit ?`, userID, prefix+"%", limit).Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("history: tag counts: %w", err)
	}
	return out, nil
}
