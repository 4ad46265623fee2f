// Package nutrition holds the server-side copy of each user's ledger.
package nutrition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nutrilog/internal/food"
	"nutrilog/internal/ledger"
)

var ErrNotFound = errors.New("nutrition document not found")

// Document is everything a client pushes and pulls in one round trip.
type Document struct {
	Goals         ledger.Goals               `json:"goals" firestore:"goals"`
	DailyLogs     map[string]ledger.DailyLog `json:"dailyLogs" firestore:"dailyLogs" validate:"dive,keys,datetime=2006-01-02,endkeys"`
	FavoriteFoods []food.Item                `json:"favoriteFoods" firestore:"favoriteFoods"`
	UpdatedAt     time.Time                  `json:"updatedAt" firestore:"updatedAt"`
}

func DefaultDocument() Document {
	return Document{
		Goals:         ledger.DefaultGoals(),
		DailyLogs:     map[string]ledger.DailyLog{},
		FavoriteFoods: []food.Item{},
	}
}

// normalize fills defaults a client may leave out.
func (d *Document) normalize() {
	if d.DailyLogs == nil {
		d.DailyLogs = map[string]ledger.DailyLog{}
	}
	if d.FavoriteFoods == nil {
		d.FavoriteFoods = []food.Item{}
	}
	for k, l := range d.DailyLogs {
		if l.Date == "" {
			l.Date = k
			d.DailyLogs[k] = l
		}
	}
}

// Store persists one Document per user.
type Store interface {
	Load(ctx context.Context, userID uint64) (Document, error)
	Save(ctx context.Context, userID uint64, doc Document) error
}

// CooldownError rejects a push made too soon after the previous one.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("sync cooldown: retry in %s", e.Remaining.Round(time.Second))
}

// RetryAfterSeconds rounds the wait up to whole seconds.
func (e *CooldownError) RetryAfterSeconds() int {
	d := e.Remaining.Round(time.Millisecond)
	s := int(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	return s
}
