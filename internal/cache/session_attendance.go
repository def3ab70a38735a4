package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"ticketing-core/internal/model"

	"github.com/redis/go-redis/v9"
)

// ErrNotWarmed 表示該場次的出席投影尚未建立，呼叫端應從資料庫重建
var ErrNotWarmed = errors.New("attendance projection not warmed")

const recentCheckinLimit = 10

// SessionAttendanceProjection is the read-side attendance view. The set of
// checked-in ticket codes makes apply/revert idempotent: delivering the same
// event twice moves the counter once. It derives, never authors, attendance
// truth; Rebuild converges it to the ticket store.
type SessionAttendanceProjection interface {
	// 預熱：快取場次的票券總數
	WarmUp(ctx context.Context, sessionID string, total int) error
	// 套用一筆入場（SADD，冪等），回傳是否為首次套用
	Apply(ctx context.Context, sessionID string, ticketCode string) (bool, error)
	// 撤銷一筆入場（SREM，冪等）
	Revert(ctx context.Context, sessionID string, ticketCode string) (bool, error)
	CheckedIn(ctx context.Context, sessionID string) (int, error)
	CachedTotal(ctx context.Context, sessionID string) (int, error)
	// 從票券儲存的權威狀態重建投影
	Rebuild(ctx context.Context, sessionID string, usedCodes []string, total int) error

	RecordRecent(ctx context.Context, sessionID string, entry model.RecentCheckin) error
	RecentCheckins(ctx context.Context, sessionID string) ([]model.RecentCheckin, error)
}

type SessionAttendanceProjectionImpl struct {
	client *redis.Client
}

func NewSessionAttendanceProjection(client *redis.Client) SessionAttendanceProjection {
	return &SessionAttendanceProjectionImpl{
		client: client,
	}
}

func (p *SessionAttendanceProjectionImpl) attendanceKey(sessionID string) string {
	return fmt.Sprintf("session:%s:attendance", sessionID)
}

func (p *SessionAttendanceProjectionImpl) statsKey(sessionID string) string {
	return fmt.Sprintf("session:%s:stats", sessionID)
}

func (p *SessionAttendanceProjectionImpl) recentKey(sessionID string) string {
	return fmt.Sprintf("session:%s:recent", sessionID)
}

func (p *SessionAttendanceProjectionImpl) WarmUp(ctx context.Context, sessionID string, total int) error {
	return p.client.HSet(ctx, p.statsKey(sessionID), "total", total).Err()
}

func (p *SessionAttendanceProjectionImpl) Apply(ctx context.Context, sessionID string, ticketCode string) (bool, error) {
	added, err := p.client.SAdd(ctx, p.attendanceKey(sessionID), ticketCode).Result()
	if err != nil {
		return false, err
	}
	return added == 1, nil
}

func (p *SessionAttendanceProjectionImpl) Revert(ctx context.Context, sessionID string, ticketCode string) (bool, error) {
	removed, err := p.client.SRem(ctx, p.attendanceKey(sessionID), ticketCode).Result()
	if err != nil {
		return false, err
	}
	return removed == 1, nil
}

func (p *SessionAttendanceProjectionImpl) CheckedIn(ctx context.Context, sessionID string) (int, error) {
	count, err := p.client.SCard(ctx, p.attendanceKey(sessionID)).Result()
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (p *SessionAttendanceProjectionImpl) CachedTotal(ctx context.Context, sessionID string) (int, error) {
	val, err := p.client.HGet(ctx, p.statsKey(sessionID), "total").Int()
	if err == redis.Nil {
		return 0, ErrNotWarmed
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

func (p *SessionAttendanceProjectionImpl) Rebuild(ctx context.Context, sessionID string, usedCodes []string, total int) error {
	key := p.attendanceKey(sessionID)

	pipe := p.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(usedCodes) > 0 {
		members := make([]interface{}, len(usedCodes))
		for i, code := range usedCodes {
			members[i] = code
		}
		pipe.SAdd(ctx, key, members...)
	}
	pipe.HSet(ctx, p.statsKey(sessionID), "total", total)

	_, err := pipe.Exec(ctx)
	return err
}

func (p *SessionAttendanceProjectionImpl) RecordRecent(ctx context.Context, sessionID string, entry model.RecentCheckin) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal recent checkin: %w", err)
	}

	key := p.recentKey(sessionID)
	pipe := p.client.TxPipeline()
	pipe.LPush(ctx, key, string(data))
	pipe.LTrim(ctx, key, 0, recentCheckinLimit-1)

	_, err = pipe.Exec(ctx)
	return err
}

func (p *SessionAttendanceProjectionImpl) RecentCheckins(ctx context.Context, sessionID string) ([]model.RecentCheckin, error) {
	values, err := p.client.LRange(ctx, p.recentKey(sessionID), 0, recentCheckinLimit-1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]model.RecentCheckin, 0, len(values))
	for _, v := range values {
		var entry model.RecentCheckin
		if err := json.Unmarshal([]byte(v), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal recent checkin: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
