package authz

import (
	"context"
	"fmt"
	"time"

	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/logger"
)

type KV interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type cachedStaff struct {
	next repository.StaffRepository
	kv   KV
	ttl  time.Duration
	l    logger.Logger
}

// NewCachedStaffRepository caches positive assignment lookups for ttl.
// Cache errors fall through to the underlying repository.
func NewCachedStaffRepository(next repository.StaffRepository, kv KV, ttl time.Duration, l logger.Logger) repository.StaffRepository {
	return &cachedStaff{next: next, kv: kv, ttl: ttl, l: l}
}

func (c *cachedStaff) IsAssigned(ctx context.Context, eventID, userID string) (bool, error) {
	key := staffKey(eventID, userID)

	if v, found, err := c.kv.GetString(ctx, key); err != nil {
		c.l.Warnf(ctx, "authz.cachedStaff.IsAssigned: cache get %s: %v", key, err)
	} else if found {
		return v == "1", nil
	}

	assigned, err := c.next.IsAssigned(ctx, eventID, userID)
	if err != nil {
		return false, err
	}

	// Only assignments are cached: a newly assigned staff member must be
	// able to scan straight away.
	if assigned {
		if err := c.kv.Set(ctx, key, "1", c.ttl); err != nil {
			c.l.Warnf(ctx, "authz.cachedStaff.IsAssigned: cache set %s: %v", key, err)
		}
	}
	return assigned, nil
}

func staffKey(eventID, userID string) string {
	return fmt.Sprintf("ticketing:event_staff:%s:%s", eventID, userID)
}
