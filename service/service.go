package service

import (
	"errors"
	"time"

	"github.com/teamloft/teamloft/cache"
	"github.com/teamloft/teamloft/mq"
	"github.com/teamloft/teamloft/store"
	"github.com/teamloft/teamloft/worker"
)

// How long after an element update the next update by the same user on
// the same whiteboard is kept out of the activity log.
const activityLogWindow = 5 * time.Second

type Service struct {
	teamloftStore     store.TeamloftStore
	teamloftCache     cache.TeamloftCache
	notificationQueue mq.NotificationQueue
	activityBatcher   *worker.ActivityBatcher
	throttle          *ThrottleGate
	jwtSecret         []byte
}

func NewService(teamloftStore store.TeamloftStore, teamloftCache cache.TeamloftCache, notificationQueue mq.NotificationQueue, activityBatcher *worker.ActivityBatcher, jwtSecret string) (*Service, error) {
	if jwtSecret == "" {
		return nil, errors.New("JWT secret must not be empty")
	}

	return &Service{
		teamloftStore:     teamloftStore,
		teamloftCache:     teamloftCache,
		notificationQueue: notificationQueue,
		activityBatcher:   activityBatcher,
		throttle:          NewThrottleGate(activityLogWindow),
		jwtSecret:         []byte(jwtSecret),
	}, nil
}

// Throttle exposes the activity-log gate so the sweeper can expire it.
func (s *Service) Throttle() *ThrottleGate {
	return s.throttle
}
