package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/teamloft/teamloft/cache"
	"github.com/teamloft/teamloft/models"
	"github.com/teamloft/teamloft/rooms"
	"github.com/teamloft/teamloft/store"
)

// Activity writes are batched up to the DynamoDB batch-write limit.
const activityBatchSize = 25

// ActivityBatcher collects activity records from the collaboration
// handlers and flushes them to the store in batches, either when a full
// batch accumulates or on the ticker. Persisted activities are also
// published on the room-events bus so live project and workspace feeds
// update without polling.
type ActivityBatcher struct {
	WriteCh chan models.Activity

	teamloftStore      store.TeamloftStore
	teamloftCache      cache.TeamloftCache
	tickerMilliseconds int
}

func NewActivityBatcher(teamloftStore store.TeamloftStore, teamloftCache cache.TeamloftCache, tickerMilliseconds int) *ActivityBatcher {
	return &ActivityBatcher{
		WriteCh:            make(chan models.Activity, 1024),
		teamloftStore:      teamloftStore,
		teamloftCache:      teamloftCache,
		tickerMilliseconds: tickerMilliseconds,
	}
}

func (b *ActivityBatcher) Run(shutdownCtx context.Context) {
	ticker := time.NewTicker(time.Duration(b.tickerMilliseconds) * time.Millisecond)
	defer ticker.Stop()

	batch := make([]models.Activity, 0, activityBatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		unprocessed, err := b.teamloftStore.WriteActivityBatch(ctx, batch)
		if err != nil {
			log.Printf("failed to write activity batch of %d: %v", len(batch), err)
			batch = batch[:0]
			return
		}
		if len(unprocessed) > 0 {
			log.Printf("activity batch left %d unprocessed records", len(unprocessed))
		}

		written := batch
		if len(unprocessed) > 0 {
			unprocessedIds := make(map[string]struct{}, len(unprocessed))
			for _, activity := range unprocessed {
				unprocessedIds[activity.Id] = struct{}{}
			}
			written = written[:0]
			for _, activity := range batch {
				if _, skip := unprocessedIds[activity.Id]; !skip {
					written = append(written, activity)
				}
			}
		}
		for _, activity := range written {
			b.publishActivity(ctx, activity)
		}

		batch = batch[:0]
	}

	for {
		select {
		case <-shutdownCtx.Done():
			flush()
			return
		case activity := <-b.WriteCh:
			batch = append(batch, activity)
			if len(batch) >= activityBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// publishActivity pushes a persisted activity onto the room-events bus
// addressed to its project room, falling back to the workspace room for
// workspace-scoped activities.
func (b *ActivityBatcher) publishActivity(ctx context.Context, activity models.Activity) {
	var roomKey rooms.Key
	switch {
	case activity.Project != "":
		roomKey = rooms.Key{Type: rooms.RoomProject, Id: activity.Project}
	case activity.Workspace != "":
		roomKey = rooms.Key{Type: rooms.RoomWorkspace, Id: activity.Workspace}
	default:
		return
	}

	data, err := json.Marshal(activity)
	if err != nil {
		log.Printf("failed to marshal activity %s: %v", activity.Id, err)
		return
	}
	event, err := json.Marshal(models.RoomEvent{
		Room:  roomKey.String(),
		Event: "activity",
		Data:  data,
	})
	if err != nil {
		log.Printf("failed to marshal room event for activity %s: %v", activity.Id, err)
		return
	}
	if err := b.teamloftCache.Publish(ctx, cache.RoomEventsChannel, event); err != nil {
		log.Printf("failed to publish activity %s to room %s: %v", activity.Id, roomKey, err)
	}
}
