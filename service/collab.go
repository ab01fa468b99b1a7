package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/teamloft/teamloft/models"
)

// AddElement appends an element to the whiteboard document and records
// an activity entry. The returned element carries the server-stamped
// authorship fields and is what gets broadcast, whether or not
// persistence succeeded.
func (s *Service) AddElement(ctx context.Context, userId string, whiteboardId string, element models.Element) (models.Element, error) {
	now := time.Now()
	element.CreatedBy = userId
	element.CreatedAt = now
	element.UpdatedAt = now

	whiteboard, err := s.teamloftStore.GetWhiteboard(ctx, whiteboardId)
	if err != nil {
		return element, fmt.Errorf("failed to load whiteboard %s: %w", whiteboardId, err)
	}

	whiteboard.Elements = append(whiteboard.Elements, element)
	whiteboard.LastModifiedBy = userId
	whiteboard.LastModifiedAt = now

	if err := s.teamloftStore.SaveWhiteboard(ctx, whiteboard); err != nil {
		return element, fmt.Errorf("failed to save whiteboard %s: %w", whiteboardId, err)
	}

	s.logWhiteboardActivity("whiteboard.element.added", userId, whiteboard, element)
	return element, nil
}

// UpdateElement merges a partial update into the stored element:
// fields absent from updates keep their stored values, last write wins.
// The activity log entry is throttled per (user, whiteboard); the
// persistence outcome never gates the caller's broadcast.
func (s *Service) UpdateElement(ctx context.Context, userId string, whiteboardId string, elementId string, updates json.RawMessage) error {
	whiteboard, err := s.teamloftStore.GetWhiteboard(ctx, whiteboardId)
	if err != nil {
		return fmt.Errorf("failed to load whiteboard %s: %w", whiteboardId, err)
	}

	idx := -1
	for i := range whiteboard.Elements {
		if whiteboard.Elements[i].Id == elementId {
			idx = i
			break
		}
	}
	if idx == -1 {
		// Racing a delete; the broadcast still goes out so clients
		// converge on their own.
		log.Printf("update for missing element %s on whiteboard %s, broadcast only", elementId, whiteboardId)
		return nil
	}

	original := whiteboard.Elements[idx]
	merged := original
	if err := json.Unmarshal(updates, &merged); err != nil {
		return fmt.Errorf("failed to apply updates to element %s: %w", elementId, err)
	}

	// Identity and authorship are server-owned.
	merged.Id = original.Id
	merged.CreatedBy = original.CreatedBy
	merged.CreatedAt = original.CreatedAt
	merged.UpdatedAt = time.Now()

	whiteboard.Elements[idx] = merged
	whiteboard.LastModifiedBy = userId
	whiteboard.LastModifiedAt = merged.UpdatedAt

	if err := s.teamloftStore.SaveWhiteboard(ctx, whiteboard); err != nil {
		return fmt.Errorf("failed to save whiteboard %s: %w", whiteboardId, err)
	}

	if s.throttle.Allow(userId, whiteboardId) {
		s.logWhiteboardActivity("whiteboard.element.updated", userId, whiteboard, merged)
	}
	return nil
}

// DeleteElement removes an element from the whiteboard document. A
// delete for an element that is already gone is a no-op: nothing is
// persisted or logged.
func (s *Service) DeleteElement(ctx context.Context, userId string, whiteboardId string, elementId string) error {
	whiteboard, err := s.teamloftStore.GetWhiteboard(ctx, whiteboardId)
	if err != nil {
		return fmt.Errorf("failed to load whiteboard %s: %w", whiteboardId, err)
	}

	var removed models.Element
	kept := whiteboard.Elements[:0]
	for _, element := range whiteboard.Elements {
		if element.Id == elementId {
			removed = element
			continue
		}
		kept = append(kept, element)
	}
	if len(kept) == len(whiteboard.Elements) {
		return nil
	}

	whiteboard.Elements = kept
	whiteboard.LastModifiedBy = userId
	whiteboard.LastModifiedAt = time.Now()

	if err := s.teamloftStore.SaveWhiteboard(ctx, whiteboard); err != nil {
		return fmt.Errorf("failed to save whiteboard %s: %w", whiteboardId, err)
	}

	s.logWhiteboardActivity("whiteboard.element.deleted", userId, whiteboard, removed)
	return nil
}

// logWhiteboardActivity hands an activity record to the batcher. The
// send never blocks the connection's read loop; if the batcher is
// backed up the record is dropped and noted.
func (s *Service) logWhiteboardActivity(activityType string, userId string, whiteboard models.Whiteboard, element models.Element) {
	activityId, err := uuid.NewV7()
	if err != nil {
		log.Printf("failed to generate activity id: %v", err)
		return
	}

	activity := models.Activity{
		Id:         activityId.String(),
		Type:       activityType,
		UserId:     userId,
		Workspace:  whiteboard.Workspace,
		Project:    whiteboard.Project,
		TargetType: "whiteboard",
		TargetId:   whiteboard.Id,
		TargetName: whiteboard.Name,
		Metadata: map[string]any{
			"elementId":   element.Id,
			"elementType": string(element.Type),
		},
		Timestamp: time.Now(),
	}

	select {
	case s.activityBatcher.WriteCh <- activity:
	default:
		log.Printf("activity batcher backed up, dropping %s for whiteboard %s", activityType, whiteboard.Id)
	}
}
