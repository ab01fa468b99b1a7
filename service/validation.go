package service

import (
	"fmt"
	"regexp"

	"github.com/teamloft/teamloft/models"
	"github.com/teamloft/teamloft/rooms"
)

const (
	maxRoomIdLength    = 128
	minPasswordLength  = 6
	maxSelectionLength = 256
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

func ValidateRoom(roomType string, roomId string) error {
	if !rooms.ValidRoomType(roomType) {
		return fmt.Errorf("unknown room type '%s'", roomType)
	}
	if roomId == "" {
		return fmt.Errorf("room id must not be empty")
	}
	if len(roomId) > maxRoomIdLength {
		return fmt.Errorf("room id exceeds %d characters", maxRoomIdLength)
	}
	return nil
}

func ValidateActivityStatus(status string) error {
	switch models.ActivityStatus(status) {
	case models.ActivityIdle, models.ActivityTyping, models.ActivityDrawing,
		models.ActivityScrolling, models.ActivitySelecting:
		return nil
	}
	return fmt.Errorf("unknown activity status '%s'", status)
}

func ValidateElementType(elementType models.ElementType) error {
	switch elementType {
	case models.ElementShape, models.ElementSticky, models.ElementText,
		models.ElementImage, models.ElementFreehand, models.ElementConnector:
		return nil
	}
	return fmt.Errorf("unknown element type '%s'", elementType)
}

func ValidateElement(element models.Element) error {
	if element.Id == "" {
		return fmt.Errorf("element id must not be empty")
	}
	return ValidateElementType(element.Type)
}

func ValidateSelection(elementIds []string) error {
	if len(elementIds) > maxSelectionLength {
		return fmt.Errorf("selection exceeds %d elements", maxSelectionLength)
	}
	for _, id := range elementIds {
		if id == "" {
			return fmt.Errorf("selection contains an empty element id")
		}
	}
	return nil
}
