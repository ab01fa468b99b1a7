package service_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teamloft/teamloft/models"
	"github.com/teamloft/teamloft/service"
)

func TestValidateRoom(t *testing.T) {
	tests := []struct {
		name     string
		roomType string
		roomId   string
		wantErr  string
	}{
		{"Valid Whiteboard", "whiteboard", "wb1", ""},
		{"Valid Project", "project", "p1", ""},
		{"Valid Workspace", "workspace", "ws1", ""},
		{"Valid Page", "page", "pg1", ""},
		{"Unknown Type", "channel", "c1", "unknown room type"},
		{"Empty Type", "", "c1", "unknown room type"},
		{"Empty Id", "project", "", "must not be empty"},
		{"Id Too Long", "project", strings.Repeat("x", 129), "exceeds"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := service.ValidateRoom(tc.roomType, tc.roomId)
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tc.wantErr)
			}
		})
	}
}

func TestValidateActivityStatus(t *testing.T) {
	for _, valid := range []string{"idle", "typing", "drawing", "scrolling", "selecting"} {
		assert.NoError(t, service.ValidateActivityStatus(valid))
	}
	assert.Error(t, service.ValidateActivityStatus("sleeping"))
	assert.Error(t, service.ValidateActivityStatus(""))
}

func TestValidateElement(t *testing.T) {
	assert.NoError(t, service.ValidateElement(models.Element{Id: "e1", Type: models.ElementSticky}))
	assert.ErrorContains(t, service.ValidateElement(models.Element{Type: models.ElementSticky}), "element id")
	assert.ErrorContains(t, service.ValidateElement(models.Element{Id: "e1", Type: "blob"}), "element type")
}

func TestValidateSelection(t *testing.T) {
	assert.NoError(t, service.ValidateSelection(nil))
	assert.NoError(t, service.ValidateSelection([]string{"e1", "e2"}))
	assert.ErrorContains(t, service.ValidateSelection([]string{"e1", ""}), "empty element id")

	big := make([]string, 257)
	for i := range big {
		big[i] = "e"
	}
	assert.ErrorContains(t, service.ValidateSelection(big), "selection exceeds")
}
