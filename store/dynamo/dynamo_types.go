package dynamo

import (
	"encoding/json"
	"time"

	"github.com/teamloft/teamloft/models"
)

type dynamoUser struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	Id           string `dynamodbav:"Id"`
	Email        string `dynamodbav:"Email"`
	PasswordHash string `dynamodbav:"PasswordHash"`
	FirstName    string `dynamodbav:"FirstName"`
	LastName     string `dynamodbav:"LastName"`
	Avatar       string `dynamodbav:"Avatar"`
	Created      int64  `dynamodbav:"Created"`
}

// Map domain User -> Dynamo
func userToDynamo(u models.User) dynamoUser {
	return dynamoUser{
		PK:           "USER#" + u.Email,
		SK:           "PROFILE",
		Id:           u.Id,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Avatar:       u.Avatar,
		Created:      u.Created,
	}
}

// Map Dynamo -> domain User
func userFromDynamo(du dynamoUser) models.User {
	return models.User{
		Id:           du.Id,
		Email:        du.Email,
		PasswordHash: du.PasswordHash,
		FirstName:    du.FirstName,
		LastName:     du.LastName,
		Avatar:       du.Avatar,
		Created:      du.Created,
	}
}

type dynamoWhiteboard struct {
	PK              string  `dynamodbav:"PK"`
	SK              string  `dynamodbav:"SK"`
	Name            string  `dynamodbav:"Name"`
	Project         string  `dynamodbav:"Project"`
	Workspace       string  `dynamodbav:"Workspace"`
	Elements        []byte  `dynamodbav:"Elements"`
	CanvasWidth     float64 `dynamodbav:"CanvasWidth"`
	CanvasHeight    float64 `dynamodbav:"CanvasHeight"`
	BackgroundColor string  `dynamodbav:"BackgroundColor"`
	CreatedBy       string  `dynamodbav:"CreatedBy"`
	LastModifiedBy  string  `dynamodbav:"LastModifiedBy"`
	LastModifiedAt  int64   `dynamodbav:"LastModifiedAt"`
}

// The element list is stored as a JSON blob; elements are only ever
// read and written through the whole document.
func whiteboardToDynamo(wb models.Whiteboard) (dynamoWhiteboard, error) {
	elements := wb.Elements
	if elements == nil {
		elements = []models.Element{}
	}
	elementsJson, err := json.Marshal(elements)
	if err != nil {
		return dynamoWhiteboard{}, err
	}

	return dynamoWhiteboard{
		PK:              "WHITEBOARD#" + wb.Id,
		SK:              "DOC",
		Name:            wb.Name,
		Project:         wb.Project,
		Workspace:       wb.Workspace,
		Elements:        elementsJson,
		CanvasWidth:     wb.CanvasWidth,
		CanvasHeight:    wb.CanvasHeight,
		BackgroundColor: wb.BackgroundColor,
		CreatedBy:       wb.CreatedBy,
		LastModifiedBy:  wb.LastModifiedBy,
		LastModifiedAt:  wb.LastModifiedAt.UnixMilli(),
	}, nil
}

func whiteboardFromDynamo(dw dynamoWhiteboard) (models.Whiteboard, error) {
	var elements []models.Element
	if len(dw.Elements) > 0 {
		if err := json.Unmarshal(dw.Elements, &elements); err != nil {
			return models.Whiteboard{}, err
		}
	}

	return models.Whiteboard{
		Id:              dw.PK[len("WHITEBOARD#"):],
		Name:            dw.Name,
		Project:         dw.Project,
		Workspace:       dw.Workspace,
		Elements:        elements,
		CanvasWidth:     dw.CanvasWidth,
		CanvasHeight:    dw.CanvasHeight,
		BackgroundColor: dw.BackgroundColor,
		CreatedBy:       dw.CreatedBy,
		LastModifiedBy:  dw.LastModifiedBy,
		LastModifiedAt:  time.UnixMilli(dw.LastModifiedAt),
	}, nil
}

type dynamoActivity struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	Type       string `dynamodbav:"Type"`
	UserId     string `dynamodbav:"UserId"`
	Workspace  string `dynamodbav:"Workspace"`
	TargetType string `dynamodbav:"TargetType"`
	TargetId   string `dynamodbav:"TargetId"`
	TargetName string `dynamodbav:"TargetName"`
	Metadata   []byte `dynamodbav:"Metadata"`
	Timestamp  int64  `dynamodbav:"Timestamp"`
}

func activityToDynamo(a models.Activity) (dynamoActivity, error) {
	var metadata []byte
	if len(a.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(a.Metadata)
		if err != nil {
			return dynamoActivity{}, err
		}
	}

	return dynamoActivity{
		PK:         "ACTIVITY#" + a.Project,
		SK:         a.Id,
		Type:       a.Type,
		UserId:     a.UserId,
		Workspace:  a.Workspace,
		TargetType: a.TargetType,
		TargetId:   a.TargetId,
		TargetName: a.TargetName,
		Metadata:   metadata,
		Timestamp:  a.Timestamp.UnixMilli(),
	}, nil
}

func activityFromDynamo(da dynamoActivity) (models.Activity, error) {
	var metadata map[string]any
	if len(da.Metadata) > 0 {
		if err := json.Unmarshal(da.Metadata, &metadata); err != nil {
			return models.Activity{}, err
		}
	}

	return models.Activity{
		Id:         da.SK,
		Type:       da.Type,
		UserId:     da.UserId,
		Workspace:  da.Workspace,
		Project:    da.PK[len("ACTIVITY#"):],
		TargetType: da.TargetType,
		TargetId:   da.TargetId,
		TargetName: da.TargetName,
		Metadata:   metadata,
		Timestamp:  time.UnixMilli(da.Timestamp),
	}, nil
}

type dynamoNotification struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Type      string `dynamodbav:"Type"`
	Message   string `dynamodbav:"Message"`
	Link      string `dynamodbav:"Link"`
	Read      bool   `dynamodbav:"Read"`
	Data      []byte `dynamodbav:"Data"`
	CreatedAt int64  `dynamodbav:"CreatedAt"`
}

func notificationToDynamo(n models.Notification) (dynamoNotification, error) {
	var data []byte
	if len(n.Data) > 0 {
		var err error
		data, err = json.Marshal(n.Data)
		if err != nil {
			return dynamoNotification{}, err
		}
	}

	return dynamoNotification{
		PK:        "NOTIF#" + n.Recipient,
		SK:        n.Id,
		Type:      n.Type,
		Message:   n.Message,
		Link:      n.Link,
		Read:      n.Read,
		Data:      data,
		CreatedAt: n.CreatedAt.UnixMilli(),
	}, nil
}

func notificationFromDynamo(dn dynamoNotification) (models.Notification, error) {
	var data map[string]any
	if len(dn.Data) > 0 {
		if err := json.Unmarshal(dn.Data, &data); err != nil {
			return models.Notification{}, err
		}
	}

	return models.Notification{
		Id:        dn.SK,
		Recipient: dn.PK[len("NOTIF#"):],
		Type:      dn.Type,
		Message:   dn.Message,
		Link:      dn.Link,
		Read:      dn.Read,
		Data:      data,
		CreatedAt: time.UnixMilli(dn.CreatedAt),
	}, nil
}
