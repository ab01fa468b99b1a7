package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gofrs/uuid/v5"

	"github.com/teamloft/teamloft/models"
	"github.com/teamloft/teamloft/store"
)

type DynamoTeamloftStore struct {
	client    *dynamodb.Client
	tableName string
}

func NewDynamoTeamloftStore(ctx context.Context, devMode bool, dynamodbEndpoint string, tableName string) (*DynamoTeamloftStore, error) {
	client, err := newDynamoDBClient(context.Background(), devMode, dynamodbEndpoint)
	if err != nil {
		return nil, err
	}

	tables, err := getTables(client, ctx)
	if err != nil {
		return nil, err
	}

	foundTable := false
	for _, table := range tables {
		if table == tableName {
			foundTable = true
			break
		}
	}
	if !foundTable {
		return nil, fmt.Errorf("given table name '%s' not found in dynamodb", tableName)
	}

	return &DynamoTeamloftStore{client: client, tableName: tableName}, nil
}

func (dynamoStore *DynamoTeamloftStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	userId, err := uuid.NewV4()
	if err != nil {
		return models.User{}, err
	}
	user.Id = userId.String()
	user.Created = time.Now().Unix()

	// Users are keyed by email; the conditional put enforces uniqueness.
	du := userToDynamo(user)
	_, inserted, err := ensureItem(dynamoStore, ctx, du)
	if err != nil {
		return models.User{}, err
	}
	if !inserted {
		return models.User{}, store.ErrConditionFailed
	}

	return user, nil
}

func (dynamoStore *DynamoTeamloftStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	du, err := getItem[dynamoUser](dynamoStore, ctx, "USER#"+email, "PROFILE", false)
	if err != nil {
		return models.User{}, err
	}

	return userFromDynamo(du), nil
}

func (dynamoStore *DynamoTeamloftStore) GetUser(ctx context.Context, userId string) (models.User, error) {
	dynamoUsers, err := queryAllByGSI[dynamoUser](dynamoStore, ctx, "GSI_UserId", "Id", userId, 1)
	if err != nil {
		return models.User{}, err
	}
	if len(dynamoUsers) == 0 {
		return models.User{}, store.ErrItemNotFound
	}

	return userFromDynamo(dynamoUsers[0]), nil
}

func (dynamoStore *DynamoTeamloftStore) GetWhiteboard(ctx context.Context, whiteboardId string) (models.Whiteboard, error) {
	dw, err := getItem[dynamoWhiteboard](dynamoStore, ctx, "WHITEBOARD#"+whiteboardId, "DOC", true)
	if err != nil {
		return models.Whiteboard{}, err
	}

	return whiteboardFromDynamo(dw)
}

// SaveWhiteboard overwrites the whole document. Concurrent element edits
// are last-write-wins; there is no optimistic-concurrency token.
func (dynamoStore *DynamoTeamloftStore) SaveWhiteboard(ctx context.Context, whiteboard models.Whiteboard) error {
	dw, err := whiteboardToDynamo(whiteboard)
	if err != nil {
		return err
	}

	return putItem(dynamoStore, ctx, dw)
}

func (dynamoStore *DynamoTeamloftStore) WriteActivityBatch(ctx context.Context, activities []models.Activity) ([]models.Activity, error) {
	var writeRequests []types.WriteRequest
	for _, activity := range activities {
		da, err := activityToDynamo(activity)
		if err != nil {
			return nil, fmt.Errorf("marshal error: %w", err)
		}
		avMap, err := attributevalue.MarshalMap(da)
		if err != nil {
			return nil, fmt.Errorf("marshal error: %w", err)
		}

		writeRequests = append(writeRequests, types.WriteRequest{
			PutRequest: &types.PutRequest{
				Item: avMap,
			},
		})
	}

	unprocessed, err := writeBatchRequests[dynamoActivity](dynamoStore, ctx, writeRequests)

	unbatched := make([]models.Activity, 0, len(unprocessed))
	for _, u := range unprocessed {
		if activity, convErr := activityFromDynamo(u); convErr == nil {
			unbatched = append(unbatched, activity)
		}
	}

	return unbatched, err
}

func (dynamoStore *DynamoTeamloftStore) GetActivities(ctx context.Context, scope string, scopeId string, limit int) ([]models.Activity, error) {
	var dynamoActivities []dynamoActivity
	var err error

	switch scope {
	case "project":
		// Activity ids are UUIDv7, so descending SK order is newest-first
		dynamoActivities, err = queryAllByPK[dynamoActivity](dynamoStore, ctx, "ACTIVITY#"+scopeId, false, int32(limit))
	case "workspace":
		dynamoActivities, err = queryAllByGSI[dynamoActivity](dynamoStore, ctx, "GSI_WorkspaceActivities", "Workspace", scopeId, int32(limit))
	default:
		return nil, fmt.Errorf("unsupported activity scope: %s", scope)
	}
	if err != nil {
		return nil, err
	}

	activities := make([]models.Activity, 0, len(dynamoActivities))
	for _, da := range dynamoActivities {
		activity, convErr := activityFromDynamo(da)
		if convErr != nil {
			continue
		}
		activities = append(activities, activity)
	}

	return activities, nil
}

func (dynamoStore *DynamoTeamloftStore) CreateNotification(ctx context.Context, notification models.Notification) (models.Notification, error) {
	if notification.Id == "" {
		notificationId, err := uuid.NewV7()
		if err != nil {
			return models.Notification{}, err
		}
		notification.Id = notificationId.String()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}

	dn, err := notificationToDynamo(notification)
	if err != nil {
		return models.Notification{}, err
	}
	if err := putItem(dynamoStore, ctx, dn); err != nil {
		return models.Notification{}, err
	}

	return notification, nil
}

func (dynamoStore *DynamoTeamloftStore) GetNotifications(ctx context.Context, recipient string, unreadOnly bool) ([]models.Notification, error) {
	// Newest first; UUIDv7 SKs sort chronologically
	dynamoNotifications, err := queryAllByPK[dynamoNotification](dynamoStore, ctx, "NOTIF#"+recipient, false, 100)
	if err != nil {
		return nil, err
	}

	notifications := make([]models.Notification, 0, len(dynamoNotifications))
	for _, dn := range dynamoNotifications {
		if unreadOnly && dn.Read {
			continue
		}
		notification, convErr := notificationFromDynamo(dn)
		if convErr != nil {
			continue
		}
		notifications = append(notifications, notification)
	}

	return notifications, nil
}

func (dynamoStore *DynamoTeamloftStore) MarkNotificationsRead(ctx context.Context, recipient string, notificationIds []string) error {
	for _, notificationId := range notificationIds {
		dn := dynamoNotification{
			PK:   "NOTIF#" + recipient,
			SK:   notificationId,
			Read: true,
		}
		if _, err := updateItem(dynamoStore, ctx, dn, []string{"Read"}); err != nil {
			return err
		}
	}
	return nil
}
