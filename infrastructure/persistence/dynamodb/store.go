// Package dynamodb stores items and bookmarklet tokens in a single DynamoDB
// table keyed by PK/SK.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"eden-backend/application/ports"
	"eden-backend/domain/core/entities"
	"eden-backend/pkg/auth"
	pkgerrors "eden-backend/pkg/errors"
	"eden-backend/pkg/utils"
)

const (
	entityItem  = "ITEM"
	entityToken = "TOKEN"
)

// API is the subset of the DynamoDB client used by the store.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// itemRecord is the table layout of a SavedItem. Seq keeps insertion order
// since the sort key is the item id.
type itemRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	Seq        int64  `dynamodbav:"Seq"`
	entities.SavedItem
}

type tokenRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	UserID     string `dynamodbav:"UserID"`
	CreatedAt  int64  `dynamodbav:"CreatedAt"`
}

// Store implements ItemStore and TokenStore on DynamoDB.
type Store struct {
	client    API
	tableName string
	logger    *zap.Logger
}

var (
	_ ports.ItemStore  = (*Store)(nil)
	_ ports.TokenStore = (*Store)(nil)
)

// NewStore creates a store over tableName
func NewStore(client API, tableName string, logger *zap.Logger) *Store {
	return &Store{client: client, tableName: tableName, logger: logger}
}

func userPK(userID string) string { return fmt.Sprintf("USER#%s", userID) }
func itemSK(itemID string) string { return fmt.Sprintf("ITEM#%s", itemID) }
func tokenPK(token string) string  { return fmt.Sprintf("TOKEN#%s", token) }

func itemKey(userID, itemID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
		"SK": &types.AttributeValueMemberS{Value: itemSK(itemID)},
	}
}

// CreateItem stores a new item at version 1.
func (s *Store) CreateItem(ctx context.Context, item *entities.SavedItem) error {
	if item == nil || item.ID == "" || item.UserID == "" {
		return pkgerrors.NewValidationError("item id and user id are required")
	}

	rec := itemRecord{
		PK:         userPK(item.UserID),
		SK:         itemSK(item.ID),
		EntityType: entityItem,
		Seq:        time.Now().UnixNano(),
		SavedItem:  *item.Clone(),
	}
	rec.Version = 1

	av, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return pkgerrors.NewInternalError("encode item").WithCause(err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return pkgerrors.NewConflictError("item already exists")
		}
		return dbError("create item", err)
	}

	item.Version = 1
	s.logger.Debug("Item saved", zap.String("item_id", item.ID), zap.String("user_id", item.UserID))
	return nil
}

func (s *Store) GetItem(ctx context.Context, userID, itemID string) (*entities.SavedItem, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            itemKey(userID, itemID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, dbError("get item", err)
	}
	if out.Item == nil {
		return nil, pkgerrors.NewNotFoundError("item")
	}
	rec, err := decodeItem(out.Item)
	if err != nil {
		return nil, err
	}
	return &rec.SavedItem, nil
}

// UpdateItem rewrites the mutable attributes of item, conditioned on the
// stored Version still equaling item.Version.
func (s *Store) UpdateItem(ctx context.Context, item *entities.SavedItem) error {
	expected := item.Version
	lastAccessed := utils.NowMillis()

	update := expression.Set(expression.Name("Version"), expression.Value(expected+1)).
		Set(expression.Name("LastAccessed"), expression.Value(lastAccessed))
	for _, attr := range mutableAttributes(item) {
		update = update.Set(expression.Name(attr.name), expression.Value(attr.value))
	}

	condition := expression.Name("PK").AttributeExists().
		And(expression.Name("Version").Equal(expression.Value(expected)))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(condition).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       itemKey(item.UserID, item.ID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return s.classifyFailedUpdate(ctx, item.UserID, item.ID, expected)
		}
		return dbError("update item", err)
	}

	item.Version = expected + 1
	item.LastAccessed = lastAccessed
	return nil
}

// classifyFailedUpdate tells a missing item apart from a stale version.
func (s *Store) classifyFailedUpdate(ctx context.Context, userID, itemID string, expected int) error {
	current, err := s.GetItem(ctx, userID, itemID)
	if err != nil {
		return err
	}
	return pkgerrors.NewConflictError("item was modified concurrently").
		WithDetails(map[string]interface{}{"expected": expected, "actual": current.Version})
}

type attribute struct {
	name  string
	value interface{}
}

func mutableAttributes(item *entities.SavedItem) []attribute {
	attrs := []attribute{
		{"URL", item.URL},
		{"Domain", item.Domain},
		{"Title", item.Title},
		{"Content", item.Content},
		{"Summary", item.Summary},
		{"Tags", nonNil(item.Tags)},
		{"Concepts", nonNil(item.Concepts)},
		{"Favicon", item.Favicon},
		{"ImageURL", item.ImageURL},
		{"Connections", nonNil(item.Connections)},
		{"ConnectionReasons", item.ConnectionReasons},
		{"IsRead", item.IsRead},
		{"ReadingProgress", item.ReadingProgress},
		{"Notes", item.Notes},
		{"Highlights", nonNil(item.Highlights)},
	}
	if item.ConnectionReasons == nil {
		attrs[10].value = map[string]string{}
	}
	if item.ExpiresAt != nil {
		attrs = append(attrs, attribute{"ExpiresAt", *item.ExpiresAt})
	}
	return attrs
}

func (s *Store) DeleteItem(ctx context.Context, userID, itemID string) error {
	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       itemKey(userID, itemID),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return pkgerrors.NewNotFoundError("item")
		}
		return dbError("delete item", err)
	}
	return nil
}

func (s *Store) GetItemsByUser(ctx context.Context, userID string) ([]*entities.SavedItem, error) {
	keyExpr := expression.Key("PK").Equal(expression.Value(userPK(userID))).
		And(expression.Key("SK").BeginsWith("ITEM#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyExpr).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	})

	var records []itemRecord
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, dbError("query items", err)
		}
		records = append(records, s.decodeAll(page.Items)...)
	}
	return sortedItems(records), nil
}

// SearchItems returns the user's items containing every word of query,
// newest first.
func (s *Store) SearchItems(ctx context.Context, userID, query string) ([]*entities.SavedItem, error) {
	items, err := s.GetItemsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []*entities.SavedItem{}
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].MatchesQuery(query) {
			out = append(out, items[i])
		}
	}
	return out, nil
}

func (s *Store) GetAllCollections(ctx context.Context) ([]entities.Collection, error) {
	items, err := s.scanItems(ctx)
	if err != nil {
		return nil, err
	}
	return entities.AggregateCollections(items), nil
}

func (s *Store) GetAllConcepts(ctx context.Context) ([]entities.Concept, error) {
	items, err := s.scanItems(ctx)
	if err != nil {
		return nil, err
	}
	return entities.AggregateConcepts(items), nil
}

func (s *Store) scanItems(ctx context.Context) ([]*entities.SavedItem, error) {
	filter := expression.Name("EntityType").Equal(expression.Value(entityItem))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var records []itemRecord
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, dbError("scan items", err)
		}
		records = append(records, s.decodeAll(page.Items)...)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].UserID != records[j].UserID {
			return records[i].UserID < records[j].UserID
		}
		return records[i].Seq < records[j].Seq
	})
	out := make([]*entities.SavedItem, 0, len(records))
	for i := range records {
		out = append(out, &records[i].SavedItem)
	}
	return out, nil
}

// IssueToken creates a new bookmarklet token for userID.
func (s *Store) IssueToken(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", pkgerrors.NewValidationError("user id is required")
	}
	token := auth.NewAPIToken()
	av, err := attributevalue.MarshalMap(tokenRecord{
		PK:         tokenPK(token),
		SK:         entityToken,
		EntityType: entityToken,
		UserID:     userID,
		CreatedAt:  utils.NowMillis(),
	})
	if err != nil {
		return "", pkgerrors.NewInternalError("encode token").WithCause(err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}); err != nil {
		return "", dbError("issue token", err)
	}
	return token, nil
}

// ResolveToken maps a token back to its user.
func (s *Store) ResolveToken(ctx context.Context, token string) (string, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: tokenPK(token)},
			"SK": &types.AttributeValueMemberS{Value: entityToken},
		},
	})
	if err != nil {
		return "", dbError("resolve token", err)
	}
	if out.Item == nil {
		return "", pkgerrors.NewUnauthorizedError("invalid token")
	}
	var rec tokenRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return "", pkgerrors.NewDatabaseError("decode token", err)
	}
	return rec.UserID, nil
}

func (s *Store) decodeAll(items []map[string]types.AttributeValue) []itemRecord {
	out := make([]itemRecord, 0, len(items))
	for _, av := range items {
		rec, err := decodeItem(av)
		if err != nil {
			s.logger.Warn("Failed to parse item", zap.Error(err))
			continue
		}
		out = append(out, *rec)
	}
	return out
}

func decodeItem(av map[string]types.AttributeValue) (*itemRecord, error) {
	var rec itemRecord
	if err := attributevalue.UnmarshalMap(av, &rec); err != nil {
		return nil, pkgerrors.NewDatabaseError("decode item", err)
	}
	// Empty lists and maps may come back as NULL.
	rec.Tags = nonNil(rec.Tags)
	rec.Concepts = nonNil(rec.Concepts)
	rec.Connections = nonNil(rec.Connections)
	rec.Highlights = nonNil(rec.Highlights)
	if rec.ConnectionReasons == nil {
		rec.ConnectionReasons = map[string]string{}
	}
	return &rec, nil
}

func sortedItems(records []itemRecord) []*entities.SavedItem {
	sort.SliceStable(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })
	out := make([]*entities.SavedItem, 0, len(records))
	for i := range records {
		out = append(out, &records[i].SavedItem)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
