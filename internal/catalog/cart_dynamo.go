package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// cartRecord is one visitor's shopping list. Cart holds the same JSON text
// the other stores keep.
type cartRecord struct {
	VisitorID string `dynamodbav:"visitorId"`
	Cart      string `dynamodbav:"cart"`
	UpdatedAt string `dynamodbav:"updatedAt"`
	ExpiresAt int64  `dynamodbav:"expiresAt,omitempty"`
}

// DynamoCartStore persists carts in a DynamoDB table keyed by visitorId.
type DynamoCartStore struct {
	client    dynamoAPI
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

func NewDynamoCartStore(client dynamoAPI, tableName string, ttl time.Duration) *DynamoCartStore {
	if client == nil {
		panic("catalog: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("catalog: table name cannot be empty")
	}
	return &DynamoCartStore{client: client, tableName: tableName, ttl: ttl, now: time.Now}
}

func (s *DynamoCartStore) key(visitorID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"visitorId": &types.AttributeValueMemberS{Value: visitorID},
	}
}

func (s *DynamoCartStore) Load(ctx context.Context, visitorID string) (Cart, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(visitorID),
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to fetch cart: %w", err)
	}
	if out.Item == nil {
		return Cart{}, nil
	}
	var rec cartRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("catalog: failed to decode cart: %w", err)
	}
	if rec.ExpiresAt > 0 && rec.ExpiresAt <= s.now().Unix() {
		return Cart{}, nil
	}
	return decodeCart(rec.Cart)
}

func (s *DynamoCartStore) Save(ctx context.Context, visitorID string, cart Cart) error {
	raw, err := encodeCart(cart)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	rec := cartRecord{VisitorID: visitorID, Cart: raw, UpdatedAt: now.Format(time.RFC3339Nano)}
	if s.ttl > 0 {
		rec.ExpiresAt = now.Add(s.ttl).Unix()
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("catalog: failed to marshal cart: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("catalog: failed to persist cart: %w", err)
	}
	return nil
}

func (s *DynamoCartStore) Clear(ctx context.Context, visitorID string) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(visitorID),
	}); err != nil {
		return fmt.Errorf("catalog: failed to delete cart: %w", err)
	}
	return nil
}
