package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartAdd(t *testing.T) {
	p := Product{ID: "p1", Name: "Polish", Price: 120, ImageURL: "/p1.png", StockQuantity: 2}

	c, err := Cart{}.Add(p)
	require.NoError(t, err)
	assert.Equal(t, Cart{{ProductID: "p1", Name: "Polish", Price: 120, Image: "/p1.png", Quantity: 1}}, c)

	c, err = c.Add(p)
	require.NoError(t, err)
	assert.Equal(t, 2, c[0].Quantity)

	same, err := c.Add(p)
	assert.ErrorIs(t, err, ErrStockLimit)
	assert.Equal(t, 2, same[0].Quantity)

	_, err = c.Add(Product{ID: "p2", StockQuantity: 0})
	assert.ErrorIs(t, err, ErrOutOfStock)

	assert.Equal(t, 2, c.Count())
	assert.Equal(t, 240.0, c.Total())
}

func TestCartAddDoesNotMutateInput(t *testing.T) {
	orig := Cart{{ProductID: "p1", Quantity: 1}}
	_, err := orig.Add(Product{ID: "p1", StockQuantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, orig[0].Quantity)
}

func exerciseStore(t *testing.T, store CartStore) {
	t.Helper()
	ctx := t.Context()

	empty, err := store.Load(ctx, "visitor-1")
	require.NoError(t, err)
	assert.Empty(t, empty)

	cart := Cart{{ProductID: "p1", Name: "Polish", Price: 120, Image: "/p1.png", Quantity: 2}}
	require.NoError(t, store.Save(ctx, "visitor-1", cart))

	got, err := store.Load(ctx, "visitor-1")
	require.NoError(t, err)
	assert.Equal(t, cart, got)

	other, err := store.Load(ctx, "visitor-2")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, store.Clear(ctx, "visitor-1"))
	got, err = store.Load(ctx, "visitor-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryCartStore(t *testing.T) {
	exerciseStore(t, NewMemoryCartStore())
}

func TestRedisCartStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisCartStore(client, time.Hour)
	exerciseStore(t, store)

	require.NoError(t, store.Save(t.Context(), "visitor-3", Cart{{ProductID: "p9", Quantity: 1}}))
	raw, err := mr.Get("cart:visitor-3")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"productId":"p9","name":"","price":0,"image":"","quantity":1}]`, raw)

	mr.FastForward(2 * time.Hour)
	got, err := store.Load(t.Context(), "visitor-3")
	require.NoError(t, err)
	assert.Empty(t, got)
}

type mockDynamo struct {
	items  map[string]map[string]types.AttributeValue
	putErr error
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func keyOf(key map[string]types.AttributeValue) string {
	return key["visitorId"].(*types.AttributeValueMemberS).Value
}

func (m *mockDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.items[keyOf(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: m.items[keyOf(in.Key)]}, nil
}

func (m *mockDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	delete(m.items, keyOf(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDynamoCartStore(t *testing.T) {
	mock := newMockDynamo()
	store := NewDynamoCartStore(mock, "shopping_lists", 24*time.Hour)
	exerciseStore(t, store)

	require.NoError(t, store.Save(t.Context(), "visitor-9", Cart{{ProductID: "p1", Quantity: 1}}))
	var rec cartRecord
	require.NoError(t, attributevalue.UnmarshalMap(mock.items["visitor-9"], &rec))
	assert.Equal(t, "visitor-9", rec.VisitorID)
	assert.Greater(t, rec.ExpiresAt, time.Now().Unix())
	assert.JSONEq(t, `[{"productId":"p1","name":"","price":0,"image":"","quantity":1}]`, rec.Cart)

	store.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	got, err := store.Load(t.Context(), "visitor-9")
	require.NoError(t, err)
	assert.Empty(t, got, "expired items are ignored before the table TTL sweeps them")

	mock.putErr = errors.New("throttled")
	assert.Error(t, store.Save(t.Context(), "visitor-9", Cart{}))
}

func TestNewDynamoCartStorePanics(t *testing.T) {
	assert.Panics(t, func() { NewDynamoCartStore(nil, "t", 0) })
	assert.Panics(t, func() { NewDynamoCartStore(newMockDynamo(), "", 0) })
}
