package gateway

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/quickie-platform/internal/observability/metrics"
)

func TestClientRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := NewMemoryStore(nil)
	client := NewClient(store, WithMetrics(metrics.NewGatewayMetrics(reg)))
	ctx := context.Background()

	_, err := client.Insert(ctx, TableBookings, Row{"status": "pending"})
	require.NoError(t, err)
	_, err = client.Query(ctx, "nope", nil, nil, 0)
	require.Error(t, err)

	n, err := client.Count(ctx, TableBookings, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := testutil.GatherAndCount(reg, "quickie_gateway_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestClientWithoutOptionalParts(t *testing.T) {
	client := NewClient(NewMemoryStore(nil))
	ctx := context.Background()

	_, err := client.SubscribeChanges(TableBookings, MaskInsert)
	assert.ErrorIs(t, err, ErrRealtimeDisabled)
	assert.ErrorIs(t, client.UploadBlob(ctx, "b", "k", nil, ""), ErrBlobDisabled)

	id, err := client.CurrentSession(ctx, "token")
	assert.NoError(t, err)
	assert.Nil(t, id)

	_, err = client.Authenticate(ctx, Credentials{Email: "a@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	sub := client.OnSessionChange()
	sub.Close()
}

func TestClientSubscribeChanges(t *testing.T) {
	hub := NewHub(nil, nil)
	store := NewMemoryStore(hub)
	client := NewClient(store, WithHub(hub))

	sub, err := client.SubscribeChanges(TableBookings, MaskInsert)
	require.NoError(t, err)
	defer sub.Close()

	row, err := client.Insert(context.Background(), TableBookings, Row{"status": "pending"})
	require.NoError(t, err)
	assert.Equal(t, row.String("id"), (<-sub.Events()).ID)
}
