package content

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/quickie-platform/internal/gateway"
)

func seededContentStore() *gateway.MemoryStore {
	store := gateway.NewMemoryStore(nil)
	store.Seed(gateway.TableServices,
		gateway.Row{"id": "svc-2", "name": "Tire Rotation", "is_active": true, "sort_order": 2},
		gateway.Row{"id": "svc-1", "name": "Oil Change", "is_active": true, "sort_order": 1, "price_from": 500, "price_to": 900, "duration_minutes": 45},
		gateway.Row{"id": "svc-3", "name": "Retired", "is_active": false, "sort_order": 0},
	)
	store.Seed(gateway.TableBranches,
		gateway.Row{"id": "br-2", "name": "Pasig", "is_active": true},
		gateway.Row{"id": "br-1", "name": "Makati", "is_active": true},
		gateway.Row{"id": "br-3", "name": "Closed", "is_active": false},
	)
	for i := 1; i <= 25; i++ {
		store.Seed(gateway.TableGallery, gateway.Row{
			"id": fmt.Sprintf("g-%02d", i), "title": "Shine", "image_url": "/img.jpg",
			"is_active": i != 25, "created_at": fmt.Sprintf("2026-02-%02dT00:00:00Z", i),
		})
	}
	store.Seed(gateway.TableTestimonials,
		gateway.Row{"id": "t-1", "customer_name": "Ana", "content": "Great", "rating": 5, "is_approved": true, "created_at": "2026-01-01T00:00:00Z"},
		gateway.Row{"id": "t-2", "customer_name": "Ben", "content": "Bad", "rating": 1, "is_approved": false, "created_at": "2026-01-02T00:00:00Z"},
		gateway.Row{"id": "t-3", "customer_name": "Cara", "content": "Fast", "rating": 7, "is_approved": true, "created_at": "2026-01-03T00:00:00Z"},
	)
	store.Seed(gateway.TableCategories, gateway.Row{"id": "cat-tips", "name": "Car Care Tips", "slug": "tips", "is_active": true})
	store.Seed(gateway.TableBlogPosts,
		gateway.Row{"id": "b-1", "title": "Winter tire care", "slug": "winter", "category_id": "cat-tips", "is_published": true, "published_at": "2026-01-10T00:00:00Z"},
		gateway.Row{"id": "b-2", "title": "Tire pressure basics", "slug": "pressure", "is_published": true, "published_at": "2026-01-20T00:00:00Z"},
		gateway.Row{"id": "b-3", "title": "Draft: tire myths", "slug": "myths", "is_published": false},
	)
	return store
}

func TestServicesAndBranches(t *testing.T) {
	r := NewReader(gateway.NewClient(seededContentStore()))

	services, err := r.Services(t.Context())
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "Oil Change", services[0].Name)
	assert.Equal(t, "₱500 - ₱900", services[0].PriceLabel)
	assert.Equal(t, "45 minutes", services[0].DurationLabel)
	assert.Equal(t, "Price on request", services[1].PriceLabel)

	branches, err := r.Branches(t.Context())
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, "Makati", branches[0].Name)
}

func TestGalleryLimits(t *testing.T) {
	r := NewReader(gateway.NewClient(seededContentStore()))

	items, err := r.Gallery(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, items, GalleryLimit)
	assert.Equal(t, "g-24", items[0].ID)

	items, err = r.Gallery(t.Context(), 3)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	items, err = r.Gallery(t.Context(), 500)
	require.NoError(t, err)
	assert.Len(t, items, 24)
}

func TestTestimonials(t *testing.T) {
	r := NewReader(gateway.NewClient(seededContentStore()))

	items, err := r.Testimonials(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Cara", items[0].CustomerName)
	assert.Equal(t, 5, items[0].Stars())
}

func TestBlogPosts(t *testing.T) {
	r := NewReader(gateway.NewClient(seededContentStore()))

	posts, err := r.BlogPosts(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "b-2", posts[0].ID)
	assert.Nil(t, posts[0].Category)
	require.NotNil(t, posts[1].Category)
	assert.Equal(t, "Car Care Tips", posts[1].Category.Name)
}

func TestSearchBlog(t *testing.T) {
	r := NewReader(gateway.NewClient(seededContentStore()))

	posts, err := r.SearchBlog(t.Context(), "  Tire ", 0)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	for _, p := range posts {
		assert.True(t, p.IsPublished)
	}

	posts, err = r.SearchBlog(t.Context(), "winter", 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "tips", posts[0].Category.Slug)

	_, err = r.SearchBlog(t.Context(), "   ", 0)
	assert.ErrorIs(t, err, ErrEmptySearch)
}

func TestReaderWrapsGatewayErrors(t *testing.T) {
	store := seededContentStore()
	store.FailNext(gateway.TableGallery, "select", errors.New("connection reset"))
	r := NewReader(gateway.NewClient(store))

	_, err := r.Gallery(t.Context(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content: gallery")
}
