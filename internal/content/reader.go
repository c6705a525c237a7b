package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/quickie-platform/internal/booking"
	"github.com/wolfman30/quickie-platform/internal/gateway"
)

// ErrEmptySearch is returned when a search term is blank.
var ErrEmptySearch = errors.New("content: empty search term")

// Source is the slice of the gateway the public content pages read through.
type Source interface {
	Query(ctx context.Context, table string, filters gateway.FilterSet, order gateway.Ordering, limit int) ([]gateway.Row, error)
	Search(ctx context.Context, table, column, term string, limit int) ([]gateway.Row, error)
}

// Reader loads the public site content.
type Reader struct {
	source Source
}

func NewReader(source Source) *Reader {
	if source == nil {
		panic("content: source required")
	}
	return &Reader{source: source}
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return min(limit, maxLimit)
}

// Services returns active services by sort order.
func (r *Reader) Services(ctx context.Context) ([]ServiceCard, error) {
	rows, err := r.source.Query(ctx, gateway.TableServices,
		gateway.Where(gateway.Eq("is_active", true)), gateway.Asc("sort_order"), 0)
	if err != nil {
		return nil, fmt.Errorf("content: services: %w", err)
	}
	services, err := gateway.DecodeRows[booking.Service](rows)
	if err != nil {
		return nil, fmt.Errorf("content: decode services: %w", err)
	}
	out := make([]ServiceCard, 0, len(services))
	for _, s := range services {
		out = append(out, serviceCard(s))
	}
	return out, nil
}

// Branches returns active branches by name.
func (r *Reader) Branches(ctx context.Context) ([]booking.Branch, error) {
	rows, err := r.source.Query(ctx, gateway.TableBranches,
		gateway.Where(gateway.Eq("is_active", true)), gateway.Asc("name"), 0)
	if err != nil {
		return nil, fmt.Errorf("content: branches: %w", err)
	}
	return gateway.DecodeRows[booking.Branch](rows)
}

// Gallery returns the newest active gallery images.
func (r *Reader) Gallery(ctx context.Context, limit int) ([]GalleryItem, error) {
	rows, err := r.source.Query(ctx, gateway.TableGallery,
		gateway.Where(gateway.Eq("is_active", true)), gateway.Desc("created_at"), clampLimit(limit, GalleryLimit))
	if err != nil {
		return nil, fmt.Errorf("content: gallery: %w", err)
	}
	return gateway.DecodeRows[GalleryItem](rows)
}

// Testimonials returns the newest approved testimonials.
func (r *Reader) Testimonials(ctx context.Context, limit int) ([]Testimonial, error) {
	rows, err := r.source.Query(ctx, gateway.TableTestimonials,
		gateway.Where(gateway.Eq("is_approved", true)), gateway.Desc("created_at"), clampLimit(limit, TestimonialsLimit))
	if err != nil {
		return nil, fmt.Errorf("content: testimonials: %w", err)
	}
	return gateway.DecodeRows[Testimonial](rows)
}

// BlogPosts returns the newest published posts with their category.
func (r *Reader) BlogPosts(ctx context.Context, limit int) ([]BlogPost, error) {
	rows, err := r.source.Query(ctx, gateway.TableBlogPosts,
		gateway.Where(gateway.Eq("is_published", true)), gateway.Desc("published_at"), clampLimit(limit, BlogLimit))
	if err != nil {
		return nil, fmt.Errorf("content: blog posts: %w", err)
	}
	posts, err := gateway.DecodeRows[BlogPost](rows)
	if err != nil {
		return nil, fmt.Errorf("content: decode blog posts: %w", err)
	}
	return r.withCategories(ctx, posts)
}

// SearchBlog runs a full-text search over post titles. Unpublished posts are dropped.
func (r *Reader) SearchBlog(ctx context.Context, term string, limit int) ([]BlogPost, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrEmptySearch
	}
	rows, err := r.source.Search(ctx, gateway.TableBlogPosts, "title", term, 0)
	if err != nil {
		return nil, fmt.Errorf("content: search blog: %w", err)
	}
	posts, err := gateway.DecodeRows[BlogPost](rows)
	if err != nil {
		return nil, fmt.Errorf("content: decode blog posts: %w", err)
	}
	limit = clampLimit(limit, BlogLimit)
	published := make([]BlogPost, 0, len(posts))
	for _, p := range posts {
		if p.IsPublished && len(published) < limit {
			published = append(published, p)
		}
	}
	return r.withCategories(ctx, published)
}

func (r *Reader) withCategories(ctx context.Context, posts []BlogPost) ([]BlogPost, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, p := range posts {
		if p.CategoryID == nil || *p.CategoryID == "" {
			continue
		}
		if _, ok := seen[*p.CategoryID]; !ok {
			seen[*p.CategoryID] = struct{}{}
			ids = append(ids, *p.CategoryID)
		}
	}
	if len(ids) == 0 {
		return posts, nil
	}
	rows, err := r.source.Query(ctx, gateway.TableCategories, gateway.Where(gateway.In("id", ids...)), nil, 0)
	if err != nil {
		return nil, fmt.Errorf("content: blog categories: %w", err)
	}
	cats := make(map[string]BlogCategory, len(rows))
	for _, row := range rows {
		cats[row.String("id")] = BlogCategory{Name: row.String("name"), Slug: row.String("slug")}
	}
	for i := range posts {
		if posts[i].CategoryID == nil {
			continue
		}
		if c, ok := cats[*posts[i].CategoryID]; ok {
			posts[i].Category = &c
		}
	}
	return posts, nil
}
