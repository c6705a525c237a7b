package content

import (
	"time"

	"github.com/wolfman30/quickie-platform/internal/booking"
)

// Default and maximum page sizes.
const (
	GalleryLimit      = 20
	TestimonialsLimit = 10
	BlogLimit         = 10
	maxLimit          = 50
)

// GalleryItem is a row of gallery.
type GalleryItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Testimonial is an approved customer quote.
type Testimonial struct {
	ID           string    `json:"id"`
	CustomerName string    `json:"customer_name"`
	Content      string    `json:"content"`
	Rating       int       `json:"rating"`
	CreatedAt    time.Time `json:"created_at"`
}

// Stars clamps the rating to 0..5.
func (t Testimonial) Stars() int {
	return min(max(t.Rating, 0), 5)
}

// BlogCategory is the category joined onto a post.
type BlogCategory struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// BlogPost is a row of blog_posts.
type BlogPost struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Excerpt     string        `json:"excerpt"`
	Content     string        `json:"content"`
	CategoryID  *string       `json:"category_id"`
	IsPublished bool          `json:"is_published"`
	PublishedAt *time.Time    `json:"published_at"`
	Category    *BlogCategory `json:"categories,omitempty"`
}

// ServiceCard is a public service listing entry.
type ServiceCard struct {
	booking.Service
	PriceLabel    string `json:"price_label"`
	DurationLabel string `json:"duration_label"`
}

func serviceCard(s booking.Service) ServiceCard {
	return ServiceCard{Service: s, PriceLabel: s.PriceLabel(), DurationLabel: s.DurationLabel()}
}
