package gateway

// Table names exposed through the row API.
const (
	TableServices        = "services"
	TableBranches        = "branches"
	TableBookings        = "bookings"
	TableContactMessages = "contact_messages"
	TableServiceRequests = "service_requests"
	TableProducts        = "products"
	TableCategories      = "categories"
	TableUsers           = "users"
	TableGallery         = "gallery"
	TableTestimonials    = "testimonials"
	TableBlogPosts       = "blog_posts"
)

type columnSet map[string]struct{}

func columns(names ...string) columnSet {
	set := make(columnSet, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// schema is the allowlist of tables and columns reachable through Query,
// Count, Search, Insert and Update. Identifiers never come from callers
// unchecked.
var schema = map[string]columnSet{
	TableServices: columns("id", "name", "description", "image_url", "price_from", "price_to",
		"duration_minutes", "is_active", "sort_order", "created_at"),
	TableBranches: columns("id", "name", "address", "phone", "email", "opening_hours", "latitude",
		"longitude", "is_active", "created_at"),
	TableBookings: columns("id", "customer_name", "customer_email", "customer_phone", "service_id",
		"branch_id", "preferred_date", "preferred_time", "notes", "status", "created_at"),
	TableContactMessages: columns("id", "name", "email", "phone", "subject", "message", "type",
		"status", "created_at"),
	TableServiceRequests: columns("id", "customer_name", "customer_email", "customer_phone",
		"service_type", "description", "preferred_date", "urgency", "status", "created_at"),
	TableProducts: columns("id", "name", "description", "short_description", "price", "compare_price",
		"image_url", "gallery_images", "category_id", "stock_quantity", "sku", "specifications",
		"is_active", "is_featured", "created_at"),
	TableCategories:   columns("id", "name", "slug", "is_active", "sort_order"),
	TableUsers:        columns("id", "email", "full_name", "avatar_url", "phone", "role", "updated_at", "created_at"),
	TableGallery:      columns("id", "title", "image_url", "is_active", "created_at"),
	TableTestimonials: columns("id", "customer_name", "content", "rating", "is_approved", "created_at"),
	TableBlogPosts: columns("id", "title", "slug", "excerpt", "content", "category_id", "is_published",
		"published_at"),
}

// KnownTable reports whether table is reachable through the row API.
func KnownTable(table string) bool {
	_, ok := schema[table]
	return ok
}

func checkColumn(table, column string) error {
	cols, ok := schema[table]
	if !ok {
		return &QueryError{Code: CodeUndefinedTable, Message: "unknown table " + table, Table: table, Err: ErrUnknownTable}
	}
	if _, ok := cols[column]; !ok {
		return &QueryError{Code: CodeUndefinedColumn, Message: "unknown column " + table + "." + column, Table: table, Err: ErrUnknownColumn}
	}
	return nil
}

func checkTable(table string) error {
	if !KnownTable(table) {
		return &QueryError{Code: CodeUndefinedTable, Message: "unknown table " + table, Table: table, Err: ErrUnknownTable}
	}
	return nil
}
