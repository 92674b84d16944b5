package domain

// Bucket is a user-editable spending category with an optional monthly
// target. A zero target means "unset".
type Bucket struct {
	ID            string  `json:"bucketId"`
	Name          string  `json:"name"`
	Emoji         string  `json:"emoji"`
	MonthlyTarget float64 `json:"monthlyTarget"`
	DisplayOrder  int     `json:"displayOrder"`
}

// BucketUpdate carries the user-editable fields of a bucket. Nil fields are
// left untouched.
type BucketUpdate struct {
	Name          *string  `json:"name,omitempty"`
	Emoji         *string  `json:"emoji,omitempty"`
	MonthlyTarget *float64 `json:"monthlyTarget,omitempty"`
}

// DefaultBuckets returns the canonical bucket set used to seed a new
// household. Seeding is conditional per name: existing buckets, including
// user edits, are never overwritten.
func DefaultBuckets() []Bucket {
	names := []struct {
		name  string
		emoji string
	}{
		{"Home & Utilities", "🏠"},
		{"Groceries", "🛒"},
		{"Dining & Coffee", "☕"},
		{"Subscriptions", "📱"},
		{"Health", "💊"},
		{"Transport", "🚗"},
		{"Fun & Travel", "🎉"},
		{"One-Off & Big Hits", "💥"},
	}

	buckets := make([]Bucket, 0, len(names))
	for i, n := range names {
		buckets = append(buckets, Bucket{
			Name:         n.name,
			Emoji:        n.emoji,
			DisplayOrder: i,
		})
	}
	return buckets
}
