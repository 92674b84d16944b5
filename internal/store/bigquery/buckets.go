package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/RonStack/leaky-buckets/internal/domain"
	"github.com/RonStack/leaky-buckets/internal/store"
)

// ListBuckets returns every bucket, ordered for display.
func (r *Repository) ListBuckets(ctx context.Context) ([]*domain.Bucket, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT bucket_id, name, emoji, monthly_target, display_order
		FROM %s
		ORDER BY display_order, name
	`, r.qualified(bucketsTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListBuckets: query read: %w", err)
	}

	var out []*domain.Bucket
	for {
		var row BucketRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListBuckets: iter next: %w", err)
		}
		out = append(out, &domain.Bucket{
			ID:            row.BucketID,
			Name:          row.Name,
			Emoji:         row.Emoji,
			MonthlyTarget: row.MonthlyTarget,
			DisplayOrder:  int(row.DisplayOrder),
		})
	}
	return out, nil
}

// GetBucket returns a bucket by id.
func (r *Repository) GetBucket(ctx context.Context, id string) (*domain.Bucket, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT bucket_id, name, emoji, monthly_target, display_order
		FROM %s
		WHERE bucket_id = @bucket_id
		LIMIT 1
	`, r.qualified(bucketsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "bucket_id", Value: id},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetBucket: query read: %w", err)
	}

	var row BucketRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, fmt.Errorf("bucket %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetBucket: iter next: %w", err)
	}

	return &domain.Bucket{
		ID:            row.BucketID,
		Name:          row.Name,
		Emoji:         row.Emoji,
		MonthlyTarget: row.MonthlyTarget,
		DisplayOrder:  int(row.DisplayOrder),
	}, nil
}

// UpdateBucket applies the non-nil fields of upd to a bucket.
func (r *Repository) UpdateBucket(ctx context.Context, id string, upd domain.BucketUpdate) (*domain.Bucket, error) {
	existing, err := r.GetBucket(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		existing.Name = *upd.Name
	}
	if upd.Emoji != nil {
		existing.Emoji = *upd.Emoji
	}
	if upd.MonthlyTarget != nil {
		existing.MonthlyTarget = *upd.MonthlyTarget
	}

	stmt := fmt.Sprintf(`
		UPDATE %s
		SET name = @name,
		    emoji = @emoji,
		    monthly_target = @monthly_target
		WHERE bucket_id = @bucket_id
	`, r.qualified(bucketsTable))

	params := []bigquery.QueryParameter{
		{Name: "name", Value: existing.Name},
		{Name: "emoji", Value: existing.Emoji},
		{Name: "monthly_target", Value: existing.MonthlyTarget},
		{Name: "bucket_id", Value: id},
	}
	if err := r.runDML(ctx, stmt, params); err != nil {
		return nil, fmt.Errorf("UpdateBucket: %w", err)
	}
	return existing, nil
}

// CreateBucketIfMissing conditionally creates a bucket keyed by name. The
// MERGE leaves an existing row untouched, so re-seeding never clobbers user
// edits. It reports whether a row was inserted.
func (r *Repository) CreateBucketIfMissing(ctx context.Context, b *domain.Bucket) (bool, error) {
	existing, err := r.findBucketByName(ctx, b.Name)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	stmt := fmt.Sprintf(`
		MERGE %s t
		USING (SELECT @name AS name) src
		ON t.name = src.name
		WHEN NOT MATCHED THEN INSERT
			(bucket_id, name, emoji, monthly_target, display_order)
		VALUES
			(@bucket_id, @name, @emoji, @monthly_target, @display_order)
	`, r.qualified(bucketsTable))

	params := []bigquery.QueryParameter{
		{Name: "bucket_id", Value: b.ID},
		{Name: "name", Value: b.Name},
		{Name: "emoji", Value: b.Emoji},
		{Name: "monthly_target", Value: b.MonthlyTarget},
		{Name: "display_order", Value: int64(b.DisplayOrder)},
	}
	if err := r.runDML(ctx, stmt, params); err != nil {
		return false, fmt.Errorf("CreateBucketIfMissing: %w", err)
	}
	return true, nil
}

func (r *Repository) findBucketByName(ctx context.Context, name string) (*domain.Bucket, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT bucket_id, name, emoji, monthly_target, display_order
		FROM %s
		WHERE name = @name
		LIMIT 1
	`, r.qualified(bucketsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "name", Value: name},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("findBucketByName: query read: %w", err)
	}

	var row BucketRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("findBucketByName: iter next: %w", err)
	}
	return &domain.Bucket{
		ID:            row.BucketID,
		Name:          row.Name,
		Emoji:         row.Emoji,
		MonthlyTarget: row.MonthlyTarget,
		DisplayOrder:  int(row.DisplayOrder),
	}, nil
}

var _ store.BucketRepository = (*Repository)(nil)
