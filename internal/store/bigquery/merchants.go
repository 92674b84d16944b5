package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/RonStack/leaky-buckets/internal/domain"
	"github.com/RonStack/leaky-buckets/internal/store"
)

// Lookup returns the remembered bucket for a merchant key, or (nil, nil)
// when the merchant is unknown.
func (r *Repository) Lookup(ctx context.Context, key string) (*domain.MerchantEntry, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT merchant_key, bucket, original_description, updated_ts
		FROM %s
		WHERE merchant_key = @merchant_key
		LIMIT 1
	`, r.qualified(merchantsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "merchant_key", Value: key},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("Lookup: query read: %w", err)
	}

	var row MerchantRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Lookup: iter next: %w", err)
	}

	return &domain.MerchantEntry{
		Key:                 row.MerchantKey,
		Bucket:              row.Bucket,
		OriginalDescription: row.OriginalDescription,
		UpdatedAt:           row.UpdatedTS,
	}, nil
}

// ListAll returns every remembered merchant, ordered by key.
func (r *Repository) ListAll(ctx context.Context) ([]*domain.MerchantEntry, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT merchant_key, bucket, original_description, updated_ts
		FROM %s
		ORDER BY merchant_key
	`, r.qualified(merchantsTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAll: query read: %w", err)
	}

	var out []*domain.MerchantEntry
	for {
		var row MerchantRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAll: iter next: %w", err)
		}
		out = append(out, &domain.MerchantEntry{
			Key:                 row.MerchantKey,
			Bucket:              row.Bucket,
			OriginalDescription: row.OriginalDescription,
			UpdatedAt:           row.UpdatedTS,
		})
	}
	return out, nil
}

// Upsert creates or overwrites the entry for its merchant key. Last write
// wins; no history is kept.
func (r *Repository) Upsert(ctx context.Context, entry *domain.MerchantEntry) error {
	stmt := fmt.Sprintf(`
		MERGE %s m
		USING (SELECT @merchant_key AS merchant_key) src
		ON m.merchant_key = src.merchant_key
		WHEN MATCHED THEN UPDATE SET
			bucket = @bucket,
			original_description = @original_description,
			updated_ts = @updated_ts
		WHEN NOT MATCHED THEN INSERT
			(merchant_key, bucket, original_description, updated_ts)
		VALUES
			(@merchant_key, @bucket, @original_description, @updated_ts)
	`, r.qualified(merchantsTable))

	params := []bigquery.QueryParameter{
		{Name: "merchant_key", Value: entry.Key},
		{Name: "bucket", Value: entry.Bucket},
		{Name: "original_description", Value: entry.OriginalDescription},
		{Name: "updated_ts", Value: entry.UpdatedAt},
	}
	if err := r.runDML(ctx, stmt, params); err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

var _ store.MerchantRepository = (*Repository)(nil)
