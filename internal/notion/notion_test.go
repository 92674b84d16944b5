package notion

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"

	"github.com/RonStack/leaky-buckets/internal/domain"
)

type fakeService struct {
	databaseID string
	properties notionapi.Properties
	err        error
}

func (f *fakeService) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	f.databaseID = databaseID
	f.properties = properties
	if f.err != nil {
		return nil, f.err
	}
	return &notionapi.Page{ID: "page-1"}, nil
}

func TestExportMonth(t *testing.T) {
	svc := &fakeService{}
	e := NewExporter(svc, "db-1")

	summary := &domain.MonthSummary{
		MonthKey:         "2026-01",
		Locked:           true,
		TotalSpent:       88.19,
		TotalIncome:      2450.00,
		TransactionCount: 5,
		NeedsReview:      1,
		Buckets: []domain.BucketSummary{
			{Name: "Groceries", Emoji: "🛒", Spent: 70.70, Target: 100, Count: 2, Status: domain.StatusUnder},
			{Name: "Health", Emoji: "💊", Status: domain.StatusUnder},
		},
	}
	if err := e.ExportMonth(context.Background(), summary); err != nil {
		t.Fatalf("ExportMonth() error = %v", err)
	}
	if svc.databaseID != "db-1" {
		t.Errorf("databaseID = %q", svc.databaseID)
	}

	title, ok := svc.properties["Month"].(notionapi.TitleProperty)
	if !ok || title.Title[0].Text.Content != "2026-01" {
		t.Errorf("Month property = %+v", svc.properties["Month"])
	}
	if got := svc.properties["Total Spent"].(notionapi.NumberProperty).Number; got != 88.19 {
		t.Errorf("Total Spent = %v", got)
	}
	if !svc.properties["Locked"].(notionapi.CheckboxProperty).Checkbox {
		t.Error("Locked checkbox should be set")
	}

	// untouched buckets are left out of the breakdown
	breakdown := svc.properties["Buckets"].(notionapi.RichTextProperty).RichText[0].Text.Content
	if breakdown != "🛒 Groceries: 70.70 / 100.00 (under)" {
		t.Errorf("breakdown = %q", breakdown)
	}
}
