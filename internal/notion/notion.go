// Package notion exports month summaries to a Notion database, one page
// per month. Intended for the end-of-month ritual: lock, then export.
package notion

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"

	"github.com/RonStack/leaky-buckets/internal/domain"
	"github.com/RonStack/leaky-buckets/internal/logger"
)

// Service is the slice of the Notion API the exporter needs. It exists so
// tests can fake the client.
type Service interface {
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
}

// Client implements Service with the official SDK.
type Client struct {
	client *notionapi.Client
}

// NewClient creates a Notion client from an API token.
func NewClient(token string) *Client {
	return &Client{client: notionapi.NewClient(notionapi.Token(token))}
}

func (c *Client) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	}
	page, err := c.client.Page.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("CreatePage: %w", err)
	}
	return page, nil
}

// Exporter pushes month summaries into one Notion database.
type Exporter struct {
	service    Service
	databaseID string
}

// NewExporter wires an exporter.
func NewExporter(service Service, databaseID string) *Exporter {
	return &Exporter{service: service, databaseID: databaseID}
}

// ExportMonth creates a page for the summary.
func (e *Exporter) ExportMonth(ctx context.Context, summary *domain.MonthSummary) error {
	log := logger.FromContext(ctx)

	page, err := e.service.CreatePage(ctx, e.databaseID, SummaryToProperties(summary))
	if err != nil {
		return fmt.Errorf("ExportMonth %s: %w", summary.MonthKey, err)
	}
	log.Info().Str("month", summary.MonthKey).Str("page", string(page.ID)).
		Msg("month summary exported to Notion")
	return nil
}

// SummaryToProperties maps a month summary onto the Notion database schema.
func SummaryToProperties(s *domain.MonthSummary) notionapi.Properties {
	props := notionapi.Properties{
		"Month": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: s.MonthKey},
				},
			},
		},
		"Total Spent": notionapi.NumberProperty{
			Number: s.TotalSpent,
		},
		"Total Income": notionapi.NumberProperty{
			Number: s.TotalIncome,
		},
		"Transactions": notionapi.NumberProperty{
			Number: float64(s.TransactionCount),
		},
		"Needs Review": notionapi.NumberProperty{
			Number: float64(s.NeedsReview),
		},
		"Locked": notionapi.CheckboxProperty{
			Checkbox: s.Locked,
		},
	}

	if breakdown := bucketBreakdown(s.Buckets); breakdown != "" {
		props["Buckets"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: breakdown},
				},
			},
		}
	}
	return props
}

func bucketBreakdown(buckets []domain.BucketSummary) string {
	var lines []string
	for _, b := range buckets {
		if b.Count == 0 && b.Spent == 0 {
			continue
		}
		if b.Target > 0 {
			lines = append(lines, fmt.Sprintf("%s %s: %.2f / %.2f (%s)", b.Emoji, b.Name, b.Spent, b.Target, b.Status))
		} else {
			lines = append(lines, fmt.Sprintf("%s %s: %.2f (%s)", b.Emoji, b.Name, b.Spent, b.Status))
		}
	}
	return strings.Join(lines, "\n")
}
