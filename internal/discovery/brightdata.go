package discovery

import (
	"context"
	"fmt"

	"github.com/storeforge/storeforge/internal/brightdata"
	"github.com/storeforge/storeforge/internal/store"
)

// BrightData adapts the dataset client to the Provider interface.
type BrightData struct {
	client *brightdata.Client
}

// NewBrightData wraps an existing client.
func NewBrightData(client *brightdata.Client) *BrightData {
	return &BrightData{client: client}
}

// ErrStillProcessing reports a collection job that outlived the polling
// window. The snapshot ID inside can be handed to brightdata.Client.Poll.
type ErrStillProcessing struct {
	SnapshotID string
}

func (e *ErrStillProcessing) Error() string {
	return fmt.Sprintf("discovery: snapshot %s still processing", e.SnapshotID)
}

func (b *BrightData) Search(ctx context.Context, keyword, marketplace string, limit int) ([]store.ProductRecord, error) {
	result, err := b.client.Search(ctx, keyword, MarketplaceURL(marketplace), limit)
	if err != nil {
		return nil, err
	}
	if result.Processing {
		return nil, &ErrStillProcessing{SnapshotID: result.SnapshotID}
	}
	products := store.DedupeProducts(result.Products)
	if len(products) > limit && limit > 0 {
		products = products[:limit]
	}
	return products, nil
}
