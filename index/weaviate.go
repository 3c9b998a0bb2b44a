// Package index mirrors summarized videos into a weaviate instance for
// semantic search. The store stays the source of truth; the index can be
// rebuilt from it at any time.
package index

import (
	"context"
	"net/http"

	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/fault"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/tubescribe/tubescribe/model"
)

const className = "VideoSummary"

type Weaviate struct {
	client *weaviate.Client
}

func NewWeaviate(host, weaviateAPIKey, openaiAPIKey string) (*Weaviate, error) {
	config := weaviate.Config{
		Scheme:     "https",
		Host:       host,
		AuthConfig: auth.ApiKey{Value: weaviateAPIKey},
		Headers: map[string]string{
			"X-OpenAI-Api-Key": openaiAPIKey,
		},
	}

	c, err := weaviate.NewClient(config)
	if err != nil {
		return nil, err
	}

	return &Weaviate{client: c}, nil
}

func (w *Weaviate) ResetSchema() error {
	// delete old
	if err := w.client.Schema().ClassDeleter().WithClassName(className).Do(context.Background()); err != nil {
		// a 400 means the class does not exist yet
		if status, ok := err.(*fault.WeaviateClientError); ok && status.StatusCode != http.StatusBadRequest {
			return err
		}
	}

	// create new
	classObj := &models.Class{
		Class:      className,
		Vectorizer: "text2vec-openai",
		ModuleConfig: map[string]any{
			"text2vec-openai": map[string]any{
				"model":        "ada",
				"modelVersion": "002",
				"type":         "text",
			},
		},
	}

	return w.client.Schema().ClassCreator().WithClass(classObj).Do(context.Background())
}

// Index upserts one summarized item. The weaviate object id equals the
// item id, so re-indexing is idempotent.
func (w *Weaviate) Index(ctx context.Context, item model.VideoItem, summary model.Summary) error {
	properties := map[string]any{
		"tenantId":  item.TenantID.String(),
		"youtubeId": string(item.YoutubeID),
		"title":     item.Title,
		"channel":   item.Channel,
		"summary":   summary.Text,
		"category":  summary.Category,
	}

	vID := item.ID.String()
	exists, err := w.client.Data().
		Checker().
		WithID(vID).
		WithClassName(className).
		Do(ctx)
	if err != nil {
		return err
	}

	if exists {
		return w.client.Data().
			Updater().
			WithID(vID).
			WithClassName(className).
			WithProperties(properties).
			Do(ctx)
	}

	_, err = w.client.Data().
		Creator().
		WithClassName(className).
		WithID(vID).
		WithProperties(properties).
		Do(ctx)

	return err
}
