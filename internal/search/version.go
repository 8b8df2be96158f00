package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IndexVersion tracks the current schema version.
// Increment this whenever index mappings change.
const IndexVersion = 1

// CheckIndexVersion reports whether the discussions index is missing or
// older than IndexVersion
func (c *Client) CheckIndexVersion(ctx context.Context) (bool, error) {
	res, err := c.es.Indices.GetSettings(
		c.es.Indices.GetSettings.WithIndex(IndexDiscussions),
		c.es.Indices.GetSettings.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("failed to get index settings: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode == http.StatusNotFound {
			return true, nil
		}
		return false, fmt.Errorf("error getting index settings: %s", res.Status())
	}

	var settingsResp map[string]struct {
		Settings struct {
			Index struct {
				Custom struct {
					Version json.Number `json:"version"`
				} `json:"custom"`
			} `json:"index"`
		} `json:"settings"`
	}
	if err := json.NewDecoder(res.Body).Decode(&settingsResp); err != nil {
		return true, nil
	}

	stored, err := settingsResp[IndexDiscussions].Settings.Index.Custom.Version.Int64()
	if err != nil {
		return true, nil
	}
	return stored < IndexVersion, nil
}

// UpdateIndexVersion stamps the index with IndexVersion
func (c *Client) UpdateIndexVersion(ctx context.Context) error {
	body, err := json.Marshal(map[string]interface{}{
		"index": map[string]interface{}{
			"custom": map[string]interface{}{"version": IndexVersion},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal update body: %w", err)
	}

	res, err := c.es.Indices.PutSettings(
		bytes.NewReader(body),
		c.es.Indices.PutSettings.WithIndex(IndexDiscussions),
		c.es.Indices.PutSettings.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to update index settings: %w", err)
	}
	defer res.Body.Close()
	return responseError("updating index settings", res)
}

// DeleteIndex drops the discussions index
func (c *Client) DeleteIndex(ctx context.Context) error {
	res, err := c.es.Indices.Delete([]string{IndexDiscussions}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete index: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	return responseError("deleting index", res)
}

// Backfill reindexes every live discussion in batches
func (c *Client) Backfill(ctx context.Context, db *gorm.DB) (int, error) {
	indexed := 0
	var batch []models.Discussion
	err := db.WithContext(ctx).Preload("User").Order("created_at").
		FindInBatches(&batch, 200, func(tx *gorm.DB, _ int) error {
			for _, d := range batch {
				if err := c.IndexDiscussion(ctx, DiscussionToSearchDoc(d)); err != nil {
					logger.Log.Warn("Backfill failed for discussion", logger.WithDiscussionID(d.ID), zap.Error(err))
					continue
				}
				indexed++
			}
			return nil
		}).Error
	if err != nil {
		return indexed, fmt.Errorf("failed to read discussions: %w", err)
	}
	return indexed, nil
}

// EnsureIndex creates the index when missing and backfills it when the
// stored mapping version is out of date
func (c *Client) EnsureIndex(ctx context.Context, db *gorm.DB) error {
	outdated, err := c.CheckIndexVersion(ctx)
	if err != nil {
		return err
	}
	if !outdated {
		return nil
	}

	if err := c.DeleteIndex(ctx); err != nil {
		return err
	}
	if err := c.InitializeIndices(ctx); err != nil {
		return err
	}
	n, err := c.Backfill(ctx, db)
	if err != nil {
		return err
	}
	logger.Log.Info("Discussion index rebuilt", zap.Int("documents", n), zap.Int("version", IndexVersion))
	return c.UpdateIndexVersion(ctx)
}
