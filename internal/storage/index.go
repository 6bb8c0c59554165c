package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ime-hub/postscrape/internal/post"
)

const listCacheTTL = 5 * time.Minute

// IndexedPost mirrors one canonical post for API queries. The JSON files
// under the output directory stay the source of truth; this table only
// serves the read API.
type IndexedPost struct {
	ID            string            `gorm:"primaryKey;size:40" json:"id"`
	Slug          string            `gorm:"size:64;uniqueIndex" json:"slug"`
	Type          string            `gorm:"size:16;index" json:"type"`
	Title         string            `gorm:"size:512" json:"title"`
	Subtitle      string            `gorm:"size:600" json:"subtitle"`
	Tags          datatypes.JSON    `gorm:"type:jsonb" json:"tags"`
	DatePublished string            `gorm:"size:10;index" json:"datePublished"`
	Deadline      string            `gorm:"size:10" json:"deadline"`
	LastCheckedAt string            `gorm:"size:10" json:"lastCheckedAt"`
	SourceName    string            `gorm:"size:128" json:"sourceName"`
	SourceURL     string            `gorm:"size:1024" json:"sourceUrl"`
	HeroImage     string            `gorm:"size:1024" json:"heroImage"`
	Payload       datatypes.JSONMap `gorm:"type:jsonb" json:"payload"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Index is the Postgres-backed post index with a Redis list cache.
type Index struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewIndex(dsn, redisAddr string) (*Index, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&IndexedPost{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed: %v", err)
	}

	return &Index{DB: db, Redis: rdb}, nil
}

// SavePost upserts one canonical post into the index, keyed by slug so a
// re-observed post updates its existing row.
func (ix *Index) SavePost(doc *post.Doc, slug string) error {
	tags, err := json.Marshal(doc.Tags)
	if err != nil {
		return err
	}

	row := &IndexedPost{
		ID:            doc.ID,
		Slug:          slug,
		Type:          doc.Type,
		Title:         doc.Title,
		Subtitle:      doc.Subtitle,
		Tags:          datatypes.JSON(tags),
		DatePublished: doc.DatePublished,
		Deadline:      doc.Deadline,
		LastCheckedAt: doc.LastCheckedAt,
		SourceName:    doc.SourceName,
		SourceURL:     doc.SourceURL,
		HeroImage:     doc.HeroImage,
		Payload:       datatypes.JSONMap(doc.Payload),
	}

	if err := ix.DB.Where("slug = ?", slug).FirstOrCreate(row).Error; err != nil {
		return err
	}
	return ix.DB.Model(row).Updates(map[string]any{
		"deadline":        doc.Deadline,
		"last_checked_at": doc.LastCheckedAt,
		"payload":         datatypes.JSONMap(doc.Payload),
	}).Error
}

// ListPosts returns posts filtered by category and optional publish date,
// newest first, with a short-lived Redis cache in front of the database.
func (ix *Index) ListPosts(postType string, limit int, date string) ([]IndexedPost, error) {
	if limit <= 0 || limit > 1000 {
		limit = 20
	}

	ctx := context.Background()
	cacheKey := fmt.Sprintf("posts:list:%s:%d:%s", postType, limit, date)

	if ix.Redis != nil {
		if bs, err := ix.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []IndexedPost
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var list []IndexedPost
	db := ix.DB.Model(&IndexedPost{})
	if postType != "" {
		db = db.Where("type = ?", postType)
	}
	if date != "" {
		db = db.Where("date_published = ?", date)
	}
	if err := db.Order("date_published DESC").Order("id DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}

	if ix.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			_ = ix.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}
	return list, nil
}

// ListDates returns the distinct publish dates with data, newest first.
func (ix *Index) ListDates(limit int) ([]string, error) {
	if limit <= 0 || limit > 365 {
		limit = 31
	}

	ctx := context.Background()
	cacheKey := fmt.Sprintf("posts:dates:%d", limit)
	if ix.Redis != nil {
		if bs, err := ix.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []string
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var rows []struct{ D string }
	err := ix.DB.Raw(
		`SELECT DISTINCT date_published AS d FROM indexed_posts ORDER BY d DESC LIMIT ?`, limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.D != "" {
			dates = append(dates, r.D)
		}
	}

	if ix.Redis != nil && len(dates) > 0 {
		if bs, err := json.Marshal(dates); err == nil {
			_ = ix.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}
	return dates, nil
}
