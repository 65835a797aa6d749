package domain

import (
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/topicfeed/internal/platform/errors"
)

// Payload is the upstream response shape shared by the category and topic
// endpoints and by preloaded cache entries. Sections a given endpoint does
// not return stay nil.
type Payload struct {
	CategoryList *CategoryListSection `json:"category_list,omitempty"`
	TopicList    *TopicListSection    `json:"topic_list,omitempty"`
	Users        []UserRecord         `json:"users,omitempty"`
}

// CategoryListSection carries categories and the viewer's creation permissions.
type CategoryListSection struct {
	CanCreateCategory bool             `json:"can_create_category"`
	CanCreateTopic    bool             `json:"can_create_topic"`
	Categories        []CategoryRecord `json:"categories"`
}

// TopicListSection carries a topic page and optional site-wide top tags.
type TopicListSection struct {
	TopTags       []string      `json:"top_tags,omitempty"`
	MoreTopicsURL string        `json:"more_topics_url,omitempty"`
	PerPage       int           `json:"per_page,omitempty"`
	Topics        []TopicRecord `json:"topics"`
}

// CategoryRecord is one category as serialized upstream.
type CategoryRecord struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	Slug              string  `json:"slug"`
	Color             string  `json:"color"`
	TextColor         string  `json:"text_color"`
	Description       string  `json:"description"`
	DescriptionText   string  `json:"description_text"`
	TopicCount        int     `json:"topic_count"`
	PostCount         int     `json:"post_count"`
	Position          int     `json:"position"`
	ParentCategoryID  int64   `json:"parent_category_id,omitempty"`
	SubcategoryIDs    []int64 `json:"subcategory_ids,omitempty"`
	ReadRestricted    bool    `json:"read_restricted"`
	NotificationLevel int     `json:"notification_level"`
	Permission        int     `json:"permission"`
}

// TopicRecord is one topic as serialized upstream.
type TopicRecord struct {
	ID                 int64          `json:"id"`
	Title              string         `json:"title"`
	FancyTitle         string         `json:"fancy_title"`
	Slug               string         `json:"slug"`
	CategoryID         int64          `json:"category_id"`
	PostsCount         int            `json:"posts_count"`
	ReplyCount         int            `json:"reply_count"`
	Views              int            `json:"views"`
	LikeCount          int            `json:"like_count"`
	HighestPostNumber  int            `json:"highest_post_number"`
	LastReadPostNumber int            `json:"last_read_post_number,omitempty"`
	Unseen             bool           `json:"unseen"`
	Pinned             bool           `json:"pinned"`
	Visible            bool           `json:"visible"`
	Closed             bool           `json:"closed"`
	Archived           bool           `json:"archived"`
	Tags               []string       `json:"tags,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	BumpedAt           time.Time      `json:"bumped_at"`
	LastPostedAt       time.Time      `json:"last_posted_at"`
	Posters            []PosterRecord `json:"posters,omitempty"`
}

// PosterRecord links a topic to one of the payload's users.
type PosterRecord struct {
	UserID      int64  `json:"user_id"`
	Description string `json:"description"`
	Extras      string `json:"extras,omitempty"`
}

// UserRecord is a side-loaded user referenced by topic posters.
type UserRecord struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	Name           string `json:"name"`
	AvatarTemplate string `json:"avatar_template"`
}

// DecodePayload parses a JSON payload.
func DecodePayload(data []byte) (Payload, error) {
	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Payload{}, apperrors.Wrap(apperrors.CodeMalformedPayload, "decode payload", err)
	}
	return payload, nil
}

// Overlay returns p with every section present in other replacing p's.
// Combining a categories-only entry with a topic-list entry yields the same
// payload the combined upstream endpoint returns.
func (p Payload) Overlay(other Payload) Payload {
	if other.CategoryList != nil {
		p.CategoryList = other.CategoryList
	}
	if other.TopicList != nil {
		p.TopicList = other.TopicList
	}
	if other.Users != nil {
		p.Users = other.Users
	}
	return p
}

// TopTags returns the payload's top tags when its topic list carries them.
func (p Payload) TopTags() ([]string, bool) {
	if p.TopicList == nil || p.TopicList.TopTags == nil {
		return nil, false
	}
	return p.TopicList.TopTags, true
}

// CategoriesFrom maps the payload's category section to list categories.
func CategoriesFrom(payload Payload) []Category {
	if payload.CategoryList == nil {
		return []Category{}
	}
	categories := make([]Category, 0, len(payload.CategoryList.Categories))
	for _, record := range payload.CategoryList.Categories {
		categories = append(categories, Category{
			ID:                record.ID,
			Name:              record.Name,
			Slug:              record.Slug,
			Color:             record.Color,
			TextColor:         record.TextColor,
			Description:       record.Description,
			DescriptionText:   record.DescriptionText,
			TopicCount:        record.TopicCount,
			PostCount:         record.PostCount,
			Position:          record.Position,
			ParentCategoryID:  record.ParentCategoryID,
			SubcategoryIDs:    append([]int64(nil), record.SubcategoryIDs...),
			ReadRestricted:    record.ReadRestricted,
			NotificationLevel: record.NotificationLevel,
			Permission:        record.Permission,
		})
	}
	return categories
}

// TopicsFrom maps the payload's topic section to list topics, resolving
// posters against the side-loaded users. Duplicate topic IDs within one
// payload keep their first occurrence.
func TopicsFrom(payload Payload) []*Topic {
	if payload.TopicList == nil {
		return []*Topic{}
	}
	users := make(map[int64]UserRecord, len(payload.Users))
	for _, user := range payload.Users {
		users[user.ID] = user
	}

	seen := make(map[int64]struct{}, len(payload.TopicList.Topics))
	topics := make([]*Topic, 0, len(payload.TopicList.Topics))
	for _, record := range payload.TopicList.Topics {
		if _, dup := seen[record.ID]; dup {
			continue
		}
		seen[record.ID] = struct{}{}

		posters := make([]Poster, 0, len(record.Posters))
		for _, poster := range record.Posters {
			user := users[poster.UserID]
			posters = append(posters, Poster{
				UserID:         poster.UserID,
				Username:       user.Username,
				AvatarTemplate: user.AvatarTemplate,
				Description:    poster.Description,
				Extras:         poster.Extras,
			})
		}
		topics = append(topics, &Topic{
			ID:                 record.ID,
			Title:              record.Title,
			FancyTitle:         record.FancyTitle,
			Slug:               record.Slug,
			CategoryID:         record.CategoryID,
			PostsCount:         record.PostsCount,
			ReplyCount:         record.ReplyCount,
			Views:              record.Views,
			LikeCount:          record.LikeCount,
			HighestPostNumber:  record.HighestPostNumber,
			LastReadPostNumber: record.LastReadPostNumber,
			Unseen:             record.Unseen,
			Pinned:             record.Pinned,
			Visible:            record.Visible,
			Closed:             record.Closed,
			Archived:           record.Archived,
			Tags:               append([]string(nil), record.Tags...),
			CreatedAt:          record.CreatedAt,
			BumpedAt:           record.BumpedAt,
			LastPostedAt:       record.LastPostedAt,
			Posters:            posters,
		})
	}
	return topics
}

// RequireCategoryList returns the category section or ErrMalformedPayload.
func RequireCategoryList(payload Payload) (*CategoryListSection, error) {
	if payload.CategoryList == nil {
		return nil, fmt.Errorf("payload missing category_list: %w", ErrMalformedPayload)
	}
	return payload.CategoryList, nil
}
