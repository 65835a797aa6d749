package httpapi

import (
	"time"

	"github.com/louisbranch/topicfeed/internal/services/discovery/domain"
)

type listResponse struct {
	Title             string             `json:"title,omitempty"`
	Mode              string             `json:"mode,omitempty"`
	CanCreateCategory bool               `json:"can_create_category"`
	CanCreateTopic    bool               `json:"can_create_topic"`
	TopTags           []string           `json:"top_tags,omitempty"`
	Categories        []categoryResponse `json:"categories"`
	Topics            []topicResponse    `json:"topics"`
}

type categoryResponse struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Slug             string  `json:"slug"`
	Color            string  `json:"color,omitempty"`
	TextColor        string  `json:"text_color,omitempty"`
	Description      string  `json:"description,omitempty"`
	TopicCount       int     `json:"topic_count"`
	PostCount        int     `json:"post_count"`
	Position         int     `json:"position"`
	ParentCategoryID int64   `json:"parent_category_id,omitempty"`
	SubcategoryIDs   []int64 `json:"subcategory_ids,omitempty"`
	ReadRestricted   bool    `json:"read_restricted"`
}

type posterResponse struct {
	UserID         int64  `json:"user_id"`
	Username       string `json:"username"`
	AvatarTemplate string `json:"avatar_template,omitempty"`
	Description    string `json:"description,omitempty"`
}

type topicResponse struct {
	ID                 int64            `json:"id"`
	Title              string           `json:"title"`
	FancyTitle         string           `json:"fancy_title,omitempty"`
	Slug               string           `json:"slug"`
	CategoryID         int64            `json:"category_id"`
	PostsCount         int              `json:"posts_count"`
	ReplyCount         int              `json:"reply_count"`
	Views              int              `json:"views"`
	LikeCount          int              `json:"like_count"`
	HighestPostNumber  int              `json:"highest_post_number"`
	LastReadPostNumber int              `json:"last_read_post_number,omitempty"`
	Unseen             bool             `json:"unseen"`
	Pinned             bool             `json:"pinned"`
	Closed             bool             `json:"closed"`
	Archived           bool             `json:"archived"`
	Tags               []string         `json:"tags,omitempty"`
	BumpedAt           *time.Time       `json:"bumped_at,omitempty"`
	Posters            []posterResponse `json:"posters,omitempty"`
	Highlight          bool             `json:"highlight"`
}

func newListResponse(list *domain.CategoryList) listResponse {
	resp := listResponse{
		CanCreateCategory: list.CanCreateCategory(),
		CanCreateTopic:    list.CanCreateTopic(),
		Categories:        []categoryResponse{},
		Topics:            []topicResponse{},
	}
	for _, category := range list.Categories() {
		resp.Categories = append(resp.Categories, categoryResponse{
			ID:               category.ID,
			Name:             category.Name,
			Slug:             category.Slug,
			Color:            category.Color,
			TextColor:        category.TextColor,
			Description:      category.Description,
			TopicCount:       category.TopicCount,
			PostCount:        category.PostCount,
			Position:         category.Position,
			ParentCategoryID: category.ParentCategoryID,
			SubcategoryIDs:   category.SubcategoryIDs,
			ReadRestricted:   category.ReadRestricted,
		})
	}
	for _, topic := range list.Topics() {
		item := topicResponse{
			ID:                 topic.ID,
			Title:              topic.Title,
			FancyTitle:         topic.FancyTitle,
			Slug:               topic.Slug,
			CategoryID:         topic.CategoryID,
			PostsCount:         topic.PostsCount,
			ReplyCount:         topic.ReplyCount,
			Views:              topic.Views,
			LikeCount:          topic.LikeCount,
			HighestPostNumber:  topic.HighestPostNumber,
			LastReadPostNumber: topic.LastReadPostNumber,
			Unseen:             topic.Unseen,
			Pinned:             topic.Pinned,
			Closed:             topic.Closed,
			Archived:           topic.Archived,
			Tags:               topic.Tags,
			Highlight:          topic.Highlight,
		}
		if !topic.BumpedAt.IsZero() {
			bumped := topic.BumpedAt
			item.BumpedAt = &bumped
		}
		for _, poster := range topic.Posters {
			item.Posters = append(item.Posters, posterResponse{
				UserID:         poster.UserID,
				Username:       poster.Username,
				AvatarTemplate: poster.AvatarTemplate,
				Description:    poster.Description,
			})
		}
		resp.Topics = append(resp.Topics, item)
	}
	return resp
}
