package plex

import (
	"context"
	"net/url"

	"plexhush/internal/library"
)

type photoContainer struct {
	Photos []struct {
		Key       string `xml:"key,attr"`
		RatingKey string `xml:"ratingKey,attr"`
		Selected  int    `xml:"selected,attr"`
	} `xml:"Photo"`
}

// Posters lists the poster candidates the server knows for an item.
func (c *Client) Posters(ctx context.Context, item *library.Item) ([]library.Poster, error) {
	var container photoContainer
	if err := c.get(ctx, "/library/metadata/"+item.RatingKey+"/posters", nil, &container); err != nil {
		return nil, err
	}
	posters := make([]library.Poster, 0, len(container.Photos))
	for _, photo := range container.Photos {
		key := photo.RatingKey
		if key == "" {
			key = photo.Key
		}
		posters = append(posters, library.Poster{Key: key, Selected: photo.Selected != 0})
	}
	return posters, nil
}

// UploadPoster installs a poster from a server-side source reference (a show
// or season thumb path) as the item's active poster.
func (c *Client) UploadPoster(ctx context.Context, item *library.Item, source string) error {
	query := url.Values{"url": {c.baseURL + source + "?X-Plex-Token=" + c.token}}
	return c.post(ctx, "/library/metadata/"+item.RatingKey+"/posters", query)
}

// SelectPoster makes a previously known candidate the item's active poster.
func (c *Client) SelectPoster(ctx context.Context, item *library.Item, key string) error {
	query := url.Values{"url": {key}}
	return c.put(ctx, "/library/metadata/"+item.RatingKey+"/poster", query)
}

// Tag adds a label to the item.
func (c *Client) Tag(ctx context.Context, item *library.Item, label string) error {
	query := url.Values{
		"label[0].tag.tag": {label},
		"label.locked":     {"1"},
	}
	return c.put(ctx, "/library/metadata/"+item.RatingKey, query)
}

// Untag removes a label from the item and unlocks the label field.
func (c *Client) Untag(ctx context.Context, item *library.Item, label string) error {
	query := url.Values{
		"label[].tag.tag-": {label},
		"label.locked":     {"0"},
	}
	return c.put(ctx, "/library/metadata/"+item.RatingKey, query)
}
