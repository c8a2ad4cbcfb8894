package plex

import (
	"context"
	"net/url"

	"plexhush/internal/library"
	"plexhush/internal/services"
)

// fieldParam maps managed fields to the query parameter Plex's edit endpoint
// expects. Thumbnails are not edited through this path.
var fieldParam = map[library.Field]string{
	library.FieldSummary: "summary",
	library.FieldTitle:   "title",
}

// WriteField sets a text field to a new value. locked pins the value so the
// next agent refresh does not overwrite it.
func (c *Client) WriteField(ctx context.Context, item *library.Item, field library.Field, value string, locked bool) error {
	param, ok := fieldParam[field]
	if !ok {
		return services.Wrap(services.ErrPrecondition, "write field", "field "+string(field)+" is not writable", nil)
	}
	query := url.Values{
		param + ".value":  {value},
		param + ".locked": {boolFlag(locked)},
	}
	if err := c.put(ctx, "/library/metadata/"+item.RatingKey, query); err != nil {
		return err
	}
	c.log.Debug("wrote field", "item", item.String(), "field", field, "locked", locked)
	return nil
}

// TriggerRefresh asks the server to regenerate the item's metadata. The call
// returns before the refresh completes; completion is observed through the
// notification stream.
func (c *Client) TriggerRefresh(ctx context.Context, item *library.Item) error {
	return c.put(ctx, "/library/metadata/"+item.RatingKey+"/refresh", nil)
}

func boolFlag(value bool) string {
	if value {
		return "1"
	}
	return "0"
}
