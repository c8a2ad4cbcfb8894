package plex

import (
	"context"
	"net/url"
	"strings"

	"plexhush/internal/library"
)

// Plex metadata type codes used by the /all endpoint.
const (
	typeMovie   = "1"
	typeEpisode = "4"
)

type videoElement struct {
	GUID             string `xml:"guid,attr"`
	RatingKey        string `xml:"ratingKey,attr"`
	Type             string `xml:"type,attr"`
	Title            string `xml:"title,attr"`
	Summary          string `xml:"summary,attr"`
	Index            int    `xml:"index,attr"`
	ParentIndex      int    `xml:"parentIndex,attr"`
	GrandparentTitle string `xml:"grandparentTitle,attr"`
	Year             int    `xml:"year,attr"`
	ViewCount        int    `xml:"viewCount,attr"`
	Thumb            string `xml:"thumb,attr"`
	ParentThumb      string `xml:"parentThumb,attr"`
	GrandparentThumb string `xml:"grandparentThumb,attr"`
	Labels           []struct {
		Tag string `xml:"tag,attr"`
	} `xml:"Label"`
}

type videoContainer struct {
	Videos []videoElement `xml:"Video"`
}

// ListItems fetches a full snapshot of every episode and movie in the
// configured sections. Sections that are missing or are neither movie nor
// show libraries are skipped with a warning, matching the tool's tolerant
// startup behavior.
func (c *Client) ListItems(ctx context.Context) (library.Snapshot, error) {
	sections, err := c.sectionsByName(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := make(library.Snapshot)
	for _, name := range c.libraries {
		sec, ok := sections[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			c.log.Warn("plex library not found, ignoring", "library", name)
			continue
		}
		switch sec.Type {
		case "show":
			if err := c.loadSection(ctx, sec, typeEpisode, snapshot); err != nil {
				return nil, err
			}
		case "movie":
			if err := c.loadSection(ctx, sec, typeMovie, snapshot); err != nil {
				return nil, err
			}
		default:
			c.log.Warn("plex library is not a TV or movie library, ignoring", "library", name, "type", sec.Type)
		}
	}
	return snapshot, nil
}

// Reload re-fetches the library and filters the snapshot down to the
// requested GUIDs. Items the server no longer knows are absent from the
// result.
func (c *Client) Reload(ctx context.Context, guids []string) (library.Snapshot, error) {
	full, err := c.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	out := make(library.Snapshot, len(guids))
	for _, guid := range guids {
		if item, ok := full[guid]; ok {
			out[guid] = item
		}
	}
	return out, nil
}

func (c *Client) loadSection(ctx context.Context, sec section, metaType string, snapshot library.Snapshot) error {
	query := url.Values{
		"type":          {metaType},
		"includeLabels": {"1"},
	}
	var container videoContainer
	if err := c.get(ctx, "/library/sections/"+sec.Key+"/all", query, &container); err != nil {
		return err
	}
	for _, video := range container.Videos {
		item := videoToItem(video)
		if item.GUID == "" {
			continue
		}
		snapshot[item.GUID] = item
	}
	c.log.Debug("loaded section", "library", sec.Title, "items", len(container.Videos))
	return nil
}

func videoToItem(video videoElement) *library.Item {
	kind := library.KindMovie
	if video.Type == "episode" {
		kind = library.KindEpisode
	}
	item := &library.Item{
		GUID:             video.GUID,
		RatingKey:        video.RatingKey,
		Kind:             kind,
		Show:             video.GrandparentTitle,
		Season:           video.ParentIndex,
		Episode:          video.Index,
		Year:             video.Year,
		Title:            video.Title,
		Summary:          video.Summary,
		Thumb:            video.Thumb,
		ParentThumb:      video.ParentThumb,
		GrandparentThumb: video.GrandparentThumb,
		Watched:          video.ViewCount > 0,
	}
	for _, label := range video.Labels {
		if label.Tag != "" {
			item.Labels = append(item.Labels, label.Tag)
		}
	}
	return item
}
