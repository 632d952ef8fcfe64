package itunes

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"tuneflip/searchservice/internal/domain"
	"tuneflip/searchservice/internal/providers/common"
)

const defaultGenresEndpoint = "https://itunes.apple.com/WebObjects/MZStoreServices.woa/ws/genres?cc=US&lang=en-US"

// Apple encodes genre children as numeric keys inside each node object,
// alongside the node's own "id"/"name" fields.

const musicGenreRootID = "34"

var errMusicRootNotFound = errors.New("itunes genres: music root not found")

// Genres fetches Apple's genre tree and returns the Music subtree
// flattened to a list with full paths.
func (p *Provider) Genres(ctx context.Context) ([]domain.Genre, error) {
	var root map[string]json.RawMessage
	if err := common.FetchJSON(ctx, p.client, p.genresEndpoint, p.userAgent, &root); err != nil {
		return nil, err
	}

	musicRaw, ok := root[musicGenreRootID]
	if !ok {
		for _, raw := range root {
			if node, err := parseGenreNode(raw); err == nil && strings.EqualFold(node.name, "music") {
				musicRaw = raw
				ok = true
				break
			}
		}
	}
	if !ok {
		return nil, errMusicRootNotFound
	}

	music, err := parseGenreNode(musicRaw)
	if err != nil {
		return nil, err
	}

	var flat []domain.Genre
	flattenGenres(music, nil, &flat)
	return flat, nil
}

type genreNode struct {
	id       string
	name     string
	children []genreNode
}

func parseGenreNode(raw json.RawMessage) (genreNode, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return genreNode{}, err
	}

	node := genreNode{}
	if v, ok := fields["name"]; ok {
		_ = json.Unmarshal(v, &node.name)
	}
	if v, ok := fields["id"]; ok {
		node.id = decodeGenreID(v)
	}

	childKeys := make([]string, 0, len(fields))
	for key := range fields {
		if isDigits(key) {
			childKeys = append(childKeys, key)
		}
	}
	sort.Strings(childKeys)
	for _, key := range childKeys {
		child, err := parseGenreNode(fields[key])
		if err != nil {
			continue
		}
		node.children = append(node.children, child)
	}
	return node, nil
}

// decodeGenreID accepts the id as either a JSON string or a number.
func decodeGenreID(raw json.RawMessage) string {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber.String()
	}
	return ""
}

func flattenGenres(node genreNode, path []string, out *[]domain.Genre) {
	for _, child := range node.children {
		childPath := append(append([]string(nil), path...), child.name)
		*out = append(*out, domain.Genre{
			ID:    child.id,
			Name:  child.name,
			Path:  childPath,
			Label: strings.Join(childPath, " / "),
		})
		flattenGenres(child, childPath, out)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
