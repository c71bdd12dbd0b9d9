package insight

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/FACorreiaa/go-municipio-insights/internal/types"
)

var ErrNoIdeas = errors.New("no app ideas in response")

// cleanJSONArray strips markdown fences and any prose around the outermost array.
func cleanJSONArray(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	first := strings.Index(response, "[")
	if first == -1 {
		return response
	}
	last := strings.LastIndex(response, "]")
	if last == -1 || last <= first {
		return response
	}
	return strings.TrimSpace(response[first : last+1])
}

// appIdeaWire accepts any JSON id; the model is not consistent about its type.
type appIdeaWire struct {
	ID          json.RawMessage `json:"id"`
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
}

// wireID returns the id when it is a positive whole number, else 0.
func wireID(raw json.RawMessage) int {
	v, err := strconv.ParseFloat(strings.Trim(strings.TrimSpace(string(raw)), `"`), 64)
	if err != nil || v < 1 || v != math.Trunc(v) || v > math.MaxInt32 {
		return 0
	}
	return int(v)
}

// ParseAppIdeas decodes the untrusted ideas text. Ideas whose id is missing,
// repeated or not a positive integer are renumbered so every idea can be
// addressed.
func ParseAppIdeas(text string) ([]types.AppIdea, error) {
	var wire []appIdeaWire
	if err := json.Unmarshal([]byte(cleanJSONArray(text)), &wire); err != nil {
		return nil, fmt.Errorf("failed to parse app ideas JSON: %w", err)
	}
	if len(wire) == 0 {
		return nil, ErrNoIdeas
	}

	ideas := make([]types.AppIdea, len(wire))
	for i, w := range wire {
		ideas[i] = types.AppIdea{ID: wireID(w.ID), Title: w.Title, Category: w.Category, Description: w.Description}
	}

	seen := make(map[int]bool, len(ideas))
	renumber := false
	for _, idea := range ideas {
		if idea.ID <= 0 || seen[idea.ID] {
			renumber = true
			break
		}
		seen[idea.ID] = true
	}
	if renumber {
		for i := range ideas {
			ideas[i].ID = i + 1
		}
	}
	return ideas, nil
}
