package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/oggyb/galatea/internal/metrics"
)

// ErrUnparsableProfile is returned when the completion text holds no usable name.
var ErrUnparsableProfile = errors.New("completion: profile response has no name")

// ProfileGenerator drafts a new companion from a short free-text description.
type ProfileGenerator interface {
	GenerateProfile(ctx context.Context, description string) (GeneratedProfile, error)
}

// GeneratedProfile is the draft a completion returns. Age is 0 when the
// model did not give a usable one.
type GeneratedProfile struct {
	Name        string   `json:"name"`
	Age         int      `json:"age"`
	Bio         string   `json:"bio"`
	Personality string   `json:"personality"`
	Interests   []string `json:"interests"`
}

// DescriptionTraits are the building blocks of RandomDescription, in output order.
var DescriptionTraits = [][]string{
	{"Indian", "African", "Asian", "Latina", "European", "Middle Eastern", "Mediterranean", "Caribbean"},
	{"casual", "sporty", "formal", "traditional", "summer", "winter"},
	{"posing", "sitting", "smiling at the camera"},
	{"on a sandy beach", "by a city waterfront", "in a dense forest", "on a mountain trail", "in a neon-lit city"},
	{"on a sunny day", "at sunset", "on a cloudy afternoon", "on a snowy evening"},
	{"holding a cup of coffee", "wearing sunglasses", "wearing a hat", ""},
}

// RandomDescription picks one option per trait group and joins them into a
// one-line character description.
func RandomDescription(f *gofakeit.Faker) string {
	if f == nil {
		f = gofakeit.New(0)
	}
	parts := make([]string, 0, len(DescriptionTraits))
	for _, options := range DescriptionTraits {
		if pick := f.RandomString(options); pick != "" {
			parts = append(parts, pick)
		}
	}
	if len(parts) < 3 {
		return strings.Join(parts, " ")
	}
	return fmt.Sprintf("%s woman in %s clothes, %s", parts[0], parts[1], strings.Join(parts[2:], ", "))
}

// BuildProfilePrompt asks for a dating-style profile as a single JSON object.
func BuildProfilePrompt(description string) []Turn {
	return []Turn{
		{Role: RoleSystem, Content: "You write short dating-app profiles for fictional AI companions. " +
			"Answer with one JSON object and nothing else."},
		{Role: RoleUser, Content: fmt.Sprintf(
			"Create a profile for a character described as: %s.\n"+
				`Use the keys "name" (first name only), "age" (18 to 60), "bio" (one or two sentences), `+
				`"personality" (a few words) and "interests" (3 to 5 short items).`,
			strings.TrimSpace(description),
		)},
	}
}

// GenerateProfile drafts a companion profile from description.
//
// Behavior:
//   - The reply may be a JSON object, possibly fenced, or "Name: ..." / "Bio: ..." lines.
//   - A reply without a name returns ErrUnparsableProfile.
func (c *Client) GenerateProfile(ctx context.Context, description string) (profile GeneratedProfile, err error) {
	start := time.Now()
	defer func() { metrics.ObserveCompletion(start, err) }()

	text, err := c.complete(ctx, BuildProfilePrompt(description))
	if err != nil {
		return GeneratedProfile{}, err
	}
	return ParseProfile(text)
}

// ParseProfile extracts a GeneratedProfile from completion text.
func ParseProfile(text string) (GeneratedProfile, error) {
	var p GeneratedProfile
	if i, j := strings.Index(text, "{"), strings.LastIndex(text, "}"); i >= 0 && j > i {
		var raw struct {
			Name        string          `json:"name"`
			Age         json.RawMessage `json:"age"`
			Bio         string          `json:"bio"`
			Personality string          `json:"personality"`
			Interests   []string        `json:"interests"`
		}
		if json.Unmarshal([]byte(text[i:j+1]), &raw) == nil {
			p = GeneratedProfile{
				Name:        raw.Name,
				Age:         parseAge(strings.Trim(string(raw.Age), `"`)),
				Bio:         raw.Bio,
				Personality: raw.Personality,
				Interests:   raw.Interests,
			}
		}
	}
	if strings.TrimSpace(p.Name) == "" {
		p = parseLabelled(text)
	}

	p.Name = strings.TrimSpace(p.Name)
	p.Bio = strings.TrimSpace(p.Bio)
	p.Personality = strings.TrimSpace(p.Personality)
	if p.Name == "" {
		return GeneratedProfile{}, ErrUnparsableProfile
	}
	if p.Age < 18 || p.Age > 120 {
		p.Age = 0
	}
	return p, nil
}

func parseLabelled(text string) GeneratedProfile {
	var p GeneratedProfile
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), "*[]")
		switch strings.ToLower(strings.Trim(strings.TrimSpace(key), "*- ")) {
		case "name":
			p.Name = value
		case "age":
			p.Age = parseAge(value)
		case "bio":
			p.Bio = value
		case "personality":
			p.Personality = value
		case "interests", "hobbies":
			for _, item := range strings.Split(value, ",") {
				if item = strings.TrimSpace(item); item != "" {
					p.Interests = append(p.Interests, item)
				}
			}
		}
	}
	return p
}

func parseAge(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
