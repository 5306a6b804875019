package compose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge-backend/internal/model"
)

func TestComposeFullRequest(t *testing.T) {
	req := &model.Request{
		Cuisine:    "italian",
		NumPeople:  2,
		DiningDate: "2025-10-09",
		DiningTime: "19:00",
		Email:      "a@b.com",
	}
	results := []model.Restaurant{
		{ID: "id1", Name: "Trattoria", Address: "1 Main St"},
		{ID: "id3", Name: "Luigi's"},
	}

	msg := Compose(req, results)

	assert.Equal(t, "Italian suggestions", msg.Subject)

	lines := strings.Split(msg.Body, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Here are my Italian suggestions for 2 people, for Thursday, October 9, 2025 at 7 pm:", lines[0])
	assert.Equal(t, "1. Trattoria, located at 1 Main St", lines[1])
	assert.Equal(t, "2. Luigi's", lines[2])
	assert.Equal(t, "", lines[3])
	assert.Equal(t, "Enjoy your meal!", lines[4])
}

func TestComposeMinimalRequest(t *testing.T) {
	req := &model.Request{Cuisine: "chinese", Email: "a@b.com"}
	msg := Compose(req, []model.Restaurant{{ID: "x", Name: "Golden Wok"}})

	lines := strings.Split(msg.Body, "\n")
	assert.Equal(t, "Here are my Chinese suggestions:", lines[0])
	assert.Equal(t, "1. Golden Wok", lines[1])
}

func TestComposeOneLinePerResultInOrder(t *testing.T) {
	req := &model.Request{Cuisine: "mexican", Email: "a@b.com"}
	results := []model.Restaurant{
		{ID: "1", Name: "Uno"},
		{ID: "2", Name: "Dos", Address: "2nd Ave"},
		{ID: "3", Name: "Tres"},
	}

	msg := Compose(req, results)
	lines := strings.Split(msg.Body, "\n")

	require.Len(t, lines, 6)
	assert.Equal(t, "1. Uno", lines[1])
	assert.Equal(t, "2. Dos, located at 2nd Ave", lines[2])
	assert.Equal(t, "3. Tres", lines[3])
}

func TestComposeDateFallback(t *testing.T) {
	req := &model.Request{
		Cuisine:    "indian",
		DiningDate: "2025-13-40",
		Email:      "a@b.com",
	}
	msg := Compose(req, []model.Restaurant{{ID: "x", Name: "Tandoor"}})

	assert.Contains(t, msg.Body, ", for 2025-13-40:")
}

func TestComposeTimeFallback(t *testing.T) {
	req := &model.Request{
		Cuisine:    "indian",
		DiningTime: "sevenish",
		Email:      "a@b.com",
	}
	msg := Compose(req, []model.Restaurant{{ID: "x", Name: "Tandoor"}})

	assert.Contains(t, msg.Body, ", for at sevenish:")
}

func TestComposeDateOnly(t *testing.T) {
	req := &model.Request{
		Cuisine:    "japanese",
		DiningDate: "2025-10-09",
		Email:      "a@b.com",
	}
	msg := Compose(req, []model.Restaurant{{ID: "x", Name: "Sakura"}})

	assert.Contains(t, msg.Body, "suggestions, for Thursday, October 9, 2025:")
	assert.NotContains(t, msg.Body, " at ")
}

func TestComposeMorningTime(t *testing.T) {
	req := &model.Request{
		Cuisine:    "japanese",
		DiningTime: "09:30",
		Email:      "a@b.com",
	}
	msg := Compose(req, []model.Restaurant{{ID: "x", Name: "Sakura"}})

	assert.Contains(t, msg.Body, "at 9 am:")
}

func TestComposeIsDeterministic(t *testing.T) {
	req := &model.Request{
		Cuisine:    "italian",
		NumPeople:  4,
		DiningDate: "2025-10-09",
		DiningTime: "19:00",
		Email:      "a@b.com",
	}
	results := []model.Restaurant{{ID: "id1", Name: "Trattoria", Address: "1 Main St"}}

	first := Compose(req, results)
	second := Compose(req, results)
	assert.Equal(t, first, second)
}
