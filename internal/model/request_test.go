package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestValid(t *testing.T) {
	payload := []byte(`{
		"location": " Manhattan ",
		"cuisine": " Italian ",
		"dining_date": "2025-10-09",
		"dining_time": "19:00",
		"num_people": "2",
		"email": " a@b.com "
	}`)

	req, err := ParseRequest(payload)
	require.NoError(t, err)
	assert.Equal(t, "italian", req.Cuisine)
	assert.Equal(t, "a@b.com", req.Email)
	assert.Equal(t, "Manhattan", req.Location)
	assert.Equal(t, FlexInt(2), req.NumPeople)
}

func TestParseRequestMalformed(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"invalid JSON", `{"cuisine": `},
		{"missing cuisine", `{"email": "a@b.com"}`},
		{"missing email", `{"cuisine": "italian"}`},
		{"whitespace cuisine", `{"cuisine": "   ", "email": "a@b.com"}`},
		{"whitespace email", `{"cuisine": "italian", "email": "  "}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRequest([]byte(tc.payload))
			require.Error(t, err)
			assert.True(t, IsMalformed(err))
		})
	}
}

func TestParseRequestOptionalFieldsAbsent(t *testing.T) {
	req, err := ParseRequest([]byte(`{"cuisine": "chinese", "email": "a@b.com"}`))
	require.NoError(t, err)
	assert.Equal(t, FlexInt(0), req.NumPeople)
	assert.Empty(t, req.DiningDate)
	assert.Empty(t, req.DiningTime)
}

func TestFlexIntShapes(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want FlexInt
	}{
		{"number", `{"n": 3}`, 3},
		{"numeric string", `{"n": "3"}`, 3},
		{"padded string", `{"n": " 3 "}`, 3},
		{"null", `{"n": null}`, 0},
		{"empty string", `{"n": ""}`, 0},
		{"non-numeric", `{"n": "few"}`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out struct {
				N FlexInt `json:"n"`
			}
			require.NoError(t, json.Unmarshal([]byte(tc.in), &out))
			assert.Equal(t, tc.want, out.N)
		})
	}
}
