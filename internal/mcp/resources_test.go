package mcp

import (
	"context"
	"encoding/json"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpeciesURI(t *testing.T) {
	tests := []struct {
		name      string
		uri       string
		want      string
		wantError bool
	}{
		{name: "simple", uri: "vigil://species/OAK", want: "OAK"},
		{name: "escaped space", uri: "vigil://species/coast%20live%20oak", want: "coast live oak"},
		{name: "empty name", uri: "vigil://species/", wantError: true},
		{name: "blank name", uri: "vigil://species/%20", wantError: true},
		{name: "nested path", uri: "vigil://species/OAK/extra", wantError: true},
		{name: "wrong prefix", uri: "other://species/OAK", wantError: true},
		{name: "bad escape", uri: "vigil://species/%zz", wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSpeciesURI(tt.uri)
			if tt.wantError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid species URI")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func readResource(t *testing.T, contents []mcplib.ResourceContents) map[string]any {
	t.Helper()
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcplib.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "application/json", text.MIMEType)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &m))
	return m
}

func TestFireSeasonResource(t *testing.T) {
	contents, err := testServer.handleFireSeasonResource(context.Background(), mcplib.ReadResourceRequest{})
	require.NoError(t, err)
	m := readResource(t, contents)
	assert.Equal(t, "30 DAYS until Fire Season", m["message"])
}

func TestClearanceTableResource(t *testing.T) {
	contents, err := testServer.handleClearanceTable(context.Background(), mcplib.ReadResourceRequest{})
	require.NoError(t, err)
	m := readResource(t, contents)
	table := m["clearances_ft"].(map[string]any)
	assert.Len(t, table, 4)
	assert.InDelta(t, 15.0, table["TIER_3"].(map[string]any)["TRANSMISSION"], 1e-9)
}

func TestSpeciesResource(t *testing.T) {
	req := mcplib.ReadResourceRequest{}
	req.Params.URI = "vigil://species/pine"
	contents, err := testServer.handleSpeciesResource(context.Background(), req)
	require.NoError(t, err)
	m := readResource(t, contents)
	assert.Equal(t, "PINE", m["species"])
}
