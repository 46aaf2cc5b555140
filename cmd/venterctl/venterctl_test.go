package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/venter/internal/reshape"
	"github.com/kiranshivaraju/venter/internal/wordfreq"
	"github.com/kiranshivaraju/venter/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- command tree ---

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"migrate", "org", "key", "predict", "stats", "wordcloud"} {
		assert.Contains(t, names, want)
	}
}

func TestPredictCommand_RejectsBadID(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"--env-file", "testdata/none.env", "predict", "not-a-uuid"})
	root.SetOut(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "artifact id")
}

func TestWordCloudCommand_NeedsThreeArgs(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"--env-file", "testdata/none.env", "wordcloud", uuid.NewString(), "Water"})
	root.SetOut(&bytes.Buffer{})

	assert.Error(t, root.Execute())
}

func TestMigrateCommand_NegativeDown(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"--env-file", "testdata/none.env", "migrate", "--down=-1"})
	root.SetOut(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--down")
}

// --- api keys ---

func TestNewAPIKey(t *testing.T) {
	org := uuid.New()
	raw, key, err := newAPIKey(org, "asha", "laptop", true)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(raw, apiKeyPrefix))
	assert.Equal(t, raw[:8], key.KeyPrefix)
	assert.Equal(t, org, key.OrganisationID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(raw)))
	assert.True(t, key.Actor().Staff)

	raw2, plain, err := newAPIKey(org, "ravi", "", false)
	require.NoError(t, err)
	assert.NotEqual(t, raw, raw2)
	assert.False(t, plain.Actor().Staff)
}

// --- rendering ---

func TestRenderStats_DropsStyleColumn(t *testing.T) {
	stats := []reshape.DomainStats{{
		Domain: "Water",
		Rows: [][]reshape.Cell{
			{reshape.HeaderCategory, reshape.HeaderResponses, reshape.StyleMarker},
			{"Tanker", 4, ""},
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, renderStats(&buf, stats))
	out := buf.String()

	assert.Contains(t, out, "Water")
	assert.Contains(t, out, "Tanker")
	assert.Contains(t, out, "4")
	assert.NotContains(t, out, "style")
}

func TestRenderTableRows(t *testing.T) {
	rows := []models.TableRow{{
		Index: 2, ProblemDescription: "pothole", HighestConfidence: 0.9,
		Category: models.RankedCategories{{Category: "Roads", Probability: 0.9}},
		WardName: "Ward 1", DateCreated: "2024-03-02",
	}}

	var buf bytes.Buffer
	require.NoError(t, renderTableRows(&buf, rows))
	assert.Contains(t, buf.String(), "Roads")
	assert.Contains(t, buf.String(), "0.90")
}

func TestRenderWords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderWords(&buf, []wordfreq.WordCount{{Word: "tanker", Count: 3}}))
	assert.Contains(t, buf.String(), "tanker")
	assert.Contains(t, buf.String(), "3")
}
