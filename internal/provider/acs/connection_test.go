package acs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConnectionString(t *testing.T) {
	t.Parallel()

	cs, err := ParseConnectionString("endpoint=https://res.communication.azure.com/;accesskey=" + testKey)
	require.NoError(t, err)
	assert.Equal(t, "https://res.communication.azure.com/", cs.Endpoint)
	assert.Equal(t, testKey, cs.AccessKey)
}

func TestParseConnectionString_CaseAndPadding(t *testing.T) {
	t.Parallel()

	// Padding '=' in the key must survive the split.
	key := "YWJjZA=="
	cs, err := ParseConnectionString(" Endpoint=https://res.communication.azure.com ; AccessKey=" + key + ";")
	require.NoError(t, err)
	assert.Equal(t, "https://res.communication.azure.com", cs.Endpoint)
	assert.Equal(t, key, cs.AccessKey)
}

func TestParseConnectionString_Invalid(t *testing.T) {
	t.Parallel()

	tests := []string{
		"",
		"https://res.communication.azure.com/",
		"endpoint=https://res.communication.azure.com/",
		"accesskey=" + testKey,
		"endpoint=ftp://res;accesskey=" + testKey,
		"endpoint=https://res.communication.azure.com/;accesskey=not base64!",
	}

	for _, s := range tests {
		_, err := ParseConnectionString(s)
		assert.Error(t, err, "ParseConnectionString(%q)", s)
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	t.Parallel()

	got, err := normalizeEndpoint("https://res.communication.azure.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://res.communication.azure.com", got)

	got, err = normalizeEndpoint("http://127.0.0.1:8080")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080", got)

	_, err = normalizeEndpoint("res.communication.azure.com")
	assert.Error(t, err)
}
