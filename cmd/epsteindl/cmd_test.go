package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrapeFlagMapOnlyChanged(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	var f scrapeFlags
	addScrapeFlags(cmd, &f)
	cmd.Flags().IntVar(&f.concurrent, "concurrent", 0, "")
	cmd.Flags().StringVar(&f.dispatcher, "dispatcher", "", "")

	assert.Empty(t, f.flagMap(cmd))

	require.NoError(t, cmd.Flags().Parse([]string{
		"--max-fetch-attempts", "0",
		"--delay", "2s",
		"--dispatcher", "native",
	}))

	assert.Equal(t, map[string]interface{}{
		"max-fetch-attempts": 0,
		"delay":              2 * time.Second,
		"dispatcher":         "native",
	}, f.flagMap(cmd))
	assert.Equal(t, -1, f.startPage)
}

func TestShowBanner(t *testing.T) {
	find := func(args ...string) *cobra.Command {
		c, _, err := rootCmd.Find(args)
		require.NoError(t, err)
		return c
	}

	assert.True(t, showBanner(find("list")))
	assert.True(t, showBanner(find("download")))
	assert.False(t, showBanner(find("auth", "list")))
	assert.False(t, showBanner(find("config", "show")))
}

func TestTokenName(t *testing.T) {
	assert.Equal(t, "default", tokenName(nil))
	assert.Equal(t, "default", tokenName([]string{"  "}))
	assert.Equal(t, "mirror", tokenName([]string{"mirror"}))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"list", "download", "scrape", "resume", "status", "config", "auth"} {
		assert.True(t, names[want], want)
	}
}
