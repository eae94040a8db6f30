package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"pcbuilder/internal/cart"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) cart.State {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())

	var st cart.State
	require.NoError(t, json.Unmarshal(out.Bytes(), &st), out.String())
	return st
}

func TestCartCLI_PersistsBetweenRuns(t *testing.T) {
	store := filepath.Join(t.TempDir(), "cart.db")

	st := runCLI(t, "cart", "add", "3", "--name", "Ryzen 5 5600", "--price", "150", "--store", store)
	require.Len(t, st.Items, 1)
	assert.True(t, st.IsOpen)

	runCLI(t, "cart", "add", "3", "--name", "Ryzen 5 5600", "--price", "150", "--store", store)
	runCLI(t, "cart", "add", "7", "--name", "RTX 3060", "--price", "300", "--store", store)

	// 別プロセス相当：開き直しても明細は残る。パネルは閉じた状態から
	st = runCLI(t, "cart", "show", "--store", store)
	require.Len(t, st.Items, 2)
	assert.Equal(t, int64(2), st.Items[0].Quantity)
	assert.Equal(t, int64(600), st.Total)
	assert.False(t, st.IsOpen)

	st = runCLI(t, "cart", "remove", "3", "--store", store)
	require.Len(t, st.Items, 1)
	assert.Equal(t, int64(300), st.Total)

	st = runCLI(t, "cart", "clear", "--store", store)
	assert.Empty(t, st.Items)
	assert.Equal(t, int64(0), st.Total)
}

func TestCartCLI_RejectsBadID(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"cart", "remove", "abc", "--store", filepath.Join(t.TempDir(), "cart.db")})

	assert.Error(t, rootCmd.Execute())
}
