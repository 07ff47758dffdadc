package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashedName(t *testing.T) {
	first := hashedName("app.css", []byte("body{}"))
	second := hashedName("app.css", []byte("body{}"))
	changed := hashedName("app.css", []byte("body{color:red}"))

	assert.Equal(t, first, second, "same content, same name")
	assert.NotEqual(t, first, changed, "content change rotates the name")
	assert.Regexp(t, `^app\.[0-9a-f]{8}\.css$`, first)

	nested := hashedName("img/logo.svg", []byte("<svg/>"))
	assert.Regexp(t, `^img/logo\.[0-9a-f]{8}\.svg$`, nested)
}

func TestFingerprintAssets(t *testing.T) {
	src := fstest.MapFS{
		"app.css":      &fstest.MapFile{Data: []byte("body{}")},
		"img/logo.svg": &fstest.MapFile{Data: []byte("<svg/>")},
	}
	dist := t.TempDir()

	manifest, err := fingerprintAssets(src, dist)
	require.NoError(t, err)
	require.Len(t, manifest, 2)

	for original, hashed := range manifest {
		data, err := os.ReadFile(filepath.Join(dist, filepath.FromSlash(hashed)))
		require.NoError(t, err)

		want, err := src.ReadFile(original)
		require.NoError(t, err)
		assert.Equal(t, want, data)
	}

	raw, err := os.ReadFile(filepath.Join(dist, "manifest.json"))
	require.NoError(t, err)

	var stored map[string]string
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, manifest, stored)
}

func TestVerifyTemplates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "home.html"),
		[]byte(`<h1>{{ title }}</h1>`),
		0o644,
	))

	assert.NoError(t, verifyTemplates(dir))
	assert.Error(t, verifyTemplates(filepath.Join(dir, "missing")))
}
