package cmd

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/template/django/v3"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Verify templates and stage assets into dist/",
	Long: `Parse every template so broken markup fails here instead of on a
live request, then copy static assets into dist/ under content-hashed
names with a manifest mapping the original paths.`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	header("Building frummy")

	viewsDir := "views"
	assetsDir := "public"
	distDir := "dist"

	if err := verifyTemplates(viewsDir); err != nil {
		failure("template verification failed: %v", err)
		return err
	}
	success("templates verified")

	manifest, err := fingerprintAssets(os.DirFS(assetsDir), distDir)
	if err != nil {
		failure("asset staging failed: %v", err)
		return err
	}
	success("%d assets staged into %s/", len(manifest), distDir)

	return nil
}

// verifyTemplates loads the whole template tree through the same engine
// the server uses, surfacing parse errors at build time.
func verifyTemplates(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("template dir %q: %w", dir, err)
	}

	engine := django.New(dir, ".html")
	return engine.Load()
}

// fingerprintAssets copies every file in srcFS into dstDir under a
// content-hashed name (app.css becomes app.3f8a91bc.css) and writes a
// manifest.json mapping original to hashed paths.
func fingerprintAssets(srcFS fs.FS, dstDir string) (map[string]string, error) {
	manifest := map[string]string{}

	err := fs.WalkDir(srcFS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		data, err := fs.ReadFile(srcFS, path)
		if err != nil {
			return err
		}

		hashed := hashedName(path, data)
		target := filepath.Join(dstDir, filepath.FromSlash(hashed))

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return err
		}

		manifest[path] = hashed
		return nil
	})
	if err != nil {
		return nil, err
	}

	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dstDir, "manifest.json"), raw, 0o644); err != nil {
		return nil, err
	}

	return manifest, nil
}

func hashedName(path string, data []byte) string {
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])[:8]

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)

	return fmt.Sprintf("%s.%s%s", base, digest, ext)
}
