package services_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/services"
)

const catalogueYAML = `services:
  - id: billing
    name: Billing
    url: https://billing.example.com
    logo: billing.png
  - id: wiki
    name: Wiki
    url: https://apps.example.com/wiki
`

func writeCatalogue(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCatalogue(t *testing.T) {
	c, err := services.LoadCatalogue(writeCatalogue(t, catalogueYAML))
	require.NoError(t, err)

	list := c.List()
	require.Len(t, list, 2)
	require.Equal(t, "billing", list[0].ID)
	require.Equal(t, "wiki", list[1].ID)

	svc, ok := c.Get("billing")
	require.True(t, ok)
	require.Equal(t, "billing.png", svc.Logo)

	require.ElementsMatch(t, []string{"https://billing.example.com", "https://apps.example.com"}, c.Origins())
	require.True(t, c.IsAllowedOrigin("https://BILLING.example.com"))
	require.False(t, c.IsAllowedOrigin("https://evil.example.com"))
}

func TestLookup(t *testing.T) {
	c, err := services.LoadCatalogue(writeCatalogue(t, catalogueYAML))
	require.NoError(t, err)

	tests := []struct {
		url   string
		found string
	}{
		{"https://billing.example.com", "billing"},
		{"https://billing.example.com/invoices?id=3", "billing"},
		{"https://apps.example.com/wiki", "wiki"},
		{"https://apps.example.com/wiki/page/1", "wiki"},
		{"https://apps.example.com/wikipedia", ""},
		{"https://apps.example.com/wiki/./page", "wiki"},
		{"https://apps.example.com/wiki/../admin", ""},
		{"https://apps.example.com/wiki/%2e%2e/admin", ""},
		{"https://apps.example.com/wiki/..", ""},
		{"http://billing.example.com", ""},
		{"https://billing.example.com.evil.com", ""},
		{"not a url", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			svc, ok := c.Lookup(tt.url)
			if tt.found == "" {
				require.False(t, ok)
				return
			}
			require.True(t, ok)
			require.Equal(t, tt.found, svc.ID)
		})
	}
}

func TestCatalogueRejectsInvalidEntries(t *testing.T) {
	_, err := services.NewCatalogue(services.Service{ID: "a", URL: "/relative"})
	require.Error(t, err)

	_, err = services.NewCatalogue(
		services.Service{ID: "a", URL: "https://a.example.com"},
		services.Service{ID: "a", URL: "https://b.example.com"},
	)
	require.Error(t, err)
}

func TestReloadKeepsPreviousOnError(t *testing.T) {
	path := writeCatalogue(t, catalogueYAML)
	c, err := services.LoadCatalogue(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("services: [ {id: x, url: nope} ]"), 0o600))
	require.Error(t, c.Reload())
	require.Len(t, c.List(), 2)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := writeCatalogue(t, catalogueYAML)
	c, err := services.LoadCatalogue(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Watch(ctx))

	updated := catalogueYAML + "  - id: crm\n    name: CRM\n    url: https://crm.example.com\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	require.Eventually(t, func() bool {
		_, ok := c.Get("crm")
		return ok
	}, 5*time.Second, 50*time.Millisecond)
}

func TestEmptyCatalogueFillsOnReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.yaml")
	c := services.NewEmptyCatalogue(path)
	require.Empty(t, c.List())
	_, ok := c.Lookup("https://billing.example.com")
	require.False(t, ok)

	require.NoError(t, os.WriteFile(path, []byte(catalogueYAML), 0o600))
	require.NoError(t, c.Reload())
	_, ok = c.Lookup("https://billing.example.com/invoices")
	require.True(t, ok)
}

func TestDirLogoStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "billing.png"), []byte("png-bytes"), 0o600))
	store := services.NewDirLogoStore(dir)

	logo, err := store.Open(context.Background(), "billing.png")
	require.NoError(t, err)
	defer logo.Body.Close()
	body, err := io.ReadAll(logo.Body)
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(body))
	require.Equal(t, "image/png", logo.ContentType)
	require.EqualValues(t, 9, logo.Size)

	_, err = store.Open(context.Background(), "missing.png")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = store.Open(context.Background(), "../secret.png")
	require.ErrorIs(t, err, apperrors.ErrValidation)
}
