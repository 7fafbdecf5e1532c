package directory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.yaml")
	body := `
contacts:
  - {id: c-roux, name: Paul Roux, type: client}
  - {id: c-vidal, name: Vidal Matériaux, type: fournisseur}
projects:
  - {id: p-roux-garage, contact_id: c-roux, name: Garage}
addresses:
  - {id: a-roux, contact_id: c-roux, label: "3 place Bellecour, Lyon"}
collaborators:
  - {id: u-lea, name: Léa Petit}
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Paul Roux"}, names(d.SearchContacts(ContactClient, "roux")))
	assert.Len(t, d.Projects("c-roux"), 1)
	assert.Len(t, d.Addresses("c-roux"), 1)
	assert.Len(t, d.Collaborators(), 1)
}

func TestLoadRejectsBadContact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.yaml")
	require.NoError(t, os.WriteFile(path, []byte("contacts:\n  - {id: x, name: X, type: ami}\n"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
