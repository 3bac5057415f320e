package directory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trycode2018/chathub/internal/core"
	"github.com/trycode2018/chathub/internal/domain"
)

func TestStatic_Lookups(t *testing.T) {
	req := require.New(t)
	s := NewStatic([]domain.Identity{
		{ID: "u-alice", UserName: "alice", DisplayName: "Alice Martin"},
	})
	ctx := context.Background()

	byName, err := s.FindByUserName(ctx, "alice")
	req.NoError(err)
	req.Equal(domain.UserID("u-alice"), byName.ID)

	byID, err := s.FindByID(ctx, "u-alice")
	req.NoError(err)
	req.Equal(domain.UserName("alice"), byID.UserName)

	_, err = s.FindByUserName(ctx, "ghost")
	req.ErrorIs(err, core.ErrIdentityNotFound)

	_, err = s.FindByID(ctx, "u-ghost")
	req.ErrorIs(err, core.ErrIdentityNotFound)
}

func writeUsersFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidSeedFile(t *testing.T) {
	req := require.New(t)
	path := writeUsersFile(t, `
users:
  - id: u-alice
    user_name: alice
    display_name: Alice Martin
    avatar: avatars/alice.png
  - id: u-bob
    user_name: bob
    display_name: Bob Ferreira
`)

	s, err := Load(path)
	req.NoError(err)

	ident, err := s.FindByUserName(context.Background(), "alice")
	req.NoError(err)
	req.Equal("Alice Martin", ident.DisplayName)
	req.Equal("avatars/alice.png", ident.AvatarRef)

	_, err = s.FindByID(context.Background(), "u-bob")
	req.NoError(err)
}

func TestLoad_RejectsIncompleteRecord(t *testing.T) {
	path := writeUsersFile(t, `
users:
  - id: u-alice
    user_name: alice
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
