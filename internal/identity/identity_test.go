package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "LinguaTutor/pkg/errors"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileStoreLoad(t *testing.T) {
	path := writeProfile(t, `{"user_id":"u1","display_name":"Amina","school_category":"government"}`)
	store := NewFileStore(path)

	profile, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "u1", profile.UserID)
	assert.Equal(t, "Amina", profile.DisplayName)
	assert.Equal(t, "government", profile.SchoolCategory)

	// 第二次读取命中缓存，文件删掉也不影响
	require.NoError(t, os.Remove(path))
	again, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, profile, again)
}

func TestFileStoreMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))
	_, err := store.Load()
	assert.True(t, apperrors.IsCode(err, apperrors.CodeAuthFailed))
}

func TestFileStoreInvalidContent(t *testing.T) {
	path := writeProfile(t, `not json`)
	_, err := NewFileStore(path).Load()
	assert.True(t, apperrors.IsCode(err, apperrors.CodeAuthFailed))
}

func TestFileStoreEmptyUserID(t *testing.T) {
	path := writeProfile(t, `{"display_name":"Nobody"}`)
	_, err := NewFileStore(path).Load()
	assert.True(t, apperrors.IsCode(err, apperrors.CodeAuthFailed))
}

func TestStaticStore(t *testing.T) {
	store := &StaticStore{Profile: Profile{UserID: "u2"}}
	p, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "u2", p.UserID)

	_, err = (&StaticStore{}).Load()
	assert.Error(t, err)
}
