package identity

import (
	"encoding/json"
	"os"
	"sync"

	apperrors "LinguaTutor/pkg/errors"
)

// Profile 学生档案，由登录流程写入本地文件，会话控制器只读
type Profile struct {
	UserID         string `json:"user_id"`
	DisplayName    string `json:"display_name"`
	SchoolCategory string `json:"school_category"` // "government" 或 "private"
	Grade          string `json:"grade,omitempty"`
	AvatarURL      string `json:"avatar_url,omitempty"`
	Locale         string `json:"locale,omitempty"`
}

// Store 档案的只读存取
type Store interface {
	Load() (*Profile, error)
}

// FileStore 基于 JSON 文件的档案存取
type FileStore struct {
	path string
	mu   sync.Mutex

	cached *Profile
}

// NewFileStore 创建文件档案存取
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load 读取档案，结果会被缓存。文件缺失或内容不合法都视为
// 未登录，返回带认证码的错误。
func (s *FileStore) Load() (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return s.cached, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, apperrors.WrapCode(apperrors.CodeAuthFailed, err, "read profile file")
	}
	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, apperrors.WrapCode(apperrors.CodeAuthFailed, err, "decode profile file")
	}
	if profile.UserID == "" {
		return nil, apperrors.WithCode(apperrors.CodeAuthFailed, "profile has no user id")
	}
	s.cached = &profile
	return s.cached, nil
}

// StaticStore 内存档案，测试和演示用
type StaticStore struct {
	Profile Profile
}

func (s *StaticStore) Load() (*Profile, error) {
	if s.Profile.UserID == "" {
		return nil, apperrors.WithCode(apperrors.CodeAuthFailed, "profile has no user id")
	}
	p := s.Profile
	return &p, nil
}
