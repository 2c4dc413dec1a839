package models

import "strings"

// 学习模式标识
const (
	ModeChat      = "chat"
	ModePhoto     = "photo"
	ModeReading   = "reading"
	ModeRolePlay  = "roleplay"
	ModeListening = "listening"
	ModeDebate    = "debate"
)

// 学校类别
const (
	SchoolGovernment = "government"
	SchoolPrivate    = "private"
)

// LearningMode 学习模式目录项
type LearningMode struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// AllModes 返回完整的学习模式目录
func AllModes() []LearningMode {
	return []LearningMode{
		{ID: ModeChat, Title: "Chat Mode", Description: "Free conversation with the tutor"},
		{ID: ModePhoto, Title: "Photo Mode", Description: "Describe and discuss a picture"},
		{ID: ModeReading, Title: "Reading Mode", Description: "Read a passage aloud and get feedback"},
		{ID: ModeRolePlay, Title: "Role Play Mode", Description: "Act out everyday scenarios"},
		{ID: ModeListening, Title: "Listening Mode", Description: "Listen to a story and answer questions"},
		{ID: ModeDebate, Title: "Debate Mode", Description: "Argue for or against a topic"},
	}
}

// ModesForSchool 按学校类别过滤模式目录。公立学校只开放
// 阅读、角色扮演、听力和辩论四种模式。
func ModesForSchool(category string) []LearningMode {
	all := AllModes()
	if category != SchoolGovernment {
		return all
	}
	allowed := map[string]bool{
		ModeReading:   true,
		ModeRolePlay:  true,
		ModeListening: true,
		ModeDebate:    true,
	}
	filtered := make([]LearningMode, 0, len(allowed))
	for _, m := range all {
		if allowed[m.ID] {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// ModeFromSlug 把 "chat-mode" 这类路由写法转换为模式标识
func ModeFromSlug(slug string) string {
	id := strings.TrimSuffix(slug, "-mode")
	if IsValidMode(id) {
		return id
	}
	return ""
}

// IsValidMode 校验模式标识
func IsValidMode(id string) bool {
	for _, m := range AllModes() {
		if m.ID == id {
			return true
		}
	}
	return false
}
