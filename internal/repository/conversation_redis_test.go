package repository

import (
	"strings"
	"testing"
)

func TestConversationKeyUserSegmentIsolation(t *testing.T) {
	// "a:b" 的键不能落在 "a" 的扫描前缀下
	prefix := strings.TrimSuffix(conversationKey("a", "*"), "*")
	key := conversationKey("a:b", "2026-08-27T10-00-00.000000000Z")
	if strings.HasPrefix(key, prefix) {
		t.Errorf("key %q matches scan prefix %q of another user", key, prefix)
	}
}

func TestConversationKeyNoGlobMetacharacters(t *testing.T) {
	// 用户标识里的 glob 元字符不得进入键段，否则会污染扫描模式
	userID := `a*?[b]\c`
	key := conversationKey(userID, "k")
	segment := strings.TrimSuffix(strings.TrimPrefix(key, "conversation:"), ":k")
	if strings.ContainsAny(segment, `*?[]\`) {
		t.Errorf("encoded user segment %q contains glob metacharacters", segment)
	}
}
