package repository

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"magistral-go/internal/model"
	"magistral-go/pkg/log"
)

func TestMain(m *testing.M) {
	log.Init("error", "console", "")
	os.Exit(m.Run())
}

func newFSRepo(t *testing.T) ConversationRepository {
	t.Helper()
	return NewFilesystemConversationRepository(t.TempDir())
}

func record(userID, key string, messages ...model.ChatMessage) model.ConversationRecord {
	return model.ConversationRecord{
		UserID:       userID,
		Title:        "consulta",
		TimestampKey: key,
		Messages:     messages,
	}
}

func TestPutThenListRoundTrip(t *testing.T) {
	repo := newFSRepo(t)
	ctx := context.Background()

	messages := []model.ChatMessage{
		{Role: model.RoleUser, Content: "¿Qué exige el RD 226/2005?"},
		{Role: model.RoleAssistant, Content: "El Real Decreto 226/2005 establece..."},
	}
	if err := repo.Put(ctx, record("farma1", "2026-08-27T10-00-00.000000000Z", messages...)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := repo.ListByUser(ctx, "farma1")
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if !reflect.DeepEqual(got[0].Messages, messages) {
		t.Errorf("messages not preserved: %+v", got[0].Messages)
	}
	if got[0].Title != "consulta" || got[0].UserID != "farma1" {
		t.Errorf("metadata not preserved: %+v", got[0])
	}
}

func TestListNewestFirst(t *testing.T) {
	repo := newFSRepo(t)
	ctx := context.Background()

	keys := []string{
		"2026-08-25T09-00-00.000000000Z",
		"2026-08-27T10-00-00.000000000Z",
		"2026-08-26T23-59-59.000000000Z",
	}
	for _, k := range keys {
		if err := repo.Put(ctx, record("farma1", k)); err != nil {
			t.Fatalf("Put(%s) failed: %v", k, err)
		}
	}

	got, err := repo.ListByUser(ctx, "farma1")
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	want := []string{
		"2026-08-27T10-00-00.000000000Z",
		"2026-08-26T23-59-59.000000000Z",
		"2026-08-25T09-00-00.000000000Z",
	}
	for i, w := range want {
		if got[i].TimestampKey != w {
			t.Errorf("position %d: got %s, want %s", i, got[i].TimestampKey, w)
		}
	}
}

func TestListUnknownUserIsEmptyNotError(t *testing.T) {
	repo := newFSRepo(t)

	got, err := repo.ListByUser(context.Background(), "demo")
	if err != nil {
		t.Fatalf("expected no error for unknown user, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty sequence, got %d records", len(got))
	}
}

func TestUsersDoNotCollide(t *testing.T) {
	repo := newFSRepo(t)
	ctx := context.Background()

	// 同样的标题和时间戳，不同用户
	key := "2026-08-27T10-00-00.000000000Z"
	if err := repo.Put(ctx, record("ana", key, model.ChatMessage{Role: model.RoleUser, Content: "de ana"})); err != nil {
		t.Fatalf("Put ana failed: %v", err)
	}
	if err := repo.Put(ctx, record("blas", key, model.ChatMessage{Role: model.RoleUser, Content: "de blas"})); err != nil {
		t.Fatalf("Put blas failed: %v", err)
	}

	gotAna, _ := repo.ListByUser(ctx, "ana")
	gotBlas, _ := repo.ListByUser(ctx, "blas")
	if len(gotAna) != 1 || len(gotBlas) != 1 {
		t.Fatalf("expected 1 record each, got %d and %d", len(gotAna), len(gotBlas))
	}
	if gotAna[0].Messages[0].Content != "de ana" || gotBlas[0].Messages[0].Content != "de blas" {
		t.Error("records leaked across user partitions")
	}
}

func TestSameKeyOverwrites(t *testing.T) {
	repo := newFSRepo(t)
	ctx := context.Background()

	key := "2026-08-27T10-00-00.000000000Z"
	if err := repo.Put(ctx, record("farma1", key, model.ChatMessage{Role: model.RoleUser, Content: "v1"})); err != nil {
		t.Fatalf("first Put failed: %v", err)
	}
	if err := repo.Put(ctx, record("farma1", key, model.ChatMessage{Role: model.RoleUser, Content: "v2"})); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	got, _ := repo.ListByUser(ctx, "farma1")
	if len(got) != 1 {
		t.Fatalf("expected overwrite, got %d records", len(got))
	}
	if got[0].Messages[0].Content != "v2" {
		t.Errorf("expected overwritten content, got %q", got[0].Messages[0].Content)
	}
}

func TestCorruptRecordIsSkipped(t *testing.T) {
	baseDir := t.TempDir()
	repo := NewFilesystemConversationRepository(baseDir)
	ctx := context.Background()

	if err := repo.Put(ctx, record("farma1", "2026-08-27T10-00-00.000000000Z")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	// 手工写入一个损坏的记录文件
	corrupt := filepath.Join(baseDir, "farma1", "2026-08-28T10-00-00.000000000Z.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	got, err := repo.ListByUser(ctx, "farma1")
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("corrupt record should be skipped, got %d records", len(got))
	}
	if got[0].TimestampKey != "2026-08-27T10-00-00.000000000Z" {
		t.Errorf("surviving record has wrong key: %s", got[0].TimestampKey)
	}
}

func TestNoPartialRecordsVisible(t *testing.T) {
	baseDir := t.TempDir()
	repo := NewFilesystemConversationRepository(baseDir)
	ctx := context.Background()

	if err := repo.Put(ctx, record("farma1", "2026-08-27T10-00-00.000000000Z")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// 分区目录中不能残留临时文件，目录里只能有已提交的 .json 记录
	entries, err := os.ReadDir(filepath.Join(baseDir, "farma1"))
	if err != nil {
		t.Fatalf("reading partition: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			t.Errorf("unexpected leftover file in partition: %s", e.Name())
		}
	}
}

func TestKeyCannotEscapePartition(t *testing.T) {
	baseDir := t.TempDir()
	repo := NewFilesystemConversationRepository(baseDir)
	ctx := context.Background()

	if err := repo.Put(ctx, record("blas", "2026-09-08T12-00-00.000000000Z",
		model.ChatMessage{Role: model.RoleUser, Content: "de blas"})); err != nil {
		t.Fatalf("Put blas failed: %v", err)
	}
	// 恶意 key 带路径分隔符和上级目录引用，必须留在 ana 的分区里
	if err := repo.Put(ctx, record("ana", "../blas/2026-09-09T00-00-00",
		model.ChatMessage{Role: model.RoleUser, Content: "intrusa"})); err != nil {
		t.Fatalf("Put ana failed: %v", err)
	}

	gotBlas, err := repo.ListByUser(ctx, "blas")
	if err != nil {
		t.Fatalf("ListByUser blas failed: %v", err)
	}
	if len(gotBlas) != 1 || gotBlas[0].UserID != "blas" {
		t.Fatalf("blas partition polluted: %+v", gotBlas)
	}

	gotAna, err := repo.ListByUser(ctx, "ana")
	if err != nil {
		t.Fatalf("ListByUser ana failed: %v", err)
	}
	if len(gotAna) != 1 || gotAna[0].Messages[0].Content != "intrusa" {
		t.Fatalf("ana's record lost: %+v", gotAna)
	}
}

func TestSimilarUserIDsDoNotMerge(t *testing.T) {
	repo := newFSRepo(t)
	ctx := context.Background()

	key := "2026-08-27T10-00-00.000000000Z"
	if err := repo.Put(ctx, record("a b", key, model.ChatMessage{Role: model.RoleUser, Content: "con espacio"})); err != nil {
		t.Fatalf("Put 'a b' failed: %v", err)
	}
	if err := repo.Put(ctx, record("a_b", key, model.ChatMessage{Role: model.RoleUser, Content: "con guión bajo"})); err != nil {
		t.Fatalf("Put 'a_b' failed: %v", err)
	}

	gotSpace, _ := repo.ListByUser(ctx, "a b")
	gotUnderscore, _ := repo.ListByUser(ctx, "a_b")
	if len(gotSpace) != 1 || len(gotUnderscore) != 1 {
		t.Fatalf("expected 1 record each, got %d and %d", len(gotSpace), len(gotUnderscore))
	}
	if gotSpace[0].Messages[0].Content != "con espacio" || gotUnderscore[0].Messages[0].Content != "con guión bajo" {
		t.Error("similar user ids merged into one partition")
	}
}

func TestEncodeComponent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"farma1", "farma1"},
		{"user con espacios", "user_20con_20espacios"},
		{"a/b:c", "a_2fb_3ac"},
		{"..", "_2e_2e"},
		{"a b", "a_20b"},
		{"a_b", "a_5fb"},
		{"", "_"},
	}
	for _, tt := range tests {
		if got := encodeComponent(tt.in); got != tt.want {
			t.Errorf("encodeComponent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
