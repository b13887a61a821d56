package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/turnline/turnline/internal/conversation"
)

func TestSanitizeNameReplacesReservedChars(t *testing.T) {
	got := SanitizeName(`a/b\c:d*e?f"g<h>i|j`)
	want := "a_b_c_d_e_f_g_h_i_j"
	if got != want {
		t.Fatalf("SanitizeName = %q, want %q", got, want)
	}
}

func TestFromConversationAndBackPreservesRoleAndContent(t *testing.T) {
	conv := conversation.New()
	conv.SetSystem("you are helpful")
	conv.AddUser("hello")
	conv.AddAssistant("hi there")
	conv.AddToolResult("read", "file contents")

	rec := FromConversation("my session", conv, Metadata{Model: "llama3"}, 1700000000)
	if rec.Name != "my session" {
		t.Fatalf("expected name unchanged (no reserved chars), got %q", rec.Name)
	}
	if len(rec.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(rec.Messages))
	}

	restored := rec.ToConversation()
	got := restored.Messages()
	orig := conv.Messages()
	if len(got) != len(orig) {
		t.Fatalf("expected %d restored messages, got %d", len(orig), len(got))
	}
	for i := range orig {
		if got[i].Role != orig[i].Role || got[i].Content != orig[i].Content {
			t.Fatalf("message %d mismatch: got %+v, want %+v", i, got[i], orig[i])
		}
		if orig[i].Role == conversation.RoleTool && got[i].ToolName != orig[i].ToolName {
			t.Fatalf("tool_name not preserved at %d: got %q, want %q", i, got[i].ToolName, orig[i].ToolName)
		}
	}
}

func TestToolNameOnlySetForToolRole(t *testing.T) {
	rec := Record{Messages: []MessageRecord{{Role: "user", Content: "hi"}}}
	conv := rec.ToConversation()
	msgs := conv.Messages()
	if msgs[0].ToolName != "" {
		t.Fatalf("expected empty ToolName for a non-tool message, got %q", msgs[0].ToolName)
	}
}

func TestStoreSaveLoadListDelete(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	rec := Record{Name: "session-a", SavedAt: 100, Messages: []MessageRecord{{Role: "user", Content: "hi"}}}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.Load(ctx, "session-a")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.SavedAt != 100 || len(loaded.Messages) != 1 {
		t.Fatalf("unexpected loaded record: %+v", loaded)
	}

	rec.SavedAt = 200
	rec.Messages = append(rec.Messages, MessageRecord{Role: "assistant", Content: "hello"})
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("upsert save failed: %v", err)
	}
	reloaded, err := store.Load(ctx, "session-a")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.SavedAt != 200 || len(reloaded.Messages) != 2 {
		t.Fatalf("expected upsert to replace record, got %+v", reloaded)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 1 || list[0].Name != "session-a" {
		t.Fatalf("unexpected list result: %+v", list)
	}

	if err := store.Delete(ctx, "session-a"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.Load(ctx, "session-a"); err == nil {
		t.Fatalf("expected load to fail after delete")
	}
}

func TestStoreLoadMissingReturnsError(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer store.Close()

	if _, err := store.Load(context.Background(), "does-not-exist"); err == nil {
		t.Fatalf("expected an error loading a missing record")
	}
}
