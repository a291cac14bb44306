package history

import (
	"testing"

	"pngtuber-brain/internal/llm"
)

func TestHistoryAppendGetReset(t *testing.T) {
	h := NewManager(10)
	userA := "twitch:1"
	userB := "twitch:2"

	h.AppendExchange(userA, "hello", "hi")
	h.AppendExchange(userB, "foo", "bar")

	msgsA := h.Get(userA)
	msgsB := h.Get(userB)

	if len(msgsA) != 2 || len(msgsB) != 2 {
		t.Fatalf("unexpected lengths: A=%d B=%d", len(msgsA), len(msgsB))
	}
	if msgsA[0].Role != "user" || msgsA[0].Content != "hello" {
		t.Fatalf("unexpected A[0]: %+v", msgsA[0])
	}
	if msgsA[1].Role != "assistant" || msgsA[1].Content != "hi" {
		t.Fatalf("unexpected A[1]: %+v", msgsA[1])
	}
	if msgsB[0].Content != "foo" || msgsB[1].Content != "bar" {
		t.Fatalf("unexpected B: %+v", msgsB)
	}

	// Ensure copy semantics (modifying returned slice does not affect internal state)
	msgsA[0] = llm.Message{Role: "user", Content: "mutated"}
	if h.Get(userA)[0].Content != "hello" {
		t.Fatalf("internal state mutated via returned slice")
	}

	h.Reset(userA)
	if len(h.Get(userA)) != 0 {
		t.Fatalf("reset did not clear user A")
	}
	if len(h.Get(userB)) != 2 {
		t.Fatalf("reset should not affect other users")
	}

	h.ResetAll()
	if len(h.Get(userB)) != 0 {
		t.Fatalf("reset all did not clear user B")
	}
}

func TestHistoryKeepsNewestExchanges(t *testing.T) {
	h := NewManager(2)
	h.AppendExchange("u", "q1", "a1")
	h.AppendExchange("u", "q2", "a2")
	h.AppendExchange("u", "q3", "a3")

	msgs := h.Get("u")
	if len(msgs) != 4 {
		t.Fatalf("want 4 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "q2" || msgs[3].Content != "a3" {
		t.Fatalf("oldest exchange not dropped: %+v", msgs)
	}
}
