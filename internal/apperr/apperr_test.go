package apperr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormatAndUnwrap(t *testing.T) {
	base := errors.New("status 503")
	err := Fetch("fetch_index", "https://example.org/de/kalender", base)

	if !errors.Is(err, base) {
		t.Fatal("errors.Is should reach the wrapped error")
	}
	msg := err.Error()
	for _, part := range []string{"fetch error", "fetch_index", "example.org", "status 503"} {
		if !strings.Contains(msg, part) {
			t.Errorf("message %q missing %q", msg, part)
		}
	}
}

func TestKindOfThroughWrapping(t *testing.T) {
	err := fmt.Errorf("剧目入库失败: %w", Store("upsert_show", "/a", errors.New("boom")))
	if !IsKind(err, KindStore) {
		t.Errorf("KindOf = %q, want store", KindOf(err))
	}
	if IsKind(err, KindParse) {
		t.Error("store error reported as parse")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("plain error should have no kind")
	}
}
