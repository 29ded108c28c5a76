package cli

import (
	"strings"
	"testing"
)

func TestExpandPatternExact(t *testing.T) {
	titles := []string{"GitHub", "GitLab", "Bank"}

	got, err := ExpandPattern("GitHub", titles)
	if err != nil {
		t.Fatalf("ExpandPattern: %v", err)
	}
	if len(got) != 1 || got[0] != "GitHub" {
		t.Errorf("ExpandPattern = %v", got)
	}

	if _, err := ExpandPattern("Missing", titles); err == nil {
		t.Error("missing exact title should fail")
	}
}

func TestExpandPatternGlob(t *testing.T) {
	titles := []string{"GitHub", "GitLab", "Bank"}

	got, err := ExpandPattern("Git*", titles)
	if err != nil {
		t.Fatalf("ExpandPattern: %v", err)
	}
	if len(got) != 2 || got[0] != "GitHub" || got[1] != "GitLab" {
		t.Errorf("ExpandPattern = %v", got)
	}
}

func TestExpandPatternNoMatches(t *testing.T) {
	_, err := ExpandPattern("X*", []string{"GitHub"})
	if err == nil || !strings.Contains(err.Error(), "match") {
		t.Errorf("err = %v", err)
	}
}

func TestExpandPatternInvalid(t *testing.T) {
	if _, err := ExpandPattern("[", []string{"GitHub"}); err == nil {
		t.Error("malformed pattern should fail")
	}
}

func TestExpandPatternQuestionMark(t *testing.T) {
	got, err := ExpandPattern("Ban?", []string{"Bank", "Band", "Banana"})
	if err != nil {
		t.Fatalf("ExpandPattern: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("ExpandPattern = %v", got)
	}
}
